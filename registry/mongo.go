package registry

import (
	"context"
	"errors"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// MongoFinder captures the subset of *mongo.Collection used by MongoResolver.
type MongoFinder interface {
	FindOne(ctx context.Context, filter any, opts ...*options.FindOneOptions) *mongo.SingleResult
}

type serviceDocument struct {
	Name string `bson:"name"`
	URL  string `bson:"url"`
}

// MongoResolver looks base URLs up in a collection of {name, url} documents.
type MongoResolver struct {
	coll MongoFinder
}

// NewMongoResolver returns a resolver backed by coll.
func NewMongoResolver(coll MongoFinder) *MongoResolver {
	return &MongoResolver{coll: coll}
}

// Resolve implements Resolver.
func (m *MongoResolver) Resolve(ctx context.Context, service, route string) (string, error) {
	if m == nil || m.coll == nil {
		return "", errors.New("registry: mongo collection is nil")
	}

	var doc serviceDocument
	err := m.coll.FindOne(ctx, bson.M{"name": service}).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return "", fmt.Errorf("%w %q", ErrUnknownService, service)
	}
	if err != nil {
		return "", fmt.Errorf("registry: mongo lookup %q: %w", service, err)
	}

	base, err := normalizeBaseURL(doc.URL)
	if err != nil {
		return "", fmt.Errorf("registry: service %q: %w", service, err)
	}
	return Join(base, route), nil
}
