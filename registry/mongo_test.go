package registry

import (
	"context"
	"errors"
	"testing"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type stubFinder struct {
	doc        any
	err        error
	lastFilter any
}

func (s *stubFinder) FindOne(_ context.Context, filter any, _ ...*options.FindOneOptions) *mongo.SingleResult {
	s.lastFilter = filter
	doc := s.doc
	if doc == nil {
		doc = bson.D{}
	}
	return mongo.NewSingleResultFromDocument(doc, s.err, nil)
}

func TestMongoResolver(t *testing.T) {
	t.Run("found", func(t *testing.T) {
		finder := &stubFinder{doc: bson.D{{Key: "name", Value: "core"}, {Key: "url", Value: "http://core.internal:8080/"}}}
		r := NewMongoResolver(finder)

		got, err := r.Resolve(context.Background(), "core", "menu/index")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if got != "http://core.internal:8080/menu/index" {
			t.Fatalf("unexpected url %q", got)
		}
		filter, ok := finder.lastFilter.(bson.M)
		if !ok || filter["name"] != "core" {
			t.Fatalf("expected name filter, got %#v", finder.lastFilter)
		}
	})

	t.Run("not found", func(t *testing.T) {
		r := NewMongoResolver(&stubFinder{err: mongo.ErrNoDocuments})
		if _, err := r.Resolve(context.Background(), "ghost", "x"); !errors.Is(err, ErrUnknownService) {
			t.Fatalf("expected ErrUnknownService, got %v", err)
		}
	})

	t.Run("driver failure", func(t *testing.T) {
		sentinel := errors.New("server selection timeout")
		r := NewMongoResolver(&stubFinder{err: sentinel})
		_, err := r.Resolve(context.Background(), "core", "x")
		if !errors.Is(err, sentinel) || errors.Is(err, ErrUnknownService) {
			t.Fatalf("expected wrapped driver error, got %v", err)
		}
	})

	t.Run("invalid stored url", func(t *testing.T) {
		r := NewMongoResolver(&stubFinder{doc: bson.D{{Key: "name", Value: "core"}, {Key: "url", Value: "nope"}}})
		if _, err := r.Resolve(context.Background(), "core", "x"); err == nil {
			t.Fatal("expected error for invalid url")
		}
	})

	t.Run("nil collection", func(t *testing.T) {
		if _, err := NewMongoResolver(nil).Resolve(context.Background(), "core", "x"); err == nil {
			t.Fatal("expected error for nil collection")
		}
	})
}
