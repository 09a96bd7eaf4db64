package probe

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.mongodb.org/mongo-driver/mongo/readpref"

	"github.com/drblury/svcweaver/registry"
)

// Func is a health check that returns an error when its resource is
// unavailable. info.InfoHandler runs them for /healthz and /readyz.
type Func func(ctx context.Context) error

// DBPinger captures the subset of *sql.DB used for readiness checks.
type DBPinger interface {
	PingContext(ctx context.Context) error
}

// MongoPinger captures the subset of *mongo.Client used for readiness checks.
type MongoPinger interface {
	Ping(ctx context.Context, rp *readpref.ReadPref) error
}

// NewPingProbe names fn so its failures report which dependency is down.
func NewPingProbe(name string, fn Func) Func {
	return func(ctx context.Context) error {
		if fn == nil {
			return nilComponentError(name, "ping function")
		}
		return check(ctx, name, fn)
	}
}

// NewDBPingProbe pings a database/sql handle, such as the one backing a
// registry.SQLResolver.
func NewDBPingProbe(name string, db DBPinger) Func {
	return func(ctx context.Context) error {
		if db == nil {
			return nilComponentError(name, "db client")
		}
		return check(ctx, name, db.PingContext)
	}
}

// NewMongoPingProbe pings the MongoDB deployment behind a
// registry.MongoResolver. A nil readPref means readpref.Primary.
func NewMongoPingProbe(name string, client MongoPinger, readPref *readpref.ReadPref) Func {
	if readPref == nil {
		readPref = readpref.Primary()
	}
	return func(ctx context.Context) error {
		if client == nil {
			return nilComponentError(name, "mongo client")
		}
		return check(ctx, name, func(ctx context.Context) error {
			return client.Ping(ctx, readPref)
		})
	}
}

// NewRegistryProbe fails when any of services no longer resolves. Unknown
// services are reported together.
func NewRegistryProbe(name string, resolver registry.Resolver, services ...string) Func {
	return func(ctx context.Context) error {
		if resolver == nil {
			return nilComponentError(name, "resolver")
		}
		return check(ctx, name, func(ctx context.Context) error {
			var missing []string
			for _, service := range services {
				_, err := resolver.Resolve(ctx, service, "")
				switch {
				case errors.Is(err, registry.ErrUnknownService):
					missing = append(missing, service)
				case err != nil:
					return err
				}
			}
			if len(missing) > 0 {
				return fmt.Errorf("%w: %s", registry.ErrUnknownService, strings.Join(missing, ", "))
			}
			return nil
		})
	}
}
