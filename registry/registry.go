// Package registry resolves logical service names and routes to URLs.
//
// Static serves a fixed table, usually loaded from a TOML file with LoadFile.
// MongoResolver and SQLResolver look service base URLs up in a collection or
// table on every call, and Chain consults several resolvers in order.
package registry

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"sort"
	"strings"
)

// ErrUnknownService is returned when no base URL is registered for a service.
var ErrUnknownService = errors.New("registry: unknown service")

// Resolver maps a service name and route to a fully qualified URL.
type Resolver interface {
	Resolve(ctx context.Context, service, route string) (string, error)
}

// ResolverFunc adapts a function to the Resolver interface.
type ResolverFunc func(ctx context.Context, service, route string) (string, error)

// Resolve implements Resolver.
func (f ResolverFunc) Resolve(ctx context.Context, service, route string) (string, error) {
	return f(ctx, service, route)
}

// Static resolves services from an immutable table and is safe for
// concurrent use.
type Static struct {
	services map[string]string
}

// NewStatic validates every base URL and returns a Static resolver.
func NewStatic(services map[string]string) (*Static, error) {
	table := make(map[string]string, len(services))
	for name, base := range services {
		name = strings.TrimSpace(name)
		if name == "" {
			return nil, errors.New("registry: service name cannot be empty")
		}
		normalized, err := normalizeBaseURL(base)
		if err != nil {
			return nil, fmt.Errorf("registry: service %q: %w", name, err)
		}
		table[name] = normalized
	}
	return &Static{services: table}, nil
}

// Resolve implements Resolver.
func (s *Static) Resolve(_ context.Context, service, route string) (string, error) {
	base, ok := s.services[strings.TrimSpace(service)]
	if !ok {
		return "", fmt.Errorf("%w %q", ErrUnknownService, service)
	}
	return Join(base, route), nil
}

// Services lists the registered names in sorted order.
func (s *Static) Services() []string {
	names := make([]string, 0, len(s.services))
	for name := range s.services {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Chain tries each resolver in order, moving on only when a resolver reports
// ErrUnknownService.
type Chain []Resolver

// Resolve implements Resolver.
func (c Chain) Resolve(ctx context.Context, service, route string) (string, error) {
	for _, r := range c {
		if r == nil {
			continue
		}
		target, err := r.Resolve(ctx, service, route)
		if err == nil {
			return target, nil
		}
		if !errors.Is(err, ErrUnknownService) {
			return "", err
		}
	}
	return "", fmt.Errorf("%w %q", ErrUnknownService, service)
}

// Join appends route to base with exactly one slash between them.
func Join(base, route string) string {
	route = strings.TrimLeft(strings.TrimSpace(route), "/")
	base = strings.TrimRight(base, "/")
	if route == "" {
		return base
	}
	return base + "/" + route
}

func normalizeBaseURL(raw string) (string, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "", errors.New("base URL cannot be empty")
	}
	parsed, err := url.Parse(raw)
	if err != nil || parsed.Scheme == "" || parsed.Host == "" {
		return "", fmt.Errorf("invalid base URL %q", raw)
	}
	return strings.TrimRight(parsed.String(), "/"), nil
}
