package registry

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
)

const (
	defaultLookupQuery = "SELECT url FROM services WHERE name = ?"

	// Schema creates the table SQLResolver reads by default.
	Schema = `CREATE TABLE IF NOT EXISTS services (
	name TEXT PRIMARY KEY,
	url  TEXT NOT NULL
)`

	upsertQuery = `INSERT INTO services (name, url) VALUES (?, ?)
ON CONFLICT(name) DO UPDATE SET url = excluded.url`
)

// SQLOption configures an SQLResolver.
type SQLOption func(*SQLResolver)

// WithLookupQuery replaces the query used to find a base URL. It receives the
// service name as its only argument and must return a single column.
func WithLookupQuery(query string) SQLOption {
	return func(r *SQLResolver) {
		if query != "" {
			r.query = query
		}
	}
}

// SQLResolver looks base URLs up in a database table. The default query uses
// "?" placeholders as understood by SQLite and MySQL drivers.
type SQLResolver struct {
	db    *sql.DB
	query string
}

// NewSQLResolver returns a resolver backed by db.
func NewSQLResolver(db *sql.DB, opts ...SQLOption) *SQLResolver {
	r := &SQLResolver{db: db, query: defaultLookupQuery}
	for _, opt := range opts {
		if opt != nil {
			opt(r)
		}
	}
	return r
}

// Resolve implements Resolver.
func (r *SQLResolver) Resolve(ctx context.Context, service, route string) (string, error) {
	if r == nil || r.db == nil {
		return "", errors.New("registry: sql db is nil")
	}

	var base string
	err := r.db.QueryRowContext(ctx, r.query, service).Scan(&base)
	if errors.Is(err, sql.ErrNoRows) {
		return "", fmt.Errorf("%w %q", ErrUnknownService, service)
	}
	if err != nil {
		return "", fmt.Errorf("registry: sql lookup %q: %w", service, err)
	}

	normalized, err := normalizeBaseURL(base)
	if err != nil {
		return "", fmt.Errorf("registry: service %q: %w", service, err)
	}
	return Join(normalized, route), nil
}

// EnsureSchema creates the default services table when it does not exist.
func EnsureSchema(ctx context.Context, db *sql.DB) error {
	if _, err := db.ExecContext(ctx, Schema); err != nil {
		return fmt.Errorf("registry: create schema: %w", err)
	}
	return nil
}

// Register inserts or updates a service row in the default table.
func Register(ctx context.Context, db *sql.DB, service, baseURL string) error {
	normalized, err := normalizeBaseURL(baseURL)
	if err != nil {
		return fmt.Errorf("registry: service %q: %w", service, err)
	}
	if _, err := db.ExecContext(ctx, upsertQuery, service, normalized); err != nil {
		return fmt.Errorf("registry: register %q: %w", service, err)
	}
	return nil
}
