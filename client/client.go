// Package client dispatches calls to internal services and wraps every
// outcome in an envelope.Result. A call resolves the service URL, performs
// the HTTP request, classifies the body, and writes exactly one log record:
// Info on the service channel for successes, Error with a full diagnostic
// report on the error channel for failures.
package client

import (
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/drblury/svcweaver/diagnostic"
	"github.com/drblury/svcweaver/registry"
)

// HTTPDoer represents the subset of *http.Client used to perform calls.
type HTTPDoer interface {
	Do(req *http.Request) (*http.Response, error)
}

// RequestMutator allows callers to tweak the outbound request prior to dispatch.
type RequestMutator func(req *http.Request) error

// Option configures a Client.
type Option func(*Client)

var defaultHTTPClient = sync.OnceValue(func() *http.Client {
	transport := http.DefaultTransport.(*http.Transport).Clone()
	return &http.Client{Transport: transport}
})

// DefaultHTTPClient returns the process-wide client used when no HTTPDoer is
// supplied. It is built on first use and never modified afterwards.
func DefaultHTTPClient() *http.Client {
	return defaultHTTPClient()
}

// Client is immutable after New and safe for concurrent use.
type Client struct {
	resolver   registry.Resolver
	doer       HTTPDoer
	serviceLog *slog.Logger
	errorLog   *slog.Logger
	headers    http.Header
	mutators   []RequestMutator
	timeout    time.Duration
	arguments  bool
	backtrace  bool
	formatter  *diagnostic.Formatter
}

// New constructs a Client that resolves service names through resolver.
func New(resolver registry.Resolver, opts ...Option) *Client {
	c := &Client{
		resolver:  resolver,
		headers:   make(http.Header),
		arguments: true,
		backtrace: true,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(c)
		}
	}
	if c.doer == nil {
		c.doer = DefaultHTTPClient()
	}
	if c.serviceLog == nil {
		c.serviceLog = slog.Default().With("channel", "service")
	}
	if c.errorLog == nil {
		c.errorLog = slog.Default().With("channel", "error")
	}
	c.formatter = diagnostic.New(
		diagnostic.WithArguments(c.arguments),
		diagnostic.WithTrace(c.backtrace),
	)
	return c
}

// WithHTTPClient overrides the transport used for calls.
func WithHTTPClient(doer HTTPDoer) Option {
	return func(c *Client) {
		c.doer = doer
	}
}

// WithLogger sends both channels to logger, tagged with a channel attribute.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Client) {
		if logger != nil {
			c.serviceLog = logger.With("channel", "service")
			c.errorLog = logger.With("channel", "error")
		}
	}
}

// WithServiceLogger sets the logger receiving successful calls.
func WithServiceLogger(logger *slog.Logger) Option {
	return func(c *Client) {
		if logger != nil {
			c.serviceLog = logger
		}
	}
}

// WithErrorLogger sets the logger receiving failed calls.
func WithErrorLogger(logger *slog.Logger) Option {
	return func(c *Client) {
		if logger != nil {
			c.errorLog = logger
		}
	}
}

// WithHeader adds a header sent with every call.
func WithHeader(key, value string) Option {
	return func(c *Client) {
		c.headers.Add(key, value)
	}
}

// WithRequestMutator registers a mutator that runs before each request is
// dispatched. A mutator error fails the call as a transport failure.
func WithRequestMutator(mutator RequestMutator) Option {
	return func(c *Client) {
		if mutator != nil {
			c.mutators = append(c.mutators, mutator)
		}
	}
}

// WithTimeout bounds each call, including resolution, with a context
// deadline. Zero leaves the caller's context untouched.
func WithTimeout(timeout time.Duration) Option {
	return func(c *Client) {
		if timeout >= 0 {
			c.timeout = timeout
		}
	}
}

// WithArgumentDump toggles the argument section of failure reports.
func WithArgumentDump(enabled bool) Option {
	return func(c *Client) {
		c.arguments = enabled
	}
}

// WithBacktrace toggles the trace section of failure reports.
func WithBacktrace(enabled bool) Option {
	return func(c *Client) {
		c.backtrace = enabled
	}
}
