package router

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/getkin/kin-openapi/openapi3"
)

// Middleware wraps an http.Handler to produce a new http.Handler.
type Middleware func(http.Handler) http.Handler

// Option configures the router via the functional options pattern.
type Option func(*options)

// Feature names one of the built-in middlewares.
type Feature uint8

// Built-in middlewares, listed outermost first.
const (
	FeatureRequestID Feature = 1 << iota
	FeatureRecovery
	FeatureOpenAPI
	FeatureCORS
	FeatureTimeout
	FeatureLogging

	allFeatures = FeatureRequestID | FeatureRecovery | FeatureOpenAPI | FeatureCORS | FeatureTimeout | FeatureLogging
)

type options struct {
	config   Config
	logger   *slog.Logger
	swagger  *openapi3.T
	prepend  []Middleware
	append   []Middleware
	override []Middleware
	enabled  Feature
}

func defaultOptions() *options {
	return &options{
		config:  Config{Timeout: 30 * time.Second},
		logger:  slog.Default(),
		enabled: allFeatures,
	}
}

func (o *options) has(f Feature) bool {
	return o.enabled&f != 0
}

func (o *options) middlewareChain() []Middleware {
	if len(o.override) > 0 {
		return append([]Middleware(nil), o.override...)
	}

	defaults := o.defaultMiddlewares()
	chain := make([]Middleware, 0, len(o.prepend)+len(defaults)+len(o.append))
	chain = append(chain, o.prepend...)
	chain = append(chain, defaults...)
	return append(chain, o.append...)
}

// defaultMiddlewares builds the enabled built-ins. Request ids come first so
// every later stage, including recovered panics, can log them.
func (o *options) defaultMiddlewares() []Middleware {
	var chain []Middleware

	if o.has(FeatureRequestID) {
		chain = append(chain, requestIDMiddleware())
	}
	if o.has(FeatureRecovery) {
		chain = append(chain, recoveryMiddleware(o.logger))
	}
	if o.has(FeatureOpenAPI) && o.swagger != nil {
		chain = append(chain, oapiMiddleware(o.swagger))
	}
	if o.has(FeatureCORS) && len(o.config.CORS.Origins) > 0 {
		chain = append(chain, corsMiddleware(o.config.CORS))
	}
	if o.has(FeatureTimeout) && o.config.Timeout > 0 {
		chain = append(chain, timeoutMiddleware(o.config.Timeout))
	}
	if o.has(FeatureLogging) && o.logger != nil {
		chain = append(chain, loggingMiddleware(o.logger, o.config.QuietdownRoutes, o.config.HideHeaders))
	}

	return chain
}

// WithConfig replaces the router configuration with the provided value.
func WithConfig(cfg Config) Option {
	cfg = cfg.clone()
	return func(o *options) {
		o.config = cfg
	}
}

// WithConfigMutator applies a mutation to the router configuration after defaults are set.
func WithConfigMutator(mutator func(*Config)) Option {
	return func(o *options) {
		if mutator != nil {
			mutator(&o.config)
		}
	}
}

// WithLogger sets the logger used for request logs and recovered panics.
func WithLogger(logger *slog.Logger) Option {
	return func(o *options) {
		o.logger = logger
	}
}

// WithSwagger wires the OpenAPI document for request validation.
func WithSwagger(swagger *openapi3.T) Option {
	return func(o *options) {
		o.swagger = swagger
	}
}

// WithMiddlewares prepends custom middlewares ahead of the default chain.
func WithMiddlewares(middlewares ...Middleware) Option {
	return func(o *options) {
		o.prepend = append(o.prepend, middlewares...)
	}
}

// WithTrailingMiddlewares appends middlewares after the default chain.
func WithTrailingMiddlewares(middlewares ...Middleware) Option {
	return func(o *options) {
		o.append = append(o.append, middlewares...)
	}
}

// WithMiddlewareChain fully overrides the middleware chain with the provided sequence.
func WithMiddlewareChain(middlewares ...Middleware) Option {
	cloned := append([]Middleware(nil), middlewares...)
	return func(o *options) {
		o.override = cloned
	}
}

// Without disables the given built-in middlewares.
func Without(features ...Feature) Option {
	return func(o *options) {
		for _, f := range features {
			o.enabled &^= f
		}
	}
}

// WithoutOpenAPIValidation disables the OpenAPI validation middleware.
func WithoutOpenAPIValidation() Option { return Without(FeatureOpenAPI) }

// WithoutCORSMiddleware disables the CORS middleware regardless of configuration.
func WithoutCORSMiddleware() Option { return Without(FeatureCORS) }

// WithoutTimeoutMiddleware disables the timeout middleware.
func WithoutTimeoutMiddleware() Option { return Without(FeatureTimeout) }

// WithoutRequestIDMiddleware disables X-Request-Id assignment.
func WithoutRequestIDMiddleware() Option { return Without(FeatureRequestID) }

// WithoutRecoveryMiddleware lets handler panics reach net/http.
func WithoutRecoveryMiddleware() Option { return Without(FeatureRecovery) }

// WithoutLoggingMiddleware disables the logging middleware.
func WithoutLoggingMiddleware() Option { return Without(FeatureLogging) }
