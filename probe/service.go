package probe

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/drblury/svcweaver/envelope"
)

// ServiceCaller is the subset of *client.Client used by service probes.
type ServiceCaller interface {
	Invoke(ctx context.Context, method, service, route string, query map[string]string, body map[string]any) *envelope.Result
}

// ResultValidator inspects a successful Result and can veto the probe.
type ResultValidator func(res *envelope.Result) error

// ServiceProbeOption configures the behaviour of NewServiceProbe.
type ServiceProbeOption func(*serviceProbeConfig)

type serviceProbeConfig struct {
	method     string
	query      map[string]string
	accepted   map[int]struct{}
	validators []ResultValidator
}

func buildServiceProbeConfig(opts ...ServiceProbeOption) *serviceProbeConfig {
	cfg := &serviceProbeConfig{method: http.MethodGet}
	for _, opt := range opts {
		if opt != nil {
			opt(cfg)
		}
	}
	return cfg
}

func (c *serviceProbeConfig) validate(res *envelope.Result) error {
	if res.HasError() {
		if _, ok := c.accepted[res.Errno()]; !ok || res.Failure().Kind != envelope.KindBusiness {
			return res.Err()
		}
	}
	for _, validator := range c.validators {
		if validator == nil {
			continue
		}
		if err := validator(res); err != nil {
			return err
		}
	}
	return nil
}

// NewServiceProbe creates a Func that calls route on service through caller.
// The probe succeeds when the call yields a well-formed success envelope.
func NewServiceProbe(name string, caller ServiceCaller, service, route string, opts ...ServiceProbeOption) Func {
	return func(ctx context.Context) error {
		if caller == nil {
			return nilComponentError(name, "service caller")
		}
		if strings.TrimSpace(service) == "" {
			return &Error{Probe: name, Err: errors.New("service name is required")}
		}

		cfg := buildServiceProbeConfig(opts...)
		return check(ctx, name, func(ctx context.Context) error {
			return cfg.validate(caller.Invoke(ctx, cfg.method, service, route, cfg.query, nil))
		})
	}
}

// WithProbeMethod overrides the HTTP method of the probe call. GET is used
// by default.
func WithProbeMethod(method string) ServiceProbeOption {
	return func(cfg *serviceProbeConfig) {
		if method = strings.ToUpper(strings.TrimSpace(method)); method != "" {
			cfg.method = method
		}
	}
}

// WithProbeQuery sets the query parameters sent with the probe call.
func WithProbeQuery(query map[string]string) ServiceProbeOption {
	return func(cfg *serviceProbeConfig) {
		cfg.query = query
	}
}

// WithAcceptedErrnos treats business errors with the given errnos as healthy.
// A service answering "not found" for a probe route is still reachable.
func WithAcceptedErrnos(errnos ...int) ServiceProbeOption {
	return func(cfg *serviceProbeConfig) {
		if cfg.accepted == nil {
			cfg.accepted = make(map[int]struct{}, len(errnos))
		}
		for _, errno := range errnos {
			cfg.accepted[errno] = struct{}{}
		}
	}
}

// WithResultValidator registers a validator that runs after the call returns.
func WithResultValidator(validator ResultValidator) ServiceProbeOption {
	return func(cfg *serviceProbeConfig) {
		cfg.validators = append(cfg.validators, validator)
	}
}
