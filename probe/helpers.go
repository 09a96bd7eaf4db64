package probe

import (
	"context"
	"fmt"
	"net/http"
)

// Error reports a failed probe. It carries errno 503 so a responder writing
// it as an error envelope answers "service unavailable".
type Error struct {
	Probe string
	Err   error
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s probe failed: %v", e.Probe, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Errno implements the errno carrier understood by responder and envelope.
func (e *Error) Errno() int {
	return http.StatusServiceUnavailable
}

// check runs fn with a non-nil context and wraps its failure in *Error.
func check(ctx context.Context, name string, fn func(context.Context) error) error {
	if ctx == nil {
		ctx = context.Background()
	}
	if err := fn(ctx); err != nil {
		return &Error{Probe: name, Err: err}
	}
	return nil
}

func nilComponentError(name, component string) error {
	return &Error{Probe: name, Err: fmt.Errorf("%s is nil", component)}
}
