package info

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/drblury/svcweaver/envelope"
)

type probePayload struct {
	Status  string   `json:"status"`
	Checks  int      `json:"checks"`
	Details []string `json:"details,omitempty"`
}

func (ih *InfoHandler) respondProbe(w http.ResponseWriter, r *http.Request, statusCode int, state string, checks int, details ...string) {
	payload := probePayload{Status: state, Checks: checks, Details: details}
	ih.RespondWithEnvelope(w, r, statusCode, envelope.Builder{}.WithObject(payload))
}

// runChecks runs every check concurrently under the probe timeout. Failures
// are joined in check order so one slow downstream service does not hide
// another one being down.
func (ih *InfoHandler) runChecks(ctx context.Context, checks []ProbeFunc) error {
	if len(checks) == 0 {
		return nil
	}

	timeout := ih.probeTimeout
	if timeout <= 0 {
		timeout = defaultProbeTimeout
	}
	probeCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	errs := make([]error, len(checks))
	var wg sync.WaitGroup
	for idx, check := range checks {
		if check == nil {
			continue
		}
		wg.Add(1)
		go func(idx int, check ProbeFunc) {
			defer wg.Done()
			errs[idx] = describeFailure(idx, timeout, check(probeCtx))
		}(idx, check)
	}
	wg.Wait()

	return errors.Join(errs...)
}

func describeFailure(idx int, timeout time.Duration, err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, context.DeadlineExceeded):
		return fmt.Errorf("probe %d timed out after %s: %w", idx+1, timeout, err)
	case errors.Is(err, context.Canceled):
		return fmt.Errorf("probe %d was cancelled: %w", idx+1, err)
	default:
		return fmt.Errorf("probe %d failed: %w", idx+1, err)
	}
}

func filterProbes(checks []ProbeFunc) []ProbeFunc {
	var filtered []ProbeFunc
	for _, check := range checks {
		if check != nil {
			filtered = append(filtered, check)
		}
	}
	return filtered
}
