package info

import (
	"testing"

	"github.com/drblury/svcweaver/envelope"
)

func decodeProbePayload(t *testing.T, status int, body []byte) probePayload {
	t.Helper()

	res := envelope.FromResponse(status, body)
	var payload probePayload
	if err := res.DecodeData(&payload); err != nil {
		t.Fatalf("failed to decode probe payload: %v (body: %s)", err, string(body))
	}
	return payload
}

func decodeFailure(t *testing.T, status int, body []byte) *envelope.Result {
	t.Helper()

	res := envelope.FromResponse(status, body)
	if !res.HasError() {
		t.Fatalf("expected an error envelope, got %s", string(body))
	}
	return res
}
