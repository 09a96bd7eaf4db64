package envelope

import (
	"bytes"
	"errors"
	"fmt"
	"math"
	"net/http"
	"strconv"
	"strings"

	"github.com/drblury/svcweaver/jsonutil"
)

// Parse classifies a response body.
func Parse(body []byte) *Result {
	return classify(body, 0)
}

// FromResponse classifies a received HTTP response. Bodies of 2xx responses
// are classified by Parse rules. A non-2xx response keeps a well-formed
// business error from its body; anything else becomes a transport failure
// whose code is the HTTP status.
func FromResponse(status int, body []byte) *Result {
	r := classify(body, status)
	if status == 0 || (status >= http.StatusOK && status < http.StatusMultipleChoices) {
		return r
	}
	if r.failure != nil && r.failure.Kind == KindBusiness {
		return r
	}
	msg := fmt.Sprintf("unexpected status %d %s", status, http.StatusText(status))
	return failed(string(body), status, newFailure(KindTransport, msg, status, nil))
}

// FromError records a transport failure that happened before any response
// body was read. The error is kept as the Result's Cause.
func FromError(err error) *Result {
	if err == nil {
		err = errors.New("transport failure")
	}
	return failed("", 0, newFailure(KindTransport, causeMessage(err), causeCode(err), err))
}

// FromReadError records a failure to read a response body after the status
// line arrived.
func FromReadError(status int, err error) *Result {
	r := FromError(err)
	r.status = status
	return r
}

// Fail builds a failed Result on behalf of a caller. A zero code is stored
// as -1.
func Fail(message string, code int) *Result {
	return failed("", 0, newFailure(KindClient, message, code, nil))
}

func classify(body []byte, status int) *Result {
	contents := string(body)

	if !jsonutil.Valid(body) {
		return failed(contents, status, newFailure(KindInvalidJSON, MsgInvalidJSON, DefaultErrno, nil))
	}

	var fields map[string]jsonutil.RawMessage
	if err := jsonutil.Unmarshal(body, &fields); err != nil || fields == nil {
		return failed(contents, status, newFailure(KindEnvelope, MsgEnvelopeShape, DefaultErrno, nil))
	}

	errno, ok := coerceErrno(fields["errno"])
	if !ok {
		return failed(contents, status, newFailure(KindEnvelope, MsgEnvelopeShape, DefaultErrno, nil))
	}
	message, ok := stringField(fields["error"])
	if !ok {
		return failed(contents, status, newFailure(KindEnvelope, MsgEnvelopeShape, DefaultErrno, nil))
	}

	if errno != 0 {
		return failed(contents, status, newFailure(KindBusiness, message, errno, nil))
	}

	data := fields["data"]
	if !isStructured(data) {
		return failed(contents, status, newFailure(KindMissingData, MsgMissingData, DefaultErrno, nil))
	}

	r := &Result{
		contents: contents,
		status:   status,
		shape:    ShapeObject,
		data:     data,
	}

	if firstByte(data) != '{' {
		return r
	}
	var inner map[string]jsonutil.RawMessage
	if err := jsonutil.Unmarshal(data, &inner); err != nil {
		return r
	}
	if list, ok := inner["body"]; ok && !isNull(list) {
		r.shape = ShapeList
		r.body = list
		if paging, ok := inner["paging"]; ok && !isNull(paging) {
			r.shape = ShapePagingList
			r.paging = paging
		}
	}
	return r
}

// coerceErrno accepts JSON numbers and numeric strings.
func coerceErrno(raw jsonutil.RawMessage) (int, bool) {
	if len(raw) == 0 || isNull(raw) {
		return 0, false
	}

	var v any
	if err := jsonutil.UnmarshalUseNumber(raw, &v); err != nil {
		return 0, false
	}

	switch x := v.(type) {
	case jsonutil.Number:
		if i, err := x.Int64(); err == nil {
			if i < math.MinInt || i > math.MaxInt {
				return 0, false
			}
			return int(i), true
		}
		// Fractions truncate; values outside the int range are not errnos.
		if f, err := x.Float64(); err == nil && f >= math.MinInt && f < -float64(math.MinInt) {
			return int(f), true
		}
	case string:
		if i, err := strconv.Atoi(strings.TrimSpace(x)); err == nil {
			return i, true
		}
	}
	return 0, false
}

func stringField(raw jsonutil.RawMessage) (string, bool) {
	if len(raw) == 0 || isNull(raw) {
		return "", false
	}
	var s string
	if err := jsonutil.Unmarshal(raw, &s); err != nil {
		return "", false
	}
	return s, true
}

func isStructured(raw jsonutil.RawMessage) bool {
	switch firstByte(raw) {
	case '{', '[':
		return true
	default:
		return false
	}
}

func isNull(raw jsonutil.RawMessage) bool {
	return bytes.Equal(bytes.TrimSpace(raw), []byte("null"))
}

func firstByte(raw jsonutil.RawMessage) byte {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 {
		return 0
	}
	return trimmed[0]
}
