package envelope

import (
	"errors"
	"fmt"
	"strings"
)

// DefaultErrno is the code recorded for failures detected by the classifier
// itself, where the service supplied no code of its own.
const DefaultErrno = 1

// Messages recorded for failures the classifier detects.
const (
	MsgInvalidJSON   = "response is not valid JSON"
	MsgEnvelopeShape = "response does not follow the required envelope shape"
	MsgMissingData   = "response payload missing required `data` field"
)

// Kind identifies where a Failure originated.
type Kind uint8

const (
	// KindTransport covers resolution, network, and non-2xx HTTP failures.
	KindTransport Kind = iota + 1
	// KindInvalidJSON means the body could not be parsed at all.
	KindInvalidJSON
	// KindEnvelope means the body parsed but lacks errno or error.
	KindEnvelope
	// KindMissingData means errno was 0 but data was absent or scalar.
	KindMissingData
	// KindBusiness is a well-formed envelope with a non-zero errno.
	KindBusiness
	// KindClient is a failure recorded by the caller through Fail.
	KindClient
)

func (k Kind) String() string {
	switch k {
	case KindTransport:
		return "transport"
	case KindInvalidJSON:
		return "invalid_json"
	case KindEnvelope:
		return "envelope"
	case KindMissingData:
		return "missing_data"
	case KindBusiness:
		return "business"
	case KindClient:
		return "client"
	default:
		return "unknown"
	}
}

// Failure is the error half of a Result.
type Failure struct {
	Kind    Kind
	Code    int
	Message string
	Trace   []Frame
	// Cause is the transport error, when there was one.
	Cause error
}

// Error implements error.
func (f *Failure) Error() string {
	if f == nil {
		return "<nil>"
	}
	return fmt.Sprintf("%s error %d: %s", f.Kind, f.Code, f.Message)
}

// Unwrap exposes the transport cause to errors.Is and errors.As.
func (f *Failure) Unwrap() error {
	if f == nil {
		return nil
	}
	return f.Cause
}

// Errno returns the failure code, letting a wrapped Failure carry its code
// through another FromError call.
func (f *Failure) Errno() int {
	if f == nil {
		return 0
	}
	return f.Code
}

type errnoCarrier interface {
	Errno() int
}

// newFailure is the single place failures are created. A zero code is
// stored as -1 so that a failure can never read as success.
func newFailure(kind Kind, message string, code int, cause error) *Failure {
	if code == 0 {
		code = -1
	}
	f := &Failure{
		Kind:    kind,
		Code:    code,
		Message: message,
		Cause:   cause,
	}

	var tracer StackTracer
	if cause != nil && errors.As(cause, &tracer) {
		f.Trace = tracer.StackFrames()
	}
	if f.Trace == nil {
		f.Trace = captureFrames()
	}
	return f
}

func causeCode(err error) int {
	var carrier errnoCarrier
	if errors.As(err, &carrier) {
		return carrier.Errno()
	}
	return -1
}

func causeMessage(err error) string {
	msg := strings.TrimSpace(err.Error())
	if msg == "" {
		return "transport failure"
	}
	return msg
}
