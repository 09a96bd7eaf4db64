// Package grpcx carries envelope failures across gRPC boundaries. A failed
// Result becomes a gRPC status with an errdetails.ErrorInfo detail holding
// the failure kind and errno, and such a status converts back into a Result
// on the receiving side.
package grpcx

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"google.golang.org/genproto/googleapis/rpc/errdetails"
	"google.golang.org/grpc"
	gcodes "google.golang.org/grpc/codes"
	gstatus "google.golang.org/grpc/status"

	"github.com/drblury/svcweaver/envelope"
)

// Domain identifies ErrorInfo details written by this package.
const Domain = "svcweaver"

const (
	metaErrno  = "errno"
	metaStatus = "status"
)

var httpCodes = map[int]gcodes.Code{
	http.StatusBadRequest:          gcodes.InvalidArgument,
	http.StatusUnauthorized:        gcodes.Unauthenticated,
	http.StatusForbidden:           gcodes.PermissionDenied,
	http.StatusNotFound:            gcodes.NotFound,
	http.StatusConflict:            gcodes.AlreadyExists,
	http.StatusTooManyRequests:     gcodes.ResourceExhausted,
	http.StatusInternalServerError: gcodes.Internal,
	http.StatusNotImplemented:      gcodes.Unimplemented,
	http.StatusBadGateway:          gcodes.Unavailable,
	http.StatusServiceUnavailable:  gcodes.Unavailable,
	http.StatusGatewayTimeout:      gcodes.DeadlineExceeded,
}

// Status converts a failed Result into a gRPC status. It returns nil for a
// successful Result.
func Status(res *envelope.Result) *gstatus.Status {
	if !res.HasError() {
		return nil
	}
	return statusFor(res.Failure(), res.StatusCode())
}

// Err is Status(res).Err(): nil on success.
func Err(res *envelope.Result) error {
	st := Status(res)
	if st == nil {
		return nil
	}
	return st.Err()
}

// FailureStatus converts a Failure into a gRPC status.
func FailureStatus(f *envelope.Failure) *gstatus.Status {
	if f == nil {
		return gstatus.New(gcodes.OK, "")
	}
	return statusFor(f, 0)
}

func statusFor(f *envelope.Failure, httpStatus int) *gstatus.Status {
	base := gstatus.New(codeFor(f, httpStatus), f.Message)

	info := &errdetails.ErrorInfo{
		Reason: reasonFor(f.Kind),
		Domain: Domain,
		Metadata: map[string]string{
			metaErrno: strconv.Itoa(f.Code),
		},
	}
	if httpStatus != 0 {
		info.Metadata[metaStatus] = strconv.Itoa(httpStatus)
	}

	// Try to attach the detail. If it fails, return base.
	if with, err := base.WithDetails(info); err == nil {
		return with
	}
	return base
}

func codeFor(f *envelope.Failure, httpStatus int) gcodes.Code {
	switch f.Kind {
	case envelope.KindTransport:
		switch {
		case errors.Is(f.Cause, context.DeadlineExceeded):
			return gcodes.DeadlineExceeded
		case errors.Is(f.Cause, context.Canceled):
			return gcodes.Canceled
		}
		if code, ok := httpCodes[httpStatus]; ok {
			return code
		}
		return gcodes.Unavailable
	case envelope.KindInvalidJSON, envelope.KindEnvelope, envelope.KindMissingData:
		return gcodes.Internal
	case envelope.KindBusiness:
		if code, ok := httpCodes[f.Code]; ok {
			return code
		}
		return gcodes.FailedPrecondition
	case envelope.KindClient:
		return gcodes.InvalidArgument
	default:
		return gcodes.Unknown
	}
}

func reasonFor(kind envelope.Kind) string {
	return strings.ToUpper(kind.String())
}

func kindFor(reason string) (envelope.Kind, bool) {
	for k := envelope.KindTransport; k <= envelope.KindClient; k++ {
		if reasonFor(k) == reason {
			return k, true
		}
	}
	return 0, false
}

// ExtractErrorInfo pulls the ErrorInfo written by this package out of a gRPC
// error, if present.
func ExtractErrorInfo(err error) (*errdetails.ErrorInfo, bool) {
	if err == nil {
		return nil, false
	}
	st, ok := gstatus.FromError(err)
	if !ok {
		return nil, false
	}
	return errorInfo(st)
}

func errorInfo(st *gstatus.Status) (*errdetails.ErrorInfo, bool) {
	for _, d := range st.Details() {
		if info, ok := d.(*errdetails.ErrorInfo); ok && info.GetDomain() == Domain {
			return info, true
		}
	}
	return nil, false
}

// RemoteError is the cause recorded when a gRPC failure is converted back into
// a Result. It keeps the original status and errno.
type RemoteError struct {
	status *gstatus.Status
	errno  int
}

func (e *RemoteError) Error() string {
	return e.status.Message()
}

// Errno returns the errno carried by the status, or the gRPC code.
func (e *RemoteError) Errno() int {
	return e.errno
}

// GRPCStatus lets status.FromError recover the original status.
func (e *RemoteError) GRPCStatus() *gstatus.Status {
	return e.status
}

// ToResult converts an error returned by a gRPC call into a Result. Business
// failures written by Status come back as business failures with their errno
// and message. Every other error is recorded as a transport failure. A nil
// error yields nil.
func ToResult(err error) *envelope.Result {
	if err == nil {
		return nil
	}
	st, ok := gstatus.FromError(err)
	if !ok {
		return envelope.FromError(err)
	}

	errno := int(st.Code())
	info, found := errorInfo(st)
	if found {
		if n, convErr := strconv.Atoi(info.GetMetadata()[metaErrno]); convErr == nil && n != 0 {
			errno = n
		}
		if kind, known := kindFor(info.GetReason()); known && kind == envelope.KindBusiness {
			body, encErr := envelope.Builder{}.WithError(st.Message(), errno).Bytes()
			if encErr == nil {
				return envelope.Parse(body)
			}
		}
	}
	return envelope.FromError(&RemoteError{status: st, errno: errno})
}

// UnaryServerInterceptor returns a gRPC UnaryServerInterceptor that maps
// handler errors wrapping an *envelope.Failure into statuses built by
// FailureStatus. Other errors pass through unchanged.
func UnaryServerInterceptor() grpc.UnaryServerInterceptor {
	return func(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (any, error) {
		resp, err := handler(ctx, req)
		if err == nil {
			return resp, nil
		}

		var failure *envelope.Failure
		if !errors.As(err, &failure) {
			return nil, err
		}
		return nil, FailureStatus(failure).Err()
	}
}
