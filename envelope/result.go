package envelope

import (
	"errors"
	"fmt"

	"github.com/drblury/svcweaver/jsonutil"
)

var (
	// ErrNoPayload is returned by payload accessors on a failed Result.
	ErrNoPayload = errors.New("envelope: result carries no payload")
	// ErrNotPaginated is returned by Paging for object and list results.
	ErrNotPaginated = errors.New("envelope: result is not a paging list")
)

// Shape is the classification of a Result.
type Shape uint8

// Shapes a Result can take. ShapeError is the zero value.
const (
	ShapeError Shape = iota
	ShapeObject
	ShapeList
	ShapePagingList
)

func (s Shape) String() string {
	switch s {
	case ShapeObject:
		return "object"
	case ShapeList:
		return "list"
	case ShapePagingList:
		return "paging_list"
	default:
		return "error"
	}
}

// Paging is the pagination block of a paging list.
type Paging struct {
	Total    int `json:"total"`
	Page     int `json:"page"`
	PageSize int `json:"pageSize"`
}

// Result is the outcome of one service call. It holds either a Failure or a
// classified payload, never both, and is not modified after construction.
type Result struct {
	contents string
	status   int
	shape    Shape
	data     jsonutil.RawMessage
	body     jsonutil.RawMessage
	paging   jsonutil.RawMessage
	failure  *Failure
}

func failed(contents string, status int, f *Failure) *Result {
	return &Result{contents: contents, status: status, shape: ShapeError, failure: f}
}

// HasError reports whether the call failed.
func (r *Result) HasError() bool {
	return r.Errno() != 0
}

// Err returns the *Failure of a failed Result, or nil.
func (r *Result) Err() error {
	if r == nil || r.failure == nil {
		return nil
	}
	return r.failure
}

// Failure returns the failure details, or nil on success.
func (r *Result) Failure() *Failure {
	if r == nil {
		return nil
	}
	return r.failure
}

// Errno returns 0 on success and the non-zero failure code otherwise.
func (r *Result) Errno() int {
	if r == nil || r.failure == nil {
		return 0
	}
	return r.failure.Code
}

// ErrorMessage returns the failure message, or "" on success.
func (r *Result) ErrorMessage() string {
	if r == nil || r.failure == nil {
		return ""
	}
	return r.failure.Message
}

// ErrorTrace returns the frames recorded when the failure was created.
func (r *Result) ErrorTrace() []Frame {
	if r == nil || r.failure == nil {
		return nil
	}
	return r.failure.Trace
}

// Cause returns the transport error behind a failure, if any.
func (r *Result) Cause() error {
	if r == nil || r.failure == nil {
		return nil
	}
	return r.failure.Cause
}

// Contents returns the raw response body exactly as received.
func (r *Result) Contents() string {
	if r == nil {
		return ""
	}
	return r.contents
}

// StatusCode returns the HTTP status of the response, or 0 when no response
// was received.
func (r *Result) StatusCode() int {
	if r == nil {
		return 0
	}
	return r.status
}

// Shape returns the classification. Failed results are ShapeError.
func (r *Result) Shape() Shape {
	if r == nil {
		return ShapeError
	}
	return r.shape
}

// RawData returns data.body for list shapes and data otherwise. It is nil
// for failed results.
func (r *Result) RawData() jsonutil.RawMessage {
	if r == nil || r.failure != nil {
		return nil
	}
	switch r.shape {
	case ShapeList, ShapePagingList:
		return r.body
	default:
		return r.data
	}
}

// Data decodes the payload returned by RawData into generic JSON values.
// Numbers come back as jsonutil.Number so ids beyond 2^53 keep every digit.
func (r *Result) Data() (any, error) {
	var v any
	if err := r.DecodeData(&v); err != nil {
		return nil, err
	}
	return v, nil
}

// DecodeData decodes the payload returned by RawData into v. Numbers landing
// in interface values decode as jsonutil.Number. Calling it on a failed
// Result returns an error wrapping both ErrNoPayload and the Failure.
func (r *Result) DecodeData(v any) error {
	if err := r.payloadErr(); err != nil {
		return err
	}
	if err := jsonutil.UnmarshalUseNumber(r.RawData(), v); err != nil {
		return fmt.Errorf("envelope: decode data: %w", err)
	}
	return nil
}

// RawPaging returns data.paging for paging lists and nil otherwise.
func (r *Result) RawPaging() jsonutil.RawMessage {
	if r == nil || r.failure != nil || r.shape != ShapePagingList {
		return nil
	}
	return r.paging
}

// Paging decodes data.paging. Object and list results return
// ErrNotPaginated.
func (r *Result) Paging() (Paging, error) {
	if err := r.payloadErr(); err != nil {
		return Paging{}, err
	}
	if r.shape != ShapePagingList {
		return Paging{}, ErrNotPaginated
	}
	var p Paging
	if err := jsonutil.Unmarshal(r.paging, &p); err != nil {
		return Paging{}, fmt.Errorf("envelope: decode paging: %w", err)
	}
	return p, nil
}

func (r *Result) payloadErr() error {
	if r == nil {
		return ErrNoPayload
	}
	if r.failure != nil {
		return fmt.Errorf("%w: %w", ErrNoPayload, r.failure)
	}
	return nil
}
