package envelope

import (
	"reflect"

	"github.com/drblury/svcweaver/jsonutil"
)

const (
	defaultPage     = 1
	defaultPageSize = 10
)

// Envelope is the outbound wire form written by services.
type Envelope struct {
	Errno int    `json:"errno"`
	Error string `json:"error"`
	Data  any    `json:"data,omitempty"`
}

type listData struct {
	Body   any     `json:"body"`
	Paging *Paging `json:"paging,omitempty"`
}

// Bytes encodes the envelope.
func (e Envelope) Bytes() ([]byte, error) {
	return jsonutil.Marshal(e)
}

// Builder produces envelopes. It is a value type: SetPaging returns a copy
// carrying the pagination context, so a Builder can be shared freely.
//
//	b := envelope.Builder{}
//	env := b.SetPaging(103, 1, 15).WithPaging(rows)
type Builder struct {
	paging *Paging
}

// SetPaging returns a Builder whose WithPaging calls report the supplied
// totals. A page below 1 becomes 1 and a page size below 1 becomes 10.
func (b Builder) SetPaging(total, page, pageSize int) Builder {
	if page < 1 {
		page = defaultPage
	}
	if pageSize < 1 {
		pageSize = defaultPageSize
	}
	b.paging = &Paging{Total: total, Page: page, PageSize: pageSize}
	return b
}

// WithError builds a failure envelope. A zero errno is written as -1 so the
// receiving side never reads the failure as success.
func (b Builder) WithError(message string, errno int) Envelope {
	if errno == 0 {
		errno = -1
	}
	return Envelope{Errno: errno, Error: message}
}

// WithObject builds an object envelope. data should encode to a JSON object
// or array; nil is written as {}.
func (b Builder) WithObject(data any) Envelope {
	if isNilValue(data) {
		data = struct{}{}
	}
	return Envelope{Data: data}
}

// WithList builds a list envelope. A nil list is written as [].
func (b Builder) WithList(data any) Envelope {
	return Envelope{Data: listData{Body: listBody(data)}}
}

// WithPaging builds a paging list envelope from the context recorded by
// SetPaging. It panics when SetPaging was not called.
func (b Builder) WithPaging(data any) Envelope {
	if b.paging == nil {
		panic("envelope: WithPaging requires SetPaging")
	}
	paging := *b.paging
	return Envelope{Data: listData{Body: listBody(data), Paging: &paging}}
}

// WithSuccess builds an object envelope with an empty payload.
func (b Builder) WithSuccess() Envelope {
	return Envelope{Data: struct{}{}}
}

func listBody(data any) any {
	if isNilValue(data) {
		return []any{}
	}
	return data
}

func isNilValue(v any) bool {
	if v == nil {
		return true
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Map, reflect.Slice, reflect.Pointer, reflect.Interface:
		return rv.IsNil()
	default:
		return false
	}
}
