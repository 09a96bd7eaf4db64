package responder

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"

	"github.com/drblury/svcweaver/jsonutil"
)

const (
	pageParam     = "page"
	pageSizeParam = "pageSize"

	defaultPage     = 1
	defaultPageSize = 20
	maxPageSize     = 500
)

// ReadRequestBody decodes a required JSON body into v. Malformed or missing
// content is answered with a 400 error envelope and false is returned.
func (r *Responder) ReadRequestBody(w http.ResponseWriter, req *http.Request, v any) bool {
	if err := r.decodeRequestBody(req, v, false); err != nil {
		r.HandleBadRequestError(w, req, err, "failed to parse request body")
		return false
	}
	return true
}

// ReadOptionalBody is ReadRequestBody for routes whose callers may omit the
// body. Service clients send no body for an empty parameter set, so an absent
// body leaves v untouched and reports true.
func (r *Responder) ReadOptionalBody(w http.ResponseWriter, req *http.Request, v any) bool {
	if err := r.decodeRequestBody(req, v, true); err != nil {
		r.HandleBadRequestError(w, req, err, "failed to parse request body")
		return false
	}
	return true
}

// ReadPaging reads the page and pageSize query parameters. Absent values fall
// back to page 1 and 20 items; invalid ones are answered with a 400 error
// envelope and ok is false.
func (r *Responder) ReadPaging(w http.ResponseWriter, req *http.Request) (page, pageSize int, ok bool) {
	page, pageSize, err := pagingParams(req)
	if err != nil {
		r.HandleBadRequestError(w, req, err, "invalid paging parameters")
		return 0, 0, false
	}
	return page, pageSize, true
}

func (r *Responder) decodeRequestBody(req *http.Request, v any, optional bool) error {
	if req == nil || req.Body == nil || req.Body == http.NoBody {
		if optional {
			return nil
		}
		return errors.New("request body is required")
	}
	if err := jsonutil.Decode(req.Body, v); err != nil {
		if errors.Is(err, io.EOF) {
			if optional {
				return nil
			}
			return io.ErrUnexpectedEOF
		}
		return err
	}
	return nil
}

func pagingParams(req *http.Request) (int, int, error) {
	if req == nil || req.URL == nil {
		return defaultPage, defaultPageSize, nil
	}
	query := req.URL.Query()

	page, err := positiveParam(query.Get(pageParam), defaultPage)
	if err != nil {
		return 0, 0, fmt.Errorf("%s: %w", pageParam, err)
	}
	pageSize, err := positiveParam(query.Get(pageSizeParam), defaultPageSize)
	if err != nil {
		return 0, 0, fmt.Errorf("%s: %w", pageSizeParam, err)
	}
	if pageSize > maxPageSize {
		return 0, 0, fmt.Errorf("%s: must not exceed %d", pageSizeParam, maxPageSize)
	}
	return page, pageSize, nil
}

func positiveParam(raw string, fallback int) (int, error) {
	if raw == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("%q is not an integer", raw)
	}
	if n < 1 {
		return 0, fmt.Errorf("must be at least 1, got %d", n)
	}
	return n, nil
}

func requestInstance(req *http.Request) string {
	if req == nil || req.URL == nil {
		return ""
	}
	return req.URL.RequestURI()
}

func requestContext(req *http.Request) context.Context {
	if req == nil {
		return context.Background()
	}
	return req.Context()
}
