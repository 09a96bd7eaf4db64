package client

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/drblury/svcweaver/envelope"
	"github.com/drblury/svcweaver/jsonutil"
)

var errNoResolver = errors.New("client: no resolver configured")

var supportedMethods = map[string]struct{}{
	http.MethodDelete:  {},
	http.MethodGet:     {},
	http.MethodHead:    {},
	http.MethodOptions: {},
	http.MethodPatch:   {},
	http.MethodPost:    {},
	http.MethodPut:     {},
}

// call is the bookkeeping of a single Invoke used for the log record.
type call struct {
	requestID string
	method    string
	service   string
	route     string
	url       string
	query     map[string]string
	body      map[string]any
}

// Invoke sends method to route on service and classifies the response.
// It never returns nil and never panics on remote misbehaviour: every
// outcome is carried by the returned Result.
func (c *Client) Invoke(ctx context.Context, method, service, route string, query map[string]string, body map[string]any) *envelope.Result {
	if ctx == nil {
		ctx = context.Background()
	}
	begin := time.Now()
	info := call{
		requestID: newRequestID(),
		method:    strings.ToUpper(strings.TrimSpace(method)),
		service:   service,
		route:     route,
		query:     query,
		body:      body,
	}

	var result *envelope.Result
	if _, ok := supportedMethods[info.method]; !ok {
		result = envelope.Fail(fmt.Sprintf("unsupported method %q", method), -1)
	} else {
		result = c.dispatch(ctx, &info)
	}

	c.record(ctx, info, result, time.Since(begin))
	return result
}

// Delete sends a DELETE request.
func (c *Client) Delete(ctx context.Context, service, route string, query map[string]string, body map[string]any) *envelope.Result {
	return c.Invoke(ctx, http.MethodDelete, service, route, query, body)
}

// Get sends a GET request.
func (c *Client) Get(ctx context.Context, service, route string, query map[string]string) *envelope.Result {
	return c.Invoke(ctx, http.MethodGet, service, route, query, nil)
}

// Head sends a HEAD request. Bodies of HEAD responses are empty, so a
// successful HEAD surfaces as an invalid JSON failure unless the server
// misbehaves; use it for reachability checks only.
func (c *Client) Head(ctx context.Context, service, route string, query map[string]string) *envelope.Result {
	return c.Invoke(ctx, http.MethodHead, service, route, query, nil)
}

// Options sends an OPTIONS request.
func (c *Client) Options(ctx context.Context, service, route string, query map[string]string, body map[string]any) *envelope.Result {
	return c.Invoke(ctx, http.MethodOptions, service, route, query, body)
}

// Patch sends a PATCH request.
func (c *Client) Patch(ctx context.Context, service, route string, query map[string]string, body map[string]any) *envelope.Result {
	return c.Invoke(ctx, http.MethodPatch, service, route, query, body)
}

// Post sends a POST request.
func (c *Client) Post(ctx context.Context, service, route string, query map[string]string, body map[string]any) *envelope.Result {
	return c.Invoke(ctx, http.MethodPost, service, route, query, body)
}

// Put sends a PUT request.
func (c *Client) Put(ctx context.Context, service, route string, query map[string]string, body map[string]any) *envelope.Result {
	return c.Invoke(ctx, http.MethodPut, service, route, query, body)
}

func (c *Client) dispatch(ctx context.Context, info *call) *envelope.Result {
	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	if c.resolver == nil {
		return envelope.FromError(errNoResolver)
	}
	target, err := c.resolver.Resolve(ctx, info.service, info.route)
	if err != nil {
		return envelope.FromError(fmt.Errorf("resolve %s: %w", info.service, err))
	}
	info.url = target

	req, err := c.newRequest(ctx, info)
	if err != nil {
		return envelope.FromError(err)
	}
	info.url = req.URL.String()

	resp, err := c.doer.Do(req)
	if err != nil {
		return envelope.FromError(err)
	}
	defer resp.Body.Close()

	payload, err := io.ReadAll(resp.Body)
	if err != nil {
		return envelope.FromReadError(resp.StatusCode, err)
	}
	return envelope.FromResponse(resp.StatusCode, payload)
}

func (c *Client) newRequest(ctx context.Context, info *call) (*http.Request, error) {
	u, err := url.Parse(info.url)
	if err != nil {
		return nil, fmt.Errorf("parse url: %w", err)
	}
	if len(info.query) > 0 {
		values := u.Query()
		for key, value := range info.query {
			values.Set(key, value)
		}
		u.RawQuery = values.Encode()
	}

	var reader io.Reader
	if len(info.body) > 0 {
		encoded, err := jsonutil.Marshal(info.body)
		if err != nil {
			return nil, fmt.Errorf("encode body: %w", err)
		}
		reader = bytes.NewReader(encoded)
	}

	req, err := http.NewRequestWithContext(ctx, info.method, u.String(), reader)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	for key, values := range c.headers {
		for _, value := range values {
			req.Header.Add(key, value)
		}
	}
	req.Header.Set("Accept", "application/json")
	if reader != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set(RequestIDHeader, info.requestID)

	for _, mutate := range c.mutators {
		if err := mutate(req); err != nil {
			return nil, fmt.Errorf("mutate request: %w", err)
		}
	}
	return req, nil
}

// record writes the single log record of a call.
func (c *Client) record(ctx context.Context, info call, result *envelope.Result, elapsed time.Duration) {
	endpoint := info.url
	if endpoint == "" {
		endpoint = info.service + "/" + strings.TrimLeft(info.route, "/")
	}

	attrs := []slog.Attr{
		slog.String("requestId", info.requestID),
		slog.String("method", info.method),
		slog.String("service", info.service),
		slog.String("route", info.route),
		slog.String("url", endpoint),
		slog.Duration("duration", elapsed),
		slog.Int("status", result.StatusCode()),
	}
	if len(info.query) > 0 {
		attrs = append(attrs, slog.Any("query", info.query))
	}
	if len(info.body) > 0 {
		attrs = append(attrs, slog.Any("body", info.body))
	}

	if !result.HasError() {
		attrs = append(attrs,
			slog.String("shape", result.Shape().String()),
			slog.String("payload", result.Contents()),
		)
		c.serviceLog.LogAttrs(ctx, slog.LevelInfo, c.formatter.Format(result, endpoint, elapsed, nil), attrs...)
		return
	}

	attrs = append(attrs,
		slog.String("kind", result.Failure().Kind.String()),
		slog.Int("errno", result.Errno()),
		slog.String("error", result.ErrorMessage()),
	)
	args := []any{info.method, info.service, info.route, info.query, info.body}
	c.errorLog.LogAttrs(ctx, slog.LevelError, c.formatter.Format(result, endpoint, elapsed, args), attrs...)
}
