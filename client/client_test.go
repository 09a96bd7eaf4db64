package client

import (
	"bytes"
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/drblury/svcweaver/envelope"
	"github.com/drblury/svcweaver/jsonutil"
	"github.com/drblury/svcweaver/registry"
)

type logCapture struct {
	buf *bytes.Buffer
}

func newLogCapture() (*logCapture, *slog.Logger) {
	buf := &bytes.Buffer{}
	return &logCapture{buf: buf}, slog.New(slog.NewJSONHandler(buf, &slog.HandlerOptions{Level: slog.LevelDebug}))
}

func (l *logCapture) lines(t *testing.T) []map[string]any {
	t.Helper()

	var out []map[string]any
	for _, raw := range strings.Split(strings.TrimSpace(l.buf.String()), "\n") {
		if raw == "" {
			continue
		}
		var line map[string]any
		if err := jsonutil.Unmarshal([]byte(raw), &line); err != nil {
			t.Fatalf("failed to decode log line %q: %v", raw, err)
		}
		out = append(out, line)
	}
	return out
}

func (l *logCapture) single(t *testing.T) map[string]any {
	t.Helper()

	lines := l.lines(t)
	if len(lines) != 1 {
		t.Fatalf("expected exactly one log record, got %d: %s", len(lines), l.buf.String())
	}
	return lines[0]
}

func staticResolver(t *testing.T, services map[string]string) registry.Resolver {
	t.Helper()

	r, err := registry.NewStatic(services)
	if err != nil {
		t.Fatalf("static resolver: %v", err)
	}
	return r
}

func TestInvokeSuccessShapes(t *testing.T) {
	cases := []struct {
		name  string
		body  string
		shape envelope.Shape
	}{
		{"object", `{"errno":0,"error":"","data":{"id":7}}`, envelope.ShapeObject},
		{"list", `{"errno":0,"error":"","data":{"body":[1,2]}}`, envelope.ShapeList},
		{"paging", `{"errno":0,"error":"","data":{"body":[],"paging":{"total":0,"page":1,"pageSize":10}}}`, envelope.ShapePagingList},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				_, _ = io.WriteString(w, tc.body)
			}))
			defer srv.Close()

			logs, logger := newLogCapture()
			c := New(staticResolver(t, map[string]string{"core": srv.URL}), WithLogger(logger))

			res := c.Get(context.Background(), "core", "items", nil)
			if res.HasError() {
				t.Fatalf("unexpected failure: %v", res.Err())
			}
			if res.Shape() != tc.shape {
				t.Fatalf("expected shape %v, got %v", tc.shape, res.Shape())
			}
			if res.Contents() != tc.body {
				t.Fatalf("expected raw body to be kept, got %q", res.Contents())
			}

			line := logs.single(t)
			if line["level"] != "INFO" || line["channel"] != "service" {
				t.Fatalf("expected info on service channel, got %v", line)
			}
			if line["shape"] != tc.shape.String() {
				t.Fatalf("expected shape attr %q, got %v", tc.shape, line["shape"])
			}
			if !strings.HasPrefix(line["msg"].(string), "request ["+srv.URL+"/items] succeeded in ") {
				t.Fatalf("unexpected message %q", line["msg"])
			}
		})
	}
}

func TestInvokeBuildsRequest(t *testing.T) {
	var (
		gotMethod string
		gotQuery  string
		gotBody   map[string]any
		gotHeader http.Header
	)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotMethod = r.Method
		gotQuery = r.URL.RawQuery
		gotHeader = r.Header.Clone()
		if r.Body != nil {
			raw, _ := io.ReadAll(r.Body)
			if len(raw) > 0 {
				_ = jsonutil.Unmarshal(raw, &gotBody)
			}
		}
		_, _ = io.WriteString(w, `{"errno":0,"error":"","data":{}}`)
	}))
	defer srv.Close()

	_, logger := newLogCapture()
	c := New(
		staticResolver(t, map[string]string{"user": srv.URL}),
		WithLogger(logger),
		WithHeader("X-Tenant", "acme"),
		WithRequestMutator(func(req *http.Request) error {
			req.Header.Set("Authorization", "Bearer token")
			return nil
		}),
	)

	t.Run("post with query and body", func(t *testing.T) {
		res := c.Post(context.Background(), "user", "/profile", map[string]string{"b": "2", "a": "1"}, map[string]any{"name": "ada"})
		if res.HasError() {
			t.Fatalf("unexpected failure: %v", res.Err())
		}
		if gotMethod != http.MethodPost {
			t.Fatalf("expected POST, got %s", gotMethod)
		}
		if gotQuery != "a=1&b=2" {
			t.Fatalf("expected encoded query, got %q", gotQuery)
		}
		if gotBody["name"] != "ada" {
			t.Fatalf("expected json body, got %v", gotBody)
		}
		if ct := gotHeader.Get("Content-Type"); ct != "application/json" {
			t.Fatalf("expected json content type, got %q", ct)
		}
		if gotHeader.Get("X-Tenant") != "acme" || gotHeader.Get("Authorization") != "Bearer token" {
			t.Fatalf("expected configured headers, got %v", gotHeader)
		}
		if len(gotHeader.Get(RequestIDHeader)) != 26 {
			t.Fatalf("expected ULID request id, got %q", gotHeader.Get(RequestIDHeader))
		}
	})

	t.Run("get without body", func(t *testing.T) {
		gotBody = nil
		res := c.Invoke(context.Background(), "get", "user", "profile", nil, nil)
		if res.HasError() {
			t.Fatalf("unexpected failure: %v", res.Err())
		}
		if gotMethod != http.MethodGet || gotQuery != "" || gotBody != nil {
			t.Fatalf("unexpected request %s %q %v", gotMethod, gotQuery, gotBody)
		}
		if gotHeader.Get("Content-Type") != "" {
			t.Fatalf("expected no content type, got %q", gotHeader.Get("Content-Type"))
		}
	})

	t.Run("every verb", func(t *testing.T) {
		ctx := context.Background()
		calls := map[string]func() *envelope.Result{
			http.MethodDelete:  func() *envelope.Result { return c.Delete(ctx, "user", "x", nil, nil) },
			http.MethodOptions: func() *envelope.Result { return c.Options(ctx, "user", "x", nil, nil) },
			http.MethodPatch:   func() *envelope.Result { return c.Patch(ctx, "user", "x", nil, nil) },
			http.MethodPut:     func() *envelope.Result { return c.Put(ctx, "user", "x", nil, nil) },
			http.MethodHead:    func() *envelope.Result { return c.Head(ctx, "user", "x", nil) },
		}
		for method, invoke := range calls {
			invoke()
			if gotMethod != method {
				t.Fatalf("expected %s, got %s", method, gotMethod)
			}
		}
	})
}

func TestInvokeFailures(t *testing.T) {
	t.Run("business error", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			_, _ = io.WriteString(w, `{"errno":1001,"error":"insufficient balance","data":null}`)
		}))
		defer srv.Close()

		logs, logger := newLogCapture()
		c := New(staticResolver(t, map[string]string{"pay": srv.URL}), WithLogger(logger))

		res := c.Post(context.Background(), "pay", "charge", nil, map[string]any{"amount": 5})
		if res.Errno() != 1001 || res.ErrorMessage() != "insufficient balance" {
			t.Fatalf("unexpected failure %d %q", res.Errno(), res.ErrorMessage())
		}

		line := logs.single(t)
		if line["level"] != "ERROR" || line["channel"] != "error" {
			t.Fatalf("expected error on error channel, got %v", line)
		}
		msg := line["msg"].(string)
		if !strings.Contains(msg, "failed in") || !strings.Contains(msg, "insufficient balance") {
			t.Fatalf("unexpected report %q", msg)
		}
		if !strings.Contains(msg, "\narguments: 5") || !strings.Contains(msg, "#0 'POST'") {
			t.Fatalf("expected argument dump in report %q", msg)
		}
		if line["errno"] != float64(1001) || line["kind"] != "business" {
			t.Fatalf("unexpected attrs %v", line)
		}
	})

	t.Run("non-2xx without envelope", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			http.Error(w, "boom", http.StatusBadGateway)
		}))
		defer srv.Close()

		_, logger := newLogCapture()
		c := New(staticResolver(t, map[string]string{"core": srv.URL}), WithLogger(logger))

		res := c.Get(context.Background(), "core", "x", nil)
		if res.Errno() != http.StatusBadGateway || res.StatusCode() != http.StatusBadGateway {
			t.Fatalf("expected status code failure, got %d/%d", res.Errno(), res.StatusCode())
		}
		if res.Failure().Kind != envelope.KindTransport {
			t.Fatalf("expected transport kind, got %v", res.Failure().Kind)
		}
	})

	t.Run("connection refused", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {}))
		base := srv.URL
		srv.Close()

		logs, logger := newLogCapture()
		c := New(staticResolver(t, map[string]string{"core": base}), WithLogger(logger))

		res := c.Get(context.Background(), "core", "menu", nil)
		if !res.HasError() || res.Failure().Kind != envelope.KindTransport {
			t.Fatalf("expected transport failure, got %v", res.Err())
		}
		if res.Contents() != "" || res.Cause() == nil {
			t.Fatalf("expected empty contents and retained cause, got %q %v", res.Contents(), res.Cause())
		}
		if _, err := res.Data(); !errors.Is(err, envelope.ErrNoPayload) {
			t.Fatalf("expected ErrNoPayload, got %v", err)
		}

		msg := logs.single(t)["msg"].(string)
		if !strings.Contains(msg, "exception trace:") {
			t.Fatalf("expected exception trace in report %q", msg)
		}
	})

	t.Run("unknown service", func(t *testing.T) {
		logs, logger := newLogCapture()
		c := New(staticResolver(t, map[string]string{}), WithLogger(logger))

		res := c.Get(context.Background(), "ghost", "x", nil)
		if !errors.Is(res.Err(), registry.ErrUnknownService) {
			t.Fatalf("expected unknown service cause, got %v", res.Err())
		}
		line := logs.single(t)
		if line["url"] != "ghost/x" {
			t.Fatalf("expected fallback endpoint, got %v", line["url"])
		}
	})

	t.Run("unsupported method", func(t *testing.T) {
		logs, logger := newLogCapture()
		c := New(staticResolver(t, map[string]string{}), WithLogger(logger))

		res := c.Invoke(context.Background(), "TRACE", "core", "x", nil, nil)
		if res.Failure().Kind != envelope.KindClient || res.Errno() != -1 {
			t.Fatalf("expected client failure, got %v", res.Err())
		}
		logs.single(t)
	})

	t.Run("nil resolver", func(t *testing.T) {
		_, logger := newLogCapture()
		res := New(nil, WithLogger(logger)).Get(context.Background(), "core", "x", nil)
		if !errors.Is(res.Err(), errNoResolver) {
			t.Fatalf("expected errNoResolver, got %v", res.Err())
		}
	})

	t.Run("mutator error", func(t *testing.T) {
		_, logger := newLogCapture()
		boom := errors.New("no credentials")
		c := New(
			staticResolver(t, map[string]string{"core": "http://core.invalid"}),
			WithLogger(logger),
			WithRequestMutator(func(*http.Request) error { return boom }),
		)
		res := c.Get(context.Background(), "core", "x", nil)
		if !errors.Is(res.Err(), boom) {
			t.Fatalf("expected mutator error, got %v", res.Err())
		}
	})

	t.Run("timeout", func(t *testing.T) {
		release := make(chan struct{})
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			select {
			case <-release:
			case <-r.Context().Done():
			}
		}))
		defer srv.Close()
		defer close(release)

		_, logger := newLogCapture()
		c := New(staticResolver(t, map[string]string{"slow": srv.URL}), WithLogger(logger), WithTimeout(20*time.Millisecond))

		res := c.Get(context.Background(), "slow", "x", nil)
		if !res.HasError() || res.Failure().Kind != envelope.KindTransport {
			t.Fatalf("expected transport failure on timeout, got %v", res.Err())
		}
	})
}

func TestReportToggles(t *testing.T) {
	logs, logger := newLogCapture()
	c := New(staticResolver(t, map[string]string{}), WithErrorLogger(logger), WithArgumentDump(false), WithBacktrace(false))

	c.Get(context.Background(), "ghost", "x", nil)

	msg := logs.single(t)["msg"].(string)
	if strings.Contains(msg, "\n") {
		t.Fatalf("expected header-only report, got %q", msg)
	}
}

type stubDoer struct {
	calls int
}

func (s *stubDoer) Do(req *http.Request) (*http.Response, error) {
	s.calls++
	return &http.Response{
		StatusCode: http.StatusOK,
		Body:       io.NopCloser(strings.NewReader(`{"errno":0,"error":"","data":{"ok":true}}`)),
		Header:     make(http.Header),
		Request:    req,
	}, nil
}

func TestWithHTTPClient(t *testing.T) {
	doer := &stubDoer{}
	_, logger := newLogCapture()
	c := New(staticResolver(t, map[string]string{"core": "http://core.internal"}), WithHTTPClient(doer), WithLogger(logger))

	res := c.Get(context.Background(), "core", "x", nil)
	if res.HasError() || doer.calls != 1 {
		t.Fatalf("expected stub doer to serve the call, got %v (%d calls)", res.Err(), doer.calls)
	}
}

func TestDefaultHTTPClientIsBuiltOnce(t *testing.T) {
	const workers = 16
	clients := make([]*http.Client, workers)

	var wg sync.WaitGroup
	for i := range workers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			clients[i] = DefaultHTTPClient()
		}()
	}
	wg.Wait()

	for i, hc := range clients {
		if hc == nil || hc != DefaultHTTPClient() {
			t.Fatalf("worker %d saw a different client", i)
		}
	}
	if DefaultHTTPClient().Transport == http.DefaultTransport {
		t.Fatal("expected a cloned transport, not http.DefaultTransport")
	}
}

func TestConcurrentCallsAreIndependent(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		n := r.URL.Query().Get("n")
		if r.Header.Get("X-Tenant") != "acme" {
			_, _ = io.WriteString(w, `{"errno":401,"error":"tenant required"}`)
			return
		}
		if num, _ := strconv.Atoi(n); num%5 == 0 {
			_, _ = io.WriteString(w, `{"errno":409,"error":"busy `+n+`"}`)
			return
		}
		_, _ = io.WriteString(w, `{"errno":0,"error":"","data":{"n":"`+n+`","requestId":"`+r.Header.Get(RequestIDHeader)+`"}}`)
	}))
	defer srv.Close()

	capture, logger := newLogCapture()
	c := New(staticResolver(t, map[string]string{"core": srv.URL}), WithLogger(logger), WithHeader("X-Tenant", "acme"))

	const calls = 50
	results := make([]*envelope.Result, calls)
	var wg sync.WaitGroup
	for i := range calls {
		wg.Add(1)
		go func() {
			defer wg.Done()
			results[i] = c.Get(context.Background(), "core", "menu", map[string]string{"n": strconv.Itoa(i)})
		}()
	}
	wg.Wait()

	seen := make(map[string]bool, calls)
	for i, res := range results {
		if i%5 == 0 {
			if res.Errno() != 409 || res.ErrorMessage() != "busy "+strconv.Itoa(i) {
				t.Fatalf("call %d: expected its own business error, got %d %q", i, res.Errno(), res.ErrorMessage())
			}
			continue
		}
		var data struct {
			N         string `json:"n"`
			RequestID string `json:"requestId"`
		}
		if err := res.DecodeData(&data); err != nil {
			t.Fatalf("call %d: %v", i, err)
		}
		if data.N != strconv.Itoa(i) {
			t.Fatalf("call %d received the payload of call %s", i, data.N)
		}
		if seen[data.RequestID] {
			t.Fatalf("call %d reused request id %s", i, data.RequestID)
		}
		seen[data.RequestID] = true
	}

	if lines := capture.lines(t); len(lines) != calls {
		t.Fatalf("expected one log record per call, got %d", len(lines))
	}
}
