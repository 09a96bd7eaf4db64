package responder

import (
	"bytes"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/drblury/svcweaver/envelope"
)

func TestHandleAPIErrorRoundTrip(t *testing.T) {
	buf := &bytes.Buffer{}
	r := NewResponder(WithLogger(slog.New(slog.NewJSONHandler(buf, nil))))

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/orders/7", nil)
	req.Header.Set(RequestIDHeader, "01J0000000000000000000TEST")

	r.HandleNotFoundError(rec, req, errors.New("order not found"))

	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", rec.Code)
	}
	if got := rec.Header().Get(RequestIDHeader); got != "01J0000000000000000000TEST" {
		t.Fatalf("expected request id to be echoed, got %q", got)
	}
	if ct := rec.Header().Get("Content-Type"); ct != jsonContentType {
		t.Fatalf("unexpected content type %q", ct)
	}

	res := envelope.FromResponse(rec.Code, rec.Body.Bytes())
	if res.Failure().Kind != envelope.KindBusiness || res.Errno() != http.StatusNotFound || res.ErrorMessage() != "order not found" {
		t.Fatalf("expected business failure 404, got %v", res.Err())
	}

	logLine := buf.String()
	if !strings.Contains(logLine, `"level":"WARN"`) || !strings.Contains(logLine, `"path":"/orders/7"`) {
		t.Fatalf("unexpected log line %s", logLine)
	}
}

func TestStatusMetadataLogLevel(t *testing.T) {
	cases := []struct {
		name  string
		meta  StatusMetadata
		level string
	}{
		{"info is honoured", StatusMetadata{LogLevel: slog.LevelInfo}, `"level":"INFO"`},
		{"debug is honoured", StatusMetadata{LogLevel: slog.LevelDebug}, `"level":"DEBUG"`},
		{"unset logs at error", StatusMetadata{LogMsg: "conflict"}, `"level":"ERROR"`},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			buf := &bytes.Buffer{}
			r := NewResponder(
				WithLogger(slog.New(slog.NewJSONHandler(buf, &slog.HandlerOptions{Level: slog.LevelDebug}))),
				WithStatusMetadata(http.StatusConflict, tc.meta),
			)

			r.HandleAPIError(httptest.NewRecorder(), httptest.NewRequest(http.MethodPost, "/orders", nil), http.StatusConflict, errors.New("duplicate order"))

			if !strings.Contains(buf.String(), tc.level) {
				t.Fatalf("expected %s, got %s", tc.level, buf.String())
			}
		})
	}
}

func TestErrnoFor(t *testing.T) {
	business := envelope.Parse([]byte(`{"errno":1001,"error":"insufficient balance"}`))

	cases := []struct {
		name   string
		status int
		meta   statusMeta
		err    error
		want   int
	}{
		{"status fallback", http.StatusBadRequest, statusMeta{}, errors.New("bad"), http.StatusBadRequest},
		{"override", http.StatusBadRequest, statusMeta{errno: 42}, errors.New("bad"), 42},
		{"carried errno", http.StatusBadGateway, statusMeta{}, business.Err(), 1001},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := errnoFor(tc.status, tc.meta, tc.err); got != tc.want {
				t.Fatalf("errnoFor = %d, want %d", got, tc.want)
			}
		})
	}
}

func TestRespondWithResult(t *testing.T) {
	r := NewResponder(WithLogger(slog.New(slog.NewTextHandler(&bytes.Buffer{}, nil))))
	req := httptest.NewRequest(http.MethodGet, "/proxy", nil)

	t.Run("success is relayed verbatim", func(t *testing.T) {
		body := `{"errno":0,"error":"","data":{"body":[1]}}`
		rec := httptest.NewRecorder()
		r.RespondWithResult(rec, req, envelope.Parse([]byte(body)))
		if rec.Code != http.StatusOK || rec.Body.String() != body {
			t.Fatalf("unexpected relay %d %q", rec.Code, rec.Body.String())
		}
	})

	t.Run("business error keeps errno", func(t *testing.T) {
		rec := httptest.NewRecorder()
		r.RespondWithResult(rec, req, envelope.Parse([]byte(`{"errno":1001,"error":"insufficient balance"}`)))
		res := envelope.FromResponse(rec.Code, rec.Body.Bytes())
		if rec.Code != http.StatusOK || res.Errno() != 1001 {
			t.Fatalf("unexpected relay %d %q", rec.Code, rec.Body.String())
		}
	})

	t.Run("transport failure becomes bad gateway", func(t *testing.T) {
		rec := httptest.NewRecorder()
		r.RespondWithResult(rec, req, envelope.FromError(errors.New("dial tcp: connection refused")))
		res := envelope.FromResponse(rec.Code, rec.Body.Bytes())
		if rec.Code != http.StatusBadGateway || !res.HasError() {
			t.Fatalf("unexpected relay %d %q", rec.Code, rec.Body.String())
		}
		if res.ErrorMessage() != "transport error -1: dial tcp: connection refused" {
			t.Fatalf("unexpected message %q", res.ErrorMessage())
		}
	})

	t.Run("nil result", func(t *testing.T) {
		rec := httptest.NewRecorder()
		r.RespondWithResult(rec, req, nil)
		if rec.Code != http.StatusInternalServerError {
			t.Fatalf("expected 500, got %d", rec.Code)
		}
	})
}

func TestEnvelopeWriters(t *testing.T) {
	r := NewResponder()
	req := httptest.NewRequest(http.MethodGet, "/", nil)

	cases := []struct {
		name  string
		write func(w http.ResponseWriter)
		shape envelope.Shape
	}{
		{"object", func(w http.ResponseWriter) { r.RespondWithObject(w, req, map[string]int{"id": 1}) }, envelope.ShapeObject},
		{"nil object", func(w http.ResponseWriter) { r.RespondWithObject(w, req, nil) }, envelope.ShapeObject},
		{"list", func(w http.ResponseWriter) { r.RespondWithList(w, req, []int{1, 2}) }, envelope.ShapeList},
		{"nil list", func(w http.ResponseWriter) { r.RespondWithList(w, req, nil) }, envelope.ShapeList},
		{"paging", func(w http.ResponseWriter) { r.RespondWithPaging(w, req, 3, 1, 2, []int{1, 2}) }, envelope.ShapePagingList},
		{"success", func(w http.ResponseWriter) { r.RespondWithSuccess(w, req) }, envelope.ShapeObject},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			tc.write(rec)
			res := envelope.FromResponse(rec.Code, rec.Body.Bytes())
			if res.HasError() || res.Shape() != tc.shape {
				t.Fatalf("expected %v, got %v (%v)", tc.shape, res.Shape(), res.Err())
			}
			if len(rec.Header().Get(RequestIDHeader)) != 26 {
				t.Fatalf("expected generated request id, got %q", rec.Header().Get(RequestIDHeader))
			}
		})
	}
}

func TestReadRequestBody(t *testing.T) {
	r := NewResponder(WithLogger(slog.New(slog.NewTextHandler(&bytes.Buffer{}, nil))))

	t.Run("malformed", func(t *testing.T) {
		rec := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"name":`))
		var v map[string]any
		if r.ReadRequestBody(rec, req, &v) {
			t.Fatal("expected decode failure")
		}
		if rec.Code != http.StatusBadRequest {
			t.Fatalf("expected 400, got %d", rec.Code)
		}
		if res := envelope.FromResponse(rec.Code, rec.Body.Bytes()); res.Errno() != http.StatusBadRequest {
			t.Fatalf("expected errno 400, got %d", res.Errno())
		}
	})

	t.Run("empty", func(t *testing.T) {
		rec := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodPost, "/", http.NoBody)
		var v map[string]any
		if r.ReadRequestBody(rec, req, &v) {
			t.Fatal("expected decode failure")
		}
	})
}

func TestReadOptionalBody(t *testing.T) {
	r := NewResponder(WithLogger(slog.New(slog.NewTextHandler(&bytes.Buffer{}, nil))))

	t.Run("absent", func(t *testing.T) {
		rec := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, "/", http.NoBody)
		v := map[string]any{"kept": true}
		if !r.ReadOptionalBody(rec, req, &v) {
			t.Fatalf("expected absent body to be accepted, got %d %s", rec.Code, rec.Body.String())
		}
		if v["kept"] != true {
			t.Fatalf("expected target untouched, got %v", v)
		}
	})

	t.Run("present", func(t *testing.T) {
		rec := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"name":"ada"}`))
		var v struct {
			Name string `json:"name"`
		}
		if !r.ReadOptionalBody(rec, req, &v) || v.Name != "ada" {
			t.Fatalf("expected body to decode, got %+v", v)
		}
	})

	t.Run("malformed", func(t *testing.T) {
		rec := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"name":`))
		var v map[string]any
		if r.ReadOptionalBody(rec, req, &v) || rec.Code != http.StatusBadRequest {
			t.Fatalf("expected 400, got %d", rec.Code)
		}
	})
}

func TestReadPaging(t *testing.T) {
	r := NewResponder(WithLogger(slog.New(slog.NewTextHandler(&bytes.Buffer{}, nil))))

	cases := []struct {
		target   string
		page     int
		pageSize int
		ok       bool
	}{
		{"/items", 1, 20, true},
		{"/items?page=3&pageSize=50", 3, 50, true},
		{"/items?page=0", 0, 0, false},
		{"/items?pageSize=abc", 0, 0, false},
		{"/items?pageSize=501", 0, 0, false},
	}
	for _, tc := range cases {
		t.Run(tc.target, func(t *testing.T) {
			rec := httptest.NewRecorder()
			page, pageSize, ok := r.ReadPaging(rec, httptest.NewRequest(http.MethodGet, tc.target, nil))
			if ok != tc.ok || page != tc.page || pageSize != tc.pageSize {
				t.Fatalf("expected %d/%d/%v, got %d/%d/%v", tc.page, tc.pageSize, tc.ok, page, pageSize, ok)
			}
			if !ok && envelope.FromResponse(rec.Code, rec.Body.Bytes()).Errno() != http.StatusBadRequest {
				t.Fatalf("expected errno 400 envelope, got %s", rec.Body.String())
			}
		})
	}
}
