package http

import (
	"encoding/json"
	nethttp "net/http"
	"net/http/httptest"
	"testing"

	"github.com/owlcms/tracker-core/internal/hub"
	"github.com/owlcms/tracker-core/internal/testutil"
)

func TestHealth(t *testing.T) {
	h := NewHandler(nil, testutil.NewCaptureLogger())

	rec := httptest.NewRecorder()
	h.Health(rec, httptest.NewRequest(nethttp.MethodGet, "/health", nil))
	if rec.Code != nethttp.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}

	var body map[string]string
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatal(err)
	}
	if body["status"] != "ok" {
		t.Fatalf("unexpected body: %v", body)
	}
}

func TestHealthRejectsPost(t *testing.T) {
	h := NewHandler(nil, testutil.NewCaptureLogger())

	rec := httptest.NewRecorder()
	h.Health(rec, httptest.NewRequest(nethttp.MethodPost, "/health", nil))
	if rec.Code != nethttp.StatusMethodNotAllowed {
		t.Fatalf("expected 405, got %d", rec.Code)
	}
}

func TestReadyWaitingWithoutData(t *testing.T) {
	hb := hub.New(hub.Options{LocalFilesDir: t.TempDir()})
	h := NewHandler(hb, testutil.NewCaptureLogger())

	rec := httptest.NewRecorder()
	h.Ready(rec, httptest.NewRequest(nethttp.MethodGet, "/ready", nil))
	if rec.Code != nethttp.StatusServiceUnavailable {
		t.Fatalf("expected 503 while waiting, got %d", rec.Code)
	}
}

func TestRouterRoutes(t *testing.T) {
	handler := NewHandler(nil, testutil.NewCaptureLogger())
	router := NewRouter(handler, "/ws", nethttp.NotFoundHandler())

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(nethttp.MethodGet, "/health", nil))
	if rec.Code != nethttp.StatusOK {
		t.Fatalf("expected 200 from /health, got %d", rec.Code)
	}

	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(nethttp.MethodGet, "/nope", nil))
	if rec.Code != nethttp.StatusNotFound {
		t.Fatalf("expected 404, got %d", rec.Code)
	}
}

func TestLoggingMiddlewarePreservesStatusAndRequestID(t *testing.T) {
	inner := nethttp.HandlerFunc(func(w nethttp.ResponseWriter, r *nethttp.Request) {
		w.WriteHeader(nethttp.StatusTeapot)
	})
	logger := testutil.NewCaptureLogger()
	wrapped := LoggingMiddleware(logger, inner)

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(nethttp.MethodGet, "/x", nil)
	req.Header.Set("X-Request-ID", "abc-123")
	wrapped.ServeHTTP(rec, req)

	if rec.Code != nethttp.StatusTeapot {
		t.Fatalf("status not preserved: %d", rec.Code)
	}
	if rec.Header().Get("X-Request-ID") != "abc-123" {
		t.Fatalf("request id not echoed: %q", rec.Header().Get("X-Request-ID"))
	}
	if !logger.Contains("request complete") {
		t.Fatal("expected request log entry")
	}
}

func TestLoggingMiddlewareSanitizesBadRequestID(t *testing.T) {
	inner := nethttp.HandlerFunc(func(w nethttp.ResponseWriter, r *nethttp.Request) {})
	wrapped := LoggingMiddleware(testutil.NewCaptureLogger(), inner)

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(nethttp.MethodGet, "/x", nil)
	req.Header.Set("X-Request-ID", "bad id with spaces!!")
	wrapped.ServeHTTP(rec, req)

	got := rec.Header().Get("X-Request-ID")
	if got == "" || got == "bad id with spaces!!" {
		t.Fatalf("expected generated id, got %q", got)
	}
}
