package middleware

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"

	mylog "github.com/mohammed-shakir/healpix-index/internal/logger"
)

func TestLogging_SetsRequestIDAndLogsStatus(t *testing.T) {
	var buf bytes.Buffer
	zl := mylog.Build(mylog.Config{Level: "debug"}, &buf)
	log := mylog.NewSlog(&zl)

	var seen string
	h := Logging(log)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = mylog.RequestID(r.Context())
		w.WriteHeader(http.StatusTeapot)
	}))

	req := httptest.NewRequest(http.MethodGet, "/v1/ang2pix", nil)
	req.Header.Set("X-Request-ID", "abc")
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)

	if seen != "abc" {
		t.Fatalf("request id in ctx=%q want abc", seen)
	}
	if got := rr.Header().Get("X-Request-ID"); got != "abc" {
		t.Fatalf("response header=%q", got)
	}

	var line map[string]any
	if err := json.Unmarshal(bytes.TrimSpace(buf.Bytes()), &line); err != nil {
		t.Fatalf("decode log: %v (%s)", err, buf.String())
	}
	if line["status"] != float64(http.StatusTeapot) || line["request_id"] != "abc" || line["component"] != "http" {
		t.Fatalf("log line=%v", line)
	}
}

func TestLogging_GeneratesRequestID(t *testing.T) {
	zl := mylog.Build(mylog.Config{Level: "error"}, &bytes.Buffer{})
	h := Logging(mylog.NewSlog(&zl))(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {}))

	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/", nil))
	if id := rr.Header().Get("X-Request-ID"); len(id) != 16 {
		t.Fatalf("generated id=%q", id)
	}
}

func TestRecover_Returns500(t *testing.T) {
	zl := mylog.Build(mylog.Config{Level: "error"}, &bytes.Buffer{})
	h := Recover(mylog.NewSlog(&zl))(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		panic("boom")
	}))

	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/", nil))
	if rr.Code != http.StatusInternalServerError {
		t.Fatalf("status=%d want 500", rr.Code)
	}
}

func TestCORS_Preflight(t *testing.T) {
	called := false
	h := CORS()(http.HandlerFunc(func(http.ResponseWriter, *http.Request) { called = true }))

	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodOptions, "/v1/coverage", nil))
	if rr.Code != http.StatusNoContent || called {
		t.Fatalf("preflight status=%d called=%v", rr.Code, called)
	}
	if !strings.Contains(rr.Header().Get("Access-Control-Allow-Methods"), "GET") {
		t.Fatalf("allow-methods=%q", rr.Header().Get("Access-Control-Allow-Methods"))
	}
}

func TestMetrics_UsesRoutePattern(t *testing.T) {
	r := chi.NewRouter()
	r.Use(Metrics())
	r.Get("/v1/items/{id}", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusAccepted)
	})

	rr := httptest.NewRecorder()
	r.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/v1/items/42", nil))
	if rr.Code != http.StatusAccepted {
		t.Fatalf("status=%d", rr.Code)
	}
}
