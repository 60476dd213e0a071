package main

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/mohammed-shakir/healpix-index/internal/core/config"
	"github.com/mohammed-shakir/healpix-index/internal/core/observability"
)

func scrape(t *testing.T, h http.Handler) string {
	t.Helper()
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	if rr.Code != http.StatusOK {
		t.Fatalf("status=%d", rr.Code)
	}
	return rr.Body.String()
}

func TestNewMetrics_RespectsEnabledFlag(t *testing.T) {
	observability.ObserveEngineOp("nside2npix", nil)

	cases := []struct {
		enabled bool
		want    bool
	}{{false, false}, {true, true}}
	for _, tc := range cases {
		p := newMetrics(config.Config{MetricsEnabled: tc.enabled})
		body := scrape(t, p.Handler())
		if got := strings.Contains(body, "healpix_ops_total"); got != tc.want {
			t.Fatalf("enabled=%v healpix_ops_total exported=%v want %v", tc.enabled, got, tc.want)
		}
		if !strings.Contains(body, "app_build_info") {
			t.Fatalf("enabled=%v build info missing", tc.enabled)
		}
	}
}
