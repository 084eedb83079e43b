package metrics

import (
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/nimburion/serverconf/pkg/observability/metrics"
	"github.com/nimburion/serverconf/pkg/server/router"
	"github.com/nimburion/serverconf/pkg/server/router/nethttp"
)

func scrape(t *testing.T, registry *metrics.Registry) string {
	t.Helper()
	w := httptest.NewRecorder()
	registry.Handler().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	body, err := io.ReadAll(w.Result().Body)
	if err != nil {
		t.Fatalf("failed to read metrics: %v", err)
	}
	return string(body)
}

func TestMetricsMiddlewareRecordsRequests(t *testing.T) {
	registry := metrics.NewRegistry()

	r := nethttp.NewRouter()
	r.Use(Metrics(registry))
	r.GET("/ok", func(c router.Context) error {
		return c.String(http.StatusOK, "ok")
	})
	r.GET("/missing", func(c router.Context) error {
		return c.String(http.StatusNotFound, "nope")
	})

	r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/ok", nil))
	r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/ok", nil))
	r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/missing", nil))

	body := scrape(t, registry)
	if !strings.Contains(body, `http_requests_total{method="GET",path="/ok",status="200"} 2`) {
		t.Errorf("expected 2 requests for /ok, got:\n%s", body)
	}
	if !strings.Contains(body, `http_requests_total{method="GET",path="/missing",status="404"} 1`) {
		t.Errorf("expected 1 request for /missing, got:\n%s", body)
	}
	if !strings.Contains(body, "http_request_duration_seconds_bucket") {
		t.Error("expected duration histogram in scrape")
	}
}

func TestMetricsRegistryExposesRuntimeCollectors(t *testing.T) {
	body := scrape(t, metrics.NewRegistry())
	if !strings.Contains(body, "go_goroutines") {
		t.Error("expected go runtime metrics in scrape")
	}
}
