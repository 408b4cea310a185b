package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/attribute"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
)

func collectMetrics(t *testing.T, reader *sdkmetric.ManualReader) map[string]metricdata.Aggregation {
	t.Helper()
	var rm metricdata.ResourceMetrics
	require.NoError(t, reader.Collect(context.Background(), &rm))

	out := make(map[string]metricdata.Aggregation)
	for _, sm := range rm.ScopeMetrics {
		for _, m := range sm.Metrics {
			out[m.Name] = m.Data
		}
	}
	return out
}

func counterValue(t *testing.T, data metricdata.Aggregation, attrs ...attribute.KeyValue) int64 {
	t.Helper()
	sum, ok := data.(metricdata.Sum[int64])
	require.True(t, ok)
	want := attribute.NewSet(attrs...)
	for _, dp := range sum.DataPoints {
		if dp.Attributes.Equals(&want) {
			return dp.Value
		}
	}
	return 0
}

func newMetricsRouter(t *testing.T) (*gin.Engine, *sdkmetric.ManualReader) {
	t.Helper()
	reader := sdkmetric.NewManualReader()
	provider := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	t.Cleanup(func() { _ = provider.Shutdown(context.Background()) })

	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.Use(HTTPMetrics(provider.Meter("http.server"), nil))
	router.GET("/api/v1/invoices/:id", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"id": c.Param("id")})
	})
	router.PUT("/api/v1/invoices/:id/notes", func(c *gin.Context) {
		c.Status(http.StatusConflict)
	})
	return router, reader
}

func TestHTTPMetrics(t *testing.T) {
	router, reader := newMetricsRouter(t)

	for _, id := range []string{"a", "b"} {
		w := httptest.NewRecorder()
		router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/v1/invoices/"+id, nil))
		require.Equal(t, http.StatusOK, w.Code)
	}
	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodPut, "/api/v1/invoices/a/notes", strings.NewReader(`{"admin_notes":"x"}`)))
	require.Equal(t, http.StatusConflict, w.Code)

	data := collectMetrics(t, reader)

	t.Run("counts requests by route pattern and status", func(t *testing.T) {
		assert.Equal(t, int64(2), counterValue(t, data["http_server_request_total"],
			attribute.String("http.method", http.MethodGet),
			attribute.String("http.route", "/api/v1/invoices/:id"),
			attribute.Int("http.status_code", http.StatusOK),
		))
		assert.Equal(t, int64(1), counterValue(t, data["http_server_request_total"],
			attribute.String("http.method", http.MethodPut),
			attribute.String("http.route", "/api/v1/invoices/:id/notes"),
			attribute.Int("http.status_code", http.StatusConflict),
		))
	})

	t.Run("records latency per route", func(t *testing.T) {
		hist, ok := data["http_server_request_duration_seconds"].(metricdata.Histogram[float64])
		require.True(t, ok)
		var count uint64
		for _, dp := range hist.DataPoints {
			count += dp.Count
		}
		assert.Equal(t, uint64(3), count)
	})

	t.Run("records request body size", func(t *testing.T) {
		hist, ok := data["http_server_request_size_bytes"].(metricdata.Histogram[float64])
		require.True(t, ok)
		require.Len(t, hist.DataPoints, 1)
		assert.Equal(t, float64(len(`{"admin_notes":"x"}`)), hist.DataPoints[0].Sum)
	})

	t.Run("active requests return to zero", func(t *testing.T) {
		assert.Equal(t, int64(0), counterValue(t, data["http_server_active_requests"]))
	})
}

func TestHTTPMetricsUnmatchedRoute(t *testing.T) {
	router, reader := newMetricsRouter(t)

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/nope", nil))
	assert.Equal(t, http.StatusNotFound, w.Code)

	data := collectMetrics(t, reader)
	assert.Equal(t, int64(1), counterValue(t, data["http_server_request_total"],
		attribute.String("http.method", http.MethodGet),
		attribute.String("http.route", "unknown"),
		attribute.Int("http.status_code", http.StatusNotFound),
	))
}

func TestHTTPMetricsNilMeter(t *testing.T) {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.Use(HTTPMetrics(nil, nil))
	router.GET("/ping", func(c *gin.Context) { c.String(http.StatusOK, "pong") })

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/ping", nil))
	assert.Equal(t, "pong", w.Body.String())
}
