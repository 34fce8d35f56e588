package observability

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Additional-Code/printcore/internal/config"
)

func TestPrometheusExporterServesScrapes(t *testing.T) {
	mgr, err := New(context.Background(), config.Observability{
		ServiceName:     "printcore-test",
		EnableMetrics:   true,
		MetricsExporter: "prometheus",
		PrometheusPath:  "/metrics",
	}, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = mgr.Shutdown(context.Background()) })

	assert.True(t, mgr.MetricsEnabled())
	assert.False(t, mgr.TracingEnabled())
	require.NotNil(t, mgr.MetricsHandler())

	counter, err := mgr.meterProvider.Meter("test").Int64Counter("printcore.test.events")
	require.NoError(t, err)
	counter.Add(context.Background(), 3)

	rec := httptest.NewRecorder()
	mgr.MetricsHandler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "printcore_test_events")
	assert.Contains(t, rec.Body.String(), "go_goroutines")
}

func TestDisabledProvidersStayNil(t *testing.T) {
	mgr, err := New(context.Background(), config.Observability{ServiceName: "printcore-test"}, nil)
	require.NoError(t, err)

	assert.False(t, mgr.MetricsEnabled())
	assert.False(t, mgr.TracingEnabled())
	assert.Nil(t, mgr.MetricsHandler())
	assert.NoError(t, mgr.Shutdown(context.Background()))
}

func TestUnknownExporterDisablesMetrics(t *testing.T) {
	mgr, err := New(context.Background(), config.Observability{
		EnableMetrics:   true,
		MetricsExporter: "statsd",
	}, nil)
	require.NoError(t, err)
	assert.False(t, mgr.MetricsEnabled())
}
