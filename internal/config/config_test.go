package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewDefaults(t *testing.T) {
	cfg, err := New()
	require.NoError(t, err)

	assert.Equal(t, 3*time.Second, cfg.Printer.ConnectCooldown)
	assert.Equal(t, 400*time.Millisecond, cfg.Printer.RetryDelay)
	assert.Equal(t, 10*time.Minute, cfg.Printing.MaxAutoPrintAge)
	assert.Equal(t, 2, cfg.Printing.MaxPrintCount)
	assert.Equal(t, 10*time.Second, cfg.Printing.DuplicateWindow)
	assert.Equal(t, 42, cfg.Printing.Columns)
	assert.Equal(t, "kitchen", cfg.Printing.DefaultKind)
	assert.Equal(t, time.Minute, cfg.Alerts.Interval)
	assert.Equal(t, "memory", cfg.Storage.Driver)
	assert.False(t, cfg.Database.Enabled)
	assert.Equal(t, "noop", cfg.Messaging.Driver)
}

func TestNewReadsEnvironment(t *testing.T) {
	t.Setenv("PRINT_MAX_COUNT", "3")
	t.Setenv("PRINT_DEFAULT_KIND", " Both ")
	t.Setenv("PRINTER_CANDIDATES", "Kitchen=10.0.0.5:9100, Bar=10.0.0.6:9100")
	t.Setenv("STORAGE_DRIVER", "SQL")
	t.Setenv("OBS_PROMETHEUS_PATH", "metrics")

	cfg, err := New()
	require.NoError(t, err)

	assert.Equal(t, 3, cfg.Printing.MaxPrintCount)
	assert.Equal(t, "both", cfg.Printing.DefaultKind)
	assert.Equal(t, []string{"Kitchen=10.0.0.5:9100", "Bar=10.0.0.6:9100"}, cfg.Printer.Candidates)
	assert.True(t, cfg.Database.Enabled)
	assert.Equal(t, "/metrics", cfg.Observability.PrometheusPath)
}

func TestNewRejectsInvalidValues(t *testing.T) {
	cases := map[string]string{
		"PRINT_DEFAULT_KIND": "menu",
		"PRINTER_DRIVER":     "bluetooth-classic",
		"STORAGE_DRIVER":     "etcd",
		"PRINT_MAX_COUNT":    "0",
		"TICKET_COLUMNS":     "8",
	}
	for key, value := range cases {
		t.Run(key, func(t *testing.T) {
			t.Setenv(key, value)
			_, err := New()
			assert.Error(t, err)
		})
	}
}
