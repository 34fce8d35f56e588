package connection

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.uber.org/zap"
)

// instrument exports the link state as a gauge and counts transitions.
func instrument(m *Manager) {
	meter := otel.Meter("github.com/Additional-Code/printcore/connection")

	_, err := meter.Int64ObservableGauge("printcore.printer.connected",
		metric.WithDescription("1 while the printer link is connected."),
		metric.WithInt64Callback(func(_ context.Context, o metric.Int64Observer) error {
			var v int64
			if m.Verify() {
				v = 1
			}
			o.Observe(v)
			return nil
		}))
	if err != nil {
		m.logger.Warn("printer gauge unavailable", zap.Error(err))
	}

	transitions, err := meter.Int64Counter("printcore.printer.transitions",
		metric.WithDescription("Printer link state transitions by target state."))
	if err != nil {
		m.logger.Warn("printer transition counter unavailable", zap.Error(err))
		return
	}
	m.OnStateChange(func(s State) {
		transitions.Add(context.Background(), 1, metric.WithAttributes(attribute.String("state", s.String())))
	})
}
