package printing

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.uber.org/zap"

	"github.com/Additional-Code/printcore/internal/repository/ledger"
)

type metrics struct {
	outcomes metric.Int64Counter
}

func newMetrics(logger *zap.Logger, l *ledger.Repository) *metrics {
	meter := otel.Meter("github.com/Additional-Code/printcore/service/printing")
	m := &metrics{}

	var err error
	m.outcomes, err = meter.Int64Counter("printcore.print.outcomes",
		metric.WithDescription("Print requests by kind, status and failure reason."))
	if err != nil {
		logger.Warn("print outcome counter unavailable", zap.Error(err))
	}

	_, err = meter.Int64ObservableGauge("printcore.backlog.size",
		metric.WithDescription("Orders currently in the print backlog."),
		metric.WithInt64Callback(func(_ context.Context, o metric.Int64Observer) error {
			o.Observe(int64(len(l.Backlog())))
			return nil
		}))
	if err != nil {
		logger.Warn("backlog gauge unavailable", zap.Error(err))
	}
	return m
}

func (m *metrics) record(ctx context.Context, out Outcome) {
	if m == nil || m.outcomes == nil {
		return
	}
	m.outcomes.Add(ctx, 1, metric.WithAttributes(
		attribute.String("kind", string(out.Kind)),
		attribute.String("status", string(out.Status)),
		attribute.String("reason", string(out.Reason)),
		attribute.Bool("duplicate", out.Duplicate),
	))
}
