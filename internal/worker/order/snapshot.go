// Package order handles order snapshots arriving on the feed.
package order

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/fx"
	"go.uber.org/zap"

	"github.com/Additional-Code/printcore/internal/config"
	"github.com/Additional-Code/printcore/internal/entity"
	"github.com/Additional-Code/printcore/internal/messaging"
	"github.com/Additional-Code/printcore/internal/service/printing"
	"github.com/Additional-Code/printcore/internal/worker"
)

var workerTracer = otel.Tracer("github.com/Additional-Code/printcore/worker/order")

// Module registers the snapshot handler with the worker engine.
var Module = fx.Module("worker_order",
	fx.Provide(
		fx.Annotate(
			NewSnapshotHandler,
			fx.ResultTags(`group:"worker.handlers"`),
		),
	),
)

// AutoPrinter is the orchestrator entry point for a fresh snapshot.
type AutoPrinter interface {
	AutoPrint(ctx context.Context, orders []entity.Order) (printing.Batch, error)
}

// NewSnapshotHandler feeds each decoded snapshot to the auto-print sweep.
func NewSnapshotHandler(logger *zap.Logger, cfg config.Config, svc *printing.Service) worker.HandlerRegistration {
	return worker.HandlerRegistration{
		Topic:   cfg.Messaging.Kafka.Topic,
		Handler: Handle(svc, logger),
	}
}

// Handle builds the message handler. Malformed snapshots are logged and
// committed; redelivery would not fix them.
func Handle(svc AutoPrinter, logger *zap.Logger) messaging.Handler {
	logger = logger.Named("feed")
	return func(ctx context.Context, msg messaging.Message) error {
		ctx, span := workerTracer.Start(ctx, "worker.orders.snapshot", trace.WithAttributes(
			attribute.String("messaging.topic", msg.Topic),
			attribute.Int64("messaging.offset", msg.Offset),
		))
		defer span.End()

		snap, err := messaging.DecodeSnapshot(msg.Value)
		if err != nil {
			logger.Error("discarding malformed order snapshot", zap.Int64("offset", msg.Offset), zap.Error(err))
			span.RecordError(err)
			span.SetStatus(codes.Error, "decode error")
			return nil
		}
		span.SetAttributes(attribute.Int("orders.count", len(snap.Orders)))

		batch, err := svc.AutoPrint(ctx, snap.Orders)
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, "auto-print interrupted")
			return err
		}

		printed := 0
		for _, out := range batch.Outcomes {
			if out.Printed() {
				printed++
			}
		}
		logger.Info("order snapshot processed",
			zap.String("snapshot_id", snap.SnapshotID),
			zap.Int("orders", len(snap.Orders)),
			zap.Int("new", len(batch.ToAutoPrint)+len(batch.ToBacklog)),
			zap.Int("printed", printed),
			zap.Int("too_old", len(batch.ToBacklog)),
		)
		return nil
	}
}
