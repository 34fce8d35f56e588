package printing

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/Additional-Code/printcore/internal/connection"
	"github.com/Additional-Code/printcore/internal/entity"
)

// Options qualifies a print request.
type Options struct {
	// Override bypasses the reprint ceiling for this request only.
	Override bool
	// Auto marks an unattended request, subject to the auto-print age limit.
	Auto bool

	// offline skips the connect attempt after an earlier request in the same
	// batch already found the printer unreachable.
	offline bool
}

type part struct {
	name   Kind
	render func(entity.Order) []byte
}

func (s *Service) parts(kind Kind) []part {
	kitchen := part{KindKitchen, s.renderer.RenderKitchenTicket}
	receipt := part{KindReceipt, s.renderer.RenderCustomerReceipt}
	switch kind {
	case KindKitchen:
		return []part{kitchen}
	case KindReceipt:
		return []part{receipt}
	case KindBoth:
		return []part{kitchen, receipt}
	default:
		return nil
	}
}

// RequestPrint prints order as kind. A second request for the same order
// while one is in flight is rejected, not queued. An empty kind uses the
// default kind.
func (s *Service) RequestPrint(ctx context.Context, order entity.Order, kind Kind, opts Options) Outcome {
	out := s.requestPrint(ctx, order, kind, opts)
	if out.Status == StatusFailed || (out.Printed() && !out.Duplicate) {
		s.notifyChange()
	}
	return out
}

func (s *Service) requestPrint(ctx context.Context, order entity.Order, kind Kind, opts Options) Outcome {
	if kind == "" {
		kind = s.defaultKind
	}
	out := Outcome{JobID: uuid.NewString(), OrderID: order.ID, Kind: kind}

	ctx, span := serviceTracer.Start(ctx, "PrintService.RequestPrint", trace.WithAttributes(
		attribute.String("order.id", order.ID),
		attribute.String("print.kind", string(kind)),
		attribute.String("print.job_id", out.JobID),
		attribute.Bool("print.auto", opts.Auto),
		attribute.Bool("print.override", opts.Override),
	))
	defer span.End()
	defer func() {
		span.SetAttributes(attribute.String("print.status", string(out.Status)))
		if out.Status == StatusFailed {
			span.SetStatus(codes.Error, string(out.Reason))
		}
	}()

	logger := s.logger.With(zap.String("order_id", order.ID), zap.String("kind", string(kind)), zap.String("job_id", out.JobID))

	if err := s.waitReady(ctx); err != nil {
		out = s.finish(ctx, out, StatusFailed, ReasonCancelled, err)
		return out
	}
	parts := s.parts(kind)
	if len(parts) == 0 {
		out = s.finish(ctx, out, StatusFailed, ReasonInvalidKind, nil)
		return out
	}

	if !s.acquire(order.ID) {
		logger.Info("print already in progress")
		out = s.finish(ctx, out, StatusInProgress, "", nil)
		return out
	}
	defer s.release(order.ID)

	if prior, ok := s.recentSuccess(order.ID, kind); ok {
		logger.Info("duplicate print suppressed", zap.String("prior_job_id", prior.JobID))
		prior.Duplicate = true
		s.metrics.record(ctx, prior)
		out = prior
		return out
	}

	rec := s.ledger.Get(order.ID)
	out.PrintCount = rec.PrintCount
	if rec.PrintCount >= s.maxCount && !opts.Override {
		logger.Info("reprint ceiling reached; confirmation required", zap.Int("print_count", rec.PrintCount))
		out = s.finish(ctx, out, StatusConfirmationRequired, "", nil)
		return out
	}

	if opts.Auto {
		if age := order.Age(s.clock.Now()); age > s.maxAge {
			logger.Info("order too old for auto-print; routed to backlog", zap.Duration("age", age))
			out = s.fail(ctx, out, ReasonTooOld, nil)
			return out
		}
	}

	if opts.offline || !s.link.EnsureConnected(ctx, s.printerAddress()) {
		logger.Warn("printer unreachable; order backlogged")
		out = s.fail(ctx, out, ReasonNotConnected, connection.ErrNotConnected)
		return out
	}

	for i, p := range parts {
		err := s.link.Send(ctx, p.render(order))
		if err == nil {
			continue
		}
		reason := ReasonDeviceError
		if errors.Is(err, connection.ErrNotConnected) {
			reason = ReasonNotConnected
		}
		span.RecordError(err)
		logger.Warn("ticket transmit failed", zap.String("part", string(p.name)), zap.Error(err))
		if i == 0 {
			out = s.fail(ctx, out, reason, err)
			return out
		}
		// The kitchen ticket is already on paper; count it, keep the order off
		// the backlog and report the receipt failure.
		out = s.commit(ctx, out)
		out.Partial = true
		out = s.finish(ctx, out, StatusFailed, reason, err)
		return out
	}

	out = s.commit(ctx, out)
	s.remember(order.ID, kind, out)
	logger.Info("ticket printed", zap.Int("print_count", out.PrintCount))
	out = s.finish(ctx, out, StatusPrinted, "", nil)
	return out
}

func (s *Service) printerAddress() string {
	if addr := s.link.Address(); addr != "" {
		return addr
	}
	return s.address
}

func (s *Service) commit(ctx context.Context, out Outcome) Outcome {
	rec, err := s.ledger.MarkPrinted(ctx, out.OrderID)
	if err != nil {
		s.logger.Error("persist print record failed", zap.String("order_id", out.OrderID), zap.Error(err))
	}
	out.PrintCount = rec.PrintCount
	return out
}

// fail records a failed attempt. Orders that were never printed go to the
// backlog; a failed reprint leaves the earlier print standing.
func (s *Service) fail(ctx context.Context, out Outcome, reason Reason, cause error) Outcome {
	if _, err := s.ledger.AddBacklog(ctx, out.OrderID); err != nil {
		s.logger.Error("persist backlog failed", zap.String("order_id", out.OrderID), zap.Error(err))
	}
	return s.finish(ctx, out, StatusFailed, reason, cause)
}

func (s *Service) finish(ctx context.Context, out Outcome, status Status, reason Reason, cause error) Outcome {
	out.Status = status
	out.Reason = reason
	out.cause = cause
	out.At = s.clock.Now()
	s.metrics.record(ctx, out)
	return out
}

func (s *Service) acquire(orderID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, busy := s.inFlight[orderID]; busy {
		return false
	}
	s.inFlight[orderID] = struct{}{}
	return true
}

func (s *Service) release(orderID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.inFlight, orderID)
}

func (s *Service) recentSuccess(orderID string, kind Kind) (Outcome, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.guard[guardKey{orderID, kind}]
	if !ok || s.clock.Now().Sub(e.at) >= s.dupWindow {
		return Outcome{}, false
	}
	return e.outcome, true
}

func (s *Service) remember(orderID string, kind Kind, out Outcome) {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := s.clock.Now()
	for k, e := range s.guard {
		if now.Sub(e.at) >= s.dupWindow {
			delete(s.guard, k)
		}
	}
	out.Status = StatusPrinted
	out.At = now
	s.guard[guardKey{orderID, kind}] = guardEntry{at: now, outcome: out}
}
