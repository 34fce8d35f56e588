package printing

import (
	"context"

	"go.uber.org/zap"

	"github.com/Additional-Code/printcore/internal/entity"
	"github.com/Additional-Code/printcore/pkg/errorbank"
)

// Evaluation splits newly seen pending orders by what should happen to them.
type Evaluation struct {
	ToAutoPrint []entity.Order `json:"to_auto_print"`
	// ToBacklog are too old for unattended printing.
	ToBacklog []entity.Order `json:"to_backlog"`
	// Skipped were already printed or sit at the reprint ceiling.
	Skipped []entity.Order `json:"skipped"`
}

// EvaluateIncomingOrders picks the orders not in known that are pending and
// eligible for automatic printing. Printed orders and orders at the reprint
// ceiling are skipped; orders older than the auto-print age go to ToBacklog.
func (s *Service) EvaluateIncomingOrders(orders []entity.Order, known map[string]bool) Evaluation {
	now := s.clock.Now()
	var ev Evaluation
	for _, o := range orders {
		if known[o.ID] || !o.Status.IsNew() {
			continue
		}
		rec := s.ledger.Get(o.ID)
		switch {
		case rec.Printed, rec.PrintCount >= s.maxCount:
			ev.Skipped = append(ev.Skipped, o)
		case o.Age(now) > s.maxAge:
			ev.ToBacklog = append(ev.ToBacklog, o)
		default:
			ev.ToAutoPrint = append(ev.ToAutoPrint, o)
		}
	}
	return ev
}

// Batch is the result of one auto-print sweep.
type Batch struct {
	Evaluation
	Outcomes []Outcome `json:"outcomes"`
}

// AutoPrint takes the current full order set from the sync collaborator,
// refreshes the order book and prints every newly seen eligible order with
// the default kind. Listeners are notified once for the whole batch.
func (s *Service) AutoPrint(ctx context.Context, orders []entity.Order) (Batch, error) {
	if err := s.waitReady(ctx); err != nil {
		return Batch{}, err
	}

	s.mu.Lock()
	known := make(map[string]bool, len(s.known))
	for id := range s.known {
		known[id] = true
	}
	s.book = make(map[string]entity.Order, len(orders))
	for _, o := range orders {
		s.book[o.ID] = o
		s.known[o.ID] = true
	}
	enabled := s.autoPrint
	s.mu.Unlock()

	batch := Batch{Evaluation: s.EvaluateIncomingOrders(orders, known)}
	defer s.notifyChange()

	for _, o := range batch.ToBacklog {
		batch.Outcomes = append(batch.Outcomes,
			s.requestPrint(ctx, o, s.defaultKind, Options{Auto: true}))
	}
	if !enabled {
		if len(batch.ToAutoPrint) > 0 {
			s.logger.Info("auto-print disabled; new orders left for the operator", zap.Int("orders", len(batch.ToAutoPrint)))
		}
		return batch, nil
	}

	offline := false
	for _, o := range batch.ToAutoPrint {
		out := s.requestPrint(ctx, o, s.defaultKind, Options{Auto: true, offline: offline})
		if out.Reason == ReasonNotConnected {
			offline = true
		}
		batch.Outcomes = append(batch.Outcomes, out)
	}
	return batch, nil
}

// FlushBacklog retries every backlogged order still in the order book.
// Manual flushes ignore the auto-print age but respect the reprint ceiling.
func (s *Service) FlushBacklog(ctx context.Context, kind Kind) ([]Outcome, error) {
	if err := s.waitReady(ctx); err != nil {
		return nil, err
	}
	if kind == "" {
		kind = s.defaultKind
	}
	defer s.notifyChange()

	var outcomes []Outcome
	offline := false
	for _, id := range s.ledger.Backlog() {
		order, ok := s.Order(id)
		if !ok {
			s.logger.Warn("backlogged order no longer in the order book", zap.String("order_id", id))
			continue
		}
		out := s.requestPrint(ctx, order, kind, Options{offline: offline})
		if out.Reason == ReasonNotConnected {
			offline = true
		}
		outcomes = append(outcomes, out)
	}
	return outcomes, nil
}

// DismissBacklog drops an order from the backlog without printing it.
func (s *Service) DismissBacklog(ctx context.Context, orderID string) error {
	if err := s.waitReady(ctx); err != nil {
		return errorbank.Internal("print state not ready", errorbank.WithCause(err))
	}
	removed, err := s.ledger.Dismiss(ctx, orderID)
	if err != nil {
		s.logger.Error("persist backlog dismissal failed", zap.String("order_id", orderID), zap.Error(err))
	}
	if !removed {
		return errorbank.NotFound("order is not in the backlog", errorbank.WithDetail("order_id", orderID))
	}
	s.logger.Info("backlog entry dismissed", zap.String("order_id", orderID))
	s.notifyChange()
	return nil
}

// Order looks up an order in the book.
func (s *Service) Order(id string) (entity.Order, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	o, ok := s.book[id]
	return o, ok
}

// Orders returns the current order book.
func (s *Service) Orders() []entity.Order {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]entity.Order, 0, len(s.book))
	for _, o := range s.book {
		out = append(out, o)
	}
	return out
}

// UnprintedCount is the number of orders in a new-ish status that have not
// been printed, plus backlogged orders no longer in the book.
func (s *Service) UnprintedCount() int {
	backlog := s.ledger.Backlog()
	s.mu.Lock()
	book := make(map[string]entity.Order, len(s.book))
	for id, o := range s.book {
		book[id] = o
	}
	s.mu.Unlock()

	n := 0
	for _, o := range book {
		if o.Status.IsNew() && !s.ledger.Get(o.ID).Printed {
			n++
		}
	}
	for _, id := range backlog {
		if _, ok := book[id]; !ok {
			n++
		}
	}
	return n
}
