// Package ledger holds the durable print state: which orders were committed to
// paper, how many times, and which are backlogged.
package ledger

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"sync"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/Additional-Code/printcore/internal/kvstore"
)

// Storage keys. Each value is a JSON document round-tripped verbatim.
const (
	KeyPrinted = "printed_order_ids"
	KeyBacklog = "backlog_order_ids"
	KeyCounts  = "order_print_counts"
)

var repoTracer = otel.Tracer("github.com/Additional-Code/printcore/repository/ledger")

// Record is the print state of one order.
type Record struct {
	OrderID    string `json:"order_id"`
	Printed    bool   `json:"printed"`
	PrintCount int    `json:"print_count"`
	Backlogged bool   `json:"backlogged"`
}

// Snapshot is a consistent copy of the whole ledger.
type Snapshot struct {
	Printed []string       `json:"printed"`
	Backlog []string       `json:"backlog"`
	Counts  map[string]int `json:"counts"`
}

// Repository keeps the ledger in memory and writes it through to the store
// after every mutation. printCount never decreases, a positive count implies
// printed, and a backlogged id is never printed.
type Repository struct {
	store kvstore.Store

	// persistMu orders snapshot writes so an older state never lands last.
	persistMu sync.Mutex

	mu      sync.RWMutex
	printed map[string]struct{}
	backlog map[string]struct{}
	counts  map[string]int
}

// NewRepository wires an empty ledger backed by store. Call Load before use.
func NewRepository(store kvstore.Store) *Repository {
	return &Repository{
		store:   store,
		printed: make(map[string]struct{}),
		backlog: make(map[string]struct{}),
		counts:  make(map[string]int),
	}
}

// Load rehydrates the ledger from the store. Missing keys are empty sets.
func (r *Repository) Load(ctx context.Context) error {
	ctx, span := repoTracer.Start(ctx, "LedgerRepository.Load")
	defer span.End()

	var (
		printed []string
		backlog []string
		counts  map[string]int
	)
	for key, dst := range map[string]any{KeyPrinted: &printed, KeyBacklog: &backlog, KeyCounts: &counts} {
		if err := r.read(ctx, key, dst); err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, "load failed")
			return err
		}
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	r.printed = make(map[string]struct{}, len(printed))
	r.backlog = make(map[string]struct{}, len(backlog))
	r.counts = make(map[string]int, len(counts))
	for _, id := range printed {
		r.printed[id] = struct{}{}
	}
	for id, n := range counts {
		if n <= 0 {
			continue
		}
		r.counts[id] = n
		r.printed[id] = struct{}{}
	}
	for _, id := range backlog {
		if _, ok := r.printed[id]; !ok {
			r.backlog[id] = struct{}{}
		}
	}
	span.SetAttributes(attribute.Int("ledger.printed", len(r.printed)), attribute.Int("ledger.backlog", len(r.backlog)))
	return nil
}

func (r *Repository) read(ctx context.Context, key string, dst any) error {
	raw, err := r.store.Get(ctx, key)
	if errors.Is(err, kvstore.ErrNotFound) || (err == nil && raw == "") {
		return nil
	}
	if err != nil {
		return fmt.Errorf("read %s: %w", key, err)
	}
	if err := json.Unmarshal([]byte(raw), dst); err != nil {
		return fmt.Errorf("decode %s: %w", key, err)
	}
	return nil
}

// Get returns the record for id.
func (r *Repository) Get(id string) Record {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.record(id)
}

func (r *Repository) record(id string) Record {
	_, printed := r.printed[id]
	_, backlogged := r.backlog[id]
	return Record{OrderID: id, Printed: printed, PrintCount: r.counts[id], Backlogged: backlogged}
}

// Backlog returns the backlogged ids in sorted order.
func (r *Repository) Backlog() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return sortedKeys(r.backlog)
}

// Snapshot returns a copy of the full ledger.
func (r *Repository) Snapshot() Snapshot {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.snapshot()
}

func (r *Repository) snapshot() Snapshot {
	counts := make(map[string]int, len(r.counts))
	for id, n := range r.counts {
		counts[id] = n
	}
	return Snapshot{Printed: sortedKeys(r.printed), Backlog: sortedKeys(r.backlog), Counts: counts}
}

// MarkPrinted commits a successful print: the count goes up by one, the order
// is flagged printed and leaves the backlog.
func (r *Repository) MarkPrinted(ctx context.Context, id string) (Record, error) {
	var rec Record
	err := r.mutate(ctx, "LedgerRepository.MarkPrinted", id, func() bool {
		r.counts[id]++
		r.printed[id] = struct{}{}
		delete(r.backlog, id)
		rec = r.record(id)
		return true
	})
	return rec, err
}

// AddBacklog puts an unprinted order on the backlog. Printed orders are never
// backlogged; the returned bool reports whether the set changed.
func (r *Repository) AddBacklog(ctx context.Context, id string) (bool, error) {
	var added bool
	err := r.mutate(ctx, "LedgerRepository.AddBacklog", id, func() bool {
		if _, ok := r.printed[id]; ok {
			return false
		}
		if _, ok := r.backlog[id]; ok {
			return false
		}
		r.backlog[id] = struct{}{}
		added = true
		return true
	})
	return added, err
}

// Dismiss removes id from the backlog without printing it.
func (r *Repository) Dismiss(ctx context.Context, id string) (bool, error) {
	var removed bool
	err := r.mutate(ctx, "LedgerRepository.Dismiss", id, func() bool {
		if _, ok := r.backlog[id]; !ok {
			return false
		}
		delete(r.backlog, id)
		removed = true
		return true
	})
	return removed, err
}

// mutate applies fn and, when it reports a change, persists the resulting
// state. The in-memory change stands even if the write fails.
func (r *Repository) mutate(ctx context.Context, op, id string, fn func() bool) error {
	ctx, span := repoTracer.Start(ctx, op, trace.WithAttributes(attribute.String("order.id", id)))
	defer span.End()

	r.persistMu.Lock()
	defer r.persistMu.Unlock()

	r.mu.Lock()
	changed := fn()
	snap := r.snapshot()
	r.mu.Unlock()

	if !changed {
		return nil
	}
	if err := r.persist(ctx, snap); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "persist failed")
		return err
	}
	return nil
}

func (r *Repository) persist(ctx context.Context, snap Snapshot) error {
	values := []struct {
		key string
		val any
	}{
		{KeyPrinted, snap.Printed},
		{KeyBacklog, snap.Backlog},
		{KeyCounts, snap.Counts},
	}
	var errs error
	for _, v := range values {
		payload, err := json.Marshal(v.val)
		if err != nil {
			errs = errors.Join(errs, fmt.Errorf("encode %s: %w", v.key, err))
			continue
		}
		if err := r.store.Set(ctx, v.key, string(payload)); err != nil {
			errs = errors.Join(errs, fmt.Errorf("write %s: %w", v.key, err))
		}
	}
	return errs
}

func sortedKeys(set map[string]struct{}) []string {
	out := make([]string, 0, len(set))
	for id := range set {
		out = append(out, id)
	}
	sort.Strings(out)
	return out
}
