// Package watchdog escalates operator alerts while orders sit unprinted.
package watchdog

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/Additional-Code/printcore/internal/clock"
)

// DefaultInterval is the reminder period.
const DefaultInterval = time.Minute

// Source reports how many orders are new-ish and not yet printed.
type Source interface {
	UnprintedCount() int
}

// Options tunes the watchdog; zero values fall back to defaults.
type Options struct {
	Enabled  bool
	Interval time.Duration
	Clock    clock.Clock
	Logger   *zap.Logger
}

// State is the observable alerting state.
type State struct {
	Enabled   bool      `json:"enabled"`
	Alerting  bool      `json:"alerting"`
	Count     int       `json:"count"`
	LastAlert time.Time `json:"last_alert,omitempty"`
}

// Watchdog evaluates the unprinted count on a fixed interval and whenever it
// is notified of a change.
type Watchdog struct {
	source   Source
	alerter  Alerter
	interval time.Duration
	clock    clock.Clock
	logger   *zap.Logger

	mu        sync.Mutex
	enabled   bool
	alerted   bool
	lastCount int
	lastAlert time.Time
}

// New builds a watchdog.
func New(source Source, alerter Alerter, opts Options) *Watchdog {
	if opts.Interval <= 0 {
		opts.Interval = DefaultInterval
	}
	if opts.Clock == nil {
		opts.Clock = clock.New()
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	return &Watchdog{
		source:   source,
		alerter:  alerter,
		interval: opts.Interval,
		clock:    opts.Clock,
		logger:   opts.Logger.Named("watchdog"),
		enabled:  opts.Enabled,
	}
}

// Notify re-evaluates immediately after a print state change. It raises an
// urgent alert when the count first turns positive or grows.
func (w *Watchdog) Notify(ctx context.Context) {
	w.evaluate(ctx, false)
}

// Tick runs one periodic evaluation: like Notify, plus a reminder while the
// count stays positive.
func (w *Watchdog) Tick(ctx context.Context) {
	w.evaluate(ctx, true)
}

func (w *Watchdog) evaluate(ctx context.Context, periodic bool) {
	count := w.source.UnprintedCount()

	w.mu.Lock()
	if !w.enabled {
		w.mu.Unlock()
		return
	}
	var (
		raise *Alert
		clear bool
	)
	switch {
	case count <= 0:
		clear = w.alerted
		w.alerted = false
		w.lastCount = 0
	case !w.alerted || count > w.lastCount:
		raise = w.alert(LevelUrgent, count)
	case periodic:
		raise = w.alert(LevelReminder, count)
	default:
		w.lastCount = count
	}
	w.mu.Unlock()

	if raise != nil {
		w.alerter.Raise(ctx, *raise)
	}
	if clear {
		w.alerter.Clear(ctx)
	}
}

// alert records an escalation. Callers hold w.mu.
func (w *Watchdog) alert(level Level, count int) *Alert {
	now := w.clock.Now()
	w.alerted = true
	w.lastCount = count
	w.lastAlert = now
	a := &Alert{Level: level, Count: count, Sound: true, At: now}
	noun := "orders"
	if count == 1 {
		noun = "order"
	}
	switch level {
	case LevelUrgent:
		a.Vibrate = true
		a.Banner = fmt.Sprintf("%d unprinted %s need attention", count, noun)
	default:
		a.Banner = fmt.Sprintf("reminder: %d %s still unprinted", count, noun)
	}
	return a
}

// SetEnabled toggles alerting. Disabling forgets earlier alerts so that
// re-enabling starts a fresh session.
func (w *Watchdog) SetEnabled(enabled bool) {
	w.mu.Lock()
	wasAlerting := w.alerted
	w.enabled = enabled
	if !enabled {
		w.alerted = false
		w.lastCount = 0
	}
	w.mu.Unlock()

	w.logger.Info("alerts toggled", zap.Bool("enabled", enabled))
	if !enabled && wasAlerting {
		w.alerter.Clear(context.Background())
	}
}

// State snapshots the alerting state.
func (w *Watchdog) State() State {
	w.mu.Lock()
	defer w.mu.Unlock()
	return State{Enabled: w.enabled, Alerting: w.alerted, Count: w.lastCount, LastAlert: w.lastAlert}
}

// Run ticks every interval until ctx is done.
func (w *Watchdog) Run(ctx context.Context) {
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()
	w.logger.Info("watchdog started", zap.Duration("interval", w.interval))
	for {
		select {
		case <-ctx.Done():
			w.logger.Info("watchdog stopped")
			return
		case <-ticker.C:
			w.Tick(ctx)
		}
	}
}
