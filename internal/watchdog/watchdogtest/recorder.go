// Package watchdogtest provides an alerter that records what it was asked to do.
package watchdogtest

import (
	"context"
	"sync"

	"github.com/Additional-Code/printcore/internal/watchdog"
)

// Recorder implements watchdog.Alerter in memory.
type Recorder struct {
	mu     sync.Mutex
	alerts []watchdog.Alert
	clears int
}

// Raise records a.
func (r *Recorder) Raise(_ context.Context, a watchdog.Alert) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.alerts = append(r.alerts, a)
}

// Clear records a clear.
func (r *Recorder) Clear(context.Context) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.clears++
}

// Alerts returns every raised alert in order.
func (r *Recorder) Alerts() []watchdog.Alert {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]watchdog.Alert(nil), r.alerts...)
}

// Levels returns the level of every raised alert in order.
func (r *Recorder) Levels() []watchdog.Level {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]watchdog.Level, len(r.alerts))
	for i, a := range r.alerts {
		out[i] = a.Level
	}
	return out
}

// Clears returns how many times alerting was cleared.
func (r *Recorder) Clears() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.clears
}
