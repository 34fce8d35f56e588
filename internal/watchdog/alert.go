package watchdog

import (
	"context"
	"time"

	"go.uber.org/zap"
)

// Level grades how insistent an alert is.
type Level string

const (
	// LevelUrgent fires on the first unprinted order of a session and on every increase.
	LevelUrgent Level = "urgent"
	// LevelReminder repeats each interval while orders stay unprinted.
	LevelReminder Level = "reminder"
)

// Alert is one operator-facing escalation.
type Alert struct {
	Level   Level     `json:"level"`
	Count   int       `json:"count"`
	Sound   bool      `json:"sound"`
	Vibrate bool      `json:"vibrate"`
	Banner  string    `json:"banner"`
	At      time.Time `json:"at"`
}

// Alerter performs the sound, vibration and banner side effects.
type Alerter interface {
	Raise(ctx context.Context, a Alert)
	Clear(ctx context.Context)
}

// LogAlerter surfaces alerts through the structured log, for headless runs.
type LogAlerter struct {
	logger *zap.Logger
}

// NewLogAlerter builds an alerter writing to logger.
func NewLogAlerter(logger *zap.Logger) *LogAlerter {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &LogAlerter{logger: logger.Named("alerts")}
}

// Raise logs the alert; urgent alerts log at warn level.
func (l *LogAlerter) Raise(_ context.Context, a Alert) {
	fields := []zap.Field{
		zap.String("level", string(a.Level)),
		zap.Int("unprinted", a.Count),
		zap.Bool("sound", a.Sound),
		zap.Bool("vibrate", a.Vibrate),
	}
	if a.Level == LevelUrgent {
		l.logger.Warn(a.Banner, fields...)
		return
	}
	l.logger.Info(a.Banner, fields...)
}

// Clear logs that alerting stopped.
func (l *LogAlerter) Clear(context.Context) {
	l.logger.Info("all orders printed; alerts cleared")
}
