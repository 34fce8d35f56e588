package watchdog

import (
	"context"

	"go.uber.org/fx"
	"go.uber.org/zap"

	"github.com/Additional-Code/printcore/internal/config"
	"github.com/Additional-Code/printcore/internal/service/printing"
)

// Module provides the watchdog and runs it for the application lifetime.
var Module = fx.Options(
	fx.Provide(NewFromConfig),
	fx.Invoke(registerLifecycle),
)

// NewFromConfig builds a watchdog over the print orchestrator that logs its alerts.
func NewFromConfig(cfg config.Config, svc *printing.Service, logger *zap.Logger) *Watchdog {
	return New(svc, NewLogAlerter(logger), Options{
		Enabled:  cfg.Alerts.Enabled,
		Interval: cfg.Alerts.Interval,
		Logger:   logger,
	})
}

func registerLifecycle(lc fx.Lifecycle, w *Watchdog, svc *printing.Service) {
	svc.OnChange(func() { w.Notify(context.Background()) })

	var (
		cancel context.CancelFunc
		done   = make(chan struct{})
	)
	lc.Append(fx.Hook{
		OnStart: func(context.Context) error {
			var ctx context.Context
			ctx, cancel = context.WithCancel(context.Background())
			go func() {
				defer close(done)
				w.Run(ctx)
			}()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			if cancel == nil {
				return nil
			}
			cancel()
			select {
			case <-done:
				return nil
			case <-ctx.Done():
				return ctx.Err()
			}
		},
	})
}
