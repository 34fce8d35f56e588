package printing

import "go.uber.org/fx"

// Module provides the print orchestrator and rehydrates its ledger on start.
var Module = fx.Options(
	fx.Provide(NewService),
	fx.Invoke(registerLifecycle),
)
