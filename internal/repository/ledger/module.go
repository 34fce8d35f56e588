package ledger

import "go.uber.org/fx"

// Module provides the print ledger to Fx.
var Module = fx.Provide(NewRepository)
