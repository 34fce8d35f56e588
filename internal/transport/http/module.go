package http

import (
	"go.uber.org/fx"

	printingtransport "github.com/Additional-Code/printcore/internal/transport/http/printing"
)

// Module aggregates all HTTP transport handlers.
var Module = fx.Options(
	printingtransport.Module,
)
