package app

import (
	"go.uber.org/fx"

	"github.com/Additional-Code/printcore/internal/config"
	"github.com/Additional-Code/printcore/internal/connection"
	"github.com/Additional-Code/printcore/internal/database"
	"github.com/Additional-Code/printcore/internal/kvstore"
	"github.com/Additional-Code/printcore/internal/logger"
	"github.com/Additional-Code/printcore/internal/messaging"
	"github.com/Additional-Code/printcore/internal/migration"
	"github.com/Additional-Code/printcore/internal/observability"
	"github.com/Additional-Code/printcore/internal/peripheral"
	"github.com/Additional-Code/printcore/internal/repository/ledger"
	grpcserver "github.com/Additional-Code/printcore/internal/server/grpc"
	httpserver "github.com/Additional-Code/printcore/internal/server/http"
	"github.com/Additional-Code/printcore/internal/service/printing"
	"github.com/Additional-Code/printcore/internal/ticket"
	transporthttp "github.com/Additional-Code/printcore/internal/transport/http"
	"github.com/Additional-Code/printcore/internal/watchdog"
	"github.com/Additional-Code/printcore/internal/worker"
	workerorder "github.com/Additional-Code/printcore/internal/worker/order"
)

// Base provides configuration, logging and telemetry.
var Base = fx.Options(
	config.Module,
	logger.Module,
	observability.Module,
)

// Storage provides the durable print state backend. Migrations are listed
// first so they run before anything reads the store.
var Storage = fx.Options(
	database.Module,
	migration.Module,
	kvstore.Module,
)

// Device provides the printer link.
var Device = fx.Options(
	peripheral.Module,
	connection.Module,
)

// Printing provides ticket rendering, the print ledger, the orchestrator and
// the unprinted-order watchdog.
var Printing = fx.Options(
	ticket.Module,
	ledger.Module,
	printing.Module,
	watchdog.Module,
)

// Core provides the foundational modules shared across executables.
var Core = fx.Options(
	Base,
	Storage,
	Device,
	Printing,
	messaging.Module,
)

// HTTP wires the operator HTTP and health gRPC servers on top of the core
// modules, plus the feed consumer.
var HTTP = fx.Options(
	Core,
	httpserver.Module,
	grpcserver.Module,
	transporthttp.Module,
	worker.Module,
	workerorder.Module,
)

// Worker runs only the feed consumer.
var Worker = fx.Options(
	Core,
	worker.Module,
	workerorder.Module,
)

// Module is the default application wiring.
var Module = HTTP
