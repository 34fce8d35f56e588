// Package peripheral provides the printing peripheral capability: discover,
// connect, send raw bytes and disconnect. Failures are returned as errors and
// are converted to boolean outcomes by the connection manager.
package peripheral

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/fx"
	"go.uber.org/zap"

	"github.com/Additional-Code/printcore/internal/config"
	"github.com/Additional-Code/printcore/internal/entity"
)

// Peripheral is the connection-oriented printing device capability.
type Peripheral interface {
	Discover(ctx context.Context) ([]entity.PrinterDevice, error)
	Connect(ctx context.Context, address string) error
	Send(ctx context.Context, data []byte) error
	Disconnect(ctx context.Context) error
}

// Module provides the configured peripheral driver.
var Module = fx.Provide(New)

// New selects the peripheral driver from configuration.
func New(cfg config.Config, logger *zap.Logger) (Peripheral, error) {
	candidates := ParseCandidates(cfg.Printer.Candidates)
	if cfg.Printer.Address != "" && !containsAddress(candidates, cfg.Printer.Address) {
		candidates = append(candidates, entity.PrinterDevice{Name: cfg.Printer.Name, Address: cfg.Printer.Address})
	}

	switch cfg.Printer.Driver {
	case "tcp":
		return NewTCP(candidates, cfg.Printer.DialTimeout, logger), nil
	case "file":
		return NewFile(candidates), nil
	default:
		return nil, fmt.Errorf("unsupported printer driver: %s", cfg.Printer.Driver)
	}
}

// ParseCandidates turns "name=address" (or bare "address") entries into devices.
func ParseCandidates(raw []string) []entity.PrinterDevice {
	devices := make([]entity.PrinterDevice, 0, len(raw))
	for _, item := range raw {
		name, address, found := strings.Cut(item, "=")
		if !found {
			address = name
		}
		name = strings.TrimSpace(name)
		address = strings.TrimSpace(address)
		if address == "" {
			continue
		}
		devices = append(devices, entity.PrinterDevice{Name: name, Address: address})
	}
	return devices
}

func containsAddress(devices []entity.PrinterDevice, address string) bool {
	for _, d := range devices {
		if d.Address == address {
			return true
		}
	}
	return false
}
