// Package connection owns the lifecycle of the link to the printing peripheral.
package connection

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/fx"
	"go.uber.org/zap"

	"github.com/Additional-Code/printcore/internal/clock"
	"github.com/Additional-Code/printcore/internal/config"
	"github.com/Additional-Code/printcore/internal/entity"
	"github.com/Additional-Code/printcore/internal/peripheral"
)

// State is the recorded state of the printer link.
type State int

const (
	Disconnected State = iota
	Connecting
	Connected
)

func (s State) String() string {
	switch s {
	case Connecting:
		return "connecting"
	case Connected:
		return "connected"
	default:
		return "disconnected"
	}
}

var (
	// ErrNotConnected is returned by Send when the link is not up.
	ErrNotConnected = errors.New("printer not connected")
	// ErrTransmit wraps a peripheral send failure.
	ErrTransmit = errors.New("printer transmit failed")
)

const (
	DefaultCooldown   = 3 * time.Second
	DefaultRetryDelay = 400 * time.Millisecond
)

// Options tunes the manager; zero values fall back to defaults.
type Options struct {
	Cooldown   time.Duration
	RetryDelay time.Duration
	Clock      clock.Clock
	Logger     *zap.Logger
}

// Manager is the single owner of the printer link state.
//
// Reconnects are gated by a cooldown timestamp rather than a lock: a connect
// issued within Cooldown of the previous attempt fails immediately.
type Manager struct {
	dev        peripheral.Peripheral
	clock      clock.Clock
	cooldown   time.Duration
	retryDelay time.Duration
	logger     *zap.Logger

	mu          sync.Mutex
	state       State
	address     string
	lastAttempt time.Time
	listeners   []func(State)

	// sendMu keeps transmits from interleaving on the wire.
	sendMu sync.Mutex
}

// Module provides the connection manager.
var Module = fx.Provide(NewFromConfig)

// NewFromConfig builds a manager from configuration.
func NewFromConfig(cfg config.Config, dev peripheral.Peripheral, logger *zap.Logger) *Manager {
	m := New(dev, Options{
		Cooldown:   cfg.Printer.ConnectCooldown,
		RetryDelay: cfg.Printer.RetryDelay,
		Logger:     logger,
	})
	instrument(m)
	return m
}

// New builds a manager in the Disconnected state.
func New(dev peripheral.Peripheral, opts Options) *Manager {
	if opts.Cooldown <= 0 {
		opts.Cooldown = DefaultCooldown
	}
	if opts.RetryDelay <= 0 {
		opts.RetryDelay = DefaultRetryDelay
	}
	if opts.Clock == nil {
		opts.Clock = clock.New()
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	return &Manager{
		dev:        dev,
		clock:      opts.Clock,
		cooldown:   opts.Cooldown,
		retryDelay: opts.RetryDelay,
		logger:     opts.Logger.Named("connection"),
	}
}

// OnStateChange registers fn to be called after every state transition.
func (m *Manager) OnStateChange(fn func(State)) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.listeners = append(m.listeners, fn)
}

// State returns the recorded link state.
func (m *Manager) State() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

// Address returns the last known-good address, empty when unknown.
func (m *Manager) Address() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.address
}

// Discover lists visible peripherals. Capability failures yield an empty list.
func (m *Manager) Discover(ctx context.Context) []entity.PrinterDevice {
	devices, err := m.dev.Discover(ctx)
	if err != nil {
		m.logger.Warn("printer discovery failed", zap.Error(err))
		return []entity.PrinterDevice{}
	}
	if devices == nil {
		devices = []entity.PrinterDevice{}
	}
	return devices
}

// Connect attempts a fresh connection to address.
func (m *Manager) Connect(ctx context.Context, address string) bool {
	if address == "" {
		m.logger.Warn("connect requested without a printer address")
		return false
	}

	m.mu.Lock()
	now := m.clock.Now()
	if !m.lastAttempt.IsZero() && now.Sub(m.lastAttempt) < m.cooldown {
		m.mu.Unlock()
		m.logger.Debug("connect suppressed by cooldown",
			zap.String("address", address),
			zap.Duration("since_last", now.Sub(m.lastAttempt)))
		return false
	}
	m.lastAttempt = now
	prev := m.state
	m.state = Connecting
	m.mu.Unlock()
	if prev != Connecting {
		m.notify(Connecting)
	}

	err := m.dev.Connect(ctx, address)

	m.mu.Lock()
	if err != nil {
		m.state = Disconnected
		m.address = ""
	} else {
		m.state = Connected
		m.address = address
	}
	m.mu.Unlock()

	if err != nil {
		m.logger.Warn("printer connect failed", zap.String("address", address), zap.Error(err))
		m.notify(Disconnected)
		return false
	}
	m.logger.Info("printer connected", zap.String("address", address))
	m.notify(Connected)
	return true
}

// Verify reports the recorded link state without probing the device; probing
// would race with an in-flight print.
func (m *Manager) Verify() bool {
	return m.State() == Connected
}

// EnsureConnected returns true when the link is up, otherwise connects to
// address (or the last known-good address) and retries once after RetryDelay.
// The retry is an ordinary Connect and is subject to the cooldown, so a
// dead printer sees at most one attempt per cooldown window.
func (m *Manager) EnsureConnected(ctx context.Context, address string) bool {
	if m.Verify() {
		return true
	}
	if address == "" {
		address = m.Address()
	}
	if address == "" {
		return false
	}
	if m.Connect(ctx, address) {
		return true
	}
	if err := m.clock.Sleep(ctx, m.retryDelay); err != nil {
		return false
	}
	return m.Connect(ctx, address)
}

// Disconnect closes the link. It is idempotent and always ends Disconnected.
func (m *Manager) Disconnect(ctx context.Context) {
	if err := m.dev.Disconnect(ctx); err != nil {
		m.logger.Debug("printer disconnect reported an error", zap.Error(err))
	}
	m.demote()
}

// Send transmits data over the live link. A failed transmit is treated as
// proof of disconnection and demotes the state to Disconnected.
func (m *Manager) Send(ctx context.Context, data []byte) error {
	m.sendMu.Lock()
	defer m.sendMu.Unlock()

	if !m.Verify() {
		return ErrNotConnected
	}
	if err := m.dev.Send(ctx, data); err != nil {
		m.logger.Warn("printer transmit failed; marking link down", zap.Int("bytes", len(data)), zap.Error(err))
		m.demote()
		return fmt.Errorf("%w: %w", ErrTransmit, err)
	}
	return nil
}

func (m *Manager) demote() {
	m.mu.Lock()
	changed := m.state != Disconnected
	m.state = Disconnected
	m.mu.Unlock()
	if changed {
		m.notify(Disconnected)
	}
}

func (m *Manager) notify(s State) {
	m.mu.Lock()
	listeners := append([]func(State){}, m.listeners...)
	m.mu.Unlock()
	for _, fn := range listeners {
		fn(s)
	}
}
