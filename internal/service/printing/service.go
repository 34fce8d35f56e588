// Package printing decides whether and when orders are committed to paper and
// keeps the durable record of what was printed and what is backlogged.
package printing

import (
	"context"
	"sort"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.uber.org/fx"
	"go.uber.org/zap"

	"github.com/Additional-Code/printcore/internal/clock"
	"github.com/Additional-Code/printcore/internal/config"
	"github.com/Additional-Code/printcore/internal/connection"
	"github.com/Additional-Code/printcore/internal/entity"
	"github.com/Additional-Code/printcore/internal/repository/ledger"
	"github.com/Additional-Code/printcore/internal/ticket"
)

var serviceTracer = otel.Tracer("github.com/Additional-Code/printcore/service/printing")

const (
	DefaultMaxPrintCount   = 2
	DefaultMaxAutoPrintAge = 10 * time.Minute
	DefaultDuplicateWindow = 10 * time.Second
)

// Link is the part of the connection manager the orchestrator drives.
type Link interface {
	EnsureConnected(ctx context.Context, address string) bool
	Send(ctx context.Context, data []byte) error
	Address() string
}

// Renderer turns an order into device bytes.
type Renderer interface {
	RenderKitchenTicket(o entity.Order) []byte
	RenderCustomerReceipt(o entity.Order) []byte
}

// Settings tunes the orchestrator; zero values fall back to defaults.
type Settings struct {
	AutoPrint       bool
	DefaultKind     Kind
	MaxAutoPrintAge time.Duration
	MaxPrintCount   int
	DuplicateWindow time.Duration
	// Address is the configured printer, used when no link was ever established.
	Address string
	Clock   clock.Clock
	Logger  *zap.Logger
}

type guardKey struct {
	orderID string
	kind    Kind
}

type guardEntry struct {
	at      time.Time
	outcome Outcome
}

// Service is the print orchestrator. It owns the in-flight set, the duplicate
// guard and the order book; durable state lives in the ledger.
type Service struct {
	link     Link
	renderer Renderer
	ledger   *ledger.Repository
	clock    clock.Clock
	logger   *zap.Logger
	metrics  *metrics

	defaultKind Kind
	maxAge      time.Duration
	maxCount    int
	dupWindow   time.Duration
	address     string

	ready     chan struct{}
	readyOnce sync.Once

	mu        sync.Mutex
	autoPrint bool
	inFlight  map[string]struct{}
	guard     map[guardKey]guardEntry
	book      map[string]entity.Order
	known     map[string]bool
	listeners []func()
}

// Params defines dependencies for constructing Service.
type Params struct {
	fx.In

	Config    config.Config
	Logger    *zap.Logger
	Link      *connection.Manager
	Formatter *ticket.Formatter
	Ledger    *ledger.Repository
}

// NewService wires the orchestrator from configuration.
func NewService(p Params) (*Service, error) {
	kind, err := ParseKind(p.Config.Printing.DefaultKind)
	if err != nil {
		return nil, err
	}
	return New(p.Link, p.Formatter, p.Ledger, Settings{
		AutoPrint:       p.Config.Printing.AutoPrint,
		DefaultKind:     kind,
		MaxAutoPrintAge: p.Config.Printing.MaxAutoPrintAge,
		MaxPrintCount:   p.Config.Printing.MaxPrintCount,
		DuplicateWindow: p.Config.Printing.DuplicateWindow,
		Address:         p.Config.Printer.Address,
		Logger:          p.Logger,
	}), nil
}

// New builds an orchestrator. Decisions are held back until Start has
// rehydrated the ledger.
func New(link Link, renderer Renderer, l *ledger.Repository, s Settings) *Service {
	if s.DefaultKind == "" {
		s.DefaultKind = KindKitchen
	}
	if s.MaxAutoPrintAge <= 0 {
		s.MaxAutoPrintAge = DefaultMaxAutoPrintAge
	}
	if s.MaxPrintCount <= 0 {
		s.MaxPrintCount = DefaultMaxPrintCount
	}
	if s.DuplicateWindow <= 0 {
		s.DuplicateWindow = DefaultDuplicateWindow
	}
	if s.Clock == nil {
		s.Clock = clock.New()
	}
	if s.Logger == nil {
		s.Logger = zap.NewNop()
	}
	svc := &Service{
		link:        link,
		renderer:    renderer,
		ledger:      l,
		clock:       s.Clock,
		logger:      s.Logger.Named("printing"),
		defaultKind: s.DefaultKind,
		maxAge:      s.MaxAutoPrintAge,
		maxCount:    s.MaxPrintCount,
		dupWindow:   s.DuplicateWindow,
		address:     s.Address,
		ready:       make(chan struct{}),
		autoPrint:   s.AutoPrint,
		inFlight:    make(map[string]struct{}),
		guard:       make(map[guardKey]guardEntry),
		book:        make(map[string]entity.Order),
		known:       make(map[string]bool),
	}
	svc.metrics = newMetrics(svc.logger, l)
	return svc
}

func registerLifecycle(lc fx.Lifecycle, svc *Service) {
	lc.Append(fx.Hook{
		OnStart: svc.Start,
	})
}

// Start rehydrates the ledger and opens the decision gate. It is safe to call
// more than once; only the first successful load opens the gate.
func (s *Service) Start(ctx context.Context) error {
	select {
	case <-s.ready:
		return nil
	default:
	}
	if err := s.ledger.Load(ctx); err != nil {
		s.logger.Error("print ledger rehydration failed", zap.Error(err))
		return err
	}
	snap := s.ledger.Snapshot()
	s.logger.Info("print ledger rehydrated",
		zap.Int("printed", len(snap.Printed)),
		zap.Int("backlog", len(snap.Backlog)))
	s.readyOnce.Do(func() { close(s.ready) })
	return nil
}

// Ready reports whether the ledger has been rehydrated.
func (s *Service) Ready() bool {
	select {
	case <-s.ready:
		return true
	default:
		return false
	}
}

func (s *Service) waitReady(ctx context.Context) error {
	select {
	case <-s.ready:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// OnChange registers fn to be called after print state changes. Batches
// notify once.
func (s *Service) OnChange(fn func()) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.listeners = append(s.listeners, fn)
}

func (s *Service) notifyChange() {
	s.mu.Lock()
	listeners := append([]func(){}, s.listeners...)
	s.mu.Unlock()
	for _, fn := range listeners {
		fn()
	}
}

// SetAutoPrint toggles unattended printing at runtime.
func (s *Service) SetAutoPrint(enabled bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.autoPrint = enabled
}

// AutoPrintEnabled reports the runtime auto-print flag.
func (s *Service) AutoPrintEnabled() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.autoPrint
}

// DefaultKind is the kind used by auto-print and backlog flushes.
func (s *Service) DefaultKind() Kind { return s.defaultKind }

// Record returns the durable print state of one order.
func (s *Service) Record(orderID string) ledger.Record {
	return s.ledger.Get(orderID)
}

// PrintRecords returns the whole ledger.
func (s *Service) PrintRecords() ledger.Snapshot {
	return s.ledger.Snapshot()
}

// Summary is a point-in-time view of the orchestrator.
type Summary struct {
	Ready       bool     `json:"ready"`
	AutoPrint   bool     `json:"auto_print"`
	DefaultKind Kind     `json:"default_kind"`
	Orders      int      `json:"orders"`
	Unprinted   int      `json:"unprinted"`
	Printed     int      `json:"printed"`
	Backlog     []string `json:"backlog"`
	InFlight    []string `json:"in_flight"`
}

// Status snapshots the orchestrator state.
func (s *Service) Status() Summary {
	snap := s.ledger.Snapshot()
	s.mu.Lock()
	sum := Summary{
		Ready:       s.Ready(),
		AutoPrint:   s.autoPrint,
		DefaultKind: s.defaultKind,
		Orders:      len(s.book),
		Printed:     len(snap.Printed),
		Backlog:     snap.Backlog,
		InFlight:    make([]string, 0, len(s.inFlight)),
	}
	for id := range s.inFlight {
		sum.InFlight = append(sum.InFlight, id)
	}
	s.mu.Unlock()
	sort.Strings(sum.InFlight)
	sum.Unprinted = s.UnprintedCount()
	return sum
}
