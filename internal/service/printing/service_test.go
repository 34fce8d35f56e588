package printing_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Additional-Code/printcore/internal/clock"
	"github.com/Additional-Code/printcore/internal/connection"
	"github.com/Additional-Code/printcore/internal/entity"
	"github.com/Additional-Code/printcore/internal/kvstore"
	"github.com/Additional-Code/printcore/internal/peripheral/peripheraltest"
	"github.com/Additional-Code/printcore/internal/repository/ledger"
	"github.com/Additional-Code/printcore/internal/service/printing"
	"github.com/Additional-Code/printcore/internal/ticket"
	"github.com/Additional-Code/printcore/internal/watchdog"
	"github.com/Additional-Code/printcore/internal/watchdog/watchdogtest"
	"github.com/Additional-Code/printcore/pkg/errorbank"
)

const printerAddr = "10.0.0.20:9100"

var start = time.Date(2024, 5, 1, 18, 0, 0, 0, time.UTC)

type harness struct {
	svc       *printing.Service
	dev       *peripheraltest.Fake
	link      *connection.Manager
	clk       *clock.Fake
	store     *kvstore.Memory
	formatter *ticket.Formatter
}

func newHarness(t *testing.T, connected bool) *harness {
	t.Helper()
	ctx := context.Background()
	h := &harness{
		dev:       &peripheraltest.Fake{},
		clk:       clock.NewFake(start),
		store:     kvstore.NewMemory(),
		formatter: ticket.New(ticket.DefaultLayout()),
	}
	h.link = connection.New(h.dev, connection.Options{Clock: h.clk})
	if connected {
		require.True(t, h.link.Connect(ctx, printerAddr))
	}
	h.svc = printing.New(h.link, h.formatter, ledger.NewRepository(h.store), printing.Settings{
		AutoPrint: true,
		Address:   printerAddr,
		Clock:     h.clk,
	})
	require.NoError(t, h.svc.Start(ctx))
	return h
}

func order(id string, created time.Time) entity.Order {
	return entity.Order{
		ID:        id,
		Number:    id,
		Type:      entity.TypePickup,
		Status:    entity.StatusPending,
		CreatedAt: created,
		Items:     []entity.Item{{Name: "Burger", Quantity: 1, UnitPrice: 900}},
		Totals:    entity.Totals{Subtotal: 900, Total: 900},
	}
}

func TestRequestPrintCommitsSuccess(t *testing.T) {
	h := newHarness(t, true)
	o := order("o1", start.Add(-time.Minute))

	out := h.svc.RequestPrint(context.Background(), o, printing.KindKitchen, printing.Options{})

	require.True(t, out.Printed(), "outcome %+v", out)
	assert.Equal(t, 1, out.PrintCount)
	assert.NotEmpty(t, out.JobID)
	assert.NoError(t, out.Err())
	assert.Equal(t, ledger.Record{OrderID: "o1", Printed: true, PrintCount: 1}, h.svc.Record("o1"))
	require.Equal(t, 1, h.dev.SendCount())
	assert.Equal(t, h.formatter.RenderKitchenTicket(o), h.dev.Sent()[0])
}

func TestRequestPrintUsesDefaultKind(t *testing.T) {
	h := newHarness(t, true)
	out := h.svc.RequestPrint(context.Background(), order("o1", start), "", printing.Options{})
	assert.Equal(t, printing.KindKitchen, out.Kind)
	assert.True(t, out.Printed())
}

func TestDuplicateGuardSuppressesSecondTransmit(t *testing.T) {
	h := newHarness(t, true)
	ctx := context.Background()
	o := order("o1", start)

	first := h.svc.RequestPrint(ctx, o, printing.KindKitchen, printing.Options{})
	h.clk.Advance(5 * time.Second)
	second := h.svc.RequestPrint(ctx, o, printing.KindKitchen, printing.Options{})

	assert.True(t, first.Printed())
	assert.True(t, second.Printed())
	assert.True(t, second.Duplicate)
	assert.Equal(t, first.JobID, second.JobID)
	assert.Equal(t, 1, h.dev.SendCount())
	assert.Equal(t, 1, h.svc.Record("o1").PrintCount)

	h.clk.Advance(6 * time.Second)
	third := h.svc.RequestPrint(ctx, o, printing.KindKitchen, printing.Options{})
	assert.True(t, third.Printed())
	assert.False(t, third.Duplicate)
	assert.Equal(t, 2, h.dev.SendCount())
	assert.Equal(t, 2, third.PrintCount)
}

func TestDuplicateGuardIsPerKind(t *testing.T) {
	h := newHarness(t, true)
	ctx := context.Background()
	o := order("o1", start)

	h.svc.RequestPrint(ctx, o, printing.KindKitchen, printing.Options{})
	out := h.svc.RequestPrint(ctx, o, printing.KindReceipt, printing.Options{})

	assert.False(t, out.Duplicate)
	assert.Equal(t, 2, h.dev.SendCount())
}

func TestReprintCeilingRequiresOverride(t *testing.T) {
	h := newHarness(t, true)
	ctx := context.Background()
	o := order("o1", start)

	for i := 0; i < 2; i++ {
		require.True(t, h.svc.RequestPrint(ctx, o, printing.KindKitchen, printing.Options{}).Printed())
		h.clk.Advance(11 * time.Second)
	}

	blocked := h.svc.RequestPrint(ctx, o, printing.KindKitchen, printing.Options{})
	assert.Equal(t, printing.StatusConfirmationRequired, blocked.Status)
	assert.Equal(t, 2, blocked.PrintCount)
	assert.Equal(t, 2, h.dev.SendCount())
	assert.Equal(t, errorbank.KindReprintConfirmation, errorbank.From(blocked.Err()).Kind())

	forced := h.svc.RequestPrint(ctx, o, printing.KindKitchen, printing.Options{Override: true})
	assert.True(t, forced.Printed())
	assert.Equal(t, 3, forced.PrintCount)

	h.clk.Advance(11 * time.Second)
	again := h.svc.RequestPrint(ctx, o, printing.KindKitchen, printing.Options{})
	assert.Equal(t, printing.StatusConfirmationRequired, again.Status, "override applies once")
}

func TestBothPrintsKitchenThenReceipt(t *testing.T) {
	h := newHarness(t, true)
	o := order("o1", start)

	out := h.svc.RequestPrint(context.Background(), o, printing.KindBoth, printing.Options{})

	require.True(t, out.Printed())
	assert.Equal(t, 1, out.PrintCount)
	sent := h.dev.Sent()
	require.Len(t, sent, 2)
	assert.Equal(t, h.formatter.RenderKitchenTicket(o), sent[0])
	assert.Equal(t, h.formatter.RenderCustomerReceipt(o), sent[1])
}

func TestTransmitFailureBacklogsAndDemotes(t *testing.T) {
	h := newHarness(t, true)
	h.dev.SetSendErr(errors.New("paper jam"))

	out := h.svc.RequestPrint(context.Background(), order("o1", start), printing.KindBoth, printing.Options{})

	assert.Equal(t, printing.StatusFailed, out.Status)
	assert.Equal(t, printing.ReasonDeviceError, out.Reason)
	assert.False(t, out.Partial)
	assert.ErrorIs(t, out.Cause(), connection.ErrTransmit)
	assert.Equal(t, ledger.Record{OrderID: "o1", Backlogged: true}, h.svc.Record("o1"))
	assert.Equal(t, connection.Disconnected, h.link.State())
	assert.Equal(t, errorbank.KindDeviceError, errorbank.From(out.Err()).Kind())
}

func TestNotConnectedBacklogs(t *testing.T) {
	h := newHarness(t, false)
	h.dev.SetConnectErr(peripheraltest.ErrUnavailable)

	out := h.svc.RequestPrint(context.Background(), order("o1", start), printing.KindKitchen, printing.Options{})

	assert.Equal(t, printing.ReasonNotConnected, out.Reason)
	assert.Equal(t, []string{printerAddr}, h.dev.ConnectCalls())
	assert.Zero(t, h.dev.SendCount())
	assert.Equal(t, []string{"o1"}, h.svc.PrintRecords().Backlog)
	appErr := errorbank.From(out.Err())
	assert.Equal(t, errorbank.KindNotConnected, appErr.Kind())
	assert.True(t, appErr.Retryable())
}

func TestFailedReprintKeepsOrderOffBacklog(t *testing.T) {
	h := newHarness(t, true)
	ctx := context.Background()
	o := order("o1", start)

	require.True(t, h.svc.RequestPrint(ctx, o, printing.KindKitchen, printing.Options{}).Printed())
	h.clk.Advance(11 * time.Second)
	h.dev.SetSendErr(errors.New("out of paper"))

	out := h.svc.RequestPrint(ctx, o, printing.KindKitchen, printing.Options{})
	assert.Equal(t, printing.StatusFailed, out.Status)
	assert.Equal(t, ledger.Record{OrderID: "o1", Printed: true, PrintCount: 1}, h.svc.Record("o1"))
}

func TestTooOldAutoPrintGoesToBacklog(t *testing.T) {
	h := newHarness(t, true)
	o := order("old", start.Add(-15*time.Minute))

	out := h.svc.RequestPrint(context.Background(), o, printing.KindKitchen, printing.Options{Auto: true})

	assert.Equal(t, printing.ReasonTooOld, out.Reason)
	assert.Zero(t, h.dev.SendCount())
	rec := h.svc.Record("old")
	assert.False(t, rec.Printed)
	assert.True(t, rec.Backlogged)
	assert.Equal(t, errorbank.KindTooOld, errorbank.From(out.Err()).Kind())

	manual := h.svc.RequestPrint(context.Background(), o, printing.KindKitchen, printing.Options{})
	assert.True(t, manual.Printed(), "operator prints are not age limited")
	assert.False(t, h.svc.Record("old").Backlogged)
}

func TestInvalidKind(t *testing.T) {
	h := newHarness(t, true)
	out := h.svc.RequestPrint(context.Background(), order("o1", start), printing.Kind("label"), printing.Options{})
	assert.Equal(t, printing.ReasonInvalidKind, out.Reason)
	assert.Equal(t, errorbank.KindBadRequest, errorbank.From(out.Err()).Kind())
	assert.False(t, h.svc.Record("o1").Backlogged)
}

// gateLink blocks every transmit until released.
type gateLink struct {
	entered chan struct{}
	release chan struct{}
	mu      sync.Mutex
	sends   int
}

func (g *gateLink) EnsureConnected(context.Context, string) bool { return true }
func (g *gateLink) Address() string                              { return printerAddr }

func (g *gateLink) Send(context.Context, []byte) error {
	g.mu.Lock()
	g.sends++
	g.mu.Unlock()
	g.entered <- struct{}{}
	<-g.release
	return nil
}

func TestConcurrentRequestIsRejected(t *testing.T) {
	ctx := context.Background()
	link := &gateLink{entered: make(chan struct{}), release: make(chan struct{})}
	svc := printing.New(link, ticket.New(ticket.DefaultLayout()), ledger.NewRepository(kvstore.NewMemory()), printing.Settings{Clock: clock.NewFake(start)})
	require.NoError(t, svc.Start(ctx))
	o := order("o1", start)

	done := make(chan printing.Outcome, 1)
	go func() { done <- svc.RequestPrint(ctx, o, printing.KindKitchen, printing.Options{}) }()
	<-link.entered

	second := svc.RequestPrint(ctx, o, printing.KindKitchen, printing.Options{})
	assert.Equal(t, printing.StatusInProgress, second.Status)
	assert.Equal(t, errorbank.KindConflict, errorbank.From(second.Err()).Kind())
	assert.Equal(t, []string{"o1"}, svc.Status().InFlight)

	close(link.release)
	first := <-done
	assert.True(t, first.Printed())
	assert.Equal(t, 1, link.sends)
	assert.Empty(t, svc.Status().InFlight)
}

// scriptedLink fails transmits according to errs, one entry per call.
type scriptedLink struct {
	errs []error
	sent int
}

func (s *scriptedLink) EnsureConnected(context.Context, string) bool { return true }
func (s *scriptedLink) Address() string                              { return printerAddr }

func (s *scriptedLink) Send(context.Context, []byte) error {
	var err error
	if len(s.errs) > 0 {
		err, s.errs = s.errs[0], s.errs[1:]
	}
	if err == nil {
		s.sent++
	}
	return err
}

func TestReceiptFailureAfterKitchenCountsThePrint(t *testing.T) {
	ctx := context.Background()
	link := &scriptedLink{errs: []error{nil, errors.New("receipt lost")}}
	svc := printing.New(link, ticket.New(ticket.DefaultLayout()), ledger.NewRepository(kvstore.NewMemory()), printing.Settings{Clock: clock.NewFake(start)})
	require.NoError(t, svc.Start(ctx))

	out := svc.RequestPrint(ctx, order("o1", start), printing.KindBoth, printing.Options{})

	assert.Equal(t, printing.StatusFailed, out.Status)
	assert.Equal(t, printing.ReasonDeviceError, out.Reason)
	assert.True(t, out.Partial)
	assert.Equal(t, 1, out.PrintCount)
	assert.Equal(t, ledger.Record{OrderID: "o1", Printed: true, PrintCount: 1}, svc.Record("o1"))
	assert.Equal(t, 1, link.sent)
}

func TestDecisionsWaitForRehydration(t *testing.T) {
	store := kvstore.NewMemory()
	require.NoError(t, store.Set(context.Background(), ledger.KeyPrinted, `["o1"]`))
	require.NoError(t, store.Set(context.Background(), ledger.KeyCounts, `{"o1":1}`))
	dev := &peripheraltest.Fake{}
	clk := clock.NewFake(start)
	link := connection.New(dev, connection.Options{Clock: clk})
	svc := printing.New(link, ticket.New(ticket.DefaultLayout()), ledger.NewRepository(store), printing.Settings{AutoPrint: true, Address: printerAddr, Clock: clk})

	assert.False(t, svc.Ready())
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	_, err := svc.AutoPrint(ctx, []entity.Order{order("o1", start)})
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Zero(t, dev.SendCount())

	require.NoError(t, svc.Start(context.Background()))
	assert.True(t, svc.Ready())
	batch, err := svc.AutoPrint(context.Background(), []entity.Order{order("o1", start)})
	require.NoError(t, err)
	assert.Empty(t, batch.ToAutoPrint)
	require.Len(t, batch.Skipped, 1)
	assert.Zero(t, dev.SendCount())
}

func TestEvaluateIncomingOrders(t *testing.T) {
	h := newHarness(t, true)
	ctx := context.Background()

	printed := order("printed", start)
	require.True(t, h.svc.RequestPrint(ctx, printed, printing.KindKitchen, printing.Options{}).Printed())

	fresh := order("fresh", start.Add(-2*time.Minute))
	old := order("old", start.Add(-15*time.Minute))
	seen := order("seen", start)
	preparing := order("preparing", start)
	preparing.Status = entity.StatusPreparing
	confirmed := order("confirmed", start)
	confirmed.Status = entity.StatusConfirmed

	ev := h.svc.EvaluateIncomingOrders(
		[]entity.Order{printed, fresh, old, seen, preparing, confirmed},
		map[string]bool{"seen": true},
	)

	assert.Equal(t, []string{"fresh", "confirmed"}, ids(ev.ToAutoPrint))
	assert.Equal(t, []string{"old"}, ids(ev.ToBacklog))
	assert.Equal(t, []string{"printed"}, ids(ev.Skipped))
}

func TestAutoPrintRoutesOldOrdersToBacklog(t *testing.T) {
	h := newHarness(t, true)
	old := order("old", start.Add(-15*time.Minute))

	batch, err := h.svc.AutoPrint(context.Background(), []entity.Order{old})
	require.NoError(t, err)

	require.Len(t, batch.Outcomes, 1)
	assert.Equal(t, printing.ReasonTooOld, batch.Outcomes[0].Reason)
	rec := h.svc.Record("old")
	assert.False(t, rec.Printed)
	assert.True(t, rec.Backlogged)
	assert.Zero(t, h.dev.SendCount())
}

func TestAutoPrintOnlyNewlySeenOrders(t *testing.T) {
	h := newHarness(t, true)
	ctx := context.Background()
	orders := []entity.Order{order("a", start), order("b", start)}

	first, err := h.svc.AutoPrint(ctx, orders)
	require.NoError(t, err)
	assert.Len(t, first.Outcomes, 2)

	orders = append(orders, order("c", start))
	second, err := h.svc.AutoPrint(ctx, orders)
	require.NoError(t, err)
	assert.Equal(t, []string{"c"}, ids(second.ToAutoPrint))
	assert.Equal(t, 3, h.dev.SendCount())
	assert.Zero(t, h.svc.UnprintedCount())
}

func TestAutoPrintDisabledLeavesOrdersUnprinted(t *testing.T) {
	h := newHarness(t, true)
	h.svc.SetAutoPrint(false)

	batch, err := h.svc.AutoPrint(context.Background(), []entity.Order{order("a", start)})
	require.NoError(t, err)

	assert.Len(t, batch.ToAutoPrint, 1)
	assert.Empty(t, batch.Outcomes)
	assert.Zero(t, h.dev.SendCount())
	assert.Equal(t, 1, h.svc.UnprintedCount())
	assert.False(t, h.svc.Record("a").Backlogged)
}

func TestFlushBacklog(t *testing.T) {
	h := newHarness(t, false)
	ctx := context.Background()
	h.dev.SetConnectErr(peripheraltest.ErrUnavailable)

	_, err := h.svc.AutoPrint(ctx, []entity.Order{order("a", start), order("b", start)})
	require.NoError(t, err)
	require.Equal(t, []string{"a", "b"}, h.svc.PrintRecords().Backlog)

	h.dev.SetConnectErr(nil)
	h.clk.Advance(5 * time.Second)
	outcomes, err := h.svc.FlushBacklog(ctx, printing.KindKitchen)
	require.NoError(t, err)

	require.Len(t, outcomes, 2)
	for _, out := range outcomes {
		assert.True(t, out.Printed(), "%+v", out)
	}
	assert.Empty(t, h.svc.PrintRecords().Backlog)
	assert.Equal(t, 2, h.dev.SendCount())
}

func TestDismissBacklog(t *testing.T) {
	h := newHarness(t, false)
	ctx := context.Background()
	h.dev.SetConnectErr(peripheraltest.ErrUnavailable)
	h.svc.RequestPrint(ctx, order("a", start), printing.KindKitchen, printing.Options{})

	require.NoError(t, h.svc.DismissBacklog(ctx, "a"))
	assert.Empty(t, h.svc.PrintRecords().Backlog)

	err := h.svc.DismissBacklog(ctx, "a")
	assert.Equal(t, errorbank.KindNotFound, errorbank.From(err).Kind())
}

// Printer offline while three pending orders arrive, then back online.
func TestDisconnectedArrivalThenRecovery(t *testing.T) {
	h := newHarness(t, false)
	ctx := context.Background()
	h.dev.SetConnectErr(peripheraltest.ErrUnavailable)

	alerts := &watchdogtest.Recorder{}
	wd := watchdog.New(h.svc, alerts, watchdog.Options{Enabled: true, Clock: h.clk})
	h.svc.OnChange(func() { wd.Notify(ctx) })

	orders := []entity.Order{
		order("o1", start.Add(-1*time.Minute)),
		order("o2", start.Add(-2*time.Minute)),
		order("o3", start.Add(-3*time.Minute)),
	}
	batch, err := h.svc.AutoPrint(ctx, orders)
	require.NoError(t, err)

	for _, out := range batch.Outcomes {
		assert.Equal(t, printing.ReasonNotConnected, out.Reason)
	}
	assert.Equal(t, []string{"o1", "o2", "o3"}, h.svc.PrintRecords().Backlog)
	assert.Zero(t, h.dev.SendCount())
	require.Len(t, alerts.Alerts(), 1)
	assert.Equal(t, watchdog.LevelUrgent, alerts.Alerts()[0].Level)
	assert.Equal(t, 3, alerts.Alerts()[0].Count)

	h.dev.SetConnectErr(nil)
	h.clk.Advance(5 * time.Second)
	for _, o := range orders {
		require.True(t, h.link.EnsureConnected(ctx, printerAddr))
		require.True(t, h.svc.RequestPrint(ctx, o, printing.KindKitchen, printing.Options{}).Printed())
	}

	assert.Empty(t, h.svc.PrintRecords().Backlog)
	for _, o := range orders {
		assert.Equal(t, 1, h.svc.Record(o.ID).PrintCount)
	}
	assert.Equal(t, 3, h.dev.SendCount())
	assert.Len(t, alerts.Alerts(), 1)
	assert.Equal(t, 1, alerts.Clears())
}

func TestStatusSummary(t *testing.T) {
	h := newHarness(t, true)
	ctx := context.Background()
	_, err := h.svc.AutoPrint(ctx, []entity.Order{order("a", start), order("old", start.Add(-time.Hour))})
	require.NoError(t, err)

	sum := h.svc.Status()
	assert.True(t, sum.Ready)
	assert.True(t, sum.AutoPrint)
	assert.Equal(t, printing.KindKitchen, sum.DefaultKind)
	assert.Equal(t, 2, sum.Orders)
	assert.Equal(t, 1, sum.Printed)
	assert.Equal(t, 1, sum.Unprinted)
	assert.Equal(t, []string{"old"}, sum.Backlog)
}

func TestParseKind(t *testing.T) {
	k, err := printing.ParseKind(" Both ")
	require.NoError(t, err)
	assert.Equal(t, printing.KindBoth, k)

	_, err = printing.ParseKind("label")
	assert.Error(t, err)
}

func ids(orders []entity.Order) []string {
	out := make([]string, len(orders))
	for i, o := range orders {
		out[i] = o.ID
	}
	return out
}
