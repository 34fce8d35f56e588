package printing

import (
	"strings"

	"github.com/labstack/echo/v4"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/Additional-Code/printcore/internal/config"
	"github.com/Additional-Code/printcore/internal/connection"
	"github.com/Additional-Code/printcore/internal/dto"
	"github.com/Additional-Code/printcore/internal/entity"
	"github.com/Additional-Code/printcore/internal/presentation/http/response"
	service "github.com/Additional-Code/printcore/internal/service/printing"
	"github.com/Additional-Code/printcore/internal/watchdog"
	"github.com/Additional-Code/printcore/pkg/errorbank"
)

var httpTracer = otel.Tracer("github.com/Additional-Code/printcore/transport/http/printing")

// Handler exposes the operator endpoints over HTTP.
type Handler struct {
	svc      *service.Service
	link     *connection.Manager
	watchdog *watchdog.Watchdog
	address  string
}

// NewHandler constructs a printing Handler.
func NewHandler(cfg config.Config, svc *service.Service, link *connection.Manager, w *watchdog.Watchdog) *Handler {
	return &Handler{svc: svc, link: link, watchdog: w, address: cfg.Printer.Address}
}

// Register routes with provided Echo instance.
func Register(e *echo.Echo, h *Handler) {
	e.GET("/status", h.status)

	p := e.Group("/printer")
	p.GET("", h.printer)
	p.GET("/devices", h.devices)
	p.POST("/connect", h.connect)
	p.POST("/disconnect", h.disconnect)

	e.GET("/prints", h.prints)

	o := e.Group("/orders")
	o.POST("/snapshot", h.snapshot)
	o.POST("/:id/print", h.print)

	b := e.Group("/backlog")
	b.POST("/flush", h.flush)
	b.DELETE("/:id", h.dismiss)

	e.PUT("/alerts", h.alerts)
	e.PUT("/auto-print", h.autoPrint)
}

func (h *Handler) printerStatus() dto.PrinterStatus {
	state := h.link.State()
	return dto.PrinterStatus{
		State:     state.String(),
		Address:   h.link.Address(),
		Connected: state == connection.Connected,
	}
}

func (h *Handler) status(c echo.Context) error {
	return response.New(c).WithData(dto.StatusResponse{
		Printer:  h.printerStatus(),
		Printing: h.svc.Status(),
		Alerts:   h.watchdog.State(),
	}).Build()
}

func (h *Handler) printer(c echo.Context) error {
	return response.New(c).WithData(h.printerStatus()).Build()
}

func (h *Handler) devices(c echo.Context) error {
	ctx, span := httpTracer.Start(c.Request().Context(), "printer.devices")
	defer span.End()

	devices := h.link.Discover(ctx)
	if devices == nil {
		devices = []entity.PrinterDevice{}
	}
	span.SetAttributes(attribute.Int("printer.devices", len(devices)))
	return response.New(c).WithData(devices).Build()
}

func (h *Handler) connect(c echo.Context) error {
	b := response.New(c)

	var payload dto.ConnectRequest
	if err := c.Bind(&payload); err != nil {
		return b.WithError(errorbank.BadRequest("invalid payload", errorbank.WithCause(err))).Build()
	}
	address := strings.TrimSpace(payload.Address)
	if address == "" {
		address = h.address
	}
	if address == "" {
		return b.WithError(errorbank.BadRequest("address is required")).Build()
	}

	ctx, span := httpTracer.Start(c.Request().Context(), "printer.connect", trace.WithAttributes(attribute.String("printer.address", address)))
	defer span.End()

	if !h.link.Connect(ctx, address) {
		return b.WithError(errorbank.NotConnected("printer did not connect")).
			WithMeta("printer", h.printerStatus()).
			Build()
	}
	return b.WithData(h.printerStatus()).Build()
}

func (h *Handler) disconnect(c echo.Context) error {
	ctx, span := httpTracer.Start(c.Request().Context(), "printer.disconnect")
	defer span.End()

	h.link.Disconnect(ctx)
	return response.New(c).WithData(h.printerStatus()).Build()
}

func (h *Handler) prints(c echo.Context) error {
	return response.New(c).WithData(h.svc.PrintRecords()).Build()
}

func (h *Handler) snapshot(c echo.Context) error {
	b := response.New(c)

	var payload dto.SnapshotRequest
	if err := c.Bind(&payload); err != nil {
		return b.WithError(errorbank.BadRequest("invalid payload", errorbank.WithCause(err))).Build()
	}
	for _, o := range payload.Orders {
		if o.ID == "" {
			return b.WithError(errorbank.BadRequest("every order needs an id")).Build()
		}
	}

	ctx, span := httpTracer.Start(c.Request().Context(), "orders.snapshot", trace.WithAttributes(attribute.Int("orders.count", len(payload.Orders))))
	defer span.End()

	batch, err := h.svc.AutoPrint(ctx, payload.Orders)
	if err != nil {
		return b.WithError(err).Build()
	}
	return b.WithData(dto.NewBatchResponse(batch)).Build()
}

func (h *Handler) print(c echo.Context) error {
	b := response.New(c)

	id := c.Param("id")
	var payload dto.PrintRequest
	if err := c.Bind(&payload); err != nil {
		return b.WithError(errorbank.BadRequest("invalid payload", errorbank.WithCause(err))).Build()
	}

	var kind service.Kind
	if payload.Kind != "" {
		k, err := service.ParseKind(payload.Kind)
		if err != nil {
			return b.WithError(errorbank.BadRequest(err.Error(), errorbank.WithCause(err))).Build()
		}
		kind = k
	}

	var order entity.Order
	switch {
	case payload.Order != nil:
		order = *payload.Order
		if order.ID == "" {
			order.ID = id
		}
		if order.ID != id {
			return b.WithError(errorbank.BadRequest("order id does not match path")).Build()
		}
	default:
		known, ok := h.svc.Order(id)
		if !ok {
			return b.WithError(errorbank.NotFound("order not found")).Build()
		}
		order = known
	}

	ctx, span := httpTracer.Start(c.Request().Context(), "orders.print", trace.WithAttributes(
		attribute.String("order.id", id),
		attribute.Bool("print.override", payload.Override),
	))
	defer span.End()

	out := h.svc.RequestPrint(ctx, order, kind, service.Options{Override: payload.Override})
	if !out.Printed() {
		return b.WithError(out.Err()).WithMeta("outcome", out).Build()
	}
	return b.WithData(out).Build()
}

func (h *Handler) flush(c echo.Context) error {
	b := response.New(c)

	var payload dto.FlushRequest
	if err := c.Bind(&payload); err != nil {
		return b.WithError(errorbank.BadRequest("invalid payload", errorbank.WithCause(err))).Build()
	}
	var kind service.Kind
	if payload.Kind != "" {
		k, err := service.ParseKind(payload.Kind)
		if err != nil {
			return b.WithError(errorbank.BadRequest(err.Error(), errorbank.WithCause(err))).Build()
		}
		kind = k
	}

	ctx, span := httpTracer.Start(c.Request().Context(), "backlog.flush")
	defer span.End()

	outcomes, err := h.svc.FlushBacklog(ctx, kind)
	if err != nil {
		return b.WithError(err).Build()
	}
	if outcomes == nil {
		outcomes = []service.Outcome{}
	}
	span.SetAttributes(attribute.Int("backlog.attempted", len(outcomes)))
	return b.WithData(outcomes).Build()
}

func (h *Handler) dismiss(c echo.Context) error {
	b := response.New(c)
	id := c.Param("id")

	ctx, span := httpTracer.Start(c.Request().Context(), "backlog.dismiss", trace.WithAttributes(attribute.String("order.id", id)))
	defer span.End()

	if err := h.svc.DismissBacklog(ctx, id); err != nil {
		return b.WithError(err).Build()
	}
	return b.WithData(map[string]string{"dismissed": id}).Build()
}

func (h *Handler) alerts(c echo.Context) error {
	b := response.New(c)
	enabled, err := bindToggle(c)
	if err != nil {
		return b.WithError(err).Build()
	}
	h.watchdog.SetEnabled(enabled)
	return b.WithData(h.watchdog.State()).Build()
}

func (h *Handler) autoPrint(c echo.Context) error {
	b := response.New(c)
	enabled, err := bindToggle(c)
	if err != nil {
		return b.WithError(err).Build()
	}
	h.svc.SetAutoPrint(enabled)
	return b.WithData(h.svc.Status()).Build()
}

func bindToggle(c echo.Context) (bool, error) {
	var payload dto.ToggleRequest
	if err := c.Bind(&payload); err != nil {
		return false, errorbank.BadRequest("invalid payload", errorbank.WithCause(err))
	}
	if payload.Enabled == nil {
		return false, errorbank.BadRequest("enabled is required")
	}
	return *payload.Enabled, nil
}
