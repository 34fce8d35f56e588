package dto

import (
	"github.com/Additional-Code/printcore/internal/entity"
	"github.com/Additional-Code/printcore/internal/service/printing"
	"github.com/Additional-Code/printcore/internal/watchdog"
)

// PrinterStatus represents the device link as exposed via transport layers.
type PrinterStatus struct {
	State     string `json:"state"`
	Address   string `json:"address,omitempty"`
	Connected bool   `json:"connected"`
}

// ConnectRequest selects the printer to connect to. An empty address reuses
// the configured one.
type ConnectRequest struct {
	Address string `json:"address"`
}

// PrintRequest asks for a manual print. Order is optional when the order is
// already known from the feed.
type PrintRequest struct {
	Kind     string        `json:"kind"`
	Override bool          `json:"override"`
	Order    *entity.Order `json:"order,omitempty"`
}

// SnapshotRequest carries a full set of current orders.
type SnapshotRequest struct {
	Orders []entity.Order `json:"orders"`
}

// FlushRequest selects the ticket kind used for backlog retries.
type FlushRequest struct {
	Kind string `json:"kind"`
}

// ToggleRequest flips a boolean setting.
type ToggleRequest struct {
	Enabled *bool `json:"enabled"`
}

// StatusResponse is the combined operator view.
type StatusResponse struct {
	Printer  PrinterStatus    `json:"printer"`
	Printing printing.Summary `json:"printing"`
	Alerts   watchdog.State   `json:"alerts"`
}

// BatchResponse summarises one auto-print pass.
type BatchResponse struct {
	AutoPrinted []string           `json:"auto_printed"`
	Backlogged  []string           `json:"backlogged"`
	Skipped     []string           `json:"skipped"`
	Outcomes    []printing.Outcome `json:"outcomes"`
}

// NewBatchResponse flattens a batch into order ids.
func NewBatchResponse(b printing.Batch) BatchResponse {
	resp := BatchResponse{
		AutoPrinted: ids(b.ToAutoPrint),
		Backlogged:  ids(b.ToBacklog),
		Skipped:     ids(b.Skipped),
		Outcomes:    b.Outcomes,
	}
	if resp.Outcomes == nil {
		resp.Outcomes = []printing.Outcome{}
	}
	return resp
}

func ids(orders []entity.Order) []string {
	out := make([]string, 0, len(orders))
	for _, o := range orders {
		out = append(out, o.ID)
	}
	return out
}
