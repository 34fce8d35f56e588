package printing

import (
	"fmt"
	"strings"
	"time"

	"github.com/Additional-Code/printcore/pkg/errorbank"
)

// Kind selects which physical artifact to print.
type Kind string

const (
	KindKitchen Kind = "kitchen"
	KindReceipt Kind = "receipt"
	KindBoth    Kind = "both"
)

// ParseKind validates a kind name, case-insensitively.
func ParseKind(s string) (Kind, error) {
	switch k := Kind(strings.ToLower(strings.TrimSpace(s))); k {
	case KindKitchen, KindReceipt, KindBoth:
		return k, nil
	default:
		return "", fmt.Errorf("unknown ticket kind %q", s)
	}
}

// Status is the result class of a print request.
type Status string

const (
	StatusPrinted              Status = "printed"
	StatusInProgress           Status = "already_in_progress"
	StatusConfirmationRequired Status = "reprint_confirmation_required"
	StatusFailed               Status = "failed"
)

// Reason qualifies a failed print.
type Reason string

const (
	ReasonNotConnected Reason = "not_connected"
	ReasonDeviceError  Reason = "device_error"
	ReasonTooOld       Reason = "too_old"
	ReasonInvalidKind  Reason = "invalid_kind"
	ReasonCancelled    Reason = "cancelled"
)

// Outcome is the typed result of a print request. Printed means the bytes
// left the device link without error; the peripheral gives no confirmation
// that paper actually came out.
type Outcome struct {
	JobID      string    `json:"job_id"`
	OrderID    string    `json:"order_id"`
	Kind       Kind      `json:"kind"`
	Status     Status    `json:"status"`
	Reason     Reason    `json:"reason,omitempty"`
	Duplicate  bool      `json:"duplicate,omitempty"`
	Partial    bool      `json:"partial,omitempty"`
	PrintCount int       `json:"print_count"`
	At         time.Time `json:"at"`

	cause error
}

// Printed reports whether the request ended with the ticket transmitted.
func (o Outcome) Printed() bool { return o.Status == StatusPrinted }

// Cause returns the underlying failure, if any.
func (o Outcome) Cause() error { return o.cause }

// Err converts a non-printed outcome into an application error.
func (o Outcome) Err() error {
	details := errorbank.WithDetails(map[string]any{"order_id": o.OrderID, "kind": o.Kind})
	switch o.Status {
	case StatusPrinted:
		return nil
	case StatusInProgress:
		return errorbank.Conflict("a print for this order is already in progress", details)
	case StatusConfirmationRequired:
		return errorbank.ReprintConfirmation(
			fmt.Sprintf("order already printed %d times; confirm to print again", o.PrintCount),
			details, errorbank.WithDetail("print_count", o.PrintCount))
	}
	switch o.Reason {
	case ReasonNotConnected:
		return errorbank.NotConnected("printer is not connected", details, errorbank.WithCause(o.cause))
	case ReasonDeviceError:
		return errorbank.DeviceError("printer did not accept the ticket", details,
			errorbank.WithCause(o.cause), errorbank.WithDetail("partial", o.Partial))
	case ReasonTooOld:
		return errorbank.TooOld("order is too old for automatic printing", details)
	case ReasonInvalidKind:
		return errorbank.BadRequest("unknown ticket kind", details)
	default:
		return errorbank.Internal("print request did not complete", details, errorbank.WithCause(o.cause))
	}
}
