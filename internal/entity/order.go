package entity

import "time"

// Status is the business status of an order as reported by the sync collaborator.
type Status string

const (
	StatusPending   Status = "pending"
	StatusConfirmed Status = "confirmed"
	StatusPreparing Status = "preparing"
	StatusReady     Status = "ready"
	StatusCompleted Status = "completed"
	StatusCancelled Status = "cancelled"
)

// IsNew reports whether the order still waits for the kitchen to pick it up.
func (s Status) IsNew() bool {
	return s == StatusPending || s == StatusConfirmed
}

// Type is the fulfilment type of an order.
type Type string

const (
	TypePickup   Type = "pickup"
	TypeDelivery Type = "delivery"
	TypeDineIn   Type = "dine_in"
)

// Label returns the upper-case ticket label for the order type.
func (t Type) Label() string {
	switch t {
	case TypeDelivery:
		return "DELIVERY"
	case TypeDineIn:
		return "DINE-IN"
	case TypePickup:
		return "PICKUP"
	default:
		return "ORDER"
	}
}

// Order is an order accepted by the restaurant. It is owned upstream and never
// mutated by the print path.
type Order struct {
	ID               string     `json:"id"`
	Number           string     `json:"order_number"`
	Type             Type       `json:"order_type"`
	Status           Status     `json:"status"`
	CreatedAt        time.Time  `json:"created_at"`
	UpdatedAt        time.Time  `json:"updated_at"`
	EstimatedReadyAt *time.Time `json:"estimated_ready_at,omitempty"`
	Customer         Customer   `json:"customer"`
	DeliveryAddress  *Address   `json:"delivery_address,omitempty"`
	Items            []Item     `json:"items"`
	Notes            string     `json:"notes,omitempty"`
	Totals           Totals     `json:"totals"`
	Paid             bool       `json:"paid"`
}

// Age returns how long ago the order was created relative to now.
func (o Order) Age(now time.Time) time.Duration {
	return now.Sub(o.CreatedAt)
}

// ItemCount returns the total quantity across all line items.
func (o Order) ItemCount() int {
	n := 0
	for _, item := range o.Items {
		n += item.Quantity
	}
	return n
}

// Customer identifies who placed the order.
type Customer struct {
	Name  string `json:"name"`
	Phone string `json:"phone,omitempty"`
	Email string `json:"email,omitempty"`
}

// Address is a delivery destination.
type Address struct {
	Line1        string `json:"line1"`
	Line2        string `json:"line2,omitempty"`
	City         string `json:"city,omitempty"`
	PostalCode   string `json:"postal_code,omitempty"`
	Instructions string `json:"instructions,omitempty"`
}

// Item is a single order line.
type Item struct {
	Name      string     `json:"name"`
	Quantity  int        `json:"quantity"`
	UnitPrice int64      `json:"unit_price"`
	Notes     string     `json:"notes,omitempty"`
	Modifiers []Modifier `json:"modifiers,omitempty"`
}

// LineTotal is the unit price times quantity, in cents.
func (i Item) LineTotal() int64 {
	return i.UnitPrice * int64(i.Quantity)
}

// Modifier customises an item, optionally grouped and placed (e.g. "left half").
type Modifier struct {
	Name      string `json:"name"`
	Price     int64  `json:"price"`
	Quantity  int    `json:"quantity"`
	Placement string `json:"placement,omitempty"`
	Group     string `json:"group_name,omitempty"`
}

// Totals are the computed order amounts, in cents.
type Totals struct {
	Subtotal    int64 `json:"subtotal"`
	Tax         int64 `json:"tax"`
	DeliveryFee int64 `json:"delivery_fee,omitempty"`
	Tip         int64 `json:"tip,omitempty"`
	Total       int64 `json:"total"`
}
