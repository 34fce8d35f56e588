// Package seeder publishes demo order snapshots for local/dev setups.
package seeder

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.uber.org/fx"
	"go.uber.org/zap"

	"github.com/Additional-Code/printcore/internal/clock"
	"github.com/Additional-Code/printcore/internal/entity"
	"github.com/Additional-Code/printcore/internal/messaging"
)

// Module provides the seeder.
var Module = fx.Provide(New)

// Seeder pushes sample orders onto the order feed.
type Seeder struct {
	client messaging.Client
	clock  clock.Clock
	logger *zap.Logger
}

// New constructs a Seeder publishing on client.
func New(client messaging.Client, logger *zap.Logger) *Seeder {
	return &Seeder{client: client, clock: clock.New(), logger: logger}
}

// Orders publishes one snapshot holding the sample orders.
func (s *Seeder) Orders(ctx context.Context) (messaging.OrderSnapshot, error) {
	now := s.clock.Now().UTC()
	snap := messaging.OrderSnapshot{
		SnapshotID: uuid.NewString(),
		TakenAt:    now,
		Orders:     SampleOrders(now),
	}
	if err := messaging.PublishSnapshot(ctx, s.client, snap); err != nil {
		return messaging.OrderSnapshot{}, err
	}
	if s.logger != nil {
		s.logger.Info("seeded order snapshot",
			zap.String("snapshot_id", snap.SnapshotID),
			zap.Int("count", len(snap.Orders)),
			zap.String("topic", s.client.Topic()))
	}
	return snap, nil
}

// SampleOrders returns a pickup order with allergy notes and a scheduled
// delivery order, both created just before now.
func SampleOrders(now time.Time) []entity.Order {
	ready := now.Add(90 * time.Minute)
	return []entity.Order{
		{
			ID:        "demo-1000",
			Number:    "1000",
			Type:      entity.TypePickup,
			Status:    entity.StatusPending,
			CreatedAt: now.Add(-time.Minute),
			UpdatedAt: now.Add(-time.Minute),
			Customer:  entity.Customer{Name: "Dana Reyes", Phone: "555-0142"},
			Items: []entity.Item{
				{
					Name: "Cheeseburger", Quantity: 2, UnitPrice: 1150,
					Notes: "no onions",
					Modifiers: []entity.Modifier{
						{Name: "Bacon", Price: 200, Quantity: 1, Group: "Add-ons"},
						{Name: "Medium rare", Quantity: 1, Group: "Temperature"},
					},
				},
				{Name: "Fries", Quantity: 1, UnitPrice: 450},
			},
			Notes:  "Peanut allergy, please be careful. Extra napkins",
			Totals: entity.Totals{Subtotal: 3150, Tax: 284, Total: 3434},
			Paid:   true,
		},
		{
			ID:               "demo-1001",
			Number:           "1001",
			Type:             entity.TypeDelivery,
			Status:           entity.StatusConfirmed,
			CreatedAt:        now.Add(-2 * time.Minute),
			UpdatedAt:        now.Add(-2 * time.Minute),
			EstimatedReadyAt: &ready,
			Customer:         entity.Customer{Name: "Sam Ortiz", Phone: "555-0199"},
			DeliveryAddress: &entity.Address{
				Line1:        "42 Harbor St",
				City:         "Portland",
				PostalCode:   "97201",
				Instructions: "Ring twice",
			},
			Items: []entity.Item{
				{
					Name: "Margherita Pizza", Quantity: 1, UnitPrice: 1400,
					Modifiers: []entity.Modifier{
						{Name: "Mushrooms", Price: 150, Quantity: 1, Placement: "left half", Group: "Toppings"},
					},
				},
			},
			Totals: entity.Totals{Subtotal: 1550, Tax: 140, DeliveryFee: 399, Tip: 300, Total: 2389},
		},
	}
}
