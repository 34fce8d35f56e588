package messaging_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Additional-Code/printcore/internal/entity"
	"github.com/Additional-Code/printcore/internal/messaging"
)

func TestDecodeSnapshotRejectsMissingIDs(t *testing.T) {
	_, err := messaging.DecodeSnapshot([]byte(`{"orders":[{"id":"a"},{"order_number":"2"}]}`))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "entry 1")

	_, err = messaging.DecodeSnapshot([]byte(`{`))
	assert.Error(t, err)
}

func TestPublishSnapshotInProcess(t *testing.T) {
	client := messaging.NewInProcess("orders.snapshots", 1)
	snap := messaging.OrderSnapshot{
		SnapshotID: "s1",
		TakenAt:    time.Date(2024, 5, 1, 18, 0, 0, 0, time.UTC),
		Orders: []entity.Order{{
			ID:     "a",
			Number: "1001",
			Type:   entity.TypeDelivery,
			Status: entity.StatusPending,
			Items:  []entity.Item{{Name: "Soup", Quantity: 1, Modifiers: []entity.Modifier{{Name: "Bread", Group: "Sides"}}}},
		}},
	}
	require.NoError(t, messaging.PublishSnapshot(context.Background(), client, snap))

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	var got messaging.OrderSnapshot
	err := client.Consume(ctx, func(_ context.Context, msg messaging.Message) error {
		assert.Equal(t, messaging.SnapshotKey, string(msg.Key))
		assert.Equal(t, "orders.snapshots", msg.Topic)
		var err error
		got, err = messaging.DecodeSnapshot(msg.Value)
		cancel()
		return err
	})
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, snap, got)
}
