package messaging

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/Additional-Code/printcore/internal/entity"
)

// SnapshotKey partitions every snapshot for a restaurant onto the same key.
const SnapshotKey = "orders-snapshot"

// OrderSnapshot is the full current order set published by the sync collaborator.
type OrderSnapshot struct {
	SnapshotID string         `json:"snapshot_id"`
	TakenAt    time.Time      `json:"taken_at"`
	Orders     []entity.Order `json:"orders"`
}

// EncodeSnapshot serialises s as JSON.
func EncodeSnapshot(s OrderSnapshot) ([]byte, error) {
	return json.Marshal(s)
}

// DecodeSnapshot parses a snapshot and rejects orders without an id.
func DecodeSnapshot(payload []byte) (OrderSnapshot, error) {
	var s OrderSnapshot
	if err := json.Unmarshal(payload, &s); err != nil {
		return OrderSnapshot{}, fmt.Errorf("decode order snapshot: %w", err)
	}
	for i, o := range s.Orders {
		if o.ID == "" {
			return OrderSnapshot{}, fmt.Errorf("order snapshot entry %d has no id", i)
		}
	}
	return s, nil
}

// PublishSnapshot encodes and publishes s on client.
func PublishSnapshot(ctx context.Context, client Client, s OrderSnapshot) error {
	if client == nil {
		return errors.New("messaging client is required")
	}
	payload, err := EncodeSnapshot(s)
	if err != nil {
		return err
	}
	return client.Publish(ctx, []byte(SnapshotKey), payload)
}
