package redis

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/clearport/import-console/internal/core/domain"
)

const statusTTL = 24 * time.Hour

// StatusCache keeps the latest derived status label per shipment in Redis so
// dashboards can read it without loading the full shipment.
// Key format: status:<shipment_id>
type StatusCache struct {
	client *redis.Client
}

// NewStatusCache creates a StatusCache wrapping the given Redis client.
func NewStatusCache(client *redis.Client) *StatusCache {
	return &StatusCache{client: client}
}

// PutStatus stores the label (expires after statusTTL).
func (c *StatusCache) PutStatus(ctx context.Context, shipmentID string, label domain.StatusLabel) error {
	if err := c.client.Set(ctx, c.key(shipmentID), string(label), statusTTL).Err(); err != nil {
		return fmt.Errorf("status cache set: %w", err)
	}
	return nil
}

func (c *StatusCache) key(shipmentID string) string {
	return "status:" + shipmentID
}
