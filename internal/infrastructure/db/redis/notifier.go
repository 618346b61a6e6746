package redis

import (
	"context"
	"encoding/json"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/clearport/import-console/internal/core/domain"
)

const notifyChannel = "notify:updates"

// Notifier broadcasts settled field updates over Redis pub/sub so connected
// consoles can refresh and toast the operator. Delivery is best-effort:
// publish failures are logged, never surfaced.
type Notifier struct {
	client *redis.Client
	log    zerolog.Logger
}

// NewNotifier creates a Notifier wrapping the given Redis client.
func NewNotifier(client *redis.Client, log zerolog.Logger) *Notifier {
	return &Notifier{client: client, log: log}
}

type updateMessage struct {
	ShipmentID string    `json:"shipment_id"`
	Field      string    `json:"field"`
	Message    string    `json:"message"`
	At         time.Time `json:"at"`
}

// FieldUpdated publishes one notification to the notify:updates channel.
func (n *Notifier) FieldUpdated(ctx context.Context, shipmentID string, field domain.Field) {
	payload, err := json.Marshal(updateMessage{
		ShipmentID: shipmentID,
		Field:      string(field),
		Message:    field.Message(),
		At:         time.Now().UTC(),
	})
	if err != nil {
		n.log.Warn().Err(err).Str("field", string(field)).Msg("encode update notification")
		return
	}

	if err := n.client.Publish(ctx, notifyChannel, payload).Err(); err != nil {
		n.log.Warn().Err(err).
			Str("shipment_id", shipmentID).
			Str("field", string(field)).
			Msg("publish update notification")
	}
}
