package mongo

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/clearport/import-console/internal/core/domain"
	"github.com/clearport/import-console/internal/core/ports"
)

const collectionUpdateEvents = "update_events"

// AuditRepository implements ports.UpdateAuditLog using MongoDB.
type AuditRepository struct {
	db *mongo.Database
}

// NewAuditRepository creates a new AuditRepository.
func NewAuditRepository(db *mongo.Database) ports.UpdateAuditLog {
	return &AuditRepository{db: db}
}

// Append persists one settled update to the update_events audit collection.
func (r *AuditRepository) Append(ctx context.Context, event *domain.UpdateEvent) error {
	doc := bson.M{
		"update_id":    event.UpdateID,
		"shipment_id":  event.ShipmentID,
		"fields":       event.Fields,
		"outcome":      string(event.Outcome),
		"attempts":     event.Attempts,
		"submitted_at": event.SubmittedAt.UTC(),
		"settled_at":   event.SettledAt.UTC(),
		"recorded_at":  time.Now().UTC(),
	}
	if event.Error != "" {
		doc["error"] = event.Error
	}

	_, err := r.db.Collection(collectionUpdateEvents).InsertOne(ctx, doc)
	return err
}
