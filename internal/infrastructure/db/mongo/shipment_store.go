package mongo

import (
	"context"
	"errors"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/clearport/import-console/internal/core/domain"
)

const collectionShipments = "shipments"

// ShipmentStore implements ports.ShipmentStore straight against MongoDB, for
// deployments where the console owns its database instead of fronting the
// remote REST backend. Partial updates map to $set on the patch's wire
// fields; container edits replace the whole container_nos array, matching
// the REST contract.
type ShipmentStore struct {
	col *mongo.Collection
}

func NewShipmentStore(db *mongo.Database) *ShipmentStore {
	return &ShipmentStore{col: db.Collection(collectionShipments)}
}

// Get retrieves one shipment with its containers.
func (s *ShipmentStore) Get(ctx context.Context, shipmentID string) (*domain.Shipment, error) {
	var shipment domain.Shipment
	err := s.col.FindOne(ctx, bson.M{"_id": shipmentID}).Decode(&shipment)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, &domain.PermanentError{Status: 404, Err: domain.ErrShipmentNotFound}
		}
		return nil, classify(err)
	}
	return &shipment, nil
}

// ApplyPatch applies the partial field map with $set and returns the state
// after the write.
func (s *ShipmentStore) ApplyPatch(ctx context.Context, shipmentID string, patch *domain.Patch) (*domain.Shipment, error) {
	update := bson.M{}
	for field, value := range patch.Body() {
		update[field] = value
	}

	var updated domain.Shipment
	err := s.col.FindOneAndUpdate(
		ctx,
		bson.M{"_id": shipmentID},
		bson.M{"$set": update},
		options.FindOneAndUpdate().SetReturnDocument(options.After),
	).Decode(&updated)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, &domain.PermanentError{Status: 404, Err: domain.ErrShipmentNotFound}
		}
		return nil, classify(err)
	}
	return &updated, nil
}

// EnsureIndexes creates the indexes the console queries rely on.
func (s *ShipmentStore) EnsureIndexes(ctx context.Context) error {
	indexes := []mongo.IndexModel{
		{Keys: bson.D{{Key: "be_no", Value: 1}}},
		{Keys: bson.D{{Key: "detailed_status", Value: 1}}},
	}
	_, err := s.col.Indexes().CreateMany(ctx, indexes)
	return err
}

// classify maps driver failures onto the coordinator's retry taxonomy:
// network and timeout errors are transient, everything else permanent.
func classify(err error) error {
	if mongo.IsNetworkError(err) || mongo.IsTimeout(err) || errors.Is(err, context.DeadlineExceeded) {
		return &domain.TransientError{Err: err}
	}
	return &domain.PermanentError{Status: 500, Err: err}
}
