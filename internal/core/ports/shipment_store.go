package ports

import (
	"context"

	"github.com/clearport/import-console/internal/core/domain"
)

// ShipmentStore is the narrow contract over the remotely persisted shipment
// record: one read, one partial write. Implementations classify failures as
// domain.TransientError (retryable) or domain.PermanentError (not).
type ShipmentStore interface {
	// Get returns the full shipment snapshot, containers included.
	Get(ctx context.Context, shipmentID string) (*domain.Shipment, error)
	// ApplyPatch sends a partial field update and returns the acknowledged
	// server state.
	ApplyPatch(ctx context.Context, shipmentID string, patch *domain.Patch) (*domain.Shipment, error)
}
