package ports

import (
	"context"

	"github.com/clearport/import-console/internal/core/domain"
)

// ApplyInput carries one partial update through the coordinator.
type ApplyInput struct {
	ShipmentID string
	Patch      *domain.Patch
	// VerifyFields names the fields whose persistence the caller considers
	// safety-critical: after a successful write they are re-read from the
	// store and silently repaired on divergence.
	VerifyFields []domain.Field
}

// ApplyResult is returned when an update settles successfully.
type ApplyResult struct {
	UpdateID string
	// Shipment is the server's acknowledged state after the write.
	Shipment *domain.Shipment
	// Attempts is 1 for a first-try success, 2 when the retry succeeded.
	Attempts int
}

// UpdateState is the per-shipment failure view surfaced to the UI.
type UpdateState struct {
	InFlight     bool     `json:"in_flight"`
	Failed       bool     `json:"failed"`
	FailedFields []string `json:"failed_fields,omitempty"`
	LastError    string   `json:"last_error,omitempty"`
}

// UpdateCoordinator serializes partial updates per shipment id: at most one
// network write in flight per shipment, FIFO in acceptance order, with
// optimistic local mutation, one retry on transient failure, and optional
// verify-then-repair after success.
type UpdateCoordinator interface {
	// Apply blocks until the update reaches a terminal state. The local
	// snapshot is mutated optimistically before the network call resolves.
	Apply(ctx context.Context, in ApplyInput) (*ApplyResult, error)
	// Verify re-reads the shipment and compares the staged values of the
	// given fields against server truth, issuing one silent repair write on
	// mismatch. Returns true when the server matched.
	//
	// The repair write goes straight to the store, so Verify must only be
	// called when no update for the shipment is in flight. To verify after a
	// write, pass VerifyFields on Apply instead: that runs the check on the
	// shipment's lane, serialized with later updates.
	Verify(ctx context.Context, shipmentID string, patch *domain.Patch, fields []domain.Field) (bool, error)
	// Seed installs the local snapshot for a shipment.
	Seed(shipment *domain.Shipment)
	// Local returns a deep copy of the local (optimistic) snapshot.
	Local(shipmentID string) (*domain.Shipment, bool)
	// SetDerivedStatus records the recomputed status label on the local
	// snapshot without going through the write path.
	SetDerivedStatus(shipmentID string, label domain.StatusLabel)
	// InFlight reports whether any update for the shipment is unsettled.
	InFlight(shipmentID string) bool
	// UpdateState returns the failure flags for the shipment.
	UpdateState(shipmentID string) UpdateState
}
