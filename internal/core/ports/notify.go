package ports

import (
	"context"

	"github.com/clearport/import-console/internal/core/domain"
)

// Notifier publishes operator-facing notifications when a field update
// settles successfully. Delivery is best-effort.
type Notifier interface {
	FieldUpdated(ctx context.Context, shipmentID string, field domain.Field)
}

// StatusCache is the best-effort sink for derived status labels. Errors are
// logged by callers and never block an edit.
type StatusCache interface {
	PutStatus(ctx context.Context, shipmentID string, label domain.StatusLabel) error
}

// UpdateAuditLog records settled updates for traceability. Append failures
// are non-fatal.
type UpdateAuditLog interface {
	Append(ctx context.Context, event *domain.UpdateEvent) error
}
