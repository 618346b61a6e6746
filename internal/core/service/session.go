package service

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/clearport/import-console/internal/core/domain"
	"github.com/clearport/import-console/internal/core/ports"
)

// Accepted milestone date layouts and year bounds for operator input.
var dateLayouts = []string{"2006-01-02", time.RFC3339}

const (
	minMilestoneYear = 2000
	maxMilestoneYear = 2100
)

// ParseMilestoneDate validates operator date input. An empty string clears
// the field (nil, nil). Non-parseable input and years outside the accepted
// range return a domain.ValidationError and never reach the coordinator.
func ParseMilestoneDate(field domain.Field, raw string) (*time.Time, error) {
	if raw == "" {
		return nil, nil
	}
	for _, layout := range dateLayouts {
		t, err := time.Parse(layout, raw)
		if err != nil {
			continue
		}
		if y := t.Year(); y < minMilestoneYear || y > maxMilestoneYear {
			return nil, &domain.ValidationError{
				Field:  field,
				Reason: fmt.Sprintf("year %d outside accepted range %d-%d", y, minMilestoneYear, maxMilestoneYear),
			}
		}
		return &t, nil
	}
	return nil, &domain.ValidationError{Field: field, Reason: "not a valid date, expected YYYY-MM-DD or RFC 3339"}
}

// EditSession glues field-level edit events for one shipment to the update
// coordinator: it validates input, builds typed patches, reapplies the
// detention calculator, and recomputes the derived status once each update
// settles. Status recomputation is skipped while another update for the
// shipment is in flight, so a half-applied optimistic state is never shown.
type EditSession struct {
	shipmentID string
	coord      ports.UpdateCoordinator
	cache      ports.StatusCache
	log        zerolog.Logger

	// verifyContainerFields are re-checked against server truth after every
	// container list write. Rail-out is the default because the backend has
	// been seen dropping that nested write; callers may widen the set.
	verifyContainerFields []domain.Field

	mu         sync.Mutex
	lastStatus domain.StatusLabel
}

// NewEditSession builds a session for a shipment already seeded into the
// coordinator. cache may be nil.
func NewEditSession(shipmentID string, coord ports.UpdateCoordinator, cache ports.StatusCache, log zerolog.Logger) *EditSession {
	s := &EditSession{
		shipmentID:            shipmentID,
		coord:                 coord,
		cache:                 cache,
		log:                   log,
		verifyContainerFields: []domain.Field{domain.FieldRailOutDate},
	}
	if local, ok := coord.Local(shipmentID); ok {
		s.lastStatus = domain.DeriveStatus(domain.SnapshotOf(local))
		coord.SetDerivedStatus(shipmentID, s.lastStatus)
	}
	return s
}

// VerifyContainerFields replaces the set of container fields treated as
// safety-critical for post-write verification.
func (s *EditSession) VerifyContainerFields(fields ...domain.Field) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.verifyContainerFields = fields
}

// ApplyJobDate commits an edit to a job-level milestone date. The returned
// label reflects the recomputed status after the update settled.
func (s *EditSession) ApplyJobDate(ctx context.Context, field domain.Field, raw string) (domain.StatusLabel, error) {
	if !field.IsJobDate() {
		return s.CurrentStatus(), fmt.Errorf("%w: %q is not a job-level date", domain.ErrUnknownField, field)
	}
	t, err := ParseMilestoneDate(field, raw)
	if err != nil {
		return s.CurrentStatus(), err
	}

	patch := domain.NewPatch()
	if err := patch.SetDate(field, t); err != nil {
		return s.CurrentStatus(), err
	}
	_, applyErr := s.coord.Apply(ctx, ports.ApplyInput{ShipmentID: s.shipmentID, Patch: patch})
	return s.recomputeStatus(ctx), applyErr
}

// ApplyJobText commits an edit to a text or enum field (be_no, type_of_be,
// consignment_type).
func (s *EditSession) ApplyJobText(ctx context.Context, field domain.Field, value string) (domain.StatusLabel, error) {
	if err := validateText(field, value); err != nil {
		return s.CurrentStatus(), err
	}

	patch := domain.NewPatch()
	if err := patch.SetText(field, value); err != nil {
		return s.CurrentStatus(), err
	}
	_, applyErr := s.coord.Apply(ctx, ports.ApplyInput{ShipmentID: s.shipmentID, Patch: patch})
	return s.recomputeStatus(ctx), applyErr
}

// ApplyContainerDate commits an edit to one container's milestone date. The
// backend only accepts whole-list replacement, so the full container list is
// sent. An arrival edit reapplies the detention calculator for that container
// before the write.
func (s *EditSession) ApplyContainerDate(ctx context.Context, index int, field domain.Field, raw string) (domain.StatusLabel, error) {
	if !field.IsContainerDate() {
		return s.CurrentStatus(), fmt.Errorf("%w: %q is not a container date", domain.ErrUnknownField, field)
	}
	t, err := ParseMilestoneDate(field, raw)
	if err != nil {
		return s.CurrentStatus(), err
	}

	local, ok := s.coord.Local(s.shipmentID)
	if !ok {
		return s.CurrentStatus(), domain.ErrShipmentNotFound
	}
	if index < 0 || index >= len(local.Containers) {
		return s.CurrentStatus(), domain.ErrContainerIndex
	}

	containers := local.Containers
	if err := domain.SetContainerDate(&containers[index], field, t); err != nil {
		return s.CurrentStatus(), err
	}
	if field == domain.FieldArrivalDate {
		containers[index].DetentionFrom = domain.DetentionFrom(t, local.FreeTimeDays)
	}

	patch := domain.NewPatch()
	patch.SetContainers(containers)

	in := ports.ApplyInput{ShipmentID: s.shipmentID, Patch: patch}
	if s.isCriticalContainerField(field) {
		in.VerifyFields = []domain.Field{field}
	}
	_, applyErr := s.coord.Apply(ctx, in)
	return s.recomputeStatus(ctx), applyErr
}

// SetFreeTime commits a shipment-level free time change and fans the new
// value out to every container's detention date. When any detention value
// changes, a second update carrying the recomputed container list follows.
func (s *EditSession) SetFreeTime(ctx context.Context, days int) (domain.StatusLabel, error) {
	patch := domain.NewPatch()
	if err := patch.SetFreeTime(days); err != nil {
		return s.CurrentStatus(), err
	}

	_, applyErr := s.coord.Apply(ctx, ports.ApplyInput{ShipmentID: s.shipmentID, Patch: patch})
	if applyErr != nil {
		return s.recomputeStatus(ctx), applyErr
	}

	local, ok := s.coord.Local(s.shipmentID)
	if ok && domain.ApplyDetention(local.Containers, days) {
		fanOut := domain.NewPatch()
		fanOut.SetContainers(local.Containers)
		if _, err := s.coord.Apply(ctx, ports.ApplyInput{ShipmentID: s.shipmentID, Patch: fanOut}); err != nil {
			return s.recomputeStatus(ctx), err
		}
	}
	return s.recomputeStatus(ctx), nil
}

// CurrentStatus returns the most recently derived status label.
func (s *EditSession) CurrentStatus() domain.StatusLabel {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastStatus
}

// CurrentDetentionFor returns the derived detention start for one container.
func (s *EditSession) CurrentDetentionFor(index int) (*time.Time, error) {
	local, ok := s.coord.Local(s.shipmentID)
	if !ok {
		return nil, domain.ErrShipmentNotFound
	}
	if index < 0 || index >= len(local.Containers) {
		return nil, domain.ErrContainerIndex
	}
	return local.Containers[index].DetentionFrom, nil
}

// Shipment returns the local optimistic view of the shipment.
func (s *EditSession) Shipment() (*domain.Shipment, bool) {
	return s.coord.Local(s.shipmentID)
}

// UpdateState returns the shipment's failure flags for warning indicators.
func (s *EditSession) UpdateState() ports.UpdateState {
	return s.coord.UpdateState(s.shipmentID)
}

// recomputeStatus re-derives the status from the local snapshot unless an
// update for this shipment is still unsettled, in which case the previous
// label stands until the next settle.
func (s *EditSession) recomputeStatus(ctx context.Context) domain.StatusLabel {
	if s.coord.InFlight(s.shipmentID) {
		return s.CurrentStatus()
	}
	local, ok := s.coord.Local(s.shipmentID)
	if !ok {
		return s.CurrentStatus()
	}

	label := domain.DeriveStatus(domain.SnapshotOf(local))
	s.mu.Lock()
	s.lastStatus = label
	s.mu.Unlock()

	s.coord.SetDerivedStatus(s.shipmentID, label)
	if s.cache != nil {
		if err := s.cache.PutStatus(ctx, s.shipmentID, label); err != nil {
			s.log.Warn().Err(err).Str("shipment_id", s.shipmentID).Msg("failed to cache derived status")
		}
	}
	return label
}

func (s *EditSession) isCriticalContainerField(field domain.Field) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, f := range s.verifyContainerFields {
		if f == field {
			return true
		}
	}
	return false
}

func validateText(field domain.Field, value string) error {
	switch field {
	case domain.FieldTypeOfBE:
		switch domain.BillOfEntryType(value) {
		case domain.BETypeNormal, domain.BETypeInBond, domain.BETypeExBond:
			return nil
		}
		return &domain.ValidationError{Field: field, Reason: "must be one of Normal, In-Bond, Ex-Bond"}
	case domain.FieldConsignmentType:
		switch domain.ConsignmentType(value) {
		case domain.ConsignmentFCL, domain.ConsignmentLCL:
			return nil
		}
		return &domain.ValidationError{Field: field, Reason: "must be one of FCL, LCL"}
	case domain.FieldBillOfEntryNo:
		return nil
	}
	return fmt.Errorf("%w: %q is not a text field", domain.ErrUnknownField, field)
}
