package service

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/clearport/import-console/internal/core/domain"
	"github.com/clearport/import-console/internal/core/ports"
)

// ---------------------------------------------------------------------------
// Stub coordinator (the session depends only on the port)
// ---------------------------------------------------------------------------

type stubCoordinator struct {
	mu       sync.Mutex
	local    *domain.Shipment
	applies  []ports.ApplyInput
	applyErr error
	inFlight bool
	state    ports.UpdateState
}

func newStubCoordinator(local *domain.Shipment) *stubCoordinator {
	return &stubCoordinator{local: local.Clone()}
}

func (c *stubCoordinator) Apply(_ context.Context, in ports.ApplyInput) (*ports.ApplyResult, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.applies = append(c.applies, in)
	if c.applyErr != nil {
		return nil, c.applyErr
	}
	in.Patch.ApplyTo(c.local)
	return &ports.ApplyResult{UpdateID: "upd_test", Shipment: c.local.Clone(), Attempts: 1}, nil
}

func (c *stubCoordinator) Verify(context.Context, string, *domain.Patch, []domain.Field) (bool, error) {
	return true, nil
}

func (c *stubCoordinator) Seed(shipment *domain.Shipment) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.local = shipment.Clone()
}

func (c *stubCoordinator) Local(string) (*domain.Shipment, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.local == nil {
		return nil, false
	}
	return c.local.Clone(), true
}

func (c *stubCoordinator) SetDerivedStatus(_ string, label domain.StatusLabel) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.local.DetailedStatus = label
}

func (c *stubCoordinator) InFlight(string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.inFlight
}

func (c *stubCoordinator) UpdateState(string) ports.UpdateState {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

func (c *stubCoordinator) applyCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.applies)
}

type recordingCache struct {
	mu     sync.Mutex
	labels []domain.StatusLabel
}

func (r *recordingCache) PutStatus(_ context.Context, _ string, label domain.StatusLabel) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.labels = append(r.labels, label)
	return nil
}

// ---------------------------------------------------------------------------
// Fixtures
// ---------------------------------------------------------------------------

func arrivedShipment(t *testing.T) *domain.Shipment {
	t.Helper()
	arrival, err := ParseMilestoneDate(domain.FieldArrivalDate, "2024-01-08")
	if err != nil {
		t.Fatal(err)
	}
	return &domain.Shipment{
		ID:            "shp_1",
		BillOfEntryNo: "BE123",
		FreeTimeDays:  14,
		Containers: []domain.Container{{
			ContainerNumber: "MSKU1234567",
			ArrivalDate:     arrival,
			DetentionFrom:   domain.DetentionFrom(arrival, 14),
		}},
	}
}

// ---------------------------------------------------------------------------
// Date validation
// ---------------------------------------------------------------------------

func TestParseMilestoneDate(t *testing.T) {
	tests := []struct {
		name    string
		raw     string
		wantErr bool
		wantNil bool
	}{
		{"plain date", "2024-01-10", false, false},
		{"rfc3339", "2024-01-10T08:30:00Z", false, false},
		{"empty clears", "", false, true},
		{"garbage", "not-a-date", true, false},
		{"year too early", "1999-12-31", true, false},
		{"year too late", "2101-01-01", true, false},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got, err := ParseMilestoneDate(domain.FieldAssessmentDate, tc.raw)
			if tc.wantErr {
				var ve *domain.ValidationError
				if !errors.As(err, &ve) {
					t.Fatalf("error = %v, want ValidationError", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if (got == nil) != tc.wantNil {
				t.Errorf("parsed = %v, wantNil=%v", got, tc.wantNil)
			}
		})
	}
}

func TestEditSession_RejectsInvalidDateBeforeCoordinator(t *testing.T) {
	coord := newStubCoordinator(arrivedShipment(t))
	session := NewEditSession("shp_1", coord, nil, discardLogger)

	_, err := session.ApplyJobDate(context.Background(), domain.FieldAssessmentDate, "13/01/2024")
	var ve *domain.ValidationError
	if !errors.As(err, &ve) {
		t.Fatalf("error = %v, want ValidationError", err)
	}
	if coord.applyCount() != 0 {
		t.Error("invalid input must never reach the coordinator")
	}
}

// ---------------------------------------------------------------------------
// Job-level edits
// ---------------------------------------------------------------------------

func TestEditSession_JobDateEditRecomputesStatus(t *testing.T) {
	coord := newStubCoordinator(arrivedShipment(t))
	cache := &recordingCache{}
	session := NewEditSession("shp_1", coord, cache, discardLogger)

	if got := session.CurrentStatus(); got != domain.StatusClearancePending {
		t.Fatalf("initial status = %q, want %q", got, domain.StatusClearancePending)
	}

	status, err := session.ApplyJobDate(context.Background(), domain.FieldOutOfCharge, "2024-01-11")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if status != domain.StatusCustomsCleared {
		t.Errorf("status after OOC = %q, want %q", status, domain.StatusCustomsCleared)
	}
	if coord.applyCount() != 1 {
		t.Errorf("applies = %d, want 1", coord.applyCount())
	}

	cache.mu.Lock()
	defer cache.mu.Unlock()
	if len(cache.labels) == 0 || cache.labels[len(cache.labels)-1] != domain.StatusCustomsCleared {
		t.Errorf("cached labels = %v, want final %q", cache.labels, domain.StatusCustomsCleared)
	}
}

func TestEditSession_StatusRecomputedEvenWhenApplyFails(t *testing.T) {
	coord := newStubCoordinator(arrivedShipment(t))
	coord.applyErr = &domain.TransientError{Err: errors.New("down")}
	session := NewEditSession("shp_1", coord, nil, discardLogger)

	status, err := session.ApplyJobDate(context.Background(), domain.FieldOutOfCharge, "2024-01-11")
	if err == nil {
		t.Fatal("expected apply error to surface")
	}
	// The stub does not mutate on failure, so the recompute sees the old
	// snapshot and the label stands.
	if status != domain.StatusClearancePending {
		t.Errorf("status = %q, want %q", status, domain.StatusClearancePending)
	}
}

func TestEditSession_NoRecomputeWhileUpdateInFlight(t *testing.T) {
	coord := newStubCoordinator(arrivedShipment(t))
	session := NewEditSession("shp_1", coord, nil, discardLogger)
	before := session.CurrentStatus()

	coord.mu.Lock()
	coord.inFlight = true
	coord.mu.Unlock()

	status, err := session.ApplyJobDate(context.Background(), domain.FieldOutOfCharge, "2024-01-11")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if status != before {
		t.Errorf("status recomputed while in flight: %q -> %q", before, status)
	}
}

func TestEditSession_TextFieldValidation(t *testing.T) {
	coord := newStubCoordinator(arrivedShipment(t))
	session := NewEditSession("shp_1", coord, nil, discardLogger)

	if _, err := session.ApplyJobText(context.Background(), domain.FieldTypeOfBE, "Warehouse"); err == nil {
		t.Error("unknown BE type must be rejected")
	}
	if _, err := session.ApplyJobText(context.Background(), domain.FieldConsignmentType, "bulk"); err == nil {
		t.Error("unknown consignment type must be rejected")
	}
	if coord.applyCount() != 0 {
		t.Error("rejected text edits must not reach the coordinator")
	}

	if _, err := session.ApplyJobText(context.Background(), domain.FieldTypeOfBE, "Ex-Bond"); err != nil {
		t.Errorf("valid BE type rejected: %v", err)
	}
}

// ---------------------------------------------------------------------------
// Container edits
// ---------------------------------------------------------------------------

func TestEditSession_ArrivalEditDerivesDetention(t *testing.T) {
	coord := newStubCoordinator(arrivedShipment(t))
	session := NewEditSession("shp_1", coord, nil, discardLogger)

	if _, err := session.ApplyContainerDate(context.Background(), 0, domain.FieldArrivalDate, "2024-01-10"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	// The patch must carry the full container list with detention reapplied.
	coord.mu.Lock()
	in := coord.applies[0]
	coord.mu.Unlock()
	containers, ok := in.Patch.Containers()
	if !ok {
		t.Fatal("container edit must send a whole-list replacement")
	}
	want, _ := ParseMilestoneDate(domain.FieldArrivalDate, "2024-01-24") // arrival + 14 free days
	if containers[0].DetentionFrom == nil || !containers[0].DetentionFrom.Equal(*want) {
		t.Errorf("detention in patch = %v, want %v", containers[0].DetentionFrom, want)
	}

	got, err := session.CurrentDetentionFor(0)
	if err != nil {
		t.Fatal(err)
	}
	if got == nil || !got.Equal(*want) {
		t.Errorf("CurrentDetentionFor = %v, want %v", got, want)
	}
}

func TestEditSession_ClearingArrivalClearsDetention(t *testing.T) {
	coord := newStubCoordinator(arrivedShipment(t))
	session := NewEditSession("shp_1", coord, nil, discardLogger)

	if _, err := session.ApplyContainerDate(context.Background(), 0, domain.FieldArrivalDate, ""); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	got, err := session.CurrentDetentionFor(0)
	if err != nil {
		t.Fatal(err)
	}
	if got != nil {
		t.Errorf("detention = %v, want nil after arrival cleared", got)
	}
}

func TestEditSession_RailOutEditMarkedForVerification(t *testing.T) {
	coord := newStubCoordinator(arrivedShipment(t))
	session := NewEditSession("shp_1", coord, nil, discardLogger)

	if _, err := session.ApplyContainerDate(context.Background(), 0, domain.FieldRailOutDate, "2024-01-12"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	coord.mu.Lock()
	defer coord.mu.Unlock()
	in := coord.applies[0]
	if len(in.VerifyFields) != 1 || in.VerifyFields[0] != domain.FieldRailOutDate {
		t.Errorf("verify fields = %v, want [container_rail_out_date]", in.VerifyFields)
	}
}

func TestEditSession_DeliveryEditNotVerifiedByDefault(t *testing.T) {
	coord := newStubCoordinator(arrivedShipment(t))
	session := NewEditSession("shp_1", coord, nil, discardLogger)

	if _, err := session.ApplyContainerDate(context.Background(), 0, domain.FieldDeliveryDate, "2024-01-14"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	coord.mu.Lock()
	defer coord.mu.Unlock()
	if len(coord.applies[0].VerifyFields) != 0 {
		t.Errorf("verify fields = %v, want none", coord.applies[0].VerifyFields)
	}
}

func TestEditSession_ContainerIndexOutOfRange(t *testing.T) {
	coord := newStubCoordinator(arrivedShipment(t))
	session := NewEditSession("shp_1", coord, nil, discardLogger)

	if _, err := session.ApplyContainerDate(context.Background(), 5, domain.FieldArrivalDate, "2024-01-10"); !errors.Is(err, domain.ErrContainerIndex) {
		t.Errorf("error = %v, want ErrContainerIndex", err)
	}
}

// ---------------------------------------------------------------------------
// Free time fan-out
// ---------------------------------------------------------------------------

func TestEditSession_FreeTimeChangeFansOutDetention(t *testing.T) {
	coord := newStubCoordinator(arrivedShipment(t))
	session := NewEditSession("shp_1", coord, nil, discardLogger)

	if _, err := session.SetFreeTime(context.Background(), 7); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	coord.mu.Lock()
	defer coord.mu.Unlock()
	if len(coord.applies) != 2 {
		t.Fatalf("applies = %d, want 2 (free time, then container fan-out)", len(coord.applies))
	}
	if _, ok := coord.applies[0].Patch.Value(domain.FieldFreeTime); !ok {
		t.Error("first apply must carry free_time")
	}
	containers, ok := coord.applies[1].Patch.Containers()
	if !ok {
		t.Fatal("second apply must carry the recomputed container list")
	}
	want, _ := ParseMilestoneDate(domain.FieldArrivalDate, "2024-01-15") // arrival + 7
	if containers[0].DetentionFrom == nil || !containers[0].DetentionFrom.Equal(*want) {
		t.Errorf("fanned-out detention = %v, want %v", containers[0].DetentionFrom, want)
	}
}

func TestEditSession_FreeTimeUnchangedDetentionSkipsSecondWrite(t *testing.T) {
	coord := newStubCoordinator(arrivedShipment(t))
	session := NewEditSession("shp_1", coord, nil, discardLogger)

	// Same free time as the fixture: detention values do not move.
	if _, err := session.SetFreeTime(context.Background(), 14); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if coord.applyCount() != 1 {
		t.Errorf("applies = %d, want 1 (no fan-out needed)", coord.applyCount())
	}
}

// ---------------------------------------------------------------------------
// Session manager
// ---------------------------------------------------------------------------

func TestSessionManager_LoadsAndSeedsOnce(t *testing.T) {
	store := newStubStore()
	store.shipments["shp_1"] = arrivedShipment(t)
	coord := newStubCoordinator(&domain.Shipment{ID: "shp_1"})
	manager := NewSessionManager(store, coord, nil, discardLogger)

	first, err := manager.Session(context.Background(), "shp_1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	second, err := manager.Session(context.Background(), "shp_1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if first != second {
		t.Error("same shipment must reuse one session")
	}

	store.mu.Lock()
	defer store.mu.Unlock()
	if store.getCalls != 1 {
		t.Errorf("store reads = %d, want 1", store.getCalls)
	}

	// Seeded snapshot drives the initial status.
	if got := first.CurrentStatus(); got != domain.StatusClearancePending {
		t.Errorf("initial status = %q, want %q", got, domain.StatusClearancePending)
	}
}

func TestSessionManager_UnknownShipment(t *testing.T) {
	manager := NewSessionManager(newStubStore(), newStubCoordinator(&domain.Shipment{}), nil, discardLogger)
	if _, err := manager.Session(context.Background(), "missing"); !errors.Is(err, domain.ErrShipmentNotFound) {
		t.Errorf("error = %v, want ErrShipmentNotFound", err)
	}
}

func TestEditSession_NegativeFreeTimeRejected(t *testing.T) {
	coord := newStubCoordinator(arrivedShipment(t))
	session := NewEditSession("shp_1", coord, nil, discardLogger)

	var ve *domain.ValidationError
	if _, err := session.SetFreeTime(context.Background(), -3); !errors.As(err, &ve) {
		t.Errorf("error = %v, want ValidationError", err)
	}
	if coord.applyCount() != 0 {
		t.Error("rejected free time must not reach the coordinator")
	}
}
