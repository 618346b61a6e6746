package domain

import (
	"testing"
	"time"
)

func date(s string) *time.Time {
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		panic(err)
	}
	return &t
}

// fullMilestones returns a shipment that has progressed through every
// milestone up to billing (FCL, normal BE).
func fullMilestones() *Shipment {
	return &Shipment{
		ID:              "shp_1",
		VesselBerthing:  date("2024-01-05"),
		GatewayIGMDate:  date("2024-01-06"),
		DischargeDate:   date("2024-01-08"),
		AssessmentDate:  date("2024-01-09"),
		PCVDate:         date("2024-01-10"),
		OutOfCharge:     date("2024-01-11"),
		BillOfEntryNo:   "BE123",
		TypeOfBE:        BETypeNormal,
		ConsignmentType: ConsignmentFCL,
		Containers: []Container{
			{
				ContainerNumber:  "MSKU1234567",
				ArrivalDate:      date("2024-01-08"),
				RailOutDate:      date("2024-01-12"),
				EmptyOffLoadDate: date("2024-01-15"),
				DeliveryDate:     date("2024-01-14"),
			},
		},
	}
}

func TestDeriveStatus_Cascade(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Shipment)
		want   StatusLabel
	}{
		{"billing pending", func(s *Shipment) {}, StatusBillingPending},
		{
			"clearance completed when empty offload missing",
			func(s *Shipment) { s.Containers[0].EmptyOffLoadDate = nil },
			StatusCustomsCleared,
		},
		{
			"pcv done when out of charge missing",
			func(s *Shipment) {
				s.OutOfCharge = nil
				s.Containers[0].EmptyOffLoadDate = nil
			},
			StatusPCVDone,
		},
		{
			"clearance pending when only be noted and arrived",
			func(s *Shipment) {
				s.OutOfCharge = nil
				s.PCVDate = nil
				s.Containers[0].EmptyOffLoadDate = nil
			},
			StatusClearancePending,
		},
		{
			"arrival pending when be noted alone",
			func(s *Shipment) {
				s.OutOfCharge = nil
				s.PCVDate = nil
				s.Containers = []Container{{ContainerNumber: "MSKU1234567"}}
			},
			StatusArrivalPending,
		},
		{
			"be note pending when arrived without be",
			func(s *Shipment) {
				s.BillOfEntryNo = ""
				s.OutOfCharge = nil
				s.PCVDate = nil
				s.Containers[0].RailOutDate = nil
			},
			StatusBENotePending,
		},
		{
			"rail out when all containers railed and nothing later",
			func(s *Shipment) {
				s.BillOfEntryNo = ""
				s.OutOfCharge = nil
				s.PCVDate = nil
				s.Containers[0].ArrivalDate = nil
			},
			StatusRailOut,
		},
		{
			"discharged",
			func(s *Shipment) {
				s.BillOfEntryNo = ""
				s.OutOfCharge = nil
				s.PCVDate = nil
				s.Containers = []Container{{ContainerNumber: "MSKU1234567"}}
			},
			StatusDischarged,
		},
		{
			"gateway igm filed",
			func(s *Shipment) {
				s.BillOfEntryNo = ""
				s.OutOfCharge = nil
				s.PCVDate = nil
				s.DischargeDate = nil
				s.Containers = nil
			},
			StatusGatewayIGMFiled,
		},
		{
			"eta only",
			func(s *Shipment) {
				s.BillOfEntryNo = ""
				s.OutOfCharge = nil
				s.PCVDate = nil
				s.DischargeDate = nil
				s.GatewayIGMDate = nil
				s.Containers = nil
			},
			StatusEstimatedArrival,
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			s := fullMilestones()
			tc.mutate(s)
			if got := DeriveStatus(SnapshotOf(s)); got != tc.want {
				t.Errorf("DeriveStatus = %q, want %q", got, tc.want)
			}
		})
	}
}

func TestDeriveStatus_EmptyShipment(t *testing.T) {
	if got := DeriveStatus(SnapshotOf(&Shipment{ID: "shp_empty"})); got != StatusETAPending {
		t.Errorf("empty shipment status = %q, want %q", got, StatusETAPending)
	}
}

// A shipment satisfying both a late-lifecycle rule (billing) and an earlier
// one (gateway IGM filed) must resolve to the most advanced rule.
func TestDeriveStatus_LateStageWinsOverEarly(t *testing.T) {
	s := fullMilestones() // gateway_igm_date is set alongside the billing milestones
	if got := DeriveStatus(SnapshotOf(s)); got != StatusBillingPending {
		t.Errorf("status = %q, want %q (rule priority)", got, StatusBillingPending)
	}
}

func TestDeriveStatus_ExBondBillsOnDelivery(t *testing.T) {
	s := fullMilestones()
	s.TypeOfBE = BETypeExBond
	s.Containers[0].EmptyOffLoadDate = nil // irrelevant for ex-bond

	if got := DeriveStatus(SnapshotOf(s)); got != StatusBillingPending {
		t.Errorf("ex-bond status = %q, want %q", got, StatusBillingPending)
	}

	s.Containers[0].DeliveryDate = nil
	if got := DeriveStatus(SnapshotOf(s)); got != StatusCustomsCleared {
		t.Errorf("ex-bond without delivery = %q, want %q", got, StatusCustomsCleared)
	}
}

func TestDeriveStatus_LCLBillsOnDelivery(t *testing.T) {
	s := fullMilestones()
	s.ConsignmentType = ConsignmentLCL
	s.Containers[0].EmptyOffLoadDate = nil

	if got := DeriveStatus(SnapshotOf(s)); got != StatusBillingPending {
		t.Errorf("lcl status = %q, want %q", got, StatusBillingPending)
	}
}

// Spec scenario: BE noted, one arrived container, no OOC, no PCV.
func TestDeriveStatus_BENotedArrivedOnly(t *testing.T) {
	s := &Shipment{
		BillOfEntryNo: "BE123",
		Containers:    []Container{{ContainerNumber: "MSKU1234567", ArrivalDate: date("2024-02-01")}},
	}
	if got := DeriveStatus(SnapshotOf(s)); got != StatusClearancePending {
		t.Errorf("status = %q, want %q", got, StatusClearancePending)
	}
}

func TestDeriveStatus_ZeroContainersNeverVacuouslyComplete(t *testing.T) {
	// With no containers at all, the for-all predicates must not fire.
	s := &Shipment{
		BillOfEntryNo: "BE123",
		OutOfCharge:   date("2024-01-11"),
	}
	if got := DeriveStatus(SnapshotOf(s)); got != StatusArrivalPending {
		t.Errorf("status = %q, want %q", got, StatusArrivalPending)
	}
}

func TestDeriveStatus_Deterministic(t *testing.T) {
	s := fullMilestones()
	first := DeriveStatus(SnapshotOf(s))
	for i := 0; i < 10; i++ {
		if got := DeriveStatus(SnapshotOf(s)); got != first {
			t.Fatalf("derivation not deterministic: %q then %q", first, got)
		}
	}
}

func TestSnapshotOf_IsolatedFromShipmentEdits(t *testing.T) {
	s := fullMilestones()
	snap := SnapshotOf(s)

	s.OutOfCharge = nil
	s.Containers[0].ArrivalDate = nil
	s.BillOfEntryNo = ""

	if !snap.OutOfChargeSet() || !snap.AnyContainerArrived() || !snap.BENoted() {
		t.Error("snapshot mutated by later shipment edits")
	}
}

// Regression semantics: clearing an early milestone after a later one was set
// recomputes fresh, so the label may move backwards. No monotonicity guard.
func TestDeriveStatus_RegressesWhenEarlyMilestoneCleared(t *testing.T) {
	s := fullMilestones()
	if got := DeriveStatus(SnapshotOf(s)); got != StatusBillingPending {
		t.Fatalf("precondition: %q", got)
	}
	s.BillOfEntryNo = "" // out_of_charge still set
	if got := DeriveStatus(SnapshotOf(s)); got != StatusBENotePending {
		t.Errorf("status after clearing be_no = %q, want %q", got, StatusBENotePending)
	}
}
