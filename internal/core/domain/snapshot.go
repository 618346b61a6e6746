package domain

import "time"

// ContainerMilestones is the per-container slice of a milestone snapshot.
type ContainerMilestones struct {
	ArrivalDate      *time.Time
	RailOutDate      *time.Time
	EmptyOffLoadDate *time.Time
	DeliveryDate     *time.Time
}

// MilestoneSnapshot is an immutable view of the status-relevant fields of one
// shipment, taken at derivation time. Construct it fresh before every
// derivation and discard it afterwards; it is never mutated.
type MilestoneSnapshot struct {
	BillOfEntryNo   string
	TypeOfBE        BillOfEntryType
	ConsignmentType ConsignmentType
	VesselBerthing  *time.Time
	GatewayIGMDate  *time.Time
	DischargeDate   *time.Time
	PCVDate         *time.Time
	OutOfCharge     *time.Time
	Containers      []ContainerMilestones
}

// SnapshotOf captures the milestone view of s. Timestamp pointers are copied
// so later edits to the shipment cannot reach into the snapshot.
func SnapshotOf(s *Shipment) MilestoneSnapshot {
	snap := MilestoneSnapshot{
		BillOfEntryNo:   s.BillOfEntryNo,
		TypeOfBE:        s.TypeOfBE,
		ConsignmentType: s.ConsignmentType,
		VesselBerthing:  cloneTime(s.VesselBerthing),
		GatewayIGMDate:  cloneTime(s.GatewayIGMDate),
		DischargeDate:   cloneTime(s.DischargeDate),
		PCVDate:         cloneTime(s.PCVDate),
		OutOfCharge:     cloneTime(s.OutOfCharge),
	}
	for _, c := range s.Containers {
		snap.Containers = append(snap.Containers, ContainerMilestones{
			ArrivalDate:      cloneTime(c.ArrivalDate),
			RailOutDate:      cloneTime(c.RailOutDate),
			EmptyOffLoadDate: cloneTime(c.EmptyOffLoadDate),
			DeliveryDate:     cloneTime(c.DeliveryDate),
		})
	}
	return snap
}

// BENoted reports whether a bill of entry number has been recorded.
func (snap MilestoneSnapshot) BENoted() bool { return snap.BillOfEntryNo != "" }

// ExBondOrLCL reports whether the shipment clears as ex-bond or ships LCL;
// both finish their last leg on delivery instead of empty off-load.
func (snap MilestoneSnapshot) ExBondOrLCL() bool {
	return snap.TypeOfBE == BETypeExBond || snap.ConsignmentType == ConsignmentLCL
}

// ETASet reports whether a vessel berthing estimate is present.
func (snap MilestoneSnapshot) ETASet() bool { return snap.VesselBerthing != nil }

func (snap MilestoneSnapshot) GatewayIGMDateSet() bool { return snap.GatewayIGMDate != nil }
func (snap MilestoneSnapshot) DischargeDateSet() bool  { return snap.DischargeDate != nil }
func (snap MilestoneSnapshot) PCVDateSet() bool        { return snap.PCVDate != nil }
func (snap MilestoneSnapshot) OutOfChargeSet() bool    { return snap.OutOfCharge != nil }

// AnyContainerArrived reports whether at least one container has arrived.
func (snap MilestoneSnapshot) AnyContainerArrived() bool {
	for _, c := range snap.Containers {
		if c.ArrivalDate != nil {
			return true
		}
	}
	return false
}

// The all-container predicates are false for an empty container list: a
// shipment with no containers recorded yet has not railed out, off-loaded,
// or delivered anything.

func (snap MilestoneSnapshot) AllContainersRailedOut() bool {
	return snap.allContainers(func(c ContainerMilestones) bool { return c.RailOutDate != nil })
}

func (snap MilestoneSnapshot) AllContainersOffLoaded() bool {
	return snap.allContainers(func(c ContainerMilestones) bool { return c.EmptyOffLoadDate != nil })
}

func (snap MilestoneSnapshot) AllContainersDelivered() bool {
	return snap.allContainers(func(c ContainerMilestones) bool { return c.DeliveryDate != nil })
}

func (snap MilestoneSnapshot) allContainers(pred func(ContainerMilestones) bool) bool {
	if len(snap.Containers) == 0 {
		return false
	}
	for _, c := range snap.Containers {
		if !pred(c) {
			return false
		}
	}
	return true
}
