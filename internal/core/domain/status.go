package domain

// StatusLabel is the operator-facing lifecycle status of a shipment. It is a
// projection over milestone timestamps, never a source of truth.
type StatusLabel string

const (
	StatusBillingPending     StatusLabel = "Billing Pending"
	StatusCustomsCleared     StatusLabel = "Custom Clearance Completed"
	StatusPCVDone            StatusLabel = "PCV Done, Duty Payment Pending"
	StatusClearancePending   StatusLabel = "BE Noted, Clearance Pending"
	StatusArrivalPending     StatusLabel = "BE Noted, Arrival Pending"
	StatusBENotePending      StatusLabel = "Arrived, BE Note Pending"
	StatusRailOut            StatusLabel = "Rail Out"
	StatusDischarged         StatusLabel = "Discharged"
	StatusGatewayIGMFiled    StatusLabel = "Gateway IGM Filed"
	StatusETAPending         StatusLabel = "ETA Date Pending"
	StatusEstimatedArrival   StatusLabel = "Estimated Time of Arrival"
)

// DeriveStatus maps a milestone snapshot to a status label. The cascade is
// evaluated top to bottom and the first matching rule wins: later-lifecycle
// conditions are checked before earlier ones, so the most advanced satisfied
// milestone determines the label without "AND NOT later-stage" guards.
//
// A snapshot with inconsistent data (say, out-of-charge set but no BE number)
// falls through to an earlier, less advanced rule rather than erroring.
// The function is pure and total: it always returns a label.
func DeriveStatus(snap MilestoneSnapshot) StatusLabel {
	beNoted := snap.BENoted()
	arrived := snap.AnyContainerArrived()

	switch {
	case beNoted && arrived && snap.OutOfChargeSet() && snap.readyForBilling():
		return StatusBillingPending
	case beNoted && arrived && snap.OutOfChargeSet():
		return StatusCustomsCleared
	case beNoted && arrived && snap.PCVDateSet():
		return StatusPCVDone
	case beNoted && arrived:
		return StatusClearancePending
	case beNoted:
		return StatusArrivalPending
	case arrived:
		return StatusBENotePending
	case snap.AllContainersRailedOut():
		return StatusRailOut
	case snap.DischargeDateSet():
		return StatusDischarged
	case snap.GatewayIGMDateSet():
		return StatusGatewayIGMFiled
	case !snap.ETASet():
		return StatusETAPending
	default:
		return StatusEstimatedArrival
	}
}

// readyForBilling is the terminal-leg predicate of the cascade: ex-bond and
// LCL shipments finish on delivery, everything else on empty off-load.
func (snap MilestoneSnapshot) readyForBilling() bool {
	if snap.ExBondOrLCL() {
		return snap.AllContainersDelivered()
	}
	return snap.AllContainersOffLoaded()
}
