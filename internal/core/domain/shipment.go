package domain

import (
	"errors"
	"fmt"
	"time"
)

// BillOfEntryType classifies the customs bill of entry filed for a shipment.
type BillOfEntryType string

const (
	BETypeNormal BillOfEntryType = "Normal"
	BETypeInBond BillOfEntryType = "In-Bond"
	BETypeExBond BillOfEntryType = "Ex-Bond"
)

// ConsignmentType is the load classification of the consignment.
type ConsignmentType string

const (
	ConsignmentFCL ConsignmentType = "FCL"
	ConsignmentLCL ConsignmentType = "LCL"
)

var ErrShipmentNotFound = errors.New("shipment not found")
var ErrUnknownField = errors.New("unknown shipment field")
var ErrEmptyPatch = errors.New("patch must contain at least one field")
var ErrContainerIndex = errors.New("container index out of range")

// ValidationError reports an edit rejected before any network call.
type ValidationError struct {
	Field  Field
	Reason string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return "invalid input: " + e.Reason
	}
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

// TransientError wraps a network-class store failure (timeout, connection
// error, 5xx). Eligible for one retry.
type TransientError struct {
	Err error
}

func (e *TransientError) Error() string { return "transient store error: " + e.Err.Error() }
func (e *TransientError) Unwrap() error { return e.Err }

// PermanentError wraps a store rejection (4xx-class). Never retried.
type PermanentError struct {
	Status int
	Err    error
}

func (e *PermanentError) Error() string {
	return fmt.Sprintf("permanent store error (status %d): %v", e.Status, e.Err)
}
func (e *PermanentError) Unwrap() error { return e.Err }

// IsTransient reports whether err should be retried once before giving up.
func IsTransient(err error) bool {
	var te *TransientError
	return errors.As(err, &te)
}

// Container is one physical unit under a shipment. A shipment exclusively
// owns its containers; the backend only accepts whole-list replacement of
// container_nos, never per-container patches.
type Container struct {
	ContainerNumber  string     `json:"container_number" bson:"container_number"`
	ArrivalDate      *time.Time `json:"arrival_date,omitempty" bson:"arrival_date,omitempty"`
	RailOutDate      *time.Time `json:"container_rail_out_date,omitempty" bson:"container_rail_out_date,omitempty"`
	EmptyOffLoadDate *time.Time `json:"empty_container_off_load_date,omitempty" bson:"empty_container_off_load_date,omitempty"`
	DeliveryDate     *time.Time `json:"delivery_date,omitempty" bson:"delivery_date,omitempty"`
	// DetentionFrom is derived from arrival_date + the shipment's free time.
	// Never edited directly; only the detention calculator writes it.
	DetentionFrom *time.Time `json:"detention_from,omitempty" bson:"detention_from,omitempty"`
}

// Shipment is the core aggregate root: one import job accumulating customs
// and transport milestone timestamps.
type Shipment struct {
	ID              string          `json:"id" bson:"_id,omitempty"`
	VesselBerthing  *time.Time      `json:"vessel_berthing,omitempty" bson:"vessel_berthing,omitempty"`
	GatewayIGMDate  *time.Time      `json:"gateway_igm_date,omitempty" bson:"gateway_igm_date,omitempty"`
	DischargeDate   *time.Time      `json:"discharge_date,omitempty" bson:"discharge_date,omitempty"`
	AssessmentDate  *time.Time      `json:"assessment_date,omitempty" bson:"assessment_date,omitempty"`
	PCVDate         *time.Time      `json:"pcv_date,omitempty" bson:"pcv_date,omitempty"`
	OutOfCharge     *time.Time      `json:"out_of_charge,omitempty" bson:"out_of_charge,omitempty"`
	BillOfEntryNo   string          `json:"be_no,omitempty" bson:"be_no,omitempty"`
	TypeOfBE        BillOfEntryType `json:"type_of_be,omitempty" bson:"type_of_be,omitempty"`
	ConsignmentType ConsignmentType `json:"consignment_type,omitempty" bson:"consignment_type,omitempty"`
	FreeTimeDays    int             `json:"free_time" bson:"free_time"`
	// DetailedStatus is a projection recomputed from the milestones above,
	// pushed to the backend only as a best-effort cache.
	DetailedStatus StatusLabel `json:"detailed_status,omitempty" bson:"detailed_status,omitempty"`
	Containers     []Container `json:"container_nos" bson:"container_nos"`
}

// Clone returns a deep copy safe to mutate independently.
func (s *Shipment) Clone() *Shipment {
	dup := *s
	dup.Containers = CloneContainers(s.Containers)
	return &dup
}

// CloneContainers deep-copies a container list, including timestamp pointers.
func CloneContainers(containers []Container) []Container {
	if containers == nil {
		return nil
	}
	dup := make([]Container, len(containers))
	for i, c := range containers {
		dup[i] = c
		dup[i].ArrivalDate = cloneTime(c.ArrivalDate)
		dup[i].RailOutDate = cloneTime(c.RailOutDate)
		dup[i].EmptyOffLoadDate = cloneTime(c.EmptyOffLoadDate)
		dup[i].DeliveryDate = cloneTime(c.DeliveryDate)
		dup[i].DetentionFrom = cloneTime(c.DetentionFrom)
	}
	return dup
}

func cloneTime(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	dup := *t
	return &dup
}

func timeEqual(a, b *time.Time) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return a.Equal(*b)
}
