package domain

import (
	"fmt"
	"time"
)

// Patch is one partial shipment mutation with a closed, kind-checked field
// set. Unknown fields and kind mismatches are rejected at construction, so a
// patch that reaches the store only ever carries known field names.
type Patch struct {
	values map[Field]any
}

// NewPatch returns an empty patch.
func NewPatch() *Patch {
	return &Patch{values: make(map[Field]any)}
}

// SetDate stages a job-level milestone timestamp. A nil value clears the
// field on the server.
func (p *Patch) SetDate(f Field, t *time.Time) error {
	if err := p.check(f, kindDate); err != nil {
		return err
	}
	p.values[f] = cloneTime(t)
	return nil
}

// SetText stages a text or enum field such as be_no or consignment_type.
func (p *Patch) SetText(f Field, v string) error {
	if err := p.check(f, kindText); err != nil {
		return err
	}
	p.values[f] = v
	return nil
}

// SetFreeTime stages the shipment-level free time in days.
func (p *Patch) SetFreeTime(days int) error {
	if days < 0 {
		return &ValidationError{Field: FieldFreeTime, Reason: "must be zero or positive"}
	}
	p.values[FieldFreeTime] = days
	return nil
}

// SetStatus stages the derived status label (best-effort cache push only).
func (p *Patch) SetStatus(label StatusLabel) {
	p.values[FieldDetailedStatus] = label
}

// SetContainers stages a whole-list container replacement. The list is
// deep-copied; later edits to the caller's slice do not leak into the patch.
func (p *Patch) SetContainers(containers []Container) {
	p.values[FieldContainers] = CloneContainers(containers)
}

func (p *Patch) check(f Field, want fieldKind) error {
	kind, ok := fieldKinds[f]
	if !ok {
		return fmt.Errorf("%w: %q", ErrUnknownField, f)
	}
	if kind != want {
		return fmt.Errorf("%w: %q does not take this value kind", ErrUnknownField, f)
	}
	return nil
}

// IsEmpty reports whether the patch stages no fields.
func (p *Patch) IsEmpty() bool { return p == nil || len(p.values) == 0 }

// Fields returns the staged field names in deterministic order.
func (p *Patch) Fields() []Field {
	fields := make([]Field, 0, len(p.values))
	for f := range p.values {
		fields = append(fields, f)
	}
	return sortedFields(fields)
}

// Value returns the staged value for f, if present.
func (p *Patch) Value(f Field) (any, bool) {
	v, ok := p.values[f]
	return v, ok
}

// Containers returns the staged container list, if the patch replaces it.
func (p *Patch) Containers() ([]Container, bool) {
	v, ok := p.values[FieldContainers]
	if !ok {
		return nil, false
	}
	return v.([]Container), true
}

// Body renders the patch as the wire-level partial field map sent to the
// shipment store, e.g. {"assessment_date": ..., "container_nos": [...]}.
func (p *Patch) Body() map[string]any {
	body := make(map[string]any, len(p.values))
	for f, v := range p.values {
		body[string(f)] = v
	}
	return body
}

// ApplyTo mutates s with the staged values. This is the optimistic local
// mutation path; it mirrors exactly what Body sends to the store.
func (p *Patch) ApplyTo(s *Shipment) {
	for f, v := range p.values {
		switch f {
		case FieldVesselBerthing:
			s.VesselBerthing = cloneTime(v.(*time.Time))
		case FieldGatewayIGMDate:
			s.GatewayIGMDate = cloneTime(v.(*time.Time))
		case FieldDischargeDate:
			s.DischargeDate = cloneTime(v.(*time.Time))
		case FieldAssessmentDate:
			s.AssessmentDate = cloneTime(v.(*time.Time))
		case FieldPCVDate:
			s.PCVDate = cloneTime(v.(*time.Time))
		case FieldOutOfCharge:
			s.OutOfCharge = cloneTime(v.(*time.Time))
		case FieldBillOfEntryNo:
			s.BillOfEntryNo = v.(string)
		case FieldTypeOfBE:
			s.TypeOfBE = BillOfEntryType(v.(string))
		case FieldConsignmentType:
			s.ConsignmentType = ConsignmentType(v.(string))
		case FieldFreeTime:
			s.FreeTimeDays = v.(int)
		case FieldDetailedStatus:
			s.DetailedStatus = v.(StatusLabel)
		case FieldContainers:
			s.Containers = CloneContainers(v.([]Container))
		}
	}
}

// Mismatches compares the staged values against a server-side shipment and
// returns the staged fields whose server value diverges. Used by write
// verification to catch silent loss after a reported success. Container-level
// date fields are checked positionally inside the staged container list.
func (p *Patch) Mismatches(server *Shipment, fields []Field) []Field {
	var out []Field
	for _, f := range fields {
		if !p.applied(server, f) {
			out = append(out, f)
		}
	}
	return out
}

func (p *Patch) applied(server *Shipment, f Field) bool {
	if f.IsContainerDate() {
		staged, ok := p.Containers()
		if !ok {
			return true
		}
		if len(server.Containers) < len(staged) {
			return false
		}
		for i, c := range staged {
			if !timeEqual(containerDate(c, f), containerDate(server.Containers[i], f)) {
				return false
			}
		}
		return true
	}

	v, ok := p.values[f]
	if !ok {
		return true
	}
	switch f {
	case FieldVesselBerthing:
		return timeEqual(server.VesselBerthing, v.(*time.Time))
	case FieldGatewayIGMDate:
		return timeEqual(server.GatewayIGMDate, v.(*time.Time))
	case FieldDischargeDate:
		return timeEqual(server.DischargeDate, v.(*time.Time))
	case FieldAssessmentDate:
		return timeEqual(server.AssessmentDate, v.(*time.Time))
	case FieldPCVDate:
		return timeEqual(server.PCVDate, v.(*time.Time))
	case FieldOutOfCharge:
		return timeEqual(server.OutOfCharge, v.(*time.Time))
	case FieldBillOfEntryNo:
		return server.BillOfEntryNo == v.(string)
	case FieldTypeOfBE:
		return server.TypeOfBE == BillOfEntryType(v.(string))
	case FieldConsignmentType:
		return server.ConsignmentType == ConsignmentType(v.(string))
	case FieldFreeTime:
		return server.FreeTimeDays == v.(int)
	case FieldDetailedStatus:
		return server.DetailedStatus == v.(StatusLabel)
	case FieldContainers:
		staged := v.([]Container)
		if len(server.Containers) != len(staged) {
			return false
		}
		for i, c := range staged {
			sc := server.Containers[i]
			if !timeEqual(c.ArrivalDate, sc.ArrivalDate) ||
				!timeEqual(c.RailOutDate, sc.RailOutDate) ||
				!timeEqual(c.EmptyOffLoadDate, sc.EmptyOffLoadDate) ||
				!timeEqual(c.DeliveryDate, sc.DeliveryDate) {
				return false
			}
		}
		return true
	}
	return true
}

// SetContainerDate writes one per-container timestamp. Rejects fields that
// are not container-level dates; detention_from is derived, never set here.
func SetContainerDate(c *Container, f Field, t *time.Time) error {
	switch f {
	case FieldArrivalDate:
		c.ArrivalDate = cloneTime(t)
	case FieldRailOutDate:
		c.RailOutDate = cloneTime(t)
	case FieldEmptyOffLoadDate:
		c.EmptyOffLoadDate = cloneTime(t)
	case FieldDeliveryDate:
		c.DeliveryDate = cloneTime(t)
	default:
		return fmt.Errorf("%w: %q is not a container date", ErrUnknownField, f)
	}
	return nil
}

func containerDate(c Container, f Field) *time.Time {
	switch f {
	case FieldArrivalDate:
		return c.ArrivalDate
	case FieldRailOutDate:
		return c.RailOutDate
	case FieldEmptyOffLoadDate:
		return c.EmptyOffLoadDate
	case FieldDeliveryDate:
		return c.DeliveryDate
	}
	return nil
}
