package domain

import "sort"

// Field names a single editable shipment attribute. The set of fields is
// closed: patches referencing anything outside this registry are rejected
// before they reach the store.
type Field string

const (
	// Job-level milestone dates.
	FieldVesselBerthing Field = "vessel_berthing"
	FieldGatewayIGMDate Field = "gateway_igm_date"
	FieldDischargeDate  Field = "discharge_date"
	FieldAssessmentDate Field = "assessment_date"
	FieldPCVDate        Field = "pcv_date"
	FieldOutOfCharge    Field = "out_of_charge"

	// Job-level flags.
	FieldBillOfEntryNo   Field = "be_no"
	FieldTypeOfBE        Field = "type_of_be"
	FieldConsignmentType Field = "consignment_type"
	FieldFreeTime        Field = "free_time"
	FieldDetailedStatus  Field = "detailed_status"

	// Whole-list container replacement.
	FieldContainers Field = "container_nos"

	// Container-level dates (live inside container_nos on the wire).
	FieldArrivalDate      Field = "arrival_date"
	FieldRailOutDate      Field = "container_rail_out_date"
	FieldEmptyOffLoadDate Field = "empty_container_off_load_date"
	FieldDeliveryDate     Field = "delivery_date"
)

type fieldKind int

const (
	kindDate fieldKind = iota
	kindText
	kindInt
	kindStatus
	kindContainers
	kindContainerDate
)

var fieldKinds = map[Field]fieldKind{
	FieldVesselBerthing:   kindDate,
	FieldGatewayIGMDate:   kindDate,
	FieldDischargeDate:    kindDate,
	FieldAssessmentDate:   kindDate,
	FieldPCVDate:          kindDate,
	FieldOutOfCharge:      kindDate,
	FieldBillOfEntryNo:    kindText,
	FieldTypeOfBE:         kindText,
	FieldConsignmentType:  kindText,
	FieldFreeTime:         kindInt,
	FieldDetailedStatus:   kindStatus,
	FieldContainers:       kindContainers,
	FieldArrivalDate:      kindContainerDate,
	FieldRailOutDate:      kindContainerDate,
	FieldEmptyOffLoadDate: kindContainerDate,
	FieldDeliveryDate:     kindContainerDate,
}

// fieldMessages are the operator-facing notification texts emitted when a
// field update settles successfully.
var fieldMessages = map[Field]string{
	FieldVesselBerthing:   "ETA updated",
	FieldGatewayIGMDate:   "Gateway IGM date updated",
	FieldDischargeDate:    "Discharge date updated",
	FieldAssessmentDate:   "Assessment date updated",
	FieldPCVDate:          "PCV date updated",
	FieldOutOfCharge:      "Out of charge date updated",
	FieldBillOfEntryNo:    "Bill of entry number updated",
	FieldTypeOfBE:         "Type of BE updated",
	FieldConsignmentType:  "Consignment type updated",
	FieldFreeTime:         "Free time updated",
	FieldDetailedStatus:   "Status refreshed",
	FieldContainers:       "Container details updated",
	FieldArrivalDate:      "Container arrival date updated",
	FieldRailOutDate:      "Container rail out date updated",
	FieldEmptyOffLoadDate: "Empty container off-load date updated",
	FieldDeliveryDate:     "Container delivery date updated",
}

// Known reports whether f belongs to the closed field registry.
func (f Field) Known() bool {
	_, ok := fieldKinds[f]
	return ok
}

// IsJobDate reports whether f is a job-level milestone timestamp.
func (f Field) IsJobDate() bool { return fieldKinds[f] == kindDate }

// IsContainerDate reports whether f is a per-container timestamp.
func (f Field) IsContainerDate() bool { return fieldKinds[f] == kindContainerDate }

// IsText reports whether f carries a free-text or enum value.
func (f Field) IsText() bool { return fieldKinds[f] == kindText }

// Message returns the operator notification text for an update to f.
func (f Field) Message() string {
	if msg, ok := fieldMessages[f]; ok {
		return msg
	}
	return string(f) + " updated"
}

func sortedFields(fields []Field) []Field {
	dup := make([]Field, len(fields))
	copy(dup, fields)
	sort.Slice(dup, func(i, j int) bool { return dup[i] < dup[j] })
	return dup
}
