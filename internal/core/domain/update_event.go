package domain

import "time"

// UpdateOutcome is the terminal state of one coordinated update.
type UpdateOutcome string

const (
	UpdateSucceeded UpdateOutcome = "succeeded"
	UpdateFailed    UpdateOutcome = "failed"
)

// UpdateEvent is the audit record appended when an update settles.
type UpdateEvent struct {
	UpdateID    string        `json:"update_id" bson:"update_id"`
	ShipmentID  string        `json:"shipment_id" bson:"shipment_id"`
	Fields      []string      `json:"fields" bson:"fields"`
	Outcome     UpdateOutcome `json:"outcome" bson:"outcome"`
	Attempts    int           `json:"attempts" bson:"attempts"`
	Error       string        `json:"error,omitempty" bson:"error,omitempty"`
	SubmittedAt time.Time     `json:"submitted_at" bson:"submitted_at"`
	SettledAt   time.Time     `json:"settled_at" bson:"settled_at"`
}
