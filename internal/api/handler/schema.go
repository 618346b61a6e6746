package handler

import (
	"time"

	"github.com/clearport/import-console/internal/core/ports"
)

// --- Request / Response types ---

type editFieldRequest struct {
	Field string `json:"field" validate:"required"`
	// Value is the raw operator input: a date string for milestone fields
	// (empty clears the field), free text or an enum literal otherwise.
	Value string `json:"value"`
}

type freeTimeRequest struct {
	Days int `json:"days" validate:"gte=0,lte=365"`
}

type editResponse struct {
	ShipmentID     string            `json:"shipment_id"`
	DetailedStatus string            `json:"detailed_status"`
	UpdateState    ports.UpdateState `json:"update_state"`
}

type statusResponse struct {
	ShipmentID     string `json:"shipment_id"`
	DetailedStatus string `json:"detailed_status"`
}

type detentionResponse struct {
	ShipmentID     string     `json:"shipment_id"`
	ContainerIndex int        `json:"container_index"`
	DetentionFrom  *time.Time `json:"detention_from"`
}
