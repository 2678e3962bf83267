package outbox

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/freightdesk/freightdesk-backend/pkg/enums"
)

const envelopeVersion = 1

// ActorRef identifies who produced the event.
type ActorRef struct {
	UserID uuid.UUID `json:"userId"`
	Role   string    `json:"role,omitempty"`
}

// PayloadEnvelope is the stable payload structure stored in outbox_events.
type PayloadEnvelope struct {
	Version    int             `json:"version"`
	EventID    string          `json:"eventId"`
	OccurredAt time.Time       `json:"occurredAt"`
	Actor      *ActorRef       `json:"actor,omitempty"`
	Data       json.RawMessage `json:"data"`
}

// DecodeEnvelope parses a stored payload.
func DecodeEnvelope(raw json.RawMessage) (PayloadEnvelope, error) {
	var env PayloadEnvelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return PayloadEnvelope{}, fmt.Errorf("decode outbox envelope: %w", err)
	}
	if env.EventID == "" {
		return PayloadEnvelope{}, fmt.Errorf("outbox envelope missing event id")
	}
	return env, nil
}

// StatusChanged is the data of indent.status_changed and trip.status_changed.
type StatusChanged struct {
	ID        uuid.UUID `json:"id"`
	ShortID   string    `json:"shortId"`
	From      string    `json:"from"`
	To        string    `json:"to"`
	Remark    string    `json:"remark"`
	ChangedAt time.Time `json:"changedAt"`
}

// IndentSnapshot is the data of indent.created and indent.updated.
type IndentSnapshot struct {
	ID          uuid.UUID          `json:"id"`
	ShortID     string             `json:"shortId"`
	ClientID    uuid.UUID          `json:"clientId"`
	Origin      string             `json:"origin"`
	Destination string             `json:"destination"`
	Status      enums.IndentStatus `json:"status"`
	TripCost    string             `json:"tripCost"`
	PickupAt    time.Time          `json:"pickupAt"`
}

// TripCreated is the data of trip.created.
type TripCreated struct {
	TripID        uuid.UUID `json:"tripId"`
	ShortID       string    `json:"shortId"`
	IndentID      uuid.UUID `json:"indentId"`
	TruckID       uuid.UUID `json:"truckId"`
	VehicleNumber string    `json:"vehicleNumber"`
	TripCost      string    `json:"tripCost"`
}

// TripLocation is the data of trip.location_updated.
type TripLocation struct {
	TripID   uuid.UUID `json:"tripId"`
	Location string    `json:"location"`
}

// PaymentRecorded is the data of trip_payment.recorded and trip_payment.status_set.
type PaymentRecorded struct {
	TripID        uuid.UUID           `json:"tripId"`
	PaymentStatus enums.PaymentStatus `json:"paymentStatus"`
	Balance       string              `json:"balance"`
	Cleared       string              `json:"cleared"`
}
