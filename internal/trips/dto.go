package trips

import (
	"time"

	"github.com/google/uuid"

	"github.com/freightdesk/freightdesk-backend/internal/indents"
	"github.com/freightdesk/freightdesk-backend/pkg/db/models"
	"github.com/freightdesk/freightdesk-backend/pkg/enums"
)

// AssignInput turns an indent into a trip on the given truck.
type AssignInput struct {
	IndentID    uuid.UUID
	TruckID     uuid.UUID
	DriverPhone string
	ActorID     uuid.UUID
}

// AssignResult is everything AssignTruck wrote.
type AssignResult struct {
	Trip    *models.Trip
	Indent  *models.Indent
	Payment *models.TripPayment
}

type TransitionInput struct {
	TripID   uuid.UUID
	Status   string
	ActorID  uuid.UUID
	Location *string
	Comment  *string
}

// TransitionResult is the trip after the call. History is nil when nothing changed.
type TransitionResult struct {
	Trip    *models.Trip
	History *models.TripStatusHistory
	From    enums.TripStatus
	Changed bool
}

type LocationInput struct {
	TripID   uuid.UUID
	Location string
	ActorID  uuid.UUID
}

type ListFilters struct {
	Status  *enums.TripStatus
	TruckID *uuid.UUID
}

type ListParams struct {
	Filters ListFilters
	Limit   int
	Cursor  string
}

type ListResult struct {
	Items      []TripDTO `json:"items"`
	NextCursor string    `json:"next_cursor,omitempty"`
}

type TripDTO struct {
	ID              uuid.UUID        `json:"id"`
	ShortID         string           `json:"short_id"`
	IndentID        uuid.UUID        `json:"indent_id"`
	TruckID         uuid.UUID        `json:"truck_id"`
	Status          enums.TripStatus `json:"status"`
	StartTime       *time.Time       `json:"start_time,omitempty"`
	EndTime         *time.Time       `json:"end_time,omitempty"`
	CurrentLocation *string          `json:"current_location,omitempty"`
	DriverPhone     string           `json:"driver_phone"`
	CreatedAt       time.Time        `json:"created_at"`
	UpdatedAt       time.Time        `json:"updated_at"`
}

func ToDTO(m *models.Trip) TripDTO {
	return TripDTO{
		ID:              m.ID,
		ShortID:         m.ShortID,
		IndentID:        m.IndentID,
		TruckID:         m.TruckID,
		Status:          m.Status,
		StartTime:       m.StartTime,
		EndTime:         m.EndTime,
		CurrentLocation: m.CurrentLocation,
		DriverPhone:     m.DriverPhone,
		CreatedAt:       m.CreatedAt,
		UpdatedAt:       m.UpdatedAt,
	}
}

type HistoryDTO struct {
	ID        uuid.UUID        `json:"id"`
	TripID    uuid.UUID        `json:"trip_id"`
	ToStatus  enums.TripStatus `json:"to_status"`
	ChangedBy uuid.UUID        `json:"changed_by"`
	Remark    string           `json:"remark"`
	ChangedAt time.Time        `json:"changed_at"`
}

func HistoryToDTO(h models.TripStatusHistory) HistoryDTO {
	return HistoryDTO{
		ID:        h.ID,
		TripID:    h.TripID,
		ToStatus:  h.ToStatus,
		ChangedBy: h.ChangedBy,
		Remark:    h.Remark,
		ChangedAt: h.ChangedAt,
	}
}

type TransitionDTO struct {
	Trip    TripDTO     `json:"trip"`
	From    string      `json:"from"`
	Changed bool        `json:"changed"`
	History *HistoryDTO `json:"history_entry,omitempty"`
}

func TransitionToDTO(r *TransitionResult) TransitionDTO {
	out := TransitionDTO{Trip: ToDTO(r.Trip), From: string(r.From), Changed: r.Changed}
	if r.History != nil {
		h := HistoryToDTO(*r.History)
		out.History = &h
	}
	return out
}

// AssignDTO is the response of the assign endpoints.
type AssignDTO struct {
	Trip   TripDTO           `json:"trip"`
	Indent indents.IndentDTO `json:"indent"`
}

func AssignToDTO(r *AssignResult) AssignDTO {
	return AssignDTO{Trip: ToDTO(r.Trip), Indent: indents.ToDTO(r.Indent)}
}
