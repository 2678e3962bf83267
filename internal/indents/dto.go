package indents

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/freightdesk/freightdesk-backend/pkg/db/models"
	"github.com/freightdesk/freightdesk-backend/pkg/enums"
)

// CreateInput carries a new load request.
type CreateInput struct {
	ClientID     uuid.UUID
	Origin       string
	Destination  string
	VehicleType  string
	TripCost     decimal.Decimal
	TATHours     int
	LoadMaterial string
	LoadWeightKg decimal.Decimal
	PickupAt     time.Time
	ContactPhone string
	ActorID      uuid.UUID
}

// UpdateInput edits non-status fields. Nil fields are left unchanged.
type UpdateInput struct {
	Origin       *string
	Destination  *string
	VehicleType  *string
	TripCost     *decimal.Decimal
	TATHours     *int
	LoadMaterial *string
	LoadWeightKg *decimal.Decimal
	PickupAt     *time.Time
	ContactPhone *string
	ActorID      uuid.UUID
}

// TransitionInput requests a status change. Status may use legacy names.
type TransitionInput struct {
	IndentID      uuid.UUID
	Status        string
	ActorID       uuid.UUID
	VehicleNumber *string
	DriverPhone   *string
	Comment       *string
}

// TransitionResult is the indent after the call. History is nil when nothing changed.
type TransitionResult struct {
	Indent  *models.Indent
	History *models.IndentStatusHistory
	From    enums.IndentStatus
	Changed bool
}

// ListFilters narrow the indent list.
type ListFilters struct {
	Status      *enums.IndentStatus
	ClientID    *uuid.UUID
	CreatedFrom *time.Time
	CreatedTo   *time.Time
}

type ListParams struct {
	Filters ListFilters
	Limit   int
	Cursor  string
}

type ListResult struct {
	Items      []IndentDTO `json:"items"`
	NextCursor string      `json:"next_cursor,omitempty"`
}

// IndentDTO is the API shape of an indent.
type IndentDTO struct {
	ID            uuid.UUID          `json:"id"`
	ShortID       string             `json:"short_id"`
	ClientID      uuid.UUID          `json:"client_id"`
	Origin        string             `json:"origin"`
	Destination   string             `json:"destination"`
	VehicleType   string             `json:"vehicle_type"`
	TripCost      decimal.Decimal    `json:"trip_cost"`
	TATHours      int                `json:"tat_hours"`
	LoadMaterial  string             `json:"load_material,omitempty"`
	LoadWeightKg  decimal.Decimal    `json:"load_weight_kg"`
	PickupAt      time.Time          `json:"pickup_at"`
	ContactPhone  string             `json:"contact_phone"`
	Status        enums.IndentStatus `json:"status"`
	VehicleNumber *string            `json:"vehicle_number,omitempty"`
	DriverPhone   *string            `json:"driver_phone,omitempty"`
	CreatedBy     uuid.UUID          `json:"created_by"`
	CreatedAt     time.Time          `json:"created_at"`
	UpdatedAt     time.Time          `json:"updated_at"`
}

func ToDTO(m *models.Indent) IndentDTO {
	return IndentDTO{
		ID:            m.ID,
		ShortID:       m.ShortID,
		ClientID:      m.ClientID,
		Origin:        m.Origin,
		Destination:   m.Destination,
		VehicleType:   m.VehicleType,
		TripCost:      m.TripCost,
		TATHours:      m.TATHours,
		LoadMaterial:  m.LoadMaterial,
		LoadWeightKg:  m.LoadWeightKg,
		PickupAt:      m.PickupAt,
		ContactPhone:  m.ContactPhone,
		Status:        m.Status,
		VehicleNumber: m.VehicleNumber,
		DriverPhone:   m.DriverPhone,
		CreatedBy:     m.CreatedBy,
		CreatedAt:     m.CreatedAt,
		UpdatedAt:     m.UpdatedAt,
	}
}

// HistoryDTO is one audit row in API responses.
type HistoryDTO struct {
	ID        uuid.UUID          `json:"id"`
	IndentID  uuid.UUID          `json:"indent_id"`
	ToStatus  enums.IndentStatus `json:"to_status"`
	ChangedBy uuid.UUID          `json:"changed_by"`
	Remark    string             `json:"remark"`
	ChangedAt time.Time          `json:"changed_at"`
}

func HistoryToDTO(h models.IndentStatusHistory) HistoryDTO {
	return HistoryDTO{
		ID:        h.ID,
		IndentID:  h.IndentID,
		ToStatus:  h.ToStatus,
		ChangedBy: h.ChangedBy,
		Remark:    h.Remark,
		ChangedAt: h.ChangedAt,
	}
}

// TransitionDTO is returned by the transition endpoints.
type TransitionDTO struct {
	Indent  IndentDTO   `json:"indent"`
	History *HistoryDTO `json:"history_entry"`
	Changed bool        `json:"changed"`
}

func TransitionToDTO(r *TransitionResult) TransitionDTO {
	out := TransitionDTO{Indent: ToDTO(r.Indent), Changed: r.Changed}
	if r.History != nil {
		h := HistoryToDTO(*r.History)
		out.History = &h
	}
	return out
}
