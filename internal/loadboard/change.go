// Package loadboard keeps the public board of open indents current from the
// redis change feed and fans changes out to stream viewers.
package loadboard

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/freightdesk/freightdesk-backend/pkg/db/models"
	"github.com/freightdesk/freightdesk-backend/pkg/enums"
)

type Op string

const (
	OpInsert Op = "insert"
	OpUpdate Op = "update"
	OpDelete Op = "delete"
)

func (o Op) IsValid() bool {
	return o == OpInsert || o == OpUpdate || o == OpDelete
}

// IndentCard is the public projection of an indent. Client identity and
// contact details stay off the board.
type IndentCard struct {
	ID           uuid.UUID          `json:"id"`
	ShortID      string             `json:"short_id"`
	Origin       string             `json:"origin"`
	Destination  string             `json:"destination"`
	VehicleType  string             `json:"vehicle_type"`
	TripCost     decimal.Decimal    `json:"trip_cost"`
	TATHours     int                `json:"tat_hours"`
	LoadMaterial string             `json:"load_material,omitempty"`
	LoadWeightKg decimal.Decimal    `json:"load_weight_kg"`
	PickupAt     time.Time          `json:"pickup_at"`
	Status       enums.IndentStatus `json:"status"`
	CreatedAt    time.Time          `json:"created_at"`
	UpdatedAt    time.Time          `json:"updated_at"`
}

func CardFromIndent(m *models.Indent) IndentCard {
	return IndentCard{
		ID:           m.ID,
		ShortID:      m.ShortID,
		Origin:       m.Origin,
		Destination:  m.Destination,
		VehicleType:  m.VehicleType,
		TripCost:     m.TripCost,
		TATHours:     m.TATHours,
		LoadMaterial: m.LoadMaterial,
		LoadWeightKg: m.LoadWeightKg,
		PickupAt:     m.PickupAt,
		Status:       m.Status,
		CreatedAt:    m.CreatedAt,
		UpdatedAt:    m.UpdatedAt,
	}
}

// Change is one message on the feed channel.
type Change struct {
	Op     Op         `json:"op"`
	Indent IndentCard `json:"indent"`
}

func DecodeChange(payload []byte) (Change, error) {
	var c Change
	if err := json.Unmarshal(payload, &c); err != nil {
		return Change{}, fmt.Errorf("decode change: %w", err)
	}
	if !c.Op.IsValid() {
		return Change{}, fmt.Errorf("unknown change op %q", c.Op)
	}
	if c.Indent.ID == uuid.Nil {
		return Change{}, fmt.Errorf("change without indent id")
	}
	return c, nil
}
