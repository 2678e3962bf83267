package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/freightdesk/freightdesk-backend/pkg/enums"
)

// Indent is a client's request for a truck to move a load.
type Indent struct {
	ID            uuid.UUID          `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	ShortID       string             `gorm:"column:short_id;not null;uniqueIndex"`
	ClientID      uuid.UUID          `gorm:"column:client_id;type:uuid;not null"`
	Origin        string             `gorm:"column:origin;not null"`
	Destination   string             `gorm:"column:destination;not null"`
	VehicleType   string             `gorm:"column:vehicle_type;not null"`
	TripCost      decimal.Decimal    `gorm:"column:trip_cost;type:numeric(12,2);not null;default:0"`
	TATHours      int                `gorm:"column:tat_hours;not null;default:0"`
	LoadMaterial  string             `gorm:"column:load_material"`
	LoadWeightKg  decimal.Decimal    `gorm:"column:load_weight_kg;type:numeric(12,2);not null;default:0"`
	PickupAt      time.Time          `gorm:"column:pickup_at;not null"`
	ContactPhone  string             `gorm:"column:contact_phone;not null"`
	Status        enums.IndentStatus `gorm:"column:status;type:indent_status;not null;default:'open'"`
	VehicleNumber *string            `gorm:"column:vehicle_number"`
	DriverPhone   *string            `gorm:"column:driver_phone"`
	CreatedBy     uuid.UUID          `gorm:"column:created_by;type:uuid;not null"`
	CreatedAt     time.Time          `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt     time.Time          `gorm:"column:updated_at;autoUpdateTime"`
}

func (Indent) TableName() string { return "indents" }

func (i *Indent) BeforeCreate(*gorm.DB) error {
	ensureID(&i.ID)
	return nil
}

// IndentStatusHistory is one append-only audit row per indent transition.
type IndentStatusHistory struct {
	ID        uuid.UUID          `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	IndentID  uuid.UUID          `gorm:"column:indent_id;type:uuid;not null;index"`
	ToStatus  enums.IndentStatus `gorm:"column:to_status;type:indent_status;not null"`
	ChangedBy uuid.UUID          `gorm:"column:changed_by;type:uuid;not null"`
	Remark    string             `gorm:"column:remark;not null"`
	ChangedAt time.Time          `gorm:"column:changed_at;not null"`
}

func (IndentStatusHistory) TableName() string { return "indent_status_history" }

func (h *IndentStatusHistory) BeforeCreate(*gorm.DB) error {
	ensureID(&h.ID)
	return nil
}
