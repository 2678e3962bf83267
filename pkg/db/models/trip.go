package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/freightdesk/freightdesk-backend/pkg/enums"
)

// Trip is the fulfillment record created when an indent is assigned a truck.
type Trip struct {
	ID              uuid.UUID        `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	ShortID         string           `gorm:"column:short_id;not null;uniqueIndex"`
	IndentID        uuid.UUID        `gorm:"column:indent_id;type:uuid;not null;uniqueIndex"`
	TruckID         uuid.UUID        `gorm:"column:truck_id;type:uuid;not null"`
	Status          enums.TripStatus `gorm:"column:status;type:trip_status;not null;default:'created'"`
	StartTime       *time.Time       `gorm:"column:start_time"`
	EndTime         *time.Time       `gorm:"column:end_time"`
	CurrentLocation *string          `gorm:"column:current_location"`
	DriverPhone     string           `gorm:"column:driver_phone;not null"`
	CreatedAt       time.Time        `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt       time.Time        `gorm:"column:updated_at;autoUpdateTime"`
}

func (Trip) TableName() string { return "trips" }

func (t *Trip) BeforeCreate(*gorm.DB) error {
	ensureID(&t.ID)
	return nil
}

// TripStatusHistory is one append-only audit row per trip transition.
type TripStatusHistory struct {
	ID        uuid.UUID        `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	TripID    uuid.UUID        `gorm:"column:trip_id;type:uuid;not null;index"`
	ToStatus  enums.TripStatus `gorm:"column:to_status;type:trip_status;not null"`
	ChangedBy uuid.UUID        `gorm:"column:changed_by;type:uuid;not null"`
	Remark    string           `gorm:"column:remark;not null"`
	ChangedAt time.Time        `gorm:"column:changed_at;not null"`
}

func (TripStatusHistory) TableName() string { return "trip_status_history" }

func (h *TripStatusHistory) BeforeCreate(*gorm.DB) error {
	ensureID(&h.ID)
	return nil
}
