package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// TruckOwner is an onboarded agent who supplies trucks.
type TruckOwner struct {
	ID          uuid.UUID  `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	UserID      *uuid.UUID `gorm:"column:user_id;type:uuid"`
	Name        string     `gorm:"column:name;not null"`
	Phone       string     `gorm:"column:phone;not null"`
	PAN         *string    `gorm:"column:pan"`
	BankAccount *string    `gorm:"column:bank_account"`
	IFSC        *string    `gorm:"column:ifsc"`
	CreatedAt   time.Time  `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt   time.Time  `gorm:"column:updated_at;autoUpdateTime"`
}

func (TruckOwner) TableName() string { return "truck_owners" }

func (o *TruckOwner) BeforeCreate(*gorm.DB) error {
	ensureID(&o.ID)
	return nil
}

// Truck is a vehicle registered under a truck owner.
type Truck struct {
	ID            uuid.UUID       `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	OwnerID       uuid.UUID       `gorm:"column:owner_id;type:uuid;not null;index"`
	VehicleNumber string          `gorm:"column:vehicle_number;not null;uniqueIndex"`
	VehicleType   string          `gorm:"column:vehicle_type;not null"`
	CapacityTons  decimal.Decimal `gorm:"column:capacity_tons;type:numeric(8,2);not null;default:0"`
	PermitStates  pq.StringArray  `gorm:"column:permit_states;type:text[]"`
	CreatedAt     time.Time       `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt     time.Time       `gorm:"column:updated_at;autoUpdateTime"`
}

func (Truck) TableName() string { return "trucks" }

func (t *Truck) BeforeCreate(*gorm.DB) error {
	ensureID(&t.ID)
	return nil
}

// Client is a shipper company that posts indents.
type Client struct {
	ID          uuid.UUID  `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	UserID      *uuid.UUID `gorm:"column:user_id;type:uuid"`
	CompanyName string     `gorm:"column:company_name;not null"`
	ContactName string     `gorm:"column:contact_name;not null"`
	Phone       string     `gorm:"column:phone;not null"`
	GSTIN       *string    `gorm:"column:gstin"`
	CreatedAt   time.Time  `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt   time.Time  `gorm:"column:updated_at;autoUpdateTime"`
}

func (Client) TableName() string { return "clients" }

func (c *Client) BeforeCreate(*gorm.DB) error {
	ensureID(&c.ID)
	return nil
}
