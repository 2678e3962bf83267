package fleet

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/freightdesk/freightdesk-backend/pkg/db/models"
)

// OwnerInput creates or replaces a truck owner.
type OwnerInput struct {
	UserID      *uuid.UUID `json:"user_id,omitempty"`
	Name        string     `json:"name" validate:"required"`
	Phone       string     `json:"phone" validate:"required,in_phone"`
	PAN         *string    `json:"pan,omitempty" validate:"omitempty,pan"`
	BankAccount *string    `json:"bank_account,omitempty" validate:"omitempty,numeric,min=9,max=18"`
	IFSC        *string    `json:"ifsc,omitempty" validate:"omitempty,ifsc"`
}

// TruckInput registers or edits a truck.
type TruckInput struct {
	OwnerID       uuid.UUID       `json:"owner_id" validate:"required"`
	VehicleNumber string          `json:"vehicle_number" validate:"required,vehicle_number"`
	VehicleType   string          `json:"vehicle_type" validate:"required"`
	CapacityTons  decimal.Decimal `json:"capacity_tons"`
	PermitStates  []string        `json:"permit_states,omitempty" validate:"dive,len=2,alpha"`
}

// ClientInput creates or replaces a shipper.
type ClientInput struct {
	UserID      *uuid.UUID `json:"user_id,omitempty"`
	CompanyName string     `json:"company_name" validate:"required"`
	ContactName string     `json:"contact_name" validate:"required"`
	Phone       string     `json:"phone" validate:"required,in_phone"`
	GSTIN       *string    `json:"gstin,omitempty" validate:"omitempty,gstin"`
}

type OwnerDTO struct {
	ID          uuid.UUID  `json:"id"`
	UserID      *uuid.UUID `json:"user_id,omitempty"`
	Name        string     `json:"name"`
	Phone       string     `json:"phone"`
	PAN         *string    `json:"pan,omitempty"`
	BankAccount *string    `json:"bank_account,omitempty"`
	IFSC        *string    `json:"ifsc,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
}

type TruckDTO struct {
	ID            uuid.UUID       `json:"id"`
	OwnerID       uuid.UUID       `json:"owner_id"`
	VehicleNumber string          `json:"vehicle_number"`
	VehicleType   string          `json:"vehicle_type"`
	CapacityTons  decimal.Decimal `json:"capacity_tons"`
	PermitStates  []string        `json:"permit_states"`
	CreatedAt     time.Time       `json:"created_at"`
}

type ClientDTO struct {
	ID          uuid.UUID  `json:"id"`
	UserID      *uuid.UUID `json:"user_id,omitempty"`
	CompanyName string     `json:"company_name"`
	ContactName string     `json:"contact_name"`
	Phone       string     `json:"phone"`
	GSTIN       *string    `json:"gstin,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
}

func OwnerToDTO(m *models.TruckOwner) OwnerDTO {
	return OwnerDTO{
		ID:          m.ID,
		UserID:      m.UserID,
		Name:        m.Name,
		Phone:       m.Phone,
		PAN:         m.PAN,
		BankAccount: m.BankAccount,
		IFSC:        m.IFSC,
		CreatedAt:   m.CreatedAt,
	}
}

func TruckToDTO(m *models.Truck) TruckDTO {
	states := []string(m.PermitStates)
	if states == nil {
		states = []string{}
	}
	return TruckDTO{
		ID:            m.ID,
		OwnerID:       m.OwnerID,
		VehicleNumber: m.VehicleNumber,
		VehicleType:   m.VehicleType,
		CapacityTons:  m.CapacityTons,
		PermitStates:  states,
		CreatedAt:     m.CreatedAt,
	}
}

func ClientToDTO(m *models.Client) ClientDTO {
	return ClientDTO{
		ID:          m.ID,
		UserID:      m.UserID,
		CompanyName: m.CompanyName,
		ContactName: m.ContactName,
		Phone:       m.Phone,
		GSTIN:       m.GSTIN,
		CreatedAt:   m.CreatedAt,
	}
}
