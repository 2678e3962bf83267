package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/freightdesk/freightdesk-backend/pkg/enums"
	"github.com/freightdesk/freightdesk-backend/pkg/ledger"
)

// TripPayment is the single payment ledger row of a trip.
type TripPayment struct {
	TripID          uuid.UUID           `gorm:"column:trip_id;type:uuid;primaryKey"`
	TripCost        decimal.Decimal     `gorm:"column:trip_cost;type:numeric(12,2);not null;default:0"`
	ClientCost      decimal.Decimal     `gorm:"column:client_cost;type:numeric(12,2);not null;default:0"`
	AdvancePayment  decimal.Decimal     `gorm:"column:advance_payment;type:numeric(12,2);not null;default:0"`
	FinalPayment    decimal.Decimal     `gorm:"column:final_payment;type:numeric(12,2);not null;default:0"`
	TollCharges     decimal.Decimal     `gorm:"column:toll_charges;type:numeric(12,2);not null;default:0"`
	HaltingCharges  decimal.Decimal     `gorm:"column:halting_charges;type:numeric(12,2);not null;default:0"`
	TrafficFines    decimal.Decimal     `gorm:"column:traffic_fines;type:numeric(12,2);not null;default:0"`
	HandlingCharges decimal.Decimal     `gorm:"column:handling_charges;type:numeric(12,2);not null;default:0"`
	PlatformFees    decimal.Decimal     `gorm:"column:platform_fees;type:numeric(12,2);not null;default:0"`
	PlatformFines   decimal.Decimal     `gorm:"column:platform_fines;type:numeric(12,2);not null;default:0"`
	PaymentStatus   enums.PaymentStatus `gorm:"column:payment_status;type:payment_status;not null;default:'Pending'"`
	Notes           *string             `gorm:"column:notes"`
	CreatedAt       time.Time           `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt       time.Time           `gorm:"column:updated_at;autoUpdateTime"`
}

func (TripPayment) TableName() string { return "trip_payments" }

// Ledger projects the money fields for the ledger calculator.
func (p TripPayment) Ledger() ledger.Payment {
	return ledger.Payment{
		TripCost:        p.TripCost,
		ClientCost:      p.ClientCost,
		AdvancePayment:  p.AdvancePayment,
		FinalPayment:    p.FinalPayment,
		TollCharges:     p.TollCharges,
		HaltingCharges:  p.HaltingCharges,
		TrafficFines:    p.TrafficFines,
		HandlingCharges: p.HandlingCharges,
		PlatformFees:    p.PlatformFees,
		PlatformFines:   p.PlatformFines,
	}
}
