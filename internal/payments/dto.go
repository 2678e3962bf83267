package payments

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/freightdesk/freightdesk-backend/pkg/db/models"
	"github.com/freightdesk/freightdesk-backend/pkg/enums"
	"github.com/freightdesk/freightdesk-backend/pkg/ledger"
)

// UpsertInput patches a trip's ledger row. Nil fields keep their stored value.
type UpsertInput struct {
	TripCost        *decimal.Decimal `json:"trip_cost,omitempty"`
	ClientCost      *decimal.Decimal `json:"client_cost,omitempty"`
	AdvancePayment  *decimal.Decimal `json:"advance_payment,omitempty"`
	FinalPayment    *decimal.Decimal `json:"final_payment,omitempty"`
	TollCharges     *decimal.Decimal `json:"toll_charges,omitempty"`
	HaltingCharges  *decimal.Decimal `json:"halting_charges,omitempty"`
	TrafficFines    *decimal.Decimal `json:"traffic_fines,omitempty"`
	HandlingCharges *decimal.Decimal `json:"handling_charges,omitempty"`
	PlatformFees    *decimal.Decimal `json:"platform_fees,omitempty"`
	PlatformFines   *decimal.Decimal `json:"platform_fines,omitempty"`
	PaymentStatus   *string          `json:"payment_status,omitempty"`
	Notes           *string          `json:"notes,omitempty"`
	ActorID         uuid.UUID        `json:"-"`
}

// PaymentDTO is the API shape of a ledger row.
type PaymentDTO struct {
	TripID          uuid.UUID           `json:"trip_id"`
	TripCost        decimal.Decimal     `json:"trip_cost"`
	ClientCost      decimal.Decimal     `json:"client_cost"`
	AdvancePayment  decimal.Decimal     `json:"advance_payment"`
	FinalPayment    decimal.Decimal     `json:"final_payment"`
	TollCharges     decimal.Decimal     `json:"toll_charges"`
	HaltingCharges  decimal.Decimal     `json:"halting_charges"`
	TrafficFines    decimal.Decimal     `json:"traffic_fines"`
	HandlingCharges decimal.Decimal     `json:"handling_charges"`
	PlatformFees    decimal.Decimal     `json:"platform_fees"`
	PlatformFines   decimal.Decimal     `json:"platform_fines"`
	PaymentStatus   enums.PaymentStatus `json:"payment_status"`
	Notes           *string             `json:"notes,omitempty"`
	CreatedAt       time.Time           `json:"created_at"`
	UpdatedAt       time.Time           `json:"updated_at"`
}

func ToDTO(p *models.TripPayment) PaymentDTO {
	return PaymentDTO{
		TripID:          p.TripID,
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
		PaymentStatus:   p.PaymentStatus,
		Notes:           p.Notes,
		CreatedAt:       p.CreatedAt,
		UpdatedAt:       p.UpdatedAt,
	}
}

// SummaryDTO is the ledger row plus its derived figures, raw and formatted.
type SummaryDTO struct {
	Payment   PaymentDTO        `json:"payment"`
	Summary   ledger.Summary    `json:"summary"`
	Formatted map[string]string `json:"formatted"`
}

func NewSummaryDTO(p *models.TripPayment, mode ledger.HaltingMode) SummaryDTO {
	s := ledger.Summarize(p.Ledger(), mode)
	return SummaryDTO{
		Payment: ToDTO(p),
		Summary: s,
		Formatted: map[string]string{
			"trip_cost":    ledger.FormatINR(p.TripCost),
			"client_cost":  ledger.FormatINR(p.ClientCost),
			"balance":      ledger.FormatINR(s.Balance),
			"cleared":      ledger.FormatINR(s.Cleared),
			"gross_profit": ledger.FormatINR(s.GrossProfit),
			"net_earnings": ledger.FormatINR(s.NetEarnings),
		},
	}
}
