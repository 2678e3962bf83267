// Package ledger computes the derived figures of a trip payment ledger.
// Every function is pure: absent money fields are zero and inputs are never mutated.
package ledger

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/freightdesk/freightdesk-backend/pkg/enums"
)

// HaltingMode is the sign applied to halting charges in Balance.
type HaltingMode string

const (
	// HaltingAdd adds halting charges back onto the amount owed.
	HaltingAdd HaltingMode = "add"
	// HaltingDeduct treats halting charges like any other deduction.
	HaltingDeduct HaltingMode = "deduct"
)

func ParseHaltingMode(value string) (HaltingMode, error) {
	switch HaltingMode(strings.ToLower(strings.TrimSpace(value))) {
	case HaltingAdd:
		return HaltingAdd, nil
	case HaltingDeduct:
		return HaltingDeduct, nil
	}
	return "", fmt.Errorf("invalid halting mode %q", value)
}

// Payment holds the money fields of a trip payment ledger.
type Payment struct {
	TripCost        decimal.Decimal
	ClientCost      decimal.Decimal
	AdvancePayment  decimal.Decimal
	FinalPayment    decimal.Decimal
	TollCharges     decimal.Decimal
	HaltingCharges  decimal.Decimal
	TrafficFines    decimal.Decimal
	HandlingCharges decimal.Decimal
	PlatformFees    decimal.Decimal
	PlatformFines   decimal.Decimal
}

// Deductions is everything netted against trip cost except halting charges.
func Deductions(p Payment) decimal.Decimal {
	return decimal.Sum(
		p.AdvancePayment,
		p.FinalPayment,
		p.TollCharges,
		p.TrafficFines,
		p.HandlingCharges,
		p.PlatformFees,
		p.PlatformFines,
	)
}

// Balance is the amount still owed on the trip.
func Balance(p Payment, mode HaltingMode) decimal.Decimal {
	balance := p.TripCost.Sub(Deductions(p))
	if mode == HaltingDeduct {
		return balance.Sub(p.HaltingCharges)
	}
	return balance.Add(p.HaltingCharges)
}

// Cleared is what has been paid out to the truck owner.
func Cleared(p Payment) decimal.Decimal {
	return p.AdvancePayment.Add(p.FinalPayment)
}

func GrossProfit(p Payment) decimal.Decimal {
	return p.ClientCost.Sub(p.TripCost)
}

// NetEarnings is zero until client cost and both payouts are recorded.
func NetEarnings(p Payment) decimal.Decimal {
	if p.ClientCost.IsZero() || p.AdvancePayment.IsZero() || p.FinalPayment.IsZero() {
		return decimal.Zero
	}
	return p.ClientCost.Sub(decimal.Sum(p.AdvancePayment, p.FinalPayment, p.HaltingCharges))
}

// Summary bundles the derived figures for display.
type Summary struct {
	HaltingMode     HaltingMode     `json:"halting_mode"`
	Balance         decimal.Decimal `json:"balance"`
	Cleared         decimal.Decimal `json:"cleared"`
	GrossProfit     decimal.Decimal `json:"gross_profit"`
	NetEarnings     decimal.Decimal `json:"net_earnings"`
	BalanceNegative bool            `json:"balance_negative"`
}

func Summarize(p Payment, mode HaltingMode) Summary {
	balance := Balance(p, mode)
	return Summary{
		HaltingMode:     mode,
		Balance:         balance,
		Cleared:         Cleared(p),
		GrossProfit:     GrossProfit(p),
		NetEarnings:     NetEarnings(p),
		BalanceNegative: balance.IsNegative(),
	}
}

// DeriveStatus infers a settlement status from the ledger figures.
// Disputed is set by people only and is kept as is.
func DeriveStatus(p Payment, mode HaltingMode, current enums.PaymentStatus) enums.PaymentStatus {
	if current == enums.PaymentStatusDisputed {
		return current
	}
	cleared := Cleared(p)
	switch {
	case cleared.IsPositive() && !Balance(p, mode).IsPositive():
		return enums.PaymentStatusSettled
	case cleared.IsPositive():
		return enums.PaymentStatusPartial
	default:
		return enums.PaymentStatusPending
	}
}
