package enums

import (
	"fmt"
	"strings"
)

// PaymentStatus is the settlement state of a trip payment ledger.
type PaymentStatus string

const (
	PaymentStatusPending  PaymentStatus = "Pending"
	PaymentStatusPartial  PaymentStatus = "Partial"
	PaymentStatusSettled  PaymentStatus = "Settled"
	PaymentStatusDisputed PaymentStatus = "Disputed"
)

var validPaymentStatuses = []PaymentStatus{
	PaymentStatusPending,
	PaymentStatusPartial,
	PaymentStatusSettled,
	PaymentStatusDisputed,
}

func (s PaymentStatus) String() string {
	return string(s)
}

func (s PaymentStatus) IsValid() bool {
	for _, candidate := range validPaymentStatuses {
		if candidate == s {
			return true
		}
	}
	return false
}

// ParsePaymentStatus matches case-insensitively and returns the canonical casing.
func ParsePaymentStatus(value string) (PaymentStatus, error) {
	trimmed := strings.TrimSpace(value)
	for _, candidate := range validPaymentStatuses {
		if strings.EqualFold(string(candidate), trimmed) {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid payment status %q", value)
}
