package enums

import (
	"fmt"
	"strings"
)

// IndentStatus tracks the lifecycle of a load request.
type IndentStatus string

const (
	IndentStatusOpen          IndentStatus = "open"
	IndentStatusConfirmation  IndentStatus = "confirmation"
	IndentStatusVehiclePlaced IndentStatus = "vehicle_placed"
	IndentStatusCompleted     IndentStatus = "completed"
	IndentStatusPending       IndentStatus = "pending"
	IndentStatusCancelled     IndentStatus = "cancelled"
	IndentStatusFailed        IndentStatus = "failed"
)

var validIndentStatuses = []IndentStatus{
	IndentStatusOpen,
	IndentStatusConfirmation,
	IndentStatusVehiclePlaced,
	IndentStatusCompleted,
	IndentStatusPending,
	IndentStatusCancelled,
	IndentStatusFailed,
}

// legacyIndentStatuses maps the older status vocabulary onto the current one.
var legacyIndentStatuses = map[string]IndentStatus{
	"assigned":   IndentStatusVehiclePlaced,
	"in_transit": IndentStatusVehiclePlaced,
	"delivered":  IndentStatusCompleted,
	"canceled":   IndentStatusCancelled,
}

// IndentStatuses returns every known status in display order.
func IndentStatuses() []IndentStatus {
	out := make([]IndentStatus, len(validIndentStatuses))
	copy(out, validIndentStatuses)
	return out
}

// String implements fmt.Stringer.
func (s IndentStatus) String() string {
	return string(s)
}

// IsValid reports whether the value is a known IndentStatus.
func (s IndentStatus) IsValid() bool {
	for _, candidate := range validIndentStatuses {
		if candidate == s {
			return true
		}
	}
	return false
}

// RequiresVehicle reports whether entering s needs a vehicle number and driver phone.
func (s IndentStatus) RequiresVehicle() bool {
	switch s {
	case IndentStatusVehiclePlaced, IndentStatusCompleted, IndentStatusPending, IndentStatusCancelled, IndentStatusFailed:
		return true
	}
	return false
}

// OnLoadBoard reports whether indents in s are shown on the public load board.
func (s IndentStatus) OnLoadBoard() bool {
	return s == IndentStatusOpen || s == IndentStatusConfirmation
}

// ParseIndentStatus converts raw input into an IndentStatus, accepting legacy names.
func ParseIndentStatus(value string) (IndentStatus, error) {
	normalized := strings.ToLower(strings.TrimSpace(value))
	for _, candidate := range validIndentStatuses {
		if string(candidate) == normalized {
			return candidate, nil
		}
	}
	if mapped, ok := legacyIndentStatuses[normalized]; ok {
		return mapped, nil
	}
	return "", fmt.Errorf("invalid indent status %q", value)
}
