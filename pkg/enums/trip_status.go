package enums

import (
	"fmt"
	"strings"
)

// TripStatus tracks the lifecycle of a trip.
type TripStatus string

const (
	TripStatusCreated   TripStatus = "created"
	TripStatusStarted   TripStatus = "started"
	TripStatusPaused    TripStatus = "paused"
	TripStatusStopped   TripStatus = "stopped"
	TripStatusCompleted TripStatus = "completed"
	TripStatusCancelled TripStatus = "cancelled"
)

var validTripStatuses = []TripStatus{
	TripStatusCreated,
	TripStatusStarted,
	TripStatusPaused,
	TripStatusStopped,
	TripStatusCompleted,
	TripStatusCancelled,
}

// TripStatuses returns every known status in display order.
func TripStatuses() []TripStatus {
	out := make([]TripStatus, len(validTripStatuses))
	copy(out, validTripStatuses)
	return out
}

func (s TripStatus) String() string {
	return string(s)
}

func (s TripStatus) IsValid() bool {
	for _, candidate := range validTripStatuses {
		if candidate == s {
			return true
		}
	}
	return false
}

// Ends reports whether entering s closes the trip.
func (s TripStatus) Ends() bool {
	return s == TripStatusCompleted || s == TripStatusCancelled
}

func ParseTripStatus(value string) (TripStatus, error) {
	normalized := strings.ToLower(strings.TrimSpace(value))
	for _, candidate := range validTripStatuses {
		if string(candidate) == normalized {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid trip status %q", value)
}
