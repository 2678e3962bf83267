package enums

import "fmt"

// OutboxAggregateType names the entity an outbox event belongs to.
type OutboxAggregateType string

const (
	AggregateIndent      OutboxAggregateType = "indent"
	AggregateTrip        OutboxAggregateType = "trip"
	AggregateTripPayment OutboxAggregateType = "trip_payment"
)

var validAggregateTypes = []OutboxAggregateType{
	AggregateIndent,
	AggregateTrip,
	AggregateTripPayment,
}

// IsValid reports whether the value is a known aggregate type.
func (a OutboxAggregateType) IsValid() bool {
	for _, candidate := range validAggregateTypes {
		if candidate == a {
			return true
		}
	}
	return false
}

func ParseOutboxAggregateType(value string) (OutboxAggregateType, error) {
	for _, candidate := range validAggregateTypes {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid aggregate type %q", value)
}

// OutboxEventType names a domain event written to the outbox.
type OutboxEventType string

const (
	EventIndentCreated        OutboxEventType = "indent.created"
	EventIndentUpdated        OutboxEventType = "indent.updated"
	EventIndentStatusChanged  OutboxEventType = "indent.status_changed"
	EventTripCreated          OutboxEventType = "trip.created"
	EventTripStatusChanged    OutboxEventType = "trip.status_changed"
	EventTripLocationUpdated  OutboxEventType = "trip.location_updated"
	EventTripPaymentRecorded  OutboxEventType = "trip_payment.recorded"
	EventTripPaymentStatusSet OutboxEventType = "trip_payment.status_set"
)

var validEventTypes = []OutboxEventType{
	EventIndentCreated,
	EventIndentUpdated,
	EventIndentStatusChanged,
	EventTripCreated,
	EventTripStatusChanged,
	EventTripLocationUpdated,
	EventTripPaymentRecorded,
	EventTripPaymentStatusSet,
}

// OutboxEventTypes returns every event type the freight services emit.
func OutboxEventTypes() []OutboxEventType {
	return append([]OutboxEventType(nil), validEventTypes...)
}

func (e OutboxEventType) IsValid() bool {
	for _, candidate := range validEventTypes {
		if candidate == e {
			return true
		}
	}
	return false
}

func ParseOutboxEventType(value string) (OutboxEventType, error) {
	for _, candidate := range validEventTypes {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid event type %q", value)
}
