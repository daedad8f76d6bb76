package enums

import "fmt"

// OutboxAggregateType names the entity an outbox event belongs to.
type OutboxAggregateType string

const (
	AggregateOrder          OutboxAggregateType = "order"
	AggregatePaymentAttempt OutboxAggregateType = "payment_attempt"
	AggregateCustomerQuery  OutboxAggregateType = "customer_query"
)

var validAggregateTypes = []OutboxAggregateType{
	AggregateOrder,
	AggregatePaymentAttempt,
	AggregateCustomerQuery,
}

// IsValid reports whether the value matches a known aggregate type.
func (a OutboxAggregateType) IsValid() bool {
	for _, candidate := range validAggregateTypes {
		if candidate == a {
			return true
		}
	}
	return false
}

// ParseOutboxAggregateType converts raw input into OutboxAggregateType.
func ParseOutboxAggregateType(value string) (OutboxAggregateType, error) {
	for _, candidate := range validAggregateTypes {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid aggregate type %q", value)
}

// OutboxEventType identifies a domain event written to the outbox.
type OutboxEventType string

const (
	EventOrderCreated       OutboxEventType = "order_created"
	EventOrderStatusChanged OutboxEventType = "order_status_changed"
	EventOrderPaid          OutboxEventType = "order_paid"
	EventOrderExpired       OutboxEventType = "order_expired"
	EventPaymentFailed      OutboxEventType = "payment_failed"
	EventQueryReceived      OutboxEventType = "query_received"
)

var validOutboxEventTypes = []OutboxEventType{
	EventOrderCreated,
	EventOrderStatusChanged,
	EventOrderPaid,
	EventOrderExpired,
	EventPaymentFailed,
	EventQueryReceived,
}

// IsValid reports whether the value matches a known event type.
func (e OutboxEventType) IsValid() bool {
	for _, candidate := range validOutboxEventTypes {
		if candidate == e {
			return true
		}
	}
	return false
}

// ParseOutboxEventType converts raw input into OutboxEventType.
func ParseOutboxEventType(value string) (OutboxEventType, error) {
	for _, candidate := range validOutboxEventTypes {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid event type %q", value)
}
