package enums

import "fmt"

// OrderStatus tracks the fulfilment lifecycle of an order.
type OrderStatus string

const (
	OrderStatusPending    OrderStatus = "pending"
	OrderStatusConfirmed  OrderStatus = "confirmed"
	OrderStatusProcessing OrderStatus = "processing"
	OrderStatusShipped    OrderStatus = "shipped"
	OrderStatusDelivered  OrderStatus = "delivered"
	OrderStatusCancelled  OrderStatus = "cancelled"
	OrderStatusRefunded   OrderStatus = "refunded"
)

var validOrderStatuses = []OrderStatus{
	OrderStatusPending,
	OrderStatusConfirmed,
	OrderStatusProcessing,
	OrderStatusShipped,
	OrderStatusDelivered,
	OrderStatusCancelled,
	OrderStatusRefunded,
}

// String implements fmt.Stringer.
func (v OrderStatus) String() string {
	return string(v)
}

// IsValid reports whether the value is a known OrderStatus.
func (v OrderStatus) IsValid() bool {
	for _, candidate := range validOrderStatuses {
		if candidate == v {
			return true
		}
	}
	return false
}

// ParseOrderStatus converts raw input into a OrderStatus.
func ParseOrderStatus(value string) (OrderStatus, error) {
	for _, candidate := range validOrderStatuses {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid order status %q", value)
}

// IsFinal reports whether the order has left the active fulfilment pipeline.
func (v OrderStatus) IsFinal() bool {
	return v == OrderStatusCancelled || v == OrderStatusRefunded
}
