package payloads

import (
	"time"

	"github.com/google/uuid"

	"github.com/angelmondragon/storefront-backend/pkg/enums"
)

// OrderCreatedEvent is emitted once the order and its items are committed.
type OrderCreatedEvent struct {
	OrderID       uuid.UUID           `json:"order_id"`
	OrderNumber   string              `json:"order_number"`
	UserID        uuid.UUID           `json:"user_id"`
	PaymentMethod enums.PaymentMethod `json:"payment_method"`
	Status        enums.OrderStatus   `json:"status"`
	Total         string              `json:"total"`
	Currency      string              `json:"currency"`
	ItemCount     int                 `json:"item_count"`
}

// OrderStatusChangedEvent records an admin driven status transition.
type OrderStatusChangedEvent struct {
	OrderID       uuid.UUID           `json:"order_id"`
	OrderNumber   string              `json:"order_number"`
	UserID        uuid.UUID           `json:"user_id"`
	From          enums.OrderStatus   `json:"from"`
	To            enums.OrderStatus   `json:"to"`
	PaymentStatus enums.PaymentStatus `json:"payment_status"`
	ChangedAt     time.Time           `json:"changed_at"`
}

// OrderPaidEvent is emitted when a gateway payment is verified.
type OrderPaidEvent struct {
	OrderID          uuid.UUID `json:"order_id"`
	OrderNumber      string    `json:"order_number"`
	UserID           uuid.UUID `json:"user_id"`
	AttemptID        uuid.UUID `json:"attempt_id"`
	Provider         string    `json:"provider"`
	GatewayOrderID   string    `json:"gateway_order_id"`
	GatewayPaymentID string    `json:"gateway_payment_id"`
	AmountMinor      int64     `json:"amount_minor"`
	Currency         string    `json:"currency"`
	TestMode         bool      `json:"test_mode"`
	PaidAt           time.Time `json:"paid_at"`
}

// OrderExpiredEvent is emitted when an unpaid online order is cancelled by the cron worker.
type OrderExpiredEvent struct {
	OrderID     uuid.UUID `json:"order_id"`
	OrderNumber string    `json:"order_number"`
	UserID      uuid.UUID `json:"user_id"`
	ExpiredAt   time.Time `json:"expired_at"`
	TTLMinutes  int       `json:"ttl_minutes"`
}

// PaymentFailedEvent carries the normalized gateway failure.
type PaymentFailedEvent struct {
	AttemptID   uuid.UUID `json:"attempt_id"`
	OrderID     uuid.UUID `json:"order_id"`
	UserID      uuid.UUID `json:"user_id"`
	Provider    string    `json:"provider"`
	Code        string    `json:"code,omitempty"`
	Description string    `json:"description,omitempty"`
	Source      string    `json:"source,omitempty"`
	Step        string    `json:"step,omitempty"`
	Reason      string    `json:"reason,omitempty"`
	FailedAt    time.Time `json:"failed_at"`
}

// QueryReceivedEvent notifies support that a contact form was submitted.
type QueryReceivedEvent struct {
	QueryID uuid.UUID  `json:"query_id"`
	UserID  *uuid.UUID `json:"user_id,omitempty"`
	OrderID *uuid.UUID `json:"order_id,omitempty"`
	Name    string     `json:"name"`
	Email   string     `json:"email"`
	Subject string     `json:"subject"`
}
