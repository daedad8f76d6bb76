package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/angelmondragon/storefront-backend/pkg/enums"
)

// PaymentAttempt records one checkout session against a gateway.
type PaymentAttempt struct {
	ID                 uuid.UUID                 `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	OrderID            uuid.UUID                 `gorm:"column:order_id;type:uuid;not null;index"`
	UserID             uuid.UUID                 `gorm:"column:user_id;type:uuid;not null"`
	Provider           enums.PaymentProvider     `gorm:"column:provider;type:text;not null"`
	State              enums.PaymentAttemptState `gorm:"column:state;type:text;not null"`
	Amount             decimal.Decimal           `gorm:"column:amount;type:numeric(12,2);not null"`
	Currency           string                    `gorm:"column:currency;not null"`
	GatewayOrderID     *string                   `gorm:"column:gateway_order_id;index"`
	GatewayPaymentID   *string                   `gorm:"column:gateway_payment_id"`
	TestMode           bool                      `gorm:"column:test_mode;not null;default:false"`
	FailureCode        *string                   `gorm:"column:failure_code"`
	FailureDescription *string                   `gorm:"column:failure_description"`
	FailureSource      *string                   `gorm:"column:failure_source"`
	FailureStep        *string                   `gorm:"column:failure_step"`
	FailureReason      *string                   `gorm:"column:failure_reason"`
	CreatedAt          time.Time                 `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt          time.Time                 `gorm:"column:updated_at;autoUpdateTime"`
}

func (p *PaymentAttempt) BeforeCreate(*gorm.DB) error {
	ensureID(&p.ID)
	return nil
}
