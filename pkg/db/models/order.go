package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/angelmondragon/storefront-backend/pkg/enums"
	"github.com/angelmondragon/storefront-backend/pkg/types"
)

// Order is a placed customer order with money fields captured at creation.
type Order struct {
	ID                uuid.UUID              `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	OrderNumber       string                 `gorm:"column:order_number;not null;uniqueIndex"`
	UserID            uuid.UUID              `gorm:"column:user_id;type:uuid;not null;index"`
	Status            enums.OrderStatus      `gorm:"column:status;type:text;not null;default:'pending'"`
	PaymentStatus     enums.PaymentStatus    `gorm:"column:payment_status;type:text;not null;default:'pending'"`
	PaymentMethod     enums.PaymentMethod    `gorm:"column:payment_method;type:text;not null"`
	PaymentProvider   *enums.PaymentProvider `gorm:"column:payment_provider;type:text"`
	GatewayOrderID    *string                `gorm:"column:gateway_order_id"`
	GatewayPaymentID  *string                `gorm:"column:gateway_payment_id"`
	Currency          string                 `gorm:"column:currency;not null;default:'INR'"`
	Subtotal          decimal.Decimal        `gorm:"column:subtotal;type:numeric(12,2);not null"`
	Tax               decimal.Decimal        `gorm:"column:tax;type:numeric(12,2);not null"`
	ShippingCost      decimal.Decimal        `gorm:"column:shipping_cost;type:numeric(12,2);not null"`
	Discount          decimal.Decimal        `gorm:"column:discount;type:numeric(12,2);not null;default:0"`
	Total             decimal.Decimal        `gorm:"column:total;type:numeric(12,2);not null"`
	ShippingAddressID *uuid.UUID             `gorm:"column:shipping_address_id;type:uuid"`
	ShippingAddress   types.ShippingSnapshot `gorm:"column:shipping_address;type:jsonb;not null"`
	Notes             *string                `gorm:"column:notes"`
	PaidAt            *time.Time             `gorm:"column:paid_at"`
	CancelledAt       *time.Time             `gorm:"column:cancelled_at"`
	DeliveredAt       *time.Time             `gorm:"column:delivered_at"`
	Items             []OrderItem            `gorm:"foreignKey:OrderID;constraint:OnDelete:CASCADE"`
	CreatedAt         time.Time              `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt         time.Time              `gorm:"column:updated_at;autoUpdateTime"`
}

func (o *Order) BeforeCreate(*gorm.DB) error {
	ensureID(&o.ID)
	return nil
}

// OrderItem captures the product name, price and quantity at purchase time.
// ProductID is nulled when the product is later deleted.
type OrderItem struct {
	ID          uuid.UUID       `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	OrderID     uuid.UUID       `gorm:"column:order_id;type:uuid;not null;index"`
	ProductID   *uuid.UUID      `gorm:"column:product_id;type:uuid"`
	VariantID   *uuid.UUID      `gorm:"column:variant_id;type:uuid"`
	ProductName string          `gorm:"column:product_name;not null"`
	VariantName *string         `gorm:"column:variant_name"`
	Price       decimal.Decimal `gorm:"column:price;type:numeric(12,2);not null"`
	Quantity    int             `gorm:"column:quantity;not null"`
	Subtotal    decimal.Decimal `gorm:"column:subtotal;type:numeric(12,2);not null"`
	CreatedAt   time.Time       `gorm:"column:created_at;autoCreateTime"`
}

func (i *OrderItem) BeforeCreate(*gorm.DB) error {
	ensureID(&i.ID)
	return nil
}
