package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// CartItem is one persisted line of a signed-in user's cart. Position keeps
// the insertion order of the in-memory cart.
type CartItem struct {
	ID          uuid.UUID       `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	UserID      uuid.UUID       `gorm:"column:user_id;type:uuid;not null;index"`
	ProductID   uuid.UUID       `gorm:"column:product_id;type:uuid;not null"`
	VariantID   *uuid.UUID      `gorm:"column:variant_id;type:uuid"`
	Quantity    int             `gorm:"column:quantity;not null"`
	UnitPrice   decimal.Decimal `gorm:"column:unit_price;type:numeric(12,2);not null"`
	Name        string          `gorm:"column:name;not null"`
	VariantName *string         `gorm:"column:variant_name"`
	Slug        string          `gorm:"column:slug;not null"`
	Position    int             `gorm:"column:position;not null;default:0"`
	CreatedAt   time.Time       `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt   time.Time       `gorm:"column:updated_at;autoUpdateTime"`
}

func (c *CartItem) BeforeCreate(*gorm.DB) error {
	ensureID(&c.ID)
	return nil
}
