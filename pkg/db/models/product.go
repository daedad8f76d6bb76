package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// Product is a catalog listing priced in rupees.
type Product struct {
	ID             uuid.UUID        `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	CategoryID     *uuid.UUID       `gorm:"column:category_id;type:uuid;index"`
	Name           string           `gorm:"column:name;not null"`
	Slug           string           `gorm:"column:slug;not null;uniqueIndex"`
	Description    *string          `gorm:"column:description"`
	Price          decimal.Decimal  `gorm:"column:price;type:numeric(12,2);not null"`
	CompareAtPrice *decimal.Decimal `gorm:"column:compare_at_price;type:numeric(12,2)"`
	ImageURL       *string          `gorm:"column:image_url"`
	IsActive       bool             `gorm:"column:is_active;not null;default:true"`
	Variants       []ProductVariant `gorm:"foreignKey:ProductID;constraint:OnDelete:CASCADE"`
	CreatedAt      time.Time        `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt      time.Time        `gorm:"column:updated_at;autoUpdateTime"`
}

func (p *Product) BeforeCreate(*gorm.DB) error {
	ensureID(&p.ID)
	return nil
}

// ProductVariant is a purchasable option of a product (size, colour).
// A nil Price means the product price applies.
type ProductVariant struct {
	ID        uuid.UUID        `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	ProductID uuid.UUID        `gorm:"column:product_id;type:uuid;not null;index"`
	Name      string           `gorm:"column:name;not null"`
	SKU       *string          `gorm:"column:sku"`
	Price     *decimal.Decimal `gorm:"column:price;type:numeric(12,2)"`
	IsActive  bool             `gorm:"column:is_active;not null;default:true"`
	CreatedAt time.Time        `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt time.Time        `gorm:"column:updated_at;autoUpdateTime"`
}

func (v *ProductVariant) BeforeCreate(*gorm.DB) error {
	ensureID(&v.ID)
	return nil
}

// EffectivePrice resolves the unit price for the optional variant: the
// variant override when set, else the product price.
func (p Product) EffectivePrice(variant *ProductVariant) decimal.Decimal {
	if variant != nil && variant.Price != nil {
		return *variant.Price
	}
	return p.Price
}

// Variant looks up an active variant by id.
func (p Product) Variant(id uuid.UUID) (*ProductVariant, bool) {
	for i := range p.Variants {
		if p.Variants[i].ID == id && p.Variants[i].IsActive {
			return &p.Variants[i], true
		}
	}
	return nil, false
}
