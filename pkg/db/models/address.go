package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/storefront-backend/pkg/types"
)

// Address is a saved shipping address owned by a user.
type Address struct {
	ID         uuid.UUID `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	UserID     uuid.UUID `gorm:"column:user_id;type:uuid;not null;index"`
	Label      *string   `gorm:"column:label"`
	FullName   string    `gorm:"column:full_name;not null"`
	Phone      string    `gorm:"column:phone;not null"`
	Line1      string    `gorm:"column:line1;not null"`
	Line2      *string   `gorm:"column:line2"`
	City       string    `gorm:"column:city;not null"`
	State      string    `gorm:"column:state;not null"`
	PostalCode string    `gorm:"column:postal_code;not null"`
	Country    string    `gorm:"column:country;not null;default:'IN'"`
	IsDefault  bool      `gorm:"column:is_default;not null;default:false"`
	CreatedAt  time.Time `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt  time.Time `gorm:"column:updated_at;autoUpdateTime"`
}

func (a *Address) BeforeCreate(*gorm.DB) error {
	ensureID(&a.ID)
	return nil
}

// Snapshot copies the address into the immutable shape stored on orders.
func (a Address) Snapshot() types.ShippingSnapshot {
	country := a.Country
	if country == "" {
		country = "IN"
	}
	return types.ShippingSnapshot{
		FullName:   a.FullName,
		Phone:      a.Phone,
		Line1:      a.Line1,
		Line2:      a.Line2,
		City:       a.City,
		State:      a.State,
		PostalCode: a.PostalCode,
		Country:    country,
	}
}
