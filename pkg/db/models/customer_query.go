package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/storefront-backend/pkg/enums"
)

// CustomerQuery is a contact-form submission handled by admins.
type CustomerQuery struct {
	ID         uuid.UUID         `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	UserID     *uuid.UUID        `gorm:"column:user_id;type:uuid"`
	OrderID    *uuid.UUID        `gorm:"column:order_id;type:uuid"`
	Name       string            `gorm:"column:name;not null"`
	Email      string            `gorm:"column:email;not null"`
	Phone      *string           `gorm:"column:phone"`
	Subject    string            `gorm:"column:subject;not null"`
	Message    string            `gorm:"column:message;not null"`
	Status     enums.QueryStatus `gorm:"column:status;type:text;not null;default:'open'"`
	AdminNotes *string           `gorm:"column:admin_notes"`
	ResolvedAt *time.Time        `gorm:"column:resolved_at"`
	CreatedAt  time.Time         `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt  time.Time         `gorm:"column:updated_at;autoUpdateTime"`
}

func (q *CustomerQuery) BeforeCreate(*gorm.DB) error {
	ensureID(&q.ID)
	return nil
}
