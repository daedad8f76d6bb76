package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// ProductReview is one customer's rating of a product. A customer holds at
// most one review per product and edits it in place.
type ProductReview struct {
	ID               uuid.UUID `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	ProductID        uuid.UUID `gorm:"column:product_id;type:uuid;not null;uniqueIndex:product_reviews_product_user_key"`
	UserID           uuid.UUID `gorm:"column:user_id;type:uuid;not null;uniqueIndex:product_reviews_product_user_key"`
	Rating           int       `gorm:"column:rating;not null"`
	Title            *string   `gorm:"column:title"`
	Body             string    `gorm:"column:body;not null"`
	VerifiedPurchase bool      `gorm:"column:verified_purchase;not null;default:false"`
	IsPublished      bool      `gorm:"column:is_published;not null;default:true"`
	CreatedAt        time.Time `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt        time.Time `gorm:"column:updated_at;autoUpdateTime"`
}

func (ProductReview) TableName() string { return "product_reviews" }

func (r *ProductReview) BeforeCreate(*gorm.DB) error {
	ensureID(&r.ID)
	return nil
}
