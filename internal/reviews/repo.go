package reviews

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/angelmondragon/storefront-backend/pkg/db/models"
	"github.com/angelmondragon/storefront-backend/pkg/enums"
	"github.com/angelmondragon/storefront-backend/pkg/pagination"
)

// Repository persists product reviews.
type Repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// reviewRow carries the reviewer's name alongside the review.
type reviewRow struct {
	models.ProductReview `gorm:"embedded"`
	FirstName            string `gorm:"column:first_name"`
	LastName             string `gorm:"column:last_name"`
}

type ratingCount struct {
	Rating int   `gorm:"column:rating"`
	Count  int64 `gorm:"column:count"`
}

// Upsert writes the caller's review, replacing rating and text when one
// already exists for the product.
func (r *Repository) Upsert(ctx context.Context, review *models.ProductReview) error {
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns: []clause.Column{{Name: "product_id"}, {Name: "user_id"}},
			DoUpdates: clause.AssignmentColumns([]string{
				"rating", "title", "body", "verified_purchase", "updated_at",
			}),
		}).
		Create(review).Error
}

func (r *Repository) FindByID(ctx context.Context, id uuid.UUID) (*reviewRow, error) {
	var row reviewRow
	err := r.withReviewer(ctx).Where("product_reviews.id = ?", id).Take(&row).Error
	if err != nil {
		return nil, err
	}
	return &row, nil
}

func (r *Repository) FindByProductAndUser(ctx context.Context, productID, userID uuid.UUID) (*reviewRow, error) {
	var row reviewRow
	err := r.withReviewer(ctx).
		Where("product_reviews.product_id = ? AND product_reviews.user_id = ?", productID, userID).
		Take(&row).Error
	if err != nil {
		return nil, err
	}
	return &row, nil
}

// ListPublished returns published reviews newest first plus one lookahead row.
func (r *Repository) ListPublished(ctx context.Context, productID uuid.UUID, cursor *pagination.Cursor, limit int) ([]reviewRow, error) {
	query := r.withReviewer(ctx).
		Where("product_reviews.product_id = ? AND product_reviews.is_published = ?", productID, true)
	if cursor != nil {
		query = query.Where(
			"(product_reviews.created_at < ?) OR (product_reviews.created_at = ? AND product_reviews.id < ?)",
			cursor.CreatedAt, cursor.CreatedAt, cursor.ID,
		)
	}
	var rows []reviewRow
	err := query.
		Order("product_reviews.created_at DESC").
		Order("product_reviews.id DESC").
		Limit(pagination.LimitWithBuffer(limit)).
		Find(&rows).Error
	return rows, err
}

// RatingCounts groups published reviews by star rating.
func (r *Repository) RatingCounts(ctx context.Context, productID uuid.UUID) ([]ratingCount, error) {
	var out []ratingCount
	err := r.db.WithContext(ctx).
		Model(&models.ProductReview{}).
		Select("rating, COUNT(*) AS count").
		Where("product_id = ? AND is_published = ?", productID, true).
		Group("rating").
		Scan(&out).Error
	return out, err
}

// HasDeliveredPurchase reports whether the user received the product in any
// delivered order.
func (r *Repository) HasDeliveredPurchase(ctx context.Context, userID, productID uuid.UUID) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Table("order_items").
		Joins("JOIN orders ON orders.id = order_items.order_id").
		Where("orders.user_id = ? AND order_items.product_id = ? AND orders.status = ?",
			userID, productID, enums.OrderStatusDelivered).
		Count(&count).Error
	return count > 0, err
}

func (r *Repository) SetPublished(ctx context.Context, id uuid.UUID, published bool) (int64, error) {
	res := r.db.WithContext(ctx).
		Model(&models.ProductReview{}).
		Where("id = ?", id).
		Update("is_published", published)
	return res.RowsAffected, res.Error
}

func (r *Repository) Delete(ctx context.Context, id uuid.UUID) (int64, error) {
	res := r.db.WithContext(ctx).Where("id = ?", id).Delete(&models.ProductReview{})
	return res.RowsAffected, res.Error
}

func (r *Repository) DeleteByProductAndUser(ctx context.Context, productID, userID uuid.UUID) (int64, error) {
	res := r.db.WithContext(ctx).
		Where("product_id = ? AND user_id = ?", productID, userID).
		Delete(&models.ProductReview{})
	return res.RowsAffected, res.Error
}

func (r *Repository) withReviewer(ctx context.Context) *gorm.DB {
	return r.db.WithContext(ctx).
		Table("product_reviews").
		Select("product_reviews.*, users.first_name, users.last_name").
		Joins("LEFT JOIN users ON users.id = product_reviews.user_id")
}
