package wishlist

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/angelmondragon/storefront-backend/pkg/db/models"
	"github.com/angelmondragon/storefront-backend/pkg/pagination"
)

// Repository encapsulates wishlist persistence.
type Repository struct {
	db *gorm.DB
}

// NewRepository constructs a wishlist repository bound to the provided gorm DB.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// AddItem inserts a wishlist entry and ignores duplicates.
func (r *Repository) AddItem(ctx context.Context, userID, productID uuid.UUID) error {
	if userID == uuid.Nil || productID == uuid.Nil {
		return gorm.ErrInvalidValue
	}
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(&models.WishlistItem{UserID: userID, ProductID: productID}).
		Error
}

// RemoveItem deletes the user-product like if it exists.
func (r *Repository) RemoveItem(ctx context.Context, userID, productID uuid.UUID) error {
	return r.db.WithContext(ctx).
		Where("user_id = ? AND product_id = ?", userID, productID).
		Delete(&models.WishlistItem{}).
		Error
}

// ListItems returns wishlist rows newest first, plus one lookahead row.
func (r *Repository) ListItems(ctx context.Context, userID uuid.UUID, cursor *pagination.Cursor, limit int) ([]models.WishlistItem, error) {
	query := r.db.WithContext(ctx).Where("user_id = ?", userID)
	if cursor != nil {
		query = query.Where("(created_at < ?) OR (created_at = ? AND id < ?)", cursor.CreatedAt, cursor.CreatedAt, cursor.ID)
	}
	var rows []models.WishlistItem
	err := query.
		Order("created_at DESC").
		Order("id DESC").
		Limit(pagination.LimitWithBuffer(limit)).
		Find(&rows).Error
	return rows, err
}

// ProductIDs returns every liked product id for the user.
func (r *Repository) ProductIDs(ctx context.Context, userID uuid.UUID) ([]uuid.UUID, error) {
	var ids []uuid.UUID
	err := r.db.WithContext(ctx).
		Model(&models.WishlistItem{}).
		Where("user_id = ?", userID).
		Order("created_at DESC").
		Pluck("product_id", &ids).Error
	return ids, err
}
