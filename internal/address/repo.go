package address

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/storefront-backend/pkg/db/models"
)

// Repository persists saved shipping addresses.
type Repository struct {
	db *gorm.DB
}

// NewRepository binds the repository to a gorm handle.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// WithTx binds the repository to a transaction.
func (r *Repository) WithTx(tx *gorm.DB) *Repository {
	if tx == nil {
		return r
	}
	return &Repository{db: tx}
}

// ListByUser returns the default address first, then newest first.
func (r *Repository) ListByUser(ctx context.Context, userID uuid.UUID) ([]models.Address, error) {
	var rows []models.Address
	err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("is_default DESC").
		Order("created_at DESC").
		Find(&rows).Error
	return rows, err
}

// FindForUser loads an address only when it belongs to userID.
func (r *Repository) FindForUser(ctx context.Context, userID, id uuid.UUID) (*models.Address, error) {
	var row models.Address
	if err := r.db.WithContext(ctx).
		Where("id = ? AND user_id = ?", id, userID).
		First(&row).Error; err != nil {
		return nil, err
	}
	return &row, nil
}

func (r *Repository) CountByUser(ctx context.Context, userID uuid.UUID) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&models.Address{}).Where("user_id = ?", userID).Count(&count).Error
	return count, err
}

func (r *Repository) Create(ctx context.Context, row *models.Address) error {
	return r.db.WithContext(ctx).Create(row).Error
}

func (r *Repository) Save(ctx context.Context, row *models.Address) error {
	return r.db.WithContext(ctx).Save(row).Error
}

func (r *Repository) Delete(ctx context.Context, userID, id uuid.UUID) (int64, error) {
	res := r.db.WithContext(ctx).Where("id = ? AND user_id = ?", id, userID).Delete(&models.Address{})
	return res.RowsAffected, res.Error
}

// ClearDefault unsets the default flag on every address of the user.
func (r *Repository) ClearDefault(ctx context.Context, userID uuid.UUID) error {
	return r.db.WithContext(ctx).
		Model(&models.Address{}).
		Where("user_id = ? AND is_default = ?", userID, true).
		Update("is_default", false).Error
}

func (r *Repository) MarkDefault(ctx context.Context, userID, id uuid.UUID) error {
	return r.db.WithContext(ctx).
		Model(&models.Address{}).
		Where("id = ? AND user_id = ?", id, userID).
		Update("is_default", true).Error
}

// Newest returns the most recently created address, or nil when none exist.
func (r *Repository) Newest(ctx context.Context, userID uuid.UUID) (*models.Address, error) {
	var rows []models.Address
	if err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at DESC").
		Limit(1).
		Find(&rows).Error; err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, nil
	}
	return &rows[0], nil
}
