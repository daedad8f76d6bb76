package support

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/storefront-backend/pkg/db/models"
	"github.com/angelmondragon/storefront-backend/pkg/enums"
	"github.com/angelmondragon/storefront-backend/pkg/pagination"
)

// Repository persists customer queries.
type Repository struct {
	db *gorm.DB
}

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

func (r *Repository) Create(ctx context.Context, query *models.CustomerQuery) error {
	return r.db.WithContext(ctx).Create(query).Error
}

func (r *Repository) FindByID(ctx context.Context, id uuid.UUID) (*models.CustomerQuery, error) {
	var row models.CustomerQuery
	if err := r.db.WithContext(ctx).First(&row, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &row, nil
}

// ListFilter narrows the admin listing.
type ListFilter struct {
	Status *enums.QueryStatus
	Cursor *pagination.Cursor
	Limit  int
}

// List returns queries newest first with one lookahead row.
func (r *Repository) List(ctx context.Context, filter ListFilter) ([]models.CustomerQuery, error) {
	query := r.db.WithContext(ctx).Model(&models.CustomerQuery{})
	if filter.Status != nil {
		query = query.Where("status = ?", *filter.Status)
	}
	if filter.Cursor != nil {
		query = query.Where("(created_at < ?) OR (created_at = ? AND id < ?)", filter.Cursor.CreatedAt, filter.Cursor.CreatedAt, filter.Cursor.ID)
	}
	var rows []models.CustomerQuery
	err := query.
		Order("created_at DESC").
		Order("id DESC").
		Limit(pagination.LimitWithBuffer(filter.Limit)).
		Find(&rows).Error
	return rows, err
}

func (r *Repository) Save(ctx context.Context, query *models.CustomerQuery) error {
	return r.db.WithContext(ctx).Save(query).Error
}
