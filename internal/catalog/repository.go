package catalog

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/storefront-backend/pkg/db/models"
	"github.com/angelmondragon/storefront-backend/pkg/pagination"
)

// Repository persists categories, products and variants.
type Repository struct {
	db *gorm.DB
}

// NewRepository builds a repository tied to the provided GORM DB.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// WithTx returns a repository bound to the provided transaction.
func (r *Repository) WithTx(tx *gorm.DB) *Repository {
	if tx == nil {
		return r
	}
	return &Repository{db: tx}
}

// ProductQuery narrows the product listing.
type ProductQuery struct {
	CategoryID      *uuid.UUID
	Search          string
	IncludeInactive bool
	Cursor          *pagination.Cursor
	Limit           int
}

// CreateCategory inserts a category.
func (r *Repository) CreateCategory(ctx context.Context, category *models.Category) error {
	return r.db.WithContext(ctx).Create(category).Error
}

// UpdateCategory saves a category.
func (r *Repository) UpdateCategory(ctx context.Context, category *models.Category) error {
	return r.db.WithContext(ctx).Save(category).Error
}

// DeleteCategory removes a category and detaches its products.
func (r *Repository) DeleteCategory(ctx context.Context, id uuid.UUID) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(&models.Product{}).
			Where("category_id = ?", id).
			Update("category_id", nil).Error; err != nil {
			return err
		}
		return tx.Where("id = ?", id).Delete(&models.Category{}).Error
	})
}

// FindCategoryByID loads a category.
func (r *Repository) FindCategoryByID(ctx context.Context, id uuid.UUID) (*models.Category, error) {
	var category models.Category
	if err := r.db.WithContext(ctx).First(&category, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &category, nil
}

// FindCategoryBySlug loads a category by slug.
func (r *Repository) FindCategoryBySlug(ctx context.Context, slug string) (*models.Category, error) {
	var category models.Category
	if err := r.db.WithContext(ctx).First(&category, "slug = ?", slug).Error; err != nil {
		return nil, err
	}
	return &category, nil
}

// ListCategories returns every category ordered by name.
func (r *Repository) ListCategories(ctx context.Context) ([]models.Category, error) {
	var rows []models.Category
	err := r.db.WithContext(ctx).Order("name ASC").Find(&rows).Error
	return rows, err
}

// CreateProduct inserts the product and its variants.
func (r *Repository) CreateProduct(ctx context.Context, product *models.Product) error {
	return r.db.WithContext(ctx).Create(product).Error
}

// UpdateProduct saves the product columns without touching variants.
func (r *Repository) UpdateProduct(ctx context.Context, product *models.Product) error {
	return r.db.WithContext(ctx).Omit("Variants").Save(product).Error
}

// ReplaceVariants deletes the product's variants and inserts the provided ones.
func (r *Repository) ReplaceVariants(ctx context.Context, productID uuid.UUID, variants []models.ProductVariant) error {
	tx := r.db.WithContext(ctx)
	if err := tx.Where("product_id = ?", productID).Delete(&models.ProductVariant{}).Error; err != nil {
		return err
	}
	if len(variants) == 0 {
		return nil
	}
	for i := range variants {
		variants[i].ProductID = productID
	}
	return tx.Create(&variants).Error
}

// FindProductByID loads a product with its variants.
func (r *Repository) FindProductByID(ctx context.Context, id uuid.UUID) (*models.Product, error) {
	var product models.Product
	err := r.db.WithContext(ctx).
		Preload("Variants", orderVariants).
		First(&product, "id = ?", id).Error
	if err != nil {
		return nil, err
	}
	return &product, nil
}

// FindProductsByIDs loads several products with their variants.
func (r *Repository) FindProductsByIDs(ctx context.Context, ids []uuid.UUID) ([]models.Product, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	var rows []models.Product
	err := r.db.WithContext(ctx).
		Preload("Variants", orderVariants).
		Where("id IN ?", ids).
		Find(&rows).Error
	return rows, err
}

// FindProductBySlug loads a product with its variants by slug.
func (r *Repository) FindProductBySlug(ctx context.Context, slug string) (*models.Product, error) {
	var product models.Product
	err := r.db.WithContext(ctx).
		Preload("Variants", orderVariants).
		First(&product, "slug = ?", slug).Error
	if err != nil {
		return nil, err
	}
	return &product, nil
}

// ListProducts returns products newest first, fetching one extra row so the
// caller can tell whether another page exists.
func (r *Repository) ListProducts(ctx context.Context, q ProductQuery) ([]models.Product, error) {
	query := r.db.WithContext(ctx).Model(&models.Product{}).Preload("Variants", orderVariants)
	if !q.IncludeInactive {
		query = query.Where("is_active = ?", true)
	}
	if q.CategoryID != nil {
		query = query.Where("category_id = ?", *q.CategoryID)
	}
	if term := strings.ToLower(strings.TrimSpace(q.Search)); term != "" {
		like := "%" + term + "%"
		query = query.Where("LOWER(name) LIKE ? OR LOWER(COALESCE(description, '')) LIKE ?", like, like)
	}
	if q.Cursor != nil {
		query = query.Where("(created_at < ?) OR (created_at = ? AND id < ?)", q.Cursor.CreatedAt, q.Cursor.CreatedAt, q.Cursor.ID)
	}
	var rows []models.Product
	err := query.
		Order("created_at DESC").
		Order("id DESC").
		Limit(pagination.LimitWithBuffer(q.Limit)).
		Find(&rows).Error
	return rows, err
}

// SlugTaken reports whether the slug is used in the table by a row other than excludeID.
func (r *Repository) SlugTaken(ctx context.Context, table string, slug string, excludeID uuid.UUID) (bool, error) {
	var count int64
	query := r.db.WithContext(ctx).Table(table).Where("slug = ?", slug)
	if excludeID != uuid.Nil {
		query = query.Where("id <> ?", excludeID)
	}
	if err := query.Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}

// ArchiveProduct deactivates a product so it disappears from the storefront.
func (r *Repository) ArchiveProduct(ctx context.Context, id uuid.UUID, at time.Time) (int64, error) {
	res := r.db.WithContext(ctx).
		Model(&models.Product{}).
		Where("id = ?", id).
		Updates(map[string]any{"is_active": false, "updated_at": at})
	return res.RowsAffected, res.Error
}

func orderVariants(db *gorm.DB) *gorm.DB {
	return db.Order("created_at ASC").Order("name ASC")
}

// SetProductImage replaces image_url; nil clears it.
func (r *Repository) SetProductImage(ctx context.Context, id uuid.UUID, imageURL *string, at time.Time) (int64, error) {
	res := r.db.WithContext(ctx).
		Model(&models.Product{}).
		Where("id = ?", id).
		Updates(map[string]any{"image_url": imageURL, "updated_at": at})
	return res.RowsAffected, res.Error
}
