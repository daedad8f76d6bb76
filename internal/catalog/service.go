package catalog

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/angelmondragon/storefront-backend/pkg/db"
	"github.com/angelmondragon/storefront-backend/pkg/db/models"
	pkgerrors "github.com/angelmondragon/storefront-backend/pkg/errors"
	"github.com/angelmondragon/storefront-backend/pkg/format"
	"github.com/angelmondragon/storefront-backend/pkg/pagination"
	"github.com/angelmondragon/storefront-backend/pkg/types"
)

const (
	categoriesTable = "categories"
	productsTable   = "products"
	maxSlugAttempts = 20
)

// Service exposes the catalog to shoppers and admins.
type Service interface {
	ListCategories(ctx context.Context) ([]CategoryDTO, error)
	CreateCategory(ctx context.Context, input CategoryInput) (*CategoryDTO, error)
	UpdateCategory(ctx context.Context, id uuid.UUID, input CategoryInput) (*CategoryDTO, error)
	DeleteCategory(ctx context.Context, id uuid.UUID) error

	ListProducts(ctx context.Context, input ListProductsInput) (*pagination.Page[ProductDTO], error)
	GetProductBySlug(ctx context.Context, slug string) (*ProductDTO, error)
	GetProduct(ctx context.Context, id uuid.UUID) (*models.Product, error)
	CreateProduct(ctx context.Context, input CreateProductInput) (*ProductDTO, error)
	UpdateProduct(ctx context.Context, id uuid.UUID, input UpdateProductInput) (*ProductDTO, error)
	ArchiveProduct(ctx context.Context, id uuid.UUID) error
}

// CategoryInput creates or renames a category.
type CategoryInput struct {
	Name        string
	Slug        string
	Description *string
}

// ListProductsInput filters the product listing.
type ListProductsInput struct {
	CategorySlug    string
	Search          string
	IncludeInactive bool
	Pagination      pagination.Params
}

// VariantInput describes one variant; a nil Price inherits the product price.
type VariantInput struct {
	Name     string
	SKU      *string
	Price    *decimal.Decimal
	IsActive bool
}

// CreateProductInput holds the validated payload to create a product.
type CreateProductInput struct {
	CategoryID     *uuid.UUID
	Name           string
	Slug           string
	Description    *string
	Price          decimal.Decimal
	CompareAtPrice *decimal.Decimal
	ImageURL       *string
	IsActive       bool
	Variants       []VariantInput
}

// UpdateProductInput holds optional mutations. CategoryID and CompareAtPrice
// distinguish an absent field from an explicit null; null clears the sale price.
type UpdateProductInput struct {
	CategoryID     types.NullableUUID
	Name           *string
	Slug           *string
	Description    *string
	Price          *decimal.Decimal
	CompareAtPrice types.Nullable[decimal.Decimal]
	ImageURL       *string
	IsActive       *bool
	Variants       *[]VariantInput
}

type service struct {
	repo     *Repository
	dbClient *db.Client
	now      func() time.Time
}

// NewService constructs the catalog service.
func NewService(repo *Repository, dbClient *db.Client) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("catalog repository required")
	}
	if dbClient == nil {
		return nil, fmt.Errorf("db client required")
	}
	return &service{repo: repo, dbClient: dbClient, now: time.Now}, nil
}

func (s *service) ListCategories(ctx context.Context) ([]CategoryDTO, error) {
	rows, err := s.repo.ListCategories(ctx)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list categories")
	}
	out := make([]CategoryDTO, 0, len(rows))
	for _, row := range rows {
		out = append(out, NewCategoryDTO(row))
	}
	return out, nil
}

func (s *service) CreateCategory(ctx context.Context, input CategoryInput) (*CategoryDTO, error) {
	name := strings.TrimSpace(input.Name)
	if name == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "name is required")
	}
	slug, err := s.uniqueSlug(ctx, categoriesTable, firstNonEmpty(input.Slug, name), uuid.Nil)
	if err != nil {
		return nil, err
	}
	category := &models.Category{Name: name, Slug: slug, Description: input.Description}
	if err := s.repo.CreateCategory(ctx, category); err != nil {
		return nil, wrapWrite(err, "create category")
	}
	dto := NewCategoryDTO(*category)
	return &dto, nil
}

func (s *service) UpdateCategory(ctx context.Context, id uuid.UUID, input CategoryInput) (*CategoryDTO, error) {
	category, err := s.repo.FindCategoryByID(ctx, id)
	if err != nil {
		return nil, notFoundOr(err, "category not found", "load category")
	}
	if name := strings.TrimSpace(input.Name); name != "" {
		category.Name = name
	}
	if input.Slug != "" {
		slug, err := s.uniqueSlug(ctx, categoriesTable, input.Slug, category.ID)
		if err != nil {
			return nil, err
		}
		category.Slug = slug
	}
	if input.Description != nil {
		category.Description = input.Description
	}
	if err := s.repo.UpdateCategory(ctx, category); err != nil {
		return nil, wrapWrite(err, "update category")
	}
	dto := NewCategoryDTO(*category)
	return &dto, nil
}

func (s *service) DeleteCategory(ctx context.Context, id uuid.UUID) error {
	if _, err := s.repo.FindCategoryByID(ctx, id); err != nil {
		return notFoundOr(err, "category not found", "load category")
	}
	if err := s.repo.DeleteCategory(ctx, id); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "delete category")
	}
	return nil
}

func (s *service) ListProducts(ctx context.Context, input ListProductsInput) (*pagination.Page[ProductDTO], error) {
	cursor, err := pagination.ParseCursor(input.Pagination.Cursor)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid cursor")
	}
	query := ProductQuery{
		Search:          input.Search,
		IncludeInactive: input.IncludeInactive,
		Cursor:          cursor,
		Limit:           input.Pagination.Limit,
	}
	if slug := strings.TrimSpace(input.CategorySlug); slug != "" {
		category, err := s.repo.FindCategoryBySlug(ctx, slug)
		if err != nil {
			return nil, notFoundOr(err, "category not found", "load category")
		}
		query.CategoryID = &category.ID
	}

	rows, err := s.repo.ListProducts(ctx, query)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list products")
	}
	page := pagination.BuildPage(rows, input.Pagination.Limit, func(p models.Product) pagination.Cursor {
		return pagination.Cursor{CreatedAt: p.CreatedAt, ID: p.ID}
	})
	out := &pagination.Page[ProductDTO]{
		Items:      make([]ProductDTO, 0, len(page.Items)),
		NextCursor: page.NextCursor,
	}
	for _, row := range page.Items {
		out.Items = append(out.Items, NewProductDTO(row, input.IncludeInactive))
	}
	return out, nil
}

func (s *service) GetProductBySlug(ctx context.Context, slug string) (*ProductDTO, error) {
	product, err := s.repo.FindProductBySlug(ctx, slug)
	if err != nil {
		return nil, notFoundOr(err, "product not found", "load product")
	}
	if !product.IsActive {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "product not found")
	}
	dto := NewProductDTO(*product, false)
	return &dto, nil
}

// GetProduct returns the model (with variants) for pricing lookups by the
// cart and order services. Inactive products are returned; callers decide.
func (s *service) GetProduct(ctx context.Context, id uuid.UUID) (*models.Product, error) {
	product, err := s.repo.FindProductByID(ctx, id)
	if err != nil {
		return nil, notFoundOr(err, "product not found", "load product")
	}
	return product, nil
}

func (s *service) CreateProduct(ctx context.Context, input CreateProductInput) (*ProductDTO, error) {
	name := strings.TrimSpace(input.Name)
	if name == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "name is required")
	}
	if err := validatePrices(input.Price, input.CompareAtPrice, input.Variants); err != nil {
		return nil, err
	}
	if err := ensureCategory(ctx, s.repo, input.CategoryID); err != nil {
		return nil, err
	}

	product := &models.Product{
		CategoryID:     input.CategoryID,
		Name:           name,
		Description:    input.Description,
		Price:          input.Price,
		CompareAtPrice: input.CompareAtPrice,
		ImageURL:       input.ImageURL,
		IsActive:       input.IsActive,
		Variants:       buildVariants(input.Variants),
	}
	err := s.dbClient.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		slug, err := uniqueSlugWith(ctx, repo, productsTable, firstNonEmpty(input.Slug, name), uuid.Nil)
		if err != nil {
			return err
		}
		product.Slug = slug
		return repo.CreateProduct(ctx, product)
	})
	if err != nil {
		return nil, wrapWrite(err, "create product")
	}
	dto := NewProductDTO(*product, true)
	return &dto, nil
}

func (s *service) UpdateProduct(ctx context.Context, id uuid.UUID, input UpdateProductInput) (*ProductDTO, error) {
	var updated *models.Product
	err := s.dbClient.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		product, err := repo.FindProductByID(ctx, id)
		if err != nil {
			return notFoundOr(err, "product not found", "load product")
		}
		if input.Name != nil {
			name := strings.TrimSpace(*input.Name)
			if name == "" {
				return pkgerrors.New(pkgerrors.CodeValidation, "name cannot be empty")
			}
			product.Name = name
		}
		if input.Slug != nil {
			slug, err := uniqueSlugWith(ctx, repo, productsTable, *input.Slug, product.ID)
			if err != nil {
				return err
			}
			product.Slug = slug
		}
		if input.CategoryID.Valid {
			if err := ensureCategory(ctx, repo, input.CategoryID.Value); err != nil {
				return err
			}
			product.CategoryID = input.CategoryID.Value
		}
		if input.Description != nil {
			product.Description = input.Description
		}
		if input.Price != nil {
			product.Price = *input.Price
		}
		input.CompareAtPrice.Apply(&product.CompareAtPrice)
		if input.ImageURL != nil {
			product.ImageURL = input.ImageURL
		}
		if input.IsActive != nil {
			product.IsActive = *input.IsActive
		}
		var variants []VariantInput
		if input.Variants != nil {
			variants = *input.Variants
		}
		if err := validatePrices(product.Price, product.CompareAtPrice, variants); err != nil {
			return err
		}
		if err := repo.UpdateProduct(ctx, product); err != nil {
			return err
		}
		if input.Variants != nil {
			product.Variants = buildVariants(*input.Variants)
			if err := repo.ReplaceVariants(ctx, product.ID, product.Variants); err != nil {
				return err
			}
		}
		updated = product
		return nil
	})
	if err != nil {
		return nil, wrapWrite(err, "update product")
	}
	dto := NewProductDTO(*updated, true)
	return &dto, nil
}

func (s *service) ArchiveProduct(ctx context.Context, id uuid.UUID) error {
	affected, err := s.repo.ArchiveProduct(ctx, id, s.now().UTC())
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "archive product")
	}
	if affected == 0 {
		return pkgerrors.New(pkgerrors.CodeNotFound, "product not found")
	}
	return nil
}

func ensureCategory(ctx context.Context, repo *Repository, id *uuid.UUID) error {
	if id == nil {
		return nil
	}
	if _, err := repo.FindCategoryByID(ctx, *id); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return pkgerrors.New(pkgerrors.CodeValidation, "category does not exist")
		}
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load category")
	}
	return nil
}

func (s *service) uniqueSlug(ctx context.Context, table, source string, excludeID uuid.UUID) (string, error) {
	return uniqueSlugWith(ctx, s.repo, table, source, excludeID)
}

// uniqueSlugWith slugifies source and appends -2, -3, ... until unused.
func uniqueSlugWith(ctx context.Context, repo *Repository, table, source string, excludeID uuid.UUID) (string, error) {
	base := format.Slugify(source)
	if base == "" {
		return "", pkgerrors.New(pkgerrors.CodeValidation, "slug cannot be empty")
	}
	candidate := base
	for i := 2; i <= maxSlugAttempts+1; i++ {
		taken, err := repo.SlugTaken(ctx, table, candidate, excludeID)
		if err != nil {
			return "", pkgerrors.Wrap(pkgerrors.CodeDependency, err, "check slug")
		}
		if !taken {
			return candidate, nil
		}
		candidate = fmt.Sprintf("%s-%d", base, i)
	}
	return "", pkgerrors.New(pkgerrors.CodeConflict, "slug already in use")
}

func validatePrices(price decimal.Decimal, compareAt *decimal.Decimal, variants []VariantInput) error {
	if !price.IsPositive() {
		return pkgerrors.New(pkgerrors.CodeValidation, "price must be greater than zero")
	}
	if compareAt != nil && compareAt.LessThan(price) {
		return pkgerrors.New(pkgerrors.CodeValidation, "compare_at_price must be at least price")
	}
	seen := map[string]struct{}{}
	for _, v := range variants {
		name := strings.TrimSpace(v.Name)
		if name == "" {
			return pkgerrors.New(pkgerrors.CodeValidation, "variant name is required")
		}
		if _, dup := seen[strings.ToLower(name)]; dup {
			return pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("duplicate variant %q", name))
		}
		seen[strings.ToLower(name)] = struct{}{}
		if v.Price != nil && !v.Price.IsPositive() {
			return pkgerrors.New(pkgerrors.CodeValidation, "variant price must be greater than zero")
		}
	}
	return nil
}

func buildVariants(inputs []VariantInput) []models.ProductVariant {
	if len(inputs) == 0 {
		return nil
	}
	out := make([]models.ProductVariant, 0, len(inputs))
	for _, in := range inputs {
		out = append(out, models.ProductVariant{
			Name:     strings.TrimSpace(in.Name),
			SKU:      in.SKU,
			Price:    in.Price,
			IsActive: in.IsActive,
		})
	}
	return out
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}

func notFoundOr(err error, notFoundMsg, op string) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return pkgerrors.New(pkgerrors.CodeNotFound, notFoundMsg)
	}
	return pkgerrors.Wrap(pkgerrors.CodeDependency, err, op)
}

func wrapWrite(err error, op string) error {
	if typed := pkgerrors.As(err); typed != nil {
		return typed
	}
	if db.IsUniqueViolation(err, "") {
		return pkgerrors.Wrap(pkgerrors.CodeConflict, err, "slug already in use")
	}
	return pkgerrors.Wrap(pkgerrors.CodeDependency, err, op)
}
