package wishlist

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/storefront-backend/internal/catalog"
	"github.com/angelmondragon/storefront-backend/pkg/db/models"
	pkgerrors "github.com/angelmondragon/storefront-backend/pkg/errors"
	"github.com/angelmondragon/storefront-backend/pkg/pagination"
)

type productRepository interface {
	FindProductByID(ctx context.Context, id uuid.UUID) (*models.Product, error)
	FindProductsByIDs(ctx context.Context, ids []uuid.UUID) ([]models.Product, error)
}

// ServiceParams groups dependencies for the wishlist service.
type ServiceParams struct {
	WishlistRepo *Repository
	ProductRepo  productRepository
}

// Service exposes business rules for wishlist management.
type Service interface {
	GetWishlist(ctx context.Context, userID uuid.UUID, params pagination.Params) (*pagination.Page[WishlistItemDTO], error)
	GetWishlistIDs(ctx context.Context, userID uuid.UUID) (WishlistIDsDTO, error)
	AddItem(ctx context.Context, userID, productID uuid.UUID) error
	RemoveItem(ctx context.Context, userID, productID uuid.UUID) error
}

type service struct {
	wishlistRepo *Repository
	productRepo  productRepository
}

// NewService builds a wishlist service with the required dependencies.
func NewService(params ServiceParams) (Service, error) {
	if params.WishlistRepo == nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "wishlist repo is required")
	}
	if params.ProductRepo == nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "product repo is required")
	}
	return &service{
		wishlistRepo: params.WishlistRepo,
		productRepo:  params.ProductRepo,
	}, nil
}

// GetWishlist returns the paginated wishlist. Products archived since they
// were liked are skipped.
func (s *service) GetWishlist(ctx context.Context, userID uuid.UUID, params pagination.Params) (*pagination.Page[WishlistItemDTO], error) {
	cursor, err := pagination.ParseCursor(params.Cursor)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid cursor")
	}
	rows, err := s.wishlistRepo.ListItems(ctx, userID, cursor, params.Limit)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list wishlist")
	}
	page := pagination.BuildPage(rows, params.Limit, func(row models.WishlistItem) pagination.Cursor {
		return pagination.Cursor{CreatedAt: row.CreatedAt, ID: row.ID}
	})

	ids := make([]uuid.UUID, 0, len(page.Items))
	for _, row := range page.Items {
		ids = append(ids, row.ProductID)
	}
	products, err := s.productRepo.FindProductsByIDs(ctx, ids)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load wishlist products")
	}
	byID := make(map[uuid.UUID]models.Product, len(products))
	for _, p := range products {
		byID[p.ID] = p
	}

	items := make([]WishlistItemDTO, 0, len(page.Items))
	for _, row := range page.Items {
		product, ok := byID[row.ProductID]
		if !ok || !product.IsActive {
			continue
		}
		items = append(items, WishlistItemDTO{
			Product:   catalog.NewProductDTO(product, false),
			CreatedAt: row.CreatedAt,
		})
	}
	return &pagination.Page[WishlistItemDTO]{Items: items, NextCursor: page.NextCursor}, nil
}

// GetWishlistIDs returns all liked product IDs for the user.
func (s *service) GetWishlistIDs(ctx context.Context, userID uuid.UUID) (WishlistIDsDTO, error) {
	ids, err := s.wishlistRepo.ProductIDs(ctx, userID)
	if err != nil {
		return WishlistIDsDTO{}, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list wishlist ids")
	}
	if ids == nil {
		ids = []uuid.UUID{}
	}
	return WishlistIDsDTO{ProductIDs: ids}, nil
}

// AddItem ensures the product exists and adds it to the wishlist.
func (s *service) AddItem(ctx context.Context, userID, productID uuid.UUID) error {
	if productID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "product id is required")
	}
	product, err := s.productRepo.FindProductByID(ctx, productID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return pkgerrors.Wrap(pkgerrors.CodeNotFound, err, "product not found")
		}
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load product")
	}
	if !product.IsActive {
		return pkgerrors.New(pkgerrors.CodeNotFound, "product not found")
	}
	if err := s.wishlistRepo.AddItem(ctx, userID, productID); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "add wishlist item")
	}
	return nil
}

// RemoveItem drops the wishlist entry regardless of prior state.
func (s *service) RemoveItem(ctx context.Context, userID, productID uuid.UUID) error {
	if err := s.wishlistRepo.RemoveItem(ctx, userID, productID); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "remove wishlist item")
	}
	return nil
}
