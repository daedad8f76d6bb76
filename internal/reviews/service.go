package reviews

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/storefront-backend/pkg/db/models"
	pkgerrors "github.com/angelmondragon/storefront-backend/pkg/errors"
	"github.com/angelmondragon/storefront-backend/pkg/pagination"
)

const (
	maxTitleRunes = 120
	maxBodyRunes  = 2000
)

type productFinder interface {
	FindProductBySlug(ctx context.Context, slug string) (*models.Product, error)
}

// Service manages customer reviews and their moderation.
type Service interface {
	Submit(ctx context.Context, userID uuid.UUID, slug string, input SubmitInput) (*ReviewDTO, error)
	ListForProduct(ctx context.Context, slug string, params pagination.Params) (*ProductReviewsDTO, error)
	DeleteOwn(ctx context.Context, userID uuid.UUID, slug string) error
	Moderate(ctx context.Context, reviewID uuid.UUID, published bool) (*ReviewDTO, error)
	Delete(ctx context.Context, reviewID uuid.UUID) error
}

type ServiceParams struct {
	Repo     *Repository
	Products productFinder
}

type service struct {
	repo     *Repository
	products productFinder
}

func NewService(params ServiceParams) (Service, error) {
	if params.Repo == nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "reviews repo is required")
	}
	if params.Products == nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "product repo is required")
	}
	return &service{repo: params.Repo, products: params.Products}, nil
}

// Submit creates or replaces the caller's review. Reviews are marked as a
// verified purchase when the caller has a delivered order with the product.
func (s *service) Submit(ctx context.Context, userID uuid.UUID, slug string, input SubmitInput) (*ReviewDTO, error) {
	if err := validateInput(&input); err != nil {
		return nil, err
	}
	product, err := s.activeProduct(ctx, slug)
	if err != nil {
		return nil, err
	}
	verified, err := s.repo.HasDeliveredPurchase(ctx, userID, product.ID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "check purchase history")
	}

	review := &models.ProductReview{
		ProductID:        product.ID,
		UserID:           userID,
		Rating:           input.Rating,
		Title:            input.Title,
		Body:             input.Body,
		VerifiedPurchase: verified,
		IsPublished:      true,
	}
	if err := s.repo.Upsert(ctx, review); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "save review")
	}
	row, err := s.repo.FindByProductAndUser(ctx, product.ID, userID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "reload review")
	}
	dto := newReviewDTO(*row)
	return &dto, nil
}

// ListForProduct pages through published reviews with the rating summary.
func (s *service) ListForProduct(ctx context.Context, slug string, params pagination.Params) (*ProductReviewsDTO, error) {
	product, err := s.activeProduct(ctx, slug)
	if err != nil {
		return nil, err
	}
	cursor, err := pagination.ParseCursor(params.Cursor)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid cursor")
	}
	limit := pagination.NormalizeLimit(params.Limit)

	rows, err := s.repo.ListPublished(ctx, product.ID, cursor, limit)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list reviews")
	}
	counts, err := s.repo.RatingCounts(ctx, product.ID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "summarize reviews")
	}

	page := pagination.BuildPage(rows, limit, func(row reviewRow) pagination.Cursor {
		return pagination.Cursor{CreatedAt: row.CreatedAt, ID: row.ID}
	})
	out := &ProductReviewsDTO{
		Summary:    buildSummary(counts),
		Items:      make([]ReviewDTO, 0, len(page.Items)),
		NextCursor: page.NextCursor,
	}
	for _, row := range page.Items {
		out.Items = append(out.Items, newReviewDTO(row))
	}
	return out, nil
}

func (s *service) DeleteOwn(ctx context.Context, userID uuid.UUID, slug string) error {
	product, err := s.products.FindProductBySlug(ctx, strings.TrimSpace(slug))
	if err != nil {
		return productLookupError(err)
	}
	n, err := s.repo.DeleteByProductAndUser(ctx, product.ID, userID)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "delete review")
	}
	if n == 0 {
		return pkgerrors.New(pkgerrors.CodeNotFound, "review not found")
	}
	return nil
}

// Moderate hides or republishes a review. Editing a hidden review keeps it hidden.
func (s *service) Moderate(ctx context.Context, reviewID uuid.UUID, published bool) (*ReviewDTO, error) {
	n, err := s.repo.SetPublished(ctx, reviewID, published)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "moderate review")
	}
	if n == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "review not found")
	}
	row, err := s.repo.FindByID(ctx, reviewID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "reload review")
	}
	dto := newReviewDTO(*row)
	return &dto, nil
}

func (s *service) Delete(ctx context.Context, reviewID uuid.UUID) error {
	n, err := s.repo.Delete(ctx, reviewID)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "delete review")
	}
	if n == 0 {
		return pkgerrors.New(pkgerrors.CodeNotFound, "review not found")
	}
	return nil
}

func (s *service) activeProduct(ctx context.Context, slug string) (*models.Product, error) {
	product, err := s.products.FindProductBySlug(ctx, strings.TrimSpace(slug))
	if err != nil {
		return nil, productLookupError(err)
	}
	if !product.IsActive {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "product not found")
	}
	return product, nil
}

func productLookupError(err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return pkgerrors.Wrap(pkgerrors.CodeNotFound, err, "product not found")
	}
	return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load product")
}

func validateInput(input *SubmitInput) error {
	if input.Rating < 1 || input.Rating > 5 {
		return pkgerrors.New(pkgerrors.CodeValidation, "rating must be between 1 and 5").
			WithDetails(map[string]any{"field": "rating"})
	}
	input.Body = strings.TrimSpace(input.Body)
	if input.Body == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, "review text is required").
			WithDetails(map[string]any{"field": "body"})
	}
	if utf8.RuneCountInString(input.Body) > maxBodyRunes {
		return pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("review text must be at most %d characters", maxBodyRunes)).
			WithDetails(map[string]any{"field": "body"})
	}
	if input.Title != nil {
		title := strings.TrimSpace(*input.Title)
		switch {
		case title == "":
			input.Title = nil
		case utf8.RuneCountInString(title) > maxTitleRunes:
			return pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("title must be at most %d characters", maxTitleRunes)).
				WithDetails(map[string]any{"field": "title"})
		default:
			input.Title = &title
		}
	}
	return nil
}
