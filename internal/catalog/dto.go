package catalog

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/angelmondragon/storefront-backend/pkg/db/models"
	"github.com/angelmondragon/storefront-backend/pkg/format"
)

// CategoryDTO is the public category payload.
type CategoryDTO struct {
	ID          uuid.UUID `json:"id"`
	Name        string    `json:"name"`
	Slug        string    `json:"slug"`
	Description *string   `json:"description,omitempty"`
}

// ProductDTO is the public product payload.
type ProductDTO struct {
	ID                      uuid.UUID        `json:"id"`
	CategoryID              *uuid.UUID       `json:"category_id,omitempty"`
	Name                    string           `json:"name"`
	Slug                    string           `json:"slug"`
	Description             *string          `json:"description,omitempty"`
	Price                   decimal.Decimal  `json:"price"`
	FormattedPrice          string           `json:"formatted_price"`
	CompareAtPrice          *decimal.Decimal `json:"compare_at_price,omitempty"`
	FormattedCompareAtPrice *string          `json:"formatted_compare_at_price,omitempty"`
	ImageURL                *string          `json:"image_url,omitempty"`
	IsActive                bool             `json:"is_active"`
	Variants                []VariantDTO     `json:"variants"`
	CreatedAt               time.Time        `json:"created_at"`
	UpdatedAt               time.Time        `json:"updated_at"`
}

// VariantDTO exposes the resolved price of a variant.
type VariantDTO struct {
	ID             uuid.UUID       `json:"id"`
	Name           string          `json:"name"`
	SKU            *string         `json:"sku,omitempty"`
	Price          decimal.Decimal `json:"price"`
	FormattedPrice string          `json:"formatted_price"`
	IsActive       bool            `json:"is_active"`
}

// NewCategoryDTO maps a category model.
func NewCategoryDTO(c models.Category) CategoryDTO {
	return CategoryDTO{ID: c.ID, Name: c.Name, Slug: c.Slug, Description: c.Description}
}

// NewProductDTO maps a product model. Inactive variants are hidden unless
// includeInactive is set (admin views).
func NewProductDTO(p models.Product, includeInactive bool) ProductDTO {
	dto := ProductDTO{
		ID:             p.ID,
		CategoryID:     p.CategoryID,
		Name:           p.Name,
		Slug:           p.Slug,
		Description:    p.Description,
		Price:          p.Price,
		FormattedPrice: format.FormatCurrency(p.Price),
		CompareAtPrice: p.CompareAtPrice,
		ImageURL:       p.ImageURL,
		IsActive:       p.IsActive,
		Variants:       make([]VariantDTO, 0, len(p.Variants)),
		CreatedAt:      p.CreatedAt,
		UpdatedAt:      p.UpdatedAt,
	}
	if p.CompareAtPrice != nil {
		formatted := format.FormatCurrency(*p.CompareAtPrice)
		dto.FormattedCompareAtPrice = &formatted
	}
	for i := range p.Variants {
		v := p.Variants[i]
		if !v.IsActive && !includeInactive {
			continue
		}
		price := p.EffectivePrice(&v)
		dto.Variants = append(dto.Variants, VariantDTO{
			ID:             v.ID,
			Name:           v.Name,
			SKU:            v.SKU,
			Price:          price,
			FormattedPrice: format.FormatCurrency(price),
			IsActive:       v.IsActive,
		})
	}
	return dto
}
