package controllers

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"

	"github.com/angelmondragon/storefront-backend/api/responses"
	"github.com/angelmondragon/storefront-backend/api/validators"
	"github.com/angelmondragon/storefront-backend/internal/catalog"
	pkgerrors "github.com/angelmondragon/storefront-backend/pkg/errors"
	"github.com/angelmondragon/storefront-backend/pkg/logger"
	"github.com/angelmondragon/storefront-backend/pkg/types"
)

type categoryRequest struct {
	Name        string  `json:"name" validate:"required,max=120"`
	Slug        string  `json:"slug,omitempty" validate:"omitempty,max=140"`
	Description *string `json:"description,omitempty"`
}

func (r categoryRequest) toInput() catalog.CategoryInput {
	return catalog.CategoryInput{Name: r.Name, Slug: r.Slug, Description: r.Description}
}

type variantRequest struct {
	Name     string           `json:"name" validate:"required,max=120"`
	SKU      *string          `json:"sku,omitempty" validate:"omitempty,max=64"`
	Price    *decimal.Decimal `json:"price,omitempty"`
	IsActive *bool            `json:"is_active,omitempty"`
}

type createProductRequest struct {
	CategoryID     *string          `json:"category_id,omitempty" validate:"omitempty,uuid"`
	Name           string           `json:"name" validate:"required,max=200"`
	Slug           string           `json:"slug,omitempty" validate:"omitempty,max=220"`
	Description    *string          `json:"description,omitempty"`
	Price          decimal.Decimal  `json:"price"`
	CompareAtPrice *decimal.Decimal `json:"compare_at_price,omitempty"`
	ImageURL       *string          `json:"image_url,omitempty" validate:"omitempty,url"`
	IsActive       *bool            `json:"is_active,omitempty"`
	Variants       []variantRequest `json:"variants,omitempty" validate:"omitempty,dive"`
}

type updateProductRequest struct {
	CategoryID     types.NullableUUID              `json:"category_id"`
	Name           *string                         `json:"name,omitempty" validate:"omitempty,max=200"`
	Slug           *string                         `json:"slug,omitempty" validate:"omitempty,max=220"`
	Description    *string                         `json:"description,omitempty"`
	Price          *decimal.Decimal                `json:"price,omitempty"`
	CompareAtPrice types.Nullable[decimal.Decimal] `json:"compare_at_price"`
	ImageURL       *string                         `json:"image_url,omitempty" validate:"omitempty,url"`
	IsActive       *bool                           `json:"is_active,omitempty"`
	Variants       *[]variantRequest               `json:"variants,omitempty"`
}

func toVariantInputs(in []variantRequest) ([]catalog.VariantInput, error) {
	out := make([]catalog.VariantInput, 0, len(in))
	for i, v := range in {
		if strings.TrimSpace(v.Name) == "" {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "variant name is required").WithDetails(map[string]any{"index": i})
		}
		active := true
		if v.IsActive != nil {
			active = *v.IsActive
		}
		out = append(out, catalog.VariantInput{Name: v.Name, SKU: v.SKU, Price: v.Price, IsActive: active})
	}
	return out, nil
}

func (r createProductRequest) toInput() (catalog.CreateProductInput, error) {
	input := catalog.CreateProductInput{
		Name:           r.Name,
		Slug:           r.Slug,
		Description:    r.Description,
		Price:          r.Price,
		CompareAtPrice: r.CompareAtPrice,
		ImageURL:       r.ImageURL,
		IsActive:       true,
	}
	if r.IsActive != nil {
		input.IsActive = *r.IsActive
	}
	if r.CategoryID != nil {
		id, err := parseUUIDField(*r.CategoryID, "category_id")
		if err != nil {
			return catalog.CreateProductInput{}, err
		}
		input.CategoryID = &id
	}
	variants, err := toVariantInputs(r.Variants)
	if err != nil {
		return catalog.CreateProductInput{}, err
	}
	input.Variants = variants
	return input, nil
}

func (r updateProductRequest) toInput() (catalog.UpdateProductInput, error) {
	input := catalog.UpdateProductInput{
		CategoryID:     r.CategoryID,
		Name:           r.Name,
		Slug:           r.Slug,
		Description:    r.Description,
		Price:          r.Price,
		CompareAtPrice: r.CompareAtPrice,
		ImageURL:       r.ImageURL,
		IsActive:       r.IsActive,
	}
	if r.Variants != nil {
		variants, err := toVariantInputs(*r.Variants)
		if err != nil {
			return catalog.UpdateProductInput{}, err
		}
		input.Variants = &variants
	}
	return input, nil
}

func catalogUnavailable(r *http.Request, w http.ResponseWriter, logg *logger.Logger) {
	responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "catalog service unavailable"))
}

// CategoryList is public.
func CategoryList(svc catalog.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			catalogUnavailable(r, w, logg)
			return
		}
		list, err := svc.ListCategories(r.Context())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, list)
	}
}

// ProductList lists active products. ?category=<slug> and ?q=<text> filter;
// admins may pass ?include_inactive=true on the admin route.
func ProductList(svc catalog.Service, includeInactive bool, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			catalogUnavailable(r, w, logg)
			return
		}
		params, err := paginationParams(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		query := r.URL.Query()
		input := catalog.ListProductsInput{
			CategorySlug: strings.TrimSpace(query.Get("category")),
			Search:       validators.SanitizeString(query.Get("q"), 100),
			Pagination:   params,
		}
		if includeInactive && strings.EqualFold(strings.TrimSpace(query.Get("include_inactive")), "true") {
			input.IncludeInactive = true
		}

		page, err := svc.ListProducts(r.Context(), input)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, page)
	}
}

func ProductGetBySlug(svc catalog.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			catalogUnavailable(r, w, logg)
			return
		}
		slug := strings.TrimSpace(chi.URLParam(r, "slug"))
		if slug == "" {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeValidation, "slug is required"))
			return
		}
		product, err := svc.GetProductBySlug(r.Context(), slug)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, product)
	}
}

func AdminCategoryCreate(svc catalog.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			catalogUnavailable(r, w, logg)
			return
		}
		var body categoryRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		category, err := svc.CreateCategory(r.Context(), body.toInput())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteCreated(w, category)
	}
}

func AdminCategoryUpdate(svc catalog.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			catalogUnavailable(r, w, logg)
			return
		}
		id, err := uuidParam(r, "categoryID")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		var body categoryRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		category, err := svc.UpdateCategory(r.Context(), id, body.toInput())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, category)
	}
}

func AdminCategoryDelete(svc catalog.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			catalogUnavailable(r, w, logg)
			return
		}
		id, err := uuidParam(r, "categoryID")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		if err := svc.DeleteCategory(r.Context(), id); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteNoContent(w)
	}
}

func AdminProductCreate(svc catalog.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			catalogUnavailable(r, w, logg)
			return
		}
		var body createProductRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		input, err := body.toInput()
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		product, err := svc.CreateProduct(r.Context(), input)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteCreated(w, product)
	}
}

func AdminProductUpdate(svc catalog.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			catalogUnavailable(r, w, logg)
			return
		}
		id, err := uuidParam(r, "productID")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		var body updateProductRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		input, err := body.toInput()
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		product, err := svc.UpdateProduct(r.Context(), id, input)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, product)
	}
}

// AdminProductArchive hides a product from the storefront. Existing orders
// keep their snapshot.
func AdminProductArchive(svc catalog.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			catalogUnavailable(r, w, logg)
			return
		}
		id, err := uuidParam(r, "productID")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		if err := svc.ArchiveProduct(r.Context(), id); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteNoContent(w)
	}
}
