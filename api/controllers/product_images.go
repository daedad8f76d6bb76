package controllers

import (
	"errors"
	"net/http"

	"github.com/angelmondragon/storefront-backend/api/responses"
	"github.com/angelmondragon/storefront-backend/internal/catalog"
	pkgerrors "github.com/angelmondragon/storefront-backend/pkg/errors"
	"github.com/angelmondragon/storefront-backend/pkg/logger"
)

// multipart framing allowance on top of the image limit
const multipartOverhead = 64 << 10

// AdminProductImageUpload accepts a multipart "image" field and makes it the
// product's primary image.
func AdminProductImageUpload(svc catalog.ImageService, maxBytes int64, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		if svc == nil {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeInternal, "image service unavailable"))
			return
		}
		productID, err := uuidParam(r, "productID")
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		r.Body = http.MaxBytesReader(w, r.Body, maxBytes+multipartOverhead)
		file, _, err := r.FormFile("image")
		if err != nil {
			var tooLarge *http.MaxBytesError
			if errors.As(err, &tooLarge) {
				responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeValidation, "image too large").
					WithDetails(map[string]any{"field": "image", "max_bytes": maxBytes}))
				return
			}
			responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "image file is required").
				WithDetails(map[string]any{"field": "image"}))
			return
		}
		defer file.Close()

		resp, err := svc.UploadProductImage(ctx, productID, file)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteSuccess(w, resp)
	}
}

func AdminProductImageDelete(svc catalog.ImageService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		if svc == nil {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeInternal, "image service unavailable"))
			return
		}
		productID, err := uuidParam(r, "productID")
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		resp, err := svc.DeleteProductImage(ctx, productID)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteSuccess(w, resp)
	}
}
