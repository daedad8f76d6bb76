package catalog

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/google/uuid"

	pkgerrors "github.com/angelmondragon/storefront-backend/pkg/errors"
	"github.com/angelmondragon/storefront-backend/pkg/logger"
)

var imageExtensions = map[string]string{
	"image/png":  ".png",
	"image/jpeg": ".jpg",
	"image/webp": ".webp",
	"image/gif":  ".gif",
}

// ImageStore is the object storage behind product images.
type ImageStore interface {
	Upload(ctx context.Context, object, contentType string, body io.Reader) error
	Delete(ctx context.Context, object string) error
	PublicURL(object string) string
	ObjectFromURL(raw string) (string, bool)
}

// ImageService uploads and removes the primary product image.
type ImageService interface {
	UploadProductImage(ctx context.Context, productID uuid.UUID, image io.Reader) (*ProductDTO, error)
	DeleteProductImage(ctx context.Context, productID uuid.UUID) (*ProductDTO, error)
}

type ImageServiceParams struct {
	Repo     *Repository
	Store    ImageStore
	MaxBytes int64
	Logger   *logger.Logger
}

type imageService struct {
	repo     *Repository
	store    ImageStore
	maxBytes int64
	logg     *logger.Logger
	now      func() time.Time
	newID    func() uuid.UUID
}

// NewImageService builds the image service. A nil Store is allowed and makes
// every call fail as a dependency error.
func NewImageService(params ImageServiceParams) (ImageService, error) {
	if params.Repo == nil {
		return nil, fmt.Errorf("catalog repository required")
	}
	if params.Store != nil && params.MaxBytes <= 0 {
		return nil, fmt.Errorf("max image bytes must be positive")
	}
	logg := params.Logger
	if logg == nil {
		logg = logger.Nop()
	}
	return &imageService{
		repo:     params.Repo,
		store:    params.Store,
		maxBytes: params.MaxBytes,
		logg:     logg,
		now:      time.Now,
		newID:    uuid.New,
	}, nil
}

func (s *imageService) UploadProductImage(ctx context.Context, productID uuid.UUID, image io.Reader) (*ProductDTO, error) {
	if s.store == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "image storage not configured")
	}
	data, err := io.ReadAll(io.LimitReader(image, s.maxBytes+1))
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "read image")
	}
	if len(data) == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "image is empty").WithDetails(map[string]any{"field": "image"})
	}
	if int64(len(data)) > s.maxBytes {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("image must be at most %d bytes", s.maxBytes)).
			WithDetails(map[string]any{"field": "image", "max_bytes": s.maxBytes})
	}
	contentType := http.DetectContentType(data)
	ext, ok := imageExtensions[contentType]
	if !ok {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "image must be png, jpeg, webp or gif").
			WithDetails(map[string]any{"field": "image", "content_type": contentType})
	}

	product, err := s.repo.FindProductByID(ctx, productID)
	if err != nil {
		return nil, notFoundOr(err, "product not found", "load product")
	}

	object := fmt.Sprintf("products/%s/%s%s", productID, s.newID(), ext)
	if err := s.store.Upload(ctx, object, contentType, bytes.NewReader(data)); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "upload image")
	}

	imageURL := s.store.PublicURL(object)
	if _, err := s.repo.SetProductImage(ctx, productID, &imageURL, s.now().UTC()); err != nil {
		s.removeObject(ctx, object)
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "save image url")
	}

	previous := product.ImageURL
	product.ImageURL = &imageURL
	s.removeOwned(ctx, previous)

	dto := NewProductDTO(*product, true)
	return &dto, nil
}

// DeleteProductImage clears the image. Images hosted elsewhere are only unlinked.
func (s *imageService) DeleteProductImage(ctx context.Context, productID uuid.UUID) (*ProductDTO, error) {
	if s.store == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "image storage not configured")
	}
	product, err := s.repo.FindProductByID(ctx, productID)
	if err != nil {
		return nil, notFoundOr(err, "product not found", "load product")
	}
	if product.ImageURL == nil {
		dto := NewProductDTO(*product, true)
		return &dto, nil
	}
	if _, err := s.repo.SetProductImage(ctx, productID, nil, s.now().UTC()); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "clear image url")
	}

	previous := product.ImageURL
	product.ImageURL = nil
	s.removeOwned(ctx, previous)

	dto := NewProductDTO(*product, true)
	return &dto, nil
}

func (s *imageService) removeOwned(ctx context.Context, imageURL *string) {
	if imageURL == nil {
		return
	}
	if object, ok := s.store.ObjectFromURL(*imageURL); ok {
		s.removeObject(ctx, object)
	}
}

// removeObject is best effort; an orphaned object only costs storage.
func (s *imageService) removeObject(ctx context.Context, object string) {
	if err := s.store.Delete(ctx, object); err != nil {
		s.logg.Error(s.logg.WithField(ctx, "object", object), "delete product image", err)
	}
}
