package orders

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/storefront-backend/pkg/db/models"
	"github.com/angelmondragon/storefront-backend/pkg/enums"
	"github.com/angelmondragon/storefront-backend/pkg/pagination"
)

// Repository defines persistence operations for the orders tables.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	CreateOrder(ctx context.Context, order *models.Order) error
	CreateItems(ctx context.Context, items []models.OrderItem) error
	FindByID(ctx context.Context, id uuid.UUID) (*models.Order, error)
	FindForUser(ctx context.Context, userID, id uuid.UUID) (*models.Order, error)
	FindByIDForUpdate(ctx context.Context, id uuid.UUID) (*models.Order, error)
	ListByUser(ctx context.Context, userID uuid.UUID, cursor *pagination.Cursor, limit int) ([]models.Order, error)
	ListAll(ctx context.Context, filters AdminFilters, cursor *pagination.Cursor, limit int) ([]models.Order, error)
	FindUnpaidOnlineBefore(ctx context.Context, cutoff time.Time, limit int) ([]models.Order, error)
	Update(ctx context.Context, id uuid.UUID, updates map[string]any) error
}

// AdminFilters narrows the admin order listing.
type AdminFilters struct {
	Status        *enums.OrderStatus
	PaymentStatus *enums.PaymentStatus
	PaymentMethod *enums.PaymentMethod
	UserID        *uuid.UUID
	DateFrom      *time.Time
	DateTo        *time.Time
	Query         string
}
