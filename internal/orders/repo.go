package orders

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/angelmondragon/storefront-backend/pkg/db/models"
	"github.com/angelmondragon/storefront-backend/pkg/enums"
	"github.com/angelmondragon/storefront-backend/pkg/pagination"
)

type repository struct {
	db *gorm.DB
}

// NewRepository builds an orders repository bound to the provided DB.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) CreateOrder(ctx context.Context, order *models.Order) error {
	return r.db.WithContext(ctx).Omit(clause.Associations).Create(order).Error
}

func (r *repository) CreateItems(ctx context.Context, items []models.OrderItem) error {
	if len(items) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).Create(&items).Error
}

func (r *repository) FindByID(ctx context.Context, id uuid.UUID) (*models.Order, error) {
	var order models.Order
	err := r.db.WithContext(ctx).
		Preload("Items", orderItems).
		Where("id = ?", id).
		First(&order).Error
	if err != nil {
		return nil, err
	}
	return &order, nil
}

func (r *repository) FindForUser(ctx context.Context, userID, id uuid.UUID) (*models.Order, error) {
	var order models.Order
	err := r.db.WithContext(ctx).
		Preload("Items", orderItems).
		Where("id = ? AND user_id = ?", id, userID).
		First(&order).Error
	if err != nil {
		return nil, err
	}
	return &order, nil
}

// FindByIDForUpdate row-locks the order for the rest of the transaction.
func (r *repository) FindByIDForUpdate(ctx context.Context, id uuid.UUID) (*models.Order, error) {
	var order models.Order
	err := r.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("id = ?", id).
		First(&order).Error
	if err != nil {
		return nil, err
	}
	return &order, nil
}

func (r *repository) ListByUser(ctx context.Context, userID uuid.UUID, cursor *pagination.Cursor, limit int) ([]models.Order, error) {
	query := r.db.WithContext(ctx).Where("user_id = ?", userID)
	return r.page(query, cursor, limit)
}

func (r *repository) ListAll(ctx context.Context, filters AdminFilters, cursor *pagination.Cursor, limit int) ([]models.Order, error) {
	query := r.db.WithContext(ctx).Model(&models.Order{})
	if filters.Status != nil {
		query = query.Where("status = ?", *filters.Status)
	}
	if filters.PaymentStatus != nil {
		query = query.Where("payment_status = ?", *filters.PaymentStatus)
	}
	if filters.PaymentMethod != nil {
		query = query.Where("payment_method = ?", *filters.PaymentMethod)
	}
	if filters.UserID != nil {
		query = query.Where("user_id = ?", *filters.UserID)
	}
	if filters.DateFrom != nil {
		query = query.Where("created_at >= ?", *filters.DateFrom)
	}
	if filters.DateTo != nil {
		query = query.Where("created_at <= ?", *filters.DateTo)
	}
	if q := strings.TrimSpace(filters.Query); q != "" {
		query = query.Where("UPPER(order_number) LIKE ?", "%"+strings.ToUpper(q)+"%")
	}
	return r.page(query, cursor, limit)
}

func (r *repository) page(query *gorm.DB, cursor *pagination.Cursor, limit int) ([]models.Order, error) {
	if cursor != nil {
		query = query.Where("(created_at < ?) OR (created_at = ? AND id < ?)", cursor.CreatedAt, cursor.CreatedAt, cursor.ID)
	}
	var rows []models.Order
	err := query.
		Preload("Items", orderItems).
		Order("created_at DESC").
		Order("id DESC").
		Limit(pagination.LimitWithBuffer(limit)).
		Find(&rows).Error
	return rows, err
}

// unpaidStatuses are payment states the expiry sweep treats as unpaid. A
// failed payment may still be retried until the order expires.
var unpaidStatuses = []enums.PaymentStatus{enums.PaymentStatusPending, enums.PaymentStatusFailed}

// FindUnpaidOnlineBefore returns online orders still awaiting payment that
// were created before cutoff, oldest first.
func (r *repository) FindUnpaidOnlineBefore(ctx context.Context, cutoff time.Time, limit int) ([]models.Order, error) {
	var rows []models.Order
	query := r.db.WithContext(ctx).
		Where("payment_method = ?", enums.PaymentMethodOnline).
		Where("payment_status IN ?", unpaidStatuses).
		Where("status IN ?", []enums.OrderStatus{enums.OrderStatusPending, enums.OrderStatusConfirmed}).
		Where("created_at < ?", cutoff).
		Order("created_at ASC")
	if limit > 0 {
		query = query.Limit(limit)
	}
	err := query.Find(&rows).Error
	return rows, err
}

func (r *repository) Update(ctx context.Context, id uuid.UUID, updates map[string]any) error {
	if len(updates) == 0 {
		return nil
	}
	res := r.db.WithContext(ctx).
		Model(&models.Order{}).
		Where("id = ?", id).
		Updates(updates)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

func orderItems(db *gorm.DB) *gorm.DB {
	return db.Order("created_at ASC").Order("id ASC")
}
