package payments

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/angelmondragon/storefront-backend/pkg/db/models"
	"github.com/angelmondragon/storefront-backend/pkg/enums"
)

var openStates = []enums.PaymentAttemptState{
	enums.PaymentAttemptStateIdle,
	enums.PaymentAttemptStateScriptLoading,
	enums.PaymentAttemptStateGatewayOrderCreated,
	enums.PaymentAttemptStateCheckoutOpen,
	enums.PaymentAttemptStateVerifying,
}

// Repository persists payment attempts.
type Repository struct {
	db *gorm.DB
}

// NewRepository binds the repository to db.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// WithTx returns a copy bound to tx.
func (r *Repository) WithTx(tx *gorm.DB) *Repository {
	if tx == nil {
		return r
	}
	return &Repository{db: tx}
}

func (r *Repository) Create(ctx context.Context, attempt *models.PaymentAttempt) error {
	return r.db.WithContext(ctx).Create(attempt).Error
}

func (r *Repository) Save(ctx context.Context, attempt *models.PaymentAttempt) error {
	return r.db.WithContext(ctx).Save(attempt).Error
}

func (r *Repository) FindForUser(ctx context.Context, userID, id uuid.UUID) (*models.PaymentAttempt, error) {
	var attempt models.PaymentAttempt
	if err := r.db.WithContext(ctx).Where("id = ? AND user_id = ?", id, userID).First(&attempt).Error; err != nil {
		return nil, err
	}
	return &attempt, nil
}

// FindByIDForUpdate row-locks the attempt for the rest of the transaction.
func (r *Repository) FindByIDForUpdate(ctx context.Context, id uuid.UUID) (*models.PaymentAttempt, error) {
	var attempt models.PaymentAttempt
	err := r.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("id = ?", id).
		First(&attempt).Error
	if err != nil {
		return nil, err
	}
	return &attempt, nil
}

// FindByGateway resolves the newest attempt for a provider order id; webhooks
// only know the gateway side.
func (r *Repository) FindByGateway(ctx context.Context, provider enums.PaymentProvider, gatewayOrderID string) (*models.PaymentAttempt, error) {
	var attempt models.PaymentAttempt
	err := r.db.WithContext(ctx).
		Where("provider = ? AND gateway_order_id = ?", provider, gatewayOrderID).
		Order("created_at DESC").
		First(&attempt).Error
	if err != nil {
		return nil, err
	}
	return &attempt, nil
}

func (r *Repository) ListByOrder(ctx context.Context, orderID uuid.UUID) ([]models.PaymentAttempt, error) {
	var rows []models.PaymentAttempt
	err := r.db.WithContext(ctx).
		Where("order_id = ?", orderID).
		Order("created_at DESC").
		Find(&rows).Error
	return rows, err
}

// CloseOpenAttempts cancels the order's unfinished attempts except keep.
func (r *Repository) CloseOpenAttempts(ctx context.Context, orderID, keep uuid.UUID) (int64, error) {
	res := r.db.WithContext(ctx).
		Model(&models.PaymentAttempt{}).
		Where("order_id = ? AND id <> ? AND state IN ?", orderID, keep, openStates).
		Updates(map[string]any{
			"state":      enums.PaymentAttemptStateCancelled,
			"updated_at": time.Now().UTC(),
		})
	return res.RowsAffected, res.Error
}

// FailOpenAttempts marks every unfinished attempt of the order failed with an
// expiry failure.
func (r *Repository) FailOpenAttempts(ctx context.Context, tx *gorm.DB, orderID uuid.UUID, reason string) (int64, error) {
	failure := Failure{
		Code:        CodePaymentExpired,
		Description: reason,
		Source:      SourceInternal,
		Step:        StepAuthorization,
		Reason:      "order_expired",
	}.Normalize(StepAuthorization)
	res := r.WithTx(tx).db.WithContext(ctx).
		Model(&models.PaymentAttempt{}).
		Where("order_id = ? AND state IN ?", orderID, openStates).
		Updates(map[string]any{
			"state":               enums.PaymentAttemptStateFailed,
			"failure_code":        failure.Code,
			"failure_description": failure.Description,
			"failure_source":      failure.Source,
			"failure_step":        failure.Step,
			"failure_reason":      failure.Reason,
			"updated_at":          time.Now().UTC(),
		})
	return res.RowsAffected, res.Error
}
