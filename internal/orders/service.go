package orders

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/multierr"
	"gorm.io/gorm"

	"github.com/angelmondragon/storefront-backend/internal/address"
	"github.com/angelmondragon/storefront-backend/internal/catalog"
	"github.com/angelmondragon/storefront-backend/internal/pricing"
	"github.com/angelmondragon/storefront-backend/pkg/checkout"
	"github.com/angelmondragon/storefront-backend/pkg/db"
	"github.com/angelmondragon/storefront-backend/pkg/db/models"
	"github.com/angelmondragon/storefront-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/storefront-backend/pkg/errors"
	"github.com/angelmondragon/storefront-backend/pkg/outbox"
	"github.com/angelmondragon/storefront-backend/pkg/outbox/payloads"
	"github.com/angelmondragon/storefront-backend/pkg/pagination"
)

// Order creation steps reported in error details.
const (
	StepResolveProducts = "resolve_products"
	StepComputeTotals   = "compute_totals"
	StepLoadAddress     = "load_address"
	StepInsertOrder     = "insert_order"
	StepInsertItems     = "insert_items"
	StepFinalizeStatus  = "finalize_status"
	StepEmitEvent       = "emit_event"
	StepClearCart       = "clear_cart"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type outboxPublisher interface {
	Emit(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error
}

type cartClearer interface {
	ClearUser(ctx context.Context, tx *gorm.DB, userID uuid.UUID) error
}

// attemptCloser fails the open payment attempts of an expired order.
type attemptCloser interface {
	FailOpenAttempts(ctx context.Context, tx *gorm.DB, orderID uuid.UUID, reason string) (int64, error)
}

type orderRecorder interface {
	OrderCreated(paymentMethod string)
}

// Service exposes customer and admin order operations.
type Service interface {
	Create(ctx context.Context, input CreateInput) (*OrderDTO, error)
	List(ctx context.Context, userID uuid.UUID, params pagination.Params) (*pagination.Page[OrderSummaryDTO], error)
	Get(ctx context.Context, userID, orderID uuid.UUID) (*OrderDTO, error)
	AdminList(ctx context.Context, input AdminListInput) (*pagination.Page[OrderSummaryDTO], error)
	AdminGet(ctx context.Context, orderID uuid.UUID) (*OrderDTO, error)
	UpdateStatus(ctx context.Context, input UpdateStatusInput) (*OrderDTO, error)
	MarkPaid(ctx context.Context, tx *gorm.DB, input MarkPaidInput) (*models.Order, error)
	MarkPaymentFailed(ctx context.Context, tx *gorm.DB, orderID uuid.UUID) error
	ExpireUnpaid(ctx context.Context, cutoff time.Time, limit int) (int, error)
}

// LineInput is one requested order line. UnitPrice is the price the client
// displayed; when present it must still match the catalog.
type LineInput struct {
	ProductID uuid.UUID        `json:"product_id" validate:"required"`
	VariantID *uuid.UUID       `json:"variant_id,omitempty"`
	Quantity  int              `json:"quantity" validate:"required,min=1"`
	UnitPrice *decimal.Decimal `json:"unit_price,omitempty"`
}

// CreateInput places an order for the authenticated user.
type CreateInput struct {
	UserID            uuid.UUID           `json:"-"`
	ActorRole         string              `json:"-"`
	Items             []LineInput         `json:"items" validate:"required,min=1,dive"`
	ShippingAddressID uuid.UUID           `json:"shipping_address_id" validate:"required"`
	PaymentMethod     enums.PaymentMethod `json:"payment_method" validate:"required,oneof=online cod"`
	Notes             *string             `json:"notes,omitempty" validate:"omitempty,max=1000"`
	ClearCart         bool                `json:"clear_cart"`
}

// AdminListInput filters and pages the admin order listing.
type AdminListInput struct {
	Filters    AdminFilters
	Pagination pagination.Params
}

// UpdateStatusInput is an admin driven status change.
type UpdateStatusInput struct {
	OrderID     uuid.UUID         `json:"-"`
	Status      enums.OrderStatus `json:"status" validate:"required"`
	ActorUserID uuid.UUID         `json:"-"`
	ActorRole   string            `json:"-"`
}

// MarkPaidInput records a verified gateway payment on the order.
type MarkPaidInput struct {
	OrderID          uuid.UUID
	Provider         enums.PaymentProvider
	GatewayOrderID   string
	GatewayPaymentID string
	PaidAt           time.Time
}

// ServiceParams wires the order service.
type ServiceParams struct {
	Repo        Repository
	Catalog     *catalog.Repository
	Addresses   *address.Repository
	DB          txRunner
	Outbox      outboxPublisher
	Calculator  pricing.Calculator
	Cart        cartClearer
	Attempts    attemptCloser
	Metrics     orderRecorder
	Provider    enums.PaymentProvider
	AllowCOD    bool
	MaxLines    int
	MaxQuantity int
}

type service struct {
	repo      Repository
	catalog   *catalog.Repository
	addresses *address.Repository
	tx        txRunner
	outbox    outboxPublisher
	calc      pricing.Calculator
	cart      cartClearer
	attempts  attemptCloser
	metrics   orderRecorder
	provider  enums.PaymentProvider
	allowCOD  bool
	maxLines  int
	maxQty    int
	now       func() time.Time
	newNumber func(time.Time) string
}

// NewService builds the orders service.
func NewService(params ServiceParams) (Service, error) {
	if params.Repo == nil {
		return nil, fmt.Errorf("orders repository required")
	}
	if params.Catalog == nil {
		return nil, fmt.Errorf("catalog repository required")
	}
	if params.Addresses == nil {
		return nil, fmt.Errorf("address repository required")
	}
	if params.DB == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	if params.Outbox == nil {
		return nil, fmt.Errorf("outbox publisher required")
	}
	if params.Provider != "" && !params.Provider.IsValid() {
		return nil, fmt.Errorf("unknown payment provider %q", params.Provider)
	}
	return &service{
		repo:      params.Repo,
		catalog:   params.Catalog,
		addresses: params.Addresses,
		tx:        params.DB,
		outbox:    params.Outbox,
		calc:      params.Calculator,
		cart:      params.Cart,
		attempts:  params.Attempts,
		metrics:   params.Metrics,
		provider:  params.Provider,
		allowCOD:  params.AllowCOD,
		maxLines:  params.MaxLines,
		maxQty:    params.MaxQuantity,
		now:       func() time.Time { return time.Now().UTC() },
		newNumber: NewOrderNumber,
	}, nil
}

type resolvedLine struct {
	LineInput
	product models.Product
	variant *models.ProductVariant
	price   decimal.Decimal
}

func (s *service) Create(ctx context.Context, input CreateInput) (*OrderDTO, error) {
	if input.UserID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "user identity missing")
	}
	if err := s.validatePaymentMethod(input.PaymentMethod); err != nil {
		return nil, err
	}
	if input.ShippingAddressID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "shipping address required")
	}
	lines, err := mergeLines(input.Items)
	if err != nil {
		return nil, err
	}
	if err := checkout.ValidateLines(checkoutLines(lines), s.maxLines, s.maxQty); err != nil {
		return nil, err
	}
	notes := trimNotes(input.Notes)

	var created *models.Order
	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)

		resolved, err := s.resolveProducts(ctx, tx, lines)
		if err != nil {
			return stepError(StepResolveProducts, err)
		}

		totals := s.calc.Compute(pricingLines(resolved), decimal.Zero)
		if !totals.Total.IsPositive() {
			return stepError(StepComputeTotals, pkgerrors.New(pkgerrors.CodeValidation, "order total must be positive"))
		}

		addr, err := s.addresses.WithTx(tx).FindForUser(ctx, input.UserID, input.ShippingAddressID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return stepError(StepLoadAddress, pkgerrors.New(pkgerrors.CodeNotFound, "shipping address not found"))
			}
			return stepError(StepLoadAddress, err)
		}
		snapshot := addr.Snapshot()
		if err := snapshot.Validate(); err != nil {
			return stepError(StepLoadAddress, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "shipping address incomplete"))
		}

		order := &models.Order{
			UserID:            input.UserID,
			Status:            enums.OrderStatusPending,
			PaymentStatus:     enums.PaymentStatusPending,
			PaymentMethod:     input.PaymentMethod,
			Currency:          enums.CurrencyINR.String(),
			Subtotal:          totals.Subtotal,
			Tax:               totals.Tax,
			ShippingCost:      totals.Shipping,
			Discount:          totals.Discount,
			Total:             totals.Total,
			ShippingAddressID: &addr.ID,
			ShippingAddress:   snapshot,
			Notes:             notes,
		}
		if input.PaymentMethod == enums.PaymentMethodOnline && s.provider != "" {
			provider := s.provider
			order.PaymentProvider = &provider
		}
		if err := s.insertOrder(ctx, tx, order); err != nil {
			return stepError(StepInsertOrder, err)
		}

		items := buildItems(order.ID, resolved)
		if err := repo.CreateItems(ctx, items); err != nil {
			return stepError(StepInsertItems, err)
		}
		order.Items = items

		if status := initialStatus(input.PaymentMethod); status != order.Status {
			if err := repo.Update(ctx, order.ID, map[string]any{"status": status}); err != nil {
				return stepError(StepFinalizeStatus, err)
			}
			order.Status = status
		}

		if err := s.outbox.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventOrderCreated,
			AggregateType: enums.AggregateOrder,
			AggregateID:   order.ID,
			Version:       1,
			Actor:         actor(input.UserID, input.ActorRole),
			Data: payloads.OrderCreatedEvent{
				OrderID:       order.ID,
				OrderNumber:   order.OrderNumber,
				UserID:        order.UserID,
				PaymentMethod: order.PaymentMethod,
				Status:        order.Status,
				Total:         order.Total.StringFixed(pricing.MoneyPlaces),
				Currency:      order.Currency,
				ItemCount:     len(items),
			},
		}); err != nil {
			return stepError(StepEmitEvent, err)
		}

		if input.ClearCart && s.cart != nil {
			if err := s.cart.ClearUser(ctx, tx, input.UserID); err != nil {
				return stepError(StepClearCart, err)
			}
		}

		created = order
		return nil
	})
	if err != nil {
		return nil, err
	}

	if s.metrics != nil {
		s.metrics.OrderCreated(string(created.PaymentMethod))
	}
	return newOrderDTO(*created), nil
}

func (s *service) validatePaymentMethod(method enums.PaymentMethod) error {
	if !method.IsValid() {
		return pkgerrors.New(pkgerrors.CodeValidation, "payment method must be online or cod")
	}
	if method == enums.PaymentMethodCOD && !s.allowCOD {
		return pkgerrors.New(pkgerrors.CodeValidation, "cash on delivery is not available")
	}
	return nil
}

// insertOrder assigns an order number and inserts the row, regenerating the
// number on a unique collision. Each try runs in a savepoint so a failed
// insert does not poison the surrounding transaction.
func (s *service) insertOrder(ctx context.Context, tx *gorm.DB, order *models.Order) error {
	var err error
	for attempt := 1; attempt <= maxOrderNumberAttempts; attempt++ {
		order.OrderNumber = s.newNumber(s.now())
		err = tx.Transaction(func(nested *gorm.DB) error {
			return s.repo.WithTx(nested).CreateOrder(ctx, order)
		})
		if err == nil {
			return nil
		}
		if !db.IsUniqueViolation(err, "") {
			return err
		}
	}
	return pkgerrors.Wrap(pkgerrors.CodeConflict, err, "could not allocate a unique order number")
}

func (s *service) resolveProducts(ctx context.Context, tx *gorm.DB, lines []LineInput) ([]resolvedLine, error) {
	ids := make([]uuid.UUID, 0, len(lines))
	seen := make(map[uuid.UUID]struct{}, len(lines))
	for _, line := range lines {
		if _, ok := seen[line.ProductID]; ok {
			continue
		}
		seen[line.ProductID] = struct{}{}
		ids = append(ids, line.ProductID)
	}

	products, err := s.catalog.WithTx(tx).FindProductsByIDs(ctx, ids)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load products")
	}
	byID := make(map[uuid.UUID]models.Product, len(products))
	for _, p := range products {
		byID[p.ID] = p
	}

	resolved := make([]resolvedLine, 0, len(lines))
	checks := make([]checkout.PriceCheck, 0, len(lines))
	for _, line := range lines {
		product, ok := byID[line.ProductID]
		if !ok || !product.IsActive {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "product not found").WithDetails(map[string]any{
				"product_id": line.ProductID,
			})
		}
		var variant *models.ProductVariant
		if line.VariantID != nil {
			v, ok := product.Variant(*line.VariantID)
			if !ok {
				return nil, pkgerrors.New(pkgerrors.CodeNotFound, "variant not found").WithDetails(map[string]any{
					"product_id": line.ProductID,
					"variant_id": *line.VariantID,
				})
			}
			variant = v
		}
		price := pricing.Round(product.EffectivePrice(variant))
		checks = append(checks, checkout.PriceCheck{
			ProductID:    line.ProductID,
			VariantID:    line.VariantID,
			ProductName:  product.Name,
			ClientPrice:  line.UnitPrice,
			CatalogPrice: price,
		})
		resolved = append(resolved, resolvedLine{
			LineInput: line,
			product:   product,
			variant:   variant,
			price:     price,
		})
	}
	if err := checkout.ValidatePrices(checks); err != nil {
		return nil, err
	}
	return resolved, nil
}

func (s *service) List(ctx context.Context, userID uuid.UUID, params pagination.Params) (*pagination.Page[OrderSummaryDTO], error) {
	if userID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "user identity missing")
	}
	cursor, err := pagination.ParseCursor(params.Cursor)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid cursor")
	}
	rows, err := s.repo.ListByUser(ctx, userID, cursor, params.Limit)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list orders")
	}
	return summaryPage(rows, params.Limit), nil
}

func (s *service) Get(ctx context.Context, userID, orderID uuid.UUID) (*OrderDTO, error) {
	order, err := s.repo.FindForUser(ctx, userID, orderID)
	if err != nil {
		return nil, notFoundOr(err, "load order")
	}
	return newOrderDTO(*order), nil
}

func (s *service) AdminList(ctx context.Context, input AdminListInput) (*pagination.Page[OrderSummaryDTO], error) {
	cursor, err := pagination.ParseCursor(input.Pagination.Cursor)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid cursor")
	}
	if f := input.Filters; f.DateFrom != nil && f.DateTo != nil && f.DateTo.Before(*f.DateFrom) {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "date_to must not be before date_from")
	}
	rows, err := s.repo.ListAll(ctx, input.Filters, cursor, input.Pagination.Limit)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list orders")
	}
	return summaryPage(rows, input.Pagination.Limit), nil
}

func (s *service) AdminGet(ctx context.Context, orderID uuid.UUID) (*OrderDTO, error) {
	order, err := s.repo.FindByID(ctx, orderID)
	if err != nil {
		return nil, notFoundOr(err, "load order")
	}
	return newOrderDTO(*order), nil
}

func (s *service) UpdateStatus(ctx context.Context, input UpdateStatusInput) (*OrderDTO, error) {
	if input.OrderID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "order id required")
	}
	if !input.Status.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid order status")
	}

	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		order, err := repo.FindByIDForUpdate(ctx, input.OrderID)
		if err != nil {
			return notFoundOr(err, "load order")
		}
		if order.Status == input.Status {
			return nil
		}
		if !CanTransition(order.Status, input.Status) {
			return pkgerrors.New(pkgerrors.CodeStateConflict, fmt.Sprintf("cannot move order from %s to %s", order.Status, input.Status))
		}
		if needsPayment(order, input.Status) {
			return pkgerrors.New(pkgerrors.CodeStateConflict, "online order is not paid").WithDetails(map[string]any{
				"status":         order.Status,
				"payment_status": order.PaymentStatus,
			})
		}

		now := s.now()
		updates := map[string]any{"status": input.Status}
		paymentStatus := order.PaymentStatus
		switch input.Status {
		case enums.OrderStatusCancelled:
			updates["cancelled_at"] = now
		case enums.OrderStatusDelivered:
			updates["delivered_at"] = now
		case enums.OrderStatusRefunded:
			if order.PaymentStatus == enums.PaymentStatusPaid {
				paymentStatus = enums.PaymentStatusRefunded
				updates["payment_status"] = paymentStatus
			}
		}
		if err := repo.Update(ctx, order.ID, updates); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update order status")
		}

		return s.outbox.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventOrderStatusChanged,
			AggregateType: enums.AggregateOrder,
			AggregateID:   order.ID,
			Version:       1,
			Actor:         actor(input.ActorUserID, input.ActorRole),
			Data: payloads.OrderStatusChangedEvent{
				OrderID:       order.ID,
				OrderNumber:   order.OrderNumber,
				UserID:        order.UserID,
				From:          order.Status,
				To:            input.Status,
				PaymentStatus: paymentStatus,
				ChangedAt:     now,
			},
		})
	})
	if err != nil {
		return nil, err
	}
	return s.AdminGet(ctx, input.OrderID)
}

// MarkPaid records the verified payment inside the caller's transaction.
// Marking an already paid order is a no-op.
func (s *service) MarkPaid(ctx context.Context, tx *gorm.DB, input MarkPaidInput) (*models.Order, error) {
	if tx == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "transaction required to mark order paid")
	}
	repo := s.repo.WithTx(tx)
	order, err := repo.FindByIDForUpdate(ctx, input.OrderID)
	if err != nil {
		return nil, notFoundOr(err, "load order")
	}
	if order.PaymentStatus == enums.PaymentStatusPaid {
		return order, nil
	}
	if order.Status.IsFinal() || order.PaymentStatus == enums.PaymentStatusRefunded {
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict, "order is no longer payable")
	}

	paidAt := input.PaidAt
	if paidAt.IsZero() {
		paidAt = s.now()
	}
	updates := map[string]any{
		"payment_status": enums.PaymentStatusPaid,
		"paid_at":        paidAt,
	}
	if input.Provider != "" {
		updates["payment_provider"] = input.Provider
		provider := input.Provider
		order.PaymentProvider = &provider
	}
	if input.GatewayOrderID != "" {
		updates["gateway_order_id"] = input.GatewayOrderID
		order.GatewayOrderID = &input.GatewayOrderID
	}
	if input.GatewayPaymentID != "" {
		updates["gateway_payment_id"] = input.GatewayPaymentID
		order.GatewayPaymentID = &input.GatewayPaymentID
	}
	if err := repo.Update(ctx, order.ID, updates); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "mark order paid")
	}
	order.PaymentStatus = enums.PaymentStatusPaid
	order.PaidAt = &paidAt
	return order, nil
}

// MarkPaymentFailed flags the order's payment as failed. Paid orders are
// never downgraded and closed orders are left untouched.
func (s *service) MarkPaymentFailed(ctx context.Context, tx *gorm.DB, orderID uuid.UUID) error {
	if tx == nil {
		return pkgerrors.New(pkgerrors.CodeInternal, "transaction required to mark payment failed")
	}
	repo := s.repo.WithTx(tx)
	order, err := repo.FindByIDForUpdate(ctx, orderID)
	if err != nil {
		return notFoundOr(err, "load order")
	}
	switch {
	case order.PaymentStatus == enums.PaymentStatusPaid || order.PaymentStatus == enums.PaymentStatusRefunded:
		return pkgerrors.New(pkgerrors.CodeStateConflict, "order is already paid")
	case order.PaymentStatus == enums.PaymentStatusFailed, order.Status.IsFinal():
		return nil
	}
	if err := repo.Update(ctx, order.ID, map[string]any{"payment_status": enums.PaymentStatusFailed}); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "mark payment failed")
	}
	return nil
}

// ExpireUnpaid cancels online orders still unpaid at cutoff, including those
// whose last payment attempt failed. Each order is
// expired in its own transaction; failures are collected and the rest continue.
func (s *service) ExpireUnpaid(ctx context.Context, cutoff time.Time, limit int) (int, error) {
	rows, err := s.repo.FindUnpaidOnlineBefore(ctx, cutoff, limit)
	if err != nil {
		return 0, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "find unpaid orders")
	}

	now := s.now()
	ttlMinutes := int(now.Sub(cutoff) / time.Minute)
	expired := 0
	var errs error
	for _, row := range rows {
		changed := false
		err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
			repo := s.repo.WithTx(tx)
			order, err := repo.FindByIDForUpdate(ctx, row.ID)
			if err != nil {
				return err
			}
			if !isUnpaid(order.PaymentStatus) ||
				(order.Status != enums.OrderStatusPending && order.Status != enums.OrderStatusConfirmed) {
				return nil
			}
			if err := repo.Update(ctx, order.ID, map[string]any{
				"status":         enums.OrderStatusCancelled,
				"payment_status": enums.PaymentStatusFailed,
				"cancelled_at":   now,
			}); err != nil {
				return err
			}
			if s.attempts != nil {
				if _, err := s.attempts.FailOpenAttempts(ctx, tx, order.ID, "order expired unpaid"); err != nil {
					return err
				}
			}
			if err := s.outbox.Emit(ctx, tx, outbox.DomainEvent{
				EventType:     enums.EventOrderExpired,
				AggregateType: enums.AggregateOrder,
				AggregateID:   order.ID,
				Version:       1,
				Data: payloads.OrderExpiredEvent{
					OrderID:     order.ID,
					OrderNumber: order.OrderNumber,
					UserID:      order.UserID,
					ExpiredAt:   now,
					TTLMinutes:  ttlMinutes,
				},
			}); err != nil {
				return err
			}
			changed = true
			return nil
		})
		if err != nil {
			errs = multierr.Append(errs, fmt.Errorf("expire order %s: %w", row.ID, err))
			continue
		}
		if changed {
			expired++
		}
	}
	return expired, errs
}

var transitions = map[enums.OrderStatus][]enums.OrderStatus{
	enums.OrderStatusPending:    {enums.OrderStatusConfirmed, enums.OrderStatusCancelled},
	enums.OrderStatusConfirmed:  {enums.OrderStatusProcessing, enums.OrderStatusCancelled},
	enums.OrderStatusProcessing: {enums.OrderStatusShipped, enums.OrderStatusCancelled},
	enums.OrderStatusShipped:    {enums.OrderStatusDelivered},
	enums.OrderStatusDelivered:  {enums.OrderStatusRefunded},
}

// CanTransition reports whether an order may move from one status to another.
func CanTransition(from, to enums.OrderStatus) bool {
	for _, candidate := range transitions[from] {
		if candidate == to {
			return true
		}
	}
	return false
}

func isUnpaid(status enums.PaymentStatus) bool {
	for _, candidate := range unpaidStatuses {
		if candidate == status {
			return true
		}
	}
	return false
}

// needsPayment blocks fulfilment of online orders until the gateway has
// captured the payment.
func needsPayment(order *models.Order, to enums.OrderStatus) bool {
	if order.PaymentMethod != enums.PaymentMethodOnline || order.PaymentStatus == enums.PaymentStatusPaid {
		return false
	}
	switch to {
	case enums.OrderStatusProcessing, enums.OrderStatusShipped, enums.OrderStatusDelivered:
		return true
	}
	return false
}

func initialStatus(method enums.PaymentMethod) enums.OrderStatus {
	if method == enums.PaymentMethodOnline {
		return enums.OrderStatusConfirmed
	}
	return enums.OrderStatusPending
}

// mergeLines sums quantities of repeated (product, variant) pairs, keeping
// the first occurrence's position. Repeats must agree on the client price so
// every submitted price reaches the stale-price check.
func mergeLines(lines []LineInput) ([]LineInput, error) {
	type key struct {
		product uuid.UUID
		variant uuid.UUID
	}
	out := make([]LineInput, 0, len(lines))
	index := make(map[key]int, len(lines))
	for _, line := range lines {
		k := key{product: line.ProductID}
		if line.VariantID != nil {
			k.variant = *line.VariantID
		}
		i, ok := index[k]
		if !ok {
			index[k] = len(out)
			out = append(out, line)
			continue
		}
		switch {
		case line.UnitPrice == nil:
		case out[i].UnitPrice == nil:
			out[i].UnitPrice = line.UnitPrice
		case !out[i].UnitPrice.Equal(*line.UnitPrice):
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "repeated item carries conflicting prices").WithDetails(map[string]any{
				"product_id": line.ProductID,
				"variant_id": line.VariantID,
			})
		}
		out[i].Quantity += line.Quantity
	}
	return out, nil
}

func checkoutLines(lines []LineInput) []checkout.LineInput {
	out := make([]checkout.LineInput, 0, len(lines))
	for _, line := range lines {
		out = append(out, checkout.LineInput{
			ProductID: line.ProductID,
			VariantID: line.VariantID,
			Quantity:  line.Quantity,
		})
	}
	return out
}

func pricingLines(lines []resolvedLine) []pricing.Line {
	out := make([]pricing.Line, 0, len(lines))
	for _, line := range lines {
		out = append(out, pricing.Line{UnitPrice: line.price, Quantity: line.Quantity})
	}
	return out
}

func buildItems(orderID uuid.UUID, lines []resolvedLine) []models.OrderItem {
	items := make([]models.OrderItem, 0, len(lines))
	for _, line := range lines {
		productID := line.product.ID
		item := models.OrderItem{
			OrderID:     orderID,
			ProductID:   &productID,
			ProductName: line.product.Name,
			Price:       line.price,
			Quantity:    line.Quantity,
			Subtotal:    pricing.LineTotal(line.price, line.Quantity),
		}
		if line.variant != nil {
			variantID := line.variant.ID
			variantName := line.variant.Name
			item.VariantID = &variantID
			item.VariantName = &variantName
		}
		items = append(items, item)
	}
	return items
}

func trimNotes(notes *string) *string {
	if notes == nil {
		return nil
	}
	trimmed := strings.TrimSpace(*notes)
	if trimmed == "" {
		return nil
	}
	return &trimmed
}

func actor(userID uuid.UUID, role string) *outbox.ActorRef {
	if userID == uuid.Nil {
		return nil
	}
	return &outbox.ActorRef{UserID: userID, Role: role}
}

// stepError tags err with the failed creation step, wrapping untyped errors
// as dependency failures.
func stepError(step string, err error) error {
	if typed := pkgerrors.As(err); typed != nil {
		return typed.Step(step)
	}
	return pkgerrors.Wrap(pkgerrors.CodeDependency, err, strings.ReplaceAll(step, "_", " ")+" failed").Step(step)
}

func notFoundOr(err error, op string) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
	}
	if typed := pkgerrors.As(err); typed != nil {
		return typed
	}
	return pkgerrors.Wrap(pkgerrors.CodeDependency, err, op)
}
