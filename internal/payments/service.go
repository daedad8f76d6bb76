package payments

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/storefront-backend/internal/orders"
	"github.com/angelmondragon/storefront-backend/internal/pricing"
	"github.com/angelmondragon/storefront-backend/pkg/db/models"
	"github.com/angelmondragon/storefront-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/storefront-backend/pkg/errors"
	"github.com/angelmondragon/storefront-backend/pkg/format"
	"github.com/angelmondragon/storefront-backend/pkg/logger"
	"github.com/angelmondragon/storefront-backend/pkg/outbox"
	"github.com/angelmondragon/storefront-backend/pkg/outbox/payloads"
)

// Outcome labels recorded per terminal attempt.
const (
	OutcomePaid               = "paid"
	OutcomeFailed             = "failed"
	OutcomeCancelled          = "cancelled"
	OutcomeVerificationFailed = "verification_failed"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type outboxPublisher interface {
	Emit(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error
}

type orderFinder interface {
	FindForUser(ctx context.Context, userID, id uuid.UUID) (*models.Order, error)
}

type orderPayments interface {
	MarkPaid(ctx context.Context, tx *gorm.DB, input orders.MarkPaidInput) (*models.Order, error)
	MarkPaymentFailed(ctx context.Context, tx *gorm.DB, orderID uuid.UUID) error
}

type userFinder interface {
	FindByID(ctx context.Context, id uuid.UUID) (*models.User, error)
}

type outcomeRecorder interface {
	PaymentOutcome(provider, outcome string)
}

// Service drives payment attempts for online orders.
type Service interface {
	Initiate(ctx context.Context, userID, orderID uuid.UUID) (*CheckoutSession, error)
	Get(ctx context.Context, userID, attemptID uuid.UUID) (*AttemptDTO, error)
	Verify(ctx context.Context, userID, attemptID uuid.UUID, v Verification) (*AttemptDTO, error)
	Cancel(ctx context.Context, userID, attemptID uuid.UUID) (*AttemptDTO, error)
	Fail(ctx context.Context, userID, attemptID uuid.UUID, failure Failure) (*AttemptDTO, error)
	ConfirmByGatewayOrder(ctx context.Context, provider enums.PaymentProvider, gatewayOrderID, paymentID string) (*AttemptDTO, error)
	FailByGatewayOrder(ctx context.Context, provider enums.PaymentProvider, gatewayOrderID string, failure Failure) (*AttemptDTO, error)
}

// ServiceParams wires the payments service. Provider names the gateway when
// test mode runs without a real one.
type ServiceParams struct {
	Repo       *Repository
	Orders     orderFinder
	OrderSvc   orderPayments
	Users      userFinder
	DB         txRunner
	Outbox     outboxPublisher
	Gateway    Gateway
	Provider   enums.PaymentProvider
	Metrics    outcomeRecorder
	Logger     *logger.Logger
	StoreName  string
	MaxRetries int
	TestMode   bool
	Production bool
}

type service struct {
	repo       *Repository
	orders     orderFinder
	orderSvc   orderPayments
	users      userFinder
	tx         txRunner
	outbox     outboxPublisher
	gateway    Gateway
	metrics    outcomeRecorder
	logg       *logger.Logger
	storeName  string
	maxRetries int
	now        func() time.Time
}

// NewService validates the wiring and applies the test mode wrapper.
func NewService(params ServiceParams) (Service, error) {
	if params.Repo == nil {
		return nil, errors.New("payment attempt repository required")
	}
	if params.Orders == nil || params.OrderSvc == nil {
		return nil, errors.New("orders dependencies required")
	}
	if params.Users == nil {
		return nil, errors.New("users repository required")
	}
	if params.DB == nil {
		return nil, errors.New("transaction runner required")
	}
	if params.Outbox == nil {
		return nil, errors.New("outbox publisher required")
	}
	provider := params.Provider
	if params.Gateway != nil {
		provider = params.Gateway.Provider()
	}
	if provider == "" {
		provider = enums.PaymentProviderRazorpay
	}
	gw, err := wrapTestMode(params.Gateway, provider, params.TestMode, params.Production, testModeCompiled)
	if err != nil {
		return nil, err
	}
	if gw == nil {
		return nil, errors.New("payment gateway required")
	}
	maxRetries := params.MaxRetries
	if maxRetries < 0 {
		maxRetries = 0
	}
	return &service{
		repo:       params.Repo,
		orders:     params.Orders,
		orderSvc:   params.OrderSvc,
		users:      params.Users,
		tx:         params.DB,
		outbox:     params.Outbox,
		gateway:    gw,
		metrics:    params.Metrics,
		logg:       params.Logger,
		storeName:  strings.TrimSpace(params.StoreName),
		maxRetries: maxRetries,
		now:        func() time.Time { return time.Now().UTC() },
	}, nil
}

// Initiate opens a checkout for an unpaid online order. Earlier unfinished
// attempts for the order are cancelled.
func (s *service) Initiate(ctx context.Context, userID, orderID uuid.UUID) (*CheckoutSession, error) {
	order, err := s.orders.FindForUser(ctx, userID, orderID)
	if err != nil {
		return nil, notFoundOr(err, "order not found", "load order")
	}
	if err := checkPayable(order); err != nil {
		return nil, err
	}
	user, err := s.users.FindByID(ctx, userID)
	if err != nil {
		return nil, notFoundOr(err, "user not found", "load user")
	}

	flow := NewFlow()
	attempt := &models.PaymentAttempt{
		OrderID:  order.ID,
		UserID:   userID,
		Provider: s.gateway.Provider(),
		State:    flow.State(),
		Amount:   order.Total,
		Currency: order.Currency,
		TestMode: isTestMode(s.gateway),
	}
	if err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		if err := repo.Create(ctx, attempt); err != nil {
			return err
		}
		_, err := repo.CloseOpenAttempts(ctx, order.ID, attempt.ID)
		return err
	}); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create payment attempt")
	}

	if err := s.advance(ctx, flow, attempt, enums.PaymentAttemptStateScriptLoading); err != nil {
		return nil, err
	}

	amountMinor := pricing.AmountInMinorUnits(order.Total)
	notes := map[string]string{
		"order_id":     order.ID.String(),
		"order_number": order.OrderNumber,
		"attempt_id":   attempt.ID.String(),
	}
	gwOrder, err := s.gateway.CreateOrder(ctx, GatewayOrderRequest{
		AmountMinor:   amountMinor,
		Currency:      order.Currency,
		Receipt:       order.OrderNumber,
		CustomerEmail: user.Email,
		Notes:         notes,
	})
	if err != nil {
		failure := FailureOf(err, StepCreateOrder)
		if _, ferr := s.failAttempt(ctx, attempt.ID, failure); ferr != nil {
			s.logError(ctx, "record initiation failure", ferr)
		}
		return nil, failure.Error("payment could not be initiated")
	}

	if err := flow.Advance(enums.PaymentAttemptStateGatewayOrderCreated); err != nil {
		return nil, err
	}
	attempt.GatewayOrderID = ptr(gwOrder.ID)
	if err := flow.Advance(enums.PaymentAttemptStateCheckoutOpen); err != nil {
		return nil, err
	}
	attempt.State = flow.State()
	if err := s.repo.Save(ctx, attempt); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "save payment attempt")
	}

	checkout := s.gateway.Checkout()
	contact := ""
	if user.Phone != nil {
		contact = *user.Phone
	}
	return &CheckoutSession{
		AttemptID:       attempt.ID,
		OrderID:         order.ID,
		OrderNumber:     order.OrderNumber,
		Provider:        attempt.Provider,
		State:           attempt.State,
		History:         flow.History(),
		TestMode:        attempt.TestMode,
		ScriptURL:       checkout.ScriptURL,
		Amount:          order.Total,
		FormattedAmount: format.FormatCurrency(order.Total),
		Options: CheckoutOptions{
			Key:            checkout.PublicKey,
			AmountMinor:    amountMinor,
			Currency:       order.Currency,
			Name:           s.storeName,
			Description:    fmt.Sprintf("Order %s", order.OrderNumber),
			GatewayOrderID: gwOrder.ID,
			ClientSecret:   gwOrder.ClientSecret,
			Prefill: Prefill{
				Name:    user.FullName(),
				Email:   user.Email,
				Contact: contact,
			},
			Notes: notes,
			Retry: RetryOptions{Enabled: s.maxRetries > 0, MaxCount: s.maxRetries},
		},
	}, nil
}

func (s *service) Get(ctx context.Context, userID, attemptID uuid.UUID) (*AttemptDTO, error) {
	attempt, err := s.repo.FindForUser(ctx, userID, attemptID)
	if err != nil {
		return nil, notFoundOr(err, "payment attempt not found", "load payment attempt")
	}
	return newAttemptDTO(attempt), nil
}

// Verify checks the checkout result with the gateway. A mismatch leaves the
// order payment pending and returns PAYMENT_FAILED. Failed attempts may still
// be verified against their gateway order.
func (s *service) Verify(ctx context.Context, userID, attemptID uuid.UUID, v Verification) (*AttemptDTO, error) {
	attempt, err := s.repo.FindForUser(ctx, userID, attemptID)
	if err != nil {
		return nil, notFoundOr(err, "payment attempt not found", "load payment attempt")
	}
	if attempt.State == enums.PaymentAttemptStatePaid && deref(attempt.GatewayPaymentID) == v.PaymentID {
		return newAttemptDTO(attempt), nil
	}

	flow := ResumeFlow(attempt.State)
	// A failed attempt keeps its state until the gateway confirms a capture.
	recovering := flow.Recoverable()
	if !recovering {
		if err := s.advance(ctx, flow, attempt, enums.PaymentAttemptStateVerifying); err != nil {
			return nil, err
		}
	}

	var verified *VerifiedPayment
	if deref(attempt.GatewayOrderID) != strings.TrimSpace(v.GatewayOrderID) {
		err = verificationMismatch("gateway order id does not match payment attempt")
	} else {
		verified, err = s.gateway.VerifyPayment(ctx, v)
	}
	if err != nil {
		failure := FailureOf(err, StepVerification)
		if !recovering {
			if advErr := flow.Advance(enums.PaymentAttemptStateVerificationFailed); advErr != nil {
				return nil, advErr
			}
			attempt.State = flow.State()
		}
		applyFailure(attempt, failure)
		if saveErr := s.repo.Save(ctx, attempt); saveErr != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, saveErr, "save payment attempt")
		}
		s.recordOutcome(attempt.Provider, OutcomeVerificationFailed)
		s.logWarn(ctx, attempt, "payment verification failed")
		return nil, failure.Error("payment verification failed")
	}

	return s.markPaid(ctx, attempt.ID, verified.PaymentID)
}

// Cancel records that the customer dismissed the checkout.
func (s *service) Cancel(ctx context.Context, userID, attemptID uuid.UUID) (*AttemptDTO, error) {
	if _, err := s.repo.FindForUser(ctx, userID, attemptID); err != nil {
		return nil, notFoundOr(err, "payment attempt not found", "load payment attempt")
	}
	var out *models.PaymentAttempt
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		attempt, err := repo.FindByIDForUpdate(ctx, attemptID)
		if err != nil {
			return err
		}
		if attempt.State == enums.PaymentAttemptStateCancelled {
			out = attempt
			return nil
		}
		flow := ResumeFlow(attempt.State)
		if err := flow.Advance(enums.PaymentAttemptStateCancelled); err != nil {
			return err
		}
		attempt.State = flow.State()
		if err := repo.Save(ctx, attempt); err != nil {
			return err
		}
		out = attempt
		return nil
	})
	if err != nil {
		return nil, dependencyOr(err, "cancel payment attempt")
	}
	s.recordOutcome(out.Provider, OutcomeCancelled)
	return newAttemptDTO(out), nil
}

// Fail records a gateway reported failure and flags the order payment failed.
func (s *service) Fail(ctx context.Context, userID, attemptID uuid.UUID, failure Failure) (*AttemptDTO, error) {
	if _, err := s.repo.FindForUser(ctx, userID, attemptID); err != nil {
		return nil, notFoundOr(err, "payment attempt not found", "load payment attempt")
	}
	return s.failAttempt(ctx, attemptID, failure.Normalize(StepAuthorization))
}

// ConfirmByGatewayOrder settles the attempt behind a provider order id. It is
// used by webhooks, which are authoritative for success and override an
// earlier failure on the same gateway order.
func (s *service) ConfirmByGatewayOrder(ctx context.Context, provider enums.PaymentProvider, gatewayOrderID, paymentID string) (*AttemptDTO, error) {
	attempt, err := s.repo.FindByGateway(ctx, provider, gatewayOrderID)
	if err != nil {
		return nil, notFoundOr(err, "payment attempt not found", "load payment attempt")
	}
	return s.markPaid(ctx, attempt.ID, paymentID)
}

func (s *service) FailByGatewayOrder(ctx context.Context, provider enums.PaymentProvider, gatewayOrderID string, failure Failure) (*AttemptDTO, error) {
	attempt, err := s.repo.FindByGateway(ctx, provider, gatewayOrderID)
	if err != nil {
		return nil, notFoundOr(err, "payment attempt not found", "load payment attempt")
	}
	if attempt.State == enums.PaymentAttemptStateFailed {
		return newAttemptDTO(attempt), nil
	}
	return s.failAttempt(ctx, attempt.ID, failure.Normalize(StepAuthorization))
}

func (s *service) markPaid(ctx context.Context, attemptID uuid.UUID, paymentID string) (*AttemptDTO, error) {
	var out *models.PaymentAttempt
	changed := false
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		attempt, err := repo.FindByIDForUpdate(ctx, attemptID)
		if err != nil {
			return err
		}
		out = attempt
		if attempt.State == enums.PaymentAttemptStatePaid {
			return nil
		}
		flow := ResumeFlow(attempt.State)
		if err := flow.Settle(); err != nil {
			return err
		}
		paidAt := s.now()
		attempt.State = flow.State()
		attempt.GatewayPaymentID = ptr(paymentID)
		clearFailure(attempt)
		if err := repo.Save(ctx, attempt); err != nil {
			return err
		}

		order, err := s.orderSvc.MarkPaid(ctx, tx, orders.MarkPaidInput{
			OrderID:          attempt.OrderID,
			Provider:         attempt.Provider,
			GatewayOrderID:   deref(attempt.GatewayOrderID),
			GatewayPaymentID: paymentID,
			PaidAt:           paidAt,
		})
		if err != nil {
			return err
		}
		if err := s.outbox.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventOrderPaid,
			AggregateType: enums.AggregateOrder,
			AggregateID:   order.ID,
			Actor:         &outbox.ActorRef{UserID: attempt.UserID, Role: string(enums.UserRoleCustomer)},
			Version:       1,
			OccurredAt:    paidAt,
			Data: payloads.OrderPaidEvent{
				OrderID:          order.ID,
				OrderNumber:      order.OrderNumber,
				UserID:           order.UserID,
				AttemptID:        attempt.ID,
				Provider:         string(attempt.Provider),
				GatewayOrderID:   deref(attempt.GatewayOrderID),
				GatewayPaymentID: paymentID,
				AmountMinor:      pricing.AmountInMinorUnits(attempt.Amount),
				Currency:         attempt.Currency,
				TestMode:         attempt.TestMode,
				PaidAt:           paidAt,
			},
		}); err != nil {
			return err
		}
		changed = true
		return nil
	})
	if err != nil {
		return nil, dependencyOr(err, "mark payment paid")
	}
	if changed {
		s.recordOutcome(out.Provider, OutcomePaid)
		if s.logg != nil {
			s.logg.Info(s.logg.WithOrderID(ctx, out.OrderID.String()), "payment verified")
		}
	}
	return newAttemptDTO(out), nil
}

func (s *service) failAttempt(ctx context.Context, attemptID uuid.UUID, failure Failure) (*AttemptDTO, error) {
	var out *models.PaymentAttempt
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		attempt, err := repo.FindByIDForUpdate(ctx, attemptID)
		if err != nil {
			return err
		}
		flow := ResumeFlow(attempt.State)
		if err := flow.Advance(enums.PaymentAttemptStateFailed); err != nil {
			return err
		}
		failedAt := s.now()
		attempt.State = flow.State()
		applyFailure(attempt, failure)
		if err := repo.Save(ctx, attempt); err != nil {
			return err
		}
		// Another attempt may already have paid the order.
		if err := s.orderSvc.MarkPaymentFailed(ctx, tx, attempt.OrderID); err != nil &&
			pkgerrors.CodeOf(err) != pkgerrors.CodeStateConflict {
			return err
		}
		if err := s.outbox.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventPaymentFailed,
			AggregateType: enums.AggregatePaymentAttempt,
			AggregateID:   attempt.ID,
			Actor:         &outbox.ActorRef{UserID: attempt.UserID, Role: string(enums.UserRoleCustomer)},
			Version:       1,
			OccurredAt:    failedAt,
			Data: payloads.PaymentFailedEvent{
				AttemptID:   attempt.ID,
				OrderID:     attempt.OrderID,
				UserID:      attempt.UserID,
				Provider:    string(attempt.Provider),
				Code:        failure.Code,
				Description: failure.Description,
				Source:      failure.Source,
				Step:        failure.Step,
				Reason:      failure.Reason,
				FailedAt:    failedAt,
			},
		}); err != nil {
			return err
		}
		out = attempt
		return nil
	})
	if err != nil {
		return nil, dependencyOr(err, "mark payment failed")
	}
	s.recordOutcome(out.Provider, OutcomeFailed)
	s.logWarn(ctx, out, "payment failed")
	return newAttemptDTO(out), nil
}

func (s *service) advance(ctx context.Context, flow *Flow, attempt *models.PaymentAttempt, to enums.PaymentAttemptState) error {
	if err := flow.Advance(to); err != nil {
		return err
	}
	attempt.State = flow.State()
	if err := s.repo.Save(ctx, attempt); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "save payment attempt")
	}
	return nil
}

func (s *service) recordOutcome(provider enums.PaymentProvider, outcome string) {
	if s.metrics != nil {
		s.metrics.PaymentOutcome(string(provider), outcome)
	}
}

func (s *service) logWarn(ctx context.Context, attempt *models.PaymentAttempt, msg string) {
	if s.logg == nil || attempt == nil {
		return
	}
	ctx = s.logg.WithFields(ctx, map[string]any{
		"attempt_id":     attempt.ID.String(),
		"order_id":       attempt.OrderID.String(),
		"provider":       attempt.Provider,
		"failure_code":   deref(attempt.FailureCode),
		"failure_step":   deref(attempt.FailureStep),
		"failure_reason": deref(attempt.FailureReason),
	})
	s.logg.Warn(ctx, msg)
}

func (s *service) logError(ctx context.Context, msg string, err error) {
	if s.logg != nil {
		s.logg.Error(ctx, msg, err)
	}
}

func checkPayable(order *models.Order) error {
	if order.PaymentMethod != enums.PaymentMethodOnline {
		return pkgerrors.New(pkgerrors.CodeValidation, "order is not payable online")
	}
	switch {
	case order.PaymentStatus == enums.PaymentStatusPaid:
		return pkgerrors.New(pkgerrors.CodeStateConflict, "order is already paid")
	case order.PaymentStatus == enums.PaymentStatusRefunded, order.Status.IsFinal():
		return pkgerrors.New(pkgerrors.CodeStateConflict, "order is no longer payable").WithDetails(map[string]any{
			"status":         order.Status,
			"payment_status": order.PaymentStatus,
		})
	}
	return nil
}

func notFoundOr(err error, notFound, op string) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return pkgerrors.New(pkgerrors.CodeNotFound, notFound)
	}
	return pkgerrors.Wrap(pkgerrors.CodeDependency, err, op)
}

// dependencyOr keeps typed errors raised inside a transaction.
func dependencyOr(err error, op string) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return pkgerrors.New(pkgerrors.CodeNotFound, "payment attempt not found")
	}
	if typed := pkgerrors.As(err); typed != nil {
		return typed
	}
	return pkgerrors.Wrap(pkgerrors.CodeDependency, err, op)
}
