package support

import (
	"context"
	"errors"
	"fmt"
	"net/mail"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/storefront-backend/pkg/db/models"
	"github.com/angelmondragon/storefront-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/storefront-backend/pkg/errors"
	"github.com/angelmondragon/storefront-backend/pkg/outbox"
	"github.com/angelmondragon/storefront-backend/pkg/outbox/payloads"
	"github.com/angelmondragon/storefront-backend/pkg/pagination"
)

const (
	maxSubjectLen = 200
	maxMessageLen = 5000
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type outboxEmitter interface {
	Emit(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error
}

// Service handles the contact form and its admin triage.
type Service interface {
	Submit(ctx context.Context, input SubmitInput) (*QueryDTO, error)
	List(ctx context.Context, input ListInput) (*pagination.Page[QueryDTO], error)
	Get(ctx context.Context, id uuid.UUID) (*QueryDTO, error)
	UpdateStatus(ctx context.Context, id uuid.UUID, input UpdateStatusInput) (*QueryDTO, error)
}

// SubmitInput is a contact form submission. UserID is set when the sender is signed in.
type SubmitInput struct {
	UserID  *uuid.UUID
	OrderID *uuid.UUID `json:"order_id,omitempty"`
	Name    string     `json:"name" validate:"required"`
	Email   string     `json:"email" validate:"required,email"`
	Phone   *string    `json:"phone,omitempty"`
	Subject string     `json:"subject" validate:"required"`
	Message string     `json:"message" validate:"required"`
}

// ListInput filters the admin queue.
type ListInput struct {
	Status     string
	Pagination pagination.Params
}

// UpdateStatusInput moves a query through triage.
type UpdateStatusInput struct {
	Status     enums.QueryStatus `json:"status" validate:"required"`
	AdminNotes *string           `json:"admin_notes,omitempty"`
}

// ServiceParams wires the support service.
type ServiceParams struct {
	Repo   *Repository
	DB     txRunner
	Outbox outboxEmitter
}

type service struct {
	repo   *Repository
	db     txRunner
	outbox outboxEmitter
	now    func() time.Time
}

func NewService(params ServiceParams) (Service, error) {
	if params.Repo == nil {
		return nil, fmt.Errorf("support repository required")
	}
	if params.DB == nil {
		return nil, fmt.Errorf("db runner required")
	}
	if params.Outbox == nil {
		return nil, fmt.Errorf("outbox emitter required")
	}
	return &service{
		repo:   params.Repo,
		db:     params.DB,
		outbox: params.Outbox,
		now:    func() time.Time { return time.Now().UTC() },
	}, nil
}

func (s *service) Submit(ctx context.Context, input SubmitInput) (*QueryDTO, error) {
	row, err := newQuery(input)
	if err != nil {
		return nil, err
	}

	err = s.db.WithTx(ctx, func(tx *gorm.DB) error {
		if err := s.repo.WithTx(tx).Create(ctx, row); err != nil {
			return err
		}
		return s.outbox.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventQueryReceived,
			AggregateType: enums.AggregateCustomerQuery,
			AggregateID:   row.ID,
			Version:       1,
			Data: payloads.QueryReceivedEvent{
				QueryID: row.ID,
				UserID:  row.UserID,
				OrderID: row.OrderID,
				Name:    row.Name,
				Email:   row.Email,
				Subject: row.Subject,
			},
		})
	})
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "save customer query")
	}
	dto := toDTO(*row)
	return &dto, nil
}

func (s *service) List(ctx context.Context, input ListInput) (*pagination.Page[QueryDTO], error) {
	filter := ListFilter{Limit: input.Pagination.Limit}
	if raw := strings.TrimSpace(input.Status); raw != "" {
		status, err := enums.ParseQueryStatus(raw)
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid status filter")
		}
		filter.Status = &status
	}
	cursor, err := pagination.ParseCursor(input.Pagination.Cursor)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid cursor")
	}
	filter.Cursor = cursor

	rows, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list customer queries")
	}
	page := pagination.BuildPage(rows, filter.Limit, func(q models.CustomerQuery) pagination.Cursor {
		return pagination.Cursor{CreatedAt: q.CreatedAt, ID: q.ID}
	})
	out := &pagination.Page[QueryDTO]{Items: make([]QueryDTO, 0, len(page.Items)), NextCursor: page.NextCursor}
	for _, row := range page.Items {
		out.Items = append(out.Items, toDTO(row))
	}
	return out, nil
}

func (s *service) Get(ctx context.Context, id uuid.UUID) (*QueryDTO, error) {
	row, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, notFoundOr(err)
	}
	dto := toDTO(*row)
	return &dto, nil
}

// UpdateStatus sets the triage status. Resolving stamps resolved_at, reopening clears it.
func (s *service) UpdateStatus(ctx context.Context, id uuid.UUID, input UpdateStatusInput) (*QueryDTO, error) {
	if !input.Status.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid status")
	}
	row, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, notFoundOr(err)
	}

	row.Status = input.Status
	if input.AdminNotes != nil {
		notes := strings.TrimSpace(*input.AdminNotes)
		row.AdminNotes = &notes
	}
	if input.Status == enums.QueryStatusResolved {
		if row.ResolvedAt == nil {
			now := s.now()
			row.ResolvedAt = &now
		}
	} else {
		row.ResolvedAt = nil
	}

	if err := s.repo.Save(ctx, row); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update customer query")
	}
	dto := toDTO(*row)
	return &dto, nil
}

func newQuery(input SubmitInput) (*models.CustomerQuery, error) {
	name := strings.TrimSpace(input.Name)
	email := strings.ToLower(strings.TrimSpace(input.Email))
	subject := strings.TrimSpace(input.Subject)
	message := strings.TrimSpace(input.Message)

	switch {
	case name == "":
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "name is required")
	case email == "":
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "email is required")
	case subject == "":
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "subject is required")
	case message == "":
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "message is required")
	case utf8.RuneCountInString(subject) > maxSubjectLen:
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "subject is too long")
	case utf8.RuneCountInString(message) > maxMessageLen:
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "message is too long")
	}
	if _, err := mail.ParseAddress(email); err != nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "email is invalid")
	}

	var phone *string
	if input.Phone != nil {
		if trimmed := strings.TrimSpace(*input.Phone); trimmed != "" {
			phone = &trimmed
		}
	}
	return &models.CustomerQuery{
		UserID:  input.UserID,
		OrderID: input.OrderID,
		Name:    name,
		Email:   email,
		Phone:   phone,
		Subject: subject,
		Message: message,
		Status:  enums.QueryStatusOpen,
	}, nil
}

func notFoundOr(err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return pkgerrors.New(pkgerrors.CodeNotFound, "query not found")
	}
	return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load customer query")
}
