package support

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/angelmondragon/storefront-backend/pkg/db/dbtest"
	"github.com/angelmondragon/storefront-backend/pkg/db/models"
	"github.com/angelmondragon/storefront-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/storefront-backend/pkg/errors"
	"github.com/angelmondragon/storefront-backend/pkg/outbox"
	"github.com/angelmondragon/storefront-backend/pkg/pagination"
)

func newTestService(t *testing.T) (Service, *gorm.DB) {
	t.Helper()
	client := dbtest.Client(t)
	svc, err := NewService(ServiceParams{
		Repo:   NewRepository(client.DB()),
		DB:     client,
		Outbox: outbox.NewService(outbox.NewRepository(client.DB()), nil),
	})
	require.NoError(t, err)
	return svc, client.DB()
}

func validSubmission() SubmitInput {
	return SubmitInput{
		Name:    " Asha ",
		Email:   "Asha@Example.com",
		Subject: "Where is my order?",
		Message: "It has been a week.",
	}
}

func TestSubmitStoresQueryAndEmitsEvent(t *testing.T) {
	svc, conn := newTestService(t)

	got, err := svc.Submit(context.Background(), validSubmission())
	require.NoError(t, err)
	assert.Equal(t, "Asha", got.Name)
	assert.Equal(t, "asha@example.com", got.Email)
	assert.Equal(t, enums.QueryStatusOpen, got.Status)

	var events []models.OutboxEvent
	require.NoError(t, conn.Find(&events).Error)
	require.Len(t, events, 1)
	assert.Equal(t, enums.EventQueryReceived, events[0].EventType)
	assert.Equal(t, got.ID, events[0].AggregateID)
}

func TestSubmitValidates(t *testing.T) {
	svc, _ := newTestService(t)

	input := validSubmission()
	input.Email = "not-an-email"
	_, err := svc.Submit(context.Background(), input)
	assert.Equal(t, pkgerrors.CodeValidation, pkgerrors.CodeOf(err))

	input = validSubmission()
	input.Message = "   "
	_, err = svc.Submit(context.Background(), input)
	assert.Equal(t, pkgerrors.CodeValidation, pkgerrors.CodeOf(err))
}

func TestSubmitCountsMessageLengthInRunes(t *testing.T) {
	svc, _ := newTestService(t)

	input := validSubmission()
	input.Message = strings.Repeat("₹", maxMessageLen)
	got, err := svc.Submit(context.Background(), input)
	require.NoError(t, err)
	assert.Equal(t, input.Message, got.Message)

	input.Message = strings.Repeat("a", maxMessageLen) + " refund"
	_, err = svc.Submit(context.Background(), input)
	require.Error(t, err)
	assert.Equal(t, "message is too long", pkgerrors.As(err).Message())
}

func TestSubmitRollsBackWhenOutboxFails(t *testing.T) {
	client := dbtest.Client(t)
	svc, err := NewService(ServiceParams{
		Repo:   NewRepository(client.DB()),
		DB:     client,
		Outbox: failingEmitter{},
	})
	require.NoError(t, err)

	_, err = svc.Submit(context.Background(), validSubmission())
	require.Error(t, err)

	var count int64
	require.NoError(t, client.DB().Model(&models.CustomerQuery{}).Count(&count).Error)
	assert.Zero(t, count)
}

func TestUpdateStatusLifecycle(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	created, err := svc.Submit(ctx, validSubmission())
	require.NoError(t, err)

	notes := " called the courier "
	got, err := svc.UpdateStatus(ctx, created.ID, UpdateStatusInput{Status: enums.QueryStatusInProgress, AdminNotes: &notes})
	require.NoError(t, err)
	assert.Equal(t, enums.QueryStatusInProgress, got.Status)
	require.NotNil(t, got.AdminNotes)
	assert.Equal(t, "called the courier", *got.AdminNotes)
	assert.Nil(t, got.ResolvedAt)

	got, err = svc.UpdateStatus(ctx, created.ID, UpdateStatusInput{Status: enums.QueryStatusResolved})
	require.NoError(t, err)
	assert.NotNil(t, got.ResolvedAt)

	got, err = svc.UpdateStatus(ctx, created.ID, UpdateStatusInput{Status: enums.QueryStatusOpen})
	require.NoError(t, err)
	assert.Nil(t, got.ResolvedAt)

	_, err = svc.UpdateStatus(ctx, created.ID, UpdateStatusInput{Status: "closed"})
	assert.Equal(t, pkgerrors.CodeValidation, pkgerrors.CodeOf(err))
	_, err = svc.UpdateStatus(ctx, uuid.New(), UpdateStatusInput{Status: enums.QueryStatusOpen})
	assert.Equal(t, pkgerrors.CodeNotFound, pkgerrors.CodeOf(err))
}

func TestListFiltersByStatus(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	first, err := svc.Submit(ctx, validSubmission())
	require.NoError(t, err)
	_, err = svc.Submit(ctx, validSubmission())
	require.NoError(t, err)
	_, err = svc.UpdateStatus(ctx, first.ID, UpdateStatusInput{Status: enums.QueryStatusResolved})
	require.NoError(t, err)

	all, err := svc.List(ctx, ListInput{})
	require.NoError(t, err)
	assert.Len(t, all.Items, 2)

	resolved, err := svc.List(ctx, ListInput{Status: "resolved"})
	require.NoError(t, err)
	require.Len(t, resolved.Items, 1)
	assert.Equal(t, first.ID, resolved.Items[0].ID)

	_, err = svc.List(ctx, ListInput{Status: "bogus"})
	assert.Equal(t, pkgerrors.CodeValidation, pkgerrors.CodeOf(err))

	page, err := svc.List(ctx, ListInput{Pagination: pagination.Params{Limit: 1}})
	require.NoError(t, err)
	assert.Len(t, page.Items, 1)
	assert.NotEmpty(t, page.NextCursor)
}

type failingEmitter struct{}

func (failingEmitter) Emit(context.Context, *gorm.DB, outbox.DomainEvent) error {
	return errors.New("outbox unavailable")
}
