package outbox

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/angelmondragon/storefront-backend/pkg/db/dbtest"
	"github.com/angelmondragon/storefront-backend/pkg/db/models"
	"github.com/angelmondragon/storefront-backend/pkg/enums"
	"github.com/angelmondragon/storefront-backend/pkg/logger"
)

func TestEmitWritesEnvelope(t *testing.T) {
	conn := dbtest.Open(t)
	svc := NewService(NewRepository(conn), logger.Nop())
	orderID := uuid.New()

	err := conn.Transaction(func(tx *gorm.DB) error {
		return svc.Emit(context.Background(), tx, DomainEvent{
			EventType:     enums.EventOrderCreated,
			AggregateType: enums.AggregateOrder,
			AggregateID:   orderID,
			Actor:         &ActorRef{UserID: orderID, Role: "customer"},
			Data:          map[string]string{"order_number": "ORD-1"},
			Version:       1,
		})
	})
	require.NoError(t, err)

	var rows []models.OutboxEvent
	require.NoError(t, conn.Find(&rows).Error)
	require.Len(t, rows, 1)
	assert.Equal(t, enums.EventOrderCreated, rows[0].EventType)
	assert.Nil(t, rows[0].PublishedAt)

	var envelope PayloadEnvelope
	require.NoError(t, json.Unmarshal(rows[0].Payload, &envelope))
	assert.Equal(t, 1, envelope.Version)
	assert.NotEmpty(t, envelope.EventID)
	assert.JSONEq(t, `{"order_number":"ORD-1"}`, string(envelope.Data))
}

func TestEmitRequiresTransaction(t *testing.T) {
	svc := NewService(NewRepository(nil), nil)
	err := svc.Emit(context.Background(), nil, DomainEvent{})
	require.Error(t, err)
}

func TestEmitRollsBackWithCaller(t *testing.T) {
	conn := dbtest.Open(t)
	svc := NewService(NewRepository(conn), nil)

	boom := errors.New("insert order failed")
	err := conn.Transaction(func(tx *gorm.DB) error {
		if err := svc.Emit(context.Background(), tx, DomainEvent{
			EventType:     enums.EventOrderCreated,
			AggregateType: enums.AggregateOrder,
			AggregateID:   uuid.New(),
			Data:          map[string]string{},
		}); err != nil {
			return err
		}
		return boom
	})
	require.ErrorIs(t, err, boom)

	var count int64
	require.NoError(t, conn.Model(&models.OutboxEvent{}).Count(&count).Error)
	assert.Zero(t, count)
}

func TestEmitIfNotExistsSkipsDuplicates(t *testing.T) {
	conn := dbtest.Open(t)
	svc := NewService(NewRepository(conn), nil)
	event := DomainEvent{
		EventType:     enums.EventOrderExpired,
		AggregateType: enums.AggregateOrder,
		AggregateID:   uuid.New(),
		Data:          map[string]int{"ttl_minutes": 30},
	}

	for i := 0; i < 2; i++ {
		require.NoError(t, conn.Transaction(func(tx *gorm.DB) error {
			return svc.EmitIfNotExists(context.Background(), tx, event)
		}))
	}

	var count int64
	require.NoError(t, conn.Model(&models.OutboxEvent{}).Count(&count).Error)
	assert.EqualValues(t, 1, count)
}

func TestRepositoryPublishLifecycle(t *testing.T) {
	conn := dbtest.Open(t)
	repo := NewRepository(conn)
	svc := NewService(repo, nil)

	for i := 0; i < 3; i++ {
		require.NoError(t, conn.Transaction(func(tx *gorm.DB) error {
			return svc.Emit(context.Background(), tx, DomainEvent{
				EventType:     enums.EventOrderCreated,
				AggregateType: enums.AggregateOrder,
				AggregateID:   uuid.New(),
				Data:          map[string]int{"n": i},
			})
		}))
	}

	rows, err := repo.FetchUnpublishedForPublish(conn, 10, 5)
	require.NoError(t, err)
	require.Len(t, rows, 3)

	require.NoError(t, repo.MarkPublishedTx(conn, rows[0].ID))
	require.NoError(t, repo.MarkFailedTx(conn, rows[1].ID, errors.New("pubsub unavailable")))
	require.NoError(t, repo.MarkTerminalTx(conn, rows[2].ID, errors.New("bad payload"), 5))

	pending, err := repo.FetchUnpublishedForPublish(conn, 10, 5)
	require.NoError(t, err)
	require.Len(t, pending, 1)
	assert.Equal(t, rows[1].ID, pending[0].ID)
	assert.Equal(t, 1, pending[0].AttemptCount)
	require.NotNil(t, pending[0].LastError)
	assert.Equal(t, "pubsub unavailable", *pending[0].LastError)

	old := time.Now().UTC().Add(-48 * time.Hour)
	require.NoError(t, conn.Model(&models.OutboxEvent{}).Where("1 = 1").
		Updates(map[string]any{"created_at": old}).Error)
	require.NoError(t, conn.Model(&models.OutboxEvent{}).Where("id = ?", rows[0].ID).
		Update("published_at", old).Error)

	deleted, err := repo.DeletePublishedBefore(context.Background(), nil, time.Now().UTC().Add(-24*time.Hour), 5)
	require.NoError(t, err)
	assert.EqualValues(t, 2, deleted)
}

func TestDLQRepositoryTruncatesMessage(t *testing.T) {
	conn := dbtest.Open(t)
	dlq := NewDLQRepository(conn)

	long := make([]byte, 2000)
	for i := range long {
		long[i] = 'x'
	}
	msg := string(long)
	eventID := uuid.New()
	require.NoError(t, dlq.InsertTx(conn, models.OutboxDLQ{
		EventID:       eventID,
		EventType:     enums.EventPaymentFailed,
		AggregateType: enums.AggregatePaymentAttempt,
		AggregateID:   uuid.New(),
		Payload:       json.RawMessage(`{}`),
		ErrorReason:   enums.OutboxDLQReasonMaxAttempts,
		ErrorMessage:  &msg,
	}))

	found, err := dlq.FindByEventID(context.Background(), eventID)
	require.NoError(t, err)
	require.NotNil(t, found)
	require.NotNil(t, found.ErrorMessage)
	assert.Len(t, *found.ErrorMessage, maxLastErrorLen)

	missing, err := dlq.FindByEventID(context.Background(), uuid.New())
	require.NoError(t, err)
	assert.Nil(t, missing)
}
