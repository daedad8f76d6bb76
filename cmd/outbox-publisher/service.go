package main

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/storefront-backend/pkg/config"
	"github.com/angelmondragon/storefront-backend/pkg/db/models"
	"github.com/angelmondragon/storefront-backend/pkg/logger"
	"github.com/angelmondragon/storefront-backend/pkg/outbox/registry"
)

const (
	defaultBatchSize      = 50
	defaultPollInterval   = 500 * time.Millisecond
	defaultPublishTimeout = 15 * time.Second
	defaultMaxAttempts    = 10
	maxBackoff            = 10 * time.Second
	jitterWindow          = 250 * time.Millisecond
)

type dbClient interface {
	Ping(context.Context) error
	WithTx(context.Context, func(tx *gorm.DB) error) error
}

type pinger interface {
	Ping(context.Context) error
}

type outboxRepository interface {
	FetchUnpublishedForPublish(tx *gorm.DB, limit, maxAttempts int) ([]models.OutboxEvent, error)
	MarkPublishedTx(tx *gorm.DB, id uuid.UUID) error
	MarkFailedTx(tx *gorm.DB, id uuid.UUID, err error) error
	MarkTerminalTx(tx *gorm.DB, id uuid.UUID, err error, terminalAttempts int) error
}

type dlqRepository interface {
	InsertTx(tx *gorm.DB, entry models.OutboxDLQ) error
}

type registryResolver interface {
	Resolve(models.OutboxEvent) (*registry.ResolvedEvent, error)
}

// ServiceParams wire the publisher loop.
type ServiceParams struct {
	Config        config.OutboxConfig
	Logger        *logger.Logger
	DB            dbClient
	Broker        pinger
	Publishers    publisherFactory
	Repository    outboxRepository
	DLQRepository dlqRepository
	Registry      registryResolver
}

// Service drains committed outbox rows to Pub/Sub topics.
type Service struct {
	logg           *logger.Logger
	db             dbClient
	broker         pinger
	publishers     publisherFactory
	repo           outboxRepository
	dlq            dlqRepository
	registry       registryResolver
	batchSize      int
	maxAttempts    int
	pollInterval   time.Duration
	publishTimeout time.Duration
	now            func() time.Time
	jitter         *rand.Rand
}

func NewService(params ServiceParams) (*Service, error) {
	switch {
	case params.Logger == nil:
		return nil, errors.New("logger is required")
	case params.DB == nil:
		return nil, errors.New("database client is required")
	case params.Broker == nil:
		return nil, errors.New("pubsub client is required")
	case params.Publishers == nil:
		return nil, errors.New("publisher factory is required")
	case params.Repository == nil:
		return nil, errors.New("outbox repository is required")
	case params.DLQRepository == nil:
		return nil, errors.New("dlq repository is required")
	case params.Registry == nil:
		return nil, errors.New("event registry is required")
	}

	batch := params.Config.BatchSize
	if batch <= 0 {
		batch = defaultBatchSize
	}
	poll := time.Duration(params.Config.PollIntervalMS) * time.Millisecond
	if poll <= 0 {
		poll = defaultPollInterval
	}
	maxAttempts := params.Config.MaxAttempts
	if maxAttempts <= 0 {
		maxAttempts = defaultMaxAttempts
	}

	return &Service{
		logg:           params.Logger,
		db:             params.DB,
		broker:         params.Broker,
		publishers:     params.Publishers,
		repo:           params.Repository,
		dlq:            params.DLQRepository,
		registry:       params.Registry,
		batchSize:      batch,
		maxAttempts:    maxAttempts,
		pollInterval:   poll,
		publishTimeout: defaultPublishTimeout,
		now:            time.Now,
		jitter:         rand.New(rand.NewSource(time.Now().UnixNano())),
	}, nil
}

// Run polls until ctx is cancelled. Empty polls sleep for the poll interval;
// failed batches back off exponentially up to maxBackoff.
func (s *Service) Run(ctx context.Context) error {
	if err := s.ready(ctx); err != nil {
		return err
	}

	backoff := s.pollInterval
	for {
		if err := ctx.Err(); err != nil {
			s.logg.Info(ctx, "outbox publisher context canceled")
			return err
		}

		n, err := s.processBatch(ctx)
		var wait time.Duration
		switch {
		case err != nil:
			s.logg.Error(ctx, "outbox publisher batch error", err)
			backoff = nextBackoff(backoff, s.pollInterval, maxBackoff)
			wait = backoff
		case n > 0:
			backoff = s.pollInterval
			continue
		default:
			backoff = s.pollInterval
			wait = s.pollInterval
		}
		if err := sleep(ctx, s.withJitter(wait)); err != nil {
			return err
		}
	}
}

func (s *Service) ready(ctx context.Context) error {
	if err := s.db.Ping(ctx); err != nil {
		s.logg.Error(ctx, "database ping failed", err)
		return fmt.Errorf("database ping failed: %w", err)
	}
	if err := s.broker.Ping(ctx); err != nil {
		s.logg.Error(ctx, "pubsub ping failed", err)
		return fmt.Errorf("pubsub ping failed: %w", err)
	}
	return nil
}

// processBatch claims up to batchSize rows and settles each one. One row
// failing to publish never blocks the rest of the batch.
func (s *Service) processBatch(ctx context.Context) (int, error) {
	var count int
	err := s.db.WithTx(ctx, func(tx *gorm.DB) error {
		events, err := s.repo.FetchUnpublishedForPublish(tx, s.batchSize, s.maxAttempts)
		if err != nil {
			return err
		}
		count = len(events)
		for _, event := range events {
			if err := s.settle(ctx, tx, event, s.dispatch(ctx, event)); err != nil {
				return err
			}
		}
		return nil
	})
	return count, err
}

func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

func nextBackoff(current, base, ceiling time.Duration) time.Duration {
	if current <= 0 {
		current = base
	}
	if next := current * 2; next < ceiling {
		return next
	}
	return ceiling
}

func (s *Service) withJitter(d time.Duration) time.Duration {
	if d <= 0 {
		return 0
	}
	return d + time.Duration(s.jitter.Int63n(int64(jitterWindow)))
}
