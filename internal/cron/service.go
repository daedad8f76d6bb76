package cron

import (
	"context"
	"fmt"
	"time"

	"github.com/angelmondragon/storefront-backend/pkg/logger"
	"github.com/angelmondragon/storefront-backend/pkg/metrics"
)

// defaultInterval matches the unpaid order sweep cadence.
const defaultInterval = 5 * time.Minute

type ServiceParams struct {
	Logger   *logger.Logger
	Registry *Registry
	Lock     Lock
	Metrics  *metrics.CronJobMetrics
	Interval time.Duration
}

// Service runs the registered maintenance jobs once per interval while
// holding the cluster-wide lock.
type Service struct {
	logg     *logger.Logger
	registry *Registry
	lock     Lock
	metrics  *metrics.CronJobMetrics
	interval time.Duration
	now      func() time.Time
}

func NewService(params ServiceParams) (*Service, error) {
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	if params.Lock == nil {
		return nil, fmt.Errorf("lock required")
	}
	registry := params.Registry
	if registry == nil {
		registry = &Registry{}
	}
	interval := params.Interval
	if interval <= 0 {
		interval = defaultInterval
	}
	return &Service{
		logg:     params.Logger,
		registry: registry,
		lock:     params.Lock,
		metrics:  params.Metrics,
		interval: interval,
		now:      time.Now,
	}, nil
}

// Run sweeps immediately, then on every tick until ctx is canceled.
func (s *Service) Run(ctx context.Context) error {
	if ctx == nil {
		ctx = context.Background()
	}
	ctx = s.logg.WithFields(ctx, map[string]any{
		"jobs":     s.registry.Names(),
		"interval": s.interval.String(),
	})
	if err := s.runCycle(ctx); err != nil {
		s.logg.Error(ctx, "cron cycle failed", err)
	}
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			s.logg.Info(ctx, "cron service context canceled")
			return ctx.Err()
		case <-ticker.C:
			if err := s.runCycle(ctx); err != nil {
				s.logg.Error(ctx, "cron cycle failed", err)
			}
		}
	}
}

func (s *Service) runCycle(ctx context.Context) error {
	locked, err := s.lock.Acquire(ctx)
	if err != nil {
		return fmt.Errorf("lock acquire: %w", err)
	}
	if !locked {
		s.metrics.CycleSkipped()
		s.logg.Info(ctx, "another cron worker holds the lock; skipping cycle")
		return nil
	}
	defer func() {
		if relErr := s.lock.Release(ctx); relErr != nil {
			s.logg.Error(ctx, "failed to release cron lock", relErr)
		}
	}()

	for i, job := range s.registry.Jobs() {
		if i > 0 {
			held, err := s.lock.Extend(ctx)
			if err != nil {
				return fmt.Errorf("lock extend before %s: %w", job.Name(), err)
			}
			if !held {
				s.logg.Warn(ctx, "cron lock lost mid-cycle; remaining jobs wait for the next tick")
				return nil
			}
		}
		jobCtx, cancel := s.leaseBound(ctx)
		s.runJob(jobCtx, job)
		cancel()
	}
	return nil
}

// leaseBound gives a job until the current lease would lapse.
func (s *Service) leaseBound(ctx context.Context) (context.Context, context.CancelFunc) {
	if ttl := s.lock.TTL(); ttl > 0 {
		return context.WithDeadline(ctx, s.now().Add(ttl))
	}
	return context.WithCancel(ctx)
}

func (s *Service) runJob(ctx context.Context, job Job) {
	jobCtx := s.logg.WithFields(ctx, map[string]any{
		"job":   job.Name(),
		"event": "cron.job",
	})
	start := time.Now()
	items, err := job.Run(jobCtx)
	elapsed := time.Since(start)
	s.metrics.ObserveRun(job.Name(), elapsed, items, err)

	jobCtx = s.logg.WithFields(jobCtx, map[string]any{
		"duration_ms": elapsed.Milliseconds(),
		"items":       items,
	})
	if err != nil {
		s.logg.Error(jobCtx, "cron job failed", err)
		return
	}
	s.logg.Debug(jobCtx, "cron job completed")
}
