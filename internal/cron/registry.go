package cron

import (
	"context"
	"fmt"
)

// Storefront job names double as metric labels.
const (
	JobPaymentExpiry   = "payment-expiry"
	JobOutboxRetention = "outbox-retention"
)

// Job is one maintenance task. Run reports how many rows it touched
// (orders expired, outbox rows purged).
type Job interface {
	Name() string
	Run(ctx context.Context) (int, error)
}

// Registry keeps jobs in registration order, one per name.
type Registry struct {
	jobs  []Job
	names map[string]struct{}
}

// NewRegistry registers jobs in order; nil jobs are skipped.
func NewRegistry(jobs ...Job) (*Registry, error) {
	registry := &Registry{names: map[string]struct{}{}}
	for _, job := range jobs {
		if err := registry.Register(job); err != nil {
			return nil, err
		}
	}
	return registry, nil
}

// Register adds job unless its name is empty or already taken.
func (r *Registry) Register(job Job) error {
	if job == nil {
		return nil
	}
	name := job.Name()
	if name == "" {
		return fmt.Errorf("cron job name required")
	}
	if r.names == nil {
		r.names = map[string]struct{}{}
	}
	if _, dup := r.names[name]; dup {
		return fmt.Errorf("cron job %q registered twice", name)
	}
	r.names[name] = struct{}{}
	r.jobs = append(r.jobs, job)
	return nil
}

// Jobs returns a copy of the registered jobs.
func (r *Registry) Jobs() []Job {
	jobs := make([]Job, len(r.jobs))
	copy(jobs, r.jobs)
	return jobs
}

// Names lists job names in run order.
func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.jobs))
	for _, job := range r.jobs {
		names = append(names, job.Name())
	}
	return names
}
