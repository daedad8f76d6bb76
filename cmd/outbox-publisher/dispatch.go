package main

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"

	"github.com/angelmondragon/storefront-backend/pkg/db/models"
	"github.com/angelmondragon/storefront-backend/pkg/enums"
	"github.com/angelmondragon/storefront-backend/pkg/outbox/registry"
)

type verdict int

const (
	verdictPublished verdict = iota
	verdictRetry
	verdictDeadLetter
)

func (v verdict) String() string {
	switch v {
	case verdictPublished:
		return "published"
	case verdictRetry:
		return "retry"
	default:
		return "dead_letter"
	}
}

// dispatchResult describes what happened to one outbox row.
type dispatchResult struct {
	verdict verdict
	reason  enums.OutboxDLQErrorReason
	topic   string
	err     error
}

// dispatch resolves and publishes one row. It never touches the database;
// settle records the outcome inside the batch transaction.
func (s *Service) dispatch(ctx context.Context, event models.OutboxEvent) dispatchResult {
	resolved, err := s.registry.Resolve(event)
	if err != nil {
		return dispatchResult{verdict: verdictDeadLetter, reason: enums.OutboxDLQReasonNonRetryable, err: err}
	}
	topic := resolved.Descriptor.Topic

	pub := s.publishers(topic)
	if pub == nil {
		return dispatchResult{
			verdict: verdictDeadLetter,
			reason:  enums.OutboxDLQReasonNonRetryable,
			topic:   topic,
			err:     fmt.Errorf("no publisher for topic %s", topic),
		}
	}

	publishCtx, cancel := context.WithTimeout(ctx, s.publishTimeout)
	defer cancel()
	result := pub.Publish(publishCtx, buildMessage(event, resolved))
	if result == nil {
		return dispatchResult{
			verdict: verdictDeadLetter,
			reason:  enums.OutboxDLQReasonNonRetryable,
			topic:   topic,
			err:     fmt.Errorf("publisher returned no result for topic %s", topic),
		}
	}
	if _, err := result.Get(publishCtx); err != nil {
		var nonRetry registry.NonRetryableError
		if errors.As(err, &nonRetry) {
			return dispatchResult{verdict: verdictDeadLetter, reason: enums.OutboxDLQReasonNonRetryable, topic: topic, err: err}
		}
		if event.AttemptCount+1 >= s.maxAttempts {
			return dispatchResult{
				verdict: verdictDeadLetter,
				reason:  enums.OutboxDLQReasonMaxAttempts,
				topic:   topic,
				err:     fmt.Errorf("max publish attempts reached: %w", err),
			}
		}
		return dispatchResult{verdict: verdictRetry, topic: topic, err: err}
	}
	return dispatchResult{verdict: verdictPublished, topic: topic}
}

func (s *Service) settle(ctx context.Context, tx *gorm.DB, event models.OutboxEvent, res dispatchResult) error {
	logCtx := s.logg.WithFields(ctx, eventFields(event, res))
	switch res.verdict {
	case verdictPublished:
		if err := s.repo.MarkPublishedTx(tx, event.ID); err != nil {
			return fmt.Errorf("mark published %s: %w", event.ID, err)
		}
		s.logg.Info(logCtx, "outbox event published")
	case verdictRetry:
		s.logg.Warn(s.logg.WithField(logCtx, "error", res.err.Error()), "outbox publish failed")
		if err := s.repo.MarkFailedTx(tx, event.ID, res.err); err != nil {
			return fmt.Errorf("mark failure %s: %w", event.ID, err)
		}
	case verdictDeadLetter:
		s.logg.Warn(s.logg.WithField(logCtx, "error", res.err.Error()), "outbox event moved to dead letter")
		msg := res.err.Error()
		entry := models.OutboxDLQ{
			EventID:       event.ID,
			EventType:     event.EventType,
			AggregateType: event.AggregateType,
			AggregateID:   event.AggregateID,
			Payload:       event.Payload,
			ErrorReason:   res.reason,
			ErrorMessage:  &msg,
			AttemptCount:  event.AttemptCount,
			FailedAt:      s.now().UTC(),
		}
		if err := s.dlq.InsertTx(tx, entry); err != nil {
			return fmt.Errorf("insert dlq %s: %w", event.ID, err)
		}
		if err := s.repo.MarkTerminalTx(tx, event.ID, res.err, s.maxAttempts); err != nil {
			return fmt.Errorf("mark terminal %s: %w", event.ID, err)
		}
	}
	return nil
}

func eventFields(event models.OutboxEvent, res dispatchResult) map[string]any {
	fields := map[string]any{
		"outbox_id":      event.ID.String(),
		"event_type":     event.EventType,
		"aggregate_type": event.AggregateType,
		"aggregate_id":   event.AggregateID.String(),
		"attempt_count":  event.AttemptCount,
		"verdict":        res.verdict.String(),
	}
	if res.topic != "" {
		fields["topic"] = res.topic
	}
	if res.reason != "" {
		fields["dlq_reason"] = res.reason
	}
	if event.LastError != nil {
		fields["last_error"] = *event.LastError
	}
	return fields
}

