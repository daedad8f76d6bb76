package controllers

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/angelmondragon/storefront-backend/api/responses"
	"github.com/angelmondragon/storefront-backend/api/validators"
	"github.com/angelmondragon/storefront-backend/pkg/db/models"
	pkgerrors "github.com/angelmondragon/storefront-backend/pkg/errors"
	"github.com/angelmondragon/storefront-backend/pkg/logger"
)

type dlqLister interface {
	List(ctx context.Context, limit int) ([]models.OutboxDLQ, error)
}

type dlqEntry struct {
	ID            uuid.UUID       `json:"id"`
	EventID       uuid.UUID       `json:"event_id"`
	EventType     string          `json:"event_type"`
	AggregateType string          `json:"aggregate_type"`
	AggregateID   uuid.UUID       `json:"aggregate_id"`
	Payload       json.RawMessage `json:"payload"`
	ErrorReason   string          `json:"error_reason"`
	ErrorMessage  *string         `json:"error_message,omitempty"`
	AttemptCount  int             `json:"attempt_count"`
	FailedAt      time.Time       `json:"failed_at"`
}

// AdminOutboxDLQ lists dead-lettered events, most recent first.
func AdminOutboxDLQ(repo dlqLister, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if repo == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "outbox repository unavailable"))
			return
		}
		limit, err := validators.ParseQueryInt(r, "limit", 50, 1, 500)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		rows, err := repo.List(r.Context(), limit)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list outbox dlq"))
			return
		}

		out := make([]dlqEntry, 0, len(rows))
		for _, row := range rows {
			out = append(out, dlqEntry{
				ID:            row.ID,
				EventID:       row.EventID,
				EventType:     string(row.EventType),
				AggregateType: string(row.AggregateType),
				AggregateID:   row.AggregateID,
				Payload:       row.Payload,
				ErrorReason:   string(row.ErrorReason),
				ErrorMessage:  row.ErrorMessage,
				AttemptCount:  row.AttemptCount,
				FailedAt:      row.FailedAt,
			})
		}
		responses.WriteSuccess(w, out)
	}
}
