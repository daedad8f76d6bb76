package support

import (
	"time"

	"github.com/google/uuid"

	"github.com/angelmondragon/storefront-backend/pkg/db/models"
	"github.com/angelmondragon/storefront-backend/pkg/enums"
)

// QueryDTO is the admin view of a customer query.
type QueryDTO struct {
	ID         uuid.UUID         `json:"id"`
	UserID     *uuid.UUID        `json:"user_id,omitempty"`
	OrderID    *uuid.UUID        `json:"order_id,omitempty"`
	Name       string            `json:"name"`
	Email      string            `json:"email"`
	Phone      *string           `json:"phone,omitempty"`
	Subject    string            `json:"subject"`
	Message    string            `json:"message"`
	Status     enums.QueryStatus `json:"status"`
	AdminNotes *string           `json:"admin_notes,omitempty"`
	ResolvedAt *time.Time        `json:"resolved_at,omitempty"`
	CreatedAt  time.Time         `json:"created_at"`
	UpdatedAt  time.Time         `json:"updated_at"`
}

func toDTO(q models.CustomerQuery) QueryDTO {
	return QueryDTO{
		ID:         q.ID,
		UserID:     q.UserID,
		OrderID:    q.OrderID,
		Name:       q.Name,
		Email:      q.Email,
		Phone:      q.Phone,
		Subject:    q.Subject,
		Message:    q.Message,
		Status:     q.Status,
		AdminNotes: q.AdminNotes,
		ResolvedAt: q.ResolvedAt,
		CreatedAt:  q.CreatedAt,
		UpdatedAt:  q.UpdatedAt,
	}
}
