package cart

import (
	"context"

	"github.com/google/uuid"
)

// Owner identifies whose cart is addressed: a signed-in user or a guest
// holding an opaque cart token.
type Owner struct {
	UserID     uuid.UUID
	GuestToken string
}

// IsUser reports whether the owner is a signed-in user.
func (o Owner) IsUser() bool {
	return o.UserID != uuid.Nil
}

// Valid reports whether the owner names either a user or a guest token.
func (o Owner) Valid() bool {
	return o.IsUser() || o.GuestToken != ""
}

// Store persists cart lines for an owner.
type Store interface {
	Load(ctx context.Context, owner Owner) ([]Item, error)
	Save(ctx context.Context, owner Owner, items []Item) error
	Delete(ctx context.Context, owner Owner) error
}
