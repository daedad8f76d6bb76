package wishlist

import (
	"time"

	"github.com/google/uuid"

	"github.com/angelmondragon/storefront-backend/internal/catalog"
)

// WishlistItemDTO wraps the product included in a wishlist row.
type WishlistItemDTO struct {
	Product   catalog.ProductDTO `json:"product"`
	CreatedAt time.Time          `json:"created_at"`
}

// WishlistIDsDTO is a lightweight projection containing only product IDs.
type WishlistIDsDTO struct {
	ProductIDs []uuid.UUID `json:"product_ids"`
}
