package cart

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/storefront-backend/pkg/db/models"
)

// DBStore keeps signed-in users' carts in the cart_items table.
type DBStore struct {
	db *gorm.DB
}

// NewDBStore binds the store to the provided DB handle.
func NewDBStore(db *gorm.DB) *DBStore {
	return &DBStore{db: db}
}

// WithTx scopes the store to the provided transaction.
func (s *DBStore) WithTx(tx *gorm.DB) *DBStore {
	if tx == nil {
		return s
	}
	return &DBStore{db: tx}
}

// Load returns the user's lines in insertion order.
func (s *DBStore) Load(ctx context.Context, owner Owner) ([]Item, error) {
	if !owner.IsUser() {
		return nil, fmt.Errorf("user id required")
	}
	var rows []models.CartItem
	if err := s.db.WithContext(ctx).
		Where("user_id = ?", owner.UserID).
		Order("position ASC").
		Find(&rows).Error; err != nil {
		return nil, err
	}
	items := make([]Item, 0, len(rows))
	for _, row := range rows {
		items = append(items, Item{
			ProductID:   row.ProductID,
			VariantID:   row.VariantID,
			Quantity:    row.Quantity,
			UnitPrice:   row.UnitPrice,
			Name:        row.Name,
			VariantName: row.VariantName,
			Slug:        row.Slug,
		})
	}
	return items, nil
}

// Save replaces every stored line for the user inside one transaction.
func (s *DBStore) Save(ctx context.Context, owner Owner, items []Item) error {
	if !owner.IsUser() {
		return fmt.Errorf("user id required")
	}
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("user_id = ?", owner.UserID).Delete(&models.CartItem{}).Error; err != nil {
			return err
		}
		if len(items) == 0 {
			return nil
		}
		rows := make([]models.CartItem, 0, len(items))
		for i, item := range items {
			rows = append(rows, models.CartItem{
				UserID:      owner.UserID,
				ProductID:   item.ProductID,
				VariantID:   item.VariantID,
				Quantity:    item.Quantity,
				UnitPrice:   item.UnitPrice,
				Name:        item.Name,
				VariantName: item.VariantName,
				Slug:        item.Slug,
				Position:    i,
			})
		}
		return tx.Create(&rows).Error
	})
}

// Delete removes every line for the user.
func (s *DBStore) Delete(ctx context.Context, owner Owner) error {
	if !owner.IsUser() {
		return nil
	}
	return s.db.WithContext(ctx).Where("user_id = ?", owner.UserID).Delete(&models.CartItem{}).Error
}

// ClearUser empties the user's cart inside the caller's transaction.
func (s *DBStore) ClearUser(ctx context.Context, tx *gorm.DB, userID uuid.UUID) error {
	return s.WithTx(tx).Delete(ctx, Owner{UserID: userID})
}
