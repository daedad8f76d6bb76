// Package cart holds shopping carts: the in-memory line item container, its
// guest (Redis) and user (database) persistence, and the HTTP-facing service.
package cart

import (
	"sync"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/angelmondragon/storefront-backend/internal/pricing"
)

// Item is one cart line. VariantID is nil for products without variants.
type Item struct {
	ProductID   uuid.UUID       `json:"product_id"`
	VariantID   *uuid.UUID      `json:"variant_id,omitempty"`
	Quantity    int             `json:"quantity"`
	UnitPrice   decimal.Decimal `json:"unit_price"`
	Name        string          `json:"name"`
	VariantName *string         `json:"variant_name,omitempty"`
	Slug        string          `json:"slug"`
}

// Key identifies a line by product and variant.
type Key struct {
	ProductID uuid.UUID
	VariantID uuid.UUID
}

// KeyOf returns the merge key for the product/variant pair.
func KeyOf(productID uuid.UUID, variantID *uuid.UUID) Key {
	k := Key{ProductID: productID}
	if variantID != nil {
		k.VariantID = *variantID
	}
	return k
}

// Key returns the item's merge key.
func (i Item) Key() Key {
	return KeyOf(i.ProductID, i.VariantID)
}

// Listener receives a snapshot of the items after every mutation.
type Listener func(items []Item)

type subscription struct {
	id int
	fn Listener
}

// Cart is an ordered list of line items keyed by (product, variant).
// It is safe for concurrent use; listeners run after the lock is released.
type Cart struct {
	mu        sync.Mutex
	items     []Item
	subs      []subscription
	nextSubID int
}

// New builds a cart from previously persisted items, merging duplicates.
func New(items ...Item) *Cart {
	c := &Cart{}
	for _, item := range items {
		c.merge(item)
	}
	return c
}

// Add merges the item into an existing line for the same pair by summing
// quantities, or appends it. Quantities below 1 count as 1. The line takes
// the price and names of the most recent add.
func (c *Cart) Add(item Item) {
	c.mu.Lock()
	c.merge(item)
	snapshot := c.snapshotLocked()
	c.mu.Unlock()
	c.notify(snapshot)
}

func (c *Cart) merge(item Item) {
	if item.Quantity < 1 {
		item.Quantity = 1
	}
	key := item.Key()
	for i := range c.items {
		if c.items[i].Key() == key {
			c.items[i].Quantity += item.Quantity
			c.items[i].UnitPrice = item.UnitPrice
			c.items[i].Name = item.Name
			c.items[i].VariantName = item.VariantName
			c.items[i].Slug = item.Slug
			return
		}
	}
	c.items = append(c.items, item)
}

// Remove deletes the line for the pair. It reports whether a line existed.
func (c *Cart) Remove(productID uuid.UUID, variantID *uuid.UUID) bool {
	key := KeyOf(productID, variantID)
	c.mu.Lock()
	idx := c.indexLocked(key)
	if idx < 0 {
		c.mu.Unlock()
		return false
	}
	c.items = append(c.items[:idx], c.items[idx+1:]...)
	snapshot := c.snapshotLocked()
	c.mu.Unlock()
	c.notify(snapshot)
	return true
}

// UpdateQuantity sets the quantity of an existing line, floored at 1.
// It reports whether the line existed.
func (c *Cart) UpdateQuantity(productID uuid.UUID, variantID *uuid.UUID, quantity int) bool {
	if quantity < 1 {
		quantity = 1
	}
	key := KeyOf(productID, variantID)
	c.mu.Lock()
	idx := c.indexLocked(key)
	if idx < 0 {
		c.mu.Unlock()
		return false
	}
	c.items[idx].Quantity = quantity
	snapshot := c.snapshotLocked()
	c.mu.Unlock()
	c.notify(snapshot)
	return true
}

// Clear empties the cart.
func (c *Cart) Clear() {
	c.mu.Lock()
	c.items = nil
	c.mu.Unlock()
	c.notify([]Item{})
}

// Items returns a copy of the lines in insertion order.
func (c *Cart) Items() []Item {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.snapshotLocked()
}

// Get returns the line for the pair.
func (c *Cart) Get(productID uuid.UUID, variantID *uuid.UUID) (Item, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	idx := c.indexLocked(KeyOf(productID, variantID))
	if idx < 0 {
		return Item{}, false
	}
	return c.items[idx], true
}

// Len is the number of distinct lines.
func (c *Cart) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.items)
}

// Lines converts the cart into calculator input.
func (c *Cart) Lines() []pricing.Line {
	c.mu.Lock()
	defer c.mu.Unlock()
	lines := make([]pricing.Line, 0, len(c.items))
	for _, item := range c.items {
		lines = append(lines, pricing.Line{UnitPrice: item.UnitPrice, Quantity: item.Quantity})
	}
	return lines
}

// Totals recomputes subtotal, tax, shipping and total from the current lines.
func (c *Cart) Totals(calc pricing.Calculator) pricing.Totals {
	return calc.Compute(c.Lines(), decimal.Zero)
}

// Subscribe registers a listener and returns the function removing it.
func (c *Cart) Subscribe(fn Listener) func() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.nextSubID++
	id := c.nextSubID
	c.subs = append(c.subs, subscription{id: id, fn: fn})
	return func() {
		c.mu.Lock()
		defer c.mu.Unlock()
		for i, sub := range c.subs {
			if sub.id == id {
				c.subs = append(c.subs[:i], c.subs[i+1:]...)
				return
			}
		}
	}
}

func (c *Cart) notify(snapshot []Item) {
	c.mu.Lock()
	subs := make([]subscription, len(c.subs))
	copy(subs, c.subs)
	c.mu.Unlock()
	for _, sub := range subs {
		sub.fn(snapshot)
	}
}

func (c *Cart) indexLocked(key Key) int {
	for i := range c.items {
		if c.items[i].Key() == key {
			return i
		}
	}
	return -1
}

func (c *Cart) snapshotLocked() []Item {
	out := make([]Item, len(c.items))
	copy(out, c.items)
	return out
}
