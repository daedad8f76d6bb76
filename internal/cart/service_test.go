package cart

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/angelmondragon/storefront-backend/pkg/db/models"
	pkgerrors "github.com/angelmondragon/storefront-backend/pkg/errors"
)

type memStore struct {
	carts   map[string][]Item
	saveErr error
	saves   int
}

func newMemStore() *memStore { return &memStore{carts: map[string][]Item{}} }

func ownerKey(o Owner) string {
	if o.IsUser() {
		return o.UserID.String()
	}
	return o.GuestToken
}

func (m *memStore) Load(_ context.Context, o Owner) ([]Item, error) {
	return append([]Item(nil), m.carts[ownerKey(o)]...), nil
}

func (m *memStore) Save(_ context.Context, o Owner, items []Item) error {
	m.saves++
	if m.saveErr != nil {
		return m.saveErr
	}
	m.carts[ownerKey(o)] = append([]Item(nil), items...)
	return nil
}

func (m *memStore) Delete(_ context.Context, o Owner) error {
	delete(m.carts, ownerKey(o))
	return nil
}

type stubProducts struct {
	products map[uuid.UUID]*models.Product
}

func (s *stubProducts) GetProduct(_ context.Context, id uuid.UUID) (*models.Product, error) {
	p, ok := s.products[id]
	if !ok {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "product not found")
	}
	return p, nil
}

type serviceHarness struct {
	svc      Service
	guests   *memStore
	users    *memStore
	products *stubProducts
}

func newHarness(t *testing.T) *serviceHarness {
	t.Helper()
	h := &serviceHarness{
		guests:   newMemStore(),
		users:    newMemStore(),
		products: &stubProducts{products: map[uuid.UUID]*models.Product{}},
	}
	svc, err := NewService(ServiceParams{
		Guests:      h.guests,
		Users:       h.users,
		Products:    h.products,
		MaxLines:    3,
		MaxQuantity: 10,
	})
	require.NoError(t, err)
	h.svc = svc
	return h
}

func (h *serviceHarness) addProduct(price string, variants ...models.ProductVariant) *models.Product {
	p := &models.Product{
		ID:       uuid.New(),
		Name:     "Test Product",
		Slug:     "test-product",
		Price:    decimal.RequireFromString(price),
		IsActive: true,
		Variants: variants,
	}
	h.products.products[p.ID] = p
	return p
}

func codeOf(err error) pkgerrors.Code {
	return pkgerrors.CodeOf(err)
}

func TestServiceAddItemUsesCatalogPriceAndPersists(t *testing.T) {
	h := newHarness(t)
	product := h.addProduct("999")
	owner := Owner{GuestToken: "guest-1"}

	view, err := h.svc.AddItem(context.Background(), owner, AddItemInput{ProductID: product.ID, Quantity: 1})
	require.NoError(t, err)
	assert.Equal(t, "guest-1", view.GuestToken)
	assert.Equal(t, "₹999.00", view.Formatted.Subtotal)
	assert.Equal(t, "₹0.00", view.Formatted.Shipping)

	view, err = h.svc.AddItem(context.Background(), owner, AddItemInput{ProductID: product.ID, Quantity: 2})
	require.NoError(t, err)
	require.Len(t, view.Items, 1)
	assert.Equal(t, 3, view.Items[0].Quantity)
	assert.Equal(t, "2997", view.Totals.Subtotal.String())
	assert.Equal(t, 3, view.ItemCount)

	require.Len(t, h.guests.carts["guest-1"], 1)
	assert.Equal(t, 3, h.guests.carts["guest-1"][0].Quantity)
	assert.Empty(t, h.users.carts)
}

func TestServiceAddItemVariantOverride(t *testing.T) {
	h := newHarness(t)
	override := decimal.RequireFromString("1299")
	variant := models.ProductVariant{ID: uuid.New(), Name: "XL", Price: &override, IsActive: true}
	plain := models.ProductVariant{ID: uuid.New(), Name: "M", IsActive: true}
	product := h.addProduct("999", variant, plain)
	owner := Owner{UserID: uuid.New()}

	view, err := h.svc.AddItem(context.Background(), owner, AddItemInput{ProductID: product.ID, VariantID: &variant.ID, Quantity: 1})
	require.NoError(t, err)
	assert.Equal(t, "1299", view.Items[0].UnitPrice.String())
	require.NotNil(t, view.Items[0].VariantName)
	assert.Equal(t, "XL", *view.Items[0].VariantName)

	view, err = h.svc.AddItem(context.Background(), owner, AddItemInput{ProductID: product.ID, VariantID: &plain.ID, Quantity: 1})
	require.NoError(t, err)
	require.Len(t, view.Items, 2)
	assert.Equal(t, "999", view.Items[1].UnitPrice.String())
	assert.Empty(t, view.GuestToken)
	assert.Len(t, h.users.carts[owner.UserID.String()], 2)
}

func TestServiceAddItemRejectsUnavailable(t *testing.T) {
	h := newHarness(t)
	owner := Owner{GuestToken: "g"}

	_, err := h.svc.AddItem(context.Background(), owner, AddItemInput{ProductID: uuid.New(), Quantity: 1})
	assert.Equal(t, pkgerrors.CodeValidation, codeOf(err))

	inactive := h.addProduct("10")
	inactive.IsActive = false
	_, err = h.svc.AddItem(context.Background(), owner, AddItemInput{ProductID: inactive.ID, Quantity: 1})
	assert.Equal(t, pkgerrors.CodeValidation, codeOf(err))

	product := h.addProduct("10")
	missing := uuid.New()
	_, err = h.svc.AddItem(context.Background(), owner, AddItemInput{ProductID: product.ID, VariantID: &missing, Quantity: 1})
	assert.Equal(t, pkgerrors.CodeValidation, codeOf(err))
}

func TestServiceLimits(t *testing.T) {
	h := newHarness(t)
	owner := Owner{GuestToken: "g"}
	ctx := context.Background()

	p := h.addProduct("10")
	_, err := h.svc.AddItem(ctx, owner, AddItemInput{ProductID: p.ID, Quantity: 11})
	assert.Equal(t, pkgerrors.CodeValidation, codeOf(err))

	_, err = h.svc.AddItem(ctx, owner, AddItemInput{ProductID: p.ID, Quantity: 8})
	require.NoError(t, err)
	_, err = h.svc.AddItem(ctx, owner, AddItemInput{ProductID: p.ID, Quantity: 3})
	assert.Equal(t, pkgerrors.CodeValidation, codeOf(err))

	for i := 0; i < 2; i++ {
		_, err = h.svc.AddItem(ctx, owner, AddItemInput{ProductID: h.addProduct("1").ID, Quantity: 1})
		require.NoError(t, err)
	}
	_, err = h.svc.AddItem(ctx, owner, AddItemInput{ProductID: h.addProduct("1").ID, Quantity: 1})
	assert.Equal(t, pkgerrors.CodeValidation, codeOf(err))
	assert.Len(t, h.guests.carts["g"], 3)
}

func TestServiceUpdateRemoveClear(t *testing.T) {
	h := newHarness(t)
	owner := Owner{GuestToken: "g"}
	ctx := context.Background()
	p := h.addProduct("100")

	_, err := h.svc.UpdateItem(ctx, owner, UpdateItemInput{ProductID: p.ID, Quantity: 2})
	assert.Equal(t, pkgerrors.CodeNotFound, codeOf(err))

	_, err = h.svc.AddItem(ctx, owner, AddItemInput{ProductID: p.ID, Quantity: 1})
	require.NoError(t, err)

	view, err := h.svc.UpdateItem(ctx, owner, UpdateItemInput{ProductID: p.ID, Quantity: 0})
	require.NoError(t, err)
	assert.Equal(t, 1, view.Items[0].Quantity)

	view, err = h.svc.UpdateItem(ctx, owner, UpdateItemInput{ProductID: p.ID, Quantity: 5})
	require.NoError(t, err)
	assert.Equal(t, "500", view.Totals.Subtotal.String())

	view, err = h.svc.RemoveItem(ctx, owner, p.ID, nil)
	require.NoError(t, err)
	assert.Empty(t, view.Items)

	_, err = h.svc.RemoveItem(ctx, owner, p.ID, nil)
	assert.Equal(t, pkgerrors.CodeNotFound, codeOf(err))

	_, err = h.svc.AddItem(ctx, owner, AddItemInput{ProductID: p.ID, Quantity: 1})
	require.NoError(t, err)
	view, err = h.svc.Clear(ctx, owner)
	require.NoError(t, err)
	assert.Empty(t, view.Items)
	assert.Empty(t, h.guests.carts["g"])
}

func TestServiceSaveFailureSurfaces(t *testing.T) {
	h := newHarness(t)
	h.guests.saveErr = errors.New("redis down")
	p := h.addProduct("10")

	_, err := h.svc.AddItem(context.Background(), Owner{GuestToken: "g"}, AddItemInput{ProductID: p.ID, Quantity: 1})
	assert.Equal(t, pkgerrors.CodeDependency, codeOf(err))
}

func TestServiceRequiresOwner(t *testing.T) {
	h := newHarness(t)
	_, err := h.svc.Get(context.Background(), Owner{})
	assert.Equal(t, pkgerrors.CodeValidation, codeOf(err))
}

func TestServiceMergeGuestIntoUser(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	guest := Owner{GuestToken: "g"}
	user := Owner{UserID: uuid.New()}
	shared := h.addProduct("100")
	guestOnly := h.addProduct("50")

	_, err := h.svc.AddItem(ctx, user, AddItemInput{ProductID: shared.ID, Quantity: 7})
	require.NoError(t, err)
	_, err = h.svc.AddItem(ctx, guest, AddItemInput{ProductID: shared.ID, Quantity: 6})
	require.NoError(t, err)
	_, err = h.svc.AddItem(ctx, guest, AddItemInput{ProductID: guestOnly.ID, Quantity: 2})
	require.NoError(t, err)

	view, err := h.svc.Merge(ctx, "g", user.UserID)
	require.NoError(t, err)
	require.Len(t, view.Items, 2)
	assert.Equal(t, 10, view.Items[0].Quantity, "capped at max quantity")
	assert.Equal(t, 2, view.Items[1].Quantity)
	assert.Empty(t, view.GuestToken)

	_, guestLeft := h.guests.carts["g"]
	assert.False(t, guestLeft)
	assert.Len(t, h.users.carts[user.UserID.String()], 2)
}

func TestServiceMergeWithoutGuestCart(t *testing.T) {
	h := newHarness(t)
	userID := uuid.New()

	view, err := h.svc.Merge(context.Background(), "", userID)
	require.NoError(t, err)
	assert.Empty(t, view.Items)

	_, err = h.svc.Merge(context.Background(), "g", uuid.Nil)
	assert.Equal(t, pkgerrors.CodeValidation, codeOf(err))
}
