package reviews

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/angelmondragon/storefront-backend/internal/catalog"
	"github.com/angelmondragon/storefront-backend/pkg/db/dbtest"
	"github.com/angelmondragon/storefront-backend/pkg/db/models"
	"github.com/angelmondragon/storefront-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/storefront-backend/pkg/errors"
	"github.com/angelmondragon/storefront-backend/pkg/pagination"
)

type harness struct {
	db  *gorm.DB
	svc Service
}

func newHarness(t *testing.T) harness {
	t.Helper()
	conn := dbtest.Open(t)
	svc, err := NewService(ServiceParams{Repo: NewRepository(conn), Products: catalog.NewRepository(conn)})
	require.NoError(t, err)
	return harness{db: conn, svc: svc}
}

func (h harness) product(t *testing.T, active bool) models.Product {
	t.Helper()
	p := models.Product{Name: "Kurta", Slug: uuid.NewString(), Price: decimal.NewFromInt(999), IsActive: true}
	require.NoError(t, h.db.Create(&p).Error)
	if !active {
		require.NoError(t, h.db.Model(&p).Update("is_active", false).Error)
	}
	return p
}

func (h harness) user(t *testing.T, first, last string) uuid.UUID {
	t.Helper()
	u := models.User{Email: uuid.NewString() + "@example.com", PasswordHash: "x", FirstName: first, LastName: last}
	require.NoError(t, h.db.Create(&u).Error)
	return u.ID
}

func (h harness) order(t *testing.T, userID, productID uuid.UUID, status enums.OrderStatus) {
	t.Helper()
	orderID := uuid.New()
	require.NoError(t, h.db.Exec(`INSERT INTO orders
		(id, order_number, user_id, status, payment_method, subtotal, tax, shipping_cost, total, shipping_address, created_at, updated_at)
		VALUES (?, ?, ?, ?, 'upi', 999, 0, 0, 999, '{}', ?, ?)`,
		orderID, "ORD-"+orderID.String()[:8], userID, status, time.Now(), time.Now()).Error)
	require.NoError(t, h.db.Exec(`INSERT INTO order_items
		(id, order_id, product_id, product_name, price, quantity, subtotal, created_at)
		VALUES (?, ?, ?, 'Kurta', 999, 1, 999, ?)`,
		uuid.New(), orderID, productID, time.Now()).Error)
}

func text(s string) *string { return &s }

func TestSubmitMarksVerifiedPurchase(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	p := h.product(t, true)
	buyer := h.user(t, "Asha", "Rao")
	browser := h.user(t, "Vikram", "")
	h.order(t, buyer, p.ID, enums.OrderStatusDelivered)
	h.order(t, browser, p.ID, enums.OrderStatusShipped)

	got, err := h.svc.Submit(ctx, buyer, p.Slug, SubmitInput{Rating: 5, Title: text("  Lovely  "), Body: " Soft cotton. "})
	require.NoError(t, err)
	assert.True(t, got.VerifiedPurchase)
	assert.Equal(t, "Asha R.", got.ReviewerName)
	assert.Equal(t, "Soft cotton.", got.Body)
	require.NotNil(t, got.Title)
	assert.Equal(t, "Lovely", *got.Title)

	got, err = h.svc.Submit(ctx, browser, p.Slug, SubmitInput{Rating: 3, Body: "Fine"})
	require.NoError(t, err)
	assert.False(t, got.VerifiedPurchase)
}

func TestSubmitReplacesExistingReview(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	p := h.product(t, true)
	userID := h.user(t, "Asha", "Rao")

	first, err := h.svc.Submit(ctx, userID, p.Slug, SubmitInput{Rating: 2, Body: "Too small"})
	require.NoError(t, err)
	second, err := h.svc.Submit(ctx, userID, p.Slug, SubmitInput{Rating: 4, Body: "Exchanged, fits now"})
	require.NoError(t, err)

	assert.Equal(t, first.ID, second.ID)
	assert.Equal(t, 4, second.Rating)

	var count int64
	require.NoError(t, h.db.Model(&models.ProductReview{}).Count(&count).Error)
	assert.Equal(t, int64(1), count)
}

func TestSubmitValidation(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	p := h.product(t, true)
	archived := h.product(t, false)
	userID := h.user(t, "Asha", "Rao")

	cases := []struct {
		name  string
		slug  string
		input SubmitInput
		code  pkgerrors.Code
	}{
		{"rating too low", p.Slug, SubmitInput{Rating: 0, Body: "ok"}, pkgerrors.CodeValidation},
		{"rating too high", p.Slug, SubmitInput{Rating: 6, Body: "ok"}, pkgerrors.CodeValidation},
		{"blank body", p.Slug, SubmitInput{Rating: 4, Body: "   "}, pkgerrors.CodeValidation},
		{"long title", p.Slug, SubmitInput{Rating: 4, Body: "ok", Title: text(strings.Repeat("a", 121))}, pkgerrors.CodeValidation},
		{"archived product", archived.Slug, SubmitInput{Rating: 4, Body: "ok"}, pkgerrors.CodeNotFound},
		{"unknown product", "missing", SubmitInput{Rating: 4, Body: "ok"}, pkgerrors.CodeNotFound},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := h.svc.Submit(ctx, userID, tc.slug, tc.input)
			assert.Equal(t, tc.code, pkgerrors.CodeOf(err))
		})
	}
}

func TestListForProductSummaryAndModeration(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	p := h.product(t, true)

	var hidden uuid.UUID
	for i, rating := range []int{5, 4, 4, 1} {
		userID := h.user(t, "User", "")
		dto, err := h.svc.Submit(ctx, userID, p.Slug, SubmitInput{Rating: rating, Body: "review"})
		require.NoError(t, err)
		require.NoError(t, h.db.Model(&models.ProductReview{}).Where("id = ?", dto.ID).
			Update("created_at", time.Now().Add(time.Duration(i)*time.Minute)).Error)
		if rating == 1 {
			hidden = dto.ID
		}
	}

	moderated, err := h.svc.Moderate(ctx, hidden, false)
	require.NoError(t, err)
	assert.False(t, moderated.IsPublished)

	page, err := h.svc.ListForProduct(ctx, p.Slug, pagination.Params{Limit: 2})
	require.NoError(t, err)
	assert.Equal(t, int64(3), page.Summary.Count)
	assert.Equal(t, "4.3", page.Summary.Average.String())
	assert.Equal(t, int64(2), page.Summary.Distribution[4])
	assert.Zero(t, page.Summary.Distribution[1])
	require.Len(t, page.Items, 2)
	assert.Equal(t, 4, page.Items[0].Rating)
	require.NotEmpty(t, page.NextCursor)

	next, err := h.svc.ListForProduct(ctx, p.Slug, pagination.Params{Limit: 2, Cursor: page.NextCursor})
	require.NoError(t, err)
	require.Len(t, next.Items, 1)
	assert.Equal(t, 5, next.Items[0].Rating)
	assert.Empty(t, next.NextCursor)

	_, err = h.svc.Moderate(ctx, uuid.New(), true)
	assert.Equal(t, pkgerrors.CodeNotFound, pkgerrors.CodeOf(err))
}

func TestDeleteReviews(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	p := h.product(t, true)
	author := h.user(t, "Asha", "Rao")
	other := h.user(t, "Ravi", "K")

	own, err := h.svc.Submit(ctx, author, p.Slug, SubmitInput{Rating: 5, Body: "great"})
	require.NoError(t, err)
	theirs, err := h.svc.Submit(ctx, other, p.Slug, SubmitInput{Rating: 2, Body: "meh"})
	require.NoError(t, err)

	require.NoError(t, h.svc.DeleteOwn(ctx, author, p.Slug))
	err = h.svc.DeleteOwn(ctx, author, p.Slug)
	assert.Equal(t, pkgerrors.CodeNotFound, pkgerrors.CodeOf(err))

	require.NoError(t, h.svc.Delete(ctx, theirs.ID))
	err = h.svc.Delete(ctx, own.ID)
	assert.Equal(t, pkgerrors.CodeNotFound, pkgerrors.CodeOf(err))
}
