package controllers

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/angelmondragon/storefront-backend/api/middleware"
	"github.com/angelmondragon/storefront-backend/internal/cart"
)

type stubCartService struct {
	owner  cart.Owner
	add    cart.AddItemInput
	update cart.UpdateItemInput
	remove *uuid.UUID
	calls  int
}

func (s *stubCartService) view(owner cart.Owner) *cart.View {
	s.owner = owner
	s.calls++
	return &cart.View{GuestToken: owner.GuestToken, Items: []cart.ItemView{}}
}

func (s *stubCartService) Get(ctx context.Context, owner cart.Owner) (*cart.View, error) {
	return s.view(owner), nil
}

func (s *stubCartService) AddItem(ctx context.Context, owner cart.Owner, input cart.AddItemInput) (*cart.View, error) {
	s.add = input
	return s.view(owner), nil
}

func (s *stubCartService) UpdateItem(ctx context.Context, owner cart.Owner, input cart.UpdateItemInput) (*cart.View, error) {
	s.update = input
	return s.view(owner), nil
}

func (s *stubCartService) RemoveItem(ctx context.Context, owner cart.Owner, productID uuid.UUID, variantID *uuid.UUID) (*cart.View, error) {
	s.remove = variantID
	return s.view(owner), nil
}

func (s *stubCartService) Clear(ctx context.Context, owner cart.Owner) (*cart.View, error) {
	return s.view(owner), nil
}

func (s *stubCartService) Merge(ctx context.Context, guestToken string, userID uuid.UUID) (*cart.View, error) {
	return s.view(cart.Owner{UserID: userID}), nil
}

func withURLParam(req *http.Request, key, value string) *http.Request {
	rctx := chi.NewRouteContext()
	rctx.URLParams.Add(key, value)
	return req.WithContext(context.WithValue(req.Context(), chi.RouteCtxKey, rctx))
}

func TestCartAddItemIssuesGuestToken(t *testing.T) {
	svc := &stubCartService{}
	productID := uuid.New()
	body := `{"product_id":"` + productID.String() + `"}`
	req := httptest.NewRequest(http.MethodPost, "/api/v1/cart/items", bytes.NewBufferString(body))
	rec := httptest.NewRecorder()

	CartAddItem(svc, nil).ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d: %s", rec.Code, rec.Body.String())
	}
	token := rec.Header().Get(middleware.CartTokenHeader)
	if token == "" || svc.owner.GuestToken != token {
		t.Fatalf("expected issued guest token to address the cart, header=%q owner=%+v", token, svc.owner)
	}
	if svc.add.Quantity != 1 || svc.add.ProductID != productID {
		t.Fatalf("expected default quantity 1 for %s, got %+v", productID, svc.add)
	}
}

func TestCartAddItemUsesSignedInUser(t *testing.T) {
	svc := &stubCartService{}
	userID := uuid.New()
	body := `{"product_id":"` + uuid.NewString() + `","quantity":3}`
	req := httptest.NewRequest(http.MethodPost, "/api/v1/cart/items", bytes.NewBufferString(body))
	req.Header.Set(middleware.CartTokenHeader, uuid.NewString())
	req = req.WithContext(middleware.WithUserID(req.Context(), userID.String()))
	rec := httptest.NewRecorder()

	CartAddItem(svc, nil).ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d", rec.Code)
	}
	if svc.owner.UserID != userID || svc.owner.GuestToken != "" {
		t.Fatalf("expected user owner, got %+v", svc.owner)
	}
	if rec.Header().Get(middleware.CartTokenHeader) != "" {
		t.Fatalf("signed-in carts should not echo a guest token")
	}
	if svc.add.Quantity != 3 {
		t.Fatalf("expected quantity 3, got %d", svc.add.Quantity)
	}
}

func TestCartGetWithoutTokenIsEmpty(t *testing.T) {
	svc := &stubCartService{}
	req := httptest.NewRequest(http.MethodGet, "/api/v1/cart", nil)
	rec := httptest.NewRecorder()

	CartGet(svc, nil).ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d", rec.Code)
	}
	if svc.calls != 0 {
		t.Fatalf("expected no service call for an anonymous empty cart")
	}
	if rec.Header().Get(middleware.CartTokenHeader) != "" {
		t.Fatalf("GET must not mint a token")
	}
}

func TestCartRejectsMalformedToken(t *testing.T) {
	svc := &stubCartService{}
	req := httptest.NewRequest(http.MethodGet, "/api/v1/cart", nil)
	req.Header.Set(middleware.CartTokenHeader, "cart:../../etc")
	rec := httptest.NewRecorder()

	CartGet(svc, nil).ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 got %d", rec.Code)
	}
}

func TestCartUpdateItemPassesQuantity(t *testing.T) {
	svc := &stubCartService{}
	productID := uuid.New()
	token := uuid.NewString()
	req := httptest.NewRequest(http.MethodPatch, "/api/v1/cart/items/"+productID.String(), bytes.NewBufferString(`{"quantity":0}`))
	req.Header.Set(middleware.CartTokenHeader, token)
	req = withURLParam(req, "productID", productID.String())
	rec := httptest.NewRecorder()

	CartUpdateItem(svc, nil).ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d", rec.Code)
	}
	if svc.owner.GuestToken != token || svc.update.ProductID != productID || svc.update.Quantity != 0 {
		t.Fatalf("unexpected update call owner=%+v input=%+v", svc.owner, svc.update)
	}
}

func TestCartRemoveItemVariantQuery(t *testing.T) {
	svc := &stubCartService{}
	productID := uuid.New()
	variantID := uuid.New()
	req := httptest.NewRequest(http.MethodDelete, "/api/v1/cart/items/"+productID.String()+"?variant_id="+variantID.String(), nil)
	req.Header.Set(middleware.CartTokenHeader, uuid.NewString())
	req = withURLParam(req, "productID", productID.String())
	rec := httptest.NewRecorder()

	CartRemoveItem(svc, nil).ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d", rec.Code)
	}
	if svc.remove == nil || *svc.remove != variantID {
		t.Fatalf("expected variant %s, got %v", variantID, svc.remove)
	}
}
