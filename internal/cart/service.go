package cart

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/angelmondragon/storefront-backend/internal/pricing"
	"github.com/angelmondragon/storefront-backend/pkg/db/models"
	pkgerrors "github.com/angelmondragon/storefront-backend/pkg/errors"
	"github.com/angelmondragon/storefront-backend/pkg/format"
)

type productLoader interface {
	GetProduct(ctx context.Context, id uuid.UUID) (*models.Product, error)
}

// Service exposes the cart operations used by the HTTP layer.
type Service interface {
	Get(ctx context.Context, owner Owner) (*View, error)
	AddItem(ctx context.Context, owner Owner, input AddItemInput) (*View, error)
	UpdateItem(ctx context.Context, owner Owner, input UpdateItemInput) (*View, error)
	RemoveItem(ctx context.Context, owner Owner, productID uuid.UUID, variantID *uuid.UUID) (*View, error)
	Clear(ctx context.Context, owner Owner) (*View, error)
	Merge(ctx context.Context, guestToken string, userID uuid.UUID) (*View, error)
}

// AddItemInput is a request to add a product (and optional variant).
type AddItemInput struct {
	ProductID uuid.UUID
	VariantID *uuid.UUID
	Quantity  int
}

// UpdateItemInput sets the quantity of an existing line.
type UpdateItemInput struct {
	ProductID uuid.UUID
	VariantID *uuid.UUID
	Quantity  int
}

// ServiceParams names the dependencies of the cart service.
type ServiceParams struct {
	Guests      Store
	Users       Store
	Products    productLoader
	Calculator  pricing.Calculator
	MaxLines    int
	MaxQuantity int
}

type service struct {
	guests      Store
	users       Store
	products    productLoader
	calc        pricing.Calculator
	maxLines    int
	maxQuantity int
}

// NewService builds a cart service.
func NewService(params ServiceParams) (Service, error) {
	if params.Guests == nil {
		return nil, fmt.Errorf("guest cart store required")
	}
	if params.Users == nil {
		return nil, fmt.Errorf("user cart store required")
	}
	if params.Products == nil {
		return nil, fmt.Errorf("product loader required")
	}
	if params.MaxLines <= 0 || params.MaxQuantity <= 0 {
		return nil, fmt.Errorf("cart limits must be positive")
	}
	return &service{
		guests:      params.Guests,
		users:       params.Users,
		products:    params.Products,
		calc:        params.Calculator,
		maxLines:    params.MaxLines,
		maxQuantity: params.MaxQuantity,
	}, nil
}

func (s *service) storeFor(owner Owner) Store {
	if owner.IsUser() {
		return s.users
	}
	return s.guests
}

// session is a loaded cart whose mutations are written back by a subscriber.
type session struct {
	cart        *Cart
	saveErr     error
	unsubscribe func()
}

func (s *service) open(ctx context.Context, owner Owner) (*session, error) {
	if !owner.Valid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "cart owner is required")
	}
	items, err := s.storeFor(owner).Load(ctx, owner)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load cart")
	}
	sess := &session{cart: New(items...)}
	store := s.storeFor(owner)
	sess.unsubscribe = sess.cart.Subscribe(func(snapshot []Item) {
		if err := store.Save(ctx, owner, snapshot); err != nil {
			sess.saveErr = err
		}
	})
	return sess, nil
}

func (sess *session) close() error {
	sess.unsubscribe()
	if sess.saveErr != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, sess.saveErr, "save cart")
	}
	return nil
}

func (s *service) Get(ctx context.Context, owner Owner) (*View, error) {
	sess, err := s.open(ctx, owner)
	if err != nil {
		return nil, err
	}
	if err := sess.close(); err != nil {
		return nil, err
	}
	return s.view(owner, sess.cart), nil
}

func (s *service) AddItem(ctx context.Context, owner Owner, input AddItemInput) (*View, error) {
	if input.ProductID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "product_id is required")
	}
	if input.Quantity > s.maxQuantity {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("quantity cannot exceed %d", s.maxQuantity))
	}
	item, err := s.resolveItem(ctx, input.ProductID, input.VariantID)
	if err != nil {
		return nil, err
	}
	item.Quantity = input.Quantity

	sess, err := s.open(ctx, owner)
	if err != nil {
		return nil, err
	}
	existing, found := sess.cart.Get(item.ProductID, item.VariantID)
	if !found && sess.cart.Len() >= s.maxLines {
		sess.unsubscribe()
		return nil, pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("cart cannot hold more than %d lines", s.maxLines))
	}
	if found && existing.Quantity+max(item.Quantity, 1) > s.maxQuantity {
		sess.unsubscribe()
		return nil, pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("quantity cannot exceed %d", s.maxQuantity))
	}
	sess.cart.Add(item)
	if err := sess.close(); err != nil {
		return nil, err
	}
	return s.view(owner, sess.cart), nil
}

func (s *service) UpdateItem(ctx context.Context, owner Owner, input UpdateItemInput) (*View, error) {
	if input.Quantity > s.maxQuantity {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("quantity cannot exceed %d", s.maxQuantity))
	}
	sess, err := s.open(ctx, owner)
	if err != nil {
		return nil, err
	}
	if !sess.cart.UpdateQuantity(input.ProductID, input.VariantID, input.Quantity) {
		sess.unsubscribe()
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "cart item not found")
	}
	if err := sess.close(); err != nil {
		return nil, err
	}
	return s.view(owner, sess.cart), nil
}

func (s *service) RemoveItem(ctx context.Context, owner Owner, productID uuid.UUID, variantID *uuid.UUID) (*View, error) {
	sess, err := s.open(ctx, owner)
	if err != nil {
		return nil, err
	}
	if !sess.cart.Remove(productID, variantID) {
		sess.unsubscribe()
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "cart item not found")
	}
	if err := sess.close(); err != nil {
		return nil, err
	}
	return s.view(owner, sess.cart), nil
}

func (s *service) Clear(ctx context.Context, owner Owner) (*View, error) {
	sess, err := s.open(ctx, owner)
	if err != nil {
		return nil, err
	}
	sess.cart.Clear()
	if err := sess.close(); err != nil {
		return nil, err
	}
	return s.view(owner, sess.cart), nil
}

// Merge folds a guest cart into the user's cart after sign-in. Quantities
// of shared lines are summed and capped at the per-line maximum; the guest
// cart is deleted afterwards.
func (s *service) Merge(ctx context.Context, guestToken string, userID uuid.UUID) (*View, error) {
	userOwner := Owner{UserID: userID}
	if userID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "user id is required")
	}
	if guestToken == "" {
		return s.Get(ctx, userOwner)
	}
	guestOwner := Owner{GuestToken: guestToken}
	guestItems, err := s.guests.Load(ctx, guestOwner)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load guest cart")
	}
	if len(guestItems) == 0 {
		return s.Get(ctx, userOwner)
	}

	userItems, err := s.users.Load(ctx, userOwner)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load cart")
	}
	merged := New(userItems...)
	for _, item := range guestItems {
		if _, found := merged.Get(item.ProductID, item.VariantID); !found && merged.Len() >= s.maxLines {
			continue
		}
		merged.Add(item)
		if line, _ := merged.Get(item.ProductID, item.VariantID); line.Quantity > s.maxQuantity {
			merged.UpdateQuantity(item.ProductID, item.VariantID, s.maxQuantity)
		}
	}
	if err := s.users.Save(ctx, userOwner, merged.Items()); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "save cart")
	}
	if err := s.guests.Delete(ctx, guestOwner); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "delete guest cart")
	}
	return s.view(userOwner, merged), nil
}

func (s *service) resolveItem(ctx context.Context, productID uuid.UUID, variantID *uuid.UUID) (Item, error) {
	product, err := s.products.GetProduct(ctx, productID)
	if err != nil {
		if typed := pkgerrors.As(err); typed != nil && typed.Code() == pkgerrors.CodeNotFound {
			return Item{}, pkgerrors.New(pkgerrors.CodeValidation, "product is unavailable")
		}
		return Item{}, err
	}
	if product == nil || !product.IsActive {
		return Item{}, pkgerrors.New(pkgerrors.CodeValidation, "product is unavailable")
	}

	item := Item{ProductID: product.ID, Name: product.Name, Slug: product.Slug}
	var variant *models.ProductVariant
	if variantID != nil {
		v, ok := product.Variant(*variantID)
		if !ok {
			return Item{}, pkgerrors.New(pkgerrors.CodeValidation, "variant is unavailable")
		}
		variant = v
		id := v.ID
		name := v.Name
		item.VariantID = &id
		item.VariantName = &name
	}
	item.UnitPrice = product.EffectivePrice(variant)
	return item, nil
}

// View is the API representation of a cart with computed totals.
type View struct {
	GuestToken string         `json:"guest_token,omitempty"`
	Items      []ItemView     `json:"items"`
	ItemCount  int            `json:"item_count"`
	Totals     pricing.Totals `json:"totals"`
	Formatted  FormattedTotal `json:"formatted"`
}

// ItemView is a line with its computed subtotal.
type ItemView struct {
	Item
	Subtotal          decimal.Decimal `json:"subtotal"`
	FormattedPrice    string          `json:"formatted_price"`
	FormattedSubtotal string          `json:"formatted_subtotal"`
}

// FormattedTotal carries display strings for each total.
type FormattedTotal struct {
	Subtotal string `json:"subtotal"`
	Tax      string `json:"tax"`
	Shipping string `json:"shipping"`
	Discount string `json:"discount"`
	Total    string `json:"total"`
}

func (s *service) view(owner Owner, c *Cart) *View {
	items := c.Items()
	out := &View{Items: make([]ItemView, 0, len(items))}
	if !owner.IsUser() {
		out.GuestToken = owner.GuestToken
	}
	for _, item := range items {
		subtotal := pricing.LineTotal(item.UnitPrice, item.Quantity)
		out.Items = append(out.Items, ItemView{
			Item:              item,
			Subtotal:          subtotal,
			FormattedPrice:    format.FormatCurrency(item.UnitPrice),
			FormattedSubtotal: format.FormatCurrency(subtotal),
		})
		out.ItemCount += item.Quantity
	}
	out.Totals = c.Totals(s.calc)
	out.Formatted = FormatTotals(out.Totals)
	return out
}

// FormatTotals renders every total as a rupee string.
func FormatTotals(t pricing.Totals) FormattedTotal {
	return FormattedTotal{
		Subtotal: format.FormatCurrency(t.Subtotal),
		Tax:      format.FormatCurrency(t.Tax),
		Shipping: format.FormatCurrency(t.Shipping),
		Discount: format.FormatCurrency(t.Discount),
		Total:    format.FormatCurrency(t.Total),
	}
}

// NewGuestToken issues an opaque token for a new guest cart.
func NewGuestToken() string {
	return uuid.NewString()
}
