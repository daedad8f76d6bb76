package orders

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/angelmondragon/storefront-backend/pkg/db/models"
	"github.com/angelmondragon/storefront-backend/pkg/enums"
	"github.com/angelmondragon/storefront-backend/pkg/format"
	"github.com/angelmondragon/storefront-backend/pkg/pagination"
	"github.com/angelmondragon/storefront-backend/pkg/types"
)

// OrderItemDTO is a captured order line.
type OrderItemDTO struct {
	ID                uuid.UUID       `json:"id"`
	ProductID         *uuid.UUID      `json:"product_id,omitempty"`
	VariantID         *uuid.UUID      `json:"variant_id,omitempty"`
	ProductName       string          `json:"product_name"`
	VariantName       *string         `json:"variant_name,omitempty"`
	Price             decimal.Decimal `json:"price"`
	Quantity          int             `json:"quantity"`
	Subtotal          decimal.Decimal `json:"subtotal"`
	FormattedPrice    string          `json:"formatted_price"`
	FormattedSubtotal string          `json:"formatted_subtotal"`
}

// FormattedAmounts carries display strings for the money fields.
type FormattedAmounts struct {
	Subtotal string `json:"subtotal"`
	Tax      string `json:"tax"`
	Shipping string `json:"shipping"`
	Discount string `json:"discount"`
	Total    string `json:"total"`
}

// OrderDTO is the full order view with items and the address snapshot.
type OrderDTO struct {
	ID               uuid.UUID              `json:"id"`
	OrderNumber      string                 `json:"order_number"`
	UserID           uuid.UUID              `json:"user_id"`
	Status           enums.OrderStatus      `json:"status"`
	PaymentStatus    enums.PaymentStatus    `json:"payment_status"`
	PaymentMethod    enums.PaymentMethod    `json:"payment_method"`
	PaymentProvider  *enums.PaymentProvider `json:"payment_provider,omitempty"`
	GatewayOrderID   *string                `json:"gateway_order_id,omitempty"`
	GatewayPaymentID *string                `json:"gateway_payment_id,omitempty"`
	Currency         string                 `json:"currency"`
	Subtotal         decimal.Decimal        `json:"subtotal"`
	Tax              decimal.Decimal        `json:"tax"`
	ShippingCost     decimal.Decimal        `json:"shipping_cost"`
	Discount         decimal.Decimal        `json:"discount"`
	Total            decimal.Decimal        `json:"total"`
	Formatted        FormattedAmounts       `json:"formatted"`
	ShippingAddress  types.ShippingSnapshot `json:"shipping_address"`
	Notes            *string                `json:"notes,omitempty"`
	Items            []OrderItemDTO         `json:"items"`
	PaidAt           *time.Time             `json:"paid_at,omitempty"`
	CancelledAt      *time.Time             `json:"cancelled_at,omitempty"`
	DeliveredAt      *time.Time             `json:"delivered_at,omitempty"`
	CreatedAt        time.Time              `json:"created_at"`
	UpdatedAt        time.Time              `json:"updated_at"`
}

// OrderSummaryDTO is one row of an order listing.
type OrderSummaryDTO struct {
	ID             uuid.UUID           `json:"id"`
	OrderNumber    string              `json:"order_number"`
	UserID         uuid.UUID           `json:"user_id"`
	Status         enums.OrderStatus   `json:"status"`
	PaymentStatus  enums.PaymentStatus `json:"payment_status"`
	PaymentMethod  enums.PaymentMethod `json:"payment_method"`
	Total          decimal.Decimal     `json:"total"`
	FormattedTotal string              `json:"formatted_total"`
	ItemCount      int                 `json:"item_count"`
	CreatedAt      time.Time           `json:"created_at"`
}

func newOrderDTO(o models.Order) *OrderDTO {
	items := make([]OrderItemDTO, 0, len(o.Items))
	for _, item := range o.Items {
		items = append(items, OrderItemDTO{
			ID:                item.ID,
			ProductID:         item.ProductID,
			VariantID:         item.VariantID,
			ProductName:       item.ProductName,
			VariantName:       item.VariantName,
			Price:             item.Price,
			Quantity:          item.Quantity,
			Subtotal:          item.Subtotal,
			FormattedPrice:    format.FormatCurrency(item.Price),
			FormattedSubtotal: format.FormatCurrency(item.Subtotal),
		})
	}
	return &OrderDTO{
		ID:               o.ID,
		OrderNumber:      o.OrderNumber,
		UserID:           o.UserID,
		Status:           o.Status,
		PaymentStatus:    o.PaymentStatus,
		PaymentMethod:    o.PaymentMethod,
		PaymentProvider:  o.PaymentProvider,
		GatewayOrderID:   o.GatewayOrderID,
		GatewayPaymentID: o.GatewayPaymentID,
		Currency:         o.Currency,
		Subtotal:         o.Subtotal,
		Tax:              o.Tax,
		ShippingCost:     o.ShippingCost,
		Discount:         o.Discount,
		Total:            o.Total,
		Formatted: FormattedAmounts{
			Subtotal: format.FormatCurrency(o.Subtotal),
			Tax:      format.FormatCurrency(o.Tax),
			Shipping: format.FormatCurrency(o.ShippingCost),
			Discount: format.FormatCurrency(o.Discount),
			Total:    format.FormatCurrency(o.Total),
		},
		ShippingAddress: o.ShippingAddress,
		Notes:           o.Notes,
		Items:           items,
		PaidAt:          o.PaidAt,
		CancelledAt:     o.CancelledAt,
		DeliveredAt:     o.DeliveredAt,
		CreatedAt:       o.CreatedAt,
		UpdatedAt:       o.UpdatedAt,
	}
}

func newSummaryDTO(o models.Order) OrderSummaryDTO {
	count := 0
	for _, item := range o.Items {
		count += item.Quantity
	}
	return OrderSummaryDTO{
		ID:             o.ID,
		OrderNumber:    o.OrderNumber,
		UserID:         o.UserID,
		Status:         o.Status,
		PaymentStatus:  o.PaymentStatus,
		PaymentMethod:  o.PaymentMethod,
		Total:          o.Total,
		FormattedTotal: format.FormatCurrency(o.Total),
		ItemCount:      count,
		CreatedAt:      o.CreatedAt,
	}
}

func summaryPage(rows []models.Order, limit int) *pagination.Page[OrderSummaryDTO] {
	summaries := make([]OrderSummaryDTO, 0, len(rows))
	for _, row := range rows {
		summaries = append(summaries, newSummaryDTO(row))
	}
	page := pagination.BuildPage(summaries, limit, func(s OrderSummaryDTO) pagination.Cursor {
		return pagination.Cursor{CreatedAt: s.CreatedAt, ID: s.ID}
	})
	return &page
}
