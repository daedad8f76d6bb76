package checkout

import (
	"fmt"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	pkgerrors "github.com/angelmondragon/storefront-backend/pkg/errors"
)

// LineInput is one requested order line before catalog resolution.
type LineInput struct {
	ProductID uuid.UUID
	VariantID *uuid.UUID
	Quantity  int
}

// QuantityViolation describes a line whose quantity is out of bounds.
type QuantityViolation struct {
	ProductID    uuid.UUID  `json:"product_id"`
	VariantID    *uuid.UUID `json:"variant_id,omitempty"`
	RequestedQty int        `json:"requested_qty"`
	MaxQty       int        `json:"max_qty,omitempty"`
}

// ValidateLines checks the line count and that every quantity is within
// [1, maxQty]. A zero maxLines or maxQty disables that bound.
func ValidateLines(lines []LineInput, maxLines, maxQty int) error {
	if len(lines) == 0 {
		return pkgerrors.New(pkgerrors.CodeValidation, "order must contain at least one item")
	}
	if maxLines > 0 && len(lines) > maxLines {
		return pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("order cannot contain more than %d lines", maxLines))
	}

	var violations []QuantityViolation
	for _, line := range lines {
		if line.ProductID == uuid.Nil {
			return pkgerrors.New(pkgerrors.CodeValidation, "product id required")
		}
		if line.Quantity < 1 || (maxQty > 0 && line.Quantity > maxQty) {
			violations = append(violations, QuantityViolation{
				ProductID:    line.ProductID,
				VariantID:    line.VariantID,
				RequestedQty: line.Quantity,
				MaxQty:       maxQty,
			})
		}
	}
	if len(violations) == 0 {
		return nil
	}
	return pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("invalid quantity for %d item(s)", len(violations))).WithDetails(map[string]any{
		"violations": violations,
	})
}

// PriceCheck pairs the price a client saw with the current catalog price.
type PriceCheck struct {
	ProductID    uuid.UUID
	VariantID    *uuid.UUID
	ProductName  string
	ClientPrice  *decimal.Decimal
	CatalogPrice decimal.Decimal
}

// PriceChange is reported for every line whose client price went stale.
type PriceChange struct {
	ProductID    uuid.UUID  `json:"product_id"`
	VariantID    *uuid.UUID `json:"variant_id,omitempty"`
	ProductName  string     `json:"product_name,omitempty"`
	ClientPrice  string     `json:"client_price"`
	CurrentPrice string     `json:"current_price"`
}

// ValidatePrices fails with CONFLICT "price changed" when any client supplied
// unit price differs from the catalog. Lines without a client price pass.
func ValidatePrices(checks []PriceCheck) error {
	var changes []PriceChange
	for _, check := range checks {
		if check.ClientPrice == nil {
			continue
		}
		if check.ClientPrice.Round(2).Equal(check.CatalogPrice.Round(2)) {
			continue
		}
		changes = append(changes, PriceChange{
			ProductID:    check.ProductID,
			VariantID:    check.VariantID,
			ProductName:  check.ProductName,
			ClientPrice:  check.ClientPrice.StringFixed(2),
			CurrentPrice: check.CatalogPrice.StringFixed(2),
		})
	}
	if len(changes) == 0 {
		return nil
	}
	return pkgerrors.New(pkgerrors.CodeConflict, "price changed").WithDetails(map[string]any{
		"changes": changes,
	})
}
