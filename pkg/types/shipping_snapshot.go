package types

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"strings"
)

// ShippingSnapshot is the copy of a customer address captured on an order.
// It is stored as JSON so later address edits never rewrite history.
type ShippingSnapshot struct {
	FullName   string  `json:"full_name"`
	Phone      string  `json:"phone"`
	Line1      string  `json:"line1"`
	Line2      *string `json:"line2,omitempty"`
	City       string  `json:"city"`
	State      string  `json:"state"`
	PostalCode string  `json:"postal_code"`
	Country    string  `json:"country"`
}

// Validate checks the fields every shipment label needs.
func (s ShippingSnapshot) Validate() error {
	switch {
	case strings.TrimSpace(s.FullName) == "":
		return fmt.Errorf("shipping snapshot: missing full_name")
	case strings.TrimSpace(s.Line1) == "":
		return fmt.Errorf("shipping snapshot: missing line1")
	case strings.TrimSpace(s.City) == "":
		return fmt.Errorf("shipping snapshot: missing city")
	case strings.TrimSpace(s.PostalCode) == "":
		return fmt.Errorf("shipping snapshot: missing postal_code")
	}
	return nil
}

// Value serializes the snapshot to JSON.
func (s ShippingSnapshot) Value() (driver.Value, error) {
	if s.Country == "" {
		s.Country = "IN"
	}
	return json.Marshal(s)
}

// Scan decodes JSON(B) into the snapshot.
func (s *ShippingSnapshot) Scan(value interface{}) error {
	if value == nil {
		*s = ShippingSnapshot{}
		return nil
	}
	var raw []byte
	switch v := value.(type) {
	case []byte:
		raw = v
	case string:
		raw = []byte(v)
	default:
		return fmt.Errorf("shipping snapshot: unsupported scan type %T", value)
	}
	return json.Unmarshal(raw, s)
}
