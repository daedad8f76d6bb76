package address

import (
	"time"

	"github.com/google/uuid"

	"github.com/angelmondragon/storefront-backend/pkg/db/models"
)

// Input is the writable shape of a saved address.
type Input struct {
	Label      *string `json:"label,omitempty"`
	FullName   string  `json:"full_name" validate:"required"`
	Phone      string  `json:"phone" validate:"required"`
	Line1      string  `json:"line1" validate:"required"`
	Line2      *string `json:"line2,omitempty"`
	City       string  `json:"city" validate:"required"`
	State      string  `json:"state" validate:"required"`
	PostalCode string  `json:"postal_code" validate:"required"`
	Country    string  `json:"country,omitempty"`
	IsDefault  bool    `json:"is_default"`
}

// AddressDTO is returned to the account owner.
type AddressDTO struct {
	ID         uuid.UUID `json:"id"`
	Label      *string   `json:"label,omitempty"`
	FullName   string    `json:"full_name"`
	Phone      string    `json:"phone"`
	Line1      string    `json:"line1"`
	Line2      *string   `json:"line2,omitempty"`
	City       string    `json:"city"`
	State      string    `json:"state"`
	PostalCode string    `json:"postal_code"`
	Country    string    `json:"country"`
	IsDefault  bool      `json:"is_default"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

func fromModel(a models.Address) AddressDTO {
	return AddressDTO{
		ID:         a.ID,
		Label:      a.Label,
		FullName:   a.FullName,
		Phone:      a.Phone,
		Line1:      a.Line1,
		Line2:      a.Line2,
		City:       a.City,
		State:      a.State,
		PostalCode: a.PostalCode,
		Country:    a.Country,
		IsDefault:  a.IsDefault,
		CreatedAt:  a.CreatedAt,
		UpdatedAt:  a.UpdatedAt,
	}
}
