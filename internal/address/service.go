package address

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/storefront-backend/pkg/db"
	"github.com/angelmondragon/storefront-backend/pkg/db/models"
	pkgerrors "github.com/angelmondragon/storefront-backend/pkg/errors"
)

const defaultCountry = "IN"

var indianPIN = regexp.MustCompile(`^[1-9][0-9]{5}$`)

// Service manages a customer's saved shipping addresses.
type Service interface {
	List(ctx context.Context, userID uuid.UUID) ([]AddressDTO, error)
	Get(ctx context.Context, userID, id uuid.UUID) (*AddressDTO, error)
	Create(ctx context.Context, userID uuid.UUID, input Input) (*AddressDTO, error)
	Update(ctx context.Context, userID, id uuid.UUID, input Input) (*AddressDTO, error)
	Delete(ctx context.Context, userID, id uuid.UUID) error
	SetDefault(ctx context.Context, userID, id uuid.UUID) (*AddressDTO, error)
}

type service struct {
	repo     *Repository
	dbClient *db.Client
}

// NewService wires the address service.
func NewService(repo *Repository, dbClient *db.Client) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("address repository required")
	}
	if dbClient == nil {
		return nil, fmt.Errorf("db client required")
	}
	return &service{repo: repo, dbClient: dbClient}, nil
}

func (s *service) List(ctx context.Context, userID uuid.UUID) ([]AddressDTO, error) {
	rows, err := s.repo.ListByUser(ctx, userID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list addresses")
	}
	out := make([]AddressDTO, 0, len(rows))
	for _, row := range rows {
		out = append(out, fromModel(row))
	}
	return out, nil
}

func (s *service) Get(ctx context.Context, userID, id uuid.UUID) (*AddressDTO, error) {
	row, err := s.repo.FindForUser(ctx, userID, id)
	if err != nil {
		return nil, notFoundOr(err, "load address")
	}
	dto := fromModel(*row)
	return &dto, nil
}

// Create saves a new address. The first address of a user always becomes the default.
func (s *service) Create(ctx context.Context, userID uuid.UUID, input Input) (*AddressDTO, error) {
	input, err := normalize(input)
	if err != nil {
		return nil, err
	}

	row := &models.Address{UserID: userID}
	apply(row, input)

	err = s.dbClient.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		count, err := repo.CountByUser(ctx, userID)
		if err != nil {
			return err
		}
		if count == 0 {
			row.IsDefault = true
		}
		if row.IsDefault && count > 0 {
			if err := repo.ClearDefault(ctx, userID); err != nil {
				return err
			}
		}
		return repo.Create(ctx, row)
	})
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create address")
	}
	dto := fromModel(*row)
	return &dto, nil
}

func (s *service) Update(ctx context.Context, userID, id uuid.UUID, input Input) (*AddressDTO, error) {
	input, err := normalize(input)
	if err != nil {
		return nil, err
	}

	var row *models.Address
	err = s.dbClient.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		found, err := repo.FindForUser(ctx, userID, id)
		if err != nil {
			return notFoundOr(err, "load address")
		}
		wasDefault := found.IsDefault
		apply(found, input)
		// a default address stays default until another one is promoted
		if wasDefault {
			found.IsDefault = true
		}
		if found.IsDefault && !wasDefault {
			if err := repo.ClearDefault(ctx, userID); err != nil {
				return err
			}
		}
		if err := repo.Save(ctx, found); err != nil {
			return err
		}
		row = found
		return nil
	})
	if err != nil {
		return nil, wrap(err, "update address")
	}
	dto := fromModel(*row)
	return &dto, nil
}

// Delete removes the address and promotes the newest remaining one when the default was removed.
func (s *service) Delete(ctx context.Context, userID, id uuid.UUID) error {
	err := s.dbClient.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		found, err := repo.FindForUser(ctx, userID, id)
		if err != nil {
			return notFoundOr(err, "load address")
		}
		if _, err := repo.Delete(ctx, userID, id); err != nil {
			return err
		}
		if !found.IsDefault {
			return nil
		}
		next, err := repo.Newest(ctx, userID)
		if err != nil || next == nil {
			return err
		}
		return repo.MarkDefault(ctx, userID, next.ID)
	})
	return wrap(err, "delete address")
}

func (s *service) SetDefault(ctx context.Context, userID, id uuid.UUID) (*AddressDTO, error) {
	var row *models.Address
	err := s.dbClient.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		found, err := repo.FindForUser(ctx, userID, id)
		if err != nil {
			return notFoundOr(err, "load address")
		}
		if err := repo.ClearDefault(ctx, userID); err != nil {
			return err
		}
		if err := repo.MarkDefault(ctx, userID, id); err != nil {
			return err
		}
		found.IsDefault = true
		row = found
		return nil
	})
	if err != nil {
		return nil, wrap(err, "set default address")
	}
	dto := fromModel(*row)
	return &dto, nil
}

func normalize(input Input) (Input, error) {
	input.FullName = strings.TrimSpace(input.FullName)
	input.Phone = strings.TrimSpace(input.Phone)
	input.Line1 = strings.TrimSpace(input.Line1)
	input.City = strings.TrimSpace(input.City)
	input.State = strings.TrimSpace(input.State)
	input.PostalCode = strings.TrimSpace(input.PostalCode)
	input.Country = strings.ToUpper(strings.TrimSpace(input.Country))
	if input.Country == "" {
		input.Country = defaultCountry
	}
	if input.Line2 != nil {
		line2 := strings.TrimSpace(*input.Line2)
		if line2 == "" {
			input.Line2 = nil
		} else {
			input.Line2 = &line2
		}
	}

	switch {
	case input.FullName == "":
		return input, pkgerrors.New(pkgerrors.CodeValidation, "full_name is required")
	case input.Phone == "":
		return input, pkgerrors.New(pkgerrors.CodeValidation, "phone is required")
	case input.Line1 == "":
		return input, pkgerrors.New(pkgerrors.CodeValidation, "line1 is required")
	case input.City == "":
		return input, pkgerrors.New(pkgerrors.CodeValidation, "city is required")
	case input.State == "":
		return input, pkgerrors.New(pkgerrors.CodeValidation, "state is required")
	case input.PostalCode == "":
		return input, pkgerrors.New(pkgerrors.CodeValidation, "postal_code is required")
	}
	if input.Country == defaultCountry && !indianPIN.MatchString(input.PostalCode) {
		return input, pkgerrors.New(pkgerrors.CodeValidation, "postal_code must be a 6 digit PIN code")
	}
	return input, nil
}

func apply(row *models.Address, input Input) {
	row.Label = input.Label
	row.FullName = input.FullName
	row.Phone = input.Phone
	row.Line1 = input.Line1
	row.Line2 = input.Line2
	row.City = input.City
	row.State = input.State
	row.PostalCode = input.PostalCode
	row.Country = input.Country
	row.IsDefault = input.IsDefault
}

func notFoundOr(err error, op string) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return pkgerrors.New(pkgerrors.CodeNotFound, "address not found")
	}
	return pkgerrors.Wrap(pkgerrors.CodeDependency, err, op)
}

func wrap(err error, op string) error {
	if err == nil {
		return nil
	}
	if typed := pkgerrors.As(err); typed != nil {
		return typed
	}
	return pkgerrors.Wrap(pkgerrors.CodeDependency, err, op)
}
