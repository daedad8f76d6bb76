package users

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"

	pkgerrors "github.com/angelmondragon/storefront-backend/pkg/errors"
)

// Service exposes profile reads and edits for the signed-in user.
type Service interface {
	GetProfile(ctx context.Context, userID uuid.UUID) (*UserDTO, error)
	UpdateProfile(ctx context.Context, userID uuid.UUID, input UpdateProfileInput) (*UserDTO, error)
}

// UpdateProfileInput lists the editable profile fields; nil means unchanged.
type UpdateProfileInput struct {
	FirstName *string
	LastName  *string
	Phone     *string
}

type service struct {
	repo *Repository
}

// NewService builds the profile service.
func NewService(repo *Repository) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("users repository required")
	}
	return &service{repo: repo}, nil
}

func (s *service) GetProfile(ctx context.Context, userID uuid.UUID) (*UserDTO, error) {
	user, err := s.repo.FindByID(ctx, userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "user not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load user")
	}
	return FromModel(user), nil
}

func (s *service) UpdateProfile(ctx context.Context, userID uuid.UUID, input UpdateProfileInput) (*UserDTO, error) {
	fields := map[string]any{}
	if input.FirstName != nil {
		v := strings.TrimSpace(*input.FirstName)
		if v == "" {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "first_name cannot be empty")
		}
		fields["first_name"] = v
	}
	if input.LastName != nil {
		fields["last_name"] = strings.TrimSpace(*input.LastName)
	}
	if input.Phone != nil {
		if v := strings.TrimSpace(*input.Phone); v == "" {
			fields["phone"] = nil
		} else {
			fields["phone"] = v
		}
	}
	if _, err := s.GetProfile(ctx, userID); err != nil {
		return nil, err
	}
	if err := s.repo.UpdateProfile(ctx, userID, fields); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update profile")
	}
	return s.GetProfile(ctx, userID)
}
