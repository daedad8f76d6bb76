package auth

import (
	"context"
	"errors"
	"strings"

	"gorm.io/gorm"

	"github.com/angelmondragon/storefront-backend/internal/users"
	"github.com/angelmondragon/storefront-backend/pkg/config"
	"github.com/angelmondragon/storefront-backend/pkg/db"
	"github.com/angelmondragon/storefront-backend/pkg/db/models"
	"github.com/angelmondragon/storefront-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/storefront-backend/pkg/errors"
	"github.com/angelmondragon/storefront-backend/pkg/security"
)


// RegisterRequest contains the payload required to open a customer account.
type RegisterRequest struct {
	FirstName string  `json:"first_name" validate:"required"`
	LastName  string  `json:"last_name" validate:"required"`
	Email     string  `json:"email" validate:"required,email"`
	Password  string  `json:"password" validate:"required,min=8"`
	Phone     *string `json:"phone,omitempty"`
}

// RegisterService handles account creation.
type RegisterService interface {
	Register(ctx context.Context, req RegisterRequest) (*users.UserDTO, error)
	// EnsureAdmin creates the admin account when it is missing. Used by cmd/migrate seed.
	EnsureAdmin(ctx context.Context, req RegisterRequest) (*users.UserDTO, error)
}

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type registerUserRepository interface {
	FindByEmail(ctx context.Context, email string) (*models.User, error)
	Create(ctx context.Context, dto users.CreateUserDTO) (*models.User, error)
}

// RegisterServiceParams packages the dependencies for the registration flow.
type RegisterServiceParams struct {
	DB             txRunner
	PasswordConfig config.PasswordConfig
	// UsersFor binds a users repository to the running transaction.
	UsersFor func(tx *gorm.DB) registerUserRepository
}

type registerService struct {
	tx          txRunner
	passwordCfg config.PasswordConfig
	usersFor    func(tx *gorm.DB) registerUserRepository
}

// NewRegisterService builds a registration service with the provided dependencies.
func NewRegisterService(params RegisterServiceParams) (RegisterService, error) {
	if params.DB == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "database client required")
	}
	usersFor := params.UsersFor
	if usersFor == nil {
		usersFor = func(tx *gorm.DB) registerUserRepository { return users.NewRepository(tx) }
	}
	return &registerService{
		tx:          params.DB,
		passwordCfg: params.PasswordConfig,
		usersFor:    usersFor,
	}, nil
}

func (s *registerService) Register(ctx context.Context, req RegisterRequest) (*users.UserDTO, error) {
	return s.create(ctx, req, enums.UserRoleCustomer, false)
}

func (s *registerService) EnsureAdmin(ctx context.Context, req RegisterRequest) (*users.UserDTO, error) {
	return s.create(ctx, req, enums.UserRoleAdmin, true)
}

func (s *registerService) create(ctx context.Context, req RegisterRequest, role enums.UserRole, reuse bool) (*users.UserDTO, error) {
	email := users.NormalizeEmail(req.Email)
	if email == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "email is required")
	}
	if strings.TrimSpace(req.FirstName) == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "first_name is required")
	}
	if err := security.CheckPassword(req.Password); err != nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, err.Error())
	}

	passwordHash, err := security.HashPassword(req.Password, s.passwordCfg)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "hash password")
	}

	var created *models.User
	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		userRepo := s.usersFor(tx)

		existing, err := userRepo.FindByEmail(ctx, email)
		switch {
		case err == nil && reuse && existing.Role == role:
			created = existing
			return nil
		case err == nil:
			return pkgerrors.New(pkgerrors.CodeConflict, "email already registered")
		case !errors.Is(err, gorm.ErrRecordNotFound):
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "check user email")
		}

		user, err := userRepo.Create(ctx, users.CreateUserDTO{
			Email:        email,
			PasswordHash: passwordHash,
			FirstName:    strings.TrimSpace(req.FirstName),
			LastName:     strings.TrimSpace(req.LastName),
			Phone:        req.Phone,
			Role:         role,
		})
		if err != nil {
			if db.IsUniqueViolation(err, "") {
				return pkgerrors.New(pkgerrors.CodeConflict, "email already registered")
			}
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "create user")
		}
		created = user
		return nil
	})
	if err != nil {
		return nil, err
	}
	return users.FromModel(created), nil
}
