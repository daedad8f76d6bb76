package users

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/angelmondragon/storefront-backend/pkg/db/dbtest"
	"github.com/angelmondragon/storefront-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/storefront-backend/pkg/errors"
)

func TestRepositoryCreateNormalizesEmail(t *testing.T) {
	repo := NewRepository(dbtest.Open(t))
	ctx := context.Background()

	user, err := repo.Create(ctx, CreateUserDTO{Email: "  Asha@Example.COM ", PasswordHash: "h", FirstName: "Asha"})
	require.NoError(t, err)
	assert.Equal(t, "asha@example.com", user.Email)
	assert.Equal(t, enums.UserRoleCustomer, user.Role)
	assert.True(t, user.IsActive)

	found, err := repo.FindByEmail(ctx, "ASHA@example.com")
	require.NoError(t, err)
	assert.Equal(t, user.ID, found.ID)
}

func TestProfileUpdate(t *testing.T) {
	repo := NewRepository(dbtest.Open(t))
	svc, err := NewService(repo)
	require.NoError(t, err)
	ctx := context.Background()

	user, err := repo.Create(ctx, CreateUserDTO{Email: "a@b.in", PasswordHash: "h", FirstName: "A", LastName: "B"})
	require.NoError(t, err)

	first, phone := " Asha ", "+919800000000"
	got, err := svc.UpdateProfile(ctx, user.ID, UpdateProfileInput{FirstName: &first, Phone: &phone})
	require.NoError(t, err)
	assert.Equal(t, "Asha", got.FirstName)
	assert.Equal(t, "B", got.LastName)
	require.NotNil(t, got.Phone)
	assert.Equal(t, phone, *got.Phone)

	empty := ""
	got, err = svc.UpdateProfile(ctx, user.ID, UpdateProfileInput{Phone: &empty})
	require.NoError(t, err)
	assert.Nil(t, got.Phone)

	blank := "  "
	_, err = svc.UpdateProfile(ctx, user.ID, UpdateProfileInput{FirstName: &blank})
	assert.Equal(t, pkgerrors.CodeValidation, pkgerrors.CodeOf(err))

	_, err = svc.GetProfile(ctx, uuid.New())
	assert.Equal(t, pkgerrors.CodeNotFound, pkgerrors.CodeOf(err))
}
