package users

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/freightdesk/freightdesk-backend/internal/dbtest"
	"github.com/freightdesk/freightdesk-backend/pkg/enums"
)

func TestRepositoryCreateAndFind(t *testing.T) {
	repo := NewRepository(dbtest.Open(t))
	ctx := context.Background()

	created, err := repo.Create(ctx, CreateUserDTO{
		Email:        "  Ops@FreightDesk.in ",
		PasswordHash: "hash",
		Name:         " Ops Desk ",
		Role:         enums.UserRoleAdmin,
	})
	require.NoError(t, err)
	require.NotEqual(t, uuid.Nil, created.ID)
	require.Equal(t, "ops@freightdesk.in", created.Email)
	require.True(t, created.IsActive)

	byEmail, err := repo.FindByEmail(ctx, "OPS@freightdesk.in")
	require.NoError(t, err)
	require.Equal(t, created.ID, byEmail.ID)
	require.Equal(t, "Ops Desk", byEmail.Name)

	_, err = repo.FindByID(ctx, uuid.New())
	require.ErrorIs(t, err, gorm.ErrRecordNotFound)

	at := time.Date(2024, 4, 1, 10, 0, 0, 0, time.UTC)
	require.NoError(t, repo.UpdateLastLogin(ctx, created.ID, at))
	byID, err := repo.FindByID(ctx, created.ID)
	require.NoError(t, err)
	require.NotNil(t, byID.LastLoginAt)
	require.True(t, at.Equal(*byID.LastLoginAt))

	dto := FromModel(byID)
	require.Equal(t, enums.UserRoleAdmin, dto.Role)
	require.Nil(t, FromModel(nil))
}
