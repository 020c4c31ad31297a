package repo

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Skotchmaster/staffhub/internal/db"
	"github.com/Skotchmaster/staffhub/internal/models"
	"github.com/Skotchmaster/staffhub/internal/rbac"
)

func newTestRepo(t *testing.T) *GormRepo {
	t.Helper()
	return &GormRepo{DB: db.OpenTest(t)}
}

func seedIdentity(t *testing.T, r *GormRepo, email, company string) *models.Identity {
	t.Helper()
	identity := &models.Identity{
		Email:        email,
		PasswordHash: "salt:hash",
		Roles:        []rbac.Role{rbac.Employee},
		CompanyID:    company,
		IsActive:     true,
	}
	require.NoError(t, r.CreateIdentity(context.Background(), identity))
	require.NotEmpty(t, identity.ID)
	return identity
}

func TestGormRepo_CreateAndFind(t *testing.T) {
	t.Parallel()

	r := newTestRepo(t)
	ctx := context.Background()
	company := uuid.NewString()
	created := seedIdentity(t, r, "Mixed.Case@example.com", company)

	byEmail, err := r.FindIdentityByEmail(ctx, "Mixed.Case@example.com")
	require.NoError(t, err)
	assert.Equal(t, created.ID, byEmail.ID)
	assert.Equal(t, []rbac.Role{rbac.Employee}, byEmail.Roles)
	assert.True(t, byEmail.IsActive)
	assert.False(t, byEmail.HasRefreshSession())

	byID, err := r.FindIdentityByID(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, "Mixed.Case@example.com", byID.Email)
	assert.Equal(t, company, byID.CompanyID)

	_, err = r.FindIdentityByEmail(ctx, "nobody@example.com")
	assert.ErrorIs(t, err, ErrNotFound)
	_, err = r.FindIdentityByID(ctx, uuid.NewString())
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestGormRepo_CreateDuplicateEmail(t *testing.T) {
	t.Parallel()

	r := newTestRepo(t)
	seedIdentity(t, r, "dup@example.com", uuid.NewString())

	err := r.CreateIdentity(context.Background(), &models.Identity{
		Email:        "dup@example.com",
		PasswordHash: "salt:hash",
		Roles:        []rbac.Role{rbac.Employee},
		CompanyID:    uuid.NewString(),
		IsActive:     true,
	})
	assert.ErrorIs(t, err, ErrDuplicateEmail)
}

func TestGormRepo_RefreshSessionSlot(t *testing.T) {
	t.Parallel()

	r := newTestRepo(t)
	ctx := context.Background()
	identity := seedIdentity(t, r, "session@example.com", uuid.NewString())
	exp := time.Now().Add(time.Hour).UTC().Truncate(time.Second)

	require.NoError(t, r.SetRefreshSession(ctx, identity.ID, "first", exp))
	require.NoError(t, r.SetRefreshSession(ctx, identity.ID, "second", exp))

	got, err := r.FindIdentityByID(ctx, identity.ID)
	require.NoError(t, err)
	require.True(t, got.HasRefreshSession())
	assert.Equal(t, "second", *got.RefreshTokenHash)
	assert.WithinDuration(t, exp, *got.RefreshTokenExpiresAt, time.Second)

	require.NoError(t, r.ClearRefreshSession(ctx, identity.ID))
	require.NoError(t, r.ClearRefreshSession(ctx, identity.ID))
	require.NoError(t, r.ClearRefreshSession(ctx, uuid.NewString()))

	got, err = r.FindIdentityByID(ctx, identity.ID)
	require.NoError(t, err)
	assert.Nil(t, got.RefreshTokenHash)
	assert.Nil(t, got.RefreshTokenExpiresAt)

	err = r.SetRefreshSession(ctx, uuid.NewString(), "x", exp)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestGormRepo_UpdateIdentity(t *testing.T) {
	t.Parallel()

	r := newTestRepo(t)
	ctx := context.Background()
	identity := seedIdentity(t, r, "update@example.com", uuid.NewString())
	seedIdentity(t, r, "taken@example.com", uuid.NewString())

	name := "Jane"
	inactive := false
	updated, err := r.UpdateIdentity(ctx, identity.ID, IdentityUpdate{
		Name:     &name,
		Roles:    []rbac.Role{rbac.Admin, rbac.RH},
		IsActive: &inactive,
	})
	require.NoError(t, err)
	require.NotNil(t, updated.Name)
	assert.Equal(t, "Jane", *updated.Name)
	assert.Equal(t, []rbac.Role{rbac.Admin, rbac.RH}, updated.Roles)
	assert.False(t, updated.IsActive)
	assert.Equal(t, "update@example.com", updated.Email)

	taken := "taken@example.com"
	_, err = r.UpdateIdentity(ctx, identity.ID, IdentityUpdate{Email: &taken})
	assert.ErrorIs(t, err, ErrDuplicateEmail)

	_, err = r.UpdateIdentity(ctx, uuid.NewString(), IdentityUpdate{Name: &name})
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestGormRepo_SoftDelete(t *testing.T) {
	t.Parallel()

	r := newTestRepo(t)
	ctx := context.Background()
	company := uuid.NewString()
	identity := seedIdentity(t, r, "gone@example.com", company)
	seedIdentity(t, r, "stays@example.com", company)
	require.NoError(t, r.SetRefreshSession(ctx, identity.ID, "hash", time.Now().Add(time.Hour)))

	removed, err := r.SoftDeleteIdentity(ctx, identity.ID)
	require.NoError(t, err)
	assert.False(t, removed.IsActive)

	_, err = r.FindIdentityByID(ctx, identity.ID)
	assert.ErrorIs(t, err, ErrNotFound)
	_, err = r.FindIdentityByEmail(ctx, "gone@example.com")
	assert.ErrorIs(t, err, ErrNotFound)

	var raw models.Identity
	require.NoError(t, r.DB.Unscoped().Where("id = ?", identity.ID).First(&raw).Error)
	assert.False(t, raw.IsActive)
	assert.Nil(t, raw.RefreshTokenHash)
	assert.True(t, raw.DeletedAt.Valid)

	list, err := r.ListIdentities(ctx, company)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, "stays@example.com", list[0].Email)

	err = r.SetRefreshSession(ctx, identity.ID, "again", time.Now().Add(time.Hour))
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = r.SoftDeleteIdentity(ctx, identity.ID)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestGormRepo_ListIdentities_AllCompanies(t *testing.T) {
	t.Parallel()

	r := newTestRepo(t)
	seedIdentity(t, r, "a@example.com", uuid.NewString())
	seedIdentity(t, r, "b@example.com", uuid.NewString())

	all, err := r.ListIdentities(context.Background(), "")
	require.NoError(t, err)
	assert.Len(t, all, 2)
}
