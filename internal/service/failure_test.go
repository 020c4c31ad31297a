package service

import (
	"context"
	"errors"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/Skotchmaster/staffhub/internal/events"
	"github.com/Skotchmaster/staffhub/internal/metrics"
	"github.com/Skotchmaster/staffhub/internal/rbac"
	"github.com/Skotchmaster/staffhub/internal/repo"
	"github.com/Skotchmaster/staffhub/internal/tokens"
)

func brokenRepo(t *testing.T) (*repo.GormRepo, sqlmock.Sqlmock) {
	t.Helper()
	sqlDB, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { _ = sqlDB.Close() })

	gdb, err := gorm.Open(postgres.New(postgres.Config{Conn: sqlDB}), &gorm.Config{
		Logger:                 logger.Default.LogMode(logger.Silent),
		SkipDefaultTransaction: true,
		DisableAutomaticPing:   true,
	})
	require.NoError(t, err)
	return &repo.GormRepo{DB: gdb}, mock
}

func TestAuthService_StoreFailureIsInternal(t *testing.T) {
	t.Parallel()

	r, mock := brokenRepo(t)
	codec := testCodec(t)
	rec := &events.Recorder{}
	svc := &AuthService{
		Repo:    r,
		Hasher:  testHasher(t),
		Tokens:  codec,
		Events:  rec,
		Metrics: metrics.NewAuth(prometheus.NewRegistry()),
	}
	ctx := context.Background()

	mock.ExpectQuery(`SELECT .* FROM "identities"`).WillReturnError(errors.New("db down"))
	_, err := svc.Login(ctx, "a@example.com", testPassword)
	assert.ErrorIs(t, err, ErrInternal)
	assert.NotErrorIs(t, err, ErrUnauthorized)

	access, err := codec.SignAccess(tokens.Identity{
		Subject:  "8b0c7c0e-0000-4000-8000-000000000001",
		Email:    "a@example.com",
		Roles:    []rbac.Role{rbac.Employee},
		TenantID: "8b0c7c0e-0000-4000-8000-000000000002",
	})
	require.NoError(t, err)
	mock.ExpectQuery(`SELECT .* FROM "identities"`).WillReturnError(errors.New("db down"))
	_, err = svc.ValidateAccessToken(ctx, access)
	assert.ErrorIs(t, err, ErrInternal)

	assert.Empty(t, rec.Types())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUserService_StoreFailureIsInternal(t *testing.T) {
	t.Parallel()

	r, mock := brokenRepo(t)
	svc := &UserService{Repo: r, Hasher: testHasher(t), Events: &events.Recorder{}}
	p := Principal{IdentityID: "x", TenantID: "t", Roles: []rbac.Role{rbac.Admin}}

	mock.ExpectQuery(`SELECT .* FROM "identities"`).WillReturnError(errors.New("db down"))
	_, err := svc.List(context.Background(), p)
	assert.ErrorIs(t, err, ErrInternal)

	mock.ExpectQuery(`SELECT .* FROM "identities"`).WillReturnError(errors.New("db down"))
	_, err = svc.Get(context.Background(), "8b0c7c0e-0000-4000-8000-000000000001", p)
	assert.ErrorIs(t, err, ErrInternal)

	assert.NoError(t, mock.ExpectationsWereMet())
}
