package repo

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/Skotchmaster/staffhub/internal/models"
)

var errConnReset = errors.New("connection reset by peer")

func newMockRepo(t *testing.T) (*GormRepo, sqlmock.Sqlmock) {
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
	return &GormRepo{DB: gdb}, mock
}

// A broken connection must never look like a missing row.
func TestGormRepo_StoreFailures(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	tests := []struct {
		name   string
		expect func(sqlmock.Sqlmock)
		call   func(*GormRepo) error
	}{
		{
			name:   "find by email",
			expect: func(m sqlmock.Sqlmock) { m.ExpectQuery(`SELECT .* FROM "identities"`).WillReturnError(errConnReset) },
			call: func(r *GormRepo) error {
				_, err := r.FindIdentityByEmail(ctx, "a@example.com")
				return err
			},
		},
		{
			name:   "find by id",
			expect: func(m sqlmock.Sqlmock) { m.ExpectQuery(`SELECT .* FROM "identities"`).WillReturnError(errConnReset) },
			call: func(r *GormRepo) error {
				_, err := r.FindIdentityByID(ctx, "8b0c7c0e-0000-4000-8000-000000000001")
				return err
			},
		},
		{
			name:   "list",
			expect: func(m sqlmock.Sqlmock) { m.ExpectQuery(`SELECT .* FROM "identities"`).WillReturnError(errConnReset) },
			call: func(r *GormRepo) error {
				_, err := r.ListIdentities(ctx, "")
				return err
			},
		},
		{
			name:   "create email check",
			expect: func(m sqlmock.Sqlmock) { m.ExpectQuery(`SELECT count\(\*\) FROM "identities"`).WillReturnError(errConnReset) },
			call: func(r *GormRepo) error {
				return r.CreateIdentity(ctx, &models.Identity{Email: "a@example.com"})
			},
		},
		{
			name:   "set session",
			expect: func(m sqlmock.Sqlmock) { m.ExpectExec(`UPDATE "identities"`).WillReturnError(errConnReset) },
			call: func(r *GormRepo) error {
				return r.SetRefreshSession(ctx, "id", "hash", time.Now().Add(time.Hour))
			},
		},
		{
			name:   "clear session",
			expect: func(m sqlmock.Sqlmock) { m.ExpectExec(`UPDATE "identities"`).WillReturnError(errConnReset) },
			call: func(r *GormRepo) error {
				return r.ClearRefreshSession(ctx, "id")
			},
		},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			r, mock := newMockRepo(t)
			tt.expect(mock)

			err := tt.call(r)
			require.Error(t, err)
			assert.ErrorIs(t, err, errConnReset)
			assert.NotErrorIs(t, err, ErrNotFound)
			assert.NoError(t, mock.ExpectationsWereMet())
		})
	}
}

func TestGormRepo_SetSessionMissingRow(t *testing.T) {
	t.Parallel()

	r, mock := newMockRepo(t)
	mock.ExpectExec(`UPDATE "identities"`).WillReturnResult(sqlmock.NewResult(0, 0))

	err := r.SetRefreshSession(context.Background(), "missing", "hash", time.Now().Add(time.Hour))
	assert.ErrorIs(t, err, ErrNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}
