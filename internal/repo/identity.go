package repo

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"

	"github.com/Skotchmaster/staffhub/internal/models"
	"github.com/Skotchmaster/staffhub/internal/rbac"
)

var (
	ErrNotFound       = errors.New("identity not found")
	ErrDuplicateEmail = errors.New("email already in use")
)

// GormRepo is the identity directory. Every query goes through the default
// gorm scope, so soft-deleted rows are never returned or updated.
type GormRepo struct {
	DB *gorm.DB
}

// IdentityUpdate is a partial update; nil fields are left untouched.
type IdentityUpdate struct {
	Email        *string
	Name         *string
	PasswordHash *string
	Roles        []rbac.Role
	IsActive     *bool
}

func (r *GormRepo) FindIdentityByEmail(ctx context.Context, email string) (*models.Identity, error) {
	var identity models.Identity
	if err := r.DB.WithContext(ctx).Where("email = ?", email).First(&identity).Error; err != nil {
		return nil, notFound(err)
	}
	return &identity, nil
}

func (r *GormRepo) FindIdentityByID(ctx context.Context, id string) (*models.Identity, error) {
	var identity models.Identity
	if err := r.DB.WithContext(ctx).Where("id = ?", id).First(&identity).Error; err != nil {
		return nil, notFound(err)
	}
	return &identity, nil
}

// ListIdentities returns the live identities of one company, or of every
// company when companyID is empty.
func (r *GormRepo) ListIdentities(ctx context.Context, companyID string) ([]models.Identity, error) {
	var out []models.Identity
	q := r.DB.WithContext(ctx).Order("created_at asc")
	if companyID != "" {
		q = q.Where("company_id = ?", companyID)
	}
	if err := q.Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

func (r *GormRepo) CreateIdentity(ctx context.Context, identity *models.Identity) error {
	taken, err := r.emailTaken(r.DB.WithContext(ctx), identity.Email, "")
	if err != nil {
		return err
	}
	if taken {
		return ErrDuplicateEmail
	}
	if err := r.DB.WithContext(ctx).Create(identity).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return ErrDuplicateEmail
		}
		return err
	}
	return nil
}

func (r *GormRepo) UpdateIdentity(ctx context.Context, id string, upd IdentityUpdate) (*models.Identity, error) {
	values := models.Identity{UpdatedAt: time.Now().UTC()}
	cols := []string{"updated_at"}

	if upd.Email != nil {
		taken, err := r.emailTaken(r.DB.WithContext(ctx), *upd.Email, id)
		if err != nil {
			return nil, err
		}
		if taken {
			return nil, ErrDuplicateEmail
		}
		values.Email = *upd.Email
		cols = append(cols, "email")
	}
	if upd.Name != nil {
		values.Name = upd.Name
		cols = append(cols, "name")
	}
	if upd.PasswordHash != nil {
		values.PasswordHash = *upd.PasswordHash
		cols = append(cols, "password_hash")
	}
	if upd.Roles != nil {
		values.Roles = upd.Roles
		cols = append(cols, "roles")
	}
	if upd.IsActive != nil {
		values.IsActive = *upd.IsActive
		cols = append(cols, "is_active")
	}

	res := r.DB.WithContext(ctx).Model(&models.Identity{}).
		Where("id = ?", id).
		Select(cols).
		Updates(&values)
	if res.Error != nil {
		if errors.Is(res.Error, gorm.ErrDuplicatedKey) {
			return nil, ErrDuplicateEmail
		}
		return nil, res.Error
	}
	if res.RowsAffected == 0 {
		return nil, ErrNotFound
	}
	return r.FindIdentityByID(ctx, id)
}

// SetRefreshSession overwrites the session slot in a single UPDATE, so the
// previous refresh token stops verifying as soon as this commits.
func (r *GormRepo) SetRefreshSession(ctx context.Context, id, tokenHash string, expiresAt time.Time) error {
	exp := expiresAt.UTC()
	res := r.DB.WithContext(ctx).Model(&models.Identity{}).
		Where("id = ?", id).
		Select("refresh_token_hash", "refresh_token_expires_at", "updated_at").
		Updates(&models.Identity{
			RefreshTokenHash:      &tokenHash,
			RefreshTokenExpiresAt: &exp,
			UpdatedAt:             time.Now().UTC(),
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// ClearRefreshSession is idempotent: clearing an empty slot or a missing
// identity is not an error.
func (r *GormRepo) ClearRefreshSession(ctx context.Context, id string) error {
	return r.DB.WithContext(ctx).Model(&models.Identity{}).
		Where("id = ?", id).
		Select("refresh_token_hash", "refresh_token_expires_at", "updated_at").
		Updates(&models.Identity{UpdatedAt: time.Now().UTC()}).Error
}

// SoftDeleteIdentity deactivates the identity, drops its session and marks it
// deleted in one transaction.
func (r *GormRepo) SoftDeleteIdentity(ctx context.Context, id string) (*models.Identity, error) {
	var identity models.Identity
	err := r.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("id = ?", id).First(&identity).Error; err != nil {
			return notFound(err)
		}
		if err := tx.Model(&identity).
			Select("is_active", "refresh_token_hash", "refresh_token_expires_at").
			Updates(&models.Identity{IsActive: false}).Error; err != nil {
			return err
		}
		return tx.Delete(&identity).Error
	})
	if err != nil {
		return nil, err
	}
	identity.IsActive = false
	identity.RefreshTokenHash = nil
	identity.RefreshTokenExpiresAt = nil
	return &identity, nil
}

// emailTaken looks at deleted rows too: the unique index covers them.
func (r *GormRepo) emailTaken(db *gorm.DB, email, exceptID string) (bool, error) {
	var count int64
	q := db.Unscoped().Model(&models.Identity{}).Where("email = ?", email)
	if exceptID != "" {
		q = q.Where("id <> ?", exceptID)
	}
	if err := q.Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}

func notFound(err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return ErrNotFound
	}
	return err
}
