package service

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"time"

	"github.com/Skotchmaster/staffhub/internal/events"
	"github.com/Skotchmaster/staffhub/internal/hash"
	"github.com/Skotchmaster/staffhub/internal/logging"
	"github.com/Skotchmaster/staffhub/internal/models"
	"github.com/Skotchmaster/staffhub/internal/rbac"
	"github.com/Skotchmaster/staffhub/internal/repo"
	"github.com/Skotchmaster/staffhub/internal/tenant"
)

// DirectoryStore adds the administrative operations on top of IdentityStore.
type DirectoryStore interface {
	IdentityStore
	ListIdentities(ctx context.Context, companyID string) ([]models.Identity, error)
	SoftDeleteIdentity(ctx context.Context, id string) (*models.Identity, error)
}

// AuditReader reads back the session events indexed for an identity.
type AuditReader interface {
	History(ctx context.Context, identityID string, from, size int) (int64, []events.Event, error)
}

// UserService administers the identity directory on behalf of an
// authenticated principal. Role checks happen in the HTTP guards; tenant
// checks happen here, on every row.
type UserService struct {
	Repo   DirectoryStore
	Hasher *hash.Hasher
	Events events.Publisher
	Audit  AuditReader
}

type CreateUserInput struct {
	Email     string
	Password  string
	Name      *string
	Roles     []rbac.Role
	CompanyID *string
}

type UpdateUserInput struct {
	Email    *string
	Name     *string
	Roles    []rbac.Role
	Password *string
	IsActive *bool
}

func (s *UserService) List(ctx context.Context, p Principal) ([]models.PublicIdentity, error) {
	companyID := p.TenantID
	if p.IsSuperAdmin() {
		companyID = ""
	}
	list, err := s.Repo.ListIdentities(ctx, companyID)
	if err != nil {
		logging.FromContext(ctx).Error("list_users_failed", "status", 500, "error", err)
		return nil, ErrInternal
	}
	out := make([]models.PublicIdentity, 0, len(list))
	for i := range list {
		out = append(out, list[i].Public())
	}
	return out, nil
}

func (s *UserService) Get(ctx context.Context, id string, p Principal) (*models.PublicIdentity, error) {
	identity, err := s.load(ctx, id, p)
	if err != nil {
		return nil, err
	}
	pub := identity.Public()
	return &pub, nil
}

func (s *UserService) Create(ctx context.Context, in CreateUserInput, p Principal) (*models.PublicIdentity, error) {
	l := logging.FromContext(ctx).With("svc", "users.create", "actor_id", p.IdentityID)

	companyID, err := tenant.ResolveWriteTenant(in.CompanyID, p.TenantID, p.IsSuperAdmin())
	if err != nil {
		l.Warn("create_user_failed", "status", 403, "reason", "foreign company")
		return nil, ErrForbidden
	}
	if err := validateTenantID(companyID); err != nil {
		return nil, err
	}
	email, err := normalizeEmail(in.Email)
	if err != nil {
		return nil, err
	}
	if err := validatePassword(in.Password); err != nil {
		return nil, err
	}

	roles, err := s.grantableRoles(in.Roles, p)
	if err != nil {
		l.Warn("create_user_failed", "status", 403, "reason", "cannot grant role")
		return nil, err
	}
	if len(roles) == 0 {
		roles = []rbac.Role{rbac.DefaultRole}
	}

	pwHash, err := s.Hasher.Hash(in.Password)
	if err != nil {
		l.Error("create_user_failed", "status", 500, "reason", "cannot hash the password", "error", err)
		return nil, ErrInternal
	}

	identity := &models.Identity{
		Email:        email,
		Name:         in.Name,
		PasswordHash: pwHash,
		Roles:        roles,
		CompanyID:    companyID,
		IsActive:     true,
	}
	if err := s.Repo.CreateIdentity(ctx, identity); err != nil {
		if errors.Is(err, repo.ErrDuplicateEmail) {
			l.Warn("create_user_failed", "status", 409, "reason", "user_exists")
			return nil, ErrConflict
		}
		l.Error("create_user_failed", "status", 500, "reason", "db_error", "error", err)
		return nil, ErrInternal
	}
	s.publish(ctx, events.IdentityRegistered, identity, "admin_create")

	l.Info("user_created", "identity_id", identity.ID, "company_id", identity.CompanyID)
	pub := identity.Public()
	return &pub, nil
}

func (s *UserService) Update(ctx context.Context, id string, in UpdateUserInput, p Principal) (*models.PublicIdentity, error) {
	l := logging.FromContext(ctx).With("svc", "users.update", "actor_id", p.IdentityID)

	target, err := s.load(ctx, id, p)
	if err != nil {
		return nil, err
	}
	// A super admin reaches every company, so only another one may touch it.
	if rbac.IsSuperAdmin(target.Roles) && !p.IsSuperAdmin() {
		l.Warn("update_user_failed", "status", 403, "reason", "target is super admin", "identity_id", id)
		return nil, ErrForbidden
	}

	var upd repo.IdentityUpdate
	if in.Email != nil {
		email, err := normalizeEmail(*in.Email)
		if err != nil {
			return nil, err
		}
		upd.Email = &email
	}
	upd.Name = in.Name
	if in.Roles != nil {
		roles, err := s.grantableRoles(in.Roles, p)
		if err != nil {
			l.Warn("update_user_failed", "status", 403, "reason", "cannot grant role", "identity_id", id)
			return nil, err
		}
		if len(roles) == 0 {
			return nil, fmt.Errorf("%w: roles cannot be empty", ErrValidation)
		}
		upd.Roles = roles
	}
	if in.Password != nil {
		if err := validatePassword(*in.Password); err != nil {
			return nil, err
		}
		pwHash, err := s.Hasher.Hash(*in.Password)
		if err != nil {
			l.Error("update_user_failed", "status", 500, "reason", "cannot hash the password", "error", err)
			return nil, ErrInternal
		}
		upd.PasswordHash = &pwHash
	}
	upd.IsActive = in.IsActive

	updated, err := s.Repo.UpdateIdentity(ctx, id, upd)
	if err != nil {
		switch {
		case errors.Is(err, repo.ErrDuplicateEmail):
			return nil, ErrConflict
		case errors.Is(err, repo.ErrNotFound):
			return nil, ErrNotFound
		}
		l.Error("update_user_failed", "status", 500, "reason", "db_error", "error", err)
		return nil, ErrInternal
	}

	l.Info("user_updated", "identity_id", id)
	pub := updated.Public()
	return &pub, nil
}

// Remove soft-deletes the identity. Its refresh session goes with it, so the
// identity is logged out everywhere once access tokens are next validated.
func (s *UserService) Remove(ctx context.Context, id string, p Principal) (*models.PublicIdentity, error) {
	l := logging.FromContext(ctx).With("svc", "users.remove", "actor_id", p.IdentityID)

	if _, err := s.load(ctx, id, p); err != nil {
		return nil, err
	}
	removed, err := s.Repo.SoftDeleteIdentity(ctx, id)
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return nil, ErrNotFound
		}
		l.Error("remove_user_failed", "status", 500, "reason", "db_error", "error", err)
		return nil, ErrInternal
	}
	s.publish(ctx, events.SessionRevoked, removed, "identity_removed")

	l.Info("user_removed", "identity_id", id)
	pub := removed.Public()
	return &pub, nil
}

// Activity pages through the audit trail of one identity. It is only
// available when an audit index is configured.
func (s *UserService) Activity(ctx context.Context, id string, from, size int, p Principal) (int64, []events.Event, error) {
	if s.Audit == nil {
		return 0, nil, ErrNotFound
	}
	if _, err := s.load(ctx, id, p); err != nil {
		return 0, nil, err
	}
	total, evs, err := s.Audit.History(ctx, id, from, size)
	if err != nil {
		logging.FromContext(ctx).Error("activity_failed", "status", 500, "identity_id", id, "error", err)
		return 0, nil, ErrInternal
	}
	return total, evs, nil
}

// load returns NotFound only for rows that do not exist; a row in another
// company is Forbidden.
func (s *UserService) load(ctx context.Context, id string, p Principal) (*models.Identity, error) {
	identity, err := s.Repo.FindIdentityByID(ctx, id)
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return nil, ErrNotFound
		}
		logging.FromContext(ctx).Error("load_user_failed", "status", 500, "error", err)
		return nil, ErrInternal
	}
	if !tenant.CanAccess(p.TenantID, identity.CompanyID, p.IsSuperAdmin()) {
		logging.FromContext(ctx).Warn("access_denied", "status", 403, "identity_id", id, "actor_id", p.IdentityID)
		return nil, ErrForbidden
	}
	return identity, nil
}

func (s *UserService) grantableRoles(roles []rbac.Role, p Principal) ([]rbac.Role, error) {
	for _, r := range roles {
		if !r.Valid() {
			return nil, fmt.Errorf("%w: unknown role %q", ErrValidation, r)
		}
	}
	roles = rbac.Normalize(roles)
	if slices.Contains(roles, rbac.SuperAdmin) && !p.IsSuperAdmin() {
		return nil, ErrForbidden
	}
	return roles, nil
}

func (s *UserService) publish(ctx context.Context, typ events.Type, identity *models.Identity, reason string) {
	if s.Events == nil {
		return
	}
	ctx, cancel := context.WithTimeout(ctx, eventTimeout)
	defer cancel()

	err := s.Events.Publish(ctx, events.Event{
		Type:       typ,
		IdentityID: identity.ID,
		TenantID:   identity.CompanyID,
		Reason:     reason,
		OccurredAt: time.Now().UTC(),
	})
	if err != nil {
		logging.FromContext(ctx).Error("event_publish_failed", "type", typ, "identity_id", identity.ID, "error", err)
	}
}
