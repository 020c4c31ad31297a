package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/Skotchmaster/staffhub/internal/events"
	"github.com/Skotchmaster/staffhub/internal/hash"
	"github.com/Skotchmaster/staffhub/internal/logging"
	"github.com/Skotchmaster/staffhub/internal/metrics"
	"github.com/Skotchmaster/staffhub/internal/models"
	"github.com/Skotchmaster/staffhub/internal/rbac"
	"github.com/Skotchmaster/staffhub/internal/repo"
	"github.com/Skotchmaster/staffhub/internal/tokens"
)

// IdentityStore is the narrow persistence contract the auth core needs. Both
// finders must hide soft-deleted identities.
type IdentityStore interface {
	FindIdentityByEmail(ctx context.Context, email string) (*models.Identity, error)
	FindIdentityByID(ctx context.Context, id string) (*models.Identity, error)
	CreateIdentity(ctx context.Context, identity *models.Identity) error
	UpdateIdentity(ctx context.Context, id string, upd repo.IdentityUpdate) (*models.Identity, error)
	SetRefreshSession(ctx context.Context, id, tokenHash string, expiresAt time.Time) error
	ClearRefreshSession(ctx context.Context, id string) error
}

// AuthService owns the refresh session lifecycle of every identity:
// no session -> active -> expired, back to none on logout, and straight to a
// new active session on every login or refresh.
type AuthService struct {
	Repo    IdentityStore
	Hasher  *hash.Hasher
	Tokens  *tokens.Codec
	Events  events.Publisher
	Metrics *metrics.Auth
	Now     func() time.Time
}

type RegisterInput struct {
	Email    string
	Password string
	Name     *string
	TenantID string
}

type Session struct {
	AccessToken       string
	RefreshToken      string
	AccessExpiresAt   time.Time
	RefreshExpiresAt  time.Time
	RefreshTTLSeconds int64
	User              models.PublicIdentity
}

const eventTimeout = 5 * time.Second

// burned on unknown emails so both login failures cost one KDF run
var dummyHash = strings.Repeat("0", hash.SaltLen*2) + ":" + strings.Repeat("0", hash.DefaultKeyLen*2)

func (s *AuthService) now() time.Time {
	if s.Now != nil {
		return s.Now()
	}
	return time.Now()
}

func (s *AuthService) Register(ctx context.Context, in RegisterInput) (*Session, error) {
	l := logging.FromContext(ctx).With("svc", "auth.register")

	email, err := normalizeEmail(in.Email)
	if err != nil {
		return nil, s.done("register", err)
	}
	if err := validatePassword(in.Password); err != nil {
		return nil, s.done("register", err)
	}
	if err := validateTenantID(in.TenantID); err != nil {
		return nil, s.done("register", err)
	}

	pwHash, err := s.Hasher.Hash(in.Password)
	if err != nil {
		l.Error("register_error", "status", 500, "reason", "cannot hash the password", "error", err)
		return nil, s.done("register", ErrInternal)
	}

	identity := &models.Identity{
		Email:        email,
		Name:         in.Name,
		PasswordHash: pwHash,
		Roles:        []rbac.Role{rbac.DefaultRole},
		CompanyID:    in.TenantID,
		IsActive:     true,
	}
	if err := s.Repo.CreateIdentity(ctx, identity); err != nil {
		if errors.Is(err, repo.ErrDuplicateEmail) {
			l.Warn("register_failed", "status", 409, "reason", "user_exists")
			return nil, s.done("register", ErrConflict)
		}
		l.Error("register_failed", "status", 500, "reason", "db_error", "error", err)
		return nil, s.done("register", ErrInternal)
	}
	s.publish(ctx, events.IdentityRegistered, identity, "register")

	session, err := s.issueTokens(ctx, identity, "register")
	if err != nil {
		return nil, s.done("register", err)
	}
	l.Info("register_success", "identity_id", identity.ID)
	return session, s.done("register", nil)
}

func (s *AuthService) Login(ctx context.Context, email, password string) (*Session, error) {
	l := logging.FromContext(ctx).With("svc", "auth.login")

	identity, err := s.Repo.FindIdentityByEmail(ctx, strings.TrimSpace(email))
	if err != nil {
		if !errors.Is(err, repo.ErrNotFound) {
			l.Error("login_failed", "status", 500, "reason", "db_error", "error", err)
			return nil, s.done("login", ErrInternal)
		}
		s.Hasher.Verify(password, dummyHash)
		l.Warn("login_failed", "status", 401, "reason", "invalid credentials")
		return nil, s.done("login", ErrUnauthorized)
	}
	if !s.Hasher.Verify(password, identity.PasswordHash) {
		l.Warn("login_failed", "status", 401, "reason", "invalid credentials")
		return nil, s.done("login", ErrUnauthorized)
	}

	session, err := s.issueTokens(ctx, identity, "login")
	if err != nil {
		return nil, s.done("login", err)
	}
	l.Info("login_successful", "identity_id", identity.ID)
	return session, s.done("login", nil)
}

// Refresh trades a refresh token for a new pair. The signature check and the
// stored-hash check are both required: a rotated-out token still has a valid
// signature but no longer matches the slot.
func (s *AuthService) Refresh(ctx context.Context, refreshToken string) (*Session, error) {
	l := logging.FromContext(ctx).With("svc", "auth.refresh")

	claims, err := s.Tokens.VerifyRefresh(refreshToken)
	if err != nil {
		l.Warn("refresh_failed", "status", 401, "reason", "invalid token")
		return nil, s.done("refresh", ErrUnauthorized)
	}

	identity, err := s.Repo.FindIdentityByID(ctx, claims.Subject)
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			l.Warn("refresh_failed", "status", 401, "reason", "identity not found")
			return nil, s.done("refresh", ErrUnauthorized)
		}
		l.Error("refresh_failed", "status", 500, "reason", "db_error", "error", err)
		return nil, s.done("refresh", ErrInternal)
	}

	switch {
	case !identity.IsActive:
		l.Warn("refresh_failed", "status", 401, "reason", "identity inactive")
		return nil, s.done("refresh", ErrUnauthorized)
	case !identity.HasRefreshSession():
		l.Warn("refresh_failed", "status", 401, "reason", "no active session")
		return nil, s.done("refresh", ErrUnauthorized)
	case identity.RefreshTokenExpiresAt.Before(s.now()):
		l.Warn("refresh_failed", "status", 401, "reason", "session expired")
		return nil, s.done("refresh", ErrUnauthorized)
	case !s.Hasher.Verify(refreshToken, *identity.RefreshTokenHash):
		l.Warn("refresh_failed", "status", 401, "reason", "token superseded")
		return nil, s.done("refresh", ErrUnauthorized)
	}

	session, err := s.issueTokens(ctx, identity, "refresh")
	if err != nil {
		return nil, s.done("refresh", err)
	}
	return session, s.done("refresh", nil)
}

// LogOut clears the caller's session slot. It succeeds when there is nothing
// to clear.
func (s *AuthService) LogOut(ctx context.Context, p Principal) error {
	l := logging.FromContext(ctx).With("svc", "auth.logout")
	identityID := p.IdentityID

	if err := s.Repo.ClearRefreshSession(ctx, identityID); err != nil {
		l.Error("logout_failed", "status", 500, "reason", "cannot clear refresh session", "error", err)
		return s.done("logout", ErrInternal)
	}
	s.publish(ctx, events.SessionRevoked, &models.Identity{ID: identityID, CompanyID: p.TenantID}, "logout")
	l.Info("successful_logout", "identity_id", identityID)
	return s.done("logout", nil)
}

// ValidateAccessToken is the entry point of every protected request. Roles and
// tenant come from the live row, so a downgrade or deactivation applies on the
// next request even while older access tokens are unexpired.
func (s *AuthService) ValidateAccessToken(ctx context.Context, accessToken string) (Principal, error) {
	claims, err := s.Tokens.VerifyAccess(accessToken)
	if err != nil {
		return Principal{}, s.done("validate", ErrUnauthorized)
	}

	identity, err := s.Repo.FindIdentityByID(ctx, claims.Subject)
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return Principal{}, s.done("validate", ErrUnauthorized)
		}
		logging.FromContext(ctx).Error("validate_failed", "status", 500, "reason", "db_error", "error", err)
		return Principal{}, s.done("validate", ErrInternal)
	}
	if !identity.IsActive {
		return Principal{}, s.done("validate", ErrUnauthorized)
	}

	return Principal{
		IdentityID: identity.ID,
		Email:      identity.Email,
		TenantID:   identity.CompanyID,
		Roles:      identity.Roles,
	}, s.done("validate", nil)
}

// issueTokens overwrites the identity's session slot with a freshly minted
// refresh token. Concurrent issuers race on that single write and the last one
// wins; the others' refresh tokens silently stop verifying.
func (s *AuthService) issueTokens(ctx context.Context, identity *models.Identity, reason string) (*Session, error) {
	l := logging.FromContext(ctx).With("svc", "auth.issue_tokens", "reason", reason)

	if !identity.IsActive {
		l.Warn("issue_failed", "status", 401, "reason", "identity inactive")
		return nil, ErrUnauthorized
	}

	claims := tokens.Identity{
		Subject:  identity.ID,
		Email:    identity.Email,
		Roles:    identity.Roles,
		TenantID: identity.CompanyID,
	}
	accessToken, err := s.Tokens.SignAccess(claims)
	if err != nil {
		l.Error("issue_failed", "status", 500, "reason", "cannot create token", "error", err)
		return nil, ErrInternal
	}
	refreshToken, err := s.Tokens.SignRefresh(claims)
	if err != nil {
		l.Error("issue_failed", "status", 500, "reason", "cannot create token", "error", err)
		return nil, ErrInternal
	}
	refreshHash, err := s.Hasher.Hash(refreshToken)
	if err != nil {
		l.Error("issue_failed", "status", 500, "reason", "cannot hash refresh token", "error", err)
		return nil, ErrInternal
	}

	now := s.now()
	refreshExp := now.Add(s.Tokens.RefreshTTL())
	if err := s.Repo.SetRefreshSession(ctx, identity.ID, refreshHash, refreshExp); err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			l.Warn("issue_failed", "status", 401, "reason", "identity disappeared")
			return nil, ErrUnauthorized
		}
		l.Error("issue_failed", "status", 500, "reason", "cannot store refresh session", "error", err)
		return nil, ErrInternal
	}
	s.publish(ctx, events.SessionIssued, identity, reason)

	return &Session{
		AccessToken:       accessToken,
		RefreshToken:      refreshToken,
		AccessExpiresAt:   now.Add(s.Tokens.AccessTTL()),
		RefreshExpiresAt:  refreshExp,
		RefreshTTLSeconds: int64(s.Tokens.RefreshTTL() / time.Second),
		User:              identity.Public(),
	}, nil
}

// publish never fails the calling operation; sinks are best effort.
func (s *AuthService) publish(ctx context.Context, typ events.Type, identity *models.Identity, reason string) {
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
		OccurredAt: s.now().UTC(),
	})
	if err != nil {
		logging.FromContext(ctx).Error("event_publish_failed", "type", typ, "identity_id", identity.ID, "error", err)
	}
}

func (s *AuthService) done(op string, err error) error {
	switch {
	case err == nil:
		s.Metrics.Inc(op, metrics.OutcomeSuccess)
	case errors.Is(err, ErrInternal):
		s.Metrics.Inc(op, metrics.OutcomeError)
	default:
		s.Metrics.Inc(op, metrics.OutcomeFailure)
	}
	return err
}
