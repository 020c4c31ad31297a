// Package tokens signs and verifies the access and refresh JWTs. The two token
// types use separate HS256 keys and lifetimes, so a leaked access key cannot
// mint refresh tokens and the other way round.
package tokens

import (
	"bytes"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// ErrInvalidToken covers every verification failure on purpose.
var ErrInvalidToken = errors.New("invalid token")

type Config struct {
	AccessSecret  []byte
	RefreshSecret []byte
	AccessTTL     time.Duration
	RefreshTTL    time.Duration
}

type Codec struct {
	accessSecret  []byte
	refreshSecret []byte
	accessTTL     time.Duration
	refreshTTL    time.Duration
	now           func() time.Time
}

func NewCodec(cfg Config) (*Codec, error) {
	if len(cfg.AccessSecret) == 0 || len(cfg.RefreshSecret) == 0 {
		return nil, errors.New("tokens: access and refresh secrets are required")
	}
	if bytes.Equal(cfg.AccessSecret, cfg.RefreshSecret) {
		return nil, errors.New("tokens: access and refresh secrets must differ")
	}
	if cfg.AccessTTL <= 0 || cfg.RefreshTTL <= 0 {
		return nil, fmt.Errorf("tokens: ttl must be positive (access=%s refresh=%s)", cfg.AccessTTL, cfg.RefreshTTL)
	}
	return &Codec{
		accessSecret:  cfg.AccessSecret,
		refreshSecret: cfg.RefreshSecret,
		accessTTL:     cfg.AccessTTL,
		refreshTTL:    cfg.RefreshTTL,
		now:           time.Now,
	}, nil
}

// WithClock returns a copy of the codec reading time from now.
func (c *Codec) WithClock(now func() time.Time) *Codec {
	cp := *c
	cp.now = now
	return &cp
}

func (c *Codec) AccessTTL() time.Duration  { return c.accessTTL }
func (c *Codec) RefreshTTL() time.Duration { return c.refreshTTL }

func (c *Codec) SignAccess(id Identity) (string, error) {
	return c.sign(id, TypeAccess, c.accessTTL, c.accessSecret)
}

func (c *Codec) SignRefresh(id Identity) (string, error) {
	return c.sign(id, TypeRefresh, c.refreshTTL, c.refreshSecret)
}

func (c *Codec) VerifyAccess(token string) (*Claims, error) {
	return c.verify(token, TypeAccess, c.accessSecret)
}

func (c *Codec) VerifyRefresh(token string) (*Claims, error) {
	return c.verify(token, TypeRefresh, c.refreshSecret)
}

func (c *Codec) sign(id Identity, typ string, ttl time.Duration, secret []byte) (string, error) {
	now := c.now()
	claims := Claims{
		Version:  ClaimsVersion,
		Type:     typ,
		Email:    id.Email,
		Roles:    id.Roles,
		TenantID: id.TenantID,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   id.Subject,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
			ID:        uuid.NewString(),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(secret)
	if err != nil {
		return "", fmt.Errorf("signing %s token: %w", typ, err)
	}
	return signed, nil
}

func (c *Codec) verify(raw, typ string, secret []byte) (*Claims, error) {
	var claims Claims
	tkn, err := jwt.ParseWithClaims(raw, &claims, func(t *jwt.Token) (any, error) {
		return secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(c.now),
	)
	if err != nil || !tkn.Valid {
		return nil, ErrInvalidToken
	}
	if claims.Type != typ || claims.Version != ClaimsVersion || claims.Subject == "" {
		return nil, ErrInvalidToken
	}
	return &claims, nil
}
