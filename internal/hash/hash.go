// Package hash salts and hashes secrets (passwords and refresh tokens) with scrypt.
package hash

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/hex"
	"fmt"
	"strings"

	"golang.org/x/crypto/scrypt"
)

const (
	DefaultN      = 16384
	DefaultR      = 8
	DefaultP      = 1
	DefaultKeyLen = 64
	SaltLen       = 16
)

type Params struct {
	N      int
	R      int
	P      int
	KeyLen int
}

func DefaultParams() Params {
	return Params{N: DefaultN, R: DefaultR, P: DefaultP, KeyLen: DefaultKeyLen}
}

// Hasher produces stored forms "hex(salt):hex(key)". The hex salt string itself
// is fed to the KDF, so hashes stay compatible with the existing user table.
type Hasher struct {
	params Params
}

func New(p Params) (*Hasher, error) {
	if p.N <= 1 || p.N&(p.N-1) != 0 {
		return nil, fmt.Errorf("scrypt N must be a power of two greater than 1, got %d", p.N)
	}
	if p.R <= 0 || p.P <= 0 || p.KeyLen <= 0 {
		return nil, fmt.Errorf("invalid scrypt params r=%d p=%d keylen=%d", p.R, p.P, p.KeyLen)
	}
	return &Hasher{params: p}, nil
}

func Default() *Hasher {
	return &Hasher{params: DefaultParams()}
}

func (h *Hasher) Hash(secret string) (string, error) {
	raw := make([]byte, SaltLen)
	if _, err := rand.Read(raw); err != nil {
		return "", fmt.Errorf("generating salt: %w", err)
	}
	salt := hex.EncodeToString(raw)

	key, err := h.derive(secret, salt)
	if err != nil {
		return "", err
	}
	return salt + ":" + hex.EncodeToString(key), nil
}

// Verify never returns an error: any malformed stored value is simply a mismatch.
func (h *Hasher) Verify(candidate, stored string) bool {
	salt, encoded, ok := strings.Cut(stored, ":")
	if !ok || salt == "" || encoded == "" {
		return false
	}
	want, err := hex.DecodeString(encoded)
	if err != nil || len(want) != h.params.KeyLen {
		return false
	}

	got, err := h.derive(candidate, salt)
	if err != nil || len(got) != len(want) {
		return false
	}
	return subtle.ConstantTimeCompare(got, want) == 1
}

func (h *Hasher) derive(secret, salt string) ([]byte, error) {
	key, err := scrypt.Key([]byte(secret), []byte(salt), h.params.N, h.params.R, h.params.P, h.params.KeyLen)
	if err != nil {
		return nil, fmt.Errorf("scrypt: %w", err)
	}
	return key, nil
}
