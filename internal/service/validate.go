package service

import (
	"fmt"
	"net/mail"
	"strings"

	"github.com/google/uuid"
)

const minPasswordLen = 8

func normalizeEmail(email string) (string, error) {
	email = strings.TrimSpace(email)
	if email == "" {
		return "", fmt.Errorf("%w: email is required", ErrValidation)
	}
	addr, err := mail.ParseAddress(email)
	if err != nil || addr.Address != email {
		return "", fmt.Errorf("%w: valid email is required", ErrValidation)
	}
	return email, nil
}

func validatePassword(password string) error {
	if len(password) < minPasswordLen {
		return fmt.Errorf("%w: password must be at least %d characters", ErrValidation, minPasswordLen)
	}
	return nil
}

func validateTenantID(id string) error {
	if _, err := uuid.Parse(id); err != nil {
		return fmt.Errorf("%w: company_id must be a uuid", ErrValidation)
	}
	return nil
}
