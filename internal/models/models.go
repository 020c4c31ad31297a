package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/Skotchmaster/staffhub/internal/rbac"
)

// Identity is a user account. The two refresh_token_* columns are the single
// refresh session slot: both set or both null.
type Identity struct {
	ID                    string         `gorm:"primaryKey;size:36"                json:"id"`
	Email                 string         `gorm:"uniqueIndex;not null"              json:"email"`
	Name                  *string        `                                         json:"name,omitempty"`
	PasswordHash          string         `gorm:"not null"                          json:"-"`
	Roles                 []rbac.Role    `gorm:"serializer:json;type:text;not null" json:"roles"`
	CompanyID             string         `gorm:"size:36;index;not null"            json:"company_id"`
	IsActive              bool           `gorm:"not null"                          json:"is_active"`
	RefreshTokenHash      *string        `                                         json:"-"`
	RefreshTokenExpiresAt *time.Time     `                                         json:"-"`
	CreatedAt             time.Time      `                                         json:"created_at"`
	UpdatedAt             time.Time      `                                         json:"updated_at"`
	DeletedAt             gorm.DeletedAt `gorm:"index"                             json:"-"`
}

func (Identity) TableName() string { return "identities" }

func (i *Identity) BeforeCreate(tx *gorm.DB) error {
	if i.ID == "" {
		i.ID = uuid.NewString()
	}
	return nil
}

func (i *Identity) HasRefreshSession() bool {
	return i.RefreshTokenHash != nil && i.RefreshTokenExpiresAt != nil
}

// PublicIdentity is what clients are allowed to see of an Identity.
type PublicIdentity struct {
	ID        string      `json:"id"`
	Email     string      `json:"email"`
	Name      *string     `json:"name,omitempty"`
	Roles     []rbac.Role `json:"roles"`
	CompanyID string      `json:"company_id"`
	IsActive  bool        `json:"is_active"`
	CreatedAt time.Time   `json:"created_at"`
	UpdatedAt time.Time   `json:"updated_at"`
}

func (i *Identity) Public() PublicIdentity {
	return PublicIdentity{
		ID:        i.ID,
		Email:     i.Email,
		Name:      i.Name,
		Roles:     i.Roles,
		CompanyID: i.CompanyID,
		IsActive:  i.IsActive,
		CreatedAt: i.CreatedAt,
		UpdatedAt: i.UpdatedAt,
	}
}

func All() []any {
	return []any{&Identity{}}
}
