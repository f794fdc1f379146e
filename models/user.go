package models

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"github.com/avery-hart/librarysysbackend/permissions"
)

// User represents a library account. Effective permissions are always
// derived from Role, IsSuperuser, and PermissionOverrides; they are never
// stored.
type User struct {
	ID           string           `json:"id" gorm:"type:uuid;primaryKey"`
	Email        string           `json:"email" gorm:"uniqueIndex;size:255;not null"`
	FullName     *string          `json:"full_name,omitempty" gorm:"size:255"`
	PasswordHash string           `json:"-" gorm:"not null"` // "-" means don't include in JSON responses
	IsActive     bool             `json:"is_active" gorm:"not null"`
	IsSuperuser  bool             `json:"is_superuser" gorm:"not null"`
	Role         permissions.Role `json:"role" gorm:"size:20;not null"`

	// PermissionOverrides are deleted with the user
	PermissionOverrides []PermissionOverride `json:"permission_overrides,omitempty" gorm:"constraint:OnDelete:CASCADE"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// BeforeCreate assigns a UUID primary key when none is set
func (u *User) BeforeCreate(tx *gorm.DB) (err error) {
	if u.ID == "" {
		u.ID = uuid.New().String()
	}
	return
}

// NormalizeEmail applies the canonical email folding used on every path that
// stores or looks up an email address: trimmed and lowercased.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// SetPassword hashes the given password and sets it on the user model.
func (u *User) SetPassword(password string) error {
	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return err
	}
	u.PasswordHash = string(hashedPassword)
	return nil
}

// CheckPassword verifies if the given password matches the user's hashed password.
func (u *User) CheckPassword(password string) bool {
	err := bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(password))
	return err == nil
}

// EffectivePermissions resolves the user's effective permission set.
// Assumes PermissionOverrides is preloaded when the user was fetched.
func (u *User) EffectivePermissions() permissions.Set {
	overrides := make([]permissions.Override, 0, len(u.PermissionOverrides))
	for _, ov := range u.PermissionOverrides {
		overrides = append(overrides, permissions.Override{
			Permission: ov.Permission,
			Effect:     ov.Effect,
		})
	}
	return permissions.Resolve(u.Role, u.IsSuperuser, overrides)
}

// HasPermission checks if the user's effective permissions include the given
// permission.
func (u *User) HasPermission(p permissions.Permission) bool {
	return u.EffectivePermissions().Has(p)
}

// HasAnyPermission checks if the user holds at least one of the given permissions.
func (u *User) HasAnyPermission(perms ...permissions.Permission) bool {
	return u.EffectivePermissions().HasAny(perms...)
}

// HasAllPermissions checks if the user holds every one of the given permissions.
func (u *User) HasAllPermissions(perms ...permissions.Permission) bool {
	return u.EffectivePermissions().HasAll(perms...)
}

// MissingPermissions returns which of the given permissions the user lacks.
func (u *User) MissingPermissions(perms ...permissions.Permission) []permissions.Permission {
	return u.EffectivePermissions().Missing(perms...)
}
