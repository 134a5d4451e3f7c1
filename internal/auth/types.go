package auth

import (
	"fmt"
	"strings"
	"time"
)

// Role classifies a principal. The set is closed; free-form strings are
// accepted only through ParseRole at the system boundary.
type Role string

const (
	RoleSuperAdmin  Role = "SUPER_ADMIN"
	RoleTenantAdmin Role = "TENANT_ADMIN"
	RoleUser        Role = "USER"
)

// ParseRole validates a raw role string coming from storage or a request.
func ParseRole(raw string) (Role, error) {
	switch Role(strings.ToUpper(strings.TrimSpace(raw))) {
	case RoleSuperAdmin:
		return RoleSuperAdmin, nil
	case RoleTenantAdmin:
		return RoleTenantAdmin, nil
	case RoleUser:
		return RoleUser, nil
	default:
		return "", fmt.Errorf("%w: unknown role %q", ErrInvalidInput, raw)
	}
}

// TenantStatus gates whether principals of a tenant may log in.
type TenantStatus string

const (
	TenantPending   TenantStatus = "PENDING"
	TenantActive    TenantStatus = "ACTIVE"
	TenantSuspended TenantStatus = "SUSPENDED"
)

// ParseTenantStatus validates a raw status string at the boundary.
func ParseTenantStatus(raw string) (TenantStatus, error) {
	switch TenantStatus(strings.ToUpper(strings.TrimSpace(raw))) {
	case TenantPending:
		return TenantPending, nil
	case TenantActive:
		return TenantActive, nil
	case TenantSuspended:
		return TenantSuspended, nil
	default:
		return "", fmt.Errorf("%w: unknown tenant status %q", ErrInvalidInput, raw)
	}
}

// Tenant is an isolated customer of the platform. Key is the human-facing
// identifier supplied at login; it never changes after provisioning.
type Tenant struct {
	ID        string
	Key       string
	Name      string
	Status    TenantStatus
	CreatedAt time.Time
	UpdatedAt time.Time
}

// User is a principal. TenantID is empty only for cross-tenant operators.
// Email is stored normalized (trimmed, lower-cased).
type User struct {
	ID           string
	TenantID     string
	Email        string
	PasswordHash string
	Role         Role
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// Validate enforces the role/tenant binding invariant: a SUPER_ADMIN has no
// tenant, every other role has exactly one. Checked at creation; the role is
// immutable afterwards.
func (u *User) Validate() error {
	if _, err := ParseRole(string(u.Role)); err != nil {
		return err
	}
	if u.Role == RoleSuperAdmin && u.TenantID != "" {
		return fmt.Errorf("%w: super admin must not be bound to a tenant", ErrInvalidInput)
	}
	if u.Role != RoleSuperAdmin && u.TenantID == "" {
		return fmt.Errorf("%w: role %s requires a tenant", ErrInvalidInput, u.Role)
	}
	return nil
}

// RefreshToken is a persisted opaque session credential. Token carries no
// claims; it is only a lookup key into the store.
type RefreshToken struct {
	ID        string
	UserID    string
	Token     string
	CreatedAt time.Time
	ExpiresAt time.Time
}
