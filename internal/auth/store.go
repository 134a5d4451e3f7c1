package auth

import (
	"context"
	"time"
)

// Store describes the persistence operations required by the auth core. The
// embedding system provides the implementation; persistence internals are
// outside this package's contract.
type Store interface {
	Tenants(ctx context.Context) TenantStore
	Users(ctx context.Context) UserStore
	RefreshTokens(ctx context.Context) RefreshTokenStore
}

// TenantStore manages tenants.
type TenantStore interface {
	Create(ctx context.Context, t *Tenant) error
	Find(ctx context.Context, id string) (*Tenant, error)
	FindByKey(ctx context.Context, key string) (*Tenant, error)
}

// UserStore manages principals. FindByEmail is a global lookup used only to
// decide the login branch; credential verification for tenant users goes
// through the tenant-scoped FindByEmailAndTenantKey.
type UserStore interface {
	Create(ctx context.Context, u *User) error
	Find(ctx context.Context, id string) (*User, error)
	FindByEmail(ctx context.Context, email string) (*User, error)
	FindByEmailAndTenantKey(ctx context.Context, email, tenantKey string) (*User, error)
}

// RefreshTokenStore manages the refresh token lifecycle. Create returns
// ErrAlreadyExists when the opaque token collides with a stored one. Deletes
// are idempotent: removing an absent token is not an error.
type RefreshTokenStore interface {
	Create(ctx context.Context, tok *RefreshToken) error
	Find(ctx context.Context, token string) (*RefreshToken, error)
	DeleteByToken(ctx context.Context, token string) error
	DeleteByUser(ctx context.Context, userID string) error
	DeleteExpired(ctx context.Context, cutoff time.Time) (int64, error)
}
