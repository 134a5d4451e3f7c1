package auth

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	"taskhive.io/internal/ids"
)

const (
	defaultRefreshTTL = 7 * 24 * time.Hour
	refreshTokenBytes = 32

	// maxTokenAttempts bounds the retry loop on opaque token collisions.
	maxTokenAttempts = 3
)

var emailPattern = regexp.MustCompile(`^[A-Za-z0-9+_.-]+@[A-Za-z0-9.-]+$`)

// NormalizeEmail trims and lower-cases an email address and rejects values
// that do not match the basic local-part/domain pattern.
func NormalizeEmail(raw string) (string, error) {
	email := strings.ToLower(strings.TrimSpace(raw))
	if !emailPattern.MatchString(email) {
		return "", fmt.Errorf("%w: invalid email format", ErrInvalidInput)
	}
	return email, nil
}

// Service orchestrates login, refresh and logout. It is the only component
// that mints tokens or retires refresh tokens.
type Service struct {
	store      Store
	tokens     *TokenService
	now        func() time.Time
	refreshTTL time.Duration
}

// ServiceOption configures Service behavior.
type ServiceOption func(*Service)

// WithClock overrides the time source (useful for tests).
func WithClock(fn func() time.Time) ServiceOption {
	return func(s *Service) {
		if fn != nil {
			s.now = fn
		}
	}
}

// WithRefreshTTL overrides the refresh token lifetime.
func WithRefreshTTL(ttl time.Duration) ServiceOption {
	return func(s *Service) {
		if ttl > 0 {
			s.refreshTTL = ttl
		}
	}
}

// NewService constructs the orchestrator.
func NewService(store Store, tokens *TokenService, opts ...ServiceOption) (*Service, error) {
	if store == nil {
		return nil, errors.New("auth: store is required")
	}
	if tokens == nil {
		return nil, errors.New("auth: token service is required")
	}
	s := &Service{
		store:      store,
		tokens:     tokens,
		now:        time.Now,
		refreshTTL: defaultRefreshTTL,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// AccessTTL exposes the access token lifetime for response bodies.
func (s *Service) AccessTTL() time.Duration {
	return s.tokens.TTL()
}

// TokenPair is the result of a successful login or refresh.
type TokenPair struct {
	AccessToken     string
	RefreshToken    string
	AccessExpiresAt time.Time
}

// Login authenticates a principal and issues a fresh token pair.
//
// The branch is decided by a global lookup of the normalized email: a
// SUPER_ADMIN must not supply a tenant key and receives role-only claims;
// every other principal must supply one, the tenant must exist and be
// active, and the principal is re-resolved scoped to that tenant before the
// password is ever verified. Credential failures are indistinguishable from
// unknown principals.
func (s *Service) Login(ctx context.Context, tenantKey, email, password string) (TokenPair, error) {
	if strings.TrimSpace(email) == "" {
		return TokenPair{}, fmt.Errorf("%w: email is required", ErrInvalidInput)
	}
	if password == "" {
		return TokenPair{}, fmt.Errorf("%w: password is required", ErrInvalidInput)
	}
	email, err := NormalizeEmail(email)
	if err != nil {
		return TokenPair{}, err
	}
	tenantKey = strings.TrimSpace(tenantKey)

	user, err := s.store.Users(ctx).FindByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return TokenPair{}, fmt.Errorf("%w: invalid credentials", ErrUnauthorized)
		}
		return TokenPair{}, err
	}

	if user.Role == RoleSuperAdmin {
		if tenantKey != "" {
			return TokenPair{}, fmt.Errorf("%w: super admin must not provide a tenant key", ErrInvalidInput)
		}
	} else {
		if tenantKey == "" {
			return TokenPair{}, fmt.Errorf("%w: tenant key is required", ErrInvalidInput)
		}
		tenant, err := s.store.Tenants(ctx).FindByKey(ctx, tenantKey)
		if err != nil {
			if errors.Is(err, ErrNotFound) {
				return TokenPair{}, fmt.Errorf("%w: invalid credentials", ErrUnauthorized)
			}
			return TokenPair{}, err
		}
		if tenant.Status != TenantActive {
			return TokenPair{}, ErrTenantInactive
		}
		user, err = s.store.Users(ctx).FindByEmailAndTenantKey(ctx, email, tenantKey)
		if err != nil {
			if errors.Is(err, ErrNotFound) {
				return TokenPair{}, fmt.Errorf("%w: invalid credentials", ErrUnauthorized)
			}
			return TokenPair{}, err
		}
	}

	if err := VerifyPassword(user.PasswordHash, password); err != nil {
		return TokenPair{}, fmt.Errorf("%w: invalid credentials", ErrUnauthorized)
	}
	return s.mint(ctx, user)
}

// Refresh reissues an access token against a live refresh token. Claims are
// re-derived from the current principal state, and the refresh token itself
// is returned unrotated.
func (s *Service) Refresh(ctx context.Context, refreshToken string) (TokenPair, error) {
	refreshToken = strings.TrimSpace(refreshToken)
	if refreshToken == "" {
		return TokenPair{}, ErrInvalidToken
	}
	rec, err := s.store.RefreshTokens(ctx).Find(ctx, refreshToken)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return TokenPair{}, ErrInvalidToken
		}
		return TokenPair{}, err
	}
	rec, err = s.verifyNotExpired(ctx, rec)
	if err != nil {
		return TokenPair{}, err
	}
	user, err := s.store.Users(ctx).Find(ctx, rec.UserID)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return TokenPair{}, fmt.Errorf("%w: user not found", ErrNotFound)
		}
		return TokenPair{}, err
	}
	access, exp, err := s.tokens.Issue(user)
	if err != nil {
		return TokenPair{}, err
	}
	return TokenPair{
		AccessToken:     access,
		RefreshToken:    rec.Token,
		AccessExpiresAt: exp,
	}, nil
}

// Logout retires a refresh token. It is idempotent: logging out an absent
// token succeeds.
func (s *Service) Logout(ctx context.Context, refreshToken string) error {
	return s.store.RefreshTokens(ctx).DeleteByToken(ctx, strings.TrimSpace(refreshToken))
}

// RevokeAll retires every refresh token held by a principal.
func (s *Service) RevokeAll(ctx context.Context, userID string) error {
	return s.store.RefreshTokens(ctx).DeleteByUser(ctx, userID)
}

// SweepExpired removes refresh tokens whose expiry has passed and returns
// the number of rows deleted.
func (s *Service) SweepExpired(ctx context.Context) (int64, error) {
	return s.store.RefreshTokens(ctx).DeleteExpired(ctx, s.now().UTC())
}

// verifyNotExpired passes a live record through unchanged. An expired record
// is deleted as one-time cleanup and the call fails; a later attempt with
// the same token fails via not-found instead.
func (s *Service) verifyNotExpired(ctx context.Context, rec *RefreshToken) (*RefreshToken, error) {
	if rec.ExpiresAt.Before(s.now()) {
		_ = s.store.RefreshTokens(ctx).DeleteByToken(ctx, rec.Token)
		return nil, ErrRefreshExpired
	}
	return rec, nil
}

func (s *Service) mint(ctx context.Context, user *User) (TokenPair, error) {
	access, exp, err := s.tokens.Issue(user)
	if err != nil {
		return TokenPair{}, err
	}
	refresh, err := s.createRefreshToken(ctx, user.ID)
	if err != nil {
		return TokenPair{}, err
	}
	return TokenPair{
		AccessToken:     access,
		RefreshToken:    refresh,
		AccessExpiresAt: exp,
	}, nil
}

// createRefreshToken persists a new opaque token. Uniqueness is enforced by
// the store; a collision triggers regeneration.
func (s *Service) createRefreshToken(ctx context.Context, userID string) (string, error) {
	for attempt := 0; attempt < maxTokenAttempts; attempt++ {
		buf := make([]byte, refreshTokenBytes)
		if _, err := rand.Read(buf); err != nil {
			return "", err
		}
		token := base64.RawURLEncoding.EncodeToString(buf)
		now := s.now().UTC()
		rec := &RefreshToken{
			ID:        ids.New(),
			UserID:    userID,
			Token:     token,
			CreatedAt: now,
			ExpiresAt: now.Add(s.refreshTTL),
		}
		err := s.store.RefreshTokens(ctx).Create(ctx, rec)
		if errors.Is(err, ErrAlreadyExists) {
			continue
		}
		if err != nil {
			return "", err
		}
		return token, nil
	}
	return "", errors.New("auth: could not generate a unique refresh token")
}
