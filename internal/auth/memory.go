package auth

import (
	"context"
	"sync"
	"time"
)

var _ Store = (*MemStore)(nil)

// MemStore is an in-memory Store used by tests and local development. It is
// safe for concurrent use.
type MemStore struct {
	mu      sync.RWMutex
	tenants []*Tenant
	users   []*User
	refresh map[string]*RefreshToken
}

func NewMemStore() *MemStore {
	return &MemStore{refresh: make(map[string]*RefreshToken)}
}

func (s *MemStore) Tenants(context.Context) TenantStore             { return &memTenantStore{s} }
func (s *MemStore) Users(context.Context) UserStore                 { return &memUserStore{s} }
func (s *MemStore) RefreshTokens(context.Context) RefreshTokenStore { return &memRefreshStore{s} }

type memTenantStore struct{ s *MemStore }

func (m *memTenantStore) Create(ctx context.Context, t *Tenant) error {
	if _, err := ParseTenantStatus(string(t.Status)); err != nil {
		return err
	}
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	for _, existing := range m.s.tenants {
		if existing.ID == t.ID || existing.Key == t.Key {
			return ErrAlreadyExists
		}
	}
	cp := *t
	m.s.tenants = append(m.s.tenants, &cp)
	return nil
}

func (m *memTenantStore) Find(ctx context.Context, id string) (*Tenant, error) {
	m.s.mu.RLock()
	defer m.s.mu.RUnlock()
	for _, t := range m.s.tenants {
		if t.ID == id {
			cp := *t
			return &cp, nil
		}
	}
	return nil, ErrNotFound
}

func (m *memTenantStore) FindByKey(ctx context.Context, key string) (*Tenant, error) {
	m.s.mu.RLock()
	defer m.s.mu.RUnlock()
	for _, t := range m.s.tenants {
		if t.Key == key {
			cp := *t
			return &cp, nil
		}
	}
	return nil, ErrNotFound
}

type memUserStore struct{ s *MemStore }

func (m *memUserStore) Create(ctx context.Context, u *User) error {
	if err := u.Validate(); err != nil {
		return err
	}
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	for _, existing := range m.s.users {
		if existing.ID == u.ID {
			return ErrAlreadyExists
		}
		if existing.Email == u.Email && existing.TenantID == u.TenantID {
			return ErrAlreadyExists
		}
	}
	cp := *u
	m.s.users = append(m.s.users, &cp)
	return nil
}

func (m *memUserStore) Find(ctx context.Context, id string) (*User, error) {
	m.s.mu.RLock()
	defer m.s.mu.RUnlock()
	for _, u := range m.s.users {
		if u.ID == id {
			cp := *u
			return &cp, nil
		}
	}
	return nil, ErrNotFound
}

func (m *memUserStore) FindByEmail(ctx context.Context, email string) (*User, error) {
	m.s.mu.RLock()
	defer m.s.mu.RUnlock()
	for _, u := range m.s.users {
		if u.Email == email {
			cp := *u
			return &cp, nil
		}
	}
	return nil, ErrNotFound
}

func (m *memUserStore) FindByEmailAndTenantKey(ctx context.Context, email, tenantKey string) (*User, error) {
	m.s.mu.RLock()
	defer m.s.mu.RUnlock()
	var tenantID string
	for _, t := range m.s.tenants {
		if t.Key == tenantKey {
			tenantID = t.ID
			break
		}
	}
	if tenantID == "" {
		return nil, ErrNotFound
	}
	for _, u := range m.s.users {
		if u.Email == email && u.TenantID == tenantID {
			cp := *u
			return &cp, nil
		}
	}
	return nil, ErrNotFound
}

// DeleteUser removes a principal; used to simulate deletion between token
// issuance and use.
func (s *MemStore) DeleteUser(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i, u := range s.users {
		if u.ID == id {
			s.users = append(s.users[:i], s.users[i+1:]...)
			return
		}
	}
}

type memRefreshStore struct{ s *MemStore }

func (m *memRefreshStore) Create(ctx context.Context, tok *RefreshToken) error {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	if _, exists := m.s.refresh[tok.Token]; exists {
		return ErrAlreadyExists
	}
	cp := *tok
	m.s.refresh[tok.Token] = &cp
	return nil
}

func (m *memRefreshStore) Find(ctx context.Context, token string) (*RefreshToken, error) {
	m.s.mu.RLock()
	defer m.s.mu.RUnlock()
	rec, ok := m.s.refresh[token]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *rec
	return &cp, nil
}

func (m *memRefreshStore) DeleteByToken(ctx context.Context, token string) error {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	delete(m.s.refresh, token)
	return nil
}

func (m *memRefreshStore) DeleteByUser(ctx context.Context, userID string) error {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	for token, rec := range m.s.refresh {
		if rec.UserID == userID {
			delete(m.s.refresh, token)
		}
	}
	return nil
}

func (m *memRefreshStore) DeleteExpired(ctx context.Context, cutoff time.Time) (int64, error) {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	var n int64
	for token, rec := range m.s.refresh {
		if rec.ExpiresAt.Before(cutoff) {
			delete(m.s.refresh, token)
			n++
		}
	}
	return n, nil
}
