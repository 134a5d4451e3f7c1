// Package tenant provides the request-lifetime tenant scope. One Scope
// exists per in-flight request; it is threaded through the call chain via
// context.Context instead of ambient global state, so concurrent requests
// can never observe each other's binding.
package tenant

import (
	"context"
	"sync"
)

// Scope holds at most one tenant identifier for the duration of a request.
// The authentication middleware creates it on entry and clears it exactly
// once at teardown, on every exit path.
type Scope struct {
	mu       sync.Mutex
	tenantID string
	bound    bool
}

// NewScope returns an unbound scope.
func NewScope() *Scope {
	return &Scope{}
}

// Bind binds a tenant id to the scope. A second call overrides the first;
// last write wins.
func (s *Scope) Bind(tenantID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tenantID = tenantID
	s.bound = tenantID != ""
}

// TenantID returns the bound tenant id, if any. Cross-tenant operators run
// with an unbound scope.
func (s *Scope) TenantID() (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.tenantID, s.bound
}

// Clear releases the binding. It must run when the request finishes,
// including on failure and panic paths.
func (s *Scope) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tenantID = ""
	s.bound = false
}

type scopeContextKey struct{}

// WithScope attaches the request's scope to the context.
func WithScope(ctx context.Context, s *Scope) context.Context {
	if s == nil {
		return ctx
	}
	return context.WithValue(ctx, scopeContextKey{}, s)
}

// ScopeFromContext extracts the request's scope.
func ScopeFromContext(ctx context.Context) (*Scope, bool) {
	if ctx == nil {
		return nil, false
	}
	s, ok := ctx.Value(scopeContextKey{}).(*Scope)
	return s, ok && s != nil
}

// FromContext returns the tenant id bound to the request reaching this call,
// without explicit parameter threading through every signature.
func FromContext(ctx context.Context) (string, bool) {
	s, ok := ScopeFromContext(ctx)
	if !ok {
		return "", false
	}
	return s.TenantID()
}
