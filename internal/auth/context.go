package auth

import (
	"context"
	"sync"
)

// Principal is the authenticated identity resolved from an access token.
type Principal struct {
	UserID   string
	Role     Role
	TenantID string
}

// Binding holds the principal for one in-flight request. The middleware
// clears it during teardown so a reused execution slot can never observe a
// stale identity.
type Binding struct {
	mu        sync.Mutex
	principal Principal
	set       bool
}

// NewBinding returns an empty binding.
func NewBinding() *Binding {
	return &Binding{}
}

// Bind stores the authenticated principal.
func (b *Binding) Bind(p Principal) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.principal = p
	b.set = true
}

// Principal returns the bound principal, if any.
func (b *Binding) Principal() (Principal, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.principal, b.set
}

// Clear releases the binding.
func (b *Binding) Clear() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.principal = Principal{}
	b.set = false
}

type bindingContextKey struct{}

// ContextWithBinding attaches the request's principal binding to the context.
func ContextWithBinding(ctx context.Context, b *Binding) context.Context {
	if b == nil {
		return ctx
	}
	return context.WithValue(ctx, bindingContextKey{}, b)
}

// BindingFromContext extracts the request's principal binding.
func BindingFromContext(ctx context.Context) (*Binding, bool) {
	if ctx == nil {
		return nil, false
	}
	b, ok := ctx.Value(bindingContextKey{}).(*Binding)
	return b, ok && b != nil
}

// PrincipalFromContext extracts the authenticated principal from the
// context, if a live binding carries one.
func PrincipalFromContext(ctx context.Context) (Principal, bool) {
	b, ok := BindingFromContext(ctx)
	if !ok {
		return Principal{}, false
	}
	return b.Principal()
}
