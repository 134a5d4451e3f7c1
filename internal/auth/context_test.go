package auth

import (
	"context"
	"testing"
)

func TestBindingLifecycle(t *testing.T) {
	b := NewBinding()
	if _, ok := b.Principal(); ok {
		t.Fatal("fresh binding must be empty")
	}

	p := Principal{UserID: "u1", Role: RoleUser, TenantID: "t1"}
	b.Bind(p)
	got, ok := b.Principal()
	if !ok || got != p {
		t.Fatalf("unexpected principal: %+v (%v)", got, ok)
	}

	// Last write wins.
	p2 := Principal{UserID: "u2", Role: RoleTenantAdmin, TenantID: "t2"}
	b.Bind(p2)
	if got, _ := b.Principal(); got != p2 {
		t.Fatalf("expected override, got %+v", got)
	}

	b.Clear()
	if _, ok := b.Principal(); ok {
		t.Fatal("cleared binding must be empty")
	}
}

func TestPrincipalFromContext(t *testing.T) {
	if _, ok := PrincipalFromContext(context.Background()); ok {
		t.Fatal("bare context must carry no principal")
	}

	b := NewBinding()
	ctx := ContextWithBinding(context.Background(), b)
	if _, ok := PrincipalFromContext(ctx); ok {
		t.Fatal("unbound binding must yield no principal")
	}

	p := Principal{UserID: "u1", Role: RoleSuperAdmin}
	b.Bind(p)
	got, ok := PrincipalFromContext(ctx)
	if !ok || got != p {
		t.Fatalf("unexpected principal: %+v (%v)", got, ok)
	}

	// Clearing through the shared holder is visible to context readers too.
	b.Clear()
	if _, ok := PrincipalFromContext(ctx); ok {
		t.Fatal("cleared binding must yield no principal")
	}
}
