package tenant

import (
	"context"
	"sync"
	"testing"
)

func TestScopeLifecycle(t *testing.T) {
	s := NewScope()
	if _, ok := s.TenantID(); ok {
		t.Fatal("fresh scope must be unbound")
	}

	s.Bind("tenant-a")
	if id, ok := s.TenantID(); !ok || id != "tenant-a" {
		t.Fatalf("unexpected binding: %q (%v)", id, ok)
	}

	// Last write wins.
	s.Bind("tenant-b")
	if id, _ := s.TenantID(); id != "tenant-b" {
		t.Fatalf("expected override, got %q", id)
	}

	s.Clear()
	if id, ok := s.TenantID(); ok || id != "" {
		t.Fatalf("cleared scope must be unbound, got %q (%v)", id, ok)
	}
}

func TestFromContext(t *testing.T) {
	if _, ok := FromContext(context.Background()); ok {
		t.Fatal("bare context must carry no tenant")
	}

	s := NewScope()
	ctx := WithScope(context.Background(), s)
	if _, ok := FromContext(ctx); ok {
		t.Fatal("unbound scope must yield no tenant")
	}

	s.Bind("tenant-a")
	if id, ok := FromContext(ctx); !ok || id != "tenant-a" {
		t.Fatalf("unexpected tenant: %q (%v)", id, ok)
	}

	got, ok := ScopeFromContext(ctx)
	if !ok || got != s {
		t.Fatal("ScopeFromContext must return the attached scope")
	}
}

// Concurrent requests each carry their own scope; bindings must never bleed
// between them.
func TestScopeIsolationAcrossGoroutines(t *testing.T) {
	const rounds = 200

	var wg sync.WaitGroup
	for _, id := range []string{"tenant-a", "tenant-b"} {
		id := id
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < rounds; i++ {
				s := NewScope()
				ctx := WithScope(context.Background(), s)
				s.Bind(id)
				if got, ok := FromContext(ctx); !ok || got != id {
					t.Errorf("scope bleed: want %q, got %q (%v)", id, got, ok)
					return
				}
				s.Clear()
				if _, ok := FromContext(ctx); ok {
					t.Error("scope survived teardown")
					return
				}
			}
		}()
	}
	wg.Wait()
}
