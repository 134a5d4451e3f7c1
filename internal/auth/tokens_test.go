package auth

import (
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
)

func testUser(role Role) *User {
	u := &User{
		ID:    uuid.NewString(),
		Email: "alice@acme.io",
		Role:  role,
	}
	if role != RoleSuperAdmin {
		u.TenantID = uuid.NewString()
	}
	return u
}

func TestIssueAndParse(t *testing.T) {
	svc, err := NewTokenService("test-secret")
	if err != nil {
		t.Fatalf("NewTokenService: %v", err)
	}

	user := testUser(RoleUser)
	signed, exp, err := svc.Issue(user)
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}
	if until := time.Until(exp); until <= 0 || until > DefaultAccessTTL {
		t.Fatalf("unexpected expiry: %v", exp)
	}

	claims, err := svc.Parse(signed)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if claims.Subject != user.ID {
		t.Fatalf("unexpected subject: %s", claims.Subject)
	}
	if claims.Role != string(RoleUser) {
		t.Fatalf("unexpected role claim: %s", claims.Role)
	}
	if claims.TenantID != user.TenantID {
		t.Fatalf("unexpected tenantId claim: %s", claims.TenantID)
	}
}

func TestIssueSuperAdminOmitsTenantClaim(t *testing.T) {
	svc, err := NewTokenService("test-secret")
	if err != nil {
		t.Fatalf("NewTokenService: %v", err)
	}

	signed, _, err := svc.Issue(testUser(RoleSuperAdmin))
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}
	claims, err := svc.Parse(signed)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if claims.TenantID != "" {
		t.Fatalf("expected empty tenantId claim, got %q", claims.TenantID)
	}
	if claims.Role != string(RoleSuperAdmin) {
		t.Fatalf("unexpected role claim: %s", claims.Role)
	}
}

func TestParseExpiredToken(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	svc, err := NewTokenService("test-secret", WithTokenClock(func() time.Time { return now }))
	if err != nil {
		t.Fatalf("NewTokenService: %v", err)
	}

	signed, _, err := svc.Issue(testUser(RoleUser))
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}

	now = now.Add(DefaultAccessTTL + time.Second)
	if _, err := svc.Parse(signed); !errors.Is(err, ErrTokenExpired) {
		t.Fatalf("expected ErrTokenExpired, got %v", err)
	}
}

func TestParseRejectsTamperedToken(t *testing.T) {
	svc, err := NewTokenService("test-secret")
	if err != nil {
		t.Fatalf("NewTokenService: %v", err)
	}
	signed, _, err := svc.Issue(testUser(RoleUser))
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}

	parts := strings.Split(signed, ".")
	if len(parts) != 3 {
		t.Fatalf("unexpected token format: %s", signed)
	}
	tampered := parts[0] + "." + parts[1] + "." + strings.Repeat("A", len(parts[2]))

	for _, raw := range []string{tampered, "not-a-token", ""} {
		if _, err := svc.Parse(raw); !errors.Is(err, ErrInvalidToken) {
			t.Fatalf("Parse(%q): expected ErrInvalidToken, got %v", raw, err)
		}
	}
}

func TestParseRejectsForeignSecret(t *testing.T) {
	issuer, err := NewTokenService("secret-one")
	if err != nil {
		t.Fatalf("NewTokenService: %v", err)
	}
	verifier, err := NewTokenService("secret-two")
	if err != nil {
		t.Fatalf("NewTokenService: %v", err)
	}

	signed, _, err := issuer.Issue(testUser(RoleTenantAdmin))
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}
	if _, err := verifier.Parse(signed); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("expected ErrInvalidToken, got %v", err)
	}
}

func TestParseRejectsMalformedSubject(t *testing.T) {
	svc, err := NewTokenService("test-secret")
	if err != nil {
		t.Fatalf("NewTokenService: %v", err)
	}

	// Issue is permissive about ids; Parse is the trust boundary.
	signed, _, err := svc.Issue(&User{ID: "not-a-uuid", Role: RoleSuperAdmin})
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}
	if _, err := svc.Parse(signed); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("expected ErrInvalidToken, got %v", err)
	}
}

func TestNewTokenServiceRequiresSecret(t *testing.T) {
	if _, err := NewTokenService("  "); err == nil {
		t.Fatal("expected error for empty secret")
	}
}
