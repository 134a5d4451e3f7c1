package auth

import (
	"errors"
	"testing"
)

func TestParseRole(t *testing.T) {
	cases := []struct {
		raw  string
		want Role
		ok   bool
	}{
		{"SUPER_ADMIN", RoleSuperAdmin, true},
		{"tenant_admin", RoleTenantAdmin, true},
		{"  user  ", RoleUser, true},
		{"ADMIN", "", false},
		{"", "", false},
	}
	for _, tc := range cases {
		got, err := ParseRole(tc.raw)
		if tc.ok && (err != nil || got != tc.want) {
			t.Fatalf("ParseRole(%q) = %q, %v; want %q", tc.raw, got, err, tc.want)
		}
		if !tc.ok && !errors.Is(err, ErrInvalidInput) {
			t.Fatalf("ParseRole(%q): expected ErrInvalidInput, got %v", tc.raw, err)
		}
	}
}

func TestParseTenantStatus(t *testing.T) {
	cases := []struct {
		raw  string
		want TenantStatus
		ok   bool
	}{
		{"ACTIVE", TenantActive, true},
		{"pending", TenantPending, true},
		{"Suspended", TenantSuspended, true},
		{"DELETED", "", false},
	}
	for _, tc := range cases {
		got, err := ParseTenantStatus(tc.raw)
		if tc.ok && (err != nil || got != tc.want) {
			t.Fatalf("ParseTenantStatus(%q) = %q, %v; want %q", tc.raw, got, err, tc.want)
		}
		if !tc.ok && !errors.Is(err, ErrInvalidInput) {
			t.Fatalf("ParseTenantStatus(%q): expected ErrInvalidInput, got %v", tc.raw, err)
		}
	}
}

func TestUserValidateRoleTenantBinding(t *testing.T) {
	cases := []struct {
		name string
		user User
		ok   bool
	}{
		{"super admin unbound", User{ID: "u1", Role: RoleSuperAdmin}, true},
		{"super admin with tenant", User{ID: "u1", Role: RoleSuperAdmin, TenantID: "t1"}, false},
		{"tenant admin bound", User{ID: "u1", Role: RoleTenantAdmin, TenantID: "t1"}, true},
		{"user without tenant", User{ID: "u1", Role: RoleUser}, false},
		{"unknown role", User{ID: "u1", Role: "OWNER", TenantID: "t1"}, false},
	}
	for _, tc := range cases {
		err := tc.user.Validate()
		if tc.ok && err != nil {
			t.Fatalf("%s: unexpected error: %v", tc.name, err)
		}
		if !tc.ok && !errors.Is(err, ErrInvalidInput) {
			t.Fatalf("%s: expected ErrInvalidInput, got %v", tc.name, err)
		}
	}
}
