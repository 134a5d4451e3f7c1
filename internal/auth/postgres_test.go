package auth

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jackc/pgx/v5/pgconn"
)

func newMockStore(t *testing.T) (*PGStore, sqlmock.Sqlmock, func()) {
	t.Helper()
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	return NewPGStore(db), mock, func() { db.Close() }
}

func TestPGUserFindByEmail(t *testing.T) {
	store, mock, done := newMockStore(t)
	defer done()

	now := time.Now()
	rows := sqlmock.NewRows([]string{"id", "tenant_id", "email", "password_hash", "role", "created_at", "updated_at"}).
		AddRow("u1", "t1", "alice@acme.io", "hash", "USER", now, now)
	mock.ExpectQuery("select id, tenant_id, email, password_hash, role.*from users where email").
		WithArgs("alice@acme.io").WillReturnRows(rows)

	user, err := store.Users(context.Background()).FindByEmail(context.Background(), "alice@acme.io")
	if err != nil {
		t.Fatalf("FindByEmail: %v", err)
	}
	if user.ID != "u1" || user.TenantID != "t1" || user.Role != RoleUser {
		t.Fatalf("unexpected user: %+v", user)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestPGUserFindByEmailNotFound(t *testing.T) {
	store, mock, done := newMockStore(t)
	defer done()

	mock.ExpectQuery("select id, tenant_id, email, password_hash, role.*from users where email").
		WithArgs("ghost@acme.io").
		WillReturnRows(sqlmock.NewRows([]string{"id", "tenant_id", "email", "password_hash", "role", "created_at", "updated_at"}))

	_, err := store.Users(context.Background()).FindByEmail(context.Background(), "ghost@acme.io")
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestPGUserNullTenant(t *testing.T) {
	store, mock, done := newMockStore(t)
	defer done()

	now := time.Now()
	rows := sqlmock.NewRows([]string{"id", "tenant_id", "email", "password_hash", "role", "created_at", "updated_at"}).
		AddRow("u1", nil, "root@taskhive.io", "hash", "SUPER_ADMIN", now, now)
	mock.ExpectQuery("select id, tenant_id, email, password_hash, role.*from users where id").
		WithArgs("u1").WillReturnRows(rows)

	user, err := store.Users(context.Background()).Find(context.Background(), "u1")
	if err != nil {
		t.Fatalf("Find: %v", err)
	}
	if user.TenantID != "" {
		t.Fatalf("expected empty tenant id, got %q", user.TenantID)
	}
	if user.Role != RoleSuperAdmin {
		t.Fatalf("unexpected role: %s", user.Role)
	}
}

func TestPGUserFindByEmailAndTenantKey(t *testing.T) {
	store, mock, done := newMockStore(t)
	defer done()

	now := time.Now()
	rows := sqlmock.NewRows([]string{"id", "tenant_id", "email", "password_hash", "role", "created_at", "updated_at"}).
		AddRow("u1", "t1", "alice@acme.io", "hash", "TENANT_ADMIN", now, now)
	mock.ExpectQuery("from users u join tenants t on t.id = u.tenant_id").
		WithArgs("alice@acme.io", "acme").WillReturnRows(rows)

	user, err := store.Users(context.Background()).FindByEmailAndTenantKey(context.Background(), "alice@acme.io", "acme")
	if err != nil {
		t.Fatalf("FindByEmailAndTenantKey: %v", err)
	}
	if user.Role != RoleTenantAdmin {
		t.Fatalf("unexpected role: %s", user.Role)
	}
}

func TestPGTenantFindByKey(t *testing.T) {
	store, mock, done := newMockStore(t)
	defer done()

	now := time.Now()
	rows := sqlmock.NewRows([]string{"id", "key", "name", "status", "created_at", "updated_at"}).
		AddRow("t1", "acme", "Acme Corp", "ACTIVE", now, now)
	mock.ExpectQuery("select id, key, name, status.*from tenants where key").
		WithArgs("acme").WillReturnRows(rows)

	tenant, err := store.Tenants(context.Background()).FindByKey(context.Background(), "acme")
	if err != nil {
		t.Fatalf("FindByKey: %v", err)
	}
	if tenant.Status != TenantActive {
		t.Fatalf("unexpected status: %s", tenant.Status)
	}
}

func TestPGRefreshTokenCreateCollision(t *testing.T) {
	store, mock, done := newMockStore(t)
	defer done()

	mock.ExpectExec("insert into refresh_tokens").
		WithArgs("rt1", "u1", "opaque", sqlmock.AnyArg(), sqlmock.AnyArg()).
		WillReturnError(&pgconn.PgError{Code: "23505"})

	err := store.RefreshTokens(context.Background()).Create(context.Background(), &RefreshToken{
		ID: "rt1", UserID: "u1", Token: "opaque",
		CreatedAt: time.Now(), ExpiresAt: time.Now().Add(time.Hour),
	})
	if !errors.Is(err, ErrAlreadyExists) {
		t.Fatalf("expected ErrAlreadyExists, got %v", err)
	}
}

func TestPGRefreshTokenDeleteIsIdempotent(t *testing.T) {
	store, mock, done := newMockStore(t)
	defer done()

	mock.ExpectExec("delete from refresh_tokens where token").
		WithArgs("gone").WillReturnResult(sqlmock.NewResult(0, 0))

	if err := store.RefreshTokens(context.Background()).DeleteByToken(context.Background(), "gone"); err != nil {
		t.Fatalf("DeleteByToken: %v", err)
	}
}

func TestPGRefreshTokenDeleteExpired(t *testing.T) {
	store, mock, done := newMockStore(t)
	defer done()

	mock.ExpectExec("delete from refresh_tokens where expires_at").
		WithArgs(sqlmock.AnyArg()).WillReturnResult(sqlmock.NewResult(0, 3))

	n, err := store.RefreshTokens(context.Background()).DeleteExpired(context.Background(), time.Now())
	if err != nil {
		t.Fatalf("DeleteExpired: %v", err)
	}
	if n != 3 {
		t.Fatalf("expected 3 deleted rows, got %d", n)
	}
}
