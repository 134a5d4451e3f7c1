package auth

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
)

var _ Store = (*PGStore)(nil)

// PGStore implements Store using PostgreSQL.
type PGStore struct {
	db *sql.DB
}

func NewPGStore(db *sql.DB) *PGStore {
	return &PGStore{db: db}
}

func (s *PGStore) Tenants(context.Context) TenantStore { return &tenantStore{db: s.db} }
func (s *PGStore) Users(context.Context) UserStore     { return &userStore{db: s.db} }
func (s *PGStore) RefreshTokens(context.Context) RefreshTokenStore {
	return &refreshTokenStore{db: s.db}
}

const uniqueViolation = "23505"

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == uniqueViolation
}

// Tenant store --------------------------------------------------------------
type tenantStore struct{ db *sql.DB }

func (s *tenantStore) Create(ctx context.Context, t *Tenant) error {
	if _, err := ParseTenantStatus(string(t.Status)); err != nil {
		return err
	}
	_, err := s.db.ExecContext(ctx,
		`insert into tenants(id, key, name, status) values($1,$2,$3,$4)`,
		t.ID, t.Key, t.Name, string(t.Status),
	)
	if isUniqueViolation(err) {
		return ErrAlreadyExists
	}
	return err
}

func (s *tenantStore) Find(ctx context.Context, id string) (*Tenant, error) {
	row := s.db.QueryRowContext(ctx,
		`select id, key, name, status, created_at, updated_at from tenants where id=$1`, id)
	return scanTenant(row)
}

func (s *tenantStore) FindByKey(ctx context.Context, key string) (*Tenant, error) {
	row := s.db.QueryRowContext(ctx,
		`select id, key, name, status, created_at, updated_at from tenants where key=$1`, key)
	return scanTenant(row)
}

func scanTenant(row *sql.Row) (*Tenant, error) {
	var (
		t      Tenant
		status string
	)
	if err := row.Scan(&t.ID, &t.Key, &t.Name, &status, &t.CreatedAt, &t.UpdatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	parsed, err := ParseTenantStatus(status)
	if err != nil {
		return nil, err
	}
	t.Status = parsed
	return &t, nil
}

// User store ----------------------------------------------------------------
type userStore struct{ db *sql.DB }

func (s *userStore) Create(ctx context.Context, u *User) error {
	if err := u.Validate(); err != nil {
		return err
	}
	var tenantID sql.NullString
	if u.TenantID != "" {
		tenantID = sql.NullString{String: u.TenantID, Valid: true}
	}
	_, err := s.db.ExecContext(ctx,
		`insert into users(id, tenant_id, email, password_hash, role) values($1,$2,$3,$4,$5)`,
		u.ID, tenantID, u.Email, u.PasswordHash, string(u.Role),
	)
	if isUniqueViolation(err) {
		return ErrAlreadyExists
	}
	return err
}

func (s *userStore) Find(ctx context.Context, id string) (*User, error) {
	row := s.db.QueryRowContext(ctx,
		`select id, tenant_id, email, password_hash, role, created_at, updated_at
		 from users where id=$1`, id)
	return scanUser(row)
}

func (s *userStore) FindByEmail(ctx context.Context, email string) (*User, error) {
	row := s.db.QueryRowContext(ctx,
		`select id, tenant_id, email, password_hash, role, created_at, updated_at
		 from users where email=$1 order by created_at limit 1`, email)
	return scanUser(row)
}

func (s *userStore) FindByEmailAndTenantKey(ctx context.Context, email, tenantKey string) (*User, error) {
	row := s.db.QueryRowContext(ctx,
		`select u.id, u.tenant_id, u.email, u.password_hash, u.role, u.created_at, u.updated_at
		 from users u join tenants t on t.id = u.tenant_id
		 where u.email=$1 and t.key=$2`, email, tenantKey)
	return scanUser(row)
}

func scanUser(row *sql.Row) (*User, error) {
	var (
		u        User
		tenantID sql.NullString
		role     string
	)
	if err := row.Scan(&u.ID, &tenantID, &u.Email, &u.PasswordHash, &role, &u.CreatedAt, &u.UpdatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	if tenantID.Valid {
		u.TenantID = tenantID.String
	}
	parsed, err := ParseRole(role)
	if err != nil {
		return nil, err
	}
	u.Role = parsed
	return &u, nil
}

// Refresh token store --------------------------------------------------------
type refreshTokenStore struct{ db *sql.DB }

func (s *refreshTokenStore) Create(ctx context.Context, tok *RefreshToken) error {
	_, err := s.db.ExecContext(ctx,
		`insert into refresh_tokens(id, user_id, token, created_at, expires_at)
		 values($1,$2,$3,$4,$5)`,
		tok.ID, tok.UserID, tok.Token, tok.CreatedAt, tok.ExpiresAt,
	)
	if isUniqueViolation(err) {
		return ErrAlreadyExists
	}
	return err
}

func (s *refreshTokenStore) Find(ctx context.Context, token string) (*RefreshToken, error) {
	row := s.db.QueryRowContext(ctx,
		`select id, user_id, token, created_at, expires_at from refresh_tokens where token=$1`, token)
	var rec RefreshToken
	if err := row.Scan(&rec.ID, &rec.UserID, &rec.Token, &rec.CreatedAt, &rec.ExpiresAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &rec, nil
}

func (s *refreshTokenStore) DeleteByToken(ctx context.Context, token string) error {
	_, err := s.db.ExecContext(ctx, `delete from refresh_tokens where token=$1`, token)
	return err
}

func (s *refreshTokenStore) DeleteByUser(ctx context.Context, userID string) error {
	_, err := s.db.ExecContext(ctx, `delete from refresh_tokens where user_id=$1`, userID)
	return err
}

func (s *refreshTokenStore) DeleteExpired(ctx context.Context, cutoff time.Time) (int64, error) {
	res, err := s.db.ExecContext(ctx, `delete from refresh_tokens where expires_at < $1`, cutoff)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}
