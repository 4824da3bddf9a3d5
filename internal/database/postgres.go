package database

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"

	"github.com/JonMunkholm/disha/internal/config"
	"github.com/JonMunkholm/disha/internal/core"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// uniqueViolation is the PostgreSQL SQLSTATE for a unique constraint failure.
const uniqueViolation = "23505"

const schema = `
CREATE TABLE IF NOT EXISTS accounts (
	id            UUID PRIMARY KEY,
	username      TEXT NOT NULL UNIQUE,
	role          TEXT NOT NULL CHECK (role IN ('admin', 'user')),
	password_hash BYTEA NOT NULL,
	created_at    TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS students (
	id           UUID PRIMARY KEY,
	seq          BIGINT GENERATED ALWAYS AS IDENTITY,
	name         TEXT NOT NULL CHECK (name <> ''),
	class        TEXT NOT NULL DEFAULT '',
	phone_number TEXT NOT NULL DEFAULT '',
	school_name  TEXT NOT NULL DEFAULT '',
	state        TEXT NOT NULL DEFAULT '',
	district     TEXT NOT NULL DEFAULT '',
	created_at   TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE INDEX IF NOT EXISTS students_district_idx ON students (district);
CREATE INDEX IF NOT EXISTS students_school_name_idx ON students (school_name);
`

// Postgres is the record store backed by a pgx connection pool.
type Postgres struct {
	pool *pgxpool.Pool
}

var _ core.Store = (*Postgres)(nil)

// NewPostgres wraps an open pool.
func NewPostgres(pool *pgxpool.Pool) *Postgres {
	return &Postgres{pool: pool}
}

// Connect opens and pings a pool configured from cfg.
func Connect(ctx context.Context, cfg config.DatabaseConfig) (*pgxpool.Pool, error) {
	poolConfig, err := pgxpool.ParseConfig(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("parse database URL: %w", err)
	}

	poolConfig.MaxConns = int32(cfg.MaxConns)
	poolConfig.MinConns = int32(cfg.MinConns)
	poolConfig.MaxConnLifetime = cfg.MaxConnLifetime
	poolConfig.MaxConnIdleTime = cfg.MaxConnIdleTime

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, fmt.Errorf("connect to database: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}
	return pool, nil
}

// DatabaseName returns the database name from a connection URL, for logging.
func DatabaseName(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil {
		return ""
	}
	return strings.TrimPrefix(u.Path, "/")
}

// EnsureSchema creates the accounts and students tables if they are missing.
func (p *Postgres) EnsureSchema(ctx context.Context) error {
	if _, err := p.pool.Exec(ctx, schema); err != nil {
		return core.NewStoreError("ensure schema", err)
	}
	return nil
}

const accountColumns = `id::text, username, role, password_hash, created_at`

func scanAccount(row pgx.Row) (core.AccountRecord, error) {
	var a core.AccountRecord
	var role string
	if err := row.Scan(&a.ID, &a.Username, &role, &a.PasswordHash, &a.CreatedAt); err != nil {
		return core.AccountRecord{}, err
	}
	a.Role = core.Role(role)
	return a, nil
}

func (p *Postgres) FindAccountByUsername(ctx context.Context, username string) (core.AccountRecord, bool, error) {
	row := p.pool.QueryRow(ctx,
		`SELECT `+accountColumns+` FROM accounts WHERE username = $1`, username)
	return p.findAccount(row, "find account")
}

func (p *Postgres) GetAccount(ctx context.Context, id string) (core.AccountRecord, bool, error) {
	uid, err := uuid.Parse(id)
	if err != nil {
		return core.AccountRecord{}, false, nil
	}
	row := p.pool.QueryRow(ctx,
		`SELECT `+accountColumns+` FROM accounts WHERE id = $1`, uid)
	return p.findAccount(row, "get account")
}

func (p *Postgres) findAccount(row pgx.Row, op string) (core.AccountRecord, bool, error) {
	a, err := scanAccount(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return core.AccountRecord{}, false, nil
	}
	if err != nil {
		return core.AccountRecord{}, false, core.NewStoreError(op, err)
	}
	return a, true, nil
}

func (p *Postgres) InsertAccount(ctx context.Context, acct core.NewAccountRecord) (core.AccountRecord, error) {
	row := p.pool.QueryRow(ctx, `
		INSERT INTO accounts (id, username, role, password_hash)
		VALUES ($1, $2, $3, $4)
		RETURNING `+accountColumns,
		uuid.New(), acct.Username, string(acct.Role), acct.PasswordHash)

	a, err := scanAccount(row)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return core.AccountRecord{}, core.ErrDuplicateUsername
		}
		return core.AccountRecord{}, core.NewStoreError("insert account", err)
	}
	return a, nil
}

// DeleteAccount removes an account inside a transaction that locks every
// admin row first, so two concurrent removals of different admins cannot
// both see a second admin and leave none.
func (p *Postgres) DeleteAccount(ctx context.Context, id string) error {
	uid, err := uuid.Parse(id)
	if err != nil {
		return core.ErrAccountNotFound
	}

	tx, err := p.pool.Begin(ctx)
	if err != nil {
		return core.NewStoreError("delete account", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	rows, err := tx.Query(ctx,
		`SELECT id FROM accounts WHERE role = $1 FOR UPDATE`, string(core.RoleAdmin))
	if err != nil {
		return core.NewStoreError("delete account", err)
	}
	admins := 0
	for rows.Next() {
		admins++
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return core.NewStoreError("delete account", err)
	}

	var role string
	err = tx.QueryRow(ctx, `SELECT role FROM accounts WHERE id = $1`, uid).Scan(&role)
	if errors.Is(err, pgx.ErrNoRows) {
		return core.ErrAccountNotFound
	}
	if err != nil {
		return core.NewStoreError("delete account", err)
	}
	if core.Role(role) == core.RoleAdmin && admins <= 1 {
		return core.ErrLastAdminProtected
	}

	if _, err := tx.Exec(ctx, `DELETE FROM accounts WHERE id = $1`, uid); err != nil {
		return core.NewStoreError("delete account", err)
	}
	if err := tx.Commit(ctx); err != nil {
		return core.NewStoreError("delete account", err)
	}
	return nil
}

func (p *Postgres) ListAccounts(ctx context.Context) ([]core.AccountRecord, error) {
	rows, err := p.pool.Query(ctx,
		`SELECT `+accountColumns+` FROM accounts ORDER BY created_at, username`)
	if err != nil {
		return nil, core.NewStoreError("list accounts", err)
	}
	defer rows.Close()

	accounts := make([]core.AccountRecord, 0)
	for rows.Next() {
		a, err := scanAccount(rows)
		if err != nil {
			return nil, core.NewStoreError("list accounts", err)
		}
		accounts = append(accounts, a)
	}
	if err := rows.Err(); err != nil {
		return nil, core.NewStoreError("list accounts", err)
	}
	return accounts, nil
}

func (p *Postgres) CountAccountsByRole(ctx context.Context, role core.Role) (int, error) {
	var n int
	err := p.pool.QueryRow(ctx,
		`SELECT count(*) FROM accounts WHERE role = $1`, string(role)).Scan(&n)
	if err != nil {
		return 0, core.NewStoreError("count accounts", err)
	}
	return n, nil
}

const studentColumns = `id::text, name, class, phone_number, school_name, state, district, created_at`

func scanStudent(row pgx.Row) (core.StudentRecord, error) {
	var s core.StudentRecord
	err := row.Scan(&s.ID, &s.Name, &s.Class, &s.PhoneNumber, &s.SchoolName, &s.State, &s.District, &s.CreatedAt)
	return s, err
}

func (p *Postgres) ListStudents(ctx context.Context) ([]core.StudentRecord, error) {
	rows, err := p.pool.Query(ctx,
		`SELECT `+studentColumns+` FROM students ORDER BY seq`)
	if err != nil {
		return nil, core.NewStoreError("list students", err)
	}
	defer rows.Close()

	students := make([]core.StudentRecord, 0)
	for rows.Next() {
		s, err := scanStudent(rows)
		if err != nil {
			return nil, core.NewStoreError("list students", err)
		}
		students = append(students, s)
	}
	if err := rows.Err(); err != nil {
		return nil, core.NewStoreError("list students", err)
	}
	return students, nil
}

func (p *Postgres) InsertStudent(ctx context.Context, s core.NewStudent) (core.StudentRecord, error) {
	row := p.pool.QueryRow(ctx, `
		INSERT INTO students (id, name, class, phone_number, school_name, state, district)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING `+studentColumns,
		uuid.New(), s.Name, s.Class, s.PhoneNumber, s.SchoolName, s.State, s.District)

	rec, err := scanStudent(row)
	if err != nil {
		return core.StudentRecord{}, core.NewStoreError("insert student", err)
	}
	return rec, nil
}

func (p *Postgres) DeleteStudent(ctx context.Context, id string) error {
	uid, err := uuid.Parse(id)
	if err != nil {
		return core.ErrStudentNotFound
	}
	tag, err := p.pool.Exec(ctx, `DELETE FROM students WHERE id = $1`, uid)
	if err != nil {
		return core.NewStoreError("delete student", err)
	}
	if tag.RowsAffected() == 0 {
		return core.ErrStudentNotFound
	}
	return nil
}
