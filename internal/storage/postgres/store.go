// Package postgres stores profiles as JSONB documents in PostgreSQL.
package postgres

import (
	"context"
	"embed"
	"errors"
	"fmt"
	"strings"
	"time"

	"fintrack/internal/core"
	"fintrack/internal/storage"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/pgx/v5"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

const (
	selectProfile = `SELECT document FROM profiles WHERE email = $1`
	insertProfile = `
        INSERT INTO profiles (email, document, created_at, updated_at)
        VALUES ($1, $2::jsonb, $3, $3)
        ON CONFLICT (email) DO NOTHING`
	upsertProfile = `
        INSERT INTO profiles (email, document, created_at, updated_at)
        VALUES ($1, $2::jsonb, $3, $4)
        ON CONFLICT (email) DO UPDATE SET document = EXCLUDED.document, updated_at = EXCLUDED.updated_at`
)

type Store struct {
	pool *pgxpool.Pool
	now  func() time.Time
}

// Open connects a pool to databaseURL and applies migrations.
func Open(ctx context.Context, databaseURL string) (*Store, error) {
	if err := RunMigrations(databaseURL); err != nil {
		return nil, err
	}
	pool, err := pgxpool.New(ctx, databaseURL)
	if err != nil {
		return nil, fmt.Errorf("unable to connect to database: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}
	return &Store{pool: pool, now: time.Now}, nil
}

// RunMigrations applies the embedded schema through the pgx/v5 migrate driver.
func RunMigrations(databaseURL string) error {
	u, err := migrationURL(databaseURL)
	if err != nil {
		return err
	}
	d, err := iofs.New(migrationsFS, "migrations")
	if err != nil {
		return fmt.Errorf("create iofs source: %w", err)
	}
	m, err := migrate.NewWithSourceInstance("iofs", d, u)
	if err != nil {
		return fmt.Errorf("create migrate instance: %w", err)
	}
	defer m.Close()
	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("run migrations: %w", err)
	}
	return nil
}

// migrationURL rewrites a postgres URL to the scheme the migrate pgx/v5
// driver registers.
func migrationURL(databaseURL string) (string, error) {
	for _, prefix := range []string{"postgres://", "postgresql://", "pgx5://"} {
		if strings.HasPrefix(databaseURL, prefix) {
			return "pgx5://" + strings.TrimPrefix(databaseURL, prefix), nil
		}
	}
	return "", fmt.Errorf("postgres DATABASE_URL must be a postgres:// URL, got %q", redact(databaseURL))
}

func redact(s string) string {
	if i := strings.Index(s, "@"); i >= 0 {
		if j := strings.Index(s, "://"); j >= 0 && j < i {
			return s[:j+3] + "***" + s[i:]
		}
	}
	return s
}

func (s *Store) Close() error {
	s.pool.Close()
	return nil
}

func (s *Store) Ping(ctx context.Context) error {
	if err := s.pool.Ping(ctx); err != nil {
		return storage.Unavailable("postgres ping", err)
	}
	return nil
}

func (s *Store) Get(ctx context.Context, email string) (*core.Profile, error) {
	var doc []byte
	err := s.pool.QueryRow(ctx, selectProfile, email).Scan(&doc)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, storage.ErrNotFound
	}
	if err != nil {
		return nil, storage.Unavailable("postgres get", err)
	}
	p, err := storage.DecodeDocument(doc)
	if err != nil {
		return nil, storage.Unavailable("postgres get", err)
	}
	return p, nil
}

func (s *Store) CreateDefault(ctx context.Context, email string) (*core.Profile, error) {
	p := core.DefaultProfile(email, s.now())
	doc, err := storage.EncodeDocument(p)
	if err != nil {
		return nil, err
	}
	if _, err := s.pool.Exec(ctx, insertProfile, email, string(doc), p.CreatedAt); err != nil {
		return nil, storage.Unavailable("postgres create", err)
	}
	return s.Get(ctx, email)
}

func (s *Store) Save(ctx context.Context, p *core.Profile) (*core.Profile, error) {
	doc, err := storage.EncodeDocument(p)
	if err != nil {
		return nil, err
	}
	now := s.now().UTC()
	created, updated := p.CreatedAt, p.UpdatedAt
	if created.IsZero() {
		created = now
	}
	if updated.IsZero() {
		updated = now
	}
	if _, err := s.pool.Exec(ctx, upsertProfile, p.Email, string(doc), created, updated); err != nil {
		return nil, storage.Unavailable("postgres save", err)
	}
	return s.Get(ctx, p.Email)
}
