// Package sqlite stores profiles as JSON documents in a local SQLite file.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"fintrack/internal/core"
	"fintrack/internal/storage"

	_ "modernc.org/sqlite"
)

const (
	selectProfile = `SELECT document FROM profiles WHERE email = ?`
	insertProfile = `INSERT INTO profiles (email, document, created_at, updated_at)
VALUES (?, ?, ?, ?) ON CONFLICT(email) DO NOTHING`
	upsertProfile = `INSERT INTO profiles (email, document, created_at, updated_at)
VALUES (?, ?, ?, ?)
ON CONFLICT(email) DO UPDATE SET document = excluded.document, updated_at = excluded.updated_at`
)

type Store struct {
	db  *sql.DB
	now func() time.Time
}

// Open creates the database directory if needed, opens dbPath and applies
// migrations.
func Open(dbPath string) (*Store, error) {
	if dir := filepath.Dir(dbPath); dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("create db directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}
	// A single writer avoids SQLITE_BUSY under concurrent requests.
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if err := RunMigrations(dbPath); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &Store{db: db, now: time.Now}, nil
}

func (s *Store) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

func (s *Store) Ping(ctx context.Context) error {
	if err := s.db.PingContext(ctx); err != nil {
		return storage.Unavailable("sqlite ping", err)
	}
	return nil
}

func (s *Store) Get(ctx context.Context, email string) (*core.Profile, error) {
	var doc string
	err := s.db.QueryRowContext(ctx, selectProfile, email).Scan(&doc)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, storage.ErrNotFound
	}
	if err != nil {
		return nil, storage.Unavailable("sqlite get", err)
	}
	p, err := storage.DecodeDocument([]byte(doc))
	if err != nil {
		return nil, storage.Unavailable("sqlite get", err)
	}
	return p, nil
}

func (s *Store) CreateDefault(ctx context.Context, email string) (*core.Profile, error) {
	p := core.DefaultProfile(email, s.now())
	doc, err := storage.EncodeDocument(p)
	if err != nil {
		return nil, err
	}
	ts := p.CreatedAt.Format(time.RFC3339Nano)
	if _, err := s.db.ExecContext(ctx, insertProfile, email, string(doc), ts, ts); err != nil {
		return nil, storage.Unavailable("sqlite create", err)
	}
	return s.Get(ctx, email)
}

func (s *Store) Save(ctx context.Context, p *core.Profile) (*core.Profile, error) {
	doc, err := storage.EncodeDocument(p)
	if err != nil {
		return nil, err
	}
	created := p.CreatedAt
	if created.IsZero() {
		created = s.now()
	}
	updated := p.UpdatedAt
	if updated.IsZero() {
		updated = s.now()
	}
	_, err = s.db.ExecContext(ctx, upsertProfile, p.Email, string(doc),
		created.UTC().Format(time.RFC3339Nano), updated.UTC().Format(time.RFC3339Nano))
	if err != nil {
		return nil, storage.Unavailable("sqlite save", err)
	}
	return s.Get(ctx, p.Email)
}
