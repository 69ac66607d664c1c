// Package surreal stores profiles in a schemaless SurrealDB table keyed by
// email.
package surreal

import (
	"context"
	"fmt"
	"strings"
	"time"

	"fintrack/internal/core"
	"fintrack/internal/storage"

	"github.com/surrealdb/surrealdb.go"
	surrealmodels "github.com/surrealdb/surrealdb.go/pkg/models"
)

const table = "profile"

// Config holds the connection settings.
type Config struct {
	Address   string
	Namespace string
	Database  string
	Username  string
	Password  string
}

type profileRecord struct {
	Email     string    `json:"email"`
	Document  string    `json:"document"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

type Store struct {
	db  *surrealdb.DB
	now func() time.Time
}

// Open connects, signs in, selects the namespace and database and defines the
// profile table.
func Open(ctx context.Context, cfg Config) (*Store, error) {
	db, err := surrealdb.New(cfg.Address)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to SurrealDB: %w", err)
	}

	if cfg.Username != "" {
		if _, err := db.SignIn(ctx, map[string]interface{}{
			"user": cfg.Username,
			"pass": cfg.Password,
		}); err != nil {
			db.Close(ctx)
			return nil, fmt.Errorf("failed to sign in to SurrealDB: %w", err)
		}
	}

	if err := db.Use(ctx, cfg.Namespace, cfg.Database); err != nil {
		db.Close(ctx)
		return nil, fmt.Errorf("failed to select namespace/database: %w", err)
	}

	sql := fmt.Sprintf("DEFINE TABLE IF NOT EXISTS %s SCHEMALESS", table)
	if _, err := surrealdb.Query[any](ctx, db, sql, nil); err != nil {
		db.Close(ctx)
		return nil, fmt.Errorf("failed to define table %s: %w", table, err)
	}

	return &Store{db: db, now: time.Now}, nil
}

func recordID(email string) surrealmodels.RecordID {
	return surrealmodels.NewRecordID(table, email)
}

func (s *Store) Close() error {
	return s.db.Close(context.Background())
}

func (s *Store) Ping(ctx context.Context) error {
	if _, err := surrealdb.Query[any](ctx, s.db, "RETURN true", nil); err != nil {
		return storage.Unavailable("surreal ping", err)
	}
	return nil
}

func (s *Store) Get(ctx context.Context, email string) (*core.Profile, error) {
	record, err := surrealdb.Select[profileRecord](ctx, s.db, recordID(email))
	if err != nil {
		if isNotFoundError(err) {
			return nil, storage.ErrNotFound
		}
		return nil, storage.Unavailable("surreal get", err)
	}
	if record == nil {
		return nil, storage.ErrNotFound
	}
	p, err := storage.DecodeDocument([]byte(record.Document))
	if err != nil {
		return nil, storage.Unavailable("surreal get", err)
	}
	return p, nil
}

func (s *Store) CreateDefault(ctx context.Context, email string) (*core.Profile, error) {
	p := core.DefaultProfile(email, s.now())
	rec, err := newRecord(p)
	if err != nil {
		return nil, err
	}
	vars := map[string]any{"rid": recordID(email), "record": rec}
	// CREATE fails when the record exists; whatever is stored wins.
	_, createErr := surrealdb.Query[[]profileRecord](ctx, s.db, "CREATE $rid CONTENT $record", vars)

	stored, err := s.Get(ctx, email)
	if err == nil {
		return stored, nil
	}
	if createErr != nil {
		return nil, storage.Unavailable("surreal create", createErr)
	}
	return nil, err
}

func (s *Store) Save(ctx context.Context, p *core.Profile) (*core.Profile, error) {
	c := p.Clone()
	if c.CreatedAt.IsZero() {
		c.CreatedAt = s.now().UTC()
	}
	if c.UpdatedAt.IsZero() {
		c.UpdatedAt = s.now().UTC()
	}
	rec, err := newRecord(c)
	if err != nil {
		return nil, err
	}
	vars := map[string]any{"rid": recordID(c.Email), "record": rec}
	if _, err := surrealdb.Query[[]profileRecord](ctx, s.db, "UPSERT $rid CONTENT $record", vars); err != nil {
		return nil, storage.Unavailable("surreal save", err)
	}
	return s.Get(ctx, c.Email)
}

func newRecord(p *core.Profile) (profileRecord, error) {
	doc, err := storage.EncodeDocument(p)
	if err != nil {
		return profileRecord{}, err
	}
	return profileRecord{
		Email:     p.Email,
		Document:  string(doc),
		CreatedAt: p.CreatedAt,
		UpdatedAt: p.UpdatedAt,
	}, nil
}

func isNotFoundError(err error) bool {
	if err == nil {
		return false
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "not found") || strings.Contains(msg, "does not exist")
}
