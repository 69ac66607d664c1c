package backend

import (
	"context"

	"fintrack/internal/storage"
)

// CleanupFunc releases the resources a backend holds.
type CleanupFunc func() error

// BackendResult contains the store instance and optional cleanup function
type BackendResult struct {
	Store   storage.Store
	Cleanup CleanupFunc
}

// Factory creates stores based on configuration
type Factory interface {
	CreateBackend(ctx context.Context, config Config) (*BackendResult, error)
}

// Config holds configuration for backend creation
type Config struct {
	Type BackendType

	// sqlite
	SQLiteDBPath string

	// postgres, mongo and surrealdb connection string
	DatabaseURL string

	// mongo
	MongoDatabase string

	// surrealdb
	SurrealNamespace string
	SurrealDatabase  string
	SurrealUser      string
	SurrealPass      string
}

// BackendType represents the type of backend
type BackendType string

const (
	MemoryBackend   BackendType = "memory"
	SQLiteBackend   BackendType = "sqlite"
	SurrealBackend  BackendType = "surrealdb"
	PostgresBackend BackendType = "postgres"
	MongoBackend    BackendType = "mongo"
)

// String implements fmt.Stringer
func (bt BackendType) String() string {
	return string(bt)
}

// IsValid returns true if the backend type is valid
func (bt BackendType) IsValid() bool {
	switch bt {
	case MemoryBackend, SQLiteBackend, SurrealBackend, PostgresBackend, MongoBackend:
		return true
	default:
		return false
	}
}
