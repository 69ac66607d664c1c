package backend

import (
	"fmt"

	"fintrack/internal/config"
)

// FromAppConfig converts the application config to backend config
func FromAppConfig(appConfig *config.Config) (Config, error) {
	if appConfig == nil {
		return Config{}, fmt.Errorf("app config is nil")
	}

	backendType := BackendType(appConfig.DataBackend)
	if !backendType.IsValid() {
		return Config{}, fmt.Errorf("invalid backend type in config: %s", appConfig.DataBackend)
	}

	return Config{
		Type:             backendType,
		SQLiteDBPath:     appConfig.SQLiteDBPath,
		DatabaseURL:      appConfig.DatabaseURL,
		MongoDatabase:    appConfig.MongoDatabase,
		SurrealNamespace: appConfig.SurrealNamespace,
		SurrealDatabase:  appConfig.SurrealDatabase,
		SurrealUser:      appConfig.SurrealUser,
		SurrealPass:      appConfig.SurrealPass,
	}, nil
}

// Validate validates the backend configuration
func (c Config) Validate() error {
	if !c.Type.IsValid() {
		return fmt.Errorf("invalid backend type: %s", c.Type)
	}

	switch c.Type {
	case SQLiteBackend:
		if c.SQLiteDBPath == "" {
			return fmt.Errorf("SQLite database path is required for sqlite backend")
		}
	case PostgresBackend:
		if c.DatabaseURL == "" {
			return fmt.Errorf("database URL is required for postgres backend")
		}
	case MongoBackend:
		if c.DatabaseURL == "" {
			return fmt.Errorf("database URL is required for mongo backend")
		}
		if c.MongoDatabase == "" {
			return fmt.Errorf("database name is required for mongo backend")
		}
	case SurrealBackend:
		if c.DatabaseURL == "" {
			return fmt.Errorf("database URL is required for surrealdb backend")
		}
		if c.SurrealNamespace == "" || c.SurrealDatabase == "" {
			return fmt.Errorf("namespace and database are required for surrealdb backend")
		}
	case MemoryBackend:
	}

	return nil
}

// GetBackendTypes returns all valid backend types
func GetBackendTypes() []BackendType {
	return []BackendType{MemoryBackend, SQLiteBackend, SurrealBackend, PostgresBackend, MongoBackend}
}

// GetBackendTypeStrings returns all valid backend type strings
func GetBackendTypeStrings() []string {
	types := GetBackendTypes()
	out := make([]string, len(types))
	for i, t := range types {
		out[i] = t.String()
	}
	return out
}
