package config

import (
	"fmt"
	"net"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/pelletier/go-toml/v2"
)

type Config struct {
	// HTTP Server
	Port         string `toml:"port"`
	RateLimitRPM int    `toml:"rate_limit_rpm"`
	LogLevel     string `toml:"log_level"`

	// Extra CIDRs whose forwarded headers are trusted, comma separated
	TrustedProxies string `toml:"trusted_proxies"`

	// Backend selection
	DataBackend string `toml:"data_backend"`

	// Database
	DatabaseURL      string `toml:"database_url"`
	SQLiteDBPath     string `toml:"sqlite_db_path"`
	MongoDatabase    string `toml:"mongo_database"`
	SurrealNamespace string `toml:"surreal_namespace"`
	SurrealDatabase  string `toml:"surreal_database"`
	SurrealUser      string `toml:"surreal_user"`
	SurrealPass      string `toml:"surreal_pass"`

	// Ledger
	CategoryPolicy string `toml:"category_policy"`

	// Prediction
	PredictorURL     string        `toml:"predictor_url"`
	PredictorTimeout time.Duration `toml:"-"`

	// AMQP, disabled when the URL is empty
	AMQPURL      string `toml:"amqp_url"`
	AMQPExchange string `toml:"amqp_exchange"`
	AMQPQueue    string `toml:"amqp_queue"`

	// Google Sheets mirror
	GoogleSpreadsheetID string `toml:"google_spreadsheet_id"`
	GoogleSheetName     string `toml:"google_sheet_name"`
}

// Defaults returns the configuration used when neither a file nor the
// environment sets a key.
func Defaults() *Config {
	return &Config{
		Port:             "5001",
		RateLimitRPM:     60,
		LogLevel:         "info",
		DataBackend:      "memory",
		SQLiteDBPath:     "./data/fintrack.db",
		MongoDatabase:    "fintrack",
		SurrealNamespace: "fintrack",
		SurrealDatabase:  "fintrack",
		CategoryPolicy:   "open",
		PredictorURL:     "http://localhost:5002/predict",
		PredictorTimeout: 10 * time.Second,
		AMQPExchange:     "fintrack",
		AMQPQueue:        "ledger_events",
		GoogleSheetName:  "Ledger",
	}
}

// Load reads defaults, then the TOML file named by CONFIG_FILE if set, then
// environment overrides.
func Load() (*Config, error) {
	cfg := Defaults()

	if path := os.Getenv("CONFIG_FILE"); path != "" {
		if err := cfg.loadFile(path); err != nil {
			return nil, err
		}
	}

	cfg.applyEnv()
	return cfg, nil
}

func (c *Config) loadFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config file %s: %w", path, err)
	}
	var file fileConfig
	if err := toml.Unmarshal(data, &file); err != nil {
		return fmt.Errorf("failed to parse config file %s: %w", path, err)
	}
	if err := file.merge(c); err != nil {
		return fmt.Errorf("config file %s: %w", path, err)
	}
	return nil
}

// fileConfig mirrors Config with the timeout as a string so files can use
// Go duration syntax ("10s").
type fileConfig struct {
	Config
	PredictorTimeout string `toml:"predictor_timeout"`
}

func (f *fileConfig) merge(dst *Config) error {
	src := f.Config
	setString(&dst.Port, src.Port)
	setString(&dst.LogLevel, src.LogLevel)
	setString(&dst.TrustedProxies, src.TrustedProxies)
	setString(&dst.DataBackend, src.DataBackend)
	setString(&dst.DatabaseURL, src.DatabaseURL)
	setString(&dst.SQLiteDBPath, src.SQLiteDBPath)
	setString(&dst.MongoDatabase, src.MongoDatabase)
	setString(&dst.SurrealNamespace, src.SurrealNamespace)
	setString(&dst.SurrealDatabase, src.SurrealDatabase)
	setString(&dst.SurrealUser, src.SurrealUser)
	setString(&dst.SurrealPass, src.SurrealPass)
	setString(&dst.CategoryPolicy, src.CategoryPolicy)
	setString(&dst.PredictorURL, src.PredictorURL)
	setString(&dst.AMQPURL, src.AMQPURL)
	setString(&dst.AMQPExchange, src.AMQPExchange)
	setString(&dst.AMQPQueue, src.AMQPQueue)
	setString(&dst.GoogleSpreadsheetID, src.GoogleSpreadsheetID)
	setString(&dst.GoogleSheetName, src.GoogleSheetName)
	if src.RateLimitRPM != 0 {
		dst.RateLimitRPM = src.RateLimitRPM
	}
	if f.PredictorTimeout != "" {
		d, err := time.ParseDuration(f.PredictorTimeout)
		if err != nil {
			return fmt.Errorf("invalid predictor_timeout %q: %w", f.PredictorTimeout, err)
		}
		dst.PredictorTimeout = d
	}
	return nil
}

func (c *Config) applyEnv() {
	c.Port = getEnv("PORT", c.Port)
	c.RateLimitRPM = getEnvInt("RATE_LIMIT_RPM", c.RateLimitRPM)
	c.LogLevel = getEnv("LOG_LEVEL", c.LogLevel)
	c.TrustedProxies = getEnv("TRUSTED_PROXIES", c.TrustedProxies)
	c.DataBackend = getEnv("DATA_BACKEND", c.DataBackend)

	c.DatabaseURL = getEnv("MONGO_URI", c.DatabaseURL)
	c.DatabaseURL = getEnv("DATABASE_URL", c.DatabaseURL)
	c.SQLiteDBPath = getEnv("SQLITE_DB_PATH", c.SQLiteDBPath)
	c.MongoDatabase = getEnv("MONGO_DATABASE", c.MongoDatabase)
	c.SurrealNamespace = getEnv("SURREAL_NAMESPACE", c.SurrealNamespace)
	c.SurrealDatabase = getEnv("SURREAL_DATABASE", c.SurrealDatabase)
	c.SurrealUser = getEnv("SURREAL_USER", c.SurrealUser)
	c.SurrealPass = getEnv("SURREAL_PASS", c.SurrealPass)

	c.CategoryPolicy = getEnv("CATEGORY_POLICY", c.CategoryPolicy)

	c.PredictorURL = getEnv("PREDICTOR_URL", c.PredictorURL)
	c.PredictorTimeout = getEnvDuration("PREDICTOR_TIMEOUT", c.PredictorTimeout)

	c.AMQPURL = getEnv("AMQP_URL", c.AMQPURL)
	c.AMQPExchange = getEnv("AMQP_EXCHANGE", c.AMQPExchange)
	c.AMQPQueue = getEnv("AMQP_QUEUE", c.AMQPQueue)

	c.GoogleSpreadsheetID = getEnv("GOOGLE_SPREADSHEET_ID", c.GoogleSpreadsheetID)
	c.GoogleSheetName = getEnv("GOOGLE_SHEET_NAME", c.GoogleSheetName)
}

// Backends lists the accepted DATA_BACKEND values.
var Backends = []string{"memory", "sqlite", "surrealdb", "postgres", "mongo"}

// Validate validates the configuration and returns an error if invalid
func (c *Config) Validate() error {
	var errors []string

	if port, err := strconv.Atoi(c.Port); err != nil {
		errors = append(errors, fmt.Sprintf("invalid port '%s': must be a number", c.Port))
	} else if port < 1 || port > 65535 {
		errors = append(errors, fmt.Sprintf("invalid port %d: must be between 1 and 65535", port))
	}

	if c.RateLimitRPM < 0 {
		errors = append(errors, fmt.Sprintf("invalid rate limit %d: must be >= 0 (0 disables)", c.RateLimitRPM))
	}

	switch strings.ToLower(c.LogLevel) {
	case "", "debug", "info", "warn", "warning", "error":
	default:
		errors = append(errors, fmt.Sprintf("invalid log level '%s': must be one of debug, info, warn, error", c.LogLevel))
	}

	for _, cidr := range c.TrustedProxyList() {
		if _, _, err := net.ParseCIDR(cidr); err != nil {
			errors = append(errors, fmt.Sprintf("invalid trusted proxy '%s': must be a CIDR", cidr))
		}
	}

	isValidBackend := false
	for _, backend := range Backends {
		if c.DataBackend == backend {
			isValidBackend = true
			break
		}
	}
	if !isValidBackend {
		errors = append(errors, fmt.Sprintf("invalid data backend '%s': must be one of %v", c.DataBackend, Backends))
	}

	switch c.DataBackend {
	case "sqlite":
		if c.SQLiteDBPath == "" {
			errors = append(errors, "SQLite database path cannot be empty when using sqlite backend")
		} else if dir := filepath.Dir(c.SQLiteDBPath); dir != "." && dir != "" {
			if _, err := os.Stat(dir); os.IsNotExist(err) {
				if err := os.MkdirAll(dir, 0755); err != nil {
					errors = append(errors, fmt.Sprintf("cannot create SQLite database directory '%s': %v", dir, err))
				}
			}
		}
	case "postgres":
		if c.DatabaseURL == "" {
			errors = append(errors, "DATABASE_URL is required when using postgres backend")
		} else if !hasScheme(c.DatabaseURL, "postgres", "postgresql") {
			errors = append(errors, "DATABASE_URL must use the postgres:// scheme for postgres backend")
		}
	case "mongo":
		if c.DatabaseURL == "" {
			errors = append(errors, "DATABASE_URL (or MONGO_URI) is required when using mongo backend")
		} else if !hasScheme(c.DatabaseURL, "mongodb", "mongodb+srv") {
			errors = append(errors, "DATABASE_URL must use the mongodb:// scheme for mongo backend")
		}
		if c.MongoDatabase == "" {
			errors = append(errors, "MONGO_DATABASE cannot be empty when using mongo backend")
		}
	case "surrealdb":
		if c.DatabaseURL == "" {
			errors = append(errors, "DATABASE_URL is required when using surrealdb backend")
		} else if !hasScheme(c.DatabaseURL, "ws", "wss", "http", "https") {
			errors = append(errors, "DATABASE_URL must be a ws(s):// or http(s):// address for surrealdb backend")
		}
		if c.SurrealNamespace == "" || c.SurrealDatabase == "" {
			errors = append(errors, "SURREAL_NAMESPACE and SURREAL_DATABASE are required when using surrealdb backend")
		}
	}

	switch strings.ToLower(c.CategoryPolicy) {
	case "", "open", "closed":
	default:
		errors = append(errors, fmt.Sprintf("invalid category policy '%s': must be open or closed", c.CategoryPolicy))
	}

	if c.PredictorURL == "" {
		errors = append(errors, "PREDICTOR_URL cannot be empty")
	} else if !hasScheme(c.PredictorURL, "http", "https") {
		errors = append(errors, fmt.Sprintf("invalid predictor URL '%s': must be http or https", c.PredictorURL))
	}
	if c.PredictorTimeout <= 0 {
		errors = append(errors, fmt.Sprintf("invalid predictor timeout %v: must be positive", c.PredictorTimeout))
	}

	if c.AMQPURL != "" {
		if parsedURL, err := url.Parse(c.AMQPURL); err != nil {
			errors = append(errors, fmt.Sprintf("invalid AMQP URL '%s': %v", c.AMQPURL, err))
		} else if parsedURL.Scheme != "amqp" && parsedURL.Scheme != "amqps" {
			errors = append(errors, fmt.Sprintf("invalid AMQP URL scheme '%s': must be 'amqp' or 'amqps'", parsedURL.Scheme))
		}
		if c.AMQPExchange == "" {
			errors = append(errors, "AMQP exchange name cannot be empty when AMQP URL is provided")
		}
		if c.AMQPQueue == "" {
			errors = append(errors, "AMQP queue name cannot be empty when AMQP URL is provided")
		}
	}

	if len(errors) > 0 {
		return fmt.Errorf("configuration validation failed:\n- %s", strings.Join(errors, "\n- "))
	}

	return nil
}

// ValidateWorker checks the extra settings the ledger mirror worker needs.
func (c *Config) ValidateWorker() error {
	var errors []string
	if c.AMQPURL == "" {
		errors = append(errors, "AMQP_URL is required for the ledger worker")
	}
	if c.GoogleSpreadsheetID == "" {
		errors = append(errors, "GOOGLE_SPREADSHEET_ID is required for the ledger worker")
	}
	if c.GoogleSheetName == "" {
		errors = append(errors, "GOOGLE_SHEET_NAME cannot be empty for the ledger worker")
	}
	if len(errors) > 0 {
		return fmt.Errorf("worker configuration validation failed:\n- %s", strings.Join(errors, "\n- "))
	}
	return nil
}

// TrustedProxyList splits TrustedProxies into its non-empty entries.
func (c *Config) TrustedProxyList() []string {
	var out []string
	for _, cidr := range strings.Split(c.TrustedProxies, ",") {
		if cidr = strings.TrimSpace(cidr); cidr != "" {
			out = append(out, cidr)
		}
	}
	return out
}

func hasScheme(raw string, schemes ...string) bool {
	u, err := url.Parse(raw)
	if err != nil {
		return false
	}
	for _, s := range schemes {
		if u.Scheme == s {
			return true
		}
	}
	return false
}

func setString(dst *string, v string) {
	if v != "" {
		*dst = v
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if i, err := strconv.Atoi(value); err == nil {
			return i
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}
