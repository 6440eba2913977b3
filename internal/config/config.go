// Package config handles loading application configuration from environment
// variables. All config is centralized here so no other package reads env
// vars directly. Sensible defaults are provided for development.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"net"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/go-sql-driver/mysql"
	"github.com/joho/godotenv"
)

// Config holds all application configuration. Populated from environment
// variables at startup. Passed to other packages via dependency injection.
type Config struct {
	// Env is the runtime environment: "development" or "production".
	Env string

	// Port is the HTTP listen port (default: 8080).
	Port int

	// BaseURL is the public-facing URL used for links and redirects.
	BaseURL string

	// LogLevel controls log verbosity: "debug", "info", "warn", "error".
	LogLevel string

	// SiteName is shown in the public site header and page titles.
	SiteName string

	// CORSOrigins lists the origins allowed to call the API (admin SPA).
	CORSOrigins []string

	// TrustedProxies lists the CIDRs or addresses of reverse proxies whose
	// forwarding headers are believed.
	TrustedProxies []string

	// Database holds MariaDB connection settings.
	Database DatabaseConfig

	// Redis holds Redis connection settings.
	Redis RedisConfig

	// Admin holds admin API credentials.
	Admin AdminConfig

	// Media holds upload, variant and retention settings.
	Media MediaConfig

	// Content holds language settings for translations.
	Content ContentConfig
}

// DatabaseConfig holds MariaDB connection parameters. If DATABASE_URL is
// set, it takes precedence over the individual fields.
type DatabaseConfig struct {
	// Host is the MariaDB address in host:port format (default: "localhost:3306").
	// If no port is specified, 3306 is appended automatically.
	Host string

	User     string
	Password string
	Name     string

	// dsnOverride is set when DATABASE_URL is provided, bypassing individual fields.
	dsnOverride string

	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration

	// MigrationsPath is the directory holding golang-migrate SQL files.
	MigrationsPath string
}

// DSN returns the go-sql-driver/mysql connection string. If DATABASE_URL was
// set, it is returned as-is. Otherwise the DSN is built from the individual
// fields using the driver's Config.FormatDSN() to safely handle special
// characters in passwords.
func (d DatabaseConfig) DSN() string {
	if d.dsnOverride != "" {
		return d.dsnOverride
	}
	cfg := mysql.NewConfig()
	cfg.User = d.User
	cfg.Passwd = d.Password
	cfg.Net = "tcp"
	cfg.Addr = ensurePort(d.Host, "3306")
	cfg.DBName = d.Name
	cfg.ParseTime = true
	cfg.Loc = time.UTC
	return cfg.FormatDSN()
}

// ensurePort appends the default port if the host string doesn't include one.
func ensurePort(host, defaultPort string) string {
	_, _, err := net.SplitHostPort(host)
	if err != nil {
		return net.JoinHostPort(host, defaultPort)
	}
	return host
}

// RedisConfig holds Redis connection parameters.
type RedisConfig struct {
	// URL is the Redis connection URL (e.g., "redis://localhost:6379").
	URL string

	// CacheTTL bounds how long public content responses stay cached.
	CacheTTL time.Duration
}

// AdminConfig holds admin API credentials.
type AdminConfig struct {
	// TokenHash is the bcrypt hash of the admin bearer token.
	TokenHash string
}

// MediaConfig holds file upload settings.
type MediaConfig struct {
	// MaxSize is the maximum upload file size in bytes.
	MaxSize int64

	// UploadsPath is the root directory for media file storage.
	UploadsPath string

	// RetentionDays is how long soft-deleted assets are kept before the
	// cleanup sweep purges them.
	RetentionDays int

	// WebPQuality is the lossy quality (1-100) used for generated variants.
	WebPQuality int
}

// ContentConfig holds translation language settings.
type ContentConfig struct {
	// Languages is the ordered list of supported language codes.
	Languages []string

	// DefaultLanguage is used for slug derivation and public fallbacks.
	DefaultLanguage string
}

// defaultTrustedProxies covers loopback, Docker bridge networks and
// private LANs.
var defaultTrustedProxies = []string{
	"127.0.0.0/8",
	"10.0.0.0/8",
	"172.16.0.0/12",
	"192.168.0.0/16",
	"::1/128",
	"fd00::/8",
}

// Load reads configuration from environment variables with sensible defaults.
// A .env file in the working directory is applied first when present.
// Returns an error if required variables are missing or invalid.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("loading .env: %w", err)
	}

	cfg := &Config{
		Env:         getEnv("ENV", "development"),
		Port:        getEnvInt("PORT", 8080),
		BaseURL:     getEnv("BASE_URL", "http://localhost:8080"),
		LogLevel:    getEnv("LOG_LEVEL", "debug"),
		SiteName:    getEnv("SITE_NAME", "Folio"),
		CORSOrigins: getEnvList("CORS_ORIGINS", nil),

		TrustedProxies: getEnvList("TRUSTED_PROXIES", defaultTrustedProxies),

		Database: DatabaseConfig{
			Host:            getEnv("DB_HOST", "localhost:3306"),
			User:            getEnv("DB_USER", "folio"),
			Password:        getEnv("DB_PASSWORD", "folio"),
			Name:            getEnv("DB_NAME", "folio"),
			dsnOverride:     getEnv("DATABASE_URL", ""),
			MaxOpenConns:    getEnvInt("DB_MAX_OPEN_CONNS", 25),
			MaxIdleConns:    getEnvInt("DB_MAX_IDLE_CONNS", 5),
			ConnMaxLifetime: getEnvDuration("DB_CONN_MAX_LIFETIME", 5*time.Minute),
			MigrationsPath:  getEnv("MIGRATIONS_PATH", "db/migrations"),
		},

		Redis: RedisConfig{
			URL:      getEnv("REDIS_URL", "redis://localhost:6379"),
			CacheTTL: getEnvDuration("CACHE_TTL", 5*time.Minute),
		},

		Admin: AdminConfig{
			TokenHash: getEnv("ADMIN_TOKEN_HASH", ""),
		},

		Media: MediaConfig{
			MaxSize:       getEnvInt64("MAX_UPLOAD_SIZE", 20*1024*1024), // 20MB
			UploadsPath:   getEnv("UPLOADS_PATH", "./uploads"),
			RetentionDays: getEnvInt("MEDIA_RETENTION_DAYS", 30),
			WebPQuality:   getEnvInt("WEBP_QUALITY", 80),
		},

		Content: ContentConfig{
			Languages: getEnvList("SUPPORTED_LANGUAGES", []string{"en", "ru"}),
		},
	}
	for i, lang := range cfg.Content.Languages {
		cfg.Content.Languages[i] = strings.ToLower(lang)
	}
	cfg.Content.DefaultLanguage = strings.ToLower(getEnv("DEFAULT_LANGUAGE", cfg.Content.Languages[0]))
	if len(cfg.CORSOrigins) == 0 {
		cfg.CORSOrigins = []string{cfg.BaseURL}
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// validate checks cross-field constraints that defaults cannot guarantee.
func (c *Config) validate() error {
	if !c.IsDevelopment() && c.Admin.TokenHash == "" {
		return fmt.Errorf("ADMIN_TOKEN_HASH is required outside development")
	}
	if c.Media.RetentionDays < 0 {
		return fmt.Errorf("MEDIA_RETENTION_DAYS must not be negative")
	}
	if c.Media.WebPQuality < 1 || c.Media.WebPQuality > 100 {
		return fmt.Errorf("WEBP_QUALITY must be between 1 and 100")
	}
	if len(c.Content.Languages) == 0 {
		return fmt.Errorf("SUPPORTED_LANGUAGES must list at least one language")
	}
	for _, lang := range c.Content.Languages {
		if lang == c.Content.DefaultLanguage {
			return nil
		}
	}
	return fmt.Errorf("DEFAULT_LANGUAGE %q is not in SUPPORTED_LANGUAGES", c.Content.DefaultLanguage)
}

// IsDevelopment returns true if running in development mode.
func (c *Config) IsDevelopment() bool {
	env := strings.ToLower(c.Env)
	return env == "development" || env == "dev"
}

// --- Helper functions for reading environment variables ---

// getEnv reads a string env var or returns the default.
func getEnv(key, defaultVal string) string {
	if val, ok := os.LookupEnv(key); ok {
		return val
	}
	return defaultVal
}

// getEnvInt reads an integer env var or returns the default.
func getEnvInt(key string, defaultVal int) int {
	if val, ok := os.LookupEnv(key); ok {
		if i, err := strconv.Atoi(val); err == nil {
			return i
		}
	}
	return defaultVal
}

// getEnvInt64 reads an int64 env var or returns the default.
func getEnvInt64(key string, defaultVal int64) int64 {
	if val, ok := os.LookupEnv(key); ok {
		if i, err := strconv.ParseInt(val, 10, 64); err == nil {
			return i
		}
	}
	return defaultVal
}

// getEnvDuration reads a duration env var (e.g., "720h") or returns the default.
func getEnvDuration(key string, defaultVal time.Duration) time.Duration {
	if val, ok := os.LookupEnv(key); ok {
		if d, err := time.ParseDuration(val); err == nil {
			return d
		}
	}
	return defaultVal
}

// getEnvList reads a comma-separated env var, trimming blanks.
func getEnvList(key string, defaultVal []string) []string {
	val, ok := os.LookupEnv(key)
	if !ok {
		return defaultVal
	}
	var out []string
	for _, part := range strings.Split(val, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	if len(out) == 0 {
		return defaultVal
	}
	return out
}
