// Package config provides configuration management for uiconf.
// Configuration is YAML only, with every default kept in the Defaults
// struct and applied through viper.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"path/filepath"
	"slices"
	"strings"
	"time"
	"unicode"

	"github.com/spf13/viper"

	"github.com/thalib/uiconf/cmd/uiconf/internal/constants"
)

const (
	// VersionMajor is the major version number
	VersionMajor = 1
	// VersionMinor is the minor version number
	VersionMinor = 4
	// RootMessage is the plain text response for the root endpoint.
	RootMessage = "uiconf is running."
)

// Version returns the version string in format {major}.{minor}
func Version() string {
	return fmt.Sprintf("%d.%d", VersionMajor, VersionMinor)
}

// Defaults contains all default configuration values
// centralized in one place to avoid hardcoded literals
var Defaults = struct {
	Server struct {
		Port   int
		Host   string
		Prefix string
	}
	Database struct {
		Connection string
		Database   string
		Host       string
	}
	Logging struct {
		Path   string
		Level  string
		Format string
	}
	Pagination struct {
		PageSize    int
		MaxPageSize int
	}
	Ratio struct {
		Expose          bool
		Endpoint        string
		SyncTimeout     int
		SyncConcurrency int
	}
	CORS struct {
		Enabled bool
		MaxAge  int
	}
	ConfigPath string
}{
	Server: struct {
		Port   int
		Host   string
		Prefix string
	}{
		Port:   3000,
		Host:   "0.0.0.0",
		Prefix: "",
	},
	Database: struct {
		Connection string
		Database   string
		Host       string
	}{
		Connection: "sqlite",
		Database:   constants.DefaultSQLitePath,
		Host:       "127.0.0.1",
	},
	Logging: struct {
		Path   string
		Level  string
		Format string
	}{
		Path:   constants.DefaultLogDirectory,
		Level:  "info",
		Format: "console",
	},
	Pagination: struct {
		PageSize    int
		MaxPageSize int
	}{
		PageSize:    constants.ItemsPerPage,
		MaxPageSize: constants.MaxPageSize,
	},
	Ratio: struct {
		Expose          bool
		Endpoint        string
		SyncTimeout     int
		SyncConcurrency int
	}{
		Expose:          true,
		Endpoint:        constants.DefaultEndpoint,
		SyncTimeout:     int(constants.RatioSyncTimeout / time.Second),
		SyncConcurrency: constants.RatioSyncConcurrency,
	},
	CORS: struct {
		Enabled bool
		MaxAge  int
	}{
		Enabled: false,
		MaxAge:  3600,
	},
	ConfigPath: constants.DefaultConfigPath,
}

// AppConfig holds the application configuration.
// It is immutable after Load returns.
type AppConfig struct {
	Server     ServerConfig     `mapstructure:"server"`
	Database   DatabaseConfig   `mapstructure:"database"`
	Logging    LoggingConfig    `mapstructure:"logging"`
	JWT        JWTConfig        `mapstructure:"jwt"`
	Pagination PaginationConfig `mapstructure:"pagination"`
	Ratio      RatioConfig      `mapstructure:"ratio"`
	CORS       CORSConfig       `mapstructure:"cors"`
}

// ServerConfig holds server-related configuration.
type ServerConfig struct {
	Port   int    `mapstructure:"port"`
	Host   string `mapstructure:"host"`
	Prefix string `mapstructure:"prefix"`
}

// DatabaseConfig holds database connection configuration.
type DatabaseConfig struct {
	Connection string `mapstructure:"connection"` // sqlite, postgres, mysql
	Database   string `mapstructure:"database"`   // database file/name
	User       string `mapstructure:"user"`
	Password   string `mapstructure:"password"`
	Host       string `mapstructure:"host"`
}

// LoggingConfig holds logging configuration.
type LoggingConfig struct {
	Path   string `mapstructure:"path"`   // log directory path
	Level  string `mapstructure:"level"`  // debug, info, warn, error
	Format string `mapstructure:"format"` // console, json, simple
}

// JWTConfig holds JWT authentication configuration.
type JWTConfig struct {
	Secret string `mapstructure:"secret"`
}

// PaginationConfig holds pagination settings for list endpoints.
// PageSize exists so operators can see the value in their config file;
// it must equal constants.ItemsPerPage.
type PaginationConfig struct {
	PageSize    int `mapstructure:"page_size"`
	MaxPageSize int `mapstructure:"max_page_size"`
}

// RatioConfig controls ratio exposure and upstream syncing.
type RatioConfig struct {
	Expose          bool   `mapstructure:"expose"`           // serve ratios on Endpoint
	Endpoint        string `mapstructure:"endpoint"`         // route for the exposed ratios
	SyncTimeout     int    `mapstructure:"sync_timeout"`     // per-upstream timeout in seconds
	SyncConcurrency int    `mapstructure:"sync_concurrency"` // upstreams fetched at once
}

// SyncTimeoutDuration returns SyncTimeout as a time.Duration.
func (r RatioConfig) SyncTimeoutDuration() time.Duration {
	return time.Duration(r.SyncTimeout) * time.Second
}

// CORSConfig allows a console hosted on another origin to call the API.
type CORSConfig struct {
	Enabled          bool     `mapstructure:"enabled"`
	AllowedOrigins   []string `mapstructure:"allowed_origins"`
	AllowCredentials bool     `mapstructure:"allow_credentials"`
	MaxAge           int      `mapstructure:"max_age"` // preflight cache in seconds
}

// ErrPageSizeMismatch is returned when pagination.page_size differs from
// the page size compiled into the web console.
var ErrPageSizeMismatch = errors.New("pagination.page_size must match the console page size")

// Load initializes and loads the application configuration.
// An explicit configPath must exist; the default path may be absent.
func Load(configPath string) (*AppConfig, error) {
	v := viper.New()
	setDefaults(v)

	v.SetConfigType("yaml")
	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.SetConfigFile(Defaults.ConfigPath)
	}

	if err := v.ReadInConfig(); err != nil {
		if configPath != "" {
			if isNotFound(err) {
				return nil, fmt.Errorf("config file not found: %s", configPath)
			}
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		if !isNotFound(err) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	var cfg AppConfig
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := validate(&cfg); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", Defaults.Server.Port)
	v.SetDefault("server.host", Defaults.Server.Host)
	v.SetDefault("server.prefix", Defaults.Server.Prefix)
	v.SetDefault("database.connection", Defaults.Database.Connection)
	v.SetDefault("database.database", Defaults.Database.Database)
	v.SetDefault("database.host", Defaults.Database.Host)
	v.SetDefault("logging.path", Defaults.Logging.Path)
	v.SetDefault("logging.level", Defaults.Logging.Level)
	v.SetDefault("logging.format", Defaults.Logging.Format)
	v.SetDefault("pagination.page_size", Defaults.Pagination.PageSize)
	v.SetDefault("pagination.max_page_size", Defaults.Pagination.MaxPageSize)
	v.SetDefault("ratio.expose", Defaults.Ratio.Expose)
	v.SetDefault("ratio.endpoint", Defaults.Ratio.Endpoint)
	v.SetDefault("ratio.sync_timeout", Defaults.Ratio.SyncTimeout)
	v.SetDefault("ratio.sync_concurrency", Defaults.Ratio.SyncConcurrency)
	v.SetDefault("cors.enabled", Defaults.CORS.Enabled)
	v.SetDefault("cors.max_age", Defaults.CORS.MaxAge)
}

// isNotFound covers both viper's search-path error and a missing explicit file.
func isNotFound(err error) bool {
	var notFound viper.ConfigFileNotFoundError
	if errors.As(err, &notFound) {
		return true
	}
	return errors.Is(err, fs.ErrNotExist)
}

// validate checks required fields and fills in defaults for zero values.
func validate(cfg *AppConfig) error {
	if cfg.Server.Port <= 0 || cfg.Server.Port > 65535 {
		return fmt.Errorf("invalid server port: %d", cfg.Server.Port)
	}

	if cfg.Server.Prefix != "" && !strings.HasPrefix(cfg.Server.Prefix, "/") {
		cfg.Server.Prefix = "/" + cfg.Server.Prefix
	}
	cfg.Server.Prefix = strings.TrimSuffix(cfg.Server.Prefix, "/")
	if !isLiteralPath(cfg.Server.Prefix) {
		return fmt.Errorf("server.prefix must be a literal path: %q", cfg.Server.Prefix)
	}

	if cfg.Database.Connection == "" {
		cfg.Database.Connection = Defaults.Database.Connection
	}
	switch cfg.Database.Connection {
	case "sqlite", "postgres", "mysql":
	default:
		return fmt.Errorf("unsupported database connection: %q", cfg.Database.Connection)
	}
	if cfg.Database.Database == "" {
		cfg.Database.Database = Defaults.Database.Database
	}
	if cfg.Database.Connection == "sqlite" && cfg.Database.Database != ":memory:" && !filepath.IsAbs(cfg.Database.Database) {
		absPath, err := filepath.Abs(cfg.Database.Database)
		if err != nil {
			return fmt.Errorf("failed to resolve database path: %w", err)
		}
		cfg.Database.Database = absPath
	}

	if cfg.Logging.Path == "" {
		cfg.Logging.Path = Defaults.Logging.Path
	}
	switch cfg.Logging.Level {
	case "":
		cfg.Logging.Level = Defaults.Logging.Level
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("invalid logging level: %q", cfg.Logging.Level)
	}
	switch cfg.Logging.Format {
	case "":
		cfg.Logging.Format = Defaults.Logging.Format
	case "console", "json", "simple":
	default:
		return fmt.Errorf("invalid logging format: %q", cfg.Logging.Format)
	}

	if cfg.JWT.Secret == "" {
		return fmt.Errorf("JWT secret is required (set in config file under jwt.secret)")
	}

	if cfg.Pagination.PageSize <= 0 {
		cfg.Pagination.PageSize = Defaults.Pagination.PageSize
	}
	if cfg.Pagination.PageSize != constants.ItemsPerPage {
		return fmt.Errorf("%w: got %d, console uses %d",
			ErrPageSizeMismatch, cfg.Pagination.PageSize, constants.ItemsPerPage)
	}
	if cfg.Pagination.MaxPageSize <= 0 {
		cfg.Pagination.MaxPageSize = Defaults.Pagination.MaxPageSize
	}
	if cfg.Pagination.MaxPageSize < cfg.Pagination.PageSize {
		return fmt.Errorf("pagination.max_page_size (%d) cannot be less than pagination.page_size (%d)",
			cfg.Pagination.MaxPageSize, cfg.Pagination.PageSize)
	}

	if cfg.Ratio.Endpoint == "" {
		cfg.Ratio.Endpoint = Defaults.Ratio.Endpoint
	}
	if !strings.HasPrefix(cfg.Ratio.Endpoint, "/") {
		return fmt.Errorf("ratio.endpoint must start with '/': %q", cfg.Ratio.Endpoint)
	}
	if !isLiteralPath(cfg.Ratio.Endpoint) {
		return fmt.Errorf("ratio.endpoint must be a literal path: %q", cfg.Ratio.Endpoint)
	}
	cfg.Ratio.Endpoint = strings.TrimSuffix(cfg.Ratio.Endpoint, "/")
	if constants.IsReservedRoute(cfg.Ratio.Endpoint) || cfg.Ratio.Endpoint == "" {
		return fmt.Errorf("ratio.endpoint conflicts with a built-in route: %q", cfg.Ratio.Endpoint)
	}
	if cfg.Ratio.SyncTimeout <= 0 {
		cfg.Ratio.SyncTimeout = Defaults.Ratio.SyncTimeout
	}
	if cfg.Ratio.SyncConcurrency <= 0 {
		cfg.Ratio.SyncConcurrency = Defaults.Ratio.SyncConcurrency
	}

	if cfg.CORS.Enabled {
		if len(cfg.CORS.AllowedOrigins) == 0 {
			return fmt.Errorf("cors.allowed_origins is required when cors is enabled")
		}
		if cfg.CORS.AllowCredentials && slices.Contains(cfg.CORS.AllowedOrigins, "*") {
			return fmt.Errorf("cors.allow_credentials cannot be used with a '*' origin")
		}
	}
	if cfg.CORS.MaxAge < 0 {
		cfg.CORS.MaxAge = 0
	}

	return nil
}

// isLiteralPath rejects characters http.ServeMux reads as pattern syntax
// or as the method separator.
func isLiteralPath(path string) bool {
	return !strings.ContainsAny(path, "{}") && !strings.ContainsFunc(path, unicode.IsSpace)
}

// ConnectionString builds a database URL understood by database.NewDriver.
func (db DatabaseConfig) ConnectionString() string {
	switch db.Connection {
	case "postgres":
		if db.User != "" && db.Password != "" {
			return fmt.Sprintf("postgres://%s:%s@%s/%s", db.User, db.Password, db.Host, db.Database)
		}
		return fmt.Sprintf("postgres://%s/%s", db.Host, db.Database)
	case "mysql":
		if db.User != "" && db.Password != "" {
			return fmt.Sprintf("mysql://%s:%s@tcp(%s)/%s?parseTime=true", db.User, db.Password, db.Host, db.Database)
		}
		return fmt.Sprintf("mysql://tcp(%s)/%s?parseTime=true", db.Host, db.Database)
	default:
		return fmt.Sprintf("sqlite://%s", db.Database)
	}
}
