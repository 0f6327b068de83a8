package model

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Session cache backends.
const (
	SessionBackendKeyring = "keyring"
	SessionBackendSQLite  = "sqlite"
)

// APIConfig holds the connection settings for the todo API.
type APIConfig struct {
	// BaseURL is the root URL of the API server (without the /api prefix).
	BaseURL string `mapstructure:"base_url" yaml:"base_url"`

	// TimeoutSec bounds every request made through the gateway.
	TimeoutSec int `mapstructure:"timeout_sec" yaml:"timeout_sec"`
}

// Timeout returns the request timeout as a duration.
func (c APIConfig) Timeout() time.Duration {
	if c.TimeoutSec <= 0 {
		return 10 * time.Second
	}
	return time.Duration(c.TimeoutSec) * time.Second
}

// SessionConfig selects where the auth session is cached between runs.
type SessionConfig struct {
	// Backend is "keyring" (default) or "sqlite".
	Backend string `mapstructure:"backend" yaml:"backend"`

	// CachePath is the SQLite file used by the sqlite backend.
	CachePath string `mapstructure:"cache_path" yaml:"cache_path"`
}

// TodosConfig holds list behaviour settings.
type TodosConfig struct {
	PageSize int `mapstructure:"page_size" yaml:"page_size"`

	// RefetchAfterMutation re-runs the list fetch after create and bulk
	// actions instead of patching the local page.
	RefetchAfterMutation bool `mapstructure:"refetch_after_mutation" yaml:"refetch_after_mutation"`
}

// LogConfig controls the structured log file.
type LogConfig struct {
	Level string `mapstructure:"level" yaml:"level"`
	Path  string `mapstructure:"path" yaml:"path"`
}

// AppConfig is the top-level application configuration.
type AppConfig struct {
	API     APIConfig     `mapstructure:"api" yaml:"api"`
	Session SessionConfig `mapstructure:"session" yaml:"session"`
	Todos   TodosConfig   `mapstructure:"todos" yaml:"todos"`
	Log     LogConfig     `mapstructure:"log" yaml:"log"`
}

// DefaultConfigPath returns ~/.config/todoctl/config.yaml.
func DefaultConfigPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(".", "config.yaml")
	}
	return filepath.Join(home, ".config", "todoctl", "config.yaml")
}

// DefaultCacheDir returns the directory for the session cache and log file.
func DefaultCacheDir() string {
	if dir := os.Getenv("XDG_CACHE_HOME"); dir != "" {
		return filepath.Join(dir, "todoctl")
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(".", ".todoctl")
	}
	return filepath.Join(home, ".cache", "todoctl")
}

// defaultAppConfig returns a sensible default configuration.
func defaultAppConfig() *AppConfig {
	cacheDir := DefaultCacheDir()
	return &AppConfig{
		API: APIConfig{
			BaseURL:    "http://localhost:8000",
			TimeoutSec: 10,
		},
		Session: SessionConfig{
			Backend:   SessionBackendKeyring,
			CachePath: filepath.Join(cacheDir, "session.db"),
		},
		Todos: TodosConfig{
			PageSize: DefaultPageSize,
		},
		Log: LogConfig{
			Level: "info",
			Path:  filepath.Join(cacheDir, "todoctl.log"),
		},
	}
}

// LoadConfig reads configuration from the given YAML file path using Viper.
// A missing file yields the defaults. Environment variables prefixed with
// TODOCTL_ (e.g. TODOCTL_API_BASE_URL) override file values.
func LoadConfig(path string) (*AppConfig, error) {
	def := defaultAppConfig()

	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("yaml")
	v.SetEnvPrefix("todoctl")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	v.SetDefault("api.base_url", def.API.BaseURL)
	v.SetDefault("api.timeout_sec", def.API.TimeoutSec)
	v.SetDefault("session.backend", def.Session.Backend)
	v.SetDefault("session.cache_path", def.Session.CachePath)
	v.SetDefault("todos.page_size", def.Todos.PageSize)
	v.SetDefault("todos.refetch_after_mutation", false)
	v.SetDefault("log.level", def.Log.Level)
	v.SetDefault("log.path", def.Log.Path)

	if err := v.ReadInConfig(); err != nil {
		var pathErr *os.PathError
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &pathErr) && !errors.As(err, &notFound) {
			return nil, fmt.Errorf("reading config %s: %w", path, err)
		}
	}

	cfg := &AppConfig{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("parsing config %s: %w", path, err)
	}

	cfg.API.BaseURL = strings.TrimRight(cfg.API.BaseURL, "/")
	if cfg.Todos.PageSize <= 0 {
		cfg.Todos.PageSize = DefaultPageSize
	}
	switch cfg.Session.Backend {
	case SessionBackendKeyring, SessionBackendSQLite:
	default:
		return nil, fmt.Errorf("config %s: unknown session.backend %q", path, cfg.Session.Backend)
	}

	return cfg, nil
}

// SaveConfig writes the given configuration to a YAML file at path,
// creating parent directories if needed.
func SaveConfig(path string, cfg *AppConfig) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("creating config directory %s: %w", dir, err)
	}

	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("yaml")

	v.Set("api", cfg.API)
	v.Set("session", cfg.Session)
	v.Set("todos", cfg.Todos)
	v.Set("log", cfg.Log)

	if err := v.WriteConfigAs(path); err != nil {
		return fmt.Errorf("writing config to %s: %w", path, err)
	}

	return nil
}
