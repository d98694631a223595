// Package config loads residency configuration from defaults, an optional YAML file,
// a .env file and the environment, in increasing order of precedence.
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

// EnvPrefix is stripped from environment variables before mapping them to keys.
// RESIDENCY_DATABASE_DSN sets database.dsn.
const EnvPrefix = "RESIDENCY_"

// Config holds all configuration values
type Config struct {
	Server     ServerConfig     `koanf:"server"`
	Database   DatabaseConfig   `koanf:"database"`
	Redis      RedisConfig      `koanf:"redis"`
	Ranking    RankingConfig    `koanf:"ranking"`
	Allocation AllocationConfig `koanf:"allocation"`
	Log        LogConfig        `koanf:"log"`
}

type ServerConfig struct {
	Port           int           `koanf:"port"`
	CORSOrigins    []string      `koanf:"cors_origins"`
	RequestTimeout time.Duration `koanf:"request_timeout"`
	StaticDir      string        `koanf:"static_dir"`
}

type DatabaseConfig struct {
	Driver string `koanf:"driver"` // sqlite3 or postgres
	DSN    string `koanf:"dsn"`
}

// RedisConfig configures the draft store. An empty URL keeps drafts in memory.
type RedisConfig struct {
	URL      string        `koanf:"url"`
	DraftTTL time.Duration `koanf:"draft_ttl"`
}

type RankingConfig struct {
	SaveTimeout     time.Duration `koanf:"save_timeout"`
	LockAfterSubmit bool          `koanf:"lock_after_submit"`
	RevertAfter     time.Duration `koanf:"revert_after"`
	EventRate       float64       `koanf:"event_rate"` // drag events per second per websocket
	// RefreshInterval reloads open boards so candidates written elsewhere show up
	RefreshInterval time.Duration `koanf:"refresh_interval"`
}

type AllocationConfig struct {
	InterviewsPerStudent int `koanf:"interviews_per_student"`
	InterviewsPerCompany int `koanf:"interviews_per_company"`
	PositionsPerCompany  int `koanf:"positions_per_company"`
}

type LogConfig struct {
	Level  string `koanf:"level"`
	Format string `koanf:"format"` // json or console
}

// Default returns the configuration used when nothing overrides it
func Default() Config {
	return Config{
		Server: ServerConfig{
			Port:           8080,
			CORSOrigins:    []string{"http://localhost:5173", "http://localhost:3000"},
			RequestTimeout: 30 * time.Second,
		},
		Database: DatabaseConfig{
			Driver: "sqlite3",
			DSN:    "./data/residency.db",
		},
		Redis: RedisConfig{
			DraftTTL: 7 * 24 * time.Hour,
		},
		Ranking: RankingConfig{
			SaveTimeout:     10 * time.Second,
			RevertAfter:     3 * time.Second,
			EventRate:       20,
			RefreshInterval: time.Minute,
		},
		Allocation: AllocationConfig{
			InterviewsPerStudent: 3,
			InterviewsPerCompany: 3,
			PositionsPerCompany:  2,
		},
		Log: LogConfig{
			Level:  "info",
			Format: "json",
		},
	}
}

// Configuration validation errors
var (
	ErrInvalidPort        = errors.New("server.port must be between 1 and 65535")
	ErrInvalidDriver      = errors.New("database.driver must be sqlite3 or postgres")
	ErrMissingDSN         = errors.New("database.dsn is required")
	ErrInvalidSaveTimeout = errors.New("ranking.save_timeout must be positive")
	ErrNegativeRevert     = errors.New("ranking.revert_after must not be negative")
	ErrInvalidEventRate   = errors.New("ranking.event_rate must be positive")
	ErrNegativeRefresh    = errors.New("ranking.refresh_interval must not be negative")
	ErrInvalidCaps        = errors.New("allocation limits must be positive")
	ErrInvalidLogFormat   = errors.New("log.format must be json or console")
)

// Load reads configuration. path may be empty or point to a missing file, in which
// case only defaults, .env and the environment apply.
func Load(path string) (*Config, error) {
	// .env is optional
	_ = godotenv.Load()

	k := koanf.New(".")

	if path != "" {
		if _, err := os.Stat(path); err == nil {
			if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
				return nil, fmt.Errorf("failed to load config file %s: %w", path, err)
			}
		}
	}

	if err := k.Load(env.ProviderWithValue(EnvPrefix, ".", envKey), nil); err != nil {
		return nil, fmt.Errorf("failed to load environment variables: %w", err)
	}

	cfg := Default()
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if errs := cfg.Validate(); len(errs) > 0 {
		return nil, fmt.Errorf("invalid configuration: %w", errors.Join(errs...))
	}
	return &cfg, nil
}

// envKey maps RESIDENCY_SECTION_FIELD_NAME to section.field_name. Comma separated
// values become lists.
func envKey(name, value string) (string, any) {
	lower := strings.ToLower(strings.TrimPrefix(name, EnvPrefix))
	parts := strings.SplitN(lower, "_", 2)
	if len(parts) == 1 {
		return lower, value
	}
	key := parts[0] + "." + parts[1]

	if key == "server.cors_origins" {
		var origins []string
		for _, o := range strings.Split(value, ",") {
			if o = strings.TrimSpace(o); o != "" {
				origins = append(origins, o)
			}
		}
		return key, origins
	}
	return key, value
}

// Validate checks the configuration and returns every problem found
func (c *Config) Validate() []error {
	var errs []error

	if c.Server.Port < 1 || c.Server.Port > 65535 {
		errs = append(errs, ErrInvalidPort)
	}
	if c.Database.Driver != "sqlite3" && c.Database.Driver != "postgres" {
		errs = append(errs, ErrInvalidDriver)
	}
	if c.Database.DSN == "" {
		errs = append(errs, ErrMissingDSN)
	}
	if c.Ranking.SaveTimeout <= 0 {
		errs = append(errs, ErrInvalidSaveTimeout)
	}
	if c.Ranking.RevertAfter < 0 {
		errs = append(errs, ErrNegativeRevert)
	}
	if c.Ranking.EventRate <= 0 {
		errs = append(errs, ErrInvalidEventRate)
	}
	if c.Ranking.RefreshInterval < 0 {
		errs = append(errs, ErrNegativeRefresh)
	}
	a := c.Allocation
	if a.InterviewsPerStudent < 1 || a.InterviewsPerCompany < 1 || a.PositionsPerCompany < 1 {
		errs = append(errs, ErrInvalidCaps)
	}
	if c.Log.Format != "json" && c.Log.Format != "console" {
		errs = append(errs, ErrInvalidLogFormat)
	}

	return errs
}

// Addr returns the listen address for the HTTP server
func (c *Config) Addr() string {
	return fmt.Sprintf(":%d", c.Server.Port)
}
