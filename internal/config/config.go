package config

import (
	"fmt"
	"os"
	"strconv"

	"gopkg.in/yaml.v3"

	"github.com/meltforce/fitjoin/internal/export"
	"github.com/meltforce/fitjoin/internal/models"
	"github.com/meltforce/fitjoin/internal/pipeline"
)

// Source drivers.
const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
)

type Config struct {
	Server    ServerConfig    `yaml:"server"`
	Source    SourceConfig    `yaml:"source"`
	Pipeline  PipelineConfig  `yaml:"pipeline"`
	Auth      AuthConfig      `yaml:"auth"`
	Tailscale TailscaleConfig `yaml:"tailscale"`
	Export    ExportConfig    `yaml:"export"`
}

type ServerConfig struct {
	Host string `yaml:"host"`
	Port int    `yaml:"port"`
}

// SourceConfig selects the backing store. Path is used by the sqlite driver,
// Database by the postgres driver. ActivityCSV, when set, replaces the
// daily_activity table as the spine.
type SourceConfig struct {
	Driver      string         `yaml:"driver"`
	Path        string         `yaml:"path"`
	Database    DatabaseConfig `yaml:"database"`
	ActivityCSV string         `yaml:"activity_csv"`
	Migrations  string         `yaml:"migrations"`
}

type DatabaseConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	Name     string `yaml:"name"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	SSLMode  string `yaml:"sslmode"`
}

// PipelineConfig holds the named policies and the default analysis window.
type PipelineConfig struct {
	SleepState  string    `yaml:"sleep_state"`
	WeightMatch string    `yaml:"weight_match"`
	TierMeasure string    `yaml:"tier_measure"`
	TierBreaks  []float64 `yaml:"tier_breaks"`
	Start       string    `yaml:"start"`
	End         string    `yaml:"end"`
	Users       []int64   `yaml:"users"`
}

type AuthConfig struct {
	APIKey string `yaml:"api_key"`
}

type TailscaleConfig struct {
	Enabled  bool   `yaml:"enabled"`
	Hostname string `yaml:"hostname"`
	StateDir string `yaml:"state_dir"`
}

type ExportConfig struct {
	Dir    string `yaml:"dir"`
	Format string `yaml:"format"`
}

// DSN returns a PostgreSQL connection string.
func (d DatabaseConfig) DSN() string {
	sslmode := d.SSLMode
	if sslmode == "" {
		sslmode = "disable"
	}
	return fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=%s",
		d.User, d.Password, d.Host, d.Port, d.Name, sslmode)
}

// Policy returns the validated pipeline policy.
func (p PipelineConfig) Policy() (pipeline.Policy, error) {
	pol := pipeline.Policy{
		SleepState:  models.SleepPolicy(p.SleepState),
		WeightMatch: pipeline.WeightMatch(p.WeightMatch),
		TierMeasure: pipeline.TierMeasure(p.TierMeasure),
	}
	switch len(p.TierBreaks) {
	case 0:
	case 2:
		if p.TierBreaks[0] == 0 && p.TierBreaks[1] == 0 {
			return pol, fmt.Errorf("pipeline.tier_breaks [0, 0] is reserved for the default, omit the key instead")
		}
		pol.TierBreaks = [2]float64{p.TierBreaks[0], p.TierBreaks[1]}
	default:
		return pol, fmt.Errorf("pipeline.tier_breaks needs exactly 2 values, got %d", len(p.TierBreaks))
	}
	if err := pol.Validate(); err != nil {
		return pol, err
	}
	return pol, nil
}

// Filter returns the default window and user restriction.
func (p PipelineConfig) Filter() (models.Filter, error) {
	f := models.Filter{UserIDs: p.Users}
	if p.Start != "" {
		d, ok := models.ParseDate(p.Start)
		if !ok {
			return f, fmt.Errorf("pipeline.start: unparsable date %q", p.Start)
		}
		f.Start = d
	}
	if p.End != "" {
		d, ok := models.ParseDate(p.End)
		if !ok {
			return f, fmt.Errorf("pipeline.end: unparsable date %q", p.End)
		}
		f.End = d
	}
	if f.Start != "" && f.End != "" && f.End < f.Start {
		return f, fmt.Errorf("pipeline.end %s is before pipeline.start %s", f.End, f.Start)
	}
	return f, nil
}

// Load reads config from a YAML file, then applies environment variable overrides.
// Env vars use the prefix FITJOIN_ and underscore-separated paths:
//
//	FITJOIN_SERVER_HOST, FITJOIN_SERVER_PORT,
//	FITJOIN_SOURCE_DRIVER, FITJOIN_SOURCE_PATH, FITJOIN_ACTIVITY_CSV,
//	FITJOIN_DB_HOST, FITJOIN_DB_PORT, FITJOIN_DB_NAME,
//	FITJOIN_DB_USER, FITJOIN_DB_PASSWORD, FITJOIN_DB_SSLMODE,
//	FITJOIN_SLEEP_STATE, FITJOIN_WEIGHT_MATCH, FITJOIN_TIER_MEASURE,
//	FITJOIN_AUTH_API_KEY, FITJOIN_TAILSCALE_ENABLED,
//	FITJOIN_EXPORT_DIR, FITJOIN_EXPORT_FORMAT
func Load(path string) (*Config, error) {
	cfg := &Config{}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}

	applyEnvOverrides(cfg)
	applyDefaults(cfg)

	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("config validation: %w", err)
	}

	return cfg, nil
}

func applyEnvOverrides(cfg *Config) {
	str := func(key string, dst *string) {
		if v := os.Getenv(key); v != "" {
			*dst = v
		}
	}
	num := func(key string, dst *int) {
		if v := os.Getenv(key); v != "" {
			if n, err := strconv.Atoi(v); err == nil {
				*dst = n
			}
		}
	}

	str("FITJOIN_SERVER_HOST", &cfg.Server.Host)
	num("FITJOIN_SERVER_PORT", &cfg.Server.Port)
	str("FITJOIN_SOURCE_DRIVER", &cfg.Source.Driver)
	str("FITJOIN_SOURCE_PATH", &cfg.Source.Path)
	str("FITJOIN_ACTIVITY_CSV", &cfg.Source.ActivityCSV)
	str("FITJOIN_DB_HOST", &cfg.Source.Database.Host)
	num("FITJOIN_DB_PORT", &cfg.Source.Database.Port)
	str("FITJOIN_DB_NAME", &cfg.Source.Database.Name)
	str("FITJOIN_DB_USER", &cfg.Source.Database.User)
	str("FITJOIN_DB_PASSWORD", &cfg.Source.Database.Password)
	str("FITJOIN_DB_SSLMODE", &cfg.Source.Database.SSLMode)
	str("FITJOIN_SLEEP_STATE", &cfg.Pipeline.SleepState)
	str("FITJOIN_WEIGHT_MATCH", &cfg.Pipeline.WeightMatch)
	str("FITJOIN_TIER_MEASURE", &cfg.Pipeline.TierMeasure)
	str("FITJOIN_AUTH_API_KEY", &cfg.Auth.APIKey)
	str("FITJOIN_EXPORT_DIR", &cfg.Export.Dir)
	str("FITJOIN_EXPORT_FORMAT", &cfg.Export.Format)
	if v := os.Getenv("FITJOIN_TAILSCALE_ENABLED"); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			cfg.Tailscale.Enabled = b
		}
	}
}

func applyDefaults(cfg *Config) {
	if cfg.Server.Port == 0 {
		cfg.Server.Port = 8080
	}
	if cfg.Source.Driver == "" {
		cfg.Source.Driver = DriverSQLite
	}
	if cfg.Source.Migrations == "" {
		cfg.Source.Migrations = "migrations"
	}
	if cfg.Tailscale.Hostname == "" {
		cfg.Tailscale.Hostname = "fitjoin"
	}
	if cfg.Export.Dir == "" {
		cfg.Export.Dir = "out"
	}
}

func (c *Config) validate() error {
	switch c.Source.Driver {
	case DriverSQLite:
		if c.Source.Path == "" {
			return fmt.Errorf("source.path is required for the sqlite driver")
		}
	case DriverPostgres:
		d := c.Source.Database
		if d.Host == "" {
			return fmt.Errorf("source.database.host is required")
		}
		if d.Port == 0 {
			return fmt.Errorf("source.database.port is required")
		}
		if d.Name == "" {
			return fmt.Errorf("source.database.name is required")
		}
		if d.User == "" {
			return fmt.Errorf("source.database.user is required")
		}
	default:
		return fmt.Errorf("source.driver must be %q or %q, got %q", DriverSQLite, DriverPostgres, c.Source.Driver)
	}
	if _, err := c.Pipeline.Policy(); err != nil {
		return fmt.Errorf("pipeline: %w", err)
	}
	if _, err := c.Pipeline.Filter(); err != nil {
		return err
	}
	if _, err := export.ParseFormat(c.Export.Format); err != nil {
		return fmt.Errorf("export.format: %w", err)
	}
	return nil
}
