package config

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/robfig/cron/v3"
)

type LookupFunc func(string) (string, bool)

type Profile string

const (
	ProfileDev  Profile = "dev"
	ProfileTest Profile = "test"
	ProfileProd Profile = "prod"
)

const configFileKey = "FEDASK_CONFIG_FILE"

type Config struct {
	Profile       Profile
	Service       ServiceConfig
	HTTP          HTTPConfig
	Store         StoreConfig
	Generator     GeneratorConfig
	Agent         AgentConfig
	Pipeline      PipelineConfig
	ObjectStore   ObjectStoreConfig
	Observability ObservabilityConfig
}

type ServiceConfig struct {
	Name string
}

type HTTPConfig struct {
	Address      string
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	IdleTimeout  time.Duration
}

type StoreConfig struct {
	Driver          string
	DSN             string
	Host            string
	Port            int
	User            string
	Password        string
	Database        string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxIdleTime time.Duration
	ConnMaxLifetime time.Duration
	MigrateOnStart  bool
}

type GeneratorConfig struct {
	Backend     string
	Command     string
	Model       string
	BaseURL     string
	APIKey      string
	Temperature float64
	Timeout     time.Duration
}

type AgentConfig struct {
	ExecuteTimeout time.Duration
	ReadOnly       bool
}

type PipelineConfig struct {
	Source          string
	BaseURL         string
	LookbackDays    int
	PerPage         int
	Schedule        string
	Interval        time.Duration
	HTTPTimeout     time.Duration
	CSVPath         string
	StoreEnabled    bool
	SnapshotEnabled bool
	ArchiveEnabled  bool
	Seed            int64
}

type ObjectStoreConfig struct {
	Endpoint         string
	Region           string
	Bucket           string
	AccessKeyID      string
	SecretAccessKey  string
	UseSSL           bool
	Prefix           string
	AutoCreateBucket bool
}

type ObservabilityConfig struct {
	LogLevel slog.Level
	LogJSON  bool
}

// LoadFromEnv reads the process environment. When FEDASK_CONFIG_FILE names a
// YAML file, its keys are used as a fallback below real environment variables.
func LoadFromEnv(serviceName string) (Config, error) {
	lookup := LookupFunc(os.LookupEnv)
	if path, ok := os.LookupEnv(configFileKey); ok && strings.TrimSpace(path) != "" {
		fileLookup, err := FileLookup(strings.TrimSpace(path))
		if err != nil {
			return Config{}, err
		}
		lookup = Layered(lookup, fileLookup)
	}
	return Load(serviceName, lookup)
}

func Load(serviceName string, lookup LookupFunc) (Config, error) {
	if lookup == nil {
		return Config{}, fmt.Errorf("lookup function is required")
	}

	profile := ProfileDev
	if raw, ok := lookup("FEDASK_PROFILE"); ok {
		profile = Profile(strings.ToLower(strings.TrimSpace(raw)))
	}
	if !isValidProfile(profile) {
		return Config{}, fmt.Errorf("invalid FEDASK_PROFILE: %q", profile)
	}

	cfg := defaultsForProfile(profile)
	if serviceName != "" {
		cfg.Service.Name = serviceName
	}

	appliers := []func() error{
		func() error { return applyString(lookup, "FEDASK_SERVICE_NAME", &cfg.Service.Name) },
		func() error { return applyString(lookup, "FEDASK_HTTP_ADDR", &cfg.HTTP.Address) },
		func() error { return applyDuration(lookup, "FEDASK_HTTP_READ_TIMEOUT", &cfg.HTTP.ReadTimeout) },
		func() error { return applyDuration(lookup, "FEDASK_HTTP_WRITE_TIMEOUT", &cfg.HTTP.WriteTimeout) },
		func() error { return applyDuration(lookup, "FEDASK_HTTP_IDLE_TIMEOUT", &cfg.HTTP.IdleTimeout) },

		func() error { return applyString(lookup, "FEDASK_STORE_DRIVER", &cfg.Store.Driver) },
		func() error { return applyString(lookup, "FEDASK_STORE_DSN", &cfg.Store.DSN) },
		func() error { return applyString(lookup, "FEDASK_STORE_HOST", &cfg.Store.Host) },
		func() error { return applyInt(lookup, "FEDASK_STORE_PORT", &cfg.Store.Port) },
		func() error { return applyString(lookup, "FEDASK_STORE_USER", &cfg.Store.User) },
		func() error { return applyRawString(lookup, "FEDASK_STORE_PASSWORD", &cfg.Store.Password) },
		func() error { return applyString(lookup, "FEDASK_STORE_DATABASE", &cfg.Store.Database) },
		func() error { return applyInt(lookup, "FEDASK_STORE_MAX_OPEN_CONNS", &cfg.Store.MaxOpenConns) },
		func() error { return applyInt(lookup, "FEDASK_STORE_MAX_IDLE_CONNS", &cfg.Store.MaxIdleConns) },
		func() error {
			return applyDuration(lookup, "FEDASK_STORE_CONN_MAX_IDLE_TIME", &cfg.Store.ConnMaxIdleTime)
		},
		func() error {
			return applyDuration(lookup, "FEDASK_STORE_CONN_MAX_LIFETIME", &cfg.Store.ConnMaxLifetime)
		},
		func() error { return applyBool(lookup, "FEDASK_STORE_MIGRATE_ON_START", &cfg.Store.MigrateOnStart) },

		func() error { return applyString(lookup, "FEDASK_GENERATOR", &cfg.Generator.Backend) },
		func() error { return applyString(lookup, "FEDASK_GENERATOR_COMMAND", &cfg.Generator.Command) },
		func() error { return applyString(lookup, "FEDASK_GENERATOR_MODEL", &cfg.Generator.Model) },
		func() error { return applyString(lookup, "FEDASK_GENERATOR_BASE_URL", &cfg.Generator.BaseURL) },
		func() error { return applyString(lookup, "FEDASK_GENERATOR_API_KEY", &cfg.Generator.APIKey) },
		func() error { return applyFloat(lookup, "FEDASK_GENERATOR_TEMPERATURE", &cfg.Generator.Temperature) },
		func() error { return applyDuration(lookup, "FEDASK_GENERATOR_TIMEOUT", &cfg.Generator.Timeout) },

		func() error { return applyDuration(lookup, "FEDASK_AGENT_EXECUTE_TIMEOUT", &cfg.Agent.ExecuteTimeout) },
		func() error { return applyBool(lookup, "FEDASK_AGENT_READ_ONLY", &cfg.Agent.ReadOnly) },

		func() error { return applyString(lookup, "FEDASK_PIPELINE_SOURCE", &cfg.Pipeline.Source) },
		func() error { return applyString(lookup, "FEDASK_PIPELINE_BASE_URL", &cfg.Pipeline.BaseURL) },
		func() error { return applyInt(lookup, "FEDASK_PIPELINE_LOOKBACK_DAYS", &cfg.Pipeline.LookbackDays) },
		func() error { return applyInt(lookup, "FEDASK_PIPELINE_PER_PAGE", &cfg.Pipeline.PerPage) },
		func() error { return applyString(lookup, "FEDASK_PIPELINE_SCHEDULE", &cfg.Pipeline.Schedule) },
		func() error { return applyDuration(lookup, "FEDASK_PIPELINE_INTERVAL", &cfg.Pipeline.Interval) },
		func() error { return applyDuration(lookup, "FEDASK_PIPELINE_HTTP_TIMEOUT", &cfg.Pipeline.HTTPTimeout) },
		func() error { return applyString(lookup, "FEDASK_PIPELINE_CSV_PATH", &cfg.Pipeline.CSVPath) },
		func() error { return applyBool(lookup, "FEDASK_PIPELINE_STORE_ENABLED", &cfg.Pipeline.StoreEnabled) },
		func() error {
			return applyBool(lookup, "FEDASK_PIPELINE_SNAPSHOT_ENABLED", &cfg.Pipeline.SnapshotEnabled)
		},
		func() error { return applyBool(lookup, "FEDASK_PIPELINE_ARCHIVE_ENABLED", &cfg.Pipeline.ArchiveEnabled) },
		func() error { return applyInt64(lookup, "FEDASK_PIPELINE_SEED", &cfg.Pipeline.Seed) },

		func() error { return applyString(lookup, "FEDASK_OBJECTSTORE_ENDPOINT", &cfg.ObjectStore.Endpoint) },
		func() error { return applyString(lookup, "FEDASK_OBJECTSTORE_REGION", &cfg.ObjectStore.Region) },
		func() error { return applyString(lookup, "FEDASK_OBJECTSTORE_BUCKET", &cfg.ObjectStore.Bucket) },
		func() error { return applyString(lookup, "FEDASK_OBJECTSTORE_ACCESS_KEY", &cfg.ObjectStore.AccessKeyID) },
		func() error {
			return applyString(lookup, "FEDASK_OBJECTSTORE_SECRET_KEY", &cfg.ObjectStore.SecretAccessKey)
		},
		func() error { return applyBool(lookup, "FEDASK_OBJECTSTORE_USE_SSL", &cfg.ObjectStore.UseSSL) },
		func() error { return applyString(lookup, "FEDASK_OBJECTSTORE_PREFIX", &cfg.ObjectStore.Prefix) },
		func() error {
			return applyBool(lookup, "FEDASK_OBJECTSTORE_AUTO_CREATE_BUCKET", &cfg.ObjectStore.AutoCreateBucket)
		},

		func() error { return applyBool(lookup, "FEDASK_LOG_JSON", &cfg.Observability.LogJSON) },
		func() error { return applyLogLevel(lookup, "FEDASK_LOG_LEVEL", &cfg.Observability.LogLevel) },
	}
	for _, apply := range appliers {
		if err := apply(); err != nil {
			return Config{}, err
		}
	}

	cfg.Store.Driver = strings.ToLower(cfg.Store.Driver)
	cfg.Generator.Backend = strings.ToLower(cfg.Generator.Backend)
	cfg.Pipeline.Source = strings.ToLower(cfg.Pipeline.Source)

	if err := cfg.validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c Config) validate() error {
	if c.Service.Name == "" {
		return fmt.Errorf("service name is required")
	}
	if c.HTTP.Address == "" {
		return fmt.Errorf("http address is required")
	}
	switch c.Store.Driver {
	case "mysql", "pgx", "duckdb":
	default:
		return fmt.Errorf("invalid FEDASK_STORE_DRIVER: %q", c.Store.Driver)
	}
	switch c.Generator.Backend {
	case "process", "openai":
	default:
		return fmt.Errorf("invalid FEDASK_GENERATOR: %q", c.Generator.Backend)
	}
	switch c.Pipeline.Source {
	case "federalregister", "synthetic":
	default:
		return fmt.Errorf("invalid FEDASK_PIPELINE_SOURCE: %q", c.Pipeline.Source)
	}
	if c.Pipeline.LookbackDays <= 0 {
		return fmt.Errorf("FEDASK_PIPELINE_LOOKBACK_DAYS must be > 0")
	}
	if c.Pipeline.PerPage <= 0 {
		return fmt.Errorf("FEDASK_PIPELINE_PER_PAGE must be > 0")
	}
	if c.Pipeline.Interval <= 0 {
		return fmt.Errorf("FEDASK_PIPELINE_INTERVAL must be > 0")
	}
	if c.Pipeline.Schedule != "" {
		if _, err := cron.ParseStandard(c.Pipeline.Schedule); err != nil {
			return fmt.Errorf("invalid FEDASK_PIPELINE_SCHEDULE %q: %w", c.Pipeline.Schedule, err)
		}
	}
	return nil
}

func defaultsForProfile(profile Profile) Config {
	cfg := Config{
		Profile: profile,
		Service: ServiceConfig{Name: "fedask-api"},
		HTTP: HTTPConfig{
			Address:      ":8000",
			ReadTimeout:  5 * time.Second,
			WriteTimeout: 180 * time.Second,
			IdleTimeout:  60 * time.Second,
		},
		Store: StoreConfig{
			Driver:          "mysql",
			Host:            "localhost",
			Port:            3306,
			User:            "root",
			Database:        "federal_register",
			MaxOpenConns:    10,
			MaxIdleConns:    2,
			ConnMaxIdleTime: 5 * time.Minute,
			ConnMaxLifetime: 30 * time.Minute,
			MigrateOnStart:  true,
		},
		Generator: GeneratorConfig{
			Backend:     "process",
			Command:     "ollama",
			Model:       "mistral",
			BaseURL:     "https://api.openai.com",
			Temperature: 0,
			Timeout:     120 * time.Second,
		},
		Agent: AgentConfig{
			ExecuteTimeout: 30 * time.Second,
			ReadOnly:       false,
		},
		Pipeline: PipelineConfig{
			Source:          "federalregister",
			BaseURL:         "https://www.federalregister.gov/api/v1",
			LookbackDays:    2,
			PerPage:         100,
			Schedule:        "0 6,18 * * *",
			Interval:        12 * time.Hour,
			HTTPTimeout:     30 * time.Second,
			CSVPath:         "/tmp/federal_register_last2days.csv",
			StoreEnabled:    true,
			SnapshotEnabled: false,
			ArchiveEnabled:  false,
			Seed:            time.Now().UTC().UnixNano(),
		},
		ObjectStore: ObjectStoreConfig{
			Endpoint:         "localhost:9000",
			Region:           "us-east-1",
			Bucket:           "fedask",
			AccessKeyID:      "minio",
			SecretAccessKey:  "miniostorage",
			UseSSL:           false,
			Prefix:           "",
			AutoCreateBucket: true,
		},
		Observability: ObservabilityConfig{
			LogLevel: slog.LevelDebug,
			LogJSON:  true,
		},
	}

	switch profile {
	case ProfileTest:
		cfg.HTTP.Address = ":18000"
		cfg.Observability.LogLevel = slog.LevelWarn
		cfg.Store.MigrateOnStart = false
	case ProfileProd:
		cfg.Observability.LogLevel = slog.LevelInfo
		cfg.Agent.ReadOnly = true
		cfg.ObjectStore.UseSSL = true
		cfg.ObjectStore.AutoCreateBucket = false
	}

	return cfg
}

func isValidProfile(profile Profile) bool {
	switch profile {
	case ProfileDev, ProfileTest, ProfileProd:
		return true
	default:
		return false
	}
}

func applyString(lookup LookupFunc, key string, dst *string) error {
	raw, ok := lookup(key)
	if !ok {
		return nil
	}
	*dst = strings.TrimSpace(raw)
	return nil
}

// applyRawString keeps surrounding whitespace, which may be part of a secret.
func applyRawString(lookup LookupFunc, key string, dst *string) error {
	raw, ok := lookup(key)
	if !ok {
		return nil
	}
	*dst = raw
	return nil
}

func applyDuration(lookup LookupFunc, key string, dst *time.Duration) error {
	raw, ok := lookup(key)
	if !ok {
		return nil
	}
	value, err := time.ParseDuration(strings.TrimSpace(raw))
	if err != nil {
		return fmt.Errorf("invalid %s: %w", key, err)
	}
	*dst = value
	return nil
}

func applyBool(lookup LookupFunc, key string, dst *bool) error {
	raw, ok := lookup(key)
	if !ok {
		return nil
	}
	value, err := strconv.ParseBool(strings.TrimSpace(raw))
	if err != nil {
		return fmt.Errorf("invalid %s: %w", key, err)
	}
	*dst = value
	return nil
}

func applyInt(lookup LookupFunc, key string, dst *int) error {
	raw, ok := lookup(key)
	if !ok {
		return nil
	}
	value, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil {
		return fmt.Errorf("invalid %s: %w", key, err)
	}
	*dst = value
	return nil
}

func applyInt64(lookup LookupFunc, key string, dst *int64) error {
	raw, ok := lookup(key)
	if !ok {
		return nil
	}
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil
	}
	value, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return fmt.Errorf("invalid %s: %w", key, err)
	}
	*dst = value
	return nil
}

func applyFloat(lookup LookupFunc, key string, dst *float64) error {
	raw, ok := lookup(key)
	if !ok {
		return nil
	}
	value, err := strconv.ParseFloat(strings.TrimSpace(raw), 64)
	if err != nil {
		return fmt.Errorf("invalid %s: %w", key, err)
	}
	*dst = value
	return nil
}

func applyLogLevel(lookup LookupFunc, key string, dst *slog.Level) error {
	raw, ok := lookup(key)
	if !ok {
		return nil
	}
	level := strings.ToLower(strings.TrimSpace(raw))
	switch level {
	case "debug":
		*dst = slog.LevelDebug
	case "info":
		*dst = slog.LevelInfo
	case "warn", "warning":
		*dst = slog.LevelWarn
	case "error":
		*dst = slog.LevelError
	default:
		return fmt.Errorf("invalid %s: %q", key, raw)
	}
	return nil
}
