package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"

	"userdir/internal/directory/dateformat"
)

const (
	BackendMemory   = "memory"
	BackendRedis    = "redis"
	BackendPostgres = "postgres"
)

const (
	TraceExporterNone   = "none"
	TraceExporterStdout = "stdout"
	TraceExporterOTLP   = "otlp"
)

// EnvConfigFile names the optional YAML file loaded before the environment.
const EnvConfigFile = "USERDIR_CONFIG"

type Config struct {
	Server   Server         `yaml:"server"`
	Store    Store          `yaml:"store"`
	Redis    RedisConfig    `yaml:"redis"`
	Postgres PostgresConfig `yaml:"postgres"`
	Client   Client         `yaml:"client"`
	Log      Log            `yaml:"log"`
	Tracing  Tracing        `yaml:"tracing"`
}

// Server captures HTTP server level configuration.
type Server struct {
	Addr            string        `yaml:"addr"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
	WriteTimeout    time.Duration `yaml:"write_timeout"`
}

// Store selects the reference store backend and its date layout.
type Store struct {
	Backend    string `yaml:"backend"`
	DateLayout string `yaml:"date_layout"`
}

type RedisConfig struct {
	URL          string        `yaml:"url"`
	PoolSize     int           `yaml:"pool_size"`
	MinIdleConns int           `yaml:"min_idle_conns"`
	DialTimeout  time.Duration `yaml:"dial_timeout"`
	ReadTimeout  time.Duration `yaml:"read_timeout"`
	WriteTimeout time.Duration `yaml:"write_timeout"`
}

type PostgresConfig struct {
	DSN             string        `yaml:"dsn"`
	MaxOpenConns    int           `yaml:"max_open_conns"`
	MaxIdleConns    int           `yaml:"max_idle_conns"`
	ConnMaxLifetime time.Duration `yaml:"conn_max_lifetime"`
}

// Client configures the command-line front end.
type Client struct {
	BaseURL     string        `yaml:"base_url"`
	Timeout     time.Duration `yaml:"timeout"`
	DateLayout  string        `yaml:"date_layout"`
	MetricsFile string        `yaml:"metrics_file"`
}

type Log struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// Tracing selects the span exporter. With "none" spans are not recorded.
type Tracing struct {
	Exporter     string        `yaml:"exporter"`
	Endpoint     string        `yaml:"endpoint"`
	Insecure     bool          `yaml:"insecure"`
	SampleRate   float64       `yaml:"sample_rate"`
	BatchTimeout time.Duration `yaml:"batch_timeout"`
}

func Defaults() Config {
	return Config{
		Server: Server{
			Addr:            ":8080",
			ShutdownTimeout: 10 * time.Second,
			WriteTimeout:    30 * time.Second,
		},
		Store: Store{Backend: BackendMemory, DateLayout: "iso"},
		Redis: RedisConfig{
			PoolSize:     10,
			MinIdleConns: 2,
			DialTimeout:  5 * time.Second,
			ReadTimeout:  3 * time.Second,
			WriteTimeout: 3 * time.Second,
		},
		Postgres: PostgresConfig{
			MaxOpenConns:    10,
			MaxIdleConns:    5,
			ConnMaxLifetime: 30 * time.Minute,
		},
		Client: Client{
			BaseURL:    "http://localhost:8080/api/v1",
			Timeout:    10 * time.Second,
			DateLayout: "iso",
		},
		Log: Log{Level: "info", Format: "text"},
		Tracing: Tracing{
			Exporter:     TraceExporterNone,
			Endpoint:     "localhost:4317",
			SampleRate:   1.0,
			BatchTimeout: 5 * time.Second,
		},
	}
}

// FromEnv loads defaults, then the USERDIR_CONFIG file when set, then environment overrides.
func FromEnv() (Config, error) {
	return Load(os.Getenv)
}

// Load is FromEnv with an injectable environment lookup.
func Load(getenv func(string) string) (Config, error) {
	cfg := Defaults()
	if path := getenv(EnvConfigFile); path != "" {
		if err := cfg.overlayFile(path); err != nil {
			return Config{}, err
		}
	}
	if err := cfg.overlayEnv(getenv); err != nil {
		return Config{}, err
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c *Config) overlayFile(path string) error {
	raw, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config file: %w", err)
	}
	if err := yaml.Unmarshal(raw, c); err != nil {
		return fmt.Errorf("parse config file %s: %w", path, err)
	}
	return nil
}

func (c *Config) overlayEnv(getenv func(string) string) error {
	str := func(key string, dst *string) {
		if v := getenv(key); v != "" {
			*dst = v
		}
	}
	str("USERDIR_ADDR", &c.Server.Addr)
	str("STORE_BACKEND", &c.Store.Backend)
	str("STORE_DATE_LAYOUT", &c.Store.DateLayout)
	str("REDIS_URL", &c.Redis.URL)
	str("DATABASE_URL", &c.Postgres.DSN)
	str("USERDIR_API_URL", &c.Client.BaseURL)
	str("USERDIR_DATE_LAYOUT", &c.Client.DateLayout)
	str("USERDIR_METRICS_FILE", &c.Client.MetricsFile)
	str("LOG_LEVEL", &c.Log.Level)
	str("LOG_FORMAT", &c.Log.Format)
	str("OTEL_TRACES_EXPORTER", &c.Tracing.Exporter)
	str("OTEL_EXPORTER_OTLP_ENDPOINT", &c.Tracing.Endpoint)

	durations := map[string]*time.Duration{
		"USERDIR_TIMEOUT":          &c.Client.Timeout,
		"USERDIR_SHUTDOWN_TIMEOUT": &c.Server.ShutdownTimeout,
	}
	for key, dst := range durations {
		v := getenv(key)
		if v == "" {
			continue
		}
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("%s: %w", key, err)
		}
		*dst = d
	}
	if v := getenv("REDIS_POOL_SIZE"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("REDIS_POOL_SIZE: %w", err)
		}
		c.Redis.PoolSize = n
	}
	if v := getenv("OTEL_EXPORTER_OTLP_INSECURE"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("OTEL_EXPORTER_OTLP_INSECURE: %w", err)
		}
		c.Tracing.Insecure = b
	}
	if v := getenv("OTEL_TRACES_SAMPLE_RATE"); v != "" {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return fmt.Errorf("OTEL_TRACES_SAMPLE_RATE: %w", err)
		}
		c.Tracing.SampleRate = f
	}
	return nil
}

// Validate checks cross-field requirements.
func (c Config) Validate() error {
	var errs []error
	switch c.Store.Backend {
	case BackendMemory:
	case BackendRedis:
		if c.Redis.URL == "" {
			errs = append(errs, errors.New("redis backend requires REDIS_URL"))
		}
	case BackendPostgres:
		if c.Postgres.DSN == "" {
			errs = append(errs, errors.New("postgres backend requires DATABASE_URL"))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown store backend %q", c.Store.Backend))
	}
	if _, err := dateformat.ParseWireLayout(c.Store.DateLayout); err != nil {
		errs = append(errs, fmt.Errorf("store date layout: %w", err))
	}
	if _, err := dateformat.ParseWireLayout(c.Client.DateLayout); err != nil {
		errs = append(errs, fmt.Errorf("client date layout: %w", err))
	}
	if c.Client.Timeout <= 0 {
		errs = append(errs, errors.New("client timeout must be positive"))
	}
	switch c.Tracing.Exporter {
	case TraceExporterNone, TraceExporterStdout:
	case TraceExporterOTLP:
		if c.Tracing.Endpoint == "" {
			errs = append(errs, errors.New("otlp exporter requires OTEL_EXPORTER_OTLP_ENDPOINT"))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown trace exporter %q", c.Tracing.Exporter))
	}
	if c.Tracing.SampleRate < 0 || c.Tracing.SampleRate > 1 {
		errs = append(errs, errors.New("trace sample rate must be between 0 and 1"))
	}
	return errors.Join(errs...)
}
