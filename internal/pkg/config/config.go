package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Storage drivers.
const (
	DriverValkey   = "valkey"
	DriverPostgres = "postgres"
	DriverMemory   = "memory"
)

// Config holds all application configuration.
type Config struct {
	Server      ServerConfig      `mapstructure:"server"`
	Log         LogConfig         `mapstructure:"log"`
	Database    DatabaseConfig    `mapstructure:"database"`
	NATS        NATSConfig        `mapstructure:"nats"`
	Valkey      ValkeyConfig      `mapstructure:"valkey"`
	Storage     StorageConfig     `mapstructure:"storage"`
	Search      SearchConfig      `mapstructure:"search"`
	GeoIP       GeoIPConfig       `mapstructure:"geoip"`
	Geolocation GeolocationConfig `mapstructure:"geolocation"`
	Telemetry   TelemetryConfig   `mapstructure:"telemetry"`
}

type ServerConfig struct {
	Port         int    `mapstructure:"port"`
	ReadTimeout  int    `mapstructure:"read_timeout"`
	WriteTimeout int    `mapstructure:"write_timeout"`
	CORSOrigins  string `mapstructure:"cors_origins"`
	RateLimit    int    `mapstructure:"rate_limit"`
}

type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

type DatabaseConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	User     string `mapstructure:"user"`
	Password string `mapstructure:"password"`
	DBName   string `mapstructure:"dbname"`
	SSLMode  string `mapstructure:"sslmode"`
	MaxConns int32  `mapstructure:"max_conns"`
}

func (d DatabaseConfig) DSN() string {
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?sslmode=%s",
		d.User, d.Password, d.Host, d.Port, d.DBName, d.SSLMode,
	)
}

// NATSConfig configures event publishing. An empty URL disables it.
type NATSConfig struct {
	URL string `mapstructure:"url"`
}

// ValkeyConfig configures the cache. An empty Addr falls back to an
// in-process cache.
type ValkeyConfig struct {
	Addr   string `mapstructure:"addr"`
	Prefix string `mapstructure:"prefix"`
}

type StorageConfig struct {
	Driver      string `mapstructure:"driver"`
	Key         string `mapstructure:"key"`
	ViewportKey string `mapstructure:"viewport_key"`
}

// SearchConfig configures the place search upstream. Credentials are checked
// on each call, so the service starts without them.
type SearchConfig struct {
	BaseURL      string        `mapstructure:"base_url"`
	ClientID     string        `mapstructure:"client_id"`
	ClientSecret string        `mapstructure:"client_secret"`
	Display      int           `mapstructure:"display"`
	Retries      int           `mapstructure:"retries"`
	Timeout      time.Duration `mapstructure:"timeout"`
	FreshFor     time.Duration `mapstructure:"fresh_for"`
}

// GeoIPConfig points at a MaxMind City database. Empty disables IP lookup.
type GeoIPConfig struct {
	Database string `mapstructure:"database"`
}

type GeolocationConfig struct {
	Timeout time.Duration `mapstructure:"timeout"`
}

type TelemetryConfig struct {
	ServiceName string `mapstructure:"service_name"`
	TempoAddr   string `mapstructure:"tempo_addr"`
	Enabled     bool   `mapstructure:"enabled"`
}

// Load reads configuration from file and environment variables.
func Load(service string) (*Config, error) {
	v := viper.New()

	// Defaults
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.read_timeout", 10)
	v.SetDefault("server.write_timeout", 10)
	v.SetDefault("server.cors_origins", "*")
	v.SetDefault("server.rate_limit", 120)
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")
	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.user", "placemark")
	v.SetDefault("database.password", "")
	v.SetDefault("database.dbname", "placemark")
	v.SetDefault("database.sslmode", "disable")
	v.SetDefault("database.max_conns", 10)
	v.SetDefault("nats.url", "nats://localhost:4222")
	v.SetDefault("valkey.addr", "localhost:6379")
	v.SetDefault("valkey.prefix", "placemark")
	v.SetDefault("storage.driver", DriverValkey)
	v.SetDefault("storage.key", "placemark:saved-locations")
	v.SetDefault("storage.viewport_key", "placemark:viewport")
	v.SetDefault("search.base_url", "https://openapi.naver.com")
	v.SetDefault("search.client_id", "")
	v.SetDefault("search.client_secret", "")
	v.SetDefault("search.display", 5)
	v.SetDefault("search.retries", 1)
	v.SetDefault("search.timeout", "5s")
	v.SetDefault("search.fresh_for", "5m")
	v.SetDefault("geoip.database", "")
	v.SetDefault("geolocation.timeout", "10s")
	v.SetDefault("telemetry.service_name", service)
	v.SetDefault("telemetry.tempo_addr", "tempo:4317")
	v.SetDefault("telemetry.enabled", false)

	// Config file (optional)
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("./configs")
	_ = v.ReadInConfig() // OK if missing

	// Environment variables: PLACEMARK_SEARCH_CLIENT_ID → search.client_id
	v.SetEnvPrefix("PLACEMARK")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// Validate checks that required configuration fields are present and sane.
func (c *Config) Validate() error {
	var errs []string

	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		errs = append(errs, fmt.Sprintf("server.port must be 1-65535, got %d", c.Server.Port))
	}
	if c.Server.ReadTimeout <= 0 {
		errs = append(errs, "server.read_timeout must be positive")
	}
	if c.Server.WriteTimeout <= 0 {
		errs = append(errs, "server.write_timeout must be positive")
	}
	if c.Server.RateLimit < 0 {
		errs = append(errs, "server.rate_limit must not be negative")
	}

	switch c.Storage.Driver {
	case DriverValkey:
		if c.Valkey.Addr == "" {
			errs = append(errs, "valkey.addr is required for the valkey storage driver")
		}
	case DriverPostgres:
		if c.Database.Host == "" {
			errs = append(errs, "database.host is required")
		}
		if c.Database.Port <= 0 || c.Database.Port > 65535 {
			errs = append(errs, fmt.Sprintf("database.port must be 1-65535, got %d", c.Database.Port))
		}
		if c.Database.User == "" {
			errs = append(errs, "database.user is required")
		}
		if c.Database.DBName == "" {
			errs = append(errs, "database.dbname is required")
		}
	case DriverMemory:
	default:
		errs = append(errs, fmt.Sprintf("storage.driver must be one of valkey, postgres, memory, got %q", c.Storage.Driver))
	}
	if c.Storage.Key == "" {
		errs = append(errs, "storage.key is required")
	}
	if c.Storage.ViewportKey == "" {
		errs = append(errs, "storage.viewport_key is required")
	}
	if c.Storage.Key != "" && c.Storage.Key == c.Storage.ViewportKey {
		errs = append(errs, "storage.key and storage.viewport_key must differ")
	}

	if c.Search.Display <= 0 || c.Search.Display > 5 {
		errs = append(errs, fmt.Sprintf("search.display must be 1-5, got %d", c.Search.Display))
	}
	if c.Search.Retries < 0 {
		errs = append(errs, "search.retries must not be negative")
	}
	if c.Search.Timeout <= 0 {
		errs = append(errs, "search.timeout must be positive")
	}
	if c.Search.FreshFor < 0 {
		errs = append(errs, "search.fresh_for must not be negative")
	}
	if c.Geolocation.Timeout < 0 {
		errs = append(errs, "geolocation.timeout must not be negative")
	}

	if len(errs) > 0 {
		return fmt.Errorf("config validation failed:\n  - %s", strings.Join(errs, "\n  - "))
	}
	return nil
}
