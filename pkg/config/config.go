// Package config loads application configuration from the environment and
// an optional .env file.
//
// Environment variables map to nested keys by replacing dots with
// underscores, e.g. CATALOG_BASE_URL sets catalog.base_url. Defaults come
// from the `default` struct tags.
//
// Usage:
//
//	cfg, err := config.LoadConfig(".")
//	if err != nil {
//		return err
//	}
//	client, err := client.New(cfg.ClientConfig(cfg.RedisClient()))
package config

import (
	"fmt"
	"reflect"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/viper"

	"github.com/Sternrassler/pokedex-catalog/pkg/client"
	"github.com/Sternrassler/pokedex-catalog/pkg/logging"
)

// Config holds all configuration for the application.
type Config struct {
	// Catalog configures the remote catalog API client.
	Catalog CatalogConfig `mapstructure:"catalog"`
	// Redis configures the shared cache and breaker state.
	Redis RedisConfig `mapstructure:"redis"`
	// Log configures the logger.
	Log LogConfig `mapstructure:"log"`
	// Server configures the HTTP API.
	Server ServerConfig `mapstructure:"server"`
	// Render configures the render budget signals.
	Render RenderConfig `mapstructure:"render"`
}

// CatalogConfig configures the catalog API client.
type CatalogConfig struct {
	BaseURL        string        `mapstructure:"base_url" default:"https://pokeapi.co/api/v2"`
	UserAgent      string        `mapstructure:"user_agent" default:"pokedex-catalog/1.0"`
	Timeout        time.Duration `mapstructure:"timeout" default:"15s"`
	MaxConcurrency int           `mapstructure:"max_concurrency" default:"10"`
	MaxRetries     int           `mapstructure:"max_retries" default:"3"`
	CacheTTL       time.Duration `mapstructure:"cache_ttl" default:"24h"`
	FallbackTotal  int           `mapstructure:"fallback_total" default:"1302"`
}

// RedisConfig configures the Redis connection. An empty Addr keeps cache
// and breaker state in process.
type RedisConfig struct {
	Addr     string `mapstructure:"addr" default:""`
	Password string `mapstructure:"password" default:""`
	DB       int    `mapstructure:"db" default:"0"`
}

// LogConfig configures the logger.
type LogConfig struct {
	Level  string `mapstructure:"level" default:"info"`
	Pretty bool   `mapstructure:"pretty" default:"false"`
}

// ServerConfig configures the HTTP API.
type ServerConfig struct {
	Port            int           `mapstructure:"port" default:"8080"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout" default:"10s"`
}

// RenderConfig configures render budget signals that cannot be read from
// the host.
type RenderConfig struct {
	DevicePixelRatio float64 `mapstructure:"device_pixel_ratio" default:"1"`
}

// LoadConfig loads configuration from environment variables and .env file.
func LoadConfig(path string) (*Config, error) {
	envPath := path + "/.env"
	if path == "." {
		envPath = ".env"
	}

	// Ignore error if file doesn't exist (e.g. production)
	_ = godotenv.Overload(envPath)

	v := viper.New()

	bindValues(v, Config{}, "")

	// Map environment variables to nested keys (e.g. SERVER_PORT -> server.port)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	if err := config.Validate(); err != nil {
		return nil, err
	}

	return &config, nil
}

// Validate checks value ranges.
func (c *Config) Validate() error {
	if c.Catalog.BaseURL == "" {
		return fmt.Errorf("catalog.base_url is required")
	}
	if c.Catalog.MaxConcurrency < 1 {
		return fmt.Errorf("catalog.max_concurrency must be >= 1 (got %d)", c.Catalog.MaxConcurrency)
	}
	if c.Catalog.FallbackTotal < 1 {
		return fmt.Errorf("catalog.fallback_total must be >= 1 (got %d)", c.Catalog.FallbackTotal)
	}
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("server.port out of range (got %d)", c.Server.Port)
	}
	if c.Render.DevicePixelRatio < 0 {
		return fmt.Errorf("render.device_pixel_ratio must not be negative")
	}
	return nil
}

// RedisClient returns a client for the configured Redis, or nil when no
// address is set.
func (c *Config) RedisClient() *redis.Client {
	if c.Redis.Addr == "" {
		return nil
	}
	return redis.NewClient(&redis.Options{
		Addr:     c.Redis.Addr,
		Password: c.Redis.Password,
		DB:       c.Redis.DB,
	})
}

// ClientConfig builds the catalog client configuration.
func (c *Config) ClientConfig(redisClient *redis.Client) client.Config {
	cfg := client.DefaultConfig()
	cfg.BaseURL = c.Catalog.BaseURL
	cfg.UserAgent = c.Catalog.UserAgent
	cfg.Timeout = c.Catalog.Timeout
	cfg.MaxConcurrency = c.Catalog.MaxConcurrency
	cfg.MaxRetries = c.Catalog.MaxRetries
	cfg.CacheTTL = c.Catalog.CacheTTL
	cfg.Redis = redisClient
	return cfg
}

// LoggingConfig builds the logger configuration.
func (c *Config) LoggingConfig() logging.Config {
	cfg := logging.DefaultConfig()
	cfg.Level = logging.LogLevel(c.Log.Level)
	cfg.Pretty = c.Log.Pretty
	return cfg
}

// bindValues uses reflection to iterate over the struct and set default values in Viper
// based on the 'default' and 'mapstructure' tags.
func bindValues(v *viper.Viper, iface any, prefix string) {
	t := reflect.TypeOf(iface)

	if t.Kind() == reflect.Ptr {
		t = t.Elem()
	}

	for i := 0; i < t.NumField(); i++ {
		field := t.Field(i)
		tag := field.Tag.Get("mapstructure")
		if tag == "" {
			continue
		}

		key := tag
		if prefix != "" {
			key = prefix + "." + tag
		}

		if field.Type.Kind() == reflect.Struct {
			bindValues(v, reflect.New(field.Type).Elem().Interface(), key)
			continue
		}

		// Always set default (even if empty) to register the key for AutomaticEnv
		v.SetDefault(key, field.Tag.Get("default"))
	}
}
