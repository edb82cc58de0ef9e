// Package config provides Viper-based configuration loading for the arena service.
package config

import (
	"errors"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Store backends.
const (
	BackendMemory   = "memory"
	BackendPostgres = "postgres"
	BackendRedis    = "redis"
)

// Event bus backends.
const (
	EventsLocal = "local"
	EventsRedis = "redis"
)

// StoreConfig selects the CharacterStore implementation.
type StoreConfig struct {
	// Backend is one of "memory", "postgres" or "redis".
	Backend string `mapstructure:"backend"`
}

// DatabaseConfig holds PostgreSQL connection settings.
type DatabaseConfig struct {
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port"`
	User            string        `mapstructure:"user"`
	Password        string        `mapstructure:"password"`
	Name            string        `mapstructure:"name"`
	SSLMode         string        `mapstructure:"sslmode"`
	MaxConns        int32         `mapstructure:"max_conns"`
	MinConns        int32         `mapstructure:"min_conns"`
	MaxConnLifetime time.Duration `mapstructure:"max_conn_lifetime"`
}

// DSN returns the PostgreSQL connection string.
//
// Precondition: Host, Port, User, and Name must be non-empty.
// Postcondition: Returns a valid PostgreSQL DSN string.
func (d DatabaseConfig) DSN() string {
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?sslmode=%s",
		d.User, d.Password, d.Host, d.Port, d.Name, d.SSLMode,
	)
}

// RedisConfig holds Redis connection settings shared by the redis store and event bus.
type RedisConfig struct {
	Addr     string `mapstructure:"addr"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
	// KeyPrefix namespaces every key the store writes.
	KeyPrefix string `mapstructure:"key_prefix"`
	// Channel is the pub/sub channel combat events are published on.
	Channel string `mapstructure:"channel"`
}

// HTTPConfig holds the API listener settings.
type HTTPConfig struct {
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port"`
	ReadTimeout     time.Duration `mapstructure:"read_timeout"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
	// RateLimitRPS caps session actions per second; 0 disables limiting.
	RateLimitRPS   float64 `mapstructure:"rate_limit_rps"`
	RateLimitBurst int     `mapstructure:"rate_limit_burst"`
}

// Addr returns the "host:port" listen address.
//
// Postcondition: Returns a non-empty string in "host:port" format.
func (h HTTPConfig) Addr() string {
	return fmt.Sprintf("%s:%d", h.Host, h.Port)
}

// LoggingConfig holds structured logging settings.
type LoggingConfig struct {
	// Level is the minimum log level: "debug", "info", "warn", "error".
	Level string `mapstructure:"level"`
	// Format is the log output format: "json" or "console".
	Format string `mapstructure:"format"`
	// OutputPaths overrides the default of stderr.
	OutputPaths []string `mapstructure:"output_paths"`
}

// EngineConfig holds the numeric policy knobs of the combat and regeneration engine.
type EngineConfig struct {
	// RegenTickMs is the regeneration interval in milliseconds.
	RegenTickMs int `mapstructure:"regen_tick_ms"`
	// GlobalRewardPercent is the share of each victory's currency reward also
	// credited to the global wallet.
	GlobalRewardPercent int `mapstructure:"global_reward_percent"`
}

// RegenInterval returns RegenTickMs as a duration.
func (e EngineConfig) RegenInterval() time.Duration {
	return time.Duration(e.RegenTickMs) * time.Millisecond
}

// ContentConfig locates the YAML content tree.
type ContentConfig struct {
	Dir string `mapstructure:"dir"`
}

// EventsConfig selects the combat event bus.
type EventsConfig struct {
	// Backend is "local" or "redis".
	Backend string `mapstructure:"backend"`
	// Buffer is the per-subscriber channel capacity.
	Buffer int `mapstructure:"buffer"`
}

// Config is the top-level application configuration.
type Config struct {
	Store    StoreConfig    `mapstructure:"store"`
	Database DatabaseConfig `mapstructure:"database"`
	Redis    RedisConfig    `mapstructure:"redis"`
	HTTP     HTTPConfig     `mapstructure:"http"`
	Logging  LoggingConfig  `mapstructure:"logging"`
	Engine   EngineConfig   `mapstructure:"engine"`
	Content  ContentConfig  `mapstructure:"content"`
	Events   EventsConfig   `mapstructure:"events"`
}

// ErrInvalid wraps every validation failure returned by Validate and Load.
var ErrInvalid = errors.New("invalid configuration")

// problems accumulates violations so a single Validate reports all of them.
type problems []error

func (p *problems) addf(format string, args ...any) {
	*p = append(*p, fmt.Errorf(format, args...))
}

func (p *problems) oneOf(field, got string, allowed ...string) {
	if !slices.Contains(allowed, got) {
		p.addf("%s must be one of [%s], got %q", field, strings.Join(allowed, ", "), got)
	}
}

func (p *problems) port(field string, got int) {
	if got < 1 || got > 65535 {
		p.addf("%s must be 1-65535, got %d", field, got)
	}
}

// Validate checks all configuration invariants. Database and Redis settings are only
// checked when a configured backend uses them.
//
// Postcondition: Returns nil, or an error wrapping ErrInvalid that names every violation.
func (c Config) Validate() error {
	var p problems
	p.oneOf("store.backend", c.Store.Backend, BackendMemory, BackendPostgres, BackendRedis)
	if c.Store.Backend == BackendPostgres {
		c.Database.check(&p)
	}
	if c.Store.Backend == BackendRedis || c.Events.Backend == EventsRedis {
		c.Redis.check(&p)
	}
	c.HTTP.check(&p)
	p.oneOf("logging.level", c.Logging.Level, "debug", "info", "warn", "error")
	p.oneOf("logging.format", c.Logging.Format, "json", "console")
	c.Engine.check(&p)
	if c.Content.Dir == "" {
		p.addf("content.dir must not be empty")
	}
	p.oneOf("events.backend", c.Events.Backend, EventsLocal, EventsRedis)
	if c.Events.Buffer < 1 {
		p.addf("events.buffer must be >= 1, got %d", c.Events.Buffer)
	}

	if len(p) == 0 {
		return nil
	}
	return fmt.Errorf("%w: %w", ErrInvalid, errors.Join(p...))
}

func (d DatabaseConfig) check(p *problems) {
	if d.Host == "" {
		p.addf("database.host must not be empty")
	}
	p.port("database.port", d.Port)
	if d.User == "" {
		p.addf("database.user must not be empty")
	}
	if d.Name == "" {
		p.addf("database.name must not be empty")
	}
	p.oneOf("database.sslmode", d.SSLMode, "disable", "require", "verify-ca", "verify-full")
	switch {
	case d.MaxConns < 1:
		p.addf("database.max_conns must be >= 1, got %d", d.MaxConns)
	case d.MinConns < 0:
		p.addf("database.min_conns must be >= 0, got %d", d.MinConns)
	case d.MinConns > d.MaxConns:
		p.addf("database.min_conns (%d) exceeds database.max_conns (%d)", d.MinConns, d.MaxConns)
	}
}

func (r RedisConfig) check(p *problems) {
	if r.Addr == "" {
		p.addf("redis.addr must not be empty")
	}
	if r.DB < 0 {
		p.addf("redis.db must be >= 0, got %d", r.DB)
	}
	if r.Channel == "" {
		p.addf("redis.channel must not be empty")
	}
}

func (h HTTPConfig) check(p *problems) {
	p.port("http.port", h.Port)
	if h.ReadTimeout < 0 {
		p.addf("http.read_timeout must not be negative")
	}
	if h.ShutdownTimeout < 0 {
		p.addf("http.shutdown_timeout must not be negative")
	}
	if h.RateLimitRPS < 0 {
		p.addf("http.rate_limit_rps must not be negative, got %g", h.RateLimitRPS)
	}
	if h.RateLimitRPS > 0 && h.RateLimitBurst < 1 {
		p.addf("http.rate_limit_burst must be >= 1 when limiting, got %d", h.RateLimitBurst)
	}
}

func (e EngineConfig) check(p *problems) {
	if e.RegenTickMs < 1 {
		p.addf("engine.regen_tick_ms must be >= 1, got %d", e.RegenTickMs)
	}
	if e.GlobalRewardPercent < 0 || e.GlobalRewardPercent > 100 {
		p.addf("engine.global_reward_percent must be 0-100, got %d", e.GlobalRewardPercent)
	}
}

// Load reads configuration from the given file path, applies environment variable
// overrides, and validates the result.
//
// Precondition: path must be a valid file path to a YAML configuration file.
// Postcondition: Returns a valid Config or a non-nil error.
func Load(path string) (Config, error) {
	v := viper.New()
	v.SetConfigFile(path)

	// Environment variable overrides with ARENA_ prefix
	v.SetEnvPrefix("ARENA")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		return Config{}, fmt.Errorf("reading config file: %w", err)
	}
	return LoadFromViper(v)
}

// LoadFromViper builds a Config from an already-configured Viper instance.
//
// Precondition: v must be non-nil and have configuration values set.
// Postcondition: Returns a valid Config or a non-nil error.
func LoadFromViper(v *viper.Viper) (Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("unmarshalling config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Defaults returns a viper instance holding only the default values.
func Defaults() *viper.Viper {
	v := viper.New()
	setDefaults(v)
	return v
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("store.backend", BackendMemory)

	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.user", "arena")
	v.SetDefault("database.password", "arena")
	v.SetDefault("database.name", "arena")
	v.SetDefault("database.sslmode", "disable")
	v.SetDefault("database.max_conns", 10)
	v.SetDefault("database.min_conns", 2)
	v.SetDefault("database.max_conn_lifetime", "1h")

	v.SetDefault("redis.addr", "localhost:6379")
	v.SetDefault("redis.db", 0)
	v.SetDefault("redis.key_prefix", "arena:")
	v.SetDefault("redis.channel", "arena:events")

	v.SetDefault("http.host", "0.0.0.0")
	v.SetDefault("http.port", 8080)
	v.SetDefault("http.read_timeout", "10s")
	v.SetDefault("http.write_timeout", "0s")
	v.SetDefault("http.shutdown_timeout", "5s")
	v.SetDefault("http.rate_limit_rps", 20)
	v.SetDefault("http.rate_limit_burst", 40)

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")

	v.SetDefault("engine.regen_tick_ms", 1000)
	v.SetDefault("engine.global_reward_percent", 0)

	v.SetDefault("content.dir", "content")

	v.SetDefault("events.backend", EventsLocal)
	v.SetDefault("events.buffer", 64)
}
