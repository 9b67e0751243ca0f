package config

import "time"

// Identity store backends.
const (
	IdentityStoreMemory = "memory"
	IdentityStoreSQLite = "sqlite"
)

// RateLimit bounds inbound lines per connection. Zero values disable it.
type RateLimit struct {
	Burst     int     `mapstructure:"burst" yaml:"burst"`
	PerSecond float64 `mapstructure:"per_second" yaml:"per_second"`
}

// Config holds server configuration values.
type Config struct {
	Addr              string        `mapstructure:"addr" yaml:"addr"`
	HTTPAddr          string        `mapstructure:"http_addr" yaml:"http_addr"`
	ReadHeaderTimeout time.Duration `mapstructure:"read_header_timeout" yaml:"read_header_timeout"`
	ShutdownTimeout   time.Duration `mapstructure:"shutdown_timeout" yaml:"shutdown_timeout"`
	WriteTimeout      time.Duration `mapstructure:"write_timeout" yaml:"write_timeout"`
	MaxLineLength     int           `mapstructure:"max_line_length" yaml:"max_line_length"`
	OutboundQueue     int           `mapstructure:"outbound_queue" yaml:"outbound_queue"`
	LogLevel          string        `mapstructure:"log_level" yaml:"log_level"`
	IdentityStore     string        `mapstructure:"identity_store" yaml:"identity_store"`
	DatabasePath      string        `mapstructure:"database_path" yaml:"database_path"`
	RateLimit         RateLimit     `mapstructure:"rate_limit" yaml:"rate_limit"`
}

// Default returns configuration with reasonable starter defaults.
func Default() Config {
	return Config{
		Addr:              ":4567",
		HTTPAddr:          ":8080",
		ReadHeaderTimeout: 5 * time.Second,
		ShutdownTimeout:   5 * time.Second,
		WriteTimeout:      10 * time.Second,
		MaxLineLength:     8192,
		OutboundQueue:     256,
		LogLevel:          "info",
		IdentityStore:     IdentityStoreMemory,
		DatabasePath:      ":memory:",
		RateLimit: RateLimit{
			Burst:     50,
			PerSecond: 20,
		},
	}
}

// UpdateFrom overwrites non-zero values from other config into receiver.
func (c *Config) UpdateFrom(other Config) {
	if other.Addr != "" {
		c.Addr = other.Addr
	}
	if other.HTTPAddr != "" {
		c.HTTPAddr = other.HTTPAddr
	}
	if other.ReadHeaderTimeout != 0 {
		c.ReadHeaderTimeout = other.ReadHeaderTimeout
	}
	if other.ShutdownTimeout != 0 {
		c.ShutdownTimeout = other.ShutdownTimeout
	}
	if other.WriteTimeout != 0 {
		c.WriteTimeout = other.WriteTimeout
	}
	if other.MaxLineLength != 0 {
		c.MaxLineLength = other.MaxLineLength
	}
	if other.OutboundQueue != 0 {
		c.OutboundQueue = other.OutboundQueue
	}
	if other.LogLevel != "" {
		c.LogLevel = other.LogLevel
	}
	if other.IdentityStore != "" {
		c.IdentityStore = other.IdentityStore
	}
	if other.DatabasePath != "" {
		c.DatabasePath = other.DatabasePath
	}
	if other.RateLimit.Burst != 0 {
		c.RateLimit.Burst = other.RateLimit.Burst
	}
	if other.RateLimit.PerSecond != 0 {
		c.RateLimit.PerSecond = other.RateLimit.PerSecond
	}
}
