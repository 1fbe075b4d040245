// Package config loads server settings from the environment (optionally a
// .env file) and an optional YAML file.
package config

import "time"

// Config is the root configuration for the marketplace server.
type Config struct {
	Server   ServerConfig  `yaml:"server"`
	Auth     AuthConfig    `yaml:"auth"`
	Database DBConfig      `yaml:"database"`
	Redis    RedisConfig   `yaml:"redis"`
	Market   MarketConfig  `yaml:"market"`
	Journal  JournalConfig `yaml:"journal"`
	Alerts   AlertsConfig  `yaml:"alerts"`
	Log      LogConfig     `yaml:"log"`
}

// ServerConfig holds HTTP listener settings.
type ServerConfig struct {
	Port            int           `yaml:"port"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
}

// AuthConfig holds wallet login and token settings.
type AuthConfig struct {
	JWTSecret    string        `yaml:"jwt_secret"`
	TokenTTL     time.Duration `yaml:"token_ttl"`
	ChallengeTTL time.Duration `yaml:"challenge_ttl"`
}

// DBConfig holds the Postgres journal connection. An empty Host disables the
// journal and the server runs in memory only.
type DBConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	Name     string `yaml:"name"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	SSLMode  string `yaml:"ssl_mode"`
	MaxConns int    `yaml:"max_conns"`
	MinConns int    `yaml:"min_conns"`
}

// Enabled reports whether a database was configured.
func (db DBConfig) Enabled() bool { return db.Host != "" }

// RedisConfig is shared by alerts and the search mirror. An empty Addr
// disables both.
type RedisConfig struct {
	Addr     string `yaml:"addr"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
}

// Enabled reports whether Redis was configured.
func (r RedisConfig) Enabled() bool { return r.Addr != "" }

// MarketConfig holds marketplace rules that vary per deployment.
type MarketConfig struct {
	Arbiters      []string `yaml:"arbiters"`
	FaucetEnabled bool     `yaml:"faucet_enabled"`
	FaucetLimit   int64    `yaml:"faucet_limit"` // MIST per top-up
}

// JournalConfig holds Postgres journal settings.
type JournalConfig struct {
	BatchSize int `yaml:"batch_size"`
}

// AlertsConfig holds notification worker settings.
type AlertsConfig struct {
	Concurrency int `yaml:"concurrency"`
	InboxSize   int `yaml:"inbox_size"`
}

// LogConfig selects the slog level: debug, info, warn or error.
type LogConfig struct {
	Level string `yaml:"level"`
}
