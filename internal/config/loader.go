package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Load builds a Config from an optional YAML file and the environment.
// A .env file in the working directory is loaded first if present.
// Environment variables win over values from the file.
func Load(path string) (*Config, error) {
	// .env is optional; real deployments set the environment directly
	_ = godotenv.Load()

	var cfg Config
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config file: %w", err)
		}
		expanded := os.ExpandEnv(string(data))
		if err := yaml.Unmarshal([]byte(expanded), &cfg); err != nil {
			return nil, fmt.Errorf("parse config yaml: %w", err)
		}
	}

	if err := cfg.overlayEnv(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// LoadAndValidate loads config, applies defaults, and validates.
func LoadAndValidate(path string) (*Config, error) {
	cfg, err := Load(path)
	if err != nil {
		return nil, err
	}
	cfg.applyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}
	return cfg, nil
}

func (c *Config) overlayEnv() error {
	var err error
	set := func(dst *string, key string) {
		if v, ok := os.LookupEnv(key); ok {
			*dst = v
		}
	}
	setInt := func(dst *int, key string) {
		if v, ok := os.LookupEnv(key); ok && err == nil {
			n, perr := strconv.Atoi(v)
			if perr != nil {
				err = fmt.Errorf("%s: %w", key, perr)
				return
			}
			*dst = n
		}
	}
	setInt64 := func(dst *int64, key string) {
		if v, ok := os.LookupEnv(key); ok && err == nil {
			n, perr := strconv.ParseInt(v, 10, 64)
			if perr != nil {
				err = fmt.Errorf("%s: %w", key, perr)
				return
			}
			*dst = n
		}
	}
	setDur := func(dst *time.Duration, key string) {
		if v, ok := os.LookupEnv(key); ok && err == nil {
			d, perr := time.ParseDuration(v)
			if perr != nil {
				err = fmt.Errorf("%s: %w", key, perr)
				return
			}
			*dst = d
		}
	}
	setBool := func(dst *bool, key string) {
		if v, ok := os.LookupEnv(key); ok && err == nil {
			b, perr := strconv.ParseBool(v)
			if perr != nil {
				err = fmt.Errorf("%s: %w", key, perr)
				return
			}
			*dst = b
		}
	}

	setInt(&c.Server.Port, "PORT")
	set(&c.Auth.JWTSecret, "JWT_SECRET")
	setDur(&c.Auth.TokenTTL, "TOKEN_TTL")

	set(&c.Database.Host, "DB_HOST")
	setInt(&c.Database.Port, "DB_PORT")
	set(&c.Database.Name, "DB_NAME")
	set(&c.Database.User, "DB_USER")
	set(&c.Database.Password, "DB_PASSWORD")
	set(&c.Database.SSLMode, "DB_SSLMODE")
	setInt(&c.Database.MaxConns, "DB_MAX_CONNS")
	setInt(&c.Database.MinConns, "DB_MIN_CONNS")

	set(&c.Redis.Addr, "REDIS_ADDR")
	set(&c.Redis.Password, "REDIS_PASSWORD")

	if v, ok := os.LookupEnv("ARBITER_ADDRESSES"); ok {
		c.Market.Arbiters = splitList(v)
	}
	setBool(&c.Market.FaucetEnabled, "FAUCET_ENABLED")
	setInt64(&c.Market.FaucetLimit, "FAUCET_LIMIT")

	setInt(&c.Alerts.Concurrency, "ALERTS_CONCURRENCY")
	set(&c.Log.Level, "LOG_LEVEL")
	return err
}

func splitList(s string) []string {
	var out []string
	for _, p := range strings.Split(s, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, strings.ToLower(p))
		}
	}
	return out
}
