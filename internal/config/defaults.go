package config

import "time"

// Default values for optional configuration fields.
const (
	DefaultPort            = 8080
	DefaultShutdownTimeout = 10 * time.Second
	DefaultTokenTTL        = 24 * time.Hour
	DefaultChallengeTTL    = 5 * time.Minute
	DefaultDBPort          = 5432
	DefaultDBSSLMode       = "disable"
	DefaultMaxConns        = 10
	DefaultMinConns        = 2
	DefaultFaucetLimit     = 100_000_000_000 // 100 SUI
	DefaultJournalBatch    = 500
	DefaultAlertsWorkers   = 5
	DefaultInboxSize       = 100
	DefaultLogLevel        = "info"
)

func (c *Config) applyDefaults() {
	if c.Server.Port == 0 {
		c.Server.Port = DefaultPort
	}
	if c.Server.ShutdownTimeout == 0 {
		c.Server.ShutdownTimeout = DefaultShutdownTimeout
	}

	if c.Auth.TokenTTL == 0 {
		c.Auth.TokenTTL = DefaultTokenTTL
	}
	if c.Auth.ChallengeTTL == 0 {
		c.Auth.ChallengeTTL = DefaultChallengeTTL
	}

	if c.Database.Enabled() {
		if c.Database.Port == 0 {
			c.Database.Port = DefaultDBPort
		}
		if c.Database.SSLMode == "" {
			c.Database.SSLMode = DefaultDBSSLMode
		}
		if c.Database.MaxConns == 0 {
			c.Database.MaxConns = DefaultMaxConns
		}
		if c.Database.MinConns == 0 {
			c.Database.MinConns = DefaultMinConns
		}
	}

	if c.Market.FaucetLimit == 0 {
		c.Market.FaucetLimit = DefaultFaucetLimit
	}
	if c.Journal.BatchSize == 0 {
		c.Journal.BatchSize = DefaultJournalBatch
	}
	if c.Alerts.Concurrency == 0 {
		c.Alerts.Concurrency = DefaultAlertsWorkers
	}
	if c.Alerts.InboxSize == 0 {
		c.Alerts.InboxSize = DefaultInboxSize
	}
	if c.Log.Level == "" {
		c.Log.Level = DefaultLogLevel
	}
}
