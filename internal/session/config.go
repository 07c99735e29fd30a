package session

import (
	"github.com/louisbranch/rulesheet/internal/core/rules"
	"github.com/louisbranch/rulesheet/internal/platform/config"
)

// DefaultMaxSessions bounds an Arena when no limit is configured.
const DefaultMaxSessions = 1024

// Config bounds an Arena and the contexts it holds.
type Config struct {
	MaxSessions int `env:"MAX_SESSIONS" envDefault:"1024"`
	Limits      rules.Limits
}

// DefaultConfig returns the configuration used when nothing is set.
func DefaultConfig() Config {
	return Config{MaxSessions: DefaultMaxSessions, Limits: rules.DefaultLimits()}
}

// LoadConfig reads RULESHEET_MAX_SESSIONS and RULESHEET_MAX_DEPTH.
func LoadConfig() (Config, error) {
	var cfg Config
	if err := config.Load(&cfg); err != nil {
		return Config{}, err
	}
	return cfg.normalized(), nil
}

func (c Config) normalized() Config {
	if c.MaxSessions <= 0 {
		c.MaxSessions = DefaultMaxSessions
	}
	if c.Limits.MaxDepth <= 0 {
		c.Limits = rules.DefaultLimits()
	}
	return c
}
