package signature

import (
	"fmt"
	"log/slog"
	"strings"
	"time"
)

const (
	DefaultTokenExpiry = 48 * time.Hour
	DefaultSigningPath = "/assinar"
	DefaultRateLimit   = "20-M"
)

type Config struct {
	TokenExpiry time.Duration `mapstructure:"token_expiry"`
	SigningPath string        `mapstructure:"signing_path"`
	RateLimit   string        `mapstructure:"rate_limit"`
}

func (c *Config) Validate() error {
	if c.TokenExpiry < 0 {
		return fmt.Errorf("token_expiry must not be negative")
	}
	if c.SigningPath != "" && !strings.HasPrefix(c.SigningPath, "/") {
		return fmt.Errorf("signing_path must start with '/', got %q", c.SigningPath)
	}
	return nil
}

func (c *Config) withDefaults() *Config {
	out := *c
	if out.TokenExpiry == 0 {
		out.TokenExpiry = DefaultTokenExpiry
	}
	if out.SigningPath == "" {
		out.SigningPath = DefaultSigningPath
	}
	if out.RateLimit == "" {
		out.RateLimit = DefaultRateLimit
	}
	return &out
}

func (c Config) LogValue() slog.Value {
	return slog.GroupValue(
		slog.Duration("token_expiry", c.TokenExpiry),
		slog.String("signing_path", c.SigningPath),
		slog.String("rate_limit", c.RateLimit),
	)
}
