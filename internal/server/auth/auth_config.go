package auth

import (
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/revendaauto/backoffice/internal/utils"
)

type Config struct {
	Enabled            bool          `mapstructure:"enabled"`
	TokenIssuer        string        `mapstructure:"token_issuer"`
	RefreshTokenSecret string        `mapstructure:"refresh_token_secret"`
	RefreshTokenExpiry time.Duration `mapstructure:"refresh_token_expiry"`
	AccessTokenSecret  string        `mapstructure:"access_token_secret"`
	AccessTokenExpiry  time.Duration `mapstructure:"access_token_expiry"`
	EmailOTPLength     int           `mapstructure:"email_otp_length"`
	EmailOTPExpiry     time.Duration `mapstructure:"email_otp_expiry"`
	AllowedEmails      []string      `mapstructure:"allowed_emails"`
}

func (c *Config) Validate() error {
	if !c.Enabled {
		return nil
	}
	if c.TokenIssuer == "" {
		return fmt.Errorf("auth `token_issuer` is required when auth is enabled")
	}
	if !utils.IsValidURL(c.TokenIssuer) {
		return fmt.Errorf("invalid token_issuer %q", c.TokenIssuer)
	}
	if c.RefreshTokenSecret == "" {
		return fmt.Errorf("auth `refresh_token_secret` is required when auth is enabled")
	}
	if c.AccessTokenSecret == "" {
		return fmt.Errorf("auth `access_token_secret` is required when auth is enabled")
	}
	if c.EmailOTPLength < 6 {
		return fmt.Errorf("auth `email_otp_length` must be at least 6")
	}
	for _, e := range c.AllowedEmails {
		if !utils.IsValidEmail(e) {
			return fmt.Errorf("auth `allowed_emails` has an invalid entry %q", e)
		}
	}
	return nil
}

// isAllowed reports whether email may sign in. An empty list allows anyone.
func (c *Config) isAllowed(email string) bool {
	if len(c.AllowedEmails) == 0 {
		return true
	}
	for _, e := range c.AllowedEmails {
		if strings.EqualFold(e, email) {
			return true
		}
	}
	return false
}

func (c Config) LogValue() slog.Value {
	return slog.GroupValue(
		slog.Bool("enabled", c.Enabled),
		slog.String("token_issuer", c.TokenIssuer),
		slog.String("access_token_secret", utils.MaskSecret(c.AccessTokenSecret)),
		slog.Duration("access_token_expiry", c.AccessTokenExpiry),
		slog.String("refresh_token_secret", utils.MaskSecret(c.RefreshTokenSecret)),
		slog.Duration("refresh_token_expiry", c.RefreshTokenExpiry),
		slog.Int("email_otp_length", c.EmailOTPLength),
		slog.Duration("email_otp_expiry", c.EmailOTPExpiry),
		slog.Int("allowed_emails", len(c.AllowedEmails)),
	)
}
