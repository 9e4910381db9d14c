package email

import (
	"fmt"
	"log/slog"

	"github.com/revendaauto/backoffice/internal/utils"
)

type Config struct {
	Enabled        bool   `mapstructure:"enabled"`
	SendgridAPIKey string `mapstructure:"sendgrid_api_key"`
	FromEmail      string `mapstructure:"from_email"`
	FromName       string `mapstructure:"from_name"`
}

func (c Config) LogValue() slog.Value {
	return slog.GroupValue(
		slog.Bool("enabled", c.Enabled),
		slog.String("sendgrid_api_key", utils.MaskSecret(c.SendgridAPIKey)),
		slog.String("from_email", c.FromEmail),
		slog.String("from_name", c.FromName),
	)
}

func (c Config) Validate() error {
	if c.Enabled {
		if c.SendgridAPIKey == "" {
			return fmt.Errorf("sendgrid_api_key is required")
		}
		if !utils.IsValidEmail(c.FromEmail) {
			return fmt.Errorf("from_email %q is not a valid email", c.FromEmail)
		}
	}
	return nil
}
