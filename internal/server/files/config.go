package files

import (
	"fmt"
	"log/slog"
	"strings"
)

const DefaultPublicPrefix = "/api/files"

type Config struct {
	Dir          string `mapstructure:"dir"`
	PublicPrefix string `mapstructure:"public_prefix"`
}

func (c *Config) Validate() error {
	if c.Dir == "" {
		return fmt.Errorf("dir required")
	}
	if c.PublicPrefix != "" && !strings.HasPrefix(c.PublicPrefix, "/") {
		return fmt.Errorf("public_prefix must start with '/', got %q", c.PublicPrefix)
	}
	return nil
}

func (c Config) LogValue() slog.Value {
	return slog.GroupValue(
		slog.String("dir", c.Dir),
		slog.String("public_prefix", c.PublicPrefix),
	)
}
