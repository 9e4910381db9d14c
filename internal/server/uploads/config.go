package uploads

import (
	"fmt"
	"log/slog"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/revendaauto/backoffice/internal/utils"
)

const (
	DefaultMaxSize        = 10 << 20
	DefaultDirectEndpoint = "/api/uploads/direct"
)

type Config struct {
	MaxSize        int64  `mapstructure:"max_size"`
	DirectEndpoint string `mapstructure:"direct_endpoint"`
}

func (c *Config) Validate() error {
	if c.MaxSize < 0 {
		return fmt.Errorf("max_size must not be negative")
	}
	if c.DirectEndpoint != "" && !isEndpoint(c.DirectEndpoint) {
		return fmt.Errorf("direct_endpoint %q must be an absolute path or an http(s) url", c.DirectEndpoint)
	}
	return nil
}

func (c Config) LogValue() slog.Value {
	return slog.GroupValue(
		slog.String("max_size", humanize.IBytes(uint64(max(c.MaxSize, 0)))),
		slog.String("direct_endpoint", c.DirectEndpoint),
	)
}

// isEndpoint accepts "/path" (resolved by the client against its server
// url) or a full http(s) url.
func isEndpoint(s string) bool {
	if strings.HasPrefix(s, "/") {
		return !strings.HasPrefix(s, "//") && !strings.ContainsAny(s, " ?#")
	}
	return utils.IsValidURL(s)
}
