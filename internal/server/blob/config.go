package blob

import (
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/revendaauto/backoffice/internal/utils"
)

const (
	DefaultKeyPrefix    = "uploads"
	DefaultPublicPrefix = "/objects"
	DefaultUploadExpiry = 5 * time.Minute
	DefaultReadExpiry   = 5 * time.Minute
)

// Config describes the remote object store. When Enabled is false the
// deployment has no remote capability and uploads go to the local store.
type Config struct {
	Enabled       bool          `mapstructure:"enabled"`
	BucketName    string        `mapstructure:"bucket_name"`
	Region        string        `mapstructure:"region"`
	AccessKey     string        `mapstructure:"access_key"`
	SecretKey     string        `mapstructure:"secret_key"`
	Endpoint      string        `mapstructure:"endpoint"`
	UseAccelerate bool          `mapstructure:"use_accelerate"`
	KeyPrefix     string        `mapstructure:"key_prefix"`
	PublicPrefix  string        `mapstructure:"public_prefix"`
	UploadExpiry  time.Duration `mapstructure:"upload_expiry"`
}

func (c *Config) Validate() error {
	if !c.Enabled {
		return nil
	}
	if c.BucketName == "" {
		return fmt.Errorf("bucket_name required")
	}
	if c.Region == "" {
		return fmt.Errorf("region required")
	}
	if c.AccessKey == "" {
		return fmt.Errorf("access_key required")
	}
	if c.SecretKey == "" {
		return fmt.Errorf("secret_key required")
	}
	if c.Endpoint != "" && !utils.IsValidURL(c.Endpoint) {
		return fmt.Errorf("invalid endpoint URL %q", c.Endpoint)
	}
	if c.UploadExpiry < 0 || c.UploadExpiry > time.Hour {
		return fmt.Errorf("upload_expiry must be between 0 and 1h, got %s", c.UploadExpiry)
	}
	if c.KeyPrefix != "" && !ValidateKey(c.KeyPrefix) {
		return fmt.Errorf("invalid key_prefix %q", c.KeyPrefix)
	}
	return nil
}

func (c *Config) withDefaults() *Config {
	out := *c
	if out.KeyPrefix == "" {
		out.KeyPrefix = DefaultKeyPrefix
	}
	out.KeyPrefix = strings.Trim(out.KeyPrefix, "/")
	if out.PublicPrefix == "" {
		out.PublicPrefix = DefaultPublicPrefix
	}
	out.PublicPrefix = "/" + strings.Trim(out.PublicPrefix, "/")
	if out.UploadExpiry == 0 {
		out.UploadExpiry = DefaultUploadExpiry
	}
	return &out
}

// RoutePrefix is the public path objects are served under.
func (c *Config) RoutePrefix() string {
	return c.withDefaults().PublicPrefix
}

func (c Config) LogValue() slog.Value {
	return slog.GroupValue(
		slog.Bool("enabled", c.Enabled),
		slog.String("bucket_name", c.BucketName),
		slog.String("region", c.Region),
		slog.String("endpoint", c.Endpoint),
		slog.String("access_key", utils.MaskSecret(c.AccessKey)),
		slog.String("secret_key", utils.MaskSecret(c.SecretKey)),
		slog.Bool("use_accelerate", c.UseAccelerate),
		slog.Duration("upload_expiry", c.UploadExpiry),
	)
}
