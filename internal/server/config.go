package server

import (
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"

	"github.com/revendaauto/backoffice/internal/server/auth"
	"github.com/revendaauto/backoffice/internal/server/blob"
	"github.com/revendaauto/backoffice/internal/server/email"
	"github.com/revendaauto/backoffice/internal/server/files"
	"github.com/revendaauto/backoffice/internal/server/signature"
	"github.com/revendaauto/backoffice/internal/server/uploads"
	"github.com/revendaauto/backoffice/internal/utils"
)

const (
	DefaultAddr      = "localhost:8080"
	DefaultPublicURL = "http://localhost:8080"
	dbFileName       = "backoffice.db"
)

type Config struct {
	HTTP      HTTPConfig       `mapstructure:"http"`
	Blob      blob.Config      `mapstructure:"blob"`
	Files     files.Config     `mapstructure:"files"`
	Uploads   uploads.Config   `mapstructure:"uploads"`
	Signature signature.Config `mapstructure:"signature"`
	Auth      auth.Config      `mapstructure:"auth"`
	Email     email.Config     `mapstructure:"email"`
	DataDir   string           `mapstructure:"data_dir"`
	LogDir    string           `mapstructure:"log_dir"`
}

type HTTPConfig struct {
	Addr        string   `mapstructure:"addr"`
	CertFile    string   `mapstructure:"cert_file"`
	KeyFile     string   `mapstructure:"key_file"`
	PublicURL   string   `mapstructure:"public_url"`
	CORSOrigins []string `mapstructure:"cors_origins"`
}

func (c *HTTPConfig) TLS() bool {
	return c.CertFile != "" && c.KeyFile != ""
}

func (c *HTTPConfig) Validate() error {
	if c.Addr == "" {
		return errors.New("addr required")
	}
	if (c.CertFile == "") != (c.KeyFile == "") {
		return errors.New("cert_file and key_file must be set together")
	}
	if !utils.IsValidURL(c.PublicURL) {
		return fmt.Errorf("invalid public_url %q", c.PublicURL)
	}
	return nil
}

func (c HTTPConfig) LogValue() slog.Value {
	return slog.GroupValue(
		slog.String("addr", c.Addr),
		slog.String("cert_file", c.CertFile),
		slog.String("key_file", c.KeyFile),
		slog.String("public_url", c.PublicURL),
		slog.Any("cors_origins", c.CORSOrigins),
	)
}

// DBPath is the SQLite file under the data dir.
func (c *Config) DBPath() string {
	return filepath.Join(c.DataDir, dbFileName)
}

func (c *Config) Validate() error {
	if c.DataDir == "" {
		return errors.New("data_dir required")
	}
	if c.Files.Dir == "" {
		c.Files.Dir = filepath.Join(c.DataDir, "files")
	}

	checks := []struct {
		name string
		fn   func() error
	}{
		{"http", c.HTTP.Validate},
		{"blob", c.Blob.Validate},
		{"files", c.Files.Validate},
		{"uploads", c.Uploads.Validate},
		{"signature", c.Signature.Validate},
		{"auth", c.Auth.Validate},
		{"email", c.Email.Validate},
	}
	for _, check := range checks {
		if err := check.fn(); err != nil {
			return fmt.Errorf("%s config: %w", check.name, err)
		}
	}
	return nil
}

func (c Config) LogValue() slog.Value {
	return slog.GroupValue(
		slog.Any("http", c.HTTP),
		slog.Any("blob", c.Blob),
		slog.Any("files", c.Files),
		slog.Any("uploads", c.Uploads),
		slog.Any("signature", c.Signature),
		slog.Any("auth", c.Auth),
		slog.Any("email", c.Email),
		slog.String("data_dir", c.DataDir),
		slog.String("log_dir", c.LogDir),
	)
}
