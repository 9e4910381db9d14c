package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/lmittmann/tint"
	"github.com/mattn/go-isatty"
	"github.com/revendaauto/backoffice/internal/server"
	"github.com/revendaauto/backoffice/internal/server/blob"
	"github.com/revendaauto/backoffice/internal/server/files"
	"github.com/revendaauto/backoffice/internal/server/signature"
	"github.com/revendaauto/backoffice/internal/server/uploads"
	"github.com/revendaauto/backoffice/internal/utils"
	"github.com/revendaauto/backoffice/internal/version"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

const (
	envPrefix   = "BACKOFFICE"
	logFileName = "server.log"
	timeFormat  = "2006-01-02T15:04:05.000Z07:00"

	defaultDataDir = ".data"
)

func newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "backoffice-server",
		Short:   "Revenda back-office server",
		Version: version.Detailed(),
		RunE:    run,
	}

	cmd.Flags().SortFlags = false
	cmd.Flags().StringP("bind", "b", server.DefaultAddr, "Address to bind the server")
	cmd.Flags().String("cert", "", "Path to the TLS certificate file")
	cmd.Flags().String("key", "", "Path to the TLS key file")
	cmd.Flags().StringP("datadir", "d", defaultDataDir, "Directory for the database and local files")
	cmd.Flags().StringP("config", "c", "", "Config file (yaml or json)")
	return cmd
}

func run(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	cmd.SilenceUsage = true

	closeLog, err := setupLogger(cfg.LogDir)
	if err != nil {
		return err
	}
	defer closeLog()

	srv, err := server.New(cfg)
	if err != nil {
		return err
	}

	defer slog.Info("Bye!")
	return srv.Start(cmd.Context())
}

func main() {
	// terminal only until the config says where the log file lives
	slog.SetDefault(slog.New(terminalHandler()))

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		os.Exit(1)
	}
}

func terminalHandler() slog.Handler {
	return tint.NewHandler(os.Stdout, &tint.Options{
		Level:      slog.LevelDebug,
		TimeFormat: timeFormat,
		NoColor:    !isatty.IsTerminal(os.Stdout.Fd()),
	})
}

// setupLogger adds a plain text file sink under logDir next to the terminal.
func setupLogger(logDir string) (func(), error) {
	if logDir == "" {
		return func() {}, nil
	}

	if err := utils.EnsureDir(logDir); err != nil {
		return nil, fmt.Errorf("create log dir: %w", err)
	}
	file, err := os.OpenFile(filepath.Join(logDir, logFileName), os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, fmt.Errorf("open log file: %w", err)
	}

	slog.SetDefault(slog.New(utils.NewTeeHandler(terminalHandler(), fileHandler(file))))
	return func() { file.Close() }, nil
}

func fileHandler(w io.Writer) slog.Handler {
	return slog.NewTextHandler(w, &slog.HandlerOptions{Level: slog.LevelDebug})
}

func loadConfig(cmd *cobra.Command) (*server.Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("load .env: %w", err)
	}

	v := viper.New()

	if path, _ := cmd.Flags().GetString("config"); path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("config read '%s': %w", path, err)
		}
	}

	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	setDefaults(v)

	v.BindPFlag("http.addr", cmd.Flags().Lookup("bind"))
	v.BindPFlag("http.cert_file", cmd.Flags().Lookup("cert"))
	v.BindPFlag("http.key_file", cmd.Flags().Lookup("key"))
	v.BindPFlag("data_dir", cmd.Flags().Lookup("datadir"))

	var cfg server.Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("config decode: %w", err)
	}
	return &cfg, nil
}

// setDefaults registers every key, env lookups only resolve known keys.
func setDefaults(v *viper.Viper) {
	v.SetDefault("http.addr", server.DefaultAddr)
	v.SetDefault("http.cert_file", "")
	v.SetDefault("http.key_file", "")
	v.SetDefault("http.public_url", server.DefaultPublicURL)
	v.SetDefault("http.cors_origins", []string{})

	v.SetDefault("blob.enabled", false)
	v.SetDefault("blob.bucket_name", "")
	v.SetDefault("blob.region", "")
	v.SetDefault("blob.endpoint", "")
	v.SetDefault("blob.access_key", "")
	v.SetDefault("blob.secret_key", "")
	v.SetDefault("blob.use_accelerate", false)
	v.SetDefault("blob.key_prefix", blob.DefaultKeyPrefix)
	v.SetDefault("blob.public_prefix", blob.DefaultPublicPrefix)
	v.SetDefault("blob.upload_expiry", blob.DefaultUploadExpiry)

	v.SetDefault("files.dir", "")
	v.SetDefault("files.public_prefix", files.DefaultPublicPrefix)

	v.SetDefault("uploads.max_size", uploads.DefaultMaxSize)
	v.SetDefault("uploads.direct_endpoint", uploads.DefaultDirectEndpoint)

	v.SetDefault("signature.token_expiry", signature.DefaultTokenExpiry)
	v.SetDefault("signature.signing_path", signature.DefaultSigningPath)
	v.SetDefault("signature.rate_limit", signature.DefaultRateLimit)

	v.SetDefault("auth.enabled", false)
	v.SetDefault("auth.token_issuer", "")
	v.SetDefault("auth.access_token_secret", "")
	v.SetDefault("auth.access_token_expiry", 24*time.Hour)
	v.SetDefault("auth.refresh_token_secret", "")
	v.SetDefault("auth.refresh_token_expiry", 30*24*time.Hour)
	v.SetDefault("auth.email_otp_length", 8)
	v.SetDefault("auth.email_otp_expiry", 5*time.Minute)
	v.SetDefault("auth.allowed_emails", []string{})

	v.SetDefault("email.enabled", false)
	v.SetDefault("email.sendgrid_api_key", "")
	v.SetDefault("email.from_email", "")
	v.SetDefault("email.from_name", "Revenda")

	v.SetDefault("data_dir", defaultDataDir)
	v.SetDefault("log_dir", "")
}
