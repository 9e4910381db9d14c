package server

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/jmoiron/sqlx"
	"github.com/revendaauto/backoffice/internal/server/auth"
	"github.com/revendaauto/backoffice/internal/server/blob"
	"github.com/revendaauto/backoffice/internal/server/contracts"
	"github.com/revendaauto/backoffice/internal/server/email"
	"github.com/revendaauto/backoffice/internal/server/files"
	"github.com/revendaauto/backoffice/internal/server/metrics"
	"github.com/revendaauto/backoffice/internal/server/signature"
	"github.com/revendaauto/backoffice/internal/server/uploads"
)

type Services struct {
	DB        *sqlx.DB
	Files     *files.LocalStore
	Blob      *blob.S3Backend // nil without a remote store
	Uploads   *uploads.Negotiator
	Contracts *contracts.Store
	Signature *signature.Service
	Auth      *auth.Service
	Email     *email.Service
	Metrics   *metrics.Metrics
}

func NewServices(config *Config, db *sqlx.DB) (*Services, error) {
	metricsSvc := metrics.New()
	emailSvc := email.NewService(&config.Email)

	filesSvc, err := files.NewLocalStore(&config.Files)
	if err != nil {
		return nil, fmt.Errorf("local store: %w", err)
	}

	var (
		blobSvc *blob.S3Backend
		minter  uploads.URLMinter
	)
	if config.Blob.Enabled {
		blobSvc, err = blob.NewS3BackendWithConfig(&config.Blob)
		if err != nil {
			return nil, fmt.Errorf("remote store: %w", err)
		}
		// assigned only here so a disabled store stays a nil interface
		minter = blobSvc
	}

	uploadsSvc := uploads.NewNegotiator(&config.Uploads, filesSvc, minter).WithObserver(metricsSvc)

	contractsSvc := contracts.NewStore(db)
	signatureSvc := signature.NewService(&config.Signature, db, contractsSvc, config.HTTP.PublicURL).
		WithObserver(metricsSvc).
		WithMailer(emailSvc, config.Email.FromName)

	authSvc := auth.NewService(&config.Auth, emailSvc)

	return &Services{
		DB:        db,
		Files:     filesSvc,
		Blob:      blobSvc,
		Uploads:   uploadsSvc,
		Contracts: contractsSvc,
		Signature: signatureSvc,
		Auth:      authSvc,
		Email:     emailSvc,
		Metrics:   metricsSvc,
	}, nil
}

// Start checks the storage backends. An unreachable backend is reported
// but does not stop the server, uploads fail with storage unavailable
// until it recovers.
func (s *Services) Start(ctx context.Context) error {
	slog.Info("uploads mode", "mode", s.Uploads.Mode())

	if err := s.Files.Available(ctx); err != nil {
		slog.Warn("local store not writable", "error", err)
	}

	if s.Blob != nil {
		if err := s.Blob.Ping(ctx); err != nil {
			slog.Warn("remote store unreachable", "error", err)
		}
	}

	if !s.Email.IsEnabled() {
		slog.Warn("email disabled, signing links must be shared manually")
	}
	return nil
}
