package server

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/jmoiron/sqlx"
	"github.com/revendaauto/backoffice/internal/db"

	"github.com/revendaauto/backoffice/internal/server/handlers/api"
	"github.com/revendaauto/backoffice/internal/server/handlers/auth"
	"github.com/revendaauto/backoffice/internal/server/handlers/contracts"
	"github.com/revendaauto/backoffice/internal/server/handlers/files"
	"github.com/revendaauto/backoffice/internal/server/handlers/objects"
	"github.com/revendaauto/backoffice/internal/server/handlers/signature"
	"github.com/revendaauto/backoffice/internal/server/handlers/uploads"
	"github.com/revendaauto/backoffice/internal/server/middlewares"
	"github.com/revendaauto/backoffice/internal/version"
)

const (
	// the direct endpoint advertised in plans may point elsewhere behind a
	// proxy, this is where it is served
	directUploadRoute = "/api/uploads/direct"
	signaturesRoute   = "/api/signatures"
	otpRateLimit      = "10-M"
)

func SetupRoutes(config *Config, svc *Services) (http.Handler, error) {
	r := gin.New()
	r.MaxMultipartMemory = 8 << 20 // 8 MiB
	r.HandleMethodNotAllowed = true

	signingPath := svc.Signature.SigningPath()

	var reader objects.ObjectReader
	if svc.Blob != nil {
		reader = svc.Blob
	}

	authH := auth.New(svc.Auth)
	uploadsH := uploads.New(svc.Uploads, svc.Files, config.HTTP.PublicURL, svc.Metrics)
	filesH := files.New(svc.Files)
	objectsH := objects.New(reader, config.Blob.RoutePrefix())
	signatureH := signature.New(svc.Signature)
	contractsH := contracts.New(svc.Contracts, svc.Signature)

	signLimiter, err := middlewares.RateLimiter(svc.Signature.RateLimit())
	if err != nil {
		return nil, err
	}
	otpLimiter, err := middlewares.RateLimiter(otpRateLimit)
	if err != nil {
		return nil, err
	}

	r.Use(middlewares.Logger(signingPath, signaturesRoute))
	r.Use(gin.Recovery())
	r.Use(middlewares.SecureHeaders(config.HTTP.TLS()))
	r.Use(middlewares.GZIP(svc.Files.PublicPrefix()+"/", config.Blob.RoutePrefix()+"/"))
	r.Use(middlewares.CORS(config.HTTP.CORSOrigins))

	r.GET("/", IndexHandler)
	r.GET("/healthz", healthHandler(svc.DB))
	r.GET("/metrics", gin.WrapH(svc.Metrics.Handler()))

	authG := r.Group("/auth", otpLimiter)
	{
		authG.POST("/otp/request", authH.OTPRequest)
		authG.POST("/otp/verify", authH.OTPVerify)
		authG.POST("/refresh", authH.Refresh)
	}

	// public reads, the names are unguessable
	r.GET(svc.Files.PublicPrefix()+"/:fileName", filesH.Get)
	r.GET(config.Blob.RoutePrefix()+"/*objectPath", objectsH.Get)

	// signing, reachable by whoever holds the link
	r.GET(signingPath+"/:token", signLimiter, signatureH.Summary)
	sigG := r.Group(signaturesRoute, signLimiter)
	{
		sigG.GET("/:token", signatureH.Summary)
		sigG.POST("/:token/sign", signatureH.Sign)
	}

	staff := r.Group("", middlewares.JWTAuth(svc.Auth))
	{
		staff.POST("/api/uploads/request-url", uploadsH.RequestURL)
		staff.POST(directUploadRoute, uploadsH.Direct)
		staff.DELETE(svc.Files.PublicPrefix()+"/:fileName", filesH.Delete)

		staff.POST("/api/contracts", contractsH.Create)
		staff.GET("/api/contracts/:id", contractsH.Get)
		staff.POST("/api/contracts/:id/signature-link", contractsH.SignatureLink)
	}

	r.NoRoute(func(c *gin.Context) {
		api.AbortWithError(c, http.StatusNotFound, api.CodeNotFound, errors.New("not found"))
	})

	r.NoMethod(func(c *gin.Context) {
		api.AbortWithError(c, http.StatusMethodNotAllowed, api.CodeMethodNotAllowed, errors.New("method not allowed"))
	})

	return r.Handler(), nil
}

func IndexHandler(ctx *gin.Context) {
	ctx.String(http.StatusOK, version.DetailedWithApp())
}

// healthHandler answers 503 while the database is unreachable. Storage
// backends are not probed here, a remote outage must not take the
// signing pages down with it.
func healthHandler(database *sqlx.DB) gin.HandlerFunc {
	return func(ctx *gin.Context) {
		if err := db.Check(ctx, database); err != nil {
			slog.Warn("health check failed", "error", err)
			ctx.PureJSON(http.StatusServiceUnavailable, gin.H{"status": "unavailable"})
			return
		}
		ctx.PureJSON(http.StatusOK, gin.H{"status": "ok"})
	}
}

func init() {
	gin.SetMode(gin.ReleaseMode)
}
