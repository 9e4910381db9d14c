package middlewares

import (
	"log/slog"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/revendaauto/backoffice/internal/utils"
	slogGin "github.com/samber/slog-gin"
)

// Logger logs every request through slog-gin. Requests under one of the
// sensitive prefixes carry a secret in their path; those are logged here
// with the secret segment masked.
func Logger(sensitivePrefixes ...string) gin.HandlerFunc {
	httpLogger := slog.Default().WithGroup("http")

	access := slogGin.NewWithConfig(httpLogger, slogGin.Config{
		DefaultLevel:      slog.LevelInfo,
		ClientErrorLevel:  slog.LevelWarn,
		ServerErrorLevel:  slog.LevelError,
		WithRequestID:     true,
		WithRequestHeader: false,
		WithTraceID:       true,
		WithSpanID:        true,
	})

	return func(c *gin.Context) {
		path := c.Request.URL.Path
		for _, prefix := range sensitivePrefixes {
			if strings.HasPrefix(path, prefix+"/") {
				logMasked(httpLogger, c, maskPath(path, prefix))
				return
			}
		}
		access(c)
	}
}

func logMasked(logger *slog.Logger, c *gin.Context, path string) {
	start := time.Now()
	c.Next()

	status := c.Writer.Status()
	level := slog.LevelInfo
	switch {
	case status >= 500:
		level = slog.LevelError
	case status >= 400:
		level = slog.LevelWarn
	}

	logger.Log(c.Request.Context(), level, "request",
		slog.String("method", c.Request.Method),
		slog.String("path", path),
		slog.Int("status", status),
		slog.Duration("latency", time.Since(start)),
		slog.String("ip", c.ClientIP()),
	)
}

// maskPath masks the first segment after prefix.
func maskPath(path, prefix string) string {
	rest := strings.TrimPrefix(path[len(prefix):], "/")
	secret, tail, found := strings.Cut(rest, "/")
	masked := prefix + "/" + utils.MaskSecret(secret)
	if found {
		masked += "/" + tail
	}
	return masked
}
