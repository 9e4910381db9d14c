package middlewares

import (
	"github.com/gin-contrib/gzip"
	"github.com/gin-gonic/gin"
)

// already compressed, or read with Range requests
var binaryExtensions = []string{
	".png", ".gif", ".jpeg", ".jpg", ".webp", ".avif", ".heic", ".ico",
	".zip", ".gz", ".rar", ".7z",
	".mp4", ".mov", ".pdf",
	".docx", ".xlsx",
}

// GZIP compresses API responses. Stored uploads are served as-is, so the
// prefixes they live under are passed in and skipped along with probes.
func GZIP(rawPrefixes ...string) gin.HandlerFunc {
	excluded := append([]string{"/healthz", "/metrics"}, rawPrefixes...)
	return gzip.Gzip(
		gzip.BestSpeed,
		gzip.WithExcludedPaths(excluded),
		gzip.WithExcludedExtensions(binaryExtensions),
	)
}
