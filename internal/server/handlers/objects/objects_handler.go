package objects

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/revendaauto/backoffice/internal/server/blob"
	"github.com/revendaauto/backoffice/internal/server/handlers/api"
)

const cacheControlImmutable = "public, max-age=31536000, immutable"

// ObjectReader reads objects from the remote store by their public path.
type ObjectReader interface {
	GetObject(ctx context.Context, objectPath string) (*blob.Object, error)
	MintReadURL(ctx context.Context, objectPath string) (string, error)
}

type ObjectsHandler struct {
	reader       ObjectReader
	publicPrefix string
}

// New builds the handler. A nil reader answers every path with not found.
func New(reader ObjectReader, publicPrefix string) *ObjectsHandler {
	return &ObjectsHandler{
		reader:       reader,
		publicPrefix: "/" + strings.Trim(publicPrefix, "/"),
	}
}

// Get streams an object, or redirects to a short-lived read URL when the
// query carries redirect=1.
func (h *ObjectsHandler) Get(ctx *gin.Context) {
	if h.reader == nil {
		api.AbortWithError(ctx, http.StatusNotFound, api.CodeObjectNotFound, blob.ErrObjectNotFound)
		return
	}

	objectPath := h.publicPrefix + "/" + strings.TrimPrefix(ctx.Param("objectPath"), "/")

	if ctx.Query("redirect") == "1" {
		h.redirect(ctx, objectPath)
		return
	}

	obj, err := h.reader.GetObject(ctx, objectPath)
	if err != nil {
		abortRead(ctx, err)
		return
	}
	defer obj.Body.Close()

	header := ctx.Writer.Header()
	header.Set("Content-Type", obj.ContentType)
	header.Set("Cache-Control", cacheControlImmutable)
	header.Set("X-Content-Type-Options", "nosniff")
	if obj.Size > 0 {
		header.Set("Content-Length", strconv.FormatInt(obj.Size, 10))
	}
	if obj.ETag != "" {
		header.Set("ETag", `"`+obj.ETag+`"`)
	}
	if !obj.LastModified.IsZero() {
		header.Set("Last-Modified", obj.LastModified.UTC().Format(http.TimeFormat))
	}

	ctx.Status(http.StatusOK)
	if _, err := io.Copy(ctx.Writer, obj.Body); err != nil {
		// headers are out, nothing left to tell the client
		slog.Warn("objects stream interrupted", "path", objectPath, "error", err)
	}
}

func (h *ObjectsHandler) redirect(ctx *gin.Context, objectPath string) {
	url, err := h.reader.MintReadURL(ctx, objectPath)
	if err != nil {
		abortRead(ctx, err)
		return
	}
	ctx.Header("Cache-Control", "no-store")
	ctx.Redirect(http.StatusTemporaryRedirect, url)
}

func abortRead(ctx *gin.Context, err error) {
	switch {
	case errors.Is(err, blob.ErrObjectNotFound), errors.Is(err, blob.ErrInvalidObjectPath), errors.Is(err, blob.ErrInvalidKey):
		api.AbortWithError(ctx, http.StatusNotFound, api.CodeObjectNotFound, blob.ErrObjectNotFound)
	default:
		api.AbortWithError(ctx, http.StatusBadGateway, api.CodeObjectReadFailed, fmt.Errorf("object read failed: %w", err))
	}
}
