package files

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/revendaauto/backoffice/internal/server/files"
	"github.com/revendaauto/backoffice/internal/server/handlers/api"
	"github.com/revendaauto/backoffice/internal/server/middlewares"
)

// stored names are unique and never rewritten
const cacheControlImmutable = "public, max-age=31536000, immutable"

type FilesHandler struct {
	store *files.LocalStore
}

func New(store *files.LocalStore) *FilesHandler {
	return &FilesHandler{store: store}
}

func (h *FilesHandler) Get(ctx *gin.Context) {
	name := ctx.Param("fileName")

	f, err := h.store.Open(ctx, name)
	if errors.Is(err, files.ErrNotFound) {
		api.AbortWithError(ctx, http.StatusNotFound, api.CodeFileNotFound, files.ErrNotFound)
		return
	} else if err != nil {
		api.AbortWithError(ctx, http.StatusInternalServerError, api.CodeInternalError, fmt.Errorf("read failed: %w", err))
		return
	}
	defer f.Close()

	header := ctx.Writer.Header()
	header.Set("Content-Type", f.ContentType)
	header.Set("Cache-Control", cacheControlImmutable)
	header.Set("X-Content-Type-Options", "nosniff")
	http.ServeContent(ctx.Writer, ctx.Request, f.Name, f.ModTime, f)
}

func (h *FilesHandler) Delete(ctx *gin.Context) {
	name := ctx.Param("fileName")

	deleted, err := h.store.Delete(ctx, name)
	if err != nil {
		api.AbortWithError(ctx, http.StatusInternalServerError, api.CodeFileDeleteFailed, fmt.Errorf("delete failed: %w", err))
		return
	}

	if deleted {
		slog.Info("file deleted", "file", name, "user", middlewares.GetUser(ctx))
	}
	ctx.PureJSON(http.StatusOK, &DeleteResponse{Deleted: deleted})
}

type DeleteResponse struct {
	Deleted bool `json:"deleted"`
}
