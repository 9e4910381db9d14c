package uploads

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/gin-gonic/gin"
	"github.com/revendaauto/backoffice/internal/server/files"
	"github.com/revendaauto/backoffice/internal/server/handlers/api"
	"github.com/revendaauto/backoffice/internal/server/middlewares"
	"github.com/revendaauto/backoffice/internal/server/uploads"
	"github.com/revendaauto/backoffice/internal/utils"
)

// room for multipart boundaries and part headers on top of the payload
const multipartOverhead = 64 << 10

var errInvalidFilePart = errors.New("multipart part 'file' could not be read")

// FileSaver is the local store as seen by the direct upload endpoint.
type FileSaver interface {
	Save(ctx context.Context, r io.Reader, originalName string, contentType string) (*files.StoredObject, error)
}

// Observer records completed direct uploads.
type Observer interface {
	ObserveDirectUpload(size uint64, took time.Duration)
}

type UploadsHandler struct {
	negotiator *uploads.Negotiator
	store      FileSaver
	publicURL  string
	observer   Observer
}

func New(negotiator *uploads.Negotiator, store FileSaver, publicURL string, observer Observer) *UploadsHandler {
	return &UploadsHandler{
		negotiator: negotiator,
		store:      store,
		publicURL:  publicURL,
		observer:   observer,
	}
}

// RequestURL answers how the client should upload the file it describes.
func (h *UploadsHandler) RequestURL(ctx *gin.Context) {
	var req uploads.UploadRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		api.AbortWithError(ctx, http.StatusBadRequest, api.CodeInvalidRequest, fmt.Errorf("invalid request: %w", err))
		return
	}

	plan, err := h.negotiator.Negotiate(ctx, req)
	if err != nil {
		abortNegotiation(ctx, err)
		return
	}

	ctx.PureJSON(http.StatusOK, plan.Response())
}

// Direct receives the bytes of a direct upload as the multipart part "file".
func (h *UploadsHandler) Direct(ctx *gin.Context) {
	if h.store == nil {
		api.AbortWithError(ctx, http.StatusInternalServerError, api.CodeStorageUnavailable, uploads.ErrStorageUnavailable)
		return
	}

	maxSize := h.negotiator.MaxSize()
	ctx.Request.Body = http.MaxBytesReader(ctx.Writer, ctx.Request.Body, int64(maxSize)+multipartOverhead)

	file, err := ctx.FormFile("file")
	if err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			api.AbortWithError(ctx, http.StatusRequestEntityTooLarge, api.CodePayloadTooLarge, tooLarge(maxSize))
			return
		}
		api.AbortWithError(ctx, http.StatusBadRequest, api.CodeInvalidRequest, errors.New("multipart part 'file' is required"))
		return
	}

	if file.Size < 0 || uint64(file.Size) > maxSize {
		api.AbortWithError(ctx, http.StatusRequestEntityTooLarge, api.CodePayloadTooLarge, tooLarge(maxSize))
		return
	}

	fd, ok := openFilePart(ctx, file)
	if !ok {
		return
	}
	defer fd.Close()

	start := time.Now()
	stored, err := h.store.Save(ctx, fd, file.Filename, file.Header.Get("Content-Type"))
	if err != nil {
		if errors.Is(err, files.ErrUnavailable) {
			api.AbortWithError(ctx, http.StatusInternalServerError, api.CodeStorageUnavailable, fmt.Errorf("%w: %w", uploads.ErrStorageUnavailable, err))
			return
		}
		api.AbortWithError(ctx, http.StatusInternalServerError, api.CodeUploadFailed, fmt.Errorf("upload failed: %w", err))
		return
	}

	if h.observer != nil {
		h.observer.ObserveDirectUpload(stored.SizeBytes, time.Since(start))
	}

	slog.Info("direct upload stored", "file", stored.FileName, "size", humanize.IBytes(stored.SizeBytes), "user", middlewares.GetUser(ctx))
	ctx.PureJSON(http.StatusOK, &uploads.DirectUploadResponse{
		ObjectPath: stored.ObjectPath,
		FileName:   stored.FileName,
		URL:        h.absoluteURL(stored.ObjectPath),
	})
}

// openFilePart opens the uploaded part. Spooled parts live in a temp file
// whose path must not reach the client, so the cause is only logged.
func openFilePart(ctx *gin.Context, file *multipart.FileHeader) (multipart.File, bool) {
	fd, err := file.Open()
	if err != nil {
		slog.Warn("direct upload open part", "file", file.Filename, "error", err)
		api.AbortWithError(ctx, http.StatusBadRequest, api.CodeInvalidRequest, errInvalidFilePart)
		return nil, false
	}
	return fd, true
}

func (h *UploadsHandler) absoluteURL(objectPath string) string {
	if h.publicURL == "" {
		return objectPath
	}
	return utils.JoinURL(h.publicURL, objectPath)
}

func abortNegotiation(ctx *gin.Context, err error) {
	switch {
	case errors.Is(err, uploads.ErrNameRequired):
		api.AbortWithError(ctx, http.StatusBadRequest, api.CodeInvalidRequest, err)
	case errors.Is(err, uploads.ErrPayloadTooLarge):
		api.AbortWithError(ctx, http.StatusRequestEntityTooLarge, api.CodePayloadTooLarge, err)
	case errors.Is(err, uploads.ErrStorageUnavailable):
		api.AbortWithError(ctx, http.StatusInternalServerError, api.CodeStorageUnavailable, err)
	default:
		api.AbortWithError(ctx, http.StatusInternalServerError, api.CodeInternalError, fmt.Errorf("negotiation failed: %w", err))
	}
}

func tooLarge(limit uint64) error {
	return fmt.Errorf("%w: the limit is %s", uploads.ErrPayloadTooLarge, humanize.IBytes(limit))
}
