package contracts

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/revendaauto/backoffice/internal/server/contracts"
	"github.com/revendaauto/backoffice/internal/server/handlers/api"
	"github.com/revendaauto/backoffice/internal/server/middlewares"
	"github.com/revendaauto/backoffice/internal/server/signature"
	"github.com/revendaauto/backoffice/internal/utils"
)

var errInvalidID = errors.New("contract id must be a positive integer")

type ContractsHandler struct {
	store     *contracts.Store
	signature *signature.Service
}

func New(store *contracts.Store, sig *signature.Service) *ContractsHandler {
	return &ContractsHandler{
		store:     store,
		signature: sig,
	}
}

func (h *ContractsHandler) Create(ctx *gin.Context) {
	var req contracts.NewContract
	if err := ctx.ShouldBindJSON(&req); err != nil {
		api.AbortWithError(ctx, http.StatusBadRequest, api.CodeInvalidRequest, fmt.Errorf("invalid request: %w", err))
		return
	}

	c, err := h.store.Create(ctx, &req)
	if err != nil {
		if errors.Is(err, contracts.ErrInvalidDocument) || errors.Is(err, contracts.ErrInvalidContract) {
			api.AbortWithError(ctx, http.StatusBadRequest, api.CodeInvalidRequest, err)
			return
		}
		api.AbortWithError(ctx, http.StatusInternalServerError, api.CodeInternalError, fmt.Errorf("create failed: %w", err))
		return
	}

	slog.Info("contract created", "id", c.ID, "document", utils.MaskDigits(c.CustomerDocument, 2), "user", middlewares.GetUser(ctx))
	ctx.PureJSON(http.StatusCreated, c)
}

func (h *ContractsHandler) Get(ctx *gin.Context) {
	id, ok := contractID(ctx)
	if !ok {
		return
	}

	c, err := h.store.Get(ctx, id)
	if errors.Is(err, contracts.ErrNotFound) {
		api.AbortWithError(ctx, http.StatusNotFound, api.CodeContractNotFound, err)
		return
	} else if err != nil {
		api.AbortWithError(ctx, http.StatusInternalServerError, api.CodeInternalError, fmt.Errorf("read failed: %w", err))
		return
	}

	ctx.PureJSON(http.StatusOK, c)
}

// SignatureLink issues a signing link for a pending contract and emails it
// to the customer when mail is configured.
func (h *ContractsHandler) SignatureLink(ctx *gin.Context) {
	id, ok := contractID(ctx)
	if !ok {
		return
	}

	issued, err := h.signature.Issue(ctx, id)
	if err != nil {
		switch {
		case errors.Is(err, signature.ErrContractNotFound):
			api.AbortWithError(ctx, http.StatusNotFound, api.CodeContractNotFound, err)
		case errors.Is(err, signature.ErrContractSigned):
			api.AbortWithError(ctx, http.StatusConflict, api.CodeContractAlreadySigned, err)
		default:
			api.AbortWithError(ctx, http.StatusInternalServerError, api.CodeInternalError, fmt.Errorf("issue failed: %w", err))
		}
		return
	}

	notified := false
	if h.signature.CanNotify() && issued.Contract.CustomerEmail != "" {
		// the link stays valid, staff can still hand it over manually
		if err := h.signature.Notify(ctx, issued); err != nil {
			slog.Warn("signature link email failed", "contract", id, "error", err)
		} else {
			notified = true
		}
	}

	ctx.PureJSON(http.StatusCreated, &SignatureLinkResponse{
		SigningURL: issued.SigningURL,
		ExpiresAt:  issued.ExpiresAt,
		Notified:   notified,
	})
}

func contractID(ctx *gin.Context) (int64, bool) {
	id, err := strconv.ParseInt(ctx.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		api.AbortWithError(ctx, http.StatusBadRequest, api.CodeInvalidRequest, errInvalidID)
		return 0, false
	}
	return id, true
}

type SignatureLinkResponse struct {
	SigningURL string    `json:"signingUrl"`
	ExpiresAt  time.Time `json:"expiresAt"`
	Notified   bool      `json:"notified"`
}
