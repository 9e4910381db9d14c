package signature

import (
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/revendaauto/backoffice/internal/server/handlers/api"
	"github.com/revendaauto/backoffice/internal/server/signature"
)

type SignatureHandler struct {
	svc *signature.Service
}

func New(svc *signature.Service) *SignatureHandler {
	return &SignatureHandler{svc: svc}
}

// Summary describes the contract behind a live signing link. It is safe to
// show to whoever holds the link.
func (h *SignatureHandler) Summary(ctx *gin.Context) {
	info, err := h.svc.Lookup(ctx, ctx.Param("token"))
	if err != nil {
		abortSignature(ctx, err)
		return
	}

	ctx.Header("Cache-Control", "no-store")
	ctx.PureJSON(http.StatusOK, &SummaryResponse{
		ContractID:         info.ContractID,
		CustomerName:       info.Contract.CustomerName,
		VehicleDescription: info.Contract.VehicleDescription,
		DocumentKind:       signature.DocumentKind(info.Contract.CustomerDocument),
		ExpiresAt:          info.ExpiresAt,
	})
}

// Sign consumes the link and signs the contract when the identity fragment
// matches.
func (h *SignatureHandler) Sign(ctx *gin.Context) {
	var req SignRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		api.AbortWithError(ctx, http.StatusBadRequest, api.CodeInvalidRequest, fmt.Errorf("invalid request: %w", err))
		return
	}

	res, err := h.svc.Sign(ctx, ctx.Param("token"), req.IdentityFragment)
	if err != nil {
		abortSignature(ctx, err)
		return
	}

	ctx.Header("Cache-Control", "no-store")
	ctx.PureJSON(http.StatusOK, res)
}

func abortSignature(ctx *gin.Context, err error) {
	switch {
	case errors.Is(err, signature.ErrTokenNotFound):
		api.AbortWithError(ctx, http.StatusNotFound, api.CodeTokenNotFound, err)
	case errors.Is(err, signature.ErrTokenExpired):
		api.AbortWithError(ctx, http.StatusGone, api.CodeTokenExpired, err)
	case errors.Is(err, signature.ErrTokenAlreadyConsumed):
		api.AbortWithError(ctx, http.StatusGone, api.CodeTokenAlreadyConsumed, err)
	case errors.Is(err, signature.ErrIdentityMismatch):
		api.AbortWithError(ctx, http.StatusForbidden, api.CodeIdentityMismatch, err)
	case errors.Is(err, signature.ErrContractNotFound):
		api.AbortWithError(ctx, http.StatusNotFound, api.CodeContractNotFound, err)
	case errors.Is(err, signature.ErrContractSigned):
		api.AbortWithError(ctx, http.StatusConflict, api.CodeContractAlreadySigned, err)
	default:
		api.AbortWithError(ctx, http.StatusInternalServerError, api.CodeInternalError, fmt.Errorf("signature failed: %w", err))
	}
}

type SignRequest struct {
	IdentityFragment string `json:"identityFragment" binding:"required"`
}

type SummaryResponse struct {
	ContractID         int64     `json:"contractId"`
	CustomerName       string    `json:"customerName"`
	VehicleDescription string    `json:"vehicleDescription"`
	DocumentKind       string    `json:"documentKind"`
	ExpiresAt          time.Time `json:"expiresAt"`
}
