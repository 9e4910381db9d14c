package auth

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/revendaauto/backoffice/internal/server/auth"
	"github.com/revendaauto/backoffice/internal/server/handlers/api"
)

// AuthHandler serves the staff sign-in endpoints.
type AuthHandler struct {
	auth *auth.Service
}

func New(svc *auth.Service) *AuthHandler {
	return &AuthHandler{auth: svc}
}

func (h *AuthHandler) OTPRequest(ctx *gin.Context) {
	var req OTPRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		api.AbortWithError(ctx, http.StatusBadRequest, api.CodeInvalidRequest, fmt.Errorf("invalid request: %w", err))
		return
	}

	err := h.auth.SendOTP(ctx, req.Email)
	switch {
	case err == nil:
	case errors.Is(err, auth.ErrInvalidEmail):
		api.AbortWithError(ctx, http.StatusBadRequest, api.CodeInvalidRequest, err)
		return
	case errors.Is(err, auth.ErrEmailNotAllowed):
		api.AbortWithError(ctx, http.StatusForbidden, api.CodeAccessDenied, err)
		return
	default:
		api.AbortWithError(ctx, http.StatusInternalServerError, api.CodeAuthNotificationFailed, fmt.Errorf("otp not sent: %w", err))
		return
	}

	ctx.PureJSON(http.StatusOK, &OTPRequestResponse{
		Email:            strings.ToLower(strings.TrimSpace(req.Email)),
		ExpiresInSeconds: int(h.auth.OTPExpiry().Seconds()),
	})
}

func (h *AuthHandler) OTPVerify(ctx *gin.Context) {
	var req OTPVerifyRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		api.AbortWithError(ctx, http.StatusBadRequest, api.CodeInvalidRequest, fmt.Errorf("invalid request: %w", err))
		return
	}

	pair, err := h.auth.Login(ctx, req.Email, req.Code)
	switch {
	case err == nil:
	case errors.Is(err, auth.ErrTooManyAttempts):
		api.AbortWithError(ctx, http.StatusTooManyRequests, api.CodeRateLimited, err)
		return
	case errors.Is(err, auth.ErrInvalidOTP), errors.Is(err, auth.ErrInvalidEmail):
		// same answer for unknown address and wrong code
		api.AbortWithError(ctx, http.StatusUnauthorized, api.CodeAuthOTPVerificationFailed, auth.ErrInvalidOTP)
		return
	default:
		api.AbortWithError(ctx, http.StatusInternalServerError, api.CodeAuthTokenGenerationFailed, fmt.Errorf("token generation failed: %w", err))
		return
	}

	ctx.PureJSON(http.StatusOK, tokenResponse(pair.AccessToken, pair.RefreshToken))
}

func (h *AuthHandler) Refresh(ctx *gin.Context) {
	var req RefreshRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		api.AbortWithError(ctx, http.StatusBadRequest, api.CodeInvalidRequest, fmt.Errorf("invalid request: %w", err))
		return
	}

	pair, err := h.auth.Refresh(ctx, req.RefreshToken)
	switch {
	case err == nil:
	case errors.Is(err, auth.ErrInvalidRefreshToken), errors.Is(err, auth.ErrInvalidRequestToken), errors.Is(err, auth.ErrEmailNotAllowed):
		api.AbortWithError(ctx, http.StatusUnauthorized, api.CodeAuthTokenRefreshFailed, auth.ErrInvalidRefreshToken)
		return
	default:
		api.AbortWithError(ctx, http.StatusInternalServerError, api.CodeAuthTokenRefreshFailed, fmt.Errorf("refresh failed: %w", err))
		return
	}

	ctx.PureJSON(http.StatusOK, tokenResponse(pair.AccessToken, pair.RefreshToken))
}
