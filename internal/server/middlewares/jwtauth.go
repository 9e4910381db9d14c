package middlewares

import (
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/revendaauto/backoffice/internal/server/auth"
	"github.com/revendaauto/backoffice/internal/server/handlers/api"
)

const (
	authHeader     = "Authorization"
	userContextKey = "user"
)

// JWTAuth rejects requests without a valid staff access token. When auth is
// disabled every request passes.
func JWTAuth(authService *auth.Service) gin.HandlerFunc {
	if !authService.IsEnabled() {
		slog.Info("auth middleware disabled")
		return func(ctx *gin.Context) {
			ctx.Next()
		}
	}
	slog.Info("auth middleware enabled")
	return func(ctx *gin.Context) {
		token, err := bearerToken(ctx.GetHeader(authHeader))
		if err == nil {
			var claims *auth.Claims
			if claims, err = authService.Authenticate(ctx, token); err == nil {
				ctx.Set(userContextKey, claims.Subject)
				ctx.Next()
				return
			}
			slog.Debug("access token rejected", "path", ctx.FullPath(), "error", err)
			err = auth.ErrInvalidAccessToken
		}

		ctx.Header("WWW-Authenticate", `Bearer realm="backoffice"`)
		api.AbortWithError(ctx, http.StatusUnauthorized, api.CodeAuthInvalidCredentials, err)
	}
}

func bearerToken(header string) (string, error) {
	if header == "" {
		return "", errors.New("authorization header is missing")
	}
	scheme, token, ok := strings.Cut(header, " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") {
		return "", errors.New("authorization header format must be Bearer {token}")
	}
	if token = strings.TrimSpace(token); token == "" {
		return "", errors.New("token is missing")
	}
	return token, nil
}

// GetUser returns the staff email set by JWTAuth, if any.
func GetUser(ctx *gin.Context) string {
	return ctx.GetString(userContextKey)
}
