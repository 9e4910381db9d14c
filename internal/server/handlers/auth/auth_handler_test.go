package auth

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"regexp"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/revendaauto/backoffice/internal/server/auth"
	"github.com/revendaauto/backoffice/internal/server/email"
	"github.com/revendaauto/backoffice/internal/server/handlers/api"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var regexOTP = regexp.MustCompile(`>([0-9A-Z]{6})<`)

type captureMailer struct {
	codes map[string]string
}

func (m *captureMailer) IsEnabled() bool { return true }

func (m *captureMailer) Send(_ context.Context, msg *email.Message) error {
	if match := regexOTP.FindStringSubmatch(msg.HTMLBody); match != nil {
		m.codes[msg.ToEmail] = match[1]
	}
	return nil
}

func setupRouter(t *testing.T) (*gin.Engine, *captureMailer) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	mailer := &captureMailer{codes: map[string]string{}}
	svc := auth.NewService(&auth.Config{
		Enabled:            true,
		TokenIssuer:        "https://painel.revenda.example",
		AccessTokenSecret:  "access-secret",
		RefreshTokenSecret: "refresh-secret",
		AccessTokenExpiry:  time.Minute,
		RefreshTokenExpiry: time.Hour,
		EmailOTPLength:     6,
		EmailOTPExpiry:     time.Minute,
		AllowedEmails:      []string{"vendas@revenda.example"},
	}, mailer)

	h := New(svc)
	r := gin.New()
	r.POST("/auth/otp/request", h.OTPRequest)
	r.POST("/auth/otp/verify", h.OTPVerify)
	r.POST("/auth/refresh", h.Refresh)
	return r, mailer
}

func postJSON(r http.Handler, path string, body any) *httptest.ResponseRecorder {
	b, _ := json.Marshal(body)
	req := httptest.NewRequest(http.MethodPost, path, bytes.NewReader(b))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func decodeError(t *testing.T, w *httptest.ResponseRecorder) api.APIError {
	t.Helper()
	var body api.APIError
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	return body
}

func TestAuthHandler_OTPFlow(t *testing.T) {
	r, mailer := setupRouter(t)

	w := postJSON(r, "/auth/otp/request", OTPRequest{Email: "Vendas@Revenda.example"})
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"email":"vendas@revenda.example","expiresInSeconds":60}`, w.Body.String())
	code := mailer.codes["vendas@revenda.example"]
	require.Len(t, code, 6)

	w = postJSON(r, "/auth/otp/verify", OTPVerifyRequest{Email: "vendas@revenda.example", Code: code})
	require.Equal(t, http.StatusOK, w.Code)

	var pair TokenResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &pair))
	assert.NotEmpty(t, pair.AccessToken)
	assert.NotEmpty(t, pair.RefreshToken)
	assert.Equal(t, "Bearer", pair.TokenType)

	// codes are single use
	w = postJSON(r, "/auth/otp/verify", OTPVerifyRequest{Email: "vendas@revenda.example", Code: code})
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Equal(t, api.CodeAuthOTPVerificationFailed, decodeError(t, w).Code)

	w = postJSON(r, "/auth/refresh", RefreshRequest{RefreshToken: pair.RefreshToken})
	require.Equal(t, http.StatusOK, w.Code)

	var refreshed TokenResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &refreshed))
	assert.NotEmpty(t, refreshed.AccessToken)
}

func TestAuthHandler_OTPRequestErrors(t *testing.T) {
	r, _ := setupRouter(t)

	tests := []struct {
		name   string
		body   any
		status int
		code   string
	}{
		{"missing-email", map[string]string{}, http.StatusBadRequest, api.CodeInvalidRequest},
		{"invalid-email", OTPRequest{Email: "not-an-email"}, http.StatusBadRequest, api.CodeInvalidRequest},
		{"not-allowed", OTPRequest{Email: "intruso@example.com"}, http.StatusForbidden, api.CodeAccessDenied},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := postJSON(r, "/auth/otp/request", tt.body)
			assert.Equal(t, tt.status, w.Code)
			assert.Equal(t, tt.code, decodeError(t, w).Code)
		})
	}
}

func TestAuthHandler_RefreshInvalid(t *testing.T) {
	r, _ := setupRouter(t)

	w := postJSON(r, "/auth/refresh", RefreshRequest{RefreshToken: "garbage"})
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Equal(t, api.CodeAuthTokenRefreshFailed, decodeError(t, w).Code)

	w = postJSON(r, "/auth/refresh", map[string]string{})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestAuthHandler_OTPAttemptsLimited(t *testing.T) {
	r, mailer := setupRouter(t)

	w := postJSON(r, "/auth/otp/request", OTPRequest{Email: "vendas@revenda.example"})
	require.Equal(t, http.StatusOK, w.Code)
	require.NotEmpty(t, mailer.codes["vendas@revenda.example"])

	var last *httptest.ResponseRecorder
	for range 5 {
		last = postJSON(r, "/auth/otp/verify", OTPVerifyRequest{Email: "vendas@revenda.example", Code: "WRONG1"})
	}
	assert.Equal(t, http.StatusTooManyRequests, last.Code)
	assert.Equal(t, api.CodeRateLimited, decodeError(t, last).Code)

	w = postJSON(r, "/auth/otp/verify", OTPVerifyRequest{Email: "vendas@revenda.example", Code: mailer.codes["vendas@revenda.example"]})
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}
