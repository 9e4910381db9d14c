package middlewares

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"regexp"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/revendaauto/backoffice/internal/server/auth"
	"github.com/revendaauto/backoffice/internal/server/email"
	"github.com/revendaauto/backoffice/internal/server/handlers/api"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func TestMaskPath(t *testing.T) {
	tests := []struct {
		path   string
		prefix string
		want   string
	}{
		{"/assinar/AbCdEfGhIjKl", "/assinar", "/assinar/AbCd*****"},
		{"/api/signatures/AbCdEfGhIjKl/sign", "/api/signatures", "/api/signatures/AbCd*****/sign"},
		{"/assinar/ab", "/assinar", "/assinar/*****"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, maskPath(tt.path, tt.prefix))
	}
}

func TestLogger_MasksSensitivePaths(t *testing.T) {
	var buf bytes.Buffer
	prev := slog.Default()
	slog.SetDefault(slog.New(slog.NewTextHandler(&buf, nil)))
	t.Cleanup(func() { slog.SetDefault(prev) })

	r := gin.New()
	r.Use(Logger("/assinar"))
	r.GET("/assinar/:token", func(c *gin.Context) { c.Status(http.StatusOK) })
	r.GET("/healthz", func(c *gin.Context) { c.Status(http.StatusOK) })

	const token = "s3cr3tT0kenValueThatMustNotLeak"
	for _, p := range []string{"/assinar/" + token, "/healthz"} {
		w := httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, p, nil))
		require.Equal(t, http.StatusOK, w.Code)
	}

	out := buf.String()
	assert.NotContains(t, out, token)
	assert.Contains(t, out, "/assinar/s3cr*****")
	assert.Contains(t, out, "/healthz")
}

var regexOTP = regexp.MustCompile(`>([0-9A-Z]{6})<`)

type captureMailer struct {
	last string
}

func (m *captureMailer) IsEnabled() bool { return true }

func (m *captureMailer) Send(_ context.Context, msg *email.Message) error {
	if match := regexOTP.FindStringSubmatch(msg.HTMLBody); match != nil {
		m.last = match[1]
	}
	return nil
}

func newTestAuth(enabled bool) (*auth.Service, *captureMailer) {
	mailer := &captureMailer{}
	return auth.NewService(&auth.Config{
		Enabled:            enabled,
		TokenIssuer:        "https://painel.revenda.example",
		AccessTokenSecret:  "access-secret",
		RefreshTokenSecret: "refresh-secret",
		AccessTokenExpiry:  time.Minute,
		RefreshTokenExpiry: time.Hour,
		EmailOTPLength:     6,
		EmailOTPExpiry:     time.Minute,
	}, mailer), mailer
}

func TestJWTAuth(t *testing.T) {
	authSvc, mailer := newTestAuth(true)

	r := gin.New()
	r.GET("/private", JWTAuth(authSvc), func(c *gin.Context) {
		c.String(http.StatusOK, GetUser(c))
	})

	do := func(header string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodGet, "/private", nil)
		if header != "" {
			req.Header.Set("Authorization", header)
		}
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)
		return w
	}

	for _, header := range []string{"", "Token abc", "Bearer ", "Bearer not.a.jwt"} {
		w := do(header)
		assert.Equal(t, http.StatusUnauthorized, w.Code, header)
		assert.Equal(t, `Bearer realm="backoffice"`, w.Header().Get("WWW-Authenticate"))

		var body api.APIError
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
		assert.Equal(t, api.CodeAuthInvalidCredentials, body.Code)
	}

	// a refresh token is not an access token
	_, refresh := issuePair(t, authSvc, mailer)
	assert.Equal(t, http.StatusUnauthorized, do("Bearer "+refresh).Code)

	access, _ := issuePair(t, authSvc, mailer)
	w := do("Bearer " + access)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "gerente@revenda.com.br", w.Body.String())
}

func issuePair(t *testing.T, svc *auth.Service, mailer *captureMailer) (string, string) {
	t.Helper()
	require.NoError(t, svc.SendOTP(context.Background(), "gerente@revenda.com.br"))
	otp := mailer.last
	require.NotEmpty(t, otp)
	pair, err := svc.Login(context.Background(), "gerente@revenda.com.br", otp)
	require.NoError(t, err)
	return pair.AccessToken, pair.RefreshToken
}

func TestJWTAuth_Disabled(t *testing.T) {
	disabled, _ := newTestAuth(false)
	r := gin.New()
	r.GET("/private", JWTAuth(disabled), func(c *gin.Context) { c.Status(http.StatusNoContent) })

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/private", nil))
	assert.Equal(t, http.StatusNoContent, w.Code)
}

func TestRateLimiter(t *testing.T) {
	_, err := RateLimiter("nonsense")
	assert.Error(t, err)

	limit, err := RateLimiter("2-M")
	require.NoError(t, err)
	other, err := RateLimiter("2-M")
	require.NoError(t, err)

	r := gin.New()
	r.GET("/a", limit, func(c *gin.Context) { c.Status(http.StatusOK) })
	r.GET("/b", other, func(c *gin.Context) { c.Status(http.StatusOK) })

	hit := func(p string) int {
		req := httptest.NewRequest(http.MethodGet, p, nil)
		req.RemoteAddr = "203.0.113.9:5555"
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)
		return w.Code
	}

	assert.Equal(t, http.StatusOK, hit("/a"))
	assert.Equal(t, http.StatusOK, hit("/a"))
	assert.Equal(t, http.StatusTooManyRequests, hit("/a"))
	// separate budget per limiter
	assert.Equal(t, http.StatusOK, hit("/b"))
}

func TestSecureHeaders(t *testing.T) {
	r := gin.New()
	r.Use(SecureHeaders(false))
	r.GET("/", func(c *gin.Context) { c.Status(http.StatusOK) })

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "DENY", w.Header().Get("X-Frame-Options"))
	assert.Equal(t, "nosniff", w.Header().Get("X-Content-Type-Options"))
	assert.Empty(t, w.Header().Get("Strict-Transport-Security"))
}

func TestGZIP_SkipsStoredFiles(t *testing.T) {
	r := gin.New()
	r.Use(GZIP("/api/files/"))
	body := strings.Repeat("contrato ", 200)
	r.GET("/api/contracts/1", func(c *gin.Context) { c.String(http.StatusOK, body) })
	r.GET("/api/files/:name", func(c *gin.Context) { c.String(http.StatusOK, body) })

	get := func(path string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodGet, path, nil)
		req.Header.Set("Accept-Encoding", "gzip")
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)
		return w
	}

	assert.Equal(t, "gzip", get("/api/contracts/1").Header().Get("Content-Encoding"))
	assert.Empty(t, get("/api/files/1760529600000-0123456789abcdef.txt").Header().Get("Content-Encoding"))
	assert.Empty(t, get("/api/files/1760529600000-0123456789abcdef").Header().Get("Content-Encoding"))
}
