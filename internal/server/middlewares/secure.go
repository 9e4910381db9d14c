package middlewares

import (
	"github.com/gin-contrib/secure"
	"github.com/gin-gonic/gin"
)

// SecureHeaders sets the browser hardening headers. HSTS and the https
// redirect are only turned on when the server terminates TLS itself.
func SecureHeaders(tls bool) gin.HandlerFunc {
	cfg := secure.Config{
		SSLRedirect:        tls,
		IsDevelopment:      false,
		FrameDeny:          true,
		ContentTypeNosniff: true,
		BrowserXssFilter:   true,
		IENoOpen:           true,
		ReferrerPolicy:     "no-referrer",
		SSLProxyHeaders:    map[string]string{"X-Forwarded-Proto": "https"},
	}
	if tls {
		cfg.STSSeconds = 315360000
		cfg.STSIncludeSubdomains = true
	}
	return secure.New(cfg)
}
