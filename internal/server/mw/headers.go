package mw

import (
	"crypto/subtle"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/rajyashhh/mandinex-truck-application/internal/config"
	"github.com/rajyashhh/mandinex-truck-application/internal/i18n"
	"github.com/rajyashhh/mandinex-truck-application/internal/server/resp"
)

const (
	HeaderDeviceType  = "X-Device-Type"
	HeaderLanguage    = "X-Language"
	HeaderClientToken = "X-Client-Token"
	HeaderUserToken   = "X-User-Token"
)

const (
	CtxLang   = "lang"
	CtxClient = "client"

	ClientMobile   = "mobile"
	ClientFrontend = "frontend"
)

// RequireBaseHeaders checks the device type and client token and records
// which app is calling. X-Language is optional and defaults to English.
func RequireBaseHeaders(sec config.Security) gin.HandlerFunc {
	return func(c *gin.Context) {
		lang := i18n.Lang(c.GetHeader(HeaderLanguage))
		c.Set(CtxLang, lang)

		device := strings.ToLower(strings.TrimSpace(c.GetHeader(HeaderDeviceType)))
		token := strings.TrimSpace(c.GetHeader(HeaderClientToken))
		if device == "" || token == "" {
			resp.Abort(c, http.StatusBadRequest, "missing_headers", "missing required headers: X-Device-Type, X-Client-Token")
			return
		}
		switch device {
		case "ios", "android", "web", "agent":
		default:
			resp.Abort(c, http.StatusBadRequest, "invalid_device", "invalid X-Device-Type (allowed: ios, android, web, agent)")
			return
		}

		switch {
		case sec.MobileClientToken != "" && equal(token, sec.MobileClientToken):
			c.Set(CtxClient, ClientMobile)
		case sec.FrontendClientToken != "" && equal(token, sec.FrontendClientToken):
			c.Set(CtxClient, ClientFrontend)
		default:
			resp.Abort(c, http.StatusUnauthorized, "invalid_client_token", i18n.T(lang, "error.unauthorized"))
			return
		}
		c.Next()
	}
}

// RequireFrontend limits a group to the dispatch dashboard token.
func RequireFrontend() gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.GetString(CtxClient) != ClientFrontend {
			resp.Abort(c, http.StatusForbidden, "forbidden", i18n.T(Lang(c), "error.forbidden"))
			return
		}
		c.Next()
	}
}

// Lang is the request language set by RequireBaseHeaders.
func Lang(c *gin.Context) string {
	if l := c.GetString(CtxLang); l != "" {
		return l
	}
	return i18n.LangEN
}

func equal(a, b string) bool {
	return subtle.ConstantTimeCompare([]byte(a), []byte(b)) == 1
}

// SecurityHeaders sets the usual hardening headers; /docs needs the Swagger CDN.
func SecurityHeaders() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Header("X-Content-Type-Options", "nosniff")
		c.Header("X-Frame-Options", "DENY")
		if c.Request.URL.Path == "/docs" {
			c.Header("Content-Security-Policy", "default-src 'self'; script-src 'self' 'unsafe-inline' https://unpkg.com; style-src 'self' 'unsafe-inline' https://unpkg.com; img-src 'self' data: https:")
		} else {
			c.Header("Content-Security-Policy", "default-src 'none'")
		}
		c.Header("Referrer-Policy", "no-referrer")
		c.Next()
	}
}
