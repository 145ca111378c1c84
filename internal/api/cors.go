package api

import (
	"net/http"
	"slices"
	"strconv"
	"strings"

	"github.com/danielgtaylor/huma/v2"
)

// CORSConfig holds CORS configuration
type CORSConfig struct {
	// AllowOrigins lists origins allowed to call the API from a browser.
	// "*" allows any origin. Empty means same-origin only.
	AllowOrigins []string
	AllowMethods []string
	AllowHeaders []string
	MaxAge       int
}

// DefaultCORSConfig allows no cross-origin callers.
func DefaultCORSConfig() CORSConfig {
	return CORSConfig{
		AllowMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowHeaders: []string{"Content-Type", "Authorization", "Accept", "Last-Event-ID"},
		MaxAge:       86400,
	}
}

// allowedOrigin returns the Access-Control-Allow-Origin value for origin,
// or "" when the origin is not allowed.
func (c CORSConfig) allowedOrigin(origin string) string {
	if origin == "" {
		return ""
	}
	if slices.Contains(c.AllowOrigins, "*") {
		return "*"
	}
	if slices.Contains(c.AllowOrigins, origin) {
		return origin
	}
	return ""
}

func (c CORSConfig) headers(allowOrigin string) map[string]string {
	return map[string]string{
		"Access-Control-Allow-Origin":  allowOrigin,
		"Access-Control-Allow-Methods": strings.Join(c.AllowMethods, ", "),
		"Access-Control-Allow-Headers": strings.Join(c.AllowHeaders, ", "),
		"Access-Control-Max-Age":       strconv.Itoa(c.MaxAge),
	}
}

// NewCORSMiddleware sets CORS headers on responses to allowed origins.
func NewCORSMiddleware(config CORSConfig) func(huma.Context, func(huma.Context)) {
	return func(ctx huma.Context, next func(huma.Context)) {
		ctx.AppendHeader("Vary", "Origin")
		if allow := config.allowedOrigin(ctx.Header("Origin")); allow != "" {
			for name, value := range config.headers(allow) {
				ctx.SetHeader(name, value)
			}
		}
		if ctx.Method() == http.MethodOptions {
			ctx.SetStatus(http.StatusNoContent)
			return
		}
		next(ctx)
	}
}

// AddCORSHandler answers preflight requests on the mux. Huma middleware
// only runs for registered operations, and none are registered for OPTIONS.
// Preflights from origins that are not allowed get 403.
func AddCORSHandler(mux *http.ServeMux, config CORSConfig) {
	mux.HandleFunc("OPTIONS /", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Add("Vary", "Origin")
		allow := config.allowedOrigin(r.Header.Get("Origin"))
		if allow == "" {
			w.WriteHeader(http.StatusForbidden)
			return
		}
		for name, value := range config.headers(allow) {
			w.Header().Set(name, value)
		}
		w.WriteHeader(http.StatusNoContent)
	})
}
