package security

import (
	"fmt"
	"net/http"
	"strings"
)

// HeadersConfig holds security headers configuration
type HeadersConfig struct {
	CSP string

	// HSTS is only sent over TLS.
	HSTSMaxAge            int
	HSTSIncludeSubdomains bool

	XFrameOptions       string
	XContentTypeOptions string
	ReferrerPolicy      string
	PermissionsPolicy   string
	CrossOriginOpener   string
	CrossOriginResource string
}

// DefaultHeadersConfig returns the policy for the JSON API and the exported
// report. The report carries inline styles, data: images and a print button.
func DefaultHeadersConfig() HeadersConfig {
	return HeadersConfig{
		CSP: strings.Join([]string{
			"default-src 'none'",
			"img-src 'self' data:",
			"style-src 'unsafe-inline'",
			"script-src 'unsafe-inline'",
			"connect-src 'self'",
			"frame-ancestors 'none'",
			"base-uri 'none'",
			"form-action 'self'",
		}, "; "),
		HSTSMaxAge:            31536000,
		HSTSIncludeSubdomains: true,
		XFrameOptions:         "DENY",
		XContentTypeOptions:   "nosniff",
		ReferrerPolicy:        "no-referrer",
		PermissionsPolicy:     "geolocation=(), microphone=(), camera=(), payment=()",
		CrossOriginOpener:     "same-origin",
		CrossOriginResource:   "same-origin",
	}
}

// Headers applies the configured headers to every response.
func Headers(config HeadersConfig) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			apply(config, w.Header(), r)
			next.ServeHTTP(w, r)
		})
	}
}

func apply(c HeadersConfig, h http.Header, r *http.Request) {
	set := func(k, v string) {
		if v != "" {
			h.Set(k, v)
		}
	}
	set("X-Content-Type-Options", c.XContentTypeOptions)
	set("X-Frame-Options", c.XFrameOptions)
	set("Content-Security-Policy", c.CSP)
	set("Referrer-Policy", c.ReferrerPolicy)
	set("Permissions-Policy", c.PermissionsPolicy)
	set("Cross-Origin-Opener-Policy", c.CrossOriginOpener)
	set("Cross-Origin-Resource-Policy", c.CrossOriginResource)

	if r.TLS != nil && c.HSTSMaxAge > 0 {
		v := fmt.Sprintf("max-age=%d", c.HSTSMaxAge)
		if c.HSTSIncludeSubdomains {
			v += "; includeSubDomains"
		}
		h.Set("Strict-Transport-Security", v)
	}
}

// NoStore marks responses as uncacheable. Ledger data and exports carry
// personal information.
func NoStore(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Cache-Control", "no-store")
		next.ServeHTTP(w, r)
	})
}
