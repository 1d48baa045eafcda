package middleware

import (
	"net/http"

	"github.com/garrettladley/whoopsync/internal/xhttp"
)

// SecurityHeaders marks every response as an uncacheable, unframeable JSON
// API response.
func SecurityHeaders(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		h := w.Header()
		h.Set(xhttp.XContentTypeOpts, "nosniff")
		h.Set(xhttp.XFrameOpts, "DENY")
		h.Set(xhttp.ReferrerPolicy, "no-referrer")
		h.Set(xhttp.ContentSecurityPolicy, "default-src 'none'; frame-ancestors 'none'")
		h.Set(xhttp.CacheControl, "no-store")
		next.ServeHTTP(w, r)
	})
}
