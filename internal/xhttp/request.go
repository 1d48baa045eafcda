package xhttp

import (
	"net"
	"net/http"
	"strings"
)

// GetRequestIP prefers the first X-Forwarded-For hop, which is the client
// when the server runs behind a platform proxy.
func GetRequestIP(r *http.Request) string {
	if xff := r.Header.Get(XForwardedFor); xff != "" {
		first, _, _ := strings.Cut(xff, ",")
		return stripPort(strings.TrimSpace(first))
	}
	return stripPort(r.RemoteAddr)
}

func stripPort(addr string) string {
	if host, _, err := net.SplitHostPort(addr); err == nil {
		return host
	}
	return addr
}

func GetRequestHeaderAPIKey(r *http.Request) string {
	return strings.TrimSpace(r.Header.Get(XAPIKey))
}

// GetRequestBearerToken returns the token of an "Authorization: Bearer" header.
func GetRequestBearerToken(r *http.Request) (string, bool) {
	const prefix = "bearer "
	h := r.Header.Get(Authorization)
	if len(h) <= len(prefix) || !strings.EqualFold(h[:len(prefix)], prefix) {
		return "", false
	}
	token := strings.TrimSpace(h[len(prefix):])
	return token, token != ""
}
