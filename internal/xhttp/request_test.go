package xhttp

import (
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestGetRequestIP(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name          string
		xForwardedFor string
		remoteAddr    string
		want          string
	}{
		{name: "remote addr with port", remoteAddr: "192.0.2.1:1234", want: "192.0.2.1"},
		{name: "remote addr without port", remoteAddr: "192.0.2.1", want: "192.0.2.1"},
		{name: "ipv6 remote addr", remoteAddr: "[2001:db8::1]:1234", want: "2001:db8::1"},
		{name: "empty remote addr", want: ""},
		{name: "forwarded single hop", xForwardedFor: "203.0.113.195", remoteAddr: "10.0.0.2:80", want: "203.0.113.195"},
		{name: "forwarded with port", xForwardedFor: "203.0.113.195:8080", remoteAddr: "10.0.0.2:80", want: "203.0.113.195"},
		{name: "forwarded chain keeps first hop", xForwardedFor: "203.0.113.195, 10.0.0.7, 10.0.0.2", remoteAddr: "10.0.0.2:80", want: "203.0.113.195"},
		{name: "forwarded ipv6", xForwardedFor: "[2001:db8::1]:8080", remoteAddr: "10.0.0.2:80", want: "2001:db8::1"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			req := httptest.NewRequestWithContext(t.Context(), http.MethodPost, "/api/sync/cron", nil)
			req.RemoteAddr = tt.remoteAddr
			if tt.xForwardedFor != "" {
				req.Header.Set(XForwardedFor, tt.xForwardedFor)
			}

			if got := GetRequestIP(req); got != tt.want {
				t.Errorf("GetRequestIP() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestGetRequestBearerToken(t *testing.T) {
	t.Parallel()

	tests := []struct {
		header string
		want   string
		wantOK bool
	}{
		{header: "Bearer s3cret", want: "s3cret", wantOK: true},
		{header: "bearer  s3cret ", want: "s3cret", wantOK: true},
		{header: "BEARER s3cret", want: "s3cret", wantOK: true},
		{header: "Bearer ", wantOK: false},
		{header: "Bearer    ", wantOK: false},
		{header: "Basic dXNlcjpwYXNz", wantOK: false},
		{header: "", wantOK: false},
	}

	for _, tt := range tests {
		t.Run(tt.header, func(t *testing.T) {
			t.Parallel()

			req := httptest.NewRequestWithContext(t.Context(), http.MethodPost, "/api/sync/cron", nil)
			if tt.header != "" {
				req.Header.Set(Authorization, tt.header)
			}

			got, ok := GetRequestBearerToken(req)
			if ok != tt.wantOK || got != tt.want {
				t.Errorf("GetRequestBearerToken() = %q, %v; want %q, %v", got, ok, tt.want, tt.wantOK)
			}
		})
	}
}

func TestGetRequestHeaderAPIKey(t *testing.T) {
	t.Parallel()

	req := httptest.NewRequestWithContext(t.Context(), http.MethodPost, "/api/sync", nil)
	req.Header.Set(XAPIKey, "  key-1 \n")
	if got := GetRequestHeaderAPIKey(req); got != "key-1" {
		t.Errorf("GetRequestHeaderAPIKey() = %q, want key-1", got)
	}
}
