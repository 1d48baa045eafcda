package middleware

import (
	"net/http"

	"github.com/garrettladley/whoopsync/internal/server"
	"github.com/garrettladley/whoopsync/internal/xerrors"
	"github.com/garrettladley/whoopsync/internal/xhttp"
	"github.com/garrettladley/whoopsync/internal/xslog"
)

// APIKeyAuth guards the on-demand sync routes with the X-API-Key header.
func APIKeyAuth(key string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			apiKey := xhttp.GetRequestHeaderAPIKey(r)
			if apiKey == "" {
				xslog.FromContext(r.Context()).WarnContext(r.Context(), "missing API key header",
					xslog.RequestPath(r))
				xerrors.WriteError(r.Context(), w, xerrors.Unauthorized(xerrors.WithMessage("missing API key")))
				return
			}
			if !server.SecretEqual(apiKey, key) {
				xerrors.WriteError(r.Context(), w, xerrors.Unauthorized(xerrors.WithMessage("invalid API key")))
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// CronAuth guards the scheduled sync route with a bearer secret shared with
// the scheduler.
func CronAuth(secret string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token, ok := xhttp.GetRequestBearerToken(r)
			if !ok {
				xerrors.WriteError(r.Context(), w, xerrors.Unauthorized(xerrors.WithMessage("missing Authorization header")))
				return
			}
			if !server.SecretEqual(token, secret) {
				xerrors.WriteError(r.Context(), w, xerrors.Unauthorized(xerrors.WithMessage("invalid cron secret")))
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
