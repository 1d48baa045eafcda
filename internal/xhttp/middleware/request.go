package middleware

import (
	"log/slog"
	"net/http"

	"github.com/google/uuid"

	"github.com/garrettladley/whoopsync/internal/xcontext"
	"github.com/garrettladley/whoopsync/internal/xhttp"
	"github.com/garrettladley/whoopsync/internal/xslog"
)

type requestIDConfig struct {
	newID func() string
	trust bool
}

type RequestIDOption func(*requestIDConfig)

// WithIDFunc replaces the uuid generator, mostly for tests.
func WithIDFunc(fn func() string) RequestIDOption {
	return func(c *requestIDConfig) { c.newID = fn }
}

// TrustIncomingID keeps an inbound X-Request-ID when it is a valid uuid, so a
// scheduler's id can be followed through the sync run it triggers.
func TrustIncomingID() RequestIDOption {
	return func(c *requestIDConfig) { c.trust = true }
}

func RequestID(opts ...RequestIDOption) func(http.Handler) http.Handler {
	cfg := requestIDConfig{newID: uuid.NewString}
	for _, opt := range opts {
		opt(&cfg)
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			id := ""
			if cfg.trust {
				if in, err := uuid.Parse(r.Header.Get(xhttp.XRequestID)); err == nil {
					id = in.String()
				}
			}
			if id == "" {
				id = cfg.newID()
			}
			xhttp.SetHeaderRequestID(w, id)
			next.ServeHTTP(w, r.WithContext(xcontext.SetRequestID(r.Context(), id)))
		})
	}
}

// Logger stashes base, tagged with the request id, in the request context.
// It must run after RequestID.
func Logger(base *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			logger := base
			if id, ok := xcontext.GetRequestID(r.Context()); ok {
				logger = logger.With(xslog.RequestID(id))
			}
			next.ServeHTTP(w, r.WithContext(xslog.WithLogger(r.Context(), logger)))
		})
	}
}
