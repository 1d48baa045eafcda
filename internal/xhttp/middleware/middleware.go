// Package middleware holds the HTTP middleware shared by the server's routes.
package middleware

import (
	"net/http"
	"time"

	"github.com/garrettladley/whoopsync/internal/metrics"
	"github.com/garrettladley/whoopsync/internal/xslog"
)

// Chain wraps h so that the first middleware listed sees the request first.
func Chain(h http.Handler, middleware ...func(http.Handler) http.Handler) http.Handler {
	for i := len(middleware) - 1; i >= 0; i-- {
		h = middleware[i](h)
	}
	return h
}

type statusRecorder struct {
	http.ResponseWriter
	status      int
	bytes       int64
	wroteHeader bool
}

func (rw *statusRecorder) WriteHeader(code int) {
	if !rw.wroteHeader {
		rw.status = code
		rw.wroteHeader = true
	}
	rw.ResponseWriter.WriteHeader(code)
}

func (rw *statusRecorder) Write(b []byte) (int, error) {
	if !rw.wroteHeader {
		rw.WriteHeader(http.StatusOK)
	}
	n, err := rw.ResponseWriter.Write(b)
	rw.bytes += int64(n)
	return n, err
}

func (rw *statusRecorder) Unwrap() http.ResponseWriter { return rw.ResponseWriter }

// Logging logs one line per request and records it in the HTTP metrics.
// It must run after Logger so the line carries the request id.
func Logging(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)
		elapsed := time.Since(start)

		metrics.RecordHTTPRequest(r.Method, r.URL.Path, rec.status, elapsed)

		ctx := r.Context()
		logger := xslog.FromContext(ctx)
		attrs := []any{xslog.RequestGroup(r), xslog.ResponseGroup(rec.status, rec.bytes, elapsed)}
		if rec.status >= http.StatusInternalServerError {
			logger.WarnContext(ctx, "http request", attrs...)
			return
		}
		logger.InfoContext(ctx, "http request", attrs...)
	})
}
