package middleware

import (
	"net/http"

	"github.com/klauspost/compress/gzhttp"
)

const (
	gzipMinSize = 1024
	// promhttp negotiates its own compression.
	metricsPath = "/metrics"
)

var gzipWrapper = mustGzipWrapper()

func mustGzipWrapper() func(http.Handler) http.HandlerFunc {
	wrapper, err := gzhttp.NewWrapper(
		gzhttp.MinSize(gzipMinSize),
		gzhttp.ContentTypes([]string{"application/json"}),
	)
	if err != nil {
		panic(err)
	}
	return wrapper
}

// Gzip compresses JSON responses of at least 1KB, such as sync summaries
// with many errors, for clients that accept it.
func Gzip(next http.Handler) http.Handler {
	compressed := gzipWrapper(next)
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == metricsPath {
			next.ServeHTTP(w, r)
			return
		}
		compressed.ServeHTTP(w, r)
	})
}
