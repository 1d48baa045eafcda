package middleware

import (
	"net/http"

	"github.com/garrettladley/whoopsync/internal/xerrors"
	"github.com/garrettladley/whoopsync/internal/xslog"
)

// Recovery turns a handler panic into a JSON 500. http.ErrAbortHandler is
// re-panicked so net/http can abort the connection.
func Recovery(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			v := recover()
			if v == nil {
				return
			}
			if v == http.ErrAbortHandler { //nolint:errorlint // sentinel compared as a panic value
				panic(v)
			}
			ctx := r.Context()
			xslog.FromContext(ctx).ErrorContext(ctx, "panic recovered",
				xslog.RequestGroup(r),
				xslog.PanicGroup(v),
			)
			xerrors.WriteError(ctx, w, xerrors.Internal())
		}()
		next.ServeHTTP(w, r)
	})
}
