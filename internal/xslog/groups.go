package xslog

import (
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/garrettladley/whoopsync/internal/xcontext"
)

const (
	groupRequest  = "request"
	groupResponse = "response"
	groupPanic    = "panic"
	groupUser     = "user"
	groupRun      = "run"
	groupBatch    = "batch"
)

const (
	keyID         = "id"
	keyUserAgent  = "user_agent"
	keyQuery      = "query"
	keyBytes      = "bytes"
	keyDurationMS = "duration_ms"
	keyType       = "type"
	keyValue      = "value"
	keyMode       = "mode"
	keyTrigger    = "trigger"
	keyWritten    = "written"
	keySkipped    = "skipped"
	keyFailed     = "failed"
)

func RequestGroup(r *http.Request) slog.Attr {
	attrs := []slog.Attr{
		RequestMethod(r),
		RequestPath(r),
		RequestIP(r),
		slog.String(keyUserAgent, r.UserAgent()),
	}
	if id, ok := xcontext.GetRequestID(r.Context()); ok {
		attrs = append(attrs, slog.String(keyID, id))
	}
	if r.URL.RawQuery != "" {
		attrs = append(attrs, slog.String(keyQuery, r.URL.RawQuery))
	}
	return slog.GroupAttrs(groupRequest, attrs...)
}

func ResponseGroup(status int, bytes int64, duration time.Duration) slog.Attr {
	return slog.Group(groupResponse,
		HTTPStatus(status),
		slog.Int64(keyBytes, bytes),
		slog.Int64(keyDurationMS, duration.Milliseconds()),
	)
}

// PanicGroup records a recovered panic value with the current stack.
func PanicGroup(v any) slog.Attr {
	return slog.Group(groupPanic,
		slog.Any(keyValue, v),
		slog.String(keyType, fmt.Sprintf("%T", v)),
		Stack(),
	)
}

func UserGroup(userID int64) slog.Attr {
	return slog.Group(groupUser,
		slog.Int64(keyID, userID),
	)
}

// RunGroup identifies one sync run in every line it logs. An empty trigger
// is left out.
func RunGroup(runID string, mode string, trigger string) slog.Attr {
	attrs := []slog.Attr{
		slog.String(keyID, runID),
		slog.String(keyMode, mode),
	}
	if trigger != "" {
		attrs = append(attrs, slog.String(keyTrigger, trigger))
	}
	return slog.GroupAttrs(groupRun, attrs...)
}

// BatchGroup summarises one bulk upsert.
func BatchGroup(kind string, written int, skipped int, failed int) slog.Attr {
	return slog.Group(groupBatch,
		Kind(kind),
		slog.Int(keyWritten, written),
		slog.Int(keySkipped, skipped),
		slog.Int(keyFailed, failed),
	)
}
