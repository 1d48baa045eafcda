package xslog

import (
	"log/slog"
	"net/http"
	"runtime/debug"
	"time"

	"github.com/garrettladley/whoopsync/internal/version"
	"github.com/garrettladley/whoopsync/internal/xhttp"
)

const (
	keyError = "error"
)

func Error(err error) slog.Attr {
	return slog.String(keyError, err.Error())
}

func RequestID(requestID string) slog.Attr {
	const requestIDKey = "request_id"
	return slog.String(requestIDKey, requestID)
}

func Stack() slog.Attr {
	const stackKey = "stack"
	return slog.String(stackKey, string(debug.Stack()))
}

func HTTPStatus(status int) slog.Attr {
	const statusKey = "status"
	return slog.Int(statusKey, status)
}

func Duration(duration time.Duration) slog.Attr {
	const durationKey = "duration"
	return slog.Duration(durationKey, duration)
}

func RequestMethod(r *http.Request) slog.Attr {
	const methodKey = "method"
	return slog.String(methodKey, r.Method)
}

func RequestPath(r *http.Request) slog.Attr {
	return Path(r.URL.Path)
}

func Path(path string) slog.Attr {
	const pathKey = "path"
	return slog.String(pathKey, path)
}

func IP(ip string) slog.Attr {
	const ipKey = "ip"
	return slog.String(ipKey, ip)
}

func RequestIP(r *http.Request) slog.Attr {
	return IP(xhttp.GetRequestIP(r))
}

// Version logs the build version and, when stamped, the VCS revision.
func Version() slog.Attr {
	const (
		versionKey  = "version"
		revisionKey = "revision"
	)
	if rev := version.Revision(); rev != "" {
		return slog.Group(versionKey, slog.String(keyValue, version.Get()), slog.String(revisionKey, rev))
	}
	return slog.String(versionKey, version.Get())
}

func CycleID(id int64) slog.Attr {
	const cycleIDKey = "cycle_id"
	return slog.Int64(cycleIDKey, id)
}

func SleepID(id string) slog.Attr {
	const sleepIDKey = "sleep_id"
	return slog.String(sleepIDKey, id)
}

// ID is the external identifier of a record whose kind is logged alongside.
func ID(id string) slog.Attr {
	const idKey = "id"
	return slog.String(idKey, id)
}

func Kind(kind string) slog.Attr {
	const kindKey = "kind"
	return slog.String(kindKey, kind)
}

func Count(count int) slog.Attr {
	const countKey = "count"
	return slog.Int(countKey, count)
}

func Page(page int) slog.Attr {
	const pageKey = "page"
	return slog.Int(pageKey, page)
}

func Attempt(attempt int) slog.Attr {
	const attemptKey = "attempt"
	return slog.Int(attemptKey, attempt)
}

func Delay(d time.Duration) slog.Attr {
	const delayKey = "delay"
	return slog.Duration(delayKey, d)
}

func Start(t time.Time) slog.Attr {
	const startKey = "start"
	return slog.Time(startKey, t)
}

func End(t time.Time) slog.Attr {
	const endKey = "end"
	return slog.Time(endKey, t)
}

func Expiry(t time.Time) slog.Attr {
	const expiryKey = "expiry"
	return slog.Time(expiryKey, t)
}

func Step(step string) slog.Attr {
	const stepKey = "step"
	return slog.String(stepKey, step)
}
