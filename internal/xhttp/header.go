package xhttp

import (
	"net/http"
	"strconv"
	"time"
)

const (
	Authorization  = "Authorization"
	ContentType    = "Content-Type"
	RetryAfter     = "Retry-After"
	XAPIKey        = "X-API-Key"
	XForwardedFor  = "X-Forwarded-For"
	XRequestID     = "X-Request-ID"
	AcceptEncoding = "Accept-Encoding"
)

// Response hardening for a JSON-only API.
const (
	CacheControl          = "Cache-Control"
	ContentSecurityPolicy = "Content-Security-Policy"
	ReferrerPolicy        = "Referrer-Policy"
	XContentTypeOpts      = "X-Content-Type-Options"
	XFrameOpts            = "X-Frame-Options"
)

const (
	applicationJSON = "application/json"
	textHTML        = "text/html; charset=utf-8"
)

func SetHeaderRequestID(w http.ResponseWriter, requestID string) {
	w.Header().Set(XRequestID, requestID)
}

func SetHeaderContentTypeApplicationJSON(w http.ResponseWriter) {
	w.Header().Set(ContentType, applicationJSON)
}

func SetHeaderContentTypeTextHTML(w http.ResponseWriter) {
	w.Header().Set(ContentType, textHTML)
}

// SetHeaderRetryAfter writes whole seconds, rounding up so clients never
// retry early.
func SetHeaderRetryAfter(w http.ResponseWriter, retryAfter time.Duration) {
	secs := int64((retryAfter + time.Second - 1) / time.Second)
	w.Header().Set(RetryAfter, strconv.FormatInt(secs, 10))
}
