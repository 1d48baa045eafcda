package whoop

import (
	"net/http"
	"strconv"
	"strings"
	"time"
)

// RateLimitInfo is the parsed X-RateLimit-* header set of a response.
// See https://developer.whoop.com/docs/developing/rate-limiting/
type RateLimitInfo struct {
	Limit     int
	Remaining int
	Reset     time.Duration
	// DailyRemaining is the remaining count of the 86400s window, or -1 when
	// the header does not carry one.
	DailyRemaining int
}

const (
	limitHeaderKey     = "X-Ratelimit-Limit"
	remainingHeaderKey = "X-Ratelimit-Remaining"
	resetHeaderKey     = "X-Ratelimit-Reset"
)

const dayWindowSeconds = 86400

// ParseRateLimitHeaders returns nil, nil when the headers are absent.
func ParseRateLimitHeaders(headers http.Header) (*RateLimitInfo, error) {
	var (
		limitStr     = headers.Get(limitHeaderKey)
		remainingStr = headers.Get(remainingHeaderKey)
		resetStr     = headers.Get(resetHeaderKey)
	)
	if limitStr == "" || remainingStr == "" || resetStr == "" {
		return nil, nil
	}

	limit, _, err := parseRateLimitValue(limitStr)
	if err != nil {
		return nil, err
	}

	remaining, windows, err := parseRateLimitValue(remainingStr)
	if err != nil {
		return nil, err
	}

	resetSeconds, err := strconv.ParseInt(strings.TrimSpace(resetStr), 10, 64)
	if err != nil {
		return nil, err
	}

	daily := -1
	if v, ok := windows[dayWindowSeconds]; ok {
		daily = v
	}

	return &RateLimitInfo{
		Limit:          limit,
		Remaining:      remaining,
		Reset:          time.Duration(resetSeconds) * time.Second,
		DailyRemaining: daily,
	}, nil
}

// parseRateLimitValue returns the leading value of a header plus any
// "value;window=seconds" policies that follow it, e.g.
// "100, 100;window=60, 10000;window=86400".
func parseRateLimitValue(s string) (int, map[int]int, error) {
	parts := strings.Split(s, ",")

	primary, _, err := parsePolicy(parts[0])
	if err != nil {
		return 0, nil, err
	}

	windows := make(map[int]int, len(parts)-1)
	for _, part := range parts[1:] {
		value, window, err := parsePolicy(part)
		if err != nil {
			return 0, nil, err
		}
		if window > 0 {
			windows[window] = value
		}
	}
	return primary, windows, nil
}

func parsePolicy(s string) (value int, window int, err error) {
	fields := strings.Split(strings.TrimSpace(s), ";")
	value, err = strconv.Atoi(strings.TrimSpace(fields[0]))
	if err != nil {
		return 0, 0, err
	}
	for _, f := range fields[1:] {
		k, v, ok := strings.Cut(strings.TrimSpace(f), "=")
		if !ok || k != "window" {
			continue
		}
		if window, err = strconv.Atoi(v); err != nil {
			return 0, 0, err
		}
	}
	return value, window, nil
}
