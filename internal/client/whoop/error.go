package whoop

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	go_json "github.com/goccy/go-json"
)

// ErrDailyBudgetExhausted is returned before any request is sent once the
// daily request cap has been reached.
var ErrDailyBudgetExhausted = errors.New("whoop api: daily request budget exhausted")

// APIError is a non-2xx, non-429 response. It is never retried.
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("whoop api: %d %s", e.StatusCode, e.Message)
}

// RateLimitError is an HTTP 429 that survived every retry.
type RateLimitError struct {
	StatusCode int
	Message    string
	RetryAfter time.Duration
}

func (e *RateLimitError) Error() string {
	if e.RetryAfter > 0 {
		return fmt.Sprintf("whoop api: rate limited (retry after %s): %s", e.RetryAfter, e.Message)
	}
	return "whoop api: rate limited: " + e.Message
}

// TransportError is a network-level failure reaching the API.
type TransportError struct {
	Err error
}

func (e *TransportError) Error() string { return "whoop api: transport: " + e.Err.Error() }

func (e *TransportError) Unwrap() error { return e.Err }

// TokenError means the token source could not supply a bearer token.
// It is never retried.
type TokenError struct {
	Err error
}

func (e *TokenError) Error() string { return "whoop api: getting token: " + e.Err.Error() }

func (e *TokenError) Unwrap() error { return e.Err }

// IsNotFound reports whether err is a 404 from the API.
func IsNotFound(err error) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.StatusCode == http.StatusNotFound
}

func parseAPIError(resp *http.Response) error {
	msg := readErrorMessage(resp)
	if resp.StatusCode == http.StatusTooManyRequests {
		return &RateLimitError{
			StatusCode: resp.StatusCode,
			Message:    msg,
			RetryAfter: parseRetryAfter(resp.Header.Get("Retry-After")),
		}
	}
	return &APIError{
		StatusCode: resp.StatusCode,
		Message:    msg,
	}
}

func readErrorMessage(resp *http.Response) string {
	body, err := io.ReadAll(resp.Body)
	if err != nil || len(body) == 0 {
		return resp.Status
	}

	var errResp struct {
		Message string `json:"message"`
		Error   string `json:"error"`
	}
	if err := go_json.Unmarshal(body, &errResp); err != nil {
		return string(body)
	}

	switch {
	case errResp.Message != "":
		return errResp.Message
	case errResp.Error != "":
		return errResp.Error
	default:
		return resp.Status
	}
}

// parseRetryAfter accepts both delta-seconds and HTTP-date forms.
func parseRetryAfter(v string) time.Duration {
	if v == "" {
		return 0
	}
	if secs, err := strconv.Atoi(v); err == nil {
		if secs < 0 {
			return 0
		}
		return time.Duration(secs) * time.Second
	}
	if t, err := http.ParseTime(v); err == nil {
		if d := time.Until(t); d > 0 {
			return d
		}
	}
	return 0
}
