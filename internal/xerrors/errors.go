package xerrors

import (
	"errors"
	"net/http"
	"strings"
	"time"
)

// Error is an error with the HTTP response it should produce.
type Error struct {
	StatusCode int
	Message    string
	Cause      error
	RetryAfter time.Duration
	// Details is encoded next to the message, e.g. a partial sync summary.
	Details any
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return e.Message + ": " + e.Cause.Error()
	}
	return e.Message
}

func (e *Error) Unwrap() error { return e.Cause }

func Unauthorized(opts ...Option) *Error       { return newErr(http.StatusUnauthorized, opts) }
func BadRequest(opts ...Option) *Error         { return newErr(http.StatusBadRequest, opts) }
func NotFound(opts ...Option) *Error           { return newErr(http.StatusNotFound, opts) }
func Internal(opts ...Option) *Error           { return newErr(http.StatusInternalServerError, opts) }
func BadGateway(opts ...Option) *Error         { return newErr(http.StatusBadGateway, opts) }
func ServiceUnavailable(opts ...Option) *Error { return newErr(http.StatusServiceUnavailable, opts) }
func TooManyRequests(opts ...Option) *Error    { return newErr(http.StatusTooManyRequests, opts) }

func newErr(status int, opts []Option) *Error {
	e := &Error{StatusCode: status, Message: strings.ToLower(http.StatusText(status))}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

type Option func(*Error)

func WithMessage(msg string) Option         { return func(e *Error) { e.Message = msg } }
func WithCause(err error) Option            { return func(e *Error) { e.Cause = err } }
func WithRetryAfter(d time.Duration) Option { return func(e *Error) { e.RetryAfter = d } }
func WithDetails(details any) Option        { return func(e *Error) { e.Details = details } }

func As(err error) *Error {
	var e *Error
	if errors.As(err, &e) {
		return e
	}
	return nil
}
