package xhttp

import (
	"fmt"
	"net/http"
	"time"

	"github.com/garrettladley/whoopsync/internal/version"
)

const UserAgent = "User-Agent"

type userAgentTransport struct {
	base http.RoundTripper
}

var _ http.RoundTripper = (*userAgentTransport)(nil)

func (t *userAgentTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	req = req.Clone(req.Context())
	req.Header.Set(UserAgent, "whoopsync/"+version.Get())
	resp, err := t.base.RoundTrip(req)
	if err != nil {
		return nil, fmt.Errorf("failed to perform round trip: %w", err)
	}
	return resp, nil
}

// NewTransport returns an http.RoundTripper that identifies whoopsync to upstream APIs.
func NewTransport() http.RoundTripper {
	return &userAgentTransport{base: http.DefaultTransport}
}

type ClientOption func(*http.Client)

func WithTimeout(d time.Duration) ClientOption {
	return func(c *http.Client) { c.Timeout = d }
}

// NewHTTPClient returns a client on the identifying transport.
func NewHTTPClient(opts ...ClientOption) *http.Client {
	c := &http.Client{Transport: NewTransport()}
	for _, opt := range opts {
		opt(c)
	}
	return c
}
