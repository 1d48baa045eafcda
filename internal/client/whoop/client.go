package whoop

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"github.com/cenkalti/backoff/v4"
	go_json "github.com/goccy/go-json"
	"golang.org/x/oauth2"

	"github.com/garrettladley/whoopsync/internal/metrics"
	"github.com/garrettladley/whoopsync/internal/xhttp"
	"github.com/garrettladley/whoopsync/internal/xslog"
)

const DefaultBaseURL = "https://api.prod.whoop.com/developer"

type Client struct {
	User     UserService
	Cycle    CycleService
	Recovery RecoveryService
	Sleep    SleepService
	Workout  WorkoutService

	baseURL    string
	httpClient *http.Client
	throttle   *Throttle
	maxRetries int
	baseDelay  time.Duration
	logger     *slog.Logger
}

func New(tokenSource oauth2.TokenSource, opts ...Option) *Client {
	cfg := &clientConfig{
		baseURL:     DefaultBaseURL,
		tokenSource: tokenSource,
		logger:      slog.Default(),
		timeout:     60 * time.Second,
		maxRetries:  3,
		baseDelay:   time.Second,
	}
	for _, opt := range opts {
		opt(cfg)
	}

	transport := &whoopTransport{
		base:        xhttp.NewTransport(),
		tokenSource: cfg.tokenSource,
	}

	c := &Client{
		baseURL:    cfg.baseURL,
		httpClient: &http.Client{Transport: transport, Timeout: cfg.timeout},
		throttle:   cfg.throttle,
		maxRetries: cfg.maxRetries,
		baseDelay:  cfg.baseDelay,
		logger:     cfg.logger,
	}

	c.User = &userService{client: c}
	c.Cycle = &cycleService{client: c}
	c.Recovery = &recoveryService{client: c}
	c.Sleep = &sleepService{client: c}
	c.Workout = &workoutService{client: c}

	return c
}

type clientConfig struct {
	baseURL     string
	tokenSource oauth2.TokenSource
	throttle    *Throttle
	logger      *slog.Logger
	timeout     time.Duration
	maxRetries  int
	baseDelay   time.Duration
}

type Option func(*clientConfig)

func WithBaseURL(baseURL string) Option {
	return func(cfg *clientConfig) { cfg.baseURL = baseURL }
}

func WithLogger(logger *slog.Logger) Option {
	return func(cfg *clientConfig) { cfg.logger = logger }
}

func WithTimeout(d time.Duration) Option {
	return func(cfg *clientConfig) { cfg.timeout = d }
}

// WithThrottle shares one throttle across clients. Without it calls are unthrottled.
func WithThrottle(t *Throttle) Option {
	return func(cfg *clientConfig) { cfg.throttle = t }
}

// WithRetry sets the retry ceiling and the first backoff delay; each
// subsequent delay doubles.
func WithRetry(maxRetries int, baseDelay time.Duration) Option {
	return func(cfg *clientConfig) {
		cfg.maxRetries = maxRetries
		cfg.baseDelay = baseDelay
	}
}

func (c *Client) newBackOff(ctx context.Context, hint *retryAfterHint) backoff.BackOff {
	exp := backoff.NewExponentialBackOff()
	exp.InitialInterval = c.baseDelay
	exp.Multiplier = 2
	exp.RandomizationFactor = 0
	exp.MaxInterval = time.Hour
	exp.MaxElapsedTime = 0
	exp.Reset()
	var b backoff.BackOff = &retryAfterBackOff{BackOff: exp, hint: hint}
	b = backoff.WithMaxRetries(b, uint64(max(c.maxRetries, 0)))
	return backoff.WithContext(b, ctx)
}

// do sends one logical request. 429s and transport failures are retried with
// exponential backoff; every other failure is returned immediately.
func (c *Client) do(ctx context.Context, method string, path string, query url.Values, result any) error {
	u := c.baseURL + path
	if len(query) > 0 {
		u += "?" + query.Encode()
	}

	var (
		hint    retryAfterHint
		attempt int
	)
	op := func() error {
		attempt++
		err := c.attempt(ctx, method, u, result)
		if err == nil {
			return nil
		}

		var (
			rateErr      *RateLimitError
			transportErr *TransportError
		)
		switch {
		case errors.As(err, &rateErr):
			hint.set(rateErr.RetryAfter)
			return err
		case errors.As(err, &transportErr) && ctx.Err() == nil:
			return err
		default:
			return backoff.Permanent(err)
		}
	}

	notify := func(err error, delay time.Duration) {
		reason := "transport"
		var rateErr *RateLimitError
		if errors.As(err, &rateErr) {
			reason = "rate_limit"
		}
		metrics.RecordAPIRetry(reason)
		c.logger.WarnContext(ctx, "retrying whoop api request",
			xslog.Path(path),
			xslog.Attempt(attempt),
			xslog.Delay(delay),
			xslog.Error(err),
		)
	}

	return backoff.RetryNotify(op, c.newBackOff(ctx, &hint), notify)
}

func (c *Client) attempt(ctx context.Context, method string, u string, result any) error {
	if c.throttle != nil {
		if err := c.throttle.Wait(ctx); err != nil {
			return err
		}
	}

	req, err := http.NewRequestWithContext(ctx, method, u, nil)
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		var tokenErr *TokenError
		if errors.As(err, &tokenErr) {
			return tokenErr
		}
		metrics.RecordAPIRequest(0)
		return &TransportError{Err: err}
	}
	defer func() { _ = resp.Body.Close() }()

	metrics.RecordAPIRequest(resp.StatusCode)
	c.observeRateLimit(ctx, resp.Header)

	if resp.StatusCode >= 400 {
		return parseAPIError(resp)
	}

	if result != nil && resp.StatusCode != http.StatusNoContent {
		body, err := io.ReadAll(resp.Body)
		if err != nil {
			return &TransportError{Err: fmt.Errorf("reading response: %w", err)}
		}
		if err := go_json.NewDecoder(bytes.NewReader(body)).Decode(result); err != nil {
			return fmt.Errorf("decoding response: %w\nbody: %s", err, string(body))
		}
	}

	return nil
}

func (c *Client) observeRateLimit(ctx context.Context, h http.Header) {
	info, err := ParseRateLimitHeaders(h)
	if err != nil {
		c.logger.DebugContext(ctx, "failed to parse rate limit headers", xslog.Error(err))
		return
	}
	if c.throttle != nil {
		c.throttle.Observe(info)
	}
}

// retryAfterHint carries a server-provided Retry-After into the next backoff delay.
type retryAfterHint struct {
	d time.Duration
}

func (h *retryAfterHint) set(d time.Duration) { h.d = d }

func (h *retryAfterHint) take() time.Duration {
	d := h.d
	h.d = 0
	return d
}

type retryAfterBackOff struct {
	backoff.BackOff
	hint *retryAfterHint
}

func (b *retryAfterBackOff) NextBackOff() time.Duration {
	next := b.BackOff.NextBackOff()
	if next == backoff.Stop {
		return next
	}
	return max(next, b.hint.take())
}

type whoopTransport struct {
	base        http.RoundTripper
	tokenSource oauth2.TokenSource
}

var _ http.RoundTripper = (*whoopTransport)(nil)

func (t *whoopTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	token, err := t.tokenSource.Token()
	if err != nil {
		return nil, &TokenError{Err: err}
	}

	req = req.Clone(req.Context())
	token.SetAuthHeader(req)
	req.Header.Set("Accept", "application/json")

	resp, err := t.base.RoundTrip(req)
	if err != nil {
		return nil, fmt.Errorf("round trip: %w", err)
	}
	return resp, nil
}
