package whoop

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"golang.org/x/oauth2"
)

func newTestClient(t *testing.T, url string, opts ...Option) *Client {
	t.Helper()
	ts := oauth2.StaticTokenSource(&oauth2.Token{AccessToken: "test-token"})
	opts = append([]Option{WithBaseURL(url), WithRetry(3, time.Millisecond)}, opts...)
	return New(ts, opts...)
}

func TestClientRetriesRateLimit(t *testing.T) {
	t.Parallel()
	var attempts atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer test-token" {
			t.Errorf("Authorization = %q", r.Header.Get("Authorization"))
		}
		if attempts.Add(1) < 3 {
			w.WriteHeader(http.StatusTooManyRequests)
			return
		}
		_, _ = w.Write([]byte(`{"user_id": 10129, "email": "jsmith123@whoop.com", "first_name": "John", "last_name": "Smith"}`))
	}))
	t.Cleanup(srv.Close)

	c := newTestClient(t, srv.URL)
	profile, err := c.User.GetProfile(t.Context())
	if err != nil {
		t.Fatalf("GetProfile() error = %v", err)
	}
	if profile.UserID != 10129 {
		t.Errorf("UserID = %d, want 10129", profile.UserID)
	}
	if got := attempts.Load(); got != 3 {
		t.Errorf("attempts = %d, want 3", got)
	}
}

func TestClientRateLimitExhaustsRetries(t *testing.T) {
	t.Parallel()
	var attempts atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		attempts.Add(1)
		w.WriteHeader(http.StatusTooManyRequests)
		_, _ = w.Write([]byte(`{"message": "slow down"}`))
	}))
	t.Cleanup(srv.Close)

	c := newTestClient(t, srv.URL)
	_, err := c.Cycle.Get(t.Context(), 1)

	var rateErr *RateLimitError
	if !errors.As(err, &rateErr) {
		t.Fatalf("error = %v, want *RateLimitError", err)
	}
	if rateErr.Message != "slow down" {
		t.Errorf("Message = %q, want %q", rateErr.Message, "slow down")
	}
	if got := attempts.Load(); got != 4 {
		t.Errorf("attempts = %d, want 4 (1 + 3 retries)", got)
	}
}

func TestClientDoesNotRetryAPIErrors(t *testing.T) {
	t.Parallel()
	for _, status := range []int{http.StatusBadRequest, http.StatusNotFound, http.StatusInternalServerError} {
		t.Run(http.StatusText(status), func(t *testing.T) {
			t.Parallel()
			var attempts atomic.Int32
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
				attempts.Add(1)
				w.WriteHeader(status)
			}))
			t.Cleanup(srv.Close)

			c := newTestClient(t, srv.URL)
			_, err := c.Cycle.Get(t.Context(), 1)

			var apiErr *APIError
			if !errors.As(err, &apiErr) || apiErr.StatusCode != status {
				t.Fatalf("error = %v, want *APIError with status %d", err, status)
			}
			if got := attempts.Load(); got != 1 {
				t.Errorf("attempts = %d, want 1", got)
			}
		})
	}
}

func TestClientRetriesTransportErrors(t *testing.T) {
	t.Parallel()
	srv := httptest.NewServer(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {}))
	url := srv.URL
	srv.Close()

	c := newTestClient(t, url)
	_, err := c.Recovery.List(t.Context(), &ListParams{Limit: 25})

	var transportErr *TransportError
	if !errors.As(err, &transportErr) {
		t.Fatalf("error = %v, want *TransportError", err)
	}
}

func TestClientTokenErrorIsNotRetried(t *testing.T) {
	t.Parallel()
	var attempts atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		attempts.Add(1)
	}))
	t.Cleanup(srv.Close)

	c := New(failingTokenSource{}, WithBaseURL(srv.URL), WithRetry(3, time.Millisecond))
	_, err := c.User.GetProfile(t.Context())

	var tokenErr *TokenError
	if !errors.As(err, &tokenErr) {
		t.Fatalf("error = %v, want *TokenError", err)
	}
	if got := attempts.Load(); got != 0 {
		t.Errorf("attempts = %d, want 0", got)
	}
}

func TestClientHonorsRetryAfter(t *testing.T) {
	t.Parallel()
	var attempts atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		if attempts.Add(1) == 1 {
			w.Header().Set("Retry-After", "1")
			w.WriteHeader(http.StatusTooManyRequests)
			return
		}
		_, _ = w.Write([]byte(`{"records": []}`))
	}))
	t.Cleanup(srv.Close)

	c := newTestClient(t, srv.URL)
	start := time.Now()
	if _, err := c.Sleep.List(t.Context(), nil); err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if elapsed := time.Since(start); elapsed < time.Second {
		t.Errorf("elapsed = %v, want >= 1s from Retry-After", elapsed)
	}
}

func TestClientListSendsQuery(t *testing.T) {
	t.Parallel()
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		if r.URL.Path != routeWorkout {
			t.Errorf("path = %q, want %q", r.URL.Path, routeWorkout)
		}
		if q.Get("limit") != "25" || q.Get("start") != "2024-01-01T00:00:00Z" || q.Get("nextToken") != "abc" {
			t.Errorf("query = %v", q)
		}
		_, _ = w.Write([]byte(`{"records": [{"id": "w1", "sport_id": 1, "start": "2024-01-01T10:00:00Z", "end": "2024-01-01T11:00:00Z", "score_state": "PENDING_SCORE"}], "next_token": ""}`))
	}))
	t.Cleanup(srv.Close)

	c := newTestClient(t, srv.URL)
	page, err := c.Workout.List(t.Context(), &ListParams{Limit: 50, Start: &start, NextToken: "abc"})
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if len(page.Records) != 1 || page.Records[0].Sport() != "Cycling" {
		t.Errorf("records = %+v", page.Records)
	}
	if _, ok := page.Next(); ok {
		t.Error("Next() ok = true for empty next_token")
	}
}

func TestThrottleEnforcesMinInterval(t *testing.T) {
	t.Parallel()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"records": []}`))
	}))
	t.Cleanup(srv.Close)

	const (
		n        = 5
		interval = 40 * time.Millisecond
	)
	throttle := NewThrottle(&countingBudget{}, ThrottleConfig{MinInterval: interval, DailyLimit: 100}, nil)
	c := newTestClient(t, srv.URL, WithThrottle(throttle))

	var wg sync.WaitGroup
	start := time.Now()
	for range n {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := c.Cycle.List(t.Context(), nil); err != nil {
				t.Errorf("List() error = %v", err)
			}
		}()
	}
	wg.Wait()

	if elapsed, want := time.Since(start), (n-1)*interval; elapsed < want {
		t.Errorf("elapsed = %v, want >= %v", elapsed, want)
	}
}

func TestThrottleDailyBudget(t *testing.T) {
	t.Parallel()
	budget := &countingBudget{}
	throttle := NewThrottle(budget, ThrottleConfig{
		MinInterval:       time.Millisecond,
		ThrottledInterval: 5 * time.Millisecond,
		DailyLimit:        3,
		DailySoftLimit:    2,
	}, nil)

	ctx := t.Context()
	if err := throttle.Wait(ctx); err != nil {
		t.Fatalf("Wait() #1 error = %v", err)
	}
	if got := throttle.Interval(); got != time.Millisecond {
		t.Errorf("Interval() = %v before soft limit", got)
	}
	for i := 2; i <= 3; i++ {
		if err := throttle.Wait(ctx); err != nil {
			t.Fatalf("Wait() #%d error = %v", i, err)
		}
	}
	if got := throttle.Interval(); got != 5*time.Millisecond {
		t.Errorf("Interval() = %v after soft limit, want 5ms", got)
	}
	if err := throttle.Wait(ctx); !errors.Is(err, ErrDailyBudgetExhausted) {
		t.Errorf("Wait() over limit error = %v, want ErrDailyBudgetExhausted", err)
	}
}

func TestThrottleRestoresIntervalAfterBudgetReset(t *testing.T) {
	t.Parallel()
	budget := &scriptedBudget{counts: []int{9500, 1, 2}}
	throttle := NewThrottle(budget, ThrottleConfig{
		MinInterval:       time.Millisecond,
		ThrottledInterval: 5 * time.Millisecond,
		DailyLimit:        10000,
		DailySoftLimit:    9500,
	}, nil)

	ctx := t.Context()
	if err := throttle.Wait(ctx); err != nil {
		t.Fatalf("Wait() at soft limit error = %v", err)
	}
	if got := throttle.Interval(); got != 5*time.Millisecond {
		t.Errorf("Interval() = %v at soft limit, want 5ms", got)
	}

	for i := range 2 {
		if err := throttle.Wait(ctx); err != nil {
			t.Fatalf("Wait() #%d after reset error = %v", i+1, err)
		}
		if got := throttle.Interval(); got != time.Millisecond {
			t.Errorf("Interval() = %v after budget reset, want 1ms", got)
		}
	}
}

func TestThrottleCanceledWaitIsNotCharged(t *testing.T) {
	t.Parallel()
	budget := &countingBudget{}
	throttle := NewThrottle(budget, ThrottleConfig{MinInterval: time.Hour, DailyLimit: 10}, nil)

	if err := throttle.Wait(t.Context()); err != nil {
		t.Fatalf("Wait() #1 error = %v", err)
	}

	ctx, cancel := context.WithTimeout(t.Context(), 10*time.Millisecond)
	defer cancel()
	if err := throttle.Wait(ctx); err == nil {
		t.Fatal("Wait() should fail when ctx ends before the interval")
	}

	budget.mu.Lock()
	defer budget.mu.Unlock()
	if budget.n != 1 {
		t.Errorf("budget charged %d requests, want 1", budget.n)
	}
}

func TestThrottleObserveDefersUntilReset(t *testing.T) {
	t.Parallel()
	throttle := NewThrottle(nil, ThrottleConfig{}, nil)
	throttle.Observe(&RateLimitInfo{Limit: 100, Remaining: 0, Reset: 100 * time.Millisecond})

	start := time.Now()
	if err := throttle.Wait(t.Context()); err != nil {
		t.Fatalf("Wait() error = %v", err)
	}
	if elapsed := time.Since(start); elapsed < 90*time.Millisecond {
		t.Errorf("elapsed = %v, want deferral until reset", elapsed)
	}

	ctx, cancel := context.WithCancel(t.Context())
	cancel()
	throttle.Observe(&RateLimitInfo{Remaining: 0, Reset: time.Minute})
	if err := throttle.Wait(ctx); !errors.Is(err, context.Canceled) {
		t.Errorf("Wait() on canceled ctx error = %v", err)
	}
}

type countingBudget struct {
	mu sync.Mutex
	n  int
}

func (b *countingBudget) Increment(context.Context) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.n++
	return b.n, nil
}

// scriptedBudget returns counts in order, repeating the last one.
type scriptedBudget struct {
	mu     sync.Mutex
	counts []int
}

func (b *scriptedBudget) Increment(context.Context) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	n := b.counts[0]
	if len(b.counts) > 1 {
		b.counts = b.counts[1:]
	}
	return n, nil
}

type failingTokenSource struct{}

func (failingTokenSource) Token() (*oauth2.Token, error) {
	return nil, errors.New("no token")
}
