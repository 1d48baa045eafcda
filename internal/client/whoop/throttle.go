package whoop

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/garrettladley/whoopsync/internal/metrics"
	"github.com/garrettladley/whoopsync/internal/xslog"
)

// Budget counts outbound requests against a rolling daily window.
// Increment records one request and returns the count within the current window.
type Budget interface {
	Increment(ctx context.Context) (int, error)
}

type ThrottleConfig struct {
	// MinInterval is the minimum spacing between consecutive calls.
	MinInterval time.Duration
	// ThrottledInterval replaces MinInterval once DailySoftLimit is reached.
	ThrottledInterval time.Duration
	DailyLimit        int
	DailySoftLimit    int
}

func DefaultThrottleConfig() ThrottleConfig {
	return ThrottleConfig{
		MinInterval:       700 * time.Millisecond,
		ThrottledInterval: 2 * time.Second,
		DailyLimit:        10000,
		DailySoftLimit:    9500,
	}
}

// Throttle is shared by every caller of a Client so the interval holds
// across concurrent requests.
type Throttle struct {
	cfg     ThrottleConfig
	budget  Budget
	limiter *rate.Limiter
	logger  *slog.Logger

	mu         sync.Mutex
	widened    bool
	deferUntil time.Time
}

func NewThrottle(budget Budget, cfg ThrottleConfig, logger *slog.Logger) *Throttle {
	if logger == nil {
		logger = slog.Default()
	}
	return &Throttle{
		cfg:     cfg,
		budget:  budget,
		limiter: rate.NewLimiter(every(cfg.MinInterval), 1),
		logger:  logger,
	}
}

func every(d time.Duration) rate.Limit {
	if d <= 0 {
		return rate.Inf
	}
	return rate.Every(d)
}

// Wait blocks until the next call may be sent, then charges it to the daily
// budget. A wait cut short by ctx is not charged. Past the daily cap it
// returns ErrDailyBudgetExhausted.
func (t *Throttle) Wait(ctx context.Context) error {
	start := time.Now()
	if err := t.waitDeferred(ctx); err != nil {
		return err
	}
	if err := t.limiter.Wait(ctx); err != nil {
		return err
	}
	metrics.RecordThrottleWait(time.Since(start))

	if t.budget == nil {
		return nil
	}
	used, err := t.budget.Increment(ctx)
	if err != nil {
		return fmt.Errorf("failed to count request against daily budget: %w", err)
	}
	metrics.RecordDailyBudget(used)
	if t.cfg.DailyLimit > 0 && used > t.cfg.DailyLimit {
		return ErrDailyBudgetExhausted
	}
	if t.cfg.DailySoftLimit > 0 && used >= t.cfg.DailySoftLimit {
		t.widen(used)
	} else {
		t.narrow()
	}
	return nil
}

func (t *Throttle) widen(used int) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.widened || t.cfg.ThrottledInterval <= t.cfg.MinInterval {
		return
	}
	t.widened = true
	t.limiter.SetLimit(every(t.cfg.ThrottledInterval))
	t.logger.Warn("approaching daily request cap, widening request interval",
		xslog.Count(used),
		xslog.Delay(t.cfg.ThrottledInterval),
	)
}

// narrow restores MinInterval once the budget window has rolled over.
func (t *Throttle) narrow() {
	t.mu.Lock()
	defer t.mu.Unlock()
	if !t.widened {
		return
	}
	t.widened = false
	t.limiter.SetLimit(every(t.cfg.MinInterval))
	t.logger.Info("daily request budget reset, restoring request interval",
		xslog.Delay(t.cfg.MinInterval),
	)
}

func (t *Throttle) waitDeferred(ctx context.Context) error {
	t.mu.Lock()
	until := t.deferUntil
	t.mu.Unlock()

	d := time.Until(until)
	if d <= 0 {
		return nil
	}

	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// Observe feeds the rate limit headers of a response back into the throttle.
// An exhausted window defers every subsequent call until it resets.
func (t *Throttle) Observe(info *RateLimitInfo) {
	if info == nil || info.Remaining > 0 || info.Reset <= 0 {
		return
	}
	until := time.Now().Add(info.Reset)

	t.mu.Lock()
	defer t.mu.Unlock()
	if until.After(t.deferUntil) {
		t.deferUntil = until
		t.logger.Warn("rate limit window exhausted, deferring requests",
			xslog.Delay(info.Reset),
		)
	}
}

// Interval returns the spacing currently enforced between calls.
func (t *Throttle) Interval() time.Duration {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.widened {
		return t.cfg.ThrottledInterval
	}
	return t.cfg.MinInterval
}
