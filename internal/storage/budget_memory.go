package storage

import (
	"context"
	"sync"
	"time"
)

// MemoryBudget counts requests in-process. The window opens on the first
// request and resets once it is older than the configured length.
type MemoryBudget struct {
	window time.Duration
	now    func() time.Time

	mu          sync.Mutex
	count       int
	windowStart time.Time
}

func NewMemoryBudget() *MemoryBudget {
	return &MemoryBudget{window: DayWindow, now: time.Now}
}

func (b *MemoryBudget) Increment(context.Context) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.rollLocked()
	b.count++
	return b.count, nil
}

func (b *MemoryBudget) Used(context.Context) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.rollLocked()
	return b.count, nil
}

func (b *MemoryBudget) rollLocked() {
	now := b.now()
	if b.windowStart.IsZero() || now.Sub(b.windowStart) >= b.window {
		b.windowStart = now
		b.count = 0
	}
}
