// Package storage holds the shared daily request budgets used by the WHOOP
// client throttle.
package storage

import (
	"context"
	"time"

	"github.com/garrettladley/whoopsync/internal/client/whoop"
)

// DayWindow is the length of the rolling request budget window.
const DayWindow = 24 * time.Hour

// Budget extends whoop.Budget with a read-only view for status reporting.
type Budget interface {
	whoop.Budget
	// Used returns the count in the current window without incrementing it.
	Used(ctx context.Context) (int, error)
}

var (
	_ Budget = (*MemoryBudget)(nil)
	_ Budget = (*RedisBudget)(nil)
)
