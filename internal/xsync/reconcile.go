package xsync

import (
	"cmp"
	"context"
	"errors"
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v4"
	"golang.org/x/sync/errgroup"

	"github.com/garrettladley/whoopsync/internal/client/whoop"
	"github.com/garrettladley/whoopsync/internal/repository"
	"github.com/garrettladley/whoopsync/internal/xslog"
)

const (
	DefaultBackfillBatch      = 50
	DefaultCycleConcurrency   = 2
	DefaultCycleFetchAttempts = 3
	defaultCycleRetryDelay    = time.Second
)

// MissingCycleIDs returns, in ascending order, the distinct cycle ids that
// recoveries reference but known does not contain.
func MissingCycleIDs(recoveries []whoop.Recovery, known []whoop.Cycle) []int64 {
	have := make(map[int64]struct{}, len(known))
	for _, c := range known {
		have[c.ID] = struct{}{}
	}

	missing := make(map[int64]struct{})
	for _, r := range recoveries {
		if _, ok := have[r.CycleID]; ok {
			continue
		}
		missing[r.CycleID] = struct{}{}
	}

	ids := make([]int64, 0, len(missing))
	for id := range missing {
		ids = append(ids, id)
	}
	slices.Sort(ids)
	return ids
}

// Link associates a stored sleep with the cycle its recovery belongs to.
type Link struct {
	SleepID string
	CycleID int64
}

// SleepLinks returns one link per recovery that references both a sleep and a cycle.
func SleepLinks(recoveries []whoop.Recovery) []Link {
	links := make([]Link, 0, len(recoveries))
	seen := make(map[string]struct{}, len(recoveries))
	for _, r := range recoveries {
		if r.SleepID == "" || r.CycleID == 0 {
			continue
		}
		if _, ok := seen[r.SleepID]; ok {
			continue
		}
		seen[r.SleepID] = struct{}{}
		links = append(links, Link{SleepID: r.SleepID, CycleID: r.CycleID})
	}
	return links
}

type reconciler struct {
	cycles      whoop.CycleService
	concurrency int
	attempts    int
	baseDelay   time.Duration
	batchSize   int
}

// Reconciled is the outcome of fetching cycles missing from pagination.
type Reconciled struct {
	Cycles []whoop.Cycle
	// InProgress cycles were fetched but have not ended yet.
	InProgress []int64
	Gaps       []*ReconciliationGapError
}

// fetchMissing fetches each id individually with bounded concurrency. The
// shared client throttle still spaces out every request.
func (r *reconciler) fetchMissing(ctx context.Context, ids []int64) *Reconciled {
	logger := xslog.FromContext(ctx)

	var (
		mu     sync.Mutex
		result Reconciled
	)

	g := new(errgroup.Group)
	g.SetLimit(max(r.concurrency, 1))
	for _, id := range ids {
		g.Go(func() error {
			cycle, err := r.fetchCycle(ctx, id)

			mu.Lock()
			defer mu.Unlock()

			switch {
			case err != nil:
				gap := &ReconciliationGapError{CycleID: id, Err: err}
				logger.WarnContext(ctx, "failed to fetch cycle referenced by recovery",
					xslog.CycleID(id),
					xslog.Error(err),
				)
				result.Gaps = append(result.Gaps, gap)
			case !cycle.Completed():
				result.InProgress = append(result.InProgress, id)
			default:
				result.Cycles = append(result.Cycles, *cycle)
			}
			return nil
		})
	}
	_ = g.Wait()

	slices.SortFunc(result.Cycles, func(a, b whoop.Cycle) int { return cmp.Compare(a.ID, b.ID) })
	slices.Sort(result.InProgress)
	slices.SortFunc(result.Gaps, func(a, b *ReconciliationGapError) int { return cmp.Compare(a.CycleID, b.CycleID) })
	return &result
}

func (r *reconciler) fetchCycle(ctx context.Context, id int64) (*whoop.Cycle, error) {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = r.baseDelay
	b.Multiplier = 2
	b.RandomizationFactor = 0
	b.MaxElapsedTime = 0

	var (
		cycle   *whoop.Cycle
		attempt int
	)
	op := func() error {
		attempt++
		c, err := r.cycles.Get(ctx, id)
		if err != nil {
			if whoop.IsNotFound(err) || errors.Is(err, whoop.ErrDailyBudgetExhausted) || ctx.Err() != nil {
				return backoff.Permanent(err)
			}
			return err
		}
		cycle = c
		return nil
	}

	attempts := uint64(max(r.attempts, 1))
	policy := backoff.WithContext(backoff.WithMaxRetries(b, attempts-1), ctx)
	if err := backoff.Retry(op, policy); err != nil {
		return nil, fmt.Errorf("after %d attempt(s): %w", attempt, err)
	}
	return cycle, nil
}

// Backfill is the outcome of linking stored sleeps to their cycles.
type Backfill struct {
	Linked int
	// Unmatched links named a sleep or cycle that is not stored.
	Unmatched int
	Errors    []error
}

// applyBackfill sets the cycle reference of stored sleeps in batches. A
// failed link is collected and does not stop its batch.
func (r *reconciler) applyBackfill(ctx context.Context, sleeps repository.SleepRepository, links []Link) *Backfill {
	logger := xslog.FromContext(ctx)

	var (
		mu     sync.Mutex
		result Backfill
	)

	for batch := range slices.Chunk(links, max(r.batchSize, 1)) {
		if ctx.Err() != nil {
			result.Errors = append(result.Errors, fmt.Errorf("sleep backfill interrupted: %w", ctx.Err()))
			break
		}

		g := new(errgroup.Group)
		g.SetLimit(len(batch))
		for _, link := range batch {
			g.Go(func() error {
				linked, err := sleeps.LinkCycle(ctx, link.SleepID, link.CycleID)

				mu.Lock()
				defer mu.Unlock()

				switch {
				case err != nil:
					logger.WarnContext(ctx, "failed to link sleep to cycle",
						xslog.SleepID(link.SleepID),
						xslog.CycleID(link.CycleID),
						xslog.Error(err),
					)
					result.Errors = append(result.Errors,
						fmt.Errorf("link sleep %s to cycle %d: %w", link.SleepID, link.CycleID, err))
				case linked:
					result.Linked++
				default:
					result.Unmatched++
				}
				return nil
			})
		}
		_ = g.Wait()
	}

	return &result
}
