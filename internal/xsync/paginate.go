package xsync

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/garrettladley/whoopsync/internal/client/whoop"
	"github.com/garrettladley/whoopsync/internal/xslog"
)

const (
	DefaultPageSize = whoop.MaxPageSize
	DefaultMaxPages = 100
)

// Page is the result of paginating one collection to exhaustion or to the page cap.
type Page[T whoop.Record] struct {
	Records []T
	// InProgress holds the keys of records dropped because they have not ended.
	InProgress []string
	Pages      int
	Duplicates int
	// Truncated is set when the page cap stopped pagination early.
	Truncated bool
}

type paginator struct {
	pageSize int
	maxPages int
	now      func() time.Time
}

// fetchAll walks every page of a collection from start (nil for unbounded)
// to now. It fails only when a page request fails.
func fetchAll[T whoop.Record](
	ctx context.Context,
	p paginator,
	kind string,
	list whoop.ListFunc[T],
	start *time.Time,
) (*Page[T], error) {
	logger := xslog.FromContext(ctx).With(xslog.Kind(kind))

	end := p.now()
	params := &whoop.ListParams{
		Limit: p.pageSize,
		Start: start,
		End:   &end,
	}
	if start != nil {
		logger = logger.With(xslog.Start(*start))
	}
	logger.DebugContext(ctx, "listing collection", xslog.End(end))

	var (
		result Page[T]
		seen   = make(map[string]struct{})
	)
	for {
		if err := ctx.Err(); err != nil {
			return nil, fmt.Errorf("context cancelled: %w", err)
		}

		if result.Pages >= p.maxPages {
			result.Truncated = true
			logger.WarnContext(ctx, "page cap reached, remaining pages left for a later run",
				xslog.Page(result.Pages),
				xslog.Count(len(result.Records)),
			)
			break
		}

		resp, err := list(ctx, params)
		if err != nil {
			return nil, fmt.Errorf("failed to list %s page %d: %w", kind, result.Pages+1, err)
		}
		result.Pages++

		mergePage(&result, seen, resp.Records)

		next, ok := resp.Next()
		if !ok {
			break
		}
		params.NextToken = next
	}

	logger.DebugContext(ctx, "fetched collection",
		xslog.Count(len(result.Records)),
		xslog.Page(result.Pages),
		slog.Int("in_progress", len(result.InProgress)),
		slog.Int("duplicates", result.Duplicates),
	)
	return &result, nil
}

// mergePage appends the completed records of page not already in seen.
func mergePage[T whoop.Record](result *Page[T], seen map[string]struct{}, page []T) {
	for _, rec := range page {
		if !rec.Completed() {
			result.InProgress = append(result.InProgress, rec.Key())
			continue
		}
		key := rec.Key()
		if _, dup := seen[key]; dup {
			result.Duplicates++
			continue
		}
		seen[key] = struct{}{}
		result.Records = append(result.Records, rec)
	}
}
