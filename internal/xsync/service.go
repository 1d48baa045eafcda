package xsync

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/google/uuid"

	"github.com/garrettladley/whoopsync/internal/client/whoop"
	"github.com/garrettladley/whoopsync/internal/metrics"
	"github.com/garrettladley/whoopsync/internal/repository"
	"github.com/garrettladley/whoopsync/internal/xcontext"
	"github.com/garrettladley/whoopsync/internal/xslog"
)

type Mode string

const (
	// ModeDaily re-syncs a short trailing window to pick up late scores.
	ModeDaily Mode = "daily"
	// ModeHistorical syncs the entire available history.
	ModeHistorical Mode = "historical"
)

func ParseMode(s string) (Mode, error) {
	switch Mode(s) {
	case ModeDaily, "":
		return ModeDaily, nil
	case ModeHistorical:
		return ModeHistorical, nil
	default:
		return "", fmt.Errorf("invalid sync mode: %q (valid: daily, historical)", s)
	}
}

const DefaultDailyWindow = 3 * 24 * time.Hour

const (
	stepProfile    = "profile"
	stepRecoveries = "recoveries"
)

type Options struct {
	DailyWindow        time.Duration
	PageSize           int
	MaxPages           int
	BackfillBatch      int
	CycleConcurrency   int
	CycleFetchAttempts int
	CycleRetryDelay    time.Duration
	Now                func() time.Time
}

func DefaultOptions() Options {
	return Options{
		DailyWindow:        DefaultDailyWindow,
		PageSize:           DefaultPageSize,
		MaxPages:           DefaultMaxPages,
		BackfillBatch:      DefaultBackfillBatch,
		CycleConcurrency:   DefaultCycleConcurrency,
		CycleFetchAttempts: DefaultCycleFetchAttempts,
		CycleRetryDelay:    defaultCycleRetryDelay,
		Now:                time.Now,
	}
}

// Summary is what a run reports back to its trigger.
type Summary struct {
	RunID        string    `json:"run_id"`
	Mode         Mode      `json:"mode"`
	StartedAt    time.Time `json:"started_at"`
	FinishedAt   time.Time `json:"finished_at"`
	Cycles       int       `json:"cycles"`
	Sleeps       int       `json:"sleeps"`
	Recoveries   int       `json:"recoveries"`
	Workouts     int       `json:"workouts"`
	LinkedSleeps int       `json:"linked_sleeps"`
	Errors       []string  `json:"errors"`
	// Truncated names the collections the page cap cut short.
	Truncated []string `json:"truncated,omitempty"`
}

func (s *Summary) addError(kind repository.Kind, err error) {
	s.Errors = append(s.Errors, err.Error())
	metrics.RecordSyncError(string(kind))
}

func noteTruncated[T whoop.Record](s *Summary, kind repository.Kind, page *Page[T]) {
	if page.Truncated {
		s.Truncated = append(s.Truncated, string(kind))
	}
}

type Syncer interface {
	// Run performs one sync. A *FatalError is returned, together with the
	// partial summary, only when the profile or recovery fetch fails.
	Run(ctx context.Context, mode Mode) (*Summary, error)
}

type Service struct {
	client *whoop.Client
	repo   *repository.Repository
	opts   Options
	logger *slog.Logger
}

var _ Syncer = (*Service)(nil)

func NewService(client *whoop.Client, repo *repository.Repository, opts Options, logger *slog.Logger) *Service {
	defaults := DefaultOptions()
	if opts.DailyWindow <= 0 {
		opts.DailyWindow = defaults.DailyWindow
	}
	if opts.PageSize <= 0 {
		opts.PageSize = defaults.PageSize
	}
	if opts.MaxPages <= 0 {
		opts.MaxPages = defaults.MaxPages
	}
	if opts.BackfillBatch <= 0 {
		opts.BackfillBatch = defaults.BackfillBatch
	}
	if opts.CycleConcurrency <= 0 {
		opts.CycleConcurrency = defaults.CycleConcurrency
	}
	if opts.CycleFetchAttempts <= 0 {
		opts.CycleFetchAttempts = defaults.CycleFetchAttempts
	}
	if opts.CycleRetryDelay <= 0 {
		opts.CycleRetryDelay = defaults.CycleRetryDelay
	}
	if opts.Now == nil {
		opts.Now = defaults.Now
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		client: client,
		repo:   repo,
		opts:   opts,
		logger: logger,
	}
}

func (s *Service) Run(ctx context.Context, mode Mode) (*Summary, error) {
	runID := uuid.NewString()
	trigger, _ := xcontext.GetTrigger(ctx)
	logger := s.logger.With(xslog.RunGroup(runID, string(mode), string(trigger)))
	ctx = xslog.WithLogger(ctx, logger)

	summary := &Summary{
		RunID:     runID,
		Mode:      mode,
		StartedAt: s.opts.Now(),
		Errors:    []string{},
	}

	ledger := &repository.SyncRun{ID: runID, Mode: string(mode), StartedAt: summary.StartedAt}
	if err := s.repo.SyncRuns.Start(ctx, ledger); err != nil {
		logger.WarnContext(ctx, "failed to record sync run start", xslog.Error(err))
	}

	logger.InfoContext(ctx, "sync started")

	err := s.run(ctx, mode, summary)
	summary.FinishedAt = s.opts.Now()

	s.finish(ctx, ledger, summary, err)
	return summary, err
}

func (s *Service) run(ctx context.Context, mode Mode, summary *Summary) error {
	start := s.windowStart(mode)
	p := paginator{pageSize: s.opts.PageSize, maxPages: s.opts.MaxPages, now: s.opts.Now}
	r := &reconciler{
		cycles:      s.client.Cycle,
		concurrency: s.opts.CycleConcurrency,
		attempts:    s.opts.CycleFetchAttempts,
		baseDelay:   s.opts.CycleRetryDelay,
		batchSize:   s.opts.BackfillBatch,
	}

	if err := s.syncUser(ctx, summary); err != nil {
		return &FatalError{Step: stepProfile, Err: err}
	}

	recoveries, err := fetchAll[whoop.Recovery](ctx, p, string(repository.KindRecovery), s.client.Recovery.List, start)
	if err != nil {
		return &FatalError{Step: stepRecoveries, Err: err}
	}
	noteTruncated(summary, repository.KindRecovery, recoveries)

	cycles := s.syncCycles(ctx, summary, p, start)

	deferred := inProgressCycles(cycles)
	ready := withoutCycles(recoveries.Records, deferred)

	reconciled := s.reconcileCycles(ctx, summary, r, ready, cycles)
	for _, id := range reconciled.InProgress {
		deferred[id] = struct{}{}
	}
	ready = withoutCycles(ready, deferred)

	s.syncSleeps(ctx, summary, p, start)

	backfill := r.applyBackfill(ctx, s.repo.Sleeps, SleepLinks(ready))
	summary.LinkedSleeps = backfill.Linked
	for _, err := range backfill.Errors {
		summary.addError(repository.KindSleep, err)
	}

	s.syncRecoveries(ctx, summary, ready)
	if skipped := len(recoveries.Records) - len(ready); skipped > 0 {
		xslog.FromContext(ctx).InfoContext(ctx, "deferred recoveries of in-progress cycles",
			xslog.Count(skipped),
		)
	}

	s.syncWorkouts(ctx, summary, p, start)

	return nil
}

func (s *Service) windowStart(mode Mode) *time.Time {
	if mode == ModeHistorical {
		return nil
	}
	start := s.opts.Now().Add(-s.opts.DailyWindow)
	return &start
}

// syncUser fails only when the profile cannot be fetched. Body measurements
// and the write itself are best effort.
func (s *Service) syncUser(ctx context.Context, summary *Summary) error {
	profile, err := s.client.User.GetProfile(ctx)
	if err != nil {
		return fmt.Errorf("failed to get profile: %w", err)
	}

	body, err := s.client.User.GetBodyMeasurement(ctx)
	if err != nil {
		summary.addError(repository.KindUser, fmt.Errorf("failed to get body measurement: %w", err))
		body = nil
	}

	if err := s.repo.Users.Upsert(ctx, profile, body); err != nil {
		summary.addError(repository.KindUser, fmt.Errorf("failed to store user %d: %w", profile.UserID, err))
		return nil
	}
	xslog.FromContext(ctx).DebugContext(ctx, "stored user", xslog.UserGroup(profile.UserID))
	return nil
}

func (s *Service) syncCycles(ctx context.Context, summary *Summary, p paginator, start *time.Time) *Page[whoop.Cycle] {
	cycles, err := fetchAll[whoop.Cycle](ctx, p, string(repository.KindCycle), s.client.Cycle.List, start)
	if err != nil {
		summary.addError(repository.KindCycle, err)
		return &Page[whoop.Cycle]{}
	}
	noteTruncated(summary, repository.KindCycle, cycles)
	res := s.repo.Cycles.UpsertMany(ctx, cycles.Records)
	summary.Cycles += res.Written
	addBatchErrors(summary, repository.KindCycle, res)
	return cycles
}

func (s *Service) reconcileCycles(
	ctx context.Context,
	summary *Summary,
	r *reconciler,
	recoveries []whoop.Recovery,
	cycles *Page[whoop.Cycle],
) *Reconciled {
	missing := MissingCycleIDs(recoveries, cycles.Records)
	if len(missing) == 0 {
		return &Reconciled{}
	}

	xslog.FromContext(ctx).InfoContext(ctx, "fetching cycles missing from pagination",
		xslog.Count(len(missing)),
	)

	reconciled := r.fetchMissing(ctx, missing)
	for _, gap := range reconciled.Gaps {
		summary.addError(repository.KindCycle, gap)
	}

	res := s.repo.Cycles.UpsertMany(ctx, reconciled.Cycles)
	summary.Cycles += res.Written
	addBatchErrors(summary, repository.KindCycle, res)
	return reconciled
}

func (s *Service) syncSleeps(ctx context.Context, summary *Summary, p paginator, start *time.Time) {
	sleeps, err := fetchAll[whoop.Sleep](ctx, p, string(repository.KindSleep), s.client.Sleep.List, start)
	if err != nil {
		summary.addError(repository.KindSleep, err)
		return
	}
	noteTruncated(summary, repository.KindSleep, sleeps)
	res := s.repo.Sleeps.UpsertMany(ctx, sleeps.Records)
	summary.Sleeps += res.Written
	addBatchErrors(summary, repository.KindSleep, res)
}

func (s *Service) syncRecoveries(ctx context.Context, summary *Summary, recoveries []whoop.Recovery) {
	res := s.repo.Recoveries.UpsertMany(ctx, recoveries)
	summary.Recoveries += res.Written
	addBatchErrors(summary, repository.KindRecovery, res)
}

func (s *Service) syncWorkouts(ctx context.Context, summary *Summary, p paginator, start *time.Time) {
	workouts, err := fetchAll[whoop.Workout](ctx, p, string(repository.KindWorkout), s.client.Workout.List, start)
	if err != nil {
		summary.addError(repository.KindWorkout, err)
		return
	}
	noteTruncated(summary, repository.KindWorkout, workouts)
	res := s.repo.Workouts.UpsertMany(ctx, workouts.Records)
	summary.Workouts += res.Written
	addBatchErrors(summary, repository.KindWorkout, res)
}

func (s *Service) finish(ctx context.Context, ledger *repository.SyncRun, summary *Summary, runErr error) {
	logger := xslog.FromContext(ctx)

	finished := summary.FinishedAt
	ledger.FinishedAt = &finished
	ledger.Cycles = summary.Cycles
	ledger.Sleeps = summary.Sleeps
	ledger.Recoveries = summary.Recoveries
	ledger.Workouts = summary.Workouts
	ledger.Errors = summary.Errors

	outcome := metrics.OutcomeSuccess
	switch {
	case runErr != nil:
		outcome = metrics.OutcomeFailed
		msg := runErr.Error()
		ledger.FatalError = &msg
	case len(summary.Errors) > 0:
		outcome = metrics.OutcomePartial
	}

	// the ledger outlives a cancelled run
	if err := s.repo.SyncRuns.Finish(context.WithoutCancel(ctx), ledger); err != nil {
		logger.WarnContext(ctx, "failed to record sync run finish", xslog.Error(err))
	}

	metrics.RecordSyncRun(string(summary.Mode), outcome, finished.Sub(summary.StartedAt))
	metrics.RecordRecordsWritten(string(repository.KindCycle), summary.Cycles)
	metrics.RecordRecordsWritten(string(repository.KindSleep), summary.Sleeps)
	metrics.RecordRecordsWritten(string(repository.KindRecovery), summary.Recoveries)
	metrics.RecordRecordsWritten(string(repository.KindWorkout), summary.Workouts)

	attrs := []any{
		slog.Int("cycles", summary.Cycles),
		slog.Int("sleeps", summary.Sleeps),
		slog.Int("recoveries", summary.Recoveries),
		slog.Int("workouts", summary.Workouts),
		slog.Int("linked_sleeps", summary.LinkedSleeps),
		slog.Int("errors", len(summary.Errors)),
		xslog.Duration(finished.Sub(summary.StartedAt)),
	}
	if len(summary.Truncated) > 0 {
		attrs = append(attrs, slog.Any("truncated", summary.Truncated))
	}
	if runErr != nil {
		var fatal *FatalError
		if errors.As(runErr, &fatal) {
			attrs = append(attrs, xslog.Step(fatal.Step))
		}
		logger.ErrorContext(ctx, "sync aborted", append(attrs, xslog.Error(runErr))...)
		return
	}
	logger.InfoContext(ctx, "sync finished", attrs...)
}

func addBatchErrors(summary *Summary, kind repository.Kind, res repository.BatchResult) {
	for _, err := range res.Errors {
		summary.addError(kind, err)
	}
}

func inProgressCycles(cycles *Page[whoop.Cycle]) map[int64]struct{} {
	ids := make(map[int64]struct{}, len(cycles.InProgress))
	for _, key := range cycles.InProgress {
		if id, err := strconv.ParseInt(key, 10, 64); err == nil {
			ids[id] = struct{}{}
		}
	}
	return ids
}

// withoutCycles drops recoveries of cycles that have not ended. They are
// written by a later run once the cycle is stored.
func withoutCycles(recoveries []whoop.Recovery, skip map[int64]struct{}) []whoop.Recovery {
	if len(skip) == 0 {
		return recoveries
	}
	out := make([]whoop.Recovery, 0, len(recoveries))
	for _, r := range recoveries {
		if _, ok := skip[r.CycleID]; ok {
			continue
		}
		out = append(out, r)
	}
	return out
}
