package repository

import (
	"errors"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"golang.org/x/oauth2"

	"github.com/garrettladley/whoopsync/internal/client/whoop"
)

var scoredOpts = cmp.Options{
	cmp.AllowUnexported(
		whoop.Scored[whoop.CycleScore]{},
		whoop.Scored[whoop.SleepScore]{},
		whoop.Scored[whoop.RecoveryScore]{},
		whoop.Scored[whoop.WorkoutScore]{},
	),
}

func TestCycleUpsertIsIdempotent(t *testing.T) {
	t.Parallel()
	repo, _ := setupTestRepo(t)
	ctx := t.Context()

	cycle := scoredCycle(93845)
	for range 2 {
		written, err := repo.Cycles.Upsert(ctx, &cycle)
		if err != nil {
			t.Fatalf("Upsert() error = %v", err)
		}
		if !written {
			t.Fatal("Upsert() written = false, want true")
		}
	}

	n, err := repo.Cycles.Count(ctx)
	if err != nil {
		t.Fatalf("Count() error = %v", err)
	}
	if n != 1 {
		t.Errorf("Count() = %d, want 1", n)
	}

	got, err := repo.Cycles.Get(ctx, cycle.ID)
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if diff := cmp.Diff(&cycle, got, scoredOpts); diff != "" {
		t.Errorf("Get() mismatch (-want +got):\n%s", diff)
	}
}

func TestCyclePendingScoreStoresNulls(t *testing.T) {
	t.Parallel()
	repo, conn := setupTestRepo(t)
	ctx := t.Context()

	cycle := pendingCycle(1)
	if _, err := repo.Cycles.Upsert(ctx, &cycle); err != nil {
		t.Fatalf("Upsert() error = %v", err)
	}

	var strain *float64
	var avgHR *int
	if err := conn.QueryRow(ctx, "SELECT strain, average_heart_rate FROM cycles WHERE id = $1", int64(1)).Scan(&strain, &avgHR); err != nil {
		t.Fatalf("Scan() error = %v", err)
	}
	if strain != nil || avgHR != nil {
		t.Errorf("score columns = (%v, %v), want NULL", strain, avgHR)
	}

	got, err := repo.Cycles.Get(ctx, 1)
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if got.Score.State() != whoop.ScoreStatePendingScore {
		t.Errorf("State() = %v, want PENDING_SCORE", got.Score.State())
	}
	if _, ok := got.Score.Value(); ok {
		t.Error("Value() ok = true for pending cycle")
	}
}

func TestUnscoredUpdateKeepsScoredRow(t *testing.T) {
	t.Parallel()
	repo, _ := setupTestRepo(t)
	ctx := t.Context()

	scored := scoredCycle(7)
	if _, err := repo.Cycles.Upsert(ctx, &scored); err != nil {
		t.Fatalf("Upsert(scored) error = %v", err)
	}

	pending := pendingCycle(7)
	written, err := repo.Cycles.Upsert(ctx, &pending)
	if err != nil {
		t.Fatalf("Upsert(pending) error = %v", err)
	}
	if written {
		t.Error("Upsert(pending) written = true over a scored row")
	}

	got, err := repo.Cycles.Get(ctx, 7)
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if diff := cmp.Diff(&scored, got, scoredOpts); diff != "" {
		t.Errorf("scored row changed (-want +got):\n%s", diff)
	}

	res := repo.Cycles.UpsertMany(ctx, []whoop.Cycle{pending, pendingCycle(8)})
	if res.Written != 1 || res.Skipped != 1 || len(res.Errors) != 0 {
		t.Errorf("UpsertMany() = %+v, want 1 written 1 skipped", res)
	}
}

func TestRecoveryOrphanSleepHeals(t *testing.T) {
	t.Parallel()
	repo, _ := setupTestRepo(t)
	ctx := t.Context()

	cycle := scoredCycle(100)
	if _, err := repo.Cycles.Upsert(ctx, &cycle); err != nil {
		t.Fatalf("Upsert(cycle) error = %v", err)
	}

	recovery := scoredRecovery(100, "sleep-a")
	res := repo.Recoveries.UpsertMany(ctx, []whoop.Recovery{recovery})
	if res.Written != 1 {
		t.Errorf("Written = %d, want 1", res.Written)
	}
	if len(res.Errors) != 1 {
		t.Fatalf("Errors = %v, want one race error", res.Errors)
	}
	var race *PersistenceRaceError
	if !errors.As(res.Errors[0], &race) {
		t.Fatalf("error = %T, want *PersistenceRaceError", res.Errors[0])
	}

	got, err := repo.Recoveries.Get(ctx, 100)
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if got.SleepID != "" {
		t.Errorf("SleepID = %q before sleep stored, want empty", got.SleepID)
	}

	sleep := scoredSleep("sleep-a")
	if _, err := repo.Sleeps.Upsert(ctx, &sleep); err != nil {
		t.Fatalf("Upsert(sleep) error = %v", err)
	}

	res = repo.Recoveries.UpsertMany(ctx, []whoop.Recovery{recovery})
	if res.Written != 1 || len(res.Errors) != 0 {
		t.Fatalf("second UpsertMany() = %+v, want clean write", res)
	}

	got, err = repo.Recoveries.Get(ctx, 100)
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if diff := cmp.Diff(&recovery, got, scoredOpts); diff != "" {
		t.Errorf("Get() mismatch (-want +got):\n%s", diff)
	}
}

func TestRecoveryMissingCycleIsCollected(t *testing.T) {
	t.Parallel()
	repo, _ := setupTestRepo(t)
	ctx := t.Context()

	cycle := scoredCycle(1)
	if _, err := repo.Cycles.Upsert(ctx, &cycle); err != nil {
		t.Fatalf("Upsert(cycle) error = %v", err)
	}

	res := repo.Recoveries.UpsertMany(ctx, []whoop.Recovery{
		scoredRecovery(404, ""),
		scoredRecovery(1, ""),
	})
	if res.Written != 1 {
		t.Errorf("Written = %d, want 1", res.Written)
	}
	if len(res.Errors) != 1 {
		t.Fatalf("Errors = %v, want 1", res.Errors)
	}
	var perr *PersistenceError
	if !errors.As(res.Errors[0], &perr) || perr.ID != "404" {
		t.Errorf("error = %v, want PersistenceError for 404", res.Errors[0])
	}
}

func TestSleepLinkCycle(t *testing.T) {
	t.Parallel()
	repo, _ := setupTestRepo(t)
	ctx := t.Context()

	sleep := scoredSleep("s1")
	if _, err := repo.Sleeps.Upsert(ctx, &sleep); err != nil {
		t.Fatalf("Upsert(sleep) error = %v", err)
	}

	linked, err := repo.Sleeps.LinkCycle(ctx, "s1", 55)
	if err != nil {
		t.Fatalf("LinkCycle() error = %v", err)
	}
	if linked {
		t.Error("LinkCycle() to unknown cycle = true")
	}

	cycle := scoredCycle(55)
	if _, err := repo.Cycles.Upsert(ctx, &cycle); err != nil {
		t.Fatalf("Upsert(cycle) error = %v", err)
	}
	if linked, err = repo.Sleeps.LinkCycle(ctx, "s1", 55); err != nil || !linked {
		t.Fatalf("LinkCycle() = %v, %v; want true, nil", linked, err)
	}

	// a later upsert without a cycle reference keeps the link
	if _, err := repo.Sleeps.Upsert(ctx, &sleep); err != nil {
		t.Fatalf("Upsert(sleep) error = %v", err)
	}

	got, err := repo.Sleeps.Get(ctx, "s1")
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if got.CycleID == nil || *got.CycleID != 55 {
		t.Errorf("CycleID = %v, want 55", got.CycleID)
	}

	want := sleep
	want.CycleID = ptr(int64(55))
	if diff := cmp.Diff(&want, got, scoredOpts); diff != "" {
		t.Errorf("Get() mismatch (-want +got):\n%s", diff)
	}
}

func TestSleepUpsertIgnoresUnknownCycle(t *testing.T) {
	t.Parallel()
	repo, _ := setupTestRepo(t)
	ctx := t.Context()

	sleep := scoredSleep("s2")
	sleep.CycleID = ptr(int64(999))
	if _, err := repo.Sleeps.Upsert(ctx, &sleep); err != nil {
		t.Fatalf("Upsert() error = %v", err)
	}
	got, err := repo.Sleeps.Get(ctx, "s2")
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if got.CycleID != nil {
		t.Errorf("CycleID = %d, want nil for unknown cycle", *got.CycleID)
	}
}

func TestWorkoutRoundTrip(t *testing.T) {
	t.Parallel()
	repo, _ := setupTestRepo(t)
	ctx := t.Context()

	workout := scoredWorkout("w1")
	res := repo.Workouts.UpsertMany(ctx, []whoop.Workout{workout, workout})
	if res.Written != 2 || len(res.Errors) != 0 {
		t.Fatalf("UpsertMany() = %+v", res)
	}
	if n, _ := repo.Workouts.Count(ctx); n != 1 {
		t.Errorf("Count() = %d, want 1", n)
	}

	got, err := repo.Workouts.Get(ctx, "w1")
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	want := workout
	want.SportName = "Cycling"
	if diff := cmp.Diff(&want, got, scoredOpts); diff != "" {
		t.Errorf("Get() mismatch (-want +got):\n%s", diff)
	}

	missing, err := repo.Workouts.Get(ctx, "nope")
	if err != nil || missing != nil {
		t.Errorf("Get(missing) = %v, %v; want nil, nil", missing, err)
	}
}

func TestUserUpsertKeepsBodyWhenAbsent(t *testing.T) {
	t.Parallel()
	repo, _ := setupTestRepo(t)
	ctx := t.Context()

	profile := &whoop.UserProfile{UserID: 10129, Email: "jsmith123@whoop.com", FirstName: "John", LastName: "Smith"}
	body := &whoop.BodyMeasurement{HeightMeter: 1.83, WeightKilogram: 90.7, MaxHeartRate: 200}

	if err := repo.Users.Upsert(ctx, profile, body); err != nil {
		t.Fatalf("Upsert() error = %v", err)
	}
	profile.Email = "john@example.com"
	if err := repo.Users.Upsert(ctx, profile, nil); err != nil {
		t.Fatalf("Upsert() without body error = %v", err)
	}

	got, err := repo.Users.Get(ctx, 10129)
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if got.Email != "john@example.com" {
		t.Errorf("Email = %q", got.Email)
	}
	if got.MaxHeartRate == nil || *got.MaxHeartRate != 200 {
		t.Errorf("MaxHeartRate = %v, want 200", got.MaxHeartRate)
	}
}

func TestTokenSaveKeepsRefreshToken(t *testing.T) {
	t.Parallel()
	repo, _ := setupTestRepo(t)
	ctx := t.Context()

	if tok, err := repo.Tokens.Get(ctx); err != nil || tok != nil {
		t.Fatalf("Get() on empty = %v, %v; want nil, nil", tok, err)
	}

	expiry := time.Date(2030, 1, 1, 0, 0, 0, 0, time.UTC)
	if err := repo.Tokens.Save(ctx, &oauth2.Token{AccessToken: "a1", RefreshToken: "r1", TokenType: "Bearer", Expiry: expiry}); err != nil {
		t.Fatalf("Save() error = %v", err)
	}
	if err := repo.Tokens.Save(ctx, &oauth2.Token{AccessToken: "a2", TokenType: "Bearer", Expiry: expiry.Add(time.Hour)}); err != nil {
		t.Fatalf("Save() error = %v", err)
	}

	got, err := repo.Tokens.Get(ctx)
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if got.AccessToken != "a2" || got.RefreshToken != "r1" || !got.Expiry.Equal(expiry.Add(time.Hour)) {
		t.Errorf("Get() = %+v", got)
	}
}

func TestSyncRunLedger(t *testing.T) {
	t.Parallel()
	repo, _ := setupTestRepo(t)
	ctx := t.Context()

	if run, err := repo.SyncRuns.Latest(ctx); err != nil || run != nil {
		t.Fatalf("Latest() on empty = %v, %v", run, err)
	}

	started := day
	older := &SyncRun{ID: "run-1", Mode: "daily", StartedAt: started.Add(-time.Hour)}
	run := &SyncRun{ID: "run-2", Mode: "historical", StartedAt: started}
	for _, r := range []*SyncRun{older, run} {
		if err := repo.SyncRuns.Start(ctx, r); err != nil {
			t.Fatalf("Start() error = %v", err)
		}
	}

	finished := started.Add(time.Minute)
	run.FinishedAt = &finished
	run.Cycles, run.Sleeps, run.Recoveries, run.Workouts = 3, 2, 3, 1
	run.Errors = []string{"recovery 1 references sleep x which is not stored yet"}
	if err := repo.SyncRuns.Finish(ctx, run); err != nil {
		t.Fatalf("Finish() error = %v", err)
	}

	got, err := repo.SyncRuns.Latest(ctx)
	if err != nil {
		t.Fatalf("Latest() error = %v", err)
	}
	if diff := cmp.Diff(run, got); diff != "" {
		t.Errorf("Latest() mismatch (-want +got):\n%s", diff)
	}
}
