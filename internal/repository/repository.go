package repository

import (
	"context"
	"time"

	"github.com/garrettladley/whoopsync/internal/client/whoop"
	"github.com/garrettladley/whoopsync/internal/db"
	"github.com/garrettladley/whoopsync/internal/xslog"
)

type Repository struct {
	Users      UserRepository
	Cycles     CycleRepository
	Sleeps     SleepRepository
	Recoveries RecoveryRepository
	Workouts   WorkoutRepository
	Tokens     TokenRepository
	SyncRuns   SyncRunRepository
}

func New(conn db.DBTX) *Repository {
	return &Repository{
		Users:      &userRepo{conn: conn},
		Cycles:     &cycleRepo{conn: conn},
		Sleeps:     &sleepRepo{conn: conn},
		Recoveries: &recoveryRepo{conn: conn},
		Workouts:   &workoutRepo{conn: conn},
		Tokens:     &tokenRepo{conn: conn},
		SyncRuns:   &syncRunRepo{conn: conn},
	}
}

// Kind names a stored resource in errors, logs and metrics.
type Kind string

const (
	KindUser     Kind = "user"
	KindCycle    Kind = "cycle"
	KindSleep    Kind = "sleep"
	KindRecovery Kind = "recovery"
	KindWorkout  Kind = "workout"
)

// Upsert methods report written=false when the store kept an already scored
// row instead of overwriting it with an unscored copy.

type UserRepository interface {
	// Upsert stores the profile. A nil body keeps previously stored measurements.
	Upsert(ctx context.Context, profile *whoop.UserProfile, body *whoop.BodyMeasurement) error
	Get(ctx context.Context, id int64) (*User, error)
}

type CycleRepository interface {
	Upsert(ctx context.Context, cycle *whoop.Cycle) (bool, error)
	UpsertMany(ctx context.Context, cycles []whoop.Cycle) BatchResult
	Get(ctx context.Context, id int64) (*whoop.Cycle, error)
	Exists(ctx context.Context, id int64) (bool, error)
	Count(ctx context.Context) (int, error)
}

type SleepRepository interface {
	Upsert(ctx context.Context, sleep *whoop.Sleep) (bool, error)
	UpsertMany(ctx context.Context, sleeps []whoop.Sleep) BatchResult
	Get(ctx context.Context, id string) (*whoop.Sleep, error)
	Exists(ctx context.Context, id string) (bool, error)
	// LinkCycle sets the cycle reference of a stored sleep. It reports false
	// when either row is missing.
	LinkCycle(ctx context.Context, sleepID string, cycleID int64) (bool, error)
	Count(ctx context.Context) (int, error)
}

type RecoveryRepository interface {
	// Upsert may return a *PersistenceRaceError alongside written=true when the
	// referenced sleep is not stored yet; the row is written without it.
	Upsert(ctx context.Context, recovery *whoop.Recovery) (bool, error)
	UpsertMany(ctx context.Context, recoveries []whoop.Recovery) BatchResult
	Get(ctx context.Context, cycleID int64) (*whoop.Recovery, error)
	Count(ctx context.Context) (int, error)
}

type WorkoutRepository interface {
	Upsert(ctx context.Context, workout *whoop.Workout) (bool, error)
	UpsertMany(ctx context.Context, workouts []whoop.Workout) BatchResult
	Get(ctx context.Context, id string) (*whoop.Workout, error)
	Count(ctx context.Context) (int, error)
}

type User struct {
	ID             int64
	Email          string
	FirstName      string
	LastName       string
	HeightMeter    *float64
	WeightKilogram *float64
	MaxHeartRate   *int
	UpdatedAt      time.Time
}

// BatchResult is the outcome of a bulk upsert. Records are written one at a
// time so a failure only loses that record.
type BatchResult struct {
	Written int
	Skipped int
	Errors  []error
}

func upsertMany[T any](
	ctx context.Context,
	kind Kind,
	records []T,
	key func(*T) string,
	upsert func(context.Context, *T) (bool, error),
) BatchResult {
	logger := xslog.FromContext(ctx)

	var res BatchResult
	for i := range records {
		rec := &records[i]
		written, err := upsert(ctx, rec)
		if written {
			res.Written++
		} else if err == nil {
			res.Skipped++
			logger.DebugContext(ctx, "kept scored row over unscored update",
				xslog.Kind(string(kind)),
				xslog.ID(key(rec)),
			)
		}
		if err != nil {
			logger.WarnContext(ctx, "upsert failed",
				xslog.Kind(string(kind)),
				xslog.ID(key(rec)),
				xslog.Error(err),
			)
			res.Errors = append(res.Errors, err)
		}
	}

	if len(records) > 0 {
		logger.DebugContext(ctx, "upserted batch",
			xslog.BatchGroup(string(kind), res.Written, res.Skipped, len(res.Errors)),
		)
	}
	return res
}

func count(ctx context.Context, conn db.DBTX, table string) (int, error) {
	var n int
	if err := conn.QueryRow(ctx, "SELECT COUNT(*) FROM "+table).Scan(&n); err != nil {
		return 0, err
	}
	return n, nil
}

func utc(t time.Time) time.Time { return t.UTC() }

func utcPtr(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	u := t.UTC()
	return &u
}
