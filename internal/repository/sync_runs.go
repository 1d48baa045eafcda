package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	go_json "github.com/goccy/go-json"

	"github.com/garrettladley/whoopsync/internal/db"
)

// SyncRun is one row of the sync ledger.
type SyncRun struct {
	ID         string     `json:"id"`
	Mode       string     `json:"mode"`
	StartedAt  time.Time  `json:"started_at"`
	FinishedAt *time.Time `json:"finished_at,omitempty"`
	Cycles     int        `json:"cycles"`
	Sleeps     int        `json:"sleeps"`
	Recoveries int        `json:"recoveries"`
	Workouts   int        `json:"workouts"`
	Errors     []string   `json:"errors"`
	FatalError *string    `json:"fatal_error,omitempty"`
}

type SyncRunRepository interface {
	Start(ctx context.Context, run *SyncRun) error
	Finish(ctx context.Context, run *SyncRun) error
	// Latest returns nil, nil when no run has been recorded.
	Latest(ctx context.Context) (*SyncRun, error)
}

type syncRunRepo struct {
	conn db.DBTX
}

func (r *syncRunRepo) Start(ctx context.Context, run *SyncRun) error {
	const query = `INSERT INTO sync_runs (id, mode, started_at) VALUES ($1, $2, $3)`
	if _, err := r.conn.Exec(ctx, query, run.ID, run.Mode, run.StartedAt.UTC()); err != nil {
		return fmt.Errorf("failed to record sync run start: %w", err)
	}
	return nil
}

func (r *syncRunRepo) Finish(ctx context.Context, run *SyncRun) error {
	const query = `
UPDATE sync_runs SET
	finished_at = $1, cycles = $2, sleeps = $3, recoveries = $4, workouts = $5,
	error_count = $6, errors = $7, fatal_error = $8
WHERE id = $9`

	errs := run.Errors
	if errs == nil {
		errs = []string{}
	}
	data, err := go_json.Marshal(errs)
	if err != nil {
		return fmt.Errorf("failed to marshal sync errors: %w", err)
	}

	_, err = r.conn.Exec(ctx, query,
		utcPtr(run.FinishedAt),
		run.Cycles,
		run.Sleeps,
		run.Recoveries,
		run.Workouts,
		len(run.Errors),
		string(data),
		run.FatalError,
		run.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to record sync run finish: %w", err)
	}
	return nil
}

func (r *syncRunRepo) Latest(ctx context.Context) (*SyncRun, error) {
	const query = `
SELECT id, mode, started_at, finished_at, cycles, sleeps, recoveries, workouts, errors, fatal_error
FROM sync_runs ORDER BY started_at DESC LIMIT 1`

	var (
		run  SyncRun
		errs string
	)
	err := r.conn.QueryRow(ctx, query).Scan(
		&run.ID, &run.Mode, &run.StartedAt, &run.FinishedAt,
		&run.Cycles, &run.Sleeps, &run.Recoveries, &run.Workouts, &errs, &run.FatalError,
	)
	if errors.Is(err, db.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	if err := go_json.Unmarshal([]byte(errs), &run.Errors); err != nil {
		return nil, fmt.Errorf("failed to unmarshal sync errors: %w", err)
	}
	return &run, nil
}
