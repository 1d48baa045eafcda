package repository

import (
	"context"
	"errors"
	"strconv"
	"time"

	"github.com/garrettladley/whoopsync/internal/client/whoop"
	"github.com/garrettladley/whoopsync/internal/db"
)

type cycleRepo struct {
	conn db.DBTX
}

const upsertCycleSQL = `
INSERT INTO cycles (
	id, user_id, created_at, updated_at, start_time, end_time, timezone_offset,
	score_state, strain, kilojoule, average_heart_rate, max_heart_rate, synced_at
) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
ON CONFLICT (id) DO UPDATE SET
	user_id = excluded.user_id,
	created_at = excluded.created_at,
	updated_at = excluded.updated_at,
	start_time = excluded.start_time,
	end_time = excluded.end_time,
	timezone_offset = excluded.timezone_offset,
	score_state = excluded.score_state,
	strain = excluded.strain,
	kilojoule = excluded.kilojoule,
	average_heart_rate = excluded.average_heart_rate,
	max_heart_rate = excluded.max_heart_rate,
	synced_at = excluded.synced_at
WHERE excluded.score_state = 'SCORED' OR cycles.score_state <> 'SCORED'`

func (r *cycleRepo) Upsert(ctx context.Context, cycle *whoop.Cycle) (bool, error) {
	var (
		strain, kilojoule *float64
		avgHR, maxHR      *int
	)
	if s, ok := cycle.Score.Value(); ok {
		strain, kilojoule = &s.Strain, &s.Kilojoule
		avgHR, maxHR = &s.AverageHeartRate, &s.MaxHeartRate
	}

	n, err := r.conn.Exec(ctx, upsertCycleSQL,
		cycle.ID,
		cycle.UserID,
		utc(cycle.CreatedAt),
		utc(cycle.UpdatedAt),
		utc(cycle.Start),
		utcPtr(cycle.End),
		cycle.TimezoneOffset,
		string(cycle.Score.State()),
		strain,
		kilojoule,
		avgHR,
		maxHR,
		time.Now().UTC(),
	)
	if err != nil {
		return false, &PersistenceError{Kind: KindCycle, ID: cycle.Key(), Err: err}
	}
	return n > 0, nil
}

func (r *cycleRepo) UpsertMany(ctx context.Context, cycles []whoop.Cycle) BatchResult {
	return upsertMany(ctx, KindCycle, cycles, func(c *whoop.Cycle) string { return c.Key() }, r.Upsert)
}

func (r *cycleRepo) Get(ctx context.Context, id int64) (*whoop.Cycle, error) {
	const query = `
SELECT id, user_id, created_at, updated_at, start_time, end_time, timezone_offset,
	score_state, strain, kilojoule, average_heart_rate, max_heart_rate
FROM cycles WHERE id = $1`

	var (
		c                 whoop.Cycle
		state             string
		strain, kilojoule *float64
		avgHR, maxHR      *int
	)
	err := r.conn.QueryRow(ctx, query, id).Scan(
		&c.ID, &c.UserID, &c.CreatedAt, &c.UpdatedAt, &c.Start, &c.End, &c.TimezoneOffset,
		&state, &strain, &kilojoule, &avgHR, &maxHR,
	)
	if errors.Is(err, db.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	var score *whoop.CycleScore
	if strain != nil {
		score = &whoop.CycleScore{
			Strain:           *strain,
			Kilojoule:        deref(kilojoule),
			AverageHeartRate: deref(avgHR),
			MaxHeartRate:     deref(maxHR),
		}
	}
	c.Score = whoop.NewScored(whoop.ScoreState(state), score)
	return &c, nil
}

func (r *cycleRepo) Exists(ctx context.Context, id int64) (bool, error) {
	return exists(ctx, r.conn, "SELECT 1 FROM cycles WHERE id = $1", id)
}

func (r *cycleRepo) Count(ctx context.Context) (int, error) {
	return count(ctx, r.conn, "cycles")
}

func exists(ctx context.Context, conn db.DBTX, query string, arg any) (bool, error) {
	var one int
	err := conn.QueryRow(ctx, query, arg).Scan(&one)
	if errors.Is(err, db.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

func deref[T any](p *T) T {
	if p == nil {
		var zero T
		return zero
	}
	return *p
}

func formatID(id int64) string { return strconv.FormatInt(id, 10) }
