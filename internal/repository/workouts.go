package repository

import (
	"context"
	"errors"
	"time"

	"github.com/garrettladley/whoopsync/internal/client/whoop"
	"github.com/garrettladley/whoopsync/internal/db"
)

type workoutRepo struct {
	conn db.DBTX
}

const upsertWorkoutSQL = `
INSERT INTO workouts (
	id, user_id, created_at, updated_at, start_time, end_time, timezone_offset, sport_id,
	sport_name, score_state, strain, average_heart_rate, max_heart_rate, kilojoule,
	percent_recorded, distance_meter, altitude_gain_meter, altitude_change_meter,
	zone_zero_milli, zone_one_milli, zone_two_milli, zone_three_milli, zone_four_milli,
	zone_five_milli, synced_at
) VALUES (
	$1, $2, $3, $4, $5, $6, $7, $8,
	$9, $10, $11, $12, $13, $14,
	$15, $16, $17, $18,
	$19, $20, $21, $22, $23,
	$24, $25
)
ON CONFLICT (id) DO UPDATE SET
	user_id = excluded.user_id,
	created_at = excluded.created_at,
	updated_at = excluded.updated_at,
	start_time = excluded.start_time,
	end_time = excluded.end_time,
	timezone_offset = excluded.timezone_offset,
	sport_id = excluded.sport_id,
	sport_name = excluded.sport_name,
	score_state = excluded.score_state,
	strain = excluded.strain,
	average_heart_rate = excluded.average_heart_rate,
	max_heart_rate = excluded.max_heart_rate,
	kilojoule = excluded.kilojoule,
	percent_recorded = excluded.percent_recorded,
	distance_meter = excluded.distance_meter,
	altitude_gain_meter = excluded.altitude_gain_meter,
	altitude_change_meter = excluded.altitude_change_meter,
	zone_zero_milli = excluded.zone_zero_milli,
	zone_one_milli = excluded.zone_one_milli,
	zone_two_milli = excluded.zone_two_milli,
	zone_three_milli = excluded.zone_three_milli,
	zone_four_milli = excluded.zone_four_milli,
	zone_five_milli = excluded.zone_five_milli,
	synced_at = excluded.synced_at
WHERE excluded.score_state = 'SCORED' OR workouts.score_state <> 'SCORED'`

type workoutScoreColumns struct {
	strain, kilojoule, percentRecorded *float64
	avgHR, maxHR                       *int
	distance, altGain, altChange       *float64
	zones                              [6]*int
}

func workoutColumns(s whoop.Scored[whoop.WorkoutScore]) workoutScoreColumns {
	score, ok := s.Value()
	if !ok {
		return workoutScoreColumns{}
	}
	z := score.ZoneDurations
	return workoutScoreColumns{
		strain:          &score.Strain,
		kilojoule:       &score.Kilojoule,
		percentRecorded: &score.PercentRecorded,
		avgHR:           &score.AverageHeartRate,
		maxHR:           &score.MaxHeartRate,
		distance:        score.DistanceMeter,
		altGain:         score.AltitudeGainMeter,
		altChange:       score.AltitudeChangeMeter,
		zones: [6]*int{
			&z.ZoneZeroMilli, &z.ZoneOneMilli, &z.ZoneTwoMilli,
			&z.ZoneThreeMilli, &z.ZoneFourMilli, &z.ZoneFiveMilli,
		},
	}
}

func (c workoutScoreColumns) args() []any {
	return []any{
		c.strain, c.avgHR, c.maxHR, c.kilojoule,
		c.percentRecorded, c.distance, c.altGain, c.altChange,
		c.zones[0], c.zones[1], c.zones[2], c.zones[3], c.zones[4],
		c.zones[5],
	}
}

func (c *workoutScoreColumns) dest() []any {
	return []any{
		&c.strain, &c.avgHR, &c.maxHR, &c.kilojoule,
		&c.percentRecorded, &c.distance, &c.altGain, &c.altChange,
		&c.zones[0], &c.zones[1], &c.zones[2], &c.zones[3], &c.zones[4],
		&c.zones[5],
	}
}

func (c workoutScoreColumns) score() *whoop.WorkoutScore {
	if c.strain == nil {
		return nil
	}
	return &whoop.WorkoutScore{
		Strain:              *c.strain,
		AverageHeartRate:    deref(c.avgHR),
		MaxHeartRate:        deref(c.maxHR),
		Kilojoule:           deref(c.kilojoule),
		PercentRecorded:     deref(c.percentRecorded),
		DistanceMeter:       c.distance,
		AltitudeGainMeter:   c.altGain,
		AltitudeChangeMeter: c.altChange,
		ZoneDurations: whoop.WorkoutZones{
			ZoneZeroMilli:  deref(c.zones[0]),
			ZoneOneMilli:   deref(c.zones[1]),
			ZoneTwoMilli:   deref(c.zones[2]),
			ZoneThreeMilli: deref(c.zones[3]),
			ZoneFourMilli:  deref(c.zones[4]),
			ZoneFiveMilli:  deref(c.zones[5]),
		},
	}
}

func (r *workoutRepo) Upsert(ctx context.Context, workout *whoop.Workout) (bool, error) {
	args := []any{
		workout.ID,
		workout.UserID,
		utc(workout.CreatedAt),
		utc(workout.UpdatedAt),
		utc(workout.Start),
		utcPtr(workout.End),
		workout.TimezoneOffset,
		workout.SportID,
		workout.Sport(),
		string(workout.Score.State()),
	}
	args = append(args, workoutColumns(workout.Score).args()...)
	args = append(args, time.Now().UTC())

	n, err := r.conn.Exec(ctx, upsertWorkoutSQL, args...)
	if err != nil {
		return false, &PersistenceError{Kind: KindWorkout, ID: workout.ID, Err: err}
	}
	return n > 0, nil
}

func (r *workoutRepo) UpsertMany(ctx context.Context, workouts []whoop.Workout) BatchResult {
	return upsertMany(ctx, KindWorkout, workouts, func(w *whoop.Workout) string { return w.ID }, r.Upsert)
}

func (r *workoutRepo) Get(ctx context.Context, id string) (*whoop.Workout, error) {
	const query = `
SELECT id, user_id, created_at, updated_at, start_time, end_time, timezone_offset, sport_id,
	sport_name, score_state, strain, average_heart_rate, max_heart_rate, kilojoule,
	percent_recorded, distance_meter, altitude_gain_meter, altitude_change_meter,
	zone_zero_milli, zone_one_milli, zone_two_milli, zone_three_milli, zone_four_milli,
	zone_five_milli
FROM workouts WHERE id = $1`

	var (
		w     whoop.Workout
		state string
		cols  workoutScoreColumns
	)
	dest := []any{
		&w.ID, &w.UserID, &w.CreatedAt, &w.UpdatedAt, &w.Start, &w.End, &w.TimezoneOffset,
		&w.SportID, &w.SportName, &state,
	}
	dest = append(dest, cols.dest()...)

	err := r.conn.QueryRow(ctx, query, id).Scan(dest...)
	if errors.Is(err, db.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	w.Score = whoop.NewScored(whoop.ScoreState(state), cols.score())
	return &w, nil
}

func (r *workoutRepo) Count(ctx context.Context) (int, error) {
	return count(ctx, r.conn, "workouts")
}
