package repository

import (
	"context"
	"errors"
	"time"

	"github.com/garrettladley/whoopsync/internal/client/whoop"
	"github.com/garrettladley/whoopsync/internal/db"
)

type sleepRepo struct {
	conn db.DBTX
}

// cycle_id is only taken from the record when that cycle is stored, and an
// absent value never clears a link set by LinkCycle.
const upsertSleepSQL = `
INSERT INTO sleeps (
	id, cycle_id, user_id, created_at, updated_at, start_time, end_time, timezone_offset, nap,
	score_state, respiratory_rate, sleep_performance_percentage, sleep_consistency_percentage,
	sleep_efficiency_percentage, total_in_bed_time_milli, total_awake_time_milli,
	total_no_data_time_milli, total_light_sleep_time_milli, total_slow_wave_sleep_time_milli,
	total_rem_sleep_time_milli, sleep_cycle_count, disturbance_count,
	sleep_needed_baseline_milli, sleep_needed_debt_milli, sleep_needed_strain_milli,
	sleep_needed_nap_milli, synced_at
) VALUES (
	$1, (SELECT id FROM cycles WHERE id = $2), $3, $4, $5, $6, $7, $8, $9,
	$10, $11, $12, $13,
	$14, $15, $16,
	$17, $18, $19,
	$20, $21, $22,
	$23, $24, $25,
	$26, $27
)
ON CONFLICT (id) DO UPDATE SET
	cycle_id = COALESCE(excluded.cycle_id, sleeps.cycle_id),
	user_id = excluded.user_id,
	created_at = excluded.created_at,
	updated_at = excluded.updated_at,
	start_time = excluded.start_time,
	end_time = excluded.end_time,
	timezone_offset = excluded.timezone_offset,
	nap = excluded.nap,
	score_state = excluded.score_state,
	respiratory_rate = excluded.respiratory_rate,
	sleep_performance_percentage = excluded.sleep_performance_percentage,
	sleep_consistency_percentage = excluded.sleep_consistency_percentage,
	sleep_efficiency_percentage = excluded.sleep_efficiency_percentage,
	total_in_bed_time_milli = excluded.total_in_bed_time_milli,
	total_awake_time_milli = excluded.total_awake_time_milli,
	total_no_data_time_milli = excluded.total_no_data_time_milli,
	total_light_sleep_time_milli = excluded.total_light_sleep_time_milli,
	total_slow_wave_sleep_time_milli = excluded.total_slow_wave_sleep_time_milli,
	total_rem_sleep_time_milli = excluded.total_rem_sleep_time_milli,
	sleep_cycle_count = excluded.sleep_cycle_count,
	disturbance_count = excluded.disturbance_count,
	sleep_needed_baseline_milli = excluded.sleep_needed_baseline_milli,
	sleep_needed_debt_milli = excluded.sleep_needed_debt_milli,
	sleep_needed_strain_milli = excluded.sleep_needed_strain_milli,
	sleep_needed_nap_milli = excluded.sleep_needed_nap_milli,
	synced_at = excluded.synced_at
WHERE excluded.score_state = 'SCORED' OR sleeps.score_state <> 'SCORED'`

// sleepScoreColumns is the nullable column set of a sleep score, in insert order.
type sleepScoreColumns struct {
	respiratoryRate, performance, consistency, efficiency *float64

	inBed, awake, noData, light, slowWave, rem, cycles, disturbances *int

	neededBaseline, neededDebt, neededStrain, neededNap *int
}

func sleepColumns(s whoop.Scored[whoop.SleepScore]) sleepScoreColumns {
	score, ok := s.Value()
	if !ok {
		return sleepScoreColumns{}
	}
	st, need := score.StageSummary, score.SleepNeeded
	return sleepScoreColumns{
		respiratoryRate: &score.RespiratoryRate,
		performance:     score.SleepPerformancePercentage,
		consistency:     score.SleepConsistencyPercentage,
		efficiency:      score.SleepEfficiencyPercentage,
		inBed:           &st.TotalInBedTimeMilli,
		awake:           &st.TotalAwakeTimeMilli,
		noData:          &st.TotalNoDataTimeMilli,
		light:           &st.TotalLightSleepTimeMilli,
		slowWave:        &st.TotalSlowWaveSleepTimeMilli,
		rem:             &st.TotalREMSleepTimeMilli,
		cycles:          &st.SleepCycleCount,
		disturbances:    &st.DisturbanceCount,
		neededBaseline:  &need.BaselineMilli,
		neededDebt:      &need.NeedFromSleepDebtMilli,
		neededStrain:    &need.NeedFromRecentStrainMilli,
		neededNap:       &need.NeedFromRecentNapMilli,
	}
}

func (c sleepScoreColumns) args() []any {
	return []any{
		c.respiratoryRate, c.performance, c.consistency,
		c.efficiency, c.inBed, c.awake,
		c.noData, c.light, c.slowWave,
		c.rem, c.cycles, c.disturbances,
		c.neededBaseline, c.neededDebt, c.neededStrain,
		c.neededNap,
	}
}

func (c *sleepScoreColumns) dest() []any {
	return []any{
		&c.respiratoryRate, &c.performance, &c.consistency,
		&c.efficiency, &c.inBed, &c.awake,
		&c.noData, &c.light, &c.slowWave,
		&c.rem, &c.cycles, &c.disturbances,
		&c.neededBaseline, &c.neededDebt, &c.neededStrain,
		&c.neededNap,
	}
}

func (c sleepScoreColumns) score() *whoop.SleepScore {
	if c.respiratoryRate == nil {
		return nil
	}
	return &whoop.SleepScore{
		StageSummary: whoop.SleepStages{
			TotalInBedTimeMilli:         deref(c.inBed),
			TotalAwakeTimeMilli:         deref(c.awake),
			TotalNoDataTimeMilli:        deref(c.noData),
			TotalLightSleepTimeMilli:    deref(c.light),
			TotalSlowWaveSleepTimeMilli: deref(c.slowWave),
			TotalREMSleepTimeMilli:      deref(c.rem),
			SleepCycleCount:             deref(c.cycles),
			DisturbanceCount:            deref(c.disturbances),
		},
		SleepNeeded: whoop.SleepNeeded{
			BaselineMilli:             deref(c.neededBaseline),
			NeedFromSleepDebtMilli:    deref(c.neededDebt),
			NeedFromRecentStrainMilli: deref(c.neededStrain),
			NeedFromRecentNapMilli:    deref(c.neededNap),
		},
		RespiratoryRate:            *c.respiratoryRate,
		SleepPerformancePercentage: c.performance,
		SleepConsistencyPercentage: c.consistency,
		SleepEfficiencyPercentage:  c.efficiency,
	}
}

func (r *sleepRepo) Upsert(ctx context.Context, sleep *whoop.Sleep) (bool, error) {
	args := []any{
		sleep.ID,
		sleep.CycleID,
		sleep.UserID,
		utc(sleep.CreatedAt),
		utc(sleep.UpdatedAt),
		utc(sleep.Start),
		utcPtr(sleep.End),
		sleep.TimezoneOffset,
		sleep.Nap,
		string(sleep.Score.State()),
	}
	args = append(args, sleepColumns(sleep.Score).args()...)
	args = append(args, time.Now().UTC())

	n, err := r.conn.Exec(ctx, upsertSleepSQL, args...)
	if err != nil {
		return false, &PersistenceError{Kind: KindSleep, ID: sleep.ID, Err: err}
	}
	return n > 0, nil
}

func (r *sleepRepo) UpsertMany(ctx context.Context, sleeps []whoop.Sleep) BatchResult {
	return upsertMany(ctx, KindSleep, sleeps, func(s *whoop.Sleep) string { return s.ID }, r.Upsert)
}

func (r *sleepRepo) Get(ctx context.Context, id string) (*whoop.Sleep, error) {
	const query = `
SELECT id, cycle_id, user_id, created_at, updated_at, start_time, end_time, timezone_offset, nap,
	score_state, respiratory_rate, sleep_performance_percentage, sleep_consistency_percentage,
	sleep_efficiency_percentage, total_in_bed_time_milli, total_awake_time_milli,
	total_no_data_time_milli, total_light_sleep_time_milli, total_slow_wave_sleep_time_milli,
	total_rem_sleep_time_milli, sleep_cycle_count, disturbance_count,
	sleep_needed_baseline_milli, sleep_needed_debt_milli, sleep_needed_strain_milli,
	sleep_needed_nap_milli
FROM sleeps WHERE id = $1`

	var (
		s     whoop.Sleep
		state string
		cols  sleepScoreColumns
	)
	dest := []any{
		&s.ID, &s.CycleID, &s.UserID, &s.CreatedAt, &s.UpdatedAt, &s.Start, &s.End,
		&s.TimezoneOffset, &s.Nap, &state,
	}
	dest = append(dest, cols.dest()...)

	err := r.conn.QueryRow(ctx, query, id).Scan(dest...)
	if errors.Is(err, db.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	s.Score = whoop.NewScored(whoop.ScoreState(state), cols.score())
	return &s, nil
}

func (r *sleepRepo) Exists(ctx context.Context, id string) (bool, error) {
	return exists(ctx, r.conn, "SELECT 1 FROM sleeps WHERE id = $1", id)
}

func (r *sleepRepo) LinkCycle(ctx context.Context, sleepID string, cycleID int64) (bool, error) {
	const query = `
UPDATE sleeps SET cycle_id = $1
WHERE id = $2 AND EXISTS (SELECT 1 FROM cycles WHERE id = $1)`

	n, err := r.conn.Exec(ctx, query, cycleID, sleepID)
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

func (r *sleepRepo) Count(ctx context.Context) (int, error) {
	return count(ctx, r.conn, "sleeps")
}
