package repository

import (
	"context"
	"errors"
	"time"

	"github.com/garrettladley/whoopsync/internal/client/whoop"
	"github.com/garrettladley/whoopsync/internal/db"
)

type recoveryRepo struct {
	conn db.DBTX
}

const upsertRecoverySQL = `
INSERT INTO recoveries (
	cycle_id, sleep_id, user_id, created_at, updated_at, score_state, user_calibrating,
	recovery_score, resting_heart_rate, hrv_rmssd_milli, spo2_percentage, skin_temp_celsius,
	synced_at
) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
ON CONFLICT (cycle_id) DO UPDATE SET
	sleep_id = COALESCE(excluded.sleep_id, recoveries.sleep_id),
	user_id = excluded.user_id,
	created_at = excluded.created_at,
	updated_at = excluded.updated_at,
	score_state = excluded.score_state,
	user_calibrating = excluded.user_calibrating,
	recovery_score = excluded.recovery_score,
	resting_heart_rate = excluded.resting_heart_rate,
	hrv_rmssd_milli = excluded.hrv_rmssd_milli,
	spo2_percentage = excluded.spo2_percentage,
	skin_temp_celsius = excluded.skin_temp_celsius,
	synced_at = excluded.synced_at
WHERE excluded.score_state = 'SCORED' OR recoveries.score_state <> 'SCORED'`

func (r *recoveryRepo) Upsert(ctx context.Context, recovery *whoop.Recovery) (bool, error) {
	key := recovery.Key()

	var (
		sleepID *string
		race    error
	)
	if recovery.SleepID != "" {
		ok, err := exists(ctx, r.conn, "SELECT 1 FROM sleeps WHERE id = $1", recovery.SleepID)
		if err != nil {
			return false, &PersistenceError{Kind: KindRecovery, ID: key, Err: err}
		}
		if ok {
			sleepID = &recovery.SleepID
		} else {
			race = &PersistenceRaceError{Kind: KindRecovery, ID: key, MissingRef: "sleep " + recovery.SleepID}
		}
	}

	var (
		calibrating           *bool
		score, restingHR, hrv *float64
		spo2, skinTemp        *float64
	)
	if s, ok := recovery.Score.Value(); ok {
		calibrating = &s.UserCalibrating
		score, restingHR, hrv = &s.RecoveryScore, &s.RestingHeartRate, &s.HRVRmssdMilli
		spo2, skinTemp = s.SpO2Percentage, s.SkinTempCelsius
	}

	n, err := r.conn.Exec(ctx, upsertRecoverySQL,
		recovery.CycleID,
		sleepID,
		recovery.UserID,
		utc(recovery.CreatedAt),
		utc(recovery.UpdatedAt),
		string(recovery.Score.State()),
		calibrating,
		score,
		restingHR,
		hrv,
		spo2,
		skinTemp,
		time.Now().UTC(),
	)
	if err != nil {
		return false, &PersistenceError{Kind: KindRecovery, ID: key, Err: err}
	}
	return n > 0, race
}

func (r *recoveryRepo) UpsertMany(ctx context.Context, recoveries []whoop.Recovery) BatchResult {
	return upsertMany(ctx, KindRecovery, recoveries, func(r *whoop.Recovery) string { return r.Key() }, r.Upsert)
}

func (r *recoveryRepo) Get(ctx context.Context, cycleID int64) (*whoop.Recovery, error) {
	const query = `
SELECT cycle_id, sleep_id, user_id, created_at, updated_at, score_state, user_calibrating,
	recovery_score, resting_heart_rate, hrv_rmssd_milli, spo2_percentage, skin_temp_celsius
FROM recoveries WHERE cycle_id = $1`

	var (
		rec                   whoop.Recovery
		sleepID               *string
		state                 string
		calibrating           *bool
		score, restingHR, hrv *float64
		spo2, skinTemp        *float64
	)
	err := r.conn.QueryRow(ctx, query, cycleID).Scan(
		&rec.CycleID, &sleepID, &rec.UserID, &rec.CreatedAt, &rec.UpdatedAt, &state, &calibrating,
		&score, &restingHR, &hrv, &spo2, &skinTemp,
	)
	if errors.Is(err, db.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	rec.SleepID = deref(sleepID)

	var s *whoop.RecoveryScore
	if score != nil {
		s = &whoop.RecoveryScore{
			UserCalibrating:  deref(calibrating),
			RecoveryScore:    *score,
			RestingHeartRate: deref(restingHR),
			HRVRmssdMilli:    deref(hrv),
			SpO2Percentage:   spo2,
			SkinTempCelsius:  skinTemp,
		}
	}
	rec.Score = whoop.NewScored(whoop.ScoreState(state), s)
	return &rec, nil
}

func (r *recoveryRepo) Count(ctx context.Context) (int, error) {
	return count(ctx, r.conn, "recoveries")
}
