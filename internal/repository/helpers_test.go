package repository

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/garrettladley/whoopsync/internal/client/whoop"
	"github.com/garrettladley/whoopsync/internal/db"
	"github.com/garrettladley/whoopsync/internal/migrations"
)

func setupTestRepo(t *testing.T) (*Repository, db.DBTX) {
	t.Helper()

	sqlDB, err := db.OpenSQLite(t.Context(), filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("OpenSQLite() error = %v", err)
	}
	t.Cleanup(func() { _ = sqlDB.Close() })

	conn := db.NewSQL(sqlDB)
	if _, err := migrations.Apply(t.Context(), conn, db.DialectSQLite); err != nil {
		t.Fatalf("migrations.Apply() error = %v", err)
	}
	return New(conn), conn
}

var day = time.Date(2024, 3, 10, 0, 0, 0, 0, time.UTC)

func ptr[T any](v T) *T { return &v }

func scoredCycle(id int64) whoop.Cycle {
	return whoop.Cycle{
		ID:             id,
		UserID:         10129,
		CreatedAt:      day,
		UpdatedAt:      day.Add(time.Hour),
		Start:          day,
		End:            ptr(day.Add(24 * time.Hour)),
		TimezoneOffset: "-05:00",
		Score: whoop.NewScored(whoop.ScoreStateScored, &whoop.CycleScore{
			Strain:           12.5,
			Kilojoule:        9000,
			AverageHeartRate: 70,
			MaxHeartRate:     160,
		}),
	}
}

func pendingCycle(id int64) whoop.Cycle {
	c := scoredCycle(id)
	c.Score = whoop.Pending[whoop.CycleScore]()
	return c
}

func scoredSleep(id string) whoop.Sleep {
	return whoop.Sleep{
		ID:             id,
		UserID:         10129,
		CreatedAt:      day,
		UpdatedAt:      day,
		Start:          day.Add(-8 * time.Hour),
		End:            ptr(day),
		TimezoneOffset: "-05:00",
		Score: whoop.NewScored(whoop.ScoreStateScored, &whoop.SleepScore{
			StageSummary: whoop.SleepStages{
				TotalInBedTimeMilli:      30_000_000,
				TotalLightSleepTimeMilli: 14_000_000,
				TotalREMSleepTimeMilli:   6_000_000,
				DisturbanceCount:         12,
			},
			SleepNeeded:                whoop.SleepNeeded{BaselineMilli: 27_000_000},
			RespiratoryRate:            16.1,
			SleepPerformancePercentage: ptr(98.0),
			SleepEfficiencyPercentage:  ptr(91.7),
		}),
	}
}

func scoredRecovery(cycleID int64, sleepID string) whoop.Recovery {
	return whoop.Recovery{
		CycleID:   cycleID,
		SleepID:   sleepID,
		UserID:    10129,
		CreatedAt: day,
		UpdatedAt: day,
		Score: whoop.NewScored(whoop.ScoreStateScored, &whoop.RecoveryScore{
			RecoveryScore:    44,
			RestingHeartRate: 64,
			HRVRmssdMilli:    31.8,
			SpO2Percentage:   ptr(95.7),
		}),
	}
}

func scoredWorkout(id string) whoop.Workout {
	return whoop.Workout{
		ID:             id,
		UserID:         10129,
		CreatedAt:      day,
		UpdatedAt:      day,
		Start:          day.Add(10 * time.Hour),
		End:            ptr(day.Add(11 * time.Hour)),
		TimezoneOffset: "-05:00",
		SportID:        1,
		Score: whoop.NewScored(whoop.ScoreStateScored, &whoop.WorkoutScore{
			Strain:           8.3,
			AverageHeartRate: 123,
			MaxHeartRate:     146,
			Kilojoule:        1569.3,
			PercentRecorded:  100,
			DistanceMeter:    ptr(1772.8),
			ZoneDurations:    whoop.WorkoutZones{ZoneTwoMilli: 600_000, ZoneThreeMilli: 900_000},
		}),
	}
}
