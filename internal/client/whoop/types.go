package whoop

import (
	"strconv"
	"time"

	go_json "github.com/goccy/go-json"
)

type UserProfile struct {
	UserID    int64  `json:"user_id"`
	Email     string `json:"email"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
}

type BodyMeasurement struct {
	HeightMeter    float64 `json:"height_meter"`
	WeightKilogram float64 `json:"weight_kilogram"`
	MaxHeartRate   int     `json:"max_heart_rate"`
}

// Record is implemented by every paginated resource.
type Record interface {
	// Key is the external identifier used for deduplication.
	Key() string
	// Completed reports whether the record has a stable identity. In-progress
	// records (no end timestamp) are re-fetched once they close.
	Completed() bool
}

var (
	_ Record = Cycle{}
	_ Record = Sleep{}
	_ Record = Recovery{}
	_ Record = Workout{}
)

type Cycle struct {
	ID             int64              `json:"id"`
	UserID         int64              `json:"user_id"`
	CreatedAt      time.Time          `json:"created_at"`
	UpdatedAt      time.Time          `json:"updated_at"`
	Start          time.Time          `json:"start"`
	End            *time.Time         `json:"end"`
	TimezoneOffset string             `json:"timezone_offset"`
	Score          Scored[CycleScore] `json:"-"`
}

type CycleScore struct {
	Strain           float64 `json:"strain"`
	Kilojoule        float64 `json:"kilojoule"`
	AverageHeartRate int     `json:"average_heart_rate"`
	MaxHeartRate     int     `json:"max_heart_rate"`
}

func (c Cycle) Key() string     { return strconv.FormatInt(c.ID, 10) }
func (c Cycle) Completed() bool { return c.End != nil && !c.End.IsZero() }

func (c *Cycle) UnmarshalJSON(data []byte) error {
	type wire Cycle
	if err := go_json.Unmarshal(data, (*wire)(c)); err != nil {
		return err
	}
	score, err := decodeScored[CycleScore](data)
	if err != nil {
		return err
	}
	c.Score = score
	return nil
}

func (c Cycle) MarshalJSON() ([]byte, error) {
	type wire Cycle
	return go_json.Marshal(struct {
		wire
		scoredFields[CycleScore]
	}{wire(c), fieldsOf(c.Score)})
}

type Recovery struct {
	CycleID   int64                 `json:"cycle_id"`
	SleepID   string                `json:"sleep_id"`
	UserID    int64                 `json:"user_id"`
	CreatedAt time.Time             `json:"created_at"`
	UpdatedAt time.Time             `json:"updated_at"`
	Score     Scored[RecoveryScore] `json:"-"`
}

type RecoveryScore struct {
	UserCalibrating  bool     `json:"user_calibrating"`
	RecoveryScore    float64  `json:"recovery_score"`
	RestingHeartRate float64  `json:"resting_heart_rate"`
	HRVRmssdMilli    float64  `json:"hrv_rmssd_milli"`
	SpO2Percentage   *float64 `json:"spo2_percentage"`
	SkinTempCelsius  *float64 `json:"skin_temp_celsius"`
}

func (r Recovery) Key() string { return strconv.FormatInt(r.CycleID, 10) }

// Completed is always true: a recovery is keyed by its cycle and has no end.
func (r Recovery) Completed() bool { return true }

func (r *Recovery) UnmarshalJSON(data []byte) error {
	type wire Recovery
	if err := go_json.Unmarshal(data, (*wire)(r)); err != nil {
		return err
	}
	score, err := decodeScored[RecoveryScore](data)
	if err != nil {
		return err
	}
	r.Score = score
	return nil
}

func (r Recovery) MarshalJSON() ([]byte, error) {
	type wire Recovery
	return go_json.Marshal(struct {
		wire
		scoredFields[RecoveryScore]
	}{wire(r), fieldsOf(r.Score)})
}

type Sleep struct {
	ID             string             `json:"id"`
	CycleID        *int64             `json:"cycle_id,omitempty"`
	V1ID           *int64             `json:"v1_id"`
	UserID         int64              `json:"user_id"`
	CreatedAt      time.Time          `json:"created_at"`
	UpdatedAt      time.Time          `json:"updated_at"`
	Start          time.Time          `json:"start"`
	End            *time.Time         `json:"end"`
	TimezoneOffset string             `json:"timezone_offset"`
	Nap            bool               `json:"nap"`
	Score          Scored[SleepScore] `json:"-"`
}

type SleepScore struct {
	StageSummary               SleepStages `json:"stage_summary"`
	SleepNeeded                SleepNeeded `json:"sleep_needed"`
	RespiratoryRate            float64     `json:"respiratory_rate"`
	SleepPerformancePercentage *float64    `json:"sleep_performance_percentage"`
	SleepConsistencyPercentage *float64    `json:"sleep_consistency_percentage"`
	SleepEfficiencyPercentage  *float64    `json:"sleep_efficiency_percentage"`
}

type SleepStages struct {
	TotalInBedTimeMilli         int `json:"total_in_bed_time_milli"`
	TotalAwakeTimeMilli         int `json:"total_awake_time_milli"`
	TotalNoDataTimeMilli        int `json:"total_no_data_time_milli"`
	TotalLightSleepTimeMilli    int `json:"total_light_sleep_time_milli"`
	TotalSlowWaveSleepTimeMilli int `json:"total_slow_wave_sleep_time_milli"`
	TotalREMSleepTimeMilli      int `json:"total_rem_sleep_time_milli"`
	SleepCycleCount             int `json:"sleep_cycle_count"`
	DisturbanceCount            int `json:"disturbance_count"`
}

type SleepNeeded struct {
	BaselineMilli             int `json:"baseline_milli"`
	NeedFromSleepDebtMilli    int `json:"need_from_sleep_debt_milli"`
	NeedFromRecentStrainMilli int `json:"need_from_recent_strain_milli"`
	NeedFromRecentNapMilli    int `json:"need_from_recent_nap_milli"`
}

func (s Sleep) Key() string     { return s.ID }
func (s Sleep) Completed() bool { return s.End != nil && !s.End.IsZero() }

func (s *Sleep) UnmarshalJSON(data []byte) error {
	type wire Sleep
	if err := go_json.Unmarshal(data, (*wire)(s)); err != nil {
		return err
	}
	if s.CycleID != nil && *s.CycleID == 0 {
		s.CycleID = nil
	}
	score, err := decodeScored[SleepScore](data)
	if err != nil {
		return err
	}
	s.Score = score
	return nil
}

func (s Sleep) MarshalJSON() ([]byte, error) {
	type wire Sleep
	return go_json.Marshal(struct {
		wire
		scoredFields[SleepScore]
	}{wire(s), fieldsOf(s.Score)})
}

type Workout struct {
	ID             string               `json:"id"`
	V1ID           *int64               `json:"v1_id"`
	UserID         int64                `json:"user_id"`
	CreatedAt      time.Time            `json:"created_at"`
	UpdatedAt      time.Time            `json:"updated_at"`
	Start          time.Time            `json:"start"`
	End            *time.Time           `json:"end"`
	TimezoneOffset string               `json:"timezone_offset"`
	SportID        int                  `json:"sport_id"`
	SportName      string               `json:"sport_name"`
	Score          Scored[WorkoutScore] `json:"-"`
}

type WorkoutScore struct {
	Strain              float64      `json:"strain"`
	AverageHeartRate    int          `json:"average_heart_rate"`
	MaxHeartRate        int          `json:"max_heart_rate"`
	Kilojoule           float64      `json:"kilojoule"`
	PercentRecorded     float64      `json:"percent_recorded"`
	DistanceMeter       *float64     `json:"distance_meter"`
	AltitudeGainMeter   *float64     `json:"altitude_gain_meter"`
	AltitudeChangeMeter *float64     `json:"altitude_change_meter"`
	ZoneDurations       WorkoutZones `json:"zone_durations"`
}

type WorkoutZones struct {
	ZoneZeroMilli  int `json:"zone_zero_milli"`
	ZoneOneMilli   int `json:"zone_one_milli"`
	ZoneTwoMilli   int `json:"zone_two_milli"`
	ZoneThreeMilli int `json:"zone_three_milli"`
	ZoneFourMilli  int `json:"zone_four_milli"`
	ZoneFiveMilli  int `json:"zone_five_milli"`
}

func (w Workout) Key() string     { return w.ID }
func (w Workout) Completed() bool { return w.End != nil && !w.End.IsZero() }

// Sport returns the sport name reported by the API, falling back to the
// sport id lookup for records that predate sport_name.
func (w Workout) Sport() string {
	if w.SportName != "" {
		return w.SportName
	}
	return SportName(w.SportID)
}

func (w *Workout) UnmarshalJSON(data []byte) error {
	type wire Workout
	if err := go_json.Unmarshal(data, (*wire)(w)); err != nil {
		return err
	}
	score, err := decodeScored[WorkoutScore](data)
	if err != nil {
		return err
	}
	w.Score = score
	return nil
}

func (w Workout) MarshalJSON() ([]byte, error) {
	type wire Workout
	return go_json.Marshal(struct {
		wire
		scoredFields[WorkoutScore]
	}{wire(w), fieldsOf(w.Score)})
}
