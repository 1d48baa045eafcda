package xsync

import (
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strconv"
	"sync"
	"testing"
	"time"

	go_json "github.com/goccy/go-json"
	"golang.org/x/oauth2"

	"github.com/garrettladley/whoopsync/internal/client/whoop"
	"github.com/garrettladley/whoopsync/internal/db"
	"github.com/garrettladley/whoopsync/internal/migrations"
	"github.com/garrettladley/whoopsync/internal/repository"
)

// fakeWhoop serves the collection endpoints two records per page.
type fakeWhoop struct {
	mu sync.Mutex

	profile    whoop.UserProfile
	body       *whoop.BodyMeasurement
	cycles     []whoop.Cycle
	byID       map[int64]whoop.Cycle
	recoveries []whoop.Recovery
	sleeps     []whoop.Sleep
	workouts   []whoop.Workout

	// status forces a response code per route pattern.
	status  map[string]int
	hits    map[string]int
	queries map[string][]string
}

const fakePageSize = 2

func newFakeWhoop() *fakeWhoop {
	return &fakeWhoop{
		profile: whoop.UserProfile{UserID: 10129, Email: "jsmith123@whoop.com", FirstName: "John", LastName: "Smith"},
		body:    &whoop.BodyMeasurement{HeightMeter: 1.83, WeightKilogram: 90.7, MaxHeartRate: 200},
		byID:    make(map[int64]whoop.Cycle),
		status:  make(map[string]int),
		hits:    make(map[string]int),
		queries: make(map[string][]string),
	}
}

func (f *fakeWhoop) serve(t *testing.T) *whoop.Client {
	t.Helper()

	mux := http.NewServeMux()
	mux.HandleFunc("GET /v2/user/profile/basic", f.handle("profile", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, f.profile)
	}))
	mux.HandleFunc("GET /v2/user/measurement/body", f.handle("body", func(w http.ResponseWriter, _ *http.Request) {
		if f.body == nil {
			http.Error(w, `{"message":"not found"}`, http.StatusNotFound)
			return
		}
		writeJSON(w, f.body)
	}))
	mux.HandleFunc("GET /v2/cycle", f.handle("cycle", func(w http.ResponseWriter, r *http.Request) {
		writePage(w, r, f.cycles)
	}))
	mux.HandleFunc("GET /v2/cycle/{id}", f.handle("cycle/{id}", func(w http.ResponseWriter, r *http.Request) {
		id, _ := strconv.ParseInt(r.PathValue("id"), 10, 64)
		f.hits["cycle/"+r.PathValue("id")]++
		if code, ok := f.status["cycle/"+r.PathValue("id")]; ok {
			http.Error(w, `{"message":"forced"}`, code)
			return
		}
		c, ok := f.byID[id]
		if !ok {
			http.Error(w, `{"message":"not found"}`, http.StatusNotFound)
			return
		}
		writeJSON(w, c)
	}))
	mux.HandleFunc("GET /v2/recovery", f.handle("recovery", func(w http.ResponseWriter, r *http.Request) {
		writePage(w, r, f.recoveries)
	}))
	mux.HandleFunc("GET /v2/activity/sleep", f.handle("sleep", func(w http.ResponseWriter, r *http.Request) {
		writePage(w, r, f.sleeps)
	}))
	mux.HandleFunc("GET /v2/activity/workout", f.handle("workout", func(w http.ResponseWriter, r *http.Request) {
		writePage(w, r, f.workouts)
	}))

	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)

	return whoop.New(
		oauth2.StaticTokenSource(&oauth2.Token{AccessToken: "test-token", TokenType: "Bearer"}),
		whoop.WithBaseURL(srv.URL),
		whoop.WithRetry(3, time.Millisecond),
	)
}

func (f *fakeWhoop) handle(route string, next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		f.mu.Lock()
		defer f.mu.Unlock()

		f.hits[route]++
		f.queries[route] = append(f.queries[route], r.URL.RawQuery)
		if code, ok := f.status[route]; ok {
			http.Error(w, `{"message":"forced"}`, code)
			return
		}
		next(w, r)
	}
}

func (f *fakeWhoop) count(route string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.hits[route]
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	_ = go_json.NewEncoder(w).Encode(v)
}

func writePage[T any](w http.ResponseWriter, r *http.Request, records []T) {
	offset, _ := strconv.Atoi(r.URL.Query().Get("nextToken"))
	end := min(offset+fakePageSize, len(records))

	resp := whoop.PaginatedResponse[T]{Records: []T{}}
	if offset < len(records) {
		resp.Records = records[offset:end]
	}
	if end < len(records) {
		resp.NextToken = ptr(strconv.Itoa(end))
	}
	writeJSON(w, resp)
}

func setupRepo(t *testing.T) *repository.Repository {
	t.Helper()

	sqlDB, err := db.OpenSQLite(t.Context(), filepath.Join(t.TempDir(), "sync.db"))
	if err != nil {
		t.Fatalf("OpenSQLite() error = %v", err)
	}
	t.Cleanup(func() { _ = sqlDB.Close() })

	conn := db.NewSQL(sqlDB)
	if _, err := migrations.Apply(t.Context(), conn, db.DialectSQLite); err != nil {
		t.Fatalf("migrations.Apply() error = %v", err)
	}
	return repository.New(conn)
}

func setupService(t *testing.T, fake *fakeWhoop, configure ...func(*Options)) (*Service, *repository.Repository) {
	t.Helper()

	repo := setupRepo(t)
	opts := DefaultOptions()
	opts.CycleRetryDelay = time.Millisecond
	opts.Now = func() time.Time { return fixedNow }
	for _, fn := range configure {
		fn(&opts)
	}
	return NewService(fake.serve(t), repo, opts, nil), repo
}

func sleep(id string, start time.Time) whoop.Sleep {
	return whoop.Sleep{
		ID:             id,
		UserID:         10129,
		CreatedAt:      start,
		UpdatedAt:      start,
		Start:          start,
		End:            ptr(start.Add(8 * time.Hour)),
		TimezoneOffset: "-05:00",
		Score: whoop.NewScored(whoop.ScoreStateScored, &whoop.SleepScore{
			RespiratoryRate:            16.1,
			SleepPerformancePercentage: ptr(98.0),
		}),
	}
}

func workout(id string, start time.Time) whoop.Workout {
	return whoop.Workout{
		ID:        id,
		UserID:    10129,
		CreatedAt: start,
		UpdatedAt: start,
		Start:     start,
		End:       ptr(start.Add(time.Hour)),
		SportID:   1,
		Score:     whoop.Pending[whoop.WorkoutScore](),
	}
}

func scoredRecovery(cycleID int64, sleepID string) whoop.Recovery {
	r := recovery(cycleID, sleepID)
	r.CreatedAt = fixedNow
	r.UpdatedAt = fixedNow
	r.Score = whoop.NewScored(whoop.ScoreStateScored, &whoop.RecoveryScore{
		RecoveryScore:    44,
		RestingHeartRate: 64,
		HRVRmssdMilli:    31.8,
	})
	return r
}
