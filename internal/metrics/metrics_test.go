package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestStatusLabel(t *testing.T) {
	t.Parallel()
	tests := []struct {
		status int
		want   string
	}{
		{0, "transport_error"},
		{200, "2xx"},
		{204, "2xx"},
		{404, "4xx"},
		{429, "429"},
		{503, "5xx"},
		{302, "302"},
	}
	for _, tt := range tests {
		if got := statusLabel(tt.status); got != tt.want {
			t.Errorf("statusLabel(%d) = %q, want %q", tt.status, got, tt.want)
		}
	}
}

func TestRecordRecordsWritten(t *testing.T) {
	before := testutil.ToFloat64(SyncRecordsWrittenTotal.WithLabelValues("metrics_test"))

	RecordRecordsWritten("metrics_test", 3)
	RecordRecordsWritten("metrics_test", 0)

	after := testutil.ToFloat64(SyncRecordsWrittenTotal.WithLabelValues("metrics_test"))
	if after-before != 3 {
		t.Errorf("records written delta = %v, want 3", after-before)
	}
}

func TestRecordSyncRun(t *testing.T) {
	before := testutil.ToFloat64(SyncRunsTotal.WithLabelValues("metrics_test", "ok"))

	RecordSyncRun("metrics_test", "ok", 2*time.Second)

	after := testutil.ToFloat64(SyncRunsTotal.WithLabelValues("metrics_test", "ok"))
	if after-before != 1 {
		t.Errorf("sync runs delta = %v, want 1", after-before)
	}
}

func TestRecordDailyBudget(t *testing.T) {
	RecordDailyBudget(42)
	if got := testutil.ToFloat64(DailyBudgetUsed); got != 42 {
		t.Errorf("daily budget gauge = %v, want 42", got)
	}
}

func TestRecordHTTPRequestCollapsesUnknownRoutes(t *testing.T) {
	before := testutil.ToFloat64(HTTPRequestsTotal.WithLabelValues("GET", RouteUnmatched, "4xx"))

	RecordHTTPRequest("GET", "/wp-login.php", 404, time.Millisecond)
	RecordHTTPRequest("GET", "/.env", 404, time.Millisecond)

	after := testutil.ToFloat64(HTTPRequestsTotal.WithLabelValues("GET", RouteUnmatched, "4xx"))
	if after-before != 2 {
		t.Errorf("unmatched delta = %v, want 2", after-before)
	}
	if n := testutil.CollectAndCount(HTTPRequestsTotal, "http_requests_total"); n == 0 {
		t.Error("expected http_requests_total series")
	}
}
