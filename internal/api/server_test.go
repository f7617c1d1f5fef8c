package api

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/banshee-data/traffic.report/internal/category"
	"github.com/banshee-data/traffic.report/internal/config"
	"github.com/banshee-data/traffic.report/internal/db"
	"github.com/banshee-data/traffic.report/internal/interval"
)

func newTestServer(t *testing.T) (*Server, *db.DB) {
	t.Helper()
	d, err := db.NewDB(filepath.Join(t.TempDir(), "api.db"))
	if err != nil {
		t.Fatalf("failed to open test DB: %v", err)
	}
	t.Cleanup(func() { d.Close() })
	if err := d.MigrateUp("../../migrations"); err != nil {
		t.Fatalf("failed to migrate test DB: %v", err)
	}
	return NewServer(d, config.EmptyPipelineConfig()), d
}

// seedRun stores a completed run with all its clip records checkpointed.
func seedRun(t *testing.T, d *db.DB, day string, records []interval.Record) *db.Run {
	t.Helper()
	run := &db.Run{
		Day:             day,
		Line:            "0,0.5;1,0.5",
		IntervalMinutes: 15,
		ClipCount:       len(records),
		IncludeOthers:   true,
	}
	require.NoError(t, d.CreateRun(run))
	for i, rec := range records {
		require.NoError(t, d.SaveIntervalRecord(run.ID, i, rec))
	}
	require.NoError(t, d.CompleteRun(run.ID, time.Date(2025, 3, 10, 23, 59, 0, 0, time.UTC)))
	return run
}

// seedUnfinishedRun stores a run that still has clips outstanding.
func seedUnfinishedRun(t *testing.T, d *db.DB, day string, clipCount int, records []interval.Record) *db.Run {
	t.Helper()
	run := &db.Run{
		Day:             day,
		Line:            "0,0.5;1,0.5",
		IntervalMinutes: 15,
		ClipCount:       clipCount,
		IncludeOthers:   true,
	}
	require.NoError(t, d.CreateRun(run))
	for i, rec := range records {
		require.NoError(t, d.SaveIntervalRecord(run.ID, i, rec))
	}
	return run
}

func get(t *testing.T, s *Server, path string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, path, nil)
	rec := httptest.NewRecorder()
	s.ServeMux().ServeHTTP(rec, req)
	return rec
}

func TestListRuns(t *testing.T) {
	s, d := newTestServer(t)
	seedRun(t, d, "2025-03-10", nil)
	seedRun(t, d, "2025-03-11", nil)

	rec := get(t, s, "/api/runs")
	require.Equal(t, http.StatusOK, rec.Code)

	var runs []db.Run
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &runs))
	assert.Len(t, runs, 2)
}

func TestListRunsEmpty(t *testing.T) {
	s, _ := newTestServer(t)

	rec := get(t, s, "/api/runs")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, "[]", rec.Body.String())
}

func TestListRunsInvalidLimit(t *testing.T) {
	s, _ := newTestServer(t)

	rec := get(t, s, "/api/runs?limit=bogus")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestListRunsMethodNotAllowed(t *testing.T) {
	s, _ := newTestServer(t)

	req := httptest.NewRequest(http.MethodPost, "/api/runs", nil)
	rec := httptest.NewRecorder()
	s.ServeMux().ServeHTTP(rec, req)
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}

func TestShowRun(t *testing.T) {
	s, d := newTestServer(t)
	run := seedRun(t, d, "2025-03-10", nil)

	rec := get(t, s, "/api/runs/"+run.ID)
	require.Equal(t, http.StatusOK, rec.Code)

	var got db.Run
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	assert.Equal(t, run.ID, got.ID)
	assert.Equal(t, "2025-03-10", got.Day)
}

func TestShowRunNotFound(t *testing.T) {
	s, _ := newTestServer(t)

	rec := get(t, s, "/api/runs/no-such-run")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestShowRunTable(t *testing.T) {
	s, d := newTestServer(t)
	run := seedRun(t, d, "2025-03-10", []interval.Record{
		{Interval: "06:00-06:15", Counts: map[string]int{category.Car: 3}, Total: 3},
		{Interval: "06:15-06:30", Counts: map[string]int{category.Car: 5}, Total: 5, Pedestrian: 1},
	})

	rec := get(t, s, "/api/runs/"+run.ID+"/table")
	require.Equal(t, http.StatusOK, rec.Code)

	var resp struct {
		RunID      string            `json:"run_id"`
		Columns    []string          `json:"columns"`
		Records    []interval.Record `json:"records"`
		DailyTotal interval.Record   `json:"daily_total"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, run.ID, resp.RunID)
	assert.Equal(t, "Interval", resp.Columns[0])
	require.Len(t, resp.Records, 2)
	assert.Equal(t, interval.DailyTotalLabel, resp.DailyTotal.Interval)
	assert.Equal(t, 8, resp.DailyTotal.Total)
	assert.Equal(t, 1, resp.DailyTotal.Pedestrian)
}

func TestShowRunTableUnfinishedOmitsDailyTotal(t *testing.T) {
	s, d := newTestServer(t)
	run := seedUnfinishedRun(t, d, "2025-03-10", 3, []interval.Record{
		{Interval: "00:00-00:15", Counts: map[string]int{category.Car: 5}, Total: 5},
	})

	rec := get(t, s, "/api/runs/"+run.ID+"/table")
	require.Equal(t, http.StatusOK, rec.Code)

	var resp struct {
		Completed  bool              `json:"completed"`
		Records    []interval.Record `json:"records"`
		DailyTotal *interval.Record  `json:"daily_total"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.False(t, resp.Completed)
	require.Len(t, resp.Records, 1)
	assert.Nil(t, resp.DailyTotal, "a partial day must not carry a Daily Total row")
}

func TestShowRunTableUsesPersistedCategoryConfig(t *testing.T) {
	s, d := newTestServer(t)

	// Counted with a custom pedestrian label and Others disabled; the
	// server's own defaults must not relabel the historic columns.
	run := &db.Run{
		Day:             "2025-03-10",
		Line:            "0,0.5;1,0.5",
		IntervalMinutes: 15,
		ClipCount:       1,
		IncludeOthers:   false,
		PedestrianLabel: "Walkers",
	}
	require.NoError(t, d.CreateRun(run))
	require.NoError(t, d.SaveIntervalRecord(run.ID, 0, interval.Record{
		Interval: "00:00-00:15",
		Counts:   map[string]int{category.Car: 2},
		Total:    2,
	}))
	require.NoError(t, d.CompleteRun(run.ID, time.Date(2025, 3, 10, 23, 59, 0, 0, time.UTC)))

	rec := get(t, s, "/api/runs/"+run.ID+"/table")
	require.Equal(t, http.StatusOK, rec.Code)

	var resp struct {
		Columns []string `json:"columns"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "Walkers", resp.Columns[len(resp.Columns)-1])
	assert.NotContains(t, resp.Columns, category.Others)
}

func TestShowRunPeaks(t *testing.T) {
	s, d := newTestServer(t)
	run := seedRun(t, d, "2025-03-10", []interval.Record{
		{Interval: "07:00-07:15", Counts: map[string]int{category.Car: 10}, Total: 10},
		{Interval: "07:15-07:30", Counts: map[string]int{category.Car: 30}, Total: 30},
		{Interval: "17:00-17:15", Counts: map[string]int{category.Car: 20}, Total: 20},
	})

	rec := get(t, s, "/api/runs/"+run.ID+"/peaks")
	require.Equal(t, http.StatusOK, rec.Code)

	var resp struct {
		RunID string `json:"run_id"`
		Peaks []struct {
			Label    string `json:"label"`
			Interval string `json:"interval"`
			Total    int    `json:"total"`
		} `json:"peaks"`
		PHF []struct {
			Hour          string  `json:"hour"`
			HourlyTotal   int     `json:"hourly_total"`
			HighestVolume int     `json:"highest_volume"`
			PHF           float64 `json:"phf"`
		} `json:"phf"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))

	require.Len(t, resp.Peaks, 2)
	assert.Equal(t, "Morning", resp.Peaks[0].Label)
	assert.Equal(t, "07:00-08:00", resp.Peaks[0].Interval)
	assert.Equal(t, 40, resp.Peaks[0].Total)
	assert.Equal(t, "Evening", resp.Peaks[1].Label)
	assert.Equal(t, "17:00-18:00", resp.Peaks[1].Interval)

	require.Len(t, resp.PHF, 2)
	assert.Equal(t, "07:00-08:00", resp.PHF[0].Hour)
	assert.InDelta(t, 3.0, resp.PHF[0].PHF, 1e-9)
}

func TestDownloadRunReport(t *testing.T) {
	s, d := newTestServer(t)
	run := seedRun(t, d, "2025-03-10 site/a", []interval.Record{
		{Interval: "06:00-06:15", Counts: map[string]int{category.Car: 3}, Total: 3},
	})

	rec := get(t, s, "/api/runs/"+run.ID+"/report.csv")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "text/csv", rec.Header().Get("Content-Type"))
	assert.Contains(t, rec.Header().Get("Content-Disposition"), "Traffic_Count_Report_2025-03-10_site_a.csv")

	lines := strings.Split(strings.TrimSpace(rec.Body.String()), "\n")
	require.Len(t, lines, 3, "header, one interval, Daily Total")
	assert.True(t, strings.HasPrefix(lines[0], "Interval,"))
	assert.True(t, strings.HasPrefix(lines[2], interval.DailyTotalLabel+","))
}

func TestDownloadRunReportUnfinishedRun(t *testing.T) {
	s, d := newTestServer(t)
	run := seedUnfinishedRun(t, d, "2025-03-10", 3, []interval.Record{
		{Interval: "00:00-00:15", Counts: map[string]int{category.Car: 5}, Total: 5},
	})

	rec := get(t, s, "/api/runs/"+run.ID+"/report.csv")
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.NotContains(t, rec.Body.String(), interval.DailyTotalLabel)
}

func TestUnknownRunResource(t *testing.T) {
	s, d := newTestServer(t)
	run := seedRun(t, d, "2025-03-10", nil)

	rec := get(t, s, "/api/runs/"+run.ID+"/bogus")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}
