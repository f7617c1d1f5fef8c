package db

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/banshee-data/traffic.report/internal/category"
	"github.com/banshee-data/traffic.report/internal/interval"
)

// Run is one counting run over one day's clips. The category rendering
// parameters the run was counted with travel with it, so historic tables
// keep their column layout across server config changes.
type Run struct {
	ID              string     `json:"id"`
	Day             string     `json:"day"` // YYYY-MM-DD or a free-form day label
	Line            string     `json:"line"`
	IntervalMinutes int        `json:"interval_minutes"`
	BaseMinutes     int        `json:"base_minutes"`
	ClipCount       int        `json:"clip_count"`
	IncludeOthers   bool       `json:"include_others"`
	PedestrianLabel string     `json:"pedestrian_label"`
	CreatedAt       time.Time  `json:"created_at"`
	CompletedAt     *time.Time `json:"completed_at,omitempty"`
}

// Completed reports whether the run processed all its clips.
func (r *Run) Completed() bool { return r.CompletedAt != nil }

// CategoryConfig returns the category rendering configuration persisted
// with the run.
func (r *Run) CategoryConfig() category.Config {
	return category.Config{
		IncludeOthers:   r.IncludeOthers,
		PedestrianLabel: r.PedestrianLabel,
	}
}

// CreateRun inserts a new run record, assigning a UUID when none is set.
func (db *DB) CreateRun(run *Run) error {
	if run.ID == "" {
		run.ID = uuid.New().String()
	}
	if run.CreatedAt.IsZero() {
		run.CreatedAt = time.Now().UTC()
	}
	if run.PedestrianLabel == "" {
		run.PedestrianLabel = category.Pedestrian
	}

	_, err := db.Exec(
		`INSERT INTO runs (id, day, line, interval_minutes, base_minutes, clip_count, include_others, pedestrian_label, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		run.ID, run.Day, run.Line, run.IntervalMinutes, run.BaseMinutes, run.ClipCount,
		run.IncludeOthers, run.PedestrianLabel, run.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create run: %w", err)
	}
	return nil
}

// GetRun retrieves a run by ID.
func (db *DB) GetRun(id string) (*Run, error) {
	var run Run
	err := db.QueryRow(
		`SELECT id, day, line, interval_minutes, base_minutes, clip_count, include_others, pedestrian_label, created_at, completed_at
		 FROM runs WHERE id = ?`, id,
	).Scan(&run.ID, &run.Day, &run.Line, &run.IntervalMinutes, &run.BaseMinutes,
		&run.ClipCount, &run.IncludeOthers, &run.PedestrianLabel, &run.CreatedAt, &run.CompletedAt)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("run %s not found", id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get run: %w", err)
	}
	return &run, nil
}

// FindRunForDay returns the most recent run for a day label, or nil when
// the day has never been processed.
func (db *DB) FindRunForDay(day string) (*Run, error) {
	var run Run
	err := db.QueryRow(
		`SELECT id, day, line, interval_minutes, base_minutes, clip_count, include_others, pedestrian_label, created_at, completed_at
		 FROM runs WHERE day = ? ORDER BY created_at DESC LIMIT 1`, day,
	).Scan(&run.ID, &run.Day, &run.Line, &run.IntervalMinutes, &run.BaseMinutes,
		&run.ClipCount, &run.IncludeOthers, &run.PedestrianLabel, &run.CreatedAt, &run.CompletedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find run for day %s: %w", day, err)
	}
	return &run, nil
}

// ListRuns returns the most recent runs, newest first.
func (db *DB) ListRuns(limit int) ([]Run, error) {
	rows, err := db.Query(
		`SELECT id, day, line, interval_minutes, base_minutes, clip_count, include_others, pedestrian_label, created_at, completed_at
		 FROM runs ORDER BY created_at DESC LIMIT ?`, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query runs: %w", err)
	}
	defer rows.Close()

	var runs []Run
	for rows.Next() {
		var run Run
		if err := rows.Scan(&run.ID, &run.Day, &run.Line, &run.IntervalMinutes, &run.BaseMinutes,
			&run.ClipCount, &run.IncludeOthers, &run.PedestrianLabel, &run.CreatedAt, &run.CompletedAt); err != nil {
			return nil, fmt.Errorf("failed to scan run: %w", err)
		}
		runs = append(runs, run)
	}
	return runs, rows.Err()
}

// CompleteRun marks a run as having processed all clips.
func (db *DB) CompleteRun(id string, at time.Time) error {
	res, err := db.Exec(`UPDATE runs SET completed_at = ? WHERE id = ?`, at, id)
	if err != nil {
		return fmt.Errorf("failed to complete run: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("run %s not found", id)
	}
	return nil
}

// SaveIntervalRecord upserts one clip's record, keyed by (run, clip index)
// so a resumed run can safely re-write a checkpoint.
func (db *DB) SaveIntervalRecord(runID string, clipIndex int, rec interval.Record) error {
	_, err := db.Exec(
		`INSERT OR REPLACE INTO interval_records
		 (run_id, clip_index, interval, two_wheeler, three_wheeler, car, lcv, bus, truck, others, total, pedestrian)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		runID, clipIndex, rec.Interval,
		rec.Counts[category.TwoWheeler], rec.Counts[category.ThreeWheeler],
		rec.Counts[category.Car], rec.Counts[category.LCV],
		rec.Counts[category.Bus], rec.Counts[category.Truck],
		rec.Counts[category.Others], rec.Total, rec.Pedestrian,
	)
	if err != nil {
		return fmt.Errorf("failed to save interval record: %w", err)
	}
	return nil
}

// IntervalRecords returns a run's records in clip order, without a Daily
// Total row.
func (db *DB) IntervalRecords(runID string) ([]interval.Record, error) {
	rows, err := db.Query(
		`SELECT interval, two_wheeler, three_wheeler, car, lcv, bus, truck, others, total, pedestrian
		 FROM interval_records WHERE run_id = ? ORDER BY clip_index ASC`, runID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query interval records: %w", err)
	}
	defer rows.Close()

	var records []interval.Record
	for rows.Next() {
		rec := interval.Record{Counts: make(map[string]int)}
		var twoW, threeW, car, lcv, bus, truck, others int
		if err := rows.Scan(&rec.Interval, &twoW, &threeW, &car, &lcv, &bus, &truck,
			&others, &rec.Total, &rec.Pedestrian); err != nil {
			return nil, fmt.Errorf("failed to scan interval record: %w", err)
		}
		rec.Counts[category.TwoWheeler] = twoW
		rec.Counts[category.ThreeWheeler] = threeW
		rec.Counts[category.Car] = car
		rec.Counts[category.LCV] = lcv
		rec.Counts[category.Bus] = bus
		rec.Counts[category.Truck] = truck
		rec.Counts[category.Others] = others
		records = append(records, rec)
	}
	return records, rows.Err()
}

// CompletedClipCount returns how many clip records a run has persisted.
func (db *DB) CompletedClipCount(runID string) (int, error) {
	var n int
	if err := db.QueryRow(
		`SELECT COUNT(*) FROM interval_records WHERE run_id = ?`, runID,
	).Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count interval records: %w", err)
	}
	return n, nil
}
