// Package pipeline runs a full day of clips through counting, interval
// aggregation, peak analysis, and CSV export, checkpointing each clip so
// an interrupted run can resume where it stopped.
package pipeline

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"github.com/banshee-data/traffic.report/internal/category"
	"github.com/banshee-data/traffic.report/internal/config"
	"github.com/banshee-data/traffic.report/internal/count"
	"github.com/banshee-data/traffic.report/internal/db"
	"github.com/banshee-data/traffic.report/internal/export"
	"github.com/banshee-data/traffic.report/internal/fsutil"
	"github.com/banshee-data/traffic.report/internal/geom"
	"github.com/banshee-data/traffic.report/internal/interval"
	"github.com/banshee-data/traffic.report/internal/monitoring"
	"github.com/banshee-data/traffic.report/internal/peak"
	"github.com/banshee-data/traffic.report/internal/timeutil"
	"github.com/banshee-data/traffic.report/internal/track"
)

// Orchestrator drives one day's counting run end to end.
type Orchestrator struct {
	db     *db.DB
	fs     fsutil.FileSystem
	clock  timeutil.Clock
	cfg    *config.PipelineConfig
	source track.Source

	// Day labels the run (normally YYYY-MM-DD) and keys resume lookups.
	Day string
	// OutDir receives the report and peak summary CSVs.
	OutDir string
	// ModelMap translates engine class names to categories before the
	// built-in mapping applies. May be nil.
	ModelMap map[string]string
}

// Result is the outcome of a completed run.
type Result struct {
	Run             *db.Run
	Table           *interval.Table
	Peaks           []peak.Result
	PHF             []peak.PHFRow
	ReportPath      string
	PeakSummaryPath string
}

// NewOrchestrator wires an orchestrator against a migrated database and a
// clip source. A nil fs or clock falls back to the real implementations.
func NewOrchestrator(database *db.DB, cfg *config.PipelineConfig, source track.Source, fs fsutil.FileSystem, clock timeutil.Clock) (*Orchestrator, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid pipeline config: %w", err)
	}
	if fs == nil {
		fs = &fsutil.OSFileSystem{}
	}
	if clock == nil {
		clock = timeutil.RealClock{}
	}
	return &Orchestrator{
		db:     database,
		fs:     fs,
		clock:  clock,
		cfg:    cfg,
		source: source,
	}, nil
}

// Run processes all clips in order and writes the exports. When the day
// already has an unfinished run with matching parameters, processing
// resumes after its last persisted clip. Cancelling ctx stops between
// clips; the completed clips stay checkpointed.
func (o *Orchestrator) Run(ctx context.Context) (*Result, error) {
	run, resumed, err := o.findOrCreateRun()
	if err != nil {
		return nil, err
	}

	catCfg := o.cfg.CategoryConfig()
	classifier := category.NewClassifier(catCfg, o.ModelMap)
	agg := interval.NewAggregator(catCfg, o.cfg.GetIntervalMinutes(), o.cfg.GetBaseStartMinutes())

	start := 0
	if resumed {
		records, err := o.db.IntervalRecords(run.ID)
		if err != nil {
			return nil, fmt.Errorf("restore run %s: %w", run.ID, err)
		}
		agg.Restore(records)
		start = agg.Len()
		monitoring.Logf("pipeline: resuming run %s for %s at clip %d/%d", run.ID, run.Day, start, o.source.Len())
	} else {
		monitoring.Logf("pipeline: starting run %s for %s with %d clips", run.ID, run.Day, o.source.Len())
	}

	for i := start; i < o.source.Len(); i++ {
		if err := ctx.Err(); err != nil {
			return nil, fmt.Errorf("run %s interrupted at clip %d: %w", run.ID, i, err)
		}
		rec, err := o.processClip(ctx, classifier, catCfg, agg, i)
		if err != nil {
			return nil, err
		}
		if err := o.db.SaveIntervalRecord(run.ID, i, rec); err != nil {
			return nil, fmt.Errorf("checkpoint clip %d: %w", i, err)
		}
		monitoring.Logf("pipeline: clip %d/%d %s total=%d", i+1, o.source.Len(), rec.Interval, rec.Total)
	}

	now := o.clock.Now()
	if err := o.db.CompleteRun(run.ID, now); err != nil {
		return nil, err
	}
	run.CompletedAt = &now

	table := agg.Finalize()
	result := &Result{Run: run, Table: table}
	if err := o.analyze(result); err != nil {
		return nil, err
	}
	if err := o.export(result, now); err != nil {
		return nil, err
	}
	return result, nil
}

// processClip counts one clip with a fresh counter so track identity does
// not leak across clip boundaries.
func (o *Orchestrator) processClip(ctx context.Context, classifier *category.Classifier, catCfg category.Config, agg *interval.Aggregator, i int) (interval.Record, error) {
	clip, err := o.source.Clip(ctx, i)
	if err != nil {
		return interval.Record{}, fmt.Errorf("load clip %d: %w", i, err)
	}

	line, err := geom.ParseNormalizedLine(o.cfg.GetLine(), clip.FrameWidth, clip.FrameHeight)
	if err != nil {
		return interval.Record{}, fmt.Errorf("clip %d: %w", i, err)
	}

	counter := count.NewCounter(line, classifier, catCfg)
	for _, frame := range clip.Frames {
		counter.ProcessFrame(frame)
	}
	return agg.Append(counter.Counts()), nil
}

func (o *Orchestrator) findOrCreateRun() (*db.Run, bool, error) {
	existing, err := o.db.FindRunForDay(o.Day)
	if err != nil {
		return nil, false, err
	}
	if existing != nil && !existing.Completed() && o.runMatches(existing) {
		return existing, true, nil
	}

	run := &db.Run{
		Day:             o.Day,
		Line:            o.cfg.GetLine(),
		IntervalMinutes: o.cfg.GetIntervalMinutes(),
		BaseMinutes:     o.cfg.GetBaseStartMinutes(),
		ClipCount:       o.source.Len(),
		IncludeOthers:   o.cfg.GetIncludeOthers(),
		PedestrianLabel: o.cfg.GetPedestrianLabel(),
		CreatedAt:       o.clock.Now(),
	}
	if err := o.db.CreateRun(run); err != nil {
		return nil, false, err
	}
	return run, false, nil
}

// runMatches guards resume against parameter drift: a run checkpointed
// with a different line, interval, or column layout cannot be safely
// continued.
func (o *Orchestrator) runMatches(run *db.Run) bool {
	return run.Line == o.cfg.GetLine() &&
		run.IntervalMinutes == o.cfg.GetIntervalMinutes() &&
		run.BaseMinutes == o.cfg.GetBaseStartMinutes() &&
		run.ClipCount == o.source.Len() &&
		run.IncludeOthers == o.cfg.GetIncludeOthers() &&
		run.PedestrianLabel == o.cfg.GetPedestrianLabel()
}

func (o *Orchestrator) analyze(result *Result) error {
	analyzer, err := peak.NewAnalyzer(o.cfg.GetIntervalMinutes())
	if err != nil {
		return err
	}
	bins, err := analyzer.HourlyBins(result.Table)
	if err != nil {
		return fmt.Errorf("hourly bins: %w", err)
	}

	mStart, mEnd := o.cfg.GetMorningRange()
	eStart, eEnd := o.cfg.GetEveningRange()
	result.Peaks = []peak.Result{
		peak.PeakInRange(bins, mStart, mEnd, "Morning"),
		peak.PeakInRange(bins, eStart, eEnd, "Evening"),
	}

	result.PHF, err = analyzer.PHFTable(result.Table)
	if err != nil {
		return fmt.Errorf("phf table: %w", err)
	}
	return nil
}

func (o *Orchestrator) export(result *Result, at time.Time) error {
	if o.OutDir != "" {
		if err := o.fs.MkdirAll(o.OutDir, 0o755); err != nil {
			return fmt.Errorf("create output dir: %w", err)
		}
	}

	result.ReportPath = filepath.Join(o.OutDir, export.ReportFilename(at))
	if err := export.WriteIntervalTable(o.fs, result.ReportPath, result.Table); err != nil {
		return err
	}

	result.PeakSummaryPath = filepath.Join(o.OutDir, export.PeakSummaryFilename(at))
	if err := export.WritePeakSummary(o.fs, result.PeakSummaryPath, result.Peaks); err != nil {
		return err
	}

	monitoring.Logf("pipeline: wrote %s and %s", result.ReportPath, result.PeakSummaryPath)
	return nil
}
