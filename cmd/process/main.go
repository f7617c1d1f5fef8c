// Command process runs one day of clip track files through the counting
// pipeline: line-crossing counts per clip, the daily interval table,
// morning/evening peaks, and the CSV exports. Interrupted runs resume
// from the last checkpointed clip on the next invocation.
package main

import (
	"context"
	"flag"
	"log"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/banshee-data/traffic.report/internal/config"
	"github.com/banshee-data/traffic.report/internal/db"
	"github.com/banshee-data/traffic.report/internal/fsutil"
	"github.com/banshee-data/traffic.report/internal/pipeline"
	"github.com/banshee-data/traffic.report/internal/track"
)

var (
	clipsDir      = flag.String("clips", "", "Directory of clip_*.json track files (required)")
	day           = flag.String("day", "", "Day label for the run, e.g. 2025-03-10 (default: clips directory name)")
	outDir        = flag.String("outdir", ".", "Directory for the CSV exports")
	dbFile        = flag.String("db", "traffic_data.db", "SQLite database file")
	migrationsDir = flag.String("migrations", "migrations", "Migrations directory")
	configFile    = flag.String("config", "", "Pipeline config JSON file (optional)")

	lineSpec     = flag.String("line", "", "Counting line \"x1,y1;x2,y2\" in 0..1 coordinates (overrides config)")
	intervalMins = flag.Int("interval-mins", 0, "Clip duration in minutes, 15 or 30 (overrides config)")
	baseStart    = flag.String("base-start", "", "Start-of-day offset HH:MM for interval labels (overrides config)")
	morning      = flag.String("morning", "", "Morning peak window, hours \"start-end\" (overrides config)")
	evening      = flag.String("evening", "", "Evening peak window, hours \"start-end\" (overrides config)")
)

func loadConfig() (*config.PipelineConfig, error) {
	cfg := config.EmptyPipelineConfig()
	if *configFile != "" {
		var err error
		cfg, err = config.LoadPipelineConfig(*configFile)
		if err != nil {
			return nil, err
		}
	}

	if *lineSpec != "" {
		cfg.Line = lineSpec
	}
	if *intervalMins != 0 {
		cfg.IntervalMinutes = intervalMins
	}
	if *baseStart != "" {
		cfg.BaseStart = baseStart
	}
	if *morning != "" {
		cfg.Morning = morning
	}
	if *evening != "" {
		cfg.Evening = evening
	}
	return cfg, cfg.Validate()
}

func main() {
	_ = godotenv.Load()
	flag.Parse()

	if *clipsDir == "" {
		log.Fatal("-clips is required")
	}
	runDay := *day
	if runDay == "" {
		runDay = filepath.Base(filepath.Clean(*clipsDir))
	}

	cfg, err := loadConfig()
	if err != nil {
		log.Fatalf("Invalid config: %v", err)
	}

	database, err := db.NewDB(*dbFile)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer database.Close()
	if err := database.MigrateUp(*migrationsDir); err != nil {
		log.Fatalf("Failed to migrate database: %v", err)
	}

	fs := &fsutil.OSFileSystem{}
	source, err := track.NewDirSource(fs, *clipsDir)
	if err != nil {
		log.Fatalf("Failed to read clips: %v", err)
	}
	if source.Len() == 0 {
		log.Fatalf("No %s files in %s", track.ClipPattern, *clipsDir)
	}

	orch, err := pipeline.NewOrchestrator(database, cfg, source, fs, nil)
	if err != nil {
		log.Fatalf("Failed to build pipeline: %v", err)
	}
	orch.Day = runDay
	orch.OutDir = *outDir

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	result, err := orch.Run(ctx)
	if err != nil {
		log.Fatalf("Run failed: %v", err)
	}

	total, _ := result.Table.DailyTotal()
	log.Printf("Run %s complete: %d clips, %d vehicles, %d pedestrians", result.Run.ID, source.Len(), total.Total, total.Pedestrian)
	for _, p := range result.Peaks {
		log.Printf("%s peak: %s (%d vehicles)", p.Label, p.Interval, p.Total)
	}
	log.Printf("Wrote %s", result.ReportPath)
	log.Printf("Wrote %s", result.PeakSummaryPath)
}
