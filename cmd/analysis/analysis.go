// Command analysis summarizes several days of traffic count reports:
// per-category Average Daily Traffic, Passenger Car Unit averages, and a
// per-day peak hour table, each written as CSV.
package main

import (
	"flag"
	"log"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"github.com/banshee-data/traffic.report/internal/config"
	"github.com/banshee-data/traffic.report/internal/export"
	"github.com/banshee-data/traffic.report/internal/fsutil"
	"github.com/banshee-data/traffic.report/internal/multiday"
)

var (
	reportsDir = flag.String("reports", ".", "Directory containing Traffic_Count_Report_*.csv files")
	outDir     = flag.String("outdir", ".", "Directory for the summary CSVs")
	configFile = flag.String("config", "", "Pipeline config JSON file (optional)")
)

// dayLabel derives a display label from a report file name, falling back
// to the name itself when the timestamp convention is absent.
func dayLabel(path string) string {
	name := strings.TrimSuffix(filepath.Base(path), ".csv")
	ts := strings.TrimPrefix(name, export.ReportPrefix)
	if t, err := time.Parse("20060102_150405", ts); err == nil {
		return t.Format("2006-01-02")
	}
	return name
}

func main() {
	_ = godotenv.Load()
	flag.Parse()

	cfg := config.EmptyPipelineConfig()
	if *configFile != "" {
		var err error
		cfg, err = config.LoadPipelineConfig(*configFile)
		if err != nil {
			log.Fatalf("Failed to load config: %v", err)
		}
	}
	if err := cfg.Validate(); err != nil {
		log.Fatalf("Invalid config: %v", err)
	}

	fs := &fsutil.OSFileSystem{}
	paths, err := export.DiscoverReports(fs, *reportsDir)
	if err != nil {
		log.Fatalf("Failed to discover reports: %v", err)
	}
	if len(paths) == 0 {
		log.Fatalf("No %s files in %s", export.ReportGlob, *reportsDir)
	}

	catCfg := cfg.CategoryConfig()
	days := make([]multiday.DayTable, 0, len(paths))
	for _, path := range paths {
		table, err := export.ReadIntervalTable(fs, path, catCfg)
		if err != nil {
			log.Fatalf("Failed to read %s: %v", path, err)
		}
		days = append(days, multiday.DayTable{Day: dayLabel(path), Table: table})
	}
	log.Printf("Loaded %d daily reports from %s", len(days), *reportsDir)

	agg, err := multiday.NewAggregator(cfg.GetIntervalMinutes(), cfg.GetPCUFactors())
	if err != nil {
		log.Fatalf("Failed to build aggregator: %v", err)
	}
	summary, err := agg.Summarize(days)
	if err != nil {
		log.Fatalf("Failed to summarize: %v", err)
	}

	if err := fs.MkdirAll(*outDir, 0o755); err != nil {
		log.Fatalf("Failed to create output dir: %v", err)
	}

	outputs := []struct {
		name  string
		write func(path string) error
	}{
		{"ADT_Summary.csv", func(p string) error { return export.WriteADT(fs, p, summary.ADT) }},
		{"PCU_Summary.csv", func(p string) error { return export.WritePCU(fs, p, summary.PCU) }},
		{"Peak_Hour_Summary.csv", func(p string) error { return export.WritePeakHours(fs, p, summary.PeakHours) }},
	}
	for _, out := range outputs {
		path := filepath.Join(*outDir, out.name)
		if err := out.write(path); err != nil {
			log.Fatalf("Failed to write %s: %v", path, err)
		}
		log.Printf("Wrote %s", path)
	}
}
