// Package export writes the counting results to their CSV export surfaces
// and reads daily report CSVs back for multi-day analysis.
package export

import (
	"encoding/csv"
	"fmt"
	"strconv"
	"time"

	"github.com/banshee-data/traffic.report/internal/fsutil"
	"github.com/banshee-data/traffic.report/internal/interval"
	"github.com/banshee-data/traffic.report/internal/multiday"
	"github.com/banshee-data/traffic.report/internal/peak"
)

// Daily report file naming. The timestamped pattern lets the multi-day
// analysis discover reports with a glob.
const (
	ReportPrefix      = "Traffic_Count_Report_"
	PeakSummaryPrefix = "Traffic_Peak_Summary_"
	ReportGlob        = ReportPrefix + "*.csv"
	timestampLayout   = "20060102_150405"
)

// ReportFilename returns the interval table CSV name for a run started at t.
func ReportFilename(t time.Time) string {
	return ReportPrefix + t.Format(timestampLayout) + ".csv"
}

// PeakSummaryFilename returns the peak summary CSV name for a run started at t.
func PeakSummaryFilename(t time.Time) string {
	return PeakSummaryPrefix + t.Format(timestampLayout) + ".csv"
}

func writeCSV(fs fsutil.FileSystem, path string, rows [][]string) error {
	f, err := fs.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	w := csv.NewWriter(f)
	if err := w.WriteAll(rows); err != nil {
		f.Close()
		return fmt.Errorf("write %s: %w", path, err)
	}
	w.Flush()
	if err := w.Error(); err != nil {
		f.Close()
		return fmt.Errorf("write %s: %w", path, err)
	}
	return f.Close()
}

// IntervalTableRows renders a daily table in the fixed export column order,
// Daily Total row included in table order (last).
func IntervalTableRows(t *interval.Table) [][]string {
	cols := t.Columns()
	rows := [][]string{cols}

	ped := cols[len(cols)-1]
	for _, rec := range t.Records {
		row := make([]string, 0, len(cols))
		row = append(row, rec.Interval)
		for _, col := range cols[1:] {
			switch col {
			case "Total":
				row = append(row, strconv.Itoa(rec.Total))
			case ped:
				row = append(row, strconv.Itoa(rec.Pedestrian))
			default:
				row = append(row, strconv.Itoa(rec.Counts[col]))
			}
		}
		rows = append(rows, row)
	}
	return rows
}

// WriteIntervalTable writes the daily interval table CSV.
func WriteIntervalTable(fs fsutil.FileSystem, path string, t *interval.Table) error {
	return writeCSV(fs, path, IntervalTableRows(t))
}

// WritePeakSummary writes the morning/evening peak summary CSV.
func WritePeakSummary(fs fsutil.FileSystem, path string, peaks []peak.Result) error {
	rows := [][]string{{"Period", "Peak Interval", "Total Vehicles"}}
	for _, p := range peaks {
		rows = append(rows, []string{p.Label, p.Interval, strconv.Itoa(p.Total)})
	}
	return writeCSV(fs, path, rows)
}

func formatPHF(phf float64) string {
	return strconv.FormatFloat(phf, 'g', -1, 64)
}

// WriteADT writes the per-category average daily count CSV.
func WriteADT(fs fsutil.FileSystem, path string, rows []multiday.ADTRow) error {
	out := [][]string{{"Vehicle Category", "Avg Daily Count"}}
	for _, r := range rows {
		out = append(out, []string{r.Category, strconv.Itoa(r.AvgDailyCount)})
	}
	return writeCSV(fs, path, out)
}

// WritePCU writes the per-category average daily PCU CSV.
func WritePCU(fs fsutil.FileSystem, path string, rows []multiday.PCURow) error {
	out := [][]string{{"Vehicle Category", "Avg Daily Count", "Avg Daily PCU"}}
	for _, r := range rows {
		out = append(out, []string{r.Category, strconv.Itoa(r.AvgDailyCount), strconv.Itoa(r.AvgDailyPCU)})
	}
	return writeCSV(fs, path, out)
}

// WritePeakHours writes the per-day peak hour table CSV.
func WritePeakHours(fs fsutil.FileSystem, path string, rows []multiday.DayPeakRow) error {
	out := [][]string{{"Day", "Hour", "Hourly Total", "Highest 15-min Volume", "PHF"}}
	for _, r := range rows {
		out = append(out, []string{
			r.Day,
			r.Hour,
			strconv.Itoa(r.HourlyTotal),
			strconv.Itoa(r.HighestVolume),
			formatPHF(r.PHF),
		})
	}
	return writeCSV(fs, path, out)
}
