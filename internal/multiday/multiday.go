// Package multiday averages daily traffic tables across days into Average
// Daily Traffic (ADT), PCU-converted ADT, and per-day peak hour tables.
package multiday

import (
	"fmt"
	"math"
	"sync"

	"gonum.org/v1/gonum/stat"

	"github.com/banshee-data/traffic.report/internal/category"
	"github.com/banshee-data/traffic.report/internal/interval"
	"github.com/banshee-data/traffic.report/internal/peak"
	"github.com/banshee-data/traffic.report/internal/units"
)

// DayTable is one day's interval table, labelled by its source (typically
// the report file name or the date).
type DayTable struct {
	Day   string
	Table *interval.Table
}

// ADTRow is the averaged daily count for one category column.
type ADTRow struct {
	Category      string `json:"category"`
	AvgDailyCount int    `json:"avg_daily_count"`
}

// PCURow extends an ADTRow with the car-equivalent average.
type PCURow struct {
	Category      string `json:"category"`
	AvgDailyCount int    `json:"avg_daily_count"`
	AvgDailyPCU   int    `json:"avg_daily_pcu"`
}

// DayPeakRow is one hour of one day's peak hour table.
type DayPeakRow struct {
	Day string `json:"day"`
	peak.PHFRow
}

// Summary bundles the three multi-day export tables.
type Summary struct {
	ADT       []ADTRow     `json:"adt"`
	PCU       []PCURow     `json:"pcu"`
	PeakHours []DayPeakRow `json:"peak_hours"`
}

// Aggregator computes multi-day summaries.
type Aggregator struct {
	analyzer   *peak.Analyzer
	pcuFactors map[string]float64
}

// NewAggregator builds an Aggregator for tables of the given sub-interval
// duration. pcuFactors may be nil to use the built-in defaults.
func NewAggregator(intervalMinutes int, pcuFactors map[string]float64) (*Aggregator, error) {
	analyzer, err := peak.NewAnalyzer(intervalMinutes)
	if err != nil {
		return nil, err
	}
	if pcuFactors == nil {
		pcuFactors = units.MergeFactors(nil)
	}
	return &Aggregator{analyzer: analyzer, pcuFactors: pcuFactors}, nil
}

// dailyTotal returns the day's Daily Total record, synthesizing it by
// column-wise summation when the source table lacks one.
func dailyTotal(t *interval.Table) interval.Record {
	if rec, ok := t.DailyTotal(); ok {
		return rec
	}
	return interval.SumRecords(t.Records, t.Config())
}

// summaryColumns is the column order for the ADT and PCU tables: the
// vehicle categories, Others when enabled, Total, then Pedestrian.
func summaryColumns(cfg category.Config) []string {
	cols := append([]string(nil), cfg.CategoryOrder()...)
	if cfg.IncludeOthers {
		cols = append(cols, category.Others)
	}
	cols = append(cols, "Total")
	ped := cfg.PedestrianLabel
	if ped == "" {
		ped = category.Pedestrian
	}
	return append(cols, ped)
}

// columnValue extracts one summary column from a record. Total and the
// pedestrian bucket live outside the Counts map.
func columnValue(rec interval.Record, cfg category.Config, col string) int {
	ped := cfg.PedestrianLabel
	if ped == "" {
		ped = category.Pedestrian
	}
	switch col {
	case "Total":
		return rec.Total
	case ped:
		return rec.Pedestrian
	default:
		return rec.Counts[col]
	}
}

// ADT computes the rounded arithmetic mean of each category's Daily Total
// across all days.
func (a *Aggregator) ADT(days []DayTable) ([]ADTRow, error) {
	if len(days) == 0 {
		return nil, fmt.Errorf("no day tables supplied")
	}

	cfg := days[0].Table.Config()
	totals := make([]interval.Record, len(days))
	for i, day := range days {
		totals[i] = dailyTotal(day.Table)
	}

	cols := summaryColumns(cfg)
	rows := make([]ADTRow, 0, len(cols))
	values := make([]float64, len(days))
	for _, col := range cols {
		for i, rec := range totals {
			values[i] = float64(columnValue(rec, cfg, col))
		}
		rows = append(rows, ADTRow{
			Category:      col,
			AvgDailyCount: int(math.Round(stat.Mean(values, nil))),
		})
	}
	return rows, nil
}

// PCU converts ADT rows to car-equivalent units using the aggregator's
// factor table. Categories without a factor convert at 1.0.
func (a *Aggregator) PCU(adt []ADTRow) []PCURow {
	rows := make([]PCURow, 0, len(adt))
	for _, r := range adt {
		rows = append(rows, PCURow{
			Category:      r.Category,
			AvgDailyCount: r.AvgDailyCount,
			AvgDailyPCU:   units.ToPCU(r.AvgDailyCount, a.pcuFactors, r.Category),
		})
	}
	return rows
}

// PeakHourTables computes each day's peak hour table. Days are independent,
// so they are analyzed concurrently; results are merged in input order.
func (a *Aggregator) PeakHourTables(days []DayTable) ([]DayPeakRow, error) {
	perDay := make([][]peak.PHFRow, len(days))
	errs := make([]error, len(days))

	var wg sync.WaitGroup
	for i, day := range days {
		wg.Add(1)
		go func(i int, day DayTable) {
			defer wg.Done()
			perDay[i], errs[i] = a.analyzer.PHFTable(day.Table)
		}(i, day)
	}
	wg.Wait()

	var rows []DayPeakRow
	for i, day := range days {
		if errs[i] != nil {
			return nil, fmt.Errorf("peak hour table for %s: %w", day.Day, errs[i])
		}
		for _, r := range perDay[i] {
			rows = append(rows, DayPeakRow{Day: day.Day, PHFRow: r})
		}
	}
	return rows, nil
}

// Summarize computes the full multi-day summary.
func (a *Aggregator) Summarize(days []DayTable) (*Summary, error) {
	adt, err := a.ADT(days)
	if err != nil {
		return nil, err
	}
	peaks, err := a.PeakHourTables(days)
	if err != nil {
		return nil, err
	}
	return &Summary{ADT: adt, PCU: a.PCU(adt), PeakHours: peaks}, nil
}
