// Package peak derives hourly volumes, peak-hour windows and the Peak Hour
// Factor (PHF) from a daily interval table.
package peak

import (
	"fmt"
	"math"
	"sort"

	"github.com/banshee-data/traffic.report/internal/interval"
)

// NoPeakInterval is the sentinel interval string returned when a peak
// window contains no hourly bins.
const NoPeakInterval = "N/A"

// Bin is one hour of aggregated interval totals. Total sums the Total
// column of every interval record whose start falls in the hour; MaxVolume
// is the highest single sub-interval Total within the hour.
type Bin struct {
	Hour      int `json:"hour"`
	Total     int `json:"total"`
	MaxVolume int `json:"max_volume"`
}

// Result is a resolved peak window: the chosen hour rendered as an
// interval string and its total vehicle count.
type Result struct {
	Label    string `json:"label"`
	Interval string `json:"interval"`
	Total    int    `json:"total"`
}

// PHFRow is one row of the per-day peak hour table.
type PHFRow struct {
	Hour          string  `json:"hour"`
	HourlyTotal   int     `json:"hourly_total"`
	HighestVolume int     `json:"highest_volume"`
	PHF           float64 `json:"phf"`
}

// Analyzer computes hourly statistics for tables built from sub-intervals
// of a fixed duration.
type Analyzer struct {
	intervalMinutes int
}

// NewAnalyzer builds an Analyzer for the given sub-interval duration. The
// PHF multiplier is derived from the duration (60/d) rather than assuming
// 15-minute rows.
func NewAnalyzer(intervalMinutes int) (*Analyzer, error) {
	if intervalMinutes <= 0 || intervalMinutes > 60 {
		return nil, fmt.Errorf("interval duration must be in 1..60 minutes, got %d", intervalMinutes)
	}
	return &Analyzer{intervalMinutes: intervalMinutes}, nil
}

// HourlyBins buckets the table's interval records (Daily Total excluded)
// into hour bins keyed by startMinute/60, sorted by hour.
func (a *Analyzer) HourlyBins(t *interval.Table) ([]Bin, error) {
	byHour := make(map[int]*Bin)
	for _, rec := range t.IntervalRecords() {
		startMin, err := rec.StartMinute()
		if err != nil {
			return nil, fmt.Errorf("hourly binning: %w", err)
		}
		hour := startMin / 60
		bin, ok := byHour[hour]
		if !ok {
			bin = &Bin{Hour: hour}
			byHour[hour] = bin
		}
		bin.Total += rec.Total
		if rec.Total > bin.MaxVolume {
			bin.MaxVolume = rec.Total
		}
	}

	bins := make([]Bin, 0, len(byHour))
	for _, bin := range byHour {
		bins = append(bins, *bin)
	}
	sort.Slice(bins, func(i, j int) bool { return bins[i].Hour < bins[j].Hour })
	return bins, nil
}

// PeakInRange selects the hour bin with the maximum Total within the
// inclusive-start, exclusive-end hour range. Ties go to the lowest hour
// index. An empty window yields the N/A sentinel with total 0.
func PeakInRange(bins []Bin, startHour, endHour int, label string) Result {
	best := Bin{Hour: -1}
	for _, bin := range bins {
		if bin.Hour < startHour || bin.Hour >= endHour {
			continue
		}
		if best.Hour < 0 || bin.Total > best.Total {
			best = bin
		}
	}
	if best.Hour < 0 {
		return Result{Label: label, Interval: NoPeakInterval, Total: 0}
	}
	return Result{Label: label, Interval: HourInterval(best.Hour), Total: best.Total}
}

// HourInterval renders an hour index as "HH:00-HH:00", wrapping the end
// hour at midnight.
func HourInterval(hour int) string {
	return fmt.Sprintf("%02d:00-%02d:00", hour, (hour+1)%24)
}

// PHF computes the Peak Hour Factor for one hour bin: the highest
// sub-interval volume extrapolated to a full hour, divided by the hourly
// total. Rounded to 3 decimals; 0.0 when the hourly total is zero.
func (a *Analyzer) PHF(bin Bin) float64 {
	if bin.Total == 0 {
		return 0.0
	}
	perHour := 60.0 / float64(a.intervalMinutes)
	phf := float64(bin.MaxVolume) * perHour / float64(bin.Total)
	return math.Round(phf*1000) / 1000
}

// PHFTable computes the per-hour PHF rows for a daily table.
func (a *Analyzer) PHFTable(t *interval.Table) ([]PHFRow, error) {
	bins, err := a.HourlyBins(t)
	if err != nil {
		return nil, err
	}
	rows := make([]PHFRow, 0, len(bins))
	for _, bin := range bins {
		rows = append(rows, PHFRow{
			Hour:          HourInterval(bin.Hour),
			HourlyTotal:   bin.Total,
			HighestVolume: bin.MaxVolume,
			PHF:           a.PHF(bin),
		})
	}
	return rows, nil
}
