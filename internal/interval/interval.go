// Package interval assembles per-clip category counts into an ordered daily
// interval table terminated by a synthetic Daily Total row.
package interval

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/banshee-data/traffic.report/internal/category"
)

// DailyTotalLabel is the literal label of the synthetic totals row. It is a
// marker, not a time interval.
const DailyTotalLabel = "Daily Total"

// Record is one row of the daily table: one processed clip, or the Daily
// Total row. Counts holds the vehicle category columns (including Others
// when enabled); Pedestrian is additive but kept out of Total.
type Record struct {
	Interval   string         `json:"interval"`
	Counts     map[string]int `json:"counts"`
	Total      int            `json:"total"`
	Pedestrian int            `json:"pedestrian"`
}

// IsDailyTotal reports whether the record is the synthetic totals row.
func (r Record) IsDailyTotal() bool {
	return r.Interval == DailyTotalLabel
}

// StartMinute parses the interval start from the record label, in minutes
// from the table's base time.
func (r Record) StartMinute() (int, error) {
	return ParseStartMinute(r.Interval)
}

// ParseStartMinute parses the leading "HH:MM" of an interval label such as
// "08:15-08:30" into minutes.
func ParseStartMinute(label string) (int, error) {
	start, _, ok := strings.Cut(label, "-")
	if !ok {
		return 0, fmt.Errorf("interval label %q: missing '-'", label)
	}
	hh, mm, ok := strings.Cut(strings.TrimSpace(start), ":")
	if !ok {
		return 0, fmt.Errorf("interval label %q: start is not HH:MM", label)
	}
	hours, err := strconv.Atoi(hh)
	if err != nil {
		return 0, fmt.Errorf("interval label %q: %w", label, err)
	}
	minutes, err := strconv.Atoi(mm)
	if err != nil {
		return 0, fmt.Errorf("interval label %q: %w", label, err)
	}
	return hours*60 + minutes, nil
}

// HHMM renders minutes-from-midnight as "HH:MM". Hours are not wrapped so a
// full day ends at "24:00".
func HHMM(minutes int) string {
	return fmt.Sprintf("%02d:%02d", minutes/60, minutes%60)
}

// Label renders the interval label for the clip at ordinal position i with
// interval duration d minutes, offset by base minutes from midnight.
func Label(i, d, base int) string {
	start := base + i*d
	return HHMM(start) + "-" + HHMM(start+d)
}

// Table is the ordered daily table. Records are in chronological clip order;
// after Finalize the last record is the Daily Total row.
type Table struct {
	Records []Record
	cfg     category.Config
}

// NewTable builds a Table from existing records, e.g. rows parsed back
// from an exported report.
func NewTable(records []Record, cfg category.Config) *Table {
	return &Table{Records: records, cfg: cfg}
}

// Config returns the category configuration the table was built with.
func (t *Table) Config() category.Config { return t.cfg }

// Columns returns the export column order: Interval, the vehicle categories
// in fixed order, Others when enabled, Total, then Pedestrian.
func (t *Table) Columns() []string {
	cols := []string{"Interval"}
	cols = append(cols, t.cfg.CategoryOrder()...)
	if t.cfg.IncludeOthers {
		cols = append(cols, category.Others)
	}
	cols = append(cols, "Total")
	ped := t.cfg.PedestrianLabel
	if ped == "" {
		ped = category.Pedestrian
	}
	cols = append(cols, ped)
	return cols
}

// IntervalRecords returns the rows excluding any Daily Total record.
func (t *Table) IntervalRecords() []Record {
	out := make([]Record, 0, len(t.Records))
	for _, r := range t.Records {
		if !r.IsDailyTotal() {
			out = append(out, r)
		}
	}
	return out
}

// DailyTotal returns the Daily Total record and whether one is present.
func (t *Table) DailyTotal() (Record, bool) {
	for _, r := range t.Records {
		if r.IsDailyTotal() {
			return r, true
		}
	}
	return Record{}, false
}

// Aggregator builds a Table from per-clip counts, one clip at a time, in
// strict chronological order.
type Aggregator struct {
	cfg             category.Config
	intervalMinutes int
	baseMinutes     int
	records         []Record
}

// NewAggregator builds an Aggregator. intervalMinutes is the clip duration;
// baseMinutes offsets interval labels from midnight (0 renders clip-relative
// labels starting at 00:00).
func NewAggregator(cfg category.Config, intervalMinutes, baseMinutes int) *Aggregator {
	return &Aggregator{
		cfg:             cfg,
		intervalMinutes: intervalMinutes,
		baseMinutes:     baseMinutes,
	}
}

// Append adds the counts of the next clip in sequence and returns the
// record it produced. The interval label derives from the record's ordinal
// position, so clips must be appended in order with no gaps.
func (a *Aggregator) Append(counts map[string]int) Record {
	rec := Record{
		Interval: Label(len(a.records), a.intervalMinutes, a.baseMinutes),
		Counts:   make(map[string]int),
	}

	for _, cat := range a.cfg.CategoryOrder() {
		rec.Counts[cat] = counts[cat]
		rec.Total += counts[cat]
	}
	if a.cfg.IncludeOthers {
		rec.Counts[category.Others] = counts[category.Others]
		rec.Total += counts[category.Others]
	}

	ped := a.cfg.PedestrianLabel
	if ped == "" {
		ped = category.Pedestrian
	}
	rec.Pedestrian = counts[ped]

	a.records = append(a.records, rec)
	return rec
}

// Restore re-seeds the aggregator with records from a previous partial run,
// in order. Used when resuming an interrupted day so already-processed clip
// indices are not recomputed.
func (a *Aggregator) Restore(records []Record) {
	for _, r := range records {
		if !r.IsDailyTotal() {
			a.records = append(a.records, r)
		}
	}
}

// Len returns the number of interval records appended so far.
func (a *Aggregator) Len() int { return len(a.records) }

// Records returns the interval records appended so far, without a Daily
// Total row. Valid for export even when the day was cut short.
func (a *Aggregator) Records() []Record {
	return append([]Record(nil), a.records...)
}

// Finalize appends the Daily Total row and returns the finished table. Call
// only once all intended clips have been appended; a partial day must never
// be finalized.
func (a *Aggregator) Finalize() *Table {
	records := append([]Record(nil), a.records...)
	records = append(records, SumRecords(records, a.cfg))
	return &Table{Records: records, cfg: a.cfg}
}

// SumRecords builds a Daily Total record as the column-wise sum of the given
// interval records.
func SumRecords(records []Record, cfg category.Config) Record {
	total := Record{
		Interval: DailyTotalLabel,
		Counts:   make(map[string]int),
	}
	for _, cat := range cfg.CategoryOrder() {
		total.Counts[cat] = 0
	}
	if cfg.IncludeOthers {
		total.Counts[category.Others] = 0
	}
	for _, r := range records {
		if r.IsDailyTotal() {
			continue
		}
		for cat, n := range r.Counts {
			total.Counts[cat] += n
		}
		total.Total += r.Total
		total.Pedestrian += r.Pedestrian
	}
	return total
}
