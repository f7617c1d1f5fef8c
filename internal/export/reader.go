package export

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"strconv"

	"github.com/banshee-data/traffic.report/internal/category"
	"github.com/banshee-data/traffic.report/internal/fsutil"
	"github.com/banshee-data/traffic.report/internal/interval"
)

// ReadIntervalTable parses a daily report CSV back into a Table. Column
// layout is taken from the header row. A missing Total column is
// synthesized by summing the vehicle category columns; a missing Daily
// Total row is left absent for the multi-day aggregator to synthesize.
func ReadIntervalTable(fs fsutil.FileSystem, path string, cfg category.Config) (*interval.Table, error) {
	data, err := fs.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read report %s: %w", path, err)
	}

	rows, err := csv.NewReader(bytes.NewReader(data)).ReadAll()
	if err != nil {
		return nil, fmt.Errorf("parse report %s: %w", path, err)
	}
	if len(rows) < 1 {
		return nil, fmt.Errorf("report %s: empty file", path)
	}

	header := rows[0]
	colIndex := make(map[string]int, len(header))
	for i, col := range header {
		colIndex[col] = i
	}
	if _, ok := colIndex["Interval"]; !ok {
		return nil, fmt.Errorf("report %s: missing Interval column", path)
	}

	ped := cfg.PedestrianLabel
	if ped == "" {
		ped = category.Pedestrian
	}
	countCols := append([]string(nil), cfg.CategoryOrder()...)
	if cfg.IncludeOthers {
		countCols = append(countCols, category.Others)
	}

	cell := func(row []string, col string) (int, bool, error) {
		i, ok := colIndex[col]
		if !ok || i >= len(row) {
			return 0, false, nil
		}
		n, err := strconv.Atoi(row[i])
		if err != nil {
			return 0, true, fmt.Errorf("report %s: column %s: %w", path, col, err)
		}
		return n, true, nil
	}

	var records []interval.Record
	for _, row := range rows[1:] {
		if len(row) == 0 {
			continue
		}
		rec := interval.Record{
			Interval: row[colIndex["Interval"]],
			Counts:   make(map[string]int),
		}

		sum := 0
		for _, col := range countCols {
			n, present, err := cell(row, col)
			if err != nil {
				return nil, err
			}
			if present {
				rec.Counts[col] = n
				sum += n
			}
		}

		if n, present, err := cell(row, "Total"); err != nil {
			return nil, err
		} else if present {
			rec.Total = n
		} else {
			rec.Total = sum
		}

		if n, _, err := cell(row, ped); err != nil {
			return nil, err
		} else {
			rec.Pedestrian = n
		}

		records = append(records, rec)
	}

	return interval.NewTable(records, cfg), nil
}

// DiscoverReports globs for daily report CSVs under dir, sorted so that
// lexical order matches chronological order of the timestamped names.
func DiscoverReports(fs fsutil.FileSystem, dir string) ([]string, error) {
	return fs.Glob(dir + "/" + ReportGlob)
}
