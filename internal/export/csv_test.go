package export

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/banshee-data/traffic.report/internal/category"
	"github.com/banshee-data/traffic.report/internal/fsutil"
	"github.com/banshee-data/traffic.report/internal/interval"
	"github.com/banshee-data/traffic.report/internal/multiday"
	"github.com/banshee-data/traffic.report/internal/peak"
)

func sampleTable() *interval.Table {
	a := interval.NewAggregator(category.DefaultConfig(), 15, 0)
	a.Append(map[string]int{
		category.TwoWheeler: 3,
		category.Car:        5,
		category.Bus:        1,
		category.Pedestrian: 2,
	})
	a.Append(map[string]int{category.Car: 2, category.Others: 1})
	return a.Finalize()
}

func TestWriteIntervalTable(t *testing.T) {
	fs := fsutil.NewMemoryFileSystem()
	require.NoError(t, WriteIntervalTable(fs, "out/report.csv", sampleTable()))

	data, err := fs.ReadFile("out/report.csv")
	require.NoError(t, err)

	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	require.Len(t, lines, 4)
	assert.Equal(t, "Interval,2W,3W,Car,LCV,Bus,Truck,Others,Total,Pedestrian", lines[0])
	assert.Equal(t, "00:00-00:15,3,0,5,0,1,0,0,9,2", lines[1])
	assert.Equal(t, "00:15-00:30,0,0,2,0,0,0,1,3,0", lines[2])
	assert.Equal(t, "Daily Total,3,0,7,0,1,0,1,12,2", lines[3])
}

func TestWritePeakSummary(t *testing.T) {
	fs := fsutil.NewMemoryFileSystem()
	peaks := []peak.Result{
		{Label: "Morning", Interval: "07:00-08:00", Total: 45},
		{Label: "Evening", Interval: peak.NoPeakInterval, Total: 0},
	}
	require.NoError(t, WritePeakSummary(fs, "peaks.csv", peaks))

	data, err := fs.ReadFile("peaks.csv")
	require.NoError(t, err)

	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	assert.Equal(t, []string{
		"Period,Peak Interval,Total Vehicles",
		"Morning,07:00-08:00,45",
		"Evening,N/A,0",
	}, lines)
}

func TestWriteMultiDayTables(t *testing.T) {
	fs := fsutil.NewMemoryFileSystem()

	require.NoError(t, WriteADT(fs, "adt.csv", []multiday.ADTRow{
		{Category: "Car", AvgDailyCount: 110},
	}))
	require.NoError(t, WritePCU(fs, "pcu.csv", []multiday.PCURow{
		{Category: "Bus", AvgDailyCount: 10, AvgDailyPCU: 30},
	}))
	require.NoError(t, WritePeakHours(fs, "peak.csv", []multiday.DayPeakRow{
		{Day: "day-1", PHFRow: peak.PHFRow{Hour: "07:00-08:00", HourlyTotal: 20, HighestVolume: 10, PHF: 2.0}},
	}))

	adt, err := fs.ReadFile("adt.csv")
	require.NoError(t, err)
	assert.Contains(t, string(adt), "Vehicle Category,Avg Daily Count\nCar,110")

	pcu, err := fs.ReadFile("pcu.csv")
	require.NoError(t, err)
	assert.Contains(t, string(pcu), "Bus,10,30")

	peakData, err := fs.ReadFile("peak.csv")
	require.NoError(t, err)
	assert.Contains(t, string(peakData), "Day,Hour,Hourly Total,Highest 15-min Volume,PHF")
	assert.Contains(t, string(peakData), "day-1,07:00-08:00,20,10,2")
}

func TestReportFilenames(t *testing.T) {
	ts := time.Date(2025, 3, 14, 9, 26, 53, 0, time.UTC)
	assert.Equal(t, "Traffic_Count_Report_20250314_092653.csv", ReportFilename(ts))
	assert.Equal(t, "Traffic_Peak_Summary_20250314_092653.csv", PeakSummaryFilename(ts))
}

func TestRoundTripReadIntervalTable(t *testing.T) {
	fs := fsutil.NewMemoryFileSystem()
	table := sampleTable()
	require.NoError(t, WriteIntervalTable(fs, "report.csv", table))

	got, err := ReadIntervalTable(fs, "report.csv", category.DefaultConfig())
	require.NoError(t, err)

	require.Len(t, got.Records, 3)
	totalRec, ok := got.DailyTotal()
	require.True(t, ok)
	assert.Equal(t, 12, totalRec.Total)
	assert.Equal(t, 7, totalRec.Counts[category.Car])
	assert.Equal(t, 2, totalRec.Pedestrian)
}

func TestReadIntervalTableSynthesizesTotal(t *testing.T) {
	fs := fsutil.NewMemoryFileSystem()
	csvData := "Interval,2W,3W,Car,LCV,Bus,Truck,Others,Pedestrian\n" +
		"00:00-00:15,1,0,4,0,2,0,1,3\n"
	require.NoError(t, fs.WriteFile("report.csv", []byte(csvData), 0o644))

	table, err := ReadIntervalTable(fs, "report.csv", category.DefaultConfig())
	require.NoError(t, err)

	require.Len(t, table.Records, 1)
	assert.Equal(t, 8, table.Records[0].Total, "missing Total column must be synthesized by summation")
	assert.Equal(t, 3, table.Records[0].Pedestrian)
}

func TestReadIntervalTableErrors(t *testing.T) {
	tests := []struct {
		name string
		data string
	}{
		{"empty file", ""},
		{"missing interval column", "Car,Total\n4,4\n"},
		{"non-numeric count", "Interval,Car,Total,Pedestrian\n00:00-00:15,x,1,0\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fs := fsutil.NewMemoryFileSystem()
			require.NoError(t, fs.WriteFile("report.csv", []byte(tt.data), 0o644))
			_, err := ReadIntervalTable(fs, "report.csv", category.DefaultConfig())
			assert.Error(t, err)
		})
	}
}

func TestDiscoverReports(t *testing.T) {
	fs := fsutil.NewMemoryFileSystem()
	for _, name := range []string{
		"out/Traffic_Count_Report_20250102_000000.csv",
		"out/Traffic_Count_Report_20250101_000000.csv",
		"out/Traffic_Peak_Summary_20250101_000000.csv",
		"out/notes.txt",
	} {
		require.NoError(t, fs.WriteFile(name, []byte("Interval\n"), 0o644))
	}

	reports, err := DiscoverReports(fs, "out")
	require.NoError(t, err)
	assert.Equal(t, []string{
		"out/Traffic_Count_Report_20250101_000000.csv",
		"out/Traffic_Count_Report_20250102_000000.csv",
	}, reports)
}
