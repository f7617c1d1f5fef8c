// Package api serves counting run results over HTTP as JSON.
package api

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/banshee-data/traffic.report/internal/config"
	"github.com/banshee-data/traffic.report/internal/db"
	"github.com/banshee-data/traffic.report/internal/export"
	"github.com/banshee-data/traffic.report/internal/interval"
	"github.com/banshee-data/traffic.report/internal/peak"
	"github.com/banshee-data/traffic.report/internal/security"
)

// ANSI escape codes for cyan and reset
const colorCyan = "\033[36m"
const colorReset = "\033[0m"
const colorYellow = "\033[33m"
const colorBoldGreen = "\033[1;32m"
const colorBoldRed = "\033[1;31m"

const defaultRunLimit = 50

type Server struct {
	db  *db.DB
	cfg *config.PipelineConfig
}

func NewServer(db *db.DB, cfg *config.PipelineConfig) *Server {
	return &Server{
		db:  db,
		cfg: cfg,
	}
}

type loggingResponseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (lrw *loggingResponseWriter) WriteHeader(code int) {
	lrw.statusCode = code
	lrw.ResponseWriter.WriteHeader(code)
}

func (lrw *loggingResponseWriter) Flush() {
	if flusher, ok := lrw.ResponseWriter.(http.Flusher); ok {
		flusher.Flush()
	}
}

func statusCodeColor(statusCode int) string {
	switch {
	case statusCode >= 200 && statusCode < 300:
		return colorBoldGreen + strconv.Itoa(statusCode) + colorReset
	case statusCode >= 300 && statusCode < 400:
		return colorYellow + strconv.Itoa(statusCode) + colorReset
	case statusCode >= 400:
		return colorBoldRed + strconv.Itoa(statusCode) + colorReset
	default:
		return strconv.Itoa(statusCode)
	}
}

// LoggingMiddleware logs method, path, query, status, and duration
func LoggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		lrw := &loggingResponseWriter{w, http.StatusOK}
		next.ServeHTTP(lrw, r)
		log.Printf(
			"[%s] %s %s%s%s %vms",
			statusCodeColor(lrw.statusCode), r.Method,
			colorCyan, r.RequestURI, colorReset,
			float64(time.Since(start).Nanoseconds())/1e6,
		)
	})
}

func (s *Server) ServeMux() *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/runs", s.listRuns)
	mux.HandleFunc("/api/runs/", s.runSubresource)
	return mux
}

func (s *Server) writeJSONError(w http.ResponseWriter, status int, msg string) {
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]string{"error": msg})
}

func (s *Server) listRuns(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")

	if r.Method != http.MethodGet {
		s.writeJSONError(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}

	limit := defaultRunLimit
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			s.writeJSONError(w, http.StatusBadRequest, "Invalid limit")
			return
		}
		limit = n
	}

	runs, err := s.db.ListRuns(limit)
	if err != nil {
		s.writeJSONError(w, http.StatusInternalServerError, fmt.Sprintf("Failed to retrieve runs: %v", err))
		return
	}
	if runs == nil {
		runs = []db.Run{}
	}

	if err := json.NewEncoder(w).Encode(runs); err != nil {
		s.writeJSONError(w, http.StatusInternalServerError, "Failed to write runs")
		return
	}
}

// runSubresource routes /api/runs/{id} and /api/runs/{id}/{table,peaks}.
func (s *Server) runSubresource(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")

	if r.Method != http.MethodGet {
		s.writeJSONError(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}

	rest := strings.TrimPrefix(r.URL.Path, "/api/runs/")
	parts := strings.SplitN(rest, "/", 2)
	if parts[0] == "" {
		s.writeJSONError(w, http.StatusNotFound, "Run ID required")
		return
	}
	id := parts[0]

	sub := ""
	if len(parts) == 2 {
		sub = parts[1]
	}
	switch sub {
	case "":
		s.showRun(w, id)
	case "table":
		s.showRunTable(w, id)
	case "peaks":
		s.showRunPeaks(w, id)
	case "report.csv":
		s.downloadRunReport(w, id)
	default:
		s.writeJSONError(w, http.StatusNotFound, "Unknown run resource")
	}
}

// downloadRunReport streams the daily table as a CSV attachment named
// after the run's day label. The report format implies a finished day, so
// unfinished runs are refused rather than exported without their totals.
func (s *Server) downloadRunReport(w http.ResponseWriter, id string) {
	run, table, err := s.runTable(id)
	if err != nil {
		s.writeJSONError(w, http.StatusNotFound, fmt.Sprintf("Failed to retrieve run table: %v", err))
		return
	}
	if !run.Completed() {
		s.writeJSONError(w, http.StatusConflict, fmt.Sprintf("Run %s has not processed all clips", id))
		return
	}

	filename := "Traffic_Count_Report_" + security.SanitizeFilename(run.Day) + ".csv"
	w.Header().Set("Content-Type", "text/csv")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%s", filename))

	cw := csv.NewWriter(w)
	if err := cw.WriteAll(export.IntervalTableRows(table)); err != nil {
		log.Printf("failed to write report CSV for run %s: %v", id, err)
	}
}

func (s *Server) showRun(w http.ResponseWriter, id string) {
	run, err := s.db.GetRun(id)
	if err != nil {
		s.writeJSONError(w, http.StatusNotFound, fmt.Sprintf("Failed to retrieve run: %v", err))
		return
	}
	if err := json.NewEncoder(w).Encode(run); err != nil {
		s.writeJSONError(w, http.StatusInternalServerError, "Failed to write run")
	}
}

// tableResponse flattens an interval table for JSON consumers: interval
// records in order, then the Daily Total as a separate field. DailyTotal
// is absent while the run still has clips outstanding.
type tableResponse struct {
	RunID      string            `json:"run_id"`
	Completed  bool              `json:"completed"`
	Columns    []string          `json:"columns"`
	Records    []interval.Record `json:"records"`
	DailyTotal *interval.Record  `json:"daily_total,omitempty"`
}

// runTable rebuilds the daily table from a run's persisted records, using
// the category configuration stored with the run. The Daily Total row is
// synthesized only for completed runs; a partial day must never carry a
// totals row that reads as final.
func (s *Server) runTable(id string) (*db.Run, *interval.Table, error) {
	run, err := s.db.GetRun(id)
	if err != nil {
		return nil, nil, err
	}

	records, err := s.db.IntervalRecords(id)
	if err != nil {
		return nil, nil, err
	}

	catCfg := run.CategoryConfig()
	if run.Completed() {
		records = append(records, interval.SumRecords(records, catCfg))
	}
	return run, interval.NewTable(records, catCfg), nil
}

func (s *Server) showRunTable(w http.ResponseWriter, id string) {
	run, table, err := s.runTable(id)
	if err != nil {
		s.writeJSONError(w, http.StatusNotFound, fmt.Sprintf("Failed to retrieve run table: %v", err))
		return
	}

	resp := tableResponse{
		RunID:     run.ID,
		Completed: run.Completed(),
		Columns:   table.Columns(),
		Records:   table.IntervalRecords(),
	}
	if total, ok := table.DailyTotal(); ok {
		resp.DailyTotal = &total
	}
	if err := json.NewEncoder(w).Encode(resp); err != nil {
		s.writeJSONError(w, http.StatusInternalServerError, "Failed to write run table")
	}
}

// peaksResponse carries the morning/evening peaks and the per-hour PHF
// table for one run.
type peaksResponse struct {
	RunID string        `json:"run_id"`
	Peaks []peak.Result `json:"peaks"`
	PHF   []peak.PHFRow `json:"phf"`
}

func (s *Server) showRunPeaks(w http.ResponseWriter, id string) {
	run, table, err := s.runTable(id)
	if err != nil {
		s.writeJSONError(w, http.StatusNotFound, fmt.Sprintf("Failed to retrieve run: %v", err))
		return
	}

	analyzer, err := peak.NewAnalyzer(run.IntervalMinutes)
	if err != nil {
		s.writeJSONError(w, http.StatusInternalServerError, fmt.Sprintf("Invalid run interval: %v", err))
		return
	}
	bins, err := analyzer.HourlyBins(table)
	if err != nil {
		s.writeJSONError(w, http.StatusInternalServerError, fmt.Sprintf("Failed to bin intervals: %v", err))
		return
	}
	phf, err := analyzer.PHFTable(table)
	if err != nil {
		s.writeJSONError(w, http.StatusInternalServerError, fmt.Sprintf("Failed to compute PHF: %v", err))
		return
	}

	mStart, mEnd := s.cfg.GetMorningRange()
	eStart, eEnd := s.cfg.GetEveningRange()
	resp := peaksResponse{
		RunID: run.ID,
		Peaks: []peak.Result{
			peak.PeakInRange(bins, mStart, mEnd, "Morning"),
			peak.PeakInRange(bins, eStart, eEnd, "Evening"),
		},
		PHF: phf,
	}
	if err := json.NewEncoder(w).Encode(resp); err != nil {
		s.writeJSONError(w, http.StatusInternalServerError, "Failed to write peaks")
	}
}
