// Package count implements per-clip line-crossing counting over tracked
// detections.
//
// A Counter is scoped to a single clip: per-identifier state is created on
// first observation and thrown away with the Counter at the clip boundary.
// Identifiers are never matched across clips.
package count

import (
	"github.com/banshee-data/traffic.report/internal/category"
	"github.com/banshee-data/traffic.report/internal/geom"
)

// Detection is one tracked object observation in one frame, as delivered by
// the external detection/tracking engine. ObjectID is stable across frames
// within a clip only.
type Detection struct {
	ObjectID   int64   `json:"object_id"`
	ClassLabel string  `json:"class_label"`
	X1         float64 `json:"x1"`
	Y1         float64 `json:"y1"`
	X2         float64 `json:"x2"`
	Y2         float64 `json:"y2"`
}

// Center returns the bounding box centre, the reference point for the
// side-of-line test.
func (d Detection) Center() geom.Point {
	return geom.Point{X: (d.X1 + d.X2) / 2, Y: (d.Y1 + d.Y2) / 2}
}

// Frame is the ordered set of detections for one video frame.
type Frame []Detection

// trackState holds the crossing state for one object identifier within the
// current clip.
type trackState struct {
	lastSide float64
	seen     bool
	counted  bool
}

// Counter counts unique line crossings by category for one clip.
type Counter struct {
	line       geom.Line
	classifier *category.Classifier
	cfg        category.Config

	tracks map[int64]*trackState
	counts map[string]int
}

// NewCounter builds a Counter for one clip. The counts map is pre-seeded
// with zeros for every configured column so a clip with no detections still
// produces a complete all-zero row.
func NewCounter(line geom.Line, classifier *category.Classifier, cfg category.Config) *Counter {
	counts := make(map[string]int)
	for _, cat := range cfg.CategoryOrder() {
		counts[cat] = 0
	}
	if cfg.IncludeOthers {
		counts[category.Others] = 0
	}
	ped := cfg.PedestrianLabel
	if ped == "" {
		ped = category.Pedestrian
	}
	counts[ped] = 0

	return &Counter{
		line:       line,
		classifier: classifier,
		cfg:        cfg,
		tracks:     make(map[int64]*trackState),
		counts:     counts,
	}
}

// ProcessFrame advances the state machine with one frame of detections.
// Detections must be fed in frame arrival order.
func (c *Counter) ProcessFrame(frame Frame) {
	for _, det := range frame {
		c.observe(det)
	}
}

// observe applies the crossing rules to a single detection:
//
//  1. First observation of an identifier records its side only; a crossing
//     cannot be detected without a prior side.
//  2. If either the new or the stored side is exactly zero the side is
//     updated and nothing is counted: a position on the line is not
//     evidence of a crossing.
//  3. A sign flip between stored and new side is a crossing; the identifier
//     is counted once and ignored for the rest of the clip.
func (c *Counter) observe(det Detection) {
	st, ok := c.tracks[det.ObjectID]
	if !ok {
		st = &trackState{}
		c.tracks[det.ObjectID] = st
	}
	if st.counted {
		return
	}

	side := c.line.Side(det.Center())
	prev, hadPrev := st.lastSide, st.seen
	st.lastSide = side
	st.seen = true

	if !hadPrev {
		return
	}
	if side == 0 || prev == 0 {
		return
	}
	if (side > 0) == (prev > 0) {
		return
	}

	cat, _ := c.classifier.Classify(det.ClassLabel)
	c.counts[cat]++
	st.counted = true
}

// Counts returns the per-category totals for the clip, including the
// Pedestrian bucket and, if enabled, Others. The returned map is a copy.
func (c *Counter) Counts() map[string]int {
	out := make(map[string]int, len(c.counts))
	for k, v := range c.counts {
		out[k] = v
	}
	return out
}
