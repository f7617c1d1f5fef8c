// Package geom provides the counting-line geometry used for crossing detection.
package geom

import (
	"fmt"
	"strconv"
	"strings"
)

// DefaultLineSpec is the normalized counting line used when none is
// configured: a horizontal line across the middle of the frame.
const DefaultLineSpec = "0,0.5;1,0.5"

// Point is a position in absolute pixel coordinates.
type Point struct {
	X float64
	Y float64
}

// Line is a directed counting line P1->P2 in absolute pixel coordinates.
// It is built once per clip and never mutated afterwards.
type Line struct {
	P1 Point
	P2 Point
}

// Side returns the signed side of q relative to the directed line P1->P2
// using the cross product. Positive and negative values denote the two
// half-planes; zero means q lies exactly on the line.
func (l Line) Side(q Point) float64 {
	return (l.P2.X-l.P1.X)*(q.Y-l.P1.Y) - (l.P2.Y-l.P1.Y)*(q.X-l.P1.X)
}

// ParseNormalizedLine parses a normalized line spec "x1,y1;x2,y2" (each
// coordinate in 0..1) and scales it to absolute pixel coordinates for a
// frame of the given width and height. A malformed spec is a configuration
// error and is reported before any clip processing starts.
func ParseNormalizedLine(spec string, frameW, frameH int) (Line, error) {
	points := strings.Split(spec, ";")
	if len(points) != 2 {
		return Line{}, fmt.Errorf("invalid line spec %q: expected 'x1,y1;x2,y2' with 0..1 values", spec)
	}

	parsePoint := func(s string) (Point, error) {
		coords := strings.Split(s, ",")
		if len(coords) != 2 {
			return Point{}, fmt.Errorf("invalid line point %q: expected 'x,y'", s)
		}
		x, err := strconv.ParseFloat(strings.TrimSpace(coords[0]), 64)
		if err != nil {
			return Point{}, fmt.Errorf("invalid line coordinate %q: %w", coords[0], err)
		}
		y, err := strconv.ParseFloat(strings.TrimSpace(coords[1]), 64)
		if err != nil {
			return Point{}, fmt.Errorf("invalid line coordinate %q: %w", coords[1], err)
		}
		return Point{X: x * float64(frameW), Y: y * float64(frameH)}, nil
	}

	p1, err := parsePoint(points[0])
	if err != nil {
		return Line{}, fmt.Errorf("invalid line spec %q: %w", spec, err)
	}
	p2, err := parsePoint(points[1])
	if err != nil {
		return Line{}, fmt.Errorf("invalid line spec %q: %w", spec, err)
	}

	return Line{P1: p1, P2: p2}, nil
}
