package count

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/banshee-data/traffic.report/internal/category"
	"github.com/banshee-data/traffic.report/internal/geom"
)

// midline is a horizontal counting line at y=50 in a 100x100 frame.
func midline(t *testing.T) geom.Line {
	t.Helper()
	line, err := geom.ParseNormalizedLine(geom.DefaultLineSpec, 100, 100)
	require.NoError(t, err)
	return line
}

func newTestCounter(t *testing.T) *Counter {
	t.Helper()
	cfg := category.DefaultConfig()
	return NewCounter(midline(t), category.NewClassifier(cfg, nil), cfg)
}

// det builds a detection whose bounding box centre is at (cx, cy).
func det(id int64, label string, cx, cy float64) Detection {
	return Detection{
		ObjectID:   id,
		ClassLabel: label,
		X1:         cx - 5,
		Y1:         cy - 5,
		X2:         cx + 5,
		Y2:         cy + 5,
	}
}

func TestCounterCountsCrossing(t *testing.T) {
	c := newTestCounter(t)

	c.ProcessFrame(Frame{det(1, "car", 50, 30)})
	c.ProcessFrame(Frame{det(1, "car", 50, 70)})

	counts := c.Counts()
	assert.Equal(t, 1, counts[category.Car])
	assert.Equal(t, 0, counts[category.Pedestrian])
}

func TestCounterNoCountOnFirstObservation(t *testing.T) {
	c := newTestCounter(t)

	// A single observation, even far from the line, never counts.
	c.ProcessFrame(Frame{det(1, "car", 50, 70)})
	assert.Equal(t, 0, c.Counts()[category.Car])
}

func TestCounterSameSideNoCount(t *testing.T) {
	c := newTestCounter(t)

	c.ProcessFrame(Frame{det(1, "car", 50, 30)})
	c.ProcessFrame(Frame{det(1, "car", 50, 40)})
	c.ProcessFrame(Frame{det(1, "car", 50, 10)})

	assert.Equal(t, 0, c.Counts()[category.Car])
}

func TestCounterAtMostOncePerIdentifier(t *testing.T) {
	c := newTestCounter(t)

	// Object 1 oscillates across the line repeatedly.
	for i := 0; i < 5; i++ {
		c.ProcessFrame(Frame{det(1, "truck", 50, 30)})
		c.ProcessFrame(Frame{det(1, "truck", 50, 70)})
	}

	assert.Equal(t, 1, c.Counts()[category.Truck])
}

func TestCounterZeroSideSuppressesCrossing(t *testing.T) {
	c := newTestCounter(t)

	// Above, exactly on the line, then below: the on-line observation
	// breaks the sign comparison both times, so no crossing fires.
	c.ProcessFrame(Frame{det(1, "car", 50, 30)})
	c.ProcessFrame(Frame{det(1, "car", 50, 50)})
	assert.Equal(t, 0, c.Counts()[category.Car])

	c.ProcessFrame(Frame{det(1, "car", 50, 70)})
	assert.Equal(t, 0, c.Counts()[category.Car])

	// A later genuine sign flip still counts.
	c.ProcessFrame(Frame{det(1, "car", 50, 30)})
	assert.Equal(t, 1, c.Counts()[category.Car])
}

func TestCounterMultipleObjectsAndCategories(t *testing.T) {
	c := newTestCounter(t)

	c.ProcessFrame(Frame{
		det(1, "car", 20, 30),
		det(2, "bus", 40, 30),
		det(3, "person", 60, 70),
		det(4, "motorcycle", 80, 30),
	})
	c.ProcessFrame(Frame{
		det(1, "car", 20, 70),        // crosses
		det(2, "bus", 40, 45),        // stays above
		det(3, "person", 60, 30),     // crosses
		det(4, "motorcycle", 80, 70), // crosses
	})

	counts := c.Counts()
	assert.Equal(t, 1, counts[category.Car])
	assert.Equal(t, 0, counts[category.Bus])
	assert.Equal(t, 1, counts[category.Pedestrian])
	assert.Equal(t, 1, counts[category.TwoWheeler])
}

func TestCounterUnknownLabelGoesToOthers(t *testing.T) {
	c := newTestCounter(t)

	c.ProcessFrame(Frame{det(7, "elephant", 50, 30)})
	c.ProcessFrame(Frame{det(7, "elephant", 50, 70)})

	assert.Equal(t, 1, c.Counts()[category.Others])
}

func TestCounterEmptyClipYieldsZeroRow(t *testing.T) {
	c := newTestCounter(t)

	counts := c.Counts()
	for _, cat := range category.DefaultOrder {
		assert.Zero(t, counts[cat], "category %s", cat)
	}
	assert.Zero(t, counts[category.Others])
	assert.Zero(t, counts[category.Pedestrian])
}

func TestCounterStateIsPerClip(t *testing.T) {
	// The same identifier in a fresh Counter starts over: no carry-over of
	// sides or counted flags across clips.
	c1 := newTestCounter(t)
	c1.ProcessFrame(Frame{det(1, "car", 50, 30)})
	c1.ProcessFrame(Frame{det(1, "car", 50, 70)})
	assert.Equal(t, 1, c1.Counts()[category.Car])

	c2 := newTestCounter(t)
	c2.ProcessFrame(Frame{det(1, "car", 50, 70)})
	assert.Equal(t, 0, c2.Counts()[category.Car], "first observation in new clip must not count")
}
