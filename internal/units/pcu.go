// Package units provides Passenger Car Unit (PCU) factors and conversion.
package units

import (
	"math"

	"github.com/banshee-data/traffic.report/internal/category"
)

// DefaultPCUFactors are the standard car-equivalent weights per category.
// Categories without an explicit factor convert at 1.0.
var DefaultPCUFactors = map[string]float64{
	category.TwoWheeler:   0.5,
	category.ThreeWheeler: 1.0,
	category.Car:          1.0,
	category.LCV:          1.5,
	category.Bus:          3.0,
	category.Truck:        3.0,
	category.Others:       1.5,
	category.Pedestrian:   0.3,
}

// Factor returns the PCU factor for a category from the given map, falling
// back to 1.0 when the category has no explicit factor.
func Factor(factors map[string]float64, cat string) float64 {
	if f, ok := factors[cat]; ok {
		return f
	}
	return 1.0
}

// ToPCU converts a vehicle count to car-equivalent units, rounded to the
// nearest integer.
func ToPCU(count int, factors map[string]float64, cat string) int {
	return int(math.Round(float64(count) * Factor(factors, cat)))
}

// MergeFactors overlays explicit overrides on the defaults. A nil override
// map returns a copy of the defaults.
func MergeFactors(overrides map[string]float64) map[string]float64 {
	merged := make(map[string]float64, len(DefaultPCUFactors)+len(overrides))
	for cat, f := range DefaultPCUFactors {
		merged[cat] = f
	}
	for cat, f := range overrides {
		merged[cat] = f
	}
	return merged
}
