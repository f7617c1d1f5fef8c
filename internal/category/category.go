// Package category maps raw detector class labels to traffic count categories.
//
// The category set and its order are explicit configuration: every component
// that renders count columns receives the order from here rather than reading
// a hidden default, so column layout is stable under test and reconfiguration.
package category

// Vehicle category names. The order of DefaultOrder is significant and is
// preserved in every exported table.
const (
	TwoWheeler   = "2W"
	ThreeWheeler = "3W"
	Car          = "Car"
	LCV          = "LCV"
	Bus          = "Bus"
	Truck        = "Truck"
	Others       = "Others"
	Pedestrian   = "Pedestrian"
	Unknown      = "Unknown"
)

// DefaultOrder is the fixed vehicle category order for output columns.
// Others and Pedestrian are appended separately by the table renderers.
var DefaultOrder = []string{TwoWheeler, ThreeWheeler, Car, LCV, Bus, Truck}

// defaultClassToCategory covers the common COCO vocabulary plus labels used
// by custom models for Indian road traffic. Extend or override per deployment
// via Config.Overrides.
var defaultClassToCategory = map[string]string{
	"person":        Pedestrian,
	"bicycle":       TwoWheeler,
	"motorbike":     TwoWheeler,
	"motorcycle":    TwoWheeler,
	"car":           Car,
	"bus":           Bus,
	"truck":         Truck,
	"auto":          ThreeWheeler,
	"autorickshaw":  ThreeWheeler,
	"rickshaw":      ThreeWheeler,
	"three-wheeler": ThreeWheeler,
	"mini-truck":    LCV,
	"pickup":        LCV,
	"van":           LCV,
}
