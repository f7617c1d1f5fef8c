package category

import "strings"

// Config controls classification and column layout for one counting run.
type Config struct {
	// Overrides maps lowercase class labels to category names and wins over
	// every other source. Absent entries fall through to defaults.
	Overrides map[string]string

	// Order is the vehicle category column order. Defaults to DefaultOrder.
	Order []string

	// IncludeOthers adds the Others bucket for labels with no mapping.
	IncludeOthers bool

	// PedestrianLabel names the pedestrian bucket. Defaults to Pedestrian.
	PedestrianLabel string
}

// DefaultConfig returns the standard six-category configuration with the
// Others bucket enabled.
func DefaultConfig() Config {
	return Config{
		Order:           append([]string(nil), DefaultOrder...),
		IncludeOthers:   true,
		PedestrianLabel: Pedestrian,
	}
}

// CategoryOrder returns the configured vehicle category order, falling back
// to DefaultOrder when unset.
func (c Config) CategoryOrder() []string {
	if len(c.Order) == 0 {
		return append([]string(nil), DefaultOrder...)
	}
	return c.Order
}

func (c Config) pedestrianLabel() string {
	if c.PedestrianLabel == "" {
		return Pedestrian
	}
	return c.PedestrianLabel
}

// Classifier resolves raw detector class labels to count categories.
type Classifier struct {
	cfg Config
	// modelMap is a model-specific label->category map, e.g. built from the
	// model's own class vocabulary. Consulted after overrides.
	modelMap map[string]string
}

// NewClassifier builds a Classifier for the given config. modelMap may be
// nil when no model-specific vocabulary is available.
func NewClassifier(cfg Config, modelMap map[string]string) *Classifier {
	return &Classifier{cfg: cfg, modelMap: modelMap}
}

// Classify maps a raw class label to a category and reports whether the
// label counts as a pedestrian. Resolution order: caller overrides, the
// model-specific map, the built-in default table, then a person/pedestrian
// heuristic. Anything still unmapped lands in Others (or Unknown when the
// Others bucket is disabled); an unmapped label never fails the pipeline.
func (cl *Classifier) Classify(classLabel string) (category string, isPedestrian bool) {
	lower := strings.ToLower(classLabel)
	ped := cl.cfg.pedestrianLabel()

	if mapped, ok := cl.cfg.Overrides[lower]; ok {
		return mapped, mapped == ped
	}
	if mapped, ok := cl.modelMap[lower]; ok {
		return mapped, mapped == ped
	}
	if mapped, ok := defaultClassToCategory[lower]; ok {
		if mapped == Pedestrian {
			return ped, true
		}
		return mapped, false
	}
	if lower == "person" || lower == "pedestrian" {
		return ped, true
	}
	if cl.cfg.IncludeOthers {
		return Others, false
	}
	return Unknown, false
}

// ModelMapFromNames precomputes a lowercase label->category lookup for a
// model's class name vocabulary using the default resolution rules.
func ModelMapFromNames(names []string, cfg Config) map[string]string {
	cl := NewClassifier(cfg, nil)
	out := make(map[string]string, len(names))
	for _, name := range names {
		mapped, _ := cl.Classify(name)
		out[strings.ToLower(name)] = mapped
	}
	return out
}
