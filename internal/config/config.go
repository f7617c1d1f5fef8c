// Package config loads and validates the counting pipeline configuration.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/banshee-data/traffic.report/internal/category"
	"github.com/banshee-data/traffic.report/internal/geom"
	"github.com/banshee-data/traffic.report/internal/units"
)

// ValidIntervalMinutes are the supported clip/interval durations.
var ValidIntervalMinutes = []int{15, 30}

// PipelineConfig is the root configuration for a counting run. All fields
// are optional pointers so a partial JSON file retains defaults; use the
// Get* accessors to read effective values.
type PipelineConfig struct {
	// Line is the normalized counting line "x1,y1;x2,y2", 0..1 coordinates.
	Line *string `json:"line,omitempty"`

	// IntervalMinutes is the clip duration; one of ValidIntervalMinutes.
	IntervalMinutes *int `json:"interval_minutes,omitempty"`

	// BaseStart is the start-of-day offset "HH:MM" added to interval labels.
	BaseStart *string `json:"base_start,omitempty"`

	// IncludeOthers enables the Others bucket for unmapped labels.
	IncludeOthers *bool `json:"include_others,omitempty"`

	// PedestrianLabel names the pedestrian column.
	PedestrianLabel *string `json:"pedestrian_label,omitempty"`

	// ClassOverrides maps lowercase detector labels to category names.
	ClassOverrides map[string]string `json:"class_overrides,omitempty"`

	// Morning and Evening are peak search windows "start-end" in hours,
	// inclusive start, exclusive end.
	Morning *string `json:"morning,omitempty"`
	Evening *string `json:"evening,omitempty"`

	// PCUFactors overrides per-category Passenger Car Unit weights.
	PCUFactors map[string]float64 `json:"pcu_factors,omitempty"`
}

// EmptyPipelineConfig returns a PipelineConfig with all fields unset.
func EmptyPipelineConfig() *PipelineConfig {
	return &PipelineConfig{}
}

// LoadPipelineConfig loads a PipelineConfig from a JSON file. Fields
// omitted from the file retain their defaults, so partial configs are safe.
func LoadPipelineConfig(path string) (*PipelineConfig, error) {
	cleanPath := filepath.Clean(path)
	if ext := filepath.Ext(cleanPath); ext != ".json" {
		return nil, fmt.Errorf("config file must have .json extension, got %q", ext)
	}

	data, err := os.ReadFile(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	cfg := EmptyPipelineConfig()
	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config JSON: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// parseHourRange parses "start-end" hour windows such as "6-12".
func parseHourRange(s string) (start, end int, err error) {
	a, b, ok := strings.Cut(s, "-")
	if !ok {
		return 0, 0, fmt.Errorf("hour range must be 'start-end', e.g. 6-12, got %q", s)
	}
	if start, err = strconv.Atoi(strings.TrimSpace(a)); err != nil {
		return 0, 0, fmt.Errorf("invalid hour range %q: %w", s, err)
	}
	if end, err = strconv.Atoi(strings.TrimSpace(b)); err != nil {
		return 0, 0, fmt.Errorf("invalid hour range %q: %w", s, err)
	}
	if start < 0 || end > 24 || start >= end {
		return 0, 0, fmt.Errorf("hour range %q must satisfy 0 <= start < end <= 24", s)
	}
	return start, end, nil
}

// parseBaseStart parses "HH:MM" into minutes from midnight.
func parseBaseStart(s string) (int, error) {
	hh, mm, ok := strings.Cut(s, ":")
	if !ok {
		return 0, fmt.Errorf("base start must be HH:MM, got %q", s)
	}
	hours, err := strconv.Atoi(hh)
	if err != nil {
		return 0, fmt.Errorf("invalid base start %q: %w", s, err)
	}
	minutes, err := strconv.Atoi(mm)
	if err != nil {
		return 0, fmt.Errorf("invalid base start %q: %w", s, err)
	}
	if hours < 0 || hours > 23 || minutes < 0 || minutes > 59 {
		return 0, fmt.Errorf("base start %q out of range", s)
	}
	return hours*60 + minutes, nil
}

// Validate checks the configuration. A malformed counting line or window is
// a configuration error surfaced before any clip is processed.
func (c *PipelineConfig) Validate() error {
	if c.Line != nil {
		if _, err := geom.ParseNormalizedLine(*c.Line, 1, 1); err != nil {
			return err
		}
	}
	if c.IntervalMinutes != nil {
		valid := false
		for _, d := range ValidIntervalMinutes {
			if *c.IntervalMinutes == d {
				valid = true
			}
		}
		if !valid {
			return fmt.Errorf("interval_minutes must be one of %v, got %d", ValidIntervalMinutes, *c.IntervalMinutes)
		}
	}
	if c.BaseStart != nil {
		if _, err := parseBaseStart(*c.BaseStart); err != nil {
			return err
		}
	}
	if c.Morning != nil {
		if _, _, err := parseHourRange(*c.Morning); err != nil {
			return err
		}
	}
	if c.Evening != nil {
		if _, _, err := parseHourRange(*c.Evening); err != nil {
			return err
		}
	}
	for cat, f := range c.PCUFactors {
		if f < 0 {
			return fmt.Errorf("pcu factor for %s must be non-negative, got %f", cat, f)
		}
	}
	return nil
}

// GetLine returns the normalized line spec or the default midline.
func (c *PipelineConfig) GetLine() string {
	if c.Line == nil || *c.Line == "" {
		return geom.DefaultLineSpec
	}
	return *c.Line
}

// GetIntervalMinutes returns the interval duration or the 15-minute default.
func (c *PipelineConfig) GetIntervalMinutes() int {
	if c.IntervalMinutes == nil {
		return 15
	}
	return *c.IntervalMinutes
}

// GetBaseStartMinutes returns the label offset in minutes from midnight.
// Unset or unparseable values fall back to 0 (clip-relative labels).
func (c *PipelineConfig) GetBaseStartMinutes() int {
	if c.BaseStart == nil {
		return 0
	}
	minutes, err := parseBaseStart(*c.BaseStart)
	if err != nil {
		return 0
	}
	return minutes
}

// GetIncludeOthers returns whether the Others bucket is enabled.
func (c *PipelineConfig) GetIncludeOthers() bool {
	if c.IncludeOthers == nil {
		return true
	}
	return *c.IncludeOthers
}

// GetPedestrianLabel returns the pedestrian column name.
func (c *PipelineConfig) GetPedestrianLabel() string {
	if c.PedestrianLabel == nil || *c.PedestrianLabel == "" {
		return category.Pedestrian
	}
	return *c.PedestrianLabel
}

// GetMorningRange returns the morning peak window (default 6-12).
func (c *PipelineConfig) GetMorningRange() (start, end int) {
	if c.Morning == nil {
		return 6, 12
	}
	start, end, err := parseHourRange(*c.Morning)
	if err != nil {
		return 6, 12
	}
	return start, end
}

// GetEveningRange returns the evening peak window (default 16-21).
func (c *PipelineConfig) GetEveningRange() (start, end int) {
	if c.Evening == nil {
		return 16, 21
	}
	start, end, err := parseHourRange(*c.Evening)
	if err != nil {
		return 16, 21
	}
	return start, end
}

// GetPCUFactors returns the effective PCU factor table: defaults overlaid
// with any configured overrides.
func (c *PipelineConfig) GetPCUFactors() map[string]float64 {
	return units.MergeFactors(c.PCUFactors)
}

// CategoryConfig assembles the category configuration passed to the
// classifier and the table builders.
func (c *PipelineConfig) CategoryConfig() category.Config {
	cfg := category.DefaultConfig()
	cfg.Overrides = c.ClassOverrides
	cfg.IncludeOthers = c.GetIncludeOthers()
	cfg.PedestrianLabel = c.GetPedestrianLabel()
	return cfg
}
