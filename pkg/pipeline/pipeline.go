// Package pipeline provides the core storyline pipeline for SpreadLine.
//
// This package implements the complete load → center → configure → fit flow
// that can be used by CLI, API, and host applications. By centralizing this
// logic, we ensure consistent behavior across all entry points and avoid
// code duplication.
//
// # Architecture
//
// The pipeline consists of four stages:
//
//  1. Load: Validate and take ownership of the raw input rows
//  2. Center: Construct the egocentric network around the chosen ego
//  3. Configure: Apply layout options (minimize, squeeze, band stretch)
//  4. Fit: Order, align, compact, contextualize and render the geometry
//
// Fit is a pure function of the loaded data and configuration: re-running
// it on an unmutated instance yields an identical result, which is what
// makes caching by content hash sound.
//
// # Usage
//
// Create a SpreadLine and walk the stages:
//
//	sl := pipeline.New()
//	if err := sl.Load(data); err != nil { ... }
//	if err := sl.Center(opts); err != nil { ... }
//	if err := sl.Configure(cfg); err != nil { ... }
//	result, err := sl.Fit()
//
// Or use a Runner for cached end-to-end execution:
//
//	runner := pipeline.NewRunner(cache, nil, logger)
//	result, err := runner.Execute(ctx, data, opts, cfg)
package pipeline

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/matzehuels/spreadline/pkg/contextual"
	"github.com/matzehuels/spreadline/pkg/errors"
	"github.com/matzehuels/spreadline/pkg/layout"
	"github.com/matzehuels/spreadline/pkg/network"
)

// =============================================================================
// Default Values - Single Source of Truth for CLI and API
// =============================================================================

const (
	// DefaultLayout is the default time bucket layout (yearly slices).
	DefaultLayout = "2006"

	// DefaultMinimize is the default alignment strategy.
	DefaultMinimize = layout.MinimizeLine

	// DefaultWidth is the default frame width in pixels.
	DefaultWidth = 1200.0

	// DefaultHeight is the default frame height in pixels.
	DefaultHeight = 800.0
)

// Format constants for output formats.
const (
	FormatJSON = "json"
	FormatSVG  = "svg"
	FormatDOT  = "dot"
)

// ValidFormats is the set of supported output formats.
var ValidFormats = map[string]bool{
	FormatJSON: true,
	FormatSVG:  true,
	FormatDOT:  true,
}

// ValidMinimize is the set of supported alignment strategies.
var ValidMinimize = map[layout.Minimize]bool{
	layout.MinimizeSpace:   true,
	layout.MinimizeLine:    true,
	layout.MinimizeWiggles: true,
}

// =============================================================================
// Data - Pipeline Input
// =============================================================================

// Data is the complete input supplied at load time. The pipeline treats it
// as read-only for the remainder of its lifetime.
type Data struct {
	// Topology holds one row per directed interaction event.
	Topology []network.Interaction

	// Groups optionally supplies explicit five-tier member assignments per
	// time label, overriding automatic tiering.
	Groups map[string][network.NumTiers][]string

	// Categories maps entities to their contextual category (e.g.
	// affiliation), used for automatic tiering and line tinting. Include
	// a row for the ego itself: inside tiers and same-category squeezing
	// key off the ego's own category.
	Categories map[string]string

	// Colors maps entities to explicit line colors, an alternative to the
	// category-derived tinting.
	Colors map[string]string

	// Contexts holds scalar magnitude rows per (entity, time).
	Contexts []contextual.ContextRow

	// Profiles holds externally computed 2D positions, static (no
	// timestamps) or dynamic (one per entity per time).
	Profiles []contextual.ProfileRow
}

// Validate checks the structural integrity of the data at load time.
func (d *Data) Validate() error {
	for label, tiers := range d.Groups {
		seen := map[string]int{}
		for t, members := range tiers {
			for _, m := range members {
				if prev, dup := seen[m]; dup {
					return errors.New(errors.ErrCodeInvalidInput,
						"group %q assigns %q to tiers %d and %d", label, m, prev, t)
				}
				seen[m] = t
			}
		}
	}
	return nil
}

// ProfilesAreStatic reports whether the profile rows carry no timestamps.
// Mixed rows are treated as dynamic.
func (d *Data) ProfilesAreStatic() bool {
	if len(d.Profiles) == 0 {
		return false
	}
	for _, p := range d.Profiles {
		if p.Time != "" {
			return false
		}
	}
	return true
}

// =============================================================================
// Mapping - Column Renaming
// =============================================================================

// Mapping names the caller's columns for each canonical field, so input
// files may use any schema. A loader validates the mapping against the
// actual header once, then the rest of the pipeline operates on fixed
// record shapes.
type Mapping struct {
	// Topology columns. Source, Target and Time are required when topology
	// rows are loaded; Weight is optional (defaults to 1 per row).
	Source string `toml:"source" json:"source"`
	Target string `toml:"target" json:"target"`
	Time   string `toml:"time" json:"time"`
	Weight string `toml:"weight" json:"weight,omitempty"`

	// Category columns (optional input).
	Entity   string `toml:"entity" json:"entity,omitempty"`
	Category string `toml:"category" json:"category,omitempty"`

	// Context columns (optional input).
	ContextEntity string `toml:"context_entity" json:"context_entity,omitempty"`
	ContextTime   string `toml:"context_time" json:"context_time,omitempty"`
	ContextValue  string `toml:"context_value" json:"context_value,omitempty"`

	// Profile columns (optional input). Timestamp empty means static.
	ID        string `toml:"id" json:"id,omitempty"`
	Timestamp string `toml:"timestamp" json:"timestamp,omitempty"`
	PosX      string `toml:"pos_x" json:"pos_x,omitempty"`
	PosY      string `toml:"pos_y" json:"pos_y,omitempty"`
}

// DefaultMapping names every column after its canonical field.
func DefaultMapping() Mapping {
	return Mapping{
		Source: "source", Target: "target", Time: "time", Weight: "weight",
		Entity: "entity", Category: "category",
		ContextEntity: "entity", ContextTime: "time", ContextValue: "context",
		ID: "id", Timestamp: "timestamp", PosX: "posX", PosY: "posY",
	}
}

// ValidateTopology checks that the topology columns are named and present
// in the header.
func (m *Mapping) ValidateTopology(header []string) error {
	for field, col := range map[string]string{"source": m.Source, "target": m.Target, "time": m.Time} {
		if col == "" {
			return errors.New(errors.ErrCodeInvalidMapping, "no column mapped for %s", field)
		}
		if !contains(header, col) {
			return errors.New(errors.ErrCodeMissingColumn,
				"column %q (mapped to %s) not found in header %v", col, field, header)
		}
	}
	if m.Weight != "" && !contains(header, m.Weight) {
		return errors.New(errors.ErrCodeMissingColumn,
			"column %q (mapped to weight) not found in header %v", m.Weight, header)
	}
	return nil
}

func contains(header []string, col string) bool {
	for _, h := range header {
		if h == col {
			return true
		}
	}
	return false
}

// =============================================================================
// Config - Layout Configuration
// =============================================================================

// Config carries the layout knobs exposed to callers. The zero value is
// valid and uses the defaults.
type Config struct {
	// BandStretch widens the bands of the given inclusive time-label
	// ranges.
	BandStretch [][2]string `toml:"band_stretch" json:"band_stretch,omitempty"`

	// SqueezeSameCategory packs adjacent same-category lines tighter.
	SqueezeSameCategory bool `toml:"squeeze_same_category" json:"squeeze_same_category,omitempty"`

	// Minimize selects the alignment strategy: space, line or wiggles.
	Minimize layout.Minimize `toml:"minimize" json:"minimize,omitempty"`
}

// Set applies one key=value override. Unknown keys and invalid values are
// configuration errors.
func (c *Config) Set(key, value string) error {
	switch key {
	case "minimize":
		m := layout.Minimize(value)
		if !ValidMinimize[m] {
			return errors.New(errors.ErrCodeInvalidOption,
				"invalid minimize %q (must be one of: space, line, wiggles)", value)
		}
		c.Minimize = m
	case "squeezeSameCategory":
		b, err := strconv.ParseBool(value)
		if err != nil {
			return errors.New(errors.ErrCodeInvalidOption,
				"invalid squeezeSameCategory %q: not a boolean", value)
		}
		c.SqueezeSameCategory = b
	case "bandStretch":
		ranges, err := parseBandStretch(value)
		if err != nil {
			return err
		}
		c.BandStretch = ranges
	default:
		return errors.New(errors.ErrCodeUnknownOption, "unknown option %q", key)
	}
	return nil
}

// parseBandStretch parses "2019:2021,2023:2024" into label ranges.
func parseBandStretch(value string) ([][2]string, error) {
	var out [][2]string
	for _, part := range strings.Split(value, ",") {
		lo, hi, ok := strings.Cut(strings.TrimSpace(part), ":")
		if !ok || lo == "" || hi == "" {
			return nil, errors.New(errors.ErrCodeInvalidOption,
				"invalid bandStretch range %q (want from:to)", part)
		}
		out = append(out, [2]string{lo, hi})
	}
	return out, nil
}

// =============================================================================
// Options - Center/Fit Configuration
// =============================================================================

// Options configures network construction and the fit surface. This struct
// supports JSON serialization for API requests.
type Options struct {
	// Center options
	Ego       string    `json:"ego"`
	Layout    string    `json:"layout,omitempty"`
	RawLayout string    `json:"raw_layout,omitempty"`
	TimeRange [2]string `json:"time_range,omitempty"`
	MaxHops   int       `json:"max_hops,omitempty"`

	// Contextual options
	ProfileMatch     contextual.MatchPolicy `json:"profile_match,omitempty"`
	NormalizeProfile bool                   `json:"normalize_profile,omitempty"`
	CenterProfile    bool                   `json:"center_profile,omitempty"`

	// Render options
	Width      float64  `json:"width,omitempty"`
	Height     float64  `json:"height,omitempty"`
	BlockWidth float64  `json:"block_width,omitempty"`
	Formats    []string `json:"formats,omitempty"`

	// validated tracks whether ValidateAndSetDefaults has been called.
	validated bool
}

// ValidateAndSetDefaults checks required fields and applies defaults.
// This method is idempotent.
func (o *Options) ValidateAndSetDefaults() error {
	if o.validated {
		return nil
	}
	if o.Ego == "" {
		return errors.New(errors.ErrCodeMissingEgo, "ego is required")
	}
	if o.Layout == "" {
		o.Layout = DefaultLayout
	}
	if o.RawLayout == "" {
		o.RawLayout = o.Layout
	}
	if o.MaxHops == 0 {
		o.MaxHops = network.DefaultMaxHops
	}
	if o.ProfileMatch == "" {
		o.ProfileMatch = contextual.MatchExact
	}
	if o.Width == 0 {
		o.Width = DefaultWidth
	}
	if o.Height == 0 {
		o.Height = DefaultHeight
	}
	if len(o.Formats) == 0 {
		o.Formats = []string{FormatJSON}
	}
	if err := ValidateFormats(o.Formats); err != nil {
		return err
	}
	o.validated = true
	return nil
}

// ValidateFormat checks that a format is valid.
func ValidateFormat(format string) error {
	if !ValidFormats[format] {
		return errors.New(errors.ErrCodeInvalidOption,
			"invalid format: %q (must be one of: json, svg, dot)", format)
	}
	return nil
}

// ValidateFormats checks that all formats are valid.
func ValidateFormats(formats []string) error {
	for _, f := range formats {
		if err := ValidateFormat(f); err != nil {
			return err
		}
	}
	return nil
}

// networkOptions translates the pipeline options into construction options.
func (o *Options) networkOptions(d *Data) network.Options {
	return network.Options{
		Ego:        o.Ego,
		Layout:     o.Layout,
		RawLayout:  o.RawLayout,
		TimeRange:  o.TimeRange,
		MaxHops:    o.MaxHops,
		Groups:     d.Groups,
		Categories: d.Categories,
	}
}

// =============================================================================
// Result - Pipeline Output
// =============================================================================

// Stats contains pipeline execution statistics.
type Stats struct {
	RowCount     int
	EntityCount  int
	SessionCount int
	CenterTime   time.Duration
	FitTime      time.Duration
	RenderTime   time.Duration
}

// CacheInfo tracks cache hits for each pipeline stage.
type CacheInfo struct {
	FitHit      bool // Whether the geometry came from cache
	ArtifactHit bool // Whether all artifacts came from cache
}

func (s Stats) String() string {
	return fmt.Sprintf("entities=%d sessions=%d center=%s fit=%s render=%s",
		s.EntityCount, s.SessionCount, s.CenterTime, s.FitTime, s.RenderTime)
}
