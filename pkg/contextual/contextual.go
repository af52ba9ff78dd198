// Package contextual overlays auxiliary per-entity data onto a finished
// layout: a scalar intensity table for coloring and sizing, and externally
// computed 2D spatial profiles that can relocate points away from the
// algorithmic order.
//
// The overlay never feeds back into the layout. Tables produced here are
// consumed by the renderer and the host application only.
package contextual

import (
	"sort"
	"time"

	"github.com/matzehuels/spreadline/pkg/errors"
	"github.com/matzehuels/spreadline/pkg/layout"
	"github.com/matzehuels/spreadline/pkg/table"
)

// ContextRow is one scalar magnitude observation for an entity at a time
// bucket. Rows sharing (entity, time) are summed.
type ContextRow struct {
	Entity string
	Time   string
	Value  float64
}

// ProfileRow is one externally computed position for an entity. Time is
// empty for static profiles and a bucket label for dynamic ones.
type ProfileRow struct {
	Entity string
	Time   string
	X, Y   float64
}

// MatchPolicy selects how a dynamic profile row is matched to a time slice
// when no row carries the slice's exact label.
type MatchPolicy string

const (
	// MatchExact leaves slices without an exact row unpositioned.
	MatchExact MatchPolicy = "exact"
	// MatchClosest picks the row whose timestamp is temporally nearest.
	MatchClosest MatchPolicy = "closest"
)

// Profile holds per-(entity, effective column) positions. Set marks the
// cells that carry a position; X and Y are meaningless where Set is zero.
type Profile struct {
	X, Y *table.FloatTable
	Set  *table.Table
}

// Intensity aggregates scalar context rows into an [entity][effective
// column] table aligned with the layout arena. Rows naming entities or
// times outside the network are ignored, duplicates are summed.
func Intensity(t *layout.Tables, rows []ContextRow) *table.FloatTable {
	out := table.NewFloat(t.Rows(), t.Cols())
	for _, row := range rows {
		e, ok := t.Net.Entity(row.Entity)
		if !ok {
			continue
		}
		c := columnFor(t, row.Time)
		if c < 0 {
			continue
		}
		out.Add(e.Index, c, row.Value)
	}
	return out
}

// StaticProfile expands one-position-per-entity rows into a Profile, placing
// the position in every column where the entity is present. More than one
// row for the same entity is a hard error.
func StaticProfile(t *layout.Tables, rows []ProfileRow) (*Profile, error) {
	seen := map[string]bool{}
	p := newProfile(t)
	for _, row := range rows {
		if seen[row.Entity] {
			return nil, errors.New(errors.ErrCodeDuplicateProfile,
				"duplicate static profile row for entity %q", row.Entity)
		}
		seen[row.Entity] = true
		e, ok := t.Net.Entity(row.Entity)
		if !ok {
			continue
		}
		for c := 0; c < t.Cols(); c++ {
			if t.PresentAt(e.Index, c) {
				p.place(e.Index, c, row.X, row.Y)
			}
		}
	}
	return p, nil
}

// DynamicProfile matches one-position-per-entity-per-time rows onto the
// layout columns. An exact label match always wins; otherwise MatchClosest
// picks the temporally nearest row, falling back to the entity's first row
// when no timestamp parses.
func DynamicProfile(t *layout.Tables, rows []ProfileRow, policy MatchPolicy) *Profile {
	byEntity := map[string][]ProfileRow{}
	for _, row := range rows {
		byEntity[row.Entity] = append(byEntity[row.Entity], row)
	}
	for _, cand := range byEntity {
		sort.SliceStable(cand, func(i, j int) bool { return cand[i].Time < cand[j].Time })
	}

	p := newProfile(t)
	for name, cand := range byEntity {
		e, ok := t.Net.Entity(name)
		if !ok {
			continue
		}
		for c := 0; c < t.Cols(); c++ {
			if !t.PresentAt(e.Index, c) {
				continue
			}
			row, ok := match(cand, t.Labels[c], t.Net.Layout, policy)
			if !ok {
				continue
			}
			p.place(e.Index, c, row.X, row.Y)
		}
	}
	return p
}

// Normalize rescales every set position into [0, 1] per axis using the
// min-max extents over the set cells. A degenerate axis collapses to 0.5.
func (p *Profile) Normalize() {
	minX, maxX, anyX := extents(p, p.X)
	minY, maxY, anyY := extents(p, p.Y)
	if !anyX && !anyY {
		return
	}
	for r := 0; r < p.Set.Rows(); r++ {
		for c := 0; c < p.Set.Cols(); c++ {
			if p.Set.Get(r, c) == 0 {
				continue
			}
			p.X.Set(r, c, rescale(p.X.Get(r, c), minX, maxX))
			p.Y.Set(r, c, rescale(p.Y.Get(r, c), minY, maxY))
		}
	}
}

// CenterOnEgo shifts every set position so the ego lands exactly on
// (0.5, 0.5). The ego must carry a single unique position across all its
// columns; a varying position is rejected rather than silently averaged.
func (p *Profile) CenterOnEgo(t *layout.Tables) error {
	ego := t.Net.EgoEntity()
	if ego == nil {
		return errors.New(errors.ErrCodeAmbiguousCenter, "network has no ego entity")
	}
	var x, y float64
	found := false
	for c := 0; c < p.Set.Cols(); c++ {
		if p.Set.Get(ego.Index, c) == 0 {
			continue
		}
		cx, cy := p.X.Get(ego.Index, c), p.Y.Get(ego.Index, c)
		if found && (cx != x || cy != y) {
			return errors.New(errors.ErrCodeAmbiguousCenter,
				"ego %q has more than one profile position", ego.Name)
		}
		x, y, found = cx, cy, true
	}
	if !found {
		return errors.New(errors.ErrCodeAmbiguousCenter,
			"ego %q has no profile position", ego.Name)
	}

	dx, dy := 0.5-x, 0.5-y
	for r := 0; r < p.Set.Rows(); r++ {
		for c := 0; c < p.Set.Cols(); c++ {
			if p.Set.Get(r, c) == 0 {
				continue
			}
			p.X.Add(r, c, dx)
			p.Y.Add(r, c, dy)
		}
	}
	return nil
}

func newProfile(t *layout.Tables) *Profile {
	return &Profile{
		X:   table.NewFloat(t.Rows(), t.Cols()),
		Y:   table.NewFloat(t.Rows(), t.Cols()),
		Set: table.New(t.Rows(), t.Cols(), 0),
	}
}

func (p *Profile) place(row, col int, x, y float64) {
	p.X.Set(row, col, x)
	p.Y.Set(row, col, y)
	p.Set.Set(row, col, 1)
}

// match resolves the profile row for a time label. Candidates are sorted by
// label. When the closest search cannot rank any candidate (no timestamp
// parses under the layout) the first candidate wins.
func match(cand []ProfileRow, label, timeLayout string, policy MatchPolicy) (ProfileRow, bool) {
	for _, row := range cand {
		if row.Time == label {
			return row, true
		}
	}
	if policy != MatchClosest || len(cand) == 0 {
		return ProfileRow{}, false
	}

	want, err := table.StrToTime(label, timeLayout)
	if err != nil {
		return cand[0], true
	}
	best, bestDelta := cand[0], time.Duration(-1)
	for _, row := range cand {
		ct, err := table.StrToTime(row.Time, timeLayout)
		if err != nil {
			continue
		}
		d := want.Sub(ct)
		if d < 0 {
			d = -d
		}
		if bestDelta < 0 || d < bestDelta {
			best, bestDelta = row, d
		}
	}
	return best, true
}

// columnFor maps a bucket label onto the effective column that renders it,
// or -1 when the label lies outside the network's sequence.
func columnFor(t *layout.Tables, label string) int {
	slice := -1
	for i, l := range t.Net.Labels {
		if l == label {
			slice = i
			break
		}
	}
	if slice < 0 {
		return -1
	}
	col := -1
	for c, s := range t.SliceOf {
		if s > slice {
			break
		}
		col = c
	}
	return col
}

func extents(p *Profile, axis *table.FloatTable) (lo, hi float64, any bool) {
	for r := 0; r < p.Set.Rows(); r++ {
		for c := 0; c < p.Set.Cols(); c++ {
			if p.Set.Get(r, c) == 0 {
				continue
			}
			v := axis.Get(r, c)
			if !any || v < lo {
				lo = v
			}
			if !any || v > hi {
				hi = v
			}
			any = true
		}
	}
	return lo, hi, any
}

func rescale(v, lo, hi float64) float64 {
	if hi == lo {
		return 0.5
	}
	return (v - lo) / (hi - lo)
}
