// Package layout turns a constructed ego network into the table arena the
// renderer consumes: six parallel matrices indexed [entity][effective slice]
// that carry session membership, presence, slot order, alignment, height
// levels and crossing sides.
//
// The phases run strictly in order (ordering → aligning → compacting) and
// each one only writes its own table. All phases are deterministic: identical
// inputs always produce identical tables.
package layout

import (
	"github.com/matzehuels/spreadline/pkg/network"
	"github.com/matzehuels/spreadline/pkg/table"
)

// Presence cell values.
const (
	PresenceAbsent  = 0
	PresenceContact = 1
	PresenceIdle    = -1
)

// Minimize selects the alignment strategy.
type Minimize string

const (
	// MinimizeLine carries each entity's previous alignment forward,
	// producing the straightest storylines. The default.
	MinimizeLine Minimize = "line"
	// MinimizeWiggles adds a backward smoothing pass after the forward
	// carry, trading a little extra height for fewer direction changes.
	MinimizeWiggles Minimize = "wiggles"
	// MinimizeSpace packs alignments tightly, minimizing vertical extent.
	MinimizeSpace Minimize = "space"
)

// Config carries the layout knobs shared by the three engines.
type Config struct {
	Minimize            Minimize
	SqueezeSameCategory bool
}

// Tables is the arena of parallel matrices the phases fill in. Rows are
// entities (by Entity.Index), columns are effective time slices: slices whose
// contact-session column differs from its predecessor. Identical consecutive
// columns are merged away before any layout runs so no zero-width blocks can
// appear.
type Tables struct {
	Net *network.Network

	// Labels holds one time label per effective column (the first label of
	// each merged run). SliceOf maps effective columns back to original
	// slice indices.
	Labels  []string
	SliceOf []int

	Session  *table.Table // session id, 0 = absent
	Presence *table.Table // PresenceContact / PresenceIdle / PresenceAbsent
	Order    *table.Table // slot index, table.Absent when absent
	Align    *table.Table // alignment level, table.Absent when absent
	Height   *table.Table // integer height level, table.Absent when absent
	Crossing *table.Table // exit side: -1 top, +1 bottom, 0 straight

	// Sessions indexes every session (contact and idle) by id.
	Sessions map[int]*network.Session

	// SessionAlign and SessionHeight hold the vertical center per session,
	// filled by the aligning and compacting phases.
	SessionAlign  map[int]int
	SessionHeight map[int]int
}

// NewTables builds the arena from a network: the contact session and
// presence tables over the full label sequence, deduplicated to effective
// columns. Every other table starts fully absent.
func NewTables(net *network.Network) *Tables {
	rows := len(net.Entities)
	cols := len(net.Labels)

	full := table.New(rows, cols, 0)
	for _, e := range net.Entities {
		for c, id := range e.Timeline {
			full.Set(e.Index, c, id)
		}
	}

	eff := full.EffectiveColumns()
	t := &Tables{
		Net:           net,
		SliceOf:       eff,
		Session:       full.SelectColumns(eff),
		Sessions:      map[int]*network.Session{},
		SessionAlign:  map[int]int{},
		SessionHeight: map[int]int{},
	}
	for _, c := range eff {
		t.Labels = append(t.Labels, net.Labels[c])
	}

	n := len(eff)
	t.Presence = table.New(rows, n, PresenceAbsent)
	t.Order = table.New(rows, n, table.Absent)
	t.Align = table.New(rows, n, table.Absent)
	t.Height = table.New(rows, n, table.Absent)
	t.Crossing = table.New(rows, n, 0)

	for r := 0; r < rows; r++ {
		for c := 0; c < n; c++ {
			if t.Session.Get(r, c) != 0 {
				t.Presence.Set(r, c, PresenceContact)
			}
		}
	}

	for _, s := range net.Sessions {
		t.Sessions[s.ID] = s
	}
	return t
}

// Cols returns the number of effective columns.
func (t *Tables) Cols() int { return t.Presence.Cols() }

// Rows returns the number of entities.
func (t *Tables) Rows() int { return t.Presence.Rows() }

// PresentAt reports whether the entity participates (contact or idle) in the
// effective column.
func (t *Tables) PresentAt(entity, col int) bool {
	return t.Presence.Get(entity, col) != PresenceAbsent
}

// sessionOfColumn returns the contact session shown in an effective column,
// or nil when the column has none.
func (t *Tables) sessionOfColumn(col int) *network.Session {
	for r := 0; r < t.Rows(); r++ {
		if t.Presence.Get(r, col) == PresenceContact {
			return t.Sessions[t.Session.Get(r, col)]
		}
	}
	return nil
}
