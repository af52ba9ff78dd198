// Package network builds the temporal egocentric network the layout pipeline
// consumes.
//
// Given timestamped pairwise interaction rows and a focal entity (the ego),
// the builder buckets the rows into time slices, keeps only the slices in
// which the ego participates, runs a bounded BFS outward from the ego in
// each slice, and aggregates the surviving edges into one contact session
// per slice. Every participant discovered this way becomes an Entity with a
// fixed-length timeline of session references.
//
// The resulting Network is the shared registry consumed by pkg/layout,
// pkg/contextual and pkg/render. Its structure (entities, sessions, arcs,
// tiers) is fixed after Build returns; the layout phases fill in the
// per-node Slot and Row placement fields, so a Network belongs to one
// layout run at a time.
package network

import (
	"slices"
)

// NumTiers is the number of ordered group buckets a session splits its
// members into.
const NumTiers = 5

// Tier is one of the five ordered group buckets, from the visual top of a
// block to its bottom. "Outside" tiers hold members that do not share the
// ego's category; "far" tiers hold second-hop members.
type Tier int

const (
	TierOutsideFar Tier = iota
	TierOutsideNear
	TierEgo
	TierInsideNear
	TierInsideFar
)

// IsFar reports whether the tier holds second-hop members. Far tiers are the
// ones the UI may collapse into hop sections.
func (t Tier) IsFar() bool { return t == TierOutsideFar || t == TierInsideFar }

// Interaction is one directed interaction event between two entities.
type Interaction struct {
	Source string
	Target string
	Time   string
	Weight float64
}

// Arc is an aggregated undirected edge inside one session. Source and Target
// are in lexical order; Weight sums all raw rows between the pair within the
// session's time bucket.
type Arc struct {
	Source string
	Target string
	Weight float64
}

// Entity is one participant of the network. Entities are created once, get
// their timeline filled during Build and are immutable afterwards.
type Entity struct {
	Name     string
	Index    int    // stable position in Network.Entities
	Category string // contextual category, empty when unknown

	// Timeline holds one session ID per time slice; 0 means absent.
	// Its length equals len(Network.Labels).
	Timeline []int

	// SessionCount is the number of distinct contact sessions the entity
	// participates in. Used for the funnel sort within tiers.
	SessionCount int
}

// Node is the lightweight positional record of one entity inside one
// session. Slot and Row are filled by the ordering and compaction phases;
// the node's lifetime equals the owning session's.
type Node struct {
	Entity    *Entity
	SessionID int
	Slot      int
	Row       int
}

// Session is one time slice's aggregated contact cluster, or a synthetic
// idle gap-filler created by the ordering phase.
type Session struct {
	ID     int
	Slice  int // index into Network.Labels
	Nodes  []*Node
	Arcs   []Arc
	Weight float64
	Idle   bool

	// Tiers holds the member names per tier in funnel order.
	Tiers [NumTiers][]string

	// hops records the BFS distance from the ego per member, captured
	// during construction for automatic tier assignment.
	hops map[string]int
}

// Members returns the session's member names in tier order.
func (s *Session) Members() []string {
	var out []string
	for _, tier := range s.Tiers {
		out = append(out, tier...)
	}
	return out
}

// HasFarMembers reports whether any member sits in a far (second-hop) tier.
func (s *Session) HasFarMembers() bool {
	return len(s.Tiers[TierOutsideFar]) > 0 || len(s.Tiers[TierInsideFar]) > 0
}

// Network is the constructed egocentric network: the entity/session registry
// plus the full ordered time-bucket sequence.
type Network struct {
	Ego      string
	Layout   string   // time layout the labels are formatted with
	Labels   []string // full bucket sequence, one bucket beyond the last extent
	Entities []*Entity
	Sessions []*Session // contact sessions ordered by slice

	byName  map[string]*Entity
	bySlice map[int]*Session
}

// Entity returns the entity with the given name and true, or nil and false.
func (n *Network) Entity(name string) (*Entity, bool) {
	e, ok := n.byName[name]
	return e, ok
}

// SessionAt returns the contact session of the given time slice, or nil if
// the slice has none.
func (n *Network) SessionAt(slice int) *Session { return n.bySlice[slice] }

// EgoEntity returns the ego's entity record. It is nil only for an empty
// network.
func (n *Network) EgoEntity() *Entity {
	e, _ := n.byName[n.Ego]
	return e
}

// entity returns the registered entity for name, creating it on first use.
func (n *Network) entity(name string) *Entity {
	if e, ok := n.byName[name]; ok {
		return e
	}
	e := &Entity{
		Name:     name,
		Index:    len(n.Entities),
		Timeline: make([]int, len(n.Labels)),
	}
	n.Entities = append(n.Entities, e)
	n.byName[name] = e
	return e
}

// sortedMembers returns the unique endpoint names of arcs plus the ego,
// ego first and the rest in lexical order. Deterministic registration
// order depends on this.
func sortedMembers(ego string, arcs []Arc) []string {
	seen := map[string]bool{ego: true}
	names := []string{ego}
	for _, a := range arcs {
		for _, name := range []string{a.Source, a.Target} {
			if !seen[name] {
				seen[name] = true
				names = append(names, name)
			}
		}
	}
	slices.Sort(names[1:])
	return names
}
