package network

import (
	"slices"
	"sort"

	"github.com/matzehuels/spreadline/pkg/errors"
	"github.com/matzehuels/spreadline/pkg/table"
)

// DefaultMaxHops is the BFS hop limit of the egocentric subgraph.
const DefaultMaxHops = 2

// Options configures network construction.
type Options struct {
	// Ego is the focal entity. Required.
	Ego string

	// Layout is the Go reference layout of the time buckets (e.g. "2006"
	// for yearly slices). Defaults to "2006".
	Layout string

	// RawLayout is the layout of the raw interaction timestamps when finer
	// than the bucket layout. Defaults to Layout.
	RawLayout string

	// TimeRange optionally fixes the bucket extents instead of deriving
	// them from the observed data. Both labels use Layout.
	TimeRange [2]string

	// MaxHops bounds the BFS distance from the ego. Defaults to 2.
	MaxHops int

	// Groups optionally supplies explicit five-tier member assignments per
	// time label, overriding automatic hop/category tiering.
	Groups map[string][NumTiers][]string

	// Categories maps entities to their contextual category (e.g.
	// affiliation). Used by automatic tiering and carried onto entities
	// for line tinting. The ego needs its own row here: the inside tiers
	// hold entities sharing the ego's category, so without it every member
	// lands in an outside tier and same-category squeezing has no effect.
	Categories map[string]string
}

func (o *Options) setDefaults() error {
	if o.Ego == "" {
		return errors.New(errors.ErrCodeMissingEgo, "ego entity is required")
	}
	if o.Layout == "" {
		o.Layout = "2006"
	}
	if o.RawLayout == "" {
		o.RawLayout = o.Layout
	}
	if o.MaxHops == 0 {
		o.MaxHops = DefaultMaxHops
	}
	return nil
}

// Build constructs the egocentric network from raw interaction rows.
//
// Time slices in which the ego has no edges are discarded entirely. Within a
// qualifying slice, duplicate edges are aggregated by summing weight before
// the BFS runs, and an edge survives only if it lies on a path of at most
// MaxHops hops from the ego inside its own bucket.
//
// Zero qualifying slices produce an empty (but valid) network; downstream
// phases handle empty tables without raising.
func Build(rows []Interaction, opts Options) (*Network, error) {
	if err := opts.setDefaults(); err != nil {
		return nil, err
	}

	n := &Network{
		Ego:     opts.Ego,
		Layout:  opts.Layout,
		byName:  map[string]*Entity{},
		bySlice: map[int]*Session{},
	}

	buckets, first, last, err := bucketRows(rows, opts)
	if err != nil {
		return nil, err
	}
	if len(buckets) == 0 {
		return n, nil
	}

	if opts.TimeRange[0] != "" && opts.TimeRange[1] != "" {
		first, last = opts.TimeRange[0], opts.TimeRange[1]
	}
	labels, err := table.BucketSequence(first, last, opts.Layout)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeInvalidLayout, err, "derive bucket sequence")
	}
	n.Labels = labels

	slice := make(map[string]int, len(labels))
	for i, l := range labels {
		slice[l] = i
	}

	for _, label := range sortedKeys(buckets) {
		idx, ok := slice[label]
		if !ok {
			continue // outside an explicitly supplied time range
		}
		arcs := aggregate(buckets[label])
		arcs = egoReachable(arcs, opts.Ego, opts.MaxHops)
		if len(arcs) == 0 && !hasSelfEdge(buckets[label], opts.Ego) {
			continue // ego absent from this slice
		}
		n.addSession(idx, arcs, opts.MaxHops)
	}

	for _, e := range n.Entities {
		e.Category = opts.Categories[e.Name]
		for _, id := range e.Timeline {
			if id != 0 {
				e.SessionCount++
			}
		}
	}

	for _, s := range n.Sessions {
		assignTiers(n, s, opts.Groups)
	}

	return n, nil
}

// hasSelfEdge reports whether the ego carries a self loop in the bucket.
// Self loops are dropped during aggregation, but they still qualify the
// slice: the resulting session contains just the ego.
func hasSelfEdge(rows []Interaction, ego string) bool {
	for _, r := range rows {
		if r.Source == ego && r.Target == ego {
			return true
		}
	}
	return false
}

// bucketRows groups the raw rows by bucket label and returns the observed
// label extents.
func bucketRows(rows []Interaction, opts Options) (map[string][]Interaction, string, string, error) {
	buckets := map[string][]Interaction{}
	var first, last string
	for _, row := range rows {
		label, err := table.Bucket(row.Time, opts.RawLayout, opts.Layout)
		if err != nil {
			return nil, "", "", errors.Wrap(errors.ErrCodeInvalidLayout, err, "bucket interaction time")
		}
		buckets[label] = append(buckets[label], row)
		if first == "" || label < first {
			first = label
		}
		if label > last {
			last = label
		}
	}
	return buckets, first, last, nil
}

// aggregate merges duplicate edges within one bucket by summing weight.
// Edges are undirected for reachability purposes, so the pair is keyed in
// lexical order. The result is sorted for determinism.
func aggregate(rows []Interaction) []Arc {
	type pair struct{ a, b string }
	sums := map[pair]float64{}
	for _, r := range rows {
		if r.Source == r.Target {
			continue
		}
		p := pair{r.Source, r.Target}
		if p.b < p.a {
			p.a, p.b = p.b, p.a
		}
		sums[p] += r.Weight
	}

	arcs := make([]Arc, 0, len(sums))
	for p, w := range sums {
		arcs = append(arcs, Arc{Source: p.a, Target: p.b, Weight: w})
	}
	slices.SortFunc(arcs, func(x, y Arc) int {
		if x.Source != y.Source {
			if x.Source < y.Source {
				return -1
			}
			return 1
		}
		if x.Target < y.Target {
			return -1
		}
		if x.Target > y.Target {
			return 1
		}
		return 0
	})
	return arcs
}

// egoReachable runs a BFS from the ego and keeps the arcs that lie on a path
// of at most maxHops hops: the nearer endpoint must be strictly inside the
// hop limit and the farther one within it. Returns nil when the ego has no
// edges in the bucket.
func egoReachable(arcs []Arc, ego string, maxHops int) []Arc {
	adj := map[string][]string{}
	for _, a := range arcs {
		adj[a.Source] = append(adj[a.Source], a.Target)
		adj[a.Target] = append(adj[a.Target], a.Source)
	}
	if len(adj[ego]) == 0 {
		return nil
	}

	dist := bfs(adj, ego, maxHops)

	var kept []Arc
	for _, a := range arcs {
		ds, okS := dist[a.Source]
		dt, okT := dist[a.Target]
		if !okS || !okT {
			continue
		}
		if min(ds, dt) < maxHops && max(ds, dt) <= maxHops {
			kept = append(kept, a)
		}
	}
	return kept
}

// bfs returns hop distances from the start node, bounded by maxHops.
func bfs(adj map[string][]string, start string, maxHops int) map[string]int {
	dist := map[string]int{start: 0}
	frontier := []string{start}
	for hop := 1; hop <= maxHops && len(frontier) > 0; hop++ {
		var next []string
		for _, u := range frontier {
			for _, v := range adj[u] {
				if _, seen := dist[v]; !seen {
					dist[v] = hop
					next = append(next, v)
				}
			}
		}
		frontier = next
	}
	return dist
}

// addSession registers one contact session and assigns member timelines.
func (n *Network) addSession(slice int, arcs []Arc, maxHops int) {
	s := &Session{
		ID:    len(n.Sessions) + 1,
		Slice: slice,
		Arcs:  arcs,
		hops:  map[string]int{},
	}
	for _, a := range arcs {
		s.Weight += a.Weight
	}

	adj := map[string][]string{}
	for _, a := range arcs {
		adj[a.Source] = append(adj[a.Source], a.Target)
		adj[a.Target] = append(adj[a.Target], a.Source)
	}
	s.hops = bfs(adj, n.Ego, maxHops)

	for _, name := range sortedMembers(n.Ego, arcs) {
		e := n.entity(name)
		e.Timeline[slice] = s.ID
		s.Nodes = append(s.Nodes, &Node{Entity: e, SessionID: s.ID})
	}

	n.Sessions = append(n.Sessions, s)
	n.bySlice[slice] = s
}

// NewIdleSession creates a synthetic gap-filler session for one entity at
// one slice. The ordering phase allocates the IDs.
func NewIdleSession(id int, slice int, e *Entity) *Session {
	s := &Session{ID: id, Slice: slice, Idle: true}
	s.Nodes = []*Node{{Entity: e, SessionID: id}}
	s.Tiers[TierEgo] = []string{e.Name}
	return s
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
