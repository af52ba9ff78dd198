package render

import (
	"sort"

	"github.com/matzehuels/spreadline/pkg/network"
	"github.com/matzehuels/spreadline/pkg/table"
)

// buildBlocks emits the container geometry of every contact session, in
// session-id order. Idle sessions are bridges for the storylines only and
// get no block.
func (r *renderer) buildBlocks() []Block {
	sliceToCol := map[int]int{}
	for c, s := range r.t.SliceOf {
		sliceToCol[s] = c
	}

	ids := make([]int, 0, len(r.t.Sessions))
	for id, s := range r.t.Sessions {
		if !s.Idle {
			ids = append(ids, id)
		}
	}
	sort.Ints(ids)

	blocks := make([]Block, 0, len(ids))
	for _, id := range ids {
		s := r.t.Sessions[id]
		col, ok := sliceToCol[s.Slice]
		if !ok {
			continue
		}
		blocks = append(blocks, r.block(s, col))
	}
	return blocks
}

func (r *renderer) block(s *network.Session, col int) Block {
	radius := r.blockWidth / 2
	b := Block{
		SessionID: s.ID,
		Time:      r.t.Net.Labels[s.Slice],
		X:         r.bandX[col],
		Width:     r.blockWidth,
		Radius:    radius,
		Rounded:   !s.HasFarMembers(),
	}

	nodes := append([]*network.Node(nil), s.Nodes...)
	sort.Slice(nodes, func(i, j int) bool { return nodes[i].Slot < nodes[j].Slot })

	far := map[string]bool{}
	for _, tier := range []network.Tier{network.TierOutsideFar, network.TierInsideFar} {
		for _, name := range s.Tiers[tier] {
			far[name] = true
		}
	}

	pointOf := make(map[string]int, len(nodes))
	minRow, maxRow := 0, 0
	bodyFirst := true
	for i, n := range nodes {
		y := r.y(n.Row)
		pointOf[n.Entity.Name] = len(b.Points)
		b.Points = append(b.Points, Point{X: b.X, Y: y})
		if i == 0 || n.Row < minRow {
			minRow = n.Row
		}
		if i == 0 || n.Row > maxRow {
			maxRow = n.Row
		}
		if far[n.Entity.Name] {
			continue
		}
		if bodyFirst || y-radius < b.BodyTop {
			b.BodyTop = y - radius
		}
		if bodyFirst || y+radius > b.BodyBottom {
			b.BodyBottom = y + radius
		}
		bodyFirst = false
	}
	b.Top = r.y(minRow) - radius
	b.Bottom = r.y(maxRow) + radius
	if bodyFirst {
		// All members sit in far tiers; the straight run collapses.
		b.BodyTop, b.BodyBottom = b.Top, b.Bottom
	}

	for _, a := range s.Arcs {
		from, okFrom := pointOf[a.Source]
		to, okTo := pointOf[a.Target]
		if !okFrom || !okTo {
			continue
		}
		b.Arcs = append(b.Arcs, BlockArc{From: from, To: to, Weight: a.Weight})
	}

	if !b.Rounded {
		b.HopSections.Top = r.hopSection(s, col, network.TierOutsideFar)
		b.HopSections.Bottom = r.hopSection(s, col, network.TierInsideFar)
	}
	return b
}

// hopSection derives the collapsible outline section of one far tier, or
// nil when the tier is empty. The section spans its members' rows padded by
// the block radius.
func (r *renderer) hopSection(s *network.Session, col int, tier network.Tier) *HopSection {
	members := s.Tiers[tier]
	if len(members) == 0 {
		return nil
	}

	radius := r.blockWidth / 2
	sec := &HopSection{Members: append([]string(nil), members...)}
	first := true
	for _, name := range members {
		e, ok := r.t.Net.Entity(name)
		if !ok {
			continue
		}
		h := r.t.Height.Get(e.Index, col)
		if h == table.Absent {
			continue
		}
		y := r.y(h)
		if first || y-radius < sec.Top {
			sec.Top = y - radius
		}
		if first || y+radius > sec.Bottom {
			sec.Bottom = y + radius
		}
		first = false
	}
	return sec
}
