package layout

import "github.com/matzehuels/spreadline/pkg/table"

// Compacting fills the height and crossing tables.
//
// Heights are the concrete integer vertical levels, pre-scaling. Without the
// same-category squeeze they are the alignment levels shifted so the global
// minimum is zero, which preserves the straightness the aligning pass worked
// for. With SqueezeSameCategory enabled, heights are re-accumulated per
// column so that vertically adjacent entities sharing the ego's category sit
// one level apart while category boundaries get two, trading some
// straightness for a tighter same-affiliation band.
//
// Invariants: within one column, height is strictly monotonic with order;
// absent entities carry the table.Absent sentinel and never a real level.
func Compacting(t *Tables, cfg Config) {
	if cfg.SqueezeSameCategory {
		squeezeHeights(t)
	} else {
		shiftHeights(t)
	}
	sessionCenters(t, t.Height, t.SessionHeight)
	fillNodeRows(t)
	fillCrossings(t)
}

// fillNodeRows copies the computed heights onto the session node records so
// consumers holding a Session can read member rows without the tables.
func fillNodeRows(t *Tables) {
	for c := 0; c < t.Cols(); c++ {
		for r := 0; r < t.Rows(); r++ {
			id := t.Session.Get(r, c)
			if id == 0 {
				continue
			}
			for _, node := range t.Sessions[id].Nodes {
				if node.Entity.Index == r {
					node.Row = t.Height.Get(r, c)
				}
			}
		}
	}
}

func shiftHeights(t *Tables) {
	min := -1
	for c := 0; c < t.Cols(); c++ {
		for r := 0; r < t.Rows(); r++ {
			if v := t.Align.Get(r, c); v >= 0 && (min < 0 || v < min) {
				min = v
			}
		}
	}
	if min < 0 {
		return // empty layout
	}
	for c := 0; c < t.Cols(); c++ {
		for r := 0; r < t.Rows(); r++ {
			if v := t.Align.Get(r, c); v >= 0 {
				t.Height.Set(r, c, v-min)
			}
		}
	}
}

func squeezeHeights(t *Tables) {
	egoCategory := ""
	if e := t.Net.EgoEntity(); e != nil {
		egoCategory = e.Category
	}

	for c := 0; c < t.Cols(); c++ {
		level := 0
		prevSameCat := false
		for i, r := range slotOrder(t, c) {
			sameCat := egoCategory != "" && t.Net.Entities[r].Category == egoCategory
			if i > 0 {
				gap := 2
				if sameCat && prevSameCat {
					gap = 1
				}
				level += gap
			}
			t.Height.Set(r, c, level)
			prevSameCat = sameCat
		}
	}
}

// fillCrossings records, per present cell, which side the entity's line
// should exit toward: +1 when its next appearance sits lower, -1 when it
// sits higher, 0 when the line runs straight or ends. The renderer uses the
// sign to pick the bezier curvature and the block edge a line leaves from.
func fillCrossings(t *Tables) {
	for r := 0; r < t.Rows(); r++ {
		for c := 0; c < t.Cols(); c++ {
			h := t.Height.Get(r, c)
			if h == table.Absent {
				continue
			}
			next := table.Absent
			for k := c + 1; k < t.Cols(); k++ {
				if v := t.Height.Get(r, k); v != table.Absent {
					next = v
					break
				}
				// A fully absent run means the line ended; idles always
				// carry a height, so the first absent cell terminates it.
				break
			}
			switch {
			case next == table.Absent || next == h:
				t.Crossing.Set(r, c, 0)
			case next > h:
				t.Crossing.Set(r, c, 1)
			default:
				t.Crossing.Set(r, c, -1)
			}
		}
	}
}

// Run executes the three engines in order and returns the idle allocator
// from the ordering phase.
func Run(t *Tables, cfg Config) *IdleAllocator {
	alloc := Order(t, cfg)
	Aligning(t, cfg)
	Compacting(t, cfg)
	return alloc
}
