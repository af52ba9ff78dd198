package layout

// Aligning fills the align table: a preferred vertical level per entity per
// effective column that minimizes zig-zag between consecutive columns while
// respecting the slot order of each column.
//
// The forward pass processes columns left to right. An entity present in the
// previous column (contact or idle) wants to keep its level; newcomers take
// the next free level. Strict monotonicity with the slot order is enforced
// by only ever pushing levels down. Idle entities are aligned exactly like
// contacts so the bridge across a gap stays smooth rather than resetting.
//
// MinimizeWiggles adds a backward pass that pulls levels toward the next
// column's where slack allows; MinimizeSpace skips the carry and packs
// levels tightly.
func Aligning(t *Tables, cfg Config) {
	for c := 0; c < t.Cols(); c++ {
		alignColumn(t, c, cfg.Minimize)
	}
	if cfg.Minimize == MinimizeWiggles {
		smoothBackward(t)
	}
	sessionCenters(t, t.Align, t.SessionAlign)
}

func alignColumn(t *Tables, col int, strategy Minimize) {
	last := -1
	for _, r := range slotOrder(t, col) {
		desired := last + 1
		if strategy != MinimizeSpace && col > 0 {
			if prev := t.Align.Get(r, col-1); prev >= 0 {
				desired = prev
			}
		}
		if desired <= last {
			desired = last + 1
		}
		t.Align.Set(r, col, desired)
		last = desired
	}
}

// smoothBackward walks columns right to left and entities bottom to top,
// raising a level toward its successor column's level when the slot below
// (already final) leaves room.
func smoothBackward(t *Tables) {
	for c := t.Cols() - 2; c >= 0; c-- {
		order := slotOrder(t, c)
		upper := int(^uint(0) >> 1) // no bound below the last slot
		for i := len(order) - 1; i >= 0; i-- {
			r := order[i]
			cur := t.Align.Get(r, c)
			if next := t.Align.Get(r, c+1); next > cur && next < upper {
				cur = next
				t.Align.Set(r, c, cur)
			}
			upper = cur
		}
	}
}

// sessionCenters computes one vertical center per session: the mid level of
// its members in the session's column. Idle sessions center on their single
// member.
func sessionCenters(t *Tables, src interface{ Get(int, int) int }, dst map[int]int) {
	for c := 0; c < t.Cols(); c++ {
		sums := map[int][2]int{} // session id → (sum, count)
		for r := 0; r < t.Rows(); r++ {
			id := t.Session.Get(r, c)
			if id == 0 {
				continue
			}
			if v := src.Get(r, c); v >= 0 {
				acc := sums[id]
				sums[id] = [2]int{acc[0] + v, acc[1] + 1}
			}
		}
		for id, acc := range sums {
			dst[id] = acc[0] / acc[1]
		}
	}
}

// slotOrder returns the entity rows of one column sorted by slot.
func slotOrder(t *Tables, col int) []int {
	bySlot := map[int]int{}
	count := 0
	for r := 0; r < t.Rows(); r++ {
		if s := t.Order.Get(r, col); s >= 0 {
			bySlot[s] = r
			count++
		}
	}
	out := make([]int, 0, count)
	for s := 0; len(out) < count; s++ {
		if r, ok := bySlot[s]; ok {
			out = append(out, r)
		}
	}
	return out
}
