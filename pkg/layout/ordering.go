package layout

import (
	"slices"

	"github.com/matzehuels/spreadline/pkg/network"
)

// IdleAllocator hands out globally unique session IDs for synthesized idle
// sessions. It is an explicit value rather than a shared counter so the
// ordering phase stays a pure function: two pipelines running concurrently
// each thread their own allocator.
type IdleAllocator struct {
	next int
}

// NewIdleAllocator creates an allocator that continues after the highest
// contact-session id already in use.
func NewIdleAllocator(net *network.Network) *IdleAllocator {
	return &IdleAllocator{next: len(net.Sessions) + 1}
}

// Next returns a fresh id, never reused across gaps.
func (a *IdleAllocator) Next() int {
	id := a.next
	a.next++
	return id
}

// Order fills the order table: one total slot order per effective column
// over all participating entities, honoring the five-tier grouping, and
// synthesizes idle sessions bridging each entity's non-consecutive contact
// appearances. It returns the allocator so callers can continue allocating
// (or inspect how many idles were created).
func Order(t *Tables, cfg Config) *IdleAllocator {
	alloc := NewIdleAllocator(t.Net)
	synthesizeIdles(t, alloc)

	prev := make([]int, t.Rows()) // previous column's slots
	for c := 0; c < t.Cols(); c++ {
		if c > 0 {
			for r := 0; r < t.Rows(); r++ {
				prev[r] = t.Order.Get(r, c-1)
			}
		}
		orderColumn(t, c, prev)
	}
	return alloc
}

// synthesizeIdles walks each entity's effective timeline and fills every
// slice strictly between two contact appearances with a freshly allocated
// idle session. Ids are unique per (entity, gap); a gap never reuses an id.
func synthesizeIdles(t *Tables, alloc *IdleAllocator) {
	for _, e := range t.Net.Entities {
		lastContact := -1
		for c := 0; c < t.Cols(); c++ {
			if t.Presence.Get(e.Index, c) != PresenceContact {
				continue
			}
			if lastContact >= 0 && c > lastContact+1 {
				for k := lastContact + 1; k < c; k++ {
					id := alloc.Next()
					s := network.NewIdleSession(id, t.SliceOf[k], e)
					t.Sessions[id] = s
					t.Session.Set(e.Index, k, id)
					t.Presence.Set(e.Index, k, PresenceIdle)
				}
			}
			lastContact = c
		}
	}
}

// orderColumn assigns slots for one effective column. Within each tier,
// entities that were present in the previous column keep their relative
// order; newcomers follow in the tier's funnel order. The ego is always
// re-centered structurally within its tier group.
func orderColumn(t *Tables, col int, prev []int) {
	session := t.sessionOfColumn(col)

	// Canonical rank inside the tier, from the session's funnel sort.
	rank := map[string]int{}
	tierOf := map[string]network.Tier{}
	if session != nil {
		for tier := network.Tier(0); tier < network.NumTiers; tier++ {
			for i, name := range session.Tiers[tier] {
				rank[name] = i
				tierOf[name] = tier
			}
		}
	}

	var tiers [network.NumTiers][]*network.Entity
	for _, e := range t.Net.Entities {
		switch t.Presence.Get(e.Index, col) {
		case PresenceContact:
			tiers[tierOf[e.Name]] = append(tiers[tierOf[e.Name]], e)
		case PresenceIdle:
			// Idle lines keep the tier of their previous appearance so the
			// bridge does not jump across the block.
			tiers[idleTier(t, e, col)] = append(tiers[idleTier(t, e, col)], e)
		}
	}

	slot := 0
	for tier := network.Tier(0); tier < network.NumTiers; tier++ {
		members := tiers[tier]
		slices.SortFunc(members, func(a, b *network.Entity) int {
			return columnKey(a, prev, rank) - columnKey(b, prev, rank)
		})
		if tier == network.TierEgo {
			centerEgo(members, t.Net.Ego)
		}
		for _, e := range members {
			t.Order.Set(e.Index, col, slot)
			if t.Presence.Get(e.Index, col) == PresenceContact {
				setNodeSlot(t.Sessions[t.Session.Get(e.Index, col)], e, slot)
			}
			slot++
		}
	}
}

// columnKey sorts previously-present entities by their previous slot and
// newcomers after them by funnel rank, entity index breaking ties.
func columnKey(e *network.Entity, prev []int, rank map[string]int) int {
	if p := prev[e.Index]; p >= 0 {
		return p
	}
	base := 1 << 16
	if r, ok := rank[e.Name]; ok {
		return base + r<<8 + e.Index
	}
	return base + e.Index
}

// centerEgo moves the ego to the structural center of its tier group.
func centerEgo(members []*network.Entity, ego string) {
	idx := slices.IndexFunc(members, func(e *network.Entity) bool { return e.Name == ego })
	if idx < 0 {
		return
	}
	e := members[idx]
	rest := slices.Delete(slices.Clone(members), idx, idx+1)
	mid := len(rest) / 2
	copy(members, rest[:mid])
	members[mid] = e
	copy(members[mid+1:], rest[mid:])
}

// idleTier returns the tier the entity occupied at its most recent contact
// column before col. Idle sessions always follow a contact, so the scan
// terminates with a real tier.
func idleTier(t *Tables, e *network.Entity, col int) network.Tier {
	for c := col - 1; c >= 0; c-- {
		if t.Presence.Get(e.Index, c) != PresenceContact {
			continue
		}
		s := t.Sessions[t.Session.Get(e.Index, c)]
		for tier := network.Tier(0); tier < network.NumTiers; tier++ {
			if slices.Contains(s.Tiers[tier], e.Name) {
				return tier
			}
		}
	}
	return network.TierEgo
}

func setNodeSlot(s *network.Session, e *network.Entity, slot int) {
	for _, node := range s.Nodes {
		if node.Entity == e {
			node.Slot = slot
			return
		}
	}
}
