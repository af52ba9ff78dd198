package network

import (
	"cmp"
	"slices"
)

// assignTiers buckets a session's members into the five ordered tiers.
//
// When an explicit assignment exists for the session's time label it wins
// wholesale; otherwise members are tiered automatically by hop distance and
// category match with the ego. Either way the tiers are de-overlapped
// (inner tier wins) and funnel-sorted.
func assignTiers(n *Network, s *Session, groups map[string][NumTiers][]string) {
	if groups != nil {
		if explicit, ok := groups[n.Labels[s.Slice]]; ok {
			s.Tiers = restrictToMembers(explicit, s)
			dedupeTiers(&s.Tiers)
			funnelSort(n, &s.Tiers)
			return
		}
	}

	ego := n.Ego
	egoCategory := egoCategoryOf(n)
	for _, node := range s.Nodes {
		name := node.Entity.Name
		if name == ego {
			s.Tiers[TierEgo] = append(s.Tiers[TierEgo], name)
			continue
		}
		inside := egoCategory != "" && node.Entity.Category == egoCategory
		far := s.hops[name] >= 2
		s.Tiers[tierFor(inside, far)] = append(s.Tiers[tierFor(inside, far)], name)
	}
	funnelSort(n, &s.Tiers)
}

func tierFor(inside, far bool) Tier {
	switch {
	case inside && far:
		return TierInsideFar
	case inside:
		return TierInsideNear
	case far:
		return TierOutsideFar
	default:
		return TierOutsideNear
	}
}

func egoCategoryOf(n *Network) string {
	if e, ok := n.Entity(n.Ego); ok {
		return e.Category
	}
	return ""
}

// restrictToMembers drops names from an explicit assignment that are not
// members of this session, and appends unassigned members to the ego tier
// so the partition stays total.
func restrictToMembers(explicit [NumTiers][]string, s *Session) [NumTiers][]string {
	present := map[string]bool{}
	for _, node := range s.Nodes {
		present[node.Entity.Name] = true
	}

	var out [NumTiers][]string
	assigned := map[string]bool{}
	for t := range explicit {
		for _, name := range explicit[t] {
			if present[name] {
				out[t] = append(out[t], name)
				assigned[name] = true
			}
		}
	}
	for _, node := range s.Nodes {
		if !assigned[node.Entity.Name] {
			out[TierEgo] = append(out[TierEgo], node.Entity.Name)
		}
	}
	return out
}

// dedupeTiers resolves members listed in more than one tier by keeping only
// the innermost occurrence. Inner-ness is distance from the ego tier.
func dedupeTiers(tiers *[NumTiers][]string) {
	depth := func(t Tier) int {
		d := int(t) - int(TierEgo)
		if d < 0 {
			return -d
		}
		return d
	}

	best := map[string]Tier{}
	for t := Tier(0); t < NumTiers; t++ {
		for _, name := range tiers[t] {
			if prev, ok := best[name]; !ok || depth(t) < depth(prev) {
				best[name] = t
			}
		}
	}
	for t := Tier(0); t < NumTiers; t++ {
		tiers[t] = slices.DeleteFunc(tiers[t], func(name string) bool {
			return best[name] != t
		})
	}
}

// funnelSort orders members within each tier by distinct-session count:
// ascending for the outer tiers and descending for the ego and inner tiers,
// so activity funnels visually toward the ego. Names break ties.
func funnelSort(n *Network, tiers *[NumTiers][]string) {
	count := func(name string) int {
		if e, ok := n.Entity(name); ok {
			return e.SessionCount
		}
		return 0
	}

	for t := Tier(0); t < NumTiers; t++ {
		asc := t == TierOutsideFar || t == TierOutsideNear
		slices.SortFunc(tiers[t], func(a, b string) int {
			ca, cb := count(a), count(b)
			if ca != cb {
				if asc {
					return ca - cb
				}
				return cb - ca
			}
			return cmp.Compare(a, b)
		})
	}
}
