package render

import "github.com/matzehuels/spreadline/pkg/table"

// inlineRunLength is the shortest straight run that earns an extra inline
// label.
const inlineRunLength = 3

// buildStorylines emits one continuous path per entity with at least one
// participating slice. Idle synthesis guarantees each entity's presence is
// a single contiguous run, so the path never breaks.
func (r *renderer) buildStorylines() []Storyline {
	var out []Storyline
	for _, e := range r.t.Net.Entities {
		first, last := -1, -1
		for c := 0; c < r.t.Cols(); c++ {
			if !r.t.PresentAt(e.Index, c) {
				continue
			}
			if first < 0 {
				first = c
			}
			last = c
		}
		if first < 0 {
			continue
		}
		out = append(out, r.storyline(e.Index, e.Name, e.Category, first, last))
	}
	return out
}

func (r *renderer) storyline(row int, name, category string, first, last int) Storyline {
	s := Storyline{Entity: name, Category: category}

	for c := first; c <= last; c++ {
		s.Points = append(s.Points, Point{X: r.bandX[c], Y: r.y(r.t.Height.Get(row, c))})
		s.Exits = append(s.Exits, r.t.Crossing.Get(row, c))
	}
	for i := 1; i < len(s.Points); i++ {
		s.Path = append(s.Path, segment(s.Points[i-1], s.Points[i]))
	}

	s.Start = s.Points[0]
	s.End = s.Points[len(s.Points)-1]

	// Bands run in descending time, so the latest appearance is the
	// visually leftmost terminal and carries the leading label.
	anchor := s.End
	s.Label = Label{Text: name, X: anchor.X, Y: anchor.Y}
	s.InlineLabels = r.inlineLabels(row, name, first, last)
	return s
}

// RebuildPath recomputes the path, terminals and leading label from the
// current points. Callers that relocate points (contextual profiles) use
// this to keep the derived geometry consistent.
func (s *Storyline) RebuildPath() {
	if len(s.Points) == 0 {
		return
	}
	s.Path = s.Path[:0]
	for i := 1; i < len(s.Points); i++ {
		s.Path = append(s.Path, segment(s.Points[i-1], s.Points[i]))
	}
	s.Start = s.Points[0]
	s.End = s.Points[len(s.Points)-1]
	anchor := s.End
	if s.Start.X < anchor.X {
		anchor = s.Start
	}
	s.Label.X, s.Label.Y = anchor.X, anchor.Y
}

// segment connects two anchors: a straight line when the levels match, a
// cubic bezier with both control points at the horizontal midpoint
// otherwise.
func segment(from, to Point) Segment {
	if from.Y == to.Y {
		return Segment{Kind: SegmentLine, From: from, To: to}
	}
	mid := (from.X + to.X) / 2
	return Segment{
		Kind: SegmentBezier,
		From: from,
		To:   to,
		C1:   Point{X: mid, Y: from.Y},
		C2:   Point{X: mid, Y: to.Y},
	}
}

// inlineLabels injects one label at the midpoint of every straight run of
// at least inlineRunLength slices. The labeled terminal column is excluded
// from the run accounting since the leading label already covers it.
func (r *renderer) inlineLabels(row int, name string, first, last int) []Label {
	var out []Label
	runStart := first
	for c := first; c < last; c++ {
		endOfRun := c == last-1 || r.t.Height.Get(row, c+1) != r.t.Height.Get(row, c)
		if !endOfRun {
			continue
		}
		if length := c - runStart + 1; length >= inlineRunLength {
			mid := runStart + length/2
			h := r.t.Height.Get(row, mid)
			if h != table.Absent {
				out = append(out, Label{Text: name, X: r.bandX[mid], Y: r.y(h)})
			}
		}
		runStart = c + 1
	}
	return out
}
