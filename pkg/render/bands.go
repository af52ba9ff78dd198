package render

// layoutBands assigns a horizontal band to every effective time label.
// Bands run in descending time order, so the most recent label sits
// leftmost. Labels inside a stretch range get stretchFactor times the base
// band width. The returned slice is in band order (left to right); bandX
// is filled indexed by effective column.
func (r *renderer) layoutBands() []TimeLabel {
	cols := r.t.Cols()
	weights := make([]float64, cols)
	total := 0.0
	for c := 0; c < cols; c++ {
		weights[c] = 1
		if r.stretched(r.t.Labels[c]) {
			weights[c] = r.stretchFactor
		}
		total += weights[c]
	}
	r.bandWidth = r.width / total

	r.bandX = make([]float64, cols)
	labels := make([]TimeLabel, 0, cols)
	x := 0.0
	for c := cols - 1; c >= 0; c-- {
		w := weights[c] * r.bandWidth
		r.bandX[c] = x + w/2
		labels = append(labels, TimeLabel{Label: r.t.Labels[c], PosX: r.bandX[c]})
		x += w
	}
	return labels
}

// stretched reports whether a label falls inside any stretch range. Ranges
// are inclusive and compared on the label's natural string order, which
// matches temporal order for the supported time layouts.
func (r *renderer) stretched(label string) bool {
	for _, rng := range r.stretch {
		lo, hi := rng[0], rng[1]
		if lo > hi {
			lo, hi = hi, lo
		}
		if lo <= label && label <= hi {
			return true
		}
	}
	return false
}
