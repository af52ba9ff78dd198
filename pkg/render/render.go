// Package render is the pure geometry pass: it converts the finished layout
// tables into band positions, storyline paths and block outlines. All output
// is plain coordinate data; nothing here touches a drawing surface.
package render

import (
	"github.com/matzehuels/spreadline/pkg/layout"
	"github.com/matzehuels/spreadline/pkg/table"
)

// Frame defaults, overridable per render.
const (
	DefaultWidth         = 1200.0
	DefaultHeight        = 800.0
	DefaultBlockWidth    = 26.0
	DefaultStretchFactor = 2.0
)

type Option func(*renderer)

type renderer struct {
	t *layout.Tables

	width, height float64
	blockWidth    float64
	stretch       [][2]string
	stretchFactor float64

	// derived
	bandX      []float64 // center X per effective column
	bandWidth  float64
	minH, maxH int
	vStep      float64
}

func WithSize(width, height float64) Option {
	return func(r *renderer) { r.width, r.height = width, height }
}

func WithBlockWidth(w float64) Option { return func(r *renderer) { r.blockWidth = w } }

// WithBandStretch widens the bands of every time label falling inside one
// of the given inclusive [from, to] label ranges.
func WithBandStretch(ranges [][2]string) Option {
	return func(r *renderer) { r.stretch = ranges }
}

func WithStretchFactor(f float64) Option { return func(r *renderer) { r.stretchFactor = f } }

// Render turns the layout tables into the immutable geometry result.
// Rendering never mutates the tables, so repeated calls yield identical
// results.
func Render(t *layout.Tables, opts ...Option) *Result {
	r := &renderer{
		t:             t,
		width:         DefaultWidth,
		height:        DefaultHeight,
		blockWidth:    DefaultBlockWidth,
		stretchFactor: DefaultStretchFactor,
	}
	for _, opt := range opts {
		opt(r)
	}

	res := &Result{
		BlockWidth: r.blockWidth,
		Ego:        t.Net.Ego,
	}
	if t.Cols() == 0 {
		return res
	}

	res.TimeLabels = r.layoutBands()
	res.BandWidth = r.bandWidth
	r.scaleHeights()
	res.HeightExtents = [2]int{r.minH, r.maxH}
	res.Storylines = r.buildStorylines()
	res.Blocks = r.buildBlocks()
	return res
}

// scaleHeights derives the vertical pixel step from the global height
// extents.
func (r *renderer) scaleHeights() {
	r.minH, r.maxH = 0, 0
	first := true
	for row := 0; row < r.t.Rows(); row++ {
		for col := 0; col < r.t.Cols(); col++ {
			h := r.t.Height.Get(row, col)
			if h == table.Absent {
				continue
			}
			if first || h < r.minH {
				r.minH = h
			}
			if first || h > r.maxH {
				r.maxH = h
			}
			first = false
		}
	}
	r.vStep = r.height / float64(r.maxH-r.minH+1)
}

// y maps an integer height level to the center Y of its pixel band.
func (r *renderer) y(h int) float64 {
	return (float64(h-r.minH) + 0.5) * r.vStep
}
