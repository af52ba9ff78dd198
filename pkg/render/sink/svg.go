package sink

import (
	"bytes"
	"fmt"

	"github.com/matzehuels/spreadline/pkg/render"
)

// Preview frame padding around the geometry.
const svgPadding = 40.0

var defaultPalette = []string{"#4e79a7", "#f28e2b", "#59a045", "#b07aa1", "#76b7b2"}

type SVGOption func(*svgRenderer)

type svgRenderer struct {
	width, height float64
	colors        map[string]string
	egoColor      string
	showLabels    bool
	showBands     bool
}

// WithFrame overrides the preview frame size.
func WithFrame(width, height float64) SVGOption {
	return func(r *svgRenderer) { r.width, r.height = width, height }
}

// WithColors assigns line colors per category. Categories without an entry
// cycle through the default palette.
func WithColors(colors map[string]string) SVGOption {
	return func(r *svgRenderer) { r.colors = colors }
}

// WithEgoColor overrides the ego storyline color.
func WithEgoColor(c string) SVGOption { return func(r *svgRenderer) { r.egoColor = c } }

// WithLabels draws the leading and inline entity labels.
func WithLabels() SVGOption { return func(r *svgRenderer) { r.showLabels = true } }

// WithBands draws the time-band guides and labels.
func WithBands() SVGOption { return func(r *svgRenderer) { r.showBands = true } }

// RenderSVG paints the emitted geometry as a self-contained preview image.
// It is a debugging aid, not the product surface: the real rendering layer
// consumes the JSON contract instead.
func RenderSVG(res *render.Result, opts ...SVGOption) []byte {
	r := svgRenderer{egoColor: "#333333"}
	for _, opt := range opts {
		opt(&r)
	}

	var buf bytes.Buffer
	w, h := r.frame(res)
	fmt.Fprintf(&buf, `<svg xmlns="http://www.w3.org/2000/svg" viewBox="0 0 %.1f %.1f" width="%.0f" height="%.0f">`+"\n",
		w, h, w, h)
	fmt.Fprintf(&buf, `  <rect width="%.1f" height="%.1f" fill="white"/>`+"\n", w, h)

	if r.showBands {
		renderBands(&buf, res, h)
	}
	for _, b := range res.Blocks {
		renderBlock(&buf, b)
	}
	for i, s := range res.Storylines {
		r.renderStoryline(&buf, res, s, i)
	}

	buf.WriteString("</svg>\n")
	return buf.Bytes()
}

func (r *svgRenderer) frame(res *render.Result) (float64, float64) {
	if r.width > 0 && r.height > 0 {
		return r.width, r.height
	}
	w, h := 0.0, 0.0
	for _, l := range res.TimeLabels {
		if l.PosX > w {
			w = l.PosX
		}
	}
	for _, s := range res.Storylines {
		for _, p := range s.Points {
			if p.Y > h {
				h = p.Y
			}
		}
	}
	return w + svgPadding, h + svgPadding
}

func renderBands(buf *bytes.Buffer, res *render.Result, height float64) {
	for _, l := range res.TimeLabels {
		fmt.Fprintf(buf, `  <line x1="%.1f" y1="0" x2="%.1f" y2="%.1f" stroke="#eeeeee"/>`+"\n",
			l.PosX, l.PosX, height)
		fmt.Fprintf(buf, `  <text x="%.1f" y="14" font-size="11" text-anchor="middle" fill="#888888">%s</text>`+"\n",
			l.PosX, l.Label)
	}
}

func renderBlock(buf *bytes.Buffer, b render.Block) {
	fmt.Fprintf(buf, `  <rect x="%.1f" y="%.1f" width="%.1f" height="%.1f" rx="%.1f" fill="#f2f2f2" stroke="#cccccc"/>`+"\n",
		b.X-b.Width/2, b.Top, b.Width, b.Bottom-b.Top, b.Radius)
	for _, sec := range []*render.HopSection{b.HopSections.Top, b.HopSections.Bottom} {
		if sec == nil {
			continue
		}
		fmt.Fprintf(buf, `  <rect x="%.1f" y="%.1f" width="%.1f" height="%.1f" rx="%.1f" fill="none" stroke="#aaaaaa" stroke-dasharray="3,2"/>`+"\n",
			b.X-b.Width/2, sec.Top, b.Width, sec.Bottom-sec.Top, b.Radius)
	}
}

func (r *svgRenderer) renderStoryline(buf *bytes.Buffer, res *render.Result, s render.Storyline, i int) {
	color := r.color(res, s, i)
	for _, seg := range s.Path {
		switch seg.Kind {
		case render.SegmentLine:
			fmt.Fprintf(buf, `  <line x1="%.1f" y1="%.1f" x2="%.1f" y2="%.1f" stroke="%s" stroke-width="2"/>`+"\n",
				seg.From.X, seg.From.Y, seg.To.X, seg.To.Y, color)
		case render.SegmentBezier:
			fmt.Fprintf(buf, `  <path d="M %.1f %.1f C %.1f %.1f, %.1f %.1f, %.1f %.1f" stroke="%s" stroke-width="2" fill="none"/>`+"\n",
				seg.From.X, seg.From.Y, seg.C1.X, seg.C1.Y, seg.C2.X, seg.C2.Y, seg.To.X, seg.To.Y, color)
		}
	}
	for _, p := range []render.Point{s.Start, s.End} {
		fmt.Fprintf(buf, `  <circle cx="%.1f" cy="%.1f" r="3" fill="%s"/>`+"\n", p.X, p.Y, color)
	}
	if r.showLabels {
		labels := append([]render.Label{s.Label}, s.InlineLabels...)
		for _, l := range labels {
			fmt.Fprintf(buf, `  <text x="%.1f" y="%.1f" font-size="11" dx="-6" dy="-6" text-anchor="end" fill="%s">%s</text>`+"\n",
				l.X, l.Y, color, l.Text)
		}
	}
}

func (r *svgRenderer) color(res *render.Result, s render.Storyline, i int) string {
	if s.Entity == res.Ego {
		return r.egoColor
	}
	if c, ok := r.colors[s.Category]; ok {
		return c
	}
	return defaultPalette[i%len(defaultPalette)]
}
