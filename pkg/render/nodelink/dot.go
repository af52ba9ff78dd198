package nodelink

import (
	"bytes"
	"context"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/goccy/go-graphviz"

	"github.com/matzehuels/spreadline/pkg/network"
)

// Options configures node-link diagram rendering.
type Options struct {
	// Detailed includes hop tier and session count in node labels. When
	// false, only the entity name is shown.
	Detailed bool
}

// ToDOT converts one time slice's ego network to Graphviz DOT format for
// node-link inspection. The resulting DOT string can be rendered with
// [RenderSVG].
//
// The ego is drawn with a double outline; far (second-hop) members get
// dashed outlines and grey fill.
func ToDOT(net *network.Network, slice int, opts Options) string {
	var buf bytes.Buffer
	buf.WriteString("graph G {\n")
	buf.WriteString("  layout=neato;\n")
	buf.WriteString("  bgcolor=\"transparent\";\n")
	buf.WriteString("  node [shape=ellipse, style=filled, fillcolor=white, fontsize=14];\n")
	buf.WriteString("\n")

	s := net.SessionAt(slice)
	if s == nil {
		buf.WriteString("}\n")
		return buf.String()
	}

	for tier, members := range s.Tiers {
		for _, name := range members {
			label := fmtLabel(net, name, network.Tier(tier), opts.Detailed)
			attrs := fmtAttrs(net, name, network.Tier(tier), label)
			fmt.Fprintf(&buf, "  %q [%s];\n", name, strings.Join(attrs, ", "))
		}
	}

	buf.WriteString("\n")
	for _, a := range s.Arcs {
		fmt.Fprintf(&buf, "  %q -- %q [penwidth=%.1f];\n", a.Source, a.Target, 0.5+a.Weight)
	}

	buf.WriteString("}\n")
	return buf.String()
}

func fmtLabel(net *network.Network, name string, tier network.Tier, detailed bool) string {
	if !detailed {
		return name
	}
	parts := []string{fmt.Sprintf("tier: %d", tier)}
	if e, ok := net.Entity(name); ok {
		parts = append(parts, fmt.Sprintf("sessions: %d", e.SessionCount))
		if e.Category != "" {
			parts = append(parts, "category: "+e.Category)
		}
	}
	return name + "\n" + strings.Join(parts, "\n")
}

func fmtAttrs(net *network.Network, name string, tier network.Tier, label string) []string {
	attrs := []string{fmt.Sprintf("label=%q", label)}
	switch {
	case name == net.Ego:
		attrs = append(attrs, "peripheries=2")
	case tier.IsFar():
		attrs = append(attrs, "style=\"filled,dashed\"", "fillcolor=lightgrey")
	}
	return attrs
}

// RenderSVG renders a DOT graph to SVG using Graphviz.
func RenderSVG(dot string) ([]byte, error) {
	ctx := context.Background()
	gv, err := graphviz.New(ctx)
	if err != nil {
		return nil, fmt.Errorf("init graphviz: %w", err)
	}
	defer gv.Close()

	g, err := graphviz.ParseBytes([]byte(dot))
	if err != nil {
		return nil, fmt.Errorf("parse DOT: %w", err)
	}
	defer g.Close()

	var buf bytes.Buffer
	if err := gv.Render(ctx, g, graphviz.SVG, &buf); err != nil {
		return nil, fmt.Errorf("render: %w", err)
	}
	return normalizeViewBox(buf.Bytes()), nil
}

var (
	svgTagRe  = regexp.MustCompile(`<svg[^>]*>`)
	viewBoxRe = regexp.MustCompile(`viewBox="([0-9.]+)\s+([0-9.]+)\s+([0-9.]+)\s+([0-9.]+)"`)
)

func normalizeViewBox(svg []byte) []byte {
	match := viewBoxRe.FindSubmatch(svg)
	if match == nil {
		return svg
	}

	w, _ := strconv.ParseFloat(string(match[3]), 64)
	h, _ := strconv.ParseFloat(string(match[4]), 64)
	if w == 0 || h == 0 {
		return svg
	}

	newSvg := fmt.Sprintf(`<svg xmlns="http://www.w3.org/2000/svg" viewBox="0 0 %.2f %.2f" width="%.0f" height="%.0f">`,
		w, h, w, h)

	return svgTagRe.ReplaceAll(svg, []byte(newSvg))
}
