// Package nodelink renders one time slice's ego network as a traditional
// node-link diagram.
//
// # Overview
//
// This package produces undirected graph visualizations using Graphviz,
// where entities appear as ellipses connected by weighted edges. It's a
// debugging companion to the storyline visualization: the storyline shows
// the whole time range at once, the node-link diagram shows the raw
// structure of a single slice.
//
// # Usage
//
// Convert a slice to DOT format, then render to SVG:
//
//	dot := nodelink.ToDOT(net, slice, nodelink.Options{Detailed: false})
//	svg, err := nodelink.RenderSVG(dot)
//
// # Options
//
// The [Options] struct controls diagram generation:
//
//   - Detailed: When true, node labels include tier, session count and
//     category.
//
// # Dependencies
//
// This package uses [github.com/goccy/go-graphviz] for in-process SVG
// rendering.
package nodelink
