// Package sink serializes a geometry result into output artifacts: a
// canonical JSON document and a preview SVG for quick inspection.
package sink

import (
	"encoding/json"

	"github.com/matzehuels/spreadline/pkg/render"
)

// JSONOption configures JSON serialization via [RenderJSON].
type JSONOption func(*jsonRenderer)

type jsonRenderer struct {
	indent bool
	layout string
}

// WithJSONIndent pretty-prints the document with two-space indentation.
func WithJSONIndent() JSONOption { return func(r *jsonRenderer) { r.indent = true } }

// WithJSONLayout records the time layout the labels are formatted with, for
// reproducible re-rendering.
func WithJSONLayout(layout string) JSONOption {
	return func(r *jsonRenderer) { r.layout = layout }
}

type jsonOutput struct {
	Layout string `json:"layout,omitempty"`
	*render.Result
}

// RenderJSON serializes the result. The document is the full geometry
// contract: band positions, storylines and blocks.
func RenderJSON(res *render.Result, opts ...JSONOption) ([]byte, error) {
	r := jsonRenderer{}
	for _, opt := range opts {
		opt(&r)
	}

	out := jsonOutput{Layout: r.layout, Result: res}
	if r.indent {
		return json.MarshalIndent(out, "", "  ")
	}
	return json.Marshal(out)
}
