package sink

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"

	"github.com/matzehuels/spreadline/pkg/layout"
	"github.com/matzehuels/spreadline/pkg/network"
	"github.com/matzehuels/spreadline/pkg/render"
)

func sampleResult(t *testing.T) *render.Result {
	t.Helper()
	net, err := network.Build([]network.Interaction{
		{Source: "A", Target: "ego", Time: "2019", Weight: 1},
		{Source: "A", Target: "ego", Time: "2020", Weight: 1},
		{Source: "B", Target: "ego", Time: "2020", Weight: 1},
	}, network.Options{Ego: "ego"})
	if err != nil {
		t.Fatal(err)
	}
	tb := layout.NewTables(net)
	layout.Run(tb, layout.Config{})
	return render.Render(tb)
}

func TestRenderJSON_Contract(t *testing.T) {
	res := sampleResult(t)
	raw, err := RenderJSON(res, WithJSONLayout("2006"))
	if err != nil {
		t.Fatal(err)
	}

	var doc map[string]json.RawMessage
	if err := json.Unmarshal(raw, &doc); err != nil {
		t.Fatal(err)
	}
	for _, key := range []string{"layout", "bandWidth", "blockWidth", "ego", "timeLabels", "heightExtents", "storylines", "blocks"} {
		if _, ok := doc[key]; !ok {
			t.Errorf("document missing key %q", key)
		}
	}
}

func TestRenderJSON_Indent(t *testing.T) {
	res := sampleResult(t)
	plain, err := RenderJSON(res)
	if err != nil {
		t.Fatal(err)
	}
	pretty, err := RenderJSON(res, WithJSONIndent())
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Contains(pretty, []byte("\n")) {
		t.Error("indented output has no newlines")
	}
	var a, b any
	if err := json.Unmarshal(plain, &a); err != nil {
		t.Fatal(err)
	}
	if err := json.Unmarshal(pretty, &b); err != nil {
		t.Fatal(err)
	}
}

func TestRenderSVG_Preview(t *testing.T) {
	res := sampleResult(t)
	svg := string(RenderSVG(res, WithBands(), WithLabels()))

	if !strings.HasPrefix(svg, "<svg") || !strings.HasSuffix(strings.TrimSpace(svg), "</svg>") {
		t.Fatal("output is not a self-contained svg document")
	}
	for _, want := range []string{"<rect", "2020", ">A<"} {
		if !strings.Contains(svg, want) {
			t.Errorf("preview missing %q", want)
		}
	}
}

func TestRenderSVG_CategoryColors(t *testing.T) {
	res := sampleResult(t)
	for i := range res.Storylines {
		if res.Storylines[i].Entity != "ego" {
			res.Storylines[i].Category = "lab"
		}
	}
	svg := string(RenderSVG(res, WithColors(map[string]string{"lab": "#123456"})))
	if !strings.Contains(svg, "#123456") {
		t.Error("category color not applied")
	}
}
