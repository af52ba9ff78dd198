package cli

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/matzehuels/spreadline/pkg/layout"
	"github.com/matzehuels/spreadline/pkg/pipeline"
)

const topologyCSV = `source,target,time,weight
ego,alice,2019,1
alice,bob,2019,2
ego,bob,2020,1
`

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write %s: %v", name, err)
	}
	return path
}

func TestBasePath(t *testing.T) {
	tests := []struct {
		output string
		input  string
		want   string
	}{
		{"", "data/events.csv", "data/events"},
		{"out.svg", "events.csv", "out"},
		{"out.json", "events.csv", "out"},
		{"out", "events.csv", "out"},
		{"fit.result", "events.csv", "fit.result"},
	}
	for _, tt := range tests {
		if got := basePath(tt.output, tt.input); got != tt.want {
			t.Errorf("basePath(%q, %q) = %q, want %q", tt.output, tt.input, got, tt.want)
		}
	}
}

func TestLoadFileConfig(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "spreadline.toml", `
ego = "ego"
layout = "2006"

[mapping]
source = "from"
target = "to"
time = "when"

[config]
minimize = "wiggles"
squeeze_same_category = true
band_stretch = [["2019", "2020"]]
`)

	fc, err := loadFileConfig(path, true)
	if err != nil {
		t.Fatalf("loadFileConfig() error: %v", err)
	}
	if fc.Ego != "ego" {
		t.Errorf("Ego = %q, want %q", fc.Ego, "ego")
	}
	if fc.Mapping.Source != "from" || fc.Mapping.Target != "to" || fc.Mapping.Time != "when" {
		t.Errorf("mapping not decoded: %+v", fc.Mapping)
	}
	if fc.Config.Minimize != layout.MinimizeWiggles {
		t.Errorf("Minimize = %q, want wiggles", fc.Config.Minimize)
	}
	if !fc.Config.SqueezeSameCategory {
		t.Error("SqueezeSameCategory not decoded")
	}
	if len(fc.Config.BandStretch) != 1 || fc.Config.BandStretch[0] != [2]string{"2019", "2020"} {
		t.Errorf("BandStretch = %v", fc.Config.BandStretch)
	}
}

func TestLoadFileConfigMissing(t *testing.T) {
	missing := filepath.Join(t.TempDir(), "nope.toml")

	if _, err := loadFileConfig(missing, true); err == nil {
		t.Error("explicit missing config should error")
	}

	fc, err := loadFileConfig(missing, false)
	if err != nil {
		t.Fatalf("implicit missing config should not error: %v", err)
	}
	if fc.Ego != "" {
		t.Errorf("zero config expected, got %+v", fc)
	}
}

func TestLoadData(t *testing.T) {
	dir := t.TempDir()
	topo := writeFile(t, dir, "events.csv", topologyCSV)
	cats := writeFile(t, dir, "cats.csv", "entity,category\nalice,lab\nbob,industry\n")

	opts := &fitOpts{categories: cats}
	data, err := loadData(context.Background(), topo, opts, pipeline.DefaultMapping())
	if err != nil {
		t.Fatalf("loadData() error: %v", err)
	}
	if len(data.Topology) != 3 {
		t.Errorf("len(Topology) = %d, want 3", len(data.Topology))
	}
	if data.Categories["alice"] != "lab" {
		t.Errorf("Categories[alice] = %q, want lab", data.Categories["alice"])
	}
}

func TestFitCommandEndToEnd(t *testing.T) {
	dir := t.TempDir()
	topo := writeFile(t, dir, "events.csv", topologyCSV)
	out := filepath.Join(dir, "fit.json")

	c := New(os.Stderr, LogInfo)
	root := c.RootCommand()
	root.SetArgs([]string{"fit", topo, "--ego", "ego", "--no-cache", "-o", out})

	if err := root.ExecuteContext(context.Background()); err != nil {
		t.Fatalf("fit command failed: %v", err)
	}

	body, err := os.ReadFile(out)
	if err != nil {
		t.Fatalf("output not written: %v", err)
	}
	if len(body) == 0 {
		t.Error("output file is empty")
	}
}

func TestFitCommandRejectsBadSet(t *testing.T) {
	dir := t.TempDir()
	topo := writeFile(t, dir, "events.csv", topologyCSV)

	c := New(os.Stderr, LogInfo)
	root := c.RootCommand()
	root.SetArgs([]string{"fit", topo, "--ego", "ego", "--no-cache", "--set", "minimize=bogus"})

	if err := root.ExecuteContext(context.Background()); err == nil {
		t.Error("invalid --set value should fail")
	}
}
