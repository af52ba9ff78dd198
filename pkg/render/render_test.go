package render

import (
	"reflect"
	"testing"

	"github.com/matzehuels/spreadline/pkg/layout"
	"github.com/matzehuels/spreadline/pkg/network"
)

func fit(t *testing.T, rows []network.Interaction, opts network.Options, cfg layout.Config) *layout.Tables {
	t.Helper()
	net, err := network.Build(rows, opts)
	if err != nil {
		t.Fatal(err)
	}
	tb := layout.NewTables(net)
	layout.Run(tb, cfg)
	return tb
}

func TestRender_SingleEgoSlice(t *testing.T) {
	tb := fit(t, []network.Interaction{
		{Source: "ego", Target: "ego", Time: "2020", Weight: 1},
		{Source: "A", Target: "ego", Time: "2020", Weight: 1},
	}, network.Options{Ego: "ego"}, layout.Config{})

	res := Render(tb)
	if len(res.Blocks) != 1 {
		t.Fatalf("blocks = %d, want 1", len(res.Blocks))
	}
	b := res.Blocks[0]
	if !b.Rounded {
		t.Error("block without far members must be rounded")
	}
	if b.HopSections.Top != nil || b.HopSections.Bottom != nil {
		t.Error("hop sections must be nil without far members")
	}
	if len(b.Points) != 2 {
		t.Errorf("points = %d, want 2", len(b.Points))
	}
}

func TestRender_OnlyEgoPresent(t *testing.T) {
	// A slice whose only ego edge is a self loop qualifies but yields a
	// session containing just the ego.
	tb := fit(t, []network.Interaction{
		{Source: "ego", Target: "ego", Time: "2020", Weight: 1},
	}, network.Options{Ego: "ego"}, layout.Config{})

	res := Render(tb)
	if len(res.Blocks) != 1 {
		t.Fatalf("blocks = %d, want 1", len(res.Blocks))
	}
	b := res.Blocks[0]
	if len(b.Points) != 1 {
		t.Errorf("points = %d, want 1", len(b.Points))
	}
	if b.HopSections.Top != nil || b.HopSections.Bottom != nil {
		t.Error("hop sections must be nil for an ego-only block")
	}
}

func TestRender_BandsDescendingTime(t *testing.T) {
	tb := fit(t, []network.Interaction{
		{Source: "A", Target: "ego", Time: "2019", Weight: 1},
		{Source: "A", Target: "ego", Time: "2021", Weight: 1},
	}, network.Options{Ego: "ego"}, layout.Config{})

	res := Render(tb)
	for i := 1; i < len(res.TimeLabels); i++ {
		prev, cur := res.TimeLabels[i-1], res.TimeLabels[i]
		if prev.PosX >= cur.PosX {
			t.Errorf("band %q at %v not left of %q at %v", prev.Label, prev.PosX, cur.Label, cur.PosX)
		}
		if prev.Label <= cur.Label {
			t.Errorf("labels not in descending time: %q before %q", prev.Label, cur.Label)
		}
	}
}

func TestRender_BandStretch(t *testing.T) {
	tb := fit(t, []network.Interaction{
		{Source: "A", Target: "ego", Time: "2019", Weight: 1},
		{Source: "A", Target: "ego", Time: "2020", Weight: 1},
		{Source: "A", Target: "ego", Time: "2021", Weight: 1},
	}, network.Options{Ego: "ego"}, layout.Config{})

	plain := Render(tb)
	stretched := Render(tb, WithBandStretch([][2]string{{"2020", "2020"}}))

	if stretched.BandWidth >= plain.BandWidth {
		t.Errorf("stretch did not shrink the base band: %v >= %v",
			stretched.BandWidth, plain.BandWidth)
	}
}

func TestRender_SegmentKinds(t *testing.T) {
	tb := fit(t, []network.Interaction{
		{Source: "A", Target: "ego", Time: "2019", Weight: 1},
		{Source: "A", Target: "ego", Time: "2020", Weight: 1},
	}, network.Options{Ego: "ego"}, layout.Config{Minimize: layout.MinimizeLine})

	res := Render(tb)
	for _, s := range res.Storylines {
		for _, seg := range s.Path {
			straight := seg.From.Y == seg.To.Y
			if straight && seg.Kind != SegmentLine {
				t.Errorf("%s: equal-Y segment rendered as %s", s.Entity, seg.Kind)
			}
			if !straight {
				if seg.Kind != SegmentBezier {
					t.Errorf("%s: sloped segment rendered as %s", s.Entity, seg.Kind)
					continue
				}
				mid := (seg.From.X + seg.To.X) / 2
				if seg.C1.X != mid || seg.C2.X != mid {
					t.Errorf("%s: control points not at midpoint", s.Entity)
				}
			}
		}
	}
}

func TestRender_LeadingLabelAtLeftmostTerminal(t *testing.T) {
	tb := fit(t, []network.Interaction{
		{Source: "A", Target: "ego", Time: "2019", Weight: 1},
		{Source: "A", Target: "ego", Time: "2020", Weight: 1},
	}, network.Options{Ego: "ego"}, layout.Config{})

	res := Render(tb)
	for _, s := range res.Storylines {
		if s.Label.X > s.Start.X || s.Label.X != s.End.X {
			t.Errorf("%s: label at %v, terminals %v / %v", s.Entity, s.Label.X, s.Start.X, s.End.X)
		}
	}
}

func TestRender_FarMembersGetHopSections(t *testing.T) {
	tb := fit(t, []network.Interaction{
		{Source: "A", Target: "ego", Time: "2020", Weight: 1},
		{Source: "A", Target: "B", Time: "2020", Weight: 1},
	}, network.Options{Ego: "ego"}, layout.Config{})

	res := Render(tb)
	if len(res.Blocks) != 1 {
		t.Fatalf("blocks = %d, want 1", len(res.Blocks))
	}
	b := res.Blocks[0]
	if b.Rounded {
		t.Error("block with a second-hop member must not be rounded")
	}
	if b.HopSections.Top == nil {
		t.Fatal("far-outside hop section missing")
	}
	if got := b.HopSections.Top.Members; len(got) != 1 || got[0] != "B" {
		t.Errorf("hop section members = %v, want [B]", got)
	}
	if b.HopSections.Top.Bottom <= b.HopSections.Top.Top {
		t.Error("hop section has no vertical extent")
	}
}

func TestRender_BlockCarriesSessionArcs(t *testing.T) {
	tb := fit(t, []network.Interaction{
		{Source: "A", Target: "ego", Time: "2020", Weight: 2},
		{Source: "A", Target: "B", Time: "2020", Weight: 1},
	}, network.Options{Ego: "ego"}, layout.Config{})

	res := Render(tb)
	b := res.Blocks[0]
	if len(b.Arcs) != 2 {
		t.Fatalf("arcs = %d, want 2", len(b.Arcs))
	}
	for _, a := range b.Arcs {
		if a.From < 0 || a.From >= len(b.Points) || a.To < 0 || a.To >= len(b.Points) {
			t.Errorf("arc %+v references a point outside the block", a)
		}
		if a.From == a.To {
			t.Errorf("arc %+v is degenerate", a)
		}
		if a.Weight <= 0 {
			t.Errorf("arc %+v lost its weight", a)
		}
	}
}

func TestRender_EgoOnlyBlockHasNoArcs(t *testing.T) {
	tb := fit(t, []network.Interaction{
		{Source: "ego", Target: "ego", Time: "2020", Weight: 1},
	}, network.Options{Ego: "ego"}, layout.Config{})

	res := Render(tb)
	if arcs := res.Blocks[0].Arcs; len(arcs) != 0 {
		t.Errorf("arcs = %v, want none for a lone-ego session", arcs)
	}
}

func TestRender_BodyExcludesFarMembers(t *testing.T) {
	tb := fit(t, []network.Interaction{
		{Source: "A", Target: "ego", Time: "2020", Weight: 1},
		{Source: "A", Target: "B", Time: "2020", Weight: 1},
	}, network.Options{Ego: "ego"}, layout.Config{})

	res := Render(tb)
	b := res.Blocks[0]
	if b.BodyTop < b.Top || b.BodyBottom > b.Bottom {
		t.Errorf("body [%v, %v] exceeds the block extent [%v, %v]",
			b.BodyTop, b.BodyBottom, b.Top, b.Bottom)
	}
	if b.BodyTop == b.Top && b.BodyBottom == b.Bottom {
		t.Error("straight run should be narrower than a block with far members")
	}
	if sec := b.HopSections.Top; sec != nil && sec.Top < b.BodyTop && sec.Bottom > b.BodyTop {
		t.Error("hop section overlaps the straight run")
	}
}

func TestRender_RoundedBlockBodySpansBlock(t *testing.T) {
	tb := fit(t, []network.Interaction{
		{Source: "A", Target: "ego", Time: "2020", Weight: 1},
	}, network.Options{Ego: "ego"}, layout.Config{})

	res := Render(tb)
	b := res.Blocks[0]
	if b.BodyTop != b.Top || b.BodyBottom != b.Bottom {
		t.Errorf("rounded block body [%v, %v] should span [%v, %v]",
			b.BodyTop, b.BodyBottom, b.Top, b.Bottom)
	}
}

func TestRender_InlineLabelOnLongStraightRun(t *testing.T) {
	tb := fit(t, []network.Interaction{
		{Source: "A", Target: "ego", Time: "2016", Weight: 1},
		{Source: "A", Target: "ego", Time: "2017", Weight: 1},
		{Source: "A", Target: "ego", Time: "2018", Weight: 1},
		{Source: "A", Target: "ego", Time: "2019", Weight: 1},
		{Source: "A", Target: "ego", Time: "2020", Weight: 2},
		{Source: "B", Target: "ego", Time: "2020", Weight: 1},
	}, network.Options{Ego: "ego"}, layout.Config{Minimize: layout.MinimizeLine})

	res := Render(tb)
	var a *Storyline
	for i := range res.Storylines {
		if res.Storylines[i].Entity == "A" {
			a = &res.Storylines[i]
		}
	}
	if a == nil {
		t.Fatal("storyline for A missing")
	}
	if len(a.InlineLabels) == 0 {
		t.Error("long straight run earned no inline label")
	}
}

func TestRender_EmptyNetwork(t *testing.T) {
	tb := fit(t, nil, network.Options{Ego: "ego"}, layout.Config{})
	res := Render(tb)
	if len(res.Storylines) != 0 || len(res.Blocks) != 0 {
		t.Errorf("empty network produced geometry: %d lines, %d blocks",
			len(res.Storylines), len(res.Blocks))
	}
	if res.Ego != "ego" {
		t.Errorf("ego = %q", res.Ego)
	}
}

func TestRender_Deterministic(t *testing.T) {
	rows := []network.Interaction{
		{Source: "A", Target: "ego", Time: "2019", Weight: 1},
		{Source: "B", Target: "ego", Time: "2019", Weight: 2},
		{Source: "A", Target: "B", Time: "2020", Weight: 1},
		{Source: "A", Target: "ego", Time: "2020", Weight: 1},
	}
	a := Render(fit(t, rows, network.Options{Ego: "ego"}, layout.Config{}))
	b := Render(fit(t, rows, network.Options{Ego: "ego"}, layout.Config{}))
	if !reflect.DeepEqual(a, b) {
		t.Error("two renders of identical input diverged")
	}
}
