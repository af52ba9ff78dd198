package contextual

import (
	"testing"

	"github.com/matzehuels/spreadline/pkg/errors"
	"github.com/matzehuels/spreadline/pkg/layout"
	"github.com/matzehuels/spreadline/pkg/network"
)

func buildTables(t *testing.T) *layout.Tables {
	t.Helper()
	rows := []network.Interaction{
		{Source: "A", Target: "ego", Time: "2019", Weight: 1},
		{Source: "A", Target: "ego", Time: "2020", Weight: 1},
		{Source: "B", Target: "ego", Time: "2020", Weight: 1},
	}
	net, err := network.Build(rows, network.Options{Ego: "ego"})
	if err != nil {
		t.Fatal(err)
	}
	tb := layout.NewTables(net)
	layout.Run(tb, layout.Config{})
	return tb
}

func TestIntensity_SumsDuplicates(t *testing.T) {
	tb := buildTables(t)
	got := Intensity(tb, []ContextRow{
		{Entity: "A", Time: "2019", Value: 2},
		{Entity: "A", Time: "2019", Value: 3.5},
		{Entity: "A", Time: "2020", Value: 1},
		{Entity: "nobody", Time: "2019", Value: 9},
		{Entity: "A", Time: "1900", Value: 9},
	})

	a, _ := tb.Net.Entity("A")
	if v := got.Get(a.Index, 0); v != 5.5 {
		t.Errorf("intensity(A, 2019) = %v, want 5.5", v)
	}
	if v := got.Get(a.Index, 1); v != 1 {
		t.Errorf("intensity(A, 2020) = %v, want 1", v)
	}
}

func TestStaticProfile_RejectsDuplicates(t *testing.T) {
	tb := buildTables(t)
	_, err := StaticProfile(tb, []ProfileRow{
		{Entity: "A", X: 1, Y: 2},
		{Entity: "A", X: 3, Y: 4},
	})
	if errors.GetCode(err) != errors.ErrCodeDuplicateProfile {
		t.Fatalf("err = %v, want duplicate profile code", err)
	}
}

func TestStaticProfile_FillsPresentColumns(t *testing.T) {
	tb := buildTables(t)
	p, err := StaticProfile(tb, []ProfileRow{{Entity: "A", X: 3, Y: 7}})
	if err != nil {
		t.Fatal(err)
	}
	a, _ := tb.Net.Entity("A")
	for c := 0; c < tb.Cols(); c++ {
		want := 0
		if tb.PresentAt(a.Index, c) {
			want = 1
		}
		if got := p.Set.Get(a.Index, c); got != want {
			t.Errorf("set(A, %d) = %d, want %d", c, got, want)
		}
	}
	if p.X.Get(a.Index, 0) != 3 || p.Y.Get(a.Index, 0) != 7 {
		t.Errorf("position = (%v, %v), want (3, 7)",
			p.X.Get(a.Index, 0), p.Y.Get(a.Index, 0))
	}
}

func TestDynamicProfile_ExactBeatsClosest(t *testing.T) {
	tb := buildTables(t)
	p := DynamicProfile(tb, []ProfileRow{
		{Entity: "A", Time: "2019", X: 1, Y: 1},
		{Entity: "A", Time: "2020", X: 2, Y: 2},
	}, MatchClosest)

	a, _ := tb.Net.Entity("A")
	if p.X.Get(a.Index, 0) != 1 || p.X.Get(a.Index, 1) != 2 {
		t.Errorf("exact matches not honored: %v, %v",
			p.X.Get(a.Index, 0), p.X.Get(a.Index, 1))
	}
}

func TestDynamicProfile_ClosestPicksNearest(t *testing.T) {
	tb := buildTables(t)
	p := DynamicProfile(tb, []ProfileRow{
		{Entity: "A", Time: "2014", X: 1, Y: 1},
		{Entity: "A", Time: "2018", X: 2, Y: 2},
	}, MatchClosest)

	a, _ := tb.Net.Entity("A")
	// 2019 and 2020 are both nearer to 2018 than to 2014.
	for c := 0; c < 2; c++ {
		if p.X.Get(a.Index, c) != 2 {
			t.Errorf("closest(col %d) picked X=%v, want 2", c, p.X.Get(a.Index, c))
		}
	}
}

func TestDynamicProfile_ExactPolicySkipsMisses(t *testing.T) {
	tb := buildTables(t)
	p := DynamicProfile(tb, []ProfileRow{
		{Entity: "A", Time: "2019", X: 1, Y: 1},
	}, MatchExact)

	a, _ := tb.Net.Entity("A")
	if p.Set.Get(a.Index, 0) != 1 {
		t.Error("exact match at 2019 missing")
	}
	if p.Set.Get(a.Index, 1) != 0 {
		t.Error("2020 positioned without an exact row")
	}
}

func TestNormalizeAndCenterOnEgo(t *testing.T) {
	tb := buildTables(t)
	p, err := StaticProfile(tb, []ProfileRow{
		{Entity: "ego", X: 10, Y: 10},
		{Entity: "A", X: 0, Y: 0},
		{Entity: "B", X: 20, Y: 20},
	})
	if err != nil {
		t.Fatal(err)
	}
	p.Normalize()
	if err := p.CenterOnEgo(tb); err != nil {
		t.Fatal(err)
	}

	ego := tb.Net.EgoEntity()
	for c := 0; c < tb.Cols(); c++ {
		if p.Set.Get(ego.Index, c) == 0 {
			continue
		}
		if p.X.Get(ego.Index, c) != 0.5 || p.Y.Get(ego.Index, c) != 0.5 {
			t.Errorf("ego at (%v, %v), want (0.5, 0.5)",
				p.X.Get(ego.Index, c), p.Y.Get(ego.Index, c))
		}
	}
}

func TestCenterOnEgo_RejectsVaryingPosition(t *testing.T) {
	tb := buildTables(t)
	p := DynamicProfile(tb, []ProfileRow{
		{Entity: "ego", Time: "2019", X: 0, Y: 0},
		{Entity: "ego", Time: "2020", X: 1, Y: 1},
	}, MatchExact)

	err := p.CenterOnEgo(tb)
	if errors.GetCode(err) != errors.ErrCodeAmbiguousCenter {
		t.Fatalf("err = %v, want ambiguous center code", err)
	}
}

func TestNormalize_DegenerateAxis(t *testing.T) {
	tb := buildTables(t)
	p, err := StaticProfile(tb, []ProfileRow{
		{Entity: "A", X: 4, Y: 4},
		{Entity: "B", X: 4, Y: 4},
	})
	if err != nil {
		t.Fatal(err)
	}
	p.Normalize()
	a, _ := tb.Net.Entity("A")
	for c := 0; c < tb.Cols(); c++ {
		if p.Set.Get(a.Index, c) == 0 {
			continue
		}
		if p.X.Get(a.Index, c) != 0.5 {
			t.Errorf("degenerate axis = %v, want 0.5", p.X.Get(a.Index, c))
		}
	}
}
