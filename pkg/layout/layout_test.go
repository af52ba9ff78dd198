package layout

import (
	"testing"

	"github.com/matzehuels/spreadline/pkg/network"
	"github.com/matzehuels/spreadline/pkg/table"
)

// buildNet constructs a small three-slice network: A is a constant contact,
// B appears in the first and last slice only (forcing an idle bridge).
func buildNet(t *testing.T) *network.Network {
	t.Helper()
	rows := []network.Interaction{
		{Source: "A", Target: "ego", Time: "2019", Weight: 1},
		{Source: "B", Target: "ego", Time: "2019", Weight: 1},
		{Source: "A", Target: "ego", Time: "2020", Weight: 1},
		{Source: "A", Target: "ego", Time: "2021", Weight: 1},
		{Source: "B", Target: "ego", Time: "2021", Weight: 1},
	}
	n, err := network.Build(rows, network.Options{Ego: "ego"})
	if err != nil {
		t.Fatal(err)
	}
	return n
}

func runAll(t *testing.T, net *network.Network, cfg Config) *Tables {
	t.Helper()
	tb := NewTables(net)
	Run(tb, cfg)
	return tb
}

func TestNewTables_EffectiveColumns(t *testing.T) {
	tb := NewTables(buildNet(t))

	// Slices 2019..2021 all differ; the 2022 headroom column (all zero)
	// differs from 2021 and stays as a trailing empty column.
	if got := tb.Cols(); got != 4 {
		t.Fatalf("Cols() = %d, want 4", got)
	}
	if tb.Labels[0] != "2019" || tb.Labels[3] != "2022" {
		t.Errorf("Labels = %v", tb.Labels)
	}
}

func TestOrder_IdleBridge(t *testing.T) {
	net := buildNet(t)
	tb := NewTables(net)
	Order(tb, Config{})

	b, _ := net.Entity("B")
	if got := tb.Presence.Get(b.Index, 1); got != PresenceIdle {
		t.Errorf("B presence at gap = %d, want idle (%d)", got, PresenceIdle)
	}
	id := tb.Session.Get(b.Index, 1)
	if id == 0 {
		t.Fatal("no idle session id assigned in the gap")
	}
	if s := tb.Sessions[id]; s == nil || !s.Idle {
		t.Errorf("session %d not registered as idle", id)
	}
}

func TestOrder_IdleIDsUniquePerGap(t *testing.T) {
	rows := []network.Interaction{
		{Source: "A", Target: "ego", Time: "2019", Weight: 1},
		{Source: "B", Target: "ego", Time: "2019", Weight: 1},
		{Source: "ego", Target: "C", Time: "2020", Weight: 1},
		{Source: "A", Target: "ego", Time: "2021", Weight: 1},
		{Source: "B", Target: "ego", Time: "2021", Weight: 1},
	}
	net, err := network.Build(rows, network.Options{Ego: "ego"})
	if err != nil {
		t.Fatal(err)
	}
	tb := NewTables(net)
	Order(tb, Config{})

	seen := map[int]bool{}
	for id, s := range tb.Sessions {
		if !s.Idle {
			continue
		}
		if seen[id] {
			t.Errorf("idle id %d reused", id)
		}
		seen[id] = true
	}
	if len(seen) != 2 {
		t.Errorf("idle sessions = %d, want 2 (one per entity gap)", len(seen))
	}
}

func TestOrder_PartitionsParticipants(t *testing.T) {
	tb := runAll(t, buildNet(t), Config{})

	for c := 0; c < tb.Cols(); c++ {
		slots := map[int]bool{}
		present := 0
		for r := 0; r < tb.Rows(); r++ {
			s := tb.Order.Get(r, c)
			if tb.PresentAt(r, c) {
				present++
				if s < 0 {
					t.Errorf("present entity %d has no slot at col %d", r, c)
				}
				if slots[s] {
					t.Errorf("slot %d assigned twice at col %d", s, c)
				}
				slots[s] = true
			} else if s != table.Absent {
				t.Errorf("absent entity %d has slot %d at col %d", r, s, c)
			}
		}
		for s := 0; s < present; s++ {
			if !slots[s] {
				t.Errorf("slot %d missing at col %d (not a total order)", s, c)
			}
		}
	}
}

func TestCompacting_HeightIffPresent(t *testing.T) {
	tb := runAll(t, buildNet(t), Config{})

	for r := 0; r < tb.Rows(); r++ {
		for c := 0; c < tb.Cols(); c++ {
			h := tb.Height.Get(r, c)
			if tb.PresentAt(r, c) != (h != table.Absent) {
				t.Errorf("height/presence mismatch at (%d,%d): presence=%d height=%d",
					r, c, tb.Presence.Get(r, c), h)
			}
		}
	}
}

func TestCompacting_HeightMonotonicWithOrder(t *testing.T) {
	for _, cfg := range []Config{{}, {SqueezeSameCategory: true}, {Minimize: MinimizeSpace}, {Minimize: MinimizeWiggles}} {
		tb := runAll(t, buildNet(t), cfg)
		for c := 0; c < tb.Cols(); c++ {
			lastH := -1
			for _, r := range slotOrder(tb, c) {
				h := tb.Height.Get(r, c)
				if h <= lastH {
					t.Errorf("cfg %+v: height %d not strictly above %d at col %d", cfg, h, lastH, c)
				}
				lastH = h
			}
		}
	}
}

func TestAligning_StraightLineForStableOrder(t *testing.T) {
	tb := runAll(t, buildNet(t), Config{Minimize: MinimizeLine})

	a, _ := tb.Net.Entity("A")
	// A is present in all three contact columns with an unchanged
	// neighborhood, so its alignment must not wiggle.
	first := tb.Align.Get(a.Index, 0)
	for c := 1; c < 3; c++ {
		if got := tb.Align.Get(a.Index, c); got != first {
			t.Errorf("A align at col %d = %d, want %d (straight)", c, got, first)
		}
	}
}

func TestCrossing_SignTracksHeightDelta(t *testing.T) {
	tb := runAll(t, buildNet(t), Config{})

	for r := 0; r < tb.Rows(); r++ {
		for c := 0; c < tb.Cols()-1; c++ {
			h, next := tb.Height.Get(r, c), tb.Height.Get(r, c+1)
			if h == table.Absent || next == table.Absent {
				continue
			}
			want := 0
			if next > h {
				want = 1
			} else if next < h {
				want = -1
			}
			if got := tb.Crossing.Get(r, c); got != want {
				t.Errorf("crossing at (%d,%d) = %d, want %d", r, c, got, want)
			}
		}
	}
}

func TestRun_EmptyNetwork(t *testing.T) {
	net, err := network.Build(nil, network.Options{Ego: "ego"})
	if err != nil {
		t.Fatal(err)
	}
	tb := NewTables(net)
	Run(tb, Config{}) // must not panic
	if tb.Cols() != 0 || tb.Rows() != 0 {
		t.Errorf("empty network produced %d×%d tables", tb.Rows(), tb.Cols())
	}
}

func TestRun_Deterministic(t *testing.T) {
	a := runAll(t, buildNet(t), Config{})
	b := runAll(t, buildNet(t), Config{})

	for r := 0; r < a.Rows(); r++ {
		for c := 0; c < a.Cols(); c++ {
			if a.Height.Get(r, c) != b.Height.Get(r, c) || a.Order.Get(r, c) != b.Order.Get(r, c) {
				t.Fatalf("two runs diverged at (%d,%d)", r, c)
			}
		}
	}
}
