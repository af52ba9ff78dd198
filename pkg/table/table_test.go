package table

import (
	"slices"
	"testing"
)

func TestTable_GetSet(t *testing.T) {
	tb := New(3, 4, Absent)

	if tb.Rows() != 3 || tb.Cols() != 4 {
		t.Fatalf("dims = %d×%d, want 3×4", tb.Rows(), tb.Cols())
	}
	if got := tb.Get(2, 3); got != Absent {
		t.Errorf("Get(2,3) = %d, want %d", got, Absent)
	}

	tb.Set(1, 2, 7)
	if got := tb.Get(1, 2); got != 7 {
		t.Errorf("Get(1,2) = %d, want 7", got)
	}
}

func TestTable_Column(t *testing.T) {
	tb := New(2, 3, 0)
	tb.Set(0, 1, 5)
	tb.Set(1, 1, 6)

	if got := tb.Column(1); !slices.Equal(got, []int{5, 6}) {
		t.Errorf("Column(1) = %v, want [5 6]", got)
	}
}

func TestTable_EffectiveColumns(t *testing.T) {
	// Columns: [1 1], [1 1], [2 1], [2 1], [0 0]
	tb := New(2, 5, 0)
	tb.Set(0, 0, 1)
	tb.Set(1, 0, 1)
	tb.Set(0, 1, 1)
	tb.Set(1, 1, 1)
	tb.Set(0, 2, 2)
	tb.Set(1, 2, 1)
	tb.Set(0, 3, 2)
	tb.Set(1, 3, 1)

	eff := tb.EffectiveColumns()
	if !slices.Equal(eff, []int{0, 2, 4}) {
		t.Errorf("EffectiveColumns() = %v, want [0 2 4]", eff)
	}
}

func TestTable_SelectColumns(t *testing.T) {
	tb := New(1, 4, 0)
	for c := 0; c < 4; c++ {
		tb.Set(0, c, c*10)
	}

	sel := tb.SelectColumns([]int{0, 2})
	if sel.Cols() != 2 {
		t.Fatalf("Cols() = %d, want 2", sel.Cols())
	}
	if sel.Get(0, 0) != 0 || sel.Get(0, 1) != 20 {
		t.Errorf("selected = [%d %d], want [0 20]", sel.Get(0, 0), sel.Get(0, 1))
	}
}

func TestTable_CloneIndependent(t *testing.T) {
	tb := New(1, 1, 0)
	cp := tb.Clone()
	cp.Set(0, 0, 9)

	if tb.Get(0, 0) != 0 {
		t.Error("Clone() shares backing storage with original")
	}
}

func TestTable_EmptyEffectiveColumns(t *testing.T) {
	tb := New(0, 0, 0)
	if eff := tb.EffectiveColumns(); eff != nil {
		t.Errorf("EffectiveColumns() = %v, want nil", eff)
	}
}
