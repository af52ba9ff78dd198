// Package table provides the fixed-shape matrix containers and time-bucketing
// helpers shared by every layout phase.
//
// The layout pipeline operates on a set of parallel 2D matrices indexed by a
// stable (entity index, time-slice index) pair. Keeping the matrices
// fixed-shape and index-addressed keeps every phase O(1) per cell and avoids
// name lookups in inner loops.
package table

import "slices"

// Absent is the sentinel value for cells without a defined assignment.
// Order, align and height tables use it; session tables use 0 instead
// because session IDs start at 1.
const Absent = -1

// Table is a dense row-major integer matrix with fixed dimensions.
// The zero value is an empty table; use New to create a sized one.
type Table struct {
	rows, cols int
	cells      []int
}

// New creates a rows×cols table with every cell set to fill.
func New(rows, cols, fill int) *Table {
	t := &Table{rows: rows, cols: cols, cells: make([]int, rows*cols)}
	if fill != 0 {
		for i := range t.cells {
			t.cells[i] = fill
		}
	}
	return t
}

// Rows returns the number of rows.
func (t *Table) Rows() int { return t.rows }

// Cols returns the number of columns.
func (t *Table) Cols() int { return t.cols }

// Get returns the cell at (row, col).
func (t *Table) Get(row, col int) int { return t.cells[row*t.cols+col] }

// Set assigns the cell at (row, col).
func (t *Table) Set(row, col, v int) { t.cells[row*t.cols+col] = v }

// Row returns a copy of one row.
func (t *Table) Row(row int) []int {
	return slices.Clone(t.cells[row*t.cols : (row+1)*t.cols])
}

// Column returns a copy of one column.
func (t *Table) Column(col int) []int {
	out := make([]int, t.rows)
	for r := 0; r < t.rows; r++ {
		out[r] = t.cells[r*t.cols+col]
	}
	return out
}

// Clone returns a deep copy of the table.
func (t *Table) Clone() *Table {
	return &Table{rows: t.rows, cols: t.cols, cells: slices.Clone(t.cells)}
}

// ColumnEqual reports whether columns a and b hold identical values.
func (t *Table) ColumnEqual(a, b int) bool {
	for r := 0; r < t.rows; r++ {
		if t.cells[r*t.cols+a] != t.cells[r*t.cols+b] {
			return false
		}
	}
	return true
}

// SelectColumns returns a new table containing only the listed columns,
// in the given order.
func (t *Table) SelectColumns(cols []int) *Table {
	out := New(t.rows, len(cols), 0)
	for r := 0; r < t.rows; r++ {
		for i, c := range cols {
			out.Set(r, i, t.Get(r, c))
		}
	}
	return out
}

// EffectiveColumns returns the indices of columns that differ from their
// predecessor. The first column is always effective. Identical consecutive
// columns are the zero-width slices the layout must merge away.
func (t *Table) EffectiveColumns() []int {
	if t.cols == 0 {
		return nil
	}
	eff := []int{0}
	for c := 1; c < t.cols; c++ {
		if !t.ColumnEqual(c-1, c) {
			eff = append(eff, c)
		}
	}
	return eff
}

// Max returns the largest cell value, or Absent for an empty table.
func (t *Table) Max() int {
	max := Absent
	for _, v := range t.cells {
		if v > max {
			max = v
		}
	}
	return max
}

// FloatTable is a dense row-major float64 matrix with fixed dimensions.
type FloatTable struct {
	rows, cols int
	cells      []float64
}

// NewFloat creates a rows×cols float table with every cell set to zero.
func NewFloat(rows, cols int) *FloatTable {
	return &FloatTable{rows: rows, cols: cols, cells: make([]float64, rows*cols)}
}

// Rows returns the number of rows.
func (t *FloatTable) Rows() int { return t.rows }

// Cols returns the number of columns.
func (t *FloatTable) Cols() int { return t.cols }

// Get returns the cell at (row, col).
func (t *FloatTable) Get(row, col int) float64 { return t.cells[row*t.cols+col] }

// Set assigns the cell at (row, col).
func (t *FloatTable) Set(row, col int, v float64) { t.cells[row*t.cols+col] = v }

// Add accumulates v into the cell at (row, col).
func (t *FloatTable) Add(row, col int, v float64) { t.cells[row*t.cols+col] += v }
