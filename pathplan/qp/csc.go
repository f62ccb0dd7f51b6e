// Package qp provides the sparse QP solver abstraction used by the MPT
// optimizer (spec.md §4.7): Compressed Sparse Column matrix encoding, a
// Solver interface with the seven OSQP-style operations, and a dense
// reference implementation suitable for tests and small horizons.
package qp

import "gonum.org/v1/gonum/mat"

// CSC is a matrix in Compressed Sparse Column form: Values holds the
// non-zero entries column by column, RowIndices holds each entry's row,
// and ColPointers (length Cols+1) marks where each column starts in
// Values/RowIndices (spec.md §4.7, §GLOSSARY).
type CSC struct {
	Rows, Cols  int
	Values      []float64
	RowIndices  []int
	ColPointers []int
}

// Dense expands the CSC matrix into a gonum dense matrix.
func (c CSC) Dense() *mat.Dense {
	d := mat.NewDense(c.Rows, c.Cols, nil)
	for col := 0; col < c.Cols; col++ {
		for k := c.ColPointers[col]; k < c.ColPointers[col+1]; k++ {
			d.Set(c.RowIndices[k], col, c.Values[k])
		}
	}
	return d
}

// SymmetricDense expands an upper-triangular CSC encoding of a symmetric
// matrix into its full dense form, mirroring entries across the diagonal
// (spec.md §4.7: "Symmetric P is supplied as its upper ... triangular CSC").
func (c CSC) SymmetricDense() *mat.Dense {
	d := mat.NewDense(c.Rows, c.Cols, nil)
	for col := 0; col < c.Cols; col++ {
		for k := c.ColPointers[col]; k < c.ColPointers[col+1]; k++ {
			row := c.RowIndices[k]
			v := c.Values[k]
			d.Set(row, col, v)
			if row != col {
				d.Set(col, row, v)
			}
		}
	}
	return d
}

// CSCFromDense converts a dense matrix into full (not triangular) CSC
// form; zero entries are omitted to keep the encoding sparse.
func CSCFromDense(d *mat.Dense) CSC {
	rows, cols := d.Dims()
	out := CSC{Rows: rows, Cols: cols, ColPointers: make([]int, cols+1)}
	for col := 0; col < cols; col++ {
		out.ColPointers[col] = len(out.Values)
		for row := 0; row < rows; row++ {
			v := d.At(row, col)
			if v != 0 {
				out.Values = append(out.Values, v)
				out.RowIndices = append(out.RowIndices, row)
			}
		}
	}
	out.ColPointers[cols] = len(out.Values)
	return out
}

// CSCUpperTriangularFromDense converts a symmetric dense matrix into an
// upper-triangular CSC encoding, the form the solver's P input expects.
func CSCUpperTriangularFromDense(d *mat.Dense) CSC {
	rows, cols := d.Dims()
	out := CSC{Rows: rows, Cols: cols, ColPointers: make([]int, cols+1)}
	for col := 0; col < cols; col++ {
		out.ColPointers[col] = len(out.Values)
		for row := 0; row <= col && row < rows; row++ {
			v := d.At(row, col)
			if v != 0 {
				out.Values = append(out.Values, v)
				out.RowIndices = append(out.RowIndices, row)
			}
		}
	}
	out.ColPointers[cols] = len(out.Values)
	return out
}
