package pathplan

import (
	"math"

	"gonum.org/v1/gonum/mat"

	"go.viam.com/trajectoryopt/pathplan/qp"
)

// qpProblem is the assembled QP: dense symmetric P (converted to an
// upper-triangular CSC for the solver), dense A, and
// the q/l/u vectors, plus the variable-layout metadata unpackSolution needs
// to read the optimized U back out of the primal solution (spec.md §4.6).
type qpProblem struct {
	P *denseMatrixBuilder
	A *denseMatrixBuilder
	Q []float64
	L []float64
	U []float64

	numU    int // number of steering inputs, N_ref - 1
	numVars int // numU + 1 (L-inf aux) + N_ref (slack)
	tIndex  int
	slackAt func(i int) int
}

// denseMatrixBuilder accumulates a dense matrix that is converted to CSC only once
// the QP is fully assembled, since qpbuilder.go touches many scattered
// entries while folding in each cost/constraint term.
type denseMatrixBuilder struct {
	rows, cols int
	data       [][]float64
}

func newDenseMatrixBuilder(rows, cols int) *denseMatrixBuilder {
	data := make([][]float64, rows)
	for i := range data {
		data[i] = make([]float64, cols)
	}
	return &denseMatrixBuilder{rows: rows, cols: cols, data: data}
}

func (b *denseMatrixBuilder) add(row, col int, v float64) { b.data[row][col] += v }
func (b *denseMatrixBuilder) set(row, col int, v float64) { b.data[row][col] = v }

func (b *denseMatrixBuilder) toCSC() qp.CSC {
	out := qp.CSC{Rows: b.rows, Cols: b.cols, ColPointers: make([]int, b.cols+1)}
	for col := 0; col < b.cols; col++ {
		out.ColPointers[col] = len(out.Values)
		for row := 0; row < b.rows; row++ {
			v := b.data[row][col]
			if v != 0 {
				out.Values = append(out.Values, v)
				out.RowIndices = append(out.RowIndices, row)
			}
		}
	}
	out.ColPointers[b.cols] = len(out.Values)
	return out
}

func (b *denseMatrixBuilder) toUpperTriangularCSC() qp.CSC {
	out := qp.CSC{Rows: b.rows, Cols: b.cols, ColPointers: make([]int, b.cols+1)}
	for col := 0; col < b.cols; col++ {
		out.ColPointers[col] = len(out.Values)
		for row := 0; row <= col && row < b.rows; row++ {
			v := b.data[row][col]
			if v != 0 {
				out.Values = append(out.Values, v)
				out.RowIndices = append(out.RowIndices, row)
			}
		}
	}
	out.ColPointers[b.cols] = len(out.Values)
	return out
}

// qpBuilder folds tracking, smoothness, terminal and goal costs plus the
// bounds/steering/rate/fixed-state constraints into a QP (spec.md §4.6).
type qpBuilder struct {
	param       MPTParam
	vehicleInfo VehicleInfo
}

func newQPBuilder(param MPTParam, vehicleInfo VehicleInfo) *qpBuilder {
	return &qpBuilder{param: param, vehicleInfo: vehicleInfo}
}

// egoState is the ego-tracked point's error relative to the first reference
// point's pose, injected into the state equation's offset (spec.md §4.6,
// "Fixed initial state").
type egoState struct {
	Lat float64
	Yaw float64
}

// applyInitialState folds a nonzero initial condition x0 into m's offset
// vector W. calcMatrix always leaves W's first block at zero (see
// stateequation.go); the true state is X = Acum*x0 + B*U + W, where Acum(i)
// is the cumulative product of the per-step Ad matrices from point 0 to i.
// Because Ad has the constant form [[1, ds],[0, 1]] regardless of curvature,
// that product telescopes to [[1, s_i],[0, 1]] where s_i is the cumulative
// arc length from point 0 to point i — so the correction is a closed form,
// no matrix products needed.
func applyInitialState(m stateEquationMatrix, refPoints []ReferencePoint, x0 egoState) stateEquationMatrix {
	if x0.Lat == 0 && x0.Yaw == 0 {
		return m
	}
	w := mat.NewVecDense(m.W.Len(), nil)
	w.CopyVec(m.W)
	s := 0.0
	for i := range refPoints {
		if i > 0 {
			s += refPoints[i-1].DeltaArcLength
		}
		w.SetVec(i*2, w.AtVec(i*2)+x0.Lat+s*x0.Yaw)
		w.SetVec(i*2+1, w.AtVec(i*2+1)+x0.Yaw)
	}
	return stateEquationMatrix{B: m.B, W: w}
}

// avoidanceBiasedLatWeight is the weight used for a point fully committed
// to avoidance (normalized_avoid_cost == 1): a fixed multiple of the base
// lat_error_weight, matching the "avoidance-biased weight" spec.md §4.6
// describes without giving a formula for.
func avoidanceBiasedLatWeight(base float64) float64 { return base * 4 }

// latYawWeights returns the per-point (w_lat, w_yaw) pair used in the
// tracking cost (spec.md §4.6): terminal/goal overrides at the last index,
// avoidance blending on interior points.
func (b *qpBuilder) latYawWeights(refPoints []ReferencePoint, goalIndex int) (wLat, wYaw []float64) {
	n := len(refPoints)
	wLat = make([]float64, n)
	wYaw = make([]float64, n)
	for i, rp := range refPoints {
		blended := b.param.LatErrorWeight
		if b.param.EnableAvoidance {
			c := rp.NormalizedAvoidCost
			blended = (1-c)*b.param.LatErrorWeight + c*avoidanceBiasedLatWeight(b.param.LatErrorWeight)
		}
		wLat[i] = blended
		wYaw[i] = b.param.YawErrorWeight

		if i == goalIndex {
			wLat[i] = b.param.GoalLatErrorWeight
			wYaw[i] = b.param.GoalYawErrorWeight
		}
	}
	if n > 0 {
		last := n - 1
		if last != goalIndex {
			wLat[last] = b.param.TerminalLatErrorWeight
			wYaw[last] = b.param.TerminalYawErrorWeight
		}
	}
	return wLat, wYaw
}

// build assembles the full QP for one cycle. prevU0 is the previous cycle's
// first applied input (used to pin u_{-1} for rate continuity); it is
// ignored (no continuity row) when ok is false. goalIndex selects the ref
// point that receives goal_lat_error_weight/goal_yaw_error_weight instead
// of the interior weighting; pass -1 if there is none this cycle.
func (b *qpBuilder) build(refPoints []ReferencePoint, mat stateEquationMatrix, prevU0 float64, prevU0OK bool, goalIndex int) qpProblem {
	nRef := len(refPoints)
	nu := nRef - 1
	tIdx := nu
	slackBase := nu + 1
	numVars := nu + 1 + nRef

	p := newDenseMatrixBuilder(numVars, numVars)
	q := make([]float64, numVars)

	wLat, wYaw := b.latYawWeights(refPoints, goalIndex)

	// Tracking cost: sum_i w_lat(i)*X_lat(i)^2 + w_yaw(i)*X_yaw(i)^2, with
	// X_lat/X_yaw rows read directly out of B/W (X = B*U + W).
	for i := 0; i < nRef; i++ {
		addQuadraticRow(p, q, mat, i*2, wLat[i], nu)
		addQuadraticRow(p, q, mat, i*2+1, wYaw[i], nu)
	}

	// Steering input magnitude cost: steer_input_weight * sum u_i^2.
	for i := 0; i < nu; i++ {
		p.add(i, i, b.param.SteerInputWeight)
	}

	// Steering rate cost: steer_rate_weight * sum (u_i - u_{i-1})^2, i in
	// [1, nu). The u_{-1} term (continuity with the previous cycle) is a
	// constraint, not a cost term, since there is no decision variable to
	// penalize for i=0.
	for i := 1; i < nu; i++ {
		w := b.param.SteerRateWeight
		p.add(i, i, w)
		p.add(i-1, i-1, w)
		p.add(i, i-1, -w)
		p.add(i-1, i, -w)
	}

	// L-inf auxiliary variable: linear cost only (spec.md §4.6).
	q[tIdx] += b.param.LInfWeight

	// Slack penalty: soft_collision_free_weight * sum s_i (linear).
	for i := 0; i < nRef; i++ {
		q[slackBase+i] += b.param.SoftCollisionFreeWeight
	}

	var aRows [][]float64
	var lVals, uVals []float64
	addRow := func(row []float64, l, u float64) {
		aRows = append(aRows, row)
		lVals = append(lVals, l)
		uVals = append(uVals, u)
	}
	newRow := func() []float64 { return make([]float64, numVars) }

	// Lateral bound (soft, via slack): l(i) - s_i <= X_lat(i) <= u(i) + s_i,
	// s_i >= 0.
	for i := 0; i < nRef; i++ {
		latRow := latCoeffRow(mat, i, nu, numVars)
		lo, hi := refPoints[i].Bounds.Lower, refPoints[i].Bounds.Upper
		wOff := mat.W.AtVec(i * 2)

		rowUpper := newRow()
		copy(rowUpper, latRow)
		rowUpper[slackBase+i] = -1
		addRow(rowUpper, math.Inf(-1), hi-wOff)

		rowLower := newRow()
		copy(rowLower, latRow)
		rowLower[slackBase+i] = 1
		addRow(rowLower, lo-wOff, math.Inf(1))

		rowSlackNonNeg := newRow()
		rowSlackNonNeg[slackBase+i] = 1
		addRow(rowSlackNonNeg, 0, math.Inf(1))
	}

	// L-inf auxiliary: t >= X_lat(i) and t >= -X_lat(i) for all i, t >= 0.
	for i := 0; i < nRef; i++ {
		latRow := latCoeffRow(mat, i, nu, numVars)
		wOff := mat.W.AtVec(i * 2)

		rowPos := newRow()
		copy(rowPos, latRow)
		rowPos[tIdx] = -1
		addRow(rowPos, math.Inf(-1), -wOff)

		rowNeg := newRow()
		for k := range latRow {
			rowNeg[k] = -latRow[k]
		}
		rowNeg[tIdx] = -1
		addRow(rowNeg, math.Inf(-1), wOff)
	}
	{
		rowTNonNeg := newRow()
		rowTNonNeg[tIdx] = 1
		addRow(rowTNonNeg, 0, math.Inf(1))
	}

	// Steering magnitude.
	for i := 0; i < nu; i++ {
		row := newRow()
		row[i] = 1
		addRow(row, -b.vehicleInfo.MaxSteerRad, b.vehicleInfo.MaxSteerRad)
	}

	// Steering rate, including u_{-1} continuity if available.
	maxRate := b.vehicleInfo.MaxSteerRateRadPerS
	if prevU0OK && nu > 0 {
		ds := refPoints[0].DeltaArcLength
		row := newRow()
		row[0] = 1
		addRow(row, prevU0-ds*maxRate, prevU0+ds*maxRate)
	}
	for i := 1; i < nu; i++ {
		ds := refPoints[i].DeltaArcLength
		row := newRow()
		row[i] = 1
		row[i-1] = -1
		addRow(row, -ds*maxRate, ds*maxRate)
	}

	// Fixed kinematic state on any point other than 0 (point 0's initial
	// condition is folded into W by applyInitialState, not a row here).
	for i := 1; i < nRef; i++ {
		fixed := refPoints[i].FixedKinematicState
		if fixed == nil {
			continue
		}
		latRow := latCoeffRow(mat, i, nu, numVars)
		addRow(latRow, fixed.Lat-mat.W.AtVec(i*2), fixed.Lat-mat.W.AtVec(i*2))

		yawRow := newRow()
		copy(yawRow, yawCoeffRow(mat, i, nu, numVars))
		addRow(yawRow, fixed.Yaw-mat.W.AtVec(i*2+1), fixed.Yaw-mat.W.AtVec(i*2+1))
	}

	// Terminal constraint: hard-bound the last point's lateral/yaw error.
	if b.param.EnableTerminalConstraint && nRef > 0 {
		last := nRef - 1
		latRow := latCoeffRow(mat, last, nu, numVars)
		wLatOff := mat.W.AtVec(last * 2)
		addRow(latRow, -b.param.TerminalLatErrorThreshold-wLatOff, b.param.TerminalLatErrorThreshold-wLatOff)

		yawRow := yawCoeffRow(mat, last, nu, numVars)
		wYawOff := mat.W.AtVec(last*2 + 1)
		addRow(yawRow, -b.param.TerminalYawErrorThreshold-wYawOff, b.param.TerminalYawErrorThreshold-wYawOff)
	}

	a := newDenseMatrixBuilder(len(aRows), numVars)
	for r, row := range aRows {
		for c, v := range row {
			if v != 0 {
				a.set(r, c, v)
			}
		}
	}

	return qpProblem{
		P:       p,
		A:       a,
		Q:       q,
		L:       lVals,
		U:       uVals,
		numU:    nu,
		numVars: numVars,
		tIndex:  tIdx,
		slackAt: func(i int) int { return slackBase + i },
	}
}

// addQuadraticRow folds w*(row(stateIdx)*U + W[stateIdx])^2 into P and q,
// where row(stateIdx) is B's stateIdx-th row.
func addQuadraticRow(p *denseMatrixBuilder, q []float64, mat stateEquationMatrix, stateIdx int, w float64, nu int) {
	if w == 0 {
		return
	}
	wOff := mat.W.AtVec(stateIdx)
	coeffs := make([]float64, nu)
	for k := 0; k < nu; k++ {
		coeffs[k] = mat.B.At(stateIdx, k)
	}
	for i := 0; i < nu; i++ {
		if coeffs[i] == 0 {
			continue
		}
		for j := 0; j < nu; j++ {
			if coeffs[j] == 0 {
				continue
			}
			p.add(i, j, w*coeffs[i]*coeffs[j])
		}
		q[i] += w * coeffs[i] * wOff
	}
}

func latCoeffRow(mat stateEquationMatrix, pointIdx, nu, numVars int) []float64 {
	row := make([]float64, numVars)
	for k := 0; k < nu; k++ {
		row[k] = mat.B.At(pointIdx*2, k)
	}
	return row
}

func yawCoeffRow(mat stateEquationMatrix, pointIdx, nu, numVars int) []float64 {
	row := make([]float64, numVars)
	for k := 0; k < nu; k++ {
		row[k] = mat.B.At(pointIdx*2+1, k)
	}
	return row
}
