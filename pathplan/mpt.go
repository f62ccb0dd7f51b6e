package pathplan

import (
	"time"

	"github.com/pkg/errors"
	"gonum.org/v1/gonum/mat"

	"go.viam.com/trajectoryopt/logging"
	"go.viam.com/trajectoryopt/pathplan/qp"
	"go.viam.com/trajectoryopt/spatialmath"
)

func vecFromSlice(v []float64) *mat.VecDense { return mat.NewVecDense(len(v), v) }

// mptSolveOutcome is the result of one MPTOptimizer.optimize call.
type mptSolveOutcome struct {
	RefPoints []ReferencePoint
	Status    qp.Status
	Iters     int
	SolveTime float64
}

// mptOptimizer builds and solves the QP for one cycle: reference-point
// state equation, ego-error injection, cost/constraint assembly, warm
// start, solve, and unpacking the solution back into each ReferencePoint
// (spec.md §4.6).
type mptOptimizer struct {
	param       MPTParam
	vehicleInfo VehicleInfo
	logger      logging.Logger

	model    *vehicleModel
	stateGen *stateEquationGenerator
	builder  *qpBuilder
	solver   qp.Solver

	prevPrimal []float64
	prevDual   []float64
	prevU0     float64
	havePrevU0 bool
}

func newMPTOptimizer(param MPTParam, vehicleInfo VehicleInfo, logger logging.Logger) *mptOptimizer {
	model := newVehicleModel(vehicleInfo.WheelBase, vehicleInfo.MaxSteerRad)
	return &mptOptimizer{
		param:       param,
		vehicleInfo: vehicleInfo,
		logger:      logger,
		model:       model,
		stateGen:    newStateEquationGenerator(model),
		builder:     newQPBuilder(param, vehicleInfo),
		solver:      qp.NewDenseSolver(0, time.Duration(param.MaxOptimizationTimeMs*float64(time.Millisecond))),
	}
}

// resetWarmStart discards any cached primal/dual guess, forcing the next
// solve to start cold (spec.md §4.8, replan-required policy).
func (m *mptOptimizer) resetWarmStart() {
	m.prevPrimal = nil
	m.prevDual = nil
	m.havePrevU0 = false
}

// optimize computes the ego-tracked point's error relative to refPoints[0],
// assembles the QP, solves it, and returns refPoints with OptimizedInput
// and OptimizedKinematicState filled in.
func (m *mptOptimizer) optimize(refPoints []ReferencePoint, egoPose spatialmath.Pose) (mptSolveOutcome, error) {
	if len(refPoints) < 2 {
		return mptSolveOutcome{}, errors.New("mpt optimizer requires at least 2 reference points")
	}

	x0 := egoErrorState(egoPose, refPoints[0].Pose)

	mat := m.stateGen.calcMatrix(refPoints)
	mat = applyInitialState(mat, refPoints, x0)

	goalIndex := -1 // no distinct goal point is threaded through this cycle's inputs; see DESIGN.md.
	problem := m.builder.build(refPoints, mat, m.prevU0, m.havePrevU0, goalIndex)

	pCSC := problem.P.toUpperTriangularCSC()
	aCSC := problem.A.toCSC()

	if err := m.solver.Init(pCSC, aCSC, problem.Q, problem.L, problem.U, 1e-4); err != nil {
		return mptSolveOutcome{}, errors.Wrap(err, "initializing QP solver")
	}
	if len(m.prevPrimal) == problem.numVars && len(m.prevDual) == len(problem.L) {
		m.solver.SetWarmStart(m.prevPrimal, m.prevDual)
	}

	result, err := m.solver.Solve()
	if err != nil {
		return mptSolveOutcome{}, errors.Wrap(err, "solving QP")
	}

	if result.Status != qp.StatusSolved {
		m.logger.Warnw("QP solver did not converge", "status", result.Status.String(), "iters", result.Iters)
		return mptSolveOutcome{Status: result.Status, Iters: result.Iters, SolveTime: result.SolveTime}, nil
	}

	m.prevPrimal = result.Primal
	m.prevDual = result.Dual

	out := unpackSolution(refPoints, mat, result.Primal, problem.numU)
	if problem.numU > 0 {
		m.prevU0 = out[0].OptimizedInput
		m.havePrevU0 = true
	}

	return mptSolveOutcome{
		RefPoints: out,
		Status:    result.Status,
		Iters:     result.Iters,
		SolveTime: result.SolveTime,
	}, nil
}

// egoErrorState computes the ego pose's lateral/yaw error relative to a
// reference pose, in the reference pose's own frame (spec.md §4.6, "Fixed
// initial state").
func egoErrorState(egoPose, refPose spatialmath.Pose) egoState {
	refYaw := refPose.Yaw()
	nx, ny := lateralNormal(refYaw)
	dx := egoPose.Position.X - refPose.Position.X
	dy := egoPose.Position.Y - refPose.Position.Y
	lat := dx*nx + dy*ny
	yaw := spatialmath.AngleDiff(egoPose.Yaw(), refYaw)
	return egoState{Lat: lat, Yaw: yaw}
}

// unpackSolution reads the solved U back out of primal and fills in each
// ReferencePoint's OptimizedInput and OptimizedKinematicState. The last
// point has no u_i of its own (U has one fewer element than there are
// points); it is assigned the final applied input so every point carries a
// defined steering value for downstream front-wheel-angle recomputation.
func unpackSolution(refPoints []ReferencePoint, mat stateEquationMatrix, primal []float64, numU int) []ReferencePoint {
	out := make([]ReferencePoint, len(refPoints))
	copy(out, refPoints)

	u := make([]float64, numU)
	copy(u, primal[:numU])

	uVec := vecFromSlice(u)
	x := mat.predict(uVec)

	for i := range out {
		out[i].OptimizedKinematicState = KinematicState{Lat: x.AtVec(i * 2), Yaw: x.AtVec(i*2 + 1)}
		switch {
		case numU == 0:
			out[i].OptimizedInput = 0
		case i < numU:
			out[i].OptimizedInput = u[i]
		default:
			out[i].OptimizedInput = u[numU-1]
		}
	}
	return out
}
