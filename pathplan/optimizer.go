package pathplan

import (
	"math"
	"time"

	"github.com/pkg/errors"

	"go.viam.com/trajectoryopt/logging"
	"go.viam.com/trajectoryopt/numeric"
	"go.viam.com/trajectoryopt/pathplan/qp"
	"go.viam.com/trajectoryopt/spatialmath"
)

// PathOptimizer is the top-level orchestrator: reference points, bounds,
// QP build-and-solve, replan checking, and output resampling, driven one
// cycle at a time (spec.md §2, §6).
//
// PathOptimizer and everything it owns is not safe for concurrent use: it
// is a single mutable state machine over cross-cycle continuity (previous
// U, previous reference points, previous output trajectory, replan
// checker), matching the single-instance-per-caller convention the rest of
// this module's stateful types follow (spec.md §5, §9 Design Notes).
type PathOptimizer struct {
	param       PathOptimizerParam
	vehicleInfo VehicleInfo
	logger      logging.Logger

	refGen     *referencePointGenerator
	boundsCalc *boundsCalculator
	mpt        *mptOptimizer
	replan     *replanChecker

	prevOutputTraj []TrajectoryPoint
	prevRefPoints  []ReferencePoint
	initialized    bool
}

// NewPathOptimizer validates param and vehicleInfo and constructs a ready
// PathOptimizer. Construction is the only place Configuration-invalid
// (spec.md §7.5) can surface as a Go error; every later cycle's failures
// surface through OptimizationResult instead.
func NewPathOptimizer(param PathOptimizerParam, vehicleInfo VehicleInfo, logger logging.Logger) (*PathOptimizer, error) {
	if err := param.Validate(); err != nil {
		return nil, NewInvalidConfigError(err.Error())
	}
	if err := vehicleInfo.Validate(); err != nil {
		return nil, NewInvalidConfigError(err.Error())
	}

	return &PathOptimizer{
		param:       param,
		vehicleInfo: vehicleInfo,
		logger:      logger,
		refGen:      newReferencePointGenerator(param.MPT),
		boundsCalc:  newBoundsCalculator(vehicleInfo.Width, 0.0),
		mpt:         newMPTOptimizer(param.MPT, vehicleInfo, logger.Sublogger("mpt")),
		replan:      newReplanChecker(param.ReplanChecker, logger.Sublogger("replan")),
	}, nil
}

// Optimize runs one optimization cycle and returns the output trajectory.
// It never returns a Go error: every failure kind in spec.md §7 is
// absorbed into a best-effort trajectory. Callers that need the failure
// detail should use OptimizeWithDebug.
func (o *PathOptimizer) Optimize(data PlannerData, currentTimeSec float64) []TrajectoryPoint {
	return o.OptimizeWithDebug(data, currentTimeSec).Trajectory
}

// OptimizeWithDebug runs one optimization cycle and returns the full debug
// result: trajectory, internal reference points, success flag, message and
// timing (spec.md §6, Debug API).
func (o *PathOptimizer) OptimizeWithDebug(data PlannerData, currentTimeSec float64) OptimizationResult {
	start := time.Now()
	elapsedMs := func() float64 { return float64(time.Since(start)) / float64(time.Millisecond) }

	if len(data.TrajPoints) < 2 {
		return OptimizationResult{
			Success:      false,
			ErrorMessage: NewInvalidInputError("fewer than 2 path points").Error(),
			Trajectory:   passthrough(data.TrajPoints),
		}
	}

	if !o.initialized {
		o.initialized = true
		if o.param.EnableResetPrevOptimization {
			o.replan.reset()
			o.mpt.resetWarmStart()
		}
	}

	replanRequired := o.replan.isReplanRequired(data.TrajPoints, data.EgoPose, currentTimeSec)
	if replanRequired {
		o.mpt.resetWarmStart()
	}

	if o.param.EnableSkipOptimization && !replanRequired && o.prevOutputTraj != nil {
		return OptimizationResult{
			Trajectory:        o.prevOutputTraj,
			ReferencePoints:   o.prevRefPoints,
			Success:           true,
			ComputationTimeMs: elapsedMs(),
		}
	}

	sourceTraj := data.TrajPoints
	if !replanRequired && o.prevOutputTraj != nil {
		sourceTraj = o.prevOutputTraj
	}

	refPoints, err := o.refGen.generate(sourceTraj)
	if err != nil {
		o.logger.Warnw("reference point generation failed", "err", err)
		return OptimizationResult{
			Success:           false,
			ErrorMessage:      err.Error(),
			Trajectory:        passthrough(data.TrajPoints),
			ComputationTimeMs: elapsedMs(),
		}
	}

	bounds := o.boundsCalc.calculate(refPoints, data.LeftBound, data.RightBound)
	for i := range refPoints {
		refPoints[i].Bounds = bounds[i]
	}

	outside := o.checkOutsideDrivableArea(refPoints, data.EgoPose)

	outcome, err := o.mpt.optimize(refPoints, data.EgoPose)
	if err != nil {
		o.logger.Errorw("mpt optimize failed", "err", err)
		return o.solverFailureFallback(data, currentTimeSec, elapsedMs(), outside, err.Error())
	}
	if outcome.Status != qp.StatusSolved {
		return o.solverFailureFallback(data, currentTimeSec, elapsedMs(), outside, NewSolverFailedError(outcome.Status.String()).Error())
	}

	outTraj, err := o.resampleOutput(outcome.RefPoints)
	if err != nil {
		o.logger.Errorw("output resampling failed", "err", err)
		return o.solverFailureFallback(data, currentTimeSec, elapsedMs(), outside, err.Error())
	}
	outTraj = o.stitchBackward(outTraj, data.EgoPose)

	o.replan.updatePreviousData(outTraj, data.EgoPose, currentTimeSec)
	o.prevOutputTraj = outTraj
	o.prevRefPoints = outcome.RefPoints

	return OptimizationResult{
		Trajectory:          outTraj,
		ReferencePoints:     outcome.RefPoints,
		Success:             true,
		ComputationTimeMs:   elapsedMs(),
		OutsideDrivableArea: outside,
	}
}

// checkOutsideDrivableArea flags the ego-tracked point's error against its
// bound plus a stop margin (spec.md §2.3 supplemented feature,
// enable_outside_drivable_area_stop).
func (o *PathOptimizer) checkOutsideDrivableArea(refPoints []ReferencePoint, egoPose spatialmath.Pose) bool {
	if !o.param.EnableOutsideDrivableAreaStop || len(refPoints) == 0 {
		return false
	}
	x0 := egoErrorState(egoPose, refPoints[0].Pose)
	b := refPoints[0].Bounds
	margin := o.param.VehicleStopMarginOutsideDrivableArea
	return x0.Lat < b.Lower-margin || x0.Lat > b.Upper+margin
}

// solverFailureFallback implements spec.md §7.3: reuse the previous
// trajectory if one exists and is still fresh (within max_delta_time_sec
// of its last replan), otherwise pass the input path through with
// front_wheel_angle zeroed.
func (o *PathOptimizer) solverFailureFallback(data PlannerData, currentTimeSec, elapsedMs float64, outside bool, message string) OptimizationResult {
	lastTime, ok := o.replan.lastReplannedTimeSec()
	fresh := ok && currentTimeSec-lastTime <= o.param.ReplanChecker.MaxDeltaTimeSec
	if fresh && o.prevOutputTraj != nil {
		return OptimizationResult{
			Trajectory:          o.prevOutputTraj,
			ReferencePoints:     o.prevRefPoints,
			Success:             false,
			ErrorMessage:        "solver did not converge: reused previous trajectory (" + message + ")",
			ComputationTimeMs:   elapsedMs,
			OutsideDrivableArea: outside,
		}
	}
	return OptimizationResult{
		Trajectory:          passthrough(data.TrajPoints),
		Success:             false,
		ErrorMessage:        "solver did not converge: passed input path through (" + message + ")",
		ComputationTimeMs:   elapsedMs,
		OutsideDrivableArea: outside,
	}
}

// passthrough copies the input path into a valid (if degenerate) output
// trajectory with front_wheel_angle zeroed, spec.md §7's fallback for
// input-invalid and last-resort solver-failure cycles.
func passthrough(traj []TrajectoryPoint) []TrajectoryPoint {
	out := make([]TrajectoryPoint, len(traj))
	copy(out, traj)
	for i := range out {
		out[i].FrontWheelAngleRad = 0
	}
	return out
}

// resampleOutput maps each optimized reference point's error state into a
// world-frame pose, then resamples the resulting curve at
// output_delta_arc_length using the same cubic-spline technique
// referencePointGenerator uses (spec.md §2.3, §8 property 1).
func (o *PathOptimizer) resampleOutput(refPoints []ReferencePoint) ([]TrajectoryPoint, error) {
	n := len(refPoints)
	if n < 2 {
		return nil, errors.New("resampling requires at least 2 optimized reference points")
	}

	worldX := make([]float64, n)
	worldY := make([]float64, n)
	vels := make([]float64, n)
	latVels := make([]float64, n)
	positions := make([]spatialmath.Point, n)

	for i, rp := range refPoints {
		yaw := rp.Pose.Yaw()
		nx, ny := lateralNormal(yaw)
		lat := rp.OptimizedKinematicState.Lat
		worldX[i] = rp.Pose.Position.X + nx*lat
		worldY[i] = rp.Pose.Position.Y + ny*lat
		positions[i] = spatialmath.NewPoint(worldX[i], worldY[i], 0)
		vels[i] = rp.LongitudinalVelMps
		latVels[i] = rp.LateralVelMps
	}

	s := arcLengths(positions)
	total := s[len(s)-1]
	if total <= 0 {
		return nil, errors.New("optimized trajectory has zero arc length")
	}

	splineX, err := numeric.NewCubicSpline(s, worldX)
	if err != nil {
		return nil, errors.Wrap(err, "fitting output x(s) spline")
	}
	splineY, err := numeric.NewCubicSpline(s, worldY)
	if err != nil {
		return nil, errors.Wrap(err, "fitting output y(s) spline")
	}
	splineV, err := numeric.NewCubicSpline(s, vels)
	if err != nil {
		return nil, errors.Wrap(err, "fitting output v(s) spline")
	}
	splineLatV, err := numeric.NewCubicSpline(s, latVels)
	if err != nil {
		return nil, errors.Wrap(err, "fitting output lateral v(s) spline")
	}

	ds := o.param.Trajectory.OutputDeltaArcLength
	outN := int(total/ds) + 1
	if outN < 2 {
		outN = 2
	}

	out := make([]TrajectoryPoint, outN)
	for i := 0; i < outN; i++ {
		si := math.Min(float64(i)*ds, total)
		x := splineX.Interpolate(si)
		y := splineY.Interpolate(si)
		dx := splineX.Derivative(si)
		dy := splineY.Derivative(si)
		ddx := splineX.SecondDerivative(si)
		ddy := splineY.SecondDerivative(si)
		yaw := math.Atan2(dy, dx)
		kappa := curvatureFromDerivatives(dx, dy, ddx, ddy)

		out[i] = TrajectoryPoint{
			Pose:               spatialmath.NewPoseFromYaw(x, y, yaw),
			LongitudinalVelMps: splineV.Interpolate(si),
			LateralVelMps:      splineLatV.Interpolate(si),
			HeadingRateRadPerS: kappa,
			FrontWheelAngleRad: o.mpt.model.frontWheelAngle(kappa),
		}
	}
	return out, nil
}

// stitchBackward prepends up to output_backward_traj_length of the
// previous cycle's output trajectory, measured back from the point
// nearest the current ego pose, ahead of the freshly resampled trajectory
// (spec.md §2.3 supplemented feature, output_backward_traj_length).
func (o *PathOptimizer) stitchBackward(newTraj []TrajectoryPoint, egoPose spatialmath.Pose) []TrajectoryPoint {
	backLen := o.param.Trajectory.OutputBackwardTrajLength
	if backLen <= 0 || len(o.prevOutputTraj) < 2 {
		return newTraj
	}

	nearest := findEgoNearestIndex(o.prevOutputTraj, egoPose, o.param.EgoNearest)
	start := nearest
	acc := 0.0
	for start > 0 && acc < backLen {
		acc += o.prevOutputTraj[start].Pose.Position.Sub(o.prevOutputTraj[start-1].Pose.Position).Norm()
		start--
	}
	if start >= nearest {
		return newTraj
	}

	backward := append([]TrajectoryPoint(nil), o.prevOutputTraj[start:nearest]...)
	return append(backward, newTraj...)
}

// findEgoNearestIndex returns the index of the trajectory point closest to
// egoPose, preferring a point within param's distance/yaw thresholds if one
// exists (spec.md §2.3, EgoNearestParam), falling back to the global
// nearest point by position otherwise.
func findEgoNearestIndex(traj []TrajectoryPoint, egoPose spatialmath.Pose, param EgoNearestParam) int {
	bestIdx := 0
	bestDist := math.Inf(1)
	withinIdx := -1
	withinDist := math.Inf(1)
	for i, tp := range traj {
		d := tp.Pose.Position.Sub(egoPose.Position).Norm()
		yawDiff := math.Abs(spatialmath.AngleDiff(tp.Pose.Yaw(), egoPose.Yaw()))
		if d <= param.DistThreshold && yawDiff <= param.YawThreshold && d < withinDist {
			withinDist = d
			withinIdx = i
		}
		if d < bestDist {
			bestDist = d
			bestIdx = i
		}
	}
	if withinIdx >= 0 {
		return withinIdx
	}
	return bestIdx
}
