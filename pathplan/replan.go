package pathplan

import (
	"gonum.org/v1/gonum/floats"

	"go.viam.com/trajectoryopt/logging"
	"go.viam.com/trajectoryopt/spatialmath"
)

// replanSnapshot is the previous cycle's data the checker compares against
// (spec.md §4.8).
type replanSnapshot struct {
	trajPoints       []TrajectoryPoint
	egoPose          spatialmath.Pose
	replannedTimeSec float64
}

// replanChecker decides whether a cycle must recompute from scratch,
// grounded on original_source/replan_checker.hpp.
type replanChecker struct {
	param  ReplanCheckerParam
	logger logging.Logger

	prev *replanSnapshot
}

func newReplanChecker(param ReplanCheckerParam, logger logging.Logger) *replanChecker {
	return &replanChecker{param: param, logger: logger}
}

// isReplanRequired reports whether the optimizer must recompute from
// scratch rather than reuse the warm-started QP (spec.md §4.8):
//   - no previous data,
//   - elapsed time since the last replan exceeds max_delta_time_sec,
//   - the ego has moved more than max_ego_moving_dist since the last replan,
//   - the candidate trajectory's shape has diverged from the previous one by
//     more than max_path_shape_change_dist.
func (c *replanChecker) isReplanRequired(currentTraj []TrajectoryPoint, currentEgoPose spatialmath.Pose, currentTimeSec float64) bool {
	if c.prev == nil {
		c.logger.Debugw("replan required: no previous data")
		return true
	}

	dt := currentTimeSec - c.prev.replannedTimeSec
	if dt > c.param.MaxDeltaTimeSec {
		c.logger.Debugw("replan required: elapsed time exceeded", "dt", dt)
		return true
	}

	dist := calculatePoseDistance(currentEgoPose, c.prev.egoPose)
	if dist > c.param.MaxEgoMovingDist {
		c.logger.Debugw("replan required: ego moved too far", "dist", dist)
		return true
	}

	shapeChange := calculatePathShapeChange(currentTraj, c.prev.trajPoints)
	if shapeChange > c.param.MaxPathShapeChangeDist {
		c.logger.Debugw("replan required: path shape changed", "shape_change", shapeChange)
		return true
	}

	return false
}

// updatePreviousData records the snapshot the next cycle's check compares
// against.
func (c *replanChecker) updatePreviousData(trajPoints []TrajectoryPoint, egoPose spatialmath.Pose, currentTimeSec float64) {
	c.prev = &replanSnapshot{
		trajPoints:       trajPoints,
		egoPose:          egoPose,
		replannedTimeSec: currentTimeSec,
	}
}

// reset clears the previous-cycle snapshot, forcing the next call to
// isReplanRequired to return true (spec.md §4.8, EnableResetPrevOptimization).
func (c *replanChecker) reset() { c.prev = nil }

// lastReplannedTimeSec returns the timestamp of the last recorded replan,
// used by the solver-failure fallback policy (spec.md §7.3) to decide
// whether the cached previous trajectory is still fresh enough to reuse.
func (c *replanChecker) lastReplannedTimeSec() (float64, bool) {
	if c.prev == nil {
		return 0, false
	}
	return c.prev.replannedTimeSec, true
}

func calculatePoseDistance(a, b spatialmath.Pose) float64 {
	return spatialmath.Distance(a, b)
}

// calculatePathShapeChange compares two trajectories sample-by-sample over
// their common length and returns the mean lateral (position) deviation
// between them (spec.md §4.8: the shape-change metric is an average, not a
// worst-case bound).
func calculatePathShapeChange(a, b []TrajectoryPoint) float64 {
	n := len(a)
	if len(b) < n {
		n = len(b)
	}
	if n == 0 {
		return 0
	}
	deviations := make([]float64, n)
	for i := 0; i < n; i++ {
		deviations[i] = a[i].Pose.Position.Sub(b[i].Pose.Position).Norm()
	}
	return floats.Sum(deviations) / float64(n)
}
