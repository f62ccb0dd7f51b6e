package pathplan

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"go.viam.com/trajectoryopt/logging"
	"go.viam.com/trajectoryopt/spatialmath"
)

func straightPath(n int, step float64) []TrajectoryPoint {
	out := make([]TrajectoryPoint, n)
	for i := range out {
		x := float64(i) * step
		out[i] = TrajectoryPoint{
			Pose:               spatialmath.NewPoseFromYaw(x, 0, 0),
			LongitudinalVelMps: 5.0,
		}
	}
	return out
}

func arcPath(n int, radius, totalAngle float64) []TrajectoryPoint {
	out := make([]TrajectoryPoint, n)
	for i := range out {
		theta := totalAngle * float64(i) / float64(n-1)
		x := radius * math.Sin(theta)
		y := radius * (1 - math.Cos(theta))
		out[i] = TrajectoryPoint{
			Pose:               spatialmath.NewPoseFromYaw(x, y, theta),
			LongitudinalVelMps: 5.0,
		}
	}
	return out
}

func sineCurvePath(n int, xMax float64) []TrajectoryPoint {
	out := make([]TrajectoryPoint, n)
	for i := range out {
		x := xMax * float64(i) / float64(n-1)
		y := 0.5 * math.Sin(x/5)
		out[i] = TrajectoryPoint{
			Pose:               spatialmath.NewPoseFromYaw(x, y, 0),
			LongitudinalVelMps: 5.0,
		}
	}
	return out
}

func straightBoundLine(y float64, xMax float64) []spatialmath.Point {
	return []spatialmath.Point{
		spatialmath.NewPoint(-5, y, 0),
		spatialmath.NewPoint(xMax+5, y, 0),
	}
}

func defaultVehicleInfo() VehicleInfo {
	return VehicleInfo{
		WheelBase:           2.79,
		FrontOverhang:       0.8,
		RearOverhang:        1.0,
		Width:               1.92,
		Length:              4.89,
		MaxSteerRad:         0.7,
		MaxSteerRateRadPerS: 0.5,
	}
}

func newTestOptimizer(t *testing.T, mutate func(*PathOptimizerParam)) *PathOptimizer {
	t.Helper()
	param := DefaultPathOptimizerParam()
	param.MPT.EnableAvoidance = false
	if mutate != nil {
		mutate(&param)
	}
	o, err := NewPathOptimizer(param, defaultVehicleInfo(), logging.NewTestLogger(t))
	require.NoError(t, err)
	return o
}

func TestPathOptimizerStraightCorridor(t *testing.T) {
	o := newTestOptimizer(t, nil)
	traj := straightPath(50, 1.0)
	data := PlannerData{
		TrajPoints: traj,
		LeftBound:  straightBoundLine(2.0, 50),
		RightBound: straightBoundLine(-2.0, 50),
		EgoPose:    spatialmath.NewPoseFromYaw(0, 0, 0),
		EgoVel:     5.0,
	}

	result := o.OptimizeWithDebug(data, 0.0)
	require.True(t, result.Success, result.ErrorMessage)
	require.NotEmpty(t, result.Trajectory)

	for _, rp := range result.ReferencePoints {
		assert.Less(t, math.Abs(rp.OptimizedKinematicState.Lat), 1e-2)
		assert.Less(t, math.Abs(rp.OptimizedInput), 1e-2)
	}

	last := result.Trajectory[len(result.Trajectory)-1]
	assert.Greater(t, last.Pose.Position.X, 30.0)
}

func TestPathOptimizerConstantCurvatureArc(t *testing.T) {
	o := newTestOptimizer(t, nil)
	traj := arcPath(40, 20.0, math.Pi/3)
	data := PlannerData{
		TrajPoints: traj,
		LeftBound:  offsetPolyline(traj, 1.5),
		RightBound: offsetPolyline(traj, -1.5),
		EgoPose:    traj[0].Pose,
		EgoVel:     5.0,
	}

	result := o.OptimizeWithDebug(data, 0.0)
	require.True(t, result.Success, result.ErrorMessage)

	for _, rp := range result.ReferencePoints {
		assert.Less(t, math.Abs(rp.OptimizedKinematicState.Lat), 0.05)
	}
}

func TestPathOptimizerSCurve(t *testing.T) {
	o := newTestOptimizer(t, nil)
	traj := sineCurvePath(30, 30.0)
	data := PlannerData{
		TrajPoints: traj,
		LeftBound:  offsetPolyline(traj, 1.5),
		RightBound: offsetPolyline(traj, -1.5),
		EgoPose:    traj[0].Pose,
		EgoVel:     5.0,
	}

	result := o.OptimizeWithDebug(data, 0.0)
	require.True(t, result.Success, result.ErrorMessage)

	vehicleInfo := defaultVehicleInfo()
	prev := 0.0
	havePrev := false
	for _, rp := range result.ReferencePoints {
		if havePrev {
			assert.LessOrEqual(t, math.Abs(rp.OptimizedInput-prev)/rp.DeltaArcLength, vehicleInfo.MaxSteerRateRadPerS+1e-3)
		}
		prev = rp.OptimizedInput
		havePrev = true
	}
}

func TestPathOptimizerEgoOffCenter(t *testing.T) {
	o := newTestOptimizer(t, nil)
	traj := straightPath(30, 1.0)
	data := PlannerData{
		TrajPoints: traj,
		LeftBound:  straightBoundLine(3.0, 30),
		RightBound: straightBoundLine(-3.0, 30),
		EgoPose:    spatialmath.NewPoseFromYaw(0, 0.8, 0.2),
		EgoVel:     5.0,
	}

	result := o.OptimizeWithDebug(data, 0.0)
	require.True(t, result.Success, result.ErrorMessage)

	first := result.ReferencePoints[0].OptimizedKinematicState.Lat
	last := result.ReferencePoints[len(result.ReferencePoints)-1].OptimizedKinematicState.Lat
	assert.Less(t, math.Abs(last), math.Abs(first))
}

func TestPathOptimizerNarrowCorridorSetsSoftViolation(t *testing.T) {
	o := newTestOptimizer(t, nil)
	traj := straightPath(30, 1.0)
	data := PlannerData{
		TrajPoints: traj,
		LeftBound:  straightBoundLine(0.1, 30),
		RightBound: straightBoundLine(-0.1, 30),
		EgoPose:    spatialmath.NewPoseFromYaw(0, 0, 0),
		EgoVel:     5.0,
	}

	result := o.OptimizeWithDebug(data, 0.0)
	require.True(t, result.Success, result.ErrorMessage)

	anySoft := false
	for _, rp := range result.ReferencePoints {
		if rp.Bounds.SoftViolation {
			anySoft = true
		}
		assert.LessOrEqual(t, math.Abs(rp.OptimizedInput), defaultVehicleInfo().MaxSteerRad+1e-6)
	}
	assert.True(t, anySoft)
}

func TestPathOptimizerReplanTriggersOnEgoJump(t *testing.T) {
	o := newTestOptimizer(t, nil)
	traj := straightPath(30, 1.0)
	bounds := PlannerData{
		TrajPoints: traj,
		LeftBound:  straightBoundLine(2.0, 30),
		RightBound: straightBoundLine(-2.0, 30),
		EgoPose:    spatialmath.NewPoseFromYaw(0, 0, 0),
		EgoVel:     5.0,
	}

	first := o.OptimizeWithDebug(bounds, 0.0)
	require.True(t, first.Success, first.ErrorMessage)

	jumped := bounds
	jumped.EgoPose = spatialmath.NewPoseFromYaw(0, 6.0, 0)
	assert.True(t, o.replan.isReplanRequired(jumped.TrajPoints, jumped.EgoPose, 0.1))

	second := o.OptimizeWithDebug(jumped, 0.1)
	require.True(t, second.Success, second.ErrorMessage)
}

func TestPathOptimizerRejectsTooFewPathPoints(t *testing.T) {
	o := newTestOptimizer(t, nil)
	data := PlannerData{
		TrajPoints: straightPath(1, 1.0),
		EgoPose:    spatialmath.NewPoseFromYaw(0, 0, 0),
	}

	result := o.OptimizeWithDebug(data, 0.0)
	assert.False(t, result.Success)
	assert.NotEmpty(t, result.ErrorMessage)
}

func TestNewPathOptimizerRejectsInvalidConfig(t *testing.T) {
	param := DefaultPathOptimizerParam()
	param.MPT.MaxSteerRad = -1
	_, err := NewPathOptimizer(param, defaultVehicleInfo(), logging.NewTestLogger(t))
	assert.Error(t, err)
}

// offsetPolyline builds a boundary polyline by shifting each of traj's
// poses laterally by dist along its heading normal.
func offsetPolyline(traj []TrajectoryPoint, dist float64) []spatialmath.Point {
	out := make([]spatialmath.Point, len(traj))
	for i, tp := range traj {
		yaw := tp.Pose.Yaw()
		nx, ny := -math.Sin(yaw), math.Cos(yaw)
		out[i] = spatialmath.NewPoint(tp.Pose.Position.X+nx*dist, tp.Pose.Position.Y+ny*dist, 0)
	}
	return out
}
