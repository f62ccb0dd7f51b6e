package pathplan

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"go.viam.com/trajectoryopt/logging"
	"go.viam.com/trajectoryopt/pathplan/qp"
	"go.viam.com/trajectoryopt/spatialmath"
)

func straightMPTRefPoints(n int, ds, lower, upper float64) []ReferencePoint {
	pts := make([]ReferencePoint, n)
	for i := range pts {
		x := float64(i) * ds
		pts[i] = ReferencePoint{
			Pose:           spatialmath.NewPoseFromYaw(x, 0, 0),
			DeltaArcLength: ds,
			Bounds:         Bounds{Lower: lower, Upper: upper},
		}
	}
	return pts
}

func TestMPTOptimizerStraightLineEgoOnCenter(t *testing.T) {
	vehicleInfo := VehicleInfo{WheelBase: 2.79, MaxSteerRad: 0.7, MaxSteerRateRadPerS: 0.5, Width: 1.92}
	param := DefaultMPTParam()
	param.EnableAvoidance = false
	m := newMPTOptimizer(param, vehicleInfo, logging.NewTestLogger(t))

	refPoints := straightMPTRefPoints(15, 1.0, -2, 2)
	outcome, err := m.optimize(refPoints, spatialmath.NewPoseFromYaw(0, 0, 0))
	require.NoError(t, err)
	require.Equal(t, qp.StatusSolved, outcome.Status)

	for _, rp := range outcome.RefPoints {
		assert.InDelta(t, 0.0, rp.OptimizedKinematicState.Lat, 1e-2)
		assert.InDelta(t, 0.0, rp.OptimizedInput, 1e-2)
	}
}

func TestMPTOptimizerEgoOffCenterConverges(t *testing.T) {
	vehicleInfo := VehicleInfo{WheelBase: 2.79, MaxSteerRad: 0.7, MaxSteerRateRadPerS: 0.5, Width: 1.92}
	param := DefaultMPTParam()
	param.EnableAvoidance = false
	m := newMPTOptimizer(param, vehicleInfo, logging.NewTestLogger(t))

	refPoints := straightMPTRefPoints(30, 1.0, -3, 3)
	ego := spatialmath.NewPoseFromYaw(0, 0.8, 0.2)
	outcome, err := m.optimize(refPoints, ego)
	require.NoError(t, err)
	require.Equal(t, qp.StatusSolved, outcome.Status)

	// The lateral error should shrink toward the centerline over the
	// horizon rather than diverge.
	first := outcome.RefPoints[0].OptimizedKinematicState.Lat
	last := outcome.RefPoints[len(outcome.RefPoints)-1].OptimizedKinematicState.Lat
	assert.Less(t, math.Abs(last), math.Abs(first)+1e-6)
}

func TestMPTOptimizerRespectsSteerLimits(t *testing.T) {
	vehicleInfo := VehicleInfo{WheelBase: 2.79, MaxSteerRad: 0.3, MaxSteerRateRadPerS: 0.1, Width: 1.92}
	param := DefaultMPTParam()
	param.EnableAvoidance = false
	m := newMPTOptimizer(param, vehicleInfo, logging.NewTestLogger(t))

	refPoints := straightMPTRefPoints(20, 1.0, -3, 3)
	ego := spatialmath.NewPoseFromYaw(0, 2.5, 0.5)
	outcome, err := m.optimize(refPoints, ego)
	require.NoError(t, err)
	require.Equal(t, qp.StatusSolved, outcome.Status)

	prev := 0.0
	havePrev := false
	for _, rp := range outcome.RefPoints {
		assert.LessOrEqual(t, math.Abs(rp.OptimizedInput), vehicleInfo.MaxSteerRad+1e-6)
		if havePrev {
			assert.LessOrEqual(t, math.Abs(rp.OptimizedInput-prev), 1.0*vehicleInfo.MaxSteerRateRadPerS+1e-6)
		}
		prev = rp.OptimizedInput
		havePrev = true
	}
}

func TestMPTOptimizerWarmStartIdempotence(t *testing.T) {
	vehicleInfo := VehicleInfo{WheelBase: 2.79, MaxSteerRad: 0.7, MaxSteerRateRadPerS: 0.5, Width: 1.92}
	param := DefaultMPTParam()
	param.EnableAvoidance = false
	m := newMPTOptimizer(param, vehicleInfo, logging.NewTestLogger(t))

	refPoints := straightMPTRefPoints(20, 1.0, -2, 2)
	ego := spatialmath.NewPoseFromYaw(0, 0.3, 0.05)

	first, err := m.optimize(refPoints, ego)
	require.NoError(t, err)
	require.Equal(t, qp.StatusSolved, first.Status)

	second, err := m.optimize(refPoints, ego)
	require.NoError(t, err)
	require.Equal(t, qp.StatusSolved, second.Status)

	sumSq := 0.0
	for i := range first.RefPoints {
		d := second.RefPoints[i].OptimizedKinematicState.Lat - first.RefPoints[i].OptimizedKinematicState.Lat
		sumSq += d * d
	}
	rms := math.Sqrt(sumSq / float64(len(first.RefPoints)))
	assert.Less(t, rms, 1e-6)
}
