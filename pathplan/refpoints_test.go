package pathplan

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"go.viam.com/trajectoryopt/spatialmath"
)

func straightTraj(n int, step float64) []TrajectoryPoint {
	pts := make([]TrajectoryPoint, n)
	for i := 0; i < n; i++ {
		x := float64(i) * step
		pts[i] = TrajectoryPoint{
			Pose:               spatialmath.NewPoseFromYaw(x, 0, 0),
			LongitudinalVelMps: 5.0,
		}
	}
	return pts
}

func TestReferencePointGeneratorStraightLine(t *testing.T) {
	param := DefaultMPTParam()
	param.NumPoints = 20
	param.DeltaArcLengthForMPTPoints = 1.0
	gen := newReferencePointGenerator(param)

	refPoints, err := gen.generate(straightTraj(50, 1.0))
	require.NoError(t, err)
	require.Len(t, refPoints, 20)

	for i, rp := range refPoints {
		assert.InDelta(t, float64(i), rp.Pose.Position.X, 1e-6)
		assert.InDelta(t, 0.0, rp.Pose.Position.Y, 1e-6)
		assert.InDelta(t, 0.0, rp.Pose.Yaw(), 1e-9)
		assert.InDelta(t, 0.0, rp.Curvature, 1e-6)
		assert.InDelta(t, 5.0, rp.LongitudinalVelMps, 1e-6)
	}
}

func TestReferencePointGeneratorTruncatesToShorterInput(t *testing.T) {
	param := DefaultMPTParam()
	param.NumPoints = 100
	param.DeltaArcLengthForMPTPoints = 1.0
	gen := newReferencePointGenerator(param)

	refPoints, err := gen.generate(straightTraj(10, 1.0))
	require.NoError(t, err)
	assert.LessOrEqual(t, len(refPoints), 10)
}

func TestReferencePointGeneratorConstantCurvatureArc(t *testing.T) {
	radius := 20.0
	n := 60
	pts := make([]TrajectoryPoint, n)
	for i := 0; i < n; i++ {
		theta := float64(i) / float64(n-1) * (math.Pi / 3) // 60 degree arc
		x := radius * math.Sin(theta)
		y := radius * (1 - math.Cos(theta))
		pts[i] = TrajectoryPoint{Pose: spatialmath.NewPoseFromYaw(x, y, theta)}
	}

	param := DefaultMPTParam()
	param.NumPoints = 30
	param.DeltaArcLengthForMPTPoints = 0.5
	gen := newReferencePointGenerator(param)

	refPoints, err := gen.generate(pts)
	require.NoError(t, err)
	require.NotEmpty(t, refPoints)

	for _, rp := range refPoints[2 : len(refPoints)-2] {
		assert.InDelta(t, 1.0/radius, rp.Curvature, 0.02)
	}
}

func TestReferencePointGeneratorRejectsTooShortInput(t *testing.T) {
	gen := newReferencePointGenerator(DefaultMPTParam())
	_, err := gen.generate([]TrajectoryPoint{{}})
	require.Error(t, err)
}
