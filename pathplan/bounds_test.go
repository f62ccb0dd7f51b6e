package pathplan

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"go.viam.com/trajectoryopt/spatialmath"
)

func straightBound(y float64) []spatialmath.Point {
	return []spatialmath.Point{
		spatialmath.NewPoint(-10, y, 0),
		spatialmath.NewPoint(100, y, 0),
	}
}

func TestBoundsCalculatorStraightCorridor(t *testing.T) {
	bc := newBoundsCalculator(1.92, 0.0)
	refPoints := []ReferencePoint{
		{Pose: spatialmath.NewPoseFromYaw(0, 0, 0)},
		{Pose: spatialmath.NewPoseFromYaw(10, 0, 0)},
	}
	left := straightBound(2.0)
	right := straightBound(-2.0)

	bounds := bc.calculate(refPoints, left, right)
	require.Len(t, bounds, 2)

	halfWidth := 1.92 / 2
	for _, b := range bounds {
		assert.InDelta(t, -2.0+halfWidth, b.Lower, 1e-6)
		assert.InDelta(t, 2.0-halfWidth, b.Upper, 1e-6)
		assert.False(t, b.SoftViolation)
		assert.LessOrEqual(t, b.Lower, b.Upper)
	}
}

func TestBoundsCalculatorNarrowCorridorFlagsSoftViolation(t *testing.T) {
	bc := newBoundsCalculator(1.92, 0.0) // half-width 0.96
	refPoints := []ReferencePoint{{Pose: spatialmath.NewPoseFromYaw(0, 0, 0)}}
	left := straightBound(0.1)
	right := straightBound(-0.1)

	bounds := bc.calculate(refPoints, left, right)
	require.Len(t, bounds, 1)
	assert.True(t, bounds[0].SoftViolation)
	assert.LessOrEqual(t, bounds[0].Lower, bounds[0].Upper)
	assert.LessOrEqual(t, bounds[0].Lower, 0.0)
	assert.GreaterOrEqual(t, bounds[0].Upper, 0.0)
}

func TestBoundsCalculatorOffsetCorridor(t *testing.T) {
	bc := newBoundsCalculator(0.0, 0.0)
	refPoints := []ReferencePoint{{Pose: spatialmath.NewPoseFromYaw(5, 1, 0)}}
	left := straightBound(3.0)
	right := straightBound(-1.0)

	bounds := bc.calculate(refPoints, left, right)
	// Point is at y=1; left boundary at y=3 is 2 away, right at y=-1 is 2 away.
	assert.InDelta(t, -2.0, bounds[0].Lower, 1e-6)
	assert.InDelta(t, 2.0, bounds[0].Upper, 1e-6)
}
