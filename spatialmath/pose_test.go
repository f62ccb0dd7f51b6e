package spatialmath

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestYawRoundTrip(t *testing.T) {
	for _, yaw := range []float64{0, 0.1, math.Pi / 2, -math.Pi / 2, 2.9, -3.0} {
		pose := NewPoseFromYaw(1, 2, yaw)
		assert.InDelta(t, yaw, pose.Yaw(), 1e-9)
	}
}

func TestPoseAlmostEqual(t *testing.T) {
	p1 := NewPoseFromYaw(0, 0, 0.1)
	p2 := NewPoseFromYaw(0.001, 0, 0.1001)
	assert.True(t, PoseAlmostEqual(p1, p2, 0.01, 0.01))

	p3 := NewPoseFromYaw(1, 0, 0.1)
	assert.False(t, PoseAlmostEqual(p1, p3, 0.01, 0.01))
}

func TestAngleDiffWraps(t *testing.T) {
	assert.InDelta(t, 0.2, AngleDiff(3.2, 3.0), 1e-9)
	assert.InDelta(t, 0.1, AngleDiff(-math.Pi+0.05, math.Pi-0.05), 1e-9)
}

func TestDistance(t *testing.T) {
	p1 := NewPoseFromYaw(0, 0, 0)
	p2 := NewPoseFromYaw(3, 4, 0)
	assert.InDelta(t, 5.0, Distance(p1, p2), 1e-9)
}
