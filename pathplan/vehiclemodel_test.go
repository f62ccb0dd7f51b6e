package pathplan

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestVehicleModelStraightLine(t *testing.T) {
	m := newVehicleModel(2.79, 0.7)
	ad, bd, wd := m.stepMatrices(0.0, 1.0)

	assert.Equal(t, [2][2]float64{{1, 1}, {0, 1}}, ad)
	assert.InDelta(t, 0.0, bd[0], 1e-12)
	assert.InDelta(t, 1.0/2.79, bd[1], 1e-9)
	assert.InDelta(t, 0.0, wd[0], 1e-12)
	assert.InDelta(t, 0.0, wd[1], 1e-9)
}

func TestVehicleModelClampsExtremeCurvature(t *testing.T) {
	m := newVehicleModel(2.79, 0.5)
	// A curvature whose atan(L*kappa) exceeds the steer limit should be
	// clamped in Wd's steering term without blowing up.
	_, _, wd := m.stepMatrices(10.0, 1.0)
	assert.False(t, math.IsNaN(wd[1]))
	assert.False(t, math.IsInf(wd[1], 0))
}

func TestVehicleModelFrontWheelAngle(t *testing.T) {
	m := newVehicleModel(2.79, 0.7)
	assert.InDelta(t, math.Atan(2.79*0.05), m.frontWheelAngle(0.05), 1e-12)
}

func TestClampHelper(t *testing.T) {
	assert.Equal(t, 1.0, clamp(5, -1, 1))
	assert.Equal(t, -1.0, clamp(-5, -1, 1))
	assert.Equal(t, 0.3, clamp(0.3, -1, 1))
}
