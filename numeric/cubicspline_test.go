package numeric

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCubicSplineRejectsBadInput(t *testing.T) {
	_, err := NewCubicSpline([]float64{0}, []float64{0})
	require.Error(t, err)

	_, err = NewCubicSpline([]float64{0, 1, 0.5}, []float64{0, 1, 2})
	require.Error(t, err)

	_, err = NewCubicSpline([]float64{0, 1}, []float64{0, 1, 2})
	require.Error(t, err)
}

func TestCubicSplineInterpolatesSamplesExactly(t *testing.T) {
	// A natural cubic spline passes through every fitted sample exactly,
	// regardless of the underlying function (spec.md §8 property 4).
	f := func(x float64) float64 { return 2 + 3*x - x*x + 0.5*x*x*x }
	xs := []float64{-2, -1, 0, 1, 2, 3, 4}
	ys := make([]float64, len(xs))
	for i, x := range xs {
		ys[i] = f(x)
	}

	spline, err := NewCubicSpline(xs, ys)
	require.NoError(t, err)

	for _, x := range xs {
		assert.InDelta(t, f(x), spline.Interpolate(x), 1e-9)
	}
}

func TestCubicSplineDerivativesAreInternallyConsistent(t *testing.T) {
	// Derivative and SecondDerivative are the analytic derivatives of the
	// piecewise cubic Interpolate actually evaluates; cross-check them
	// against central finite differences of the lower-order function.
	f := func(x float64) float64 { return 2 + 3*x - x*x + 0.5*x*x*x }
	xs := []float64{-2, -1, 0, 1, 2, 3, 4}
	ys := make([]float64, len(xs))
	for i, x := range xs {
		ys[i] = f(x)
	}
	spline, err := NewCubicSpline(xs, ys)
	require.NoError(t, err)

	const h = 1e-5
	for _, x := range []float64{-1.5, -0.5, 0.5, 1.5, 2.5, 3.5} {
		fd1 := (spline.Interpolate(x+h) - spline.Interpolate(x-h)) / (2 * h)
		assert.InDelta(t, fd1, spline.Derivative(x), 1e-4)

		fd2 := (spline.Derivative(x+h) - spline.Derivative(x-h)) / (2 * h)
		assert.InDelta(t, fd2, spline.SecondDerivative(x), 1e-2)
	}
}

func TestCubicSplineExactForLinearFunction(t *testing.T) {
	// A linear function has zero curvature everywhere, satisfying the
	// natural boundary condition exactly, so the fitted spline reproduces
	// it exactly at any point, not just at the samples.
	xs := []float64{0, 1, 2, 3, 4}
	ys := make([]float64, len(xs))
	for i, x := range xs {
		ys[i] = 2*x + 5
	}
	spline, err := NewCubicSpline(xs, ys)
	require.NoError(t, err)

	for _, x := range []float64{0.3, 1.7, 2.5, 3.9} {
		assert.InDelta(t, 2*x+5, spline.Interpolate(x), 1e-9)
		assert.InDelta(t, 2.0, spline.Derivative(x), 1e-9)
		assert.InDelta(t, 0.0, spline.SecondDerivative(x), 1e-9)
	}
}

func TestCubicSplineClampsOutsideDomain(t *testing.T) {
	spline, err := NewCubicSpline([]float64{0, 1, 2}, []float64{0, 1, 4})
	require.NoError(t, err)

	lo, hi := spline.Domain()
	assert.Equal(t, 0.0, lo)
	assert.Equal(t, 2.0, hi)

	assert.Equal(t, spline.Interpolate(0), spline.Interpolate(-5))
	assert.Equal(t, spline.Interpolate(2), spline.Interpolate(50))
	assert.Equal(t, spline.Derivative(0), spline.Derivative(-5))
	assert.Equal(t, 0.0, spline.SecondDerivative(-5))
	assert.Equal(t, 0.0, spline.SecondDerivative(50))
}

func TestCubicSplineLinearTwoPoints(t *testing.T) {
	spline, err := NewCubicSpline([]float64{0, 2}, []float64{0, 4})
	require.NoError(t, err)
	assert.InDelta(t, 2.0, spline.Interpolate(1), 1e-9)
	assert.InDelta(t, 2.0, spline.Derivative(1), 1e-9)
}
