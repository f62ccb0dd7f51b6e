// Package numeric contains the numerical building blocks shared by the
// path optimizer: currently a natural cubic spline fitter/evaluator used to
// resample reference geometry at uniform arc length.
package numeric

import (
	"sort"

	"github.com/pkg/errors"
)

// CubicSpline is a natural cubic spline s(t) = a + b*dt + c*dt^2 + d*dt^3 on
// each segment between consecutive abscissas, with s'' = 0 at both
// endpoints. Fit solves the tridiagonal coefficient system via the Thomas
// algorithm (spec.md §4.1).
type CubicSpline struct {
	x, y       []float64
	a, b, c, d []float64
}

// NewCubicSpline fits a natural cubic spline through the given samples. x
// must be strictly increasing and at least two points must be provided.
func NewCubicSpline(x, y []float64) (*CubicSpline, error) {
	n := len(x)
	if n < 2 {
		return nil, errors.New("cubic spline requires at least 2 samples")
	}
	if len(y) != n {
		return nil, errors.Errorf("cubic spline x/y length mismatch: %d vs %d", n, len(y))
	}
	if !sort.SliceIsSorted(x, func(i, j int) bool { return x[i] < x[j] }) {
		return nil, errors.New("cubic spline abscissas must be strictly increasing")
	}
	for i := 1; i < n; i++ {
		if x[i] <= x[i-1] {
			return nil, errors.New("cubic spline abscissas must be strictly increasing")
		}
	}

	s := &CubicSpline{
		x: append([]float64(nil), x...),
		y: append([]float64(nil), y...),
		a: append([]float64(nil), y...),
		b: make([]float64, n),
		c: make([]float64, n),
		d: make([]float64, n),
	}

	if n == 2 {
		s.b[0] = (y[1] - y[0]) / (x[1] - x[0])
		return s, nil
	}

	h := make([]float64, n-1)
	for i := 0; i < n-1; i++ {
		h[i] = x[i+1] - x[i]
	}

	alpha := make([]float64, n)
	for i := 1; i < n-1; i++ {
		alpha[i] = 3.0/h[i]*(y[i+1]-y[i]) - 3.0/h[i-1]*(y[i]-y[i-1])
	}

	l := make([]float64, n)
	mu := make([]float64, n)
	z := make([]float64, n)
	l[0] = 1.0

	for i := 1; i < n-1; i++ {
		l[i] = 2.0*(x[i+1]-x[i-1]) - h[i-1]*mu[i-1]
		mu[i] = h[i] / l[i]
		z[i] = (alpha[i] - h[i-1]*z[i-1]) / l[i]
	}
	l[n-1] = 1.0

	for i := n - 2; i >= 0; i-- {
		s.c[i] = z[i] - mu[i]*s.c[i+1]
		s.b[i] = (y[i+1]-y[i])/h[i] - h[i]*(s.c[i+1]+2.0*s.c[i])/3.0
		s.d[i] = (s.c[i+1] - s.c[i]) / (3.0 * h[i])
	}

	return s, nil
}

// findSegment returns the index i such that x lies in (x_i, x_{i+1}] via
// binary search, clamped to [0, n-2].
func (s *CubicSpline) findSegment(x float64) int {
	n := len(s.x)
	i := sort.SearchFloat64s(s.x, x)
	switch {
	case i <= 0:
		return 0
	case i >= n:
		return n - 2
	default:
		return i - 1
	}
}

// Interpolate returns s(x). Queries outside the fitted range clamp to the
// nearest endpoint value.
func (s *CubicSpline) Interpolate(x float64) float64 {
	if x <= s.x[0] {
		return s.y[0]
	}
	n := len(s.x)
	if x >= s.x[n-1] {
		return s.y[n-1]
	}
	i := s.findSegment(x)
	dx := x - s.x[i]
	return s.a[i] + s.b[i]*dx + s.c[i]*dx*dx + s.d[i]*dx*dx*dx
}

// Derivative returns s'(x). Queries outside the fitted range clamp to the
// endpoint slope.
func (s *CubicSpline) Derivative(x float64) float64 {
	n := len(s.x)
	if x <= s.x[0] {
		return s.b[0]
	}
	if x >= s.x[n-1] {
		i := n - 2
		h := s.x[n-1] - s.x[i]
		return s.b[i] + 2.0*s.c[i]*h + 3.0*s.d[i]*h*h
	}
	i := s.findSegment(x)
	dx := x - s.x[i]
	return s.b[i] + 2.0*s.c[i]*dx + 3.0*s.d[i]*dx*dx
}

// SecondDerivative returns s''(x). Queries outside the fitted range return
// 0, matching the natural boundary condition.
func (s *CubicSpline) SecondDerivative(x float64) float64 {
	n := len(s.x)
	if x <= s.x[0] || x >= s.x[n-1] {
		return 0
	}
	i := s.findSegment(x)
	dx := x - s.x[i]
	return 2.0*s.c[i] + 6.0*s.d[i]*dx
}

// Domain returns the fitted abscissa range [x0, xn-1].
func (s *CubicSpline) Domain() (float64, float64) {
	return s.x[0], s.x[len(s.x)-1]
}
