package pathplan

import (
	"math"

	"github.com/pkg/errors"

	"go.viam.com/trajectoryopt/numeric"
	"go.viam.com/trajectoryopt/spatialmath"
)

// referencePointGenerator resamples the previous optimized trajectory (or
// the raw input path on the first cycle) at uniform arc length, using
// cubic-spline interpolation of x(s), y(s) to compute pose, curvature and
// per-point spacing (spec.md §4.4).
type referencePointGenerator struct {
	param MPTParam
}

func newReferencePointGenerator(param MPTParam) *referencePointGenerator {
	return &referencePointGenerator{param: param}
}

// arcLengths returns the cumulative arc length at each input point.
func arcLengths(points []spatialmath.Point) []float64 {
	s := make([]float64, len(points))
	for i := 1; i < len(points); i++ {
		s[i] = s[i-1] + points[i].Sub(points[i-1]).Norm()
	}
	return s
}

// generate resamples traj at param.DeltaArcLengthForMPTPoints and returns
// up to param.NumPoints reference points (fewer if the input is shorter).
func (g *referencePointGenerator) generate(traj []TrajectoryPoint) ([]ReferencePoint, error) {
	if len(traj) < 2 {
		return nil, errors.New("reference point generation requires at least 2 trajectory points")
	}

	xs := make([]float64, len(traj))
	ys := make([]float64, len(traj))
	positions := make([]spatialmath.Point, len(traj))
	vels := make([]float64, len(traj))
	latVels := make([]float64, len(traj))
	for i, p := range traj {
		xs[i] = p.Pose.Position.X
		ys[i] = p.Pose.Position.Y
		positions[i] = p.Pose.Position
		vels[i] = p.LongitudinalVelMps
		latVels[i] = p.LateralVelMps
	}

	s := arcLengths(positions)
	if s[len(s)-1] <= 0 {
		return nil, errors.New("reference point generation requires strictly increasing arc length")
	}

	splineX, err := numeric.NewCubicSpline(s, xs)
	if err != nil {
		return nil, errors.Wrap(err, "fitting x(s) spline")
	}
	splineY, err := numeric.NewCubicSpline(s, ys)
	if err != nil {
		return nil, errors.Wrap(err, "fitting y(s) spline")
	}
	splineV, err := numeric.NewCubicSpline(s, vels)
	if err != nil {
		return nil, errors.Wrap(err, "fitting v(s) spline")
	}
	splineLatV, err := numeric.NewCubicSpline(s, latVels)
	if err != nil {
		return nil, errors.Wrap(err, "fitting lateral v(s) spline")
	}

	ds := g.param.DeltaArcLengthForMPTPoints
	totalLength := s[len(s)-1]
	maxN := int(totalLength/ds) + 1
	n := g.param.NumPoints
	if maxN < n {
		n = maxN
	}
	if n < 2 {
		n = 2
	}

	alpha := g.param.OptimizationCenterOffset

	refPoints := make([]ReferencePoint, n)
	for i := 0; i < n; i++ {
		si := math.Min(float64(i)*ds, totalLength)

		x := splineX.Interpolate(si)
		y := splineY.Interpolate(si)
		dx := splineX.Derivative(si)
		dy := splineY.Derivative(si)
		ddx := splineX.SecondDerivative(si)
		ddy := splineY.SecondDerivative(si)

		yaw := math.Atan2(dy, dx)
		curvature := curvatureFromDerivatives(dx, dy, ddx, ddy)

		// DeltaArcLength is the step from this point to the next one; the
		// state equation generator only ever reads it for i < n-1, so the
		// last point's value is unused but kept at ds for consistency.
		refPoints[i] = ReferencePoint{
			Pose:                spatialmath.NewPoseFromYaw(x, y, yaw),
			LongitudinalVelMps:  splineV.Interpolate(si),
			LateralVelMps:       splineLatV.Interpolate(si),
			Curvature:           curvature,
			DeltaArcLength:      ds,
			Alpha:               alpha,
			NormalizedAvoidCost: 0,
		}
	}

	return refPoints, nil
}

// curvatureFromDerivatives computes the standard signed curvature
// (x'y'' - y'x'') / (x'^2 + y'^2)^{3/2} (spec.md §4.4).
func curvatureFromDerivatives(dx, dy, ddx, ddy float64) float64 {
	denom := math.Pow(dx*dx+dy*dy, 1.5)
	if denom < 1e-9 {
		return 0
	}
	return (dx*ddy - dy*ddx) / denom
}
