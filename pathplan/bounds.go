package pathplan

import (
	"math"

	"go.viam.com/trajectoryopt/spatialmath"
)

// boundsCalculator projects the left/right drivable-area polylines onto
// each reference point's lateral axis to produce per-point lateral
// lower/upper bounds (spec.md §4.5).
type boundsCalculator struct {
	halfWidth float64 // vehicle_width/2 + margin, subtracted symmetrically
}

func newBoundsCalculator(vehicleWidth, margin float64) *boundsCalculator {
	return &boundsCalculator{halfWidth: vehicleWidth/2 + margin}
}

// maxLateralRayLength bounds how far the lateral ray is considered to
// search for a boundary crossing; polylines further than this from a
// reference point are treated as not defining that point's bound.
const maxLateralRayLength = 50.0

// calculate returns one Bounds per reference point.
func (bc *boundsCalculator) calculate(refPoints []ReferencePoint, left, right []spatialmath.Point) []Bounds {
	bounds := make([]Bounds, len(refPoints))
	for i, rp := range refPoints {
		nx, ny := lateralNormal(rp.Pose.Yaw())
		px, py := rp.Pose.Position.X, rp.Pose.Position.Y

		leftDist, leftOK := closestSignedCrossing(px, py, nx, ny, left)
		rightDist, rightOK := closestSignedCrossing(px, py, nx, ny, right)

		if !leftOK || math.Abs(leftDist) > maxLateralRayLength {
			leftDist = maxLateralRayLength
		}
		if !rightOK || math.Abs(rightDist) > maxLateralRayLength {
			rightDist = -maxLateralRayLength
		}

		lower := rightDist + bc.halfWidth
		upper := leftDist - bc.halfWidth

		soft := false
		if lower > upper {
			// Ego is outside the drivable area, or the corridor is
			// narrower than the vehicle: widen minimally to include 0
			// and flag it so the QP absorbs the violation via slack
			// (spec.md §3 invariants, §4.5, §7.2).
			lower = math.Min(lower, 0)
			upper = math.Max(upper, 0)
			soft = true
		}

		bounds[i] = Bounds{Lower: lower, Upper: upper, SoftViolation: soft}
	}
	return bounds
}

// lateralNormal returns the unit leftward normal of a heading yaw:
// rotate the forward direction (cos(yaw), sin(yaw)) by +90 degrees.
func lateralNormal(yaw float64) (nx, ny float64) {
	return -math.Sin(yaw), math.Cos(yaw)
}

// closestSignedCrossing finds where the infinite line through (px,py) in
// direction (nx,ny) crosses polyline, and returns the signed distance
// (positive in the (nx,ny) direction) to the closest such crossing. If no
// segment of the polyline crosses the line, it falls back to the signed
// perpendicular distance from (px,py) to the closest vertex.
func closestSignedCrossing(px, py, nx, ny float64, polyline []spatialmath.Point) (float64, bool) {
	if len(polyline) == 0 {
		return 0, false
	}

	bestT := math.Inf(1)
	found := false

	for i := 0; i+1 < len(polyline); i++ {
		ax, ay := polyline[i].X, polyline[i].Y
		bx, by := polyline[i+1].X, polyline[i+1].Y
		dx, dy := bx-ax, by-ay

		// Solve [nx -dx; ny -dy] [t;u] = [ax-px; ay-py]
		det := nx*(-dy) - (-dx)*ny
		if math.Abs(det) < 1e-12 {
			continue // parallel to this segment
		}
		rx, ry := ax-px, ay-py
		t := (rx*(-dy) - (-dx)*ry) / det
		u := (nx*ry - ny*rx) / det

		if u < 0 || u > 1 {
			continue
		}
		if math.Abs(t) < math.Abs(bestT) {
			bestT = t
			found = true
		}
	}

	if found {
		return bestT, true
	}

	// No crossing: fall back to the signed perpendicular offset of the
	// nearest vertex onto the lateral axis.
	bestDist := math.Inf(1)
	var bestSigned float64
	for _, pt := range polyline {
		dx, dy := pt.X-px, pt.Y-py
		dist := math.Hypot(dx, dy)
		if dist < bestDist {
			bestDist = dist
			bestSigned = dx*nx + dy*ny
		}
	}
	if math.IsInf(bestDist, 1) {
		return 0, false
	}
	return bestSigned, true
}
