// Package spatialmath contains the basic geometric types shared across the
// path optimizer: 3D points and rigid-body poses expressed with a
// quaternion orientation, plus the yaw-only helpers the planar bicycle
// model needs.
package spatialmath

import (
	"math"

	"github.com/golang/geo/r3"
	"gonum.org/v1/gonum/num/quat"
)

// Point is a position in 3D space, in meters.
type Point r3.Vector

// NewPoint constructs a Point from Cartesian coordinates.
func NewPoint(x, y, z float64) Point {
	return Point{X: x, Y: y, Z: z}
}

// Sub returns p - other.
func (p Point) Sub(other Point) Point {
	return Point(r3.Vector(p).Sub(r3.Vector(other)))
}

// Norm returns the Euclidean length of p.
func (p Point) Norm() float64 {
	return r3.Vector(p).Norm()
}

// Pose is a rigid body pose: a position plus a unit-quaternion orientation.
type Pose struct {
	Position    Point
	Orientation quat.Number
}

// NewPoseFromYaw builds a Pose at the given planar position with the given
// yaw (rotation about +Z), zero roll/pitch.
func NewPoseFromYaw(x, y, yaw float64) Pose {
	return Pose{
		Position:    NewPoint(x, y, 0),
		Orientation: quat.Number{Real: math.Cos(yaw / 2), Kmag: math.Sin(yaw / 2)},
	}
}

// Yaw extracts the planar heading (rotation about +Z) from the pose's
// orientation quaternion. Roll and pitch, if present, are ignored — the
// optimizer core is a planar bicycle model.
func (p Pose) Yaw() float64 {
	return QuatToYaw(p.Orientation)
}

// QuatToYaw returns the yaw angle (rotation about +Z) encoded by q, using
// the standard aerospace-sequence extraction restricted to the Z component.
func QuatToYaw(q quat.Number) float64 {
	siny := 2 * (q.Real*q.Kmag + q.Imag*q.Jmag)
	cosy := 1 - 2*(q.Jmag*q.Jmag+q.Kmag*q.Kmag)
	return math.Atan2(siny, cosy)
}

// QuaternionAlmostEqual reports whether q1 and q2 represent the same
// rotation to within tol, accounting for the double cover of SO(3) by
// unit quaternions (q and -q are the same rotation).
func QuaternionAlmostEqual(q1, q2 quat.Number, tol float64) bool {
	diff := quat.Number{
		Real: q1.Real - q2.Real,
		Imag: q1.Imag - q2.Imag,
		Jmag: q1.Jmag - q2.Jmag,
		Kmag: q1.Kmag - q2.Kmag,
	}
	sum := quat.Number{
		Real: q1.Real + q2.Real,
		Imag: q1.Imag + q2.Imag,
		Jmag: q1.Jmag + q2.Jmag,
		Kmag: q1.Kmag + q2.Kmag,
	}
	return quat.Abs(diff) < tol || quat.Abs(sum) < tol
}

// PoseAlmostEqual reports whether two poses have approximately the same
// position and yaw, within the given tolerances.
func PoseAlmostEqual(p1, p2 Pose, posTol, yawTol float64) bool {
	if p1.Position.Sub(p2.Position).Norm() > posTol {
		return false
	}
	return math.Abs(AngleDiff(p1.Yaw(), p2.Yaw())) <= yawTol
}

// AngleDiff returns a-b normalized into (-pi, pi].
func AngleDiff(a, b float64) float64 {
	d := math.Mod(a-b, 2*math.Pi)
	if d > math.Pi {
		d -= 2 * math.Pi
	} else if d <= -math.Pi {
		d += 2 * math.Pi
	}
	return d
}

// Distance returns the planar Euclidean distance between two poses'
// positions, ignoring Z.
func Distance(p1, p2 Pose) float64 {
	dx := p1.Position.X - p2.Position.X
	dy := p1.Position.Y - p2.Position.Y
	return math.Hypot(dx, dy)
}
