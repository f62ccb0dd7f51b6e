// Package pathplan implements the Model Predictive Trajectory (MPT) path
// optimizer: reference-point generation, drivable-area bounds, the
// time-varying kinematic state equation, the QP formulation and its
// warm-started solve, the replan checker, and the orchestrator that drives
// one optimization cycle end to end.
package pathplan

import (
	"go.viam.com/trajectoryopt/spatialmath"
)

// PathPoint is one sample of the coarse input reference path.
type PathPoint struct {
	Pose               spatialmath.Pose
	LongitudinalVelMps float64
	LateralVelMps      float64
	HeadingRateRadPerS float64
}

// TrajectoryPoint is one sample of the optimized output trajectory.
type TrajectoryPoint struct {
	Pose               spatialmath.Pose
	LongitudinalVelMps float64
	LateralVelMps      float64
	HeadingRateRadPerS float64
	AccelMps2          float64
	FrontWheelAngleRad float64
	RearWheelAngleRad  float64
}

// KinematicState is the 2-vector optimization state at a reference point:
// signed lateral error and yaw error relative to the reference pose.
type KinematicState struct {
	Lat float64
	Yaw float64
}

// Vector returns the state as a [lat, yaw] slice, the layout used
// throughout the block-matrix assembly in stateequation.go.
func (k KinematicState) Vector() []float64 { return []float64{k.Lat, k.Yaw} }

// Bounds is a lateral interval, lower <= upper, in meters, in the
// reference point's local lateral frame (positive is to the left).
type Bounds struct {
	Lower float64
	Upper float64
	// SoftViolation is set when the raw drivable-area projection produced
	// an empty or inside-out interval and had to be widened to include 0
	// (spec.md §3 invariants, §4.5).
	SoftViolation bool
}

// Width returns Upper - Lower.
func (b Bounds) Width() float64 { return b.Upper - b.Lower }

// ReferencePoint is one internal optimizer sample: geometry, per-point
// weights, bounds, and (after a solve) the optimized state and input.
type ReferencePoint struct {
	Pose               spatialmath.Pose
	LongitudinalVelMps float64
	LateralVelMps      float64

	Curvature           float64
	DeltaArcLength      float64
	Alpha               float64 // MPTParam.OptimizationCenterOffset as given (meters); not converted to a wheel angle and not read by the QP
	NormalizedAvoidCost float64 // in [0, 1]

	Bounds Bounds

	// FixedKinematicState, if non-nil, pins this point's state via equality
	// rows in the QP. It is ignored on the first point, whose ego error
	// state is folded into W by applyInitialState instead.
	FixedKinematicState *KinematicState

	OptimizedKinematicState KinematicState
	OptimizedInput          float64
}

// VehicleInfo holds the static geometric and steering-envelope parameters
// of the ego vehicle.
type VehicleInfo struct {
	WheelBase           float64
	FrontOverhang       float64
	RearOverhang        float64
	Width               float64
	Length              float64
	MaxSteerRad         float64
	MaxSteerRateRadPerS float64
}

// PlannerData bundles one cycle's inputs, mirroring the orchestrator's
// internal PlannerData in the original implementation.
type PlannerData struct {
	TrajPoints []TrajectoryPoint
	LeftBound  []spatialmath.Point
	RightBound []spatialmath.Point
	EgoPose    spatialmath.Pose
	EgoVel     float64
}

// OptimizationResult is the debug-API return value: the optimized
// trajectory plus the internal reference points and success/timing
// metadata (spec.md §6, Debug API).
type OptimizationResult struct {
	Trajectory        []TrajectoryPoint
	ReferencePoints   []ReferencePoint
	Success           bool
	ErrorMessage      string
	ComputationTimeMs float64
	// OutsideDrivableArea is set when enable_outside_drivable_area_stop is
	// on and the ego-tracked point falls outside the corridor by more than
	// VehicleStopMarginOutsideDrivableArea.
	OutsideDrivableArea bool
}
