package pathplan

import (
	"math"

	"github.com/pkg/errors"
	"go.uber.org/multierr"
)

// TrajectoryParam controls the output trajectory resampling.
type TrajectoryParam struct {
	OutputDeltaArcLength     float64 `json:"output_delta_arc_length"`
	OutputBackwardTrajLength float64 `json:"output_backward_traj_length"`
}

// DefaultTrajectoryParam returns the spec.md §6 default values.
func DefaultTrajectoryParam() TrajectoryParam {
	return TrajectoryParam{
		OutputDeltaArcLength:     0.5,
		OutputBackwardTrajLength: 2.0,
	}
}

// Validate checks that the trajectory parameters are usable.
func (p TrajectoryParam) Validate() error {
	if p.OutputDeltaArcLength <= 0 {
		return errors.New("output_delta_arc_length must be positive")
	}
	if p.OutputBackwardTrajLength < 0 {
		return errors.New("output_backward_traj_length must be non-negative")
	}
	return nil
}

// EgoNearestParam controls how the orchestrator locates the ego-nearest
// point on the previous trajectory when stitching backward output.
type EgoNearestParam struct {
	DistThreshold float64 `json:"dist_threshold"`
	YawThreshold  float64 `json:"yaw_threshold"`
}

// DefaultEgoNearestParam returns the original implementation's defaults.
func DefaultEgoNearestParam() EgoNearestParam {
	return EgoNearestParam{DistThreshold: 3.0, YawThreshold: 1.046}
}

// Validate checks the ego-nearest parameters.
func (p EgoNearestParam) Validate() error {
	if p.DistThreshold <= 0 {
		return errors.New("dist_threshold must be positive")
	}
	if p.YawThreshold <= 0 {
		return errors.New("yaw_threshold must be positive")
	}
	return nil
}

// MPTParam tunes the Model Predictive Trajectory optimizer (spec.md §6).
type MPTParam struct {
	NumCurvatureSamplingPoints int     `json:"num_curvature_sampling_points"`
	DeltaArcLengthForMPTPoints float64 `json:"delta_arc_length_for_mpt_points"`

	NumPoints             int     `json:"num_points"`
	MaxOptimizationTimeMs float64 `json:"max_optimization_time_ms"`

	LInfWeight       float64 `json:"l_inf_weight"`
	LatErrorWeight   float64 `json:"lat_error_weight"`
	YawErrorWeight   float64 `json:"yaw_error_weight"`
	SteerInputWeight float64 `json:"steer_input_weight"`
	SteerRateWeight  float64 `json:"steer_rate_weight"`

	TerminalLatErrorWeight float64 `json:"terminal_lat_error_weight"`
	TerminalYawErrorWeight float64 `json:"terminal_yaw_error_weight"`
	GoalLatErrorWeight     float64 `json:"goal_lat_error_weight"`
	GoalYawErrorWeight     float64 `json:"goal_yaw_error_weight"`

	OptimizationCenterOffset float64 `json:"optimization_center_offset"`

	MaxSteerRad         float64 `json:"max_steer_rad"`
	MaxSteerRateRadPerS float64 `json:"max_steer_rate_rad_per_s"`

	EnableAvoidance         bool    `json:"enable_avoidance"`
	AvoidancePrecision      float64 `json:"avoidance_precision"`
	SoftCollisionFreeWeight float64 `json:"soft_collision_free_weight"`

	EnableTerminalConstraint  bool    `json:"enable_terminal_constraint"`
	TerminalLatErrorThreshold float64 `json:"terminal_lat_error_threshold"`
	TerminalYawErrorThreshold float64 `json:"terminal_yaw_error_threshold"`
}

// DefaultMPTParam returns the spec.md §6 default values.
func DefaultMPTParam() MPTParam {
	return MPTParam{
		NumCurvatureSamplingPoints: 5,
		DeltaArcLengthForMPTPoints: 1.0,
		NumPoints:                  100,
		MaxOptimizationTimeMs:      50.0,
		LInfWeight:                 1.0,
		LatErrorWeight:             1.0,
		YawErrorWeight:             0.0,
		SteerInputWeight:           1.0,
		SteerRateWeight:            1.0,
		TerminalLatErrorWeight:     100.0,
		GoalLatErrorWeight:         1000.0,
		OptimizationCenterOffset:   0.0,
		MaxSteerRad:                0.7,
		MaxSteerRateRadPerS:        0.5,
		EnableAvoidance:            true,
		AvoidancePrecision:         0.5,
		SoftCollisionFreeWeight:    1000.0,
		EnableTerminalConstraint:   true,
		TerminalLatErrorThreshold:  0.3,
		TerminalYawErrorThreshold:  0.1,
	}
}

// Validate checks the MPT parameters, aggregating every violation found
// rather than stopping at the first (spec.md §7.5, Configuration-invalid).
func (p MPTParam) Validate() error {
	var errs error
	if p.NumPoints < 2 {
		errs = multierr.Append(errs, errors.New("num_points must be >= 2"))
	}
	if p.DeltaArcLengthForMPTPoints <= 0 {
		errs = multierr.Append(errs, errors.New("delta_arc_length_for_mpt_points must be positive"))
	}
	if p.MaxOptimizationTimeMs <= 0 {
		errs = multierr.Append(errs, errors.New("max_optimization_time_ms must be positive"))
	}
	for name, w := range map[string]float64{
		"l_inf_weight":               p.LInfWeight,
		"lat_error_weight":           p.LatErrorWeight,
		"yaw_error_weight":           p.YawErrorWeight,
		"steer_input_weight":         p.SteerInputWeight,
		"steer_rate_weight":          p.SteerRateWeight,
		"terminal_lat_error_weight":  p.TerminalLatErrorWeight,
		"goal_lat_error_weight":      p.GoalLatErrorWeight,
		"soft_collision_free_weight": p.SoftCollisionFreeWeight,
	} {
		if w < 0 {
			errs = multierr.Append(errs, errors.Errorf("%s must be non-negative", name))
		}
	}
	if p.MaxSteerRad <= 0 {
		errs = multierr.Append(errs, errors.New("max_steer_rad must be positive"))
	}
	if p.MaxSteerRateRadPerS <= 0 {
		errs = multierr.Append(errs, errors.New("max_steer_rate_rad_per_s must be positive"))
	}
	return errs
}

// ReplanCheckerParam tunes the ReplanChecker (spec.md §4.8, §6).
type ReplanCheckerParam struct {
	MaxPathShapeChangeDist float64 `json:"max_path_shape_change_dist"`
	MaxEgoMovingDist       float64 `json:"max_ego_moving_dist"`
	MaxDeltaTimeSec        float64 `json:"max_delta_time_sec"`
}

// DefaultReplanCheckerParam returns the spec.md §6 default values.
func DefaultReplanCheckerParam() ReplanCheckerParam {
	return ReplanCheckerParam{
		MaxPathShapeChangeDist: 0.5,
		MaxEgoMovingDist:       5.0,
		MaxDeltaTimeSec:        2.0,
	}
}

// Validate checks the replan checker parameters.
func (p ReplanCheckerParam) Validate() error {
	var errs error
	if p.MaxPathShapeChangeDist <= 0 {
		errs = multierr.Append(errs, errors.New("max_path_shape_change_dist must be positive"))
	}
	if p.MaxEgoMovingDist <= 0 {
		errs = multierr.Append(errs, errors.New("max_ego_moving_dist must be positive"))
	}
	if p.MaxDeltaTimeSec <= 0 {
		errs = multierr.Append(errs, errors.New("max_delta_time_sec must be positive"))
	}
	return errs
}

// PathOptimizerParam is the top-level construction-time configuration for
// PathOptimizer (spec.md §6).
type PathOptimizerParam struct {
	Trajectory    TrajectoryParam    `json:"trajectory"`
	EgoNearest    EgoNearestParam    `json:"ego_nearest"`
	MPT           MPTParam           `json:"mpt"`
	ReplanChecker ReplanCheckerParam `json:"replan_checker"`

	EnableOutsideDrivableAreaStop        bool    `json:"enable_outside_drivable_area_stop"`
	VehicleStopMarginOutsideDrivableArea float64 `json:"vehicle_stop_margin_outside_drivable_area"`
	EnableSkipOptimization               bool    `json:"enable_skip_optimization"`
	EnableResetPrevOptimization          bool    `json:"enable_reset_prev_optimization"`
}

// DefaultPathOptimizerParam returns the spec.md §6 default values.
func DefaultPathOptimizerParam() PathOptimizerParam {
	return PathOptimizerParam{
		Trajectory:                            DefaultTrajectoryParam(),
		EgoNearest:                            DefaultEgoNearestParam(),
		MPT:                                   DefaultMPTParam(),
		ReplanChecker:                         DefaultReplanCheckerParam(),
		EnableOutsideDrivableAreaStop:         true,
		VehicleStopMarginOutsideDrivableArea:  0.5,
		EnableSkipOptimization:                false,
		EnableResetPrevOptimization:           true,
	}
}

// Validate checks every nested parameter group, aggregating all errors
// found (spec.md §7.5).
func (p PathOptimizerParam) Validate() error {
	var errs error
	errs = multierr.Append(errs, p.Trajectory.Validate())
	errs = multierr.Append(errs, p.EgoNearest.Validate())
	errs = multierr.Append(errs, p.MPT.Validate())
	errs = multierr.Append(errs, p.ReplanChecker.Validate())
	if p.VehicleStopMarginOutsideDrivableArea < 0 {
		errs = multierr.Append(errs, errors.New("vehicle_stop_margin_outside_drivable_area must be non-negative"))
	}
	return errs
}

// Validate checks the vehicle info for the physical bounds spec.md §3
// requires (|max_steer_rad| <= pi/2).
func (v VehicleInfo) Validate() error {
	var errs error
	if v.WheelBase <= 0 {
		errs = multierr.Append(errs, errors.New("wheel_base must be positive"))
	}
	if v.MaxSteerRad <= 0 || v.MaxSteerRad > math.Pi/2 {
		errs = multierr.Append(errs, errors.New("max_steer_rad must be in (0, pi/2]"))
	}
	if v.MaxSteerRateRadPerS <= 0 {
		errs = multierr.Append(errs, errors.New("max_steer_rate_rad_per_s must be positive"))
	}
	if v.Width <= 0 {
		errs = multierr.Append(errs, errors.New("width must be positive"))
	}
	return errs
}
