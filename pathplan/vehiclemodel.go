package pathplan

import "math"

// vehicleModel is the linearized discrete kinematic bicycle model used to
// build each step of the horizon's state equation (spec.md §4.2). The
// model is linearized about a reference curvature and produces the
// discrete-time triple (Ad, Bd, Wd) for one arc-length step ds:
//
//	x_{k+1} = Ad*x_k + Bd*u_k + Wd
//
// where x = [lateral_error, yaw_error] and u = [steering_angle].
type vehicleModel struct {
	wheelBase  float64
	steerLimit float64
}

func newVehicleModel(wheelBase, steerLimit float64) *vehicleModel {
	return &vehicleModel{wheelBase: wheelBase, steerLimit: steerLimit}
}

func (m *vehicleModel) dimX() int { return 2 }
func (m *vehicleModel) dimU() int { return 1 }

// stepMatrices computes Ad (2x2), Bd (2x1) and Wd (2x1) for one arc-length
// step ds at reference curvature kappa (spec.md §4.2).
//
// Ad is independent of curvature in this small-error linearization;
// curvature enters only through Bd and Wd. Wd's steering term uses the
// curvature-implied wheel angle clamped to the vehicle's steering
// envelope, which keeps Wd bounded when the requested curvature exceeds
// what the vehicle can physically steer to.
func (m *vehicleModel) stepMatrices(kappa, ds float64) (ad [2][2]float64, bd [2]float64, wd [2]float64) {
	deltaR := math.Atan(m.wheelBase * kappa)
	croppedDeltaR := clamp(deltaR, -m.steerLimit, m.steerLimit)

	ad = [2][2]float64{
		{1, ds},
		{0, 1},
	}

	cosDeltaR := math.Cos(deltaR)
	bd = [2]float64{
		0,
		ds / m.wheelBase / (cosDeltaR * cosDeltaR),
	}

	tanCropped := math.Tan(croppedDeltaR)
	cosCropped := math.Cos(croppedDeltaR)
	wd = [2]float64{
		0,
		-ds*kappa + ds/m.wheelBase*(tanCropped-croppedDeltaR/(cosCropped*cosCropped)),
	}

	return ad, bd, wd
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// frontWheelAngle returns the front-wheel steering angle atan(L*kappa) for
// the vehicle's wheelbase, used when recomputing front_wheel_angle for the
// output trajectory from optimized geometry (spec.md §6).
func (m *vehicleModel) frontWheelAngle(kappa float64) float64 {
	return math.Atan(m.wheelBase * kappa)
}
