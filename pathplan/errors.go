package pathplan

import "github.com/pkg/errors"

// NewInvalidInputError reports the input-invalid error kind (spec.md §7.1):
// fewer than 2 path points, non-monotone arc length, or empty bounds.
func NewInvalidInputError(reason string) error {
	return errors.Errorf("invalid path optimizer input: %s", reason)
}

// NewInvalidConfigError reports the configuration-invalid error kind
// (spec.md §7.5): a constructor argument that violates §3's invariants.
func NewInvalidConfigError(reason string) error {
	return errors.Errorf("invalid path optimizer configuration: %s", reason)
}

// NewSolverFailedError reports the solver-failure error kind (spec.md §7.3).
func NewSolverFailedError(status string) error {
	return errors.Errorf("QP solver did not converge: %s", status)
}
