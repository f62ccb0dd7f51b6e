package qp

// Status reports how a Solve call terminated.
type Status int

const (
	// StatusSolved indicates the solver converged within eps_abs.
	StatusSolved Status = iota
	// StatusMaxIterations indicates the iteration budget was exhausted
	// without reaching the convergence tolerance.
	StatusMaxIterations
	// StatusTimeLimit indicates the configured time budget elapsed before
	// convergence (spec.md §5, max_optimization_time_ms).
	StatusTimeLimit
	// StatusInfeasible indicates the primal problem has no feasible point.
	StatusInfeasible
)

func (s Status) String() string {
	switch s {
	case StatusSolved:
		return "solved"
	case StatusMaxIterations:
		return "max_iterations"
	case StatusTimeLimit:
		return "time_limit"
	case StatusInfeasible:
		return "infeasible"
	default:
		return "unknown"
	}
}

// Result is the outcome of one Solve call.
type Result struct {
	Primal    []float64
	Dual      []float64
	Status    Status
	Iters     int
	SolveTime float64 // milliseconds
}

// Solver is a thin abstraction over a first-order sparse QP solver in the
// operator-splitting style (spec.md §4.7):
//
//	minimize   1/2 x'Px + q'x
//	subject to l <= Ax <= u
//
// Implementations are stateful: after Init, only non-structural changes
// (values, bounds, q) should flow through the Update* methods; if the
// sparsity pattern of P or A changes, callers must call Init again.
type Solver interface {
	Init(p, a CSC, q, l, u []float64, epsAbs float64) error

	UpdateP(p CSC) error
	UpdateQ(q []float64) error
	UpdateA(a CSC) error
	UpdateBounds(l, u []float64) error

	// SetWarmStart seeds the next Solve call's initial primal/dual guess.
	// dual may be nil to leave the dual guess at its previous value.
	SetWarmStart(primal, dual []float64)

	Solve() (Result, error)
}
