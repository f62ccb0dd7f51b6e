package qp

import (
	"math"
	"time"

	"github.com/pkg/errors"
	"gonum.org/v1/gonum/mat"
)

// DenseSolver is a dense, operator-splitting (ADMM) reference
// implementation of Solver, in the shape of OSQP's algorithm (spec.md
// §4.7, §9 Design Notes: "a dense reference solver is acceptable for
// tests"). It factors the KKT system once per structural change and
// reuses that factorization across ADMM iterations and across Solve
// calls with warm-started primal/dual vectors, the same discipline a
// real sparse indirect solver uses.
//
// It is not a drop-in replacement for a production sparse solver at
// horizon sizes much beyond a few hundred variables — the KKT
// factorization is O((n+m)^3) — but it implements the same interface a
// sparse solver would, so it is swappable (spec.md §9 Design Notes).
type DenseSolver struct {
	p, a       *mat.Dense
	q, l, u    []float64
	epsAbs     float64
	sigma, rho float64
	maxIter    int
	timeout    time.Duration

	warmX, warmY []float64

	lu       mat.LU
	factored bool
}

// NewDenseSolver returns a Solver with the given ADMM iteration cap and
// wall-clock budget. maxIter and timeout both bound how long Solve may
// run; whichever is hit first determines the returned status.
func NewDenseSolver(maxIter int, timeout time.Duration) *DenseSolver {
	if maxIter <= 0 {
		maxIter = 4000
	}
	return &DenseSolver{
		sigma:   1e-6,
		rho:     1.0,
		maxIter: maxIter,
		timeout: timeout,
	}
}

// Init implements Solver.
func (s *DenseSolver) Init(p, a CSC, q, l, u []float64, epsAbs float64) error {
	if err := validateDims(p, a, q, l, u); err != nil {
		return err
	}
	s.p = p.SymmetricDense()
	s.a = a.Dense()
	s.q = append([]float64(nil), q...)
	s.l = append([]float64(nil), l...)
	s.u = append([]float64(nil), u...)
	s.epsAbs = epsAbs
	s.factored = false
	s.warmX = nil
	s.warmY = nil
	return nil
}

func validateDims(p, a CSC, q, l, u []float64) error {
	if p.Rows != p.Cols {
		return errors.New("P must be square")
	}
	if len(q) != p.Cols {
		return errors.Errorf("q length %d does not match P cols %d", len(q), p.Cols)
	}
	if a.Cols != p.Cols {
		return errors.Errorf("A cols %d does not match P cols %d", a.Cols, p.Cols)
	}
	if len(l) != a.Rows || len(u) != a.Rows {
		return errors.New("l/u length must match A rows")
	}
	return nil
}

// UpdateP implements Solver.
func (s *DenseSolver) UpdateP(p CSC) error {
	if p.Rows != p.Cols || p.Cols != len(s.q) {
		return errors.New("UpdateP: dimension mismatch, call Init instead")
	}
	s.p = p.SymmetricDense()
	s.factored = false
	return nil
}

// UpdateQ implements Solver.
func (s *DenseSolver) UpdateQ(q []float64) error {
	if len(q) != len(s.q) {
		return errors.New("UpdateQ: dimension mismatch, call Init instead")
	}
	s.q = append([]float64(nil), q...)
	return nil
}

// UpdateA implements Solver.
func (s *DenseSolver) UpdateA(a CSC) error {
	if a.Cols != len(s.q) {
		return errors.New("UpdateA: dimension mismatch, call Init instead")
	}
	s.a = a.Dense()
	s.l = resize(s.l, a.Rows)
	s.u = resize(s.u, a.Rows)
	s.factored = false
	return nil
}

func resize(v []float64, n int) []float64 {
	if len(v) == n {
		return v
	}
	out := make([]float64, n)
	copy(out, v)
	return out
}

// UpdateBounds implements Solver.
func (s *DenseSolver) UpdateBounds(l, u []float64) error {
	if len(l) != len(s.l) || len(u) != len(s.u) {
		return errors.New("UpdateBounds: dimension mismatch, call Init instead")
	}
	s.l = append([]float64(nil), l...)
	s.u = append([]float64(nil), u...)
	return nil
}

// SetWarmStart implements Solver.
func (s *DenseSolver) SetWarmStart(primal, dual []float64) {
	if len(primal) == len(s.q) {
		s.warmX = append([]float64(nil), primal...)
	}
	if len(dual) == len(s.l) {
		s.warmY = append([]float64(nil), dual...)
	}
}

func (s *DenseSolver) factor() {
	n := len(s.q)
	m := len(s.l)
	size := n + m
	kkt := mat.NewDense(size, size, nil)
	for i := 0; i < n; i++ {
		for j := 0; j < n; j++ {
			kkt.Set(i, j, s.p.At(i, j))
		}
		kkt.Set(i, i, kkt.At(i, i)+s.sigma)
	}
	for i := 0; i < m; i++ {
		for j := 0; j < n; j++ {
			v := s.a.At(i, j)
			kkt.Set(n+i, j, v)
			kkt.Set(j, n+i, v)
		}
		kkt.Set(n+i, n+i, -1.0/s.rho)
	}
	s.lu.Factorize(kkt)
	s.factored = true
}

// Solve implements Solver.
func (s *DenseSolver) Solve() (Result, error) {
	n := len(s.q)
	m := len(s.l)
	if n == 0 {
		return Result{Status: StatusSolved}, nil
	}
	if !s.factored {
		s.factor()
	}

	start := time.Now()

	x := mat.NewVecDense(n, resize(s.warmX, n))
	z := mat.NewVecDense(m, nil)
	if m > 0 {
		z.MulVec(s.a, x)
	}
	y := mat.NewVecDense(m, resize(s.warmY, m))

	q := mat.NewVecDense(n, s.q)
	pMat := s.p

	rhs := mat.NewVecDense(n+m, nil)
	sol := mat.NewVecDense(n+m, nil)

	status := StatusMaxIterations
	iters := 0

	for iters = 0; iters < s.maxIter; iters++ {
		if s.timeout > 0 && time.Since(start) > s.timeout {
			status = StatusTimeLimit
			break
		}

		for i := 0; i < n; i++ {
			rhs.SetVec(i, s.sigma*x.AtVec(i)-q.AtVec(i))
		}
		for i := 0; i < m; i++ {
			rhs.SetVec(n+i, z.AtVec(i)-y.AtVec(i)/s.rho)
		}

		if err := s.lu.SolveVecTo(sol, false, rhs); err != nil {
			return Result{Status: StatusInfeasible}, errors.Wrap(err, "KKT solve failed")
		}

		xTilde := mat.NewVecDense(n, nil)
		xTilde.CopyVec(sol.SliceVec(0, n))
		nu := mat.NewVecDense(m, nil)
		if m > 0 {
			nu.CopyVec(sol.SliceVec(n, n+m))
		}

		zTilde := mat.NewVecDense(m, nil)
		for i := 0; i < m; i++ {
			zTilde.SetVec(i, z.AtVec(i)+(nu.AtVec(i)-y.AtVec(i))/s.rho)
		}

		xNew := xTilde

		zNew := mat.NewVecDense(m, nil)
		for i := 0; i < m; i++ {
			v := zTilde.AtVec(i) + y.AtVec(i)/s.rho
			zNew.SetVec(i, clip(v, s.l[i], s.u[i]))
		}

		yNew := mat.NewVecDense(m, nil)
		for i := 0; i < m; i++ {
			yNew.SetVec(i, y.AtVec(i)+s.rho*(zTilde.AtVec(i)-zNew.AtVec(i)))
		}

		primalResidual := 0.0
		if m > 0 {
			ax := mat.NewVecDense(m, nil)
			ax.MulVec(s.a, xNew)
			for i := 0; i < m; i++ {
				primalResidual = math.Max(primalResidual, math.Abs(ax.AtVec(i)-zNew.AtVec(i)))
			}
		}

		dualResidual := 0.0
		{
			px := mat.NewVecDense(n, nil)
			px.MulVec(pMat, xNew)
			aty := mat.NewVecDense(n, nil)
			if m > 0 {
				aty.MulVec(s.a.T(), yNew)
			}
			for i := 0; i < n; i++ {
				dualResidual = math.Max(dualResidual, math.Abs(px.AtVec(i)+s.q[i]+aty.AtVec(i)))
			}
		}

		x, z, y = xNew, zNew, yNew

		if primalResidual < s.epsAbs && dualResidual < s.epsAbs {
			status = StatusSolved
			iters++
			break
		}
	}

	primal := make([]float64, n)
	for i := range primal {
		primal[i] = x.AtVec(i)
	}
	dual := make([]float64, m)
	for i := range dual {
		dual[i] = y.AtVec(i)
	}

	return Result{
		Primal:    primal,
		Dual:      dual,
		Status:    status,
		Iters:     iters,
		SolveTime: float64(time.Since(start)) / float64(time.Millisecond),
	}, nil
}

func clip(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
