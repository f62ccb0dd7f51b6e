package pathplan

import "gonum.org/v1/gonum/mat"

// stateEquationMatrix holds the block-structured horizon matrices produced
// by stateEquationGenerator.calcMatrix: X = B*U + W, where X is the whole
// horizon's state vector and U is the whole horizon's input vector
// (spec.md §4.3).
type stateEquationMatrix struct {
	B *mat.Dense
	W *mat.VecDense
}

// predict returns X = B*U + W for the given input vector.
func (m stateEquationMatrix) predict(u *mat.VecDense) *mat.VecDense {
	x := mat.NewVecDense(m.W.Len(), nil)
	x.MulVec(m.B, u)
	x.AddVec(x, m.W)
	return x
}

// stateEquationGenerator assembles the block-structured horizon matrices B
// and W from a sequence of reference points, using the vehicle model to
// step each one-arc-length transition (spec.md §4.3).
type stateEquationGenerator struct {
	model *vehicleModel
}

func newStateEquationGenerator(model *vehicleModel) *stateEquationGenerator {
	return &stateEquationGenerator{model: model}
}

func (g *stateEquationGenerator) dimX() int { return g.model.dimX() }
func (g *stateEquationGenerator) dimU() int { return g.model.dimU() }

// calcMatrix builds B and W such that X = B*U + W over the full horizon
// defined by refPoints. B[0:Dx] and W[0:Dx] (the first block, corresponding
// to the ego-tracked point) are left zero; the QP builder overrides W's
// first block with the ego error state before solving.
//
// The recurrence for i = 1..N-1, using Ad, Bd, Wd from ref point i-1:
//
//	W[i]      = Ad*W[i-1] + Wd
//	B[i, k]   = Ad*B[i-1, k]   for k < i-1
//	B[i, i-1] = Bd
//
// Curvature is passed to the vehicle model as 0.0 rather than the
// reference point's own curvature. This mirrors the source
// implementation's stability choice (spec.md §4.3, §9 Open Question):
// Ad is curvature-independent in this linearization, so the only effect
// of a nonzero curvature here would be through Bd/Wd, and propagating the
// true curvature through the whole horizon was found to destabilize the
// QP near sharp turns. With curvature 0, Wd is zero on every step, so W is
// all zero here, and ReferencePoint.Curvature is not read by the QP
// assembly; the reference geometry enters only through the reference
// poses the errors are measured against. See DESIGN.md.
func (g *stateEquationGenerator) calcMatrix(refPoints []ReferencePoint) stateEquationMatrix {
	const stabilizingCurvature = 0.0

	dx := g.dimX()
	du := g.dimU()
	nRef := len(refPoints)
	nx := nRef * dx
	nu := (nRef - 1) * du

	b := mat.NewDense(nx, nu, nil)
	w := mat.NewVecDense(nx, nil)

	for i := 1; i < nRef; i++ {
		ds := refPoints[i-1].DeltaArcLength
		ad, bd, wd := g.model.stepMatrices(stabilizingCurvature, ds)

		// W[i] = Ad*W[i-1] + Wd
		prevW0 := w.AtVec((i - 1) * dx)
		prevW1 := w.AtVec((i-1)*dx + 1)
		w.SetVec(i*dx, ad[0][0]*prevW0+ad[0][1]*prevW1+wd[0])
		w.SetVec(i*dx+1, ad[1][0]*prevW0+ad[1][1]*prevW1+wd[1])

		// B[i, k] = Ad * B[i-1, k] for k < i-1
		for k := 0; k < i-1; k++ {
			b0 := b.At((i-1)*dx, k*du)
			b1 := b.At((i-1)*dx+1, k*du)
			b.Set(i*dx, k*du, ad[0][0]*b0+ad[0][1]*b1)
			b.Set(i*dx+1, k*du, ad[1][0]*b0+ad[1][1]*b1)
		}
		// B[i, i-1] = Bd
		b.Set(i*dx, (i-1)*du, bd[0])
		b.Set(i*dx+1, (i-1)*du, bd[1])
	}

	return stateEquationMatrix{B: b, W: w}
}
