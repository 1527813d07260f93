package controls

import (
	"github.com/san-kum/dynopt/internal/dynamo"
	"gonum.org/v1/gonum/mat"
)

// Model is a control parametrization.
type Model interface {
	// NW is the dimension of the instantaneous control w.
	NW() int
	// NU is the dimension of the parameter vector u.
	NU() int

	CreateData() *Data

	// Calc evaluates w(t) from u and stores the basis coefficients in data.
	Calc(data *Data, t float64, u mat.Vector) error
	// CalcDiff fills data.DwDu from the coefficients stored by Calc.
	CalcDiff(data *Data, t float64, u mat.Vector) error
	// Params writes into data.U a parameter vector reproducing w.
	Params(data *Data, t float64, w mat.Vector) error
	// ConvertBounds maps bounds on w to bounds on u.
	ConvertBounds(wLB, wUB mat.Vector, uLB, uUB *mat.VecDense) error

	// MultiplyByJacobian combines A·dw/du into out (rows(A) x nu).
	MultiplyByJacobian(data *Data, A mat.Matrix, out *mat.Dense, op dynamo.AssignmentOp) error
	// MultiplyJacobianTransposeBy combines (dw/du)ᵀ·A into out (nu x cols(A)).
	MultiplyJacobianTransposeBy(data *Data, A mat.Matrix, out *mat.Dense, op dynamo.AssignmentOp) error
}

// Data is per-time-step scratch for a control parametrization.
type Data struct {
	// C holds one basis coefficient per control point.
	C    []float64
	W    *mat.VecDense
	U    *mat.VecDense
	DwDu *mat.Dense
}

func newData(nw, nu, points int) *Data {
	return &Data{
		C:    make([]float64, points),
		W:    mat.NewVecDense(nw, nil),
		U:    mat.NewVecDense(nu, nil),
		DwDu: mat.NewDense(nw, nu, nil),
	}
}

// basis is the shared machinery of the polynomial parametrizations: u is
// split into len(C) blocks of nw entries, block k weighted by C[k].
type basis struct {
	nw     int
	points int
}

func newBasis(nw, points int) (basis, error) {
	if nw < 1 {
		return basis{}, dynamo.Invalid("nw", "must be at least 1, got %d", nw)
	}
	return basis{nw: nw, points: points}, nil
}

func (b basis) NW() int { return b.nw }
func (b basis) NU() int { return b.nw * b.points }

func (b basis) CreateData() *Data {
	return newData(b.nw, b.NU(), b.points)
}

func (b basis) checkData(data *Data) error {
	if data == nil || data.W == nil || data.U == nil || data.DwDu == nil ||
		len(data.C) != b.points || data.W.Len() != b.nw || data.U.Len() != b.NU() {
		return dynamo.Invalid("data", "was not created by a parametrization with nw=%d, nu=%d", b.nw, b.NU())
	}
	return nil
}

// combine sets w = Σ C[k]·p_k.
func (b basis) combine(data *Data, u mat.Vector) {
	for i := 0; i < b.nw; i++ {
		w := 0.0
		for k, c := range data.C {
			w += c * u.AtVec(k*b.nw+i)
		}
		data.W.SetVec(i, w)
	}
}

func (b basis) CalcDiff(data *Data, _ float64, _ mat.Vector) error {
	if err := b.checkData(data); err != nil {
		return err
	}
	data.DwDu.Zero()
	for k, c := range data.C {
		for i := 0; i < b.nw; i++ {
			data.DwDu.Set(i, k*b.nw+i, c)
		}
	}
	return nil
}

func (b basis) Params(data *Data, _ float64, w mat.Vector) error {
	if err := b.checkData(data); err != nil {
		return err
	}
	if err := dynamo.CheckVec("w", w, b.nw); err != nil {
		return err
	}
	for k := 0; k < b.points; k++ {
		data.U.SliceVec(k*b.nw, (k+1)*b.nw).(*mat.VecDense).CopyVec(w)
	}
	return nil
}

func (b basis) ConvertBounds(wLB, wUB mat.Vector, uLB, uUB *mat.VecDense) error {
	if err := dynamo.CheckVec("u_lb", uLB, b.NU()); err != nil {
		return err
	}
	if err := dynamo.CheckVec("u_ub", uUB, b.NU()); err != nil {
		return err
	}
	if err := dynamo.CheckVec("w_lb", wLB, b.nw); err != nil {
		return err
	}
	if err := dynamo.CheckVec("w_ub", wUB, b.nw); err != nil {
		return err
	}
	for k := 0; k < b.points; k++ {
		uLB.SliceVec(k*b.nw, (k+1)*b.nw).(*mat.VecDense).CopyVec(wLB)
		uUB.SliceVec(k*b.nw, (k+1)*b.nw).(*mat.VecDense).CopyVec(wUB)
	}
	return nil
}

func (b basis) MultiplyByJacobian(data *Data, A mat.Matrix, out *mat.Dense, op dynamo.AssignmentOp) error {
	if err := dynamo.CheckOp(op); err != nil {
		return err
	}
	if err := b.checkData(data); err != nil {
		return err
	}
	if A == nil || out == nil {
		return dynamo.Invalid("A and out", "must not be nil")
	}
	ar, ac := A.Dims()
	or, oc := out.Dims()
	if ar != or || ac != b.nw || oc != b.NU() {
		return dynamo.Invalid("A and out", "have wrong dimensions (%d,%d and %d,%d)", ar, ac, or, oc)
	}
	for k, c := range data.C {
		blk := out.Slice(0, or, k*b.nw, (k+1)*b.nw).(*mat.Dense)
		if err := dynamo.Assign(blk, c, A, op); err != nil {
			return err
		}
	}
	return nil
}

func (b basis) MultiplyJacobianTransposeBy(data *Data, A mat.Matrix, out *mat.Dense, op dynamo.AssignmentOp) error {
	if err := dynamo.CheckOp(op); err != nil {
		return err
	}
	if err := b.checkData(data); err != nil {
		return err
	}
	if A == nil || out == nil {
		return dynamo.Invalid("A and out", "must not be nil")
	}
	ar, ac := A.Dims()
	or, oc := out.Dims()
	if ac != oc || ar != b.nw || or != b.NU() {
		return dynamo.Invalid("A and out", "have wrong dimensions (%d,%d and %d,%d)", ar, ac, or, oc)
	}
	for k, c := range data.C {
		blk := out.Slice(k*b.nw, (k+1)*b.nw, 0, oc).(*mat.Dense)
		if err := dynamo.Assign(blk, c, A, op); err != nil {
			return err
		}
	}
	return nil
}
