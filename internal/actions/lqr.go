package actions

import (
	"fmt"
	"math/rand"

	"gonum.org/v1/gonum/mat"

	"github.com/san-kum/dynopt/internal/dynamo"
)

// LQR is a linear-quadratic action model:
//
//	xnext = A x + B u + f
//	cost  = ½ xᵀQx + ½ uᵀRu + xᵀNu + qᵀx + rᵀu
//
// The stacked Hessian [[Q, N], [Nᵀ, R]] is kept symmetric positive
// semi-definite; SetLQR rejects anything else.
type LQR struct {
	nx, nu    int
	driftFree bool

	a, b       *mat.Dense
	qm, rm, nm *mat.Dense
	f, q, r    *mat.VecDense
}

// LQRData carries the scratch vectors LQR needs on top of CommonData.
type LQRData struct {
	CommonData

	QxTmp *mat.VecDense
	RuTmp *mat.VecDense
}

// NewLQR builds an LQR with drift f and linear cost terms q, r.
func NewLQR(A, B, Q, R, N mat.Matrix, f, q, r mat.Vector) (*LQR, error) {
	m, err := newLQRShape(A, B)
	if err != nil {
		return nil, err
	}
	if err := m.SetLQR(A, B, Q, R, N, f, q, r); err != nil {
		return nil, err
	}
	return m, nil
}

// NewDriftFreeLQR builds an LQR with f, q and r fixed at zero.
func NewDriftFreeLQR(A, B, Q, R, N mat.Matrix) (*LQR, error) {
	m, err := newLQRShape(A, B)
	if err != nil {
		return nil, err
	}
	m.driftFree = true
	zx := mat.NewVecDense(m.nx, nil)
	if err := m.SetLQR(A, B, Q, R, N, zx, zx, mat.NewVecDense(m.nu, nil)); err != nil {
		return nil, err
	}
	return m, nil
}

// NewDefaultLQR builds A=I, B=I, Q=I, R=I, N=0, q=1, r=1 and f=1 unless
// driftFree is set.
func NewDefaultLQR(nx, nu int, driftFree bool) (*LQR, error) {
	if err := checkDims(nx, nu); err != nil {
		return nil, err
	}
	f := mat.NewVecDense(nx, nil)
	if !driftFree {
		for i := 0; i < nx; i++ {
			f.SetVec(i, 1)
		}
	}
	return &LQR{
		nx:        nx,
		nu:        nu,
		driftFree: driftFree,
		a:         dynamo.Identity(nx, nx),
		b:         dynamo.Identity(nx, nu),
		qm:        dynamo.Identity(nx, nx),
		rm:        dynamo.Identity(nu, nu),
		nm:        mat.NewDense(nx, nu, nil),
		f:         f,
		q:         ones(nx),
		r:         ones(nu),
	}, nil
}

// RandomLQR draws A, B, f, q, r uniformly from [-1, 1] and builds the cost
// Hessian as H_tmpᵀ·H_tmp, which is positive semi-definite by construction.
func RandomLQR(rng *rand.Rand, nx, nu int) (*LQR, error) {
	if rng == nil {
		return nil, dynamo.Invalid("rng", "must not be nil")
	}
	if err := checkDims(nx, nu); err != nil {
		return nil, err
	}
	A := uniformDense(rng, nx, nx)
	B := uniformDense(rng, nx, nu)
	Htmp := uniformDense(rng, nx+nu, nx+nu)
	var H mat.Dense
	H.Mul(Htmp.T(), Htmp)

	Q := H.Slice(0, nx, 0, nx)
	R := H.Slice(nx, nx+nu, nx, nx+nu)
	N := H.Slice(0, nx, nx, nx+nu)

	return NewLQR(A, B, Q, R, N, uniformVec(rng, nx), uniformVec(rng, nx), uniformVec(rng, nu))
}

func newLQRShape(A, B mat.Matrix) (*LQR, error) {
	if A == nil || B == nil {
		return nil, dynamo.Invalid("A and B", "must not be nil")
	}
	nx, _ := A.Dims()
	_, nu := B.Dims()
	if err := checkDims(nx, nu); err != nil {
		return nil, err
	}
	return &LQR{nx: nx, nu: nu}, nil
}

// SetLQR validates and replaces every matrix of the model. Nothing is
// replaced unless all inputs pass.
func (m *LQR) SetLQR(A, B, Q, R, N mat.Matrix, f, q, r mat.Vector) error {
	nx, nu := m.nx, m.nu
	if err := dynamo.CheckMat("A", A, nx, nx); err != nil {
		return err
	}
	if err := dynamo.CheckMat("B", B, nx, nu); err != nil {
		return err
	}
	if err := dynamo.CheckMat("Q", Q, nx, nx); err != nil {
		return err
	}
	if err := dynamo.CheckMat("R", R, nu, nu); err != nil {
		return err
	}
	if err := dynamo.CheckMat("N", N, nx, nu); err != nil {
		return err
	}
	if err := dynamo.CheckVec("f", f, nx); err != nil {
		return err
	}
	if err := dynamo.CheckVec("q", q, nx); err != nil {
		return err
	}
	if err := dynamo.CheckVec("r", r, nu); err != nil {
		return err
	}
	if m.driftFree && mat.Norm(f, 2) != 0 {
		return dynamo.Invalid("f", "must be zero for a drift-free model")
	}
	if err := dynamo.CheckPSD("[Q, N; Nᵀ, R]", dynamo.StackHessian(Q, R, N)); err != nil {
		return err
	}

	m.a = mat.DenseCopyOf(A)
	m.b = mat.DenseCopyOf(B)
	m.qm = mat.DenseCopyOf(Q)
	m.rm = mat.DenseCopyOf(R)
	m.nm = mat.DenseCopyOf(N)
	m.f = mat.VecDenseCopyOf(f)
	m.q = mat.VecDenseCopyOf(q)
	m.r = mat.VecDenseCopyOf(r)
	return nil
}

func (m *LQR) NX() int { return m.nx }
func (m *LQR) NU() int { return m.nu }

func (m *LQR) DriftFree() bool { return m.driftFree }

func (m *LQR) A() mat.Matrix    { return m.a }
func (m *LQR) B() mat.Matrix    { return m.b }
func (m *LQR) Q() mat.Matrix    { return m.qm }
func (m *LQR) R() mat.Matrix    { return m.rm }
func (m *LQR) N() mat.Matrix    { return m.nm }
func (m *LQR) F() mat.Vector    { return m.f }
func (m *LQR) QVec() mat.Vector { return m.q }
func (m *LQR) RVec() mat.Vector { return m.r }

func (m *LQR) String() string {
	return fmt.Sprintf("ActionModelLQR {nx=%d, nu=%d, drift_free=%t}", m.nx, m.nu, m.driftFree)
}

func (m *LQR) CreateData() Data {
	return &LQRData{
		CommonData: NewCommonData(m.nx, m.nu),
		QxTmp:      mat.NewVecDense(m.nx, nil),
		RuTmp:      mat.NewVecDense(m.nu, nil),
	}
}

func (m *LQR) CheckData(data Data) bool {
	_, ok := data.(*LQRData)
	return ok
}

func (m *LQR) cast(data Data) (*LQRData, error) {
	d, ok := data.(*LQRData)
	if !ok {
		return nil, dynamo.Invalid("data", "was not created by an LQR model (got %T)", data)
	}
	if err := checkCommon(d, m.nx, m.nu); err != nil {
		return nil, err
	}
	return d, nil
}

func (m *LQR) Calc(data Data, x, u mat.Vector) error {
	if err := dynamo.CheckVec("x", x, m.nx); err != nil {
		return err
	}
	if err := dynamo.CheckVec("u", u, m.nu); err != nil {
		return err
	}
	d, err := m.cast(data)
	if err != nil {
		return err
	}

	d.Xnext.MulVec(m.a, x)
	d.QxTmp.MulVec(m.b, u)
	d.Xnext.AddVec(d.Xnext, d.QxTmp)
	d.Xnext.AddVec(d.Xnext, m.f)

	d.QxTmp.MulVec(m.qm, x)
	d.Cost = 0.5 * mat.Dot(x, d.QxTmp)
	d.RuTmp.MulVec(m.rm, u)
	d.Cost += 0.5 * mat.Dot(u, d.RuTmp)
	d.QxTmp.MulVec(m.nm, u)
	d.Cost += mat.Dot(x, d.QxTmp)
	d.Cost += mat.Dot(m.q, x)
	d.Cost += mat.Dot(m.r, u)
	return nil
}

func (m *LQR) CalcTerminal(data Data, x mat.Vector) error {
	if err := dynamo.CheckVec("x", x, m.nx); err != nil {
		return err
	}
	d, err := m.cast(data)
	if err != nil {
		return err
	}

	d.Xnext.CopyVec(x)
	d.QxTmp.MulVec(m.qm, x)
	d.Cost = 0.5 * mat.Dot(x, d.QxTmp)
	d.Cost += mat.Dot(m.q, x)
	return nil
}

func (m *LQR) CalcDiff(data Data, x, u mat.Vector) error {
	if err := dynamo.CheckVec("x", x, m.nx); err != nil {
		return err
	}
	if err := dynamo.CheckVec("u", u, m.nu); err != nil {
		return err
	}
	d, err := m.cast(data)
	if err != nil {
		return err
	}

	d.Fx.Copy(m.a)
	d.Fu.Copy(m.b)
	d.Lxx.Copy(m.qm)
	d.Luu.Copy(m.rm)
	d.Lxu.Copy(m.nm)

	d.Lx.MulVec(m.qm, x)
	d.QxTmp.MulVec(m.nm, u)
	d.Lx.AddVec(d.Lx, d.QxTmp)
	d.Lx.AddVec(d.Lx, m.q)

	d.Lu.MulVec(m.nm.T(), x)
	d.RuTmp.MulVec(m.rm, u)
	d.Lu.AddVec(d.Lu, d.RuTmp)
	d.Lu.AddVec(d.Lu, m.r)
	return nil
}

func (m *LQR) CalcDiffTerminal(data Data, x mat.Vector) error {
	if err := dynamo.CheckVec("x", x, m.nx); err != nil {
		return err
	}
	d, err := m.cast(data)
	if err != nil {
		return err
	}

	d.Lxx.Copy(m.qm)
	d.Lx.MulVec(m.qm, x)
	d.Lx.AddVec(d.Lx, m.q)
	return nil
}

func ones(n int) *mat.VecDense {
	v := mat.NewVecDense(n, nil)
	for i := 0; i < n; i++ {
		v.SetVec(i, 1)
	}
	return v
}

func uniformDense(rng *rand.Rand, r, c int) *mat.Dense {
	data := make([]float64, r*c)
	for i := range data {
		data[i] = 2*rng.Float64() - 1
	}
	return mat.NewDense(r, c, data)
}

func uniformVec(rng *rand.Rand, n int) *mat.VecDense {
	data := make([]float64, n)
	for i := range data {
		data[i] = 2*rng.Float64() - 1
	}
	return mat.NewVecDense(n, data)
}

var _ Model = (*LQR)(nil)
