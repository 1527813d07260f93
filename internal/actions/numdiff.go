package actions

import (
	"fmt"

	"gonum.org/v1/gonum/diff/fd"
	"gonum.org/v1/gonum/mat"

	"github.com/san-kum/dynopt/internal/dynamo"
)

// DefaultHessianStep is the finite-difference step used for cost Hessians.
const DefaultHessianStep = 1e-4

// NumDiff wraps an action model and computes its derivatives with central
// finite differences. Calc is forwarded unchanged.
type NumDiff struct {
	model       Model
	hessianStep float64
}

// NumDiffData keeps the wrapped model's data for the nominal evaluation and a
// second one for perturbed evaluations.
type NumDiffData struct {
	CommonData

	Inner   Data
	scratch Data
	z       []float64
	xs, us  *mat.VecDense
}

func NewNumDiff(model Model) *NumDiff {
	return &NumDiff{model: model, hessianStep: DefaultHessianStep}
}

func (m *NumDiff) Model() Model { return m.model }

func (m *NumDiff) NX() int { return m.model.NX() }
func (m *NumDiff) NU() int { return m.model.NU() }

func (m *NumDiff) String() string {
	return fmt.Sprintf("ActionModelNumDiff {%v}", m.model)
}

func (m *NumDiff) CreateData() Data {
	nx, nu := m.NX(), m.NU()
	return &NumDiffData{
		CommonData: NewCommonData(nx, nu),
		Inner:      m.model.CreateData(),
		scratch:    m.model.CreateData(),
		z:          make([]float64, nx+nu),
		xs:         mat.NewVecDense(nx, nil),
		us:         mat.NewVecDense(nu, nil),
	}
}

func (m *NumDiff) CheckData(data Data) bool {
	d, ok := data.(*NumDiffData)
	return ok && m.model.CheckData(d.Inner)
}

func (m *NumDiff) cast(data Data) (*NumDiffData, error) {
	d, ok := data.(*NumDiffData)
	if !ok || !m.model.CheckData(d.Inner) {
		return nil, dynamo.Invalid("data", "was not created by a numdiff model (got %T)", data)
	}
	if err := checkCommon(d, m.NX(), m.NU()); err != nil {
		return nil, err
	}
	return d, nil
}

func (m *NumDiff) Calc(data Data, x, u mat.Vector) error {
	d, err := m.cast(data)
	if err != nil {
		return err
	}
	if err := m.model.Calc(d.Inner, x, u); err != nil {
		return err
	}
	d.Xnext.CopyVec(d.Inner.Common().Xnext)
	d.Cost = d.Inner.Common().Cost
	return nil
}

func (m *NumDiff) CalcTerminal(data Data, x mat.Vector) error {
	d, err := m.cast(data)
	if err != nil {
		return err
	}
	if err := m.model.CalcTerminal(d.Inner, x); err != nil {
		return err
	}
	d.Xnext.CopyVec(d.Inner.Common().Xnext)
	d.Cost = d.Inner.Common().Cost
	return nil
}

func (m *NumDiff) CalcDiff(data Data, x, u mat.Vector) error {
	nx, nu := m.NX(), m.NU()
	if err := dynamo.CheckVec("x", x, nx); err != nil {
		return err
	}
	if err := dynamo.CheckVec("u", u, nu); err != nil {
		return err
	}
	d, err := m.cast(data)
	if err != nil {
		return err
	}

	for i := 0; i < nx; i++ {
		d.z[i] = x.AtVec(i)
	}
	for i := 0; i < nu; i++ {
		d.z[nx+i] = u.AtVec(i)
	}

	var evalErr error
	eval := func(z []float64) Data {
		copy(d.xs.RawVector().Data, z[:nx])
		copy(d.us.RawVector().Data, z[nx:])
		if err := m.model.Calc(d.scratch, d.xs, d.us); err != nil && evalErr == nil {
			evalErr = err
		}
		return d.scratch
	}

	J := mat.NewDense(nx, nx+nu, nil)
	fd.Jacobian(J, func(y, z []float64) {
		copy(y, eval(z).Common().Xnext.RawVector().Data)
	}, d.z, &fd.JacobianSettings{Formula: fd.Central})

	cost := func(z []float64) float64 { return eval(z).Common().Cost }
	grad := fd.Gradient(nil, cost, d.z, &fd.Settings{Formula: fd.Central})
	H := mat.NewSymDense(nx+nu, nil)
	fd.Hessian(H, cost, d.z, &fd.Settings{Formula: fd.Central, Step: m.hessianStep})
	if evalErr != nil {
		return evalErr
	}

	d.Fx.Copy(J.Slice(0, nx, 0, nx))
	d.Fu.Copy(J.Slice(0, nx, nx, nx+nu))
	d.Lx.CopyVec(mat.NewVecDense(nx, grad[:nx]))
	d.Lu.CopyVec(mat.NewVecDense(nu, grad[nx:]))
	d.Lxx.Copy(H.SliceSym(0, nx))
	d.Luu.Copy(H.SliceSym(nx, nx+nu))
	d.Lxu.Copy(mat.DenseCopyOf(H).Slice(0, nx, nx, nx+nu))
	return nil
}

func (m *NumDiff) CalcDiffTerminal(data Data, x mat.Vector) error {
	nx := m.NX()
	if err := dynamo.CheckVec("x", x, nx); err != nil {
		return err
	}
	d, err := m.cast(data)
	if err != nil {
		return err
	}

	z := make([]float64, nx)
	for i := range z {
		z[i] = x.AtVec(i)
	}

	var evalErr error
	cost := func(z []float64) float64 {
		copy(d.xs.RawVector().Data, z)
		if err := m.model.CalcTerminal(d.scratch, d.xs); err != nil && evalErr == nil {
			evalErr = err
		}
		return d.scratch.Common().Cost
	}
	grad := fd.Gradient(nil, cost, z, &fd.Settings{Formula: fd.Central})
	H := mat.NewSymDense(nx, nil)
	fd.Hessian(H, cost, z, &fd.Settings{Formula: fd.Central, Step: m.hessianStep})
	if evalErr != nil {
		return evalErr
	}

	d.Lx.CopyVec(mat.NewVecDense(nx, grad))
	d.Lxx.Copy(H)
	return nil
}

var _ Model = (*NumDiff)(nil)
