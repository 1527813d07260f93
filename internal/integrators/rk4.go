package integrators

import (
	"fmt"

	"gonum.org/v1/gonum/mat"

	"github.com/san-kum/dynopt/internal/actions"
	"github.com/san-kum/dynopt/internal/controls"
	"github.com/san-kum/dynopt/internal/dynamo"
	"github.com/san-kum/dynopt/internal/models"
)

// Stage times (as fractions of dt) and weights of the classic RK4 tableau.
var (
	rk4C = [4]float64{0, 0.5, 0.5, 1}
	rk4B = [4]float64{1, 2, 2, 1}
)

// RK4 integrates a differential model with one classic fourth-order
// Runge-Kutta step. Each stage evaluates the control parametrization at its
// own stage time, so a PolyTwoRK4 parametrization sees t = 0, ½, ½, 1.
//
// Cost Hessians are the Gauss-Newton approximation through the stage
// sensitivities, which is exact when the dynamics are linear.
type RK4 struct {
	base
}

// RK4Data is the data of an RK4 model. Stage i uses Diff[i] and Control[i].
type RK4Data struct {
	actions.CommonData

	Diff    [4]*models.Data
	Control [4]*controls.Data
	// Y holds the stage states.
	Y [4]*mat.VecDense

	dyDx [4]*mat.Dense // nx x nx
	dyDu [4]*mat.Dense // nx x nu
	dkDx [4]*mat.Dense // nx x nx
	dkDu [4]*mat.Dense // nx x nu

	lu   *mat.Dense // view of Lu
	tmpX *mat.VecDense
	tmpU *mat.VecDense
	lw   *mat.Dense // nw x 1
	xx   *mat.Dense // nx x nx
	xxB  *mat.Dense // nx x nx
	xu   *mat.Dense // nx x nu
	xuB  *mat.Dense // nx x nu
	lxwJ *mat.Dense // nx x nu
	uu   *mat.Dense // nu x nu
	lwwJ *mat.Dense // nw x nu
}

func NewRK4(diff models.Differential, ctrl controls.Model, dt float64) (*RK4, error) {
	b, err := newBase(diff, ctrl, dt)
	if err != nil {
		return nil, err
	}
	return &RK4{base: b}, nil
}

func (m *RK4) String() string {
	return fmt.Sprintf("IntegratedActionModelRK4 {nx=%d, nu=%d, dt=%g}", m.NX(), m.NU(), m.dt)
}

func (m *RK4) CreateData() actions.Data {
	nx, nu, nw := m.NX(), m.NU(), m.ctrl.NW()
	d := &RK4Data{
		CommonData: actions.NewCommonData(nx, nu),
		tmpX:       mat.NewVecDense(nx, nil),
		tmpU:       mat.NewVecDense(nu, nil),
		lw:         mat.NewDense(nw, 1, nil),
		xx:         mat.NewDense(nx, nx, nil),
		xxB:        mat.NewDense(nx, nx, nil),
		xu:         mat.NewDense(nx, nu, nil),
		xuB:        mat.NewDense(nx, nu, nil),
		lxwJ:       mat.NewDense(nx, nu, nil),
		uu:         mat.NewDense(nu, nu, nil),
		lwwJ:       mat.NewDense(nw, nu, nil),
	}
	for i := range d.Diff {
		d.Diff[i] = m.diff.CreateData()
		d.Control[i] = m.ctrl.CreateData()
		d.Y[i] = mat.NewVecDense(nx, nil)
		d.dyDx[i] = mat.NewDense(nx, nx, nil)
		d.dyDu[i] = mat.NewDense(nx, nu, nil)
		d.dkDx[i] = mat.NewDense(nx, nx, nil)
		d.dkDu[i] = mat.NewDense(nx, nu, nil)
	}
	d.lu = column(d.Lu)
	return d
}

func (m *RK4) CheckData(data actions.Data) bool {
	_, ok := data.(*RK4Data)
	return ok
}

func (m *RK4) cast(data actions.Data) (*RK4Data, error) {
	d, ok := data.(*RK4Data)
	if !ok || d == nil {
		return nil, dynamo.Invalid("data", "was not created by an RK4 model (got %T)", data)
	}
	if r, c := d.Fu.Dims(); r != m.NX() || c != m.NU() {
		return nil, dynamo.Invalid("data", "has wrong dimension (nx=%d, nu=%d, it should be nx=%d, nu=%d)", r, c, m.NX(), m.NU())
	}
	return d, nil
}

func (m *RK4) Calc(data actions.Data, x, u mat.Vector) error {
	d, err := m.cast(data)
	if err != nil {
		return err
	}
	if err := m.checkXU(x, u); err != nil {
		return err
	}
	for i := range rk4C {
		if i == 0 {
			d.Y[0].CopyVec(x)
		} else {
			d.Y[i].AddScaledVec(x, rk4C[i]*m.dt, d.Diff[i-1].Xdot)
		}
		if err := m.ctrl.Calc(d.Control[i], rk4C[i], u); err != nil {
			return err
		}
		if err := m.diff.Calc(d.Diff[i], d.Y[i], d.Control[i].W); err != nil {
			return err
		}
	}

	h := m.dt / 6
	d.Xnext.CopyVec(x)
	d.Cost = 0
	for i, b := range rk4B {
		d.Xnext.AddScaledVec(d.Xnext, h*b, d.Diff[i].Xdot)
		d.Cost += h * b * d.Diff[i].Cost
	}
	return nil
}

func (m *RK4) CalcTerminal(data actions.Data, x mat.Vector) error {
	d, err := m.cast(data)
	if err != nil {
		return err
	}
	return m.calcTerminal(&d.CommonData, d.Diff[0], x)
}

func (m *RK4) CalcDiff(data actions.Data, x, u mat.Vector) error {
	if err := m.Calc(data, x, u); err != nil {
		return err
	}
	d, _ := m.cast(data)
	nx := m.NX()
	eye := dynamo.Identity(nx, nx)
	h := m.dt / 6

	d.Fx.Copy(eye)
	d.Fu.Zero()
	d.Lx.Zero()
	d.Lu.Zero()
	d.Lxx.Zero()
	d.Lxu.Zero()
	d.Luu.Zero()

	for i := range rk4C {
		ctrl, dd := d.Control[i], d.Diff[i]
		if err := m.ctrl.CalcDiff(ctrl, rk4C[i], u); err != nil {
			return err
		}
		if err := m.diff.CalcDiff(dd, d.Y[i], ctrl.W); err != nil {
			return err
		}

		// Stage state sensitivities.
		if i == 0 {
			d.dyDx[0].Copy(eye)
			d.dyDu[0].Zero()
		} else {
			step := rk4C[i] * m.dt
			d.dyDx[i].Scale(step, d.dkDx[i-1])
			d.dyDx[i].Add(d.dyDx[i], eye)
			d.dyDu[i].Scale(step, d.dkDu[i-1])
		}

		// Stage derivative sensitivities.
		d.dkDx[i].Mul(dd.Fx, d.dyDx[i])
		d.dkDu[i].Mul(dd.Fx, d.dyDu[i])
		if err := m.ctrl.MultiplyByJacobian(ctrl, dd.Fu, d.dkDu[i], dynamo.AddTo); err != nil {
			return err
		}

		w := h * rk4B[i]
		d.xx.Scale(w, d.dkDx[i])
		d.Fx.Add(d.Fx, d.xx)
		d.xu.Scale(w, d.dkDu[i])
		d.Fu.Add(d.Fu, d.xu)

		d.tmpX.MulVec(d.dyDx[i].T(), dd.Lx)
		d.Lx.AddScaledVec(d.Lx, w, d.tmpX)
		d.tmpU.MulVec(d.dyDu[i].T(), dd.Lx)
		d.Lu.AddScaledVec(d.Lu, w, d.tmpU)
		d.lw.Scale(w, column(dd.Lu))
		if err := m.ctrl.MultiplyJacobianTransposeBy(ctrl, d.lw, d.lu, dynamo.AddTo); err != nil {
			return err
		}

		// Lxx
		d.xxB.Mul(dd.Lxx, d.dyDx[i])
		d.xx.Mul(d.dyDx[i].T(), d.xxB)
		d.xx.Scale(w, d.xx)
		d.Lxx.Add(d.Lxx, d.xx)

		// Lxu = dy/dxᵀ (Lxx dy/du + Lxw dw/du)
		if err := m.ctrl.MultiplyByJacobian(ctrl, dd.Lxu, d.lxwJ, dynamo.SetTo); err != nil {
			return err
		}
		d.xuB.Mul(dd.Lxx, d.dyDu[i])
		d.xuB.Add(d.xuB, d.lxwJ)
		d.xu.Mul(d.dyDx[i].T(), d.xuB)
		d.xu.Scale(w, d.xu)
		d.Lxu.Add(d.Lxu, d.xu)

		// Luu = dy/duᵀ Lxx dy/du + dy/duᵀ Lxw dw/du + its transpose + dw/duᵀ Lww dw/du
		d.xuB.Mul(dd.Lxx, d.dyDu[i])
		d.uu.Mul(d.dyDu[i].T(), d.xuB)
		d.uu.Scale(w, d.uu)
		d.Luu.Add(d.Luu, d.uu)
		d.uu.Mul(d.dyDu[i].T(), d.lxwJ)
		d.uu.Scale(w, d.uu)
		d.Luu.Add(d.Luu, d.uu)
		d.Luu.Add(d.Luu, d.uu.T())
		if err := m.ctrl.MultiplyByJacobian(ctrl, dd.Luu, d.lwwJ, dynamo.SetTo); err != nil {
			return err
		}
		d.lwwJ.Scale(w, d.lwwJ)
		if err := m.ctrl.MultiplyJacobianTransposeBy(ctrl, d.lwwJ, d.Luu, dynamo.AddTo); err != nil {
			return err
		}
	}
	return nil
}

func (m *RK4) CalcDiffTerminal(data actions.Data, x mat.Vector) error {
	d, err := m.cast(data)
	if err != nil {
		return err
	}
	return m.calcDiffTerminal(&d.CommonData, d.Diff[0], x)
}
