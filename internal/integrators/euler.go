package integrators

import (
	"fmt"

	"gonum.org/v1/gonum/mat"

	"github.com/san-kum/dynopt/internal/actions"
	"github.com/san-kum/dynopt/internal/controls"
	"github.com/san-kum/dynopt/internal/dynamo"
	"github.com/san-kum/dynopt/internal/models"
)

// Euler integrates a differential model with one explicit Euler step:
//
//	xnext = x + dt·f(x, w(0))
//	cost  = dt·ℓ(x, w(0))
type Euler struct {
	base
}

// EulerData is the data of an Euler model.
type EulerData struct {
	actions.CommonData

	Diff    *models.Data
	Control *controls.Data

	fw   *mat.Dense // nx x nw
	lw   *mat.Dense // nw x 1
	lxw  *mat.Dense // nx x nw
	lww  *mat.Dense // nw x nw
	lwwJ *mat.Dense // nw x nu
	lu   *mat.Dense // view of Lu
}

func NewEuler(diff models.Differential, ctrl controls.Model, dt float64) (*Euler, error) {
	b, err := newBase(diff, ctrl, dt)
	if err != nil {
		return nil, err
	}
	return &Euler{base: b}, nil
}

func (m *Euler) String() string {
	return fmt.Sprintf("IntegratedActionModelEuler {nx=%d, nu=%d, dt=%g}", m.NX(), m.NU(), m.dt)
}

func (m *Euler) CreateData() actions.Data {
	nx, nu, nw := m.NX(), m.NU(), m.ctrl.NW()
	d := &EulerData{
		CommonData: actions.NewCommonData(nx, nu),
		Diff:       m.diff.CreateData(),
		Control:    m.ctrl.CreateData(),
		fw:         mat.NewDense(nx, nw, nil),
		lw:         mat.NewDense(nw, 1, nil),
		lxw:        mat.NewDense(nx, nw, nil),
		lww:        mat.NewDense(nw, nw, nil),
		lwwJ:       mat.NewDense(nw, nu, nil),
	}
	d.lu = column(d.Lu)
	return d
}

func (m *Euler) CheckData(data actions.Data) bool {
	_, ok := data.(*EulerData)
	return ok
}

func (m *Euler) cast(data actions.Data) (*EulerData, error) {
	d, ok := data.(*EulerData)
	if !ok || d == nil {
		return nil, dynamo.Invalid("data", "was not created by an Euler model (got %T)", data)
	}
	if r, c := d.Fu.Dims(); r != m.NX() || c != m.NU() {
		return nil, dynamo.Invalid("data", "has wrong dimension (nx=%d, nu=%d, it should be nx=%d, nu=%d)", r, c, m.NX(), m.NU())
	}
	return d, nil
}

func (m *Euler) Calc(data actions.Data, x, u mat.Vector) error {
	d, err := m.cast(data)
	if err != nil {
		return err
	}
	if err := m.checkXU(x, u); err != nil {
		return err
	}
	if err := m.ctrl.Calc(d.Control, 0, u); err != nil {
		return err
	}
	if err := m.diff.Calc(d.Diff, x, d.Control.W); err != nil {
		return err
	}
	d.Xnext.AddScaledVec(x, m.dt, d.Diff.Xdot)
	d.Cost = m.dt * d.Diff.Cost
	return nil
}

func (m *Euler) CalcTerminal(data actions.Data, x mat.Vector) error {
	d, err := m.cast(data)
	if err != nil {
		return err
	}
	return m.calcTerminal(&d.CommonData, d.Diff, x)
}

func (m *Euler) CalcDiff(data actions.Data, x, u mat.Vector) error {
	if err := m.Calc(data, x, u); err != nil {
		return err
	}
	d, _ := m.cast(data)
	if err := m.ctrl.CalcDiff(d.Control, 0, u); err != nil {
		return err
	}
	dd := d.Diff
	if err := m.diff.CalcDiff(dd, x, d.Control.W); err != nil {
		return err
	}
	dt := m.dt

	d.Fx.Scale(dt, dd.Fx)
	d.Fx.Add(d.Fx, dynamo.Identity(m.NX(), m.NX()))
	d.fw.Scale(dt, dd.Fu)
	if err := m.ctrl.MultiplyByJacobian(d.Control, d.fw, d.Fu, dynamo.SetTo); err != nil {
		return err
	}

	d.Lx.ScaleVec(dt, dd.Lx)
	d.lw.Scale(dt, column(dd.Lu))
	if err := m.ctrl.MultiplyJacobianTransposeBy(d.Control, d.lw, d.lu, dynamo.SetTo); err != nil {
		return err
	}

	d.Lxx.Scale(dt, dd.Lxx)
	d.lxw.Scale(dt, dd.Lxu)
	if err := m.ctrl.MultiplyByJacobian(d.Control, d.lxw, d.Lxu, dynamo.SetTo); err != nil {
		return err
	}
	d.lww.Scale(dt, dd.Luu)
	if err := m.ctrl.MultiplyByJacobian(d.Control, d.lww, d.lwwJ, dynamo.SetTo); err != nil {
		return err
	}
	return m.ctrl.MultiplyJacobianTransposeBy(d.Control, d.lwwJ, d.Luu, dynamo.SetTo)
}

func (m *Euler) CalcDiffTerminal(data actions.Data, x mat.Vector) error {
	d, err := m.cast(data)
	if err != nil {
		return err
	}
	return m.calcDiffTerminal(&d.CommonData, d.Diff, x)
}
