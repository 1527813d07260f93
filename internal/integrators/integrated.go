package integrators

import (
	"gonum.org/v1/gonum/mat"

	"github.com/san-kum/dynopt/internal/actions"
	"github.com/san-kum/dynopt/internal/controls"
	"github.com/san-kum/dynopt/internal/dynamo"
	"github.com/san-kum/dynopt/internal/models"
)

// base holds what every integrated model shares.
type base struct {
	diff models.Differential
	ctrl controls.Model
	dt   float64
}

func newBase(diff models.Differential, ctrl controls.Model, dt float64) (base, error) {
	if diff == nil || ctrl == nil {
		return base{}, dynamo.Invalid("model", "differential model and control parametrization must not be nil")
	}
	if dt <= 0 {
		return base{}, dynamo.Invalid("dt", "must be positive, got %g", dt)
	}
	if ctrl.NW() != diff.NU() {
		return base{}, dynamo.Invalid("control", "has nw=%d but the differential model expects nu=%d", ctrl.NW(), diff.NU())
	}
	return base{diff: diff, ctrl: ctrl, dt: dt}, nil
}

func (b *base) NX() int { return b.diff.NX() }
func (b *base) NU() int { return b.ctrl.NU() }

func (b *base) Dt() float64                       { return b.dt }
func (b *base) Differential() models.Differential { return b.diff }
func (b *base) Control() controls.Model           { return b.ctrl }

func (b *base) checkXU(x, u mat.Vector) error {
	if err := dynamo.CheckVec("x", x, b.NX()); err != nil {
		return err
	}
	return dynamo.CheckVec("u", u, b.NU())
}

// calcTerminal evaluates the differential terminal cost, unscaled by dt.
func (b *base) calcTerminal(d *actions.CommonData, dd *models.Data, x mat.Vector) error {
	if err := dynamo.CheckVec("x", x, b.NX()); err != nil {
		return err
	}
	if err := b.diff.CalcTerminal(dd, x); err != nil {
		return err
	}
	d.Xnext.CopyVec(x)
	d.Cost = dd.Cost
	return nil
}

func (b *base) calcDiffTerminal(d *actions.CommonData, dd *models.Data, x mat.Vector) error {
	if err := dynamo.CheckVec("x", x, b.NX()); err != nil {
		return err
	}
	if err := b.diff.CalcDiffTerminal(dd, x); err != nil {
		return err
	}
	d.Fx.Copy(dynamo.Identity(b.NX(), b.NX()))
	d.Fu.Zero()
	d.Lx.CopyVec(dd.Lx)
	d.Lxx.Copy(dd.Lxx)
	d.Lu.Zero()
	d.Luu.Zero()
	d.Lxu.Zero()
	return nil
}

// column views a contiguous vector as a single-column matrix.
func column(v *mat.VecDense) *mat.Dense {
	return mat.NewDense(v.Len(), 1, v.RawVector().Data)
}
