package actions

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"

	"github.com/san-kum/dynopt/internal/dynamo"
)

const (
	DefaultUnicycleDt       = 0.1
	DefaultUnicycleStateW   = 10.0
	DefaultUnicycleControlW = 1.0
)

// Unicycle drives a planar unicycle with state (x, y, θ) and control (v, ω)
// towards the origin:
//
//	xnext = (x + cos θ·v·dt, y + sin θ·v·dt, θ + ω·dt)
//	cost  = ½‖wx·x‖² + ½‖wu·u‖²
type Unicycle struct {
	dt      float64
	weights [2]float64
}

type UnicycleData struct {
	CommonData
}

func NewUnicycle() *Unicycle {
	return &Unicycle{
		dt:      DefaultUnicycleDt,
		weights: [2]float64{DefaultUnicycleStateW, DefaultUnicycleControlW},
	}
}

// NewUnicycleWithParams sets the time step and the state/control cost weights.
func NewUnicycleWithParams(dt float64, weights [2]float64) (*Unicycle, error) {
	if dt <= 0 {
		return nil, dynamo.Invalid("dt", "must be positive, got %g", dt)
	}
	if weights[0] < 0 || weights[1] < 0 {
		return nil, dynamo.Invalid("cost weights", "must be non-negative, got %v", weights)
	}
	return &Unicycle{dt: dt, weights: weights}, nil
}

func (m *Unicycle) NX() int { return 3 }
func (m *Unicycle) NU() int { return 2 }

func (m *Unicycle) Dt() float64             { return m.dt }
func (m *Unicycle) CostWeights() [2]float64 { return m.weights }

func (m *Unicycle) String() string {
	return fmt.Sprintf("ActionModelUnicycle {dt=%g, cost_weights=%v}", m.dt, m.weights)
}

func (m *Unicycle) CreateData() Data {
	return &UnicycleData{CommonData: NewCommonData(3, 2)}
}

func (m *Unicycle) CheckData(data Data) bool {
	_, ok := data.(*UnicycleData)
	return ok
}

func (m *Unicycle) cast(data Data) (*UnicycleData, error) {
	d, ok := data.(*UnicycleData)
	if !ok {
		return nil, dynamo.Invalid("data", "was not created by a unicycle model (got %T)", data)
	}
	if err := checkCommon(d, 3, 2); err != nil {
		return nil, err
	}
	return d, nil
}

func (m *Unicycle) Calc(data Data, x, u mat.Vector) error {
	if err := dynamo.CheckVec("x", x, 3); err != nil {
		return err
	}
	if err := dynamo.CheckVec("u", u, 2); err != nil {
		return err
	}
	d, err := m.cast(data)
	if err != nil {
		return err
	}

	s, c := math.Sincos(x.AtVec(2))
	v, w := u.AtVec(0), u.AtVec(1)
	d.Xnext.SetVec(0, x.AtVec(0)+c*v*m.dt)
	d.Xnext.SetVec(1, x.AtVec(1)+s*v*m.dt)
	d.Xnext.SetVec(2, x.AtVec(2)+w*m.dt)

	wx, wu := m.weights[0]*m.weights[0], m.weights[1]*m.weights[1]
	d.Cost = 0.5*wx*mat.Dot(x, x) + 0.5*wu*mat.Dot(u, u)
	return nil
}

func (m *Unicycle) CalcTerminal(data Data, x mat.Vector) error {
	if err := dynamo.CheckVec("x", x, 3); err != nil {
		return err
	}
	d, err := m.cast(data)
	if err != nil {
		return err
	}

	d.Xnext.CopyVec(x)
	d.Cost = 0.5 * m.weights[0] * m.weights[0] * mat.Dot(x, x)
	return nil
}

func (m *Unicycle) CalcDiff(data Data, x, u mat.Vector) error {
	if err := dynamo.CheckVec("x", x, 3); err != nil {
		return err
	}
	if err := dynamo.CheckVec("u", u, 2); err != nil {
		return err
	}
	d, err := m.cast(data)
	if err != nil {
		return err
	}

	s, c := math.Sincos(x.AtVec(2))
	v := u.AtVec(0)

	d.Fx.Copy(dynamo.Identity(3, 3))
	d.Fx.Set(0, 2, -s*v*m.dt)
	d.Fx.Set(1, 2, c*v*m.dt)

	d.Fu.Zero()
	d.Fu.Set(0, 0, c*m.dt)
	d.Fu.Set(1, 0, s*m.dt)
	d.Fu.Set(2, 1, m.dt)

	wx, wu := m.weights[0]*m.weights[0], m.weights[1]*m.weights[1]
	d.Lx.ScaleVec(wx, x)
	d.Lu.ScaleVec(wu, u)
	d.Lxx.Zero()
	d.Luu.Zero()
	d.Lxu.Zero()
	for i := 0; i < 3; i++ {
		d.Lxx.Set(i, i, wx)
	}
	for i := 0; i < 2; i++ {
		d.Luu.Set(i, i, wu)
	}
	return nil
}

func (m *Unicycle) CalcDiffTerminal(data Data, x mat.Vector) error {
	if err := dynamo.CheckVec("x", x, 3); err != nil {
		return err
	}
	d, err := m.cast(data)
	if err != nil {
		return err
	}

	wx := m.weights[0] * m.weights[0]
	d.Lx.ScaleVec(wx, x)
	d.Lxx.Zero()
	for i := 0; i < 3; i++ {
		d.Lxx.Set(i, i, wx)
	}
	return nil
}

var _ Model = (*Unicycle)(nil)
