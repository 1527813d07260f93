package models

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"

	"github.com/san-kum/dynopt/internal/dynamo"
)

// Unicycle is the continuous-time unicycle ẋ = (v cos θ, v sin θ, ω) with
// cost rate ½‖wx·x‖² + ½‖wu·u‖².
type Unicycle struct {
	weights [2]float64
}

func NewUnicycle(weights [2]float64) (*Unicycle, error) {
	if weights[0] < 0 || weights[1] < 0 {
		return nil, dynamo.Invalid("cost weights", "must be non-negative, got %v", weights)
	}
	return &Unicycle{weights: weights}, nil
}

func (m *Unicycle) NX() int { return 3 }
func (m *Unicycle) NU() int { return 2 }

func (m *Unicycle) String() string {
	return fmt.Sprintf("DifferentialActionModelUnicycle {cost_weights=%v}", m.weights)
}

func (m *Unicycle) CreateData() *Data { return NewData(3, 2) }

func (m *Unicycle) check(data *Data, x, u mat.Vector) error {
	if err := dynamo.CheckVec("x", x, 3); err != nil {
		return err
	}
	if err := dynamo.CheckVec("u", u, 2); err != nil {
		return err
	}
	return checkData(data, 3, 2)
}

func (m *Unicycle) Calc(data *Data, x, u mat.Vector) error {
	if err := m.check(data, x, u); err != nil {
		return err
	}
	s, c := math.Sincos(x.AtVec(2))
	v := u.AtVec(0)
	data.Xdot.SetVec(0, v*c)
	data.Xdot.SetVec(1, v*s)
	data.Xdot.SetVec(2, u.AtVec(1))

	wx, wu := m.weights[0]*m.weights[0], m.weights[1]*m.weights[1]
	data.Cost = 0.5*wx*mat.Dot(x, x) + 0.5*wu*mat.Dot(u, u)
	return nil
}

func (m *Unicycle) CalcTerminal(data *Data, x mat.Vector) error {
	if err := dynamo.CheckVec("x", x, 3); err != nil {
		return err
	}
	if err := checkData(data, 3, 2); err != nil {
		return err
	}
	data.Cost = 0.5 * m.weights[0] * m.weights[0] * mat.Dot(x, x)
	return nil
}

func (m *Unicycle) CalcDiff(data *Data, x, u mat.Vector) error {
	if err := m.check(data, x, u); err != nil {
		return err
	}
	s, c := math.Sincos(x.AtVec(2))
	v := u.AtVec(0)

	data.Fx.Zero()
	data.Fx.Set(0, 2, -v*s)
	data.Fx.Set(1, 2, v*c)
	data.Fu.Zero()
	data.Fu.Set(0, 0, c)
	data.Fu.Set(1, 0, s)
	data.Fu.Set(2, 1, 1)

	wx, wu := m.weights[0]*m.weights[0], m.weights[1]*m.weights[1]
	data.Lx.ScaleVec(wx, x)
	data.Lu.ScaleVec(wu, u)
	data.Lxx.Zero()
	data.Luu.Zero()
	data.Lxu.Zero()
	for i := 0; i < 3; i++ {
		data.Lxx.Set(i, i, wx)
	}
	for i := 0; i < 2; i++ {
		data.Luu.Set(i, i, wu)
	}
	return nil
}

func (m *Unicycle) CalcDiffTerminal(data *Data, x mat.Vector) error {
	if err := dynamo.CheckVec("x", x, 3); err != nil {
		return err
	}
	if err := checkData(data, 3, 2); err != nil {
		return err
	}
	wx := m.weights[0] * m.weights[0]
	data.Lx.ScaleVec(wx, x)
	data.Lxx.Zero()
	for i := 0; i < 3; i++ {
		data.Lxx.Set(i, i, wx)
	}
	return nil
}

var _ Differential = (*Unicycle)(nil)
