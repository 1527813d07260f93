package models

import (
	"fmt"

	"gonum.org/v1/gonum/mat"

	"github.com/san-kum/dynopt/internal/actions"
)

// LQR is the continuous-time linear-quadratic model
//
//	ẋ = A x + B u + f
//	ℓ = ½ xᵀQx + ½ uᵀRu + xᵀNu + qᵀx + rᵀu
//
// It shares its algebra, validation and PSD gate with actions.LQR; only the
// meaning of the first output changes from next state to state derivative.
type LQR struct {
	lqr *actions.LQR
}

func NewLQR(A, B, Q, R, N mat.Matrix, f, q, r mat.Vector) (*LQR, error) {
	m, err := actions.NewLQR(A, B, Q, R, N, f, q, r)
	if err != nil {
		return nil, err
	}
	return &LQR{lqr: m}, nil
}

// FromAction reinterprets a discrete LQR's matrices as continuous-time ones.
func FromAction(m *actions.LQR) *LQR {
	return &LQR{lqr: m}
}

func (m *LQR) NX() int { return m.lqr.NX() }
func (m *LQR) NU() int { return m.lqr.NU() }

// Action returns the underlying matrices as a discrete action model.
func (m *LQR) Action() *actions.LQR { return m.lqr }

func (m *LQR) String() string {
	return fmt.Sprintf("DifferentialActionModelLQR {nx=%d, nu=%d, drift_free=%t}", m.NX(), m.NU(), m.lqr.DriftFree())
}

func (m *LQR) CreateData() *Data {
	d := NewData(m.NX(), m.NU())
	d.scratch = m.lqr.CreateData()
	return d
}

// scratch returns the action-level buffer the LQR algebra writes into.
func (m *LQR) scratch(data *Data) actions.Data {
	ad, ok := data.scratch.(actions.Data)
	if !ok || !m.lqr.CheckData(ad) {
		ad = m.lqr.CreateData()
		data.scratch = ad
	}
	return ad
}

func (m *LQR) Calc(data *Data, x, u mat.Vector) error {
	if err := checkData(data, m.NX(), m.NU()); err != nil {
		return err
	}
	ad := m.scratch(data)
	if err := m.lqr.Calc(ad, x, u); err != nil {
		return err
	}
	data.Xdot.CopyVec(ad.Common().Xnext)
	data.Cost = ad.Common().Cost
	return nil
}

func (m *LQR) CalcTerminal(data *Data, x mat.Vector) error {
	if err := checkData(data, m.NX(), m.NU()); err != nil {
		return err
	}
	ad := m.scratch(data)
	if err := m.lqr.CalcTerminal(ad, x); err != nil {
		return err
	}
	data.Cost = ad.Common().Cost
	return nil
}

func (m *LQR) CalcDiff(data *Data, x, u mat.Vector) error {
	if err := checkData(data, m.NX(), m.NU()); err != nil {
		return err
	}
	ad := m.scratch(data)
	if err := m.lqr.CalcDiff(ad, x, u); err != nil {
		return err
	}
	c := ad.Common()
	data.Fx.Copy(c.Fx)
	data.Fu.Copy(c.Fu)
	data.Lx.CopyVec(c.Lx)
	data.Lu.CopyVec(c.Lu)
	data.Lxx.Copy(c.Lxx)
	data.Luu.Copy(c.Luu)
	data.Lxu.Copy(c.Lxu)
	return nil
}

func (m *LQR) CalcDiffTerminal(data *Data, x mat.Vector) error {
	if err := checkData(data, m.NX(), m.NU()); err != nil {
		return err
	}
	ad := m.scratch(data)
	if err := m.lqr.CalcDiffTerminal(ad, x); err != nil {
		return err
	}
	data.Lx.CopyVec(ad.Common().Lx)
	data.Lxx.Copy(ad.Common().Lxx)
	return nil
}

var _ Differential = (*LQR)(nil)
