package controls

import (
	"fmt"

	"github.com/san-kum/dynopt/internal/dynamo"
	"gonum.org/v1/gonum/mat"
)

// PolyZero holds the control constant over the interval: w = u.
type PolyZero struct {
	basis
}

func NewPolyZero(nw int) (*PolyZero, error) {
	b, err := newBasis(nw, 1)
	if err != nil {
		return nil, err
	}
	return &PolyZero{b}, nil
}

func (p *PolyZero) Calc(data *Data, _ float64, u mat.Vector) error {
	if err := dynamo.CheckVec("u", u, p.NU()); err != nil {
		return err
	}
	if err := p.checkData(data); err != nil {
		return err
	}
	data.C[0] = 1
	p.combine(data, u)
	return nil
}

func (p *PolyZero) String() string {
	return fmt.Sprintf("ControlParametrizationModelPolyZero {nw=%d, nu=%d}", p.NW(), p.NU())
}

// PolyOne interpolates linearly between the control at t=0 (p0) and at t=½
// (p1): w = (1-2t)·p0 + 2t·p1.
type PolyOne struct {
	basis
}

func NewPolyOne(nw int) (*PolyOne, error) {
	b, err := newBasis(nw, 2)
	if err != nil {
		return nil, err
	}
	return &PolyOne{b}, nil
}

func (p *PolyOne) Calc(data *Data, t float64, u mat.Vector) error {
	if err := dynamo.CheckVec("u", u, p.NU()); err != nil {
		return err
	}
	if err := p.checkData(data); err != nil {
		return err
	}
	data.C[1] = 2 * t
	data.C[0] = 1 - data.C[1]
	p.combine(data, u)
	return nil
}

func (p *PolyOne) String() string {
	return fmt.Sprintf("ControlParametrizationModelPolyOne {nw=%d, nu=%d}", p.NW(), p.NU())
}

// PolyTwoRK4 is the quadratic interpolant through the controls at t=0 (p0),
// t=½ (p1) and t=1 (p2), the three instants at which an RK4 step samples its
// control.
type PolyTwoRK4 struct {
	basis
}

func NewPolyTwoRK4(nw int) (*PolyTwoRK4, error) {
	b, err := newBasis(nw, 3)
	if err != nil {
		return nil, err
	}
	return &PolyTwoRK4{b}, nil
}

func (p *PolyTwoRK4) Calc(data *Data, t float64, u mat.Vector) error {
	if err := dynamo.CheckVec("u", u, p.NU()); err != nil {
		return err
	}
	if err := p.checkData(data); err != nil {
		return err
	}
	data.C[2] = 2*t*t - t
	data.C[1] = -2*data.C[2] + 2*t
	data.C[0] = data.C[2] - 2*t + 1
	p.combine(data, u)
	return nil
}

func (p *PolyTwoRK4) String() string {
	return fmt.Sprintf("ControlParametrizationModelPolyTwoRK4 {nw=%d, nu=%d}", p.NW(), p.NU())
}

var (
	_ Model = (*PolyZero)(nil)
	_ Model = (*PolyOne)(nil)
	_ Model = (*PolyTwoRK4)(nil)
)
