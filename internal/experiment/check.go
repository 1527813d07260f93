package experiment

import (
	"math"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"

	"github.com/san-kum/dynopt/internal/actions"
)

// Deviation is the largest absolute difference between an analytic
// derivative and its finite-difference estimate.
type Deviation struct {
	Name  string
	Value float64
}

// CheckDerivatives compares the analytic derivatives of m at (x, u) with
// central finite differences. The terminal derivatives are compared as well.
func CheckDerivatives(m actions.Model, x, u mat.Vector) ([]Deviation, error) {
	nd := actions.NewNumDiff(m)
	data, ndData := m.CreateData(), nd.CreateData()
	if err := m.Calc(data, x, u); err != nil {
		return nil, err
	}
	if err := m.CalcDiff(data, x, u); err != nil {
		return nil, err
	}
	if err := nd.Calc(ndData, x, u); err != nil {
		return nil, err
	}
	if err := nd.CalcDiff(ndData, x, u); err != nil {
		return nil, err
	}
	a, n := data.Common(), ndData.Common()
	out := []Deviation{
		{"Fx", maxDiff(a.Fx, n.Fx)},
		{"Fu", maxDiff(a.Fu, n.Fu)},
		{"Lx", maxDiff(a.Lx, n.Lx)},
		{"Lu", maxDiff(a.Lu, n.Lu)},
		{"Lxx", maxDiff(a.Lxx, n.Lxx)},
		{"Luu", maxDiff(a.Luu, n.Luu)},
		{"Lxu", maxDiff(a.Lxu, n.Lxu)},
	}

	if err := m.CalcDiffTerminal(data, x); err != nil {
		return nil, err
	}
	if err := nd.CalcTerminal(ndData, x); err != nil {
		return nil, err
	}
	if err := nd.CalcDiffTerminal(ndData, x); err != nil {
		return nil, err
	}
	out = append(out,
		Deviation{"terminal Lx", maxDiff(a.Lx, n.Lx)},
		Deviation{"terminal Lxx", maxDiff(a.Lxx, n.Lxx)},
	)
	return out, nil
}

func maxDiff(a, b mat.Matrix) float64 {
	return floats.Distance(raw(a), raw(b), math.Inf(1))
}

func raw(m mat.Matrix) []float64 {
	r, c := m.Dims()
	out := make([]float64, 0, r*c)
	for i := 0; i < r; i++ {
		for j := 0; j < c; j++ {
			out = append(out, m.At(i, j))
		}
	}
	return out
}

// Check runs CheckDerivatives for the experiment's model at its initial
// state and control.
func (e *Experiment) Check() ([]Deviation, error) {
	if e.problem == nil {
		return nil, errNotSetup
	}
	return CheckDerivatives(e.model, e.problem.X0(), e.us[0])
}
