package problem

import "gonum.org/v1/gonum/mat"

// Result is a trajectory with its per-node costs. Costs has T+1 entries,
// the last one being the terminal cost.
type Result struct {
	States   []*mat.VecDense
	Controls []*mat.VecDense
	Costs    []float64
	Total    float64
}

// StateMatrix returns the states as rows of a (T+1) x nx matrix.
func (r Result) StateMatrix() *mat.Dense {
	return rows(r.States)
}

// ControlMatrix returns the controls as rows of a T x nu matrix, or nil if
// there are no running nodes or their control dimensions differ.
func (r Result) ControlMatrix() *mat.Dense {
	return rows(r.Controls)
}

func rows(vs []*mat.VecDense) *mat.Dense {
	if len(vs) == 0 {
		return nil
	}
	for _, v := range vs {
		if v.Len() != vs[0].Len() {
			return nil
		}
	}
	m := mat.NewDense(len(vs), vs[0].Len(), nil)
	for i, v := range vs {
		m.SetRow(i, v.RawVector().Data)
	}
	return m
}
