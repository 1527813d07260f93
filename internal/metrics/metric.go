// Package metrics summarizes a trajectory into named scalars.
package metrics

import (
	"gonum.org/v1/gonum/mat"

	"github.com/san-kum/dynopt/internal/problem"
)

type Metric interface {
	Name() string
	// Observe is called once per running node k with its state and control.
	Observe(x, u mat.Vector, k int)
	Value() float64
	Reset()
}

// CostObserver is implemented by metrics that also need the node costs.
type CostObserver interface {
	ObserveCost(cost float64, k int)
}

// FinalObserver is implemented by metrics that look at the terminal state.
type FinalObserver interface {
	ObserveFinal(x mat.Vector)
}

// Defaults returns the metrics reported by the CLI.
func Defaults() []Metric {
	return []Metric{NewControlEffort(), NewFinalStateNorm(), NewCostPerStep(), NewStability(1e3)}
}

// Evaluate resets every metric, feeds it the trajectory in res and returns
// the values by name.
func Evaluate(res problem.Result, ms ...Metric) map[string]float64 {
	out := make(map[string]float64, len(ms))
	for _, m := range ms {
		m.Reset()
		for k, u := range res.Controls {
			if k < len(res.States) {
				m.Observe(res.States[k], u, k)
			}
		}
		if co, ok := m.(CostObserver); ok {
			for k, c := range res.Costs {
				co.ObserveCost(c, k)
			}
		}
		if fo, ok := m.(FinalObserver); ok && len(res.States) > 0 {
			fo.ObserveFinal(res.States[len(res.States)-1])
		}
		out[m.Name()] = m.Value()
	}
	return out
}
