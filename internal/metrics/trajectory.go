package metrics

import (
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
)

// FinalStateNorm is the Euclidean norm of the terminal state.
type FinalStateNorm struct {
	value float64
}

func NewFinalStateNorm() *FinalStateNorm { return &FinalStateNorm{} }

func (f *FinalStateNorm) Name() string                   { return "final_state_norm" }
func (f *FinalStateNorm) Observe(_, _ mat.Vector, _ int) {}
func (f *FinalStateNorm) ObserveFinal(x mat.Vector)      { f.value = mat.Norm(x, 2) }
func (f *FinalStateNorm) Value() float64                 { return f.value }
func (f *FinalStateNorm) Reset()                         { f.value = 0 }

// CostPerStep is the total cost divided by the number of running nodes.
// The terminal cost is included in the total.
type CostPerStep struct {
	costs []float64
	steps int
}

func NewCostPerStep() *CostPerStep { return &CostPerStep{} }

func (c *CostPerStep) Name() string { return "cost_per_step" }

func (c *CostPerStep) Observe(_, _ mat.Vector, _ int) { c.steps++ }

func (c *CostPerStep) ObserveCost(cost float64, _ int) {
	c.costs = append(c.costs, cost)
}

func (c *CostPerStep) Value() float64 {
	if len(c.costs) == 0 {
		return 0
	}
	total := floats.Sum(c.costs)
	if c.steps == 0 {
		return total
	}
	return total / float64(c.steps)
}

// Max is the largest single node cost.
func (c *CostPerStep) Max() float64 {
	if len(c.costs) == 0 {
		return 0
	}
	return floats.Max(c.costs)
}

func (c *CostPerStep) Reset() {
	c.costs = c.costs[:0]
	c.steps = 0
}
