package metrics

import (
	"math"

	"gonum.org/v1/gonum/mat"
)

// ControlEffort is the mean L1 norm of the controls. It also remembers the
// largest single component seen.
type ControlEffort struct {
	sum, peak float64
	n         int
}

func NewControlEffort() *ControlEffort { return &ControlEffort{} }

func (*ControlEffort) Name() string { return "control_effort" }

func (c *ControlEffort) Observe(_, u mat.Vector, _ int) {
	c.sum += mat.Norm(u, 1)
	c.peak = math.Max(c.peak, mat.Norm(u, math.Inf(1)))
	c.n++
}

func (c *ControlEffort) Value() float64 {
	if c.n == 0 {
		return 0
	}
	return c.sum / float64(c.n)
}

// Peak is the largest absolute control component observed.
func (c *ControlEffort) Peak() float64 { return c.peak }

func (c *ControlEffort) Reset() { *c = ControlEffort{} }
