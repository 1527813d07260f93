// Package problem chains action models into a shooting problem: T running
// nodes followed by a terminal node, all sharing the state dimension.
package problem

import (
	"fmt"
	"log/slog"
	"math"

	"gonum.org/v1/gonum/mat"

	"github.com/san-kum/dynopt/internal/actions"
	"github.com/san-kum/dynopt/internal/dynamo"
)

// Problem owns one data object per node. It is not safe for concurrent use.
type Problem struct {
	x0       *mat.VecDense
	running  []actions.Model
	terminal actions.Model

	runningData  []actions.Data
	terminalData actions.Data

	log  *slog.Logger
	last Result
}

type Option func(*Problem)

// WithLogger routes debug output through l.
func WithLogger(l *slog.Logger) Option {
	return func(p *Problem) {
		if l != nil {
			p.log = l
		}
	}
}

func New(x0 mat.Vector, running []actions.Model, terminal actions.Model, opts ...Option) (*Problem, error) {
	if terminal == nil {
		return nil, dynamo.Invalid("terminal", "must not be nil")
	}
	nx := terminal.NX()
	if err := dynamo.CheckVec("x0", x0, nx); err != nil {
		return nil, err
	}
	for k, m := range running {
		if m == nil {
			return nil, &dynamo.StepError{Node: k, Wrapped: dynamo.Invalid("model", "must not be nil")}
		}
		if m.NX() != nx {
			return nil, &dynamo.StepError{Node: k, Wrapped: dynamo.Invalid("model", "has nx=%d (it should be %d)", m.NX(), nx)}
		}
	}

	p := &Problem{
		x0:           mat.VecDenseCopyOf(x0),
		running:      append([]actions.Model(nil), running...),
		terminal:     terminal,
		runningData:  make([]actions.Data, len(running)),
		terminalData: terminal.CreateData(),
		log:          slog.New(slog.DiscardHandler),
	}
	for k, m := range p.running {
		p.runningData[k] = m.CreateData()
	}
	for _, opt := range opts {
		opt(p)
	}
	return p, nil
}

// T is the number of running nodes.
func (p *Problem) T() int { return len(p.running) }

func (p *Problem) NX() int { return p.terminal.NX() }

func (p *Problem) X0() mat.Vector { return p.x0 }

func (p *Problem) Running(k int) actions.Model { return p.running[k] }
func (p *Problem) Terminal() actions.Model     { return p.terminal }

// RunningData exposes the data of node k as filled by the last evaluation.
func (p *Problem) RunningData(k int) actions.Data { return p.runningData[k] }
func (p *Problem) TerminalData() actions.Data     { return p.terminalData }

// SetX0 replaces the initial state.
func (p *Problem) SetX0(x0 mat.Vector) error {
	if err := dynamo.CheckVec("x0", x0, p.NX()); err != nil {
		return err
	}
	p.x0.CopyVec(x0)
	return nil
}

func (p *Problem) checkControls(us []*mat.VecDense) error {
	if len(us) != p.T() {
		return dynamo.Invalid("us", "has %d controls (it should be %d)", len(us), p.T())
	}
	for k, u := range us {
		if u == nil {
			return &dynamo.StepError{Node: k, Wrapped: dynamo.Invalid("u", "is nil")}
		}
		if err := dynamo.CheckVec("u", u, p.running[k].NU()); err != nil {
			return &dynamo.StepError{Node: k, Wrapped: err}
		}
	}
	return nil
}

func (p *Problem) checkStates(xs []*mat.VecDense) error {
	if len(xs) != p.T()+1 {
		return dynamo.Invalid("xs", "has %d states (it should be %d)", len(xs), p.T()+1)
	}
	for k, x := range xs {
		if x == nil {
			return &dynamo.StepError{Node: k, Wrapped: dynamo.Invalid("x", "is nil")}
		}
		if err := dynamo.CheckVec("x", x, p.NX()); err != nil {
			return &dynamo.StepError{Node: k, Wrapped: err}
		}
	}
	return nil
}

// Rollout integrates the dynamics from x0 under us and returns the T+1
// visited states. The terminal cost is evaluated at the last state.
func (p *Problem) Rollout(us []*mat.VecDense) ([]*mat.VecDense, error) {
	if err := p.checkControls(us); err != nil {
		return nil, err
	}

	xs := make([]*mat.VecDense, p.T()+1)
	xs[0] = mat.VecDenseCopyOf(p.x0)
	costs := make([]float64, p.T()+1)
	for k, m := range p.running {
		d := p.runningData[k]
		if err := m.Calc(d, xs[k], us[k]); err != nil {
			return nil, &dynamo.StepError{Node: k, Wrapped: err}
		}
		c := d.Common()
		if !dynamo.IsFinite(c.Xnext) || math.IsNaN(c.Cost) || math.IsInf(c.Cost, 0) {
			return nil, &dynamo.StepError{Node: k, Wrapped: dynamo.ErrUnstable}
		}
		xs[k+1] = mat.VecDenseCopyOf(c.Xnext)
		costs[k] = c.Cost
	}
	if err := p.terminal.CalcTerminal(p.terminalData, xs[p.T()]); err != nil {
		return nil, &dynamo.StepError{Node: p.T(), Wrapped: err}
	}
	costs[p.T()] = p.terminalData.Common().Cost

	p.record(xs, us, costs)
	p.log.Debug("rollout", "nodes", p.T(), "cost", p.last.Total)
	return xs, nil
}

// Calc evaluates every node at the given trajectory and returns the total
// cost. xs need not be dynamically feasible.
func (p *Problem) Calc(xs, us []*mat.VecDense) (float64, error) {
	if err := p.checkStates(xs); err != nil {
		return 0, err
	}
	if err := p.checkControls(us); err != nil {
		return 0, err
	}

	costs := make([]float64, p.T()+1)
	for k, m := range p.running {
		if err := m.Calc(p.runningData[k], xs[k], us[k]); err != nil {
			return 0, &dynamo.StepError{Node: k, Wrapped: err}
		}
		costs[k] = p.runningData[k].Common().Cost
	}
	if err := p.terminal.CalcTerminal(p.terminalData, xs[p.T()]); err != nil {
		return 0, &dynamo.StepError{Node: p.T(), Wrapped: err}
	}
	costs[p.T()] = p.terminalData.Common().Cost

	states := make([]*mat.VecDense, len(xs))
	for k, x := range xs {
		states[k] = mat.VecDenseCopyOf(x)
	}
	p.record(states, us, costs)
	p.log.Debug("calc", "nodes", p.T(), "cost", p.last.Total)
	return p.last.Total, nil
}

// CalcDiff fills the derivatives of every node at the given trajectory.
func (p *Problem) CalcDiff(xs, us []*mat.VecDense) error {
	if err := p.checkStates(xs); err != nil {
		return err
	}
	if err := p.checkControls(us); err != nil {
		return err
	}
	for k, m := range p.running {
		if err := m.CalcDiff(p.runningData[k], xs[k], us[k]); err != nil {
			return &dynamo.StepError{Node: k, Wrapped: err}
		}
	}
	if err := p.terminal.CalcDiffTerminal(p.terminalData, xs[p.T()]); err != nil {
		return &dynamo.StepError{Node: p.T(), Wrapped: err}
	}
	p.log.Debug("calc diff", "nodes", p.T())
	return nil
}

// Summary returns the trajectory and costs of the last Rollout or Calc.
func (p *Problem) Summary() Result { return p.last }

func (p *Problem) record(xs, us []*mat.VecDense, costs []float64) {
	controls := make([]*mat.VecDense, len(us))
	for k, u := range us {
		controls[k] = mat.VecDenseCopyOf(u)
	}
	total := 0.0
	for _, c := range costs {
		total += c
	}
	p.last = Result{States: xs, Controls: controls, Costs: costs, Total: total}
}

func (p *Problem) String() string {
	return fmt.Sprintf("ShootingProblem {nx=%d, T=%d}", p.NX(), p.T())
}
