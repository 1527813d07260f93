package experiment

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/rand"

	"gonum.org/v1/gonum/mat"

	"github.com/san-kum/dynopt/internal/actions"
	"github.com/san-kum/dynopt/internal/config"
	"github.com/san-kum/dynopt/internal/controls"
	"github.com/san-kum/dynopt/internal/metrics"
	"github.com/san-kum/dynopt/internal/problem"
)

var errNotSetup = errors.New("experiment not setup")

// Experiment is one configured shooting problem with a constant control
// guess.
type Experiment struct {
	cfg        *config.Config
	randSource *rand.Rand
	log        *slog.Logger

	model   actions.Model
	ctrl    controls.Model
	problem *problem.Problem
	us      []*mat.VecDense
}

// Report is what Run produces.
type Report struct {
	Result  problem.Result
	Metrics map[string]float64
}

func New(cfg *config.Config, log *slog.Logger) (*Experiment, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if log == nil {
		log = slog.New(slog.DiscardHandler)
	}
	return &Experiment{
		cfg:        cfg.Clone(),
		randSource: rand.New(rand.NewSource(cfg.Seed)),
		log:        log,
	}, nil
}

// Setup builds the models from reg. Every node shares one model; each node
// still gets its own data.
func (e *Experiment) Setup(reg *Registry) error {
	m, ctrl, err := reg.Build(e.cfg, e.randSource)
	if err != nil {
		return fmt.Errorf("build %s: %w", e.cfg.Model, err)
	}

	running := make([]actions.Model, e.cfg.Horizon)
	for k := range running {
		running[k] = m
	}
	x0 := mat.NewVecDense(m.NX(), e.cfg.GetInitState())
	p, err := problem.New(x0, running, m, problem.WithLogger(e.log))
	if err != nil {
		return err
	}

	u, err := e.initialControl(ctrl)
	if err != nil {
		return err
	}
	e.us = make([]*mat.VecDense, e.cfg.Horizon)
	for k := range e.us {
		e.us[k] = mat.VecDenseCopyOf(u)
	}

	e.model, e.ctrl, e.problem = m, ctrl, p
	e.log.Info("experiment ready", "model", m, "horizon", e.cfg.Horizon, "nx", m.NX(), "nu", m.NU())
	return nil
}

// initialControl maps the configured instantaneous control onto parameters.
func (e *Experiment) initialControl(ctrl controls.Model) (*mat.VecDense, error) {
	w := e.cfg.GetInitControl()
	if ctrl == nil {
		return mat.NewVecDense(len(w), w), nil
	}
	data := ctrl.CreateData()
	if err := ctrl.Params(data, 0, mat.NewVecDense(len(w), w)); err != nil {
		return nil, err
	}
	return mat.VecDenseCopyOf(data.U), nil
}

// Run rolls the problem out, evaluates its derivatives along the rollout and
// computes the default metrics.
func (e *Experiment) Run(ctx context.Context) (*Report, error) {
	if e.problem == nil {
		return nil, errNotSetup
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	xs, err := e.problem.Rollout(e.us)
	if err != nil {
		return nil, fmt.Errorf("rollout: %w", err)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if err := e.problem.CalcDiff(xs, e.us); err != nil {
		return nil, fmt.Errorf("calc diff: %w", err)
	}

	res := e.problem.Summary()
	report := &Report{Result: res, Metrics: metrics.Evaluate(res, metrics.Defaults()...)}
	e.log.Info("experiment finished", "cost", res.Total, "final_state_norm", report.Metrics["final_state_norm"])
	return report, nil
}

func (e *Experiment) Config() *config.Config    { return e.cfg }
func (e *Experiment) Problem() *problem.Problem { return e.problem }
func (e *Experiment) Model() actions.Model      { return e.model }
func (e *Experiment) Control() controls.Model   { return e.ctrl }
func (e *Experiment) Controls() []*mat.VecDense { return e.us }
