package experiment

import (
	"errors"
	"fmt"
	"math/rand"
	"slices"

	"github.com/san-kum/dynopt/internal/actions"
	"github.com/san-kum/dynopt/internal/config"
	"github.com/san-kum/dynopt/internal/controls"
	"github.com/san-kum/dynopt/internal/integrators"
	"github.com/san-kum/dynopt/internal/models"
)

var ErrUnknown = errors.New("experiment: unknown name")

type (
	actionFactory     func(cfg *config.Config, rng *rand.Rand) (actions.Model, error)
	diffFactory       func(cfg *config.Config, rng *rand.Rand) (models.Differential, error)
	controlFactory    func(nw int) (controls.Model, error)
	integratorFactory func(diff models.Differential, ctrl controls.Model, dt float64) (actions.Model, error)
)

// Registry maps config names to model constructors. A model name resolves
// to a discrete action model when no integrator is used and to a
// differential model otherwise.
type Registry struct {
	actions     map[string]actionFactory
	diffs       map[string]diffFactory
	controls    map[string]controlFactory
	integrators map[string]integratorFactory
}

func NewRegistry() *Registry {
	r := &Registry{
		actions:     make(map[string]actionFactory),
		diffs:       make(map[string]diffFactory),
		controls:    make(map[string]controlFactory),
		integrators: make(map[string]integratorFactory),
	}

	r.actions["lqr"] = func(cfg *config.Config, rng *rand.Rand) (actions.Model, error) {
		return newLQR(cfg, rng)
	}
	r.actions["unicycle"] = func(cfg *config.Config, _ *rand.Rand) (actions.Model, error) {
		return actions.NewUnicycleWithParams(cfg.Dt, unicycleWeights(cfg))
	}

	r.diffs["lqr"] = func(cfg *config.Config, rng *rand.Rand) (models.Differential, error) {
		m, err := newLQR(cfg, rng)
		if err != nil {
			return nil, err
		}
		return models.FromAction(m), nil
	}
	r.diffs["unicycle"] = func(cfg *config.Config, _ *rand.Rand) (models.Differential, error) {
		return models.NewUnicycle(unicycleWeights(cfg))
	}

	r.controls["zero"] = control(controls.NewPolyZero)
	r.controls["one"] = control(controls.NewPolyOne)
	r.controls["two_rk4"] = control(controls.NewPolyTwoRK4)

	r.integrators["euler"] = func(diff models.Differential, ctrl controls.Model, dt float64) (actions.Model, error) {
		return integrators.NewEuler(diff, ctrl, dt)
	}
	r.integrators["rk4"] = func(diff models.Differential, ctrl controls.Model, dt float64) (actions.Model, error) {
		return integrators.NewRK4(diff, ctrl, dt)
	}

	return r
}

func control[M controls.Model](newFn func(nw int) (M, error)) controlFactory {
	return func(nw int) (controls.Model, error) {
		m, err := newFn(nw)
		if err != nil {
			return nil, err
		}
		return m, nil
	}
}

func newLQR(cfg *config.Config, rng *rand.Rand) (*actions.LQR, error) {
	if cfg.LQR.Random {
		return actions.RandomLQR(rng, cfg.LQR.NX, cfg.LQR.NU)
	}
	return actions.NewDefaultLQR(cfg.LQR.NX, cfg.LQR.NU, cfg.LQR.DriftFree)
}

func unicycleWeights(cfg *config.Config) [2]float64 {
	return [2]float64{cfg.Unicycle.StateWeight, cfg.Unicycle.ControlWeight}
}

func (r *Registry) GetAction(name string, cfg *config.Config, rng *rand.Rand) (actions.Model, error) {
	fn, ok := r.actions[name]
	if !ok {
		return nil, fmt.Errorf("%w: model %s", ErrUnknown, name)
	}
	return fn(cfg, rng)
}

func (r *Registry) GetDifferential(name string, cfg *config.Config, rng *rand.Rand) (models.Differential, error) {
	fn, ok := r.diffs[name]
	if !ok {
		return nil, fmt.Errorf("%w: differential model %s", ErrUnknown, name)
	}
	return fn(cfg, rng)
}

func (r *Registry) GetControl(name string, nw int) (controls.Model, error) {
	fn, ok := r.controls[name]
	if !ok {
		return nil, fmt.Errorf("%w: control parametrization %s", ErrUnknown, name)
	}
	return fn(nw)
}

func (r *Registry) GetIntegrator(name string, diff models.Differential, ctrl controls.Model, dt float64) (actions.Model, error) {
	fn, ok := r.integrators[name]
	if !ok {
		return nil, fmt.Errorf("%w: integrator %s", ErrUnknown, name)
	}
	return fn(diff, ctrl, dt)
}

// Build resolves the running model and, for integrated models, the control
// parametrization used to turn an instantaneous control into parameters.
func (r *Registry) Build(cfg *config.Config, rng *rand.Rand) (actions.Model, controls.Model, error) {
	if cfg.Integrator == "none" {
		m, err := r.GetAction(cfg.Model, cfg, rng)
		return m, nil, err
	}
	diff, err := r.GetDifferential(cfg.Model, cfg, rng)
	if err != nil {
		return nil, nil, err
	}
	ctrl, err := r.GetControl(cfg.Control, diff.NU())
	if err != nil {
		return nil, nil, err
	}
	m, err := r.GetIntegrator(cfg.Integrator, diff, ctrl, cfg.Dt)
	if err != nil {
		return nil, nil, err
	}
	return m, ctrl, nil
}

func sortedKeys[V any](m map[string]V) []string {
	names := make([]string, 0, len(m))
	for name := range m {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}

func (r *Registry) ListModels() []string      { return sortedKeys(r.actions) }
func (r *Registry) ListControls() []string    { return sortedKeys(r.controls) }
func (r *Registry) ListIntegrators() []string { return sortedKeys(r.integrators) }
