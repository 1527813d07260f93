// Package automation runs batches of experiments: scripted scenarios,
// parameter sweeps and Monte Carlo perturbations of the initial state.
// Runs are executed one after another.
package automation

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/rand"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/san-kum/dynopt/internal/config"
	"github.com/san-kum/dynopt/internal/dynamo"
	"github.com/san-kum/dynopt/internal/experiment"
)

// Scenario defines a scripted sequence of runs.
type Scenario struct {
	Name        string         `yaml:"name"`
	Description string         `yaml:"description"`
	Steps       []ScenarioStep `yaml:"steps"`
}

// ScenarioStep starts from a preset and overrides selected fields.
type ScenarioStep struct {
	Preset      string    `yaml:"preset"`
	Integrator  string    `yaml:"integrator,omitempty"`
	Control     string    `yaml:"control,omitempty"`
	Horizon     int       `yaml:"horizon,omitempty"`
	Dt          float64   `yaml:"dt,omitempty"`
	Seed        int64     `yaml:"seed,omitempty"`
	InitState   []float64 `yaml:"init_state,omitempty"`
	InitControl []float64 `yaml:"init_control,omitempty"`
	Save        bool      `yaml:"save"`
}

// StepResult pairs a scenario step with its resolved config and report.
type StepResult struct {
	Step   ScenarioStep
	Config *config.Config
	Report *experiment.Report
}

func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var scenario Scenario
	if err := yaml.Unmarshal(data, &scenario); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	return &scenario, nil
}

// Config resolves the step against its preset.
func (s ScenarioStep) Config() (*config.Config, error) {
	cfg := config.Lookup(s.Preset)
	if cfg == nil {
		return nil, fmt.Errorf("unknown preset: %s", s.Preset)
	}
	if s.Integrator != "" {
		cfg.Integrator = s.Integrator
	}
	if s.Control != "" {
		cfg.Control = s.Control
	}
	if s.Horizon != 0 {
		cfg.Horizon = s.Horizon
	}
	if s.Dt != 0 {
		cfg.Dt = s.Dt
	}
	if s.Seed != 0 {
		cfg.Seed = s.Seed
	}
	if len(s.InitState) > 0 {
		cfg.InitState = s.InitState
	}
	if len(s.InitControl) > 0 {
		cfg.InitControl = s.InitControl
	}
	return cfg, cfg.Validate()
}

func run(ctx context.Context, cfg *config.Config, registry *experiment.Registry, log *slog.Logger) (*experiment.Report, error) {
	exp, err := experiment.New(cfg, log)
	if err != nil {
		return nil, err
	}
	if err := exp.Setup(registry); err != nil {
		return nil, err
	}
	return exp.Run(ctx)
}

// RunScenario executes all steps in order and stops at the first failure.
func RunScenario(ctx context.Context, scenario *Scenario, registry *experiment.Registry, log *slog.Logger) ([]StepResult, error) {
	if log == nil {
		log = slog.New(slog.DiscardHandler)
	}
	results := make([]StepResult, 0, len(scenario.Steps))

	for i, step := range scenario.Steps {
		log.Info("scenario step", "scenario", scenario.Name, "step", i+1, "of", len(scenario.Steps), "preset", step.Preset)

		cfg, err := step.Config()
		if err != nil {
			return results, fmt.Errorf("step %d: %w", i+1, err)
		}
		report, err := run(ctx, cfg, registry, log)
		if err != nil {
			return results, fmt.Errorf("step %d: %w", i+1, err)
		}
		results = append(results, StepResult{Step: step, Config: cfg, Report: report})
	}

	return results, nil
}

// ParameterSweep runs a preset once per value of one scalar config field.
type ParameterSweep struct {
	Preset    string
	ParamName string // dt, horizon or seed
	Values    []float64
}

type SweepResult struct {
	ParamValue     float64
	TotalCost      float64
	FinalStateNorm float64
	Diverged       bool
}

func setParam(cfg *config.Config, name string, v float64) error {
	switch name {
	case "dt":
		cfg.Dt = v
	case "horizon":
		cfg.Horizon = int(v)
	case "seed":
		cfg.Seed = int64(v)
	default:
		return fmt.Errorf("parameter %s cannot be swept", name)
	}
	return nil
}

// RunSweep executes a parameter sweep. Diverged runs are reported, not
// treated as errors.
func RunSweep(ctx context.Context, sweep *ParameterSweep, registry *experiment.Registry, log *slog.Logger) ([]SweepResult, error) {
	if log == nil {
		log = slog.New(slog.DiscardHandler)
	}
	base := config.Lookup(sweep.Preset)
	if base == nil {
		return nil, fmt.Errorf("unknown preset: %s", sweep.Preset)
	}

	results := make([]SweepResult, 0, len(sweep.Values))
	for i, v := range sweep.Values {
		cfg := base.Clone()
		if err := setParam(cfg, sweep.ParamName, v); err != nil {
			return nil, err
		}

		report, err := run(ctx, cfg, registry, log)
		switch {
		case errors.Is(err, dynamo.ErrUnstable):
			results = append(results, SweepResult{ParamValue: v, Diverged: true})
		case err != nil:
			return nil, fmt.Errorf("%s=%g: %w", sweep.ParamName, v, err)
		default:
			results = append(results, SweepResult{
				ParamValue:     v,
				TotalCost:      report.Result.Total,
				FinalStateNorm: report.Metrics["final_state_norm"],
			})
		}
		log.Debug("sweep", "param", sweep.ParamName, "value", v, "done", i+1, "of", len(sweep.Values))
	}
	return results, nil
}

// MonteCarloConfig perturbs the initial state of a preset uniformly in
// [-Perturbation, Perturbation] per component.
type MonteCarloConfig struct {
	Preset       string
	Perturbation float64
	NumTrials    int
	Seed         int64
	// Bound is the largest Euclidean norm of the final state still counted
	// as stable. Zero means 1e6.
	Bound float64
}

type MonteCarloResult struct {
	TrialID    int
	InitState  []float64
	FinalState []float64
	TotalCost  float64
	Stable     bool
}

func RunMonteCarlo(ctx context.Context, mc *MonteCarloConfig, registry *experiment.Registry, log *slog.Logger) ([]MonteCarloResult, error) {
	if log == nil {
		log = slog.New(slog.DiscardHandler)
	}
	base := config.Lookup(mc.Preset)
	if base == nil {
		return nil, fmt.Errorf("unknown preset: %s", mc.Preset)
	}
	bound := mc.Bound
	if bound <= 0 {
		bound = 1e6
	}

	rng := rand.New(rand.NewSource(mc.Seed))
	x0 := base.GetInitState()
	results := make([]MonteCarloResult, 0, mc.NumTrials)

	for trial := 0; trial < mc.NumTrials; trial++ {
		cfg := base.Clone()
		cfg.InitState = make([]float64, len(x0))
		for i, v := range x0 {
			cfg.InitState[i] = v + (rng.Float64()-0.5)*2*mc.Perturbation
		}

		res := MonteCarloResult{TrialID: trial, InitState: cfg.InitState}
		report, err := run(ctx, cfg, registry, log)
		switch {
		case errors.Is(err, dynamo.ErrUnstable):
		case err != nil:
			return nil, fmt.Errorf("trial %d: %w", trial, err)
		default:
			states := report.Result.States
			final := states[len(states)-1]
			res.FinalState = append([]float64(nil), final.RawVector().Data...)
			res.TotalCost = report.Result.Total
			res.Stable = report.Metrics["final_state_norm"] <= bound && dynamo.IsFinite(final)
		}
		results = append(results, res)

		if (trial+1)%10 == 0 {
			log.Info("monte carlo", "trials", trial+1, "of", mc.NumTrials)
		}
	}

	return results, nil
}

func MonteCarloStats(results []MonteCarloResult) (stableCount int, unstableCount int) {
	for _, r := range results {
		if r.Stable {
			stableCount++
		} else {
			unstableCount++
		}
	}
	return
}
