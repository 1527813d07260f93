package config

import (
	"errors"
	"fmt"
	"os"
	"slices"

	"gopkg.in/yaml.v3"
)

const (
	DefaultDt            = 0.1
	DefaultHorizon       = 20
	DefaultNX            = 2
	DefaultNU            = 1
	DefaultStateWeight   = 10.0
	DefaultControlWeight = 1.0
)

// Model, integrator and control parametrization names understood by the
// experiment registry.
var (
	Models           = []string{"lqr", "unicycle"}
	Integrators      = []string{"none", "euler", "rk4"}
	Parametrizations = []string{"zero", "one", "two_rk4"}
)

var ErrInvalidConfig = errors.New("config: invalid")

type Config struct {
	Model      string    `yaml:"model"`
	Integrator string    `yaml:"integrator"`
	Control    string    `yaml:"control"`
	Dt         float64   `yaml:"dt"`
	Horizon    int       `yaml:"horizon"`
	Seed       int64     `yaml:"seed"`
	InitState  []float64 `yaml:"init_state,omitempty"`
	// InitControl is the constant instantaneous control used for the rollout.
	InitControl []float64      `yaml:"init_control,omitempty"`
	LQR         LQRConfig      `yaml:"lqr"`
	Unicycle    UnicycleConfig `yaml:"unicycle"`
}

type LQRConfig struct {
	NX        int  `yaml:"nx"`
	NU        int  `yaml:"nu"`
	DriftFree bool `yaml:"drift_free"`
	// Random draws A, B, Q, R, N, f, q, r from Seed instead of using the
	// identity defaults.
	Random bool `yaml:"random"`
}

type UnicycleConfig struct {
	StateWeight   float64 `yaml:"state_weight"`
	ControlWeight float64 `yaml:"control_weight"`
}

func DefaultConfig() *Config {
	return &Config{
		Model:      "lqr",
		Integrator: "none",
		Control:    "zero",
		Dt:         DefaultDt,
		Horizon:    DefaultHorizon,
		LQR: LQRConfig{
			NX:        DefaultNX,
			NU:        DefaultNU,
			DriftFree: true,
		},
		Unicycle: UnicycleConfig{
			StateWeight:   DefaultStateWeight,
			ControlWeight: DefaultControlWeight,
		},
	}
}

func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	cfg := DefaultConfig()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	return cfg, nil
}

func Save(path string, cfg *Config) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}

// NX is the state dimension implied by the model.
func (c *Config) NX() int {
	if c.Model == "unicycle" {
		return 3
	}
	return c.LQR.NX
}

// NW is the dimension of the instantaneous control.
func (c *Config) NW() int {
	if c.Model == "unicycle" {
		return 2
	}
	return c.LQR.NU
}

func (c *Config) Validate() error {
	invalid := func(format string, args ...any) error {
		return fmt.Errorf("%w: %s", ErrInvalidConfig, fmt.Sprintf(format, args...))
	}
	if !slices.Contains(Models, c.Model) {
		return invalid("unknown model %q (want one of %v)", c.Model, Models)
	}
	if !slices.Contains(Integrators, c.Integrator) {
		return invalid("unknown integrator %q (want one of %v)", c.Integrator, Integrators)
	}
	if !slices.Contains(Parametrizations, c.Control) {
		return invalid("unknown control parametrization %q (want one of %v)", c.Control, Parametrizations)
	}
	if c.Integrator == "none" && c.Control != "zero" {
		return invalid("control parametrization %q needs an integrator", c.Control)
	}
	if c.Dt <= 0 {
		return invalid("dt must be positive, got %g", c.Dt)
	}
	if c.Horizon < 1 {
		return invalid("horizon must be at least 1, got %d", c.Horizon)
	}
	if c.Model == "lqr" && (c.LQR.NX < 1 || c.LQR.NU < 1) {
		return invalid("lqr dimensions must be at least 1, got nx=%d nu=%d", c.LQR.NX, c.LQR.NU)
	}
	if c.Model == "unicycle" && (c.Unicycle.StateWeight < 0 || c.Unicycle.ControlWeight < 0) {
		return invalid("unicycle weights must be non-negative")
	}
	if len(c.InitState) > 0 && len(c.InitState) != c.NX() {
		return invalid("init_state has %d entries (it should be %d)", len(c.InitState), c.NX())
	}
	if len(c.InitControl) > 0 && len(c.InitControl) != c.NW() {
		return invalid("init_control has %d entries (it should be %d)", len(c.InitControl), c.NW())
	}
	return nil
}

// GetInitState returns the initial state, defaulting to all ones.
func (c *Config) GetInitState() []float64 {
	if len(c.InitState) > 0 {
		return slices.Clone(c.InitState)
	}
	x0 := make([]float64, c.NX())
	for i := range x0 {
		x0[i] = 1
	}
	return x0
}

// GetInitControl returns the rollout control, defaulting to zero.
func (c *Config) GetInitControl() []float64 {
	if len(c.InitControl) > 0 {
		return slices.Clone(c.InitControl)
	}
	return make([]float64, c.NW())
}

// Clone returns a deep copy of c.
func (c *Config) Clone() *Config {
	cp := *c
	cp.InitState = slices.Clone(c.InitState)
	cp.InitControl = slices.Clone(c.InitControl)
	return &cp
}
