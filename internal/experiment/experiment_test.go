package experiment

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"

	"github.com/san-kum/dynopt/internal/config"
	"github.com/san-kum/dynopt/internal/integrators"
)

func setup(t *testing.T, cfg *config.Config) *Experiment {
	t.Helper()
	e, err := New(cfg, nil)
	require.NoError(t, err)
	require.NoError(t, e.Setup(NewRegistry()))
	return e
}

func TestRegistry_Lists(t *testing.T) {
	r := NewRegistry()
	assert.Equal(t, []string{"lqr", "unicycle"}, r.ListModels())
	assert.Equal(t, []string{"one", "two_rk4", "zero"}, r.ListControls())
	assert.Equal(t, []string{"euler", "rk4"}, r.ListIntegrators())

	for _, name := range r.ListModels() {
		assert.Contains(t, config.Models, name)
	}
	for _, name := range r.ListControls() {
		assert.Contains(t, config.Parametrizations, name)
	}
}

func TestRegistry_Unknown(t *testing.T) {
	r := NewRegistry()
	_, err := r.GetAction("pendulum", config.DefaultConfig(), nil)
	assert.ErrorIs(t, err, ErrUnknown)
	_, err = r.GetControl("cubic", 2)
	assert.ErrorIs(t, err, ErrUnknown)
	_, err = r.GetIntegrator("verlet", nil, nil, 0.1)
	assert.ErrorIs(t, err, ErrUnknown)
}

func TestExperiment_AllPresets(t *testing.T) {
	for _, name := range config.Names() {
		t.Run(name, func(t *testing.T) {
			e := setup(t, config.Lookup(name))
			report, err := e.Run(context.Background())
			require.NoError(t, err)

			res := report.Result
			assert.Len(t, res.States, e.Config().Horizon+1)
			assert.Len(t, res.Controls, e.Config().Horizon)
			assert.Len(t, res.Costs, e.Config().Horizon+1)
			assert.Contains(t, report.Metrics, "control_effort")
			assert.Equal(t, e.Model().NU(), res.Controls[0].Len())
		})
	}
}

func TestExperiment_SmallLQR(t *testing.T) {
	e := setup(t, config.Lookup("lqr/small"))
	report, err := e.Run(context.Background())
	require.NoError(t, err)

	// A = B = I without drift: x_k = x0 + k·u.
	final := report.Result.States[10]
	assert.InDeltaSlice(t, []float64{0, 0}, final.RawVector().Data, 1e-12)
}

func TestExperiment_ControlsFromParams(t *testing.T) {
	e := setup(t, config.Lookup("integrated/rk4"))
	require.IsType(t, &integrators.RK4{}, e.Model())

	// PolyTwoRK4 repeats w over its three control points.
	want := mat.NewVecDense(6, []float64{0.5, -0.2, 0.5, -0.2, 0.5, -0.2})
	assert.True(t, mat.Equal(want, e.Controls()[0]))
}

func TestExperiment_SeedIsDeterministic(t *testing.T) {
	a := setup(t, config.Lookup("lqr/random"))
	b := setup(t, config.Lookup("lqr/random"))
	ra, err := a.Run(context.Background())
	require.NoError(t, err)
	rb, err := b.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, ra.Result.Total, rb.Result.Total)
}

func TestExperiment_Check(t *testing.T) {
	for _, name := range []string{"lqr/random", "integrated/euler"} {
		e := setup(t, config.Lookup(name))
		devs, err := e.Check()
		require.NoError(t, err)
		require.NotEmpty(t, devs)
		for _, d := range devs {
			assert.Less(t, d.Value, 1e-4, "%s %s", name, d.Name)
		}
	}
}

func TestExperiment_NotSetup(t *testing.T) {
	e, err := New(config.DefaultConfig(), nil)
	require.NoError(t, err)
	_, err = e.Run(context.Background())
	assert.Error(t, err)
	_, err = e.Check()
	assert.Error(t, err)

	cfg := config.DefaultConfig()
	cfg.Horizon = 0
	_, err = New(cfg, nil)
	assert.ErrorIs(t, err, config.ErrInvalidConfig)
}

func TestExperiment_Cancelled(t *testing.T) {
	e := setup(t, config.DefaultConfig())
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := e.Run(ctx)
	assert.ErrorIs(t, err, context.Canceled)
}
