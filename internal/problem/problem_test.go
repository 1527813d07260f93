package problem

import (
	"bytes"
	"log/slog"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"

	"github.com/san-kum/dynopt/internal/actions"
	"github.com/san-kum/dynopt/internal/dynamo"
)

// identityLQR has A = B = I, Q = R = I, N = 0 and no drift.
func identityLQR(t *testing.T, n int) *actions.LQR {
	t.Helper()
	m, err := actions.NewDriftFreeLQR(dynamo.Identity(n, n), dynamo.Identity(n, n),
		dynamo.Identity(n, n), dynamo.Identity(n, n), mat.NewDense(n, n, nil))
	require.NoError(t, err)
	return m
}

func newProblem(t *testing.T, horizon int, opts ...Option) *Problem {
	t.Helper()
	m := identityLQR(t, 2)
	running := make([]actions.Model, horizon)
	for k := range running {
		running[k] = m
	}
	p, err := New(mat.NewVecDense(2, []float64{1, -1}), running, m, opts...)
	require.NoError(t, err)
	return p
}

func constantControls(horizon int, u ...float64) []*mat.VecDense {
	us := make([]*mat.VecDense, horizon)
	for k := range us {
		us[k] = mat.NewVecDense(len(u), append([]float64(nil), u...))
	}
	return us
}

func TestRollout_IdentityLQR(t *testing.T) {
	p := newProblem(t, 3)
	us := constantControls(3, 0.5, 1)

	xs, err := p.Rollout(us)
	require.NoError(t, err)
	require.Len(t, xs, 4)
	for k := 0; k < 3; k++ {
		want := mat.NewVecDense(2, nil)
		want.AddVec(xs[k], us[k])
		assert.True(t, mat.EqualApprox(xs[k+1], want, 1e-15), "node %d", k)
	}
	assert.Equal(t, []float64{2.5, 2}, xs[3].RawVector().Data)

	res := p.Summary()
	require.Len(t, res.Costs, 4)
	// ½|x|² + ½|u|² at node 0 with x = (1, -1), u = (0.5, 1).
	assert.InDelta(t, 1+0.625, res.Costs[0], 1e-15)
	// terminal: ½|(2.5, 2)|²
	assert.InDelta(t, 5.125, res.Costs[3], 1e-15)

	total := 0.0
	for _, c := range res.Costs {
		total += c
	}
	assert.InDelta(t, total, res.Total, 1e-12)
}

func TestCalc_MatchesRollout(t *testing.T) {
	p := newProblem(t, 4)
	us := constantControls(4, -0.2, 0.3)
	xs, err := p.Rollout(us)
	require.NoError(t, err)
	rolled := p.Summary().Total

	total, err := p.Calc(xs, us)
	require.NoError(t, err)
	assert.InDelta(t, rolled, total, 1e-12)

	require.NoError(t, p.CalcDiff(xs, us))
	for k := 0; k < p.T(); k++ {
		c := p.RunningData(k).Common()
		assert.True(t, mat.Equal(c.Fx, dynamo.Identity(2, 2)))
		assert.True(t, mat.Equal(c.Lx, xs[k]))
		assert.True(t, mat.Equal(c.Lu, us[k]))
	}
	assert.True(t, mat.Equal(p.TerminalData().Common().Lx, xs[4]))
}

func TestProblem_Rejects(t *testing.T) {
	m := identityLQR(t, 2)
	other := identityLQR(t, 3)

	_, err := New(mat.NewVecDense(3, nil), nil, m)
	assert.ErrorIs(t, err, dynamo.ErrInvalidArgument)

	_, err = New(mat.NewVecDense(2, nil), []actions.Model{m, other}, m)
	var stepErr *dynamo.StepError
	require.ErrorAs(t, err, &stepErr)
	assert.Equal(t, 1, stepErr.Node)
	assert.ErrorIs(t, err, dynamo.ErrInvalidArgument)

	_, err = New(mat.NewVecDense(2, nil), nil, nil)
	assert.ErrorIs(t, err, dynamo.ErrInvalidArgument)

	p := newProblem(t, 2)
	_, err = p.Rollout(constantControls(1, 0, 0))
	assert.ErrorIs(t, err, dynamo.ErrInvalidArgument)

	us := constantControls(2, 0, 0)
	us[1] = mat.NewVecDense(3, nil)
	_, err = p.Rollout(us)
	require.ErrorAs(t, err, &stepErr)
	assert.Equal(t, 1, stepErr.Node)

	_, err = p.Calc(make([]*mat.VecDense, 2), constantControls(2, 0, 0))
	assert.ErrorIs(t, err, dynamo.ErrInvalidArgument)
}

func TestRollout_Diverges(t *testing.T) {
	p := newProblem(t, 3)
	us := constantControls(3, 0, 0)
	us[1].SetVec(0, math.Inf(1))

	_, err := p.Rollout(us)
	var stepErr *dynamo.StepError
	require.ErrorAs(t, err, &stepErr)
	assert.Equal(t, 1, stepErr.Node)
	assert.ErrorIs(t, err, dynamo.ErrUnstable)
}

func TestProblem_Logger(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))
	p := newProblem(t, 2, WithLogger(logger))

	_, err := p.Rollout(constantControls(2, 1, 1))
	require.NoError(t, err)
	assert.Contains(t, buf.String(), "msg=rollout")
	assert.Contains(t, buf.String(), "nodes=2")
}

func TestResult_Matrices(t *testing.T) {
	p := newProblem(t, 2)
	_, err := p.Rollout(constantControls(2, 1, 0))
	require.NoError(t, err)

	res := p.Summary()
	states := res.StateMatrix()
	r, c := states.Dims()
	assert.Equal(t, 3, r)
	assert.Equal(t, 2, c)
	assert.Equal(t, []float64{3, -1}, mat.Row(nil, 2, states))

	r, c = res.ControlMatrix().Dims()
	assert.Equal(t, 2, r)
	assert.Equal(t, 2, c)
	assert.Nil(t, Result{}.ControlMatrix())
}
