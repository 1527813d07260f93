package actions

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"

	"github.com/san-kum/dynopt/internal/dynamo"
)

func TestUnicycle_Calc(t *testing.T) {
	m := NewUnicycle()
	data := m.CreateData()

	x := mat.NewVecDense(3, []float64{1, 2, math.Pi / 2})
	u := mat.NewVecDense(2, []float64{3, 0.5})
	require.NoError(t, m.Calc(data, x, u))

	d := data.Common()
	assert.InDelta(t, 1.0, d.Xnext.AtVec(0), 1e-12)
	assert.InDelta(t, 2.3, d.Xnext.AtVec(1), 1e-12)
	assert.InDelta(t, math.Pi/2+0.05, d.Xnext.AtVec(2), 1e-12)

	stateNorm2 := 1 + 4 + math.Pi*math.Pi/4
	want := 0.5*100*stateNorm2 + 0.5*(9+0.25)
	assert.InDelta(t, want, d.Cost, 1e-12)
}

func TestUnicycle_Terminal(t *testing.T) {
	m := NewUnicycle()
	data := m.CreateData()
	x := mat.NewVecDense(3, []float64{1, 0, 0})

	require.NoError(t, m.CalcTerminal(data, x))
	assert.True(t, mat.Equal(x, data.Common().Xnext))
	assert.InDelta(t, 50.0, data.Common().Cost, 1e-12)
}

func TestUnicycle_NumDiffAgrees(t *testing.T) {
	m, err := NewUnicycleWithParams(0.2, [2]float64{3, 0.5})
	require.NoError(t, err)

	for _, theta := range []float64{0, 0.7, -2.1, math.Pi} {
		x := mat.NewVecDense(3, []float64{0.3, -1.2, theta})
		u := mat.NewVecDense(2, []float64{1.5, -0.4})
		assertNumDiffAgrees(t, m, x, u)
	}
}

func TestUnicycle_Rejects(t *testing.T) {
	_, err := NewUnicycleWithParams(0, [2]float64{1, 1})
	require.ErrorIs(t, err, dynamo.ErrInvalidArgument)
	_, err = NewUnicycleWithParams(0.1, [2]float64{-1, 1})
	require.ErrorIs(t, err, dynamo.ErrInvalidArgument)

	m := NewUnicycle()
	data := m.CreateData()
	require.ErrorIs(t, m.Calc(data, mat.NewVecDense(2, nil), mat.NewVecDense(2, nil)), dynamo.ErrInvalidArgument)
	require.ErrorIs(t, m.CalcDiff(data, mat.NewVecDense(3, nil), mat.NewVecDense(3, nil)), dynamo.ErrInvalidArgument)

	lqr, err := NewDefaultLQR(3, 2, true)
	require.NoError(t, err)
	assert.False(t, m.CheckData(lqr.CreateData()))
	require.ErrorIs(t, m.Calc(lqr.CreateData(), mat.NewVecDense(3, nil), mat.NewVecDense(2, nil)), dynamo.ErrInvalidArgument)
}

func TestNumDiff_CheckData(t *testing.T) {
	nd := NewNumDiff(NewUnicycle())
	assert.True(t, nd.CheckData(nd.CreateData()))
	assert.False(t, nd.CheckData(NewUnicycle().CreateData()))

	lqr, err := NewDefaultLQR(3, 2, true)
	require.NoError(t, err)
	assert.False(t, nd.CheckData(NewNumDiff(lqr).CreateData()))
	assert.Equal(t, 3, nd.NX())
	assert.Equal(t, 2, nd.NU())
}
