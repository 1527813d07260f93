package models

import (
	"math"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"

	"github.com/san-kum/dynopt/internal/actions"
	"github.com/san-kum/dynopt/internal/dynamo"
)

func TestLQR_MatchesActionAlgebra(t *testing.T) {
	rng := rand.New(rand.NewSource(4))
	discrete, err := actions.RandomLQR(rng, 3, 2)
	require.NoError(t, err)
	m := FromAction(discrete)

	x := mat.NewVecDense(3, []float64{0.1, -0.4, 2})
	u := mat.NewVecDense(2, []float64{1, -1})

	data := m.CreateData()
	require.NoError(t, m.Calc(data, x, u))
	require.NoError(t, m.CalcDiff(data, x, u))

	ad := discrete.CreateData()
	require.NoError(t, discrete.Calc(ad, x, u))
	require.NoError(t, discrete.CalcDiff(ad, x, u))

	assert.True(t, mat.Equal(data.Xdot, ad.Common().Xnext))
	assert.Equal(t, ad.Common().Cost, data.Cost)
	assert.True(t, mat.Equal(data.Fx, discrete.A()))
	assert.True(t, mat.Equal(data.Fu, discrete.B()))
	assert.True(t, mat.Equal(data.Lx, ad.Common().Lx))
	assert.True(t, mat.Equal(data.Lu, ad.Common().Lu))
	assert.True(t, mat.Equal(data.Lxu, discrete.N()))

	require.NoError(t, m.CalcTerminal(data, x))
	require.NoError(t, discrete.CalcTerminal(ad, x))
	assert.Equal(t, ad.Common().Cost, data.Cost)
}

func TestLQR_Rejects(t *testing.T) {
	negQ := mat.NewDense(1, 1, []float64{-1})
	_, err := NewLQR(dynamo.Identity(1, 1), dynamo.Identity(1, 1), negQ, dynamo.Identity(1, 1),
		mat.NewDense(1, 1, nil), mat.NewVecDense(1, nil), mat.NewVecDense(1, nil), mat.NewVecDense(1, nil))
	require.ErrorIs(t, err, dynamo.ErrInvalidArgument)

	m, err := NewLQR(dynamo.Identity(2, 2), dynamo.Identity(2, 1), dynamo.Identity(2, 2), dynamo.Identity(1, 1),
		mat.NewDense(2, 1, nil), mat.NewVecDense(2, nil), mat.NewVecDense(2, nil), mat.NewVecDense(1, nil))
	require.NoError(t, err)
	require.ErrorIs(t, m.Calc(m.CreateData(), mat.NewVecDense(3, nil), mat.NewVecDense(1, nil)), dynamo.ErrInvalidArgument)
	require.ErrorIs(t, m.Calc(NewData(3, 3), mat.NewVecDense(2, nil), mat.NewVecDense(1, nil)), dynamo.ErrInvalidArgument)
}

func TestUnicycle_CalcDiffMatchesFiniteDifferences(t *testing.T) {
	m, err := NewUnicycle([2]float64{2, 0.5})
	require.NoError(t, err)

	x := mat.NewVecDense(3, []float64{0.5, 1, 0.8})
	u := mat.NewVecDense(2, []float64{1.2, -0.3})
	data := m.CreateData()
	require.NoError(t, m.CalcDiff(data, x, u))

	const h = 1e-6
	plus, minus := m.CreateData(), m.CreateData()
	for j := 0; j < 3; j++ {
		xp := mat.VecDenseCopyOf(x)
		xm := mat.VecDenseCopyOf(x)
		xp.SetVec(j, x.AtVec(j)+h)
		xm.SetVec(j, x.AtVec(j)-h)
		require.NoError(t, m.Calc(plus, xp, u))
		require.NoError(t, m.Calc(minus, xm, u))
		for i := 0; i < 3; i++ {
			fd := (plus.Xdot.AtVec(i) - minus.Xdot.AtVec(i)) / (2 * h)
			assert.InDelta(t, fd, data.Fx.At(i, j), 1e-6)
		}
		assert.InDelta(t, (plus.Cost-minus.Cost)/(2*h), data.Lx.AtVec(j), 1e-6)
	}
	for j := 0; j < 2; j++ {
		up := mat.VecDenseCopyOf(u)
		um := mat.VecDenseCopyOf(u)
		up.SetVec(j, u.AtVec(j)+h)
		um.SetVec(j, u.AtVec(j)-h)
		require.NoError(t, m.Calc(plus, x, up))
		require.NoError(t, m.Calc(minus, x, um))
		for i := 0; i < 3; i++ {
			fd := (plus.Xdot.AtVec(i) - minus.Xdot.AtVec(i)) / (2 * h)
			assert.InDelta(t, fd, data.Fu.At(i, j), 1e-6)
		}
		assert.InDelta(t, (plus.Cost-minus.Cost)/(2*h), data.Lu.AtVec(j), 1e-6)
	}
}

func TestUnicycle_Calc(t *testing.T) {
	m, err := NewUnicycle([2]float64{1, 1})
	require.NoError(t, err)

	data := m.CreateData()
	require.NoError(t, m.Calc(data, mat.NewVecDense(3, []float64{0, 0, math.Pi}), mat.NewVecDense(2, []float64{2, 0.5})))
	assert.InDelta(t, -2.0, data.Xdot.AtVec(0), 1e-12)
	assert.InDelta(t, 0.0, data.Xdot.AtVec(1), 1e-12)
	assert.InDelta(t, 0.5, data.Xdot.AtVec(2), 1e-12)

	_, err = NewUnicycle([2]float64{-1, 0})
	require.ErrorIs(t, err, dynamo.ErrInvalidArgument)
}
