package storage

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"

	"github.com/san-kum/dynopt/internal/config"
	"github.com/san-kum/dynopt/internal/problem"
)

func sampleResult() problem.Result {
	return problem.Result{
		States: []*mat.VecDense{
			mat.NewVecDense(2, []float64{1.0, 0.0}),
			mat.NewVecDense(2, []float64{0.9, -0.1}),
		},
		Controls: []*mat.VecDense{mat.NewVecDense(1, []float64{-0.25})},
		Costs:    []float64{0.53125, 0.41},
		Total:    0.94125,
	}
}

func newTestStore(t *testing.T) *Store {
	t.Helper()
	st := New(t.TempDir())
	require.NoError(t, st.Init())
	clock := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	st.now = func() time.Time {
		clock = clock.Add(time.Second)
		return clock
	}
	return st
}

func TestStoreSaveLoad(t *testing.T) {
	st := newTestStore(t)
	res := sampleResult()
	meta := NewMetadata(config.DefaultConfig(), res, map[string]float64{"control_effort": 0.25})

	runID, err := st.Save(meta, res)
	require.NoError(t, err)
	assert.NotEmpty(t, runID)

	loaded, err := st.Load(runID)
	require.NoError(t, err)
	assert.Equal(t, "lqr", loaded.Model)
	assert.Equal(t, 2, loaded.NX)
	assert.Equal(t, 1, loaded.NU)
	assert.Equal(t, 0.25, loaded.Metrics["control_effort"])
	assert.Equal(t, res.Total, loaded.TotalCost)
}

func TestStoreLoadTrajectory(t *testing.T) {
	st := newTestStore(t)
	res := sampleResult()
	runID, err := st.Save(NewMetadata(config.DefaultConfig(), res, nil), res)
	require.NoError(t, err)

	traj, err := st.LoadTrajectory(runID)
	require.NoError(t, err)

	want := &Trajectory{
		States:   [][]float64{{1, 0}, {0.9, -0.1}},
		Controls: [][]float64{{-0.25}},
		Costs:    []float64{0.53125, 0.41},
	}
	assert.Equal(t, want, traj)
	assert.Equal(t, []float64{0, -0.1}, traj.Column(1))
}

func TestStoreList(t *testing.T) {
	st := newTestStore(t)

	runs, err := st.List()
	require.NoError(t, err)
	assert.Empty(t, runs)

	res := sampleResult()
	first, err := st.Save(NewMetadata(config.DefaultConfig(), res, nil), res)
	require.NoError(t, err)
	second, err := st.Save(NewMetadata(config.DefaultConfig(), res, nil), res)
	require.NoError(t, err)
	require.NoError(t, os.MkdirAll(filepath.Join(st.baseDir, "junk"), 0755))

	runs, err = st.List()
	require.NoError(t, err)
	require.Len(t, runs, 2)
	assert.Equal(t, first, runs[0].ID)
	assert.Equal(t, second, runs[1].ID)
}

func TestStoreList_MissingDir(t *testing.T) {
	st := New(filepath.Join(t.TempDir(), "missing"))
	runs, err := st.List()
	require.NoError(t, err)
	assert.Empty(t, runs)
}

func TestStoreLoad_NotFound(t *testing.T) {
	st := newTestStore(t)
	_, err := st.Load("nonexistent")
	assert.Error(t, err)
	_, err = st.LoadTrajectory("nonexistent")
	assert.Error(t, err)
}

func TestExportJSON(t *testing.T) {
	var buf bytes.Buffer
	res := sampleResult()
	require.NoError(t, ExportJSON(&buf, NewMetadata(config.DefaultConfig(), res, nil), res))

	var data ExportData
	require.NoError(t, json.Unmarshal(buf.Bytes(), &data))
	assert.Equal(t, "lqr", data.Model)
	assert.Len(t, data.States, 2)
	assert.Equal(t, -0.25, data.Controls[0][0])
}
