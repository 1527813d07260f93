package main

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSweepRunsWithDefaultFlags(t *testing.T) {
	root := newRootCmd()
	root.SetArgs([]string{"--data", t.TempDir(), "--log-level", "error", "sweep", "lqr/small"})
	require.NoError(t, root.Execute())

	assert.Equal(t, 0.01, sweepMin)
	assert.Equal(t, 0.2, sweepMax)
	assert.Equal(t, 10, sweepSteps)
}

func TestCommandsKeepTheirOwnDefaults(t *testing.T) {
	root := newRootCmd()

	tests := []struct {
		cmd, flag, want string
	}{
		{"sweep", "min", "0.01"},
		{"sweep", "steps", "10"},
		{"search", "min", "-1"},
		{"search", "steps", "9"},
		{"montecarlo", "seed", "0"},
		{"run", "seed", "0"},
	}
	for _, tt := range tests {
		t.Run(tt.cmd+"/"+tt.flag, func(t *testing.T) {
			cmd, _, err := root.Find([]string{tt.cmd})
			require.NoError(t, err)
			f := cmd.Flags().Lookup(tt.flag)
			require.NotNil(t, f)
			assert.Equal(t, tt.want, f.DefValue)
		})
	}

	random, _, err := root.Find([]string{"random"})
	require.NoError(t, err)
	assert.NotZero(t, randomSeed)
	assert.NotEqual(t, "0", random.Flags().Lookup("seed").DefValue, "random should default to a time-based seed")
}
