package mcmc

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/altingia/bamm/config"
	"github.com/altingia/bamm/model"
	"github.com/altingia/bamm/rng"
	"github.com/altingia/bamm/tree"
	"github.com/stretchr/testify/require"
)

func TestDriverRunWritesOutputsAtCadence(t *testing.T) {
	tr, err := tree.ParseNewick("(A:1,B:1);")
	require.NoError(t, err)
	tr.SetGlobalSamplingFraction(1.0)

	dir := t.TempDir()
	s := config.Default()
	s.TreeFile = "unused.nwk"
	s.NumberGenerations = 20
	s.MCMCWriteFreq = 5
	s.EventDataWriteFreq = 10
	s.AcceptWriteFreq = 10
	s.BranchRatesWriteFreq = 0
	s.OutName = filepath.Join(dir, "run1")

	m, err := model.New(s, tr, nil, rng.New(11))
	require.NoError(t, err)

	d, err := New(m, s)
	require.NoError(t, err)
	require.NoError(t, d.Run(context.Background()))

	require.Equal(t, int64(20), m.Generation())

	info, err := os.Stat(s.OutName + "_mcmc_out.txt")
	require.NoError(t, err)
	require.Greater(t, info.Size(), int64(0))

	info, err = os.Stat(s.OutName + "_event_data.txt")
	require.NoError(t, err)
	require.Greater(t, info.Size(), int64(0))
}

func TestDriverRunRespectsContextCancellation(t *testing.T) {
	tr, err := tree.ParseNewick("(A:1,B:1);")
	require.NoError(t, err)
	tr.SetGlobalSamplingFraction(1.0)

	dir := t.TempDir()
	s := config.Default()
	s.TreeFile = "unused.nwk"
	s.NumberGenerations = 1_000_000
	s.MCMCWriteFreq = 0
	s.EventDataWriteFreq = 0
	s.AcceptWriteFreq = 0
	s.OutName = filepath.Join(dir, "run2")

	m, err := model.New(s, tr, nil, rng.New(5))
	require.NoError(t, err)
	d, err := New(m, s)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err = d.Run(ctx)
	require.ErrorIs(t, err, context.Canceled)
	require.Less(t, m.Generation(), s.NumberGenerations)
}
