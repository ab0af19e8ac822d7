package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func writeControlFile(t *testing.T, body string) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "control.txt")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestLoadValidControlFile(t *testing.T) {
	path := writeControlFile(t, `
# a comment
treefile = tree.nwk
numberGenerations = 5000
seed = 42
lambdaInit0 = 0.2
`)
	s, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, "tree.nwk", s.TreeFile)
	require.EqualValues(t, 5000, s.NumberGenerations)
	require.EqualValues(t, 42, s.Seed)
	require.InDelta(t, 0.2, s.LambdaInit0, 1e-9)
}

func TestLoadUnknownKey(t *testing.T) {
	path := writeControlFile(t, "treefile = tree.nwk\nbogusKey = 1\n")
	_, err := Load(path)
	require.Error(t, err)
	require.Contains(t, err.Error(), "bogusKey")
}

func TestLoadDuplicateKey(t *testing.T) {
	path := writeControlFile(t, "treefile = tree.nwk\ntreefile = other.nwk\n")
	_, err := Load(path)
	require.Error(t, err)
	require.Contains(t, err.Error(), "duplicate")
}

func TestLoadMissingTreefile(t *testing.T) {
	path := writeControlFile(t, "numberGenerations = 100\n")
	_, err := Load(path)
	require.Error(t, err)
}

func TestLoadUpdateRateKey(t *testing.T) {
	path := writeControlFile(t, "treefile = tree.nwk\nupdateRateLambda0 = 2\n")
	_, err := Load(path)
	require.Error(t, err) // updateRateLambda0 isn't one of the registered kinds

	path2 := writeControlFile(t, "treefile = tree.nwk\nupdateRatelambdainit = 2\n")
	s, err := Load(path2)
	require.NoError(t, err)
	require.InDelta(t, 2.0, s.UpdateRates["lambdainit"], 1e-9)
}
