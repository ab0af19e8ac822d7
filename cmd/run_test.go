package cmd

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestRunControlFileEndToEnd(t *testing.T) {
	dir := t.TempDir()
	treePath := filepath.Join(dir, "tree.nwk")
	require.NoError(t, os.WriteFile(treePath, []byte("(A:1,B:1);"), 0o644))

	controlPath := filepath.Join(dir, "control.txt")
	outName := filepath.Join(dir, "out")
	control := "treefile = " + treePath + "\n" +
		"numberGenerations = 50\n" +
		"seed = 1\n" +
		"mcmcWriteFreq = 10\n" +
		"eventDataWriteFreq = 0\n" +
		"acceptWriteFreq = 0\n" +
		"branchRatesWriteFreq = 0\n" +
		"outName = " + outName + "\n"
	require.NoError(t, os.WriteFile(controlPath, []byte(control), 0o644))

	require.NoError(t, runControlFile(controlPath))

	info, err := os.Stat(outName + "_mcmc_out.txt")
	require.NoError(t, err)
	require.Greater(t, info.Size(), int64(0))
}

func TestRunControlFileRejectsUnknownKey(t *testing.T) {
	dir := t.TempDir()
	controlPath := filepath.Join(dir, "control.txt")
	require.NoError(t, os.WriteFile(controlPath, []byte("bogusKey = 1\n"), 0o644))

	err := runControlFile(controlPath)
	require.Error(t, err)
}
