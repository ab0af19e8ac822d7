// Package cmd wires BAMM's command-line entry point with
// github.com/spf13/cobra, the way the teacher's own cmd package builds
// its command tree (see cmd/classical.go, cmd/nodes.go in the example
// pack) generalized from "one subcommand per tree statistic" to "one
// subcommand that runs the rjMCMC sampler to completion".
package cmd

import (
	"github.com/spf13/cobra"

	"github.com/altingia/bamm/io"
)

var rootCmd = &cobra.Command{
	Use:   "bamm",
	Short: "Bayesian rjMCMC sampler for macroevolutionary rate shifts",
	Long: `bamm fits a reversible-jump MCMC model of rate-shift events on a
time-calibrated phylogenetic tree, sampling jointly over the number and
position of shifts, their regime parameters, and the underlying Poisson
event rate.`,
}

// Execute runs the root command, exiting non-zero on any command
// error (spec.md §6 "Exit codes").
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		io.ExitWithMessage(err)
	}
}
