package cmd

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/altingia/bamm/config"
	"github.com/altingia/bamm/io"
	"github.com/altingia/bamm/mcmc"
	"github.com/altingia/bamm/model"
	"github.com/altingia/bamm/rng"
	"github.com/altingia/bamm/traits"
	"github.com/altingia/bamm/tree"
)

var runCmd = &cobra.Command{
	Use:   "run <control-file>",
	Short: "Load a control file and run the rjMCMC sampler to completion",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runControlFile(args[0])
	},
}

func init() {
	rootCmd.AddCommand(runCmd)
}

// runControlFile loads, validates, and executes one BAMM analysis
// end to end (spec.md §6's external interfaces), following the
// teacher's RunE-returns-error convention instead of calling
// io.ExitWithMessage directly inside the command body.
func runControlFile(path string) error {
	s, err := config.Load(path)
	if err != nil {
		return err
	}

	nwk, err := readFile(s.TreeFile)
	if err != nil {
		return err
	}
	tr, err := tree.ParseNewick(nwk)
	if err != nil {
		return fmt.Errorf("bamm: %w", err)
	}
	if s.UseGlobalSamplingPct {
		tr.SetGlobalSamplingFraction(s.GlobalSamplingFrac)
	}

	var tipValues map[tree.NodeID]float64
	if s.ModelType == config.Trait {
		values, err := traits.Load(s.TraitFile)
		if err != nil {
			return err
		}
		names := make([]string, 0, len(values))
		for _, n := range tr.Tips() {
			names = append(names, tr.TipName(n))
		}
		if err := traits.Validate(names, values); err != nil {
			return err
		}
		tipValues = make(map[tree.NodeID]float64, len(values))
		for _, n := range tr.Tips() {
			tipValues[n] = values[tr.TipName(n)]
		}
	}

	rngSrc := rng.New(s.Seed)
	m, err := model.New(s, tr, tipValues, rngSrc)
	if err != nil {
		return fmt.Errorf("bamm: %w", err)
	}

	if s.LoadEventData {
		records, err := io.ReadEventSnapshot(s.EventDataInfile, s.ModelType == config.Trait)
		if err != nil {
			return err
		}
		if err := m.LoadSnapshot(records); err != nil {
			return fmt.Errorf("bamm: %w", err)
		}
	}

	d, err := mcmc.New(m, s)
	if err != nil {
		return fmt.Errorf("bamm: %w", err)
	}
	return d.Run(context.Background())
}

func readFile(path string) (string, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("bamm: %w", err)
	}
	return string(b), nil
}
