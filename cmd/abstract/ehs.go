package main

import (
	"fmt"
	"os"
	"time"

	"github.com/TrevorS/abstraction/ehs"
	"github.com/TrevorS/abstraction/equity"
	"github.com/pterm/pterm"
	"github.com/spf13/cobra"
)

func newEHSCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "ehs",
		Short: "Generate the expected hand strength table",
		Long: `Generate the equity of every hand against a random hand for each
configured stage and write the stages, in order, to one table file of
little-endian float64 values. An existing table file is never overwritten.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.runEHS(cmd)
		},
	}
}

func (a *app) runEHS(cmd *cobra.Command) (err error) {
	ctx := cmd.Context()
	stages := a.cfg.EHSStages()
	sizes, err := ehs.Sizes(stages)
	if err != nil {
		return err
	}

	path := a.cfg.Output.Table
	f, err := ehs.CreateTable(path)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := f.Close(); err == nil {
			err = cerr
		}
		if err != nil {
			os.Remove(path)
		}
	}()

	start := time.Now()
	for i, stage := range stages {
		p := a.newProgress(stage.Name, sizes[i])
		gen := &ehs.Generator{
			Oracle:   equity.NewMonteCarlo(),
			Workers:  a.cfg.Workers,
			Seed:     a.cfg.Seed,
			Logger:   a.log,
			Progress: p.add,
		}
		_, err := gen.TableTo(ctx, stage, f)
		p.stop()
		if err != nil {
			return fmt.Errorf("stage %s: %w", stage.Name, err)
		}
	}

	fmt.Fprint(a.stdout, pterm.Success.Sprintfln("Wrote %d stages to %s in %s",
		len(stages), path, time.Since(start).Round(time.Millisecond)))
	return nil
}
