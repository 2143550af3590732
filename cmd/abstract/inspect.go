package main

import (
	"fmt"
	"strconv"
	"time"

	"github.com/TrevorS/abstraction"
	"github.com/TrevorS/abstraction/store"
	"github.com/google/uuid"
	"github.com/pterm/pterm"
	"github.com/spf13/cobra"
	"gonum.org/v1/gonum/stat"
)

func newInspectCmd(a *app) *cobra.Command {
	var runID string
	cmd := &cobra.Command{
		Use:   "inspect",
		Short: "Show stored runs or the buckets of one run",
		RunE: func(cmd *cobra.Command, args []string) error {
			db, err := store.Open(a.cfg.Output.Database)
			if err != nil {
				return err
			}
			defer db.Close()
			if runID == "" {
				return a.listRuns(cmd, db)
			}
			id, err := uuid.Parse(runID)
			if err != nil {
				return fmt.Errorf("invalid run id %q: %w", runID, err)
			}
			return a.inspectRun(cmd, db, id)
		},
	}
	cmd.Flags().StringVar(&runID, "run", "", "run id (lists all runs if empty)")
	return cmd
}

func (a *app) listRuns(cmd *cobra.Command, db *store.Store) error {
	runs, err := db.ListRuns(cmd.Context())
	if err != nil {
		return err
	}
	data := pterm.TableData{{"Run", "Stage", "Metric", "K", "Points", "Iterations", "Converged", "Created"}}
	for _, r := range runs {
		data = append(data, []string{
			r.ID.String(), r.Stage, r.Metric, strconv.Itoa(r.K), strconv.Itoa(r.Points),
			strconv.Itoa(r.Iterations), strconv.FormatBool(r.Converged), r.CreatedAt.Format(time.DateTime),
		})
	}
	return a.render(pterm.DefaultTable.WithHasHeader().WithData(data))
}

func (a *app) inspectRun(cmd *cobra.Command, db *store.Store, id uuid.UUID) error {
	run, err := db.LoadRun(cmd.Context(), id)
	if err != nil {
		return err
	}

	sizes := bucketSizes(run)
	mean, std := stat.MeanStdDev(sizes, nil)
	summary := pterm.TableData{
		{"Run", run.ID.String()},
		{"Stage", run.Stage},
		{"Metric", run.Metric},
		{"Init", run.Init},
		{"Buckets", strconv.Itoa(run.K())},
		{"Bins", strconv.Itoa(run.Bins)},
		{"Points", strconv.Itoa(len(run.Assignments))},
		{"Iterations", strconv.Itoa(run.Iterations)},
		{"Converged", strconv.FormatBool(run.Converged)},
		{"Bucket size", fmt.Sprintf("%.1f ± %.1f", mean, std)},
		{"Created", run.CreatedAt.Format(time.DateTime)},
	}
	if err := a.render(pterm.DefaultTable.WithData(summary)); err != nil {
		return err
	}

	data := pterm.TableData{{"Bucket", "Size", "Share", "Mean equity"}}
	total := float64(len(run.Assignments))
	for k, c := range run.Centers {
		share := 0.0
		if total > 0 {
			share = sizes[k] / total
		}
		data = append(data, []string{
			strconv.Itoa(k),
			strconv.Itoa(int(sizes[k])),
			fmt.Sprintf("%.2f%%", 100*share),
			fmt.Sprintf("%.3f", centerEquity(c)),
		})
	}
	return a.render(pterm.DefaultTable.WithHasHeader().WithData(data))
}

type srenderer interface {
	Srender() (string, error)
}

func (a *app) render(r srenderer) error {
	s, err := r.Srender()
	if err != nil {
		return err
	}
	fmt.Fprintln(a.stdout, s)
	return nil
}

// bucketSizes counts the points assigned to each bucket.
func bucketSizes(run *store.Run) []float64 {
	sizes := make([]float64, run.K())
	for _, c := range run.Assignments {
		sizes[c]++
	}
	return sizes
}

// centerEquity is the mean equity of a center histogram, taking each bin at
// its midpoint.
func centerEquity(c abstraction.Histogram) float64 {
	mids := make([]float64, len(c))
	total := 0.0
	for b := range mids {
		mids[b] = (float64(b) + 0.5) / float64(len(c))
		total += c[b]
	}
	if total == 0 {
		return 0
	}
	return stat.Mean(mids, c)
}
