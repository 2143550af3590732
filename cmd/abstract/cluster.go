package main

import (
	"fmt"
	"math/rand/v2"

	"github.com/TrevorS/abstraction"
	"github.com/TrevorS/abstraction/ehs"
	"github.com/TrevorS/abstraction/equity"
	"github.com/TrevorS/abstraction/store"
	"github.com/pterm/pterm"
	"github.com/spf13/cobra"
)

func newClusterCmd(a *app) *cobra.Command {
	var stageName string
	cmd := &cobra.Command{
		Use:   "cluster",
		Short: "Cluster a stage's equity histograms into buckets",
		Long: `Generate an equity histogram for every hand of a stage, group them
with k-means and save the centers and bucket of every hand as a new run.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.runCluster(cmd, stageName)
		},
	}
	cmd.Flags().StringVar(&stageName, "stage", "flop", "stage to cluster")
	return cmd
}

func (a *app) runCluster(cmd *cobra.Command, stageName string) error {
	ctx := cmd.Context()
	stage, err := ehs.StageByName(a.cfg.EHSStages(), stageName)
	if err != nil {
		return err
	}
	size, err := stage.Size()
	if err != nil {
		return err
	}
	cl := a.cfg.Clustering
	points := size
	if cl.Limit > 0 && cl.Limit < size {
		points = cl.Limit
	}

	p := a.newProgress("histograms "+stage.Name, points)
	gen := &ehs.Generator{
		Oracle:   equity.NewMonteCarlo(),
		Workers:  a.cfg.Workers,
		Seed:     a.cfg.Seed,
		Logger:   a.log,
		Progress: p.add,
	}
	hists, err := gen.HistogramRange(ctx, stage, 0, points, cl.Bins, cl.Rollouts)
	p.stop()
	if err != nil {
		return err
	}

	kcfg, err := a.cfg.KMeans()
	if err != nil {
		return err
	}
	kcfg.Logger = a.log
	kcfg.Metrics = abstraction.NewMetrics(a.reg)

	rng := rand.New(rand.NewPCG(a.cfg.Seed, a.cfg.Seed^0x5851f42d4c957f2d))
	var km *abstraction.Kmeans
	switch cl.Init {
	case "plusplus":
		km, err = abstraction.InitPlusPlus(rng, hists, kcfg)
	default:
		km, err = abstraction.InitRandom(rng, hists, kcfg)
	}
	if err != nil {
		return err
	}

	res, err := km.Fit(ctx, hists)
	if err != nil && !abstraction.IsNotConverged(err) {
		return err
	}
	if err != nil {
		fmt.Fprint(a.stderr, pterm.Warning.Sprintfln("%v; saving the last centers", err))
	}

	db, err := store.Open(a.cfg.Output.Database)
	if err != nil {
		return err
	}
	defer db.Close()

	run, err := db.SaveRun(ctx, store.Run{
		Stage:       stage.Name,
		Metric:      metricName(cl.Metric),
		Init:        initName(cl.Init),
		FirstIndex:  0,
		Iterations:  res.Iterations,
		Converged:   res.Converged,
		Centers:     km.Centers(),
		Assignments: res.Assignments,
	})
	if err != nil {
		return err
	}

	a.log.Info("run saved", "run", run.ID, "stage", stage.Name, "k", run.K(), "points", len(res.Assignments))
	fmt.Fprintln(a.stdout, run.ID)
	return nil
}

func metricName(name string) string {
	if name == "" {
		return "euclidean"
	}
	return name
}

func initName(name string) string {
	if name == "" {
		return "random"
	}
	return name
}
