package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/TrevorS/abstraction/internal/config"
	"github.com/TrevorS/abstraction/internal/logging"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"
)

// app holds what every subcommand needs once flags and config are resolved.
type app struct {
	cfgFile     string
	metricsFile string
	database    string
	table       string
	workers     int
	seed        uint64
	noProgress  bool

	cfg config.Config
	log *slog.Logger
	reg *prometheus.Registry

	stdout io.Writer
	stderr io.Writer
}

func newRootCmd(a *app) *cobra.Command {
	root := &cobra.Command{
		Use:   "abstract",
		Short: "Build hold'em card abstractions",
		Long: `abstract generates expected hand strength tables, clusters equity
histograms into buckets with k-means and stores the resulting runs.`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.setup(cmd)
		},
		PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
			return a.writeMetrics()
		},
	}
	root.SetOut(a.stdout)
	root.SetErr(a.stderr)

	pf := root.PersistentFlags()
	pf.StringVar(&a.cfgFile, "config", "", "YAML config file (built-in defaults if empty)")
	pf.StringVar(&a.metricsFile, "metrics-file", "", "write Prometheus metrics to this file on exit")
	pf.StringVar(&a.database, "database", "", "run database path (overrides output.database)")
	pf.StringVar(&a.table, "table", "", "equity table path (overrides output.table)")
	pf.IntVar(&a.workers, "workers", 0, "worker goroutines (overrides workers)")
	pf.Uint64Var(&a.seed, "seed", 0, "random seed (overrides seed)")
	pf.BoolVar(&a.noProgress, "no-progress", false, "disable progress bars")

	root.AddCommand(newEHSCmd(a))
	root.AddCommand(newClusterCmd(a))
	root.AddCommand(newInspectCmd(a))
	root.AddCommand(newTreeCmd(a))
	return root
}

// setup loads the config, applies flag overrides and builds the logger and
// metrics registry.
func (a *app) setup(cmd *cobra.Command) error {
	cfg, err := config.Load(a.cfgFile)
	if err != nil {
		return err
	}
	flags := cmd.Flags()
	if flags.Changed("workers") {
		cfg.Workers = a.workers
	}
	if flags.Changed("seed") {
		cfg.Seed = a.seed
	}
	if a.database != "" {
		cfg.Output.Database = a.database
	}
	if a.table != "" {
		cfg.Output.Table = a.table
	}
	if a.metricsFile != "" {
		cfg.Output.MetricsFile = a.metricsFile
	}
	if err := cfg.Validate(); err != nil {
		return err
	}
	a.cfg = cfg

	a.log, err = logging.New(a.stderr, cfg.Log.Level, cfg.Log.Format)
	if err != nil {
		return err
	}
	a.reg = prometheus.NewRegistry()
	return nil
}

func (a *app) writeMetrics() error {
	path := a.cfg.Output.MetricsFile
	if path == "" || a.reg == nil {
		return nil
	}
	if err := prometheus.WriteToTextfile(path, a.reg); err != nil {
		return fmt.Errorf("failed to write metrics: %w", err)
	}
	a.log.Debug("metrics written", "path", path)
	return nil
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a := &app{stdout: os.Stdout, stderr: os.Stderr}
	if err := newRootCmd(a).ExecuteContext(ctx); err != nil {
		os.Exit(1)
	}
}
