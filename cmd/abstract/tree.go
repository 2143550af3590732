package main

import (
	"fmt"

	"github.com/TrevorS/abstraction/arena"
	"github.com/TrevorS/abstraction/ehs"
	"github.com/TrevorS/abstraction/equity"
	"github.com/TrevorS/abstraction/store"
	"github.com/google/uuid"
	"github.com/pterm/pterm"
	"github.com/pterm/pterm/putils"
	"github.com/spf13/cobra"
)

func newTreeCmd(a *app) *cobra.Command {
	var (
		runID   string
		samples int
	)
	cmd := &cobra.Command{
		Use:   "tree",
		Short: "Render a run as a tree of buckets and sample hands",
		RunE: func(cmd *cobra.Command, args []string) error {
			if samples < 0 {
				return fmt.Errorf("--samples must be >= 0, got %d", samples)
			}
			id, err := uuid.Parse(runID)
			if err != nil {
				return fmt.Errorf("invalid run id %q: %w", runID, err)
			}
			db, err := store.Open(a.cfg.Output.Database)
			if err != nil {
				return err
			}
			defer db.Close()
			run, err := db.LoadRun(cmd.Context(), id)
			if err != nil {
				return err
			}

			stage, err := ehs.StageByName(a.cfg.EHSStages(), run.Stage)
			if err != nil {
				return err
			}
			tree, root, err := buildRunTree(run, stage, samples)
			if err != nil {
				return err
			}
			return a.render(pterm.DefaultTree.WithRoot(putils.TreeFromLeveledList(leveledList(tree, root))))
		},
	}
	cmd.Flags().StringVar(&runID, "run", "", "run id")
	cmd.Flags().IntVar(&samples, "samples", 3, "sample hands shown per bucket")
	cobra.CheckErr(cmd.MarkFlagRequired("run"))
	return cmd
}

// buildRunTree lays a run out as run -> stage -> bucket -> sample hands.
func buildRunTree(run *store.Run, stage ehs.Stage, samples int) (*arena.Arena[string], arena.NodeID, error) {
	if samples < 0 {
		return nil, 0, fmt.Errorf("samples must be >= 0, got %d", samples)
	}
	idx, err := stage.Indexer()
	if err != nil {
		return nil, 0, err
	}

	t := arena.NewWithCapacity[string](2 + run.K()*(1+samples))
	root := t.CreateNode("run " + run.ID.String())
	stageNode := t.CreateNode(fmt.Sprintf("%s (%s, k=%d)", run.Stage, run.Metric, run.K()))
	if err := t.Link(root, stageNode); err != nil {
		return nil, 0, err
	}

	sizes := bucketSizes(run)
	buckets := make([]arena.NodeID, run.K())
	for k := range buckets {
		buckets[k] = t.CreateNode(fmt.Sprintf("bucket %d: %d hands, equity %.3f", k, int(sizes[k]), centerEquity(run.Centers[k])))
		if err := t.Link(stageNode, buckets[k]); err != nil {
			return nil, 0, err
		}
	}

	shown := make([]int, run.K())
	cards := make([]equity.Card, idx.CardsDealt(stage.Round))
	for j, k := range run.Assignments {
		if shown[k] >= samples {
			continue
		}
		if err := idx.Unindex(stage.Round, run.FirstIndex+uint64(j), cards); err != nil {
			return nil, 0, err
		}
		hand := t.CreateNode(handLabel(cards))
		if err := t.Link(buckets[k], hand); err != nil {
			return nil, 0, err
		}
		shown[k]++
	}

	if err := t.Validate(); err != nil {
		return nil, 0, err
	}
	return t, root, nil
}

func handLabel(cards []equity.Card) string {
	label := equity.FormatCards(cards[:2])
	if len(cards) > 2 {
		label += " | " + equity.FormatCards(cards[2:])
	}
	if desc, err := equity.Describe(cards); err == nil {
		label += " (" + desc + ")"
	}
	return label
}

// leveledList flattens a pre-order walk of the tree into pterm's leveled
// list.
func leveledList(t *arena.Arena[string], root arena.NodeID) pterm.LeveledList {
	var list pterm.LeveledList
	w := t.Walk(root)
	for id, ok := w.Next(); ok; id, ok = w.Next() {
		list = append(list, pterm.LeveledListItem{Level: w.Depth(), Text: *w.Value(id)})
	}
	return list
}
