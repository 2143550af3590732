// Package ehs generates expected hand strength tables and equity
// histograms for every situation of a street.
//
// A Generator walks a stage's whole index space, decodes each index into
// hole and board cards and asks an equity.Oracle how the hero's combo fares
// against a random hand. Work is split into contiguous index ranges, one per
// worker, and every entry is written to its own slot so output order never
// depends on scheduling.
package ehs

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"math/rand/v2"
	"runtime"
	"sync"
	"time"

	"github.com/TrevorS/abstraction"
	"github.com/TrevorS/abstraction/equity"
	"golang.org/x/sync/errgroup"
)

// progressInterval is how many entries a worker finishes between progress
// reports and context checks.
const progressInterval = 256

// defaultChunk is how many table entries TableTo holds in memory by default.
const defaultChunk = 1 << 20

// seedMix spreads per-entry seeds apart.
const seedMix = 0x9e3779b97f4a7c15

// Generator computes tables and histograms with an Oracle.
type Generator struct {
	Oracle equity.Oracle

	// Workers is the number of goroutines. 0 means runtime.NumCPU().
	Workers int

	// Seed is mixed with the entry index to seed each oracle query, so
	// results do not depend on Workers.
	Seed uint64

	// Logger receives progress messages. nil discards them.
	Logger *slog.Logger

	// Progress, if set, is called with the number of entries finished since
	// the previous call. Calls are serialized.
	Progress func(n int)

	// ChunkSize is how many entries TableTo computes before writing them.
	// 0 means 1<<20.
	ChunkSize int

	mu sync.Mutex
}

func (g *Generator) logger() *slog.Logger {
	if g.Logger == nil {
		return slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return g.Logger
}

func (g *Generator) workers() int {
	if g.Workers <= 0 {
		return runtime.NumCPU()
	}
	return g.Workers
}

func (g *Generator) report(n int) {
	if g.Progress == nil || n == 0 {
		return
	}
	g.mu.Lock()
	g.Progress(n)
	g.mu.Unlock()
}

// forRange calls fn for every index in [lo, hi), split across workers.
// fn receives a card buffer of the stage's size, already filled in.
func (g *Generator) forRange(ctx context.Context, stage Stage, lo, hi uint64, fn func(i uint64, cards []equity.Card) error) error {
	idx, err := stage.Indexer()
	if err != nil {
		return err
	}
	if size := idx.Size(stage.Round); hi > size || lo > hi {
		return fmt.Errorf("%w: range [%d, %d) outside %s size %d", ErrBadStage, lo, hi, stage.Name, size)
	}
	if g.Oracle == nil {
		return fmt.Errorf("ehs: generator has no oracle")
	}

	n := hi - lo
	workers := uint64(g.workers())
	if workers > n {
		workers = max(n, 1)
	}
	per := (n + workers - 1) / workers

	eg, ctx := errgroup.WithContext(ctx)
	for start := lo; start < hi; start += per {
		end := min(start+per, hi)
		eg.Go(func() error {
			cards := make([]equity.Card, idx.CardsDealt(stage.Round))
			done := 0
			for i := start; i < end; i++ {
				if (i-start)%progressInterval == 0 {
					g.report(done)
					done = 0
					if err := ctx.Err(); err != nil {
						return err
					}
				}
				if err := idx.Unindex(stage.Round, i, cards); err != nil {
					return err
				}
				if err := fn(i, cards); err != nil {
					return fmt.Errorf("ehs: %s entry %d (%s): %w", stage.Name, i, equity.FormatCards(cards), err)
				}
				done++
			}
			g.report(done)
			return nil
		})
	}
	return eg.Wait()
}

func (g *Generator) request(stage Stage, hero equity.Combo, board equity.CardMask, seed uint64) equity.Request {
	return equity.Request{
		Ranges:     []string{hero.String(), equity.Random},
		Board:      board,
		BatchSize:  stage.BatchSize,
		MaxStdErr:  stage.MaxStdErr,
		MaxSamples: stage.MaxSamples,
		Seed:       seed,
	}
}

func (g *Generator) heroEquity(ctx context.Context, req equity.Request) (float64, error) {
	eq, err := g.Oracle.Equity(ctx, req)
	if err != nil {
		return 0, err
	}
	if len(eq) != len(req.Ranges) {
		return 0, fmt.Errorf("ehs: oracle returned %d equities for %d ranges", len(eq), len(req.Ranges))
	}
	return eq[0], nil
}

// Table returns the hero's equity against a random hand for every index of
// stage, in index order. Large stages should use TableTo instead.
func (g *Generator) Table(ctx context.Context, stage Stage) ([]float64, error) {
	size, err := stage.Size()
	if err != nil {
		return nil, err
	}
	log := g.logger()
	start := time.Now()
	log.Info("generating equity table", "stage", stage.Name, "entries", size, "workers", g.workers())

	out := make([]float64, size)
	if err := g.fillTable(ctx, stage, 0, out); err != nil {
		return nil, err
	}
	log.Info("equity table done", "stage", stage.Name, "took", time.Since(start))
	return out, nil
}

// TableTo computes the same entries as Table and writes them to w in the
// WriteTable format, one chunk at a time, so memory stays bounded by
// ChunkSize. It returns the number of entries written.
func (g *Generator) TableTo(ctx context.Context, stage Stage, w io.Writer) (uint64, error) {
	size, err := stage.Size()
	if err != nil {
		return 0, err
	}
	chunk := uint64(defaultChunk)
	if g.ChunkSize > 0 {
		chunk = uint64(g.ChunkSize)
	}
	log := g.logger()
	start := time.Now()
	log.Info("generating equity table", "stage", stage.Name, "entries", size, "workers", g.workers(), "chunk", chunk)

	buf := make([]float64, min(size, chunk))
	var written uint64
	for written < size {
		block := buf[:min(chunk, size-written)]
		if err := g.fillTable(ctx, stage, written, block); err != nil {
			return written, err
		}
		if err := WriteTable(w, block); err != nil {
			return written, err
		}
		written += uint64(len(block))
		log.Debug("table chunk written", "stage", stage.Name, "written", written, "entries", size)
	}
	log.Info("equity table done", "stage", stage.Name, "took", time.Since(start))
	return written, nil
}

// fillTable computes the entries lo through lo+len(out)-1 into out.
func (g *Generator) fillTable(ctx context.Context, stage Stage, lo uint64, out []float64) error {
	return g.forRange(ctx, stage, lo, lo+uint64(len(out)), func(i uint64, cards []equity.Card) error {
		hero := equity.Combo{cards[0], cards[1]}
		eq, err := g.heroEquity(ctx, g.request(stage, hero, equity.MaskOf(cards[2:]...), g.Seed^(i*seedMix)))
		if err != nil {
			return err
		}
		out[i-lo] = eq
		return nil
	})
}

// Histograms returns an equity histogram for every index of stage.
// See HistogramRange.
func (g *Generator) Histograms(ctx context.Context, stage Stage, bins, rollouts int) ([]abstraction.Histogram, error) {
	size, err := stage.Size()
	if err != nil {
		return nil, err
	}
	return g.HistogramRange(ctx, stage, 0, size, bins, rollouts)
}

// HistogramRange returns equity histograms for indices [lo, hi) of stage.
// Each histogram samples rollouts deals of the next street, asks the oracle
// for the hero's equity on each and counts it into one of bins equal-width
// bins over [0, 1]. The histogram is normalized to sum to 1. A stage with a
// complete board has no next street; its histogram has all mass in the bin
// of its own equity.
func (g *Generator) HistogramRange(ctx context.Context, stage Stage, lo, hi uint64, bins, rollouts int) ([]abstraction.Histogram, error) {
	if bins < 1 {
		return nil, fmt.Errorf("ehs: bins must be >= 1, got %d", bins)
	}
	if rollouts < 1 {
		return nil, fmt.Errorf("ehs: rollouts must be >= 1, got %d", rollouts)
	}
	if hi < lo {
		return nil, fmt.Errorf("%w: range [%d, %d) is reversed", ErrBadStage, lo, hi)
	}

	log := g.logger()
	start := time.Now()
	next := nextStreet(stage.BoardCards())
	log.Info("generating equity histograms", "stage", stage.Name, "entries", hi-lo, "bins", bins, "rollouts", rollouts)

	out := make([]abstraction.Histogram, hi-lo)
	err := g.forRange(ctx, stage, lo, hi, func(i uint64, cards []equity.Card) error {
		hero := equity.Combo{cards[0], cards[1]}
		board := equity.MaskOf(cards[2:]...)
		h := make(abstraction.Histogram, bins)
		seed := g.Seed ^ (i * seedMix)

		if next == 0 {
			eq, err := g.heroEquity(ctx, g.request(stage, hero, board, seed))
			if err != nil {
				return err
			}
			h[bin(eq, bins)] = 1
			out[i-lo] = h
			return nil
		}

		rng := rand.New(rand.NewPCG(g.Seed, i))
		dead := board | hero.Mask()
		weight := 1 / float64(rollouts)
		for r := 0; r < rollouts; r++ {
			runout := board | drawCards(rng, dead, next)
			eq, err := g.heroEquity(ctx, g.request(stage, hero, runout, seed+uint64(r)))
			if err != nil {
				return err
			}
			h[bin(eq, bins)] += weight
		}
		out[i-lo] = h
		return nil
	})
	if err != nil {
		return nil, err
	}
	log.Info("equity histograms done", "stage", stage.Name, "took", time.Since(start))
	return out, nil
}

// nextStreet returns how many cards the street after a board of the given
// size adds, or 0 on the river.
func nextStreet(board int) int {
	switch {
	case board == 0:
		return 3
	case board < 5:
		return 1
	default:
		return 0
	}
}

func bin(eq float64, bins int) int {
	b := int(eq * float64(bins))
	return min(max(b, 0), bins-1)
}

// drawCards returns n distinct random cards not in dead.
func drawCards(rng *rand.Rand, dead equity.CardMask, n int) equity.CardMask {
	var drawn equity.CardMask
	for drawn.Count() < n {
		c := equity.Card(rng.IntN(equity.NumCards))
		if dead.Has(c) || drawn.Has(c) {
			continue
		}
		drawn = drawn.With(c)
	}
	return drawn
}
