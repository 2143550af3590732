package ehs

import (
	"bytes"
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/TrevorS/abstraction/equity"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const floatTol = 1e-12

// fakeOracle scores the hero by hole ranks and the highest board rank, so
// different runouts land in different bins.
type fakeOracle struct {
	calls atomic.Int64
	err   error

	mu       sync.Mutex
	requests []equity.Request
	record   bool
}

func (f *fakeOracle) Equity(ctx context.Context, req equity.Request) ([]float64, error) {
	f.calls.Add(1)
	if f.record {
		f.mu.Lock()
		f.requests = append(f.requests, req)
		f.mu.Unlock()
	}
	if f.err != nil {
		return nil, f.err
	}
	hole, err := equity.ParseCards(req.Ranges[0])
	if err != nil {
		return nil, err
	}
	eq := fakeEquity(hole, req.Board)
	return []float64{eq, 1 - eq}, nil
}

func fakeEquity(hole []equity.Card, board equity.CardMask) float64 {
	high := 0
	for _, c := range board.Cards() {
		high = max(high, int(c.Rank()))
	}
	return float64(int(hole[0].Rank())+int(hole[1].Rank())+high) / 36
}

var preflop = Stage{Name: "preflop", Groups: []int{2}, Round: 0}

func TestGenerator_TableInIndexOrder(t *testing.T) {
	oracle := &fakeOracle{}
	g := &Generator{Oracle: oracle, Workers: 4}

	table, err := g.Table(context.Background(), preflop)
	require.NoError(t, err)
	require.Len(t, table, 169)
	assert.Equal(t, int64(169), oracle.calls.Load())

	idx, err := preflop.Indexer()
	require.NoError(t, err)
	cards := make([]equity.Card, 2)
	for i, got := range table {
		require.NoError(t, idx.Unindex(0, uint64(i), cards))
		require.InDelta(t, fakeEquity(cards, 0), got, floatTol, "entry %d", i)
	}
}

func TestGenerator_TableIndependentOfWorkers(t *testing.T) {
	one, err := (&Generator{Oracle: equity.NewMonteCarlo(), Workers: 1, Seed: 3}).Table(context.Background(),
		Stage{Name: "preflop", Groups: []int{2}, MaxSamples: 200})
	require.NoError(t, err)
	many, err := (&Generator{Oracle: equity.NewMonteCarlo(), Workers: 7, Seed: 3}).Table(context.Background(),
		Stage{Name: "preflop", Groups: []int{2}, MaxSamples: 200})
	require.NoError(t, err)
	assert.Equal(t, one, many)
}

func TestGenerator_RequestShape(t *testing.T) {
	oracle := &fakeOracle{record: true}
	g := &Generator{Oracle: oracle, Workers: 2}
	stage := Stage{Name: "flop", Groups: []int{2, 3}, Round: 1, BatchSize: 10, MaxStdErr: 0.02, MaxSamples: 99}

	_, err := g.HistogramRange(context.Background(), stage, 0, 20, 4, 3)
	require.NoError(t, err)
	require.Len(t, oracle.requests, 60)

	for _, req := range oracle.requests {
		require.Len(t, req.Ranges, 2)
		assert.Equal(t, equity.Random, req.Ranges[1])
		assert.Equal(t, 4, req.Board.Count(), "flop plus one turn card")
		hole, err := equity.ParseCards(req.Ranges[0])
		require.NoError(t, err)
		assert.False(t, equity.MaskOf(hole...).Overlaps(req.Board))
		assert.Equal(t, 10, req.BatchSize)
		assert.Equal(t, 0.02, req.MaxStdErr)
		assert.Equal(t, 99, req.MaxSamples)
	}
}

func TestGenerator_HistogramsNormalized(t *testing.T) {
	g := &Generator{Oracle: &fakeOracle{}, Workers: 3, Seed: 11}
	stage := Stage{Name: "flop", Groups: []int{2, 3}, Round: 1}

	hists, err := g.HistogramRange(context.Background(), stage, 1000, 1100, 8, 16)
	require.NoError(t, err)
	require.Len(t, hists, 100)
	for i, h := range hists {
		require.Len(t, h, 8)
		sum := 0.0
		for _, v := range h {
			assert.GreaterOrEqual(t, v, 0.0)
			sum += v
		}
		assert.InDelta(t, 1.0, sum, 1e-9, "histogram %d", i)
	}

	again, err := (&Generator{Oracle: &fakeOracle{}, Workers: 1, Seed: 11}).HistogramRange(context.Background(), stage, 1000, 1100, 8, 16)
	require.NoError(t, err)
	assert.Equal(t, hists, again)
}

func TestGenerator_RiverHistogramIsOneHot(t *testing.T) {
	oracle := &fakeOracle{}
	g := &Generator{Oracle: oracle, Workers: 2}
	stage := Stage{Name: "river", Groups: []int{2, 5}, Round: 1}

	hists, err := g.HistogramRange(context.Background(), stage, 0, 50, 10, 32)
	require.NoError(t, err)
	assert.Equal(t, int64(50), oracle.calls.Load(), "no rollouts on the river")

	idx, err := stage.Indexer()
	require.NoError(t, err)
	cards := make([]equity.Card, 7)
	for i, h := range hists {
		require.NoError(t, idx.Unindex(1, uint64(i), cards))
		want := bin(fakeEquity(cards[:2], equity.MaskOf(cards[2:]...)), 10)
		for b, v := range h {
			if b == want {
				assert.Equal(t, 1.0, v)
			} else {
				assert.Zero(t, v)
			}
		}
	}
}

func TestGenerator_Progress(t *testing.T) {
	var total int
	g := &Generator{Oracle: &fakeOracle{}, Workers: 4, Progress: func(n int) { total += n }}
	_, err := g.Table(context.Background(), preflop)
	require.NoError(t, err)
	assert.Equal(t, 169, total)
}

func TestGenerator_TableToMatchesTable(t *testing.T) {
	g := &Generator{Oracle: &fakeOracle{}, Workers: 3, Seed: 5}
	table, err := g.Table(context.Background(), preflop)
	require.NoError(t, err)
	var want bytes.Buffer
	require.NoError(t, WriteTable(&want, table))

	for _, chunk := range []int{0, 1, 50, 169, 1000} {
		var total int
		g := &Generator{Oracle: &fakeOracle{}, Workers: 3, Seed: 5, ChunkSize: chunk, Progress: func(n int) { total += n }}
		var got bytes.Buffer
		n, err := g.TableTo(context.Background(), preflop, &got)
		require.NoError(t, err)
		assert.Equal(t, uint64(169), n, "chunk %d", chunk)
		assert.Equal(t, 169, total, "chunk %d", chunk)
		assert.Equal(t, want.Bytes(), got.Bytes(), "chunk %d", chunk)
	}
}

func TestGenerator_TableToStopsOnError(t *testing.T) {
	boom := errors.New("boom")
	g := &Generator{Oracle: &fakeOracle{err: boom}, Workers: 2, ChunkSize: 10}
	var buf bytes.Buffer
	n, err := g.TableTo(context.Background(), preflop, &buf)
	assert.ErrorIs(t, err, boom)
	assert.Zero(t, n)
	assert.Zero(t, buf.Len())

	_, err = g.TableTo(context.Background(), Stage{Name: "bad", Groups: []int{3}}, &buf)
	assert.ErrorIs(t, err, ErrBadStage)
}

func TestGenerator_Errors(t *testing.T) {
	boom := errors.New("boom")
	g := &Generator{Oracle: &fakeOracle{err: boom}, Workers: 2}
	_, err := g.Table(context.Background(), preflop)
	assert.ErrorIs(t, err, boom)

	g = &Generator{Oracle: &fakeOracle{}}
	_, err = g.HistogramRange(context.Background(), preflop, 0, 2000, 4, 1)
	assert.ErrorIs(t, err, ErrBadStage)
	_, err = g.HistogramRange(context.Background(), preflop, 0, 10, 0, 1)
	assert.Error(t, err)
	_, err = g.HistogramRange(context.Background(), preflop, 0, 10, 4, 0)
	assert.Error(t, err)

	_, err = (&Generator{}).Table(context.Background(), preflop)
	assert.Error(t, err)
}

func TestGenerator_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	g := &Generator{Oracle: &fakeOracle{}, Workers: 2}
	_, err := g.HistogramRange(ctx, Stage{Name: "flop", Groups: []int{2, 3}, Round: 1}, 0, 5000, 4, 2)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestBin(t *testing.T) {
	assert.Equal(t, 0, bin(0, 4))
	assert.Equal(t, 1, bin(0.25, 4))
	assert.Equal(t, 3, bin(0.99, 4))
	assert.Equal(t, 3, bin(1, 4))
	assert.Equal(t, 0, bin(-0.1, 4))
}

func TestNextStreet(t *testing.T) {
	assert.Equal(t, 3, nextStreet(0))
	assert.Equal(t, 1, nextStreet(3))
	assert.Equal(t, 1, nextStreet(4))
	assert.Equal(t, 0, nextStreet(5))
}
