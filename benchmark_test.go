package abstraction

import (
	"context"
	"testing"
)

// --- Predict ---

func benchPredict(b *testing.B, n, k, workers int) {
	b.Helper()
	data := randomHistograms(n, 30, 42)
	cfg := DefaultConfig()
	cfg.Workers = workers
	km, err := NewKmeans(randomHistograms(k, 30, 43), cfg)
	if err != nil {
		b.Fatal(err)
	}
	assignments := make([]int, n)
	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if _, err := km.Predict(context.Background(), data, assignments); err != nil {
			b.Fatal(err)
		}
	}
}

func BenchmarkPredict_10k_k50_1w(b *testing.B) { benchPredict(b, 10000, 50, 1) }
func BenchmarkPredict_10k_k50_8w(b *testing.B) { benchPredict(b, 10000, 50, 8) }

// --- Init ---

func benchInitRandom(b *testing.B, n, k, restarts int) {
	b.Helper()
	data := randomHistograms(n, 30, 42)
	cfg := DefaultConfig()
	cfg.Clusters = k
	cfg.Restarts = restarts
	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if _, err := InitRandom(newRand(uint64(i)), data, cfg); err != nil {
			b.Fatal(err)
		}
	}
}

func BenchmarkInitRandom_k50_r100(b *testing.B) { benchInitRandom(b, 5000, 50, 100) }

// --- Fit ---

func benchFit(b *testing.B, n, k int) {
	b.Helper()
	data := randomHistograms(n, 30, 42)
	cfg := DefaultConfig()
	cfg.Clusters = k
	cfg.Restarts = 10
	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		km, err := InitRandom(newRand(uint64(i)), data, cfg)
		if err != nil {
			b.Fatal(err)
		}
		if _, err := km.Fit(context.Background(), data); err != nil && !IsNotConverged(err) {
			b.Fatal(err)
		}
	}
}

func BenchmarkFit_2k_k20(b *testing.B) { benchFit(b, 2000, 20) }
