package platform

import (
	"context"
	"math/rand"
	"os"
	"path/filepath"
	"testing"

	"pathga/internal/evo"
	"pathga/internal/graph"
	"pathga/internal/model"
)

func TestBenchmarkRunsSeedsConcurrently(t *testing.T) {
	ctx := context.Background()
	benchmarksDir := t.TempDir()
	p := newTestPolis(t, benchmarksDir)

	cfg := smallSearch()
	cfg.Seed = 100
	res, err := p.Benchmark(ctx, BenchmarkConfig{
		BenchmarkID: "bench-1",
		Problem:     "romania",
		Start:       "Arad",
		End:         "Bucharest",
		Search:      cfg,
		Runs:        6,
		Workers:     3,
	})
	if err != nil {
		t.Fatalf("benchmark: %v", err)
	}

	summary := res.Summary
	if len(summary.Runs) != 6 {
		t.Fatalf("expected 6 runs, got %d", len(summary.Runs))
	}
	if summary.OptimalDistance != 418 {
		t.Fatalf("expected optimum 418, got %v", summary.OptimalDistance)
	}
	for i, run := range summary.Runs {
		if run.Seed != 100+int64(i) {
			t.Fatalf("runs not ordered by seed: %+v", summary.Runs)
		}
		if run.BestDistance < summary.OptimalDistance {
			t.Fatalf("seed %d beat the optimum: %v", run.Seed, run.BestDistance)
		}
	}
	if summary.HitRate < 0 || summary.HitRate > 1 {
		t.Fatalf("hit rate out of range: %v", summary.HitRate)
	}
	if summary.MinDistance > summary.MeanDistance || summary.MeanDistance > summary.MaxDistance {
		t.Fatalf("inconsistent aggregates: %+v", summary)
	}

	g, _ := graph.Builtin("romania")
	seedCfg := cfg
	seedCfg.Seed = 103
	direct, err := evo.Search(ctx, g, "Arad", "Bucharest", seedCfg, rand.New(rand.NewSource(103)))
	if err != nil {
		t.Fatalf("direct search: %v", err)
	}
	if direct.BestDistance != summary.Runs[3].BestDistance {
		t.Fatalf("concurrent seed 103 gave %v, sequential gave %v", summary.Runs[3].BestDistance, direct.BestDistance)
	}

	record, ok, err := p.Store().GetRun(ctx, "bench-1")
	if err != nil || !ok {
		t.Fatalf("get benchmark record: ok=%t err=%v", ok, err)
	}
	if record.Kind != model.RunKindBenchmark || record.BestDistance != summary.MinDistance {
		t.Fatalf("unexpected benchmark record: %+v", record)
	}
	for _, file := range []string{"config.json", "benchmark_summary.json", "benchmark_series.csv", "convergence.png"} {
		if _, err := os.Stat(filepath.Join(res.ArtifactsDir, file)); err != nil {
			t.Fatalf("expected %s: %v", file, err)
		}
	}
}

func TestBenchmarkErrors(t *testing.T) {
	ctx := context.Background()
	p := newTestPolis(t, "")

	bad := smallSearch()
	bad.PopulationSize = 0
	if _, err := p.Benchmark(ctx, BenchmarkConfig{Problem: "exam-a", Search: bad}); err == nil {
		t.Fatal("expected config validation error")
	}
	if _, err := p.Benchmark(ctx, BenchmarkConfig{Problem: "missing", Search: smallSearch()}); err == nil {
		t.Fatal("expected unknown graph error")
	}

	cancelled, cancel := context.WithCancel(ctx)
	cancel()
	if _, err := p.Benchmark(cancelled, BenchmarkConfig{Problem: "exam-a", Search: smallSearch(), Runs: 2}); err == nil {
		t.Fatal("expected cancellation error")
	}
}
