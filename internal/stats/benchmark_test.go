package stats

import (
	"math"
	"os"
	"path/filepath"
	"testing"
)

func TestSummarizeBenchmark(t *testing.T) {
	runs := []BenchmarkRun{
		{Seed: 1, BestDistance: 10},
		{Seed: 2, BestDistance: 12},
		{Seed: 3, BestDistance: 10},
		{Seed: 4, BestDistance: 10.000000000001},
	}
	summary, err := SummarizeBenchmark(BenchmarkSummary{BenchmarkID: "bench-1"}, runs, 10)
	if err != nil {
		t.Fatalf("summarize: %v", err)
	}
	if summary.HitRate != 0.75 {
		t.Fatalf("expected hit rate 0.75, got %v", summary.HitRate)
	}
	if summary.MinDistance != 10 || summary.MaxDistance != 12 {
		t.Fatalf("unexpected min/max: %v %v", summary.MinDistance, summary.MaxDistance)
	}
	if math.Abs(summary.MeanDistance-10.5) > 1e-9 {
		t.Fatalf("unexpected mean: %v", summary.MeanDistance)
	}
	if math.Abs(summary.StdDistance-1) > 1e-9 {
		t.Fatalf("unexpected std: %v", summary.StdDistance)
	}
	if math.Abs(summary.MeanGap-0.05) > 1e-9 {
		t.Fatalf("unexpected mean gap: %v", summary.MeanGap)
	}
	if !summary.Runs[3].Hit || summary.Runs[1].Hit || summary.Runs[1].Gap != 0.2 {
		t.Fatalf("unexpected per-run marks: %+v", summary.Runs)
	}

	single, err := SummarizeBenchmark(BenchmarkSummary{}, runs[:1], 10)
	if err != nil {
		t.Fatalf("summarize single: %v", err)
	}
	if single.StdDistance != 0 || single.MeanDistance != 10 {
		t.Fatalf("unexpected single-run summary: %+v", single)
	}

	if _, err := SummarizeBenchmark(BenchmarkSummary{}, nil, 10); err == nil {
		t.Fatal("expected error for no runs")
	}
	if _, err := SummarizeBenchmark(BenchmarkSummary{}, runs, math.Inf(1)); err == nil {
		t.Fatal("expected error for infinite optimum")
	}
}

func TestAverageSeries(t *testing.T) {
	got := AverageSeries([][]float64{{4, 2, 2}, {6, 4}, {}})
	want := []float64{5, 3, 2}
	if len(got) != len(want) {
		t.Fatalf("unexpected length: %v", got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("AverageSeries = %v, want %v", got, want)
		}
	}
	if len(AverageSeries(nil)) != 0 {
		t.Fatal("expected empty series")
	}
}

func TestWriteBenchmarkArtifacts(t *testing.T) {
	baseDir := t.TempDir()
	summary, err := SummarizeBenchmark(BenchmarkSummary{
		BenchmarkID: "bench-1",
		Problem:     "exam-a",
		Start:       "A",
		End:         "D",
	}, []BenchmarkRun{{Seed: 1, BestDistance: 10}, {Seed: 2, BestDistance: 12}}, 10)
	if err != nil {
		t.Fatalf("summarize: %v", err)
	}

	runDir, err := WriteBenchmarkArtifacts(baseDir, RunConfig{Kind: "benchmark", Problem: "exam-a"}, summary, [][]float64{{14, 10}, {16, 12}})
	if err != nil {
		t.Fatalf("write benchmark: %v", err)
	}
	for _, file := range []string{configFile, benchmarkSummaryFile, benchmarkSeriesFile, convergencePlotFile} {
		if _, err := os.Stat(filepath.Join(runDir, file)); err != nil {
			t.Fatalf("expected %s: %v", file, err)
		}
	}

	loaded, ok, err := ReadBenchmarkSummary(baseDir, "bench-1")
	if err != nil || !ok {
		t.Fatalf("read summary: ok=%t err=%v", ok, err)
	}
	if loaded.HitRate != 0.5 || len(loaded.Runs) != 2 {
		t.Fatalf("unexpected summary: %+v", loaded)
	}
	series, ok, err := ReadBenchmarkSeries(baseDir, "bench-1")
	if err != nil || !ok || len(series) != 2 || series[0] != 15 || series[1] != 11 {
		t.Fatalf("unexpected averaged series: %v ok=%t err=%v", series, ok, err)
	}
	cfg, ok, err := ReadRunConfig(baseDir, "bench-1")
	if err != nil || !ok || cfg.RunID != "bench-1" {
		t.Fatalf("unexpected config: %+v ok=%t err=%v", cfg, ok, err)
	}
}
