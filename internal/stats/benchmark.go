package stats

import (
	"fmt"
	"math"
	"os"
	"path/filepath"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

// hitTolerance absorbs float summation order differences between the GA and
// the exact baseline.
const hitTolerance = 1e-9

type BenchmarkRun struct {
	Seed         int64    `json:"seed"`
	BestRoute    []string `json:"best_route"`
	BestDistance float64  `json:"best_distance"`
	Evaluations  int      `json:"evaluations"`
	Hit          bool     `json:"hit"`
	Gap          float64  `json:"gap"`
}

type BenchmarkSummary struct {
	BenchmarkID     string         `json:"benchmark_id"`
	Problem         string         `json:"problem"`
	Start           string         `json:"start"`
	End             string         `json:"end"`
	PopulationSize  int            `json:"population_size"`
	Generations     int            `json:"generations"`
	OptimalDistance float64        `json:"optimal_distance"`
	OptimalRoute    []string       `json:"optimal_route"`
	HitRate         float64        `json:"hit_rate"`
	MeanDistance    float64        `json:"mean_distance"`
	StdDistance     float64        `json:"std_distance"`
	MinDistance     float64        `json:"min_distance"`
	MaxDistance     float64        `json:"max_distance"`
	MeanGap         float64        `json:"mean_gap"`
	CreatedAtUTC    string         `json:"created_at_utc"`
	Runs            []BenchmarkRun `json:"runs"`
}

// SummarizeBenchmark marks each run against the optimum and fills in the
// aggregate fields of summary.
func SummarizeBenchmark(summary BenchmarkSummary, runs []BenchmarkRun, optimum float64) (BenchmarkSummary, error) {
	if len(runs) == 0 {
		return BenchmarkSummary{}, fmt.Errorf("benchmark runs are required")
	}
	if optimum <= 0 || math.IsInf(optimum, 0) || math.IsNaN(optimum) {
		return BenchmarkSummary{}, fmt.Errorf("optimal distance must be positive and finite, got %v", optimum)
	}

	distances := make([]float64, len(runs))
	gaps := make([]float64, len(runs))
	hits := 0
	summary.Runs = make([]BenchmarkRun, len(runs))
	for i, run := range runs {
		run.Hit = run.BestDistance <= optimum+hitTolerance
		run.Gap = (run.BestDistance - optimum) / optimum
		if run.Hit {
			hits++
			run.Gap = 0
		}
		summary.Runs[i] = run
		distances[i] = run.BestDistance
		gaps[i] = run.Gap
	}

	summary.OptimalDistance = optimum
	summary.HitRate = float64(hits) / float64(len(runs))
	if len(distances) > 1 {
		summary.MeanDistance, summary.StdDistance = stat.MeanStdDev(distances, nil)
	} else {
		summary.MeanDistance = distances[0]
	}
	summary.MinDistance = floats.Min(distances)
	summary.MaxDistance = floats.Max(distances)
	summary.MeanGap = stat.Mean(gaps, nil)
	return summary, nil
}

// AverageSeries averages several best-so-far series generation by generation.
// Shorter series drop out once exhausted.
func AverageSeries(lists [][]float64) []float64 {
	longest := 0
	for _, list := range lists {
		if len(list) > longest {
			longest = len(list)
		}
	}
	out := make([]float64, 0, longest)
	for gen := 0; gen < longest; gen++ {
		values := make([]float64, 0, len(lists))
		for _, list := range lists {
			if gen < len(list) {
				values = append(values, list[gen])
			}
		}
		out = append(out, stat.Mean(values, nil))
	}
	return out
}

// WriteBenchmarkArtifacts writes a benchmark directory: config, summary, the
// seed-averaged series and its plot.
func WriteBenchmarkArtifacts(baseDir string, cfg RunConfig, summary BenchmarkSummary, series [][]float64) (string, error) {
	runDir, err := RunDir(baseDir, summary.BenchmarkID)
	if err != nil {
		return "", fmt.Errorf("benchmark: %w", err)
	}
	cfg.RunID = summary.BenchmarkID

	if err := os.MkdirAll(runDir, 0o755); err != nil {
		return "", err
	}
	if err := writeJSON(filepath.Join(runDir, configFile), cfg); err != nil {
		return "", err
	}
	if err := WriteBenchmarkSummary(runDir, summary); err != nil {
		return "", err
	}
	averaged := AverageSeries(series)
	if len(averaged) == 0 {
		return runDir, nil
	}
	if err := WriteBenchmarkSeries(runDir, averaged); err != nil {
		return "", err
	}
	title := fmt.Sprintf("%s %s->%s, %d seeds", summary.Problem, summary.Start, summary.End, len(summary.Runs))
	if err := WriteConvergencePlot(filepath.Join(runDir, convergencePlotFile), title, averaged, nil); err != nil {
		return "", err
	}
	return runDir, nil
}

func WriteBenchmarkSummary(runDir string, summary BenchmarkSummary) error {
	return writeJSON(filepath.Join(runDir, benchmarkSummaryFile), summary)
}

func ReadBenchmarkSummary(baseDir, runID string) (BenchmarkSummary, bool, error) {
	var summary BenchmarkSummary
	runDir, err := RunDir(baseDir, runID)
	if err != nil {
		return summary, false, err
	}
	ok, err := readJSON(filepath.Join(runDir, benchmarkSummaryFile), &summary)
	return summary, ok, err
}
