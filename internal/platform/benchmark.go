package platform

import (
	"context"
	"fmt"
	"math/rand"
	"runtime"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/sourcegraph/conc/pool"

	"pathga/internal/evo"
	"pathga/internal/graph"
	"pathga/internal/model"
	"pathga/internal/stats"
	"pathga/internal/storage"
)

const DefaultBenchmarkRuns = 10

type BenchmarkConfig struct {
	BenchmarkID string
	Problem     string
	Start       string
	End         string
	// Search.Seed is the first seed; run i uses Search.Seed+i.
	Search    evo.Config
	Selection string
	Runs      int
	// Workers bounds concurrent searches; 0 uses GOMAXPROCS.
	Workers int
}

type BenchmarkResult struct {
	BenchmarkID  string
	Summary      stats.BenchmarkSummary
	OptimalRoute graph.Path
	ArtifactsDir string
}

type seedOutcome struct {
	seed   int64
	result evo.RunResult
}

// Benchmark repeats a path search over consecutive seeds, running the seeds
// concurrently, and scores every run against the Dijkstra optimum.
func (p *Polis) Benchmark(ctx context.Context, cfg BenchmarkConfig) (BenchmarkResult, error) {
	g, err := p.lookupGraph(cfg.Problem)
	if err != nil {
		return BenchmarkResult{}, err
	}
	start, end, err := resolveEndpoints(cfg.Problem, cfg.Start, cfg.End)
	if err != nil {
		return BenchmarkResult{}, err
	}
	if err := cfg.Search.Validate(); err != nil {
		return BenchmarkResult{}, err
	}
	selector, err := evo.SelectorFromName(cfg.Selection, cfg.Search.TournamentSize)
	if err != nil {
		return BenchmarkResult{}, err
	}
	runs := cfg.Runs
	if runs <= 0 {
		runs = DefaultBenchmarkRuns
	}
	workers := cfg.Workers
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}

	optimalRoute, optimum, err := graph.ShortestPath(g, start, end)
	if err != nil {
		return BenchmarkResult{}, err
	}
	if optimalRoute == nil {
		return BenchmarkResult{}, fmt.Errorf("%w: %s is not connected to %s", evo.ErrUnreachable, end, start)
	}

	if err := checkRunID(cfg.BenchmarkID); err != nil {
		return BenchmarkResult{}, err
	}
	benchmarkID := cfg.BenchmarkID
	if benchmarkID == "" {
		benchmarkID = uuid.NewString()
	}
	logger := p.logger.With("benchmark_id", benchmarkID, "problem", cfg.Problem, "start", start, "end", end)
	logger.Info("benchmark started", "runs", runs, "workers", workers, "optimal_distance", optimum)

	began := time.Now()
	searches := pool.NewWithResults[seedOutcome]().
		WithContext(ctx).
		WithMaxGoroutines(workers).
		WithCancelOnError()
	for i := 0; i < runs; i++ {
		seed := cfg.Search.Seed + int64(i)
		searches.Go(func(ctx context.Context) (seedOutcome, error) {
			searchCfg := cfg.Search
			searchCfg.Seed = seed
			searchCfg.Observer = nil
			searchCfg.Selector = selector

			result, err := evo.Search(ctx, g, start, end, searchCfg, rand.New(rand.NewSource(seed)))
			if err != nil {
				return seedOutcome{}, fmt.Errorf("seed %d: %w", seed, err)
			}
			logger.Debug("benchmark seed finished", "seed", seed, "best_distance", result.BestDistance)
			return seedOutcome{seed: seed, result: result}, nil
		})
	}
	outcomes, err := searches.Wait()
	if err != nil {
		return BenchmarkResult{}, err
	}
	elapsed := time.Since(began)
	sort.Slice(outcomes, func(i, j int) bool { return outcomes[i].seed < outcomes[j].seed })

	benchRuns := make([]stats.BenchmarkRun, len(outcomes))
	series := make([][]float64, len(outcomes))
	evaluations := 0
	best := 0
	for i, outcome := range outcomes {
		benchRuns[i] = stats.BenchmarkRun{
			Seed:         outcome.seed,
			BestRoute:    []string(outcome.result.BestPath.Clone()),
			BestDistance: outcome.result.BestDistance,
			Evaluations:  outcome.result.Evaluations,
		}
		series[i] = outcome.result.BestByGeneration
		evaluations += outcome.result.Evaluations
		if outcome.result.BestDistance < outcomes[best].result.BestDistance {
			best = i
		}
	}

	createdAt := p.timestamp()
	summary, err := stats.SummarizeBenchmark(stats.BenchmarkSummary{
		BenchmarkID:    benchmarkID,
		Problem:        cfg.Problem,
		Start:          start,
		End:            end,
		PopulationSize: cfg.Search.PopulationSize,
		Generations:    cfg.Search.Generations,
		OptimalRoute:   []string(optimalRoute),
		CreatedAtUTC:   createdAt,
	}, benchRuns, optimum)
	if err != nil {
		return BenchmarkResult{}, err
	}

	record := model.RunRecord{
		VersionedRecord: storage.NewRunVersion(),
		ID:              benchmarkID,
		Kind:            model.RunKindBenchmark,
		Problem:         cfg.Problem,
		Start:           start,
		End:             end,
		Seed:            cfg.Search.Seed,
		PopulationSize:  cfg.Search.PopulationSize,
		Generations:     cfg.Search.Generations,
		MutationRate:    cfg.Search.MutationRate,
		CrossoverRate:   cfg.Search.CrossoverRate,
		TournamentSize:  cfg.Search.TournamentSize,
		EliteCount:      cfg.Search.EliteCount,
		Selection:       selector.Name(),
		BestRoute:       benchRuns[best].BestRoute,
		BestDistance:    benchRuns[best].BestDistance,
		OptimalDistance: finitePtr(optimum),
		Evaluations:     evaluations,
		DurationMS:      elapsed.Milliseconds(),
		CreatedAtUTC:    createdAt,
	}
	if err := p.persist(ctx, record, stats.AverageSeries(series), nil); err != nil {
		return BenchmarkResult{}, err
	}

	var runDir string
	if p.benchmarksDir != "" {
		runDir, err = stats.WriteBenchmarkArtifacts(p.benchmarksDir, stats.RunConfig{
			Kind:                 model.RunKindBenchmark,
			Problem:              cfg.Problem,
			Start:                start,
			End:                  end,
			PopulationSize:       cfg.Search.PopulationSize,
			Generations:          cfg.Search.Generations,
			MutationRate:         cfg.Search.MutationRate,
			CrossoverRate:        cfg.Search.CrossoverRate,
			TournamentSize:       cfg.Search.TournamentSize,
			EliteCount:           cfg.Search.EliteCount,
			Selection:            record.Selection,
			MaxConstructAttempts: cfg.Search.MaxConstructAttempts,
			Seed:                 cfg.Search.Seed,
		}, summary, series)
		if err != nil {
			return BenchmarkResult{}, p.discard(ctx, benchmarkID, fmt.Errorf("write benchmark artifacts %s: %w", benchmarkID, err))
		}
		if err := stats.AppendRunIndex(p.benchmarksDir, indexEntry(record)); err != nil {
			return BenchmarkResult{}, p.discard(ctx, benchmarkID, err)
		}
	}

	logger.Info("benchmark finished",
		"hit_rate", summary.HitRate,
		"mean_distance", summary.MeanDistance,
		"mean_gap", summary.MeanGap,
		"duration", elapsed,
	)
	return BenchmarkResult{
		BenchmarkID:  benchmarkID,
		Summary:      summary,
		OptimalRoute: optimalRoute,
		ArtifactsDir: runDir,
	}, nil
}
