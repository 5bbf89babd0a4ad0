package platform

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"math/rand"
	"os"
	"time"

	"github.com/google/uuid"

	"pathga/internal/evo"
	"pathga/internal/graph"
	"pathga/internal/model"
	"pathga/internal/stats"
	"pathga/internal/storage"
	"pathga/internal/tour"
)

type SearchConfig struct {
	RunID   string
	Problem string
	Start   string
	End     string
	Search  evo.Config
	// Selection names the parent selector: "tournament" (default) or "elite".
	Selection string
	// ProgressEvery logs the best distance so far every N generations; 0 is silent.
	ProgressEvery int
}

type SearchResult struct {
	RunID           string
	Record          model.RunRecord
	Result          evo.RunResult
	OptimalRoute    graph.Path
	OptimalDistance float64
	ArtifactsDir    string
}

// RunSearch runs one path search on a registered graph, compares it with the
// exact shortest path and persists the record, the series and the artifacts.
func (p *Polis) RunSearch(ctx context.Context, cfg SearchConfig) (SearchResult, error) {
	if err := checkRunID(cfg.RunID); err != nil {
		return SearchResult{}, err
	}
	g, err := p.lookupGraph(cfg.Problem)
	if err != nil {
		return SearchResult{}, err
	}
	start, end, err := resolveEndpoints(cfg.Problem, cfg.Start, cfg.End)
	if err != nil {
		return SearchResult{}, err
	}
	selector, err := evo.SelectorFromName(cfg.Selection, cfg.Search.TournamentSize)
	if err != nil {
		return SearchResult{}, err
	}

	runID := cfg.RunID
	if runID == "" {
		runID = uuid.NewString()
	}
	logger := p.logger.With("run_id", runID, "problem", cfg.Problem, "start", start, "end", end)

	searchCfg := cfg.Search
	searchCfg.Selector = selector
	searchCfg.Observer = progressObserver(logger, cfg.ProgressEvery, searchCfg.Observer)

	logger.Info("search started", "population", searchCfg.PopulationSize, "generations", searchCfg.Generations, "seed", searchCfg.Seed)
	began := time.Now()
	result, err := evo.Search(ctx, g, start, end, searchCfg, rand.New(rand.NewSource(searchCfg.Seed)))
	if err != nil {
		return SearchResult{}, fmt.Errorf("search %s %s->%s: %w", cfg.Problem, start, end, err)
	}
	elapsed := time.Since(began)

	optimalRoute, optimum, err := graph.ShortestPath(g, start, end)
	if err != nil {
		return SearchResult{}, err
	}

	record := model.RunRecord{
		VersionedRecord: storage.NewRunVersion(),
		ID:              runID,
		Kind:            model.RunKindPath,
		Problem:         cfg.Problem,
		Start:           start,
		End:             end,
		Seed:            searchCfg.Seed,
		PopulationSize:  searchCfg.PopulationSize,
		Generations:     searchCfg.Generations,
		MutationRate:    searchCfg.MutationRate,
		CrossoverRate:   searchCfg.CrossoverRate,
		TournamentSize:  searchCfg.TournamentSize,
		EliteCount:      searchCfg.EliteCount,
		Selection:       selector.Name(),
		BestRoute:       []string(result.BestPath.Clone()),
		BestDistance:    result.BestDistance,
		OptimalDistance: finitePtr(optimum),
		Evaluations:     result.Evaluations,
		DurationMS:      elapsed.Milliseconds(),
		CreatedAtUTC:    p.timestamp(),
	}
	if err := p.persist(ctx, record, result.BestByGeneration, result.GenerationDiagnostics); err != nil {
		return SearchResult{}, err
	}

	runDir, err := p.writeArtifacts(record, stats.RunArtifacts{
		Config: stats.RunConfig{
			RunID:                runID,
			Kind:                 record.Kind,
			Problem:              record.Problem,
			Start:                start,
			End:                  end,
			PopulationSize:       searchCfg.PopulationSize,
			Generations:          searchCfg.Generations,
			MutationRate:         searchCfg.MutationRate,
			CrossoverRate:        searchCfg.CrossoverRate,
			TournamentSize:       searchCfg.TournamentSize,
			EliteCount:           searchCfg.EliteCount,
			Selection:            record.Selection,
			MaxConstructAttempts: searchCfg.MaxConstructAttempts,
			Seed:                 searchCfg.Seed,
		},
		BestByGeneration:      result.BestByGeneration,
		GenerationDiagnostics: result.GenerationDiagnostics,
		Best: stats.BestPath{
			Route:           record.BestRoute,
			Distance:        record.BestDistance,
			OptimalDistance: record.OptimalDistance,
		},
		Evaluations:     result.Evaluations,
		DurationSeconds: elapsed.Seconds(),
	})
	if err != nil {
		return SearchResult{}, p.discard(ctx, runID, err)
	}

	logger.Info("search finished",
		"best_distance", result.BestDistance,
		"optimal_distance", optimum,
		"route", result.BestPath.String(),
		"duration", elapsed,
	)
	return SearchResult{
		RunID:           runID,
		Record:          record,
		Result:          result,
		OptimalRoute:    optimalRoute,
		OptimalDistance: optimum,
		ArtifactsDir:    runDir,
	}, nil
}

type TourConfig struct {
	RunID         string
	Problem       string
	Search        tour.Config
	Selection     string
	ProgressEvery int
}

type TourResult struct {
	RunID        string
	Record       model.RunRecord
	Result       tour.Result
	ArtifactsDir string
}

// RunTour runs one tour search on a registered city set and persists it.
func (p *Polis) RunTour(ctx context.Context, cfg TourConfig) (TourResult, error) {
	if !p.Started() {
		return TourResult{}, fmt.Errorf("polis is not initialized")
	}
	if err := checkRunID(cfg.RunID); err != nil {
		return TourResult{}, err
	}
	cities, ok := p.Cities(cfg.Problem)
	if !ok {
		return TourResult{}, fmt.Errorf("city set not registered: %s", cfg.Problem)
	}
	selector, err := evo.SelectorFromName(cfg.Selection, cfg.Search.TournamentSize)
	if err != nil {
		return TourResult{}, err
	}

	runID := cfg.RunID
	if runID == "" {
		runID = uuid.NewString()
	}
	logger := p.logger.With("run_id", runID, "problem", cfg.Problem)

	searchCfg := cfg.Search
	searchCfg.Selector = selector
	searchCfg.Observer = progressObserver(logger, cfg.ProgressEvery, searchCfg.Observer)

	logger.Info("tour search started", "cities", len(cities), "population", searchCfg.PopulationSize, "generations", searchCfg.Generations, "seed", searchCfg.Seed)
	began := time.Now()
	result, err := tour.Search(ctx, cities, searchCfg, rand.New(rand.NewSource(searchCfg.Seed)))
	if err != nil {
		return TourResult{}, fmt.Errorf("tour %s: %w", cfg.Problem, err)
	}
	elapsed := time.Since(began)

	record := model.RunRecord{
		VersionedRecord: storage.NewRunVersion(),
		ID:              runID,
		Kind:            model.RunKindTour,
		Problem:         cfg.Problem,
		Seed:            searchCfg.Seed,
		PopulationSize:  searchCfg.PopulationSize,
		Generations:     searchCfg.Generations,
		MutationRate:    searchCfg.MutationRate,
		CrossoverRate:   searchCfg.CrossoverRate,
		TournamentSize:  searchCfg.TournamentSize,
		EliteCount:      searchCfg.EliteCount,
		Selection:       selector.Name(),
		BestRoute:       append([]string(nil), result.Route...),
		BestDistance:    result.Distance,
		Evaluations:     result.Evaluations,
		DurationMS:      elapsed.Milliseconds(),
		CreatedAtUTC:    p.timestamp(),
	}
	if err := p.persist(ctx, record, result.BestByGeneration, result.GenerationDiagnostics); err != nil {
		return TourResult{}, err
	}

	points := make([]stats.Point, len(cities))
	for i, c := range cities {
		points[i] = stats.Point{Label: c.Name, X: c.X, Y: c.Y}
	}
	runDir, err := p.writeArtifacts(record, stats.RunArtifacts{
		Config: stats.RunConfig{
			RunID:          runID,
			Kind:           record.Kind,
			Problem:        record.Problem,
			PopulationSize: searchCfg.PopulationSize,
			Generations:    searchCfg.Generations,
			MutationRate:   searchCfg.MutationRate,
			CrossoverRate:  searchCfg.CrossoverRate,
			TournamentSize: searchCfg.TournamentSize,
			EliteCount:     searchCfg.EliteCount,
			Selection:      record.Selection,
			Seed:           searchCfg.Seed,
		},
		BestByGeneration:      result.BestByGeneration,
		GenerationDiagnostics: result.GenerationDiagnostics,
		Best: stats.BestPath{
			Route:    record.BestRoute,
			Distance: record.BestDistance,
			Closed:   true,
		},
		Evaluations:     result.Evaluations,
		DurationSeconds: elapsed.Seconds(),
		Cities:          points,
	})
	if err != nil {
		return TourResult{}, p.discard(ctx, runID, err)
	}

	logger.Info("tour search finished", "best_distance", result.Distance, "duration", elapsed)
	return TourResult{
		RunID:        runID,
		Record:       record,
		Result:       result,
		ArtifactsDir: runDir,
	}, nil
}

func (p *Polis) persist(ctx context.Context, record model.RunRecord, history []float64, diagnostics []model.GenerationDiagnostics) error {
	if err := p.store.SaveRun(ctx, record); err != nil {
		return fmt.Errorf("save run %s: %w", record.ID, err)
	}
	if history != nil {
		if err := p.store.SaveFitnessHistory(ctx, record.ID, history); err != nil {
			return fmt.Errorf("save fitness history %s: %w", record.ID, err)
		}
	}
	if diagnostics != nil {
		if err := p.store.SaveGenerationDiagnostics(ctx, record.ID, diagnostics); err != nil {
			return fmt.Errorf("save generation diagnostics %s: %w", record.ID, err)
		}
	}
	return nil
}

func (p *Polis) writeArtifacts(record model.RunRecord, artifacts stats.RunArtifacts) (string, error) {
	if p.benchmarksDir == "" {
		return "", nil
	}
	runDir, err := stats.WriteRunArtifacts(p.benchmarksDir, artifacts)
	if err != nil {
		return "", fmt.Errorf("write artifacts %s: %w", record.ID, err)
	}
	if err := stats.AppendRunIndex(p.benchmarksDir, indexEntry(record)); err != nil {
		return "", err
	}
	return runDir, nil
}

// discard drops a run whose artifacts could not be written so the store
// never holds a record without its directory.
func (p *Polis) discard(ctx context.Context, runID string, cause error) error {
	errs := []error{cause}
	if err := p.store.DeleteRun(context.WithoutCancel(ctx), runID); err != nil {
		errs = append(errs, fmt.Errorf("discard run %s: %w", runID, err))
	}
	if p.benchmarksDir != "" {
		if dir, err := stats.RunDir(p.benchmarksDir, runID); err == nil {
			if err := os.RemoveAll(dir); err != nil {
				errs = append(errs, fmt.Errorf("discard artifacts %s: %w", runID, err))
			}
		}
	}
	p.logger.Warn("run discarded", "run_id", runID, "error", cause)
	return errors.Join(errs...)
}

// checkRunID validates a caller-chosen run id; an empty id gets a uuid.
func checkRunID(runID string) error {
	if runID == "" {
		return nil
	}
	return stats.ValidateRunID(runID)
}

func indexEntry(record model.RunRecord) stats.RunIndexEntry {
	return stats.RunIndexEntry{
		RunID:           record.ID,
		Kind:            record.Kind,
		Problem:         record.Problem,
		Start:           record.Start,
		End:             record.End,
		PopulationSize:  record.PopulationSize,
		Generations:     record.Generations,
		Seed:            record.Seed,
		BestDistance:    record.BestDistance,
		OptimalDistance: record.OptimalDistance,
		CreatedAtUTC:    record.CreatedAtUTC,
	}
}

// progressObserver logs a progress line every `every` generations and then
// forwards to next, if any.
func progressObserver(logger *slog.Logger, every int, next evo.Observer) evo.Observer {
	return func(d model.GenerationDiagnostics) {
		if every > 0 && d.Generation%every == 0 {
			logger.Info("progress",
				"generation", d.Generation,
				"best_distance_so_far", d.BestSoFarDistance,
				"mean_distance", d.MeanDistance,
				"diversity", d.Diversity,
			)
		}
		if next != nil {
			next(d)
		}
	}
}

func finitePtr(v float64) *float64 {
	if math.IsInf(v, 0) || math.IsNaN(v) {
		return nil
	}
	return &v
}
