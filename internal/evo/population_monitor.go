package evo

import (
	"context"
	"fmt"
	"math"
	"math/rand"

	"pathga/internal/graph"
	"pathga/internal/model"
)

// ScoredPath pairs a candidate with its distance and fitness.
type ScoredPath struct {
	Path     graph.Path
	Distance float64
	Fitness  float64
}

type RunResult struct {
	BestPath              graph.Path
	BestDistance          float64
	BestByGeneration      []float64
	GenerationDiagnostics []model.GenerationDiagnostics
	FinalPopulation       []ScoredPath
	Evaluations           int
}

// PopulationMonitor owns one path search: the population, the BestSoFar
// record and the random source every draw goes through.
type PopulationMonitor struct {
	graph    *graph.Graph
	start    string
	end      string
	cfg      Config
	rng      *rand.Rand
	selector Selector
}

type breedCounters struct {
	crossovers int
	mutations  int
}

func NewPopulationMonitor(g *graph.Graph, start, end string, cfg Config, rng *rand.Rand) (*PopulationMonitor, error) {
	if g == nil {
		return nil, fmt.Errorf("graph is required")
	}
	if rng == nil {
		return nil, fmt.Errorf("random source is required")
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if !g.HasNode(start) {
		return nil, fmt.Errorf("start: %w: %q", graph.ErrUnknownNode, start)
	}
	if !g.HasNode(end) {
		return nil, fmt.Errorf("end: %w: %q", graph.ErrUnknownNode, end)
	}
	if start == end {
		return nil, fmt.Errorf("%w: %q", ErrDegenerateEndpoints, start)
	}
	reachable, err := g.Reachable(start, end)
	if err != nil {
		return nil, err
	}
	if !reachable {
		return nil, fmt.Errorf("%w: %s is not connected to %s", ErrUnreachable, end, start)
	}

	selector := cfg.Selector
	if selector == nil {
		selector = TournamentSelector{TournamentSize: cfg.TournamentSize}
	}
	return &PopulationMonitor{
		graph:    g,
		start:    start,
		end:      end,
		cfg:      cfg,
		rng:      rng,
		selector: selector,
	}, nil
}

// Search runs a complete path search and returns the best path found over
// all generations together with its distance.
func Search(ctx context.Context, g *graph.Graph, start, end string, cfg Config, rng *rand.Rand) (RunResult, error) {
	m, err := NewPopulationMonitor(g, start, end, cfg, rng)
	if err != nil {
		return RunResult{}, err
	}
	return m.Run(ctx)
}

func (m *PopulationMonitor) Run(ctx context.Context) (RunResult, error) {
	population, err := m.seedPopulation(ctx)
	if err != nil {
		return RunResult{}, err
	}

	var bestPath graph.Path
	bestDistance := math.Inf(1)
	bestHistory := make([]float64, 0, m.cfg.Generations)
	diagnostics := make([]model.GenerationDiagnostics, 0, m.cfg.Generations)
	evaluations := 0
	var scored []ScoredPath

	for gen := 1; gen <= m.cfg.Generations; gen++ {
		if err := ctx.Err(); err != nil {
			return RunResult{}, err
		}

		scored = m.evaluate(population)
		evaluations += len(scored)

		top := RankIndices(fitnessOf(scored))[0]
		if scored[top].Distance < bestDistance {
			bestDistance = scored[top].Distance
			bestPath = scored[top].Path.Clone()
		}
		bestHistory = append(bestHistory, bestDistance)
		diag := summarizeGeneration(scored, gen, bestDistance)

		if gen < m.cfg.Generations {
			var counters breedCounters
			population, counters, err = m.nextGeneration(scored)
			if err != nil {
				return RunResult{}, err
			}
			diag.Crossovers = counters.crossovers
			diag.Mutations = counters.mutations
		}

		diagnostics = append(diagnostics, diag)
		if m.cfg.Observer != nil {
			m.cfg.Observer(diag)
		}
	}

	if bestPath == nil {
		return RunResult{}, fmt.Errorf("%w: no valid path evaluated", ErrUnreachable)
	}
	return RunResult{
		BestPath:              bestPath,
		BestDistance:          bestDistance,
		BestByGeneration:      bestHistory,
		GenerationDiagnostics: diagnostics,
		FinalPopulation:       scored,
		Evaluations:           evaluations,
	}, nil
}

func (m *PopulationMonitor) seedPopulation(ctx context.Context) ([]graph.Path, error) {
	population := make([]graph.Path, 0, m.cfg.PopulationSize)
	for len(population) < m.cfg.PopulationSize {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		path, err := ConstructPath(m.graph, m.rng, m.start, m.end, m.cfg.MaxConstructAttempts)
		if err != nil {
			return nil, err
		}
		population = append(population, path)
	}
	return population, nil
}

func (m *PopulationMonitor) evaluate(population []graph.Path) []ScoredPath {
	scored := make([]ScoredPath, len(population))
	for i, path := range population {
		distance := m.graph.Distance(path)
		scored[i] = ScoredPath{
			Path:     path,
			Distance: distance,
			Fitness:  graph.FitnessOf(distance),
		}
	}
	return scored
}

// nextGeneration builds the replacement population: elites copied unchanged,
// a tournament pool of parents, then crossover and mutation until the
// population is full again.
func (m *PopulationMonitor) nextGeneration(scored []ScoredPath) ([]graph.Path, breedCounters, error) {
	var counters breedCounters
	size := m.cfg.PopulationSize
	fitness := fitnessOf(scored)

	next := make([]graph.Path, 0, size)
	for _, idx := range RankIndices(fitness)[:m.cfg.EliteCount] {
		next = append(next, scored[idx].Path.Clone())
	}

	pool := make([]graph.Path, size)
	for i := range pool {
		idx, err := m.selector.Pick(m.rng, fitness)
		if err != nil {
			return nil, counters, err
		}
		pool[i] = scored[idx].Path
	}

	for len(next) < size {
		a, b := PickPair(m.rng, len(pool))
		c1, c2, crossed := CommonNodeCrossover(m.rng, pool[a], pool[b], m.cfg.CrossoverRate)
		if crossed {
			counters.crossovers++
		}
		for _, child := range [2]graph.Path{c1, c2} {
			if len(next) >= size {
				break
			}
			if m.rng.Float64() < m.cfg.MutationRate {
				mutated, ok, err := SegmentMutation(m.graph, m.rng, child)
				if err != nil {
					return nil, counters, err
				}
				if ok {
					counters.mutations++
				}
				child = mutated
			}
			next = append(next, child)
		}
	}
	return next, counters, nil
}

func fitnessOf(scored []ScoredPath) []float64 {
	fitness := make([]float64, len(scored))
	for i, item := range scored {
		fitness[i] = item.Fitness
	}
	return fitness
}

func summarizeGeneration(scored []ScoredPath, generation int, bestSoFar float64) model.GenerationDiagnostics {
	diag := model.GenerationDiagnostics{
		Generation:        generation,
		BestSoFarDistance: bestSoFar,
	}
	if len(scored) == 0 {
		return diag
	}

	distinct := make(map[string]struct{}, len(scored))
	totalDistance := 0.0
	totalFitness := 0.0
	for _, item := range scored {
		distinct[item.Path.Key()] = struct{}{}
		totalFitness += item.Fitness
		if math.IsInf(item.Distance, 1) {
			continue
		}
		if diag.ValidCount == 0 || item.Distance < diag.BestDistance {
			diag.BestDistance = item.Distance
		}
		if item.Distance > diag.WorstDistance {
			diag.WorstDistance = item.Distance
		}
		if item.Fitness > diag.BestFitness {
			diag.BestFitness = item.Fitness
		}
		totalDistance += item.Distance
		diag.ValidCount++
	}
	if diag.ValidCount > 0 {
		diag.MeanDistance = totalDistance / float64(diag.ValidCount)
	}
	diag.MeanFitness = totalFitness / float64(len(scored))
	diag.Diversity = len(distinct)
	return diag
}
