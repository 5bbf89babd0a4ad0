package tour

import (
	"context"
	"fmt"
	"math"
	"math/rand"
	"strconv"
	"strings"

	"pathga/internal/evo"
	"pathga/internal/graph"
	"pathga/internal/model"
)

// Config parameterizes a tour search.
type Config struct {
	PopulationSize int     `json:"population_size" validate:"gte=2"`
	Generations    int     `json:"generations" validate:"gte=1"`
	MutationRate   float64 `json:"mutation_rate" validate:"gte=0,lte=1"`
	CrossoverRate  float64 `json:"crossover_rate" validate:"gte=0,lte=1"`
	TournamentSize int     `json:"tournament_size" validate:"gte=1"`
	EliteCount     int     `json:"elite_count" validate:"gte=0,ltefield=PopulationSize"`
	Seed           int64   `json:"seed"`

	Selector evo.Selector `json:"-"`
	Observer evo.Observer `json:"-"`
}

func DefaultConfig() Config {
	return Config{
		PopulationSize: 200,
		Generations:    3000,
		MutationRate:   0.05,
		CrossoverRate:  0.9,
		TournamentSize: 5,
		EliteCount:     2,
		Seed:           1,
	}
}

func (c Config) Validate() error {
	return evo.CheckStruct(c)
}

type Result struct {
	// Tour starts at city index 0; the closing leg back to it is implied.
	Tour                  []int
	Route                 []string
	Distance              float64
	BestByGeneration      []float64
	GenerationDiagnostics []model.GenerationDiagnostics
	Evaluations           int
}

type scoredTour struct {
	tour     []int
	distance float64
	fitness  float64
}

// Search evolves closed tours over cities and returns the shortest tour seen
// in any evaluated generation.
func Search(ctx context.Context, cities []City, cfg Config, rng *rand.Rand) (Result, error) {
	if rng == nil {
		return Result{}, fmt.Errorf("random source is required")
	}
	if err := cfg.Validate(); err != nil {
		return Result{}, err
	}
	if err := ValidateCities(cities); err != nil {
		return Result{}, err
	}
	selector := cfg.Selector
	if selector == nil {
		selector = evo.TournamentSelector{TournamentSize: cfg.TournamentSize}
	}

	matrix := NewMatrix(cities)
	n := len(cities)
	population := make([][]int, cfg.PopulationSize)
	for i := range population {
		population[i] = rng.Perm(n)
	}

	var bestTour []int
	bestDistance := math.Inf(1)
	history := make([]float64, 0, cfg.Generations)
	diagnostics := make([]model.GenerationDiagnostics, 0, cfg.Generations)
	evaluations := 0

	for gen := 1; gen <= cfg.Generations; gen++ {
		if err := ctx.Err(); err != nil {
			return Result{}, err
		}

		scored := make([]scoredTour, len(population))
		fitness := make([]float64, len(population))
		for i, t := range population {
			d := matrix.Distance(t)
			scored[i] = scoredTour{tour: t, distance: d, fitness: graph.FitnessOf(d)}
			fitness[i] = scored[i].fitness
		}
		evaluations += len(scored)

		ranked := evo.RankIndices(fitness)
		if top := scored[ranked[0]]; top.distance < bestDistance {
			bestDistance = top.distance
			bestTour = append([]int(nil), top.tour...)
		}
		history = append(history, bestDistance)
		diag := summarize(scored, gen, bestDistance)

		if gen < cfg.Generations {
			next, counters, err := breed(rng, cfg, selector, scored, fitness, ranked)
			if err != nil {
				return Result{}, err
			}
			population = next
			diag.Crossovers = counters[0]
			diag.Mutations = counters[1]
		}

		diagnostics = append(diagnostics, diag)
		if cfg.Observer != nil {
			cfg.Observer(diag)
		}
	}

	tour := Rotate(bestTour, 0)
	route := make([]string, len(tour))
	for i, city := range tour {
		route[i] = cities[city].Name
	}
	return Result{
		Tour:                  tour,
		Route:                 route,
		Distance:              bestDistance,
		BestByGeneration:      history,
		GenerationDiagnostics: diagnostics,
		Evaluations:           evaluations,
	}, nil
}

// breed returns the next population and its {crossovers, mutations} counts.
// Each pairing of two distinct pool members yields one child.
func breed(rng *rand.Rand, cfg Config, selector evo.Selector, scored []scoredTour, fitness []float64, ranked []int) ([][]int, [2]int, error) {
	var counters [2]int
	next := make([][]int, 0, cfg.PopulationSize)
	for _, idx := range ranked[:cfg.EliteCount] {
		next = append(next, append([]int(nil), scored[idx].tour...))
	}

	pool := make([][]int, cfg.PopulationSize)
	for i := range pool {
		idx, err := selector.Pick(rng, fitness)
		if err != nil {
			return nil, counters, err
		}
		pool[i] = scored[idx].tour
	}

	for len(next) < cfg.PopulationSize {
		a, b := evo.PickPair(rng, len(pool))
		var child []int
		if rng.Float64() < cfg.CrossoverRate {
			child = OrderedCrossover(rng, pool[a], pool[b])
			counters[0]++
		} else {
			child = append([]int(nil), pool[a]...)
		}
		if rng.Float64() < cfg.MutationRate {
			child = SwapMutation(rng, child)
			counters[1]++
		}
		next = append(next, child)
	}
	return next, counters, nil
}

func summarize(scored []scoredTour, generation int, bestSoFar float64) model.GenerationDiagnostics {
	diag := model.GenerationDiagnostics{
		Generation:        generation,
		BestSoFarDistance: bestSoFar,
		ValidCount:        len(scored),
	}
	distinct := make(map[string]struct{}, len(scored))
	totalDistance, totalFitness := 0.0, 0.0
	for i, item := range scored {
		distinct[tourKey(item.tour)] = struct{}{}
		if i == 0 || item.distance < diag.BestDistance {
			diag.BestDistance = item.distance
			diag.BestFitness = item.fitness
		}
		if item.distance > diag.WorstDistance {
			diag.WorstDistance = item.distance
		}
		totalDistance += item.distance
		totalFitness += item.fitness
	}
	if len(scored) > 0 {
		diag.MeanDistance = totalDistance / float64(len(scored))
		diag.MeanFitness = totalFitness / float64(len(scored))
	}
	diag.Diversity = len(distinct)
	return diag
}

// tourKey identifies a tour up to rotation.
func tourKey(tour []int) string {
	var b strings.Builder
	for i, city := range Rotate(tour, 0) {
		if i > 0 {
			b.WriteByte(',')
		}
		b.WriteString(strconv.Itoa(city))
	}
	return b.String()
}
