package evo

import (
	"fmt"
	"math/rand"
	"sort"
)

// Selector chooses a parent index from a scored population.
type Selector interface {
	Name() string
	Pick(rng *rand.Rand, fitness []float64) (int, error)
}

// TournamentSelector samples TournamentSize individuals with replacement and
// picks the fittest among them. The first sampled individual wins ties.
type TournamentSelector struct {
	TournamentSize int
}

func (TournamentSelector) Name() string {
	return "tournament"
}

func (s TournamentSelector) Pick(rng *rand.Rand, fitness []float64) (int, error) {
	if rng == nil {
		return 0, fmt.Errorf("random source is required")
	}
	if len(fitness) == 0 {
		return 0, fmt.Errorf("population is empty")
	}

	tournamentSize := s.TournamentSize
	if tournamentSize <= 0 {
		tournamentSize = 3
	}

	best := rng.Intn(len(fitness))
	for i := 1; i < tournamentSize; i++ {
		candidate := rng.Intn(len(fitness))
		if fitness[candidate] > fitness[best] {
			best = candidate
		}
	}
	return best, nil
}

// EliteSelector picks uniformly from the PoolSize fittest individuals.
type EliteSelector struct {
	PoolSize int
}

func (EliteSelector) Name() string {
	return "elite"
}

func (s EliteSelector) Pick(rng *rand.Rand, fitness []float64) (int, error) {
	if rng == nil {
		return 0, fmt.Errorf("random source is required")
	}
	if len(fitness) == 0 {
		return 0, fmt.Errorf("population is empty")
	}
	poolSize := s.PoolSize
	if poolSize <= 0 || poolSize > len(fitness) {
		poolSize = len(fitness)
	}
	ranked := RankIndices(fitness)
	return ranked[rng.Intn(poolSize)], nil
}

// SelectorFromName resolves a CLI selection strategy name.
func SelectorFromName(name string, tournamentSize int) (Selector, error) {
	switch name {
	case "", "tournament":
		return TournamentSelector{TournamentSize: tournamentSize}, nil
	case "elite":
		return EliteSelector{PoolSize: tournamentSize}, nil
	default:
		return nil, fmt.Errorf("unsupported selection strategy: %s", name)
	}
}

// RankIndices orders population indices by descending fitness. Equal fitness
// keeps the lower index first.
func RankIndices(fitness []float64) []int {
	idx := make([]int, len(fitness))
	for i := range idx {
		idx[i] = i
	}
	sort.SliceStable(idx, func(a, b int) bool {
		return fitness[idx[a]] > fitness[idx[b]]
	})
	return idx
}

// PickPair draws two distinct indices in [0, n) uniformly. n must be >= 2.
func PickPair(rng *rand.Rand, n int) (int, int) {
	a := rng.Intn(n)
	b := rng.Intn(n - 1)
	if b >= a {
		b++
	}
	return a, b
}
