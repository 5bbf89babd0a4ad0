package evo

import (
	"context"
	"errors"
	"math"
	"math/rand"
	"testing"

	"pathga/internal/graph"
	"pathga/internal/model"
)

func mustBuiltin(t *testing.T, name string) *graph.Graph {
	t.Helper()
	g, err := graph.Builtin(name)
	if err != nil {
		t.Fatalf("builtin %s: %v", name, err)
	}
	return g
}

func TestSearchExamAConvergesToOptimum(t *testing.T) {
	g := mustBuiltin(t, "exam-a")
	_, optimum, err := graph.ShortestPath(g, "A", "D")
	if err != nil {
		t.Fatalf("shortest path: %v", err)
	}

	result, err := Search(context.Background(), g, "A", "D", DefaultConfig(), rand.New(rand.NewSource(1)))
	if err != nil {
		t.Fatalf("search: %v", err)
	}
	if result.BestDistance != optimum {
		t.Fatalf("expected best distance %v, got %v via %s", optimum, result.BestDistance, result.BestPath)
	}
	if err := g.ValidatePath(result.BestPath, "A", "D"); err != nil {
		t.Fatalf("best path invalid: %v", err)
	}
	if got := g.Distance(result.BestPath); got != result.BestDistance {
		t.Fatalf("reported distance %v does not match path distance %v", result.BestDistance, got)
	}
	for gen, d := range result.BestByGeneration {
		if d < optimum {
			t.Fatalf("generation %d reported %v below the optimum %v", gen+1, d, optimum)
		}
	}
}

func TestSearchRomaniaRoutes(t *testing.T) {
	g := mustBuiltin(t, "romania")
	for _, pair := range graph.BuiltinEndpoints["romania"] {
		_, optimum, err := graph.ShortestPath(g, pair[0], pair[1])
		if err != nil {
			t.Fatalf("shortest path: %v", err)
		}
		result, err := Search(context.Background(), g, pair[0], pair[1], DefaultConfig(), rand.New(rand.NewSource(7)))
		if err != nil {
			t.Fatalf("search %s->%s: %v", pair[0], pair[1], err)
		}
		if err := g.ValidatePath(result.BestPath, pair[0], pair[1]); err != nil {
			t.Fatalf("best path invalid: %v", err)
		}
		if result.BestDistance < optimum {
			t.Fatalf("%s->%s: distance %v below optimum %v", pair[0], pair[1], result.BestDistance, optimum)
		}
	}
}

func TestSearchDeterministicForSeed(t *testing.T) {
	g := mustBuiltin(t, "romania")
	cfg := DefaultConfig()
	cfg.Generations = 40

	a, err := Search(context.Background(), g, "Arad", "Neamt", cfg, rand.New(rand.NewSource(99)))
	if err != nil {
		t.Fatalf("search a: %v", err)
	}
	b, err := Search(context.Background(), g, "Arad", "Neamt", cfg, rand.New(rand.NewSource(99)))
	if err != nil {
		t.Fatalf("search b: %v", err)
	}
	if !a.BestPath.Equal(b.BestPath) || a.BestDistance != b.BestDistance {
		t.Fatalf("expected identical results, got %s (%v) and %s (%v)", a.BestPath, a.BestDistance, b.BestPath, b.BestDistance)
	}
	if len(a.FinalPopulation) != len(b.FinalPopulation) {
		t.Fatalf("final population size mismatch")
	}
	for i := range a.FinalPopulation {
		if !a.FinalPopulation[i].Path.Equal(b.FinalPopulation[i].Path) {
			t.Fatalf("final population differs at %d", i)
		}
	}
}

func TestSearchBestSoFarMonotonic(t *testing.T) {
	g := mustBuiltin(t, "exam-b")
	cfg := DefaultConfig()
	cfg.Generations = 60
	cfg.PopulationSize = 20

	var observed []model.GenerationDiagnostics
	cfg.Observer = func(d model.GenerationDiagnostics) {
		observed = append(observed, d)
	}
	result, err := Search(context.Background(), g, "a", "z", cfg, rand.New(rand.NewSource(3)))
	if err != nil {
		t.Fatalf("search: %v", err)
	}
	if len(result.BestByGeneration) != cfg.Generations || len(observed) != cfg.Generations {
		t.Fatalf("expected %d generations, got history=%d observed=%d", cfg.Generations, len(result.BestByGeneration), len(observed))
	}
	for i := 1; i < len(result.BestByGeneration); i++ {
		if result.BestByGeneration[i] > result.BestByGeneration[i-1] {
			t.Fatalf("best so far increased at generation %d: %v -> %v", i+1, result.BestByGeneration[i-1], result.BestByGeneration[i])
		}
	}
	for i, d := range observed {
		if d.Generation != i+1 {
			t.Fatalf("unexpected generation number %d at %d", d.Generation, i)
		}
		if d.BestSoFarDistance > d.BestDistance {
			t.Fatalf("best so far %v worse than generation best %v", d.BestSoFarDistance, d.BestDistance)
		}
		if d.ValidCount != cfg.PopulationSize {
			t.Fatalf("expected every individual valid, got %d/%d", d.ValidCount, cfg.PopulationSize)
		}
	}
	if result.Evaluations != cfg.Generations*cfg.PopulationSize {
		t.Fatalf("unexpected evaluation count %d", result.Evaluations)
	}
}

func TestNextGenerationKeepsElitesAndValidity(t *testing.T) {
	g := mustBuiltin(t, "romania")
	cfg := DefaultConfig()
	cfg.PopulationSize = 31
	cfg.EliteCount = 3
	cfg.MutationRate = 0.9

	m, err := NewPopulationMonitor(g, "Oradea", "Eforie", cfg, rand.New(rand.NewSource(5)))
	if err != nil {
		t.Fatalf("new monitor: %v", err)
	}
	population, err := m.seedPopulation(context.Background())
	if err != nil {
		t.Fatalf("seed population: %v", err)
	}

	for gen := 0; gen < 25; gen++ {
		scored := m.evaluate(population)
		ranked := RankIndices(fitnessOf(scored))

		next, _, err := m.nextGeneration(scored)
		if err != nil {
			t.Fatalf("next generation: %v", err)
		}
		if len(next) != cfg.PopulationSize {
			t.Fatalf("expected population %d, got %d", cfg.PopulationSize, len(next))
		}
		for e := 0; e < cfg.EliteCount; e++ {
			elite := scored[ranked[e]].Path
			if !next[e].Equal(elite) {
				t.Fatalf("generation %d: elite %d not carried over: %s vs %s", gen, e, elite, next[e])
			}
		}
		for i, path := range next {
			if err := g.ValidatePath(path, "Oradea", "Eforie"); err != nil {
				t.Fatalf("generation %d individual %d invalid (%s): %v", gen, i, path, err)
			}
		}
		population = next
	}
}

func TestSearchErrors(t *testing.T) {
	g := mustBuiltin(t, "exam-a")
	if err := g.AddEdge("X", "Y", 1); err != nil {
		t.Fatalf("add edge: %v", err)
	}
	rng := rand.New(rand.NewSource(1))
	ctx := context.Background()

	if _, err := Search(ctx, g, "A", "X", DefaultConfig(), rng); !errors.Is(err, ErrUnreachable) {
		t.Fatalf("expected ErrUnreachable, got %v", err)
	}
	if _, err := Search(ctx, g, "A", "nowhere", DefaultConfig(), rng); !errors.Is(err, graph.ErrUnknownNode) {
		t.Fatalf("expected ErrUnknownNode, got %v", err)
	}
	if _, err := Search(ctx, g, "A", "A", DefaultConfig(), rng); !errors.Is(err, ErrDegenerateEndpoints) {
		t.Fatalf("expected ErrDegenerateEndpoints, got %v", err)
	}
	if _, err := Search(ctx, g, "A", "D", DefaultConfig(), nil); err == nil {
		t.Fatal("expected error for nil random source")
	}
	if _, err := Search(ctx, nil, "A", "D", DefaultConfig(), rng); err == nil {
		t.Fatal("expected error for nil graph")
	}

	cancelled, cancel := context.WithCancel(ctx)
	cancel()
	if _, err := Search(cancelled, g, "A", "D", DefaultConfig(), rng); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}

func TestConfigValidation(t *testing.T) {
	if err := DefaultConfig().Validate(); err != nil {
		t.Fatalf("default config invalid: %v", err)
	}

	cases := map[string]func(*Config){
		"population":  func(c *Config) { c.PopulationSize = 1 },
		"generations": func(c *Config) { c.Generations = 0 },
		"mutation":    func(c *Config) { c.MutationRate = 1.5 },
		"crossover":   func(c *Config) { c.CrossoverRate = -0.1 },
		"tournament":  func(c *Config) { c.TournamentSize = 0 },
		"elite":       func(c *Config) { c.EliteCount = c.PopulationSize + 1 },
		"attempts":    func(c *Config) { c.MaxConstructAttempts = 0 },
	}
	for name, mutate := range cases {
		cfg := DefaultConfig()
		mutate(&cfg)
		if err := cfg.Validate(); !errors.Is(err, ErrInvalidConfig) {
			t.Fatalf("%s: expected ErrInvalidConfig, got %v", name, err)
		}
	}
}

func TestConstructPathBounded(t *testing.T) {
	g := graph.New()
	if err := g.AddArc("a", "b", 1); err != nil {
		t.Fatalf("add arc: %v", err)
	}
	if err := g.AddNode("c"); err != nil {
		t.Fatalf("add node: %v", err)
	}
	_, err := ConstructPath(g, rand.New(rand.NewSource(1)), "a", "c", 5)
	if !errors.Is(err, ErrUnreachable) {
		t.Fatalf("expected ErrUnreachable, got %v", err)
	}

	exam := mustBuiltin(t, "exam-a")
	rng := rand.New(rand.NewSource(2))
	for i := 0; i < 200; i++ {
		path, err := ConstructPath(exam, rng, "A", "D", 1000)
		if err != nil {
			t.Fatalf("construct: %v", err)
		}
		if err := exam.ValidatePath(path, "A", "D"); err != nil {
			t.Fatalf("constructed path %s invalid: %v", path, err)
		}
	}
}

func TestSearchAllowsZeroElites(t *testing.T) {
	g := mustBuiltin(t, "exam-a")
	cfg := DefaultConfig()
	cfg.EliteCount = 0
	cfg.Generations = 20
	result, err := Search(context.Background(), g, "A", "D", cfg, rand.New(rand.NewSource(4)))
	if err != nil {
		t.Fatalf("search: %v", err)
	}
	if math.IsInf(result.BestDistance, 1) {
		t.Fatal("expected a finite best distance")
	}
}
