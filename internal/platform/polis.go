package platform

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"sync"
	"time"

	"pathga/internal/graph"
	"pathga/internal/storage"
	"pathga/internal/tour"
)

// timestampLayout keeps fixed-width fractions so timestamps sort as strings.
const timestampLayout = "2006-01-02T15:04:05.000000000Z"

type Config struct {
	Store storage.Store
	// BenchmarksDir receives run artifact directories. Empty disables them.
	BenchmarksDir string
	Logger        *slog.Logger
}

// Polis owns the registered problems and the store every run is persisted to.
type Polis struct {
	store         storage.Store
	benchmarksDir string
	logger        *slog.Logger
	now           func() time.Time

	mu      sync.RWMutex
	graphs  map[string]*graph.Graph
	cities  map[string][]tour.City
	started bool
}

func NewPolis(cfg Config) *Polis {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Polis{
		store:         cfg.Store,
		benchmarksDir: cfg.BenchmarksDir,
		logger:        logger,
		now:           time.Now,
		graphs:        make(map[string]*graph.Graph),
		cities:        make(map[string][]tour.City),
	}
}

// Init initializes the store and registers the built-in graphs and city sets.
// Calling Init on a started Polis is a no-op.
func (p *Polis) Init(ctx context.Context) error {
	if p.store == nil {
		return fmt.Errorf("store is required")
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.started {
		return nil
	}
	if err := p.store.Init(ctx); err != nil {
		return err
	}

	for _, name := range graph.BuiltinNames() {
		g, err := graph.Builtin(name)
		if err != nil {
			return err
		}
		p.graphs[name] = g
	}
	for _, name := range tour.BuiltinNames() {
		cities, err := tour.Builtin(name)
		if err != nil {
			return err
		}
		p.cities[name] = cities
	}
	p.started = true
	return nil
}

// Reset clears persisted runs. Registered problems are kept.
func (p *Polis) Reset(ctx context.Context) error {
	if err := p.Init(ctx); err != nil {
		return err
	}
	return p.store.Reset(ctx)
}

func (p *Polis) Started() bool {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.started
}

func (p *Polis) Store() storage.Store {
	return p.store
}

// RegisterGraph makes g available to RunSearch under name. The graph must not
// be modified afterwards; concurrent searches read it without locking.
func (p *Polis) RegisterGraph(name string, g *graph.Graph) error {
	if g == nil {
		return fmt.Errorf("graph is nil")
	}
	name = strings.TrimSpace(name)
	if name == "" {
		return fmt.Errorf("graph name is required")
	}
	if g.Len() < 2 {
		return fmt.Errorf("graph %s needs at least two nodes", name)
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	if !p.started {
		return fmt.Errorf("polis is not initialized")
	}
	p.graphs[name] = g
	return nil
}

func (p *Polis) Graph(name string) (*graph.Graph, bool) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	g, ok := p.graphs[name]
	return g, ok
}

func (p *Polis) RegisteredGraphs() []string {
	p.mu.RLock()
	defer p.mu.RUnlock()
	names := make([]string, 0, len(p.graphs))
	for name := range p.graphs {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func (p *Polis) RegisterCities(name string, cities []tour.City) error {
	name = strings.TrimSpace(name)
	if name == "" {
		return fmt.Errorf("city set name is required")
	}
	if err := tour.ValidateCities(cities); err != nil {
		return err
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	if !p.started {
		return fmt.Errorf("polis is not initialized")
	}
	p.cities[name] = append([]tour.City(nil), cities...)
	return nil
}

func (p *Polis) Cities(name string) ([]tour.City, bool) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	cities, ok := p.cities[name]
	if !ok {
		return nil, false
	}
	return append([]tour.City(nil), cities...), true
}

func (p *Polis) RegisteredCities() []string {
	p.mu.RLock()
	defer p.mu.RUnlock()
	names := make([]string, 0, len(p.cities))
	for name := range p.cities {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func (p *Polis) lookupGraph(name string) (*graph.Graph, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if !p.started {
		return nil, fmt.Errorf("polis is not initialized")
	}
	g, ok := p.graphs[name]
	if !ok {
		return nil, fmt.Errorf("graph not registered: %s", name)
	}
	return g, nil
}

// resolveEndpoints fills a missing start or end from the pair a built-in
// graph was posed with.
func resolveEndpoints(problem, start, end string) (string, string, error) {
	if start != "" && end != "" {
		return start, end, nil
	}
	pairs, ok := graph.BuiltinEndpoints[problem]
	if !ok || len(pairs) == 0 {
		return "", "", fmt.Errorf("start and end are required for graph %s", problem)
	}
	if start == "" {
		start = pairs[0][0]
	}
	if end == "" {
		end = pairs[0][1]
	}
	return start, end, nil
}

func (p *Polis) timestamp() string {
	return p.now().UTC().Format(timestampLayout)
}
