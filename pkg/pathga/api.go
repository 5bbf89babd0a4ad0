package pathga

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"pathga/internal/evo"
	"pathga/internal/graph"
	"pathga/internal/model"
	"pathga/internal/platform"
	"pathga/internal/stats"
	"pathga/internal/storage"
	"pathga/internal/tour"
)

const (
	defaultBenchmarksDir = "benchmarks"
	defaultExportsDir    = "exports"
	defaultDBPath        = "pathga.db"
)

type Options struct {
	StoreKind     string
	DBPath        string
	BenchmarksDir string
	ExportsDir    string
	Logger        *slog.Logger
}

type Client struct {
	store  storage.Store
	logger *slog.Logger

	mu    sync.Mutex
	polis *platform.Polis

	benchmarksDir string
	exportsDir    string
}

// RunRequest describes one path search. Zero numeric fields take the
// evo.DefaultConfig values; the rates, elites and seed are pointers so that 0
// can be asked for.
type RunRequest struct {
	RunID string
	// Problem names a registered graph. With GraphFile set it is the name the
	// loaded graph is registered under and defaults to the file's base name.
	Problem              string
	GraphFile            string
	Start                string
	End                  string
	Population           int
	Generations          int
	MutationRate         *float64
	CrossoverRate        *float64
	TournamentSize       int
	EliteCount           *int
	MaxConstructAttempts int
	Seed                 *int64
	Selection            string
	ProgressEvery        int
}

type RunSummary struct {
	RunID            string
	ArtifactsDir     string
	Route            []string
	Distance         float64
	OptimalRoute     []string
	OptimalDistance  float64
	BestByGeneration []float64
	Evaluations      int
	DurationMS       int64
}

type TourRequest struct {
	RunID          string
	Problem        string
	CitiesFile     string
	Population     int
	Generations    int
	MutationRate   *float64
	CrossoverRate  *float64
	TournamentSize int
	EliteCount     *int
	Seed           *int64
	Selection      string
	ProgressEvery  int
}

type TourSummary struct {
	RunID            string
	ArtifactsDir     string
	Route            []string
	Distance         float64
	BestByGeneration []float64
	Evaluations      int
	DurationMS       int64
}

type BenchmarkRequest struct {
	RunRequest
	Runs    int
	Workers int
}

type RunsRequest struct {
	Limit int
	Kind  string
}

type RunItem struct {
	RunID           string
	Kind            string
	Problem         string
	Start           string
	End             string
	Seed            int64
	Population      int
	Generations     int
	BestDistance    float64
	OptimalDistance *float64
	CreatedAtUTC    string
}

// RunRef selects a run either by id or as the most recent one.
type RunRef struct {
	RunID  string
	Latest bool
}

type ExportRequest struct {
	RunRef
	OutDir string
}

type ExportSummary struct {
	RunID     string
	Directory string
}

type SeriesRequest struct {
	RunRef
	Limit int
}

type ProblemItem struct {
	Name         string
	Kind         string
	Nodes        int
	DefaultStart string
	DefaultEnd   string
}

func New(opts Options) (*Client, error) {
	storeKind := opts.StoreKind
	if storeKind == "" {
		storeKind = storage.DefaultStoreKind
	}
	dbPath := opts.DBPath
	if dbPath == "" {
		dbPath = defaultDBPath
	}
	benchmarksDir := opts.BenchmarksDir
	if benchmarksDir == "" {
		benchmarksDir = defaultBenchmarksDir
	}
	exportsDir := opts.ExportsDir
	if exportsDir == "" {
		exportsDir = defaultExportsDir
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	store, err := storage.NewStore(storeKind, dbPath)
	if err != nil {
		return nil, err
	}

	return &Client{
		store:         store,
		logger:        logger,
		benchmarksDir: benchmarksDir,
		exportsDir:    exportsDir,
	}, nil
}

func (c *Client) Close() error {
	return storage.CloseIfSupported(c.store)
}

func (c *Client) Init(ctx context.Context) error {
	_, err := c.ensurePolis(ctx)
	return err
}

// Reset drops every stored run. The artifacts directory is left alone.
func (c *Client) Reset(ctx context.Context) error {
	p, err := c.ensurePolis(ctx)
	if err != nil {
		return err
	}
	return p.Reset(ctx)
}

func (c *Client) Run(ctx context.Context, req RunRequest) (RunSummary, error) {
	p, err := c.ensurePolis(ctx)
	if err != nil {
		return RunSummary{}, err
	}
	problem, err := c.registerGraphFile(p, req.Problem, req.GraphFile)
	if err != nil {
		return RunSummary{}, err
	}

	res, err := p.RunSearch(ctx, platform.SearchConfig{
		RunID:         req.RunID,
		Problem:       problem,
		Start:         req.Start,
		End:           req.End,
		Search:        searchConfig(req),
		Selection:     req.Selection,
		ProgressEvery: req.ProgressEvery,
	})
	if err != nil {
		return RunSummary{}, err
	}
	return RunSummary{
		RunID:            res.RunID,
		ArtifactsDir:     cleanDir(res.ArtifactsDir),
		Route:            append([]string(nil), res.Record.BestRoute...),
		Distance:         res.Record.BestDistance,
		OptimalRoute:     []string(res.OptimalRoute.Clone()),
		OptimalDistance:  res.OptimalDistance,
		BestByGeneration: append([]float64(nil), res.Result.BestByGeneration...),
		Evaluations:      res.Record.Evaluations,
		DurationMS:       res.Record.DurationMS,
	}, nil
}

func (c *Client) Tour(ctx context.Context, req TourRequest) (TourSummary, error) {
	p, err := c.ensurePolis(ctx)
	if err != nil {
		return TourSummary{}, err
	}
	problem := req.Problem
	if req.CitiesFile != "" {
		cities, err := tour.LoadFile(req.CitiesFile)
		if err != nil {
			return TourSummary{}, err
		}
		if problem == "" {
			problem = fileProblemName(req.CitiesFile)
		}
		if err := p.RegisterCities(problem, cities); err != nil {
			return TourSummary{}, err
		}
	}
	if problem == "" {
		problem = "exam-11"
	}

	cfg := tour.DefaultConfig()
	if req.Population > 0 {
		cfg.PopulationSize = req.Population
	}
	if req.Generations > 0 {
		cfg.Generations = req.Generations
	}
	if req.MutationRate != nil {
		cfg.MutationRate = *req.MutationRate
	}
	if req.CrossoverRate != nil {
		cfg.CrossoverRate = *req.CrossoverRate
	}
	if req.TournamentSize > 0 {
		cfg.TournamentSize = req.TournamentSize
	}
	if req.EliteCount != nil {
		cfg.EliteCount = *req.EliteCount
	}
	if req.Seed != nil {
		cfg.Seed = *req.Seed
	}

	res, err := p.RunTour(ctx, platform.TourConfig{
		RunID:         req.RunID,
		Problem:       problem,
		Search:        cfg,
		Selection:     req.Selection,
		ProgressEvery: req.ProgressEvery,
	})
	if err != nil {
		return TourSummary{}, err
	}
	return TourSummary{
		RunID:            res.RunID,
		ArtifactsDir:     cleanDir(res.ArtifactsDir),
		Route:            append([]string(nil), res.Record.BestRoute...),
		Distance:         res.Record.BestDistance,
		BestByGeneration: append([]float64(nil), res.Result.BestByGeneration...),
		Evaluations:      res.Record.Evaluations,
		DurationMS:       res.Record.DurationMS,
	}, nil
}

func (c *Client) Benchmark(ctx context.Context, req BenchmarkRequest) (stats.BenchmarkSummary, error) {
	p, err := c.ensurePolis(ctx)
	if err != nil {
		return stats.BenchmarkSummary{}, err
	}
	problem, err := c.registerGraphFile(p, req.Problem, req.GraphFile)
	if err != nil {
		return stats.BenchmarkSummary{}, err
	}
	res, err := p.Benchmark(ctx, platform.BenchmarkConfig{
		BenchmarkID: req.RunID,
		Problem:     problem,
		Start:       req.Start,
		End:         req.End,
		Search:      searchConfig(req.RunRequest),
		Selection:   req.Selection,
		Runs:        req.Runs,
		Workers:     req.Workers,
	})
	if err != nil {
		return stats.BenchmarkSummary{}, err
	}
	return res.Summary, nil
}

// Runs lists recorded runs newest first. The artifacts index is used so that
// runs from earlier processes show up with the memory store too.
func (c *Client) Runs(_ context.Context, req RunsRequest) ([]RunItem, error) {
	if req.Limit <= 0 {
		req.Limit = 20
	}

	entries, err := stats.ListRunIndex(c.benchmarksDir)
	if err != nil {
		return nil, err
	}

	out := make([]RunItem, 0, len(entries))
	for _, e := range entries {
		if req.Kind != "" && e.Kind != req.Kind {
			continue
		}
		out = append(out, RunItem{
			RunID:           e.RunID,
			Kind:            e.Kind,
			Problem:         e.Problem,
			Start:           e.Start,
			End:             e.End,
			Seed:            e.Seed,
			Population:      e.PopulationSize,
			Generations:     e.Generations,
			BestDistance:    e.BestDistance,
			OptimalDistance: e.OptimalDistance,
			CreatedAtUTC:    e.CreatedAtUTC,
		})
		if len(out) == req.Limit {
			break
		}
	}
	return out, nil
}

// Show returns the stored record for a run. When the store no longer has it,
// the record is rebuilt from the run's artifacts.
func (c *Client) Show(ctx context.Context, ref RunRef) (model.RunRecord, error) {
	runID, err := c.resolveRunID(ref, "show")
	if err != nil {
		return model.RunRecord{}, err
	}
	if _, err := c.ensurePolis(ctx); err != nil {
		return model.RunRecord{}, err
	}
	record, ok, err := c.store.GetRun(ctx, runID)
	if err != nil {
		return model.RunRecord{}, err
	}
	if ok {
		return record, nil
	}

	cfg, ok, err := stats.ReadRunConfig(c.benchmarksDir, runID)
	if err != nil {
		return model.RunRecord{}, err
	}
	if !ok {
		return model.RunRecord{}, fmt.Errorf("run not found: %s", runID)
	}
	record = model.RunRecord{
		ID:             runID,
		Kind:           cfg.Kind,
		Problem:        cfg.Problem,
		Start:          cfg.Start,
		End:            cfg.End,
		Seed:           cfg.Seed,
		PopulationSize: cfg.PopulationSize,
		Generations:    cfg.Generations,
		MutationRate:   cfg.MutationRate,
		CrossoverRate:  cfg.CrossoverRate,
		TournamentSize: cfg.TournamentSize,
		EliteCount:     cfg.EliteCount,
		Selection:      cfg.Selection,
	}
	best, ok, err := stats.ReadBestPath(c.benchmarksDir, runID)
	if err != nil {
		return model.RunRecord{}, err
	}
	if ok {
		record.BestRoute = best.Route
		record.BestDistance = best.Distance
		record.OptimalDistance = best.OptimalDistance
	}
	return record, nil
}

func (c *Client) FitnessHistory(ctx context.Context, req SeriesRequest) ([]float64, error) {
	if req.Limit < 0 {
		return nil, errors.New("limit must be >= 0")
	}
	runID, err := c.resolveRunID(req.RunRef, "fitness history")
	if err != nil {
		return nil, err
	}
	if _, err := c.ensurePolis(ctx); err != nil {
		return nil, err
	}

	history, ok, err := c.store.GetFitnessHistory(ctx, runID)
	if err != nil {
		return nil, err
	}
	if !ok {
		history, ok, err = stats.ReadBenchmarkSeries(c.benchmarksDir, runID)
		if err != nil {
			return nil, err
		}
		if !ok {
			return nil, fmt.Errorf("fitness history not found for run %s", runID)
		}
	}
	if req.Limit > 0 && len(history) > req.Limit {
		history = history[:req.Limit]
	}
	return history, nil
}

func (c *Client) Diagnostics(ctx context.Context, req SeriesRequest) ([]model.GenerationDiagnostics, error) {
	if req.Limit < 0 {
		return nil, errors.New("limit must be >= 0")
	}
	runID, err := c.resolveRunID(req.RunRef, "diagnostics")
	if err != nil {
		return nil, err
	}
	if _, err := c.ensurePolis(ctx); err != nil {
		return nil, err
	}

	diagnostics, ok, err := c.store.GetGenerationDiagnostics(ctx, runID)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, fmt.Errorf("generation diagnostics not found for run %s", runID)
	}
	if req.Limit > 0 && len(diagnostics) > req.Limit {
		diagnostics = diagnostics[:req.Limit]
	}
	return diagnostics, nil
}

func (c *Client) Export(_ context.Context, req ExportRequest) (ExportSummary, error) {
	runID, err := c.resolveRunID(req.RunRef, "export")
	if err != nil {
		return ExportSummary{}, err
	}
	if req.OutDir == "" {
		req.OutDir = c.exportsDir
	}

	exportedDir, err := stats.ExportRunArtifacts(c.benchmarksDir, runID, req.OutDir)
	if err != nil {
		return ExportSummary{}, err
	}
	return ExportSummary{RunID: runID, Directory: filepath.Clean(exportedDir)}, nil
}

// Delete removes a run from the store, the run index and the artifacts tree.
func (c *Client) Delete(ctx context.Context, runID string) error {
	if runID == "" {
		return errors.New("delete requires run id")
	}
	if err := stats.ValidateRunID(runID); err != nil {
		return err
	}
	if _, err := c.ensurePolis(ctx); err != nil {
		return err
	}
	if err := c.store.DeleteRun(ctx, runID); err != nil {
		return err
	}
	if err := stats.RemoveRunIndex(c.benchmarksDir, runID); err != nil {
		return err
	}
	return os.RemoveAll(filepath.Join(c.benchmarksDir, runID))
}

// Problems lists the registered graphs and city sets.
func (c *Client) Problems(ctx context.Context) ([]ProblemItem, error) {
	p, err := c.ensurePolis(ctx)
	if err != nil {
		return nil, err
	}

	var out []ProblemItem
	for _, name := range p.RegisteredGraphs() {
		g, _ := p.Graph(name)
		item := ProblemItem{Name: name, Kind: model.RunKindPath, Nodes: g.Len()}
		if pairs := graph.BuiltinEndpoints[name]; len(pairs) > 0 {
			item.DefaultStart = pairs[0][0]
			item.DefaultEnd = pairs[0][1]
		}
		out = append(out, item)
	}
	for _, name := range p.RegisteredCities() {
		cities, _ := p.Cities(name)
		out = append(out, ProblemItem{Name: name, Kind: model.RunKindTour, Nodes: len(cities)})
	}
	return out, nil
}

func (c *Client) ensurePolis(ctx context.Context) (*platform.Polis, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.polis != nil {
		return c.polis, nil
	}
	p := platform.NewPolis(platform.Config{
		Store:         c.store,
		BenchmarksDir: c.benchmarksDir,
		Logger:        c.logger,
	})
	if err := p.Init(ctx); err != nil {
		return nil, err
	}
	c.polis = p
	return p, nil
}

func (c *Client) registerGraphFile(p *platform.Polis, problem, file string) (string, error) {
	if file == "" {
		if problem == "" {
			problem = "exam-a"
		}
		return problem, nil
	}
	g, err := graph.LoadFile(file)
	if err != nil {
		return "", err
	}
	if problem == "" {
		problem = fileProblemName(file)
	}
	if err := p.RegisterGraph(problem, g); err != nil {
		return "", err
	}
	return problem, nil
}

func (c *Client) resolveRunID(ref RunRef, op string) (string, error) {
	if ref.RunID != "" && ref.Latest {
		return "", errors.New("use either run id or latest")
	}
	if ref.RunID != "" {
		if err := stats.ValidateRunID(ref.RunID); err != nil {
			return "", fmt.Errorf("%s: %w", op, err)
		}
		return ref.RunID, nil
	}
	if !ref.Latest {
		return "", fmt.Errorf("%s requires run id or latest", op)
	}
	entries, err := stats.ListRunIndex(c.benchmarksDir)
	if err != nil {
		return "", err
	}
	if len(entries) == 0 {
		return "", errors.New("no runs available")
	}
	return entries[0].RunID, nil
}

func searchConfig(req RunRequest) evo.Config {
	cfg := evo.DefaultConfig()
	if req.Population > 0 {
		cfg.PopulationSize = req.Population
	}
	if req.Generations > 0 {
		cfg.Generations = req.Generations
	}
	if req.MutationRate != nil {
		cfg.MutationRate = *req.MutationRate
	}
	if req.CrossoverRate != nil {
		cfg.CrossoverRate = *req.CrossoverRate
	}
	if req.TournamentSize > 0 {
		cfg.TournamentSize = req.TournamentSize
	}
	if req.EliteCount != nil {
		cfg.EliteCount = *req.EliteCount
	}
	if req.MaxConstructAttempts > 0 {
		cfg.MaxConstructAttempts = req.MaxConstructAttempts
	}
	if req.Seed != nil {
		cfg.Seed = *req.Seed
	}
	return cfg
}

func fileProblemName(path string) string {
	base := filepath.Base(path)
	return strings.TrimSuffix(base, filepath.Ext(base))
}

func cleanDir(dir string) string {
	if dir == "" {
		return ""
	}
	return filepath.Clean(dir)
}
