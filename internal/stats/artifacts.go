package stats

import (
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"slices"
	"sort"
	"strconv"
	"strings"

	"pathga/internal/model"
)

const runIndexFile = "run_index.json"

// ErrInvalidRunID reports a run id that does not name a single directory
// directly under the artifacts base directory.
var ErrInvalidRunID = errors.New("invalid run id")

const (
	configFile            = "config.json"
	fitnessHistoryFile    = "fitness_history.json"
	diagnosticsFile       = "generation_diagnostics.json"
	bestPathFile          = "best_path.json"
	convergencePlotFile   = "convergence.png"
	tourPlotFile          = "tour.png"
	metricsFile           = "metrics.prom"
	benchmarkSummaryFile  = "benchmark_summary.json"
	benchmarkSeriesFile   = "benchmark_series.csv"
	benchmarkSeriesHeader = "best_distance"
)

var artifactFiles = []string{
	configFile,
	fitnessHistoryFile,
	diagnosticsFile,
	bestPathFile,
	convergencePlotFile,
	tourPlotFile,
	metricsFile,
	benchmarkSummaryFile,
	benchmarkSeriesFile,
}

type RunConfig struct {
	RunID                string  `json:"run_id"`
	Kind                 string  `json:"kind"`
	Problem              string  `json:"problem"`
	Start                string  `json:"start,omitempty"`
	End                  string  `json:"end,omitempty"`
	PopulationSize       int     `json:"population_size"`
	Generations          int     `json:"generations"`
	MutationRate         float64 `json:"mutation_rate"`
	CrossoverRate        float64 `json:"crossover_rate"`
	TournamentSize       int     `json:"tournament_size"`
	EliteCount           int     `json:"elite_count"`
	Selection            string  `json:"selection,omitempty"`
	MaxConstructAttempts int     `json:"max_construct_attempts,omitempty"`
	Seed                 int64   `json:"seed"`
}

// Point is a labelled coordinate drawn on the tour plot.
type Point struct {
	Label string  `json:"label"`
	X     float64 `json:"x"`
	Y     float64 `json:"y"`
}

type BestPath struct {
	Route           []string `json:"route"`
	Distance        float64  `json:"distance"`
	OptimalDistance *float64 `json:"optimal_distance,omitempty"`
	Closed          bool     `json:"closed,omitempty"`
}

type RunArtifacts struct {
	Config                RunConfig                     `json:"config"`
	BestByGeneration      []float64                     `json:"best_by_generation"`
	GenerationDiagnostics []model.GenerationDiagnostics `json:"generation_diagnostics,omitempty"`
	Best                  BestPath                      `json:"best"`
	Evaluations           int                           `json:"evaluations"`
	DurationSeconds       float64                       `json:"duration_seconds"`
	// Cities is set for tour runs; Best.Route indexes it by label.
	Cities []Point `json:"cities,omitempty"`
}

type RunIndexEntry struct {
	RunID           string   `json:"run_id"`
	Kind            string   `json:"kind"`
	Problem         string   `json:"problem"`
	Start           string   `json:"start,omitempty"`
	End             string   `json:"end,omitempty"`
	PopulationSize  int      `json:"population_size"`
	Generations     int      `json:"generations"`
	Seed            int64    `json:"seed"`
	BestDistance    float64  `json:"best_distance"`
	OptimalDistance *float64 `json:"optimal_distance,omitempty"`
	CreatedAtUTC    string   `json:"created_at_utc"`
}

// ValidateRunID rejects empty ids and ids that would resolve outside the
// artifacts base directory or into a nested directory.
func ValidateRunID(runID string) error {
	if runID == "" {
		return fmt.Errorf("%w: run id is required", ErrInvalidRunID)
	}
	if runID == "." || runID == ".." || strings.ContainsAny(runID, `/\`) || !filepath.IsLocal(runID) {
		return fmt.Errorf("%w: %q", ErrInvalidRunID, runID)
	}
	return nil
}

// RunDir returns baseDir/runID after validating runID.
func RunDir(baseDir, runID string) (string, error) {
	if err := ValidateRunID(runID); err != nil {
		return "", err
	}
	return filepath.Join(baseDir, runID), nil
}

// WriteRunArtifacts lays out one run directory under baseDir: the JSON
// records, the best-distance series, the plots and a metrics textfile.
func WriteRunArtifacts(baseDir string, artifacts RunArtifacts) (string, error) {
	runDir, err := RunDir(baseDir, artifacts.Config.RunID)
	if err != nil {
		return "", err
	}
	if err := os.MkdirAll(runDir, 0o755); err != nil {
		return "", err
	}

	if err := writeJSON(filepath.Join(runDir, configFile), artifacts.Config); err != nil {
		return "", err
	}
	if err := writeJSON(filepath.Join(runDir, fitnessHistoryFile), map[string]any{"best_by_generation": artifacts.BestByGeneration, "final_best_distance": artifacts.Best.Distance}); err != nil {
		return "", err
	}
	if err := writeJSON(filepath.Join(runDir, diagnosticsFile), artifacts.GenerationDiagnostics); err != nil {
		return "", err
	}
	if err := writeJSON(filepath.Join(runDir, bestPathFile), artifacts.Best); err != nil {
		return "", err
	}
	if err := WriteBenchmarkSeries(runDir, artifacts.BestByGeneration); err != nil {
		return "", err
	}

	title := fmt.Sprintf("%s %s", artifacts.Config.Problem, artifacts.Config.RunID)
	if err := WriteConvergencePlot(filepath.Join(runDir, convergencePlotFile), title, artifacts.BestByGeneration, meanDistances(artifacts.GenerationDiagnostics)); err != nil {
		return "", err
	}
	if len(artifacts.Cities) > 0 {
		if err := WriteTourPlot(filepath.Join(runDir, tourPlotFile), artifacts.Cities, artifacts.Best.Route, artifacts.Best.Distance); err != nil {
			return "", err
		}
	}

	metrics := NewRunMetrics(artifacts.Config)
	metrics.Observe(artifacts)
	if err := metrics.WriteTextfile(filepath.Join(runDir, metricsFile)); err != nil {
		return "", err
	}

	return runDir, nil
}

// AppendRunIndex records entry in the run index, replacing an entry with the
// same run id.
func AppendRunIndex(baseDir string, entry RunIndexEntry) error {
	if err := ValidateRunID(entry.RunID); err != nil {
		return err
	}
	if err := os.MkdirAll(baseDir, 0o755); err != nil {
		return err
	}
	index, err := readRunIndex(baseDir)
	if err != nil {
		return err
	}
	if i := slices.IndexFunc(index, func(e RunIndexEntry) bool { return e.RunID == entry.RunID }); i >= 0 {
		index[i] = entry
	} else {
		index = append(index, entry)
	}
	return writeJSON(filepath.Join(baseDir, runIndexFile), index)
}

// ListRunIndex returns index entries newest first. Entries with the same
// timestamp keep the later append first.
func ListRunIndex(baseDir string) ([]RunIndexEntry, error) {
	index, err := readRunIndex(baseDir)
	if err != nil {
		return nil, err
	}
	slices.Reverse(index)
	sort.SliceStable(index, func(i, j int) bool {
		return index[i].CreatedAtUTC > index[j].CreatedAtUTC
	})
	return index, nil
}

// RemoveRunIndex drops runID from the index. Missing entries are ignored.
func RemoveRunIndex(baseDir, runID string) error {
	index, err := readRunIndex(baseDir)
	if err != nil {
		return err
	}
	kept := slices.DeleteFunc(slices.Clone(index), func(e RunIndexEntry) bool { return e.RunID == runID })
	if len(kept) == len(index) {
		return nil
	}
	return writeJSON(filepath.Join(baseDir, runIndexFile), kept)
}

func readRunIndex(baseDir string) ([]RunIndexEntry, error) {
	index := []RunIndexEntry{}
	if _, err := readJSON(filepath.Join(baseDir, runIndexFile), &index); err != nil {
		return nil, fmt.Errorf("read run index: %w", err)
	}
	return index, nil
}

// ExportRunArtifacts copies a run directory to outDir/runID. config.json is
// required; every other artifact is copied when present.
func ExportRunArtifacts(baseDir, runID, outDir string) (string, error) {
	src, err := RunDir(baseDir, runID)
	if err != nil {
		return "", err
	}
	if _, err := os.Stat(filepath.Join(src, configFile)); err != nil {
		return "", fmt.Errorf("run %s has no artifacts: %w", runID, err)
	}

	dst := filepath.Join(outDir, runID)
	if err := os.MkdirAll(dst, 0o755); err != nil {
		return "", err
	}
	for _, name := range artifactFiles {
		data, err := os.ReadFile(filepath.Join(src, name))
		if errors.Is(err, fs.ErrNotExist) {
			continue
		}
		if err != nil {
			return "", err
		}
		if err := os.WriteFile(filepath.Join(dst, name), data, 0o644); err != nil {
			return "", err
		}
	}
	return dst, nil
}

func ReadRunConfig(baseDir, runID string) (RunConfig, bool, error) {
	var cfg RunConfig
	runDir, err := RunDir(baseDir, runID)
	if err != nil {
		return cfg, false, err
	}
	ok, err := readJSON(filepath.Join(runDir, configFile), &cfg)
	return cfg, ok, err
}

func ReadBestPath(baseDir, runID string) (BestPath, bool, error) {
	var best BestPath
	runDir, err := RunDir(baseDir, runID)
	if err != nil {
		return best, false, err
	}
	ok, err := readJSON(filepath.Join(runDir, bestPathFile), &best)
	return best, ok, err
}

// WriteBenchmarkSeries writes the best-distance series as generation,value
// CSV rows under a header.
func WriteBenchmarkSeries(runDir string, bestByGeneration []float64) error {
	rows := make([][]string, 0, len(bestByGeneration)+1)
	rows = append(rows, []string{"generation", benchmarkSeriesHeader})
	for i, best := range bestByGeneration {
		rows = append(rows, []string{strconv.Itoa(i + 1), strconv.FormatFloat(best, 'f', -1, 64)})
	}

	file, err := os.Create(filepath.Join(runDir, benchmarkSeriesFile))
	if err != nil {
		return err
	}
	if err := csv.NewWriter(file).WriteAll(rows); err != nil {
		_ = file.Close()
		return err
	}
	return file.Close()
}

func ReadBenchmarkSeries(baseDir, runID string) ([]float64, bool, error) {
	runDir, err := RunDir(baseDir, runID)
	if err != nil {
		return nil, false, err
	}
	file, err := os.Open(filepath.Join(runDir, benchmarkSeriesFile))
	if errors.Is(err, fs.ErrNotExist) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	defer file.Close()

	reader := csv.NewReader(file)
	reader.FieldsPerRecord = 2
	rows, err := reader.ReadAll()
	if err != nil {
		return nil, false, fmt.Errorf("read %s series: %w", runID, err)
	}
	if len(rows) == 0 {
		return []float64{}, true, nil
	}

	series := make([]float64, 0, len(rows)-1)
	for line, row := range rows[1:] {
		value, err := strconv.ParseFloat(row[1], 64)
		if err != nil {
			return nil, false, fmt.Errorf("series row %d: %w", line+2, err)
		}
		series = append(series, value)
	}
	return series, true, nil
}

func meanDistances(diagnostics []model.GenerationDiagnostics) []float64 {
	if len(diagnostics) == 0 {
		return nil
	}
	out := make([]float64, len(diagnostics))
	for i, d := range diagnostics {
		out[i] = d.MeanDistance
	}
	return out
}

// readJSON decodes path into v and reports false when the file is missing.
func readJSON(path string, v any) (bool, error) {
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, json.Unmarshal(data, v)
}

func writeJSON(path string, value any) error {
	data, err := json.MarshalIndent(value, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, append(data, '\n'), 0o644)
}
