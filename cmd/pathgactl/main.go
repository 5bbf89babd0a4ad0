package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"math"
	"os"
	"os/signal"
	"strings"
	"time"

	"github.com/dustin/go-humanize"

	"pathga/internal/evo"
	"pathga/internal/storage"
	"pathga/internal/tour"
	"pathga/pkg/pathga"
)

const (
	envStore         = "PATHGA_STORE"
	envDBPath        = "PATHGA_DB_PATH"
	envBenchmarksDir = "PATHGA_BENCHMARKS_DIR"
	envLogLevel      = "PATHGA_LOG_LEVEL"

	createdAtLayout = "2006-01-02T15:04:05.000000000Z"
)

func main() {
	if err := loadEnv(".env"); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	if err := run(ctx, os.Args[1:]); err != nil {
		fmt.Fprintln(os.Stderr, err)
		stop()
		os.Exit(1)
	}
}

func run(ctx context.Context, args []string) error {
	if len(args) == 0 {
		return usageError("missing command")
	}

	switch args[0] {
	case "init":
		return runInit(ctx, args[1:])
	case "reset":
		return runReset(ctx, args[1:])
	case "graphs":
		return runGraphs(ctx, args[1:])
	case "run":
		return runRun(ctx, args[1:])
	case "tour":
		return runTour(ctx, args[1:])
	case "benchmark":
		return runBenchmark(ctx, args[1:])
	case "runs":
		return runRuns(ctx, args[1:])
	case "show":
		return runShow(ctx, args[1:])
	case "fitness":
		return runFitness(ctx, args[1:])
	case "diagnostics":
		return runDiagnostics(ctx, args[1:])
	case "export":
		return runExport(ctx, args[1:])
	case "delete":
		return runDelete(ctx, args[1:])
	default:
		return usageError(fmt.Sprintf("unknown command: %s", args[0]))
	}
}

// clientFlags are the flags every command that opens a client accepts.
type clientFlags struct {
	storeKind     *string
	dbPath        *string
	benchmarksDir *string
	exportsDir    *string
	logLevel      *string
}

func addClientFlags(fs *flag.FlagSet) clientFlags {
	return clientFlags{
		storeKind:     fs.String("store", envOr(envStore, storage.DefaultStoreKind), "store backend: memory|sqlite"),
		dbPath:        fs.String("db-path", envOr(envDBPath, "pathga.db"), "sqlite database path"),
		benchmarksDir: fs.String("benchmarks-dir", envOr(envBenchmarksDir, "benchmarks"), "run artifacts directory"),
		exportsDir:    fs.String("exports-dir", "exports", "export output directory"),
		logLevel:      fs.String("log-level", envOr(envLogLevel, "info"), "log level: debug|info|warn|error"),
	}
}

func (f clientFlags) open() (*pathga.Client, error) {
	logger, err := newLogger(*f.logLevel)
	if err != nil {
		return nil, err
	}
	return pathga.New(pathga.Options{
		StoreKind:     *f.storeKind,
		DBPath:        *f.dbPath,
		BenchmarksDir: *f.benchmarksDir,
		ExportsDir:    *f.exportsDir,
		Logger:        logger,
	})
}

func runInit(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("init", flag.ContinueOnError)
	common := addClientFlags(fs)
	if err := fs.Parse(args); err != nil {
		return err
	}

	client, err := common.open()
	if err != nil {
		return err
	}
	defer func() {
		_ = client.Close()
	}()
	if err := client.Init(ctx); err != nil {
		return err
	}

	fmt.Printf("initialized store=%s\n", *common.storeKind)
	return nil
}

func runReset(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("reset", flag.ContinueOnError)
	common := addClientFlags(fs)
	if err := fs.Parse(args); err != nil {
		return err
	}

	client, err := common.open()
	if err != nil {
		return err
	}
	defer func() {
		_ = client.Close()
	}()
	if err := client.Reset(ctx); err != nil {
		return err
	}

	fmt.Printf("reset store=%s\n", *common.storeKind)
	return nil
}

func runGraphs(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("graphs", flag.ContinueOnError)
	common := addClientFlags(fs)
	if err := fs.Parse(args); err != nil {
		return err
	}

	client, err := common.open()
	if err != nil {
		return err
	}
	defer func() {
		_ = client.Close()
	}()
	problems, err := client.Problems(ctx)
	if err != nil {
		return err
	}
	for _, item := range problems {
		if item.DefaultStart != "" {
			fmt.Printf("name=%s kind=%s nodes=%d start=%s end=%s\n", item.Name, item.Kind, item.Nodes, item.DefaultStart, item.DefaultEnd)
			continue
		}
		fmt.Printf("name=%s kind=%s nodes=%d\n", item.Name, item.Kind, item.Nodes)
	}
	return nil
}

// searchFlags registers the path search flags shared by run and benchmark.
func searchFlags(fs *flag.FlagSet) map[string]any {
	defaults := evo.DefaultConfig()
	return map[string]any{
		"run-id":         fs.String("run-id", "", "explicit run id (optional)"),
		"problem":        fs.String("problem", "", "registered graph name, exam-a when empty; with --graph-file, the name to register it under"),
		"graph-file":     fs.String("graph-file", "", "JSON adjacency map to load and search"),
		"start":          fs.String("start", "", "start node (defaults to the built-in pair)"),
		"end":            fs.String("end", "", "end node (defaults to the built-in pair)"),
		"pop":            fs.Int("pop", defaults.PopulationSize, "population size"),
		"gens":           fs.Int("gens", defaults.Generations, "generation count"),
		"mutation-rate":  fs.Float64("mutation-rate", defaults.MutationRate, "per-offspring mutation probability"),
		"crossover-rate": fs.Float64("crossover-rate", defaults.CrossoverRate, "per-pair crossover probability"),
		"tournament":     fs.Int("tournament", defaults.TournamentSize, "tournament size"),
		"elites":         fs.Int("elites", defaults.EliteCount, "individuals copied unchanged into the next generation"),
		"max-attempts":   fs.Int("max-attempts", defaults.MaxConstructAttempts, "random walk attempts per initial individual"),
		"seed":           fs.Int64("seed", defaults.Seed, "rng seed"),
		"selection":      fs.String("selection", "tournament", "parent selection strategy: tournament|elite"),
		"progress-every": fs.Int("progress-every", 50, "log progress every N generations (0 disables)"),
	}
}

func runRun(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("run", flag.ContinueOnError)
	configPath := fs.String("config", "", "optional run config JSON path")
	values := searchFlags(fs)
	jsonOut := fs.Bool("json", false, "emit run summary as JSON")
	common := addClientFlags(fs)
	if err := fs.Parse(args); err != nil {
		return err
	}

	req, err := loadOrDefaultRequest(*configPath)
	if err != nil {
		return err
	}
	if err := overrideFromFlags(&req, setFlags(fs, *configPath), values); err != nil {
		return err
	}

	client, err := common.open()
	if err != nil {
		return err
	}
	defer func() {
		_ = client.Close()
	}()
	summary, err := client.Run(ctx, req.RunRequest)
	if err != nil {
		return err
	}
	if *jsonOut {
		return printJSON(summary)
	}

	fmt.Printf("run_id=%s best_distance=%.3f optimal_distance=%.3f gap=%s route=%q evaluations=%s duration=%s\n",
		summary.RunID,
		summary.Distance,
		summary.OptimalDistance,
		formatGap(summary.Distance, summary.OptimalDistance),
		strings.Join(summary.Route, " -> "),
		humanize.Comma(int64(summary.Evaluations)),
		time.Duration(summary.DurationMS)*time.Millisecond,
	)
	if summary.ArtifactsDir != "" {
		fmt.Printf("artifacts=%s\n", summary.ArtifactsDir)
	}
	return nil
}

func runTour(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("tour", flag.ContinueOnError)
	defaults := tour.DefaultConfig()
	runID := fs.String("run-id", "", "explicit run id (optional)")
	problem := fs.String("problem", "", "registered city set name, exam-11 when empty; with --cities-file, the name to register it under")
	citiesFile := fs.String("cities-file", "", "JSON array of {name,x,y} cities to load and tour")
	population := fs.Int("pop", defaults.PopulationSize, "population size")
	generations := fs.Int("gens", defaults.Generations, "generation count")
	mutationRate := fs.Float64("mutation-rate", defaults.MutationRate, "per-child swap mutation probability")
	crossoverRate := fs.Float64("crossover-rate", defaults.CrossoverRate, "per-pair ordered crossover probability")
	tournamentSize := fs.Int("tournament", defaults.TournamentSize, "tournament size")
	elites := fs.Int("elites", defaults.EliteCount, "individuals copied unchanged into the next generation")
	seed := fs.Int64("seed", defaults.Seed, "rng seed")
	selection := fs.String("selection", "tournament", "parent selection strategy: tournament|elite")
	progressEvery := fs.Int("progress-every", 500, "log progress every N generations (0 disables)")
	jsonOut := fs.Bool("json", false, "emit tour summary as JSON")
	common := addClientFlags(fs)
	if err := fs.Parse(args); err != nil {
		return err
	}
	client, err := common.open()
	if err != nil {
		return err
	}
	defer func() {
		_ = client.Close()
	}()

	req := pathga.TourRequest{
		RunID:          *runID,
		Problem:        *problem,
		CitiesFile:     *citiesFile,
		Population:     *population,
		Generations:    *generations,
		MutationRate:   mutationRate,
		CrossoverRate:  crossoverRate,
		TournamentSize: *tournamentSize,
		EliteCount:     elites,
		Seed:           seed,
		Selection:      *selection,
		ProgressEvery:  *progressEvery,
	}
	summary, err := client.Tour(ctx, req)
	if err != nil {
		return err
	}
	if *jsonOut {
		return printJSON(summary)
	}

	fmt.Printf("run_id=%s best_distance=%.3f route=%q evaluations=%s duration=%s\n",
		summary.RunID,
		summary.Distance,
		strings.Join(append(summary.Route, summary.Route[0]), " -> "),
		humanize.Comma(int64(summary.Evaluations)),
		time.Duration(summary.DurationMS)*time.Millisecond,
	)
	if summary.ArtifactsDir != "" {
		fmt.Printf("artifacts=%s\n", summary.ArtifactsDir)
	}
	return nil
}

func runBenchmark(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("benchmark", flag.ContinueOnError)
	configPath := fs.String("config", "", "optional run config JSON path")
	values := searchFlags(fs)
	values["runs"] = fs.Int("runs", 10, "number of seeds; run i uses seed+i")
	values["workers"] = fs.Int("workers", 0, "concurrent searches (0 uses GOMAXPROCS)")
	jsonOut := fs.Bool("json", false, "emit benchmark summary as JSON")
	common := addClientFlags(fs)
	if err := fs.Parse(args); err != nil {
		return err
	}

	req, err := loadOrDefaultRequest(*configPath)
	if err != nil {
		return err
	}
	if err := overrideFromFlags(&req, setFlags(fs, *configPath), values); err != nil {
		return err
	}

	client, err := common.open()
	if err != nil {
		return err
	}
	defer func() {
		_ = client.Close()
	}()
	summary, err := client.Benchmark(ctx, req)
	if err != nil {
		return err
	}
	if *jsonOut {
		return printJSON(summary)
	}

	for _, r := range summary.Runs {
		fmt.Printf("seed=%d best_distance=%.3f hit=%t gap=%.4f\n", r.Seed, r.BestDistance, r.Hit, r.Gap)
	}
	fmt.Printf("benchmark_id=%s runs=%d optimal_distance=%.3f hit_rate=%.2f mean=%.3f std=%.3f min=%.3f max=%.3f mean_gap=%.4f\n",
		summary.BenchmarkID,
		len(summary.Runs),
		summary.OptimalDistance,
		summary.HitRate,
		summary.MeanDistance,
		summary.StdDistance,
		summary.MinDistance,
		summary.MaxDistance,
		summary.MeanGap,
	)
	return nil
}

func runRuns(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("runs", flag.ContinueOnError)
	limit := fs.Int("limit", 20, "max runs to list")
	kind := fs.String("kind", "", "only list runs of this kind: path|tour|benchmark")
	jsonOut := fs.Bool("json", false, "emit runs list as JSON")
	common := addClientFlags(fs)
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *limit <= 0 {
		return errors.New("limit must be > 0")
	}

	client, err := common.open()
	if err != nil {
		return err
	}
	defer func() {
		_ = client.Close()
	}()
	runs, err := client.Runs(ctx, pathga.RunsRequest{Limit: *limit, Kind: *kind})
	if err != nil {
		return err
	}
	if len(runs) == 0 {
		fmt.Println("no runs found")
		return nil
	}
	if *jsonOut {
		return printJSON(runs)
	}

	for _, r := range runs {
		optimal := "n/a"
		if r.OptimalDistance != nil {
			optimal = fmt.Sprintf("%.3f", *r.OptimalDistance)
		}
		fmt.Printf("run_id=%s kind=%s created=%q problem=%s seed=%d pop=%d gens=%d best_distance=%.3f optimal_distance=%s\n",
			r.RunID,
			r.Kind,
			formatCreatedAt(r.CreatedAtUTC),
			r.Problem,
			r.Seed,
			r.Population,
			r.Generations,
			r.BestDistance,
			optimal,
		)
	}
	return nil
}

func runShow(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("show", flag.ContinueOnError)
	runID := fs.String("run-id", "", "run id")
	latest := fs.Bool("latest", false, "show the most recent run from run index")
	jsonOut := fs.Bool("json", false, "emit the run record as JSON")
	common := addClientFlags(fs)
	if err := fs.Parse(args); err != nil {
		return err
	}
	if err := checkRunRef(*runID, *latest, "show"); err != nil {
		return err
	}

	client, err := common.open()
	if err != nil {
		return err
	}
	defer func() {
		_ = client.Close()
	}()
	record, err := client.Show(ctx, pathga.RunRef{RunID: *runID, Latest: *latest})
	if err != nil {
		return err
	}
	if *jsonOut {
		return printJSON(record)
	}

	fmt.Printf("run_id=%s kind=%s problem=%s seed=%d pop=%d gens=%d mutation_rate=%.3f crossover_rate=%.3f tournament=%d elites=%d selection=%s\n",
		record.ID,
		record.Kind,
		record.Problem,
		record.Seed,
		record.PopulationSize,
		record.Generations,
		record.MutationRate,
		record.CrossoverRate,
		record.TournamentSize,
		record.EliteCount,
		record.Selection,
	)
	optimal := "n/a"
	if record.OptimalDistance != nil {
		optimal = fmt.Sprintf("%.3f", *record.OptimalDistance)
	}
	fmt.Printf("best_distance=%.3f optimal_distance=%s route=%q\n", record.BestDistance, optimal, strings.Join(record.BestRoute, " -> "))
	return nil
}

func runFitness(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("fitness", flag.ContinueOnError)
	runID := fs.String("run-id", "", "run id")
	latest := fs.Bool("latest", false, "show the best-distance history of the most recent run")
	limit := fs.Int("limit", 50, "max generations to print (<=0 for all)")
	jsonOut := fs.Bool("json", false, "emit the history as JSON")
	common := addClientFlags(fs)
	if err := fs.Parse(args); err != nil {
		return err
	}
	if err := checkRunRef(*runID, *latest, "fitness"); err != nil {
		return err
	}
	if *limit < 0 {
		*limit = 0
	}

	client, err := common.open()
	if err != nil {
		return err
	}
	defer func() {
		_ = client.Close()
	}()
	history, err := client.FitnessHistory(ctx, pathga.SeriesRequest{
		RunRef: pathga.RunRef{RunID: *runID, Latest: *latest},
		Limit:  *limit,
	})
	if err != nil {
		return err
	}
	if len(history) == 0 {
		fmt.Println("no fitness history")
		return nil
	}
	if *jsonOut {
		return printJSON(history)
	}

	for i, best := range history {
		fmt.Printf("generation=%d best_distance=%.3f\n", i+1, best)
	}
	return nil
}

func runDiagnostics(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("diagnostics", flag.ContinueOnError)
	runID := fs.String("run-id", "", "run id")
	latest := fs.Bool("latest", false, "show diagnostics of the most recent run")
	limit := fs.Int("limit", 50, "max generations to print (<=0 for all)")
	jsonOut := fs.Bool("json", false, "emit diagnostics as JSON")
	common := addClientFlags(fs)
	if err := fs.Parse(args); err != nil {
		return err
	}
	if err := checkRunRef(*runID, *latest, "diagnostics"); err != nil {
		return err
	}
	if *limit < 0 {
		*limit = 0
	}

	client, err := common.open()
	if err != nil {
		return err
	}
	defer func() {
		_ = client.Close()
	}()
	diagnostics, err := client.Diagnostics(ctx, pathga.SeriesRequest{
		RunRef: pathga.RunRef{RunID: *runID, Latest: *latest},
		Limit:  *limit,
	})
	if err != nil {
		return err
	}
	if len(diagnostics) == 0 {
		fmt.Println("no diagnostics")
		return nil
	}
	if *jsonOut {
		return printJSON(diagnostics)
	}

	for _, d := range diagnostics {
		fmt.Printf("generation=%d best=%.3f best_so_far=%.3f mean=%.3f worst=%.3f valid=%d diversity=%d crossovers=%d mutations=%d\n",
			d.Generation,
			d.BestDistance,
			d.BestSoFarDistance,
			d.MeanDistance,
			d.WorstDistance,
			d.ValidCount,
			d.Diversity,
			d.Crossovers,
			d.Mutations,
		)
	}
	return nil
}

func runExport(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("export", flag.ContinueOnError)
	runID := fs.String("run-id", "", "run id")
	latest := fs.Bool("latest", false, "export the most recent run from run index")
	outDir := fs.String("out", "", "export output directory (defaults to --exports-dir)")
	common := addClientFlags(fs)
	if err := fs.Parse(args); err != nil {
		return err
	}
	if err := checkRunRef(*runID, *latest, "export"); err != nil {
		return err
	}

	client, err := common.open()
	if err != nil {
		return err
	}
	defer func() {
		_ = client.Close()
	}()
	exported, err := client.Export(ctx, pathga.ExportRequest{
		RunRef: pathga.RunRef{RunID: *runID, Latest: *latest},
		OutDir: *outDir,
	})
	if err != nil {
		return err
	}

	fmt.Printf("exported run_id=%s to=%s\n", exported.RunID, exported.Directory)
	return nil
}

func runDelete(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("delete", flag.ContinueOnError)
	runID := fs.String("run-id", "", "run id")
	common := addClientFlags(fs)
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *runID == "" {
		return errors.New("delete requires --run-id")
	}

	client, err := common.open()
	if err != nil {
		return err
	}
	defer func() {
		_ = client.Close()
	}()
	if err := client.Delete(ctx, *runID); err != nil {
		return err
	}

	fmt.Printf("deleted run_id=%s\n", *runID)
	return nil
}

func usageError(msg string) error {
	return fmt.Errorf("%s\nusage: pathgactl <init|reset|graphs|run|tour|benchmark|runs|show|fitness|diagnostics|export|delete> [flags]", msg)
}

func checkRunRef(runID string, latest bool, command string) error {
	if runID != "" && latest {
		return errors.New("use either --run-id or --latest, not both")
	}
	if runID == "" && !latest {
		return fmt.Errorf("%s requires --run-id or --latest", command)
	}
	return nil
}

func newLogger(level string) (*slog.Logger, error) {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(level)); err != nil {
		return nil, fmt.Errorf("invalid log level %q", level)
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: lvl})), nil
}

func envOr(key, fallback string) string {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		return v
	}
	return fallback
}

func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func formatGap(distance, optimum float64) string {
	if optimum <= 0 || math.IsInf(optimum, 0) {
		return "n/a"
	}
	return fmt.Sprintf("%.2f%%", 100*(distance-optimum)/optimum)
}

func formatCreatedAt(createdAt string) string {
	t, err := time.Parse(createdAtLayout, createdAt)
	if err != nil {
		return createdAt
	}
	return fmt.Sprintf("%s (%s)", createdAt, humanize.Time(t))
}
