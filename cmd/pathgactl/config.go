package main

import (
	"bytes"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"os"

	"github.com/joho/godotenv"

	"pathga/pkg/pathga"
)

// runConfigFile is the --config JSON document accepted by run and benchmark.
type runConfigFile struct {
	RunID                string   `json:"run_id"`
	Problem              string   `json:"problem"`
	GraphFile            string   `json:"graph_file"`
	Start                string   `json:"start"`
	End                  string   `json:"end"`
	Population           int      `json:"population"`
	Generations          int      `json:"generations"`
	MutationRate         *float64 `json:"mutation_rate"`
	CrossoverRate        *float64 `json:"crossover_rate"`
	TournamentSize       int      `json:"tournament_size"`
	EliteCount           *int     `json:"elite_count"`
	MaxConstructAttempts int      `json:"max_construct_attempts"`
	Seed                 *int64   `json:"seed"`
	Selection            string   `json:"selection"`
	ProgressEvery        int      `json:"progress_every"`
	Runs                 int      `json:"runs"`
	Workers              int      `json:"workers"`
}

func loadRunRequestFromConfig(path string) (pathga.BenchmarkRequest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return pathga.BenchmarkRequest{}, err
	}
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()
	var cfg runConfigFile
	if err := dec.Decode(&cfg); err != nil {
		return pathga.BenchmarkRequest{}, err
	}
	if cfg.Population < 0 || cfg.Generations < 0 || cfg.Runs < 0 || cfg.Workers < 0 {
		return pathga.BenchmarkRequest{}, errors.New("population, generations, runs and workers must be >= 0")
	}

	return pathga.BenchmarkRequest{
		RunRequest: pathga.RunRequest{
			RunID:                cfg.RunID,
			Problem:              cfg.Problem,
			GraphFile:            cfg.GraphFile,
			Start:                cfg.Start,
			End:                  cfg.End,
			Population:           cfg.Population,
			Generations:          cfg.Generations,
			MutationRate:         cfg.MutationRate,
			CrossoverRate:        cfg.CrossoverRate,
			TournamentSize:       cfg.TournamentSize,
			EliteCount:           cfg.EliteCount,
			MaxConstructAttempts: cfg.MaxConstructAttempts,
			Seed:                 cfg.Seed,
			Selection:            cfg.Selection,
			ProgressEvery:        cfg.ProgressEvery,
		},
		Runs:    cfg.Runs,
		Workers: cfg.Workers,
	}, nil
}

func loadOrDefaultRequest(configPath string) (pathga.BenchmarkRequest, error) {
	if configPath == "" {
		return pathga.BenchmarkRequest{}, nil
	}
	req, err := loadRunRequestFromConfig(configPath)
	if err != nil {
		return pathga.BenchmarkRequest{}, fmt.Errorf("load config: %w", err)
	}
	return req, nil
}

// setFlags names the flags whose values apply to the request. Without a
// config file every flag applies, defaults included; with one only the flags
// given on the command line override it.
func setFlags(fs *flag.FlagSet, configPath string) map[string]bool {
	set := make(map[string]bool)
	visit := fs.Visit
	if configPath == "" {
		visit = fs.VisitAll
	}
	visit(func(f *flag.Flag) {
		set[f.Name] = true
	})
	return set
}

func overrideFromFlags(req *pathga.BenchmarkRequest, set map[string]bool, flagValue map[string]any) error {
	for name := range set {
		v, ok := flagValue[name]
		if !ok {
			continue
		}
		switch name {
		case "run-id":
			req.RunID = *v.(*string)
		case "problem":
			req.Problem = *v.(*string)
		case "graph-file":
			req.GraphFile = *v.(*string)
		case "start":
			req.Start = *v.(*string)
		case "end":
			req.End = *v.(*string)
		case "pop":
			req.Population = *v.(*int)
		case "gens":
			req.Generations = *v.(*int)
		case "mutation-rate":
			rate := *v.(*float64)
			req.MutationRate = &rate
		case "crossover-rate":
			rate := *v.(*float64)
			req.CrossoverRate = &rate
		case "tournament":
			req.TournamentSize = *v.(*int)
		case "elites":
			elites := *v.(*int)
			req.EliteCount = &elites
		case "max-attempts":
			req.MaxConstructAttempts = *v.(*int)
		case "seed":
			seed := *v.(*int64)
			req.Seed = &seed
		case "selection":
			req.Selection = *v.(*string)
		case "progress-every":
			req.ProgressEvery = *v.(*int)
		case "runs":
			req.Runs = *v.(*int)
		case "workers":
			req.Workers = *v.(*int)
		default:
			return fmt.Errorf("unsupported override flag: %s", name)
		}
	}
	return nil
}

// loadEnv reads defaults from a dotenv file when one exists. Variables already
// set in the environment win.
func loadEnv(path string) error {
	if _, err := os.Stat(path); err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}
	if err := godotenv.Load(path); err != nil {
		return fmt.Errorf("load %s: %w", path, err)
	}
	return nil
}
