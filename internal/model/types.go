package model

// VersionedRecord captures schema and codec evolution for persistent data.
type VersionedRecord struct {
	SchemaVersion int `json:"schema_version"`
	CodecVersion  int `json:"codec_version"`
}

const (
	RunKindPath      = "path"
	RunKindTour      = "tour"
	RunKindBenchmark = "benchmark"
)

// RunRecord is the persisted outcome of one search. Benchmark records carry
// the best seed's route and the first seed of the sweep.
type RunRecord struct {
	VersionedRecord
	ID              string   `json:"id"`
	Kind            string   `json:"kind"`
	Problem         string   `json:"problem"`
	Start           string   `json:"start,omitempty"`
	End             string   `json:"end,omitempty"`
	Seed            int64    `json:"seed"`
	PopulationSize  int      `json:"population_size"`
	Generations     int      `json:"generations"`
	MutationRate    float64  `json:"mutation_rate"`
	CrossoverRate   float64  `json:"crossover_rate"`
	TournamentSize  int      `json:"tournament_size"`
	EliteCount      int      `json:"elite_count"`
	Selection       string   `json:"selection,omitempty"`
	BestRoute       []string `json:"best_route"`
	BestDistance    float64  `json:"best_distance"`
	OptimalDistance *float64 `json:"optimal_distance,omitempty"`
	Evaluations     int      `json:"evaluations"`
	DurationMS      int64    `json:"duration_ms"`
	CreatedAtUTC    string   `json:"created_at_utc"`
}

// GenerationDiagnostics summarizes one evaluated generation.
type GenerationDiagnostics struct {
	Generation        int     `json:"generation" msgpack:"generation"`
	BestDistance      float64 `json:"best_distance" msgpack:"best_distance"`
	BestSoFarDistance float64 `json:"best_so_far_distance" msgpack:"best_so_far_distance"`
	MeanDistance      float64 `json:"mean_distance" msgpack:"mean_distance"`
	WorstDistance     float64 `json:"worst_distance" msgpack:"worst_distance"`
	BestFitness       float64 `json:"best_fitness" msgpack:"best_fitness"`
	MeanFitness       float64 `json:"mean_fitness" msgpack:"mean_fitness"`
	ValidCount        int     `json:"valid_count" msgpack:"valid_count"`
	Diversity         int     `json:"diversity" msgpack:"diversity"`
	Crossovers        int     `json:"crossovers" msgpack:"crossovers"`
	Mutations         int     `json:"mutations" msgpack:"mutations"`
}
