package stats

import (
	"github.com/prometheus/client_golang/prometheus"
)

// RunMetrics collects the final numbers of one run into a private registry
// that is written out as a node-exporter style textfile.
type RunMetrics struct {
	registry        *prometheus.Registry
	bestDistance    prometheus.Gauge
	optimalDistance prometheus.Gauge
	optimalityGap   prometheus.Gauge
	generations     prometheus.Counter
	evaluations     prometheus.Counter
	crossovers      prometheus.Counter
	mutations       prometheus.Counter
	diversity       prometheus.Gauge
	duration        prometheus.Gauge
}

func NewRunMetrics(cfg RunConfig) *RunMetrics {
	labels := prometheus.Labels{"run_id": cfg.RunID, "kind": cfg.Kind, "problem": cfg.Problem}
	m := &RunMetrics{
		registry: prometheus.NewRegistry(),
		bestDistance: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "pathga_best_distance", Help: "Distance of the best route found.", ConstLabels: labels,
		}),
		optimalDistance: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "pathga_optimal_distance", Help: "Exact shortest distance, when known.", ConstLabels: labels,
		}),
		optimalityGap: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "pathga_optimality_gap_ratio", Help: "(best - optimal) / optimal.", ConstLabels: labels,
		}),
		generations: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "pathga_generations_total", Help: "Generations evaluated.", ConstLabels: labels,
		}),
		evaluations: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "pathga_evaluations_total", Help: "Fitness evaluations performed.", ConstLabels: labels,
		}),
		crossovers: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "pathga_crossovers_total", Help: "Crossovers applied.", ConstLabels: labels,
		}),
		mutations: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "pathga_mutations_total", Help: "Mutations applied.", ConstLabels: labels,
		}),
		diversity: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "pathga_final_diversity", Help: "Distinct individuals in the last generation.", ConstLabels: labels,
		}),
		duration: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "pathga_duration_seconds", Help: "Wall time of the search.", ConstLabels: labels,
		}),
	}
	m.registry.MustRegister(
		m.bestDistance,
		m.optimalDistance,
		m.optimalityGap,
		m.generations,
		m.evaluations,
		m.crossovers,
		m.mutations,
		m.diversity,
		m.duration,
	)
	return m
}

func (m *RunMetrics) Observe(artifacts RunArtifacts) {
	m.bestDistance.Set(artifacts.Best.Distance)
	if opt := artifacts.Best.OptimalDistance; opt != nil {
		m.optimalDistance.Set(*opt)
		if *opt > 0 {
			m.optimalityGap.Set((artifacts.Best.Distance - *opt) / *opt)
		}
	}
	m.generations.Add(float64(len(artifacts.BestByGeneration)))
	m.evaluations.Add(float64(artifacts.Evaluations))
	for _, d := range artifacts.GenerationDiagnostics {
		m.crossovers.Add(float64(d.Crossovers))
		m.mutations.Add(float64(d.Mutations))
	}
	if n := len(artifacts.GenerationDiagnostics); n > 0 {
		m.diversity.Set(float64(artifacts.GenerationDiagnostics[n-1].Diversity))
	}
	m.duration.Set(artifacts.DurationSeconds)
}

func (m *RunMetrics) Gatherer() prometheus.Gatherer {
	return m.registry
}

func (m *RunMetrics) WriteTextfile(path string) error {
	return prometheus.WriteToTextfile(path, m.registry)
}
