package storage

import (
	"context"
	"testing"

	"pathga/internal/model"
)

func sampleRun(id, createdAt string) model.RunRecord {
	optimum := 10.0
	return model.RunRecord{
		VersionedRecord: NewRunVersion(),
		ID:              id,
		Kind:            model.RunKindPath,
		Problem:         "exam-a",
		Start:           "A",
		End:             "D",
		Seed:            1,
		PopulationSize:  150,
		Generations:     300,
		MutationRate:    0.2,
		CrossoverRate:   0.8,
		TournamentSize:  5,
		EliteCount:      2,
		BestRoute:       []string{"A", "B", "E", "F", "H", "D"},
		BestDistance:    10,
		OptimalDistance: &optimum,
		Evaluations:     45000,
		DurationMS:      12,
		CreatedAtUTC:    createdAt,
	}
}

// exerciseStore runs the behavior every Store backend must share.
func exerciseStore(t *testing.T, store Store) {
	t.Helper()
	ctx := context.Background()

	if err := store.SaveRun(ctx, sampleRun("run-old", "2026-01-01T00:00:00Z")); err != nil {
		t.Fatalf("save run: %v", err)
	}
	if err := store.SaveRun(ctx, sampleRun("run-new", "2026-02-01T00:00:00Z")); err != nil {
		t.Fatalf("save run: %v", err)
	}

	run, ok, err := store.GetRun(ctx, "run-old")
	if err != nil {
		t.Fatalf("get run: %v", err)
	}
	if !ok {
		t.Fatal("expected persisted run")
	}
	if run.BestDistance != 10 || len(run.BestRoute) != 6 || run.OptimalDistance == nil || *run.OptimalDistance != 10 {
		t.Fatalf("unexpected run loaded: %+v", run)
	}

	if _, ok, err := store.GetRun(ctx, "missing"); err != nil || ok {
		t.Fatalf("expected missing run, got ok=%t err=%v", ok, err)
	}

	runs, err := store.ListRuns(ctx)
	if err != nil {
		t.Fatalf("list runs: %v", err)
	}
	if len(runs) != 2 || runs[0].ID != "run-new" || runs[1].ID != "run-old" {
		t.Fatalf("expected newest run first, got %+v", runs)
	}

	history := []float64{14, 12, 10, 10}
	if err := store.SaveFitnessHistory(ctx, "run-old", history); err != nil {
		t.Fatalf("save history: %v", err)
	}
	gotHistory, ok, err := store.GetFitnessHistory(ctx, "run-old")
	if err != nil || !ok {
		t.Fatalf("get history: ok=%t err=%v", ok, err)
	}
	if len(gotHistory) != len(history) || gotHistory[2] != 10 {
		t.Fatalf("unexpected history: %+v", gotHistory)
	}

	diagnostics := []model.GenerationDiagnostics{
		{Generation: 1, BestDistance: 14, BestSoFarDistance: 14, MeanDistance: 18.5, ValidCount: 150, Diversity: 20},
		{Generation: 2, BestDistance: 12, BestSoFarDistance: 12, MeanDistance: 16.0, ValidCount: 150, Diversity: 17, Crossovers: 50, Mutations: 30},
	}
	if err := store.SaveGenerationDiagnostics(ctx, "run-old", diagnostics); err != nil {
		t.Fatalf("save diagnostics: %v", err)
	}
	gotDiagnostics, ok, err := store.GetGenerationDiagnostics(ctx, "run-old")
	if err != nil || !ok {
		t.Fatalf("get diagnostics: ok=%t err=%v", ok, err)
	}
	if len(gotDiagnostics) != 2 || gotDiagnostics[1] != diagnostics[1] {
		t.Fatalf("unexpected diagnostics: %+v", gotDiagnostics)
	}

	if err := store.DeleteRun(ctx, "run-old"); err != nil {
		t.Fatalf("delete run: %v", err)
	}
	if _, ok, _ := store.GetRun(ctx, "run-old"); ok {
		t.Fatal("expected run to be deleted")
	}
	if _, ok, _ := store.GetFitnessHistory(ctx, "run-old"); ok {
		t.Fatal("expected history to be deleted with its run")
	}

	if err := store.Reset(ctx); err != nil {
		t.Fatalf("reset: %v", err)
	}
	runs, err = store.ListRuns(ctx)
	if err != nil {
		t.Fatalf("list runs after reset: %v", err)
	}
	if len(runs) != 0 {
		t.Fatalf("expected no runs after reset, got %d", len(runs))
	}
}
