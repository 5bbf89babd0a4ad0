package storage

import (
	"errors"
	"math"
	"reflect"
	"testing"

	"pathga/internal/model"
)

func TestRunRecordCodecRoundTrip(t *testing.T) {
	input := sampleRun("run-1", "2026-03-04T05:06:07Z")
	data, err := EncodeRunRecord(input)
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	output, err := DecodeRunRecord(data)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if !reflect.DeepEqual(input, output) {
		t.Fatalf("round trip mismatch:\n%+v\n%+v", input, output)
	}
}

func TestRunRecordVersionMismatch(t *testing.T) {
	input := sampleRun("run-1", "2026-03-04T05:06:07Z")
	input.SchemaVersion = CurrentSchemaVersion + 1
	data, err := EncodeRunRecord(input)
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	if _, err := DecodeRunRecord(data); !errors.Is(err, ErrVersionMismatch) {
		t.Fatalf("expected ErrVersionMismatch, got %v", err)
	}
	if _, err := DecodeRunRecord([]byte(`{"id":"x"}`)); !errors.Is(err, ErrVersionMismatch) {
		t.Fatalf("expected ErrVersionMismatch for unversioned record, got %v", err)
	}
}

func TestSeriesBlobsCompressAndRoundTrip(t *testing.T) {
	history := make([]float64, 3000)
	for i := range history {
		history[i] = 100 - math.Floor(float64(i)/300)
	}
	data, err := EncodeFitnessHistory(history)
	if err != nil {
		t.Fatalf("encode history: %v", err)
	}
	if len(data) >= len(history)*8 {
		t.Fatalf("expected compressed blob smaller than raw series, got %d bytes", len(data))
	}
	decoded, err := DecodeFitnessHistory(data)
	if err != nil {
		t.Fatalf("decode history: %v", err)
	}
	if !reflect.DeepEqual(history, decoded) {
		t.Fatal("history round trip mismatch")
	}

	diagnostics := []model.GenerationDiagnostics{{Generation: 1, BestDistance: 12, Diversity: 4}}
	data, err = EncodeGenerationDiagnostics(diagnostics)
	if err != nil {
		t.Fatalf("encode diagnostics: %v", err)
	}
	gotDiagnostics, err := DecodeGenerationDiagnostics(data)
	if err != nil {
		t.Fatalf("decode diagnostics: %v", err)
	}
	if !reflect.DeepEqual(diagnostics, gotDiagnostics) {
		t.Fatalf("diagnostics round trip mismatch: %+v", gotDiagnostics)
	}

	if _, err := DecodeFitnessHistory([]byte("not zstd")); err == nil {
		t.Fatal("expected error for corrupt blob")
	}
}
