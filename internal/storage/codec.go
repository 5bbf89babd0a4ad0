package storage

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/klauspost/compress/zstd"
	"github.com/vmihailenco/msgpack/v5"

	"pathga/internal/model"
)

const (
	CurrentSchemaVersion = 1
	CurrentCodecVersion  = 1
)

var ErrVersionMismatch = errors.New("record version mismatch")

// Series blobs are msgpack encoded and then zstd compressed. EncodeAll and
// DecodeAll are safe for concurrent use on a shared encoder/decoder.
var (
	blobEncoder *zstd.Encoder
	blobDecoder *zstd.Decoder
)

func init() {
	var err error
	if blobEncoder, err = zstd.NewWriter(nil); err != nil {
		panic(fmt.Sprintf("zstd encoder: %v", err))
	}
	if blobDecoder, err = zstd.NewReader(nil); err != nil {
		panic(fmt.Sprintf("zstd decoder: %v", err))
	}
}

type fitnessHistoryBlob struct {
	SchemaVersion int       `msgpack:"schema_version"`
	CodecVersion  int       `msgpack:"codec_version"`
	History       []float64 `msgpack:"history"`
}

type diagnosticsBlob struct {
	SchemaVersion int                           `msgpack:"schema_version"`
	CodecVersion  int                           `msgpack:"codec_version"`
	Diagnostics   []model.GenerationDiagnostics `msgpack:"diagnostics"`
}

// NewRunVersion stamps the current schema and codec versions.
func NewRunVersion() model.VersionedRecord {
	return model.VersionedRecord{SchemaVersion: CurrentSchemaVersion, CodecVersion: CurrentCodecVersion}
}

func EncodeRunRecord(r model.RunRecord) ([]byte, error) {
	return json.Marshal(r)
}

func DecodeRunRecord(data []byte) (model.RunRecord, error) {
	var run model.RunRecord
	if err := json.Unmarshal(data, &run); err != nil {
		return model.RunRecord{}, err
	}
	if err := checkVersion(run.VersionedRecord); err != nil {
		return model.RunRecord{}, err
	}
	return run, nil
}

func EncodeFitnessHistory(history []float64) ([]byte, error) {
	return encodeBlob(fitnessHistoryBlob{
		SchemaVersion: CurrentSchemaVersion,
		CodecVersion:  CurrentCodecVersion,
		History:       history,
	})
}

func DecodeFitnessHistory(data []byte) ([]float64, error) {
	var blob fitnessHistoryBlob
	if err := decodeBlob(data, &blob); err != nil {
		return nil, err
	}
	if err := checkVersion(model.VersionedRecord{SchemaVersion: blob.SchemaVersion, CodecVersion: blob.CodecVersion}); err != nil {
		return nil, err
	}
	return blob.History, nil
}

func EncodeGenerationDiagnostics(diagnostics []model.GenerationDiagnostics) ([]byte, error) {
	return encodeBlob(diagnosticsBlob{
		SchemaVersion: CurrentSchemaVersion,
		CodecVersion:  CurrentCodecVersion,
		Diagnostics:   diagnostics,
	})
}

func DecodeGenerationDiagnostics(data []byte) ([]model.GenerationDiagnostics, error) {
	var blob diagnosticsBlob
	if err := decodeBlob(data, &blob); err != nil {
		return nil, err
	}
	if err := checkVersion(model.VersionedRecord{SchemaVersion: blob.SchemaVersion, CodecVersion: blob.CodecVersion}); err != nil {
		return nil, err
	}
	return blob.Diagnostics, nil
}

func encodeBlob(v any) ([]byte, error) {
	raw, err := msgpack.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("msgpack encode: %w", err)
	}
	return blobEncoder.EncodeAll(raw, nil), nil
}

func decodeBlob(data []byte, v any) error {
	raw, err := blobDecoder.DecodeAll(data, nil)
	if err != nil {
		return fmt.Errorf("zstd decode: %w", err)
	}
	if err := msgpack.Unmarshal(raw, v); err != nil {
		return fmt.Errorf("msgpack decode: %w", err)
	}
	return nil
}

func checkVersion(v model.VersionedRecord) error {
	if v.SchemaVersion != CurrentSchemaVersion || v.CodecVersion != CurrentCodecVersion {
		return ErrVersionMismatch
	}
	return nil
}
