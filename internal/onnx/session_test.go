package onnx

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/example/supertonic-tts/internal/config"
	"github.com/example/supertonic-tts/internal/text"
)

func writeTTSJSON(t *testing.T, dir string) {
	t.Helper()

	raw := ttsJSON{}
	raw.AE.SampleRate = 24000
	raw.AE.BaseChunkSize = 256
	raw.TTL.ChunkCompressFactor = 2
	raw.TTL.LatentDim = 32

	data, err := json.Marshal(raw)
	if err != nil {
		t.Fatalf("marshal tts.json: %v", err)
	}

	if err := os.WriteFile(filepath.Join(dir, "tts.json"), data, 0o644); err != nil {
		t.Fatalf("write tts.json: %v", err)
	}
}

func TestLoadModelConfig_Valid(t *testing.T) {
	dir := t.TempDir()
	writeTTSJSON(t, dir)

	cfg, err := loadModelConfig(filepath.Join(dir, "tts.json"))
	if err != nil {
		t.Fatalf("loadModelConfig: %v", err)
	}

	if cfg.SampleRate != 24000 || cfg.BaseChunkSize != 256 || cfg.ChunkCompressFactor != 2 || cfg.LatentDim != 32 {
		t.Fatalf("unexpected config: %+v", cfg)
	}
}

func TestLoadModelConfig_MissingFile(t *testing.T) {
	_, err := loadModelConfig(filepath.Join(t.TempDir(), "missing.json"))
	if err == nil {
		t.Fatal("expected error for missing file")
	}
}

func TestLoadModelConfig_NonPositiveField(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "tts.json"), []byte(`{"ae":{"sample_rate":0,"base_chunk_size":1},"ttl":{"chunk_compress_factor":1,"latent_dim":1}}`), 0o644); err != nil {
		t.Fatalf("write tts.json: %v", err)
	}

	if _, err := loadModelConfig(filepath.Join(dir, "tts.json")); err == nil {
		t.Fatal("expected error for non-positive sample_rate")
	}
}

func TestNewSessionManager_MissingGraphFile(t *testing.T) {
	dir := t.TempDir()
	writeTTSJSON(t, dir)

	indexerData, err := json.Marshal([]int64{1, 2, 3})
	if err != nil {
		t.Fatalf("marshal indexer: %v", err)
	}
	if err := os.WriteFile(filepath.Join(dir, "unicode_indexer.json"), indexerData, 0o644); err != nil {
		t.Fatalf("write indexer: %v", err)
	}

	// No .onnx files present: the manager must fail before ever touching ORT.
	_, err = newSessionManager(dir, config.RuntimeConfig{})
	if err == nil {
		t.Fatal("expected error for missing graph file")
	}
}

func TestNewSessionManager_MissingIndexer(t *testing.T) {
	dir := t.TempDir()
	writeTTSJSON(t, dir)

	_, err := newSessionManager(dir, config.RuntimeConfig{})
	if err == nil {
		t.Fatal("expected error for missing codepoint indexer")
	}
}

func TestSessionManager_Accessors(t *testing.T) {
	cfg := ModelConfig{SampleRate: 24000, BaseChunkSize: 256, ChunkCompressFactor: 2, LatentDim: 32}
	ix, err := text.LoadIndexer(writeIndexerFixture(t))
	if err != nil {
		t.Fatalf("LoadIndexer: %v", err)
	}

	sm := &SessionManager{
		sessions: map[string]Session{
			GraphDurationPredictor: {Name: GraphDurationPredictor, Path: "dp.onnx"},
		},
		runners: map[string]*Runner{},
		config:  cfg,
		indexer: ix,
	}

	if sm.Config() != cfg {
		t.Errorf("Config() = %+v, want %+v", sm.Config(), cfg)
	}

	if sm.Indexer() != ix {
		t.Error("Indexer() did not return the stored indexer")
	}

	if _, ok := sm.Session(GraphDurationPredictor); !ok {
		t.Error("Session() did not find duration_predictor")
	}

	if _, ok := sm.Session("unknown"); ok {
		t.Error("Session() found an entry for an unregistered graph")
	}

	got := sm.Sessions()
	if len(got) != len(graphOrder) {
		t.Fatalf("Sessions() len = %d, want %d", len(got), len(graphOrder))
	}
}

func writeIndexerFixture(t *testing.T) string {
	t.Helper()

	dir := t.TempDir()
	path := filepath.Join(dir, "unicode_indexer.json")

	data, err := json.Marshal([]int64{0, 1, 2, 3, 4})
	if err != nil {
		t.Fatalf("marshal indexer fixture: %v", err)
	}

	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatalf("write indexer fixture: %v", err)
	}

	return path
}
