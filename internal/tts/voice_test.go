package tts

import (
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/example/supertonic-tts/internal/onnx"
)

func writeVoiceStyleFixture(t *testing.T, dir, id string) {
	t.Helper()

	if err := os.MkdirAll(filepath.Join(dir, "voice_styles"), 0o755); err != nil {
		t.Fatalf("mkdir voice_styles: %v", err)
	}

	data := `{
		"style_ttl": {"dims": [1, 2, 3], "data": [[[1, 2, 3], [4, 5, 6]]]},
		"style_dp": {"dims": [1, 1, 2], "data": [[[7, 8]]]}
	}`

	path := filepath.Join(dir, "voice_styles", id+".json")
	if err := os.WriteFile(path, []byte(data), 0o644); err != nil {
		t.Fatalf("write fixture: %v", err)
	}
}

func TestVoiceStyleStore_Get_HappyPath(t *testing.T) {
	dir := t.TempDir()
	writeVoiceStyleFixture(t, dir, "F1")

	store := NewVoiceStyleStore(dir)

	style, err := store.Get("F1")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}

	if style.ID != "F1" {
		t.Errorf("ID = %q, want F1", style.ID)
	}

	if got := style.StyleTTL.Shape(); len(got) != 3 || got[0] != 1 || got[1] != 2 || got[2] != 3 {
		t.Errorf("style_ttl shape = %v, want [1 2 3]", got)
	}

	ttlData, err := onnx.ExtractFloat32(style.StyleTTL)
	if err != nil {
		t.Fatalf("extract style_ttl: %v", err)
	}
	want := []float32{1, 2, 3, 4, 5, 6}
	if len(ttlData) != len(want) {
		t.Fatalf("len(ttlData) = %d, want %d", len(ttlData), len(want))
	}
	for i := range want {
		if ttlData[i] != want[i] {
			t.Errorf("ttlData[%d] = %v, want %v", i, ttlData[i], want[i])
		}
	}

	if style.BatchDim() != 1 {
		t.Errorf("BatchDim() = %d, want 1", style.BatchDim())
	}
}

func TestVoiceStyleStore_Get_UnknownVoice(t *testing.T) {
	store := NewVoiceStyleStore(t.TempDir())

	_, err := store.Get("X9")
	if err == nil {
		t.Fatal("expected error for unknown voice")
	}

	terr, ok := err.(*Error)
	if !ok {
		t.Fatalf("expected *Error, got %T", err)
	}
	if terr.Kind != InvalidInput {
		t.Errorf("Kind = %v, want InvalidInput", terr.Kind)
	}
}

func TestVoiceStyleStore_Get_MissingFile(t *testing.T) {
	store := NewVoiceStyleStore(t.TempDir())

	_, err := store.Get("F1")
	if err == nil {
		t.Fatal("expected error for missing file")
	}

	terr, ok := err.(*Error)
	if !ok {
		t.Fatalf("expected *Error, got %T", err)
	}
	if terr.Kind != ConfigError {
		t.Errorf("Kind = %v, want ConfigError", terr.Kind)
	}
}

func TestVoiceStyleStore_Get_MalformedJSON(t *testing.T) {
	dir := t.TempDir()
	if err := os.MkdirAll(filepath.Join(dir, "voice_styles"), 0o755); err != nil {
		t.Fatalf("mkdir voice_styles: %v", err)
	}
	path := filepath.Join(dir, "voice_styles", "M1.json")
	if err := os.WriteFile(path, []byte("not json"), 0o644); err != nil {
		t.Fatalf("write fixture: %v", err)
	}

	store := NewVoiceStyleStore(dir)

	_, err := store.Get("M1")
	if err == nil {
		t.Fatal("expected error for malformed JSON")
	}

	terr, ok := err.(*Error)
	if !ok {
		t.Fatalf("expected *Error, got %T", err)
	}
	if terr.Kind != ConfigError {
		t.Errorf("Kind = %v, want ConfigError", terr.Kind)
	}
}

func TestVoiceStyleStore_Get_ConcurrentFirstUse(t *testing.T) {
	dir := t.TempDir()
	writeVoiceStyleFixture(t, dir, "M2")

	store := NewVoiceStyleStore(dir)

	const n = 16
	var wg sync.WaitGroup
	results := make([]VoiceStyle, n)
	errs := make([]error, n)

	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i], errs[i] = store.Get("M2")
		}(i)
	}
	wg.Wait()

	for i := 0; i < n; i++ {
		if errs[i] != nil {
			t.Fatalf("goroutine %d: %v", i, errs[i])
		}
		if results[i].ID != "M2" {
			t.Errorf("goroutine %d: ID = %q, want M2", i, results[i].ID)
		}
	}
}

func TestFlattenNumeric_RejectsNonNumeric(t *testing.T) {
	var out []float32
	err := flattenNumeric([]any{"not a number"}, &out)
	if err == nil {
		t.Fatal("expected error for non-numeric leaf")
	}
}
