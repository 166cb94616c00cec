package tts

import (
	"context"
	"testing"

	"github.com/example/supertonic-tts/internal/config"
	"github.com/example/supertonic-tts/internal/testutil"
)

func TestService_Synthesize_RejectsEmptyText(t *testing.T) {
	svc := NewService(config.DefaultConfig())

	_, err := svc.Synthesize(context.Background(), Request{Text: "   ", VoiceStyle: "F1"})
	if err == nil {
		t.Fatal("expected error for empty text")
	}

	terr, ok := err.(*Error)
	if !ok {
		t.Fatalf("expected *Error, got %T", err)
	}
	if terr.Kind != InvalidInput {
		t.Errorf("Kind = %v, want InvalidInput", terr.Kind)
	}
}

func TestRequest_WithSilenceDurationSeconds(t *testing.T) {
	base := Request{Text: "hello", VoiceStyle: "F1"}
	overridden := base.WithSilenceDurationSeconds(0.75)

	if base.hasSilenceOverride {
		t.Fatal("base request should be unmodified (value receiver)")
	}
	if !overridden.hasSilenceOverride {
		t.Fatal("overridden request should record the override")
	}
	if overridden.SilenceDurationSeconds != 0.75 {
		t.Errorf("SilenceDurationSeconds = %v, want 0.75", overridden.SilenceDurationSeconds)
	}
}

// TestService_Synthesize_EndToEnd exercises the full pipeline against a real
// asset root and ONNX Runtime. It is skipped unless both are available,
// since the session manager's single-init global state cannot be faked
// within a single process once a real asset root has been loaded here.
func TestService_Synthesize_EndToEnd(t *testing.T) {
	const assetRoot = "testdata/assets"

	testutil.RequireONNXRuntime(t)
	testutil.RequireAssetRoot(t, assetRoot)
	testutil.RequireVoiceStyle(t, assetRoot, "F1")

	cfg := config.DefaultConfig()
	cfg.AssetRoot = assetRoot

	svc := NewService(cfg)

	result, err := svc.Synthesize(context.Background(), Request{
		Text:       "Hello, world.",
		VoiceStyle: "F1",
		TotalStep:  2,
		Speed:      1.0,
	})
	if err != nil {
		t.Fatalf("Synthesize: %v", err)
	}

	testutil.AssertValidWAV(t, result.Wav, result.SampleRate)

	if result.DurationSeconds <= 0 {
		t.Errorf("DurationSeconds = %v, want > 0", result.DurationSeconds)
	}
}
