// Package testutil provides shared skip helpers for integration tests.
//
// Each helper calls t.Skip with a clear human-readable reason when the named
// prerequisite is absent, so integration tests remain runnable in partial
// environments without failing noisily.
//
// Typical usage:
//
//	func TestMyIntegration(t *testing.T) {
//	    testutil.RequireONNXRuntime(t)
//	    testutil.RequireAssetRoot(t, "testdata/assets")
//	    ...
//	}
package testutil

import (
	"os"
	"path/filepath"
	"testing"
)

// assetFiles lists the fixed set of files a usable asset root must contain,
// per the model's manifest (config, indexer table, and the four graphs).
var assetFiles = []string{
	"tts.json",
	"unicode_indexer.json",
	"duration_predictor_quant.onnx",
	"text_encoder_quant.onnx",
	"vector_estimator_quant.onnx",
	"vocoder_quant.onnx",
}

// RequireONNXRuntime skips the test if no ONNX Runtime shared library can be
// located. It checks (in order): the ORT_LIBRARY_PATH env var, then the
// SUPERTONIC_ORT_LIB env var, then common system library paths.
func RequireONNXRuntime(tb testing.TB) {
	tb.Helper()

	for _, env := range []string{"ORT_LIBRARY_PATH", "SUPERTONIC_ORT_LIB"} {
		if p := os.Getenv(env); p != "" {
			// #nosec G703 -- Integration tests intentionally accept explicit env-provided local library paths.
			_, err := os.Stat(p)
			if err == nil {
				return // found
			}

			tb.Skipf("ONNX Runtime library not found at %s=%q", env, p)
		}
	}
	// Fall back to common system locations.
	candidates := []string{
		"/usr/lib/libonnxruntime.so",
		"/usr/local/lib/libonnxruntime.so",
		"/usr/lib/x86_64-linux-gnu/libonnxruntime.so",
	}
	for _, p := range candidates {
		_, err := os.Stat(p)
		if err == nil {
			return // found
		}
	}

	tb.Skip("ONNX Runtime shared library not found; set ORT_LIBRARY_PATH or SUPERTONIC_ORT_LIB")
}

// RequireAssetRoot skips the test if root does not contain the full fixed
// asset set (model config, codepoint indexer, and the four ONNX graphs).
func RequireAssetRoot(tb testing.TB, root string) {
	tb.Helper()

	for _, name := range assetFiles {
		path := filepath.Join(root, name)
		if _, err := os.Stat(path); err != nil {
			tb.Skipf("asset root %q missing %q: %v", root, name, err)
		}
	}
}

// RequireVoiceStyle skips the test if the named voice style JSON is not
// present under root/voice_styles.
func RequireVoiceStyle(tb testing.TB, root, id string) {
	tb.Helper()

	path := filepath.Join(root, "voice_styles", id+".json")
	if _, err := os.Stat(path); err != nil {
		tb.Skipf("voice style %q not available at %q: %v", id, path, err)
	}
}
