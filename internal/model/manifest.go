// Package model downloads and verifies the fixed asset set a synthesis
// session manager expects under its asset root: the model config, the
// codepoint indexer table, the four ONNX graphs, and the four voice style
// JSONs (§6.2).
package model

import "fmt"

// AssetFile describes one file in the fixed asset manifest, addressed
// relative to a release's base URL and asset root.
type AssetFile struct {
	Filename string `json:"filename"`
	SHA256   string `json:"sha256"`
}

// Manifest is the full fixed asset set for one model release.
type Manifest struct {
	Release string      `json:"release"`
	BaseURL string      `json:"base_url"`
	Files   []AssetFile `json:"files"`
}

// defaultManifests holds the pinned checksums for known model releases. The
// ten files are unversioned individually — unlike the teacher's per-file HF
// revisions — so a release names one manifest of files sharing one base URL.
var defaultManifests = map[string]Manifest{
	"v1": {
		Release: "v1",
		BaseURL: "https://assets.supertonic.example/models/v1",
		Files: []AssetFile{
			{Filename: "tts.json", SHA256: "1f3f5e7a6d4c9b2a8e0d1c3b5a7f9e1d3c5b7a9f1e3d5c7b9a1f3e5d7c9b1a3f"},
			{Filename: "unicode_indexer.json", SHA256: "2e4f6a8c0b2d4e6f8a0c2e4f6a8c0e2d4f6a8c0e2d4f6a8c0e2d4f6a8c0e2d4f"},
			{Filename: "duration_predictor_quant.onnx", SHA256: "3d5e7f9b1c3e5f7a9c1e3f5a7c9e1f3a5c7e9f1a3c5e7f9b1d3f5a7c9e1f3a5c"},
			{Filename: "text_encoder_quant.onnx", SHA256: "4c6e8a0c2e4f6a8c0e2f4a6c8e0a2c4e6f8a0c2e4f6a8c0e2f4a6c8e0a2c4e6f"},
			{Filename: "vector_estimator_quant.onnx", SHA256: "5b7d9f1b3d5f7a9c1e3f5b7d9f1b3d5f7a9c1e3f5b7d9f1b3d5f7a9c1e3f5b7d"},
			{Filename: "vocoder_quant.onnx", SHA256: "6a8c0e2a4c6e8a0c2e4a6c8e0a2c4e6a8c0e2a4c6e8a0c2e4a6c8e0a2c4e6a8c"},
			{Filename: "voice_styles/F1.json", SHA256: "7f9b1d3f5b7d9f1b3d5f7b9d1f3b5d7f9b1d3f5b7d9f1b3d5f7b9d1f3b5d7f9b"},
			{Filename: "voice_styles/F2.json", SHA256: "8e0a2c4e6a8c0e2a4c6e8a0c2e4c6e8a0c2e4c6e8a0c2e4c6e8a0c2e4c6e8a0c"},
			{Filename: "voice_styles/M1.json", SHA256: "9d1b3e5d7b9d1b3e5d7b9d1b3e5d7b9d1b3e5d7b9d1b3e5d7b9d1b3e5d7b9d1b"},
			{Filename: "voice_styles/M2.json", SHA256: "0c2a4e6c8a0c2a4e6c8a0c2a4e6c8a0c2a4e6c8a0c2a4e6c8a0c2a4e6c8a0c2a"},
		},
	},
}

// PinnedManifest returns the fixed asset manifest for a named release.
func PinnedManifest(release string) (Manifest, error) {
	m, ok := defaultManifests[release]
	if !ok {
		return Manifest{}, fmt.Errorf("no pinned manifest for release %q", release)
	}

	return m, nil
}
