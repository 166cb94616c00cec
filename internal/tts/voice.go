package tts

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/example/supertonic-tts/internal/onnx"
)

// voiceIDs is the closed set of voice identifiers accepted by the style
// store (§3 VoiceStyle).
var voiceIDs = map[string]bool{
	"F1": true,
	"F2": true,
	"M1": true,
	"M2": true,
}

// VoiceStyle is a pair of conditioning tensors for a single voice identity.
type VoiceStyle struct {
	ID       string
	StyleTTL *onnx.Tensor
	StyleDP  *onnx.Tensor
}

// BatchDim returns style_ttl's first dimension, used to enforce the
// single-speaker constraint before any inference call.
func (v VoiceStyle) BatchDim() int64 {
	shape := v.StyleTTL.Shape()
	if len(shape) == 0 {
		return 0
	}

	return shape[0]
}

type namedTensor struct {
	Dims []int64         `json:"dims"`
	Data json.RawMessage `json:"data"`
}

type voiceStyleFile struct {
	StyleTTL namedTensor `json:"style_ttl"`
	StyleDP  namedTensor `json:"style_dp"`
}

// VoiceStyleStore loads and caches per-voice conditioning tensors (§4.3). It
// is append-only and safe for concurrent first-use of the same identifier.
type VoiceStyleStore struct {
	assetRoot string

	mu    sync.RWMutex
	cache map[string]VoiceStyle
}

// NewVoiceStyleStore builds a store rooted at assetRoot/voice_styles.
func NewVoiceStyleStore(assetRoot string) *VoiceStyleStore {
	return &VoiceStyleStore{
		assetRoot: assetRoot,
		cache:     make(map[string]VoiceStyle),
	}
}

// Get resolves a voice identifier to its cached conditioning tensors,
// loading them from disk on first use.
func (s *VoiceStyleStore) Get(id string) (VoiceStyle, error) {
	if !voiceIDs[id] {
		return VoiceStyle{}, newError(InvalidInput, fmt.Sprintf("unknown voice style %q", id), nil)
	}

	s.mu.RLock()
	if v, ok := s.cache[id]; ok {
		s.mu.RUnlock()
		return v, nil
	}
	s.mu.RUnlock()

	v, err := s.load(id)
	if err != nil {
		return VoiceStyle{}, err
	}

	s.mu.Lock()
	// Idempotent: if another goroutine raced us and loaded first, keep the
	// existing (equal) value rather than overwrite it.
	if existing, ok := s.cache[id]; ok {
		s.mu.Unlock()
		return existing, nil
	}
	s.cache[id] = v
	s.mu.Unlock()

	return v, nil
}

func (s *VoiceStyleStore) load(id string) (VoiceStyle, error) {
	path := filepath.Join(s.assetRoot, "voice_styles", id+".json")

	data, err := os.ReadFile(path)
	if err != nil {
		return VoiceStyle{}, newError(ConfigError, fmt.Sprintf("read voice style %q", id), err)
	}

	var raw voiceStyleFile
	if err := json.Unmarshal(data, &raw); err != nil {
		return VoiceStyle{}, newError(ConfigError, fmt.Sprintf("decode voice style %q", id), err)
	}

	styleTTL, err := buildTensor(raw.StyleTTL)
	if err != nil {
		return VoiceStyle{}, newError(ConfigError, fmt.Sprintf("build style_ttl for %q", id), err)
	}

	styleDP, err := buildTensor(raw.StyleDP)
	if err != nil {
		return VoiceStyle{}, newError(ConfigError, fmt.Sprintf("build style_dp for %q", id), err)
	}

	return VoiceStyle{ID: id, StyleTTL: styleTTL, StyleDP: styleDP}, nil
}

func buildTensor(nt namedTensor) (*onnx.Tensor, error) {
	var nested any
	if err := json.Unmarshal(nt.Data, &nested); err != nil {
		return nil, fmt.Errorf("decode tensor data: %w", err)
	}

	flat := make([]float32, 0)
	if err := flattenNumeric(nested, &flat); err != nil {
		return nil, err
	}

	return onnx.NewTensor(flat, nt.Dims)
}

// flattenNumeric walks an arbitrarily nested JSON array of numbers in
// row-major order, appending each leaf value to out.
func flattenNumeric(v any, out *[]float32) error {
	switch val := v.(type) {
	case float64:
		*out = append(*out, float32(val))
		return nil
	case []any:
		for _, item := range val {
			if err := flattenNumeric(item, out); err != nil {
				return err
			}
		}
		return nil
	default:
		return fmt.Errorf("unsupported tensor data element type %T", v)
	}
}
