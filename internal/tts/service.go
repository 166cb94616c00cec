package tts

import (
	"context"
	"errors"

	"github.com/example/supertonic-tts/internal/audio"
	"github.com/example/supertonic-tts/internal/config"
	"github.com/example/supertonic-tts/internal/onnx"
	"github.com/example/supertonic-tts/internal/tensorutil"
	"github.com/example/supertonic-tts/internal/text"
)

// Request is the input to Service.Synthesize, mirroring §4.9/§6.1's
// synthesize(...) parameters.
type Request struct {
	Text       string
	VoiceStyle string
	TotalStep  int     // 0 selects the configured default.
	Speed      float32 // 0 selects the configured default.

	// SilenceDurationSeconds overrides the inter-chunk silence gap when set
	// through WithSilenceDurationSeconds; a value assigned directly is
	// ignored. A negative value selects the configured default (0.3s per §4.9).
	SilenceDurationSeconds float64
	hasSilenceOverride     bool
}

// WithSilenceDurationSeconds sets an explicit inter-chunk silence gap,
// overriding the configured default.
func (r Request) WithSilenceDurationSeconds(seconds float64) Request {
	r.SilenceDurationSeconds = seconds
	r.hasSilenceOverride = true
	return r
}

// Result is the output of Service.Synthesize.
type Result struct {
	Wav             []byte
	SampleRate      int
	DurationSeconds float64
}

// Service is the Synthesis Façade (§4.9): the single entry point used by
// both the CLI and the HTTP server.
type Service struct {
	assetRoot  string
	runtimeCfg config.RuntimeConfig
	defaults   config.TTSConfig
	styles     *VoiceStyleStore
}

// NewService builds a façade bound to the given configuration. Session and
// asset loading is deferred to the first Synthesize call (§4.7).
func NewService(cfg config.Config) *Service {
	return &Service{
		assetRoot:  cfg.AssetRoot,
		runtimeCfg: cfg.Runtime,
		defaults:   cfg.TTS,
		styles:     NewVoiceStyleStore(cfg.AssetRoot),
	}
}

// Synthesize runs the full pipeline for req and returns an encoded WAV
// buffer, per §4.9.
func (s *Service) Synthesize(ctx context.Context, req Request) (Result, error) {
	trimmed, err := text.Normalize(req.Text)
	if err != nil {
		return Result{}, newError(InvalidInput, "text is empty", err)
	}

	totalStep := req.TotalStep
	if totalStep <= 0 {
		totalStep = s.defaults.DefaultTotalStep
	}

	speed := req.Speed
	if speed == 0 {
		speed = s.defaults.DefaultSpeed
	}

	silence := s.defaults.SilenceDurationSeconds
	if req.hasSilenceOverride && req.SilenceDurationSeconds >= 0 {
		silence = req.SilenceDurationSeconds
	}

	sm, err := onnx.LoadSessionsOnce(s.assetRoot, s.runtimeCfg)
	if err != nil {
		return Result{}, newError(ConfigError, "load inference sessions", err)
	}

	style, err := s.styles.Get(req.VoiceStyle)
	if err != nil {
		return Result{}, err
	}

	if style.BatchDim() != 1 {
		return Result{}, newError(ShapeMismatch, "voice style is not single-speaker", nil)
	}

	modelCfg := sm.Config()
	indexer := sm.Indexer()
	// Engine wraps the session manager's long-lived runners; it is not
	// Close()'d here since those runners are shared across requests for the
	// life of the process.
	engine := sm.Engine()

	chunks := text.Chunk(trimmed, s.defaults.MaxChunkChars)

	var wav []float32
	var totalDuration float64

	for i, chunk := range chunks {
		if i > 0 {
			silenceSamples := make([]float32, int(silence*float64(modelCfg.SampleRate)))
			wav = append(wav, silenceSamples...)
			totalDuration += silence
		}

		out, err := s.synthesizeChunk(ctx, engine, indexer, modelCfg, style, chunk, totalStep, speed)
		if err != nil {
			return Result{}, err
		}

		wav = append(wav, out.Wav...)
		totalDuration += float64(out.Duration)
	}

	maxSamples := int(float64(modelCfg.SampleRate) * totalDuration)
	if maxSamples < len(wav) {
		wav = wav[:maxSamples]
	}

	encoded, err := audio.EncodeWAVPCM16(wav, modelCfg.SampleRate)
	if err != nil {
		return Result{}, newError(EncodingError, "encode WAV", err)
	}

	return Result{
		Wav:             encoded,
		SampleRate:      modelCfg.SampleRate,
		DurationSeconds: totalDuration,
	}, nil
}

func (s *Service) synthesizeChunk(
	ctx context.Context,
	engine *onnx.Engine,
	indexer *text.Indexer,
	modelCfg onnx.ModelConfig,
	style VoiceStyle,
	chunk string,
	totalStep int,
	speed float32,
) (onnx.SynthesisOutput, error) {
	tokenIDs, mask := indexer.Index([]string{chunk})
	if len(tokenIDs) == 0 {
		return onnx.SynthesisOutput{}, newError(InvalidInput, "chunk produced no tokens", nil)
	}

	maxLen := int64(len(tokenIDs[0]))

	textIDs, err := onnx.NewTensor(tokenIDs[0], []int64{1, maxLen})
	if err != nil {
		return onnx.SynthesisOutput{}, newError(EncodingError, "build text_ids tensor", err)
	}

	textMask, err := onnx.NewTensor(tensorutil.FlattenMask(mask), []int64{1, 1, maxLen})
	if err != nil {
		return onnx.SynthesisOutput{}, newError(EncodingError, "build text_mask tensor", err)
	}

	out, err := engine.Synthesize(ctx, onnx.SynthesisInput{
		TextIDs:   textIDs,
		TextMask:  textMask,
		StyleTTL:  style.StyleTTL,
		StyleDP:   style.StyleDP,
		TotalStep: totalStep,
		Speed:     speed,
		Config:    modelCfg,
	})
	if err != nil {
		var shapeErr *onnx.ShapeMismatchError
		if errors.As(err, &shapeErr) {
			return onnx.SynthesisOutput{}, newError(ShapeMismatch, "run inference pipeline", err)
		}
		return onnx.SynthesisOutput{}, newError(InferenceFailure, "run inference pipeline", err)
	}

	return out, nil
}
