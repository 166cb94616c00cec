package onnx

import (
	"context"
	"fmt"
	"maps"

	"github.com/example/supertonic-tts/internal/tensorutil"
	"golang.org/x/sync/errgroup"
)

// GraphRunner is the contract Engine needs for each of the four ONNX graphs
// (duration predictor, text encoder, vector estimator, vocoder). *Runner
// satisfies it with real onnxruntime-purego sessions in production;
// engine_test.go supplies fakes keyed by graph name for orchestration tests.
type GraphRunner interface {
	Run(ctx context.Context, inputs map[string]*Tensor) (map[string]*Tensor, error)
	Name() string
	Close()
}

// Engine is the Inference Orchestrator (§4.6): it runs the four inference
// graphs in the order duration predictor / text encoder / latent sampling →
// denoising loop → vocoder, for a single batch item (B == 1 is enforced by
// the caller per the voice-style single-speaker constraint).
type Engine struct {
	runners map[string]GraphRunner
}

// NewEngineWithRunners builds an Engine directly from a graph-name →
// GraphRunner map, bypassing SessionManager. Used by engine_test.go to swap
// in fake runners per graph without touching an onnxruntime session.
func NewEngineWithRunners(runners map[string]GraphRunner) *Engine {
	owned := make(map[string]GraphRunner, len(runners))
	maps.Copy(owned, runners)

	return &Engine{runners: owned}
}

// Close releases every underlying graph runner. Safe to call once; runners
// themselves tolerate repeated Close calls.
func (e *Engine) Close() {
	for _, r := range e.runners {
		if r != nil {
			r.Close()
		}
	}
}

func (e *Engine) runner(name string) (GraphRunner, error) {
	r, ok := e.runners[name]
	if !ok || r == nil {
		return nil, fmt.Errorf("inference graph %q not loaded", name)
	}

	return r, nil
}

// SynthesisInput carries everything the orchestrator needs for one chunk.
type SynthesisInput struct {
	TextIDs   *Tensor // int64 [1, L]
	TextMask  *Tensor // float32 [1, 1, L]
	StyleTTL  *Tensor // float32 [1, d1, d2]
	StyleDP   *Tensor // float32 [1, d1, d2]
	TotalStep int
	Speed     float32
	Config    ModelConfig
	Rand      tensorutil.Rand
}

// SynthesisOutput is the per-chunk result of Synthesize.
type SynthesisOutput struct {
	Wav      []float32
	Duration float32 // seconds, after speed scaling
}

// Synthesize runs the full pipeline described in §4.6 for one text chunk.
func (e *Engine) Synthesize(ctx context.Context, in SynthesisInput) (SynthesisOutput, error) {
	if in.TotalStep < 1 {
		return SynthesisOutput{}, fmt.Errorf("total_step must be >= 1, got %d", in.TotalStep)
	}
	if in.Speed == 0 {
		return SynthesisOutput{}, fmt.Errorf("speed must be non-zero")
	}

	var duration *Tensor
	var textEmb *Tensor

	// Steps 2 (duration predictor) and 3 (text encoder) are logically
	// independent — run them concurrently per §4.6's "MAY parallelize".
	// Latent sampling (step 4) depends on the duration predictor's output,
	// so it runs after this group completes rather than alongside it.
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		out, err := e.runDurationPredictor(gctx, in)
		if err != nil {
			return err
		}
		duration = out

		return nil
	})

	g.Go(func() error {
		out, err := e.runTextEncoder(gctx, in)
		if err != nil {
			return err
		}
		textEmb = out

		return nil
	})

	if err := g.Wait(); err != nil {
		return SynthesisOutput{}, err
	}

	scaledDuration, err := scaleDuration(duration, in.Speed)
	if err != nil {
		return SynthesisOutput{}, err
	}

	durationData, err := ExtractFloat32(scaledDuration)
	if err != nil {
		return SynthesisOutput{}, fmt.Errorf("extract scaled duration: %w", err)
	}

	rng := in.Rand
	if rng == nil {
		rng = tensorutil.NewRand()
	}

	sample := tensorutil.SampleLatent(
		durationData,
		in.Config.SampleRate,
		in.Config.BaseChunkSize,
		in.Config.ChunkCompressFactor,
		in.Config.LatentDim,
		rng,
	)

	latentMaskFlat := tensorutil.FlattenMask(sample.Mask)
	latentMask, err := NewTensor(latentMaskFlat, []int64{1, 1, int64(sample.LatentLen)})
	if err != nil {
		return SynthesisOutput{}, fmt.Errorf("build latent mask tensor: %w", err)
	}

	xt, err := NewTensor(sample.Data, sample.Shape)
	if err != nil {
		return SynthesisOutput{}, fmt.Errorf("build initial latent tensor: %w", err)
	}

	xt, err = e.denoise(ctx, xt, textEmb, latentMask, in)
	if err != nil {
		return SynthesisOutput{}, err
	}

	wav, err := e.runVocoder(ctx, xt)
	if err != nil {
		return SynthesisOutput{}, err
	}

	return SynthesisOutput{
		Wav:      wav,
		Duration: durationData[0],
	}, nil
}

func (e *Engine) runDurationPredictor(ctx context.Context, in SynthesisInput) (*Tensor, error) {
	runner, err := e.runner(GraphDurationPredictor)
	if err != nil {
		return nil, err
	}

	outputs, err := runner.Run(ctx, map[string]*Tensor{
		"text_ids":  in.TextIDs,
		"style_dp":  in.StyleDP,
		"text_mask": in.TextMask,
	})
	if err != nil {
		return nil, fmt.Errorf("duration predictor: %w", err)
	}

	duration, ok := outputs["duration"]
	if !ok {
		return nil, fmt.Errorf("duration predictor: missing 'duration' output")
	}

	return duration, nil
}

func (e *Engine) runTextEncoder(ctx context.Context, in SynthesisInput) (*Tensor, error) {
	runner, err := e.runner(GraphTextEncoder)
	if err != nil {
		return nil, err
	}

	outputs, err := runner.Run(ctx, map[string]*Tensor{
		"text_ids":  in.TextIDs,
		"style_ttl": in.StyleTTL,
		"text_mask": in.TextMask,
	})
	if err != nil {
		return nil, fmt.Errorf("text encoder: %w", err)
	}

	emb, ok := outputs["text_emb"]
	if !ok {
		return nil, fmt.Errorf("text encoder: missing 'text_emb' output")
	}

	return emb, nil
}

// denoise runs the sequential vector-estimator loop, step 5 of §4.6. Each
// iteration replaces x_t with the returned denoised_latent, preserving shape.
func (e *Engine) denoise(ctx context.Context, xt, textEmb, latentMask *Tensor, in SynthesisInput) (*Tensor, error) {
	runner, err := e.runner(GraphVectorEstimator)
	if err != nil {
		return nil, err
	}

	totalStep := float32(in.TotalStep)

	// current_step/total_step are rank-1 single-element float32 tensors per
	// the vector-estimator graph schema (spec §9 open question 3).
	for step := 0; step < in.TotalStep; step++ {
		currentStep, err := NewTensor([]float32{float32(step)}, []int64{1})
		if err != nil {
			return nil, fmt.Errorf("denoise step %d: build current_step: %w", step, err)
		}

		totalStepT, err := NewTensor([]float32{totalStep}, []int64{1})
		if err != nil {
			return nil, fmt.Errorf("denoise step %d: build total_step: %w", step, err)
		}

		outputs, err := runner.Run(ctx, map[string]*Tensor{
			"noisy_latent": xt,
			"text_emb":     textEmb,
			"style_ttl":    in.StyleTTL,
			"latent_mask":  latentMask,
			"text_mask":    in.TextMask,
			"current_step": currentStep,
			"total_step":   totalStepT,
		})
		if err != nil {
			return nil, fmt.Errorf("vector estimator step %d: %w", step, err)
		}

		next, ok := outputs["denoised_latent"]
		if !ok {
			return nil, fmt.Errorf("vector estimator step %d: missing 'denoised_latent' output", step)
		}

		if !shapeEqual(next.Shape(), xt.Shape()) {
			return nil, &ShapeMismatchError{Step: step, Want: xt.Shape(), Got: next.Shape()}
		}

		xt = next
	}

	return xt, nil
}

func (e *Engine) runVocoder(ctx context.Context, latent *Tensor) ([]float32, error) {
	runner, err := e.runner(GraphVocoder)
	if err != nil {
		return nil, err
	}

	outputs, err := runner.Run(ctx, map[string]*Tensor{"latent": latent})
	if err != nil {
		return nil, fmt.Errorf("vocoder: %w", err)
	}

	wav, ok := outputs["wav_tts"]
	if !ok {
		return nil, fmt.Errorf("vocoder: missing 'wav_tts' output")
	}

	return ExtractFloat32(wav)
}

// scaleDuration divides every element of the duration-predictor output by
// speed (§4.6 step 2).
func scaleDuration(duration *Tensor, speed float32) (*Tensor, error) {
	data, err := ExtractFloat32(duration)
	if err != nil {
		return nil, fmt.Errorf("extract duration: %w", err)
	}

	scaled := make([]float32, len(data))
	for i, v := range data {
		scaled[i] = v / speed
	}

	return NewTensor(scaled, duration.Shape())
}

// ShapeMismatchError reports a vector-estimator step whose denoised_latent
// output shape diverges from the shape it was fed, which should never
// happen for a well-formed graph. Callers can errors.As this to classify
// the failure distinctly from a generic inference error.
type ShapeMismatchError struct {
	Step int
	Want []int64
	Got  []int64
}

func (e *ShapeMismatchError) Error() string {
	return fmt.Sprintf("vector estimator step %d: shape changed from %v to %v", e.Step, e.Want, e.Got)
}

func shapeEqual(a, b []int64) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}

	return true
}
