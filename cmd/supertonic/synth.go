package main

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/example/supertonic-tts/internal/audio"
	"github.com/example/supertonic-tts/internal/tts"
	"github.com/spf13/cobra"
)

func newSynthCmd() *cobra.Command {
	var text string
	var out string
	var voiceStyle string
	var totalStep int
	var speed float32
	var silenceSeconds float64
	var normalize bool
	var dcBlock bool
	var fadeInMS float64
	var fadeOutMS float64

	cmd := &cobra.Command{
		Use:   "synth",
		Short: "Synthesize text to WAV",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := requireConfig()
			if err != nil {
				return err
			}

			inputText, err := readSynthText(text, os.Stdin)
			if err != nil {
				return err
			}

			req := tts.Request{
				Text:       inputText,
				VoiceStyle: voiceStyle,
				TotalStep:  totalStep,
				Speed:      speed,
			}
			if silenceSeconds >= 0 {
				req = req.WithSilenceDurationSeconds(silenceSeconds)
			}

			svc := tts.NewService(cfg)

			result, err := svc.Synthesize(cmd.Context(), req)
			if err != nil {
				return fmt.Errorf("synth failed: %w", err)
			}

			wavData := result.Wav
			if normalize || dcBlock || fadeInMS > 0 || fadeOutMS > 0 {
				wavData, err = applyDSPToWAV(wavData, result.SampleRate, synthDSPOptions{
					Normalize: normalize,
					DCBlock:   dcBlock,
					FadeInMS:  fadeInMS,
					FadeOutMS: fadeOutMS,
				})
				if err != nil {
					return err
				}
			}

			return writeSynthOutput(out, wavData, os.Stdout)
		},
	}

	cmd.Flags().StringVar(&text, "text", "", "Text to synthesize (if empty, read from stdin)")
	cmd.Flags().StringVar(&out, "out", "out.wav", "Output WAV path ('-' for stdout)")
	cmd.Flags().StringVar(&voiceStyle, "voice-style", "F1", "Voice style ID (F1, F2, M1, M2)")
	cmd.Flags().IntVar(&totalStep, "total-step", 0, "Denoising steps (0 selects the configured default)")
	cmd.Flags().Float32Var(&speed, "speed", 0, "Playback speed multiplier (0 selects the configured default)")
	cmd.Flags().Float64Var(&silenceSeconds, "silence-seconds", -1,
		"Inter-chunk silence duration override, in seconds (negative keeps the configured default)")
	cmd.Flags().BoolVar(&normalize, "normalize", false, "Peak-normalize output audio")
	cmd.Flags().BoolVar(&dcBlock, "dc-block", false, "Apply DC-block high-pass filter")
	cmd.Flags().Float64Var(&fadeInMS, "fade-in-ms", 0, "Apply linear fade-in duration in milliseconds")
	cmd.Flags().Float64Var(&fadeOutMS, "fade-out-ms", 0, "Apply linear fade-out duration in milliseconds")

	return cmd
}

type synthDSPOptions struct {
	Normalize bool
	DCBlock   bool
	FadeInMS  float64
	FadeOutMS float64
}

// applyDSPToWAV decodes a synthesized WAV, applies the requested ambient
// shaping steps in a fixed order (normalize, then DC-block, then fades), and
// re-encodes. This runs only when the CLI flags request it — the synthesis
// façade itself never reshapes the waveform.
func applyDSPToWAV(wavData []byte, sampleRate int, opts synthDSPOptions) ([]byte, error) {
	samples, err := audio.DecodeWAV(wavData, sampleRate)
	if err != nil {
		return nil, fmt.Errorf("decode WAV for DSP: %w", err)
	}

	var hooks []audio.Hook
	if opts.Normalize {
		hooks = append(hooks, audio.PeakNormalize)
	}
	if opts.DCBlock {
		hooks = append(hooks, func(s []float32) []float32 { return audio.DCBlock(s, sampleRate) })
	}
	if opts.FadeInMS > 0 {
		hooks = append(hooks, func(s []float32) []float32 { return audio.FadeIn(s, sampleRate, opts.FadeInMS) })
	}
	if opts.FadeOutMS > 0 {
		hooks = append(hooks, func(s []float32) []float32 { return audio.FadeOut(s, sampleRate, opts.FadeOutMS) })
	}
	processed := audio.ApplyHooks(samples, hooks...)

	out, err := audio.EncodeWAVPCM16(processed, sampleRate)
	if err != nil {
		return nil, fmt.Errorf("encode WAV after DSP: %w", err)
	}

	return out, nil
}

func writeSynthOutput(outPath string, wavData []byte, stdout io.Writer) error {
	if outPath == "-" {
		if stdout == nil {
			return fmt.Errorf("stdout writer is nil")
		}
		_, err := stdout.Write(wavData)
		return err
	}
	return os.WriteFile(outPath, wavData, 0o644)
}

func readSynthText(text string, stdin io.Reader) (string, error) {
	if strings.TrimSpace(text) != "" {
		return text, nil
	}

	b, err := io.ReadAll(stdin)
	if err != nil {
		return "", fmt.Errorf("read stdin: %w", err)
	}
	input := strings.TrimSpace(string(b))
	if input == "" {
		return "", fmt.Errorf("either provide --text or pipe text on stdin")
	}
	return input, nil
}
