package main

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/example/supertonic-tts/internal/doctor"
	"github.com/example/supertonic-tts/internal/onnx"
	"github.com/spf13/cobra"
)

func newDoctorCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "doctor",
		Short: "Probe ONNX Runtime availability and asset presence",
		RunE: func(_ *cobra.Command, _ []string) error {
			cfg, err := requireConfig()
			if err != nil {
				return err
			}

			dcfg := doctor.Config{
				ORTVersion: func() (string, error) {
					info, err := onnx.DetectRuntime(cfg.Runtime)
					if err != nil {
						return "", err
					}

					return fmt.Sprintf("%s (%s)", info.Version, info.LibraryPath), nil
				},
				AssetFiles:      collectAssetFiles(cfg.AssetRoot),
				VoiceStyleFiles: collectVoiceStyleFiles(cfg.AssetRoot),
			}

			result := doctor.Run(dcfg, os.Stdout)

			if result.Failed() {
				for _, f := range result.Failures() {
					fmt.Fprintf(os.Stderr, "FAIL: %s\n", f)
				}

				return errors.New("doctor checks failed")
			}

			_, _ = fmt.Fprintln(os.Stdout, "doctor checks passed")

			return nil
		},
	}

	return cmd
}

// assetFilenames is the fixed set of files an asset root must contain,
// mirroring internal/onnx's manifest (§6.2).
var assetFilenames = []string{
	"tts.json",
	"unicode_indexer.json",
	"duration_predictor_quant.onnx",
	"text_encoder_quant.onnx",
	"vector_estimator_quant.onnx",
	"vocoder_quant.onnx",
}

var voiceStyleIDs = []string{"F1", "F2", "M1", "M2"}

func collectAssetFiles(assetRoot string) []string {
	paths := make([]string, 0, len(assetFilenames))
	for _, name := range assetFilenames {
		paths = append(paths, filepath.Join(assetRoot, name))
	}

	return paths
}

func collectVoiceStyleFiles(assetRoot string) []string {
	paths := make([]string, 0, len(voiceStyleIDs))
	for _, id := range voiceStyleIDs {
		paths = append(paths, filepath.Join(assetRoot, "voice_styles", id+".json"))
	}

	return paths
}
