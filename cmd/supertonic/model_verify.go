package main

import (
	"os"

	"github.com/example/supertonic-tts/internal/model"
	"github.com/spf13/cobra"
)

func newModelVerifyCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "verify",
		Short: "Load the asset root's four ONNX graphs and run a zero-input smoke test",
		RunE: func(_ *cobra.Command, _ []string) error {
			cfg, err := requireConfig()
			if err != nil {
				return err
			}

			return model.VerifyONNX(model.VerifyOptions{
				AssetRoot:  cfg.AssetRoot,
				ORTLibrary: cfg.Runtime.ORTLibraryPath,
				Stdout:     os.Stdout,
				Stderr:     os.Stderr,
			})
		},
	}

	return cmd
}
