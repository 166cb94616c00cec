package main

import (
	"os"

	"github.com/example/supertonic-tts/internal/model"
	"github.com/spf13/cobra"
)

func newModelDownloadCmd() *cobra.Command {
	var release string
	var authToken string

	cmd := &cobra.Command{
		Use:   "download",
		Short: "Download and checksum-verify the fixed asset set into the asset root",
		RunE: func(_ *cobra.Command, _ []string) error {
			cfg, err := requireConfig()
			if err != nil {
				return err
			}

			if authToken == "" {
				authToken = os.Getenv("SUPERTONIC_ASSET_TOKEN")
			}

			return model.Download(model.DownloadOptions{
				Release:   release,
				OutDir:    cfg.AssetRoot,
				AuthToken: authToken,
				Stdout:    os.Stdout,
				Stderr:    os.Stderr,
			})
		},
	}

	cmd.Flags().StringVar(&release, "release", "v1", "Pinned asset release to download")
	cmd.Flags().StringVar(&authToken, "auth-token", "", "Bearer token for the asset host (falls back to SUPERTONIC_ASSET_TOKEN)")

	return cmd
}
