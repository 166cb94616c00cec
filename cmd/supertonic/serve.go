package main

import (
	"context"
	"os/signal"
	"syscall"

	"github.com/example/supertonic-tts/internal/config"
	"github.com/example/supertonic-tts/internal/server"
	"github.com/example/supertonic-tts/internal/tts"
	"github.com/spf13/cobra"
)

func newServeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the supertonic HTTP synthesis server",
		RunE: func(_ *cobra.Command, _ []string) error {
			cfg, err := requireConfig()
			if err != nil {
				return err
			}

			svc := tts.NewService(cfg)
			srv := server.New(cfg, svc)

			ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			return srv.Start(ctx)
		},
	}

	defaults := config.DefaultConfig()
	config.RegisterFlags(cmd.Flags(), defaults)

	return cmd
}
