package main

import (
	"github.com/spf13/cobra"

	"github.com/yungbote/careerprep-backend/internal/app"
	"github.com/yungbote/careerprep-backend/internal/platform/shutdown"
)

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API until SIGINT or SIGTERM",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, log, err := setup()
			if err != nil {
				return err
			}
			ctx, stop := shutdown.NotifyContext(cmd.Context())
			defer stop()

			a, err := app.New(ctx, log, cfg)
			if err != nil {
				log.Error("app init failed", "error", err)
				log.Sync()
				return err
			}
			if err := a.Start(ctx); err != nil {
				_ = a.Close()
				return err
			}
			runErr := a.Run(ctx)
			if err := a.Close(); err != nil {
				log.Warn("shutdown incomplete", "error", err)
			}
			return runErr
		},
	}
}
