package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/yungbote/careerprep-backend/internal/app"
	"github.com/yungbote/careerprep-backend/internal/platform/logger"
)

func main() {
	if err := rootCmd().ExecuteContext(context.Background()); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func rootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "careerprep",
		Short:         "Career preparation API and flow tooling",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return app.LoadDotEnv()
		},
	}
	root.AddCommand(serveCmd(), migrateCmd(), seedCoursesCmd(), flowsCmd())
	return root
}

// setup loads configuration and the process logger.
func setup() (app.Config, *logger.Logger, error) {
	cfg := app.LoadConfig()
	log, err := app.NewLogger(cfg)
	if err != nil {
		return app.Config{}, nil, err
	}
	return cfg, log, nil
}
