package main

import (
	"github.com/spf13/cobra"

	"github.com/yungbote/careerprep-backend/internal/app"
	"github.com/yungbote/careerprep-backend/internal/data/repos"
	"github.com/yungbote/careerprep-backend/internal/modules/catalog"
)

func migrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Create or update the database schema",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, log, err := setup()
			if err != nil {
				return err
			}
			defer log.Sync()
			dbs, err := app.OpenDB(log, cfg, true)
			if err != nil {
				return err
			}
			defer dbs.Close()
			log.Info("migrations applied")
			return nil
		},
	}
}

func seedCoursesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "seed-courses",
		Short: "Store the built-in course catalogue",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, log, err := setup()
			if err != nil {
				return err
			}
			defer log.Sync()
			dbs, err := app.OpenDB(log, cfg, true)
			if err != nil {
				return err
			}
			defer dbs.Close()

			svc, err := catalog.NewService(log, repos.NewCourseRepo(dbs.DB(), log))
			if err != nil {
				return err
			}
			ctx := cmd.Context()
			added, err := svc.Seed(ctx)
			if err != nil {
				return err
			}
			cmd.Printf("added %d courses\n", added)
			return nil
		},
	}
}
