package cli

import (
	"fmt"
	"log"

	"github.com/jackc/pgx/v4/pgxpool"
	"github.com/spf13/cobra"
	"lesson-progress-service/internal/config"
	"lesson-progress-service/internal/infra/postgres"
)

// NewSeedCmd loads a YAML catalog of users, courses, lessons and questions into Postgres.
func NewSeedCmd(configPath *string) *cobra.Command {
	var file string
	cmd := &cobra.Command{
		Use:   "seed",
		Short: "Upsert catalog reference data from a YAML file",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			cfg, err := config.Load(*configPath, false)
			if err != nil {
				return err
			}
			if cfg.Postgres.URL == "" {
				return fmt.Errorf("postgres url not configured")
			}
			catalog, err := config.LoadCatalog(file)
			if err != nil {
				return err
			}
			if err := runMigrationsWithConfig(ctx, cfg); err != nil {
				return err
			}

			pool, err := pgxpool.Connect(ctx, cfg.Postgres.URL)
			if err != nil {
				return err
			}
			defer pool.Close()

			err = postgres.NewCatalogLoader(pool).Seed(ctx, postgres.CatalogSeed{
				Users:     catalog.Users,
				Courses:   catalog.Courses,
				Lessons:   catalog.Lessons,
				Questions: catalog.Questions,
			})
			if err != nil {
				return err
			}
			log.Printf("seeded %d users, %d lessons, %d questions", len(catalog.Users), len(catalog.Lessons), len(catalog.Questions))
			return nil
		},
	}
	cmd.Flags().StringVar(&file, "file", "config/catalog.yaml", "catalog YAML file")
	return cmd
}
