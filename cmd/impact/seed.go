package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"policy-impact-lab/internal/pipeline"
	pgstore "policy-impact-lab/internal/storage/postgres"
)

var seedCmd = &cobra.Command{
	Use:   "seed",
	Short: "Write the demo fixtures into PostgreSQL",
	Long: fmt.Sprintf(`Write the demo population (%d people in %d households) and the
%d-point household sweep for both scenarios into the scenario_vectors
table under the configured dataset. Run "impact report --provider store"
afterwards to report from the stored vectors.`,
		pipeline.DemoPeople, pipeline.DemoHouseholds, pipeline.DemoSweepPoints),
	Args: cobra.NoArgs,
	RunE: runSeed,
}

func runSeed(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	if cfg.Postgres.DSN == "" {
		return errors.New("postgres dsn is required")
	}

	pool, err := pgstore.NewPool(ctx, cfg.Postgres.DSN, cfg.Postgres.MaxConns)
	if err != nil {
		return fmt.Errorf("connect postgres: %w", err)
	}
	defer pool.Close()

	n, err := pipeline.LoadFixtures(ctx, pgstore.NewVectorStore(pool), cfg.Dataset)
	if err != nil {
		return err
	}
	logger.Info("fixtures stored", "dataset", cfg.Dataset, "vectors", n)
	fmt.Fprintf(cmd.OutOrStdout(), "Stored %d vectors for dataset %s\n", n, cfg.Dataset)
	return nil
}
