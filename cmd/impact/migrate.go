package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"policy-impact-lab/internal/storage/migrations"
	pgstore "policy-impact-lab/internal/storage/postgres"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Apply database migrations",
	Long: `Apply the embedded PostgreSQL migrations (scenario vectors) and ClickHouse
migrations (chart rows) to every database with a configured DSN.`,
	Args: cobra.NoArgs,
	RunE: runMigrate,
}

func runMigrate(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	if cfg.Postgres.DSN == "" && cfg.Clickhouse.DSN == "" {
		return errors.New("no database configured: set postgres.dsn or clickhouse.dsn")
	}

	if cfg.Postgres.DSN != "" {
		pool, err := pgstore.NewPool(ctx, cfg.Postgres.DSN, cfg.Postgres.MaxConns)
		if err != nil {
			return fmt.Errorf("connect postgres: %w", err)
		}
		defer pool.Close()

		applied, err := migrations.RunPostgresMigrations(ctx, pool)
		if err != nil {
			return err
		}
		logger.Info("postgres migrations applied", "files", applied, "new", len(applied))
	}

	if cfg.Clickhouse.DSN != "" {
		conn, stmts, err := migrations.RunClickhouseMigrations(ctx, cfg.Clickhouse.DSN)
		if err != nil {
			return err
		}
		defer conn.Close()
		logger.Info("clickhouse migrations applied", "statements", stmts)
	}

	fmt.Fprintln(cmd.OutOrStdout(), "Migrations applied")
	return nil
}
