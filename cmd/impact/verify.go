package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"policy-impact-lab/internal/impact"
	"policy-impact-lab/internal/pipeline"
	"policy-impact-lab/internal/reporting"
	chstore "policy-impact-lab/internal/storage/clickhouse"
	"policy-impact-lab/internal/verification"
)

var verifyProvider string

var verifyCmd = &cobra.Command{
	Use:   "verify",
	Short: "Recompute the report and compare it with the stored chart rows",
	Long: `Recompute the impact tables from the configured provider and compare the
resulting chart rows with the rows stored in ClickHouse for the same report id.
No files are written. Exits non-zero when any row diverges.`,
	Args: cobra.NoArgs,
	RunE: runVerify,
}

func init() {
	verifyCmd.Flags().StringVar(&verifyProvider, "provider", "", "Provider kind: static, store, rpc, ws (overrides config)")
}

func runVerify(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	if verifyProvider != "" {
		cfg.Provider.Kind = verifyProvider
	}
	if err := cfg.Validate(); err != nil {
		return err
	}
	if cfg.Clickhouse.DSN == "" {
		return fmt.Errorf("verify requires a ClickHouse DSN (CLICKHOUSE_DSN)")
	}

	p, closeProvider, err := buildProvider(ctx, cfg)
	if err != nil {
		return err
	}
	defer closeProvider()

	conn, err := chstore.NewConn(ctx, cfg.Clickhouse.DSN)
	if err != nil {
		return fmt.Errorf("connect clickhouse: %w", err)
	}
	defer conn.Close()

	agg := impact.NewAggregator(p, impact.WithLogger(logger))
	pl := pipeline.NewImpactPipeline(agg, reporting.NewGenerator(cfg.Dataset, cfg.Provider.Kind), cfg.Output.Dir).
		WithLogger(logger)
	report, rows, err := pl.Compute(ctx)
	if err != nil {
		return err
	}

	result, err := verification.NewVerifier(chstore.NewChartRowStore(conn)).VerifyReport(ctx, report.ReportID, rows)
	if err != nil {
		return fmt.Errorf("verify report %s: %w", report.ReportID, err)
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Report %s: %d/%d stored rows match\n", result.ReportID, result.MatchedRows, result.StoredRows)
	for _, d := range result.Divergences {
		fmt.Fprintf(out, "  %s %s: stored=%v recomputed=%v\n", d.Key, d.Field, d.Expected, d.Actual)
	}
	if !result.Match() {
		return fmt.Errorf("%d divergences", len(result.Divergences))
	}
	return nil
}
