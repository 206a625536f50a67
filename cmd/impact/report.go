package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"policy-impact-lab/internal/config"
	"policy-impact-lab/internal/impact"
	"policy-impact-lab/internal/observability"
	"policy-impact-lab/internal/pipeline"
	"policy-impact-lab/internal/provider"
	"policy-impact-lab/internal/reporting"
	"policy-impact-lab/internal/storage"
	chstore "policy-impact-lab/internal/storage/clickhouse"
	"policy-impact-lab/internal/storage/memory"
	pgstore "policy-impact-lab/internal/storage/postgres"
)

var (
	reportProvider    string
	reportEndpoint    string
	reportOutputDir   string
	reportNoHousehold bool
)

var reportCmd = &cobra.Command{
	Use:   "report",
	Short: "Compute the impact tables and write the report",
	Long: `Fetch baseline and reform vectors from the configured provider, compute
every impact table and write IMPACT_REPORT.md, the CSV tables and
chart_rows.json into the output directory.

Chart rows are also stored in ClickHouse when a ClickHouse DSN is configured.`,
	Args: cobra.NoArgs,
	RunE: runReport,
}

func init() {
	reportCmd.Flags().StringVar(&reportProvider, "provider", "", "Provider kind: static, store, rpc, ws (overrides config)")
	reportCmd.Flags().StringVar(&reportEndpoint, "endpoint", "", "Engine endpoint for rpc and ws providers (overrides config)")
	reportCmd.Flags().StringVarP(&reportOutputDir, "output-dir", "o", "", "Output directory (overrides config)")
	reportCmd.Flags().BoolVar(&reportNoHousehold, "no-household", false, "Skip the household sweep")
}

func runReport(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	if reportProvider != "" {
		cfg.Provider.Kind = reportProvider
	}
	if reportEndpoint != "" {
		cfg.Provider.Endpoint = reportEndpoint
	}
	if reportOutputDir != "" {
		cfg.Output.Dir = reportOutputDir
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	m := observability.NewMetrics(cfg.Metrics.Namespace)

	p, closeProvider, err := buildProvider(ctx, cfg)
	if err != nil {
		return err
	}
	defer closeProvider()

	agg := impact.NewAggregator(provider.NewInstrumented(p, m), impact.WithLogger(logger))
	gen := reporting.NewGenerator(cfg.Dataset, cfg.Provider.Kind)
	pl := pipeline.NewImpactPipeline(agg, gen, cfg.Output.Dir).
		WithLogger(logger).
		WithMetrics(m)
	if reportNoHousehold {
		pl = pl.WithoutHousehold()
	}

	if cfg.Clickhouse.DSN != "" {
		conn, err := chstore.NewConn(ctx, cfg.Clickhouse.DSN)
		if err != nil {
			return fmt.Errorf("connect clickhouse: %w", err)
		}
		defer conn.Close()
		pl = pl.WithChartStore(chstore.NewChartRowStore(conn))
	} else {
		pl = pl.WithChartStore(memory.NewChartRowStore())
	}

	report, err := pl.Run(ctx)
	if err != nil {
		return err
	}

	if cfg.Metrics.TextfilePath != "" {
		if err := m.WriteToTextfile(cfg.Metrics.TextfilePath); err != nil {
			return err
		}
	}

	fmt.Fprintf(cmd.OutOrStdout(), "Report %s written to %s\n", report.ReportID, cfg.Output.Dir)
	for _, w := range report.DataQuality.MissingVariables {
		fmt.Fprintf(cmd.OutOrStdout(), "  warning: %s\n", w)
	}
	return nil
}

// buildProvider creates the configured provider. The returned func releases
// its resources.
func buildProvider(ctx context.Context, c *config.Config) (provider.Provider, func(), error) {
	noop := func() {}

	switch c.Provider.Kind {
	case config.ProviderStatic:
		p := provider.NewStatic()
		pipeline.LoadStatic(p)
		return p, noop, nil

	case config.ProviderStore:
		pool, err := pgstore.NewPool(ctx, c.Postgres.DSN, c.Postgres.MaxConns)
		if err != nil {
			return nil, nil, fmt.Errorf("connect postgres: %w", err)
		}
		var store storage.VectorStore = pgstore.NewVectorStore(pool)
		return provider.NewStoreProvider(store, c.Dataset), pool.Close, nil

	case config.ProviderRPC:
		return provider.NewRPCClient(c.Provider.Endpoint,
			provider.WithDataset(c.Dataset),
			provider.WithTimeout(c.ProviderTimeout()),
			provider.WithMaxRetries(c.Provider.MaxRetries),
		), noop, nil

	case config.ProviderWS:
		wsCfg := provider.DefaultWSConfig()
		wsCfg.Dataset = c.Dataset
		wsCfg.RequestTimeout = c.ProviderTimeout()
		client, err := provider.NewWSClient(ctx, c.Provider.Endpoint, &wsCfg)
		if err != nil {
			return nil, nil, err
		}
		return client, func() { client.Close() }, nil
	}

	return nil, nil, fmt.Errorf("unknown provider kind %q", c.Provider.Kind)
}
