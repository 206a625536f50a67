package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"policy-impact-lab/internal/config"
	"policy-impact-lab/internal/domain"
	"policy-impact-lab/internal/pipeline"
)

func TestReportCommand_StaticProvider(t *testing.T) {
	dir := t.TempDir()
	out := new(bytes.Buffer)

	rootCmd.SetOut(out)
	rootCmd.SetArgs([]string{
		"report",
		"--config", filepath.Join(dir, "absent.yaml"),
		"--env-file", filepath.Join(dir, "absent.env"),
		"--log-level", "error",
		"--provider", config.ProviderStatic,
		"--output-dir", dir,
	})
	if err := rootCmd.ExecuteContext(context.Background()); err != nil {
		t.Fatalf("report: %v", err)
	}

	if !strings.Contains(out.String(), "Report ") {
		t.Errorf("unexpected output: %q", out.String())
	}
	if !strings.Contains(out.String(), "warning: baseline/UBI") {
		t.Errorf("missing variable warning not printed: %q", out.String())
	}
	for _, name := range []string{pipeline.ReportFile, pipeline.ChartRowsFile, pipeline.HouseholdCurvesFile} {
		if _, err := os.Stat(filepath.Join(dir, name)); err != nil {
			t.Errorf("%s not written: %v", name, err)
		}
	}
}

func TestBuildProvider_Static(t *testing.T) {
	c := config.DefaultConfig()
	p, release, err := buildProvider(context.Background(), c)
	if err != nil {
		t.Fatalf("buildProvider: %v", err)
	}
	defer release()

	values, err := p.Get(context.Background(), domain.ScenarioBaseline, domain.VarHouseholdNetIncome, domain.AggregationPerson)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if len(values) != pipeline.DemoPeople {
		t.Errorf("expected %d people, got %d", pipeline.DemoPeople, len(values))
	}
}

func TestBuildProvider_Unknown(t *testing.T) {
	c := config.DefaultConfig()
	c.Provider.Kind = "grpc"
	if _, _, err := buildProvider(context.Background(), c); err == nil {
		t.Fatal("expected error for unknown provider kind")
	}
}

func TestVerifyCommand_RequiresClickhouse(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("CLICKHOUSE_DSN", "")

	rootCmd.SetOut(new(bytes.Buffer))
	rootCmd.SetArgs([]string{
		"verify",
		"--config", filepath.Join(dir, "absent.yaml"),
		"--env-file", filepath.Join(dir, "absent.env"),
		"--log-level", "error",
		"--provider", config.ProviderStatic,
	})
	err := rootCmd.ExecuteContext(context.Background())
	if err == nil || !strings.Contains(err.Error(), "ClickHouse DSN") {
		t.Fatalf("expected missing DSN error, got %v", err)
	}
}
