package idhash

import (
	"testing"

	"github.com/mr-tron/base58"
)

func TestComputeReportID(t *testing.T) {
	tests := []struct {
		name     string
		dataset  string
		provider string
		content  string
	}{
		{"demo fixtures", "demo", "static", ComputeRowsChecksum([]string{"decile|change|0"}, []float64{0.01})},
		{"rpc dataset", "frs_2019", "rpc", ComputeRowsChecksum([]string{"a", "b"}, []float64{1.2e9, -3})},
		{"empty", "", "", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			id := ComputeReportID(tt.dataset, tt.provider, tt.content)

			raw, err := base58.Decode(id)
			if err != nil {
				t.Fatalf("id %q is not base58: %v", id, err)
			}
			if len(raw) != 32 {
				t.Errorf("expected 32 decoded bytes, got %d", len(raw))
			}

			again := ComputeReportID(tt.dataset, tt.provider, tt.content)
			if id != again {
				t.Errorf("not deterministic: %s vs %s", id, again)
			}
		})
	}
}

func TestComputeReportID_Sensitivity(t *testing.T) {
	content := ComputeRowsChecksum([]string{"x"}, []float64{1})
	base := ComputeReportID("demo", "static", content)

	variants := map[string]string{
		"dataset":  ComputeReportID("demo2", "static", content),
		"provider": ComputeReportID("demo", "rpc", content),
		"content":  ComputeReportID("demo", "static", ComputeRowsChecksum([]string{"x"}, []float64{2})),
	}
	for field, id := range variants {
		if id == base {
			t.Errorf("changing %s did not change the id", field)
		}
	}
}

func TestComputeRowsChecksum(t *testing.T) {
	keys := []string{"decile|change|0", "decile|change|1"}

	// same totals, different distribution
	a := ComputeRowsChecksum(keys, []float64{0.5, 0})
	b := ComputeRowsChecksum(keys, []float64{0, 0.5})
	if a == b {
		t.Error("values moved between rows must change the checksum")
	}
	if len(a) != 64 {
		t.Errorf("expected 64 hex chars, got %d", len(a))
	}

	if ComputeRowsChecksum(keys, []float64{0.1 + 0.2, 0}) != ComputeRowsChecksum(keys, []float64{0.3, 0}) {
		t.Error("last-bit float noise should not change the checksum")
	}
	if ComputeRowsChecksum([]string{"a", "b"}, []float64{1, 2}) == ComputeRowsChecksum([]string{"b", "a"}, []float64{1, 2}) {
		t.Error("keys must affect the checksum")
	}
}

func TestComputeVectorChecksum(t *testing.T) {
	a := ComputeVectorChecksum([]float64{1, 2, 3})
	b := ComputeVectorChecksum([]float64{1, 2, 3})
	c := ComputeVectorChecksum([]float64{3, 2, 1})

	if len(a) != 64 {
		t.Errorf("expected 64 hex chars, got %d", len(a))
	}
	if a != b {
		t.Error("checksum not deterministic")
	}
	if a == c {
		t.Error("order must affect checksum")
	}
}
