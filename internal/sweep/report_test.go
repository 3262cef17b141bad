package sweep

import (
	"bytes"
	"testing"
)

func TestWriteReport(t *testing.T) {
	state := SweepState{
		Status:  SweepStatusComplete,
		SweepID: "test-sweep",
		Results: []RunResult{
			{OcclusionCost: 0.5, RowCostMean: 120, MatchedFraction: 0.5},
			{OcclusionCost: 1.0, RowCostMean: 180, MatchedFraction: 0.7},
			{OcclusionCost: 1.5, RowCostMean: 260, MatchedFraction: 0.9},
		},
	}

	var buf bytes.Buffer
	if err := WriteReport(&buf, state); err != nil {
		t.Fatalf("WriteReport: %v", err)
	}

	html := buf.String()
	for _, want := range []string{"Occlusion Cost Sweep", "mean row cost", "matched fraction", "test-sweep"} {
		if !bytes.Contains(buf.Bytes(), []byte(want)) {
			t.Errorf("report missing %q", want)
		}
	}
	if len(html) < 1000 {
		t.Errorf("report suspiciously small: %d bytes", len(html))
	}
}

func TestWriteReportEmpty(t *testing.T) {
	var buf bytes.Buffer
	if err := WriteReport(&buf, SweepState{}); err == nil {
		t.Fatal("expected error for empty results")
	}
}
