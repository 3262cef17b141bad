package sweep

import (
	"encoding/csv"
	"fmt"
	"io"
	"time"

	"github.com/banshee-data/depth.report/internal/monitoring"
)

// CSVWriter wraps csv.Writer with methods for sweep output. The summary
// file gets one row per occlusion cost; the raw file gets one row per
// image scanline.
type CSVWriter struct {
	Summary *csv.Writer
	Raw     *csv.Writer
}

// NewCSVWriter creates a new CSVWriter with the given summary and raw writers.
func NewCSVWriter(summary, raw io.Writer) *CSVWriter {
	return &CSVWriter{
		Summary: csv.NewWriter(summary),
		Raw:     csv.NewWriter(raw),
	}
}

// WriteHeaders writes the headers to both summary and raw CSV files.
func (c *CSVWriter) WriteHeaders() {
	c.Summary.Write(FormatSummaryHeaders())
	c.Raw.Write(FormatRawHeaders())
}

// WriteRawRows writes one raw row per scanline for a single run.
func (c *CSVWriter) WriteRawRows(occlusionCost float64, rowCosts []float64, timestamp time.Time) {
	ts := timestamp.Format(time.RFC3339Nano)
	for y, cost := range rowCosts {
		c.Raw.Write([]string{
			fmt.Sprintf("%.6f", occlusionCost),
			fmt.Sprintf("%d", y),
			fmt.Sprintf("%.6f", cost),
			ts,
		})
	}
	c.Raw.Flush()
}

// WriteSummary computes and writes one summary row for a run.
func (c *CSVWriter) WriteSummary(result RunResult) {
	if len(result.RowCosts) == 0 {
		monitoring.Logf("[sweep] WARNING: no row costs to summarise for occlusion=%.4f", result.OcclusionCost)
		return
	}

	mean, std := MeanStddev(result.RowCosts)

	c.Summary.Write([]string{
		fmt.Sprintf("%.6f", result.OcclusionCost),
		fmt.Sprintf("%.6f", mean),
		fmt.Sprintf("%.6f", std),
		fmt.Sprintf("%.6f", result.MatchedFraction),
		fmt.Sprintf("%.2f", result.LeftMapMax),
		fmt.Sprintf("%.2f", result.RightMapMax),
		fmt.Sprintf("%d", result.DurationMs),
	})
	c.Summary.Flush()
}

// Flush flushes both summary and raw writers.
func (c *CSVWriter) Flush() {
	c.Summary.Flush()
	c.Raw.Flush()
}

// FormatSummaryHeaders returns the summary header column names.
func FormatSummaryHeaders() []string {
	return []string{
		"occlusion_cost",
		"row_cost_mean", "row_cost_stddev",
		"matched_fraction",
		"left_map_max", "right_map_max",
		"duration_ms",
	}
}

// FormatRawHeaders returns the raw data header column names.
func FormatRawHeaders() []string {
	return []string{"occlusion_cost", "row", "row_cost", "timestamp"}
}
