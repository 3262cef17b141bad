package sweep

import (
	"fmt"
	"io"
	"time"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/opts"
)

// WriteReport renders an HTML chart of the sweep results: mean row
// alignment cost and matched fraction against occlusion cost.
func WriteReport(w io.Writer, state SweepState) error {
	if len(state.Results) == 0 {
		return fmt.Errorf("no sweep results to report")
	}

	xAxis := make([]string, len(state.Results))
	costData := make([]opts.LineData, len(state.Results))
	matchData := make([]opts.LineData, len(state.Results))
	for i, res := range state.Results {
		xAxis[i] = fmt.Sprintf("%.2f", res.OcclusionCost)
		costData[i] = opts.LineData{Value: res.RowCostMean}
		matchData[i] = opts.LineData{Value: res.MatchedFraction}
	}

	subtitle := fmt.Sprintf("sweep=%s runs=%d", state.SweepID, len(state.Results))
	if state.CompletedAt != nil {
		subtitle += " completed=" + state.CompletedAt.Format(time.RFC3339)
	}

	line := charts.NewLine()
	line.SetGlobalOptions(
		charts.WithInitializationOpts(opts.Initialization{PageTitle: "Occlusion Cost Sweep", Width: "1100px", Height: "600px"}),
		charts.WithTitleOpts(opts.Title{Title: "Occlusion Cost Sweep", Subtitle: subtitle}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true), Trigger: "axis"}),
		charts.WithXAxisOpts(opts.XAxis{Name: "occlusion cost"}),
		charts.WithYAxisOpts(opts.YAxis{Name: "mean row cost"}),
		charts.WithLegendOpts(opts.Legend{Show: opts.Bool(true)}),
	)
	line.ExtendYAxis(opts.YAxis{Name: "matched fraction", Min: 0, Max: 1})

	line.SetXAxis(xAxis).
		AddSeries("mean row cost", costData).
		AddSeries("matched fraction", matchData, charts.WithLineChartOpts(opts.LineChart{YAxisIndex: 1}))

	return line.Render(w)
}
