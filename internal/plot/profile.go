// Package plot renders diagnostic PNGs for a matcher run: the per-row
// alignment cost profile and disparity cross-sections of selected rows.
package plot

import (
	"fmt"
	"image/color"
	"os"
	"path/filepath"
	"time"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"

	"github.com/banshee-data/depth.report/internal/stereo"
)

// ProfilePlotter writes run diagnostics into a single output directory.
type ProfilePlotter struct {
	outputDir string
}

// NewProfilePlotter creates the output directory and returns a plotter
// writing into it.
func NewProfilePlotter(outputDir string) (*ProfilePlotter, error) {
	if err := os.MkdirAll(outputDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create output dir: %w", err)
	}
	return &ProfilePlotter{outputDir: outputDir}, nil
}

// OutputDir returns the directory plots are written to.
func (pp *ProfilePlotter) OutputDir() string {
	return pp.outputDir
}

// Generate renders all diagnostics for a run. rows selects the scanlines
// to cross-section; rows outside the image are skipped. Returns the
// number of plot files written.
func (pp *ProfilePlotter) Generate(res *stereo.Result, rows []int) (int, error) {
	count := 0

	if err := pp.rowCostPlot(res.RowCosts); err != nil {
		return count, err
	}
	count++

	for _, side := range []struct {
		name string
		m    *stereo.Map
	}{
		{"left", res.Left},
		{"right", res.Right},
	} {
		wrote, err := pp.crossSectionPlot(side.name, side.m, rows)
		if err != nil {
			return count, err
		}
		if wrote {
			count++
		}
	}

	return count, nil
}

// rowCostPlot draws the optimal alignment cost of every scanline.
func (pp *ProfilePlotter) rowCostPlot(rowCosts []float64) error {
	p := plot.New()
	p.Title.Text = "Scanline Alignment Cost"
	p.X.Label.Text = "Row"
	p.Y.Label.Text = "Path Cost"

	pts := make(plotter.XYs, len(rowCosts))
	for y, c := range rowCosts {
		pts[y] = plotter.XY{X: float64(y), Y: c}
	}

	line, err := plotter.NewLine(pts)
	if err != nil {
		return err
	}
	line.Width = vg.Points(1)
	p.Add(line)

	file := filepath.Join(pp.outputDir, "row_costs.png")
	if err := p.Save(14*vg.Inch, 6*vg.Inch, file); err != nil {
		return fmt.Errorf("save row cost plot: %w", err)
	}
	return nil
}

// crossSectionPlot draws the normalized disparity of selected rows
// across the image width. Returns false if no requested row was valid.
func (pp *ProfilePlotter) crossSectionPlot(side string, m *stereo.Map, rows []int) (bool, error) {
	valid := make([]int, 0, len(rows))
	for _, y := range rows {
		if y >= 0 && y < m.H {
			valid = append(valid, y)
		}
	}
	if len(valid) == 0 {
		return false, nil
	}

	p := plot.New()
	p.Title.Text = fmt.Sprintf("Disparity Cross-Sections (%s)", side)
	p.X.Label.Text = "Column"
	p.Y.Label.Text = "Disparity (normalized)"

	colors := generateColors(len(valid))
	for i, y := range valid {
		pts := make(plotter.XYs, m.W)
		for x := 0; x < m.W; x++ {
			pts[x] = plotter.XY{X: float64(x), Y: m.Vals[m.Idx(x, y)]}
		}

		line, err := plotter.NewLine(pts)
		if err != nil {
			return false, err
		}
		line.Color = colors[i]
		line.Width = vg.Points(1)
		p.Add(line)
		p.Legend.Add(fmt.Sprintf("row %d", y), line)
	}

	p.Legend.Top = true
	p.Legend.Left = false
	p.Legend.XOffs = -10
	p.Legend.YOffs = -10

	file := filepath.Join(pp.outputDir, fmt.Sprintf("disparity_rows_%s.png", side))
	if err := p.Save(14*vg.Inch, 6*vg.Inch, file); err != nil {
		return false, fmt.Errorf("save cross-section plot: %w", err)
	}
	return true, nil
}

// generateColors creates a palette of distinct colors for row lines
func generateColors(n int) []color.Color {
	if n <= 0 {
		return nil
	}

	colors := make([]color.Color, n)
	for i := 0; i < n; i++ {
		hue := float64(i) / float64(n)
		r, g, b := hslToRGB(hue, 0.7, 0.5)
		colors[i] = color.RGBA{R: r, G: g, B: b, A: 255}
	}
	return colors
}

// hslToRGB converts HSL to RGB (0-255 range)
func hslToRGB(h, s, l float64) (r, g, b uint8) {
	var rf, gf, bf float64

	if s == 0 {
		rf, gf, bf = l, l, l
	} else {
		var q float64
		if l < 0.5 {
			q = l * (1 + s)
		} else {
			q = l + s - l*s
		}
		p := 2*l - q
		rf = hueToRGB(p, q, h+1.0/3.0)
		gf = hueToRGB(p, q, h)
		bf = hueToRGB(p, q, h-1.0/3.0)
	}

	return uint8(rf * 255), uint8(gf * 255), uint8(bf * 255)
}

func hueToRGB(p, q, t float64) float64 {
	if t < 0 {
		t += 1
	}
	if t > 1 {
		t -= 1
	}
	if t < 1.0/6.0 {
		return p + (q-p)*6*t
	}
	if t < 1.0/2.0 {
		return q
	}
	if t < 2.0/3.0 {
		return p + (q-p)*(2.0/3.0-t)*6
	}
	return p
}

// FormatTimestamp generates a timestamp string for directory naming.
func FormatTimestamp(t time.Time) string {
	return t.Format("20060102_150405")
}

// MakePlotOutputDir builds a timestamped plot directory path under
// baseDir, named after the left input image.
func MakePlotOutputDir(baseDir, leftImage string) string {
	ts := FormatTimestamp(time.Now())
	if leftImage != "" {
		base := filepath.Base(leftImage)
		ext := filepath.Ext(base)
		name := base[:len(base)-len(ext)]
		return filepath.Join(baseDir, name, ts)
	}
	return filepath.Join(baseDir, "run_"+ts)
}
