package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, name, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(body), 0644))
	return path
}

func TestLoadTuningConfigPartial(t *testing.T) {
	path := writeConfig(t, "partial.json", `{"occlusion_cost": 3.5}`)

	cfg, err := LoadTuningConfig(path)
	require.NoError(t, err)

	// Overridden field takes the file value; the rest fall back.
	assert.Equal(t, 3.5, cfg.GetOcclusionCost())
	assert.Equal(t, 16.0, cfg.GetVariance())
	assert.Equal(t, 10.0, cfg.GetDisparityGain())
	assert.Equal(t, 128.0, cfg.GetDisparityOffset())
	assert.Equal(t, 0, cfg.GetRowWorkers())
	assert.Nil(t, cfg.GetPlotRows())
}

func TestLoadTuningConfigFull(t *testing.T) {
	path := writeConfig(t, "full.json", `{
		"occlusion_cost": 0.75,
		"variance": 25,
		"disparity_gain": 8,
		"disparity_offset": 100,
		"row_workers": 2,
		"plot_rows": [0, 120, 240]
	}`)

	cfg, err := LoadTuningConfig(path)
	require.NoError(t, err)
	assert.Equal(t, 0.75, cfg.GetOcclusionCost())
	assert.Equal(t, 25.0, cfg.GetVariance())
	assert.Equal(t, 8.0, cfg.GetDisparityGain())
	assert.Equal(t, 100.0, cfg.GetDisparityOffset())
	assert.Equal(t, 2, cfg.GetRowWorkers())
	assert.Equal(t, []int{0, 120, 240}, cfg.GetPlotRows())
}

func TestLoadTuningConfigRejectsNonJSON(t *testing.T) {
	path := writeConfig(t, "tuning.yaml", `occlusion_cost: 1`)
	_, err := LoadTuningConfig(path)
	assert.ErrorContains(t, err, ".json extension")
}

func TestLoadTuningConfigRejectsBadValues(t *testing.T) {
	testCases := []struct {
		name string
		body string
	}{
		{"zero_occlusion", `{"occlusion_cost": 0}`},
		{"negative_variance", `{"variance": -1}`},
		{"negative_gain", `{"disparity_gain": -2}`},
		{"negative_workers", `{"row_workers": -1}`},
		{"negative_plot_row", `{"plot_rows": [4, -1]}`},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			path := writeConfig(t, tc.name+".json", tc.body)
			_, err := LoadTuningConfig(path)
			assert.Error(t, err)
		})
	}
}

func TestParamsFromConfig(t *testing.T) {
	cfg := &TuningConfig{
		OcclusionCost: ptrFloat64(1.25),
		RowWorkers:    ptrInt(3),
	}
	p := cfg.Params()
	assert.Equal(t, 1.25, p.OcclusionCost)
	assert.Equal(t, 16.0, p.Variance)
	assert.Equal(t, 3, p.RowWorkers)
	require.NoError(t, p.Validate())
}

func TestDefaultsFileMatchesBuiltins(t *testing.T) {
	cfg := MustLoadDefaultConfig()
	empty := EmptyTuningConfig()
	assert.Equal(t, empty.GetOcclusionCost(), cfg.GetOcclusionCost())
	assert.Equal(t, empty.GetVariance(), cfg.GetVariance())
	assert.Equal(t, empty.GetDisparityGain(), cfg.GetDisparityGain())
	assert.Equal(t, empty.GetDisparityOffset(), cfg.GetDisparityOffset())
	assert.Equal(t, empty.GetRowWorkers(), cfg.GetRowWorkers())
}
