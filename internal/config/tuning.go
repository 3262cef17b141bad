package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/banshee-data/depth.report/internal/stereo"
)

// DefaultConfigPath is the path to the canonical tuning defaults file.
// This is the single source of truth for all default tuning values.
const DefaultConfigPath = "config/tuning.defaults.json"

// TuningConfig represents the root configuration for matcher tuning
// parameters. All fields are pointers so partial config files only
// override what they mention; the Get* methods supply defaults for the
// rest.
type TuningConfig struct {
	// Matcher params
	OcclusionCost   *float64 `json:"occlusion_cost,omitempty"`
	Variance        *float64 `json:"variance,omitempty"`
	DisparityGain   *float64 `json:"disparity_gain,omitempty"`
	DisparityOffset *float64 `json:"disparity_offset,omitempty"`

	// Execution params
	RowWorkers *int `json:"row_workers,omitempty"` // 0 means one worker per CPU

	// Diagnostic params
	PlotRows *[]int `json:"plot_rows,omitempty"` // rows to cross-section in profile plots
}

// Helper functions to create pointers
func ptrFloat64(v float64) *float64 { return &v }
func ptrInt(v int) *int             { return &v }

// EmptyTuningConfig returns a TuningConfig with all fields set to nil.
// Use LoadTuningConfig to load actual values from the defaults file.
func EmptyTuningConfig() *TuningConfig {
	return &TuningConfig{}
}

// LoadTuningConfig loads a TuningConfig from a JSON file.
// The file is validated to ensure it has a .json extension and is under
// the max file size. Fields omitted from the JSON file retain their
// default values, so partial configs are safe.
func LoadTuningConfig(path string) (*TuningConfig, error) {
	cleanPath := filepath.Clean(path)
	if ext := filepath.Ext(cleanPath); ext != ".json" {
		return nil, fmt.Errorf("config file must have .json extension, got %q", ext)
	}

	// Check file size for safety (max 1MB)
	fileInfo, err := os.Stat(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to stat config file: %w", err)
	}
	const maxFileSize = 1 * 1024 * 1024 // 1MB
	if fileInfo.Size() > maxFileSize {
		return nil, fmt.Errorf("config file too large: %d bytes (max %d)", fileInfo.Size(), maxFileSize)
	}

	data, err := os.ReadFile(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	// Parse JSON into empty config. The Get* methods provide fallback
	// defaults for any fields not specified in the JSON.
	cfg := EmptyTuningConfig()
	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config JSON: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// MustLoadDefaultConfig loads the canonical tuning defaults from DefaultConfigPath.
// It searches for the file in the current directory and common parent directories.
// Panics if the file cannot be loaded, intended for test setup.
func MustLoadDefaultConfig() *TuningConfig {
	candidates := []string{
		DefaultConfigPath,
		"../../" + DefaultConfigPath,    // from internal/config/
		"../../../" + DefaultConfigPath, // deeper packages
	}
	for _, path := range candidates {
		if cfg, err := LoadTuningConfig(path); err == nil {
			return cfg
		}
	}
	panic("cannot find " + DefaultConfigPath + " - run tests from repository root")
}

// Validate checks that the configuration values are valid.
func (c *TuningConfig) Validate() error {
	if c.OcclusionCost != nil && *c.OcclusionCost <= 0 {
		return fmt.Errorf("occlusion_cost must be positive, got %f", *c.OcclusionCost)
	}
	if c.Variance != nil && *c.Variance <= 0 {
		return fmt.Errorf("variance must be positive, got %f", *c.Variance)
	}
	if c.DisparityGain != nil && *c.DisparityGain < 0 {
		return fmt.Errorf("disparity_gain must be non-negative, got %f", *c.DisparityGain)
	}
	if c.DisparityOffset != nil && *c.DisparityOffset < 0 {
		return fmt.Errorf("disparity_offset must be non-negative, got %f", *c.DisparityOffset)
	}
	if c.RowWorkers != nil && *c.RowWorkers < 0 {
		return fmt.Errorf("row_workers must be non-negative, got %d", *c.RowWorkers)
	}
	if c.PlotRows != nil {
		for _, r := range *c.PlotRows {
			if r < 0 {
				return fmt.Errorf("plot_rows entries must be non-negative, got %d", r)
			}
		}
	}
	return nil
}

// GetOcclusionCost returns the occlusion_cost value or the default.
func (c *TuningConfig) GetOcclusionCost() float64 {
	if c.OcclusionCost == nil {
		return 2.0
	}
	return *c.OcclusionCost
}

// GetVariance returns the variance value or the default.
func (c *TuningConfig) GetVariance() float64 {
	if c.Variance == nil {
		return 16.0
	}
	return *c.Variance
}

// GetDisparityGain returns the disparity_gain value or the default.
func (c *TuningConfig) GetDisparityGain() float64 {
	if c.DisparityGain == nil {
		return 10.0
	}
	return *c.DisparityGain
}

// GetDisparityOffset returns the disparity_offset value or the default.
func (c *TuningConfig) GetDisparityOffset() float64 {
	if c.DisparityOffset == nil {
		return 128.0
	}
	return *c.DisparityOffset
}

// GetRowWorkers returns the row_workers value or the default.
func (c *TuningConfig) GetRowWorkers() int {
	if c.RowWorkers == nil {
		return 0 // one worker per CPU
	}
	return *c.RowWorkers
}

// GetPlotRows returns the plot_rows value or the default (empty).
func (c *TuningConfig) GetPlotRows() []int {
	if c.PlotRows == nil {
		return nil
	}
	return *c.PlotRows
}

// Params assembles a matcher parameter set from the configured values.
func (c *TuningConfig) Params() stereo.Params {
	return stereo.Params{
		OcclusionCost:   c.GetOcclusionCost(),
		Variance:        c.GetVariance(),
		DisparityGain:   c.GetDisparityGain(),
		DisparityOffset: c.GetDisparityOffset(),
		RowWorkers:      c.GetRowWorkers(),
	}
}
