// Package stereo implements a per-scanline dynamic-programming stereo
// matcher with an explicit occlusion penalty. Each row of a rectified
// left/right image pair is aligned independently: a cost matrix and a
// parallel direction matrix are filled forward, then traversed backward
// to recover the optimal sequence of pixel matches and occlusions. The
// matched pixel offsets become disparity values, which are written into
// two dense maps and normalized into the displayable 8-bit range once
// all rows have completed.
package stereo

import (
	"fmt"
	"runtime"
)

// Params configures one disparity computation.
type Params struct {
	// OcclusionCost is the penalty for leaving a pixel unmatched. Larger
	// values force longer match runs; smaller values let the path skip
	// freely around intensity differences.
	OcclusionCost float64

	// Variance divides the squared intensity difference when scoring a
	// candidate match. Larger values flatten the cost landscape and make
	// the matcher more tolerant of noise.
	Variance float64

	// DisparityGain and DisparityOffset define the affine contrast
	// stretch applied to each matched offset before it is written to the
	// maps: value = |i-j|*gain + offset. The stretch separates real
	// low-disparity matches from occluded pixels left at zero.
	DisparityGain   float64
	DisparityOffset float64

	// RowWorkers bounds the number of concurrent row workers. Zero means
	// one worker per CPU. Rows are independent, so any worker count
	// produces identical output.
	RowWorkers int
}

// DefaultParams returns the parameter set used when nothing is configured.
func DefaultParams() Params {
	return Params{
		OcclusionCost:   2.0,
		Variance:        16,
		DisparityGain:   10,
		DisparityOffset: 128,
	}
}

// Validate checks that the parameters describe a usable computation.
func (p Params) Validate() error {
	if p.OcclusionCost <= 0 {
		return fmt.Errorf("occlusion cost must be positive, got %g", p.OcclusionCost)
	}
	if p.Variance <= 0 {
		return fmt.Errorf("variance must be positive, got %g", p.Variance)
	}
	if p.DisparityGain < 0 {
		return fmt.Errorf("disparity gain must be non-negative, got %g", p.DisparityGain)
	}
	if p.RowWorkers < 0 {
		return fmt.Errorf("row workers must be non-negative, got %d", p.RowWorkers)
	}
	return nil
}

// workers resolves RowWorkers to a concrete worker count.
func (p Params) workers() int {
	if p.RowWorkers > 0 {
		return p.RowWorkers
	}
	return runtime.NumCPU()
}
