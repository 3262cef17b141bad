package stereo

import (
	"context"
	"errors"
	"image"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// grayFromRows builds a test image from explicit pixel rows.
func grayFromRows(t *testing.T, rows [][]uint8) *image.Gray {
	t.Helper()
	h := len(rows)
	w := len(rows[0])
	img := image.NewGray(image.Rect(0, 0, w, h))
	for y, row := range rows {
		require.Len(t, row, w, "ragged test image")
		copy(img.Pix[y*img.Stride:], row)
	}
	return img
}

func uniformGray(w, h int, v uint8) *image.Gray {
	img := image.NewGray(image.Rect(0, 0, w, h))
	for i := range img.Pix {
		img.Pix[i] = v
	}
	return img
}

func TestComputeRejectsShapeMismatch(t *testing.T) {
	e, err := NewEstimator(DefaultParams())
	require.NoError(t, err)

	_, err = e.Compute(context.Background(), uniformGray(4, 4, 0), uniformGray(4, 5, 0))
	var shape *ShapeMismatchError
	require.ErrorAs(t, err, &shape)
	assert.Equal(t, 4, shape.LeftH)
	assert.Equal(t, 5, shape.RightH)
}

func TestComputeConstantPair(t *testing.T) {
	// Identical constant images: every pixel matches its counterpart for
	// free, so occlusion is never favorable. Disparity is 0 everywhere,
	// encoded as a uniform 128, and the divide-by-max rescale lifts the
	// whole map to 255.
	e, err := NewEstimator(Params{OcclusionCost: 3, Variance: 16, DisparityGain: 10, DisparityOffset: 128})
	require.NoError(t, err)

	res, err := e.Compute(context.Background(), uniformGray(6, 4, 77), uniformGray(6, 4, 77))
	require.NoError(t, err)

	assert.Equal(t, int64(6*4), res.MatchedPairs)
	assert.Equal(t, 1.0, res.MatchedFraction())
	assert.Equal(t, 128.0, res.LeftMax)
	assert.Equal(t, 128.0, res.RightMax)
	for i := range res.Left.Vals {
		assert.Equal(t, 255.0, res.Left.Vals[i], "left[%d]", i)
		assert.Equal(t, 255.0, res.Right.Vals[i], "right[%d]", i)
	}
	for _, c := range res.RowCosts {
		assert.Equal(t, 0.0, c)
	}
}

// shiftedRamp is a pair whose unique optimal alignment matches each left
// pixel k against right pixel k+1 for free, occluding the last left
// pixel and the first right pixel. No competing path ties it: every
// other alignment pays non-zero match costs on top of its occlusions.
var shiftedRampLeft = []uint8{30, 90, 150, 210, 255}
var shiftedRampRight = []uint8{0, 30, 90, 150, 210}

func TestComputeShiftedRamp(t *testing.T) {
	e, err := NewEstimator(Params{OcclusionCost: 10, Variance: 16, DisparityGain: 10, DisparityOffset: 128})
	require.NoError(t, err)

	left := grayFromRows(t, [][]uint8{shiftedRampLeft, shiftedRampLeft})
	right := grayFromRows(t, [][]uint8{shiftedRampRight, shiftedRampRight})

	res, err := e.Compute(context.Background(), left, right)
	require.NoError(t, err)

	// Four matches per row, each with |i-j| = 1: encoded 138, rescaled
	// to 255. The occluded left tail and right head stay at zero.
	wantLeft := []float64{255, 255, 255, 255, 0}
	wantRight := []float64{0, 255, 255, 255, 255}
	for y := 0; y < 2; y++ {
		assert.Equal(t, wantLeft, res.Left.Vals[y*5:(y+1)*5], "left row %d", y)
		assert.Equal(t, wantRight, res.Right.Vals[y*5:(y+1)*5], "right row %d", y)
	}
	assert.Equal(t, int64(8), res.MatchedPairs)
	for _, c := range res.RowCosts {
		assert.Equal(t, 20.0, c) // two occlusions, all matches free
	}
}

func TestComputeSwapSymmetry(t *testing.T) {
	e, err := NewEstimator(Params{OcclusionCost: 10, Variance: 16, DisparityGain: 10, DisparityOffset: 128})
	require.NoError(t, err)

	left := grayFromRows(t, [][]uint8{shiftedRampLeft})
	right := grayFromRows(t, [][]uint8{shiftedRampRight})

	fwd, err := e.Compute(context.Background(), left, right)
	require.NoError(t, err)
	rev, err := e.Compute(context.Background(), right, left)
	require.NoError(t, err)

	assert.Equal(t, fwd.Left.Vals, rev.Right.Vals)
	assert.Equal(t, fwd.Right.Vals, rev.Left.Vals)
	assert.Equal(t, fwd.RowCosts, rev.RowCosts)
}

func TestComputeWorkerCountInvariance(t *testing.T) {
	rows := [][]uint8{
		{12, 200, 37, 90, 90, 14, 250, 3},
		{80, 160, 240, 10, 90, 170, 250, 0},
		{0, 0, 255, 0, 255, 255, 0, 0},
		{1, 2, 3, 4, 5, 6, 7, 8},
	}
	shifted := make([][]uint8, len(rows))
	for i, r := range rows {
		s := append([]uint8(nil), r[1:]...)
		shifted[i] = append(s, r[0])
	}
	left := grayFromRows(t, rows)
	right := grayFromRows(t, shifted)

	params := Params{OcclusionCost: 2.3, Variance: 16, DisparityGain: 10, DisparityOffset: 128}

	params.RowWorkers = 1
	serial, err := NewEstimator(params)
	require.NoError(t, err)
	want, err := serial.Compute(context.Background(), left, right)
	require.NoError(t, err)

	params.RowWorkers = 4
	parallel, err := NewEstimator(params)
	require.NoError(t, err)
	got, err := parallel.Compute(context.Background(), left, right)
	require.NoError(t, err)

	assert.Equal(t, want.Left.Vals, got.Left.Vals)
	assert.Equal(t, want.Right.Vals, got.Right.Vals)
	assert.Equal(t, want.RowCosts, got.RowCosts)
	assert.Equal(t, want.MatchedPairs, got.MatchedPairs)
}

func TestComputeCancelled(t *testing.T) {
	e, err := NewEstimator(DefaultParams())
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err = e.Compute(ctx, uniformGray(16, 16, 1), uniformGray(16, 16, 1))
	require.Error(t, err)
	assert.True(t, errors.Is(err, context.Canceled))
}

func TestNewEstimatorValidates(t *testing.T) {
	testCases := []struct {
		name   string
		mutate func(*Params)
	}{
		{"zero_occlusion", func(p *Params) { p.OcclusionCost = 0 }},
		{"negative_occlusion", func(p *Params) { p.OcclusionCost = -1 }},
		{"zero_variance", func(p *Params) { p.Variance = 0 }},
		{"negative_gain", func(p *Params) { p.DisparityGain = -1 }},
		{"negative_workers", func(p *Params) { p.RowWorkers = -2 }},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			p := DefaultParams()
			tc.mutate(&p)
			_, err := NewEstimator(p)
			assert.Error(t, err)
		})
	}
}
