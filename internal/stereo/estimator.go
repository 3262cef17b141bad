package stereo

import (
	"context"
	"fmt"
	"image"
	"sync"
	"time"
)

// ShapeMismatchError is returned before any row is processed when the
// left and right images differ in dimensions.
type ShapeMismatchError struct {
	LeftW, LeftH   int
	RightW, RightH int
}

func (e *ShapeMismatchError) Error() string {
	return fmt.Sprintf("stereo: image shapes differ: left %dx%d, right %dx%d",
		e.LeftW, e.LeftH, e.RightW, e.RightH)
}

// Result carries the two finalized disparity maps plus the per-run
// metrics the sweep tooling records.
type Result struct {
	Left  *Map
	Right *Map

	// RowCosts[y] is the optimal alignment cost cost[N][N] for row y.
	RowCosts []float64

	// MatchedPairs counts pixel matches across all rows; the remainder
	// of the image was occluded on one side or the other.
	MatchedPairs int64

	// LeftMax and RightMax are the map maxima before normalization.
	// Zero means the degenerate no-match case.
	LeftMax, RightMax float64

	Duration time.Duration
}

// MatchedFraction returns matched pairs as a fraction of image pixels.
func (r *Result) MatchedFraction() float64 {
	total := r.Left.W * r.Left.H
	if total == 0 {
		return 0
	}
	return float64(r.MatchedPairs) / float64(total)
}

// Estimator computes disparity maps for rectified grayscale pairs. Rows
// are independent, so the estimator runs a bounded pool of row workers,
// each owning one arena and writing only its row's slice of the output
// maps. The same Estimator may be reused across runs but not shared by
// concurrent Compute calls.
type Estimator struct {
	params Params
}

// NewEstimator validates p and returns an estimator using it.
func NewEstimator(p Params) (*Estimator, error) {
	if err := p.Validate(); err != nil {
		return nil, err
	}
	return &Estimator{params: p}, nil
}

// Params returns the parameter set the estimator was built with.
func (e *Estimator) Params() Params { return e.params }

// Compute produces the left and right disparity maps for the pair. Both
// images must be the same shape; that is checked before any work starts.
// The maps are normalized exactly once, after every row worker has
// finished, so no caller ever observes a partially rescaled map.
//
// ctx cancels between rows; an in-flight row always runs to completion
// or fails, never half-writes.
func (e *Estimator) Compute(ctx context.Context, left, right *image.Gray) (*Result, error) {
	start := time.Now()

	lw, lh := left.Rect.Dx(), left.Rect.Dy()
	rw, rh := right.Rect.Dx(), right.Rect.Dy()
	if lw != rw || lh != rh {
		return nil, &ShapeMismatchError{LeftW: lw, LeftH: lh, RightW: rw, RightH: rh}
	}

	res := &Result{
		Left:     NewMap(lw, lh),
		Right:    NewMap(lw, lh),
		RowCosts: make([]float64, lh),
	}

	rows := make(chan int)
	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		firstEr error
		matched int64
	)

	workers := e.params.workers()
	if workers > lh {
		workers = lh
	}
	if workers < 1 {
		workers = 1
	}

	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			arena := newRowArena(lw)
			var rowMatched int64
			failed := false
			for y := range rows {
				// Keep draining after a failure so the feeder never
				// blocks on a channel nobody reads.
				if failed {
					continue
				}
				if err := e.computeRow(arena, y, left, right, res); err != nil {
					mu.Lock()
					if firstEr == nil {
						firstEr = err
					}
					mu.Unlock()
					failed = true
					continue
				}
				rowMatched += arena.lastMatched
			}
			mu.Lock()
			matched += rowMatched
			mu.Unlock()
		}()
	}

feed:
	for y := 0; y < lh; y++ {
		select {
		case rows <- y:
		case <-ctx.Done():
			break feed
		}
	}
	close(rows)
	wg.Wait()

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if firstEr != nil {
		return nil, firstEr
	}

	res.MatchedPairs = matched
	res.LeftMax = res.Left.Max()
	res.RightMax = res.Right.Max()
	res.Left.Normalize()
	res.Right.Normalize()
	res.Duration = time.Since(start)
	return res, nil
}

// computeRow aligns one scanline and writes its disparity values. The
// matched pair (i, j) names left pixel i-1 and right pixel j-1 (the DP
// indices run over prefixes, one past the pixel), so the disparity lands
// on the matched pixel's own column in each map.
func (e *Estimator) computeRow(arena *rowArena, y int, left, right *image.Gray, res *Result) error {
	leftRow := grayRow(left, y)
	rightRow := grayRow(right, y)

	if err := arena.build(y, leftRow, rightRow, e.params); err != nil {
		return err
	}
	res.RowCosts[y] = arena.pathCost()

	arena.lastMatched = 0
	lBase := res.Left.Idx(0, y)
	rBase := res.Right.Idx(0, y)
	return arena.trace(y, func(i, j int) {
		off := i - j
		if off < 0 {
			off = -off
		}
		disparity := float64(off)*e.params.DisparityGain + e.params.DisparityOffset
		res.Left.Vals[lBase+i-1] = disparity
		res.Right.Vals[rBase+j-1] = disparity
		arena.lastMatched++
	})
}

// grayRow returns the y'th row of img as a slice of its pixel buffer.
func grayRow(img *image.Gray, y int) []uint8 {
	start := img.PixOffset(img.Rect.Min.X, img.Rect.Min.Y+y)
	return img.Pix[start : start+img.Rect.Dx()]
}
