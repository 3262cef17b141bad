package sweep

import (
	"context"
	"fmt"
	"image"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/banshee-data/depth.report/internal/depthdb"
	"github.com/banshee-data/depth.report/internal/imgio"
	"github.com/banshee-data/depth.report/internal/monitoring"
	"github.com/banshee-data/depth.report/internal/stereo"
)

// SweepStatus represents the current state of a sweep run
type SweepStatus string

const (
	SweepStatusIdle     SweepStatus = "idle"
	SweepStatusRunning  SweepStatus = "running"
	SweepStatusComplete SweepStatus = "complete"
	SweepStatusError    SweepStatus = "error"
)

// SweepRequest defines the parameters for starting a sweep.
type SweepRequest struct {
	LeftImage  string `json:"left_image"`
	RightImage string `json:"right_image"`

	// Explicit occlusion cost values; if empty, generated from the range.
	OcclusionValues []float64 `json:"occlusion_values,omitempty"`
	OcclusionStart  float64   `json:"occlusion_start,omitempty"`
	OcclusionEnd    float64   `json:"occlusion_end,omitempty"`
	OcclusionStep   float64   `json:"occlusion_step,omitempty"`

	// Fixed matcher parameters shared by every run.
	Variance        float64 `json:"variance,omitempty"`
	DisparityGain   float64 `json:"disparity_gain,omitempty"`
	DisparityOffset float64 `json:"disparity_offset,omitempty"`
	RowWorkers      int     `json:"row_workers,omitempty"`

	// OutDir receives the disparity map PNGs; empty disables image output.
	OutDir string `json:"out_dir,omitempty"`
}

// RunResult holds the summary result for one occlusion cost.
type RunResult struct {
	RunID           string    `json:"run_id"`
	OcclusionCost   float64   `json:"occlusion_cost"`
	RowCosts        []float64 `json:"row_costs,omitempty"`
	RowCostMean     float64   `json:"row_cost_mean"`
	RowCostStddev   float64   `json:"row_cost_stddev"`
	MatchedFraction float64   `json:"matched_fraction"`
	LeftMapMax      float64   `json:"left_map_max"`
	RightMapMax     float64   `json:"right_map_max"`
	DurationMs      int64     `json:"duration_ms"`
	LeftOutput      string    `json:"left_output,omitempty"`
	RightOutput     string    `json:"right_output,omitempty"`
}

// SweepState holds the current state and results of a sweep
type SweepState struct {
	Status        SweepStatus   `json:"status"`
	SweepID       string        `json:"sweep_id,omitempty"`
	StartedAt     *time.Time    `json:"started_at,omitempty"`
	CompletedAt   *time.Time    `json:"completed_at,omitempty"`
	TotalRuns     int           `json:"total_runs"`
	CompletedRuns int           `json:"completed_runs"`
	Results       []RunResult   `json:"results"`
	Error         string        `json:"error,omitempty"`
	Warnings      []string      `json:"warnings,omitempty"`
	Request       *SweepRequest `json:"request,omitempty"`
}

// Runner orchestrates occlusion cost sweeps. Runs execute sequentially;
// the matcher parallelizes internally across rows.
type Runner struct {
	store *depthdb.RunStore
	csv   *CSVWriter

	mu     sync.RWMutex
	state  SweepState
	cancel context.CancelFunc
	done   chan struct{}
}

// NewRunner creates a new sweep runner. Both store and csv may be nil to
// disable the corresponding output.
func NewRunner(store *depthdb.RunStore, csv *CSVWriter) *Runner {
	return &Runner{
		store: store,
		csv:   csv,
		state: SweepState{Status: SweepStatusIdle},
	}
}

// addWarning appends a warning message to the sweep state.
func (r *Runner) addWarning(msg string) {
	r.mu.Lock()
	r.state.Warnings = append(r.state.Warnings, msg)
	r.mu.Unlock()
}

// GetSweepState returns a copy of the current sweep state.
func (r *Runner) GetSweepState() SweepState {
	r.mu.RLock()
	defer r.mu.RUnlock()
	state := r.state
	results := make([]RunResult, len(r.state.Results))
	copy(results, r.state.Results)
	state.Results = results
	return state
}

// Start begins a new sweep in a background goroutine. Use Wait to block
// until it finishes, Stop to cancel it early.
func (r *Runner) Start(ctx context.Context, req SweepRequest) error {
	if req.LeftImage == "" || req.RightImage == "" {
		return fmt.Errorf("both left and right images are required")
	}

	values := req.OcclusionValues
	if len(values) == 0 && req.OcclusionStep > 0 {
		values = GenerateRange(req.OcclusionStart, req.OcclusionEnd, req.OcclusionStep)
	}
	if len(values) == 0 {
		// Default sweep covers the useful range for 8-bit inputs.
		values = GenerateRange(0.5, 5.0, 0.25)
	}
	for _, v := range values {
		if v <= 0 {
			return fmt.Errorf("occlusion cost values must be positive, got %f", v)
		}
	}

	if req.Variance <= 0 {
		req.Variance = stereo.DefaultParams().Variance
	}
	if req.DisparityGain == 0 {
		req.DisparityGain = stereo.DefaultParams().DisparityGain
	}
	if req.DisparityOffset == 0 {
		req.DisparityOffset = stereo.DefaultParams().DisparityOffset
	}

	r.mu.Lock()
	if r.state.Status == SweepStatusRunning {
		r.mu.Unlock()
		return fmt.Errorf("sweep already in progress")
	}

	now := time.Now()
	r.state = SweepState{
		Status:    SweepStatusRunning,
		SweepID:   uuid.NewString(),
		StartedAt: &now,
		TotalRuns: len(values),
		Results:   make([]RunResult, 0, len(values)),
		Request:   &req,
	}

	sweepCtx, cancel := context.WithCancel(ctx)
	r.cancel = cancel
	r.done = make(chan struct{})
	r.mu.Unlock()

	go r.run(sweepCtx, req, values)

	return nil
}

// Stop cancels a running sweep
func (r *Runner) Stop() {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.cancel != nil {
		r.cancel()
		r.cancel = nil
	}
}

// Wait blocks until the current sweep finishes and returns its final state.
func (r *Runner) Wait() SweepState {
	r.mu.RLock()
	done := r.done
	r.mu.RUnlock()
	if done != nil {
		<-done
	}
	return r.GetSweepState()
}

// run executes the sweep in a background goroutine
func (r *Runner) run(ctx context.Context, req SweepRequest, values []float64) {
	defer func() {
		r.mu.Lock()
		done := r.done
		r.done = nil
		r.mu.Unlock()
		if done != nil {
			close(done)
		}
	}()

	left, err := imgio.LoadGray(req.LeftImage)
	if err != nil {
		r.fail(fmt.Sprintf("load left image: %v", err))
		return
	}
	right, err := imgio.LoadGray(req.RightImage)
	if err != nil {
		r.fail(fmt.Sprintf("load right image: %v", err))
		return
	}

	if r.csv != nil {
		r.csv.WriteHeaders()
	}

	r.mu.RLock()
	sweepID := r.state.SweepID
	totalRuns := r.state.TotalRuns
	r.mu.RUnlock()

	for runNum, occ := range values {
		select {
		case <-ctx.Done():
			r.fail(fmt.Sprintf("sweep stopped at run %d/%d: %v", runNum, totalRuns, ctx.Err()))
			return
		default:
		}

		monitoring.Logf("[sweep] Run %d/%d: occlusion=%.4f", runNum+1, totalRuns, occ)

		result, err := r.runOne(ctx, sweepID, req, occ, left, right)
		if err != nil {
			monitoring.Logf("[sweep] ERROR: run failed for occlusion=%.4f: %v", occ, err)
			r.addWarning(fmt.Sprintf("run %d (occlusion=%.4f) failed: %v", runNum+1, occ, err))
			continue
		}

		if r.csv != nil {
			r.csv.WriteRawRows(occ, result.RowCosts, time.Now())
			r.csv.WriteSummary(result)
		}

		r.mu.Lock()
		r.state.Results = append(r.state.Results, result)
		r.state.CompletedRuns = runNum + 1
		r.mu.Unlock()
	}

	r.mu.Lock()
	r.state.Status = SweepStatusComplete
	now := time.Now()
	r.state.CompletedAt = &now
	r.mu.Unlock()
	monitoring.Logf("[sweep] Sweep complete: %d occlusion values evaluated", len(values))
}

// runOne executes the matcher at a single occlusion cost and records the
// run, its outputs and its metrics.
func (r *Runner) runOne(ctx context.Context, sweepID string, req SweepRequest, occ float64, left, right *image.Gray) (RunResult, error) {
	params := stereo.Params{
		OcclusionCost:   occ,
		Variance:        req.Variance,
		DisparityGain:   req.DisparityGain,
		DisparityOffset: req.DisparityOffset,
		RowWorkers:      req.RowWorkers,
	}
	estimator, err := stereo.NewEstimator(params)
	if err != nil {
		return RunResult{}, err
	}

	runID := uuid.NewString()
	startedAt := time.Now()
	record := depthdb.RunRecord{
		RunID:         runID,
		SweepID:       sweepID,
		LeftImage:     req.LeftImage,
		RightImage:    req.RightImage,
		OcclusionCost: occ,
		Variance:      req.Variance,
		Width:         left.Rect.Dx(),
		Height:        left.Rect.Dy(),
		RowWorkers:    req.RowWorkers,
		StartedAt:     startedAt,
	}
	if r.store != nil {
		if err := r.store.InsertRun(record); err != nil {
			r.addWarning(fmt.Sprintf("persist run start %s: %v", runID, err))
		}
	}

	res, err := estimator.Compute(ctx, left, right)
	if err != nil {
		if r.store != nil {
			if dbErr := r.store.CompleteRun(runID, record, time.Now(), err.Error()); dbErr != nil {
				r.addWarning(fmt.Sprintf("persist run failure %s: %v", runID, dbErr))
			}
		}
		return RunResult{}, err
	}

	result := RunResult{
		RunID:           runID,
		OcclusionCost:   occ,
		RowCosts:        res.RowCosts,
		MatchedFraction: res.MatchedFraction(),
		LeftMapMax:      res.LeftMax,
		RightMapMax:     res.RightMax,
		DurationMs:      res.Duration.Milliseconds(),
	}
	result.RowCostMean, result.RowCostStddev = MeanStddev(res.RowCosts)

	if res.LeftMax == 0 && res.RightMax == 0 {
		monitoring.Logf("[sweep] WARNING: degenerate maps at occlusion=%.4f (no matched pairs)", occ)
		r.addWarning(fmt.Sprintf("occlusion=%.4f produced all-zero disparity maps", occ))
	}

	if req.OutDir != "" {
		result.LeftOutput = filepath.Join(req.OutDir, fmt.Sprintf("displeft%.2f.png", occ))
		result.RightOutput = filepath.Join(req.OutDir, fmt.Sprintf("dispright%.2f.png", occ))
		if err := imgio.SaveGrayPNG(result.LeftOutput, res.Left.Gray()); err != nil {
			return RunResult{}, fmt.Errorf("save left map: %w", err)
		}
		if err := imgio.SaveGrayPNG(result.RightOutput, res.Right.Gray()); err != nil {
			return RunResult{}, fmt.Errorf("save right map: %w", err)
		}
	}

	if r.store != nil {
		record.MeanRowCost = result.RowCostMean
		record.MatchedFraction = result.MatchedFraction
		record.LeftMapMax = result.LeftMapMax
		record.RightMapMax = result.RightMapMax
		record.DurationMs = result.DurationMs
		record.LeftOutput = result.LeftOutput
		record.RightOutput = result.RightOutput
		if err := r.store.CompleteRun(runID, record, time.Now(), ""); err != nil {
			r.addWarning(fmt.Sprintf("persist run completion %s: %v", runID, err))
		}
	}

	return result, nil
}

// fail marks the sweep as errored.
func (r *Runner) fail(msg string) {
	r.mu.Lock()
	r.state.Status = SweepStatusError
	r.state.Error = msg
	now := time.Now()
	r.state.CompletedAt = &now
	r.mu.Unlock()
}
