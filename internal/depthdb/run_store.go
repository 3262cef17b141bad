package depthdb

import (
	"database/sql"
	"fmt"
	"time"
)

// RunRecord represents one matcher execution, either standalone or as a
// member of a parameter sweep.
type RunRecord struct {
	ID              int64      `json:"id"`
	RunID           string     `json:"run_id"`
	SweepID         string     `json:"sweep_id,omitempty"`
	LeftImage       string     `json:"left_image"`
	RightImage      string     `json:"right_image"`
	OcclusionCost   float64    `json:"occlusion_cost"`
	Variance        float64    `json:"variance"`
	Width           int        `json:"width"`
	Height          int        `json:"height"`
	RowWorkers      int        `json:"row_workers"`
	MeanRowCost     float64    `json:"mean_row_cost,omitempty"`
	MatchedFraction float64    `json:"matched_fraction,omitempty"`
	LeftMapMax      float64    `json:"left_map_max,omitempty"`
	RightMapMax     float64    `json:"right_map_max,omitempty"`
	DurationMs      int64      `json:"duration_ms,omitempty"`
	LeftOutput      string     `json:"left_output,omitempty"`
	RightOutput     string     `json:"right_output,omitempty"`
	Error           string     `json:"error,omitempty"`
	StartedAt       time.Time  `json:"started_at"`
	CompletedAt     *time.Time `json:"completed_at,omitempty"`
}

// RunStore provides persistence for matcher runs.
type RunStore struct {
	db *sql.DB
}

// NewRunStore creates a new RunStore.
func NewRunStore(db *DB) *RunStore {
	return &RunStore{db: db.DB}
}

// InsertRun creates a new run record when a run starts.
func (s *RunStore) InsertRun(record RunRecord) error {
	query := `INSERT INTO runs (
		run_id, sweep_id, left_image, right_image,
		occlusion_cost, variance, width, height, row_workers, started_at
	) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

	err := retryOnBusy(func() error {
		_, err := s.db.Exec(query,
			record.RunID,
			nullStr(record.SweepID),
			record.LeftImage,
			record.RightImage,
			record.OcclusionCost,
			record.Variance,
			record.Width,
			record.Height,
			record.RowWorkers,
			record.StartedAt.UTC().Format(time.RFC3339Nano),
		)
		return err
	})
	if err != nil {
		return fmt.Errorf("insert run %s: %w", record.RunID, err)
	}
	return nil
}

// CompleteRun records the outcome of a run. A non-empty errMsg marks the
// run as failed; the metric columns still record whatever was measured.
func (s *RunStore) CompleteRun(runID string, record RunRecord, completedAt time.Time, errMsg string) error {
	query := `UPDATE runs SET
		mean_row_cost = ?, matched_fraction = ?,
		left_map_max = ?, right_map_max = ?, duration_ms = ?,
		left_output = ?, right_output = ?, error = ?, completed_at = ?
	WHERE run_id = ?`

	err := retryOnBusy(func() error {
		res, err := s.db.Exec(query,
			record.MeanRowCost,
			record.MatchedFraction,
			record.LeftMapMax,
			record.RightMapMax,
			record.DurationMs,
			nullStr(record.LeftOutput),
			nullStr(record.RightOutput),
			nullStr(errMsg),
			completedAt.UTC().Format(time.RFC3339Nano),
			runID,
		)
		if err != nil {
			return err
		}
		n, err := res.RowsAffected()
		if err != nil {
			return err
		}
		if n == 0 {
			return sql.ErrNoRows
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("complete run %s: %w", runID, err)
	}
	return nil
}

// GetRun fetches a single run by its run ID.
func (s *RunStore) GetRun(runID string) (*RunRecord, error) {
	query := `SELECT id, run_id, sweep_id, left_image, right_image,
		occlusion_cost, variance, width, height, row_workers,
		mean_row_cost, matched_fraction, left_map_max, right_map_max,
		duration_ms, left_output, right_output, error, started_at, completed_at
	FROM runs WHERE run_id = ?`

	rec, err := scanRun(s.db.QueryRow(query, runID))
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("run %s not found", runID)
	}
	if err != nil {
		return nil, fmt.Errorf("get run %s: %w", runID, err)
	}
	return rec, nil
}

// ListRuns returns recent runs, newest first. A non-empty sweepID limits
// the listing to that sweep's members.
func (s *RunStore) ListRuns(sweepID string, limit int) ([]RunRecord, error) {
	if limit <= 0 {
		limit = 100
	}

	query := `SELECT id, run_id, sweep_id, left_image, right_image,
		occlusion_cost, variance, width, height, row_workers,
		mean_row_cost, matched_fraction, left_map_max, right_map_max,
		duration_ms, left_output, right_output, error, started_at, completed_at
	FROM runs`
	args := []interface{}{}
	if sweepID != "" {
		query += " WHERE sweep_id = ?"
		args = append(args, sweepID)
	}
	query += " ORDER BY started_at DESC, id DESC LIMIT ?"
	args = append(args, limit)

	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("list runs: %w", err)
	}
	defer rows.Close()

	var records []RunRecord
	for rows.Next() {
		rec, err := scanRun(rows)
		if err != nil {
			return nil, fmt.Errorf("list runs: %w", err)
		}
		records = append(records, *rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list runs: %w", err)
	}
	return records, nil
}

// DeleteRun removes a run record.
func (s *RunStore) DeleteRun(runID string) error {
	return retryOnBusy(func() error {
		_, err := s.db.Exec("DELETE FROM runs WHERE run_id = ?", runID)
		return err
	})
}

// scanner covers both *sql.Row and *sql.Rows.
type scanner interface {
	Scan(dest ...interface{}) error
}

func scanRun(row scanner) (*RunRecord, error) {
	var (
		rec         RunRecord
		sweepID     sql.NullString
		meanCost    sql.NullFloat64
		matchedFrac sql.NullFloat64
		leftMax     sql.NullFloat64
		rightMax    sql.NullFloat64
		durationMs  sql.NullInt64
		leftOut     sql.NullString
		rightOut    sql.NullString
		errMsg      sql.NullString
		startedAt   string
		completedAt sql.NullString
	)

	if err := row.Scan(
		&rec.ID, &rec.RunID, &sweepID, &rec.LeftImage, &rec.RightImage,
		&rec.OcclusionCost, &rec.Variance, &rec.Width, &rec.Height, &rec.RowWorkers,
		&meanCost, &matchedFrac, &leftMax, &rightMax,
		&durationMs, &leftOut, &rightOut, &errMsg, &startedAt, &completedAt,
	); err != nil {
		return nil, err
	}

	rec.SweepID = sweepID.String
	rec.MeanRowCost = meanCost.Float64
	rec.MatchedFraction = matchedFrac.Float64
	rec.LeftMapMax = leftMax.Float64
	rec.RightMapMax = rightMax.Float64
	rec.DurationMs = durationMs.Int64
	rec.LeftOutput = leftOut.String
	rec.RightOutput = rightOut.String
	rec.Error = errMsg.String

	t, err := time.Parse(time.RFC3339Nano, startedAt)
	if err != nil {
		return nil, fmt.Errorf("parse started_at %q: %w", startedAt, err)
	}
	rec.StartedAt = t

	if completedAt.Valid {
		t, err := time.Parse(time.RFC3339Nano, completedAt.String)
		if err != nil {
			return nil, fmt.Errorf("parse completed_at %q: %w", completedAt.String, err)
		}
		rec.CompletedAt = &t
	}

	return &rec, nil
}

// nullStr returns nil for empty strings, pointer to string otherwise.
func nullStr(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
