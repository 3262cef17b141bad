// Command stereo computes a disparity map pair for one rectified stereo
// image pair and writes the results as PNGs, optionally recording the
// run to sqlite and rendering diagnostic plots.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/google/uuid"

	"github.com/banshee-data/depth.report/internal/config"
	"github.com/banshee-data/depth.report/internal/depthdb"
	"github.com/banshee-data/depth.report/internal/imgio"
	"github.com/banshee-data/depth.report/internal/monitoring"
	"github.com/banshee-data/depth.report/internal/plot"
	"github.com/banshee-data/depth.report/internal/stereo"
	"github.com/banshee-data/depth.report/internal/sweep"
	"github.com/banshee-data/depth.report/internal/version"
)

var (
	leftPath    = flag.String("left", "", "Left input image (png/jpeg/bmp/tiff)")
	rightPath   = flag.String("right", "", "Right input image (png/jpeg/bmp/tiff)")
	occlusion   = flag.Float64("occlusion", 0, "Occlusion cost (overrides config)")
	variance    = flag.Float64("variance", 0, "Match cost variance divisor (overrides config)")
	workers     = flag.Int("workers", -1, "Row workers, 0 = one per CPU (overrides config)")
	outDir      = flag.String("out-dir", ".", "Directory for disparity map PNGs")
	dbPath      = flag.String("db", "", "Optional sqlite database recording the run")
	plotsDir    = flag.String("plots", "", "Optional base directory for diagnostic plots")
	plotRows    = flag.String("plot-rows", "", "Comma-separated rows to cross-section in plots")
	configPath  = flag.String("config", "", "Optional tuning config JSON")
	verbose     = flag.Bool("verbose", false, "Enable debug logging")
	showVersion = flag.Bool("version", false, "Print version and exit")
)

func main() {
	flag.Parse()

	if *showVersion {
		fmt.Printf("stereo %s (%s, built %s)\n", version.Version, version.GitSHA, version.BuildTime)
		return
	}

	monitoring.Verbose = *verbose

	if err := run(); err != nil {
		monitoring.Logf("[stereo] ERROR: %v", err)
		os.Exit(1)
	}
}

func run() error {
	if *leftPath == "" || *rightPath == "" {
		return fmt.Errorf("both -left and -right are required")
	}

	cfg := config.EmptyTuningConfig()
	if *configPath != "" {
		loaded, err := config.LoadTuningConfig(*configPath)
		if err != nil {
			return err
		}
		cfg = loaded
	}

	params := cfg.Params()
	if *occlusion > 0 {
		params.OcclusionCost = *occlusion
	}
	if *variance > 0 {
		params.Variance = *variance
	}
	if *workers >= 0 {
		params.RowWorkers = *workers
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	left, err := imgio.LoadGray(*leftPath)
	if err != nil {
		return err
	}
	right, err := imgio.LoadGray(*rightPath)
	if err != nil {
		return err
	}

	estimator, err := stereo.NewEstimator(params)
	if err != nil {
		return err
	}

	monitoring.Logf("[stereo] matching %dx%d pair: occlusion=%.4f variance=%.1f workers=%d",
		left.Rect.Dx(), left.Rect.Dy(), params.OcclusionCost, params.Variance, params.RowWorkers)

	var store *depthdb.RunStore
	runID := uuid.NewString()
	startedAt := time.Now()
	record := depthdb.RunRecord{
		RunID:         runID,
		LeftImage:     *leftPath,
		RightImage:    *rightPath,
		OcclusionCost: params.OcclusionCost,
		Variance:      params.Variance,
		Width:         left.Rect.Dx(),
		Height:        left.Rect.Dy(),
		RowWorkers:    params.RowWorkers,
		StartedAt:     startedAt,
	}
	if *dbPath != "" {
		db, err := depthdb.NewDB(*dbPath)
		if err != nil {
			return err
		}
		defer db.Close()
		store = depthdb.NewRunStore(db)
		if err := store.InsertRun(record); err != nil {
			return err
		}
	}

	res, err := estimator.Compute(ctx, left, right)
	if err != nil {
		if store != nil {
			if dbErr := store.CompleteRun(runID, record, time.Now(), err.Error()); dbErr != nil {
				monitoring.Logf("[stereo] WARNING: failed to record run error: %v", dbErr)
			}
		}
		return err
	}

	if res.LeftMax == 0 && res.RightMax == 0 {
		monitoring.Logf("[stereo] WARNING: no pixels matched; disparity maps are all zero")
	}

	record.LeftOutput = filepath.Join(*outDir, fmt.Sprintf("displeft%.2f.png", params.OcclusionCost))
	record.RightOutput = filepath.Join(*outDir, fmt.Sprintf("dispright%.2f.png", params.OcclusionCost))
	if err := imgio.SaveGrayPNG(record.LeftOutput, res.Left.Gray()); err != nil {
		return err
	}
	if err := imgio.SaveGrayPNG(record.RightOutput, res.Right.Gray()); err != nil {
		return err
	}

	mean, stddev := sweep.MeanStddev(res.RowCosts)
	monitoring.Logf("[stereo] done in %s: row_cost=%.2f±%.2f matched=%.2f%% wrote %s, %s",
		res.Duration.Round(time.Millisecond), mean, stddev,
		100*res.MatchedFraction(), record.LeftOutput, record.RightOutput)

	if store != nil {
		record.MeanRowCost = mean
		record.MatchedFraction = res.MatchedFraction()
		record.LeftMapMax = res.LeftMax
		record.RightMapMax = res.RightMax
		record.DurationMs = res.Duration.Milliseconds()
		if err := store.CompleteRun(runID, record, time.Now(), ""); err != nil {
			return err
		}
	}

	if *plotsDir != "" {
		rows := cfg.GetPlotRows()
		if *plotRows != "" {
			rows, err = parseRows(*plotRows)
			if err != nil {
				return err
			}
		}
		if len(rows) == 0 {
			// Default to a cross-section through the image middle.
			rows = []int{left.Rect.Dy() / 2}
		}

		pp, err := plot.NewProfilePlotter(plot.MakePlotOutputDir(*plotsDir, *leftPath))
		if err != nil {
			return err
		}
		count, err := pp.Generate(res, rows)
		if err != nil {
			return err
		}
		monitoring.Logf("[stereo] wrote %d plots to %s", count, pp.OutputDir())
	}

	return nil
}

func parseRows(s string) ([]int, error) {
	vals, err := sweep.ParseCSVFloat64s(s)
	if err != nil {
		return nil, fmt.Errorf("invalid -plot-rows: %w", err)
	}
	rows := make([]int, len(vals))
	for i, v := range vals {
		rows[i] = int(v)
	}
	return rows, nil
}
