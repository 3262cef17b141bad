// Command sweep runs the stereo matcher across a range of occlusion
// costs, writing disparity maps, CSV metrics, an optional HTML report
// and sqlite run records.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/banshee-data/depth.report/internal/depthdb"
	"github.com/banshee-data/depth.report/internal/monitoring"
	"github.com/banshee-data/depth.report/internal/sweep"
	"github.com/banshee-data/depth.report/internal/version"
)

var (
	leftPath    = flag.String("left", "", "Left input image (png/jpeg/bmp/tiff)")
	rightPath   = flag.String("right", "", "Right input image (png/jpeg/bmp/tiff)")
	occlusion   = flag.String("occlusion", "0.5:5:0.25", "Occlusion costs: min:max:step or comma list")
	variance    = flag.Float64("variance", 16, "Match cost variance divisor")
	workers     = flag.Int("workers", 0, "Row workers per run, 0 = one per CPU")
	outDir      = flag.String("out-dir", "sweep-out", "Directory for disparity map PNGs")
	dbPath      = flag.String("db", "", "Optional sqlite database recording each run")
	summaryPath = flag.String("summary", "sweep_summary.csv", "Summary CSV output path")
	rawPath     = flag.String("raw", "sweep_raw.csv", "Raw per-scanline CSV output path")
	reportPath  = flag.String("report", "", "Optional HTML report output path")
	verbose     = flag.Bool("verbose", false, "Enable debug logging")
	showVersion = flag.Bool("version", false, "Print version and exit")
)

func main() {
	flag.Parse()

	if *showVersion {
		fmt.Printf("sweep %s (%s, built %s)\n", version.Version, version.GitSHA, version.BuildTime)
		return
	}

	monitoring.Verbose = *verbose

	if err := run(); err != nil {
		monitoring.Logf("[sweep] ERROR: %v", err)
		os.Exit(1)
	}
}

func run() error {
	if *leftPath == "" || *rightPath == "" {
		return fmt.Errorf("both -left and -right are required")
	}

	values, err := sweep.ParseParamList(*occlusion)
	if err != nil {
		return fmt.Errorf("invalid -occlusion: %w", err)
	}

	summaryFile, err := os.Create(*summaryPath)
	if err != nil {
		return fmt.Errorf("create summary csv: %w", err)
	}
	defer summaryFile.Close()

	rawFile, err := os.Create(*rawPath)
	if err != nil {
		return fmt.Errorf("create raw csv: %w", err)
	}
	defer rawFile.Close()

	var store *depthdb.RunStore
	if *dbPath != "" {
		db, err := depthdb.NewDB(*dbPath)
		if err != nil {
			return err
		}
		defer db.Close()
		store = depthdb.NewRunStore(db)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	runner := sweep.NewRunner(store, sweep.NewCSVWriter(summaryFile, rawFile))
	req := sweep.SweepRequest{
		LeftImage:       *leftPath,
		RightImage:      *rightPath,
		OcclusionValues: values,
		Variance:        *variance,
		RowWorkers:      *workers,
		OutDir:          *outDir,
	}
	if err := runner.Start(ctx, req); err != nil {
		return err
	}

	state := runner.Wait()
	for _, w := range state.Warnings {
		monitoring.Logf("[sweep] WARNING: %s", w)
	}
	if state.Status == sweep.SweepStatusError {
		return fmt.Errorf("%s", state.Error)
	}

	monitoring.Logf("[sweep] %d runs complete; summary in %s", len(state.Results), *summaryPath)

	if *reportPath != "" {
		reportFile, err := os.Create(*reportPath)
		if err != nil {
			return fmt.Errorf("create report: %w", err)
		}
		defer reportFile.Close()
		if err := sweep.WriteReport(reportFile, state); err != nil {
			return err
		}
		monitoring.Logf("[sweep] report written to %s", *reportPath)
	}

	return nil
}
