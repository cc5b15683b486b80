package main

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/bcaengine/bcaengine/internal/ingestion"
	"github.com/bcaengine/bcaengine/pkg/surface"
)

func newRunCmd() *cobra.Command {
	var opts runOpts

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run the full benefit-cost pipeline over a directory of input tables",
		Long: `Uploads the input tables found in --inputs to the configured storage,
runs the summary and cohort reports, stores the output tables and records
the run in the run log.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runRun(cmd, opts)
		},
	}

	cmd.Flags().StringVar(&opts.inputs, "inputs", "", "Directory holding the input CSV tables (required)")
	cmd.Flags().StringVar(&opts.baseline, "baseline", "", "Baseline scenario name (overrides config)")
	cmd.Flags().IntVar(&opts.discountYear, "discount-year", 0, "Year values are discounted to (overrides config)")
	cmd.Flags().StringVar(&opts.runsDir, "runs-dir", "", "Local storage directory (overrides config)")
	cmd.Flags().StringVar(&opts.runLog, "runlog", "", "SQLite run log path (overrides config)")
	cmd.Flags().StringVar(&opts.outputFmt, "output", "text", "Output format: text, markdown or json")
	_ = cmd.MarkFlagRequired("inputs")

	return cmd
}

type runOpts struct {
	inputs       string
	baseline     string
	discountYear int
	runsDir      string
	runLog       string
	outputFmt    string
}

func runRun(cmd *cobra.Command, opts runOpts) error {
	cfg, log, err := setup(cmd)
	if err != nil {
		return err
	}
	renderer, err := surface.ForFormat(opts.outputFmt)
	if err != nil {
		return err
	}
	if opts.runsDir != "" {
		cfg.Storage.Backend = "local"
		cfg.Storage.LocalDir = opts.runsDir
	}
	if opts.runLog != "" {
		cfg.RunLog.Driver = "sqlite3"
		cfg.RunLog.DSN = opts.runLog
	}

	ctx := cmd.Context()
	storage, err := ingestion.NewStorage(ctx, cfg.Storage)
	if err != nil {
		return err
	}
	runs, err := openRunLog(cfg)
	if err != nil {
		return err
	}
	defer runs.Close()

	svc := ingestion.NewService(storage, runs, cfg.Options(), log)
	runID := ingestion.NewRunID()

	uploaded, err := svc.UploadInputs(ctx, runID, opts.inputs)
	if err != nil {
		return err
	}
	log.Info().Str("run_id", runID).Strs("tables", uploaded).Msg("inputs uploaded")

	res, err := svc.Process(ctx, ingestion.RunRequest{
		RunID:        runID,
		Baseline:     opts.baseline,
		DiscountYear: opts.discountYear,
	})
	if err != nil {
		return fmt.Errorf("run %s: %w", runID, err)
	}

	if err := renderer.Render(cmd.OutOrStdout(), res); err != nil {
		return err
	}
	printLocation(cmd.ErrOrStderr(), storage, runID)
	return nil
}

func printLocation(w io.Writer, storage ingestion.StorageClient, runID string) {
	if local, ok := storage.(*ingestion.LocalStorage); ok {
		if pattern, err := local.Path(runID, ingestion.KindOutputs, "*"); err == nil {
			fmt.Fprintf(w, "\nRun %s outputs: %s\n", runID, pattern)
			return
		}
	}
	fmt.Fprintf(w, "\nRun %s stored.\n", runID)
}
