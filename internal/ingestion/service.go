package ingestion

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/bcaengine/bcaengine/pkg/bca"
	"github.com/bcaengine/bcaengine/pkg/record"
)

// RunRequest describes what to process. Zero-valued overrides keep the
// service defaults.
type RunRequest struct {
	RunID        string
	Baseline     string
	DiscountYear int
}

// RunLog records run lifecycles. *runlog.Store implements it.
type RunLog interface {
	Create(ctx context.Context, id, baseline string, discountYear int, startedAt time.Time) error
	Complete(ctx context.Context, id, details string, finishedAt time.Time, elapsed time.Duration) error
	Fail(ctx context.Context, id, errMsg string, finishedAt time.Time, elapsed time.Duration) error
}

// Service orchestrates one pipeline run over stored tables.
type Service struct {
	storage StorageClient
	runs    RunLog
	opts    bca.Options
	log     zerolog.Logger
	now     func() time.Time
}

// NewService creates a new ingestion Service. runs may be nil to skip the run log.
func NewService(storage StorageClient, runs RunLog, opts bca.Options, log zerolog.Logger) *Service {
	return &Service{
		storage: storage,
		runs:    runs,
		opts:    opts,
		log:     log,
		now:     time.Now,
	}
}

// NewRunID returns a fresh run identifier.
func NewRunID() string {
	return uuid.NewString()
}

// UploadInputs copies every known input table found as <name>.csv in dir to
// the run's inputs. It returns the names uploaded.
func (s *Service) UploadInputs(ctx context.Context, runID, dir string) ([]string, error) {
	if err := ValidateRunID(runID); err != nil {
		return nil, err
	}
	var uploaded []string
	for _, name := range bca.InputTables {
		data, err := os.ReadFile(filepath.Join(dir, name+".csv"))
		if errors.Is(err, os.ErrNotExist) {
			continue
		}
		if err != nil {
			return uploaded, fmt.Errorf("read %s: %w", name, err)
		}
		if err := s.storage.Put(ctx, runID, KindInputs, name, data); err != nil {
			return uploaded, fmt.Errorf("upload %s: %w", name, err)
		}
		uploaded = append(uploaded, name)
	}
	if len(uploaded) == 0 {
		return nil, fmt.Errorf("no input tables found in %s", dir)
	}
	return uploaded, nil
}

// LoadInputs reads the run's input tables. Missing tables are left nil; the
// engine decides which combinations are acceptable.
func (s *Service) LoadInputs(ctx context.Context, runID string) (bca.Inputs, error) {
	var in bca.Inputs
	for _, name := range bca.InputTables {
		data, err := s.storage.Get(ctx, runID, KindInputs, name)
		if errors.Is(err, ErrNotFound) {
			continue
		}
		if err != nil {
			return in, fmt.Errorf("load %s: %w", name, err)
		}
		t, err := record.ReadCSV(bytes.NewReader(data))
		if err != nil {
			return in, fmt.Errorf("parse %s: %w", name, err)
		}
		in.Set(name, t)
	}
	return in, nil
}

// StoreOutputs writes every output table of a result.
func (s *Service) StoreOutputs(ctx context.Context, runID string, res *bca.Result) error {
	for _, nt := range res.Tables {
		data, err := record.EncodeCSV(nt.Table)
		if err != nil {
			return fmt.Errorf("encode %s: %w", nt.Name, err)
		}
		if err := s.storage.Put(ctx, runID, KindOutputs, nt.Name, data); err != nil {
			return fmt.Errorf("store %s: %w", nt.Name, err)
		}
	}
	return nil
}

// Process runs the full pipeline for a stored run: load inputs, run the
// engine, store outputs, and record the outcome in the run log.
func (s *Service) Process(ctx context.Context, req RunRequest) (res *bca.Result, err error) {
	if err := ValidateRunID(req.RunID); err != nil {
		return nil, err
	}
	opts := s.opts
	if req.Baseline != "" {
		opts.Baseline = req.Baseline
	}
	if req.DiscountYear != 0 {
		opts.DiscountYear = req.DiscountYear
	}
	log := s.log.With().Str("run_id", req.RunID).Logger()

	start := s.now()
	if s.runs != nil {
		if err := s.runs.Create(ctx, req.RunID, opts.Baseline, opts.DiscountYear, start); err != nil {
			return nil, fmt.Errorf("create run: %w", err)
		}
		// On failure, mark the run as failed
		defer func() {
			if err == nil {
				return
			}
			end := s.now()
			if logErr := s.runs.Fail(context.WithoutCancel(ctx), req.RunID, err.Error(), end, end.Sub(start)); logErr != nil {
				log.Warn().Err(logErr).Msg("failed to record run failure")
			}
		}()
	}

	in, err := s.LoadInputs(ctx, req.RunID)
	if err != nil {
		return nil, err
	}
	log.Info().Str("baseline", opts.Baseline).Msg("inputs loaded")

	res, err = bca.NewEngine(opts, bca.WithLogger(log)).Run(ctx, in)
	if err != nil {
		return nil, fmt.Errorf("run pipeline: %w", err)
	}

	if err = s.StoreOutputs(ctx, req.RunID, res); err != nil {
		return nil, err
	}

	end := s.now()
	if s.runs != nil {
		details, mErr := json.Marshal(res)
		if mErr != nil {
			return nil, fmt.Errorf("marshal run summary: %w", mErr)
		}
		if err = s.runs.Complete(ctx, req.RunID, string(details), end, end.Sub(start)); err != nil {
			return nil, fmt.Errorf("complete run: %w", err)
		}
	}

	log.Info().
		Int("tables", len(res.Tables)).
		Dur("elapsed", end.Sub(start)).
		Msg("run completed")
	return res, nil
}

