package ingestion

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/bcaengine/bcaengine/pkg/bca"
	"github.com/bcaengine/bcaengine/pkg/social"
)

const sampleDir = "../../testdata/sample"

type fakeRunLog struct {
	created   []string
	completed map[string]string
	failed    map[string]string
}

func newFakeRunLog() *fakeRunLog {
	return &fakeRunLog{completed: map[string]string{}, failed: map[string]string{}}
}

func (f *fakeRunLog) Create(ctx context.Context, id, baseline string, discountYear int, startedAt time.Time) error {
	f.created = append(f.created, id)
	return nil
}

func (f *fakeRunLog) Complete(ctx context.Context, id, details string, finishedAt time.Time, elapsed time.Duration) error {
	f.completed[id] = details
	return nil
}

func (f *fakeRunLog) Fail(ctx context.Context, id, errMsg string, finishedAt time.Time, elapsed time.Duration) error {
	f.failed[id] = errMsg
	return nil
}

func newTestService(t *testing.T, runs RunLog) (*Service, *LocalStorage) {
	t.Helper()
	storage := NewLocalStorage(t.TempDir())
	return NewService(storage, runs, bca.DefaultOptions(), zerolog.Nop()), storage
}

func TestProcess_SampleRun(t *testing.T) {
	runs := newFakeRunLog()
	svc, storage := newTestService(t, runs)
	ctx := context.Background()
	runID := NewRunID()

	uploaded, err := svc.UploadInputs(ctx, runID, sampleDir)
	if err != nil {
		t.Fatalf("UploadInputs: %v", err)
	}
	if len(uploaded) != len(bca.InputTables) {
		t.Fatalf("uploaded %v, want all %d input tables", uploaded, len(bca.InputTables))
	}

	res, err := svc.Process(ctx, RunRequest{RunID: runID})
	if err != nil {
		t.Fatalf("Process: %v", err)
	}
	if len(res.Reports) != 2 {
		t.Fatalf("expected annual and cohort reports, got %d", len(res.Reports))
	}

	for _, name := range []string{
		bca.TableEffectsSummary,
		bca.TableCostsSummary,
		bca.TableCostsSummary + bca.SuffixPresentValues,
		bca.TableCosts + bca.SuffixAnnualized,
		bca.TableCompliance,
	} {
		path, err := storage.Path(runID, KindOutputs, name)
		if err != nil {
			t.Fatalf("path for %s: %v", name, err)
		}
		if _, err := os.Stat(path); err != nil {
			t.Errorf("missing output %s: %v", name, err)
		}
	}

	details, ok := runs.completed[runID]
	if !ok {
		t.Fatal("run was not marked completed")
	}
	if !strings.Contains(details, `"baseline":"2020hold"`) {
		t.Errorf("details should carry the baseline: %s", details)
	}
	if len(runs.failed) != 0 {
		t.Errorf("unexpected failures: %v", runs.failed)
	}
}

func TestProcess_FailureIsRecorded(t *testing.T) {
	runs := newFakeRunLog()
	svc, _ := newTestService(t, runs)
	ctx := context.Background()
	runID := NewRunID()

	if _, err := svc.UploadInputs(ctx, runID, sampleDir); err != nil {
		t.Fatalf("UploadInputs: %v", err)
	}

	_, err := svc.Process(ctx, RunRequest{RunID: runID, Baseline: "no-such-scenario"})
	var mbe *social.MissingBaselineError
	if !errors.As(err, &mbe) {
		t.Fatalf("expected MissingBaselineError, got %v", err)
	}
	if msg := runs.failed[runID]; !strings.Contains(msg, "no-such-scenario") {
		t.Errorf("failure message = %q", msg)
	}
	if _, ok := runs.completed[runID]; ok {
		t.Error("failed run should not be completed")
	}
}

func TestLoadInputs_MissingTablesStayNil(t *testing.T) {
	svc, storage := newTestService(t, nil)
	ctx := context.Background()

	data, err := os.ReadFile(filepath.Join(sampleDir, bca.TableSCC+".csv"))
	if err != nil {
		t.Fatalf("read fixture: %v", err)
	}
	runID := NewRunID()
	if err := storage.Put(ctx, runID, KindInputs, bca.TableSCC, data); err != nil {
		t.Fatalf("Put: %v", err)
	}

	in, err := svc.LoadInputs(ctx, runID)
	if err != nil {
		t.Fatalf("LoadInputs: %v", err)
	}
	if in.SCC == nil {
		t.Error("expected SCC table to be loaded")
	}
	if in.Costs != nil || in.EffectsSummary != nil {
		t.Error("expected absent tables to stay nil")
	}
}

func TestUploadInputs_EmptyDir(t *testing.T) {
	svc, _ := newTestService(t, nil)
	if _, err := svc.UploadInputs(context.Background(), NewRunID(), t.TempDir()); err == nil {
		t.Error("expected error for a directory without input tables")
	}
}

func TestProcess_RequiresRunID(t *testing.T) {
	svc, _ := newTestService(t, nil)
	if _, err := svc.Process(context.Background(), RunRequest{}); err == nil {
		t.Error("expected error without run id")
	}
}

func TestProcess_RejectsUnsafeRunID(t *testing.T) {
	runs := newFakeRunLog()
	svc, _ := newTestService(t, runs)
	ctx := context.Background()

	for _, id := range []string{"../../etc", "run1", strings.ToUpper(NewRunID())} {
		_, err := svc.Process(ctx, RunRequest{RunID: id})
		if !errors.Is(err, ErrInvalidName) {
			t.Errorf("Process(%q) error = %v, want ErrInvalidName", id, err)
		}
		if _, err := svc.UploadInputs(ctx, id, sampleDir); !errors.Is(err, ErrInvalidName) {
			t.Errorf("UploadInputs(%q) error = %v, want ErrInvalidName", id, err)
		}
	}
	if len(runs.created) != 0 {
		t.Errorf("no run should be recorded, got %v", runs.created)
	}
}
