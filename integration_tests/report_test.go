package integration_tests

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/Minapak/SwiftQuantum/internal/report"
)

func TestReportRoundTripAfterRun(t *testing.T) {
	s := newServiceStack(t)
	cfg := harnessConfig(s)

	rep := runHarness(t, cfg)
	if !rep.Success {
		t.Fatalf("run failed: %+v", rep.Errors)
	}

	path := filepath.Join(t.TempDir(), "results", "test_results.json")
	if err := report.Write(path, rep); err != nil {
		t.Fatalf("write report: %v", err)
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read report file: %v", err)
	}
	text := string(raw)
	if !strings.HasSuffix(text, "\n") {
		t.Error("report file does not end with a newline")
	}
	if !strings.Contains(text, `"success": true`) {
		t.Error("report file missing success flag")
	}
	if !strings.Contains(text, `"fidelity": "97.7%"`) {
		t.Error("report file missing fidelity")
	}

	loaded, err := report.Load(path)
	if err != nil {
		t.Fatalf("load report: %v", err)
	}
	if loaded.RunID != rep.RunID {
		t.Errorf("run id changed across the round trip: %q vs %q", loaded.RunID, rep.RunID)
	}
	if len(loaded.Steps) != len(rep.Steps) {
		t.Errorf("expected %d steps, got %d", len(rep.Steps), len(loaded.Steps))
	}
	if len(loaded.Errors) != 0 {
		t.Errorf("expected no failures, got %+v", loaded.Errors)
	}
	if loaded.Summary == nil {
		t.Fatal("summary lost across the round trip")
	}
	if loaded.Summary.Analysis.TotalShots != 1024 {
		t.Errorf("expected 1024 total shots, got %d", loaded.Summary.Analysis.TotalShots)
	}
}

func TestReportRecordsFailedRun(t *testing.T) {
	s := newServiceStack(t)
	s.statusSequence = []string{"QUEUED", "FAILED"}
	cfg := harnessConfig(s)

	rep := runHarness(t, cfg)
	if rep.Success {
		t.Fatal("expected run to fail")
	}

	path := filepath.Join(t.TempDir(), "failed.json")
	if err := report.Write(path, rep); err != nil {
		t.Fatalf("write report: %v", err)
	}

	loaded, err := report.Load(path)
	if err != nil {
		t.Fatalf("load report: %v", err)
	}
	if loaded.Success {
		t.Error("failure flag lost across the round trip")
	}
	if loaded.Summary != nil {
		t.Errorf("failed run should carry no summary, got %+v", loaded.Summary)
	}
	if len(loaded.Errors) != 1 || loaded.Errors[0].Step != 5 {
		t.Errorf("expected a single step-5 failure, got %+v", loaded.Errors)
	}
}
