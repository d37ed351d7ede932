package testrunner

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestSnapshotLifecycle(t *testing.T) {
	dir := t.TempDir()
	sm := NewSnapshotManager(SnapshotOptions{BaseDir: dir})

	res, err := sm.Verify("fixtures/a.kts", "Program\n")
	if err != nil || res.Status != SnapshotCreated {
		t.Fatalf("Expected a created snapshot, got %+v, %v", res, err)
	}
	if filepath.Base(res.Path) != "fixtures_a.kts.snap" {
		t.Errorf("Expected a sanitized name, got %s", res.Path)
	}

	if res, err := sm.Verify("fixtures/a.kts", "Program\n"); err != nil || res.Status != SnapshotPass {
		t.Errorf("Expected pass, got %+v, %v", res, err)
	}

	res, err = sm.Verify("fixtures/a.kts", "Program\n  Block\n")
	if err == nil || res.Status != SnapshotFail || len(res.Diff) == 0 {
		t.Errorf("Expected a mismatch, got %+v, %v", res, err)
	}
	if !strings.Contains(sm.Report(), "fail: 1") {
		t.Errorf("Unexpected report:\n%s", sm.Report())
	}

	updating := NewSnapshotManager(SnapshotOptions{BaseDir: dir, Update: true})
	if res, err := updating.Verify("fixtures/a.kts", "Program\n  Block\n"); err != nil || res.Status != SnapshotUpdated {
		t.Errorf("Expected update, got %+v, %v", res, err)
	}
	data, err := os.ReadFile(res.Path)
	if err != nil || string(data) != "Program\n  Block\n" {
		t.Errorf("Expected the snapshot to be rewritten, got %q, %v", data, err)
	}
}

func TestDefaultSnapshotOptions(t *testing.T) {
	t.Setenv(EnvUpdateSnapshots, "true")
	opts := DefaultSnapshotOptions()
	if !opts.Update || opts.BaseDir != filepath.Join("testdata", "snapshots") {
		t.Errorf("Unexpected options %+v", opts)
	}
}
