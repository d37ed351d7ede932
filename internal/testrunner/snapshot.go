package testrunner

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/xyproto/env/v2"
)

// EnvUpdateSnapshots rewrites every snapshot with the actual content when set.
const EnvUpdateSnapshots = "MICROKT_UPDATE_SNAPSHOTS"

// SnapshotOptions controls snapshot test behavior.
type SnapshotOptions struct {
	BaseDir string
	Update  bool
}

// DefaultSnapshotOptions returns default snapshot configuration.
func DefaultSnapshotOptions() SnapshotOptions {
	return SnapshotOptions{
		BaseDir: filepath.Join("testdata", "snapshots"),
		Update:  env.Bool(EnvUpdateSnapshots),
	}
}

// SnapshotStatus is the outcome of one snapshot comparison
type SnapshotStatus string

const (
	SnapshotPass    SnapshotStatus = "pass"
	SnapshotFail    SnapshotStatus = "fail"
	SnapshotCreated SnapshotStatus = "created"
	SnapshotUpdated SnapshotStatus = "updated"
)

// SnapshotResult represents the result of a snapshot test.
type SnapshotResult struct {
	Name   string
	Path   string
	Status SnapshotStatus
	Diff   []string
}

// SnapshotManager compares rendered output, such as resolved tree dumps,
// with files stored under BaseDir. A missing snapshot is written on first
// use. It is safe for concurrent use.
type SnapshotManager struct {
	options SnapshotOptions

	mu      sync.Mutex
	results map[string]SnapshotResult
}

// NewSnapshotManager creates a new snapshot manager.
func NewSnapshotManager(options SnapshotOptions) *SnapshotManager {
	return &SnapshotManager{
		options: options,
		results: make(map[string]SnapshotResult),
	}
}

// Verify checks actual against the stored snapshot called name.
func (sm *SnapshotManager) Verify(name, actual string) (SnapshotResult, error) {
	res := SnapshotResult{Name: name, Path: sm.path(name)}

	expected, err := os.ReadFile(res.Path)
	switch {
	case os.IsNotExist(err):
		res.Status = SnapshotCreated
	case err != nil:
		return res, fmt.Errorf("failed to read snapshot %s: %w", res.Path, err)
	case string(expected) == actual:
		res.Status = SnapshotPass
	case sm.options.Update:
		res.Status = SnapshotUpdated
	default:
		res.Status = SnapshotFail
		res.Diff = DiffLines(strings.Split(string(expected), "\n"), strings.Split(actual, "\n"))
	}

	if res.Status == SnapshotCreated || res.Status == SnapshotUpdated {
		if err := sm.write(res.Path, actual); err != nil {
			return res, err
		}
	}

	sm.mu.Lock()
	sm.results[name] = res
	sm.mu.Unlock()

	if res.Status == SnapshotFail {
		return res, fmt.Errorf("snapshot mismatch for %s:\n%s", name, strings.Join(res.Diff, "\n"))
	}
	return res, nil
}

// Results returns all snapshot results recorded so far
func (sm *SnapshotManager) Results() []SnapshotResult {
	sm.mu.Lock()
	defer sm.mu.Unlock()

	out := make([]SnapshotResult, 0, len(sm.results))
	for _, r := range sm.results {
		out = append(out, r)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// Report creates a summary report of snapshot tests.
func (sm *SnapshotManager) Report() string {
	counts := make(map[SnapshotStatus]int)
	results := sm.Results()
	for _, r := range results {
		counts[r.Status]++
	}

	var report strings.Builder
	fmt.Fprintf(&report, "Snapshots: %d (pass: %d, fail: %d, created: %d, updated: %d)\n",
		len(results), counts[SnapshotPass], counts[SnapshotFail], counts[SnapshotCreated], counts[SnapshotUpdated])
	for _, r := range results {
		if r.Status == SnapshotFail {
			fmt.Fprintf(&report, "- %s\n", r.Name)
			for _, d := range r.Diff {
				fmt.Fprintf(&report, "  %s\n", d)
			}
		}
	}
	return report.String()
}

// path generates the file name for a snapshot.
func (sm *SnapshotManager) path(name string) string {
	safe := strings.NewReplacer("/", "_", "\\", "_", ":", "_").Replace(name)
	return filepath.Join(sm.options.BaseDir, safe+".snap")
}

func (sm *SnapshotManager) write(path, content string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create snapshot directory: %w", err)
	}
	return os.WriteFile(path, []byte(content), 0o644)
}
