package runtime

import (
	"fmt"
	"io"
	"sort"
	"strings"
	"time"
)

// MetricFunc returns a map of metric name -> value (float64 for compatibility).
// Names should be simple tokens using [a-zA-Z0-9_:] to ease exposition.
type MetricFunc func() map[string]float64

// Stats collects counters of one run
type Stats struct {
	Calls         uint64 // function calls, entry point included
	Constructions uint64
	MaxDepth      int
	Lines         uint64 // printed lines
	Heap          HeapStats
	Duration      time.Duration
}

// Snapshot exposes the counters as a MetricFunc
func (s *Stats) Snapshot() map[string]float64 {
	return map[string]float64{
		"calls_total":         float64(s.Calls),
		"constructions_total": float64(s.Constructions),
		"max_call_depth":      float64(s.MaxDepth),
		"lines_total":         float64(s.Lines),
		"heap_instances":      float64(s.Heap.Instances),
		"heap_bytes":          float64(s.Heap.Bytes),
		"duration_seconds":    s.Duration.Seconds(),
	}
}

// WriteMetrics writes every collector in a line-oriented text exposition,
// sorted by collector and metric name.
func WriteMetrics(w io.Writer, collectors map[string]MetricFunc) error {
	names := make([]string, 0, len(collectors))
	for name := range collectors {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		fn := collectors[name]
		if fn == nil {
			continue
		}
		snapshot := fn()
		keys := make([]string, 0, len(snapshot))
		for k := range snapshot {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			// Example line: microkt_calls_total 12
			if _, err := fmt.Fprintf(w, "%s %g\n", sanitizeMetricToken(name+"_"+k), snapshot[k]); err != nil {
				return fmt.Errorf("write metrics: %w", err)
			}
		}
	}
	return nil
}

func sanitizeMetricToken(s string) string {
	// Replace unsupported chars with '_'
	b := make([]byte, len(s))
	for i := 0; i < len(s); i++ {
		c := s[i]
		if (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z') || (c >= '0' && c <= '9') || c == '_' || c == ':' {
			b[i] = c
		} else {
			b[i] = '_'
		}
	}
	if len(b) > 0 && b[0] >= '0' && b[0] <= '9' {
		return "_" + string(b)
	}
	return strings.ReplaceAll(string(b), "__", "_")
}
