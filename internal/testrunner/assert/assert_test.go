package assert

import (
	"errors"
	"fmt"
	"testing"
)

// recorder captures failures instead of failing the enclosing test.
type recorder struct {
	testing.TB
	failures []string
}

func (r *recorder) Helper() {}

func (r *recorder) Error(args ...any) { r.failures = append(r.failures, fmt.Sprint(args...)) }

func TestAssertions(t *testing.T) {
	sentinel := errors.New("boom")

	tests := []struct {
		name   string
		check  func(tb testing.TB) bool
		passes bool
	}{
		{"equal", func(tb testing.TB) bool { return Equal(tb, 1, 1) }, true},
		{"not_equal", func(tb testing.TB) bool { return Equal(tb, "a", "b") }, false},
		{"true", func(tb testing.TB) bool { return True(tb, 1 < 2) }, true},
		{"false", func(tb testing.TB) bool { return True(tb, false, "msg") }, false},
		{"no_error", func(tb testing.TB) bool { return NoError(tb, nil) }, true},
		{"error", func(tb testing.TB) bool { return NoError(tb, sentinel) }, false},
		{"error_is", func(tb testing.TB) bool { return ErrorIs(tb, fmt.Errorf("wrap: %w", sentinel), sentinel) }, true},
		{"error_is_not", func(tb testing.TB) bool { return ErrorIs(tb, errors.New("other"), sentinel) }, false},
		{"contains", func(tb testing.TB) bool { return Contains(tb, "hello", "ell") }, true},
		{"lines", func(tb testing.TB) bool { return Lines(tb, []string{"1", "2"}, []string{"1", "2"}) }, true},
		{"lines_differ", func(tb testing.TB) bool { return Lines(tb, []string{"1", "3"}, []string{"1", "2"}) }, false},
		{"lines_short", func(tb testing.TB) bool { return Lines(tb, []string{"1"}, []string{"1", ""}) }, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := &recorder{TB: t}
			if got := tt.check(r); got != tt.passes {
				t.Errorf("Expected %v, got %v", tt.passes, got)
			}
			if tt.passes != (len(r.failures) == 0) {
				t.Errorf("Unexpected failures %q", r.failures)
			}
		})
	}
}
