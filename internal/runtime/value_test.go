package runtime

import (
	"bytes"
	"strings"
	"testing"

	"github.com/gaultier/microkt/internal/types"
)

func newClass(t *testing.T, name string, fields ...*types.Type) *types.Type {
	t.Helper()
	class := types.NewClass(name)
	offsets := make([]int, len(fields))
	size := 0
	for i, ft := range fields {
		if _, err := class.Class.AddField(string(rune('a'+i)), ft, true); err != nil {
			t.Fatal(err)
		}
		offsets[i] = size + 8
		size += 8 + ft.Size
	}
	if err := class.Class.Freeze(offsets, size); err != nil {
		t.Fatal(err)
	}
	return class
}

func TestValueString(t *testing.T) {
	heap := NewHeap()
	empty := newClass(t, "Empty")

	tests := []struct {
		name     string
		value    Value
		expected string
	}{
		{"unit", Unit, "kotlin.Unit"},
		{"true", Bool(true), "true"},
		{"false", Bool(false), "false"},
		{"char", Char('A'), "A"},
		{"int", Integer(types.Int, -42), "-42"},
		{"long", Integer(types.Long, 9227465), "9227465"},
		{"string", String("hello"), "hello"},
		{"instance", Ref(heap.Allocate(empty)), "Instance of size 0"},
		{"null", Zero(empty), "null"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.value.String(); got != tt.expected {
				t.Errorf("Expected %q, got %q", tt.expected, got)
			}
		})
	}
}

func TestIntegerWraps(t *testing.T) {
	tests := []struct {
		typ      *types.Type
		in       int64
		expected int64
	}{
		{types.Byte, 128, -128},
		{types.Short, 40000, -25536},
		{types.Int, 2147483648, -2147483648},
		{types.Long, 5, 5},
	}

	for _, tt := range tests {
		t.Run(tt.typ.String(), func(t *testing.T) {
			if got := Integer(tt.typ, tt.in).I; got != tt.expected {
				t.Errorf("Expected %d, got %d", tt.expected, got)
			}
		})
	}
}

func TestConvert(t *testing.T) {
	v := Integer(types.Int, 300).Convert(types.Byte)
	if v.Type != types.Byte || v.I != 44 {
		t.Errorf("Expected Byte 44, got %s %d", v.Type, v.I)
	}

	v = Integer(types.Byte, -1).Convert(types.Long)
	if v.Type != types.Long || v.I != -1 {
		t.Errorf("Expected Long -1, got %s %d", v.Type, v.I)
	}

	s := String("x").Convert(types.Long)
	if s.Type != types.String {
		t.Errorf("Non-integral values must not convert, got %s", s.Type)
	}
}

func TestEqualAndCompare(t *testing.T) {
	heap := NewHeap()
	class := newClass(t, "A")
	a, b := Ref(heap.Allocate(class)), Ref(heap.Allocate(class))

	if !a.Equal(a) || a.Equal(b) {
		t.Error("Instances must compare by identity")
	}
	if !String("x").Equal(String("x")) {
		t.Error("Strings must compare by content")
	}
	if !Integer(types.Long, 3).Equal(Integer(types.Long, 3)) {
		t.Error("Equal integers must be equal")
	}
	if String("a").Compare(String("b")) >= 0 {
		t.Error("Expected a < b")
	}
	if Char('z').Compare(Char('a')) <= 0 {
		t.Error("Expected 'z' > 'a'")
	}
}

func TestHeap(t *testing.T) {
	heap := NewHeap()
	point := newClass(t, "Point", types.Long, types.Int)

	inst := heap.Allocate(point)
	if inst.Size() != 28 || inst.ID != 1 {
		t.Errorf("Unexpected instance size %d id %d", inst.Size(), inst.ID)
	}
	if got := inst.Fields[0]; got.Type != types.Long || got.I != 0 {
		t.Errorf("Fields must start at their zero value, got %+v", got)
	}

	field := point.Class.Fields[1]
	inst.Set(field, Integer(types.Long, 7))
	if got := inst.Get(field); got.Type != types.Int || got.I != 7 {
		t.Errorf("Expected Int 7 after conversion, got %s %d", got.Type, got.I)
	}

	alias := Ref(inst)
	alias.R.Set(field, Integer(types.Int, 8))
	if inst.Get(field).I != 8 {
		t.Error("References must alias the same instance")
	}

	heap.Allocate(point)
	if stats := heap.Stats(); stats.Instances != 2 || stats.Bytes != 56 {
		t.Errorf("Unexpected heap stats %+v", stats)
	}
	heap.Reset()
	if stats := heap.Stats(); stats.Instances != 0 {
		t.Errorf("Expected empty heap after reset, got %+v", stats)
	}
}

func TestOutput(t *testing.T) {
	var buf bytes.Buffer
	out := NewOutput(&buf)
	for _, line := range []string{"1", "two"} {
		if err := out.WriteLine(line); err != nil {
			t.Fatal(err)
		}
	}

	if got := strings.Join(out.Lines(), ","); got != "1,two" {
		t.Errorf("Expected recorded lines, got %s", got)
	}
	if buf.String() != "1\ntwo\n" {
		t.Errorf("Expected tee output, got %q", buf.String())
	}
	if err := NewOutput(nil).WriteLine("x"); err != nil {
		t.Errorf("Unexpected error without tee: %v", err)
	}
}

func TestWriteMetrics(t *testing.T) {
	stats := &Stats{Calls: 3, MaxDepth: 2, Lines: 1}
	var buf bytes.Buffer
	err := WriteMetrics(&buf, map[string]MetricFunc{"microkt": stats.Snapshot, "skipped": nil})
	if err != nil {
		t.Fatal(err)
	}

	out := buf.String()
	for _, want := range []string{"microkt_calls_total 3\n", "microkt_max_call_depth 2\n", "microkt_lines_total 1\n"} {
		if !strings.Contains(out, want) {
			t.Errorf("Missing %q in:\n%s", want, out)
		}
	}
	if strings.Index(out, "calls_total") > strings.Index(out, "lines_total") {
		t.Error("Metrics must be sorted by name")
	}
}

func TestSanitizeMetricToken(t *testing.T) {
	in := " metric name (bad)!"
	out := sanitizeMetricToken(in)
	if strings.ContainsAny(out, " !()") {
		t.Fatalf("token not sanitized: %q", out)
	}
	if got := sanitizeMetricToken("9lives"); got != "_9lives" {
		t.Errorf("Expected leading underscore, got %q", got)
	}
}
