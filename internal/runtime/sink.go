package runtime

import (
	"fmt"
	"io"
)

// Sink receives the lines printed by println
type Sink interface {
	WriteLine(line string) error
}

// Output records printed lines in order and optionally tees them to a
// writer as they are produced.
type Output struct {
	lines []string
	tee   io.Writer
}

// NewOutput creates an output recorder. tee may be nil.
func NewOutput(tee io.Writer) *Output {
	return &Output{tee: tee}
}

// WriteLine records line and forwards it to the tee writer
func (o *Output) WriteLine(line string) error {
	o.lines = append(o.lines, line)
	if o.tee == nil {
		return nil
	}
	if _, err := fmt.Fprintln(o.tee, line); err != nil {
		return fmt.Errorf("write output: %w", err)
	}
	return nil
}

// Lines returns the recorded lines
func (o *Output) Lines() []string { return o.lines }
