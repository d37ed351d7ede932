// Package fuzz mutates microkt sources and feeds them to a target, keeping
// inputs that reach new token edges.
package fuzz

import (
	"fmt"
	"io"
	"math/rand"
	"time"
)

// Target is the fuzz target. Returning an error or panicking indicates a crash.
type Target func(src string) error

// Mutator produces a mutated source from a parent.
type Mutator func(r *rand.Rand, in string) string

// Options controls the fuzzing loop.
type Options struct {
	Seed     int64         // seed for PRNG; 0 means time.Now().UnixNano()
	MaxInput int           // max input size in bytes
	MaxExecs int           // total executions
	Duration time.Duration // optional wall time bound; 0 disables
}

// Stats captures aggregate counters for a fuzzing run.
type Stats struct {
	Executions int
	Crashes    int
	Corpus     int // inputs kept for new coverage, seeds included
	Edges      int
}

// fragments are spliced into inputs so mutations stay close to the grammar.
var fragments = []string{
	"val ", "var ", "fun ", "class ", "if ", "else ", "return ", "println(",
	"(", ")", "{", "}", "\n", ";", ",", ":", ".", "=", "==", "!=", "<", "<=",
	"+", "-", "*", "/", "%", "&&", "||", "!", "0", "1L", "127", "'a'", "\"s\"",
	"true", "x", "Long", "Int", "Byte", "String", "Boolean", "Unit",
}

// DefaultMutator inserts a grammar fragment, deletes a span or duplicates a
// span of the input.
func DefaultMutator() Mutator {
	return func(r *rand.Rand, in string) string {
		if len(in) == 0 {
			return fragments[r.Intn(len(fragments))]
		}
		pos := r.Intn(len(in) + 1)
		switch r.Intn(3) {
		case 0:
			return in[:pos] + fragments[r.Intn(len(fragments))] + in[pos:]
		case 1:
			if pos == len(in) {
				pos--
			}
			end := pos + 1 + r.Intn(min(8, len(in)-pos))
			return in[:pos] + in[end:]
		default:
			start := r.Intn(len(in))
			end := start + 1 + r.Intn(min(16, len(in)-start))
			return in[:pos] + in[start:end] + in[pos:]
		}
	}
}

// Run executes a fuzzing campaign. Crashing inputs are written to crashes,
// one per line, quoted with %q. Executions are sequential and reproducible
// for a fixed seed when Duration is zero.
func Run(opts Options, corpus []string, target Target, mut Mutator, crashes io.Writer) Stats {
	if opts.Seed == 0 {
		opts.Seed = time.Now().UnixNano()
	}
	if opts.MaxInput <= 0 {
		opts.MaxInput = 1 << 12
	}
	if opts.MaxExecs <= 0 {
		opts.MaxExecs = 1000
	}
	if mut == nil {
		mut = DefaultMutator()
	}
	var stop time.Time
	if opts.Duration > 0 {
		stop = time.Now().Add(opts.Duration)
	}

	r := rand.New(rand.NewSource(opts.Seed))
	cov := make(Coverage)
	var stats Stats

	pool := make([]string, 0, len(corpus)+64)
	for _, c := range corpus {
		cov.Add(TokenEdgeCoverage(c))
		pool = append(pool, c)
	}
	if len(pool) == 0 {
		pool = append(pool, "")
	}

	for stats.Executions < opts.MaxExecs {
		if !stop.IsZero() && time.Now().After(stop) {
			break
		}

		cand := mut(r, pool[r.Intn(len(pool))])
		if len(cand) > opts.MaxInput {
			cand = cand[:opts.MaxInput]
		}

		stats.Executions++
		if err := callTargetSafe(target, cand); err != nil {
			stats.Crashes++
			if crashes != nil {
				fmt.Fprintf(crashes, "%q\t%v\n", cand, err)
			}
			continue
		}
		if cov.Add(TokenEdgeCoverage(cand)) > 0 {
			pool = append(pool, cand)
		}
	}

	stats.Corpus = len(pool)
	stats.Edges = len(cov)
	return stats
}

// callTargetSafe invokes the target and converts panics into errors for recording.
func callTargetSafe(t Target, src string) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic: %v", r)
		}
	}()
	return t(src)
}

// Minimize removes chunks of a crashing input, halves first, while the
// target keeps failing.
func Minimize(in string, target Target) string {
	fails := func(s string) bool { return callTargetSafe(target, s) != nil }
	best := in
	if !fails(best) {
		return best
	}
	for parts := 2; parts <= len(best); {
		seg := len(best) / parts
		progressed := false
		for i := 0; i < parts; i++ {
			cand := best[:i*seg] + best[min((i+1)*seg, len(best)):]
			if len(cand) > 0 && fails(cand) {
				best = cand
				progressed = true
				break
			}
		}
		if !progressed {
			parts *= 2
		} else if parts > len(best) {
			parts = len(best)
		}
		if seg <= 1 && !progressed {
			break
		}
	}
	return best
}
