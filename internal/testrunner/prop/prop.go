// Package prop is a small property-based testing harness with shrinking.
package prop

import (
	"crypto/sha256"
	"encoding/binary"
	"math/rand"
	"time"
)

// Generator produces a value of type T from a PRNG and a size hint.
type Generator[T any] func(r *rand.Rand, size int) T

// Shrinker produces a slice of candidate smaller values that aim to preserve failure.
type Shrinker[T any] func(v T) []T

// Options control property checking.
type Options struct {
	Trials          int   // number of trials
	Seed            int64 // random seed; 0 means time.Now().UnixNano()
	Size            int   // size hint for generators
	MaxShrinkRounds int   // limit for shrinking attempts
}

// Result is the outcome of a property check.
type Result[T any] struct {
	PassedTrials int
	Failed       bool
	FailingInput T
	ShrunkInput  T
	Seed         int64
	ShrinkRounds int
}

func (o *Options) defaults() {
	if o.Trials <= 0 {
		o.Trials = 200
	}
	if o.Seed == 0 {
		o.Seed = time.Now().UnixNano()
	}
	if o.Size <= 0 {
		o.Size = 4
	}
	if o.MaxShrinkRounds <= 0 {
		o.MaxShrinkRounds = 200
	}
}

// ForAll checks prop against generated inputs. Trials are reproducible from
// Result.Seed. On the first failure the input is shrunk greedily.
func ForAll[T any](gen Generator[T], shrink Shrinker[T], prop func(T) bool, opts Options) Result[T] {
	opts.defaults()
	res := Result[T]{Seed: opts.Seed}

	for i := 0; i < opts.Trials; i++ {
		r := rand.New(rand.NewSource(deriveSeed(opts.Seed, i)))
		v := gen(r, opts.Size)
		if prop(v) {
			res.PassedTrials++
			continue
		}

		res.Failed = true
		res.FailingInput = v
		res.ShrunkInput, res.ShrinkRounds = shrinkFailure(v, shrink, prop, opts.MaxShrinkRounds)
		break
	}
	return res
}

func shrinkFailure[T any](v T, shrink Shrinker[T], prop func(T) bool, maxRounds int) (T, int) {
	best := v
	if shrink == nil {
		return best, 0
	}
	rounds := 0
	for rounds < maxRounds {
		progressed := false
		for _, c := range shrink(best) {
			if !prop(c) {
				best = c
				progressed = true
				break
			}
		}
		rounds++
		if !progressed {
			break
		}
	}
	return best, rounds
}

// deriveSeed deterministically mixes base seed with trial index via SHA-256.
func deriveSeed(base int64, idx int) int64 {
	var b [16]byte
	binary.LittleEndian.PutUint64(b[0:8], uint64(base))
	binary.LittleEndian.PutUint64(b[8:16], uint64(idx))
	h := sha256.Sum256(b[:])
	return int64(binary.LittleEndian.Uint64(h[0:8]))
}
