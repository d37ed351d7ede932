package prop

import (
	"testing"
)

func TestForAllPasses(t *testing.T) {
	res := ForAll(GenInt64(-100, 100), ShrinkInt64(), func(v int64) bool {
		return v >= -100 && v <= 100
	}, Options{Trials: 300, Seed: 1})
	if res.Failed || res.PassedTrials != 300 {
		t.Fatalf("Expected all trials to pass, got %+v", res)
	}
}

func TestForAllShrinks(t *testing.T) {
	res := ForAll(GenInt64(0, 1000000), ShrinkInt64(), func(v int64) bool {
		return v < 10
	}, Options{Trials: 100, Seed: 7})
	if !res.Failed {
		t.Fatal("Expected the property to fail")
	}
	if res.ShrunkInput != 10 {
		t.Errorf("Expected shrinking to reach 10, got %d from %d", res.ShrunkInput, res.FailingInput)
	}
}

func TestForAllIsReproducible(t *testing.T) {
	var first, second []int64
	ForAll(GenInt64(-5, 5), nil, func(v int64) bool { first = append(first, v); return true }, Options{Trials: 20, Seed: 42})
	ForAll(GenInt64(-5, 5), nil, func(v int64) bool { second = append(second, v); return true }, Options{Trials: 20, Seed: 42})
	for i := range first {
		if first[i] != second[i] {
			t.Fatalf("Trial %d differs: %d vs %d", i, first[i], second[i])
		}
	}
}

func TestBinaryAvoidsDivisionByZero(t *testing.T) {
	e := Binary('/', Literal(7), Literal(0))
	if e.Value != 7 || e.Source != "(7L + 0L)" {
		t.Errorf("Expected division by zero to become addition, got %s = %d", e.Source, e.Value)
	}

	e = Binary('%', Literal(-7), Literal(2))
	if e.Value != -1 || e.Source != "((-7L) % 2L)" {
		t.Errorf("Unexpected %s = %d", e.Source, e.Value)
	}
}

func TestShrinkExpr(t *testing.T) {
	e := Binary('*', Binary('+', Literal(1), Literal(2)), Literal(3))
	candidates := ShrinkExpr()(e)
	if len(candidates) < 2 || candidates[0].Value != 3 || candidates[1].Value != 3 {
		t.Errorf("Expected operands first, got %v", candidates)
	}
	if ShrinkExpr()(Literal(0)) != nil {
		t.Error("A zero literal cannot shrink")
	}
}
