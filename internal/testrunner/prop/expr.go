package prop

import (
	"fmt"
	"math/rand"
)

// Expr is a generated Long arithmetic expression in microkt syntax together
// with the value it must evaluate to.
type Expr struct {
	Source string
	Value  int64

	op          byte // 0 for a literal
	left, right *Expr
}

func (e *Expr) String() string { return e.Source }

// Literal builds a Long literal expression.
func Literal(v int64) *Expr {
	src := fmt.Sprintf("%dL", v)
	if v < 0 {
		src = fmt.Sprintf("(%dL)", v)
	}
	return &Expr{Source: src, Value: v}
}

// Binary combines two expressions. Division and modulo by zero are replaced
// by addition so every generated expression evaluates.
func Binary(op byte, l, r *Expr) *Expr {
	if (op == '/' || op == '%') && r.Value == 0 {
		op = '+'
	}
	var v int64
	switch op {
	case '+':
		v = l.Value + r.Value
	case '-':
		v = l.Value - r.Value
	case '*':
		v = l.Value * r.Value
	case '/':
		v = l.Value / r.Value
	case '%':
		v = l.Value % r.Value
	}
	return &Expr{
		Source: fmt.Sprintf("(%s %c %s)", l.Source, op, r.Source),
		Value:  v,
		op:     op,
		left:   l,
		right:  r,
	}
}

// GenExpr generates expression trees of depth at most size. The expected
// value wraps like a 64-bit Long.
func GenExpr() Generator[*Expr] {
	const ops = "+-*/%"
	var gen func(r *rand.Rand, depth int) *Expr
	gen = func(r *rand.Rand, depth int) *Expr {
		if depth <= 0 || r.Intn(3) == 0 {
			return Literal(r.Int63n(2001) - 1000)
		}
		return Binary(ops[r.Intn(len(ops))], gen(r, depth-1), gen(r, depth-1))
	}
	return func(r *rand.Rand, size int) *Expr { return gen(r, size) }
}

// ShrinkExpr proposes the operands of a binary expression and smaller
// literals.
func ShrinkExpr() Shrinker[*Expr] {
	return func(e *Expr) []*Expr {
		if e.op == 0 {
			if e.Value == 0 {
				return nil
			}
			return []*Expr{Literal(0), Literal(e.Value / 2)}
		}
		out := []*Expr{e.left, e.right}
		for _, l := range ShrinkExpr()(e.left) {
			out = append(out, Binary(e.op, l, e.right))
		}
		return out
	}
}

// GenInt64 returns a generator of values in [lo, hi].
func GenInt64(lo, hi int64) Generator[int64] {
	return func(r *rand.Rand, _ int) int64 {
		span := uint64(hi - lo)
		if span == ^uint64(0) {
			return int64(r.Uint64())
		}
		return lo + int64(r.Uint64()%(span+1))
	}
}

// ShrinkInt64 reduces magnitude toward zero.
func ShrinkInt64() Shrinker[int64] {
	return func(v int64) []int64 {
		if v == 0 {
			return nil
		}
		out := []int64{0, v / 2}
		if v > 0 {
			out = append(out, v-1)
		} else {
			out = append(out, v+1)
		}
		return out
	}
}
