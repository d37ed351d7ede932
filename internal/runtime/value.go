// Package runtime provides the value model of the microkt evaluator: tagged
// values, class instances owned by a per-run heap arena, output sinks and
// run statistics.
package runtime

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/gaultier/microkt/internal/types"
)

// Value is a tagged runtime value. Type is the tag; the payload lives in I
// for Boolean (0 or 1), integral types and Char (UTF-16 code unit), in S for
// String and in R for instance references.
type Value struct {
	Type *types.Type
	I    int64
	S    string
	R    *Instance
}

// Unit is the single value of type Unit
var Unit = Value{Type: types.Unit}

// Bool creates a Boolean value
func Bool(b bool) Value {
	if b {
		return Value{Type: types.Boolean, I: 1}
	}
	return Value{Type: types.Boolean}
}

// Integer creates a value of an integral type, wrapping v to its width.
func Integer(t *types.Type, v int64) Value {
	return Value{Type: t, I: t.Wrap(v)}
}

// Char creates a Char value from a UTF-16 code unit
func Char(c int64) Value {
	return Value{Type: types.Char, I: types.Char.Wrap(c)}
}

// String creates a String value
func String(s string) Value {
	return Value{Type: types.String, S: s}
}

// Ref creates a reference to a class instance
func Ref(inst *Instance) Value {
	return Value{Type: inst.Type, R: inst}
}

// Zero returns the default value of a slot of type t: 0, false, "", or a
// null reference.
func Zero(t *types.Type) Value {
	return Value{Type: t}
}

// Convert returns v stored as type t. Integral values are sign-converted to
// the target width; other values are returned unchanged.
func (v Value) Convert(t *types.Type) Value {
	if v.Type == t || !t.IsIntegral() || !v.Type.IsIntegral() {
		return v
	}
	return Integer(t, v.I)
}

// Truthy reports whether a Boolean value is true
func (v Value) Truthy() bool { return v.I != 0 }

// Equal compares two values of the same static type. Instances compare by
// identity.
func (v Value) Equal(o Value) bool {
	switch v.Type.Kind {
	case types.TypeKindString:
		return v.S == o.S
	case types.TypeKindClass:
		return v.R == o.R
	case types.TypeKindUnit:
		return true
	}
	return v.I == o.I
}

// Compare orders two integral, Char or String values.
func (v Value) Compare(o Value) int {
	if v.Type.Kind == types.TypeKindString {
		return strings.Compare(v.S, o.S)
	}
	switch {
	case v.I < o.I:
		return -1
	case v.I > o.I:
		return 1
	}
	return 0
}

// String formats v the way println prints it.
func (v Value) String() string {
	switch v.Type.Kind {
	case types.TypeKindUnit:
		return "kotlin.Unit"
	case types.TypeKindBoolean:
		return strconv.FormatBool(v.Truthy())
	case types.TypeKindChar:
		return string(rune(v.I))
	case types.TypeKindString:
		return v.S
	case types.TypeKindClass:
		if v.R == nil {
			return "null"
		}
		return fmt.Sprintf("Instance of size %d", v.R.Size())
	}
	return strconv.FormatInt(v.I, 10)
}
