// Package types implements the microkt static type model: primitive kinds
// with fixed storage sizes, class types owning a frozen instance layout, and
// the numeric promotion rules shared by the resolver and the interpreter.
package types

import (
	"fmt"
	"math"
)

// TypeKind represents the kind of a type
type TypeKind int

const (
	TypeKindUnit TypeKind = iota
	TypeKindBoolean
	TypeKindByte
	TypeKindShort
	TypeKindInt
	TypeKindLong
	TypeKindChar
	TypeKindString
	TypeKindClass

	// TypeKindNothing is the type of a branch that always returns. It is
	// assignable to every type and never materialises as a value.
	TypeKindNothing
)

// String returns the string representation of a TypeKind
func (tk TypeKind) String() string {
	switch tk {
	case TypeKindUnit:
		return "Unit"
	case TypeKindBoolean:
		return "Boolean"
	case TypeKindByte:
		return "Byte"
	case TypeKindShort:
		return "Short"
	case TypeKindInt:
		return "Int"
	case TypeKindLong:
		return "Long"
	case TypeKindChar:
		return "Char"
	case TypeKindString:
		return "String"
	case TypeKindClass:
		return "class"
	case TypeKindNothing:
		return "Nothing"
	default:
		return "invalid"
	}
}

// ReferenceSize is the storage size of a String or an instance reference.
const ReferenceSize = 8

// Type represents a type. Primitive types are singletons; class types are
// unique per declaration, so pointer equality is type equality.
type Type struct {
	Kind  TypeKind
	Size  int        // storage size in bytes
	Class *ClassType // set for TypeKindClass
}

var (
	Unit    = &Type{Kind: TypeKindUnit, Size: 0}
	Boolean = &Type{Kind: TypeKindBoolean, Size: 1}
	Byte    = &Type{Kind: TypeKindByte, Size: 1}
	Short   = &Type{Kind: TypeKindShort, Size: 2}
	Int     = &Type{Kind: TypeKindInt, Size: 4}
	Long    = &Type{Kind: TypeKindLong, Size: 8}
	Char    = &Type{Kind: TypeKindChar, Size: 2}
	String  = &Type{Kind: TypeKindString, Size: ReferenceSize}
	Nothing = &Type{Kind: TypeKindNothing, Size: 0}
)

var primitives = map[string]*Type{
	"Unit":    Unit,
	"Boolean": Boolean,
	"Byte":    Byte,
	"Short":   Short,
	"Int":     Int,
	"Long":    Long,
	"Char":    Char,
	"String":  String,
}

// LookupPrimitive returns the primitive type with the given source name.
func LookupPrimitive(name string) (*Type, bool) {
	t, ok := primitives[name]
	return t, ok
}

// String returns the source-level name of the type
func (t *Type) String() string {
	if t == nil {
		return "<nil>"
	}
	if t.Kind == TypeKindClass {
		return t.Class.Name
	}
	return t.Kind.String()
}

// IsIntegral reports whether t is one of Byte, Short, Int, Long.
func (t *Type) IsIntegral() bool {
	switch t.Kind {
	case TypeKindByte, TypeKindShort, TypeKindInt, TypeKindLong:
		return true
	}
	return false
}

// IsClass reports whether t is a class type
func (t *Type) IsClass() bool { return t.Kind == TypeKindClass }

// Rank orders the integral types for widening; non-integral types rank 0.
func (t *Type) Rank() int {
	switch t.Kind {
	case TypeKindByte:
		return 1
	case TypeKindShort:
		return 2
	case TypeKindInt:
		return 3
	case TypeKindLong:
		return 4
	}
	return 0
}

// Bounds returns the inclusive value range of an integral type.
func (t *Type) Bounds() (int64, int64) {
	switch t.Kind {
	case TypeKindByte:
		return math.MinInt8, math.MaxInt8
	case TypeKindShort:
		return math.MinInt16, math.MaxInt16
	case TypeKindInt:
		return math.MinInt32, math.MaxInt32
	case TypeKindLong:
		return math.MinInt64, math.MaxInt64
	}
	return 0, 0
}

// Contains reports whether v is representable in the integral type t.
func (t *Type) Contains(v int64) bool {
	lo, hi := t.Bounds()
	return t.IsIntegral() && v >= lo && v <= hi
}

// Wrap truncates v to the width of the integral type t using two's complement.
func (t *Type) Wrap(v int64) int64 {
	switch t.Kind {
	case TypeKindByte:
		return int64(int8(v))
	case TypeKindShort:
		return int64(int16(v))
	case TypeKindInt:
		return int64(int32(v))
	case TypeKindChar:
		return int64(uint16(v))
	}
	return v
}

// Wider returns the wider of two integral types.
func Wider(a, b *Type) *Type {
	if a.Rank() >= b.Rank() {
		return a
	}
	return b
}

// Widens reports whether a value of type from can be implicitly converted to
// type to: same type, integral widening, or Nothing.
func Widens(from, to *Type) bool {
	if from == to || from.Kind == TypeKindNothing {
		return true
	}
	return from.IsIntegral() && to.IsIntegral() && from.Rank() <= to.Rank()
}

// Unify returns the common type of two branch types, or false when there is
// none. Nothing unifies with anything.
func Unify(a, b *Type) (*Type, bool) {
	switch {
	case a == b:
		return a, true
	case a.Kind == TypeKindNothing:
		return b, true
	case b.Kind == TypeKindNothing:
		return a, true
	case a.IsIntegral() && b.IsIntegral():
		return Wider(a, b), true
	}
	return nil, false
}

// ClassType holds the fields of a class and its frozen instance layout.
type ClassType struct {
	Name         string
	Fields       []*Field
	InstanceSize int

	index  map[string]int
	frozen bool
}

// Field is a class member with its byte offset inside an instance.
type Field struct {
	Name    string
	Type    *Type
	Mutable bool
	Offset  int
	Index   int // position in ClassType.Fields and Instance storage
}

// NewClass creates a class type with no fields yet.
func NewClass(name string) *Type {
	return &Type{
		Kind:  TypeKindClass,
		Size:  ReferenceSize,
		Class: &ClassType{Name: name, index: make(map[string]int)},
	}
}

// AddField appends a field. It fails on duplicates or after Freeze.
func (c *ClassType) AddField(name string, typ *Type, mutable bool) (*Field, error) {
	if c.frozen {
		return nil, fmt.Errorf("class %s layout is frozen", c.Name)
	}
	if _, exists := c.index[name]; exists {
		return nil, fmt.Errorf("field %s is already declared in class %s", name, c.Name)
	}

	f := &Field{Name: name, Type: typ, Mutable: mutable, Index: len(c.Fields)}
	c.index[name] = f.Index
	c.Fields = append(c.Fields, f)
	return f, nil
}

// Freeze records the field offsets and the instance size. A class is frozen
// exactly once.
func (c *ClassType) Freeze(offsets []int, instanceSize int) error {
	if c.frozen {
		return fmt.Errorf("class %s layout is frozen", c.Name)
	}
	if len(offsets) != len(c.Fields) {
		return fmt.Errorf("class %s: %d offsets for %d fields", c.Name, len(offsets), len(c.Fields))
	}
	for i, off := range offsets {
		c.Fields[i].Offset = off
	}
	c.InstanceSize = instanceSize
	c.frozen = true
	return nil
}

// Frozen reports whether the layout has been computed
func (c *ClassType) Frozen() bool { return c.frozen }

// Field looks a field up by name
func (c *ClassType) Field(name string) (*Field, bool) {
	i, ok := c.index[name]
	if !ok {
		return nil, false
	}
	return c.Fields[i], true
}
