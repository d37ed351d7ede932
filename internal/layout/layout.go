// Package layout computes the memory layout of microkt class instances.
//
// Every field is stored as a tagged slot: an 8-byte value header (the tag
// used by the runtime to describe the payload) followed by the payload
// aligned to its own size. Instances carry no object header and no trailing
// padding, so a class without fields occupies zero bytes.
package layout

import (
	"fmt"
)

// FieldInfo contains information about a class field
type FieldInfo struct {
	Name         string // Field name
	Type         string // Field type name
	HeaderOffset int64  // Offset of the value header
	Offset       int64  // Offset of the payload
	Size         int64  // Size of the payload
	Alignment    int64  // Required payload alignment
}

// PaddingInfo represents padding bytes inserted for alignment
type PaddingInfo struct {
	Offset int64  // Offset where padding starts
	Size   int64  // Number of padding bytes
	Reason string // Reason for padding
}

// ClassLayout represents the memory layout of a class instance
type ClassLayout struct {
	Name       string        // Class name
	Fields     []FieldInfo   // Field information, in declaration order
	TotalSize  int64         // Instance size
	PaddingMap []PaddingInfo // Padding information
}

// LayoutCalculator provides methods to calculate memory layouts
type LayoutCalculator struct {
	ObjectHeaderSize int64 // Bytes before the first field
	ValueHeaderSize  int64 // Tag bytes preceding every field payload
	HeaderAlignment  int64 // Alignment of each value header
}

// NewLayoutCalculator creates a calculator for the microkt runtime model
func NewLayoutCalculator() *LayoutCalculator {
	return &LayoutCalculator{
		ObjectHeaderSize: 0,
		ValueHeaderSize:  8,
		HeaderAlignment:  8,
	}
}

// CalculateClassLayout lays fields out in declaration order. Only Name, Type,
// Size and Alignment are read from the input; offsets are filled in.
func (lc *LayoutCalculator) CalculateClassLayout(name string, fields []FieldInfo) (*ClassLayout, error) {
	layout := &ClassLayout{
		Name:       name,
		Fields:     make([]FieldInfo, 0, len(fields)),
		PaddingMap: []PaddingInfo{},
	}
	if len(fields) == 0 {
		layout.TotalSize = lc.ObjectHeaderSize
		return layout, nil
	}

	currentOffset := lc.ObjectHeaderSize
	for _, field := range fields {
		if field.Size < 0 {
			return nil, fmt.Errorf("field %s has invalid size: %d", field.Name, field.Size)
		}
		if field.Alignment <= 0 {
			field.Alignment = 1
		}
		if !isPowerOfTwo(field.Alignment) {
			return nil, fmt.Errorf("field %s alignment must be power of 2: %d", field.Name, field.Alignment)
		}

		headerOffset := lc.pad(layout, currentOffset, lc.HeaderAlignment, "header alignment for field "+field.Name)
		payloadOffset := lc.pad(layout, headerOffset+lc.ValueHeaderSize, field.Alignment, "alignment for field "+field.Name)

		field.HeaderOffset = headerOffset
		field.Offset = payloadOffset
		layout.Fields = append(layout.Fields, field)

		currentOffset = payloadOffset + field.Size
	}

	layout.TotalSize = currentOffset
	return layout, nil
}

func (lc *LayoutCalculator) pad(layout *ClassLayout, offset, alignment int64, reason string) int64 {
	aligned := alignUp(offset, alignment)
	if aligned > offset {
		layout.PaddingMap = append(layout.PaddingMap, PaddingInfo{
			Offset: offset,
			Size:   aligned - offset,
			Reason: reason,
		})
	}
	return aligned
}

// isPowerOfTwo checks if a number is a power of 2
func isPowerOfTwo(n int64) bool {
	return n > 0 && (n&(n-1)) == 0
}

// alignUp rounds up to the next multiple of alignment
func alignUp(value, alignment int64) int64 {
	if alignment <= 1 {
		return value
	}
	return (value + alignment - 1) & ^(alignment - 1)
}

// GetPaddingBytes returns the total number of padding bytes in the instance
func (cl *ClassLayout) GetPaddingBytes() int64 {
	var total int64
	for _, pad := range cl.PaddingMap {
		total += pad.Size
	}
	return total
}

func (cl *ClassLayout) String() string {
	return fmt.Sprintf("Class %s (%d fields, %d bytes, %d padding)",
		cl.Name, len(cl.Fields), cl.TotalSize, cl.GetPaddingBytes())
}
