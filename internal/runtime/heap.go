package runtime

import (
	"github.com/gaultier/microkt/internal/types"
)

// Instance is a class instance. Fields are indexed by types.Field.Index.
type Instance struct {
	Type   *types.Type
	Fields []Value
	ID     uint64 // allocation order within its heap, from 1
}

// Size returns the instance size from the frozen class layout
func (i *Instance) Size() int { return i.Type.Class.InstanceSize }

// Get reads a field
func (i *Instance) Get(f *types.Field) Value { return i.Fields[f.Index] }

// Set writes a field, converting the value to the field type
func (i *Instance) Set(f *types.Field, v Value) {
	i.Fields[f.Index] = v.Convert(f.Type)
}

// HeapStats holds allocation counters of a heap
type HeapStats struct {
	Instances uint64 // live instances
	Bytes     uint64 // sum of instance sizes
}

// Heap is the per-run arena owning every instance. Instances live until the
// heap is reset at the end of the run; references copy the pointer only.
type Heap struct {
	instances []*Instance
	stats     HeapStats
}

// NewHeap creates an empty heap
func NewHeap() *Heap {
	return &Heap{}
}

// Allocate creates an instance of the class type t with zero-valued fields.
func (h *Heap) Allocate(t *types.Type) *Instance {
	class := t.Class
	inst := &Instance{
		Type:   t,
		Fields: make([]Value, len(class.Fields)),
		ID:     uint64(len(h.instances) + 1),
	}
	for _, f := range class.Fields {
		inst.Fields[f.Index] = Zero(f.Type)
	}

	h.instances = append(h.instances, inst)
	h.stats.Instances++
	h.stats.Bytes += uint64(class.InstanceSize)
	return inst
}

// Stats returns the allocation counters
func (h *Heap) Stats() HeapStats { return h.stats }

// Reset releases every instance
func (h *Heap) Reset() {
	for i := range h.instances {
		h.instances[i] = nil
	}
	h.instances = h.instances[:0]
	h.stats = HeapStats{}
}
