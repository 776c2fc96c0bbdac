// Package dynobj recognizes Truffle dynamic objects in a heap and exposes
// their field values.
package dynobj

import (
	"fmt"

	"github.com/heapwalker/pkg/filter"
	"github.com/heapwalker/pkg/heap"
)

// Recognizer decides whether an instance is a dynamic object of the target
// language runtime. An instance qualifies when its class, or any superclass,
// is one of the configured base types.
type Recognizer struct {
	bases []string
}

// NewRecognizer creates a Recognizer. An empty or nil set falls back to
// filter.DefaultDynamicObjectTypes.
func NewRecognizer(baseTypes *filter.TypeSet) *Recognizer {
	if baseTypes.Len() == 0 {
		baseTypes = filter.NewTypeSet(filter.DefaultDynamicObjectTypes...)
	}
	return &Recognizer{bases: baseTypes.Names()}
}

// IsDynamicObject reports whether inst is a dynamic object.
func (r *Recognizer) IsDynamicObject(h heap.Heap, inst *heap.Instance) bool {
	if h == nil || inst == nil || inst.Kind != heap.KindInstance {
		return false
	}
	for _, name := range r.bases {
		if h.IsSubclassOf(inst.ClassID, name) {
			return true
		}
	}
	return false
}

// HasDynamicObjectClasses reports whether h defines any of the base types.
// A heap without them has nothing to browse.
func (r *Recognizer) HasDynamicObjectClasses(h heap.Heap) bool {
	if h == nil {
		return false
	}
	for _, name := range r.bases {
		if _, ok := h.ClassByName(name); ok {
			return true
		}
	}
	return false
}

// Lookup returns the dynamic object with the given ID, or nil when the ID is
// unknown or the instance is not a dynamic object.
func (r *Recognizer) Lookup(h heap.Heap, id uint64) *DynamicObject {
	if h == nil || id == 0 {
		return nil
	}
	inst, ok := h.Instance(id)
	if !ok || !r.IsDynamicObject(h, inst) {
		return nil
	}
	return &DynamicObject{heap: h, instance: inst}
}

// DynamicObject is a view over a recognized instance. It does not copy field
// data until asked.
type DynamicObject struct {
	heap     heap.Heap
	instance *heap.Instance
}

// ID returns the object ID.
func (d *DynamicObject) ID() uint64 {
	return d.instance.ID
}

// TypeName returns the class name of the object.
func (d *DynamicObject) TypeName() string {
	if c, ok := d.heap.Class(d.instance.ClassID); ok {
		return c.Name
	}
	return ""
}

// Heap returns the heap the object belongs to.
func (d *DynamicObject) Heap() heap.Heap {
	return d.heap
}

// DisplayName formats the object the way heap viewers show instances: Type#0xID.
func (d *DynamicObject) DisplayName() string {
	return fmt.Sprintf("%s#0x%x", d.TypeName(), d.ID())
}

// FieldValues returns a copy of the instance field values.
func (d *DynamicObject) FieldValues() []heap.FieldValue {
	result := make([]heap.FieldValue, len(d.instance.Fields))
	copy(result, d.instance.Fields)
	for i := range result {
		result[i].Static = false
	}
	return result
}

// StaticFieldValues returns a copy of the static fields of the object's class
// hierarchy, nearest class first.
func (d *DynamicObject) StaticFieldValues() []heap.FieldValue {
	var result []heap.FieldValue
	for _, c := range heap.Hierarchy(d.heap, d.instance.ClassID) {
		for _, f := range c.StaticFields {
			f.Static = true
			result = append(result, f)
		}
	}
	return result
}
