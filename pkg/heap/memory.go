package heap

import (
	apperrors "github.com/heapwalker/pkg/errors"
)

// MemoryHeap is an in-memory Heap. It is populated once and then only read,
// so concurrent readers need no locking.
type MemoryHeap struct {
	classes     map[uint64]*Class
	classByName map[string]*Class
	instances   map[uint64]*Instance
}

// NewMemoryHeap creates an empty MemoryHeap.
func NewMemoryHeap() *MemoryHeap {
	return &MemoryHeap{
		classes:     make(map[uint64]*Class),
		classByName: make(map[string]*Class),
		instances:   make(map[uint64]*Instance),
	}
}

// AddClass registers a class. IDs must be non-zero and unique.
func (h *MemoryHeap) AddClass(c *Class) error {
	if c == nil || c.ID == 0 {
		return apperrors.New(apperrors.CodeInvalidInput, "class ID must be non-zero")
	}
	if _, ok := h.classes[c.ID]; ok {
		return apperrors.Newf(apperrors.CodeInvalidInput, "duplicate class ID 0x%x", c.ID)
	}
	for i := range c.StaticFields {
		c.StaticFields[i].Static = true
	}
	h.classes[c.ID] = c
	// First registration wins; different class loaders may define the same name.
	if _, ok := h.classByName[c.Name]; !ok {
		h.classByName[c.Name] = c
	}
	return nil
}

// AddInstance registers an instance. Its class must already be known.
func (h *MemoryHeap) AddInstance(inst *Instance) error {
	if inst == nil || inst.ID == 0 {
		return apperrors.New(apperrors.CodeInvalidInput, "instance ID must be non-zero")
	}
	if _, ok := h.instances[inst.ID]; ok {
		return apperrors.Newf(apperrors.CodeInvalidInput, "duplicate instance ID 0x%x", inst.ID)
	}
	if _, ok := h.classes[inst.ClassID]; !ok {
		return apperrors.Newf(apperrors.CodeNotFound, "class 0x%x of instance 0x%x not found", inst.ClassID, inst.ID)
	}
	h.instances[inst.ID] = inst
	return nil
}

// Instance implements Heap.
func (h *MemoryHeap) Instance(id uint64) (*Instance, bool) {
	inst, ok := h.instances[id]
	return inst, ok
}

// Class implements Heap.
func (h *MemoryHeap) Class(id uint64) (*Class, bool) {
	c, ok := h.classes[id]
	return c, ok
}

// ClassByName implements Heap.
func (h *MemoryHeap) ClassByName(name string) (*Class, bool) {
	c, ok := h.classByName[name]
	return c, ok
}

// ClassName implements Heap.
func (h *MemoryHeap) ClassName(instanceID uint64) string {
	inst, ok := h.instances[instanceID]
	if !ok {
		return ""
	}
	if c, ok := h.classes[inst.ClassID]; ok {
		return c.Name
	}
	return ""
}

// IsSubclassOf implements Heap.
func (h *MemoryHeap) IsSubclassOf(classID uint64, name string) bool {
	// seen guards against cyclic superclass chains in corrupt snapshots
	seen := make(map[uint64]bool)
	for classID != 0 && !seen[classID] {
		seen[classID] = true
		c, ok := h.classes[classID]
		if !ok {
			return false
		}
		if c.Name == name {
			return true
		}
		classID = c.SuperClassID
	}
	return false
}

// Hierarchy returns the class and its superclasses, nearest first.
func Hierarchy(h Heap, classID uint64) []*Class {
	var result []*Class
	seen := make(map[uint64]bool)
	for classID != 0 && !seen[classID] {
		seen[classID] = true
		c, ok := h.Class(classID)
		if !ok {
			break
		}
		result = append(result, c)
		classID = c.SuperClassID
	}
	return result
}

// Stats implements Heap.
func (h *MemoryHeap) Stats() Stats {
	return Stats{Classes: len(h.classes), Instances: len(h.instances)}
}

// Classes returns every registered class in no particular order.
func (h *MemoryHeap) Classes() []*Class {
	result := make([]*Class, 0, len(h.classes))
	for _, c := range h.classes {
		result = append(result, c)
	}
	return result
}

// Instances returns every registered instance in no particular order.
func (h *MemoryHeap) Instances() []*Instance {
	result := make([]*Instance, 0, len(h.instances))
	for _, inst := range h.instances {
		result = append(result, inst)
	}
	return result
}
