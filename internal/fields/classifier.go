// Package fields selects and classifies the fields of a dynamic object for
// display in a heap browser tree.
//
// Classification is total: every field maps to exactly one Kind and nothing
// here returns an error. When a richer interpretation of a reference is not
// available the field degrades to KindReference.
package fields

import (
	"fmt"

	"github.com/heapwalker/internal/dynobj"
	"github.com/heapwalker/pkg/filter"
	"github.com/heapwalker/pkg/heap"
)

// Kind is the display kind of a classified field.
type Kind int

const (
	// KindPrimitive is a field holding a primitive scalar.
	KindPrimitive Kind = iota
	// KindReference is a generic, non-expandable object reference.
	KindReference
	// KindDynamicObject is a reference to another dynamic object; it can be expanded.
	KindDynamicObject
)

// String returns the display node type name.
func (k Kind) String() string {
	switch k {
	case KindPrimitive:
		return "PrimitiveField"
	case KindReference:
		return "ReferenceField"
	case KindDynamicObject:
		return "DynamicObjectField"
	default:
		return "UnknownField"
	}
}

// RefShape records what a reference field points at.
type RefShape int

const (
	RefNone RefShape = iota // not a reference
	RefNull
	RefPrimitiveArray
	RefOpaque
	// RefWrapper is a boxed scalar or string of the host runtime. It is still
	// displayed as a plain reference; the shape is kept for renderers that
	// want to show contents.
	RefWrapper
	RefDynamicObject
)

// String returns the string representation of the shape.
func (s RefShape) String() string {
	switch s {
	case RefNull:
		return "null"
	case RefPrimitiveArray:
		return "primitive_array"
	case RefOpaque:
		return "opaque"
	case RefWrapper:
		return "wrapper"
	case RefDynamicObject:
		return "dynamic_object"
	default:
		return "none"
	}
}

// ClassifiedField is a render-only view over a field value.
type ClassifiedField struct {
	Field heap.FieldValue
	Kind  Kind
	Ref   RefShape
	// RefClass is the type name of the referenced object, if known.
	RefClass string
	// Object is set for KindDynamicObject fields.
	Object *dynobj.DynamicObject

	classifier *Classifier
}

// Name returns the field name.
func (cf *ClassifiedField) Name() string {
	return cf.Field.Name
}

// TypeName returns the declared type for primitives or the referenced class for references.
func (cf *ClassifiedField) TypeName() string {
	if cf.Kind == KindPrimitive {
		return cf.Field.Type.String()
	}
	if cf.RefClass != "" {
		return cf.RefClass
	}
	return cf.Field.Type.String()
}

// DisplayValue returns the value column text.
func (cf *ClassifiedField) DisplayValue() string {
	switch {
	case cf.Kind == KindPrimitive:
		return cf.Field.Value
	case cf.Ref == RefNull:
		return "null"
	case cf.RefClass != "":
		return fmt.Sprintf("%s#0x%x", cf.RefClass, cf.Field.RefID)
	default:
		return fmt.Sprintf("0x%x", cf.Field.RefID)
	}
}

// Expandable reports whether Children can return anything.
func (cf *ClassifiedField) Expandable() bool {
	return cf.Kind == KindDynamicObject && cf.Object != nil
}

// Children classifies the fields of the referenced dynamic object. Nothing is
// computed until this is called; non-expandable fields return nil.
func (cf *ClassifiedField) Children(cfg FilterConfig) []*ClassifiedField {
	if !cf.Expandable() || cf.classifier == nil {
		return nil
	}
	return cf.classifier.ClassifyAll(SelectFields(cf.Object, cfg))
}

// Classifier maps field values to display kinds against one heap.
type Classifier struct {
	heap       heap.Heap
	recognizer *dynobj.Recognizer
	wrappers   *filter.TypeSet
}

// NewClassifier creates a Classifier. A nil recognizer uses the default
// dynamic object types; a nil wrapper set uses filter.DefaultWrapperTypes.
func NewClassifier(h heap.Heap, recognizer *dynobj.Recognizer, wrappers *filter.TypeSet) *Classifier {
	if recognizer == nil {
		recognizer = dynobj.NewRecognizer(nil)
	}
	if wrappers == nil {
		wrappers = filter.NewWrapperTypeSet()
	}
	return &Classifier{heap: h, recognizer: recognizer, wrappers: wrappers}
}

// Classify maps one field to its display kind.
func (c *Classifier) Classify(field heap.FieldValue) *ClassifiedField {
	cf := &ClassifiedField{Field: field, classifier: c}

	if !field.IsReference() {
		cf.Kind = KindPrimitive
		cf.Ref = RefNone
		return cf
	}

	cf.Kind = KindReference
	switch {
	case field.IsNull():
		cf.Ref = RefNull
		return cf
	case c.heap == nil:
		cf.Ref = RefOpaque
		return cf
	}

	inst, ok := c.heap.Instance(field.RefID)
	if !ok {
		// dangling reference, the dump did not include the target
		cf.Ref = RefOpaque
		return cf
	}
	cf.RefClass = c.heap.ClassName(inst.ID)

	if obj := c.recognizer.Lookup(c.heap, inst.ID); obj != nil {
		cf.Kind = KindDynamicObject
		cf.Ref = RefDynamicObject
		cf.Object = obj
		return cf
	}

	switch {
	case inst.IsPrimitiveArray(), filter.IsPrimitiveArrayName(cf.RefClass):
		cf.Ref = RefPrimitiveArray
	case c.wrappers.Contains(cf.RefClass):
		// TODO: render wrapper contents (strings, boxed numbers) instead of a plain reference
		cf.Ref = RefWrapper
	default:
		cf.Ref = RefOpaque
	}
	return cf
}

// ClassifyAll classifies fields, preserving their order.
func (c *Classifier) ClassifyAll(fields []heap.FieldValue) []*ClassifiedField {
	if fields == nil {
		return nil
	}
	result := make([]*ClassifiedField, len(fields))
	for i, f := range fields {
		result[i] = c.Classify(f)
	}
	return result
}
