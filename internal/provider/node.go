package provider

import (
	"github.com/heapwalker/internal/dynobj"
	"github.com/heapwalker/internal/fields"
	"github.com/heapwalker/internal/nodes"
)

// ObjectHolder is implemented by nodes that stand for a dynamic object and can
// therefore be expanded into its fields.
type ObjectHolder interface {
	DynamicObject() *dynobj.DynamicObject
}

// Referencing is implemented by nodes that only point at an object, such as
// an entry in a "referenced by" list. Field providers do not expand them.
type Referencing interface {
	IsReference() bool
}

// ObjectNode is the root node of a dynamic object.
type ObjectNode struct {
	object *dynobj.DynamicObject
}

// NewObjectNode creates a root node for obj.
func NewObjectNode(obj *dynobj.DynamicObject) *ObjectNode {
	return &ObjectNode{object: obj}
}

// DynamicObject implements ObjectHolder.
func (n *ObjectNode) DynamicObject() *dynobj.DynamicObject { return n.object }

// Name implements nodes.Node.
func (n *ObjectNode) Name() string { return n.object.DisplayName() }

// KindName implements nodes.Node.
func (n *ObjectNode) KindName() string { return "DynamicObject" }

// TypeName implements nodes.Node.
func (n *ObjectNode) TypeName() string { return n.object.TypeName() }

// DisplayValue implements nodes.Node.
func (n *ObjectNode) DisplayValue() string { return n.object.DisplayName() }

// ObjectID implements nodes.Node.
func (n *ObjectNode) ObjectID() uint64 { return n.object.ID() }

// ReferenceNode points at a dynamic object from elsewhere in the heap.
type ReferenceNode struct {
	ObjectNode
	Referrer string
}

// NewReferenceNode creates a reference node for obj seen through referrer.
func NewReferenceNode(obj *dynobj.DynamicObject, referrer string) *ReferenceNode {
	return &ReferenceNode{ObjectNode: ObjectNode{object: obj}, Referrer: referrer}
}

// IsReference implements Referencing.
func (n *ReferenceNode) IsReference() bool { return true }

// Name implements nodes.Node.
func (n *ReferenceNode) Name() string { return n.Referrer }

// FieldNode displays one classified field.
type FieldNode struct {
	Field *fields.ClassifiedField
}

// NewFieldNode wraps a classified field.
func NewFieldNode(cf *fields.ClassifiedField) *FieldNode {
	return &FieldNode{Field: cf}
}

// DynamicObject implements ObjectHolder; it is nil unless the field is a DynamicObjectField.
func (n *FieldNode) DynamicObject() *dynobj.DynamicObject { return n.Field.Object }

// Name implements nodes.Node.
func (n *FieldNode) Name() string { return n.Field.Name() }

// KindName implements nodes.Node.
func (n *FieldNode) KindName() string { return n.Field.Kind.String() }

// TypeName implements nodes.Node.
func (n *FieldNode) TypeName() string { return n.Field.TypeName() }

// DisplayValue implements nodes.Node.
func (n *FieldNode) DisplayValue() string { return n.Field.DisplayValue() }

// ObjectID implements nodes.Node.
func (n *FieldNode) ObjectID() uint64 { return n.Field.Field.RefID }

var (
	_ nodes.Node   = (*ObjectNode)(nil)
	_ nodes.Node   = (*ReferenceNode)(nil)
	_ nodes.Node   = (*FieldNode)(nil)
	_ ObjectHolder = (*FieldNode)(nil)
	_ Referencing  = (*ReferenceNode)(nil)
)
