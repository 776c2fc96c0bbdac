// Package heap defines the read-only heap model that field browsers consume.
// A Heap is a reconstructed snapshot: classes, instances and their field values,
// keyed by the object IDs found in the original dump.
package heap

import "strings"

// BasicType represents the JVM basic type of a field or array element.
type BasicType uint8

const (
	TypeObject  BasicType = 2
	TypeBoolean BasicType = 4
	TypeChar    BasicType = 5
	TypeFloat   BasicType = 6
	TypeDouble  BasicType = 7
	TypeByte    BasicType = 8
	TypeShort   BasicType = 9
	TypeInt     BasicType = 10
	TypeLong    BasicType = 11
)

// String converts a BasicType to its Java name.
func (t BasicType) String() string {
	switch t {
	case TypeObject:
		return "object"
	case TypeBoolean:
		return "boolean"
	case TypeChar:
		return "char"
	case TypeFloat:
		return "float"
	case TypeDouble:
		return "double"
	case TypeByte:
		return "byte"
	case TypeShort:
		return "short"
	case TypeInt:
		return "int"
	case TypeLong:
		return "long"
	default:
		return "unknown"
	}
}

// ParseBasicType parses a type name produced by String. Unknown names yield false.
func ParseBasicType(s string) (BasicType, bool) {
	switch strings.ToLower(s) {
	case "object", "ref", "reference":
		return TypeObject, true
	case "boolean", "bool":
		return TypeBoolean, true
	case "char":
		return TypeChar, true
	case "float":
		return TypeFloat, true
	case "double":
		return TypeDouble, true
	case "byte":
		return TypeByte, true
	case "short":
		return TypeShort, true
	case "int":
		return TypeInt, true
	case "long":
		return TypeLong, true
	default:
		return 0, false
	}
}

// InstanceKind distinguishes plain instances from arrays.
type InstanceKind uint8

const (
	KindInstance InstanceKind = iota
	KindObjectArray
	KindPrimitiveArray
)

// String returns the string representation of the kind.
func (k InstanceKind) String() string {
	switch k {
	case KindObjectArray:
		return "object_array"
	case KindPrimitiveArray:
		return "primitive_array"
	default:
		return "instance"
	}
}

// FieldValue is a single named field of an instance or class.
type FieldValue struct {
	Name   string
	Type   BasicType
	Static bool
	// Value holds the display form of a primitive value.
	Value string
	// RefID is the referenced object for TypeObject fields; 0 means null.
	RefID uint64
}

// IsReference reports whether the field holds an object reference (possibly null).
func (f FieldValue) IsReference() bool {
	return f.Type == TypeObject
}

// IsNull reports whether the field is a null reference.
func (f FieldValue) IsNull() bool {
	return f.Type == TypeObject && f.RefID == 0
}

// Class holds class metadata together with its declared fields.
type Class struct {
	ID           uint64
	Name         string
	SuperClassID uint64
	// InstanceFields lists declared instance field names and types; values live on instances.
	InstanceFields []FieldValue
	StaticFields   []FieldValue
}

// Instance is a heap object.
type Instance struct {
	ID          uint64
	ClassID     uint64
	Kind        InstanceKind
	ElementType BasicType
	Length      int
	Fields      []FieldValue
}

// IsPrimitiveArray reports whether the instance is an array of primitive values.
func (i *Instance) IsPrimitiveArray() bool {
	return i != nil && i.Kind == KindPrimitiveArray
}

// Heap is the read-only heap data provider.
type Heap interface {
	// Instance looks up an object by ID.
	Instance(id uint64) (*Instance, bool)
	// Class looks up a class by ID.
	Class(id uint64) (*Class, bool)
	// ClassByName looks up a class by its fully qualified name.
	ClassByName(name string) (*Class, bool)
	// ClassName resolves the type name of an object, or "" when unknown.
	ClassName(instanceID uint64) string
	// IsSubclassOf reports whether the class, or any of its superclasses, is named name.
	IsSubclassOf(classID uint64, name string) bool
	// Stats returns the number of classes and instances.
	Stats() Stats
}

// Stats summarizes heap contents.
type Stats struct {
	Classes   int `json:"classes"`
	Instances int `json:"instances"`
}
