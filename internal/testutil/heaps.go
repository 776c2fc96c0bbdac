package testutil

import (
	"fmt"
	"testing"

	"github.com/heapwalker/pkg/heap"
)

// Class IDs of the fixture heap.
const (
	ClassObject        uint64 = 1
	ClassDynamicObject uint64 = 2
	ClassRubyObject    uint64 = 3
	ClassString        uint64 = 4
	ClassByteArray     uint64 = 5
	ClassThread        uint64 = 6
	ClassInteger       uint64 = 7
)

// Object IDs of the fixture heap.
const (
	// RubyPerson has fields @age (int), @nick (null) and @friend (RubyFriend).
	RubyPerson uint64 = 0x1000
	// RubyFriend has fields @name (String), @bytes (byte[]) and @thread (Thread).
	RubyFriend uint64 = 0x2000
	StringName uint64 = 0x3000
	ByteArray  uint64 = 0x4000
	Thread     uint64 = 0x5000
	BoxedInt   uint64 = 0x6000
	// RubyWide has many primitive fields, see WideFieldCount.
	RubyWide uint64 = 0x7000
)

// DynamicObjectType is the dynamic object base class used by the fixture heap.
const DynamicObjectType = "com.oracle.truffle.api.object.DynamicObject"

// RubyHeap builds a small heap with Ruby dynamic objects, JDK wrappers,
// a primitive array and an opaque object.
func RubyHeap(t *testing.T) *heap.MemoryHeap {
	t.Helper()
	h := heap.NewMemoryHeap()

	must := func(err error) {
		if err != nil {
			t.Fatalf("failed to build fixture heap: %v", err)
		}
	}

	must(h.AddClass(&heap.Class{ID: ClassObject, Name: "java.lang.Object"}))
	must(h.AddClass(&heap.Class{ID: ClassDynamicObject, Name: DynamicObjectType, SuperClassID: ClassObject}))
	must(h.AddClass(&heap.Class{
		ID: ClassRubyObject, Name: "org.truffleruby.core.basicobject.RubyBasicObject", SuperClassID: ClassDynamicObject,
		StaticFields: []heap.FieldValue{
			{Name: "INSTANCES", Type: heap.TypeLong, Value: "2"},
			{Name: "DEFAULT", Type: heap.TypeObject, RefID: BoxedInt},
		},
	}))
	must(h.AddClass(&heap.Class{ID: ClassString, Name: "java.lang.String", SuperClassID: ClassObject}))
	must(h.AddClass(&heap.Class{ID: ClassByteArray, Name: "byte[]"}))
	must(h.AddClass(&heap.Class{ID: ClassThread, Name: "java.lang.Thread", SuperClassID: ClassObject}))
	must(h.AddClass(&heap.Class{ID: ClassInteger, Name: "java.lang.Integer", SuperClassID: ClassObject}))

	must(h.AddInstance(&heap.Instance{
		ID: RubyPerson, ClassID: ClassRubyObject,
		Fields: []heap.FieldValue{
			{Name: "@age", Type: heap.TypeInt, Value: "42"},
			{Name: "@nick", Type: heap.TypeObject},
			{Name: "@friend", Type: heap.TypeObject, RefID: RubyFriend},
		},
	}))
	must(h.AddInstance(&heap.Instance{
		ID: RubyFriend, ClassID: ClassRubyObject,
		Fields: []heap.FieldValue{
			{Name: "@name", Type: heap.TypeObject, RefID: StringName},
			{Name: "@bytes", Type: heap.TypeObject, RefID: ByteArray},
			{Name: "@thread", Type: heap.TypeObject, RefID: Thread},
		},
	}))
	must(h.AddInstance(&heap.Instance{ID: StringName, ClassID: ClassString}))
	must(h.AddInstance(&heap.Instance{ID: ByteArray, ClassID: ClassByteArray, Kind: heap.KindPrimitiveArray, ElementType: heap.TypeByte, Length: 16}))
	must(h.AddInstance(&heap.Instance{ID: Thread, ClassID: ClassThread}))
	must(h.AddInstance(&heap.Instance{ID: BoxedInt, ClassID: ClassInteger}))

	return h
}

// WideHeap extends RubyHeap with RubyWide, a dynamic object with n int fields
// named f0000, f0001, ... whose values count down from n-1.
func WideHeap(t *testing.T, n int) *heap.MemoryHeap {
	t.Helper()
	h := RubyHeap(t)

	fields := make([]heap.FieldValue, n)
	for i := 0; i < n; i++ {
		fields[i] = heap.FieldValue{
			Name:  fmt.Sprintf("f%04d", i),
			Type:  heap.TypeInt,
			Value: fmt.Sprintf("%d", n-1-i),
		}
	}
	if err := h.AddInstance(&heap.Instance{ID: RubyWide, ClassID: ClassRubyObject, Fields: fields}); err != nil {
		t.Fatalf("failed to build wide heap: %v", err)
	}
	return h
}
