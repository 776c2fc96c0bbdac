// Package snapshot reads and writes reconstructed heap snapshots.
//
// A snapshot is a JSON document listing classes and instances, optionally
// compressed with gzip or zstd:
//
//	{
//	  "name": "checkout-worker",
//	  "view": "ruby_objects",
//	  "classes":   [{"id": 3, "name": "...", "super": 2, "static_fields": [...]}],
//	  "instances": [{"id": 4096, "class": 3, "fields": [{"name": "@age", "type": "int", "value": "42"}]}]
//	}
package snapshot

import (
	"fmt"
	"strings"

	"github.com/heapwalker/pkg/heap"
)

// Meta describes a snapshot.
type Meta struct {
	Name string `json:"name,omitempty"`
	// View is the heap view the snapshot is browsed under, e.g. "ruby_objects".
	View string `json:"view,omitempty"`
}

type document struct {
	Meta
	Classes   []classDoc    `json:"classes"`
	Instances []instanceDoc `json:"instances"`
}

type classDoc struct {
	ID             uint64     `json:"id"`
	Name           string     `json:"name"`
	Super          uint64     `json:"super,omitempty"`
	InstanceFields []fieldDoc `json:"instance_fields,omitempty"`
	StaticFields   []fieldDoc `json:"static_fields,omitempty"`
}

type instanceDoc struct {
	ID          uint64     `json:"id"`
	Class       uint64     `json:"class"`
	Kind        string     `json:"kind,omitempty"`
	ElementType string     `json:"element_type,omitempty"`
	Length      int        `json:"length,omitempty"`
	Fields      []fieldDoc `json:"fields,omitempty"`
}

type fieldDoc struct {
	Name  string `json:"name"`
	Type  string `json:"type"`
	Value string `json:"value,omitempty"`
	Ref   uint64 `json:"ref,omitempty"`
}

func (f fieldDoc) toField(static bool) (heap.FieldValue, error) {
	t, ok := heap.ParseBasicType(f.Type)
	if !ok {
		return heap.FieldValue{}, fmt.Errorf("field %q: unknown type %q", f.Name, f.Type)
	}
	if t != heap.TypeObject && f.Ref != 0 {
		return heap.FieldValue{}, fmt.Errorf("field %q: primitive %s field carries a reference", f.Name, f.Type)
	}
	return heap.FieldValue{Name: f.Name, Type: t, Static: static, Value: f.Value, RefID: f.Ref}, nil
}

func fromField(f heap.FieldValue) fieldDoc {
	return fieldDoc{Name: f.Name, Type: f.Type.String(), Value: f.Value, Ref: f.RefID}
}

func toFields(docs []fieldDoc, static bool) ([]heap.FieldValue, error) {
	if len(docs) == 0 {
		return nil, nil
	}
	out := make([]heap.FieldValue, len(docs))
	for i, d := range docs {
		f, err := d.toField(static)
		if err != nil {
			return nil, err
		}
		out[i] = f
	}
	return out, nil
}

func fromFields(fields []heap.FieldValue) []fieldDoc {
	if len(fields) == 0 {
		return nil
	}
	out := make([]fieldDoc, len(fields))
	for i, f := range fields {
		out[i] = fromField(f)
	}
	return out
}

func parseKind(s string) (heap.InstanceKind, error) {
	switch strings.ToLower(s) {
	case "", "instance":
		return heap.KindInstance, nil
	case "object_array":
		return heap.KindObjectArray, nil
	case "primitive_array":
		return heap.KindPrimitiveArray, nil
	default:
		return 0, fmt.Errorf("unknown instance kind %q", s)
	}
}
