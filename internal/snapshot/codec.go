package snapshot

import (
	"io"
	"sort"

	jsoniter "github.com/json-iterator/go"

	"github.com/heapwalker/pkg/compression"
	apperrors "github.com/heapwalker/pkg/errors"
	"github.com/heapwalker/pkg/heap"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// Decode reads a snapshot document, decompressing it if needed, and builds
// the in-memory heap it describes.
func Decode(r io.Reader) (*heap.MemoryHeap, Meta, error) {
	rc, _, err := compression.NewReader(r)
	if err != nil {
		return nil, Meta{}, apperrors.Wrap(apperrors.CodeParseError, "failed to open snapshot", err)
	}
	defer rc.Close()

	var doc document
	if err := json.NewDecoder(rc).Decode(&doc); err != nil {
		return nil, Meta{}, apperrors.Wrap(apperrors.CodeParseError, "failed to decode snapshot", err)
	}

	h, err := build(&doc)
	if err != nil {
		return nil, Meta{}, err
	}
	return h, doc.Meta, nil
}

func build(doc *document) (*heap.MemoryHeap, error) {
	h := heap.NewMemoryHeap()

	for _, cd := range doc.Classes {
		instanceFields, err := toFields(cd.InstanceFields, false)
		if err != nil {
			return nil, apperrors.Wrap(apperrors.CodeParseError, "class "+cd.Name, err)
		}
		staticFields, err := toFields(cd.StaticFields, true)
		if err != nil {
			return nil, apperrors.Wrap(apperrors.CodeParseError, "class "+cd.Name, err)
		}
		if err := h.AddClass(&heap.Class{
			ID:             cd.ID,
			Name:           cd.Name,
			SuperClassID:   cd.Super,
			InstanceFields: instanceFields,
			StaticFields:   staticFields,
		}); err != nil {
			return nil, apperrors.Wrap(apperrors.CodeParseError, "invalid class", err)
		}
	}

	for _, id := range doc.Instances {
		kind, err := parseKind(id.Kind)
		if err != nil {
			return nil, apperrors.Wrap(apperrors.CodeParseError, "invalid instance", err)
		}
		var elementType heap.BasicType
		if id.ElementType != "" {
			t, ok := heap.ParseBasicType(id.ElementType)
			if !ok {
				return nil, apperrors.Newf(apperrors.CodeParseError, "instance 0x%x: unknown element type %q", id.ID, id.ElementType)
			}
			elementType = t
		}
		fields, err := toFields(id.Fields, false)
		if err != nil {
			return nil, apperrors.Wrap(apperrors.CodeParseError, "invalid instance", err)
		}
		if err := h.AddInstance(&heap.Instance{
			ID:          id.ID,
			ClassID:     id.Class,
			Kind:        kind,
			ElementType: elementType,
			Length:      id.Length,
			Fields:      fields,
		}); err != nil {
			return nil, apperrors.Wrap(apperrors.CodeParseError, "invalid instance", err)
		}
	}

	return h, nil
}

// Encode writes h as a snapshot document compressed with ct.
// Classes and instances are written in ID order so output is reproducible.
func Encode(w io.Writer, h *heap.MemoryHeap, meta Meta, ct compression.Type) error {
	cw, err := compression.NewWriter(w, ct)
	if err != nil {
		return apperrors.Wrap(apperrors.CodeInvalidInput, "invalid compression", err)
	}

	doc := document{Meta: meta}

	classes := h.Classes()
	sort.Slice(classes, func(i, j int) bool { return classes[i].ID < classes[j].ID })
	doc.Classes = make([]classDoc, len(classes))
	for i, c := range classes {
		doc.Classes[i] = classDoc{
			ID:             c.ID,
			Name:           c.Name,
			Super:          c.SuperClassID,
			InstanceFields: fromFields(c.InstanceFields),
			StaticFields:   fromFields(c.StaticFields),
		}
	}

	instances := h.Instances()
	sort.Slice(instances, func(i, j int) bool { return instances[i].ID < instances[j].ID })
	doc.Instances = make([]instanceDoc, len(instances))
	for i, inst := range instances {
		d := instanceDoc{
			ID:     inst.ID,
			Class:  inst.ClassID,
			Length: inst.Length,
			Fields: fromFields(inst.Fields),
		}
		if inst.Kind != heap.KindInstance {
			d.Kind = inst.Kind.String()
		}
		if inst.ElementType != 0 {
			d.ElementType = inst.ElementType.String()
		}
		doc.Instances[i] = d
	}

	if err := json.NewEncoder(cw).Encode(&doc); err != nil {
		cw.Close()
		return apperrors.Wrap(apperrors.CodeStorageError, "failed to encode snapshot", err)
	}
	if err := cw.Close(); err != nil {
		return apperrors.Wrap(apperrors.CodeStorageError, "failed to flush snapshot", err)
	}
	return nil
}
