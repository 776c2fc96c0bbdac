package snapshot

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/heapwalker/internal/storage"
	"github.com/heapwalker/internal/testutil"
	"github.com/heapwalker/pkg/compression"
	apperrors "github.com/heapwalker/pkg/errors"
	"github.com/heapwalker/pkg/heap"
)

func TestDecode_Fixture(t *testing.T) {
	h, meta, err := Decode(bytes.NewReader(testutil.LoadFixture(t, "ruby_objects.json")))
	require.NoError(t, err)

	assert.Equal(t, Meta{Name: "checkout-worker", View: "ruby_objects"}, meta)
	assert.Equal(t, heap.Stats{Classes: 5, Instances: 4}, h.Stats())

	person, ok := h.Instance(4096)
	require.True(t, ok)
	require.Len(t, person.Fields, 3)
	assert.Equal(t, heap.TypeInt, person.Fields[0].Type)
	assert.Equal(t, "42", person.Fields[0].Value)
	assert.True(t, person.Fields[1].IsNull())
	assert.Equal(t, uint64(8192), person.Fields[2].RefID)

	arr, ok := h.Instance(16384)
	require.True(t, ok)
	assert.True(t, arr.IsPrimitiveArray())
	assert.Equal(t, heap.TypeByte, arr.ElementType)
	assert.Equal(t, 16, arr.Length)

	cls, ok := h.ClassByName("org.truffleruby.core.basicobject.RubyBasicObject")
	require.True(t, ok)
	require.Len(t, cls.StaticFields, 1)
	assert.True(t, cls.StaticFields[0].Static)
	assert.True(t, h.IsSubclassOf(cls.ID, "com.oracle.truffle.api.object.DynamicObject"))
}

func TestEncodeDecode_Compressed(t *testing.T) {
	src := testutil.RubyHeap(t)

	for _, ct := range []compression.Type{compression.TypeNone, compression.TypeGzip, compression.TypeZstd} {
		t.Run(ct.String(), func(t *testing.T) {
			var buf bytes.Buffer
			require.NoError(t, Encode(&buf, src, Meta{View: "ruby_objects"}, ct))
			assert.Equal(t, ct, compression.Detect(buf.Bytes()))

			h, meta, err := Decode(&buf)
			require.NoError(t, err)
			assert.Equal(t, "ruby_objects", meta.View)
			assert.Equal(t, src.Stats(), h.Stats())

			want, _ := src.Instance(testutil.RubyPerson)
			got, ok := h.Instance(testutil.RubyPerson)
			require.True(t, ok)
			assert.Equal(t, want, got)

			wantCls, _ := src.Class(testutil.ClassRubyObject)
			gotCls, ok := h.Class(testutil.ClassRubyObject)
			require.True(t, ok)
			assert.Equal(t, wantCls, gotCls)
		})
	}
}

func TestEncode_Deterministic(t *testing.T) {
	src := testutil.RubyHeap(t)

	var a, b bytes.Buffer
	require.NoError(t, Encode(&a, src, Meta{}, compression.TypeNone))
	require.NoError(t, Encode(&b, src, Meta{}, compression.TypeNone))
	assert.Equal(t, a.String(), b.String())
}

func TestDecode_Errors(t *testing.T) {
	tests := []struct {
		name string
		doc  string
	}{
		{name: "not json", doc: "heap dump"},
		{name: "unknown field type", doc: `{"classes":[{"id":1,"name":"A","static_fields":[{"name":"x","type":"decimal"}]}]}`},
		{name: "primitive with ref", doc: `{"classes":[{"id":1,"name":"A"}],"instances":[{"id":2,"class":1,"fields":[{"name":"x","type":"int","ref":3}]}]}`},
		{name: "unknown class", doc: `{"classes":[],"instances":[{"id":2,"class":1}]}`},
		{name: "duplicate class", doc: `{"classes":[{"id":1,"name":"A"},{"id":1,"name":"B"}]}`},
		{name: "zero instance id", doc: `{"classes":[{"id":1,"name":"A"}],"instances":[{"id":0,"class":1}]}`},
		{name: "unknown kind", doc: `{"classes":[{"id":1,"name":"A"}],"instances":[{"id":2,"class":1,"kind":"struct"}]}`},
		{name: "unknown element type", doc: `{"classes":[{"id":1,"name":"A"}],"instances":[{"id":2,"class":1,"element_type":"decimal"}]}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, _, err := Decode(strings.NewReader(tt.doc))
			require.Error(t, err)
			assert.Equal(t, apperrors.CodeParseError, apperrors.GetErrorCode(err))
		})
	}
}

func TestLoadSave(t *testing.T) {
	store, err := storage.NewLocalStorage(t.TempDir())
	require.NoError(t, err)
	ctx := context.Background()

	snap := &Snapshot{Heap: testutil.RubyHeap(t), Meta: Meta{View: "ruby_objects"}}
	require.NoError(t, Save(ctx, store, "dumps/worker-1.json.zst", snap))

	loaded, err := Load(ctx, store, "dumps/worker-1.json.zst")
	require.NoError(t, err)
	assert.Equal(t, "dumps/worker-1.json.zst", loaded.Key)
	assert.Equal(t, "worker-1", loaded.Meta.Name)
	assert.Equal(t, "ruby_objects", loaded.Meta.View)
	assert.Equal(t, snap.Heap.Stats(), loaded.Heap.Stats())
}

func TestLoad_Missing(t *testing.T) {
	store, err := storage.NewLocalStorage(t.TempDir())
	require.NoError(t, err)

	_, err = Load(context.Background(), store, "nope.json")
	require.Error(t, err)
	assert.True(t, apperrors.IsNotFound(err))
}

func TestSave_NoHeap(t *testing.T) {
	store, err := storage.NewLocalStorage(t.TempDir())
	require.NoError(t, err)

	err = Save(context.Background(), store, "a.json", &Snapshot{})
	assert.True(t, apperrors.IsInvalidInput(err))
}
