package provider

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/heapwalker/internal/dynobj"
	"github.com/heapwalker/internal/fields"
	"github.com/heapwalker/internal/nodes"
	"github.com/heapwalker/internal/testutil"
	"github.com/heapwalker/pkg/heap"
)

type stubProvider struct {
	name string
	view string
	buf  *nodes.Buffer
}

func (s *stubProvider) Name() string                                 { return s.name }
func (s *stubProvider) SupportsView(h heap.Heap, viewID string) bool { return viewID == s.view }
func (s *stubProvider) SupportsNode(parent nodes.Node, h heap.Heap, viewID string) bool {
	return true
}
func (s *stubProvider) GetNodes(parent nodes.Node, h heap.Heap, viewID string, req Request) *nodes.Buffer {
	return s.buf
}

func providerNames(ps []Provider) []string {
	result := make([]string, len(ps))
	for i, p := range ps {
		result[i] = p.Name()
	}
	return result
}

func TestRegistry_Ordering(t *testing.T) {
	r := NewRegistry()
	r.Register(&stubProvider{name: "late", view: "v"}, 300)
	r.Register(&stubProvider{name: "first", view: "v"}, 100)
	r.Register(&stubProvider{name: "tie-a", view: "v"}, 200)
	r.Register(&stubProvider{name: "tie-b", view: "other"}, 200)

	assert.Equal(t, []string{"first", "tie-a", "tie-b", "late"}, providerNames(r.All()))
	assert.Equal(t, []string{"first", "tie-a", "late"}, providerNames(r.ForView(nil, "v")))
	assert.Equal(t, []string{"tie-b"}, providerNames(r.ForView(nil, "other")))
}

func TestRegistry_GetNodesSkipsNilBuffers(t *testing.T) {
	r := NewRegistry()
	want := nodes.NewBuffer(10, nodes.SortByName, nodes.Ascending)
	r.Register(&stubProvider{name: "empty", view: "v"}, 1)
	r.Register(&stubProvider{name: "full", view: "v", buf: want}, 2)

	buf, p := r.GetNodes(nil, nil, "v", Request{})
	assert.Same(t, want, buf)
	require.NotNil(t, p)
	assert.Equal(t, "full", p.Name())

	buf, p = r.GetNodes(nil, nil, "none", Request{})
	assert.Nil(t, buf)
	assert.Nil(t, p)
}

func newFieldsProvider(pageSize int) *FieldsProvider {
	cfg := DefaultFieldsConfig()
	cfg.PageSize = pageSize
	return NewFieldsProvider(cfg, nil)
}

func TestFieldsProvider_Supports(t *testing.T) {
	h := testutil.RubyHeap(t)
	p := newFieldsProvider(0)
	obj := dynobj.NewRecognizer(nil).Lookup(h, testutil.RubyPerson)
	require.NotNil(t, obj)

	assert.Equal(t, "variables", p.Name())
	assert.True(t, p.SupportsView(h, "ruby_objects"))
	assert.False(t, p.SupportsView(h, "java_objects"))

	assert.True(t, p.SupportsNode(NewObjectNode(obj), h, "ruby_objects"))
	assert.False(t, p.SupportsNode(NewReferenceNode(obj, "@friend"), h, "ruby_objects"))

	c := fields.NewClassifier(h, nil, nil)
	dynField := NewFieldNode(c.Classify(heap.FieldValue{Name: "@friend", Type: heap.TypeObject, RefID: testutil.RubyFriend}))
	primField := NewFieldNode(c.Classify(heap.FieldValue{Name: "@age", Type: heap.TypeInt, Value: "1"}))
	assert.True(t, p.SupportsNode(dynField, h, "ruby_objects"))
	assert.False(t, p.SupportsNode(primField, h, "ruby_objects"))
}

func TestFieldsProvider_GetNodes(t *testing.T) {
	h := testutil.RubyHeap(t)
	p := newFieldsProvider(0)
	obj := dynobj.NewRecognizer(nil).Lookup(h, testutil.RubyPerson)

	buf := p.GetNodes(NewObjectNode(obj), h, "ruby_objects", Request{SortKey: nodes.SortByName, SortOrder: nodes.Ascending})
	require.NotNil(t, buf)

	entries := buf.Entries()
	require.Len(t, entries, 5)

	got := make(map[string]string)
	var order []string
	for _, e := range entries {
		order = append(order, e.Node.Name())
		got[e.Node.Name()] = e.Node.KindName()
	}
	assert.Equal(t, []string{"@age", "@friend", "@nick", "DEFAULT", "INSTANCES"}, order)
	assert.Equal(t, "PrimitiveField", got["@age"])
	assert.Equal(t, "DynamicObjectField", got["@friend"])
	assert.Equal(t, "ReferenceField", got["@nick"])
	assert.Equal(t, "ReferenceField", got["DEFAULT"])
	assert.Equal(t, "PrimitiveField", got["INSTANCES"])
}

func TestFieldsProvider_ExpandNestedField(t *testing.T) {
	h := testutil.RubyHeap(t)
	p := newFieldsProvider(0)
	obj := dynobj.NewRecognizer(nil).Lookup(h, testutil.RubyPerson)

	instanceOnly := fields.FilterConfig{IncludeInstance: true}
	entries := p.Entries(NewObjectNode(obj), instanceOnly, nodes.SortByName, nodes.Unsorted)
	require.Len(t, entries, 3)

	friend := entries[1].Node
	require.Equal(t, "@friend", friend.Name())

	children := p.Entries(friend, instanceOnly, nodes.SortByName, nodes.Ascending)
	require.Len(t, children, 3)
	assert.Equal(t, "@bytes", children[0].Node.Name())
	assert.Equal(t, "byte[]", children[0].Node.TypeName())
	assert.Equal(t, "@name", children[1].Node.Name())
	assert.Equal(t, "java.lang.String#0x3000", children[1].Node.DisplayValue())
}

func TestFieldsProvider_NotADynamicObject(t *testing.T) {
	h := testutil.RubyHeap(t)
	p := newFieldsProvider(0)
	c := fields.NewClassifier(h, nil, nil)

	prim := NewFieldNode(c.Classify(heap.FieldValue{Name: "@age", Type: heap.TypeInt}))
	assert.Nil(t, p.GetNodes(prim, h, "ruby_objects", Request{}))
	assert.Nil(t, p.Entries(prim, fields.DefaultFilterConfig(), nodes.SortByName, nodes.Ascending))
	assert.Nil(t, p.GetNodes(&stubNode{}, h, "ruby_objects", Request{}))
}

func TestFieldsProvider_Paging(t *testing.T) {
	h := testutil.WideHeap(t, 2500)
	p := newFieldsProvider(1000)
	obj := dynobj.NewRecognizer(nil).Lookup(h, testutil.RubyWide)
	require.NotNil(t, obj)

	buf := p.GetNodes(NewObjectNode(obj), h, "ruby_objects", Request{Filter: &fields.FilterConfig{IncludeInstance: true}})
	require.NotNil(t, buf)

	entries := buf.Entries()
	require.Len(t, entries, 1001)
	assert.Equal(t, "<another 1,500 properties left>", entries[1000].Trailer.Text)

	entries = buf.LoadMore()
	assert.Equal(t, 500, entries[len(entries)-1].Trailer.Remaining)

	entries = buf.LoadMore()
	assert.Len(t, entries, 2500)
	assert.Equal(t, nodes.StateFullyMaterialized, buf.State())
}

func TestFieldsProvider_RequestPageSizeOverride(t *testing.T) {
	h := testutil.WideHeap(t, 30)
	p := newFieldsProvider(1000)
	obj := dynobj.NewRecognizer(nil).Lookup(h, testutil.RubyWide)

	buf := p.GetNodes(NewObjectNode(obj), h, "ruby_objects", Request{PageSize: 10, Filter: &fields.FilterConfig{IncludeInstance: true}})
	assert.Equal(t, 10, buf.Materialized())
	assert.Equal(t, 20, buf.Remaining())
}

type stubNode struct{}

func (s *stubNode) Name() string         { return "stub" }
func (s *stubNode) KindName() string     { return "" }
func (s *stubNode) TypeName() string     { return "" }
func (s *stubNode) DisplayValue() string { return "" }
func (s *stubNode) ObjectID() uint64     { return 0 }
