package nodes

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type testNode struct {
	name  string
	kind  string
	typ   string
	value string
	id    uint64
}

func (n *testNode) Name() string         { return n.name }
func (n *testNode) KindName() string     { return n.kind }
func (n *testNode) TypeName() string     { return n.typ }
func (n *testNode) DisplayValue() string { return n.value }
func (n *testNode) ObjectID() uint64     { return n.id }

func manyNodes(n int) []Node {
	result := make([]Node, n)
	for i := 0; i < n; i++ {
		// reverse insertion order so sorting is observable
		result[i] = &testNode{name: fmt.Sprintf("p%05d", n-1-i), value: fmt.Sprintf("%d", i)}
	}
	return result
}

func entryNames(entries []Entry) []string {
	var result []string
	for _, e := range entries {
		if e.IsTrailer() {
			result = append(result, "<trailer>")
			continue
		}
		result = append(result, e.Node.Name())
	}
	return result
}

func TestBuffer_Pagination(t *testing.T) {
	b := NewBuffer(1000, SortByName, Ascending, WithMoreItemsText(func(left string) string {
		return "<another " + left + " properties left>"
	}))
	b.Add(manyNodes(2500)...)
	assert.Equal(t, StatePartiallyMaterialized, b.State())

	entries := b.Entries()
	require.Len(t, entries, 1001)
	assert.Equal(t, "p00000", entries[0].Node.Name())
	assert.Equal(t, "p00999", entries[999].Node.Name())
	require.True(t, entries[1000].IsTrailer())
	assert.Equal(t, 1500, entries[1000].Trailer.Remaining)
	assert.Equal(t, "<another 1,500 properties left>", entries[1000].Trailer.Text)

	entries = b.LoadMore()
	require.Len(t, entries, 2001)
	assert.Equal(t, 2000, b.Materialized())
	assert.Equal(t, 500, entries[2000].Trailer.Remaining)
	assert.Equal(t, StatePartiallyMaterialized, b.State())

	entries = b.LoadMore()
	require.Len(t, entries, 2500)
	for _, e := range entries {
		assert.False(t, e.IsTrailer())
	}
	assert.Equal(t, StateFullyMaterialized, b.State())
	assert.Equal(t, 0, b.Remaining())

	// terminal state
	entries = b.LoadMore()
	assert.Len(t, entries, 2500)
	assert.Equal(t, StateFullyMaterialized, b.State())
}

func TestBuffer_Empty(t *testing.T) {
	b := NewBuffer(0, SortByName, Unsorted)
	assert.Equal(t, DefaultPageSize, b.PageSize())
	assert.Equal(t, StateEmpty, b.State())
	assert.Empty(t, b.Entries())
	assert.Empty(t, b.LoadMore())
	assert.Equal(t, StateEmpty, b.State())
}

func TestBuffer_DefaultTrailerText(t *testing.T) {
	b := NewBuffer(2, SortByName, Unsorted)
	b.Add(manyNodes(1236)...)
	entries := b.Entries()
	assert.Equal(t, "<another 1,234 items left>", entries[len(entries)-1].Trailer.Text)
}

func TestBuffer_Idempotent(t *testing.T) {
	build := func() *Buffer {
		b := NewBuffer(10, SortByValue, Descending)
		b.Add(manyNodes(25)...)
		return b
	}

	b := build()
	first := b.Entries()
	second := b.Entries()
	assert.Equal(t, first, second)
	assert.Equal(t, entryNames(first), entryNames(build().Entries()))
}

func TestBuffer_StableSort(t *testing.T) {
	b := NewBuffer(10, SortByKind, Ascending)
	b.Add(
		&testNode{name: "c", kind: "ReferenceField"},
		&testNode{name: "a", kind: "PrimitiveField"},
		&testNode{name: "b", kind: "ReferenceField"},
		&testNode{name: "d", kind: "PrimitiveField"},
	)
	assert.Equal(t, []string{"a", "d", "c", "b"}, entryNames(b.Entries()))

	desc := NewBuffer(10, SortByKind, Descending)
	desc.Add(
		&testNode{name: "c", kind: "ReferenceField"},
		&testNode{name: "a", kind: "PrimitiveField"},
		&testNode{name: "b", kind: "ReferenceField"},
		&testNode{name: "d", kind: "PrimitiveField"},
	)
	// equal keys keep insertion order in either direction
	assert.Equal(t, []string{"c", "b", "a", "d"}, entryNames(desc.Entries()))
}

func TestBuffer_SortKeys(t *testing.T) {
	nodes := []Node{
		&testNode{name: "b", typ: "java.lang.String", value: "100", id: 3},
		&testNode{name: "a", typ: "int", value: "9", id: 1},
		&testNode{name: "c", typ: "boolean", value: "true", id: 2},
	}

	tests := []struct {
		key      SortKey
		order    SortOrder
		expected []string
	}{
		{SortByName, Unsorted, []string{"a", "b", "c"}},
		{SortByName, Descending, []string{"c", "b", "a"}},
		{SortByType, Ascending, []string{"c", "a", "b"}},
		{SortByValue, Ascending, []string{"a", "b", "c"}},
		{SortByObjectID, Descending, []string{"b", "c", "a"}},
	}

	for _, tt := range tests {
		t.Run(tt.key.String()+"_"+tt.order.String(), func(t *testing.T) {
			b := NewBuffer(10, tt.key, tt.order)
			b.Add(nodes...)
			assert.Equal(t, tt.expected, entryNames(b.Entries()))
		})
	}
}

func TestBuffer_AddAfterLoadMore(t *testing.T) {
	b := NewBuffer(2, SortByName, Ascending)
	b.Add(&testNode{name: "b"}, &testNode{name: "d"}, &testNode{name: "f"})
	b.LoadMore()
	assert.Equal(t, StateFullyMaterialized, b.State())

	b.Add(&testNode{name: "a"}, nil)
	assert.Equal(t, 4, b.Len())
	assert.Equal(t, []string{"a", "b", "d", "f"}, entryNames(b.Entries()))
}

func TestParseSortKeyAndOrder(t *testing.T) {
	key, err := ParseSortKey("")
	require.NoError(t, err)
	assert.Equal(t, SortByName, key)

	key, err = ParseSortKey("Value")
	require.NoError(t, err)
	assert.Equal(t, SortByValue, key)

	_, err = ParseSortKey("size")
	assert.Error(t, err)

	order, err := ParseSortOrder("")
	require.NoError(t, err)
	assert.Equal(t, Unsorted, order)

	order, err = ParseSortOrder("DESC")
	require.NoError(t, err)
	assert.Equal(t, Descending, order)

	_, err = ParseSortOrder("sideways")
	assert.Error(t, err)
}

func TestCompareValues(t *testing.T) {
	assert.Equal(t, -1, compareValues("9", "10"))
	assert.Equal(t, -1, compareValues("9", "abc"))
	assert.Equal(t, 1, compareValues("null", "1.5"))
	assert.Equal(t, 0, compareValues("x", "x"))
}
