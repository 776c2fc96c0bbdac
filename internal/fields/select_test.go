package fields

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/heapwalker/internal/dynobj"
	"github.com/heapwalker/internal/testutil"
	"github.com/heapwalker/pkg/heap"
)

func names(fields []heap.FieldValue) []string {
	result := make([]string, len(fields))
	for i, f := range fields {
		result[i] = f.Name
	}
	return result
}

func TestSelectFields(t *testing.T) {
	h := testutil.RubyHeap(t)
	obj := dynobj.NewRecognizer(nil).Lookup(h, testutil.RubyPerson)
	require.NotNil(t, obj)

	all := []string{"@age", "@nick", "@friend", "INSTANCES", "DEFAULT"}

	tests := []struct {
		name     string
		cfg      FilterConfig
		expected []string
	}{
		{"both", FilterConfig{IncludeInstance: true, IncludeStatic: true}, all},
		// both false still returns everything
		{"neither", FilterConfig{}, all},
		{"instance only", FilterConfig{IncludeInstance: true}, []string{"@age", "@nick", "@friend"}},
		{"static only", FilterConfig{IncludeStatic: true}, []string{"INSTANCES", "DEFAULT"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, names(SelectFields(obj, tt.cfg)))
		})
	}
}

func TestSelectFields_NilObject(t *testing.T) {
	assert.Nil(t, SelectFields(nil, DefaultFilterConfig()))
}

func TestSelectFields_DoesNotMutateSource(t *testing.T) {
	h := testutil.RubyHeap(t)
	obj := dynobj.NewRecognizer(nil).Lookup(h, testutil.RubyPerson)
	require.NotNil(t, obj)

	selected := SelectFields(obj, DefaultFilterConfig())
	selected[0].Name = "mutated"
	_ = append(selected[:1], heap.FieldValue{Name: "extra"})

	assert.Equal(t, []string{"@age", "@nick", "@friend"}, names(obj.FieldValues()))
	inst, _ := h.Instance(testutil.RubyPerson)
	assert.Equal(t, "@age", inst.Fields[0].Name)
}

func TestSelectAndClassify_Example(t *testing.T) {
	h := testutil.RubyHeap(t)
	obj := dynobj.NewRecognizer(nil).Lookup(h, testutil.RubyPerson)
	c := NewClassifier(h, nil, nil)

	got := c.ClassifyAll(SelectFields(obj, FilterConfig{IncludeInstance: true}))
	kinds := make([]Kind, len(got))
	for i, cf := range got {
		kinds[i] = cf.Kind
	}
	assert.Equal(t, []Kind{KindPrimitive, KindReference, KindDynamicObject}, kinds)
}
