package filter

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTypeSet_Contains(t *testing.T) {
	s := NewWrapperTypeSet()

	tests := []struct {
		name     string
		expected bool
	}{
		{"java.lang.String", true},
		{"java.lang.Integer", true},
		{"java.lang.Boolean", true},
		// exact membership only, no namespace prefix
		{"java.lang.Thread", false},
		{"java.lang.", false},
		{"java.lang.StringBuilder", false},
		{"org.truffleruby.core.string.RubyString", false},
		{"", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, s.Contains(tt.name))
		})
	}
}

func TestTypeSet_Add(t *testing.T) {
	s := NewTypeSet(" b ", "", "a")
	assert.Equal(t, 2, s.Len())
	assert.True(t, s.Contains("a"))

	s.Add("c", "a")
	assert.Equal(t, []string{"a", "b", "c"}, s.Names())
}

func TestTypeSet_Nil(t *testing.T) {
	var s *TypeSet
	assert.False(t, s.Contains("java.lang.String"))
	assert.Equal(t, 0, s.Len())
	assert.Nil(t, s.Names())
}

func TestTypeSet_ConcurrentAccess(t *testing.T) {
	s := NewTypeSet()
	var wg sync.WaitGroup

	for i := 0; i < 10; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			s.Add("java.lang.Long")
		}()
		go func() {
			defer wg.Done()
			_ = s.Contains("java.lang.Long")
		}()
	}
	wg.Wait()

	assert.True(t, s.Contains("java.lang.Long"))
}

func TestIsPrimitiveArrayName(t *testing.T) {
	assert.True(t, IsPrimitiveArrayName("byte[]"))
	assert.True(t, IsPrimitiveArrayName("double[]"))
	assert.False(t, IsPrimitiveArrayName("java.lang.Object[]"))
	assert.False(t, IsPrimitiveArrayName("int"))
}
