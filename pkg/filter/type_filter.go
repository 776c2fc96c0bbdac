// Package filter provides explicit type-name sets used to classify referenced
// heap objects. Membership is by exact name; there is no prefix matching, so a
// runtime's class-naming convention never leaks into classification.
package filter

import (
	"sort"
	"strings"
	"sync"
)

// DefaultWrapperTypes are the boxed scalar and string types of the JVM that a
// field browser treats as transparent values rather than opaque objects.
var DefaultWrapperTypes = []string{
	"java.lang.Boolean",
	"java.lang.Byte",
	"java.lang.Character",
	"java.lang.Double",
	"java.lang.Float",
	"java.lang.Integer",
	"java.lang.Long",
	"java.lang.Short",
	"java.lang.String",
}

// DefaultDynamicObjectTypes are the base classes of Truffle dynamic objects.
var DefaultDynamicObjectTypes = []string{
	"com.oracle.truffle.api.object.DynamicObject",
}

// TypeSet is an enumerated set of type names. It is safe for concurrent use.
type TypeSet struct {
	mu    sync.RWMutex
	names map[string]struct{}
}

// NewTypeSet creates a set holding the given names. Blank names are ignored.
func NewTypeSet(names ...string) *TypeSet {
	s := &TypeSet{names: make(map[string]struct{}, len(names))}
	s.Add(names...)
	return s
}

// NewWrapperTypeSet creates a set of DefaultWrapperTypes.
func NewWrapperTypeSet() *TypeSet {
	return NewTypeSet(DefaultWrapperTypes...)
}

// Add adds names to the set.
func (s *TypeSet) Add(names ...string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, name := range names {
		name = strings.TrimSpace(name)
		if name == "" {
			continue
		}
		s.names[name] = struct{}{}
	}
}

// Contains reports whether name is in the set. A nil set contains nothing.
func (s *TypeSet) Contains(name string) bool {
	if s == nil || name == "" {
		return false
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	_, ok := s.names[name]
	return ok
}

// Len returns the number of names in the set.
func (s *TypeSet) Len() int {
	if s == nil {
		return 0
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	return len(s.names)
}

// Names returns the sorted contents of the set.
func (s *TypeSet) Names() []string {
	if s == nil {
		return nil
	}
	s.mu.RLock()
	result := make([]string, 0, len(s.names))
	for name := range s.names {
		result = append(result, name)
	}
	s.mu.RUnlock()

	sort.Strings(result)
	return result
}

// IsPrimitiveArrayName reports whether a type name denotes an array of a JVM primitive type.
func IsPrimitiveArrayName(name string) bool {
	switch name {
	case "byte[]", "char[]", "int[]", "long[]", "short[]", "boolean[]", "float[]", "double[]":
		return true
	}
	return false
}
