package fields

import (
	"github.com/heapwalker/internal/dynobj"
	"github.com/heapwalker/pkg/heap"
)

// FilterConfig selects which field groups of an object are shown.
type FilterConfig struct {
	IncludeInstance bool `mapstructure:"include_instance" json:"include_instance"`
	IncludeStatic   bool `mapstructure:"include_static" json:"include_static"`
}

// DefaultFilterConfig includes both instance and static fields.
func DefaultFilterConfig() FilterConfig {
	return FilterConfig{IncludeInstance: true, IncludeStatic: true}
}

// SelectFields returns the fields of obj chosen by cfg, instance fields first.
//
// When both flags are equal the result holds both groups. That includes the
// case where both are false; flags are not user-configurable per object yet,
// so "show nothing" has never been a reachable request.
func SelectFields(obj *dynobj.DynamicObject, cfg FilterConfig) []heap.FieldValue {
	if obj == nil {
		return nil
	}

	switch {
	case cfg.IncludeInstance == cfg.IncludeStatic:
		fields := obj.FieldValues()
		return append(fields, obj.StaticFieldValues()...)
	case cfg.IncludeInstance:
		return obj.FieldValues()
	default:
		return obj.StaticFieldValues()
	}
}
