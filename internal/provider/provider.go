// Package provider connects heap browser views to node providers. A view host
// asks a Registry which providers support a view and a parent node, and the
// first supporting provider builds the child nodes.
package provider

import (
	"sort"
	"sync"

	"github.com/heapwalker/internal/fields"
	"github.com/heapwalker/internal/nodes"
	"github.com/heapwalker/pkg/heap"
)

// Request carries the per-expansion display parameters.
type Request struct {
	// Filter overrides the provider's default field filter when set.
	Filter    *fields.FilterConfig
	SortKey   nodes.SortKey
	SortOrder nodes.SortOrder
	// PageSize overrides the provider's page size when positive.
	PageSize int
}

// Provider builds child nodes for parent nodes in a view.
type Provider interface {
	// Name identifies the provider, e.g. "variables".
	Name() string
	// SupportsView reports whether the provider contributes to the view.
	SupportsView(h heap.Heap, viewID string) bool
	// SupportsNode reports whether the provider can expand parent.
	SupportsNode(parent nodes.Node, h heap.Heap, viewID string) bool
	// GetNodes returns a buffer with the children of parent, or nil when the
	// parent does not represent anything the provider understands.
	GetNodes(parent nodes.Node, h heap.Heap, viewID string, req Request) *nodes.Buffer
}

type registration struct {
	provider Provider
	position int
	seq      int
}

// Registry is an ordered list of providers. Lower positions come first;
// providers registered at the same position keep registration order.
type Registry struct {
	mu      sync.RWMutex
	entries []registration
	seq     int
}

// NewRegistry creates an empty Registry.
func NewRegistry() *Registry {
	return &Registry{}
}

// Register adds p at position.
func (r *Registry) Register(p Provider, position int) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.seq++
	r.entries = append(r.entries, registration{provider: p, position: position, seq: r.seq})
	sort.SliceStable(r.entries, func(i, j int) bool {
		if r.entries[i].position != r.entries[j].position {
			return r.entries[i].position < r.entries[j].position
		}
		return r.entries[i].seq < r.entries[j].seq
	})
}

// All returns every registered provider in priority order.
func (r *Registry) All() []Provider {
	r.mu.RLock()
	defer r.mu.RUnlock()

	result := make([]Provider, len(r.entries))
	for i, e := range r.entries {
		result[i] = e.provider
	}
	return result
}

// ForView returns the providers that support viewID, in priority order.
func (r *Registry) ForView(h heap.Heap, viewID string) []Provider {
	var result []Provider
	for _, p := range r.All() {
		if p.SupportsView(h, viewID) {
			result = append(result, p)
		}
	}
	return result
}

// ForNode returns the providers that support both viewID and parent.
func (r *Registry) ForNode(parent nodes.Node, h heap.Heap, viewID string) []Provider {
	var result []Provider
	for _, p := range r.ForView(h, viewID) {
		if p.SupportsNode(parent, h, viewID) {
			result = append(result, p)
		}
	}
	return result
}

// GetNodes asks the supporting providers in order and returns the first
// non-nil buffer together with the provider that produced it.
func (r *Registry) GetNodes(parent nodes.Node, h heap.Heap, viewID string, req Request) (*nodes.Buffer, Provider) {
	for _, p := range r.ForNode(parent, h, viewID) {
		if buf := p.GetNodes(parent, h, viewID, req); buf != nil {
			return buf, p
		}
	}
	return nil, nil
}
