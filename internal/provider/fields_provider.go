package provider

import (
	"strings"

	"github.com/heapwalker/internal/dynobj"
	"github.com/heapwalker/internal/fields"
	"github.com/heapwalker/internal/nodes"
	"github.com/heapwalker/pkg/filter"
	"github.com/heapwalker/pkg/heap"
	"github.com/heapwalker/pkg/utils"
)

const (
	// FieldsProviderName is the name of the dynamic object fields provider.
	FieldsProviderName = "variables"
	// FieldsProviderPosition is the registry position of the fields provider.
	FieldsProviderPosition = 210
	// DefaultViewPrefix selects the Ruby views of a heap browser.
	DefaultViewPrefix = "ruby_"
)

// FieldsConfig configures a FieldsProvider.
type FieldsConfig struct {
	ViewPrefix         string
	PageSize           int
	Filter             fields.FilterConfig
	DynamicObjectTypes []string
	WrapperTypes       []string
}

// DefaultFieldsConfig returns the stock configuration.
func DefaultFieldsConfig() FieldsConfig {
	return FieldsConfig{
		ViewPrefix:         DefaultViewPrefix,
		PageSize:           nodes.DefaultPageSize,
		Filter:             fields.DefaultFilterConfig(),
		DynamicObjectTypes: filter.DefaultDynamicObjectTypes,
		WrapperTypes:       filter.DefaultWrapperTypes,
	}
}

// FieldsProvider lists the fields of dynamic objects.
type FieldsProvider struct {
	viewPrefix string
	pageSize   int
	filter     fields.FilterConfig
	recognizer *dynobj.Recognizer
	wrappers   *filter.TypeSet
	logger     utils.Logger
}

// NewFieldsProvider creates a FieldsProvider.
func NewFieldsProvider(cfg FieldsConfig, logger utils.Logger) *FieldsProvider {
	wrappers := cfg.WrapperTypes
	if wrappers == nil {
		wrappers = filter.DefaultWrapperTypes
	}
	return &FieldsProvider{
		viewPrefix: cfg.ViewPrefix,
		pageSize:   cfg.PageSize,
		filter:     cfg.Filter,
		recognizer: dynobj.NewRecognizer(filter.NewTypeSet(cfg.DynamicObjectTypes...)),
		wrappers:   filter.NewTypeSet(wrappers...),
		logger:     utils.OrNull(logger),
	}
}

// Name implements Provider.
func (p *FieldsProvider) Name() string {
	return FieldsProviderName
}

// Recognizer returns the dynamic object recognizer the provider classifies with.
func (p *FieldsProvider) Recognizer() *dynobj.Recognizer {
	return p.recognizer
}

// SupportsView implements Provider.
func (p *FieldsProvider) SupportsView(h heap.Heap, viewID string) bool {
	return strings.HasPrefix(viewID, p.viewPrefix)
}

// SupportsNode implements Provider. Reference nodes are not expanded.
func (p *FieldsProvider) SupportsNode(parent nodes.Node, h heap.Heap, viewID string) bool {
	if ref, ok := parent.(Referencing); ok && ref.IsReference() {
		return false
	}
	holder, ok := parent.(ObjectHolder)
	return ok && holder.DynamicObject() != nil
}

// GetNodes implements Provider.
func (p *FieldsProvider) GetNodes(parent nodes.Node, h heap.Heap, viewID string, req Request) *nodes.Buffer {
	holder, ok := parent.(ObjectHolder)
	if !ok {
		return nil
	}
	obj := holder.DynamicObject()
	if obj == nil {
		return nil
	}
	if h == nil {
		h = obj.Heap()
	}

	cfg := p.filter
	if req.Filter != nil {
		cfg = *req.Filter
	}
	pageSize := p.pageSize
	if req.PageSize > 0 {
		pageSize = req.PageSize
	}

	classifier := fields.NewClassifier(h, p.recognizer, p.wrappers)
	buf := nodes.NewBuffer(pageSize, req.SortKey, req.SortOrder, nodes.WithMoreItemsText(func(left string) string {
		return "<another " + left + " properties left>"
	}))
	for _, cf := range classifier.ClassifyAll(fields.SelectFields(obj, cfg)) {
		buf.Add(NewFieldNode(cf))
	}

	p.logger.Debug("listed %d fields of %s (view %s)", buf.Len(), obj.DisplayName(), viewID)
	return buf
}

// Entries lists the fields of the object behind parent, sorted and paged. It
// returns nil when parent does not represent a dynamic object.
func (p *FieldsProvider) Entries(parent nodes.Node, cfg fields.FilterConfig, key nodes.SortKey, order nodes.SortOrder) []nodes.Entry {
	buf := p.GetNodes(parent, nil, p.viewPrefix, Request{Filter: &cfg, SortKey: key, SortOrder: order})
	if buf == nil {
		return nil
	}
	return buf.Entries()
}
