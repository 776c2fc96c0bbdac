// Package nodes implements the sorted, paged node buffer that heap browser
// views render. A buffer shows at most one page of nodes at first and
// summarizes the rest in a trailer entry; each LoadMore call materializes
// another page.
package nodes

import (
	"fmt"
	"slices"

	"github.com/dustin/go-humanize"
)

// DefaultPageSize is the number of nodes materialized per page.
const DefaultPageSize = 1000

// Node is a display node that a Buffer can sort.
type Node interface {
	Name() string
	KindName() string
	TypeName() string
	DisplayValue() string
	ObjectID() uint64
}

// Trailer summarizes nodes that are not materialized yet.
type Trailer struct {
	Remaining int    `json:"remaining"`
	Text      string `json:"text"`
}

// Entry is one row of a buffer: either a node or the trailer.
type Entry struct {
	Node    Node
	Trailer *Trailer
}

// IsTrailer reports whether the entry is the trailer.
func (e Entry) IsTrailer() bool {
	return e.Trailer != nil
}

// State is the materialization state of a buffer.
type State int

const (
	StateEmpty State = iota
	StatePartiallyMaterialized
	StateFullyMaterialized
)

// String returns the string representation of the state.
func (s State) String() string {
	switch s {
	case StatePartiallyMaterialized:
		return "partial"
	case StateFullyMaterialized:
		return "full"
	default:
		return "empty"
	}
}

// Option configures a Buffer.
type Option func(*Buffer)

// WithMoreItemsText sets the trailer text. The function receives the number of
// remaining nodes already formatted with thousands separators.
func WithMoreItemsText(fn func(formattedLeft string) string) Option {
	return func(b *Buffer) {
		if fn != nil {
			b.moreText = fn
		}
	}
}

// Buffer is a sorted, paged node list. It belongs to a single render session
// and is not safe for concurrent use.
type Buffer struct {
	pageSize int
	key      SortKey
	order    SortOrder
	moreText func(string) string

	items  []Node
	sorted bool
	pages  int
}

// NewBuffer creates a Buffer. A non-positive page size selects DefaultPageSize.
func NewBuffer(pageSize int, key SortKey, order SortOrder, opts ...Option) *Buffer {
	if pageSize <= 0 {
		pageSize = DefaultPageSize
	}
	b := &Buffer{
		pageSize: pageSize,
		key:      key,
		order:    order,
		pages:    1,
		moreText: func(left string) string {
			return fmt.Sprintf("<another %s items left>", left)
		},
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Add appends nodes. Nil nodes are skipped.
func (b *Buffer) Add(nodes ...Node) {
	for _, n := range nodes {
		if n != nil {
			b.items = append(b.items, n)
			b.sorted = false
		}
	}
}

// Len returns the total number of nodes, materialized or not.
func (b *Buffer) Len() int {
	return len(b.items)
}

// PageSize returns the page size.
func (b *Buffer) PageSize() int {
	return b.pageSize
}

// Materialized returns the number of nodes currently shown.
func (b *Buffer) Materialized() int {
	return min(b.pages*b.pageSize, len(b.items))
}

// Remaining returns the number of nodes summarized by the trailer.
func (b *Buffer) Remaining() int {
	return len(b.items) - b.Materialized()
}

// State returns the materialization state.
func (b *Buffer) State() State {
	switch {
	case len(b.items) == 0:
		return StateEmpty
	case b.Remaining() > 0:
		return StatePartiallyMaterialized
	default:
		return StateFullyMaterialized
	}
}

// Entries returns the materialized nodes in sort order, followed by a trailer
// if any nodes remain. Calling it repeatedly without LoadMore returns the same
// sequence.
func (b *Buffer) Entries() []Entry {
	b.sort()

	shown := b.Materialized()
	entries := make([]Entry, 0, shown+1)
	for _, n := range b.items[:shown] {
		entries = append(entries, Entry{Node: n})
	}
	if t := b.trailer(); t != nil {
		entries = append(entries, Entry{Trailer: t})
	}
	return entries
}

// LoadMore materializes the next page and returns the full entry list. It is a
// no-op once the buffer is fully materialized.
func (b *Buffer) LoadMore() []Entry {
	if b.Remaining() > 0 {
		b.pages++
	}
	return b.Entries()
}

func (b *Buffer) trailer() *Trailer {
	left := b.Remaining()
	if left <= 0 {
		return nil
	}
	return &Trailer{
		Remaining: left,
		Text:      b.moreText(humanize.Comma(int64(left))),
	}
}

func (b *Buffer) sort() {
	if b.sorted {
		return
	}
	slices.SortStableFunc(b.items, func(x, y Node) int {
		c := compareNodes(x, y, b.key)
		if b.order == Descending {
			return -c
		}
		return c
	})
	b.sorted = true
}
