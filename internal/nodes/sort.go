package nodes

import (
	"cmp"
	"strconv"
	"strings"

	apperrors "github.com/heapwalker/pkg/errors"
)

// SortKey selects the column a buffer is sorted by.
type SortKey int

const (
	SortByName SortKey = iota
	SortByKind
	SortByType
	SortByValue
	SortByObjectID
)

// String returns the string representation of the key.
func (k SortKey) String() string {
	switch k {
	case SortByKind:
		return "kind"
	case SortByType:
		return "type"
	case SortByValue:
		return "value"
	case SortByObjectID:
		return "object_id"
	default:
		return "name"
	}
}

// ParseSortKey parses a sort key name. An empty string selects SortByName.
func ParseSortKey(s string) (SortKey, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "name":
		return SortByName, nil
	case "kind":
		return SortByKind, nil
	case "type":
		return SortByType, nil
	case "value":
		return SortByValue, nil
	case "object_id", "id":
		return SortByObjectID, nil
	default:
		return SortByName, apperrors.Newf(apperrors.CodeInvalidInput, "unknown sort key: %q", s)
	}
}

// SortOrder is the direction of a sort.
type SortOrder int

const (
	// Unsorted behaves as Ascending.
	Unsorted SortOrder = iota
	Ascending
	Descending
)

// String returns the string representation of the order.
func (o SortOrder) String() string {
	if o == Descending {
		return "desc"
	}
	return "asc"
}

// ParseSortOrder parses "asc" or "desc". An empty string selects Unsorted.
func ParseSortOrder(s string) (SortOrder, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "":
		return Unsorted, nil
	case "asc", "ascending":
		return Ascending, nil
	case "desc", "descending":
		return Descending, nil
	default:
		return Unsorted, apperrors.Newf(apperrors.CodeInvalidInput, "unknown sort order: %q", s)
	}
}

// compareNodes orders two nodes by key, ascending.
func compareNodes(a, b Node, key SortKey) int {
	switch key {
	case SortByKind:
		return cmp.Compare(a.KindName(), b.KindName())
	case SortByType:
		return cmp.Compare(a.TypeName(), b.TypeName())
	case SortByValue:
		return compareValues(a.DisplayValue(), b.DisplayValue())
	case SortByObjectID:
		return cmp.Compare(a.ObjectID(), b.ObjectID())
	default:
		return cmp.Compare(a.Name(), b.Name())
	}
}

// compareValues orders numbers numerically and everything else lexically.
// Numbers sort before non-numbers.
func compareValues(a, b string) int {
	fa, errA := strconv.ParseFloat(a, 64)
	fb, errB := strconv.ParseFloat(b, 64)
	switch {
	case errA == nil && errB == nil:
		return cmp.Compare(fa, fb)
	case errA == nil:
		return -1
	case errB == nil:
		return 1
	default:
		return cmp.Compare(a, b)
	}
}
