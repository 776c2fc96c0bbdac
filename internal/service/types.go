package service

import (
	"github.com/heapwalker/internal/nodes"
	"github.com/heapwalker/internal/provider"
)

// OpenRequest asks for the field list of one object.
type OpenRequest struct {
	// Snapshot is a catalog UUID or a storage key.
	Snapshot string `json:"snapshot"`
	ObjectID uint64 `json:"object"`
	// ViewID defaults to the snapshot's view, then to the service default.
	ViewID    string `json:"view,omitempty"`
	SortKey   string `json:"sort,omitempty"`
	SortOrder string `json:"order,omitempty"`
	// IncludeInstance and IncludeStatic default to the configured filter.
	IncludeInstance *bool `json:"include_instance,omitempty"`
	IncludeStatic   *bool `json:"include_static,omitempty"`
	PageSize        int   `json:"page_size,omitempty"`
}

// Page is the visible state of a session.
type Page struct {
	SessionID string  `json:"session_id"`
	Snapshot  string  `json:"snapshot"`
	Object    string  `json:"object"`
	ViewID    string  `json:"view"`
	Provider  string  `json:"provider"`
	State     string  `json:"state"`
	Total     int     `json:"total"`
	Remaining int     `json:"remaining"`
	Entries   []Entry `json:"entries"`
}

// Entry is one display row: a field or the trailing "more" marker.
type Entry struct {
	Name       string `json:"name,omitempty"`
	Kind       string `json:"kind,omitempty"`
	Type       string `json:"type,omitempty"`
	Value      string `json:"value,omitempty"`
	ObjectID   uint64 `json:"object_id,omitempty"`
	Expandable bool   `json:"expandable,omitempty"`
	Trailer    bool   `json:"trailer,omitempty"`
	Text       string `json:"text,omitempty"`
}

// SnapshotInfo describes a browsable snapshot.
type SnapshotInfo struct {
	UUID        string `json:"uuid,omitempty"`
	Name        string `json:"name"`
	Key         string `json:"key"`
	ViewID      string `json:"view,omitempty"`
	ObjectCount int    `json:"object_count,omitempty"`
	ClassCount  int    `json:"class_count,omitempty"`
}

func toEntries(list []nodes.Entry) []Entry {
	out := make([]Entry, 0, len(list))
	for _, e := range list {
		if e.IsTrailer() {
			out = append(out, Entry{Trailer: true, Text: e.Trailer.Text})
			continue
		}
		entry := Entry{
			Name:     e.Node.Name(),
			Kind:     e.Node.KindName(),
			Type:     e.Node.TypeName(),
			Value:    e.Node.DisplayValue(),
			ObjectID: e.Node.ObjectID(),
		}
		if fn, ok := e.Node.(*provider.FieldNode); ok {
			entry.Expandable = fn.Field.Expandable()
		}
		out = append(out, entry)
	}
	return out
}
