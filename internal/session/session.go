// Package session keeps the paged display buffers of open field views.
package session

import (
	"sync"
	"time"

	"github.com/heapwalker/internal/nodes"
)

// Session is one rendering of one object's fields. Its buffer is never shared
// with another session.
type Session struct {
	ID          string
	SnapshotKey string
	ObjectID    uint64
	ViewID      string
	Provider    string
	CreatedAt   time.Time

	mu         sync.Mutex
	buffer     *nodes.Buffer
	lastAccess time.Time
}

// Entries returns the currently materialized entries.
func (s *Session) Entries() []nodes.Entry {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.buffer.Entries()
}

// LoadMore materializes the next page and returns the new entry list.
func (s *Session) LoadMore() []nodes.Entry {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.buffer.LoadMore()
}

// Status returns the buffer state and the number of entries not yet shown.
func (s *Session) Status() (nodes.State, int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.buffer.State(), s.buffer.Remaining()
}

// Total returns the number of field nodes in the buffer.
func (s *Session) Total() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.buffer.Len()
}

func (s *Session) touch(now time.Time) {
	s.mu.Lock()
	s.lastAccess = now
	s.mu.Unlock()
}

func (s *Session) idleSince() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastAccess
}
