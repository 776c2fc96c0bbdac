package session

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/heapwalker/internal/nodes"
	apperrors "github.com/heapwalker/pkg/errors"
	"github.com/heapwalker/pkg/utils"
)

const (
	DefaultTTL         = 30 * time.Minute
	DefaultMaxSessions = 256
)

// Config holds session manager settings.
type Config struct {
	TTL           time.Duration
	MaxSessions   int
	SweepInterval time.Duration // defaults to TTL/2
}

// Manager creates, looks up and expires sessions.
type Manager struct {
	config Config
	logger utils.Logger
	now    func() time.Time

	mu       sync.Mutex
	sessions map[string]*Session

	wg     sync.WaitGroup
	stopCh chan struct{}
	once   sync.Once
}

// NewManager creates a Manager. Zero config values take the defaults.
func NewManager(cfg Config, logger utils.Logger) *Manager {
	if cfg.TTL <= 0 {
		cfg.TTL = DefaultTTL
	}
	if cfg.MaxSessions <= 0 {
		cfg.MaxSessions = DefaultMaxSessions
	}
	if cfg.SweepInterval <= 0 {
		cfg.SweepInterval = cfg.TTL / 2
	}
	return &Manager{
		config:   cfg,
		logger:   utils.OrNull(logger),
		now:      time.Now,
		sessions: make(map[string]*Session),
		stopCh:   make(chan struct{}),
	}
}

// Create registers a session around buf. When the manager is full, expired
// sessions are dropped first, then the least recently used one.
func (m *Manager) Create(snapshotKey string, objectID uint64, viewID, provider string, buf *nodes.Buffer) (*Session, error) {
	if buf == nil {
		return nil, apperrors.New(apperrors.CodeInvalidInput, "session requires a buffer")
	}

	now := m.now()
	s := &Session{
		ID:          uuid.NewString(),
		SnapshotKey: snapshotKey,
		ObjectID:    objectID,
		ViewID:      viewID,
		Provider:    provider,
		CreatedAt:   now,
		buffer:      buf,
		lastAccess:  now,
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if len(m.sessions) >= m.config.MaxSessions {
		m.sweepLocked(now)
	}
	if len(m.sessions) >= m.config.MaxSessions {
		m.evictOldestLocked()
	}
	m.sessions[s.ID] = s

	m.logger.WithFields(map[string]interface{}{
		"session":  s.ID,
		"snapshot": snapshotKey,
	}).Debug("Opened session for object 0x%x (%d fields)", objectID, buf.Len())
	return s, nil
}

// Get returns a live session and refreshes its idle timer.
func (m *Manager) Get(id string) (*Session, error) {
	now := m.now()

	m.mu.Lock()
	defer m.mu.Unlock()

	s, ok := m.sessions[id]
	if !ok {
		return nil, apperrors.Newf(apperrors.CodeNotFound, "session %s not found", id)
	}
	if m.expired(s, now) {
		delete(m.sessions, id)
		return nil, apperrors.Newf(apperrors.CodeExpired, "session %s expired", id)
	}
	// Touch under m.mu so a concurrent Sweep never sees the stale idle time.
	s.touch(now)
	return s, nil
}

// Close removes a session.
func (m *Manager) Close(id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.sessions[id]; !ok {
		return apperrors.Newf(apperrors.CodeNotFound, "session %s not found", id)
	}
	delete(m.sessions, id)
	return nil
}

// Len returns the number of sessions held, including expired ones not yet swept.
func (m *Manager) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.sessions)
}

// Sweep drops expired sessions and returns how many were removed.
func (m *Manager) Sweep() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.sweepLocked(m.now())
}

// Start runs the periodic sweeper until ctx is done or Stop is called.
func (m *Manager) Start(ctx context.Context) {
	m.wg.Add(1)
	go func() {
		defer m.wg.Done()
		ticker := time.NewTicker(m.config.SweepInterval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-m.stopCh:
				return
			case <-ticker.C:
				if n := m.Sweep(); n > 0 {
					m.logger.Info("Expired %d idle sessions", n)
				}
			}
		}
	}()
}

// Stop stops the sweeper and waits for it to exit.
func (m *Manager) Stop() {
	m.once.Do(func() { close(m.stopCh) })
	m.wg.Wait()
}

func (m *Manager) expired(s *Session, now time.Time) bool {
	return now.Sub(s.idleSince()) > m.config.TTL
}

func (m *Manager) sweepLocked(now time.Time) int {
	removed := 0
	for id, s := range m.sessions {
		if m.expired(s, now) {
			delete(m.sessions, id)
			removed++
		}
	}
	return removed
}

func (m *Manager) evictOldestLocked() {
	var oldestID string
	var oldest time.Time
	for id, s := range m.sessions {
		t := s.idleSince()
		if oldestID == "" || t.Before(oldest) {
			oldestID, oldest = id, t
		}
	}
	if oldestID != "" {
		delete(m.sessions, oldestID)
		m.logger.Warn("Session limit %d reached, evicted session %s", m.config.MaxSessions, oldestID)
	}
}
