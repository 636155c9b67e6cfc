package workspace

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/trezcool/studyspace/core"
)

// Manager holds one live session per workspace owner (see CacheKey).
// With a positive SessionIdleTTL, sessions left unused that long are saved and closed.
type Manager struct {
	deps Deps
	conf core.WorkspaceConfig

	mu       sync.Mutex
	sessions map[string]*Session
	locks    map[string]*keyLock
	sweeper  Timer
	closed   bool
}

// keyLock serializes the opening and closing of one owner's session.
// It lives in Manager.locks only while someone holds or waits for it.
type keyLock struct {
	sync.Mutex
	refs int
}

func NewManager(deps Deps, conf *core.Config) *Manager {
	if deps.Clock == nil {
		deps.Clock = SystemClock
	}
	m := &Manager{
		deps:     deps,
		conf:     conf.Workspace,
		sessions: make(map[string]*Session),
		locks:    make(map[string]*keyLock),
	}
	m.mu.Lock()
	m.scheduleSweep()
	m.mu.Unlock()
	return m
}

func (m *Manager) Deps() Deps { return m.deps }

// lock acquires the lock of key and returns its release func.
func (m *Manager) lock(key string) (unlock func()) {
	m.mu.Lock()
	l, ok := m.locks[key]
	if !ok {
		l = new(keyLock)
		m.locks[key] = l
	}
	l.refs++
	m.mu.Unlock()

	l.Lock()
	return func() {
		l.Unlock()
		m.mu.Lock()
		l.refs--
		if l.refs == 0 {
			delete(m.locks, key)
		}
		m.mu.Unlock()
	}
}

// Len reports the number of live sessions.
func (m *Manager) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.sessions)
}

// Open returns the live session of id, loading it on first use.
func (m *Manager) Open(ctx context.Context, id core.Identity) (*Session, error) {
	key := CacheKey(id)
	defer m.lock(key)()

	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return nil, ErrClosed
	}
	if s, ok := m.sessions[key]; ok {
		m.mu.Unlock()
		s.touch()
		return s, nil
	}
	m.mu.Unlock()

	s := newSession(m.deps, m.conf, id)
	blocks, source := loadBlocks(ctx, m.deps, id)
	s.load(blocks, source)

	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return nil, ErrClosed
	}
	m.sessions[key] = s
	openSessions.Inc()
	return s, nil
}

// drop closes and forgets the session stored under key, if any.
func (m *Manager) drop(ctx context.Context, key string) error {
	_, err := m.dropIf(ctx, key, nil)
	return err
}

// dropIf is drop restricted to sessions for which keep is false. A nil keep drops any session.
func (m *Manager) dropIf(ctx context.Context, key string, keep func(s *Session) bool) (bool, error) {
	defer m.lock(key)()

	m.mu.Lock()
	s, ok := m.sessions[key]
	if !ok || (keep != nil && keep(s)) {
		m.mu.Unlock()
		return false, nil
	}
	delete(m.sessions, key)
	m.mu.Unlock()

	openSessions.Dec()
	return true, s.Close(ctx)
}

// EvictIdle saves and closes the sessions unused for at least SessionIdleTTL
// and returns how many were closed.
func (m *Manager) EvictIdle(ctx context.Context) int {
	ttl := m.conf.SessionIdleTTL
	if ttl <= 0 {
		return 0
	}
	idle := func(s *Session) bool { return m.deps.Clock.Now().Sub(s.lastUsed()) >= ttl }

	m.mu.Lock()
	var keys []string
	for key, s := range m.sessions {
		if idle(s) {
			keys = append(keys, key)
		}
	}
	m.mu.Unlock()

	var n int
	for _, key := range keys {
		// touched since it was listed
		dropped, err := m.dropIf(ctx, key, func(s *Session) bool { return !idle(s) })
		if err != nil {
			m.deps.Logger.Error(fmt.Sprintf("closing idle workspace %s: %v", key, err), err)
		}
		if dropped {
			n++
		}
	}
	if n > 0 {
		m.deps.Logger.Debug(fmt.Sprintf("closed %d idle workspace sessions", n))
	}
	return n
}

// scheduleSweep arms the next idle sweep. It must be called with mu held.
func (m *Manager) scheduleSweep() {
	ttl := m.conf.SessionIdleTTL
	if ttl <= 0 || m.closed {
		return
	}
	m.sweeper = m.deps.Clock.AfterFunc(sweepInterval(ttl), func() {
		ctx := context.Background()
		if m.conf.SaveTimeout > 0 {
			var cancel context.CancelFunc
			ctx, cancel = context.WithTimeout(ctx, m.conf.SaveTimeout)
			defer cancel()
		}
		m.EvictIdle(ctx)

		m.mu.Lock()
		m.scheduleSweep()
		m.mu.Unlock()
	})
}

// sweepInterval bounds how long past its TTL an idle session may linger.
func sweepInterval(ttl time.Duration) time.Duration {
	if d := ttl / 2; d >= time.Second {
		return d
	}
	return time.Second
}

// SignIn hands the workspace over from the anonymous client guestID to the signed-in owner.
// The guest session is flushed and closed. If the owner has no stored workspace yet,
// the guest draft becomes it and leaves the cache; otherwise the draft is left alone.
// The owner's session is then loaded.
func (m *Manager) SignIn(ctx context.Context, guestID string, id core.Identity) (*Session, bool, error) {
	if !id.IsAuthenticated() {
		return nil, false, ErrAuthRequired
	}

	draftKey := CacheKey(core.Identity{GuestID: guestID})
	if err := m.drop(ctx, draftKey); err != nil {
		m.deps.Logger.Warn(fmt.Sprintf("flushing guest workspace %s: %v", draftKey, err), err)
	}

	migrated, err := migrateGuest(ctx, m.deps, draftKey, id.UID)
	if err != nil {
		m.deps.Logger.Warn(fmt.Sprintf("signing in %s: %v", id.UID, err), err)
	}
	if migrated {
		// a session opened before the migration holds stale blocks
		if err = m.drop(ctx, CacheKey(id)); err != nil {
			m.deps.Logger.Warn(fmt.Sprintf("closing workspace of %s: %v", id.UID, err), err)
		}
		m.deps.Logger.Info(fmt.Sprintf("guest workspace %s migrated to %s", draftKey, id.UID))
	}

	s, err := m.Open(ctx, id)
	return s, migrated, err
}

// SignOut saves and closes the owner's session.
func (m *Manager) SignOut(ctx context.Context, id core.Identity) error {
	return m.drop(ctx, CacheKey(id))
}

// Close flushes and closes every session. Open fails afterwards.
func (m *Manager) Close(ctx context.Context) error {
	m.mu.Lock()
	m.closed = true
	if m.sweeper != nil {
		m.sweeper.Stop()
		m.sweeper = nil
	}
	keys := make([]string, 0, len(m.sessions))
	for key := range m.sessions {
		keys = append(keys, key)
	}
	m.mu.Unlock()

	var firstErr error
	for _, key := range keys {
		if err := m.drop(ctx, key); err != nil {
			m.deps.Logger.Error(fmt.Sprintf("closing workspace %s: %v", key, err), err)
			if firstErr == nil {
				firstErr = err
			}
		}
	}
	return firstErr
}
