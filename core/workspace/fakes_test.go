package workspace

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/pkg/errors"

	"github.com/trezcool/studyspace/core"
)

var errOffline = errors.New("backend unavailable")

// manualClock only fires timers when advanced.
type manualClock struct {
	mu     sync.Mutex
	now    time.Time
	timers []*manualTimer
}

type manualTimer struct {
	clock   *manualClock
	at      time.Time
	f       func()
	done    bool
	stopped bool
}

func newManualClock() *manualClock {
	return &manualClock{now: time.Date(2024, time.March, 1, 10, 0, 0, 0, time.UTC)}
}

func (c *manualClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *manualClock) AfterFunc(d time.Duration, f func()) Timer {
	c.mu.Lock()
	defer c.mu.Unlock()
	t := &manualTimer{clock: c, at: c.now.Add(d), f: f}
	c.timers = append(c.timers, t)
	return t
}

// Advance moves time forward and runs, in order, the callbacks that became due.
func (c *manualClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	var due []*manualTimer
	for _, t := range c.timers {
		if !t.done && !t.stopped && !t.at.After(c.now) {
			t.done = true
			due = append(due, t)
		}
	}
	c.mu.Unlock()

	sort.SliceStable(due, func(i, j int) bool { return due[i].at.Before(due[j].at) })
	for _, t := range due {
		t.f()
	}
}

// Skip moves time forward without running due timers.
func (c *manualClock) Skip(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

// Active counts timers that are still scheduled.
func (c *manualClock) Active() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	var n int
	for _, t := range c.timers {
		if !t.done && !t.stopped {
			n++
		}
	}
	return n
}

func (t *manualTimer) Stop() bool {
	t.clock.mu.Lock()
	defer t.clock.mu.Unlock()
	if t.done || t.stopped {
		return false
	}
	t.stopped = true
	return true
}

type memStore struct {
	mu      sync.Mutex
	docs    map[string]Document
	saves   []Document
	getErr  error
	saveErr error
}

func newMemStore() *memStore {
	return &memStore{docs: make(map[string]Document)}
}

func (s *memStore) GetWorkspace(_ context.Context, ownerID string) (Document, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.getErr != nil {
		return Document{}, s.getErr
	}
	doc, ok := s.docs[ownerID]
	if !ok {
		return Document{}, ErrNotFound
	}
	return doc, nil
}

func (s *memStore) SaveWorkspace(_ context.Context, doc Document) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.saveErr != nil {
		return s.saveErr
	}
	s.docs[doc.OwnerID] = doc
	s.saves = append(s.saves, doc)
	return nil
}

func (s *memStore) CreateWorkspaceIfAbsent(_ context.Context, doc Document) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.saveErr != nil {
		return false, s.saveErr
	}
	if _, ok := s.docs[doc.OwnerID]; ok {
		return false, nil
	}
	s.docs[doc.OwnerID] = doc
	return true, nil
}

func (s *memStore) saveCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.saves)
}

func (s *memStore) lastSave() Document {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.saves) == 0 {
		return Document{}
	}
	return s.saves[len(s.saves)-1]
}

type memCache struct {
	mu     sync.Mutex
	values map[string]string
	getErr error
	setErr error
}

func newMemCache() *memCache {
	return &memCache{values: make(map[string]string)}
}

func (c *memCache) Get(_ context.Context, key string) (string, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.getErr != nil {
		return "", false, c.getErr
	}
	v, ok := c.values[key]
	return v, ok, nil
}

func (c *memCache) Set(_ context.Context, key, value string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.setErr != nil {
		return c.setErr
	}
	c.values[key] = value
	return nil
}

func (c *memCache) Delete(_ context.Context, key string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.values, key)
	return nil
}

func (c *memCache) value(key string) (string, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	v, ok := c.values[key]
	return v, ok
}

type memFiles struct {
	mu      sync.Mutex
	records map[string]FileRecord
	deleted []string
	saveErr error
}

func newMemFiles() *memFiles {
	return &memFiles{records: make(map[string]FileRecord)}
}

func (f *memFiles) SaveFile(_ context.Context, file FileRecord) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.saveErr != nil {
		return f.saveErr
	}
	f.records[file.ID] = file
	return nil
}

func (f *memFiles) DeleteFile(_ context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.records[id]; !ok {
		return ErrFileNotFound
	}
	delete(f.records, id)
	f.deleted = append(f.deleted, id)
	return nil
}

func (f *memFiles) QueryFiles(_ context.Context, ownerID string) ([]FileRecord, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []FileRecord
	for _, r := range f.records {
		if r.OwnerID == ownerID {
			out = append(out, r)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

type memBlobs struct {
	paths []string
}

func (b *memBlobs) Upload(_ context.Context, path string, _ []byte, _ string) (string, error) {
	b.paths = append(b.paths, path)
	return "http://blobs.local/" + path, nil
}

type stubGranter struct {
	granted []string
	err     error
}

func (g *stubGranter) GrantPublicRead(_ context.Context, accessToken, fileID string) error {
	if g.err != nil {
		return g.err
	}
	g.granted = append(g.granted, accessToken+":"+fileID)
	return nil
}

// recordingLogger keeps messages by level.
type recordingLogger struct {
	mu   sync.Mutex
	logs map[string][]string
}

var _ core.Logger = (*recordingLogger)(nil)

func newRecordingLogger() *recordingLogger {
	return &recordingLogger{logs: make(map[string][]string)}
}

func (l *recordingLogger) log(level, msg string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.logs[level] = append(l.logs[level], msg)
}

func (l *recordingLogger) count(level string) int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.logs[level])
}

func (l *recordingLogger) Debug(msg string, _ ...interface{}) { l.log("debug", msg) }
func (l *recordingLogger) Info(msg string, _ ...interface{})  { l.log("info", msg) }
func (l *recordingLogger) Warn(msg string, _ ...interface{})  { l.log("warn", msg) }
func (l *recordingLogger) Error(msg string, _ ...interface{}) { l.log("error", msg) }
func (l *recordingLogger) Fatal(msg string, _ ...interface{}) {
	panic(fmt.Sprintf("fatal: %s", msg))
}

type fixture struct {
	clock  *manualClock
	store  *memStore
	cache  *memCache
	files  *memFiles
	blobs  *memBlobs
	drive  *stubGranter
	logger *recordingLogger
	mgr    *Manager
}

const debounce = 1400 * time.Millisecond

func newFixture() *fixture {
	f := &fixture{
		clock:  newManualClock(),
		store:  newMemStore(),
		cache:  newMemCache(),
		files:  newMemFiles(),
		blobs:  &memBlobs{},
		drive:  &stubGranter{},
		logger: newRecordingLogger(),
	}
	conf := core.NewTestConfig()
	conf.Workspace.SaveDebounce = debounce
	f.mgr = NewManager(f.deps(), conf)
	return f
}

func (f *fixture) deps() Deps {
	return Deps{
		Store:  f.store,
		Cache:  f.cache,
		Files:  f.files,
		Blobs:  f.blobs,
		Drive:  f.drive,
		Logger: f.logger,
		Clock:  f.clock,
	}
}

var (
	alice = core.Identity{UID: "alice", DisplayName: "Alice", Email: "alice@example.com"}
	guest = core.Identity{GuestID: "g1"}
)
