package workspace

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/pkg/errors"

	"github.com/trezcool/studyspace/core"
	"github.com/trezcool/studyspace/core/block"
)

// where a session's initial blocks came from
const (
	SourceRemote = "remote"
	SourceCache  = "cache"
	SourceEmpty  = "empty"
)

type (
	// Deps are the collaborators shared by every session.
	Deps struct {
		Store  Store
		Cache  Cache
		Files  FileStore
		Blobs  BlobStore
		Drive  Granter
		Logger core.Logger
		Clock  Clock
	}

	Status struct {
		Key       string    `json:"key"`
		Source    string    `json:"source"`
		Pending   bool      `json:"pending"`
		Saves     int       `json:"saves"`
		LastSaved time.Time `json:"last_saved"`
		// Fallback is set when the last save of a signed-in owner only reached the local cache.
		Fallback  bool   `json:"fallback"`
		LastError string `json:"last_error,omitempty"`
	}

	// Session is the live workspace of one owner. Every mutation schedules a save;
	// bursts of mutations within the debounce interval are saved once.
	Session struct {
		identity core.Identity
		key      string
		deps     Deps
		saver    *Debouncer

		mu      sync.Mutex
		tree    *block.Tree
		status  Status
		closed  bool
		lastUse time.Time
	}
)

func newSession(deps Deps, conf core.WorkspaceConfig, id core.Identity) *Session {
	if deps.Clock == nil {
		deps.Clock = SystemClock
	}
	s := &Session{
		identity: id,
		key:      CacheKey(id),
		deps:     deps,
		tree:     block.NewTree(block.WithClock(deps.Clock.Now)),
		lastUse:  deps.Clock.Now(),
	}
	s.status.Key = s.key
	s.saver = NewDebouncer(conf.SaveDebounce, conf.SaveTimeout, deps.Clock, s.persist, func(err error) {
		deps.Logger.Error(fmt.Sprintf("saving workspace %s: %v", s.key, err), err)
	})
	return s
}

func (s *Session) Identity() core.Identity { return s.identity }
func (s *Session) Key() string             { return s.key }

func (s *Session) touch() {
	s.mu.Lock()
	s.lastUse = s.deps.Clock.Now()
	s.mu.Unlock()
}

func (s *Session) lastUsed() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastUse
}

// load replaces the tree without scheduling a save.
func (s *Session) load(blocks []block.Block, source string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.tree.Load(blocks); err != nil {
		// blocks come out of Deserialize, which already validated them
		s.deps.Logger.Error(fmt.Sprintf("loading workspace %s: %v", s.key, err), err)
		source = SourceEmpty
	}
	s.status.Source = source
}

// mutate applies f to the tree and schedules a save if it succeeded.
func (s *Session) mutate(f func(t *block.Tree) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return ErrClosed
	}
	s.lastUse = s.deps.Clock.Now()
	if err := f(s.tree); err != nil {
		return err
	}
	s.saver.Trigger()
	return nil
}

// Create appends a block to the root. A nil content starts it with placeholder content.
func (s *Session) Create(kind block.Kind, c block.Content) (block.Block, error) {
	return s.CreateIn(block.Root, kind, c)
}

// CreateIn appends a block to the container dst.
func (s *Session) CreateIn(dst block.ContainerID, kind block.Kind, c block.Content) (block.Block, error) {
	var b block.Block
	err := s.mutate(func(t *block.Tree) error {
		var err error
		b, err = t.CreateIn(dst, kind, c)
		return err
	})
	return b, err
}

func (s *Session) Update(id string, c block.Content) error {
	return s.mutate(func(t *block.Tree) error { return t.Update(id, c) })
}

// Patch changes the fields of a block present in patch, a partial JSON block.
func (s *Session) Patch(id string, patch []byte) (block.Block, error) {
	var b block.Block
	err := s.mutate(func(t *block.Tree) error {
		var err error
		b, err = t.Patch(id, patch)
		return err
	})
	return b, err
}

func (s *Session) SetList(id, title string, items []string) error {
	return s.mutate(func(t *block.Tree) error { return t.SetList(id, title, items) })
}

func (s *Session) Move(id string, src, dst block.ContainerID, destIndex int) error {
	return s.mutate(func(t *block.Tree) error { return t.Move(id, src, dst, destIndex) })
}

// Replace swaps the whole workspace for blocks.
func (s *Session) Replace(blocks []block.Block) error {
	return s.mutate(func(t *block.Tree) error { return t.Load(blocks) })
}

// Delete removes a block. The file records of File blocks it held are released;
// failing to release one is logged and does not undo the delete.
func (s *Session) Delete(ctx context.Context, id string) error {
	var removed block.Block
	err := s.mutate(func(t *block.Tree) error {
		var ok bool
		if removed, ok = t.Delete(id); !ok {
			return errors.Wrapf(block.ErrBlockNotFound, "deleting %q", id)
		}
		return nil
	})
	if err != nil {
		return err
	}

	if !s.identity.IsAuthenticated() || s.deps.Files == nil {
		return nil
	}
	for _, f := range block.Files(removed) {
		if err := s.deps.Files.DeleteFile(ctx, f.ID); err != nil && errors.Cause(err) != ErrFileNotFound {
			s.deps.Logger.Warn(fmt.Sprintf("releasing file %s of %s: %v", f.ID, s.key, err), err)
		}
	}
	return nil
}

func (s *Session) Blocks() []block.Block {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.tree.Blocks()
}

func (s *Session) Items(c block.ContainerID) ([]block.Block, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.tree.Items(c)
}

func (s *Session) Find(id string) (block.Block, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.tree.Find(id)
}

func (s *Session) Status() Status {
	s.mu.Lock()
	st := s.status
	s.mu.Unlock()
	st.Pending = s.saver.Pending()
	return st
}

// Flush saves pending changes now.
func (s *Session) Flush(ctx context.Context) error {
	return s.saver.Flush(ctx)
}

// Cancel drops pending changes' save and reports whether one was scheduled.
// The changes stay in memory and are saved with the next mutation or Flush.
func (s *Session) Cancel() bool {
	return s.saver.Cancel()
}

// Close flushes pending changes and stops the session. No save runs after Close returns.
func (s *Session) Close(ctx context.Context) error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	s.mu.Unlock()

	err := s.saver.Flush(ctx)
	s.saver.Stop()
	return err
}

// persist writes the current tree. Signed-in owners write to the store and mirror
// to the cache; when the store fails the cache alone keeps the edit.
// Anonymous sessions only have the cache. It fails only if nothing was written.
func (s *Session) persist(ctx context.Context) error {
	s.mu.Lock()
	data, err := s.tree.Serialize()
	s.mu.Unlock()
	if err != nil {
		s.recordSave(saveFailed, err)
		return err
	}

	// cache writes must survive a store call that used up ctx
	cacheCtx := context.WithoutCancel(ctx)

	if !s.identity.IsAuthenticated() {
		if err = s.deps.Cache.Set(cacheCtx, s.key, data); err != nil {
			s.recordSave(saveFailed, err)
			return errors.Wrap(err, "caching workspace")
		}
		s.recordSave(saveLocal, nil)
		return nil
	}

	doc := Document{OwnerID: s.identity.UID, Blocks: data, UpdatedAt: s.deps.Clock.Now()}
	storeErr := s.deps.Store.SaveWorkspace(ctx, doc)
	if storeErr == nil {
		if err = s.deps.Cache.Set(cacheCtx, s.key, data); err != nil {
			s.deps.Logger.Warn(fmt.Sprintf("mirroring workspace %s to the cache: %v", s.key, err), err)
		}
		s.recordSave(saveRemote, nil)
		return nil
	}

	s.deps.Logger.Warn(fmt.Sprintf("saving workspace %s failed, keeping a local copy: %v", s.key, storeErr), storeErr)
	if err = s.deps.Cache.Set(cacheCtx, s.key, data); err != nil {
		s.recordSave(saveFailed, err)
		return errors.Wrapf(err, "caching workspace after store failure (%v)", storeErr)
	}
	s.recordSave(saveFallback, storeErr)
	return nil
}

func (s *Session) recordSave(result string, err error) {
	savesTotal.WithLabelValues(result).Inc()

	s.mu.Lock()
	defer s.mu.Unlock()

	s.status.Fallback = result == saveFallback
	s.status.LastError = ""
	if err != nil {
		s.status.LastError = err.Error()
	}
	if result != saveFailed {
		s.status.Saves++
		s.status.LastSaved = s.deps.Clock.Now()
	}
}
