package workspace

import (
	"context"
	"fmt"

	"github.com/pkg/errors"

	"github.com/trezcool/studyspace/core"
	"github.com/trezcool/studyspace/core/block"
)

// loadBlocks resolves the starting blocks of a session. Signed-in owners read the
// store once and fall back to their cache entry when it has no document or fails;
// anonymous sessions only read the cache. Unreadable data counts as no data.
func loadBlocks(ctx context.Context, deps Deps, id core.Identity) ([]block.Block, string) {
	key := CacheKey(id)

	if id.IsAuthenticated() {
		doc, err := deps.Store.GetWorkspace(ctx, id.UID)
		switch {
		case err == nil:
			blocks, perr := block.Deserialize(doc.Blocks)
			if perr != nil {
				deps.Logger.Warn(fmt.Sprintf("workspace %s is unreadable, starting empty: %v", key, perr), perr)
				return []block.Block{}, SourceEmpty
			}
			if err = deps.Cache.Set(ctx, key, doc.Blocks); err != nil {
				deps.Logger.Warn(fmt.Sprintf("mirroring workspace %s to the cache: %v", key, err), err)
			}
			return blocks, SourceRemote
		case errors.Cause(err) == ErrNotFound:
		default:
			deps.Logger.Warn(fmt.Sprintf("loading workspace %s failed, using the local copy: %v", key, err), err)
		}
	}

	raw, ok, err := deps.Cache.Get(ctx, key)
	if err != nil {
		deps.Logger.Warn(fmt.Sprintf("reading cached workspace %s: %v", key, err), err)
		return []block.Block{}, SourceEmpty
	}
	if !ok {
		return []block.Block{}, SourceEmpty
	}
	blocks, err := block.Deserialize(raw)
	if err != nil {
		deps.Logger.Warn(fmt.Sprintf("cached workspace %s is unreadable, starting empty: %v", key, err), err)
		return []block.Block{}, SourceEmpty
	}
	return blocks, SourceCache
}

// migrateGuest pushes the anonymous draft under draftKey to the owner's store document,
// only if the owner has none yet. The draft is removed from the cache once it was written.
// It reports whether the draft became the owner's workspace.
func migrateGuest(ctx context.Context, deps Deps, draftKey, ownerID string) (bool, error) {
	raw, ok, err := deps.Cache.Get(ctx, draftKey)
	if err != nil {
		return false, errors.Wrap(err, "reading guest workspace")
	}
	if !ok {
		return false, nil
	}
	if _, err = block.Deserialize(raw); err != nil {
		deps.Logger.Warn(fmt.Sprintf("guest workspace %s is unreadable, not migrating it: %v", draftKey, err), err)
		return false, nil
	}

	created, err := deps.Store.CreateWorkspaceIfAbsent(ctx, Document{
		OwnerID:   ownerID,
		Blocks:    raw,
		UpdatedAt: deps.Clock.Now(),
	})
	if err != nil {
		return false, errors.Wrap(err, "migrating guest workspace")
	}
	if !created {
		return false, nil
	}
	if err = deps.Cache.Delete(ctx, draftKey); err != nil {
		deps.Logger.Warn(fmt.Sprintf("clearing guest workspace %s: %v", draftKey, err), err)
	}
	return true, nil
}
