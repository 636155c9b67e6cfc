// Package workspace keeps a user's block tree in memory, saves it after a quiet
// period and recovers it from the document store or the local cache.
package workspace

import (
	"context"
	"time"

	"github.com/pkg/errors"

	"github.com/trezcool/studyspace/core"
)

var (
	// errors
	ErrNotFound     = errors.New("workspace not found")
	ErrAuthRequired = errors.New("you must be signed in to do this")
	ErrClosed       = errors.New("workspace session is closed")
	ErrFileNotFound = errors.New("file not found")
)

const (
	cacheKeyPrefix = "myspace_backup_"
	guestKey       = cacheKeyPrefix + "guest"
)

type (
	// Document is the persisted form of one owner's workspace.
	Document struct {
		OwnerID   string    `json:"owner_id"`
		Blocks    string    `json:"blocks"`
		UpdatedAt time.Time `json:"updated_at"`
	}

	// Store is the authoritative copy of signed-in owners' workspaces.
	Store interface {
		// GetWorkspace returns ErrNotFound when the owner has no document.
		GetWorkspace(ctx context.Context, ownerID string) (Document, error)
		// SaveWorkspace writes doc, leaving fields it does not carry untouched.
		SaveWorkspace(ctx context.Context, doc Document) error
		// CreateWorkspaceIfAbsent writes doc only if the owner has no document yet.
		// It reports whether doc was written.
		CreateWorkspaceIfAbsent(ctx context.Context, doc Document) (bool, error)
	}

	// Cache is the local durable mirror, keyed by CacheKey.
	Cache interface {
		Get(ctx context.Context, key string) (string, bool, error)
		Set(ctx context.Context, key, value string) error
		Delete(ctx context.Context, key string) error
	}

	FileRecord struct {
		ID         string    `json:"id"`
		Name       string    `json:"name"`
		URL        string    `json:"url"`
		OwnerID    string    `json:"uid"`
		UploadedAt time.Time `json:"uploaded_at"`
	}

	FileStore interface {
		SaveFile(ctx context.Context, file FileRecord) error
		// DeleteFile returns ErrFileNotFound when no record has the id.
		DeleteFile(ctx context.Context, id string) error
		QueryFiles(ctx context.Context, ownerID string) ([]FileRecord, error)
	}

	// BlobStore keeps uploaded bytes and returns a publicly resolvable URL for them.
	BlobStore interface {
		Upload(ctx context.Context, path string, data []byte, contentType string) (string, error)
	}

	// Granter shares a Drive file with anyone holding the link.
	Granter interface {
		GrantPublicRead(ctx context.Context, accessToken, fileID string) error
	}
)

// CacheKey returns the local cache key of an identity's workspace.
func CacheKey(id core.Identity) string {
	if id.IsAuthenticated() {
		return cacheKeyPrefix + id.UID
	}
	if id.GuestID != "" {
		return guestKey + "_" + id.GuestID
	}
	return guestKey
}
