// Package blobsvc stores uploaded files and hands back public URLs for them.
package blobsvc

import (
	"context"
	"net/url"
	"path"
	"strings"
	"sync"

	"github.com/pkg/errors"

	"github.com/trezcool/studyspace/core"
	"github.com/trezcool/studyspace/core/workspace"
)

var (
	_ workspace.BlobStore = (*MemoryStore)(nil)
	_ workspace.BlobStore = (*S3Store)(nil)
	_ workspace.BlobStore = (*MinioStore)(nil)
	_ workspace.BlobStore = (*GCSStore)(nil)
)

// New builds the store selected in conf.
func New(ctx context.Context, conf *core.Config) (workspace.BlobStore, error) {
	switch conf.Blob.Backend {
	case core.BackendS3:
		return NewS3Store(ctx, conf.Blob)
	case core.BackendMinio:
		return NewMinioStore(ctx, conf.Blob)
	case core.BackendGCS:
		return NewGCSStore(ctx, conf.Blob)
	case "", core.BackendMemory:
		return NewMemoryStore(conf.Blob.PublicBaseURL), nil
	}
	return nil, errors.Errorf("unknown blob backend %q", conf.Blob.Backend)
}

// objectKey joins the configured prefix and the upload path.
func objectKey(prefix, p string) string {
	return strings.TrimPrefix(path.Join(prefix, p), "/")
}

// publicURL joins base and key, escaping each key segment.
func publicURL(base, key string) string {
	segments := strings.Split(key, "/")
	for i, s := range segments {
		segments[i] = url.PathEscape(s)
	}
	return strings.TrimRight(base, "/") + "/" + strings.Join(segments, "/")
}

type memoryObject struct {
	Data        []byte
	ContentType string
}

// MemoryStore keeps objects in memory. For development and tests.
type MemoryStore struct {
	mu      sync.RWMutex
	baseURL string
	objects map[string]memoryObject
}

func NewMemoryStore(baseURL string) *MemoryStore {
	if baseURL == "" {
		baseURL = "http://localhost/blobs"
	}
	return &MemoryStore{baseURL: baseURL, objects: make(map[string]memoryObject)}
}

func (s *MemoryStore) Upload(_ context.Context, p string, data []byte, contentType string) (string, error) {
	key := objectKey("", p)
	s.mu.Lock()
	defer s.mu.Unlock()
	s.objects[key] = memoryObject{Data: append([]byte(nil), data...), ContentType: contentType}
	return publicURL(s.baseURL, key), nil
}

// Object returns the stored bytes and content type of key.
func (s *MemoryStore) Object(key string) ([]byte, string, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	obj, ok := s.objects[key]
	return obj.Data, obj.ContentType, ok
}
