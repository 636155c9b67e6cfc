package blobsvc

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/studyspace/core"
)

func TestObjectKey(t *testing.T) {
	tests := []struct {
		prefix, path, want string
	}{
		{"", "users/u1/f1/notes.pdf", "users/u1/f1/notes.pdf"},
		{"uploads", "users/u1/f1/notes.pdf", "uploads/users/u1/f1/notes.pdf"},
		{"/uploads/", "/users/u1/a.txt", "uploads/users/u1/a.txt"},
	}
	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			assert.Equal(t, tt.want, objectKey(tt.prefix, tt.path))
		})
	}
}

func TestPublicURL(t *testing.T) {
	assert.Equal(t, "http://blobs.local/users/u1/my%20notes.pdf", publicURL("http://blobs.local/", "users/u1/my notes.pdf"))
}

func TestMemoryStore(t *testing.T) {
	store := NewMemoryStore("http://blobs.local")
	url, err := store.Upload(context.Background(), "users/u1/f1/a.txt", []byte("hello"), "text/plain")
	require.NoError(t, err)
	assert.Equal(t, "http://blobs.local/users/u1/f1/a.txt", url)

	data, ct, ok := store.Object("users/u1/f1/a.txt")
	require.True(t, ok)
	assert.Equal(t, []byte("hello"), data)
	assert.Equal(t, "text/plain", ct)
}

func TestNew(t *testing.T) {
	conf := core.NewTestConfig()
	store, err := New(context.Background(), conf)
	require.NoError(t, err)
	assert.IsType(t, &MemoryStore{}, store)

	conf.Blob.Backend = "ftp"
	_, err = New(context.Background(), conf)
	assert.Error(t, err)
}
