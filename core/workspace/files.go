package workspace

import (
	"context"
	"fmt"
	"path"
	"strings"

	"github.com/google/uuid"
	"github.com/pkg/errors"

	"github.com/trezcool/studyspace/core/block"
)

var ErrNotConfigured = errors.New("file storage is not configured")

// DriveShareURL is the link under which a Drive file shared with anyone can be viewed.
func DriveShareURL(fileID string) string {
	return "https://drive.google.com/file/d/" + fileID + "/view?usp=sharing"
}

// ImportDriveFile shares a Drive file picked by the owner with anyone holding the link,
// records it and appends a File block for it. The block id is the Drive file id.
func (s *Session) ImportDriveFile(ctx context.Context, accessToken, fileID, name string) (block.Block, error) {
	if !s.identity.IsAuthenticated() {
		return block.Block{}, ErrAuthRequired
	}
	if s.deps.Drive == nil || s.deps.Files == nil {
		return block.Block{}, ErrNotConfigured
	}
	if err := s.deps.Drive.GrantPublicRead(ctx, accessToken, fileID); err != nil {
		return block.Block{}, errors.Wrap(err, "granting read access to drive file")
	}

	f := block.UploadedFile{ID: fileID, Name: name, URL: DriveShareURL(fileID)}
	return s.addFile(ctx, f)
}

// UploadFile stores data in the blob store under the owner's folder and appends a File block for it.
func (s *Session) UploadFile(ctx context.Context, name, contentType string, data []byte) (block.Block, error) {
	if !s.identity.IsAuthenticated() {
		return block.Block{}, ErrAuthRequired
	}
	if s.deps.Blobs == nil || s.deps.Files == nil {
		return block.Block{}, ErrNotConfigured
	}

	id := uuid.New().String()
	name = cleanFileName(name)
	url, err := s.deps.Blobs.Upload(ctx, fmt.Sprintf("users/%s/%s/%s", s.identity.UID, id, name), data, contentType)
	if err != nil {
		return block.Block{}, errors.Wrap(err, "uploading file")
	}

	f := block.UploadedFile{ID: id, Name: name, URL: url}
	return s.addFile(ctx, f)
}

// addFile appends a File block for f and records the file. A file already held by a
// block of the workspace is not added twice. The block is removed again if the record
// cannot be written.
func (s *Session) addFile(ctx context.Context, f block.UploadedFile) (block.Block, error) {
	if b, ok := s.fileBlock(f.ID); ok {
		return b, nil
	}
	b, err := s.Create(block.KindFile, block.File{UploadedFile: f})
	if err != nil {
		return block.Block{}, err
	}

	rec := FileRecord{
		ID:         f.ID,
		Name:       f.Name,
		URL:        f.URL,
		OwnerID:    s.identity.UID,
		UploadedAt: s.deps.Clock.Now(),
	}
	if err = s.deps.Files.SaveFile(ctx, rec); err != nil {
		if rbErr := s.mutate(func(t *block.Tree) error {
			t.Delete(b.ID)
			return nil
		}); rbErr != nil {
			s.deps.Logger.Warn(fmt.Sprintf("removing block %s of unrecorded file: %v", b.ID, rbErr), rbErr)
		}
		return block.Block{}, errors.Wrap(err, "recording file")
	}
	return b, nil
}

// fileBlock finds the block holding the uploaded file fileID, at the root or in a folder.
func (s *Session) fileBlock(fileID string) (block.Block, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, b := range s.tree.Blocks() {
		candidates := []block.Block{b}
		if f, ok := b.IsFolder(); ok {
			candidates = f.Children
		}
		for _, c := range candidates {
			if file, ok := c.Content.(block.File); ok && file.ID == fileID {
				return c, true
			}
		}
	}
	return block.Block{}, false
}

// Files lists the file records of the owner.
func (s *Session) Files(ctx context.Context) ([]FileRecord, error) {
	if !s.identity.IsAuthenticated() {
		return nil, ErrAuthRequired
	}
	if s.deps.Files == nil {
		return nil, ErrNotConfigured
	}
	return s.deps.Files.QueryFiles(ctx, s.identity.UID)
}

func cleanFileName(name string) string {
	name = path.Base(strings.ReplaceAll(strings.TrimSpace(name), "\\", "/"))
	if name == "." || name == "/" || name == "" {
		return "file"
	}
	return name
}
