package inmemdb

import (
	"context"
	"sort"

	"github.com/trezcool/studyspace/core/workspace"
)

type (
	workspaceRepository struct {
		db *DB
	}

	fileRepository struct {
		db *DB
	}
)

var (
	_ workspace.Store     = (*workspaceRepository)(nil)
	_ workspace.FileStore = (*fileRepository)(nil)
)

func NewWorkspaceRepository(db *DB) workspace.Store {
	return &workspaceRepository{db: db}
}

func NewFileRepository(db *DB) workspace.FileStore {
	return &fileRepository{db: db}
}

func (repo *workspaceRepository) GetWorkspace(_ context.Context, ownerID string) (workspace.Document, error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()

	if doc, ok := repo.db.workspaces[ownerID]; ok {
		return *doc, nil
	}
	return workspace.Document{}, workspace.ErrNotFound
}

func (repo *workspaceRepository) SaveWorkspace(_ context.Context, doc workspace.Document) error {
	repo.db.mu.Lock()
	defer repo.db.mu.Unlock()

	repo.db.workspaces[doc.OwnerID] = &doc
	return nil
}

func (repo *workspaceRepository) CreateWorkspaceIfAbsent(_ context.Context, doc workspace.Document) (bool, error) {
	repo.db.mu.Lock()
	defer repo.db.mu.Unlock()

	if _, ok := repo.db.workspaces[doc.OwnerID]; ok {
		return false, nil
	}
	repo.db.workspaces[doc.OwnerID] = &doc
	return true, nil
}

func (repo *fileRepository) SaveFile(_ context.Context, rec workspace.FileRecord) error {
	repo.db.mu.Lock()
	defer repo.db.mu.Unlock()

	repo.db.files[rec.ID] = &rec
	return nil
}

func (repo *fileRepository) DeleteFile(_ context.Context, id string) error {
	repo.db.mu.Lock()
	defer repo.db.mu.Unlock()

	if _, ok := repo.db.files[id]; !ok {
		return workspace.ErrFileNotFound
	}
	delete(repo.db.files, id)
	return nil
}

func (repo *fileRepository) QueryFiles(_ context.Context, ownerID string) ([]workspace.FileRecord, error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()

	recs := make([]workspace.FileRecord, 0)
	for _, rec := range repo.db.files {
		if rec.OwnerID == ownerID {
			recs = append(recs, *rec)
		}
	}
	sort.Slice(recs, func(i, j int) bool {
		if !recs[i].UploadedAt.Equal(recs[j].UploadedAt) {
			return recs[i].UploadedAt.After(recs[j].UploadedAt)
		}
		return recs[i].ID < recs[j].ID
	})
	return recs, nil
}
