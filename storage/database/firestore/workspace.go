package firestorerepos

import (
	"context"
	"sort"
	"time"

	"cloud.google.com/go/firestore"
	"github.com/pkg/errors"

	"github.com/trezcool/studyspace/core"
	"github.com/trezcool/studyspace/core/workspace"
)

type (
	workspaceRepository struct {
		client *firestore.Client
	}

	fileRepository struct {
		client *firestore.Client
	}

	workspaceDoc struct {
		Blocks    string    `firestore:"blocks"`
		UpdatedAt time.Time `firestore:"updatedAt"`
	}

	fileDoc struct {
		Name       string    `firestore:"name"`
		URL        string    `firestore:"url"`
		OwnerID    string    `firestore:"uid"`
		UploadedAt time.Time `firestore:"uploadedAt"`
	}
)

var (
	_ workspace.Store     = (*workspaceRepository)(nil)
	_ workspace.FileStore = (*fileRepository)(nil)
)

func NewWorkspaceRepository(client *firestore.Client) workspace.Store {
	return &workspaceRepository{client: client}
}

func NewFileRepository(client *firestore.Client) workspace.FileStore {
	return &fileRepository{client: client}
}

func (repo *workspaceRepository) doc(ownerID string) *firestore.DocumentRef {
	return repo.client.Collection(workspacesColl).Doc(ownerID)
}

func (repo *workspaceRepository) GetWorkspace(ctx context.Context, ownerID string) (workspace.Document, error) {
	snap, err := repo.doc(ownerID).Get(ctx)
	if err != nil {
		if isNotFound(err) {
			return workspace.Document{}, workspace.ErrNotFound
		}
		return workspace.Document{}, storeErr(err, "getting workspace")
	}
	var doc workspaceDoc
	if err = snap.DataTo(&doc); err != nil {
		return workspace.Document{}, errors.Wrap(err, "decoding workspace")
	}
	return workspace.Document{OwnerID: ownerID, Blocks: doc.Blocks, UpdatedAt: doc.UpdatedAt.UTC()}, nil
}

// SaveWorkspace merges so fields written by other clients survive.
func (repo *workspaceRepository) SaveWorkspace(ctx context.Context, doc workspace.Document) error {
	data := map[string]interface{}{"blocks": doc.Blocks, "updatedAt": doc.UpdatedAt.UTC()}
	if _, err := repo.doc(doc.OwnerID).Set(ctx, data, firestore.MergeAll); err != nil {
		return storeErr(err, "saving workspace")
	}
	return nil
}

func (repo *workspaceRepository) CreateWorkspaceIfAbsent(ctx context.Context, doc workspace.Document) (bool, error) {
	_, err := repo.doc(doc.OwnerID).Create(ctx, workspaceDoc{Blocks: doc.Blocks, UpdatedAt: doc.UpdatedAt.UTC()})
	if err != nil {
		if isAlreadyExists(err) {
			return false, nil
		}
		return false, storeErr(err, "creating workspace")
	}
	return true, nil
}

func (repo *fileRepository) coll() *firestore.CollectionRef {
	return repo.client.Collection(filesColl)
}

func (repo *fileRepository) SaveFile(ctx context.Context, rec workspace.FileRecord) error {
	_, err := repo.coll().Doc(rec.ID).Set(ctx, fileDoc{
		Name:       rec.Name,
		URL:        rec.URL,
		OwnerID:    rec.OwnerID,
		UploadedAt: rec.UploadedAt.UTC(),
	})
	if err != nil {
		return storeErr(err, "saving file")
	}
	return nil
}

func (repo *fileRepository) DeleteFile(ctx context.Context, id string) error {
	ref := repo.coll().Doc(id)
	if _, err := ref.Get(ctx); err != nil {
		if isNotFound(err) {
			return workspace.ErrFileNotFound
		}
		return storeErr(err, "getting file")
	}
	if _, err := ref.Delete(ctx); err != nil {
		return storeErr(err, "deleting file")
	}
	return nil
}

// QueryFiles sorts in memory when the owner/upload-time index is missing.
func (repo *fileRepository) QueryFiles(ctx context.Context, ownerID string) ([]workspace.FileRecord, error) {
	q := repo.coll().Where("uid", "==", ownerID)
	snaps, err := q.OrderBy("uploadedAt", firestore.Desc).Documents(ctx).GetAll()
	sorted := err == nil
	if err != nil {
		if err = storeErr(err, "querying files"); !core.IsMissingIndex(err) {
			return nil, err
		}
		if snaps, err = q.Documents(ctx).GetAll(); err != nil {
			return nil, storeErr(err, "querying files")
		}
	}

	recs := make([]workspace.FileRecord, 0, len(snaps))
	for _, snap := range snaps {
		var doc fileDoc
		if err = snap.DataTo(&doc); err != nil {
			return nil, errors.Wrap(err, "decoding file")
		}
		recs = append(recs, workspace.FileRecord{
			ID:         snap.Ref.ID,
			Name:       doc.Name,
			URL:        doc.URL,
			OwnerID:    doc.OwnerID,
			UploadedAt: doc.UploadedAt.UTC(),
		})
	}
	if !sorted {
		sort.SliceStable(recs, func(i, j int) bool { return recs[i].UploadedAt.After(recs[j].UploadedAt) })
	}
	return recs, nil
}
