package sqlxrepos

import (
	"context"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"

	"github.com/trezcool/studyspace/core/workspace"
)

type (
	workspaceRepository struct {
		db *sqlx.DB
	}

	fileRepository struct {
		db *sqlx.DB
	}

	workspaceRow struct {
		OwnerID   string    `db:"owner_uid"`
		Blocks    string    `db:"blocks"`
		UpdatedAt time.Time `db:"updated_at"`
	}

	fileRow struct {
		ID         string    `db:"id"`
		OwnerID    string    `db:"owner_uid"`
		Name       string    `db:"name"`
		URL        string    `db:"url"`
		UploadedAt time.Time `db:"uploaded_at"`
	}
)

var (
	_ workspace.Store     = (*workspaceRepository)(nil)
	_ workspace.FileStore = (*fileRepository)(nil)
)

func NewWorkspaceRepository(db *sqlx.DB) workspace.Store {
	return &workspaceRepository{db: db}
}

func NewFileRepository(db *sqlx.DB) workspace.FileStore {
	return &fileRepository{db: db}
}

func (repo *workspaceRepository) GetWorkspace(ctx context.Context, ownerID string) (workspace.Document, error) {
	var row workspaceRow
	q := `SELECT owner_uid, blocks, updated_at FROM user_workspaces WHERE owner_uid = $1`
	if err := repo.db.GetContext(ctx, &row, q, ownerID); err != nil {
		return workspace.Document{}, trapNoRowsErr(err, workspace.ErrNotFound, "selecting workspace")
	}
	return workspace.Document{OwnerID: row.OwnerID, Blocks: row.Blocks, UpdatedAt: row.UpdatedAt.UTC()}, nil
}

func (repo *workspaceRepository) SaveWorkspace(ctx context.Context, doc workspace.Document) error {
	q := `INSERT INTO user_workspaces (owner_uid, blocks, updated_at) VALUES (:owner_uid, :blocks, :updated_at)
		ON CONFLICT (owner_uid) DO UPDATE SET blocks = EXCLUDED.blocks, updated_at = EXCLUDED.updated_at`
	if _, err := repo.db.NamedExecContext(ctx, q, toWorkspaceRow(doc)); err != nil {
		return errors.Wrap(err, "saving workspace")
	}
	return nil
}

func (repo *workspaceRepository) CreateWorkspaceIfAbsent(ctx context.Context, doc workspace.Document) (bool, error) {
	q := `INSERT INTO user_workspaces (owner_uid, blocks, updated_at) VALUES (:owner_uid, :blocks, :updated_at)
		ON CONFLICT (owner_uid) DO NOTHING`
	res, err := repo.db.NamedExecContext(ctx, q, toWorkspaceRow(doc))
	if err != nil {
		return false, errors.Wrap(err, "creating workspace")
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, errors.Wrap(err, "creating workspace")
	}
	return n > 0, nil
}

func toWorkspaceRow(doc workspace.Document) workspaceRow {
	return workspaceRow{OwnerID: doc.OwnerID, Blocks: doc.Blocks, UpdatedAt: doc.UpdatedAt.UTC()}
}

func (repo *fileRepository) SaveFile(ctx context.Context, rec workspace.FileRecord) error {
	q := `INSERT INTO user_files (id, owner_uid, name, url, uploaded_at) VALUES (:id, :owner_uid, :name, :url, :uploaded_at)
		ON CONFLICT (id) DO UPDATE SET name = EXCLUDED.name, url = EXCLUDED.url`
	row := fileRow{ID: rec.ID, OwnerID: rec.OwnerID, Name: rec.Name, URL: rec.URL, UploadedAt: rec.UploadedAt.UTC()}
	if _, err := repo.db.NamedExecContext(ctx, q, row); err != nil {
		return errors.Wrap(err, "saving file")
	}
	return nil
}

func (repo *fileRepository) DeleteFile(ctx context.Context, id string) error {
	res, err := repo.db.ExecContext(ctx, `DELETE FROM user_files WHERE id = $1`, id)
	if err != nil {
		return errors.Wrap(err, "deleting file")
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return workspace.ErrFileNotFound
	}
	return nil
}

func (repo *fileRepository) QueryFiles(ctx context.Context, ownerID string) ([]workspace.FileRecord, error) {
	var rows []fileRow
	q := `SELECT id, owner_uid, name, url, uploaded_at FROM user_files WHERE owner_uid = $1 ORDER BY uploaded_at DESC, id ASC`
	if err := repo.db.SelectContext(ctx, &rows, q, ownerID); err != nil {
		return nil, errors.Wrap(err, "selecting files")
	}
	recs := make([]workspace.FileRecord, 0, len(rows))
	for _, r := range rows {
		recs = append(recs, workspace.FileRecord{
			ID:         r.ID,
			Name:       r.Name,
			URL:        r.URL,
			OwnerID:    r.OwnerID,
			UploadedAt: r.UploadedAt.UTC(),
		})
	}
	return recs, nil
}
