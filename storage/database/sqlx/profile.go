package sqlxrepos

import (
	"context"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/volatiletech/null/v8"

	"github.com/trezcool/studyspace/core/profile"
)

const profileColumns = "uid, full_name, email, college, stream, updated_at"

type (
	profileRepository struct {
		db *sqlx.DB
	}

	profileRow struct {
		UID       string    `db:"uid"`
		FullName  string    `db:"full_name"`
		Email     string    `db:"email"`
		College   string    `db:"college"`
		Stream    string    `db:"stream"`
		UpdatedAt time.Time `db:"updated_at"`
	}
)

var _ profile.Repository = (*profileRepository)(nil)

func NewProfileRepository(db *sqlx.DB) profile.Repository {
	return &profileRepository{db: db}
}

func (r profileRow) profile() profile.Profile {
	return profile.Profile{
		UID:       r.UID,
		FullName:  r.FullName,
		Email:     r.Email,
		College:   r.College,
		Stream:    r.Stream,
		UpdatedAt: r.UpdatedAt.UTC(),
	}
}

func (repo *profileRepository) GetProfile(ctx context.Context, uid string) (profile.Profile, error) {
	var row profileRow
	q := `SELECT ` + profileColumns + ` FROM profiles WHERE uid = $1`
	if err := repo.db.GetContext(ctx, &row, q, uid); err != nil {
		return profile.Profile{}, trapNoRowsErr(err, profile.ErrNotFound, "selecting profile")
	}
	return row.profile(), nil
}

func (repo *profileRepository) CreateProfile(ctx context.Context, p profile.Profile) (profile.Profile, error) {
	q := `INSERT INTO profiles (` + profileColumns + `) VALUES ($1, $2, $3, $4, $5, $6) ON CONFLICT (uid) DO NOTHING`
	res, err := repo.db.ExecContext(ctx, q, p.UID, p.FullName, p.Email, p.College, p.Stream, p.UpdatedAt.UTC())
	if err != nil {
		return profile.Profile{}, trapNoRowsErr(err, profile.ErrNotFound, "inserting profile")
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return profile.Profile{}, profile.ErrExists
	}
	return p, nil
}

func (repo *profileRepository) UpdateProfile(ctx context.Context, uid string, upd profile.UpdateProfile, at time.Time) (profile.Profile, error) {
	q := `INSERT INTO profiles (uid, full_name, college, stream, updated_at)
		VALUES ($1, COALESCE($2, ''), COALESCE($3, ''), COALESCE($4, ''), $5)
		ON CONFLICT (uid) DO UPDATE SET
			full_name = COALESCE($2, profiles.full_name),
			college = COALESCE($3, profiles.college),
			stream = COALESCE($4, profiles.stream),
			updated_at = $5
		RETURNING ` + profileColumns
	var row profileRow
	err := repo.db.GetContext(ctx, &row, q,
		uid,
		null.StringFromPtr(upd.FullName),
		null.StringFromPtr(upd.College),
		null.StringFromPtr(upd.Stream),
		at.UTC(),
	)
	if err != nil {
		return profile.Profile{}, trapNoRowsErr(err, profile.ErrNotFound, "updating profile")
	}
	return row.profile(), nil
}
