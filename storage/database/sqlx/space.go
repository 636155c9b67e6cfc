package sqlxrepos

import (
	"context"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"

	"github.com/trezcool/studyspace/core"
	"github.com/trezcool/studyspace/core/space"
)

const (
	spaceColumns  = "id, title, owner_uid, owner_display_name, blocks, published_at, is_public, view_count, rating, rating_count"
	ratingColumns = "space_id, rater_id, stars, review, created_at, updated_at"
)

type (
	spaceRepository struct {
		db *sqlx.DB
	}

	spaceRow struct {
		ID               string    `db:"id"`
		Title            string    `db:"title"`
		OwnerID          string    `db:"owner_uid"`
		OwnerDisplayName string    `db:"owner_display_name"`
		Blocks           string    `db:"blocks"`
		PublishedAt      time.Time `db:"published_at"`
		IsPublic         bool      `db:"is_public"`
		ViewCount        int64     `db:"view_count"`
		Rating           float64   `db:"rating"`
		RatingCount      int       `db:"rating_count"`
	}

	ratingRow struct {
		SpaceID   string    `db:"space_id"`
		RaterID   string    `db:"rater_id"`
		Stars     int       `db:"stars"`
		Review    string    `db:"review"`
		CreatedAt time.Time `db:"created_at"`
		UpdatedAt time.Time `db:"updated_at"`
	}
)

var _ space.Repository = (*spaceRepository)(nil)

var publishedDesc = core.DBOrdering{Field: "published_at"}

// orderings maps each public sort to its ORDER BY terms, newest first on ties.
var orderings = map[string][]core.DBOrdering{
	space.SortRating: {{Field: "rating"}, publishedDesc},
	space.SortViews:  {{Field: "view_count"}, publishedDesc},
	space.SortDate:   {publishedDesc},
}

func NewSpaceRepository(db *sqlx.DB) space.Repository {
	return &spaceRepository{db: db}
}

func toSpaceRow(sp space.Space) spaceRow {
	return spaceRow{
		ID:               sp.ID,
		Title:            sp.Title,
		OwnerID:          sp.OwnerID,
		OwnerDisplayName: sp.OwnerDisplayName,
		Blocks:           sp.Blocks,
		PublishedAt:      sp.PublishedAt.UTC(),
		IsPublic:         sp.IsPublic,
		ViewCount:        sp.ViewCount,
		Rating:           sp.Rating,
		RatingCount:      sp.RatingCount,
	}
}

func (r spaceRow) space() space.Space {
	return space.Space{
		ID:               r.ID,
		Title:            r.Title,
		OwnerID:          r.OwnerID,
		OwnerDisplayName: r.OwnerDisplayName,
		Blocks:           r.Blocks,
		PublishedAt:      r.PublishedAt.UTC(),
		IsPublic:         r.IsPublic,
		ViewCount:        r.ViewCount,
		Rating:           r.Rating,
		RatingCount:      r.RatingCount,
	}
}

func (r ratingRow) rating() space.Rating {
	return space.Rating{
		SpaceID:   r.SpaceID,
		RaterID:   r.RaterID,
		Stars:     r.Stars,
		Review:    r.Review,
		CreatedAt: r.CreatedAt.UTC(),
		UpdatedAt: r.UpdatedAt.UTC(),
	}
}

func orderBy(ords []core.DBOrdering) string {
	terms := make([]string, 0, len(ords))
	for _, ord := range ords {
		terms = append(terms, ord.String())
	}
	return " ORDER BY " + strings.Join(terms, ", ")
}

func (repo *spaceRepository) selectSpaces(ctx context.Context, q string, args ...interface{}) ([]space.Space, error) {
	var rows []spaceRow
	if err := repo.db.SelectContext(ctx, &rows, q, args...); err != nil {
		return nil, errors.Wrap(err, "selecting spaces")
	}
	spaces := make([]space.Space, 0, len(rows))
	for _, r := range rows {
		spaces = append(spaces, r.space())
	}
	return spaces, nil
}

func (repo *spaceRepository) CreateSpace(ctx context.Context, sp space.Space) (space.Space, error) {
	q := `INSERT INTO published_spaces (` + spaceColumns + `) VALUES
		(:id, :title, :owner_uid, :owner_display_name, :blocks, :published_at, :is_public, :view_count, :rating, :rating_count)`
	if _, err := repo.db.NamedExecContext(ctx, q, toSpaceRow(sp)); err != nil {
		return space.Space{}, errors.Wrap(err, "inserting space")
	}
	return sp, nil
}

func (repo *spaceRepository) GetSpace(ctx context.Context, id string) (space.Space, error) {
	var row spaceRow
	q := `SELECT ` + spaceColumns + ` FROM published_spaces WHERE id = $1`
	if err := repo.db.GetContext(ctx, &row, q, id); err != nil {
		return space.Space{}, trapNoRowsErr(err, space.ErrNotFound, "selecting space")
	}
	return row.space(), nil
}

func (repo *spaceRepository) IncrementViews(ctx context.Context, id string) (int64, error) {
	var count int64
	q := `UPDATE published_spaces SET view_count = view_count + 1 WHERE id = $1 RETURNING view_count`
	if err := repo.db.GetContext(ctx, &count, q, id); err != nil {
		return 0, trapNoRowsErr(err, space.ErrNotFound, "incrementing views")
	}
	return count, nil
}

func (repo *spaceRepository) QueryPublicSpaces(ctx context.Context, pq space.PublicQuery) ([]space.Space, error) {
	q := `SELECT ` + spaceColumns + ` FROM published_spaces WHERE is_public = TRUE`
	args := make([]interface{}, 0, 1)
	if pq.Sort != "" {
		ords, ok := orderings[pq.Sort]
		if !ok {
			return nil, space.ErrInvalidSort
		}
		q += orderBy(ords)
		if pq.Limit > 0 {
			q += ` LIMIT $1`
			args = append(args, pq.Limit)
		}
	}
	return repo.selectSpaces(ctx, q, args...)
}

func (repo *spaceRepository) QuerySpacesByOwner(ctx context.Context, ownerID string, ordered bool) ([]space.Space, error) {
	q := `SELECT ` + spaceColumns + ` FROM published_spaces WHERE owner_uid = $1`
	if ordered {
		q += orderBy([]core.DBOrdering{publishedDesc})
	}
	return repo.selectSpaces(ctx, q, ownerID)
}

// UpsertRating locks the space row so concurrent raters recompute the aggregate one at a time.
func (repo *spaceRepository) UpsertRating(ctx context.Context, r space.Rating) (space.Rating, error) {
	tx, err := repo.db.BeginTxx(ctx, nil)
	if err != nil {
		return space.Rating{}, errors.Wrap(err, "beginning transaction")
	}
	defer rollback(tx)

	var id string
	if err = tx.GetContext(ctx, &id, `SELECT id FROM published_spaces WHERE id = $1 FOR UPDATE`, r.SpaceID); err != nil {
		return space.Rating{}, trapNoRowsErr(err, space.ErrNotFound, "locking space")
	}

	var row ratingRow
	q := `INSERT INTO space_ratings (` + ratingColumns + `) VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (space_id, rater_id) DO UPDATE SET
			stars = EXCLUDED.stars,
			review = EXCLUDED.review,
			updated_at = EXCLUDED.updated_at
		RETURNING ` + ratingColumns
	err = tx.GetContext(ctx, &row, q, r.SpaceID, r.RaterID, r.Stars, r.Review, r.CreatedAt.UTC(), r.UpdatedAt.UTC())
	if err != nil {
		return space.Rating{}, errors.Wrap(err, "upserting rating")
	}

	q = `UPDATE published_spaces SET
			rating = COALESCE((SELECT AVG(stars) FROM space_ratings WHERE space_id = $1), 0),
			rating_count = (SELECT COUNT(*) FROM space_ratings WHERE space_id = $1)
		WHERE id = $1`
	if _, err = tx.ExecContext(ctx, q, r.SpaceID); err != nil {
		return space.Rating{}, errors.Wrap(err, "refreshing space rating")
	}

	if err = tx.Commit(); err != nil {
		return space.Rating{}, errors.Wrap(err, "committing rating")
	}
	return row.rating(), nil
}

func (repo *spaceRepository) QueryRatings(ctx context.Context, spaceID string) ([]space.Rating, error) {
	var rows []ratingRow
	q := `SELECT ` + ratingColumns + ` FROM space_ratings WHERE space_id = $1 ORDER BY updated_at DESC, rater_id ASC`
	if err := repo.db.SelectContext(ctx, &rows, q, spaceID); err != nil {
		return nil, errors.Wrap(err, "selecting ratings")
	}
	ratings := make([]space.Rating, 0, len(rows))
	for _, r := range rows {
		ratings = append(ratings, r.rating())
	}
	return ratings, nil
}
