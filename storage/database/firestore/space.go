package firestorerepos

import (
	"context"
	"time"

	"cloud.google.com/go/firestore"
	"github.com/pkg/errors"

	"github.com/trezcool/studyspace/core/space"
)

type (
	spaceRepository struct {
		client *firestore.Client
	}

	spaceDoc struct {
		Title            string    `firestore:"title"`
		OwnerID          string    `firestore:"ownerUid"`
		OwnerDisplayName string    `firestore:"ownerDisplayName"`
		Blocks           string    `firestore:"blocks"`
		PublishedAt      time.Time `firestore:"publishedAt"`
		IsPublic         bool      `firestore:"isPublic"`
		ViewCount        int64     `firestore:"viewCount"`
		Rating           float64   `firestore:"rating"`
		RatingCount      int       `firestore:"ratingCount"`
	}

	ratingDoc struct {
		RaterID   string    `firestore:"raterId"`
		Stars     int       `firestore:"stars"`
		Review    string    `firestore:"review"`
		CreatedAt time.Time `firestore:"createdAt"`
		UpdatedAt time.Time `firestore:"updatedAt"`
	}
)

var _ space.Repository = (*spaceRepository)(nil)

// sortFields maps each public sort to its primary field; ties go to the newest.
var sortFields = map[string]string{
	space.SortRating: "rating",
	space.SortViews:  "viewCount",
	space.SortDate:   "publishedAt",
}

func NewSpaceRepository(client *firestore.Client) space.Repository {
	return &spaceRepository{client: client}
}

func (repo *spaceRepository) coll() *firestore.CollectionRef {
	return repo.client.Collection(spacesColl)
}

func (repo *spaceRepository) ratings(spaceID string) *firestore.CollectionRef {
	return repo.coll().Doc(spaceID).Collection(ratingsColl)
}

func toSpace(snap *firestore.DocumentSnapshot) (space.Space, error) {
	var doc spaceDoc
	if err := snap.DataTo(&doc); err != nil {
		return space.Space{}, errors.Wrap(err, "decoding space")
	}
	return space.Space{
		ID:               snap.Ref.ID,
		Title:            doc.Title,
		OwnerID:          doc.OwnerID,
		OwnerDisplayName: doc.OwnerDisplayName,
		Blocks:           doc.Blocks,
		PublishedAt:      doc.PublishedAt.UTC(),
		IsPublic:         doc.IsPublic,
		ViewCount:        doc.ViewCount,
		Rating:           doc.Rating,
		RatingCount:      doc.RatingCount,
	}, nil
}

func toRating(spaceID string, snap *firestore.DocumentSnapshot) (space.Rating, error) {
	var doc ratingDoc
	if err := snap.DataTo(&doc); err != nil {
		return space.Rating{}, errors.Wrap(err, "decoding rating")
	}
	return space.Rating{
		SpaceID:   spaceID,
		RaterID:   doc.RaterID,
		Stars:     doc.Stars,
		Review:    doc.Review,
		CreatedAt: doc.CreatedAt.UTC(),
		UpdatedAt: doc.UpdatedAt.UTC(),
	}, nil
}

func (repo *spaceRepository) query(ctx context.Context, q firestore.Query, op string) ([]space.Space, error) {
	snaps, err := q.Documents(ctx).GetAll()
	if err != nil {
		return nil, storeErr(err, op)
	}
	spaces := make([]space.Space, 0, len(snaps))
	for _, snap := range snaps {
		sp, err := toSpace(snap)
		if err != nil {
			return nil, err
		}
		spaces = append(spaces, sp)
	}
	return spaces, nil
}

func (repo *spaceRepository) CreateSpace(ctx context.Context, sp space.Space) (space.Space, error) {
	_, err := repo.coll().Doc(sp.ID).Create(ctx, spaceDoc{
		Title:            sp.Title,
		OwnerID:          sp.OwnerID,
		OwnerDisplayName: sp.OwnerDisplayName,
		Blocks:           sp.Blocks,
		PublishedAt:      sp.PublishedAt.UTC(),
		IsPublic:         sp.IsPublic,
		ViewCount:        sp.ViewCount,
		Rating:           sp.Rating,
		RatingCount:      sp.RatingCount,
	})
	if err != nil {
		return space.Space{}, storeErr(err, "creating space")
	}
	return sp, nil
}

func (repo *spaceRepository) GetSpace(ctx context.Context, id string) (space.Space, error) {
	snap, err := repo.coll().Doc(id).Get(ctx)
	if err != nil {
		if isNotFound(err) {
			return space.Space{}, space.ErrNotFound
		}
		return space.Space{}, storeErr(err, "getting space")
	}
	return toSpace(snap)
}

func (repo *spaceRepository) IncrementViews(ctx context.Context, id string) (int64, error) {
	ref := repo.coll().Doc(id)
	if _, err := ref.Update(ctx, []firestore.Update{{Path: "viewCount", Value: firestore.Increment(1)}}); err != nil {
		if isNotFound(err) {
			return 0, space.ErrNotFound
		}
		return 0, storeErr(err, "incrementing views")
	}
	snap, err := ref.Get(ctx)
	if err != nil {
		return 0, storeErr(err, "getting views")
	}
	sp, err := toSpace(snap)
	if err != nil {
		return 0, err
	}
	return sp.ViewCount, nil
}

func (repo *spaceRepository) QueryPublicSpaces(ctx context.Context, pq space.PublicQuery) ([]space.Space, error) {
	q := repo.coll().Where("isPublic", "==", true)
	if pq.Sort != "" {
		field, ok := sortFields[pq.Sort]
		if !ok {
			return nil, space.ErrInvalidSort
		}
		q = q.OrderBy(field, firestore.Desc)
		if field != "publishedAt" {
			q = q.OrderBy("publishedAt", firestore.Desc)
		}
		if pq.Limit > 0 {
			q = q.Limit(pq.Limit)
		}
	}
	return repo.query(ctx, q, "querying public spaces")
}

func (repo *spaceRepository) QuerySpacesByOwner(ctx context.Context, ownerID string, ordered bool) ([]space.Space, error) {
	q := repo.coll().Where("ownerUid", "==", ownerID)
	if ordered {
		q = q.OrderBy("publishedAt", firestore.Desc)
	}
	return repo.query(ctx, q, "querying owner spaces")
}

// UpsertRating reads every rating of the space inside the transaction, so concurrent
// raters retry instead of overwriting each other's aggregate.
func (repo *spaceRepository) UpsertRating(ctx context.Context, r space.Rating) (space.Rating, error) {
	spaceRef := repo.coll().Doc(r.SpaceID)
	ratingRef := repo.ratings(r.SpaceID).Doc(r.RaterID)

	var saved space.Rating
	err := repo.client.RunTransaction(ctx, func(ctx context.Context, tx *firestore.Transaction) error {
		if _, err := tx.Get(spaceRef); err != nil {
			return err
		}
		snaps, err := tx.Documents(repo.ratings(r.SpaceID)).GetAll()
		if err != nil {
			return err
		}

		saved = r
		all := make([]space.Rating, 0, len(snaps)+1)
		for _, snap := range snaps {
			prev, err := toRating(r.SpaceID, snap)
			if err != nil {
				return err
			}
			if snap.Ref.ID == r.RaterID {
				saved.CreatedAt = prev.CreatedAt
				continue
			}
			all = append(all, prev)
		}
		all = append(all, saved)
		agg := space.Summarize(all)

		err = tx.Set(ratingRef, ratingDoc{
			RaterID:   saved.RaterID,
			Stars:     saved.Stars,
			Review:    saved.Review,
			CreatedAt: saved.CreatedAt.UTC(),
			UpdatedAt: saved.UpdatedAt.UTC(),
		})
		if err != nil {
			return err
		}
		return tx.Update(spaceRef, []firestore.Update{
			{Path: "rating", Value: agg.Average},
			{Path: "ratingCount", Value: agg.Count},
		})
	})
	if err != nil {
		if isNotFound(err) {
			return space.Rating{}, space.ErrNotFound
		}
		return space.Rating{}, storeErr(err, "upserting rating")
	}
	return saved, nil
}

func (repo *spaceRepository) QueryRatings(ctx context.Context, spaceID string) ([]space.Rating, error) {
	snaps, err := repo.ratings(spaceID).OrderBy("updatedAt", firestore.Desc).Documents(ctx).GetAll()
	if err != nil {
		return nil, storeErr(err, "querying ratings")
	}
	ratings := make([]space.Rating, 0, len(snaps))
	for _, snap := range snaps {
		rt, err := toRating(spaceID, snap)
		if err != nil {
			return nil, err
		}
		ratings = append(ratings, rt)
	}
	return ratings, nil
}
