package inmemdb

import (
	"context"
	"sort"

	"github.com/trezcool/studyspace/core/space"
)

type spaceRepository struct {
	db *DB
}

var _ space.Repository = (*spaceRepository)(nil)

func NewSpaceRepository(db *DB) space.Repository {
	return &spaceRepository{db: db}
}

func (repo *spaceRepository) CreateSpace(_ context.Context, sp space.Space) (space.Space, error) {
	repo.db.mu.Lock()
	defer repo.db.mu.Unlock()

	repo.db.spaces[sp.ID] = &sp
	return sp, nil
}

func (repo *spaceRepository) GetSpace(_ context.Context, id string) (space.Space, error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()

	if sp, ok := repo.db.spaces[id]; ok {
		return *sp, nil
	}
	return space.Space{}, space.ErrNotFound
}

func (repo *spaceRepository) IncrementViews(_ context.Context, id string) (int64, error) {
	repo.db.mu.Lock()
	defer repo.db.mu.Unlock()

	sp, ok := repo.db.spaces[id]
	if !ok {
		return 0, space.ErrNotFound
	}
	sp.ViewCount++
	return sp.ViewCount, nil
}

func (repo *spaceRepository) QueryPublicSpaces(_ context.Context, q space.PublicQuery) ([]space.Space, error) {
	if err := repo.db.checkIndex("querying public spaces", q.Sort != ""); err != nil {
		return nil, err
	}

	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()

	spaces := make([]space.Space, 0)
	for _, sp := range repo.db.spaces {
		if sp.IsPublic {
			spaces = append(spaces, *sp)
		}
	}
	if q.Sort != "" {
		space.SortSpaces(spaces, q.Sort)
		if q.Limit > 0 && len(spaces) > q.Limit {
			spaces = spaces[:q.Limit]
		}
	}
	return spaces, nil
}

func (repo *spaceRepository) QuerySpacesByOwner(_ context.Context, ownerID string, ordered bool) ([]space.Space, error) {
	if err := repo.db.checkIndex("querying owner spaces", ordered); err != nil {
		return nil, err
	}

	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()

	spaces := make([]space.Space, 0)
	for _, sp := range repo.db.spaces {
		if sp.OwnerID == ownerID {
			spaces = append(spaces, *sp)
		}
	}
	if ordered {
		space.SortSpaces(spaces, space.SortDate)
	}
	return spaces, nil
}

func (repo *spaceRepository) UpsertRating(_ context.Context, r space.Rating) (space.Rating, error) {
	repo.db.mu.Lock()
	defer repo.db.mu.Unlock()

	sp, ok := repo.db.spaces[r.SpaceID]
	if !ok {
		return space.Rating{}, space.ErrNotFound
	}
	ratings, ok := repo.db.ratings[r.SpaceID]
	if !ok {
		ratings = make(map[string]*space.Rating)
		repo.db.ratings[r.SpaceID] = ratings
	}
	if prev, ok := ratings[r.RaterID]; ok {
		r.CreatedAt = prev.CreatedAt
	}
	ratings[r.RaterID] = &r

	all := make([]space.Rating, 0, len(ratings))
	for _, rt := range ratings {
		all = append(all, *rt)
	}
	agg := space.Summarize(all)
	sp.Rating = agg.Average
	sp.RatingCount = agg.Count
	return r, nil
}

func (repo *spaceRepository) QueryRatings(_ context.Context, spaceID string) ([]space.Rating, error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()

	ratings := make([]space.Rating, 0, len(repo.db.ratings[spaceID]))
	for _, r := range repo.db.ratings[spaceID] {
		ratings = append(ratings, *r)
	}
	sort.Slice(ratings, func(i, j int) bool {
		if !ratings[i].UpdatedAt.Equal(ratings[j].UpdatedAt) {
			return ratings[i].UpdatedAt.After(ratings[j].UpdatedAt)
		}
		return ratings[i].RaterID < ratings[j].RaterID
	})
	return ratings, nil
}
