package inmemdb

import (
	"context"
	"time"

	"github.com/trezcool/studyspace/core/profile"
)

type profileRepository struct {
	db *DB
}

var _ profile.Repository = (*profileRepository)(nil)

func NewProfileRepository(db *DB) profile.Repository {
	return &profileRepository{db: db}
}

func (repo *profileRepository) GetProfile(_ context.Context, uid string) (profile.Profile, error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()

	if p, ok := repo.db.profiles[uid]; ok {
		return *p, nil
	}
	return profile.Profile{}, profile.ErrNotFound
}

func (repo *profileRepository) CreateProfile(_ context.Context, p profile.Profile) (profile.Profile, error) {
	repo.db.mu.Lock()
	defer repo.db.mu.Unlock()

	if _, ok := repo.db.profiles[p.UID]; ok {
		return profile.Profile{}, profile.ErrExists
	}
	repo.db.profiles[p.UID] = &p
	return p, nil
}

func (repo *profileRepository) UpdateProfile(_ context.Context, uid string, upd profile.UpdateProfile, at time.Time) (profile.Profile, error) {
	repo.db.mu.Lock()
	defer repo.db.mu.Unlock()

	p, ok := repo.db.profiles[uid]
	if !ok {
		p = &profile.Profile{UID: uid}
		repo.db.profiles[uid] = p
	}
	if upd.FullName != nil {
		p.FullName = *upd.FullName
	}
	if upd.College != nil {
		p.College = *upd.College
	}
	if upd.Stream != nil {
		p.Stream = *upd.Stream
	}
	p.UpdatedAt = at
	return *p, nil
}
