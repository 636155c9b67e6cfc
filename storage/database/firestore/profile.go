package firestorerepos

import (
	"context"
	"time"

	"cloud.google.com/go/firestore"
	"github.com/pkg/errors"

	"github.com/trezcool/studyspace/core/profile"
)

type (
	profileRepository struct {
		client *firestore.Client
	}

	profileDoc struct {
		UID       string    `firestore:"uid"`
		FullName  string    `firestore:"full_name"`
		Email     string    `firestore:"email"`
		College   string    `firestore:"college"`
		Stream    string    `firestore:"stream"`
		UpdatedAt time.Time `firestore:"updated_at"`
	}
)

var _ profile.Repository = (*profileRepository)(nil)

func NewProfileRepository(client *firestore.Client) profile.Repository {
	return &profileRepository{client: client}
}

func (repo *profileRepository) doc(uid string) *firestore.DocumentRef {
	return repo.client.Collection(profilesColl).Doc(uid)
}

func (repo *profileRepository) GetProfile(ctx context.Context, uid string) (profile.Profile, error) {
	snap, err := repo.doc(uid).Get(ctx)
	if err != nil {
		if isNotFound(err) {
			return profile.Profile{}, profile.ErrNotFound
		}
		return profile.Profile{}, storeErr(err, "getting profile")
	}
	var doc profileDoc
	if err = snap.DataTo(&doc); err != nil {
		return profile.Profile{}, errors.Wrap(err, "decoding profile")
	}
	return profile.Profile{
		UID:       uid,
		FullName:  doc.FullName,
		Email:     doc.Email,
		College:   doc.College,
		Stream:    doc.Stream,
		UpdatedAt: doc.UpdatedAt.UTC(),
	}, nil
}

func (repo *profileRepository) CreateProfile(ctx context.Context, p profile.Profile) (profile.Profile, error) {
	_, err := repo.doc(p.UID).Create(ctx, profileDoc{
		UID:       p.UID,
		FullName:  p.FullName,
		Email:     p.Email,
		College:   p.College,
		Stream:    p.Stream,
		UpdatedAt: p.UpdatedAt.UTC(),
	})
	if err != nil {
		if isAlreadyExists(err) {
			return profile.Profile{}, profile.ErrExists
		}
		return profile.Profile{}, storeErr(err, "creating profile")
	}
	return p, nil
}

// UpdateProfile merges the set fields into the document, creating it if needed.
func (repo *profileRepository) UpdateProfile(ctx context.Context, uid string, upd profile.UpdateProfile, at time.Time) (profile.Profile, error) {
	data := map[string]interface{}{"uid": uid, "updated_at": at.UTC()}
	if upd.FullName != nil {
		data["full_name"] = *upd.FullName
	}
	if upd.College != nil {
		data["college"] = *upd.College
	}
	if upd.Stream != nil {
		data["stream"] = *upd.Stream
	}
	if _, err := repo.doc(uid).Set(ctx, data, firestore.MergeAll); err != nil {
		return profile.Profile{}, storeErr(err, "updating profile")
	}
	return repo.GetProfile(ctx, uid)
}
