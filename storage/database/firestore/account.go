package firestorerepos

import (
	"context"
	"time"

	"cloud.google.com/go/firestore"
	"github.com/pkg/errors"

	"github.com/trezcool/studyspace/core/account"
)

type (
	accountRepository struct {
		client *firestore.Client
	}

	accountDoc struct {
		UID          string    `firestore:"uid"`
		DisplayName  string    `firestore:"display_name"`
		Email        string    `firestore:"email"`
		PasswordHash []byte    `firestore:"password_hash"`
		CreatedAt    time.Time `firestore:"created_at"`
		UpdatedAt    time.Time `firestore:"updated_at"`
		LastLogin    time.Time `firestore:"last_login,omitempty"`
	}
)

var _ account.Repository = (*accountRepository)(nil)

func NewAccountRepository(client *firestore.Client) account.Repository {
	return &accountRepository{client: client}
}

func (d accountDoc) account() account.Account {
	return account.Account{
		UID:          d.UID,
		DisplayName:  d.DisplayName,
		Email:        d.Email,
		PasswordHash: d.PasswordHash,
		CreatedAt:    d.CreatedAt.UTC(),
		UpdatedAt:    d.UpdatedAt.UTC(),
		LastLogin:    d.LastLogin.UTC(),
	}
}

func (repo *accountRepository) coll() *firestore.CollectionRef {
	return repo.client.Collection(accountsColl)
}

// CreateAccount checks the email and creates the document in one transaction.
func (repo *accountRepository) CreateAccount(ctx context.Context, acc account.Account) (account.Account, error) {
	err := repo.client.RunTransaction(ctx, func(ctx context.Context, tx *firestore.Transaction) error {
		snaps, err := tx.Documents(repo.coll().Where("email", "==", acc.Email).Limit(1)).GetAll()
		if err != nil {
			return err
		}
		if len(snaps) > 0 {
			return account.ErrEmailExists
		}
		return tx.Create(repo.coll().Doc(acc.UID), accountDoc{
			UID:          acc.UID,
			DisplayName:  acc.DisplayName,
			Email:        acc.Email,
			PasswordHash: acc.PasswordHash,
			CreatedAt:    acc.CreatedAt.UTC(),
			UpdatedAt:    acc.UpdatedAt.UTC(),
			LastLogin:    acc.LastLogin.UTC(),
		})
	})
	switch {
	case err == nil:
		return acc, nil
	case errors.Is(err, account.ErrEmailExists), isAlreadyExists(err):
		return account.Account{}, account.ErrEmailExists
	}
	return account.Account{}, storeErr(err, "creating account")
}

func (repo *accountRepository) GetAccountByUID(ctx context.Context, uid string) (account.Account, error) {
	snap, err := repo.coll().Doc(uid).Get(ctx)
	if err != nil {
		if isNotFound(err) {
			return account.Account{}, account.ErrNotFound
		}
		return account.Account{}, storeErr(err, "getting account")
	}
	var doc accountDoc
	if err = snap.DataTo(&doc); err != nil {
		return account.Account{}, errors.Wrap(err, "decoding account")
	}
	return doc.account(), nil
}

func (repo *accountRepository) GetAccountByEmail(ctx context.Context, email string) (account.Account, error) {
	snaps, err := repo.coll().Where("email", "==", email).Limit(1).Documents(ctx).GetAll()
	if err != nil {
		return account.Account{}, storeErr(err, "querying account")
	}
	if len(snaps) == 0 {
		return account.Account{}, account.ErrNotFound
	}
	var doc accountDoc
	if err = snaps[0].DataTo(&doc); err != nil {
		return account.Account{}, errors.Wrap(err, "decoding account")
	}
	return doc.account(), nil
}

// UpdateAccount leaves the password hash and last login untouched when they are unset.
func (repo *accountRepository) UpdateAccount(ctx context.Context, acc account.Account) (account.Account, error) {
	updates := []firestore.Update{
		{Path: "display_name", Value: acc.DisplayName},
		{Path: "email", Value: acc.Email},
		{Path: "updated_at", Value: acc.UpdatedAt.UTC()},
	}
	if len(acc.PasswordHash) > 0 {
		updates = append(updates, firestore.Update{Path: "password_hash", Value: acc.PasswordHash})
	}
	if !acc.LastLogin.IsZero() {
		updates = append(updates, firestore.Update{Path: "last_login", Value: acc.LastLogin.UTC()})
	}
	if _, err := repo.coll().Doc(acc.UID).Update(ctx, updates); err != nil {
		if isNotFound(err) {
			return account.Account{}, account.ErrNotFound
		}
		return account.Account{}, storeErr(err, "updating account")
	}
	return repo.GetAccountByUID(ctx, acc.UID)
}
