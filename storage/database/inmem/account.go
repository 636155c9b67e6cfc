package inmemdb

import (
	"context"

	"github.com/trezcool/studyspace/core/account"
)

type accountRepository struct {
	db *DB
}

var _ account.Repository = (*accountRepository)(nil)

func NewAccountRepository(db *DB) account.Repository {
	return &accountRepository{db: db}
}

func (repo *accountRepository) CreateAccount(_ context.Context, acc account.Account) (account.Account, error) {
	repo.db.mu.Lock()
	defer repo.db.mu.Unlock()

	for _, a := range repo.db.accounts {
		if a.Email == acc.Email {
			return account.Account{}, account.ErrEmailExists
		}
	}
	repo.db.accounts[acc.UID] = &acc
	return acc, nil
}

func (repo *accountRepository) GetAccountByUID(_ context.Context, uid string) (account.Account, error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()

	if acc, ok := repo.db.accounts[uid]; ok {
		return *acc, nil
	}
	return account.Account{}, account.ErrNotFound
}

func (repo *accountRepository) GetAccountByEmail(_ context.Context, email string) (account.Account, error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()

	if email != "" {
		for _, acc := range repo.db.accounts {
			if acc.Email == email {
				return *acc, nil
			}
		}
	}
	return account.Account{}, account.ErrNotFound
}

func (repo *accountRepository) UpdateAccount(_ context.Context, acc account.Account) (account.Account, error) {
	repo.db.mu.Lock()
	defer repo.db.mu.Unlock()

	orig, ok := repo.db.accounts[acc.UID]
	if !ok {
		return account.Account{}, account.ErrNotFound
	}
	for _, a := range repo.db.accounts {
		if a.UID != acc.UID && a.Email == acc.Email {
			return account.Account{}, account.ErrEmailExists
		}
	}

	// only save set fields
	if acc.PasswordHash != nil {
		orig.PasswordHash = acc.PasswordHash
	}
	if !acc.LastLogin.IsZero() {
		orig.LastLogin = acc.LastLogin
	}
	orig.DisplayName = acc.DisplayName
	orig.Email = acc.Email
	orig.UpdatedAt = acc.UpdatedAt
	return *orig, nil
}
