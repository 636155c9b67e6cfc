package sqlxrepos

import (
	"context"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/volatiletech/null/v8"

	"github.com/trezcool/studyspace/core/account"
)

const accountColumns = "uid, display_name, email, password_hash, created_at, updated_at, last_login"

type (
	accountRepository struct {
		db *sqlx.DB
	}

	accountRow struct {
		UID          string     `db:"uid"`
		DisplayName  string     `db:"display_name"`
		Email        string     `db:"email"`
		PasswordHash null.Bytes `db:"password_hash"`
		CreatedAt    time.Time  `db:"created_at"`
		UpdatedAt    time.Time  `db:"updated_at"`
		LastLogin    null.Time  `db:"last_login"`
	}
)

var _ account.Repository = (*accountRepository)(nil)

func NewAccountRepository(db *sqlx.DB) account.Repository {
	return &accountRepository{db: db}
}

func toAccountRow(acc account.Account) accountRow {
	return accountRow{
		UID:          acc.UID,
		DisplayName:  acc.DisplayName,
		Email:        acc.Email,
		PasswordHash: null.NewBytes(acc.PasswordHash, len(acc.PasswordHash) > 0),
		CreatedAt:    acc.CreatedAt.UTC(),
		UpdatedAt:    acc.UpdatedAt.UTC(),
		LastLogin:    null.NewTime(acc.LastLogin.UTC(), !acc.LastLogin.IsZero()),
	}
}

func (r accountRow) account() account.Account {
	return account.Account{
		UID:          r.UID,
		DisplayName:  r.DisplayName,
		Email:        r.Email,
		PasswordHash: r.PasswordHash.Bytes,
		CreatedAt:    r.CreatedAt.UTC(),
		UpdatedAt:    r.UpdatedAt.UTC(),
		LastLogin:    r.LastLogin.Time.UTC(),
	}
}

func (repo *accountRepository) CreateAccount(ctx context.Context, acc account.Account) (account.Account, error) {
	q := `INSERT INTO accounts (` + accountColumns + `)
		VALUES (:uid, :display_name, :email, :password_hash, :created_at, :updated_at, :last_login)`
	if _, err := repo.db.NamedExecContext(ctx, q, toAccountRow(acc)); err != nil {
		if isUniqueViolation(err) {
			return account.Account{}, account.ErrEmailExists
		}
		return account.Account{}, trapNoRowsErr(err, account.ErrNotFound, "inserting account")
	}
	return acc, nil
}

func (repo *accountRepository) get(ctx context.Context, where string, arg string) (account.Account, error) {
	var row accountRow
	q := `SELECT ` + accountColumns + ` FROM accounts WHERE ` + where + ` = $1`
	if err := repo.db.GetContext(ctx, &row, q, arg); err != nil {
		return account.Account{}, trapNoRowsErr(err, account.ErrNotFound, "selecting account")
	}
	return row.account(), nil
}

func (repo *accountRepository) GetAccountByUID(ctx context.Context, uid string) (account.Account, error) {
	return repo.get(ctx, "uid", uid)
}

func (repo *accountRepository) GetAccountByEmail(ctx context.Context, email string) (account.Account, error) {
	return repo.get(ctx, "email", email)
}

func (repo *accountRepository) UpdateAccount(ctx context.Context, acc account.Account) (account.Account, error) {
	q := `UPDATE accounts SET
			display_name = :display_name,
			email = :email,
			password_hash = COALESCE(:password_hash, password_hash),
			updated_at = :updated_at,
			last_login = COALESCE(:last_login, last_login)
		WHERE uid = :uid
		RETURNING ` + accountColumns
	rows, err := repo.db.NamedQueryContext(ctx, q, toAccountRow(acc))
	if err != nil {
		if isUniqueViolation(err) {
			return account.Account{}, account.ErrEmailExists
		}
		return account.Account{}, trapNoRowsErr(err, account.ErrNotFound, "updating account")
	}
	defer func() { _ = rows.Close() }()

	if !rows.Next() {
		if err = rows.Err(); err != nil {
			return account.Account{}, trapNoRowsErr(err, account.ErrNotFound, "updating account")
		}
		return account.Account{}, account.ErrNotFound
	}
	var row accountRow
	if err = rows.StructScan(&row); err != nil {
		return account.Account{}, trapNoRowsErr(err, account.ErrNotFound, "scanning account")
	}
	return row.account(), nil
}
