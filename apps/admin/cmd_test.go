package main

import (
	"context"
	"database/sql"
	"fmt"
	"strconv"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/studyspace/core/account"
	inmemdb "github.com/trezcool/studyspace/storage/database/inmem"
	testutil "github.com/trezcool/studyspace/tests"
)

const goodPwd = "Tr0ub4dor&3x"

func setup(t *testing.T) (*commandLine, account.Repository) {
	t.Helper()

	db, _, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	validate, _ := newValidator()
	repo := inmemdb.NewAccountRepository(inmemdb.Open())
	return &commandLine{db: db, accounts: account.NewService(repo, validate)}, repo
}

type cliTest struct {
	name       string
	args       []string // without program name
	wantErr    error
	wantErrStr string
	wantAnyErr bool
	extra      interface{}
}

func checkErr(t *testing.T, tt cliTest, err error) {
	t.Helper()
	switch {
	case tt.wantAnyErr:
		assert.Error(t, err)
	case tt.wantErr != nil:
		assert.True(t, errors.Is(err, tt.wantErr), "cli.run() error = %v, wantErr %v", err, tt.wantErr)
	case tt.wantErrStr != "":
		require.Error(t, err)
		assert.Equal(t, tt.wantErrStr, err.Error())
	default:
		assert.NoError(t, err)
	}
}

func Test_commandLine_migrate(t *testing.T) {
	cli, _ := setup(t)

	var ran []string
	gooseRunFunc = func(_ context.Context, command string, _ *sql.DB, dir string, args ...string) error {
		if dir != "migrations" {
			return fmt.Errorf("unexpected dir %q", dir)
		}
		switch command {
		case "up", "up-by-one", "down", "fix", "redo", "reset", "status", "version": // pass
		case "up-to", "down-to":
			if len(args) == 0 {
				return fmt.Errorf("%s must be of form: goose [OPTIONS] DRIVER DBSTRING %s VERSION", command, command)
			}
			if _, err := strconv.ParseInt(args[0], 10, 64); err != nil {
				return fmt.Errorf("version must be a number (got '%s')", args[0])
			}
		case "create":
			if len(args) == 0 {
				return fmt.Errorf("create must be of form: goose [OPTIONS] DRIVER DBSTRING create NAME [go|sql]")
			}
		default:
			return fmt.Errorf("%q: no such command", command)
		}
		ran = append(ran, command)
		return nil
	}

	tests := []cliTest{
		{name: "no subcommand", args: []string{"migrate"}, wantErr: errHelp},
		{name: "unknown subcommand", args: []string{"migrate", "lol"}, wantErrStr: "\"lol\": no such command"},
		{name: "up-to: no args", args: []string{"migrate", "up-to"}, wantErrStr: "up-to must be of form: goose [OPTIONS] DRIVER DBSTRING up-to VERSION"},
		{name: "up-to: non-int arg", args: []string{"migrate", "up-to", "lol"}, wantErrStr: "version must be a number (got 'lol')"},
		{name: "create: no args", args: []string{"migrate", "create"}, wantErrStr: "create must be of form: goose [OPTIONS] DRIVER DBSTRING create NAME [go|sql]"},
		{name: "down-to: non-int arg", args: []string{"migrate", "down-to", "lol"}, wantErrStr: "version must be a number (got 'lol')"},
		{name: "up", args: []string{"migrate", "up"}},
		{name: "up-to", args: []string{"migrate", "up-to", "2"}},
		{name: "down-to", args: []string{"migrate", "down-to", "1"}},
		{name: "status", args: []string{"migrate", "status"}},
		{name: "create", args: []string{"migrate", "create", "course", "sql"}},
	}
	for _, tt := range tests {
		args := append([]string{"admin"}, tt.args...)

		t.Run(tt.name, func(t *testing.T) {
			checkErr(t, tt, cli.run(args))
		})
	}
	assert.Equal(t, []string{"up", "up-to", "down-to", "status", "create"}, ran)

	cli.db = nil
	assert.Equal(t, errNoSQL, cli.run([]string{"admin", "migrate", "up"}))
}

func Test_commandLine_resetPassword(t *testing.T) {
	cli, repo := setup(t)
	acc := testutil.CreateAccount(t, repo, "Alice", "alice@test.dev", goodPwd)

	type extra struct {
		pwd     string
		confirm string
	}
	tests := []cliTest{
		{name: "no command", wantErr: errHelp},
		{name: "unknown command", args: []string{"lol"}, wantErr: errHelp},
		{name: "no args", args: []string{"resetpassword"}, wantErr: errHelp},
		{name: "email but no password", args: []string{"resetpassword", "-email", "lol"}, wantErr: errHelp},
		{name: "mismatch", args: []string{"resetpassword", "-email", acc.Email}, extra: extra{pwd: "N3w&Impr0ved", confirm: "nope"}, wantErr: errMismatch},
		{name: "account not found", args: []string{"resetpassword", "-email", "lol@test.dev"}, extra: extra{pwd: "N3w&Impr0ved"}, wantErr: account.ErrNotFound},
		{name: "weak password", args: []string{"resetpassword", "-email", acc.Email}, extra: extra{pwd: "123"}, wantAnyErr: true},
		{name: "reset", args: []string{"resetpassword", "-email", "ALICE@test.dev"}, extra: extra{pwd: "N3w&Impr0ved"}},
	}
	for _, tt := range tests {
		args := append([]string{"admin"}, tt.args...)

		t.Run(tt.name, func(t *testing.T) {
			calls := 0
			readPasswordFunc = func(int) ([]byte, error) {
				calls++
				e, ok := tt.extra.(extra)
				if !ok {
					return nil, nil
				}
				if calls > 1 && e.confirm != "" {
					return []byte(e.confirm), nil
				}
				return []byte(e.pwd), nil
			}

			err := cli.run(args)
			checkErr(t, tt, err)
			if err != nil {
				return
			}

			refreshed, err := repo.GetAccountByUID(context.Background(), acc.UID)
			require.NoError(t, err)
			assert.NoError(t, refreshed.CheckPassword("N3w&Impr0ved"))
		})
	}
}
