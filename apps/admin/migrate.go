package main

import (
	"context"
	"database/sql"

	"github.com/pressly/goose/v3"

	appfs "github.com/trezcool/studyspace/fs"
)

var gooseRunFunc = goose.RunContext // mockable

func (cli *commandLine) migrate(args []string) error {
	if cli.db == nil {
		return errNoSQL
	}
	goose.SetBaseFS(appfs.FS)
	if err := goose.SetDialect("postgres"); err != nil {
		return err
	}
	return runGoose(cli.db, args[0], args[1:]...)
}

func runGoose(db *sql.DB, command string, args ...string) error {
	return gooseRunFunc(context.Background(), command, db, appfs.MigrationsDir, args...)
}
