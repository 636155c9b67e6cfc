package main

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"os"

	"github.com/trezcool/studyspace/core"
	"github.com/trezcool/studyspace/core/account"
	appfs "github.com/trezcool/studyspace/fs"
	logsvc "github.com/trezcool/studyspace/services/logger"
	"github.com/trezcool/studyspace/storage/database"
	firestorerepos "github.com/trezcool/studyspace/storage/database/firestore"
	sqlxrepos "github.com/trezcool/studyspace/storage/database/sqlx"
)

func main() {
	conf := core.NewConfig()

	zl, err := logsvc.NewZap(conf)
	if err != nil {
		log.Fatalf("setting up zap: %v", err)
	}
	logger := logsvc.NewRollbarLogger(zl.Named("admin"), conf)
	defer func() { _ = logger.Sync() }()

	account.LoadCommonPasswords(appfs.FS, appfs.CommonPasswordsFile, logger)
	validate, _ := newValidator()

	cli := commandLine{}
	ctx := context.Background()

	switch conf.Storage.Backend {
	case core.BackendPostgres:
		var db *sql.DB
		db, err = database.Open(conf)
		errAndDie(logger, err)
		defer db.Close()
		errAndDie(logger, db.PingContext(ctx))

		cli.db = db
		cli.accounts = account.NewService(sqlxrepos.NewAccountRepository(sqlxrepos.NewDB(db)), validate)
	case core.BackendFirestore:
		client, err := firestorerepos.Open(ctx, conf)
		errAndDie(logger, err)
		defer client.Close()

		cli.accounts = account.NewService(firestorerepos.NewAccountRepository(client), validate)
	default:
		errAndDie(logger, fmt.Errorf("storage backend %q has nothing to administer", conf.Storage.Backend))
	}

	// start CLI
	if err = cli.run(os.Args); err != nil {
		if err != errHelp {
			logger.Error(fmt.Sprintf("error: %s", err), err)
		}
		os.Exit(1)
	}
}

func errAndDie(logger *logsvc.RollbarLogger, err error) {
	if err != nil {
		logger.Fatal(err.Error(), err)
	}
}
