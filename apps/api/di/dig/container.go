package dig_container

import (
	"context"
	"database/sql"
	"fmt"
	"io"
	"log"

	"github.com/go-playground/locales/en"
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"github.com/pkg/errors"
	"go.uber.org/dig"
	"go.uber.org/zap"

	echoapi "github.com/trezcool/studyspace/apps/api/echo"
	"github.com/trezcool/studyspace/core"
	"github.com/trezcool/studyspace/core/account"
	"github.com/trezcool/studyspace/core/course"
	"github.com/trezcool/studyspace/core/profile"
	"github.com/trezcool/studyspace/core/space"
	"github.com/trezcool/studyspace/core/workspace"
	appfs "github.com/trezcool/studyspace/fs"
	blobsvc "github.com/trezcool/studyspace/services/blob"
	drivesvc "github.com/trezcool/studyspace/services/drive"
	emailsvc "github.com/trezcool/studyspace/services/email"
	logsvc "github.com/trezcool/studyspace/services/logger"
	"github.com/trezcool/studyspace/storage/cache"
	"github.com/trezcool/studyspace/storage/database"
	firestorerepos "github.com/trezcool/studyspace/storage/database/firestore"
	inmemdb "github.com/trezcool/studyspace/storage/database/inmem"
	sqlxrepos "github.com/trezcool/studyspace/storage/database/sqlx"
)

type (
	DBLoggerParam struct {
		dig.In
		Logger core.Logger `name:"dbLogger"`
	}

	// Repositories are the storage backend selected by the configuration.
	Repositories struct {
		dig.Out

		Accounts   account.Repository
		Profiles   profile.Repository
		Courses    course.Repository
		Spaces     space.Repository
		Workspaces workspace.Store
		Files      workspace.FileStore
		Closer     io.Closer `name:"storageCloser"`
	}

	workspaceParams struct {
		dig.In

		Store  workspace.Store
		Cache  workspace.Cache
		Files  workspace.FileStore
		Blobs  workspace.BlobStore
		Drive  workspace.Granter
		Logger core.Logger
	}

	serverParams struct {
		dig.In

		Conf       *core.Config
		Logger     core.Logger
		Validate   *validator.Validate
		Translator ut.Translator
		Accounts   *account.Service
		Profiles   *profile.Service
		Courses    *course.Service
		Spaces     *space.Service
		Workspaces *workspace.Manager
	}

	closerFunc func() error
)

func (f closerFunc) Close() error { return f() }

func newZap(conf *core.Config) *zap.Logger {
	zl, err := logsvc.NewZap(conf)
	if err != nil {
		log.Fatalf("setting up zap: %v", err)
	}
	return zl
}

func newRollbarLogger(zl *zap.Logger, conf *core.Config) *logsvc.RollbarLogger {
	return logsvc.NewRollbarLogger(zl.Named("api"), conf)
}

func newLogger(l *logsvc.RollbarLogger) core.Logger { return l }

func newDBLogger(zl *zap.Logger, conf *core.Config) core.Logger {
	return logsvc.NewRollbarLogger(zl.Named("db"), conf)
}

func newPostgres(conf *core.Config, logger core.Logger) *sql.DB {
	setUp := func() (*sql.DB, error) {
		ctx := context.Background()
		if err := database.CreateIfNotExist(ctx, conf); err != nil {
			return nil, err
		}

		db, err := database.Open(conf)
		if err != nil {
			return nil, err
		}

		if err = database.Migrate(ctx, db); err != nil {
			return nil, err
		}
		return db, nil
	}

	db, err := setUp()
	if err != nil {
		logger.Fatal(fmt.Sprintf("setting up database: %v", err), err)
	}
	return db
}

func newRepositories(conf *core.Config, loggerParam DBLoggerParam) Repositories {
	logger := loggerParam.Logger

	switch conf.Storage.Backend {
	case core.BackendPostgres:
		db := sqlxrepos.NewDB(newPostgres(conf, logger))
		return Repositories{
			Accounts:   sqlxrepos.NewAccountRepository(db),
			Profiles:   sqlxrepos.NewProfileRepository(db),
			Courses:    sqlxrepos.NewCourseRepository(db),
			Spaces:     sqlxrepos.NewSpaceRepository(db),
			Workspaces: sqlxrepos.NewWorkspaceRepository(db),
			Files:      sqlxrepos.NewFileRepository(db),
			Closer:     db,
		}

	case core.BackendFirestore:
		client, err := firestorerepos.Open(context.Background(), conf)
		if err != nil {
			logger.Fatal(fmt.Sprintf("setting up firestore: %v", err), err)
		}
		return Repositories{
			Accounts:   firestorerepos.NewAccountRepository(client),
			Profiles:   firestorerepos.NewProfileRepository(client),
			Courses:    firestorerepos.NewCourseRepository(client),
			Spaces:     firestorerepos.NewSpaceRepository(client),
			Workspaces: firestorerepos.NewWorkspaceRepository(client),
			Files:      firestorerepos.NewFileRepository(client),
			Closer:     client,
		}

	default:
		logger.Warn(fmt.Sprintf("storage backend %q: data is kept in memory only", conf.Storage.Backend))
		db := inmemdb.Open()
		return Repositories{
			Accounts:   inmemdb.NewAccountRepository(db),
			Profiles:   inmemdb.NewProfileRepository(db),
			Courses:    inmemdb.NewCourseRepository(db),
			Spaces:     inmemdb.NewSpaceRepository(db),
			Workspaces: inmemdb.NewWorkspaceRepository(db),
			Files:      inmemdb.NewFileRepository(db),
			Closer:     closerFunc(func() error { return nil }),
		}
	}
}

func newCache(conf *core.Config) (workspace.Cache, error) {
	return cache.New(context.Background(), conf)
}

func newBlobStore(conf *core.Config) (workspace.BlobStore, error) {
	return blobsvc.New(context.Background(), conf)
}

func newGranter(conf *core.Config) workspace.Granter {
	return drivesvc.NewGranter(conf)
}

func newWorkspaceManager(p workspaceParams, conf *core.Config) *workspace.Manager {
	return workspace.NewManager(workspace.Deps{
		Store:  p.Store,
		Cache:  p.Cache,
		Files:  p.Files,
		Blobs:  p.Blobs,
		Drive:  p.Drive,
		Logger: p.Logger,
	}, conf)
}

func newTranslator() ut.Translator {
	_en := en.New()
	uni := ut.New(_en, _en)
	translator, _ := uni.GetTranslator("en")
	return translator
}

func newValidator(translator ut.Translator) *validator.Validate {
	validate := validator.New()
	core.InitValidators(validate, translator)
	account.InitValidators(validate, translator)
	profile.InitValidators(validate, translator)
	space.InitValidators(validate, translator)
	return validate
}

func newServer(p serverParams) *echoapi.Server {
	return echoapi.NewServer(echoapi.ServerDeps{
		Conf:       p.Conf,
		Logger:     p.Logger,
		Validate:   p.Validate,
		Translator: p.Translator,
		AccountSvc: p.Accounts,
		ProfileSvc: p.Profiles,
		CourseSvc:  p.Courses,
		SpaceSvc:   p.Spaces,
		Workspaces: p.Workspaces,
	})
}

// LoadAssets parses the email templates and the common passwords list.
func LoadAssets(conf *core.Config, logger core.Logger) {
	core.ParseEmailTemplates(appfs.FS, appfs.EmailTemplatesDir, !conf.Debug, logger)
	account.LoadCommonPasswords(appfs.FS, appfs.CommonPasswordsFile, logger)
}

// New returns a new dependency injection dig.Container
func New() *dig.Container {
	c := dig.New()

	must(c.Provide(core.NewConfig))
	must(c.Provide(newZap))
	must(c.Provide(newRollbarLogger))
	must(c.Provide(newLogger))
	must(c.Provide(newDBLogger, dig.Name("dbLogger")))
	must(c.Provide(newRepositories))
	must(c.Provide(newCache))
	must(c.Provide(newBlobStore))
	must(c.Provide(newGranter))
	must(c.Provide(emailsvc.New))
	must(c.Provide(newTranslator))
	must(c.Provide(newValidator))
	must(c.Provide(account.NewService))
	must(c.Provide(profile.NewService))
	must(c.Provide(course.NewService))
	must(c.Provide(space.NewService))
	must(c.Provide(newWorkspaceManager))
	must(c.Provide(newServer))

	return c
}

// must exits program if err happened
func must(err error) {
	if err != nil {
		log.Fatal(errors.Wrap(err, "failed to provide dependency").Error())
	}
}
