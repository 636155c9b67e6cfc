package echoapi_test

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	. "github.com/trezcool/studyspace/apps/api/echo"
	"github.com/trezcool/studyspace/core"
	"github.com/trezcool/studyspace/core/account"
	"github.com/trezcool/studyspace/core/course"
	"github.com/trezcool/studyspace/core/profile"
	"github.com/trezcool/studyspace/core/space"
	"github.com/trezcool/studyspace/core/workspace"
	blobsvc "github.com/trezcool/studyspace/services/blob"
	"github.com/trezcool/studyspace/storage/cache"
	inmemdb "github.com/trezcool/studyspace/storage/database/inmem"
	testutil "github.com/trezcool/studyspace/tests"
)

const goodPwd = "Tr0ub4dor&3x"

type testApp struct {
	conf       *core.Config
	db         *inmemdb.DB
	accounts   account.Repository
	workspaces *workspaceStore
	blobs      *blobsvc.MemoryStore
	mailer     *testutil.Mailer
	logger     *testutil.Logger
	server     *Server
}

// workspaceStore counts the calls reaching the workspace store and can make them fail.
type workspaceStore struct {
	workspace.Store

	mu    sync.Mutex
	calls int
	err   error
}

func (s *workspaceStore) call() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls++
	return s.err
}

func (s *workspaceStore) failWith(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.err = err
}

func (s *workspaceStore) callCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls
}

func (s *workspaceStore) GetWorkspace(ctx context.Context, ownerID string) (workspace.Document, error) {
	if err := s.call(); err != nil {
		return workspace.Document{}, err
	}
	return s.Store.GetWorkspace(ctx, ownerID)
}

func (s *workspaceStore) SaveWorkspace(ctx context.Context, doc workspace.Document) error {
	if err := s.call(); err != nil {
		return err
	}
	return s.Store.SaveWorkspace(ctx, doc)
}

func (s *workspaceStore) CreateWorkspaceIfAbsent(ctx context.Context, doc workspace.Document) (bool, error) {
	if err := s.call(); err != nil {
		return false, err
	}
	return s.Store.CreateWorkspaceIfAbsent(ctx, doc)
}

func newTestApp(t *testing.T, configure ...func(conf *core.Config)) *testApp {
	t.Helper()

	conf := core.NewTestConfig()
	for _, f := range configure {
		f(conf)
	}
	validate, translator := testutil.NewValidator()
	logger := new(testutil.Logger)
	mailer := new(testutil.Mailer)
	db := inmemdb.Open()
	blobs := blobsvc.NewMemoryStore(conf.Blob.PublicBaseURL)

	accounts := inmemdb.NewAccountRepository(db)
	store := &workspaceStore{Store: inmemdb.NewWorkspaceRepository(db)}
	manager := workspace.NewManager(workspace.Deps{
		Store:  store,
		Cache:  cache.NewMemoryCache(),
		Files:  inmemdb.NewFileRepository(db),
		Blobs:  blobs,
		Logger: logger,
	}, conf)

	app := &testApp{
		conf:       conf,
		db:         db,
		accounts:   accounts,
		workspaces: store,
		blobs:      blobs,
		mailer:     mailer,
		logger:     logger,
		server: NewServer(ServerDeps{
			Conf:           conf,
			Logger:         logger,
			Validate:       validate,
			Translator:     translator,
			AccountSvc:     account.NewService(accounts, validate),
			ProfileSvc:     profile.NewService(inmemdb.NewProfileRepository(db), validate),
			CourseSvc:      course.NewService(inmemdb.NewCourseRepository(db), logger),
			SpaceSvc:       space.NewService(inmemdb.NewSpaceRepository(db), validate, mailer, logger, conf),
			Workspaces:     manager,
			DisableReqLogs: true,
		}),
	}
	t.Cleanup(func() { _ = app.server.Close() })
	return app
}

type httpErr struct {
	Error string `json:"error"`
	Code  string `json:"code,omitempty"`
}

type request struct {
	method  string
	path    string
	body    interface{}
	token   string
	headers map[string]string
}

func (app *testApp) do(t *testing.T, r request) *httptest.ResponseRecorder {
	t.Helper()

	var body bytes.Buffer
	if r.body != nil {
		switch b := r.body.(type) {
		case string:
			body.WriteString(b)
		default:
			require.NoError(t, json.NewEncoder(&body).Encode(b))
		}
	}
	method := r.method
	if method == "" {
		method = http.MethodGet
	}

	req := httptest.NewRequest(method, r.path, &body)
	req.Header.Set("Content-Type", "application/json")
	if r.token != "" {
		req.Header.Set("Authorization", "Bearer "+r.token)
	}
	for k, v := range r.headers {
		req.Header.Set(k, v)
	}
	rec := httptest.NewRecorder()
	app.server.ServeHTTP(rec, req)
	return rec
}

func (app *testApp) createAccount(t *testing.T, name, email string) (account.Account, string) {
	t.Helper()
	acc := testutil.CreateAccount(t, app.accounts, name, email, goodPwd)
	token, err := IssueToken(app.conf, acc)
	require.NoError(t, err)
	return acc, token
}

func decode(t *testing.T, rec *httptest.ResponseRecorder, v interface{}) {
	t.Helper()
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), v), rec.Body.String())
}
