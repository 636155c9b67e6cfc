package echoapi

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/labstack/gommon/log"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/trezcool/studyspace/core"
	"github.com/trezcool/studyspace/core/account"
	"github.com/trezcool/studyspace/core/course"
	"github.com/trezcool/studyspace/core/profile"
	"github.com/trezcool/studyspace/core/space"
	"github.com/trezcool/studyspace/core/workspace"
)

type (
	ServerDeps struct {
		Conf       *core.Config
		Logger     core.Logger
		Validate   *validator.Validate
		Translator ut.Translator

		AccountSvc *account.Service
		ProfileSvc *profile.Service
		CourseSvc  *course.Service
		SpaceSvc   *space.Service
		Workspaces *workspace.Manager

		DisableReqLogs bool
	}

	Server struct {
		deps     ServerDeps
		app      *echo.Echo
		shutdown chan os.Signal
		errors   chan error
	}
)

func NewServer(deps ServerDeps) *Server {
	s := &Server{
		deps:     deps,
		app:      echo.New(),
		shutdown: make(chan os.Signal, 1),
		errors:   make(chan error, 1),
	}
	signal.Notify(s.shutdown, os.Interrupt, syscall.SIGTERM)
	s.setup()
	return s
}

func (s *Server) setup() {
	conf := s.deps.Conf

	s.app.HideBanner = true
	s.app.Pre(middleware.RemoveTrailingSlash())
	if !s.deps.DisableReqLogs {
		s.app.Use(middleware.Logger())
	}
	// do not recover in DEV|TEST mode
	if !(conf.Debug || conf.TestMode) {
		s.app.Use(middleware.RecoverWithConfig(middleware.RecoverConfig{LogLevel: log.ERROR}))
	}
	s.app.Use(middleware.CORSWithConfig(middleware.CORSConfig{
		AllowOrigins: []string{conf.FrontendBaseURL},
		AllowHeaders: []string{echo.HeaderAuthorization, echo.HeaderContentType, guestIDHeader, fingerprintHeader},
	}))

	s.app.HTTPErrorHandler = newAppHTTPErrorHandler(s.deps.Logger, s.deps.Translator, s.signalShutdown)
	s.app.Debug = conf.Debug && !conf.TestMode

	s.app.GET("/", s.home)
	s.app.GET("/metrics", echo.WrapHandler(promhttp.Handler()))

	v1 := s.app.Group("/v1")
	auth := newAuthenticator(conf)
	limit := newIPRateLimiter(conf.Server.RateLimit, conf.Server.RateBurst).middleware()

	registerAccountAPI(v1, auth, s.deps)
	registerProfileAPI(v1, auth, s.deps)
	registerCourseAPI(v1, auth, s.deps)
	registerWorkspaceAPI(v1, auth, s.deps)
	registerSpaceAPI(v1, auth, limit, s.deps)
}

// Start blocks until the server stops. Errors other than a clean shutdown go to Errors().
func (s *Server) Start() {
	if err := s.app.Start(s.deps.Conf.Server.Address); err != nil && err != http.ErrServerClosed {
		s.errors <- err
	}
}

func (s *Server) Errors() <-chan error { return s.errors }

func (s *Server) ShutdownSignal() <-chan os.Signal { return s.shutdown }

func (s *Server) signalShutdown() {
	s.shutdown <- syscall.SIGTERM
}

// Shutdown stops accepting requests, then saves and closes every workspace session.
func (s *Server) Shutdown(ctx context.Context) error {
	err := s.app.Shutdown(ctx)
	if wsErr := s.deps.Workspaces.Close(ctx); wsErr != nil && err == nil {
		err = wsErr
	}
	return err
}

func (s *Server) Close() error {
	return s.app.Close()
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) { // for tests
	s.app.ServeHTTP(w, r)
}

func (s *Server) home(ctx echo.Context) error {
	return ctx.String(http.StatusOK, "Welcome to "+s.deps.Conf.AppName+" API!")
}
