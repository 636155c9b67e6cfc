package echoapi

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"

	"github.com/trezcool/studyspace/core"
	"github.com/trezcool/studyspace/core/account"
	"github.com/trezcool/studyspace/core/block"
	"github.com/trezcool/studyspace/core/course"
	"github.com/trezcool/studyspace/core/space"
	"github.com/trezcool/studyspace/core/workspace"
	testutil "github.com/trezcool/studyspace/tests"
)

func TestClassify(t *testing.T) {
	_, translator := testutil.NewValidator()

	tests := []struct {
		name     string
		err      error
		wantCode int
	}{
		{name: "missing jwt", err: middleware.ErrJWTMissing, wantCode: http.StatusUnauthorized},
		{name: "http error", err: echo.NewHTTPError(http.StatusTeapot, "tea"), wantCode: http.StatusTeapot},
		{name: "auth error", err: errors.Wrap(&account.AuthError{Code: account.CodeWrongPassword}, "signing in"), wantCode: http.StatusBadRequest},
		{name: "throttled", err: &account.AuthError{Code: account.CodeTooManyRequests}, wantCode: http.StatusTooManyRequests},
		{name: "validation", err: core.NewValidationError(nil, core.FieldError{Field: "title", Error: "required"}), wantCode: http.StatusBadRequest},
		{name: "parse error", err: &block.ParseError{Err: errors.New("bad")}, wantCode: http.StatusBadRequest},
		{name: "course not found", err: errors.Wrap(course.ErrNotFound, "getting"), wantCode: http.StatusNotFound},
		{name: "block not found", err: errors.Wrapf(block.ErrBlockNotFound, "deleting %q", "x"), wantCode: http.StatusNotFound},
		{name: "nested folder", err: block.ErrNestedFolder, wantCode: http.StatusBadRequest},
		{name: "auth required", err: workspace.ErrAuthRequired, wantCode: http.StatusUnauthorized},
		{name: "invalid sort", err: space.ErrInvalidSort, wantCode: http.StatusBadRequest},
		{name: "not configured", err: workspace.ErrNotConfigured, wantCode: http.StatusNotImplemented},
		{name: "closed", err: workspace.ErrClosed, wantCode: http.StatusServiceUnavailable},
		{name: "unknown", err: errors.New("boom"), wantCode: http.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			code, _ := classify(tt.err, translator)
			assert.Equal(t, tt.wantCode, code)
		})
	}
}

func TestIPRateLimiter(t *testing.T) {
	rl := newIPRateLimiter(1, 2)

	assert.True(t, rl.allow("10.0.0.1"))
	assert.True(t, rl.allow("10.0.0.1"))
	assert.False(t, rl.allow("10.0.0.1"), "burst used up")
	assert.True(t, rl.allow("10.0.0.2"), "other clients keep their own budget")

	unlimited := newIPRateLimiter(0, 0)
	for i := 0; i < 100; i++ {
		assert.True(t, unlimited.allow("10.0.0.1"))
	}
}

func TestAppHTTPErrorHandler_signalsShutdown(t *testing.T) {
	logger := new(testutil.Logger)
	_, translator := testutil.NewValidator()
	var signaled bool
	handler := newAppHTTPErrorHandler(logger, translator, func() { signaled = true })

	e := echo.New()
	req, rec := newRequest(http.MethodGet, "/")
	handler(errors.Wrap(core.NewShutdownError("integrity issue"), "saving"), e.NewContext(req, rec))

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.JSONEq(t, `{"error":"Internal Server Error"}`, rec.Body.String())
	assert.True(t, signaled)
	assert.Len(t, logger.Entries("error"), 1)
}

func newRequest(method, path string) (*http.Request, *httptest.ResponseRecorder) {
	return httptest.NewRequest(method, path, nil), httptest.NewRecorder()
}
