package echoapi

import (
	"net/http"

	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/pkg/errors"

	"github.com/trezcool/studyspace/core"
	"github.com/trezcool/studyspace/core/account"
	"github.com/trezcool/studyspace/core/block"
	"github.com/trezcool/studyspace/core/course"
	"github.com/trezcool/studyspace/core/profile"
	"github.com/trezcool/studyspace/core/space"
	"github.com/trezcool/studyspace/core/workspace"
)

var (
	errUnauthorized   = echo.NewHTTPError(http.StatusUnauthorized, "user not authenticated")
	errRefreshExpired = echo.NewHTTPError(http.StatusForbidden, "refresh has expired")
	errRateLimited    = echo.NewHTTPError(http.StatusTooManyRequests, "too many requests")
)

// statusCodes maps domain sentinel errors to the HTTP status they are reported with.
var statusCodes = []struct {
	err  error
	code int
}{
	{account.ErrNotFound, http.StatusNotFound},
	{profile.ErrNotFound, http.StatusNotFound},
	{course.ErrNotFound, http.StatusNotFound},
	{course.ErrChapterNotFound, http.StatusNotFound},
	{space.ErrNotFound, http.StatusNotFound},
	{workspace.ErrNotFound, http.StatusNotFound},
	{workspace.ErrFileNotFound, http.StatusNotFound},
	{block.ErrBlockNotFound, http.StatusNotFound},
	{space.ErrAuthRequired, http.StatusUnauthorized},
	{workspace.ErrAuthRequired, http.StatusUnauthorized},
	{space.ErrRaterRequired, http.StatusBadRequest},
	{space.ErrInvalidSort, http.StatusBadRequest},
	{block.ErrUnknownKind, http.StatusBadRequest},
	{block.ErrKindMismatch, http.StatusBadRequest},
	{block.ErrFileRequired, http.StatusBadRequest},
	{block.ErrUnknownContainer, http.StatusBadRequest},
	{block.ErrNestedFolder, http.StatusBadRequest},
	{block.ErrDuplicateID, http.StatusBadRequest},
	{workspace.ErrNotConfigured, http.StatusNotImplemented},
	{workspace.ErrClosed, http.StatusServiceUnavailable},
}

// newAppHTTPErrorHandler returns a custom echo.HTTPErrorHandler that knows how to handle our errors.
// signalShutdown is called in order to gracefully shutdown the Server whenever a core.shutdown error is caught.
func newAppHTTPErrorHandler(logger core.Logger, translator ut.Translator, signalShutdown func()) echo.HTTPErrorHandler {
	return func(err error, ctx echo.Context) {
		code, message := classify(err, translator)

		if code == http.StatusInternalServerError {
			msg := http.StatusText(code)
			message = msg

			var acc account.Account
			if claims, ok := getContextClaims(ctx); ok {
				acc.UID = claims.Subject
				acc.DisplayName = claims.DisplayName
				acc.Email = claims.Email
			}
			logger.Error(msg, errors.Wrap(err, msg), acc)

			// shutting down...
			if core.IsShutdown(err) {
				signalShutdown()
			}
		}

		if ctx.Echo().Debug {
			message = err.Error()
		}
		if m, ok := message.(string); ok {
			message = echo.Map{"error": m}
		}

		// Send response
		if !ctx.Response().Committed {
			if ctx.Request().Method == http.MethodHead { // Issue #608
				err = ctx.NoContent(code)
			} else {
				err = ctx.JSON(code, message)
			}
			if err != nil {
				ctx.Echo().Logger.Error(err)
			}
		}
	}
}

// classify returns the status code and body of err. Unknown errors are server errors.
func classify(err error, translator ut.Translator) (int, interface{}) {
	var (
		httpErr  *echo.HTTPError
		authErr  *account.AuthError
		vErrs    validator.ValidationErrors
		appVErr  *core.ValidationError
		parseErr *block.ParseError
	)

	switch {
	case errors.As(err, &httpErr):
		if httpErr == middleware.ErrJWTMissing {
			return http.StatusUnauthorized, httpErr.Message
		}
		if herr, ok := httpErr.Internal.(*echo.HTTPError); ok {
			httpErr = herr
		}
		return httpErr.Code, httpErr.Message

	case errors.As(err, &authErr):
		code := http.StatusBadRequest
		switch authErr.Code {
		case account.CodeTooManyRequests:
			code = http.StatusTooManyRequests
		case account.CodeOperationNotAllowed:
			code = http.StatusForbidden
		}
		return code, echo.Map{"error": account.FriendlyMessage(authErr), "code": authErr.Code}

	case errors.As(err, &vErrs):
		fldErrs := make(map[string]string, len(vErrs))
		for _, vErr := range vErrs {
			fldErrs[vErr.Field()] = vErr.Translate(translator)
		}
		return http.StatusBadRequest, fldErrs

	case errors.As(err, &appVErr):
		if appVErr.Fields != nil {
			fldErrs := make(map[string]string, len(appVErr.Fields))
			for _, fErr := range appVErr.Fields {
				fldErrs[fErr.Field] = fErr.Error
			}
			return http.StatusBadRequest, fldErrs
		}
		return http.StatusBadRequest, appVErr.Error()

	case errors.As(err, &parseErr):
		return http.StatusBadRequest, parseErr.Error()
	}

	for _, sc := range statusCodes {
		if errors.Is(err, sc.err) {
			return sc.code, sc.err.Error()
		}
	}
	return http.StatusInternalServerError, nil
}
