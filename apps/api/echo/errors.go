package echoapi

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/pkg/errors"

	"github.com/trezcool/creche/core"
	"github.com/trezcool/creche/core/record"
	"github.com/trezcool/creche/core/user"
)

var (
	errUnauthorized         = echo.NewHTTPError(http.StatusUnauthorized, "user not authenticated")
	errAuthenticationFailed = echo.NewHTTPError(http.StatusBadRequest, "authentication failed")
	errAccountDeactivated   = echo.NewHTTPError(http.StatusForbidden, "account deactivated")
	errDaycareInactive      = echo.NewHTTPError(http.StatusForbidden, "daycare is not active")
	errHttpForbidden        = echo.NewHTTPError(http.StatusForbidden, "permission denied")
	errHttpNotFound         = echo.NewHTTPError(http.StatusNotFound, "not found")
)

var codeStatuses = map[record.ErrorCode]int{
	record.CodeValidation:        http.StatusBadRequest,
	record.CodeInvalidTransition: http.StatusConflict,
	record.CodeNotFound:          http.StatusNotFound,
	record.CodePersistence:       http.StatusServiceUnavailable,
	record.CodeInternal:          http.StatusInternalServerError,
}

// newAppHTTPErrorHandler returns a custom echo.HTTPErrorHandler that knows how to handle our errors.
// Every error is answered with a record.Result.
// signalShutdown is called in order to gracefully shutdown the Server whenever a core.shutdown error is caught.
func newAppHTTPErrorHandler(logger core.Logger, signalShutdown func()) echo.HTTPErrorHandler {
	return func(err error, ctx echo.Context) {
		var code int
		var res record.Result

		if httpErr, ok := errors.Cause(err).(*echo.HTTPError); ok {
			if httpErr == middleware.ErrJWTMissing {
				httpErr = echo.NewHTTPError(http.StatusUnauthorized, httpErr.Message)
			} else if herr, ok := httpErr.Internal.(*echo.HTTPError); ok {
				httpErr = herr
			}
			code = httpErr.Code
			if msg, ok := httpErr.Message.(string); ok {
				res.Error = msg
			} else {
				res.Error = http.StatusText(code)
			}
		} else {
			res = record.Outcome(nil, err)
			code = codeStatuses[res.Code]

			if res.Code == record.CodeInternal || res.Code == record.CodePersistence {
				msg := http.StatusText(code)
				var usr user.User
				if claims, cErr := getContextClaims(ctx); cErr == nil {
					usr.ID = claims.Subject
					usr.DaycareID = claims.DaycareID
					usr.Name = claims.Name
					usr.Email = claims.Email
				}
				logger.Error(msg, errors.Wrap(err, msg), usr)

				// shutting down...
				if core.IsShutdown(err) {
					signalShutdown()
				}
			}
		}

		if ctx.Echo().Debug && res.Code == record.CodeInternal {
			res.Error = err.Error()
		}

		// Send response
		if !ctx.Response().Committed {
			if ctx.Request().Method == http.MethodHead { // Issue #608
				err = ctx.NoContent(code)
			} else {
				err = ctx.JSON(code, res)
			}
			if err != nil {
				ctx.Echo().Logger.Error(err)
			}
		}
	}
}
