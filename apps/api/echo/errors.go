package echoapi

import (
	"net/http"
	"strconv"

	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/pkg/errors"

	"github.com/Mohammed01doitesky/bed/core"
	"github.com/Mohammed01doitesky/bed/core/event"
	"github.com/Mohammed01doitesky/bed/core/invitee"
	"github.com/Mohammed01doitesky/bed/core/report"
	"github.com/Mohammed01doitesky/bed/core/roster"
	"github.com/Mohammed01doitesky/bed/core/user"
	sheetsvc "github.com/Mohammed01doitesky/bed/services/sheet"
)

var (
	errUnauthorized      = echo.NewHTTPError(http.StatusUnauthorized, "user not authenticated")
	errHttpForbidden     = echo.NewHTTPError(http.StatusForbidden, "permission denied")
	errNoWebAccess       = echo.NewHTTPError(http.StatusForbidden, "Access denied. Your account type does not have web access permissions.")
	errNoAPIAccess       = echo.NewHTTPError(http.StatusForbidden, "Access denied. Your account type does not have api access permissions.")
	errAPIKeyRequired    = echo.NewHTTPError(http.StatusUnauthorized, "API key is required")
	errScannerLogin      = echo.NewHTTPError(http.StatusUnauthorized, "Login, password or db invalid")
	errInvalidID         = echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	errNoFile            = echo.NewHTTPError(http.StatusBadRequest, "No file provided")
	errAttendanceNotBool = echo.NewHTTPError(http.StatusBadRequest, "Attendance must be a boolean value")
)

// domainHTTPError converts the sentinel errors of the core packages to their HTTP counterpart.
// It returns nil for any other error.
func domainHTTPError(err error) *echo.HTTPError {
	switch err {
	case event.ErrNotFound, roster.ErrNotFound, invitee.ErrNotFound, user.ErrNotFound, user.ErrAPIKeyNotFound:
		return echo.NewHTTPError(http.StatusNotFound, err.Error())
	case user.ErrInvalidCredentials, user.ErrAccountDeactivated:
		return echo.NewHTTPError(http.StatusUnauthorized, user.ErrInvalidCredentials.Error())
	case user.ErrInvalidAPIKey:
		return echo.NewHTTPError(http.StatusUnauthorized, err.Error())
	case user.ErrAPIKeyExists:
		return echo.NewHTTPError(http.StatusForbidden, err.Error())
	case sheetsvc.ErrUnsupportedFile, sheetsvc.ErrEmptySheet, report.ErrUnknownExport:
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if hErr, ok := err.(*roster.HeaderError); ok {
		return echo.NewHTTPError(http.StatusBadRequest, hErr.Error())
	}
	return nil
}

// newAppHTTPErrorHandler returns a custom echo.HTTPErrorHandler that knows how to handle our errors.
// signalShutdown is called in order to gracefully shutdown the Server whenever a core.shutdown error is caught.
func newAppHTTPErrorHandler(logger core.Logger, translator ut.Translator, signalShutdown func()) echo.HTTPErrorHandler {
	return func(err error, ctx echo.Context) {
		var code int
		var message interface{}

		cause := errors.Cause(err)
		if hErr := domainHTTPError(cause); hErr != nil {
			cause = hErr
		}

		switch origErr := cause.(type) {
		case *echo.HTTPError:
			if origErr == middleware.ErrJWTMissing {
				code = http.StatusUnauthorized
				message = origErr.Message
				break
			}
			if origErr.Internal != nil {
				if herr, ok := origErr.Internal.(*echo.HTTPError); ok {
					origErr = herr
				}
			}
			code = origErr.Code
			message = origErr.Message
		case validator.ValidationErrors:
			fldErrs := make(map[string]string, len(origErr))
			for _, vErr := range origErr {
				fldErrs[vErr.Field()] = vErr.Translate(translator)
			}
			code = http.StatusBadRequest
			message = fldErrs
		case *core.ValidationError:
			if origErr.Fields != nil {
				fldErrs := make(map[string]string, len(origErr.Fields))
				for _, fErr := range origErr.Fields {
					fldErrs[fErr.Field] = fErr.Error
				}
				message = fldErrs
			} else {
				message = origErr.Error()
			}
			code = http.StatusBadRequest
		default: // any other error is a server error
			code = http.StatusInternalServerError
			msg := http.StatusText(http.StatusInternalServerError)
			message = msg

			var usr user.User
			if claims, cErr := getContextClaims(ctx); cErr == nil {
				usr.ID, _ = strconv.Atoi(claims.Subject)
				usr.Username = claims.Username
				usr.Role = claims.Role
			}
			logger.Error(msg, errors.Wrap(err, msg), usr)

			// shutting down...
			if core.IsShutdown(err) {
				signalShutdown()
			}
		}

		if ctx.Echo().Debug {
			message = err.Error()
		} else if m, ok := message.(string); ok {
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
