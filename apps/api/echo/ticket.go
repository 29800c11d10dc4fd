package echoapi

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/Mohammed01doitesky/bed/core"
	"github.com/Mohammed01doitesky/bed/core/invitee"
	"github.com/Mohammed01doitesky/bed/core/user"
)

var (
	errScannerLoginMissing  = echo.NewHTTPError(http.StatusForbidden, "either of the following are missing [db, username,password]")
	errScannerLogoutMissing = echo.NewHTTPError(http.StatusForbidden, "either of the following are missing [api_key, username]")
	errQRCodeRequired       = echo.NewHTTPError(http.StatusBadRequest, "invitees_qrcode_text is required")
	errInviteesRequired     = echo.NewHTTPError(http.StatusBadRequest, "invitees array is required")
)

// ticketApi serves the ticket scanner devices.
type ticketApi struct {
	users    user.Service
	invitees *invitee.Service
}

func registerTicketAPI(g *echo.Group, users user.Service, invitees *invitee.Service) {
	api := ticketApi{
		users:    users,
		invitees: invitees,
	}

	tg := g.Group("/v1/tickets")
	tg.POST("/login", api.login)
	tg.POST("/logout", api.logout)

	ag := tg.Group("", apiKeyMiddleware(users))
	ag.POST("/get_data", api.getData)
	ag.POST("/update_data", api.updateData)
}

func (api *ticketApi) login(ctx echo.Context) error {
	var data ScannerLoginRequest
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to ScannerLoginRequest")
	}
	if core.CleanString(data.DB) == "" || core.CleanString(data.Login) == "" || data.Password == "" {
		return errScannerLoginMissing
	}

	usr, err := api.users.Authenticate(ctx.Request().Context(), user.Credentials{Username: data.Login, Password: data.Password})
	if err != nil {
		switch errors.Cause(err) {
		case user.ErrInvalidCredentials, user.ErrAccountDeactivated:
			return errScannerLogin
		}
		return errors.Wrap(err, "authenticating scanner")
	}
	if !usr.HasPermission(user.PermAPI) {
		return errNoAPIAccess
	}

	key, err := api.users.IssueAPIKey(ctx.Request().Context(), usr)
	if err != nil {
		return errors.Wrap(err, "issuing api key")
	}
	return ctx.JSON(http.StatusCreated, ScannerLoginResponse{
		Message: []APIKeyMessage{{APIKey: key.Key}},
		Success: true,
	})
}

func (api *ticketApi) logout(ctx echo.Context) error {
	var data ScannerLogoutRequest
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to ScannerLogoutRequest")
	}
	data.APIKey = core.CleanString(data.APIKey)
	if data.APIKey == "" || core.CleanString(data.Username) == "" {
		return errScannerLogoutMissing
	}

	if _, err := api.users.GetByAPIKey(ctx.Request().Context(), data.APIKey); err != nil {
		return errors.Wrap(err, "validating api key")
	}
	if err := api.users.RevokeAPIKey(ctx.Request().Context(), data.APIKey, data.Username); err != nil {
		return errors.Wrap(err, "revoking api key")
	}
	return ctx.JSON(http.StatusCreated, MessageResponse{Message: "API KEY Successfully Removed", Success: true})
}

func (api *ticketApi) getData(ctx echo.Context) error {
	var data GetDataRequest
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to GetDataRequest")
	}
	if data.QRCodeText = core.CleanString(data.QRCodeText); data.QRCodeText == "" {
		return errQRCodeRequired
	}

	rows, err := api.invitees.LookupByQRCode(ctx.Request().Context(), data.QRCodeText)
	if err != nil {
		return errors.Wrap(err, "looking up invitees")
	}
	return ctx.JSON(http.StatusOK, GetDataResponse{Message: rows, Success: true})
}

func (api *ticketApi) updateData(ctx echo.Context) error {
	var data UpdateDataRequest
	if err := ctx.Bind(&data); err != nil || data.Invitees == nil {
		return errInviteesRequired
	}

	res, err := api.invitees.ApplyAttendance(ctx.Request().Context(), data.Invitees)
	if err != nil {
		return errors.Wrap(err, "applying attendance")
	}
	return ctx.JSON(http.StatusOK, UpdateDataResponse{
		Message:         "Successfully updated invitee's attendance",
		Success:         true,
		ReconcileResult: res,
	})
}

type (
	ScannerLoginRequest struct {
		DB       string `json:"db"`
		Login    string `json:"login"`
		Password string `json:"password"`
	}

	APIKeyMessage struct {
		APIKey string `json:"apikey"`
	}

	ScannerLoginResponse struct {
		Message []APIKeyMessage `json:"message"`
		Success bool            `json:"success"`
	}

	ScannerLogoutRequest struct {
		APIKey   string `json:"api_key"`
		Username string `json:"username"`
	}

	GetDataRequest struct {
		QRCodeText string `json:"invitees_qrcode_text"`
	}

	GetDataResponse struct {
		Message []invitee.ScanRow `json:"message"`
		Success bool              `json:"success"`
	}

	UpdateDataRequest struct {
		Invitees []invitee.AttendanceUpdate `json:"invitees"`
	}

	UpdateDataResponse struct {
		Message string `json:"message"`
		Success bool   `json:"success"`
		invitee.ReconcileResult
	}
)
