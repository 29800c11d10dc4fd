package echoapi

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/Mohammed01doitesky/bed/core/invitee"
)

type inviteeApi struct {
	svc *invitee.Service
}

func registerInviteeAPI(g *echo.Group, svc *invitee.Service) {
	api := inviteeApi{svc: svc}

	ig := g.Group("/invitees")
	ig.GET("", api.query)
	ig.PUT("/:id/attendance", api.setAttendance)
	ig.GET("/:id/qrcode", api.qrcode)
}

func (api *inviteeApi) query(ctx echo.Context) error {
	var (
		filter invitee.QueryFilter
		err    error
	)
	filter.Student = ctx.QueryParam("student")
	if filter.EventID, err = queryInt(ctx, "eventId"); err != nil {
		return err
	}
	if filter.EmailSent, err = queryBool(ctx, "emailSent"); err != nil {
		return err
	}

	rows, summary, err := api.svc.Query(ctx.Request().Context(), filter)
	if err != nil {
		return errors.Wrap(err, "querying invitees")
	}
	return ctx.JSON(http.StatusOK, InviteesResponse{Invitees: rows, Summary: summary, Success: true})
}

// setAttendance is the staff correction path, it may unmark an attendance.
func (api *inviteeApi) setAttendance(ctx echo.Context) error {
	id, err := pathID(ctx, "id")
	if err != nil {
		return err
	}
	var data AttendanceRequest
	if err = ctx.Bind(&data); err != nil || data.Attendance == nil {
		return errAttendanceNotBool
	}

	if _, err = api.svc.SetAttendance(ctx.Request().Context(), id, *data.Attendance); err != nil {
		return errors.Wrap(err, "setting attendance")
	}
	msg := "Attendance unmarked successfully"
	if *data.Attendance {
		msg = "Attendance marked successfully"
	}
	return ctx.JSON(http.StatusOK, MessageResponse{Message: msg, Success: true})
}

func (api *inviteeApi) qrcode(ctx echo.Context) error {
	id, err := pathID(ctx, "id")
	if err != nil {
		return err
	}
	qr, err := api.svc.QRCode(ctx.Request().Context(), id)
	if err != nil {
		return errors.Wrap(err, "rendering invitee qrcode")
	}
	return ctx.JSON(http.StatusOK, QRCodeResponse{QRCode: qr, Success: true})
}

type (
	InviteesResponse struct {
		Invitees []invitee.Detail `json:"invitees"`
		Summary  invitee.Summary  `json:"summary"`
		Success  bool             `json:"success"`
	}

	AttendanceRequest struct {
		Attendance *bool `json:"attendance"`
	}

	QRCodeResponse struct {
		invitee.QRCode
		Success bool `json:"success"`
	}
)
