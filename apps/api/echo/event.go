package echoapi

import (
	"io/ioutil"
	"net/http"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/Mohammed01doitesky/bed/core"
	"github.com/Mohammed01doitesky/bed/core/dispatch"
	"github.com/Mohammed01doitesky/bed/core/event"
	"github.com/Mohammed01doitesky/bed/core/roster"
	sheetsvc "github.com/Mohammed01doitesky/bed/services/sheet"
)

const uploadFileField = "file"

type eventApi struct {
	conf     *core.Config
	events   *event.Service
	roster   *roster.Service
	dispatch *dispatch.Service
	validate *validator.Validate
}

func registerEventAPI(
	g *echo.Group,
	conf *core.Config,
	events *event.Service,
	rosterSvc *roster.Service,
	dispatchSvc *dispatch.Service,
	validate *validator.Validate,
) {
	api := eventApi{
		conf:     conf,
		events:   events,
		roster:   rosterSvc,
		dispatch: dispatchSvc,
		validate: validate,
	}

	eg := g.Group("/events")
	eg.GET("", api.query)
	eg.POST("", api.create)

	dg := eg.Group("/:id")
	dg.GET("", api.retrieve)
	dg.PUT("", api.update)
	dg.DELETE("", api.destroy)
	dg.POST("/upload", api.upload)
	dg.POST("/send-emails", api.sendEmails)

	sg := dg.Group("/students")
	sg.GET("", api.queryStudents)
	sg.POST("", api.createStudent)
	sg.PUT("/:studentId", api.updateStudent)
	sg.DELETE("/:studentId", api.destroyStudent)
}

// Events

func (api *eventApi) query(ctx echo.Context) error {
	ordering := new(Ordering)
	ordering.Bind(ctx)

	events, err := api.events.Query(ctx.Request().Context(), ordering.Orderings)
	if err != nil {
		return errors.Wrap(err, "querying events")
	}
	if events == nil {
		events = []event.WithStats{}
	}
	return ctx.JSON(http.StatusOK, EventsResponse{Events: events, Success: true})
}

func (api *eventApi) create(ctx echo.Context) error {
	var data event.NewEvent
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewEvent")
	}
	if err := data.Validate(api.validate, api.conf.Ticket.DefaultEmailSubject); err != nil {
		return err
	}

	evt, err := api.events.Create(ctx.Request().Context(), data)
	if err != nil {
		return errors.Wrap(err, "creating event")
	}
	return ctx.JSON(http.StatusCreated, EventResponse{Event: evt, Success: true})
}

func (api *eventApi) retrieve(ctx echo.Context) error {
	id, err := pathID(ctx, "id")
	if err != nil {
		return err
	}
	evt, err := api.events.GetWithStats(ctx.Request().Context(), id)
	if err != nil {
		return errors.Wrap(err, "getting event")
	}
	return ctx.JSON(http.StatusOK, EventResponse{Event: evt, Success: true})
}

func (api *eventApi) update(ctx echo.Context) error {
	id, err := pathID(ctx, "id")
	if err != nil {
		return err
	}
	var data event.UpdateEvent
	if err = ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to UpdateEvent")
	}
	if err = data.Validate(api.validate); err != nil {
		return err
	}

	evt, err := api.events.Update(ctx.Request().Context(), id, data)
	if err != nil {
		return errors.Wrap(err, "updating event")
	}
	return ctx.JSON(http.StatusOK, EventResponse{Event: evt, Success: true})
}

func (api *eventApi) destroy(ctx echo.Context) error {
	id, err := pathID(ctx, "id")
	if err != nil {
		return err
	}
	if err = api.events.Delete(ctx.Request().Context(), id); err != nil {
		return errors.Wrap(err, "deleting event")
	}
	return ctx.JSON(http.StatusOK, MessageResponse{Message: "Event deleted successfully", Success: true})
}

// Students

func (api *eventApi) queryStudents(ctx echo.Context) error {
	id, err := pathID(ctx, "id")
	if err != nil {
		return err
	}
	students, err := api.roster.ListStudents(ctx.Request().Context(), id)
	if err != nil {
		return errors.Wrap(err, "listing students")
	}
	return ctx.JSON(http.StatusOK, StudentsResponse{Students: students, Success: true})
}

func (api *eventApi) createStudent(ctx echo.Context) error {
	id, err := pathID(ctx, "id")
	if err != nil {
		return err
	}
	var data roster.StudentRow
	if err = ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to StudentRow")
	}

	std, err := api.roster.CreateStudent(ctx.Request().Context(), id, data)
	if err != nil {
		return errors.Wrap(err, "creating student")
	}
	return ctx.JSON(http.StatusCreated, StudentResponse{Student: std, Success: true})
}

func (api *eventApi) updateStudent(ctx echo.Context) error {
	id, err := pathID(ctx, "id")
	if err != nil {
		return err
	}
	itemID, err := pathID(ctx, "studentId")
	if err != nil {
		return err
	}
	var data roster.UpdateStudent
	if err = bindBody(ctx, &data); err != nil {
		return errors.Wrap(err, "binding to UpdateStudent")
	}

	std, err := api.roster.UpdateStudent(ctx.Request().Context(), id, itemID, data)
	if err != nil {
		return errors.Wrap(err, "updating student")
	}
	return ctx.JSON(http.StatusOK, StudentResponse{Student: std, Success: true})
}

func (api *eventApi) destroyStudent(ctx echo.Context) error {
	id, err := pathID(ctx, "id")
	if err != nil {
		return err
	}
	itemID, err := pathID(ctx, "studentId")
	if err != nil {
		return err
	}
	if err = api.roster.DeleteStudent(ctx.Request().Context(), id, itemID); err != nil {
		return errors.Wrap(err, "deleting student")
	}
	return ctx.JSON(http.StatusOK, MessageResponse{Message: "Student deleted successfully", Success: true})
}

// upload imports a roster, either a spreadsheet sent as multipart form data or JSON rows.
func (api *eventApi) upload(ctx echo.Context) error {
	id, err := pathID(ctx, "id")
	if err != nil {
		return err
	}

	var res roster.ImportResult
	if strings.HasPrefix(ctx.Request().Header.Get(echo.HeaderContentType), echo.MIMEMultipartForm) {
		table, err := readUploadedTable(ctx)
		if err != nil {
			return err
		}
		res, err = api.roster.ImportTable(ctx.Request().Context(), id, table)
		if err != nil {
			return errors.Wrap(err, "importing table")
		}
	} else {
		var data UploadRowsRequest
		if err = ctx.Bind(&data); err != nil {
			return errors.Wrap(err, "binding to UploadRowsRequest")
		}
		res, err = api.roster.ImportRows(ctx.Request().Context(), id, data.Rows)
		if err != nil {
			return errors.Wrap(err, "importing rows")
		}
	}

	code := http.StatusOK
	if !res.Success {
		code = http.StatusBadRequest
	}
	return ctx.JSON(code, res)
}

func readUploadedTable(ctx echo.Context) (core.Table, error) {
	fh, err := ctx.FormFile(uploadFileField)
	if err != nil {
		return core.Table{}, errNoFile
	}
	if !sheetsvc.Supported(fh.Filename) {
		return core.Table{}, sheetsvc.ErrUnsupportedFile
	}

	f, err := fh.Open()
	if err != nil {
		return core.Table{}, errors.Wrap(err, "opening uploaded file")
	}
	defer f.Close()
	data, err := ioutil.ReadAll(f)
	if err != nil {
		return core.Table{}, errors.Wrap(err, "reading uploaded file")
	}

	table, err := sheetsvc.ReadTable(fh.Filename, data)
	if err != nil {
		if errors.Cause(err) == sheetsvc.ErrEmptySheet || errors.Cause(err) == sheetsvc.ErrUnsupportedFile {
			return core.Table{}, err
		}
		return core.Table{}, echo.NewHTTPError(http.StatusBadRequest, "Failed to process file").SetInternal(err)
	}
	return table, nil
}

func (api *eventApi) sendEmails(ctx echo.Context) error {
	id, err := pathID(ctx, "id")
	if err != nil {
		return err
	}
	res, err := api.dispatch.SendTicketEmails(ctx.Request().Context(), id)
	if err != nil {
		return errors.Wrap(err, "sending ticket emails")
	}
	return ctx.JSON(http.StatusOK, SendEmailsResponse{
		Message: res.Message(),
		Success: true,
		Sent:    res.Sent,
		Failed:  res.Failed,
	})
}

type (
	EventsResponse struct {
		Events  []event.WithStats `json:"events"`
		Success bool              `json:"success"`
	}

	EventResponse struct {
		Event   interface{} `json:"event"`
		Success bool        `json:"success"`
	}

	StudentsResponse struct {
		Students []roster.Student `json:"students"`
		Success  bool             `json:"success"`
	}

	StudentResponse struct {
		Student roster.Student `json:"student"`
		Success bool           `json:"success"`
	}

	UploadRowsRequest struct {
		Rows []roster.StudentRow `json:"rows"`
	}

	SendEmailsResponse struct {
		Message string `json:"message"`
		Success bool   `json:"success"`
		Sent    int    `json:"sent"`
		Failed  int    `json:"failed"`
	}
)
