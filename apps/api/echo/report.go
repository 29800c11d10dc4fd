package echoapi

import (
	"fmt"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/Mohammed01doitesky/bed/core/dispatch"
	"github.com/Mohammed01doitesky/bed/core/report"
)

const mimeXLSX = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

type reportApi struct {
	reports  *report.Service
	dispatch *dispatch.Service
}

func registerReportAPI(g *echo.Group, reports *report.Service, dispatchSvc *dispatch.Service) {
	api := reportApi{
		reports:  reports,
		dispatch: dispatchSvc,
	}

	g.GET("/dashboard", api.dashboard)

	rg := g.Group("/reports")
	rg.GET("", api.summary)
	rg.GET("/emails", api.emails)
	rg.GET("/export", api.export)
}

func (api *reportApi) dashboard(ctx echo.Context) error {
	data, err := api.reports.Dashboard(ctx.Request().Context())
	if err != nil {
		return errors.Wrap(err, "computing dashboard")
	}
	return ctx.JSON(http.StatusOK, data)
}

func (api *reportApi) summary(ctx echo.Context) error {
	data, err := api.reports.Reports(ctx.Request().Context())
	if err != nil {
		return errors.Wrap(err, "computing reports")
	}
	return ctx.JSON(http.StatusOK, data)
}

// emails returns the detailed report of an event, or the statistics over every event when eventId is absent.
func (api *reportApi) emails(ctx echo.Context) error {
	eventID, err := queryInt(ctx, "eventId")
	if err != nil {
		return err
	}
	if eventID == nil {
		stats, err := api.dispatch.Statistics(ctx.Request().Context(), nil)
		if err != nil {
			return errors.Wrap(err, "computing email statistics")
		}
		return ctx.JSON(http.StatusOK, stats)
	}

	rep, err := api.dispatch.Report(ctx.Request().Context(), *eventID)
	if err != nil {
		return errors.Wrap(err, "building email report")
	}
	return ctx.JSON(http.StatusOK, rep)
}

func (api *reportApi) export(ctx echo.Context) error {
	eventID, err := queryInt(ctx, "eventId")
	if err != nil {
		return err
	}
	file, err := api.reports.Export(ctx.Request().Context(), ctx.QueryParam("type"), eventID)
	if err != nil {
		return errors.Wrap(err, "exporting report")
	}

	ctx.Response().Header().Set(echo.HeaderContentDisposition, fmt.Sprintf("attachment; filename=%q", file.Filename))
	return ctx.Blob(http.StatusOK, mimeXLSX, file.Content)
}
