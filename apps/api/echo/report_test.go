package echoapi

import (
	"bytes"
	"context"
	"net/http"
	"strconv"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/Mohammed01doitesky/bed/core"
	"github.com/Mohammed01doitesky/bed/core/dispatch"
	"github.com/Mohammed01doitesky/bed/core/event"
	"github.com/Mohammed01doitesky/bed/core/report"
	"github.com/Mohammed01doitesky/bed/core/user"
	testutil "github.com/Mohammed01doitesky/bed/tests"
)

// seedReports creates one event with two students; one guest attended and one ticket was sent.
func seedReports(t *testing.T, env *testutil.Env) event.Event {
	ctx := context.Background()
	evt := env.CreateEvent(t, "Graduation 2024!")
	sara := env.CreateStudent(t, evt.ID, "s1", "Sara", "Ann, Bob")
	env.CreateStudent(t, evt.ID, "s2", "Omar", "")

	_, err := env.InviteeSvc.SetAttendance(ctx, sara.InviteeList[1].ID, true)
	require.NoError(t, err)
	_, err = env.DispatchRepo.MarkSent(ctx, sara.ID, core.NowFunc())
	require.NoError(t, err)
	return evt
}

func Test_reportApi_dashboard(t *testing.T) {
	app, env := setup()
	token := getToken(t, env.CreateUser(t, "manager", "Str0ngPass!", user.RoleManager, true), env.Conf)

	t.Run("empty", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodGet, "/api/admin/dashboard", token)
		app.ServeHTTP(rec, req)
		checkCodeAndData(t, httpTest{
			wantCode: http.StatusOK,
			wantData: []byte(`{"totalEvents":0,"totalInvitees":0,"attendanceRate":0,"recentEvents":[]}`),
		}, rec)
	})

	evt := seedReports(t, env)

	req, rec := newAuthRequest(http.MethodGet, "/api/admin/dashboard", token)
	app.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)

	var resp report.Dashboard
	unmarchallObj(t, rec.Body.Bytes(), &resp)
	assert.Equal(t, 1, resp.TotalEvents)
	assert.Equal(t, 4, resp.TotalInvitees)
	assert.Equal(t, 25, resp.AttendanceRate)
	require.Len(t, resp.RecentEvents, 1)
	assert.Equal(t, evt.ID, resp.RecentEvents[0].ID)
}

func Test_reportApi_summary(t *testing.T) {
	app, env := setup()
	token := getToken(t, env.CreateUser(t, "admin", "Str0ngPass!", user.RoleAdmin, true), env.Conf)
	seedReports(t, env)

	req, rec := newAuthRequest(http.MethodGet, "/api/admin/reports", token)
	app.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)

	var resp report.Reports
	unmarchallObj(t, rec.Body.Bytes(), &resp)
	assert.Equal(t, 1, resp.TotalEvents)
	assert.Equal(t, 4, resp.TotalInvitees)
	assert.Equal(t, 25, resp.AverageAttendance)
	assert.Equal(t, []report.MonthStat{
		{Month: core.NowFunc().Format("January 2006"), Events: 1, Attendance: 25},
	}, resp.MonthlyStats)
	assert.Equal(t, 2, resp.EmailStatistics.TotalInvitees)
	assert.Equal(t, 1, resp.EmailStatistics.EmailsSent)
	assert.Equal(t, 1, resp.EmailStatistics.EmailsPending)
	assert.NotNil(t, resp.EmailStatistics.LastSent)
}

func Test_reportApi_emails(t *testing.T) {
	app, env := setup()
	token := getToken(t, env.CreateUser(t, "admin", "Str0ngPass!", user.RoleAdmin, true), env.Conf)
	evt := seedReports(t, env)

	t.Run("statistics", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodGet, "/api/admin/reports/emails", token)
		app.ServeHTTP(rec, req)
		require.Equal(t, http.StatusOK, rec.Code)

		var stats dispatch.Statistics
		unmarchallObj(t, rec.Body.Bytes(), &stats)
		assert.Equal(t, 2, stats.TotalInvitees)
		assert.Equal(t, 1, stats.EmailsSent)
	})

	t.Run("event report", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodGet, "/api/admin/reports/emails?eventId="+strconv.Itoa(evt.ID), token)
		app.ServeHTTP(rec, req)
		require.Equal(t, http.StatusOK, rec.Code)

		var rep dispatch.Report
		unmarchallObj(t, rec.Body.Bytes(), &rep)
		assert.Equal(t, evt.Name, rep.EventName)
		require.Len(t, rep.Sent, 1)
		assert.Equal(t, "Sara", rep.Sent[0].StudentName)
		require.Len(t, rep.Pending, 1)
		assert.Equal(t, "Omar", rep.Pending[0].StudentName)
		assert.Equal(t, dispatch.StatusReadyToSend, rep.Pending[0].Status)
		assert.Equal(t, 1, rep.EmailStatistics.EmailsPending)
	})

	runHTTPTests(t, app, []httpTest{
		{
			name:     "unknown event",
			method:   http.MethodGet,
			path:     "/api/admin/reports/emails?eventId=999",
			token:    token,
			wantCode: http.StatusNotFound,
			wantData: marchallObj(t, httpErr{Error: event.ErrNotFound.Error()}),
		},
	})
}

func Test_reportApi_export(t *testing.T) {
	app, env := setup()
	token := getToken(t, env.CreateUser(t, "admin", "Str0ngPass!", user.RoleAdmin, true), env.Conf)
	evt := seedReports(t, env)

	download := func(t *testing.T, qs, wantFilename, sheet string) [][]string {
		req, rec := newAuthRequest(http.MethodGet, "/api/admin/reports/export"+qs, token)
		app.ServeHTTP(rec, req)
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
		assert.Equal(t, mimeXLSX, rec.Header().Get(echo.HeaderContentType))
		assert.Equal(t, `attachment; filename="`+wantFilename+`"`, rec.Header().Get(echo.HeaderContentDisposition))

		file, err := excelize.OpenReader(bytes.NewReader(rec.Body.Bytes()))
		require.NoError(t, err)
		defer func() { _ = file.Close() }()
		rows, err := file.GetRows(sheet)
		require.NoError(t, err)
		return rows
	}

	t.Run("summary", func(t *testing.T) {
		rows := download(t, "?type=summary", "summary_report.xlsx", "Summary")
		assert.Equal(t, [][]string{
			{"Metric", "Value"},
			{"Total Events", "1"},
			{"Total Invitees", "4"},
			{"Total Attended", "1"},
			{"Attendance Rate (%)", "25"},
		}, rows)
	})

	t.Run("events", func(t *testing.T) {
		rows := download(t, "?type=events", "events_report.xlsx", "Events")
		require.Len(t, rows, 2)
		assert.Equal(t, "Event ID", rows[0][0])
		assert.Equal(t, []string{strconv.Itoa(evt.ID), evt.Name, evt.Location, evt.EmailSubject, "2", "4", "1", "25"}, rows[1][:8])
	})

	t.Run("attendance of an event", func(t *testing.T) {
		rows := download(t, "?type=attendance&eventId="+strconv.Itoa(evt.ID), "Graduation_2024_attendance_report.xlsx", "Attendance")
		require.Len(t, rows, 3)
		assert.Equal(t, []string{"Sara", "s1", "Ann", "Present"}, rows[1][:4])
		assert.Equal(t, []string{"Sara", "s1", "Bob", "Absent", ""}, rows[2][:5])
		assert.Equal(t, "Yes", rows[1][5])
	})

	t.Run("monthly", func(t *testing.T) {
		rows := download(t, "?type=monthly", "monthly_report.xlsx", "Monthly Stats")
		require.Len(t, rows, 2)
		assert.Equal(t, []string{core.NowFunc().Format("January 2006"), "1", "2", "4", "1", "25"}, rows[1])
	})

	runHTTPTests(t, app, []httpTest{
		{
			name:     "unknown type",
			method:   http.MethodGet,
			path:     "/api/admin/reports/export?type=pivot",
			token:    token,
			wantCode: http.StatusBadRequest,
			wantData: marchallObj(t, httpErr{Error: report.ErrUnknownExport.Error()}),
		},
		{
			name:     "invalid event id",
			method:   http.MethodGet,
			path:     "/api/admin/reports/export?type=attendance&eventId=abc",
			token:    token,
			wantCode: http.StatusBadRequest,
			wantData: marchallObj(t, httpErr{Error: "invalid eventId"}),
		},
	})
}
