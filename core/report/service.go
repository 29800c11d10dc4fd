package report

import (
	"context"
	"regexp"
	"time"

	"github.com/pkg/errors"

	"github.com/Mohammed01doitesky/bed/core"
	"github.com/Mohammed01doitesky/bed/core/dispatch"
)

var (
	ErrUnknownExport = errors.New("unknown report type")

	nonWordRe = regexp.MustCompile(`[^a-zA-Z0-9\s]`)
	spaceRe   = regexp.MustCompile(`\s+`)
)

type (
	Repository interface {
		Totals(ctx context.Context) (Totals, error)
		RecentEvents(ctx context.Context, limit int) ([]RecentEvent, error)
		// MonthlyCounts returns one entry per month with events created since since, latest first.
		MonthlyCounts(ctx context.Context, since time.Time) ([]MonthCount, error)
		EventCounts(ctx context.Context) ([]EventCount, error)
		// AttendanceLines returns the additional invitees of active events, latest event first.
		AttendanceLines(ctx context.Context, eventID *int) ([]AttendanceLine, error)
	}

	EmailStatistics interface {
		Statistics(ctx context.Context, eventID *int) (dispatch.Statistics, error)
	}

	// WorkbookWriter encodes sheets as an xlsx workbook.
	WorkbookWriter interface {
		WriteXLSX(sheets []core.Sheet) ([]byte, error)
	}

	Service struct {
		repo   Repository
		emails EmailStatistics
		writer WorkbookWriter
	}
)

func NewService(repo Repository, emails EmailStatistics, writer WorkbookWriter) *Service {
	return &Service{repo: repo, emails: emails, writer: writer}
}

func (svc *Service) Dashboard(ctx context.Context) (Dashboard, error) {
	totals, err := svc.repo.Totals(ctx)
	if err != nil {
		return Dashboard{}, errors.Wrap(err, "computing totals")
	}
	recent, err := svc.repo.RecentEvents(ctx, recentEventsLimit)
	if err != nil {
		return Dashboard{}, errors.Wrap(err, "querying recent events")
	}
	if recent == nil {
		recent = []RecentEvent{}
	}
	return Dashboard{
		TotalEvents:    totals.Events,
		TotalInvitees:  totals.Invitees,
		AttendanceRate: core.Percent(totals.Attended, totals.Invitees),
		RecentEvents:   recent,
	}, nil
}

func (svc *Service) Reports(ctx context.Context) (Reports, error) {
	totals, err := svc.repo.Totals(ctx)
	if err != nil {
		return Reports{}, errors.Wrap(err, "computing totals")
	}
	months, err := svc.monthly(ctx)
	if err != nil {
		return Reports{}, err
	}
	stats, err := svc.emails.Statistics(ctx, nil)
	if err != nil {
		return Reports{}, err
	}

	monthly := make([]MonthStat, 0, len(months))
	for _, m := range months {
		monthly = append(monthly, MonthStat{
			Month:      m.Month.Format(monthLayout),
			Events:     m.Events,
			Attendance: core.Percent(m.Attended, m.Invitees),
		})
	}
	return Reports{
		TotalEvents:       totals.Events,
		TotalInvitees:     totals.Invitees,
		AverageAttendance: core.Percent(totals.Attended, totals.Invitees),
		MonthlyStats:      monthly,
		EmailStatistics:   stats,
	}, nil
}

func (svc *Service) monthly(ctx context.Context) ([]MonthCount, error) {
	since := core.NowFunc().AddDate(0, -monthlyWindow, 0)
	months, err := svc.repo.MonthlyCounts(ctx, since)
	if err != nil {
		return nil, errors.Wrap(err, "computing monthly counts")
	}
	if len(months) > monthlyWindow {
		months = months[:monthlyWindow]
	}
	return months, nil
}

// Export builds the xlsx workbook of the given kind. eventID only narrows the attendance export.
func (svc *Service) Export(ctx context.Context, kind string, eventID *int) (File, error) {
	var (
		sheet    core.Sheet
		filename string
		err      error
	)
	switch kind {
	case ExportSummary, "":
		sheet, err = svc.summarySheet(ctx)
		filename = "summary_report.xlsx"
	case ExportEvents:
		sheet, err = svc.eventsSheet(ctx)
		filename = "events_report.xlsx"
	case ExportAttendance:
		sheet, filename, err = svc.attendanceSheet(ctx, eventID)
	case ExportMonthly:
		sheet, err = svc.monthlySheet(ctx)
		filename = "monthly_report.xlsx"
	default:
		return File{}, ErrUnknownExport
	}
	if err != nil {
		return File{}, err
	}

	content, err := svc.writer.WriteXLSX([]core.Sheet{sheet})
	if err != nil {
		return File{}, errors.Wrap(err, "writing workbook")
	}
	return File{Filename: filename, Content: content}, nil
}

func (svc *Service) summarySheet(ctx context.Context) (core.Sheet, error) {
	totals, err := svc.repo.Totals(ctx)
	if err != nil {
		return core.Sheet{}, errors.Wrap(err, "computing totals")
	}
	return core.Sheet{
		Name:    "Summary",
		Headers: []string{"Metric", "Value"},
		Rows: [][]interface{}{
			{"Total Events", totals.Events},
			{"Total Invitees", totals.Invitees},
			{"Total Attended", totals.Attended},
			{"Attendance Rate (%)", core.Percent(totals.Attended, totals.Invitees)},
		},
	}, nil
}

func (svc *Service) eventsSheet(ctx context.Context) (core.Sheet, error) {
	events, err := svc.repo.EventCounts(ctx)
	if err != nil {
		return core.Sheet{}, errors.Wrap(err, "computing event counts")
	}
	sheet := core.Sheet{
		Name: "Events",
		Headers: []string{
			"Event ID", "Event Name", "Location", "Email Subject", "Total Students",
			"Total Invitees", "Attended", "Attendance Rate (%)", "Created Date",
		},
	}
	for _, e := range events {
		sheet.Rows = append(sheet.Rows, []interface{}{
			e.ID, e.Name, e.Location, e.EmailSubject, e.Students, e.Invitees, e.Attended,
			core.Percent(e.Attended, e.Invitees), e.CreatedAt.Format(minuteLayout),
		})
	}
	return sheet, nil
}

func (svc *Service) attendanceSheet(ctx context.Context, eventID *int) (core.Sheet, string, error) {
	lines, err := svc.repo.AttendanceLines(ctx, eventID)
	if err != nil {
		return core.Sheet{}, "", errors.Wrap(err, "querying attendance")
	}
	sheet := core.Sheet{
		Name: "Attendance",
		Headers: []string{
			"Student Name", "Student ID", "Invitee Name", "Attendance Status",
			"Attendance Time", "Email Sent", "Event Date",
		},
	}
	for _, l := range lines {
		status, sent, at := "Absent", "No", ""
		if l.Attended {
			status = "Present"
		}
		if l.MailSend {
			sent = "Yes"
		}
		if l.AttendanceTime != nil {
			at = l.AttendanceTime.Format(minuteLayout)
		}
		sheet.Rows = append(sheet.Rows, []interface{}{
			l.StudentName, l.StudentID, l.InviteeName, status, at, sent, l.EventCreatedAt.Format(dayLayout),
		})
	}

	filename := "attendance_report.xlsx"
	if len(lines) > 0 {
		filename = AttendanceFilename(lines[0].EventName)
	}
	return sheet, filename, nil
}

func (svc *Service) monthlySheet(ctx context.Context) (core.Sheet, error) {
	months, err := svc.monthly(ctx)
	if err != nil {
		return core.Sheet{}, err
	}
	sheet := core.Sheet{
		Name:    "Monthly Stats",
		Headers: []string{"Month", "Events", "Students", "Invitees", "Attended", "Attendance Rate (%)"},
	}
	for _, m := range months {
		sheet.Rows = append(sheet.Rows, []interface{}{
			m.Month.Format(monthLayout), m.Events, m.Students, m.Invitees, m.Attended,
			core.Percent(m.Attended, m.Invitees),
		})
	}
	return sheet, nil
}

// AttendanceFilename keeps ASCII letters, digits and spaces of the event name, spaces becoming "_".
func AttendanceFilename(eventName string) string {
	clean := nonWordRe.ReplaceAllString(eventName, "")
	clean = spaceRe.ReplaceAllString(clean, "_")
	return clean + "_attendance_report.xlsx"
}
