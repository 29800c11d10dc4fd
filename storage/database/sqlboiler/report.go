// Package boiledrepos implements the read-only report queries with sqlboiler raw query binding.
package boiledrepos

import (
	"context"
	"time"

	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"
	"github.com/volatiletech/sqlboiler/v4/queries"

	"github.com/Mohammed01doitesky/bed/core"
	"github.com/Mohammed01doitesky/bed/core/report"
)

type reportRepository struct {
	exec core.DBExecutor
}

var _ report.Repository = (*reportRepository)(nil) // interface compliance check

func NewReportRepository(exec core.DBExecutor) report.Repository {
	return &reportRepository{exec: exec}
}

func (repo *reportRepository) Totals(ctx context.Context) (report.Totals, error) {
	const q = `
		SELECT
			(SELECT COUNT(*) FROM events WHERE active) AS events,
			COUNT(i.id) AS invitees,
			COUNT(i.id) FILTER (WHERE i.invitees_attendance) AS attended
		FROM invitees i
		JOIN events e ON e.id = i.event_id
		WHERE i.active AND e.active`
	var r struct {
		Events   int `boil:"events"`
		Invitees int `boil:"invitees"`
		Attended int `boil:"attended"`
	}
	if err := queries.Raw(q).Bind(ctx, repo.exec, &r); err != nil {
		return report.Totals{}, errors.Wrap(err, "computing totals")
	}
	return report.Totals{Events: r.Events, Invitees: r.Invitees, Attended: r.Attended}, nil
}

func (repo *reportRepository) RecentEvents(ctx context.Context, limit int) ([]report.RecentEvent, error) {
	const q = `SELECT id, name, location, created_at FROM events WHERE active ORDER BY created_at DESC LIMIT $1`
	var rows []struct {
		ID        int       `boil:"id"`
		Name      string    `boil:"name"`
		Location  string    `boil:"location"`
		CreatedAt time.Time `boil:"created_at"`
	}
	if err := queries.Raw(q, limit).Bind(ctx, repo.exec, &rows); err != nil {
		return nil, errors.Wrap(err, "querying recent events")
	}
	events := make([]report.RecentEvent, 0, len(rows))
	for _, r := range rows {
		events = append(events, report.RecentEvent{ID: r.ID, Name: r.Name, Location: r.Location, CreatedAt: r.CreatedAt.UTC()})
	}
	return events, nil
}

// per event counts, main invitees included
const eventCountsQuery = `
	SELECT e.id, e.name, e.location, e.email_subject, e.created_at,
		(SELECT COUNT(*) FROM student_items si WHERE si.event_id = e.id AND si.active) AS students,
		(SELECT COUNT(*) FROM invitees i WHERE i.event_id = e.id AND i.active) AS invitees,
		(SELECT COUNT(*) FROM invitees i WHERE i.event_id = e.id AND i.active AND i.invitees_attendance) AS attended
	FROM events e
	WHERE e.active`

func (repo *reportRepository) MonthlyCounts(ctx context.Context, since time.Time) ([]report.MonthCount, error) {
	const q = `
		SELECT DATE_TRUNC('month', ec.created_at) AS month,
			COUNT(*) AS events,
			COALESCE(SUM(ec.students), 0) AS students,
			COALESCE(SUM(ec.invitees), 0) AS invitees,
			COALESCE(SUM(ec.attended), 0) AS attended
		FROM (` + eventCountsQuery + ` AND e.created_at >= $1) ec
		GROUP BY DATE_TRUNC('month', ec.created_at)
		ORDER BY month DESC`
	var rows []struct {
		Month    time.Time `boil:"month"`
		Events   int       `boil:"events"`
		Students int       `boil:"students"`
		Invitees int       `boil:"invitees"`
		Attended int       `boil:"attended"`
	}
	if err := queries.Raw(q, since.UTC()).Bind(ctx, repo.exec, &rows); err != nil {
		return nil, errors.Wrap(err, "computing monthly counts")
	}
	months := make([]report.MonthCount, 0, len(rows))
	for _, r := range rows {
		months = append(months, report.MonthCount{
			Month:    r.Month.UTC(),
			Events:   r.Events,
			Students: r.Students,
			Invitees: r.Invitees,
			Attended: r.Attended,
		})
	}
	return months, nil
}

func (repo *reportRepository) EventCounts(ctx context.Context) ([]report.EventCount, error) {
	var rows []struct {
		ID           int       `boil:"id"`
		Name         string    `boil:"name"`
		Location     string    `boil:"location"`
		EmailSubject string    `boil:"email_subject"`
		CreatedAt    time.Time `boil:"created_at"`
		Students     int       `boil:"students"`
		Invitees     int       `boil:"invitees"`
		Attended     int       `boil:"attended"`
	}
	if err := queries.Raw(eventCountsQuery+` ORDER BY e.created_at DESC`).Bind(ctx, repo.exec, &rows); err != nil {
		return nil, errors.Wrap(err, "computing event counts")
	}
	events := make([]report.EventCount, 0, len(rows))
	for _, r := range rows {
		events = append(events, report.EventCount{
			ID:           r.ID,
			Name:         r.Name,
			Location:     r.Location,
			EmailSubject: r.EmailSubject,
			Students:     r.Students,
			Invitees:     r.Invitees,
			Attended:     r.Attended,
			CreatedAt:    r.CreatedAt.UTC(),
		})
	}
	return events, nil
}

func (repo *reportRepository) AttendanceLines(ctx context.Context, eventID *int) ([]report.AttendanceLine, error) {
	q := `
		SELECT e.name AS event_name, e.created_at AS event_created_at, si.student_name, si.student_id,
			i.invitees_name, i.invitees_attendance, i.invitees_attendance_time, i.mail_send
		FROM invitees i
		JOIN events e ON e.id = i.event_id
		JOIN student_items si ON si.id = i.student_item_id
		WHERE i.active AND e.active AND si.active AND NOT i.main_invitee`
	var args []interface{}
	if eventID != nil {
		q += ` AND e.id = $1`
		args = append(args, *eventID)
	}
	q += ` ORDER BY e.created_at DESC, si.student_name`

	var rows []struct {
		EventName      string    `boil:"event_name"`
		EventCreatedAt time.Time `boil:"event_created_at"`
		StudentName    string    `boil:"student_name"`
		StudentID      string    `boil:"student_id"`
		InviteeName    string    `boil:"invitees_name"`
		Attended       bool      `boil:"invitees_attendance"`
		AttendanceTime null.Time `boil:"invitees_attendance_time"`
		MailSend       bool      `boil:"mail_send"`
	}
	if err := queries.Raw(q, args...).Bind(ctx, repo.exec, &rows); err != nil {
		return nil, errors.Wrap(err, "querying attendance lines")
	}
	lines := make([]report.AttendanceLine, 0, len(rows))
	for _, r := range rows {
		lines = append(lines, report.AttendanceLine{
			EventName:      r.EventName,
			EventCreatedAt: r.EventCreatedAt.UTC(),
			StudentName:    r.StudentName,
			StudentID:      r.StudentID,
			InviteeName:    r.InviteeName,
			Attended:       r.Attended,
			AttendanceTime: r.AttendanceTime.Ptr(),
			MailSend:       r.MailSend,
		})
	}
	return lines, nil
}
