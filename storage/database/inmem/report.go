package inmemdb

import (
	"context"
	"sort"
	"time"

	"github.com/Mohammed01doitesky/bed/core/report"
)

type reportRepository struct {
	db *DB
}

var _ report.Repository = (*reportRepository)(nil) // interface compliance check

func NewReportRepository(db *DB) report.Repository {
	return &reportRepository{db: db}
}

// counts must be called with a lock held. Main invitees are included.
func (repo *reportRepository) counts(eventID int) (students, invitees, attended int) {
	for _, item := range repo.db.items {
		if item.EventID == eventID && item.Active {
			students++
		}
	}
	for _, inv := range repo.db.invitees {
		if inv.EventID == eventID && inv.Active {
			invitees++
			if inv.Attendance {
				attended++
			}
		}
	}
	return
}

func (repo *reportRepository) Totals(context.Context) (report.Totals, error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()

	var t report.Totals
	for id, evt := range repo.db.events {
		if !evt.Active {
			continue
		}
		_, invitees, attended := repo.counts(id)
		t.Events++
		t.Invitees += invitees
		t.Attended += attended
	}
	return t, nil
}

func (repo *reportRepository) RecentEvents(_ context.Context, limit int) ([]report.RecentEvent, error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()

	events := make([]report.RecentEvent, 0)
	for _, evt := range repo.db.events {
		if evt.Active {
			events = append(events, report.RecentEvent{ID: evt.ID, Name: evt.Name, Location: evt.Location, CreatedAt: evt.CreatedAt})
		}
	}
	sort.Slice(events, func(i, j int) bool { return events[i].CreatedAt.After(events[j].CreatedAt) })
	if len(events) > limit {
		events = events[:limit]
	}
	return events, nil
}

func (repo *reportRepository) MonthlyCounts(_ context.Context, since time.Time) ([]report.MonthCount, error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()

	byMonth := make(map[time.Time]*report.MonthCount)
	for id, evt := range repo.db.events {
		if !evt.Active || evt.CreatedAt.Before(since) {
			continue
		}
		c := evt.CreatedAt.UTC()
		month := time.Date(c.Year(), c.Month(), 1, 0, 0, 0, 0, time.UTC)
		mc, ok := byMonth[month]
		if !ok {
			mc = &report.MonthCount{Month: month}
			byMonth[month] = mc
		}
		students, invitees, attended := repo.counts(id)
		mc.Events++
		mc.Students += students
		mc.Invitees += invitees
		mc.Attended += attended
	}

	months := make([]report.MonthCount, 0, len(byMonth))
	for _, mc := range byMonth {
		months = append(months, *mc)
	}
	sort.Slice(months, func(i, j int) bool { return months[i].Month.After(months[j].Month) })
	return months, nil
}

func (repo *reportRepository) EventCounts(context.Context) ([]report.EventCount, error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()

	events := make([]report.EventCount, 0)
	for id, evt := range repo.db.events {
		if !evt.Active {
			continue
		}
		students, invitees, attended := repo.counts(id)
		events = append(events, report.EventCount{
			ID:           evt.ID,
			Name:         evt.Name,
			Location:     evt.Location,
			EmailSubject: evt.EmailSubject,
			Students:     students,
			Invitees:     invitees,
			Attended:     attended,
			CreatedAt:    evt.CreatedAt,
		})
	}
	sort.Slice(events, func(i, j int) bool { return events[i].CreatedAt.After(events[j].CreatedAt) })
	return events, nil
}

func (repo *reportRepository) AttendanceLines(_ context.Context, eventID *int) ([]report.AttendanceLine, error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()

	lines := make([]report.AttendanceLine, 0)
	for _, id := range sortedIDs(repo.db.invitees) {
		inv := repo.db.invitees[id]
		evt, item := repo.db.events[inv.EventID], repo.db.items[inv.StudentItemID]
		if !inv.Active || inv.MainInvitee || evt == nil || !evt.Active || item == nil || !item.Active {
			continue
		}
		if eventID != nil && evt.ID != *eventID {
			continue
		}
		lines = append(lines, report.AttendanceLine{
			EventName:      evt.Name,
			EventCreatedAt: evt.CreatedAt,
			StudentName:    item.StudentName,
			StudentID:      item.StudentID,
			InviteeName:    inv.Name,
			Attended:       inv.Attendance,
			AttendanceTime: inv.AttendanceTime,
			MailSend:       inv.MailSend,
		})
	}
	sort.SliceStable(lines, func(i, j int) bool {
		a, b := lines[i], lines[j]
		if !a.EventCreatedAt.Equal(b.EventCreatedAt) {
			return a.EventCreatedAt.After(b.EventCreatedAt)
		}
		return a.StudentName < b.StudentName
	})
	return lines, nil
}
