package inmemdb

import (
	"context"
	"sort"
	"strings"
	"time"

	"github.com/Mohammed01doitesky/bed/core"
	"github.com/Mohammed01doitesky/bed/core/invitee"
)

type inviteeRepository struct {
	db *DB
}

var _ invitee.Repository = (*inviteeRepository)(nil) // interface compliance check

func NewInviteeRepository(db *DB) invitee.Repository {
	return &inviteeRepository{db: db}
}

// detail must be called with a lock held.
func (repo *inviteeRepository) detail(inv *invitee.Invitee) invitee.Detail {
	d := invitee.Detail{Invitee: *inv}
	if item, ok := repo.db.items[inv.StudentItemID]; ok {
		d.StudentID = item.StudentID
		d.StudentName = item.StudentName
		d.StudentEmail = item.StudentEmail
		d.NumberOfSeats = item.NumberOfSeats
	}
	if evt, ok := repo.db.events[inv.EventID]; ok {
		d.EventName = evt.Name
	}
	return d
}

func (repo *inviteeRepository) FindByQRCodeAndName(_ context.Context, qrText, name string) (invitee.Invitee, error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()

	var found *invitee.Invitee
	rank := func(inv *invitee.Invitee) int {
		r := 0
		if inv.MainInvitee {
			r += 2
		}
		if inv.AttendanceTime != nil {
			r++
		}
		return r
	}
	for _, id := range sortedIDs(repo.db.invitees) {
		inv := repo.db.invitees[id]
		if !inv.Active || inv.QRCodeText != qrText || inv.Name != name {
			continue
		}
		if found == nil || rank(inv) < rank(found) {
			found = inv
		}
	}
	if found == nil {
		return invitee.Invitee{}, invitee.ErrNotFound
	}
	return *found, nil
}

func (repo *inviteeRepository) MarkAttended(_ context.Context, id int, at time.Time) (bool, error) {
	repo.db.mu.Lock()
	defer repo.db.mu.Unlock()

	inv, ok := repo.db.invitees[id]
	if !ok || inv.AttendanceTime != nil {
		return false, nil
	}
	inv.Attendance = true
	inv.AttendanceTime = &at
	inv.UpdatedAt = at
	return true, nil
}

func (repo *inviteeRepository) SetAttendance(_ context.Context, id int, attended bool, at *time.Time) (invitee.Invitee, error) {
	repo.db.mu.Lock()
	defer repo.db.mu.Unlock()

	inv, ok := repo.db.invitees[id]
	if !ok || !inv.Active {
		return invitee.Invitee{}, invitee.ErrNotFound
	}
	inv.Attendance = attended
	inv.AttendanceTime = at
	inv.UpdatedAt = core.NowFunc()
	return *inv, nil
}

func (repo *inviteeRepository) GetInvitee(_ context.Context, id int) (invitee.Detail, error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()

	inv, ok := repo.db.invitees[id]
	if !ok || !inv.Active {
		return invitee.Detail{}, invitee.ErrNotFound
	}
	return repo.detail(inv), nil
}

func (repo *inviteeRepository) QueryByQRCode(_ context.Context, qrText string) ([]invitee.Detail, error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()

	details := make([]invitee.Detail, 0)
	for _, id := range sortedIDs(repo.db.invitees) {
		inv := repo.db.invitees[id]
		if inv.Active && !inv.MainInvitee && inv.QRCodeText == qrText {
			details = append(details, repo.detail(inv))
		}
	}
	return details, nil
}

func (repo *inviteeRepository) QueryInvitees(_ context.Context, filter invitee.QueryFilter) ([]invitee.Detail, error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()

	search := strings.ToLower(filter.Student)
	details := make([]invitee.Detail, 0)
	for _, id := range sortedIDs(repo.db.invitees) {
		inv := repo.db.invitees[id]
		item, evt := repo.db.items[inv.StudentItemID], repo.db.events[inv.EventID]
		if !inv.Active || item == nil || !item.Active || evt == nil || !evt.Active {
			continue
		}
		if search != "" && !strings.Contains(strings.ToLower(item.StudentName), search) &&
			!strings.Contains(strings.ToLower(item.StudentID), search) {
			continue
		}
		if filter.EventID != nil && inv.EventID != *filter.EventID {
			continue
		}
		if filter.EmailSent != nil && inv.MailSend != *filter.EmailSent {
			continue
		}
		details = append(details, repo.detail(inv))
	}
	sort.SliceStable(details, func(i, j int) bool {
		a, b := details[i], details[j]
		if a.EventID != b.EventID {
			return a.EventID > b.EventID
		}
		if a.StudentName != b.StudentName {
			return a.StudentName < b.StudentName
		}
		return a.MainInvitee && !b.MainInvitee
	})
	return details, nil
}
