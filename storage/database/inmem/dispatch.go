package inmemdb

import (
	"context"
	"sort"
	"time"

	"github.com/Mohammed01doitesky/bed/core/dispatch"
	"github.com/Mohammed01doitesky/bed/core/invitee"
	"github.com/Mohammed01doitesky/bed/core/roster"
)

type dispatchRepository struct {
	db *DB
}

var _ dispatch.Repository = (*dispatchRepository)(nil) // interface compliance check

func NewDispatchRepository(db *DB) dispatch.Repository {
	return &dispatchRepository{db: db}
}

// mains returns the active main invitees matching keep, with their student item. Read lock held.
func (repo *dispatchRepository) mains(keep func(inv *invitee.Invitee) bool) ([]*invitee.Invitee, []*roster.StudentItem) {
	var invs []*invitee.Invitee
	var items []*roster.StudentItem
	for _, id := range sortedIDs(repo.db.invitees) {
		inv := repo.db.invitees[id]
		if !inv.Active || !inv.MainInvitee || !keep(inv) {
			continue
		}
		item, ok := repo.db.items[inv.StudentItemID]
		if !ok {
			continue
		}
		invs = append(invs, inv)
		items = append(items, item)
	}
	return invs, items
}

func (repo *dispatchRepository) PendingTickets(_ context.Context, eventID int) ([]dispatch.Ticket, error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()

	invs, items := repo.mains(func(inv *invitee.Invitee) bool {
		return inv.EventID == eventID && !inv.MailSend && inv.QRCodeText != ""
	})
	tickets := make([]dispatch.Ticket, 0, len(invs))
	for i, inv := range invs {
		item := items[i]
		if !item.Active {
			continue
		}
		var guests []string
		for _, g := range repo.db.itemInvitees(item.ID) {
			if !g.MainInvitee {
				guests = append(guests, g.Name)
			}
		}
		tickets = append(tickets, dispatch.Ticket{
			StudentItemID: item.ID,
			InviteeName:   inv.Name,
			QRCodeText:    inv.QRCodeText,
			StudentID:     item.StudentID,
			StudentName:   item.StudentName,
			StudentEmail:  item.StudentEmail,
			Parent1:       item.Parent1,
			Parent2:       item.Parent2,
			NumberOfSeats: item.NumberOfSeats,
			Guests:        guests,
		})
	}
	sort.SliceStable(tickets, func(i, j int) bool { return tickets[i].StudentName < tickets[j].StudentName })
	return tickets, nil
}

func (repo *dispatchRepository) MarkSent(_ context.Context, studentItemID int, at time.Time) (bool, error) {
	repo.db.mu.Lock()
	defer repo.db.mu.Unlock()

	var changed bool
	for _, inv := range repo.db.invitees {
		if inv.StudentItemID == studentItemID && inv.Active && !inv.MailSend {
			inv.MailSend = true
			sentAt := at
			inv.MailSentAt = &sentAt
			inv.UpdatedAt = at
			changed = true
		}
	}
	return changed, nil
}

func (repo *dispatchRepository) Statistics(_ context.Context, eventID *int) (dispatch.Statistics, error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()

	invs, _ := repo.mains(func(inv *invitee.Invitee) bool { return eventID == nil || inv.EventID == *eventID })
	var s dispatch.Statistics
	for _, inv := range invs {
		s.TotalInvitees++
		if !inv.MailSend {
			s.EmailsPending++
			continue
		}
		s.EmailsSent++
		if inv.MailSentAt != nil && (s.LastSent == nil || inv.MailSentAt.After(*s.LastSent)) {
			last := *inv.MailSentAt
			s.LastSent = &last
		}
	}
	return s, nil
}

func (repo *dispatchRepository) SentRows(_ context.Context, eventID int) ([]dispatch.SentRow, error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()

	invs, items := repo.mains(func(inv *invitee.Invitee) bool { return inv.EventID == eventID && inv.MailSend })
	rows := make([]dispatch.SentRow, 0, len(invs))
	for i, inv := range invs {
		rows = append(rows, dispatch.SentRow{
			InviteeName:  inv.Name,
			StudentName:  items[i].StudentName,
			StudentEmail: items[i].StudentEmail,
			MailSentAt:   inv.MailSentAt,
		})
	}
	sort.SliceStable(rows, func(i, j int) bool {
		a, b := rows[i].MailSentAt, rows[j].MailSentAt
		return a != nil && (b == nil || a.After(*b))
	})
	return rows, nil
}

func (repo *dispatchRepository) PendingRows(_ context.Context, eventID int) ([]dispatch.PendingRow, error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()

	invs, items := repo.mains(func(inv *invitee.Invitee) bool { return inv.EventID == eventID && !inv.MailSend })
	rows := make([]dispatch.PendingRow, 0, len(invs))
	for i, inv := range invs {
		rows = append(rows, dispatch.PendingRow{
			InviteeName:  inv.Name,
			StudentName:  items[i].StudentName,
			StudentEmail: items[i].StudentEmail,
			QRCodeText:   inv.QRCodeText,
		})
	}
	sort.SliceStable(rows, func(i, j int) bool { return rows[i].StudentName < rows[j].StudentName })
	return rows, nil
}
