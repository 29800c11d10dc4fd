package inmemdb

import (
	"context"
	"sort"
	"time"

	"github.com/Mohammed01doitesky/bed/core"
	"github.com/Mohammed01doitesky/bed/core/invitee"
	"github.com/Mohammed01doitesky/bed/core/roster"
)

type rosterRepository struct {
	db *DB
}

var _ roster.Repository = (*rosterRepository)(nil) // interface compliance check

func NewRosterRepository(db *DB) roster.Repository {
	return &rosterRepository{db: db}
}

// idTaken must be called with a lock held.
func (repo *rosterRepository) idTaken(eventID int, studentID string, excluded map[int]bool) bool {
	for _, item := range repo.db.items {
		if item.EventID == eventID && item.StudentID == studentID && item.Active && !excluded[item.ID] {
			return true
		}
	}
	return false
}

func (repo *rosterRepository) StudentIDExists(_ context.Context, eventID int, studentID string, excludedItemIDs ...int) (bool, error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()

	excluded := make(map[int]bool, len(excludedItemIDs))
	for _, id := range excludedItemIDs {
		excluded[id] = true
	}
	return repo.idTaken(eventID, studentID, excluded), nil
}

func (repo *rosterRepository) ActiveStudentIDs(_ context.Context, eventID int) ([]string, error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()

	var ids []string
	for _, id := range sortedIDs(repo.db.items) {
		if item := repo.db.items[id]; item.EventID == eventID && item.Active {
			ids = append(ids, item.StudentID)
		}
	}
	return ids, nil
}

// addInvitee must be called with the write lock held.
func (repo *rosterRepository) addInvitee(item roster.StudentItem, name, qrText string, main bool, at time.Time) *invitee.Invitee {
	inv := &invitee.Invitee{
		ID:            repo.db.nextID("invitees"),
		EventID:       item.EventID,
		StudentItemID: item.ID,
		Name:          name,
		QRCodeText:    qrText,
		MainInvitee:   main,
		Active:        true,
		CreatedAt:     at,
		UpdatedAt:     at,
	}
	repo.db.invitees[inv.ID] = inv
	return inv
}

func (repo *rosterRepository) CreateStudent(_ context.Context, item roster.StudentItem, names []string, token roster.TokenFunc) (roster.Student, error) {
	repo.db.mu.Lock()
	defer repo.db.mu.Unlock()

	if repo.idTaken(item.EventID, item.StudentID, nil) {
		return roster.Student{}, roster.ErrStudentExists
	}
	item.ID = repo.db.nextID("student_items")
	it := item
	repo.db.items[item.ID] = &it

	qrText := token(item.ID)
	repo.addInvitee(item, item.StudentName, qrText, true, item.CreatedAt)
	for _, name := range names {
		repo.addInvitee(item, name, qrText, false, item.CreatedAt)
	}
	return roster.Student{StudentItem: item, InviteeList: repo.db.itemInvitees(item.ID)}, nil
}

func (repo *rosterRepository) GetStudent(_ context.Context, eventID, itemID int) (roster.Student, error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()

	item, ok := repo.db.items[itemID]
	if !ok || !item.Active || item.EventID != eventID {
		return roster.Student{}, roster.ErrNotFound
	}
	return roster.Student{StudentItem: *item, InviteeList: repo.db.itemInvitees(itemID)}, nil
}

func (repo *rosterRepository) QueryStudents(_ context.Context, eventID int) ([]roster.Student, error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()

	students := make([]roster.Student, 0)
	for _, id := range sortedIDs(repo.db.items) {
		if item := repo.db.items[id]; item.EventID == eventID && item.Active {
			students = append(students, roster.Student{StudentItem: *item, InviteeList: repo.db.itemInvitees(id)})
		}
	}
	sort.SliceStable(students, func(i, j int) bool { return students[i].StudentName < students[j].StudentName })
	return students, nil
}

func (repo *rosterRepository) UpdateStudent(_ context.Context, item roster.StudentItem, names []string) (roster.Student, error) {
	repo.db.mu.Lock()
	defer repo.db.mu.Unlock()

	orig, ok := repo.db.items[item.ID]
	if !ok || !orig.Active {
		return roster.Student{}, roster.ErrNotFound
	}
	if repo.idTaken(item.EventID, item.StudentID, map[int]bool{item.ID: true}) {
		return roster.Student{}, roster.ErrStudentExists
	}
	*orig = item

	var main invitee.Invitee
	for _, inv := range repo.db.invitees {
		if inv.StudentItemID == item.ID && inv.Active && inv.MainInvitee {
			inv.Name = item.StudentName
			inv.UpdatedAt = item.UpdatedAt
			main = *inv
		}
	}
	if names != nil {
		for _, inv := range repo.db.invitees {
			if inv.StudentItemID == item.ID && inv.Active && !inv.MainInvitee {
				inv.Active = false
				inv.UpdatedAt = item.UpdatedAt
			}
		}
		for _, name := range names {
			guest := repo.addInvitee(item, name, main.QRCodeText, false, item.UpdatedAt)
			guest.MailSend = main.MailSend
			guest.MailSentAt = main.MailSentAt
		}
	}
	return roster.Student{StudentItem: item, InviteeList: repo.db.itemInvitees(item.ID)}, nil
}

func (repo *rosterRepository) DeactivateStudent(_ context.Context, itemID int) error {
	repo.db.mu.Lock()
	defer repo.db.mu.Unlock()

	item, ok := repo.db.items[itemID]
	if !ok || !item.Active {
		return roster.ErrNotFound
	}
	now := core.NowFunc()
	item.Active = false
	item.UpdatedAt = now
	for _, inv := range repo.db.invitees {
		if inv.StudentItemID == itemID && inv.Active {
			inv.Active = false
			inv.UpdatedAt = now
		}
	}
	return nil
}
