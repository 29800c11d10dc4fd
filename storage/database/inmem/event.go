package inmemdb

import (
	"context"
	"sort"

	"github.com/Mohammed01doitesky/bed/core"
	"github.com/Mohammed01doitesky/bed/core/event"
)

type eventRepository struct {
	db *DB
}

var _ event.Repository = (*eventRepository)(nil) // interface compliance check

func NewEventRepository(db *DB) event.Repository {
	return &eventRepository{db: db}
}

func (repo *eventRepository) CreateEvent(_ context.Context, evt event.Event) (event.Event, error) {
	repo.db.mu.Lock()
	defer repo.db.mu.Unlock()

	evt.ID = repo.db.nextID("events")
	e := evt
	repo.db.events[evt.ID] = &e
	return evt, nil
}

// stats must be called with the read lock held.
func (repo *eventRepository) stats(id int) event.Stats {
	var s event.Stats
	for _, item := range repo.db.items {
		if item.EventID == id && item.Active {
			s.StudentCount++
		}
	}
	for _, inv := range repo.db.invitees {
		if inv.EventID != id || !inv.Active || inv.MainInvitee {
			continue
		}
		s.InviteeCount++
		if inv.Attendance {
			s.AttendedCount++
		}
	}
	s.AttendanceRate = core.Percent(s.AttendedCount, s.InviteeCount)
	return s
}

func (repo *eventRepository) QueryEvents(_ context.Context, ordering []core.DBOrdering) ([]event.WithStats, error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()

	events := make([]event.WithStats, 0, len(repo.db.events))
	for _, id := range sortedIDs(repo.db.events) {
		if evt := repo.db.events[id]; evt.Active {
			events = append(events, event.WithStats{Event: *evt, Stats: repo.stats(id)})
		}
	}

	less := func(a, b event.Event) bool { return a.CreatedAt.After(b.CreatedAt) }
	if len(ordering) > 0 {
		ord := ordering[0]
		switch ord.Field {
		case "id":
			less = func(a, b event.Event) bool { return (a.ID < b.ID) == ord.Ascending }
		case "name":
			less = func(a, b event.Event) bool { return (a.Name < b.Name) == ord.Ascending }
		case "location":
			less = func(a, b event.Event) bool { return (a.Location < b.Location) == ord.Ascending }
		case "created_at":
			less = func(a, b event.Event) bool { return a.CreatedAt.Before(b.CreatedAt) == ord.Ascending }
		}
	}
	sort.SliceStable(events, func(i, j int) bool { return less(events[i].Event, events[j].Event) })
	return events, nil
}

func (repo *eventRepository) GetEvent(_ context.Context, id int) (event.Event, error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()

	if evt, ok := repo.db.events[id]; ok && evt.Active {
		return *evt, nil
	}
	return event.Event{}, event.ErrNotFound
}

func (repo *eventRepository) GetEventStats(_ context.Context, id int) (event.Stats, error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()

	if _, ok := repo.db.events[id]; !ok {
		return event.Stats{}, event.ErrNotFound
	}
	return repo.stats(id), nil
}

func (repo *eventRepository) UpdateEvent(_ context.Context, evt event.Event) (event.Event, error) {
	repo.db.mu.Lock()
	defer repo.db.mu.Unlock()

	orig, ok := repo.db.events[evt.ID]
	if !ok || !orig.Active {
		return event.Event{}, event.ErrNotFound
	}
	orig.Name = evt.Name
	orig.Location = evt.Location
	orig.EmailSubject = evt.EmailSubject
	orig.UpdatedAt = evt.UpdatedAt
	return *orig, nil
}

func (repo *eventRepository) DeactivateEvent(_ context.Context, id int) error {
	repo.db.mu.Lock()
	defer repo.db.mu.Unlock()

	evt, ok := repo.db.events[id]
	if !ok || !evt.Active {
		return event.ErrNotFound
	}
	now := core.NowFunc()
	evt.Active = false
	evt.UpdatedAt = now
	for _, item := range repo.db.items {
		if item.EventID == id && item.Active {
			item.Active = false
			item.UpdatedAt = now
		}
	}
	for _, inv := range repo.db.invitees {
		if inv.EventID == id && inv.Active {
			inv.Active = false
			inv.UpdatedAt = now
		}
	}
	return nil
}
