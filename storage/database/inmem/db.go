// Package inmemdb keeps every table in memory. It backs the service and API tests.
package inmemdb

import (
	"sort"
	"sync"

	"github.com/Mohammed01doitesky/bed/core/event"
	"github.com/Mohammed01doitesky/bed/core/invitee"
	"github.com/Mohammed01doitesky/bed/core/roster"
	"github.com/Mohammed01doitesky/bed/core/user"
)

// DB guards all tables with one lock so cascades are atomic.
type DB struct {
	mu sync.RWMutex

	users    map[int]*user.User
	apiKeys  map[int]*user.APIKey
	events   map[int]*event.Event
	items    map[int]*roster.StudentItem
	invitees map[int]*invitee.Invitee

	pk map[string]int
}

func Open() *DB {
	return &DB{
		users:    make(map[int]*user.User),
		apiKeys:  make(map[int]*user.APIKey),
		events:   make(map[int]*event.Event),
		items:    make(map[int]*roster.StudentItem),
		invitees: make(map[int]*invitee.Invitee),
		pk:       make(map[string]int),
	}
}

// nextID must be called with the write lock held.
func (db *DB) nextID(table string) int {
	db.pk[table]++
	return db.pk[table]
}

// sortedIDs returns the keys of m in ascending order.
func sortedIDs[T any](m map[int]*T) []int {
	ids := make([]int, 0, len(m))
	for id := range m {
		ids = append(ids, id)
	}
	sort.Ints(ids)
	return ids
}

// itemInvitees returns the active invitees of a student item, main invitee first. Read lock held.
func (db *DB) itemInvitees(itemID int) []invitee.Invitee {
	list := make([]invitee.Invitee, 0)
	for _, id := range sortedIDs(db.invitees) {
		inv := db.invitees[id]
		if inv.StudentItemID == itemID && inv.Active {
			list = append(list, *inv)
		}
	}
	sort.SliceStable(list, func(i, j int) bool { return list[i].MainInvitee && !list[j].MainInvitee })
	return list
}
