package sqlxrepos

import (
	"context"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"

	"github.com/Mohammed01doitesky/bed/core"
	"github.com/Mohammed01doitesky/bed/core/event"
)

const (
	eventColumns = `e.id, e.name, e.location, e.email_subject, e.active, e.created_at, e.updated_at`

	// per event counts over active rows; invitee counts exclude main invitees
	eventStatsColumns = `
		(SELECT COUNT(*) FROM student_items si WHERE si.event_id = e.id AND si.active) AS student_count,
		(SELECT COUNT(*) FROM invitees i WHERE i.event_id = e.id AND i.active AND NOT i.main_invitee) AS invitee_count,
		(SELECT COUNT(*) FROM invitees i WHERE i.event_id = e.id AND i.active AND NOT i.main_invitee
			AND i.invitees_attendance) AS attended_count`
)

type eventRow struct {
	ID           int       `db:"id"`
	Name         string    `db:"name"`
	Location     string    `db:"location"`
	EmailSubject string    `db:"email_subject"`
	Active       bool      `db:"active"`
	CreatedAt    time.Time `db:"created_at"`
	UpdatedAt    time.Time `db:"updated_at"`
}

func (r eventRow) unboil() event.Event {
	return event.Event{
		ID:           r.ID,
		Name:         r.Name,
		Location:     r.Location,
		EmailSubject: r.EmailSubject,
		Active:       r.Active,
		CreatedAt:    r.CreatedAt.UTC(),
		UpdatedAt:    r.UpdatedAt.UTC(),
	}
}

type eventStatsRow struct {
	eventRow
	StudentCount  int `db:"student_count"`
	InviteeCount  int `db:"invitee_count"`
	AttendedCount int `db:"attended_count"`
}

func (r eventStatsRow) stats() event.Stats {
	return event.Stats{
		StudentCount:   r.StudentCount,
		InviteeCount:   r.InviteeCount,
		AttendedCount:  r.AttendedCount,
		AttendanceRate: core.Percent(r.AttendedCount, r.InviteeCount),
	}
}

type eventRepository struct {
	db *sqlx.DB
}

var _ event.Repository = (*eventRepository)(nil) // interface compliance check

func NewEventRepository(db *sqlx.DB) event.Repository {
	return &eventRepository{db: db}
}

func (repo *eventRepository) CreateEvent(ctx context.Context, evt event.Event) (event.Event, error) {
	const q = `
		INSERT INTO events (name, location, email_subject, active, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id`
	err := repo.db.QueryRowxContext(ctx, q,
		evt.Name, evt.Location, evt.EmailSubject, evt.Active, evt.CreatedAt.UTC(), evt.UpdatedAt.UTC(),
	).Scan(&evt.ID)
	if err != nil {
		return event.Event{}, errors.Wrap(err, "inserting event")
	}
	return evt, nil
}

func (repo *eventRepository) QueryEvents(ctx context.Context, ordering []core.DBOrdering) ([]event.WithStats, error) {
	orderBy := core.OrderBy(ordering, event.OrderingFields, "created_at DESC")
	q := `SELECT ` + eventColumns + `,` + eventStatsColumns + `
		FROM events e
		WHERE e.active
		ORDER BY ` + orderBy

	var rows []eventStatsRow
	if err := repo.db.SelectContext(ctx, &rows, q); err != nil {
		return nil, errors.Wrap(err, "querying events")
	}
	events := make([]event.WithStats, 0, len(rows))
	for _, r := range rows {
		events = append(events, event.WithStats{Event: r.unboil(), Stats: r.stats()})
	}
	return events, nil
}

func (repo *eventRepository) GetEvent(ctx context.Context, id int) (event.Event, error) {
	var r eventRow
	q := `SELECT ` + eventColumns + ` FROM events e WHERE e.id = $1 AND e.active`
	if err := repo.db.GetContext(ctx, &r, q, id); err != nil {
		return event.Event{}, trapNoRowsErr(err, event.ErrNotFound, "finding event")
	}
	return r.unboil(), nil
}

func (repo *eventRepository) GetEventStats(ctx context.Context, id int) (event.Stats, error) {
	var r eventStatsRow
	q := `SELECT ` + eventColumns + `,` + eventStatsColumns + ` FROM events e WHERE e.id = $1`
	if err := repo.db.GetContext(ctx, &r, q, id); err != nil {
		return event.Stats{}, trapNoRowsErr(err, event.ErrNotFound, "computing event stats")
	}
	return r.stats(), nil
}

func (repo *eventRepository) UpdateEvent(ctx context.Context, evt event.Event) (event.Event, error) {
	const q = `
		UPDATE events SET name = $2, location = $3, email_subject = $4, updated_at = $5
		WHERE id = $1 AND active`
	res, err := repo.db.ExecContext(ctx, q, evt.ID, evt.Name, evt.Location, evt.EmailSubject, evt.UpdatedAt.UTC())
	if err != nil {
		return event.Event{}, errors.Wrap(err, "updating event")
	}
	if err = checkAffected(res, event.ErrNotFound); err != nil {
		return event.Event{}, err
	}
	return evt, nil
}

func (repo *eventRepository) DeactivateEvent(ctx context.Context, id int) error {
	now := core.NowFunc()
	return inTx(ctx, repo.db, func(tx *sqlx.Tx) error {
		res, err := tx.ExecContext(ctx, `UPDATE events SET active = false, updated_at = $2 WHERE id = $1 AND active`, id, now)
		if err != nil {
			return errors.Wrap(err, "deactivating event")
		}
		if err = checkAffected(res, event.ErrNotFound); err != nil {
			return err
		}
		if _, err = tx.ExecContext(ctx, `UPDATE student_items SET active = false, updated_at = $2 WHERE event_id = $1 AND active`, id, now); err != nil {
			return errors.Wrap(err, "deactivating student items")
		}
		if _, err = tx.ExecContext(ctx, `UPDATE invitees SET active = false, updated_at = $2 WHERE event_id = $1 AND active`, id, now); err != nil {
			return errors.Wrap(err, "deactivating invitees")
		}
		return nil
	})
}
