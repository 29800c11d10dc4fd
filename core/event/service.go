package event

import (
	"context"

	"github.com/pkg/errors"

	"github.com/Mohammed01doitesky/bed/core"
)

var ErrNotFound = errors.New("Event not found")

// OrderingFields maps the accepted ?ordering= fields to columns.
var OrderingFields = map[string]string{
	"id":         "id",
	"name":       "name",
	"location":   "location",
	"created_at": "created_at",
}

type (
	Repository interface {
		CreateEvent(ctx context.Context, evt Event) (Event, error)
		// QueryEvents returns active events with their stats.
		QueryEvents(ctx context.Context, ordering []core.DBOrdering) ([]WithStats, error)
		// GetEvent returns an active event.
		GetEvent(ctx context.Context, id int) (Event, error)
		GetEventStats(ctx context.Context, id int) (Stats, error)
		UpdateEvent(ctx context.Context, evt Event) (Event, error)
		// DeactivateEvent soft deletes the event, its student items and their invitees.
		DeactivateEvent(ctx context.Context, id int) error
	}

	Service struct {
		repo Repository
	}
)

func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

func (svc *Service) Create(ctx context.Context, ne NewEvent) (Event, error) {
	now := core.NowFunc()
	evt := Event{
		Name:         ne.Name,
		Location:     ne.Location,
		EmailSubject: ne.EmailSubject,
		Active:       true,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	return svc.repo.CreateEvent(ctx, evt)
}

func (svc *Service) Query(ctx context.Context, ordering []core.DBOrdering) ([]WithStats, error) {
	return svc.repo.QueryEvents(ctx, ordering)
}

func (svc *Service) Get(ctx context.Context, id int) (Event, error) {
	return svc.repo.GetEvent(ctx, id)
}

func (svc *Service) GetWithStats(ctx context.Context, id int) (WithStats, error) {
	evt, err := svc.repo.GetEvent(ctx, id)
	if err != nil {
		return WithStats{}, err
	}
	stats, err := svc.repo.GetEventStats(ctx, id)
	if err != nil {
		return WithStats{}, errors.Wrap(err, "computing event stats")
	}
	return WithStats{Event: evt, Stats: stats}, nil
}

func (svc *Service) Update(ctx context.Context, id int, ue UpdateEvent) (Event, error) {
	evt, err := svc.repo.GetEvent(ctx, id)
	if err != nil {
		return Event{}, err
	}
	evt = ue.Apply(evt)
	evt.UpdatedAt = core.NowFunc()
	return svc.repo.UpdateEvent(ctx, evt)
}

func (svc *Service) Delete(ctx context.Context, id int) error {
	if _, err := svc.repo.GetEvent(ctx, id); err != nil {
		return err
	}
	return svc.repo.DeactivateEvent(ctx, id)
}
