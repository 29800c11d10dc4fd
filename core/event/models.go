package event

import (
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/Mohammed01doitesky/bed/core"
)

type Event struct {
	ID           int       `json:"id"`
	Name         string    `json:"name"`
	Location     string    `json:"location"`
	EmailSubject string    `json:"email_subject"`
	Active       bool      `json:"active"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// Subject returns the ticket email subject, falling back to the event name.
func (e Event) Subject() string {
	if e.EmailSubject != "" {
		return e.EmailSubject
	}
	return e.Name
}

// Stats are computed over active rows. Invitee counts exclude main invitees.
type Stats struct {
	StudentCount   int `json:"student_count"`
	InviteeCount   int `json:"invitee_count"`
	AttendedCount  int `json:"attended_count"`
	AttendanceRate int `json:"attendance_rate"`
}

type WithStats struct {
	Event
	Stats
}

// NewEvent contains information needed to create a new Event.
type NewEvent struct {
	Name         string `json:"name" validate:"required,max=255"`
	Location     string `json:"location" validate:"max=255"`
	EmailSubject string `json:"email_subject" validate:"max=255"`
}

func (ne *NewEvent) Validate(validate *validator.Validate, defaultSubject string) error {
	ne.Name = core.CleanString(ne.Name)
	ne.Location = core.CleanString(ne.Location)
	ne.EmailSubject = core.CleanString(ne.EmailSubject)
	if ne.EmailSubject == "" {
		ne.EmailSubject = defaultSubject
	}
	return validate.Struct(ne)
}

// UpdateEvent defines what information may be provided to modify an existing Event.
// nil fields are left untouched.
type UpdateEvent struct {
	Name         *string `json:"name" validate:"omitempty,min=1,max=255"`
	Location     *string `json:"location" validate:"omitempty,max=255"`
	EmailSubject *string `json:"email_subject" validate:"omitempty,max=255"`
}

func (ue *UpdateEvent) Validate(validate *validator.Validate) error {
	clean := func(s *string) {
		if s != nil {
			*s = core.CleanString(*s)
		}
	}
	clean(ue.Name)
	clean(ue.Location)
	clean(ue.EmailSubject)
	if ue.Name != nil && *ue.Name == "" {
		return core.NewValidationError(nil, core.FieldError{Field: "name", Error: "this field is required"})
	}
	return validate.Struct(ue)
}

func (ue UpdateEvent) Apply(evt Event) Event {
	if ue.Name != nil {
		evt.Name = *ue.Name
	}
	if ue.Location != nil {
		evt.Location = *ue.Location
	}
	if ue.EmailSubject != nil {
		evt.EmailSubject = *ue.EmailSubject
	}
	return evt
}
