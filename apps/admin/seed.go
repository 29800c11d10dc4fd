package main

import (
	"context"
	"fmt"

	"github.com/pkg/errors"

	"github.com/Mohammed01doitesky/bed/core/event"
	"github.com/Mohammed01doitesky/bed/core/roster"
	"github.com/Mohammed01doitesky/bed/core/user"
)

const sampleEventName = "Sample Graduation Ceremony"

var sampleStudents = []roster.StudentRow{
	{
		StudentID:     "S-0001",
		StudentName:   "Sample Student One",
		StudentEmail:  "student.one@example.com",
		Parent1:       "parent.one@example.com",
		NumberOfSeats: 3,
		Invitees:      "First Guest, Second Guest",
	},
	{
		StudentID:     "S-0002",
		StudentName:   "Sample Student Two",
		StudentEmail:  "student.two@example.com",
		Parent1:       "parent.two@example.com",
		NumberOfSeats: 1,
	},
}

// seed saves an admin user. A sample event is created when the database has no event yet.
func (cli *commandLine) seed(ctx context.Context, uname, email, pwd string) error {
	usr, err := cli.addUser(ctx, uname, email, user.RoleAdmin, pwd)
	if err != nil {
		return errors.Wrap(err, "seeding admin")
	}
	_, _ = fmt.Fprintf(cli.out, "Admin %q ready\n", usr.Username)

	events, err := cli.events.Query(ctx, nil)
	if err != nil {
		return errors.Wrap(err, "querying events")
	}
	if len(events) > 0 {
		return nil
	}

	ne := event.NewEvent{Name: sampleEventName, Location: "Main Hall"}
	if err = ne.Validate(cli.validate, cli.conf.Ticket.DefaultEmailSubject); err != nil {
		return err
	}
	evt, err := cli.events.Create(ctx, ne)
	if err != nil {
		return errors.Wrap(err, "creating sample event")
	}

	res, err := cli.roster.ImportRows(ctx, evt.ID, sampleStudents)
	if err != nil {
		return errors.Wrap(err, "importing sample students")
	}
	_, _ = fmt.Fprintf(cli.out, "Event %q (id %d): %s\n", evt.Name, evt.ID, res.Message)
	return nil
}
