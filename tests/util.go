// Package testutil wires the services over in-memory repositories and creates fixtures.
package testutil

import (
	"context"
	"testing"

	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"

	"github.com/Mohammed01doitesky/bed/core"
	"github.com/Mohammed01doitesky/bed/core/dispatch"
	"github.com/Mohammed01doitesky/bed/core/event"
	"github.com/Mohammed01doitesky/bed/core/invitee"
	"github.com/Mohammed01doitesky/bed/core/report"
	"github.com/Mohammed01doitesky/bed/core/roster"
	"github.com/Mohammed01doitesky/bed/core/user"
	emailsvc "github.com/Mohammed01doitesky/bed/services/email"
	qrsvc "github.com/Mohammed01doitesky/bed/services/qrcode"
	sheetsvc "github.com/Mohammed01doitesky/bed/services/sheet"
	inmemdb "github.com/Mohammed01doitesky/bed/storage/database/inmem"
)

type Env struct {
	Conf       *core.Config
	DB         *inmemdb.DB
	Validate   *validator.Validate
	Translator ut.Translator
	Mailer     *emailsvc.ConsoleServiceMock
	Tokens     *invitee.TokenSigner

	UserRepo     user.Repository
	EventRepo    event.Repository
	RosterRepo   roster.Repository
	InviteeRepo  invitee.Repository
	DispatchRepo dispatch.Repository

	UserSvc     user.Service
	EventSvc    *event.Service
	RosterSvc   *roster.Service
	InviteeSvc  *invitee.Service
	DispatchSvc *dispatch.Service
	ReportSvc   *report.Service
}

// NewEnv returns services backed by a fresh in-memory database.
func NewEnv() *Env {
	conf := core.NewTestConfig()
	logger := core.NopLogger{}
	core.ParseEmailTemplates(conf, logger)

	translator := core.NewTranslator()
	validate := validator.New()
	core.InitValidators(validate, translator)
	user.InitValidators(validate, translator)

	db := inmemdb.Open()
	env := &Env{
		Conf:       conf,
		DB:         db,
		Validate:   validate,
		Translator: translator,
		Mailer:     emailsvc.NewConsoleServiceMock(conf),
		Tokens:     invitee.NewTokenSigner(conf.TicketSigningKey()),

		UserRepo:     inmemdb.NewUserRepository(db),
		EventRepo:    inmemdb.NewEventRepository(db),
		RosterRepo:   inmemdb.NewRosterRepository(db),
		InviteeRepo:  inmemdb.NewInviteeRepository(db),
		DispatchRepo: inmemdb.NewDispatchRepository(db),
	}

	qr := qrsvc.NewRenderer()
	env.UserSvc = user.NewService(env.UserRepo, conf)
	env.EventSvc = event.NewService(env.EventRepo)
	env.RosterSvc = roster.NewService(env.RosterRepo, env.EventRepo, env.Tokens, validate, logger)
	env.InviteeSvc = invitee.NewService(env.InviteeRepo, env.Tokens, qr, logger, conf)
	env.DispatchSvc = dispatch.NewService(env.DispatchRepo, env.EventRepo, env.Mailer, qr, logger, conf)
	env.ReportSvc = report.NewService(inmemdb.NewReportRepository(db), env.DispatchSvc, sheetsvc.Writer{})
	return env
}

func (env *Env) CreateUser(t *testing.T, uname, pwd, role string, isActive bool) user.User {
	t.Helper()
	now := core.NowFunc()
	usr := user.User{
		Username:  uname,
		Email:     uname + "@bed.test",
		Role:      role,
		IsActive:  isActive,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if pwd != "" {
		if err := usr.SetPassword(pwd); err != nil {
			t.Fatalf("CreateUser() failed: %v", err)
		}
	}
	usr, err := env.UserRepo.CreateUser(context.Background(), usr)
	if err != nil {
		t.Fatalf("CreateUser() failed: %v", err)
	}
	return usr
}

func (env *Env) CreateEvent(t *testing.T, name string) event.Event {
	t.Helper()
	evt, err := env.EventSvc.Create(context.Background(), event.NewEvent{
		Name:         name,
		Location:     "Main Hall",
		EmailSubject: env.Conf.Ticket.DefaultEmailSubject,
	})
	if err != nil {
		t.Fatalf("CreateEvent() failed: %v", err)
	}
	return evt
}

// CreateStudent adds a student with one additional invitee per name.
func (env *Env) CreateStudent(t *testing.T, eventID int, studentID, name string, guests string) roster.Student {
	t.Helper()
	std, err := env.RosterSvc.CreateStudent(context.Background(), eventID, roster.StudentRow{
		StudentID:     studentID,
		StudentName:   name,
		StudentEmail:  studentID + "@students.test",
		Parent1:       studentID + ".parent@family.test",
		NumberOfSeats: len(roster.SplitInvitees(guests)) + 1,
		Invitees:      guests,
	})
	if err != nil {
		t.Fatalf("CreateStudent() failed: %v", err)
	}
	return std
}
