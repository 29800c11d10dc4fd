package dig_container

import (
	"fmt"
	"log"
	"os"

	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"
	"go.uber.org/dig"

	echoapi "github.com/Mohammed01doitesky/bed/apps/api/echo"
	"github.com/Mohammed01doitesky/bed/core"
	"github.com/Mohammed01doitesky/bed/core/dispatch"
	"github.com/Mohammed01doitesky/bed/core/event"
	"github.com/Mohammed01doitesky/bed/core/invitee"
	"github.com/Mohammed01doitesky/bed/core/report"
	"github.com/Mohammed01doitesky/bed/core/roster"
	"github.com/Mohammed01doitesky/bed/core/user"
	emailsvc "github.com/Mohammed01doitesky/bed/services/email"
	logsvc "github.com/Mohammed01doitesky/bed/services/logger"
	qrsvc "github.com/Mohammed01doitesky/bed/services/qrcode"
	sheetsvc "github.com/Mohammed01doitesky/bed/services/sheet"
	"github.com/Mohammed01doitesky/bed/storage/database"
	boiledrepos "github.com/Mohammed01doitesky/bed/storage/database/sqlboiler"
	sqlxrepos "github.com/Mohammed01doitesky/bed/storage/database/sqlx"
)

type DBLoggerParam struct {
	dig.In
	Logger core.Logger `name:"dbLogger"`
}

type ServerParams struct {
	dig.In
	Conf        *core.Config
	Logger      core.Logger
	Validate    *validator.Validate
	Translator  ut.Translator
	UserSvc     user.Service
	EventSvc    *event.Service
	RosterSvc   *roster.Service
	InviteeSvc  *invitee.Service
	DispatchSvc *dispatch.Service
	ReportSvc   *report.Service
}

func newRollbarLogger(conf *core.Config, name string) *logsvc.RollbarLogger {
	zl, err := logsvc.NewZap(conf.Log, name)
	if err != nil {
		log.Fatalf("setting up %s logger: %v", name, err)
	}
	logger := logsvc.NewRollbarLogger(zl, conf)
	logger.Enable(!conf.Debug && conf.RollbarToken != "")
	return logger
}

func newLogger(conf *core.Config) core.Logger {
	return newRollbarLogger(conf, "API")
}

func newDBLogger(conf *core.Config) core.Logger {
	return newRollbarLogger(conf, "DB")
}

func newDB(conf *core.Config, loggerParam DBLoggerParam) (*sqlx.DB, core.DBExecutor) {
	setUp := func() (*sqlx.DB, error) {
		if err := database.CreateIfNotExist(conf); err != nil {
			return nil, err
		}

		db, err := database.Open(conf)
		if err != nil {
			return nil, err
		}

		if err = database.Migrate(db.DB, "up"); err != nil {
			return nil, err
		}
		return db, nil
	}

	db, err := setUp()
	if err != nil {
		loggerParam.Logger.Fatal(fmt.Sprintf("setting up database: %v", err), err)
	}
	return db, db
}

func newEmailService(conf *core.Config, logger core.Logger) core.EmailService {
	if conf.Debug {
		return emailsvc.NewConsoleService(conf)
	}
	return emailsvc.NewSendgridService(logger, conf)
}

func newValidator(translator ut.Translator) *validator.Validate {
	validate := validator.New()
	core.InitValidators(validate, translator)
	user.InitValidators(validate, translator)
	return validate
}

func newTokenSigner(conf *core.Config) *invitee.TokenSigner {
	return invitee.NewTokenSigner(conf.TicketSigningKey())
}

func newReportService(repo report.Repository, emails *dispatch.Service) *report.Service {
	return report.NewService(repo, emails, sheetsvc.Writer{})
}

func newServer(p ServerParams) *echoapi.Server {
	return echoapi.NewServer(echoapi.ServerDeps{
		Conf:        p.Conf,
		Logger:      p.Logger,
		Validate:    p.Validate,
		Translator:  p.Translator,
		UserSvc:     p.UserSvc,
		EventSvc:    p.EventSvc,
		RosterSvc:   p.RosterSvc,
		InviteeSvc:  p.InviteeSvc,
		DispatchSvc: p.DispatchSvc,
		ReportSvc:   p.ReportSvc,
	})
}

// New returns a new dependency injection dig.Container
func New() *dig.Container {
	c := dig.New()

	must(c.Provide(core.NewConfig))
	must(c.Provide(newLogger))
	must(c.Provide(newDBLogger, dig.Name("dbLogger")))
	must(c.Provide(newDB))
	must(c.Provide(newEmailService))
	must(c.Provide(qrsvc.NewRenderer))
	must(c.Provide(core.NewTranslator))
	must(c.Provide(newValidator))
	must(c.Provide(newTokenSigner))

	// repositories
	must(c.Provide(sqlxrepos.NewUserRepository))
	must(c.Provide(sqlxrepos.NewEventRepository))
	must(c.Provide(sqlxrepos.NewRosterRepository))
	must(c.Provide(sqlxrepos.NewInviteeRepository))
	must(c.Provide(sqlxrepos.NewDispatchRepository))
	must(c.Provide(boiledrepos.NewReportRepository))

	// services
	must(c.Provide(user.NewService))
	must(c.Provide(event.NewService))
	must(c.Provide(func(repo event.Repository) roster.EventGetter { return repo }))
	must(c.Provide(func(repo event.Repository) dispatch.EventGetter { return repo }))
	must(c.Provide(roster.NewService))
	must(c.Provide(invitee.NewService))
	must(c.Provide(dispatch.NewService))
	must(c.Provide(newReportService))
	must(c.Provide(newServer))

	if os.Getenv("DIG_VISUALIZE") != "" {
		_ = dig.Visualize(c, os.Stdout)
	}

	return c
}

// must exits program if err happened
func must(err error) {
	if err != nil {
		log.Fatal(errors.Wrap(err, "failed to provide dependency").Error())
	}
}
