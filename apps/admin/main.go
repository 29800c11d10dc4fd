package main

import (
	"log"
	"os"

	"github.com/go-playground/validator/v10"

	"github.com/Mohammed01doitesky/bed/core"
	"github.com/Mohammed01doitesky/bed/core/dispatch"
	"github.com/Mohammed01doitesky/bed/core/event"
	"github.com/Mohammed01doitesky/bed/core/invitee"
	"github.com/Mohammed01doitesky/bed/core/roster"
	"github.com/Mohammed01doitesky/bed/core/user"
	emailsvc "github.com/Mohammed01doitesky/bed/services/email"
	logsvc "github.com/Mohammed01doitesky/bed/services/logger"
	qrsvc "github.com/Mohammed01doitesky/bed/services/qrcode"
	"github.com/Mohammed01doitesky/bed/storage/database"
	sqlxrepos "github.com/Mohammed01doitesky/bed/storage/database/sqlx"
)

func main() {
	conf := core.NewConfig()

	zl, err := logsvc.NewZap(conf.Log, "ADMIN")
	if err != nil {
		log.Fatalf("setting up logger: %v", err)
	}
	logger := logsvc.NewRollbarLogger(zl, conf)
	defer logger.Sync()

	core.ParseEmailTemplates(conf, logger)

	// set up DB
	errAndDie(logger, database.CreateIfNotExist(conf))
	db, err := database.Open(conf)
	errAndDie(logger, err)
	defer func() { _ = db.Close() }()

	translator := core.NewTranslator()
	validate := validator.New()
	core.InitValidators(validate, translator)
	user.InitValidators(validate, translator)

	var mailer core.EmailService
	if conf.Debug {
		mailer = emailsvc.NewConsoleService(conf)
	} else {
		mailer = emailsvc.NewSendgridService(logger, conf)
	}

	eventRepo := sqlxrepos.NewEventRepository(db)
	tokens := invitee.NewTokenSigner(conf.TicketSigningKey())

	// start CLI
	cli := commandLine{
		conf:     conf,
		db:       db.DB,
		validate: validate,
		users:    user.NewService(sqlxrepos.NewUserRepository(db), conf),
		events:   event.NewService(eventRepo),
		roster:   roster.NewService(sqlxrepos.NewRosterRepository(db), eventRepo, tokens, validate, logger),
		dispatch: dispatch.NewService(sqlxrepos.NewDispatchRepository(db), eventRepo, mailer, qrsvc.NewRenderer(), logger, conf),
		out:      os.Stdout,
	}
	if err := cli.run(os.Args); err != nil {
		if err != errHelp {
			logger.Error("admin command failed", err)
		}
		logger.Sync()
		os.Exit(1)
	}
}

func errAndDie(logger core.Logger, err error) {
	if err != nil {
		logger.Fatal(err.Error(), err)
	}
}
