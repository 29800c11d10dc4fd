package main

import (
	"context"
	"database/sql"
	"errors"
	"flag"
	"fmt"
	"io"
	"syscall"

	"github.com/go-playground/validator/v10"
	"github.com/kat-co/vala"
	"golang.org/x/term"

	"github.com/Mohammed01doitesky/bed/core"
	"github.com/Mohammed01doitesky/bed/core/dispatch"
	"github.com/Mohammed01doitesky/bed/core/event"
	"github.com/Mohammed01doitesky/bed/core/roster"
	"github.com/Mohammed01doitesky/bed/core/user"
)

var (
	readPasswordFunc = term.ReadPassword // mockable

	errHelp = errors.New("help provided")
)

type commandLine struct {
	conf     *core.Config
	db       *sql.DB
	validate *validator.Validate
	users    user.Service
	events   *event.Service
	roster   *roster.Service
	dispatch *dispatch.Service
	out      io.Writer
}

func (cli *commandLine) printUsage() {
	_, _ = fmt.Fprintln(cli.out, "Usage:")
	_, _ = fmt.Fprintln(cli.out, "  migrate COMMAND [ARGS] - run a goose command (up, down, status, ...) against the database")
	_, _ = fmt.Fprintln(cli.out, "  adduser -username USERNAME -email EMAIL [-role ROLE] - create or update a user")
	_, _ = fmt.Fprintln(cli.out, "  resetpassword -username USERNAME|EMAIL - reset user's password")
	_, _ = fmt.Fprintln(cli.out, "  seed [-username USERNAME] [-email EMAIL] - create an admin and a sample event")
	_, _ = fmt.Fprintln(cli.out, "  sendemails -event ID - send the pending ticket emails of an event")
}

// promptPassword reads a password from the terminal without echoing it.
func (cli *commandLine) promptPassword(fs *flag.FlagSet) (string, error) {
	_, _ = fmt.Fprint(cli.out, "Enter password:")
	pwd, err := readPasswordFunc(int(syscall.Stdin))
	_, _ = fmt.Fprintln(cli.out)
	if err != nil {
		return "", err
	}
	if len(pwd) == 0 {
		fs.Usage()
		return "", errHelp
	}
	return string(pwd), nil
}

func (cli *commandLine) run(args []string) error {
	if len(args) < 2 {
		cli.printUsage()
		return errHelp
	}
	ctx := context.Background()

	addUserCmd := flag.NewFlagSet("adduser", flag.ExitOnError)
	addUserUname := addUserCmd.String("username", "", "The user's username. The password will be prompted next.")
	addUserEmail := addUserCmd.String("email", "", "The user's email.")
	addUserRole := addUserCmd.String("role", user.RoleAdmin, "One of admin, manager or user (ticket scanner).")

	resetPasswordCmd := flag.NewFlagSet("resetpassword", flag.ExitOnError)
	resetPasswordUname := resetPasswordCmd.String("username", "", "The user's username or email. The password will be prompted next.")

	seedCmd := flag.NewFlagSet("seed", flag.ExitOnError)
	seedUname := seedCmd.String("username", "admin", "The admin's username. The password will be prompted next.")
	seedEmail := seedCmd.String("email", "admin@localhost.dev", "The admin's email.")

	sendEmailsCmd := flag.NewFlagSet("sendemails", flag.ExitOnError)
	sendEmailsEvent := sendEmailsCmd.Int("event", 0, "The event ID.")

	switch args[1] {
	case "migrate":
		if len(args) < 3 {
			cli.printUsage()
			return errHelp
		}
		return cli.migrate(args[2:])

	case "adduser":
		if err := addUserCmd.Parse(args[2:]); err != nil {
			return err
		}
		if err := vala.BeginValidation().Validate(
			vala.StringNotEmpty(*addUserUname, "username"),
			vala.StringNotEmpty(*addUserEmail, "email"),
		).Check(); err != nil {
			addUserCmd.Usage()
			return errHelp
		}
		pwd, err := cli.promptPassword(addUserCmd)
		if err != nil {
			return err
		}
		usr, err := cli.addUser(ctx, *addUserUname, *addUserEmail, *addUserRole, pwd)
		if err != nil {
			return err
		}
		_, _ = fmt.Fprintf(cli.out, "User %q saved with role %s\n", usr.Username, usr.Role)
		return nil

	case "resetpassword":
		if err := resetPasswordCmd.Parse(args[2:]); err != nil {
			return err
		}
		if *resetPasswordUname == "" {
			resetPasswordCmd.Usage()
			return errHelp
		}
		pwd, err := cli.promptPassword(resetPasswordCmd)
		if err != nil {
			return err
		}
		return cli.resetPassword(ctx, *resetPasswordUname, pwd)

	case "seed":
		if err := seedCmd.Parse(args[2:]); err != nil {
			return err
		}
		pwd, err := cli.promptPassword(seedCmd)
		if err != nil {
			return err
		}
		return cli.seed(ctx, *seedUname, *seedEmail, pwd)

	case "sendemails":
		if err := sendEmailsCmd.Parse(args[2:]); err != nil {
			return err
		}
		if err := vala.BeginValidation().Validate(
			vala.GreaterThan(*sendEmailsEvent, 0, "event"),
		).Check(); err != nil {
			sendEmailsCmd.Usage()
			return errHelp
		}
		return cli.sendEmails(ctx, *sendEmailsEvent)

	default:
		cli.printUsage()
		return errHelp
	}
}
