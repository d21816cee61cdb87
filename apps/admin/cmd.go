package main

import (
	"errors"
	"fmt"
	"io"

	"github.com/jmoiron/sqlx"

	"github.com/pensezy/edutrack/core"
	"github.com/pensezy/edutrack/core/guardian"
)

var errHelp = errors.New("help provided")

type commandLine struct {
	db   *sqlx.DB
	conf *core.Config
	out  io.Writer

	guardianRepo guardian.Repository
	guardianSvc  *guardian.Service
}

func (cli *commandLine) printUsage() {
	fmt.Fprintf(cli.out, "%s administration\n", cli.conf.AppName)
	fmt.Fprintln(cli.out, "Usage:")
	fmt.Fprintln(cli.out, "  createdb - create the database and app user if they do not exist")
	fmt.Fprintln(cli.out, "  migrate COMMAND [ARGS] - run a goose migration command (up, down, status, ...)")
	fmt.Fprintln(cli.out, "  audit-guardians - report guardian identities that look like duplicates")
}

func (cli *commandLine) run(args []string) error {
	if len(args) < 2 {
		cli.printUsage()
		return errHelp
	}

	switch args[1] {
	case "createdb":
		return cli.createDB()
	case "migrate":
		if len(args) < 3 {
			cli.printUsage()
			return errHelp
		}
		return cli.migrate(args[2:])
	case "audit-guardians":
		return cli.auditGuardians()
	default:
		cli.printUsage()
		return errHelp
	}
}
