package main

import (
	"log"
	"os"

	"github.com/pensezy/edutrack/core"
	"github.com/pensezy/edutrack/core/guardian"
	logsvc "github.com/pensezy/edutrack/services/logger"
	"github.com/pensezy/edutrack/storage/database"
	sqlxrepos "github.com/pensezy/edutrack/storage/database/sqlx"
)

func main() {
	defer os.Exit(0)

	logger := logsvc.NewStdLogger(log.New(os.Stdout, "ADMIN : ", log.LstdFlags|log.Lmicroseconds|log.Lshortfile))
	conf := core.NewConfig()

	// set up DB
	db, err := database.Open(conf)
	if err != nil {
		logger.Fatal(err.Error())
	}
	defer func() { _ = db.Close() }()

	guardianRepo := sqlxrepos.NewGuardianRepository(db)
	cli := commandLine{
		db:           db,
		conf:         conf,
		out:          os.Stdout,
		guardianRepo: guardianRepo,
		guardianSvc:  guardian.NewService(guardianRepo, logger),
	}
	if err := cli.run(os.Args); err != nil {
		if core.IsShutdown(err) {
			logger.Fatal(err.Error())
		}
		if err != errHelp {
			logger.Error(err.Error())
		}
		os.Exit(1)
	}
}
