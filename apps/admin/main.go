package main

import (
	"log"
	"os"

	"github.com/go-playground/validator/v10"
	"github.com/jmoiron/sqlx"

	"github.com/trezcool/creche/core"
	"github.com/trezcool/creche/core/child"
	"github.com/trezcool/creche/core/daycare"
	"github.com/trezcool/creche/core/lifecycle"
	"github.com/trezcool/creche/core/record"
	"github.com/trezcool/creche/core/user"
	"github.com/trezcool/creche/fs"
	"github.com/trezcool/creche/services/email"
	"github.com/trezcool/creche/services/logger"
	"github.com/trezcool/creche/storage/database"
	"github.com/trezcool/creche/storage/database/sqlx"
)

func main() {
	conf := core.NewConfig()
	logger := logsvc.NewRollbarLogger(log.New(os.Stdout, "ADMIN : ", log.LstdFlags|log.Lmicroseconds|log.Lshortfile), conf)
	logger.Enable(!conf.Debug)

	cli := commandLine{out: os.Stdout}

	if needsDB(os.Args) {
		// set up DB
		db, err := database.Open(conf)
		errAndDie(logger, err)
		defer db.Close()
		errAndDie(logger, db.Ping())

		validate := validator.New()
		translator := core.NewTranslator()
		core.InitValidators(validate, translator)
		user.InitValidators(validate, translator)
		daycare.InitValidators(validate, translator)
		child.InitValidators(validate, translator)

		core.ParseEmailTemplates(appfs.FS, appfs.EmailTemplatesDir, logger, false)
		var mailSvc core.EmailService
		if conf.Debug {
			mailSvc = emailsvc.NewConsoleService(conf, logger)
		} else {
			mailSvc = emailsvc.NewSendgridService(conf, logger)
		}

		xdb := sqlx.NewDb(db, conf.Database.Engine)
		usrRepo := sqlxrepos.NewUserRepository(xdb)
		recSvc := record.NewService(sqlxrepos.NewRecordStore(xdb), validate, translator, logger)
		recSvc.OnStatusChange(lifecycle.KindDaycare, daycare.NewStatusNotifier(user.NewService(usrRepo, validate, translator), mailSvc, logger))

		cli.db = db
		cli.recSvc = recSvc
		cli.usrRepo = usrRepo
	}

	// start CLI
	err := cli.run(os.Args)
	emailsvc.Wait() // notifications are sent in the background
	if err != nil {
		if err != errHelp {
			logger.Error("admin command failed", err)
		}
		os.Exit(1)
	}
}

func errAndDie(logger core.Logger, err error) {
	if err != nil {
		logger.Fatal(err.Error(), err)
	}
}
