package dig_container

import (
	"database/sql"
	"fmt"
	"log"
	"os"

	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"
	"go.uber.org/dig"

	echoapi "github.com/trezcool/creche/apps/api/echo"
	"github.com/trezcool/creche/core"
	"github.com/trezcool/creche/core/child"
	"github.com/trezcool/creche/core/daycare"
	"github.com/trezcool/creche/core/lifecycle"
	"github.com/trezcool/creche/core/record"
	"github.com/trezcool/creche/core/user"
	emailsvc "github.com/trezcool/creche/services/email"
	logsvc "github.com/trezcool/creche/services/logger"
	"github.com/trezcool/creche/services/metrics"
	"github.com/trezcool/creche/storage/cache"
	"github.com/trezcool/creche/storage/database"
	inmemdb "github.com/trezcool/creche/storage/database/inmem"
	sqlxrepos "github.com/trezcool/creche/storage/database/sqlx"
)

// EngineMemory keeps every record in memory: nothing survives a restart.
const EngineMemory = "memory"

type (
	DBLoggerParam struct {
		dig.In
		Logger core.Logger `name:"dbLogger"`
	}

	// Stores are the persistence boundaries the services are built on.
	Stores struct {
		dig.Out
		Store    record.Store
		Lister   daycare.Lister
		UserRepo user.Repository
	}
)

func newLogger(conf *core.Config) core.Logger {
	stdLogger := log.New(os.Stdout, "API : ", log.LstdFlags|log.Lmicroseconds|log.Lshortfile)
	logger := logsvc.NewRollbarLogger(stdLogger, conf)
	logger.Enable(!conf.Debug)
	return logger
}

func newDBLogger(conf *core.Config) core.Logger {
	stdLogger := log.New(os.Stdout, "DB : ", log.LstdFlags|log.Lmicroseconds|log.Lshortfile)
	logger := logsvc.NewRollbarLogger(stdLogger, conf)
	logger.Enable(!conf.Debug)
	return logger
}

// newDB creates, opens & migrates the database. It is nil with the memory engine.
func newDB(conf *core.Config, loggerParam DBLoggerParam) *sql.DB {
	if conf.Database.Engine == EngineMemory {
		return nil
	}

	setUp := func() (*sql.DB, error) {
		if err := database.CreateIfNotExist(conf); err != nil {
			return nil, err
		}

		db, err := database.Open(conf)
		if err != nil {
			return nil, err
		}

		if err = database.Migrate(db); err != nil {
			return nil, err
		}
		return db, nil
	}

	db, err := setUp()
	if err != nil {
		loggerParam.Logger.Fatal(fmt.Sprintf("setting up database: %v", err), err)
	}
	return db
}

// newStores picks the stores of the configured engine & puts the list cache in front of the record store.
func newStores(conf *core.Config, db *sql.DB, m *metrics.Metrics) (Stores, error) {
	var (
		store    record.Store
		lister   daycare.Lister
		userRepo user.Repository
	)
	if db == nil {
		mem := inmemdb.Open()
		memStore := inmemdb.NewRecordStore(mem)
		store, lister, userRepo = memStore, memStore, inmemdb.NewUserRepository(mem)
	} else {
		xdb := sqlx.NewDb(db, conf.Database.Engine)
		xStore := sqlxrepos.NewRecordStore(xdb)
		store, lister, userRepo = xStore, xStore, sqlxrepos.NewUserRepository(xdb)
	}

	cached, err := cache.New(store, conf.Cache.Size, m)
	if err != nil {
		return Stores{}, errors.Wrap(err, "creating list cache")
	}
	return Stores{Store: cached, Lister: lister, UserRepo: userRepo}, nil
}

func newEmailService(conf *core.Config, logger core.Logger) core.EmailService {
	if conf.Debug {
		return emailsvc.NewConsoleService(conf, logger)
	}
	return emailsvc.NewSendgridService(conf, logger)
}

func newValidator() (*validator.Validate, ut.Translator) {
	validate := validator.New()
	translator := core.NewTranslator()
	core.InitValidators(validate, translator)
	user.InitValidators(validate, translator)
	daycare.InitValidators(validate, translator)
	child.InitValidators(validate, translator)
	return validate, translator
}

// newRecordService wires the record service with the daycare hooks & the metrics.
func newRecordService(
	store record.Store,
	validate *validator.Validate,
	translator ut.Translator,
	logger core.Logger,
	usrSvc user.ServiceInterface,
	mailSvc core.EmailService,
	m *metrics.Metrics,
) *record.Service {
	svc := record.NewService(store, validate, translator, logger)
	svc.OnCreate(lifecycle.KindDaycare, daycare.NewOwnerHook(usrSvc))
	svc.OnStatusChange(lifecycle.KindDaycare, daycare.NewStatusNotifier(usrSvc, mailSvc, logger))
	svc.SetObserver(m)
	return svc
}

func newServer(
	conf *core.Config,
	logger core.Logger,
	validate *validator.Validate,
	translator ut.Translator,
	recSvc *record.Service,
	usrSvc user.ServiceInterface,
	lister daycare.Lister,
	m *metrics.Metrics,
) echoapi.Server {
	return echoapi.NewServer(
		&echoapi.Options{
			Address:    conf.Server.Address,
			Conf:       conf,
			Logger:     logger,
			Validate:   validate,
			Translator: translator,
			RecordSvc:  recSvc,
			UserSvc:    usrSvc,
			Lister:     lister,
			Metrics:    m,
		},
	)
}

// New returns a new dependency injection dig.Container
func New() *dig.Container {
	c := dig.New()

	must(c.Provide(core.NewConfig))
	must(c.Provide(newLogger))
	must(c.Provide(newDBLogger, dig.Name("dbLogger")))
	must(c.Provide(newDB))
	must(c.Provide(metrics.New))
	must(c.Provide(newStores))
	must(c.Provide(newEmailService))
	must(c.Provide(newValidator))
	must(c.Provide(user.NewService, dig.As(new(user.ServiceInterface))))
	must(c.Provide(newRecordService))
	must(c.Provide(newServer))

	return c
}

// must exits program if err happened
func must(err error) {
	if err != nil {
		log.Fatal(errors.Wrap(err, "failed to provide dependency").Error())
	}
}
