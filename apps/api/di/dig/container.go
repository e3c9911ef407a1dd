package dig_container

import (
	"context"
	"fmt"
	"log"

	"github.com/go-playground/locales/en"
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"github.com/pkg/errors"
	"go.uber.org/dig"
	"go.uber.org/zap"

	echoapi "github.com/borisstroganov/accessible-health-dashboard/apps/api/echo"
	"github.com/borisstroganov/accessible-health-dashboard/core"
	"github.com/borisstroganov/accessible-health-dashboard/core/account"
	"github.com/borisstroganov/accessible-health-dashboard/core/assignment"
	"github.com/borisstroganov/accessible-health-dashboard/core/capture"
	"github.com/borisstroganov/accessible-health-dashboard/core/pairing"
	emailsvc "github.com/borisstroganov/accessible-health-dashboard/services/email"
	eventsvc "github.com/borisstroganov/accessible-health-dashboard/services/events"
	logsvc "github.com/borisstroganov/accessible-health-dashboard/services/logger"
	"github.com/borisstroganov/accessible-health-dashboard/storage/database"
	mongorepos "github.com/borisstroganov/accessible-health-dashboard/storage/database/mongo"
	sqlxrepos "github.com/borisstroganov/accessible-health-dashboard/storage/database/sqlx"
)

type DBLoggerParam struct {
	dig.In
	Logger core.Logger `name:"dbLogger"`
}

// Repos is every repository of the configured database engine, plus the handle to close it with.
type Repos struct {
	dig.Out
	DB          core.DB
	Accounts    account.Repository
	Pairing     pairing.Repository
	Assignments assignment.Repository
	Captures    capture.Repository
}

type ServerParams struct {
	dig.In
	Conf          *core.Config
	Logger        core.Logger
	DB            core.DB
	AccountSvc    *account.Service
	PairingSvc    *pairing.Service
	AssignmentSvc *assignment.Service
	CaptureSvc    *capture.Service
	Validate      *validator.Validate
	Translator    ut.Translator
}

func newLogger(conf *core.Config, zl *zap.Logger) core.Logger {
	logger := logsvc.NewRollbarLogger(zl.Named("api"), conf)
	logger.Enable(!conf.Debug)
	return logger
}

func newDBLogger(conf *core.Config, zl *zap.Logger) core.Logger {
	logger := logsvc.NewRollbarLogger(zl.Named("db"), conf)
	logger.Enable(!conf.Debug)
	return logger
}

func newRepos(conf *core.Config, loggerParam DBLoggerParam) (Repos, error) {
	ctx := context.Background()
	logger := loggerParam.Logger

	if conf.Database.Engine == core.EngineMongo {
		store, err := mongorepos.Connect(ctx, conf)
		if err != nil {
			return Repos{}, errors.Wrap(err, "setting up database")
		}
		if err = store.EnsureIndexes(ctx); err != nil {
			_ = store.Close()
			return Repos{}, errors.Wrap(err, "setting up database")
		}
		logger.Info(fmt.Sprintf("connected to mongo database %q", conf.Database.Name))
		return Repos{
			DB:          store,
			Accounts:    mongorepos.NewAccountRepository(store),
			Pairing:     mongorepos.NewPairingRepository(store),
			Assignments: mongorepos.NewAssignmentRepository(store),
			Captures:    mongorepos.NewCaptureRepository(store),
		}, nil
	}

	db, err := database.Setup(ctx, conf)
	if err != nil {
		return Repos{}, errors.Wrap(err, "setting up database")
	}
	logger.Info(fmt.Sprintf("connected to %s database", conf.Database.Engine))
	return Repos{
		DB:          db,
		Accounts:    sqlxrepos.NewAccountRepository(db),
		Pairing:     sqlxrepos.NewPairingRepository(db),
		Assignments: sqlxrepos.NewAssignmentRepository(db),
		Captures:    sqlxrepos.NewCaptureRepository(db),
	}, nil
}

func newEmailService(conf *core.Config, logger core.Logger) core.EmailService {
	if conf.Debug {
		return emailsvc.NewConsoleService(conf, logger)
	}
	return emailsvc.NewSendgridService(conf, logger)
}

func newEventPublisher(conf *core.Config, logger core.Logger) core.EventPublisher {
	if len(conf.Kafka.Brokers) == 0 {
		return eventsvc.NewNopPublisher()
	}
	return eventsvc.NewKafkaPublisher(conf, logger)
}

func newTranslator() ut.Translator {
	_en := en.New()
	uni := ut.New(_en, _en)
	translator, _ := uni.GetTranslator("en")
	return translator
}

func newValidator(translator ut.Translator) *validator.Validate {
	validate := validator.New()
	core.InitValidators(validate, translator)
	account.InitValidators(validate, translator)
	return validate
}

func newServer(p ServerParams) *echoapi.Server {
	return echoapi.NewServer(echoapi.ServerDeps{
		Conf:          p.Conf,
		Logger:        p.Logger,
		DB:            p.DB,
		AccountSvc:    p.AccountSvc,
		PairingSvc:    p.PairingSvc,
		AssignmentSvc: p.AssignmentSvc,
		CaptureSvc:    p.CaptureSvc,
		Validate:      p.Validate,
		Translator:    p.Translator,
	})
}

// New returns a new dependency injection dig.Container
func New() *dig.Container {
	c := dig.New()

	must(c.Provide(core.NewConfig))
	must(c.Provide(logsvc.NewZapLogger))
	must(c.Provide(newLogger))
	must(c.Provide(newDBLogger, dig.Name("dbLogger")))
	must(c.Provide(newRepos))
	must(c.Provide(newEmailService))
	must(c.Provide(newEventPublisher))
	must(c.Provide(newTranslator))
	must(c.Provide(newValidator))
	must(c.Provide(account.NewService))
	must(c.Provide(pairing.NewService))
	must(c.Provide(capture.NewService))
	must(c.Provide(assignment.NewService))
	must(c.Provide(newServer))

	return c
}

// must exits program if err happened
func must(err error) {
	if err != nil {
		log.Fatal(errors.Wrap(err, "failed to provide dependency").Error())
	}
}
