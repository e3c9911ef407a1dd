package main

import (
	"context"
	"fmt"
	"os"

	"github.com/go-playground/locales/en"
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"github.com/pkg/errors"

	"github.com/borisstroganov/accessible-health-dashboard/core"
	"github.com/borisstroganov/accessible-health-dashboard/core/account"
	logsvc "github.com/borisstroganov/accessible-health-dashboard/services/logger"
	"github.com/borisstroganov/accessible-health-dashboard/storage/database"
	mongorepos "github.com/borisstroganov/accessible-health-dashboard/storage/database/mongo"
	sqlxrepos "github.com/borisstroganov/accessible-health-dashboard/storage/database/sqlx"
)

func main() {
	conf, err := core.NewConfig()
	if err != nil {
		_, _ = fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	zl, err := logsvc.NewZapLogger(conf)
	if err != nil {
		_, _ = fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	logger := logsvc.NewRollbarLogger(zl.Named("admin"), conf)

	cli, closeDB, err := newCommandLine(conf)
	if err != nil {
		logger.Fatal(fmt.Sprintf("setting up database: %v", err), err)
	}

	err = cli.run(os.Args)
	if cErr := closeDB(); cErr != nil {
		logger.Error("closing database", cErr)
	}
	_ = zl.Sync()
	if err != nil {
		if err != errHelp {
			_, _ = fmt.Fprintf(os.Stderr, "\nerror: %s\n", err)
		}
		os.Exit(1)
	}
}

// newCommandLine opens the configured database without migrating it.
func newCommandLine(conf *core.Config) (*commandLine, func() error, error) {
	validate := validator.New()
	translator, _ := ut.New(en.New()).GetTranslator("en")
	core.InitValidators(validate, translator)
	account.InitValidators(validate, translator)

	cli := &commandLine{conf: conf, validate: validate, out: os.Stdout}
	ctx := context.Background()

	if conf.Database.Engine == core.EngineMongo {
		store, err := mongorepos.Connect(ctx, conf)
		if err != nil {
			return nil, nil, err
		}
		cli.accounts = mongorepos.NewAccountRepository(store)
		cli.pairings = mongorepos.NewPairingRepository(store)
		cli.assignments = mongorepos.NewAssignmentRepository(store)
		cli.accountSvc = account.NewService(cli.accounts)
		return cli, store.Close, nil
	}

	if err := database.CreateIfNotExist(ctx, conf); err != nil {
		return nil, nil, err
	}
	db, err := database.Open(conf)
	if err != nil {
		return nil, nil, errors.Wrap(err, "opening database")
	}
	if err = db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, nil, errors.Wrap(err, "pinging database")
	}
	cli.db = db
	cli.accounts = sqlxrepos.NewAccountRepository(db)
	cli.pairings = sqlxrepos.NewPairingRepository(db)
	cli.assignments = sqlxrepos.NewAssignmentRepository(db)
	cli.accountSvc = account.NewService(cli.accounts)
	return cli, db.Close, nil
}
