package main

import (
	"context"
	"errors"

	"github.com/pressly/goose/v3"
	"github.com/spf13/cobra"

	"github.com/borisstroganov/accessible-health-dashboard/storage/database"
)

var (
	gooseRunFunc = goose.RunContext // mockable

	errNotSQL = errors.New("migrations only apply to SQL databases")
)

func (cli *commandLine) migrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:                "migrate COMMAND [ARGS...]",
		Short:              "Run a goose migration command (up, down, status, version, redo, reset, up-to N, down-to N...)",
		DisableFlagParsing: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) == 0 {
				_ = cmd.Usage()
				return errHelp
			}
			return cli.migrate(args)
		},
	}
}

func (cli *commandLine) migrate(args []string) error {
	if cli.db == nil {
		return errNotSQL
	}
	if err := database.PrepareGoose(cli.db); err != nil {
		return err
	}
	return gooseRunFunc(context.Background(), args[0], cli.db.DB, ".", args[1:]...)
}
