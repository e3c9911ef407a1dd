package main

import (
	"errors"
	"fmt"
	"io"
	"syscall"

	"github.com/go-playground/validator/v10"
	"github.com/jmoiron/sqlx"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/borisstroganov/accessible-health-dashboard/core"
	"github.com/borisstroganov/accessible-health-dashboard/core/account"
	"github.com/borisstroganov/accessible-health-dashboard/core/assignment"
	"github.com/borisstroganov/accessible-health-dashboard/core/pairing"
)

var (
	readPasswordFunc = term.ReadPassword // mockable

	errHelp = errors.New("help provided")
)

type commandLine struct {
	conf        *core.Config
	db          *sqlx.DB // nil on mongo
	accounts    account.Repository
	accountSvc  *account.Service
	pairings    pairing.Repository
	assignments assignment.Repository
	validate    *validator.Validate
	out         io.Writer
}

// run executes the command in args (args[0] being the program name).
func (cli *commandLine) run(args []string) error {
	root := cli.rootCmd()
	root.SetArgs(args[1:])
	root.SetOut(cli.out)
	root.SetErr(cli.out)
	return root.Execute()
}

func (cli *commandLine) rootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "admin",
		Short:         "Speech practice administration",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			_ = cmd.Usage()
			return errHelp
		},
	}
	root.AddCommand(
		cli.migrateCmd(),
		cli.addTherapistCmd(),
		cli.resetPasswordCmd(),
		cli.seedCmd(),
	)
	return root
}

// readPassword prompts for a password without echoing it.
func (cli *commandLine) readPassword(cmd *cobra.Command) (string, error) {
	_, _ = fmt.Fprint(cli.out, "Enter password:")
	pwd, err := readPasswordFunc(int(syscall.Stdin))
	_, _ = fmt.Fprintln(cli.out)
	if err != nil {
		return "", err
	}
	if len(pwd) == 0 {
		_ = cmd.Usage()
		return "", errHelp
	}
	return string(pwd), nil
}
