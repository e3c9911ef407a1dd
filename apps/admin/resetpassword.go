package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/borisstroganov/accessible-health-dashboard/core"
	"github.com/borisstroganov/accessible-health-dashboard/core/account"
)

func (cli *commandLine) resetPasswordCmd() *cobra.Command {
	var email string
	var therapist bool

	cmd := &cobra.Command{
		Use:   "reset-password",
		Short: "Reset an account's password. The password is prompted next.",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if email == "" {
				_ = cmd.Usage()
				return errHelp
			}
			pwd, err := cli.readPassword(cmd)
			if err != nil {
				return err
			}
			role := account.RolePatient
			if therapist {
				role = account.RoleTherapist
			}
			return cli.resetPassword(role, email, pwd)
		},
	}
	cmd.Flags().StringVar(&email, "email", "", "the account's email")
	cmd.Flags().BoolVar(&therapist, "therapist", false, "the account is a therapist's (default: patient)")
	return cmd
}

func (cli *commandLine) resetPassword(role account.Role, email, pwd string) error {
	email = core.CleanString(email)
	if err := cli.accountSvc.SetPassword(context.Background(), role, email, pwd); err != nil {
		return err
	}
	_, _ = fmt.Fprintf(cli.out, "password of %s %s reset\n", role, email)
	return nil
}
