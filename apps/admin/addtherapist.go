package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/borisstroganov/accessible-health-dashboard/core/account"
)

func (cli *commandLine) addTherapistCmd() *cobra.Command {
	var email, name string

	cmd := &cobra.Command{
		Use:   "add-therapist",
		Short: "Create a therapist account. The password is prompted next.",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if email == "" || name == "" {
				_ = cmd.Usage()
				return errHelp
			}
			pwd, err := cli.readPassword(cmd)
			if err != nil {
				return err
			}
			return cli.addTherapist(name, email, pwd)
		},
	}
	cmd.Flags().StringVar(&email, "email", "", "the therapist's email")
	cmd.Flags().StringVar(&name, "name", "", "the therapist's name")
	return cmd
}

// addTherapist signs up a therapist, applying the same rules as the API.
func (cli *commandLine) addTherapist(name, email, pwd string) error {
	na := account.NewAccount{Name: name, Email: email, Password: pwd, PasswordConfirm: pwd}
	if err := na.Validate(cli.validate); err != nil {
		return err
	}
	t, err := cli.accountSvc.SignUpTherapist(context.Background(), na)
	if err != nil {
		return err
	}
	_, _ = fmt.Fprintf(cli.out, "therapist %s created\n", t.Email)
	return nil
}
