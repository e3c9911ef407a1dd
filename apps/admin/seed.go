package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/borisstroganov/accessible-health-dashboard/core"
	"github.com/borisstroganov/accessible-health-dashboard/core/account"
	"github.com/borisstroganov/accessible-health-dashboard/core/assignment"
	"github.com/borisstroganov/accessible-health-dashboard/core/pairing"
)

var nowFunc = time.Now // mockable

type (
	seedFile struct {
		Therapists  []seedTherapist  `yaml:"therapists"`
		Patients    []seedPatient    `yaml:"patients"`
		Invitations []seedInvitation `yaml:"invitations"`
		Assignments []seedAssignment `yaml:"assignments"`
	}

	seedTherapist struct {
		account.Therapist `yaml:",inline"`
		Password          string `yaml:"password"`
	}

	seedPatient struct {
		account.Patient `yaml:",inline"`
		Password        string `yaml:"password"`
	}

	seedInvitation struct {
		Patient   string `yaml:"patient"`
		Therapist string `yaml:"therapist"`
	}

	seedAssignment struct {
		Patient   string `yaml:"patient"`
		Therapist string `yaml:"therapist"`
		Title     string `yaml:"title"`
		Text      string `yaml:"text"`
	}
)

func (cli *commandLine) seedCmd() *cobra.Command {
	var file string

	cmd := &cobra.Command{
		Use:   "seed",
		Short: "Load accounts, pairings, invitations & assignments from a YAML file",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if file == "" {
				_ = cmd.Usage()
				return errHelp
			}
			data, err := os.ReadFile(file)
			if err != nil {
				return err
			}
			var seeds seedFile
			if err := yaml.Unmarshal(data, &seeds); err != nil {
				return errors.Wrapf(err, "parsing %s", file)
			}
			return cli.seed(context.Background(), seeds)
		},
	}
	cmd.Flags().StringVarP(&file, "file", "f", "", "the YAML fixtures file")
	return cmd
}

// seed creates what does not exist yet. Existing accounts are left untouched.
func (cli *commandLine) seed(ctx context.Context, seeds seedFile) error {
	now := nowFunc().UTC()
	var created int

	for _, st := range seeds.Therapists {
		t := st.Therapist
		t.Email = core.CleanString(t.Email)
		t.CreatedAt = now
		if err := t.SetPassword(st.Password); err != nil {
			return errors.Wrap(err, "hashing password")
		}
		if _, err := cli.accounts.CreateTherapist(ctx, t); err != nil {
			if errors.Cause(err) == account.ErrEmailExists {
				continue
			}
			return errors.Wrapf(err, "creating therapist %s", t.Email)
		}
		created++
	}

	for _, sp := range seeds.Patients {
		p := sp.Patient
		p.Email = core.CleanString(p.Email)
		therapistEmail := core.CleanString(p.TherapistEmail)
		p.TherapistEmail = ""
		p.CreatedAt = now
		if err := p.SetPassword(sp.Password); err != nil {
			return errors.Wrap(err, "hashing password")
		}
		if _, err := cli.accounts.CreatePatient(ctx, p); err != nil {
			if errors.Cause(err) == account.ErrEmailExists {
				continue
			}
			return errors.Wrapf(err, "creating patient %s", p.Email)
		}
		created++

		if therapistEmail != "" {
			if err := cli.pairings.AssignTherapist(ctx, p.Email, therapistEmail); err != nil {
				return errors.Wrapf(err, "pairing %s with %s", p.Email, therapistEmail)
			}
		}
	}

	for _, si := range seeds.Invitations {
		inv := pairing.Invitation{
			PatientEmail:   core.CleanString(si.Patient),
			TherapistEmail: core.CleanString(si.Therapist),
			CreatedAt:      now,
		}
		if err := cli.pairings.CreateInvitation(ctx, inv); err != nil {
			if errors.Cause(err) == pairing.ErrInvitationExists {
				continue
			}
			return errors.Wrapf(err, "inviting %s", inv.PatientEmail)
		}
		created++
	}

	for _, sa := range seeds.Assignments {
		a := assignment.Assignment{
			ID:             uuid.New().String(),
			PatientEmail:   core.CleanString(sa.Patient),
			TherapistEmail: core.CleanString(sa.Therapist),
			Title:          core.CleanString(sa.Title),
			Text:           core.CleanString(sa.Text),
			Status:         assignment.StatusTodo,
			CreatedAt:      now,
			UpdatedAt:      now,
		}
		if err := cli.assignments.CreateAssignment(ctx, a); err != nil {
			return errors.Wrapf(err, "creating assignment %q", a.Title)
		}
		created++
	}

	_, _ = fmt.Fprintf(cli.out, "%d records created\n", created)
	return nil
}
