package pairing

import (
	"context"
	"errors"
	"net/mail"
	"time"

	pkgerrors "github.com/pkg/errors"

	"github.com/borisstroganov/accessible-health-dashboard/core"
	"github.com/borisstroganov/accessible-health-dashboard/core/account"
)

var (
	// repository errors
	ErrInvitationExists = errors.New("invitation already exists")
	ErrNoInvitation     = errors.New("invitation not found")
	ErrAlreadyPaired    = errors.New("patient already has a therapist")
	ErrNotPaired        = errors.New("patient is not paired with this therapist")

	// rejections
	ErrPatientNotFound          = core.NewRejectionError("patient not found")
	ErrTherapistNotFound        = core.NewRejectionError("therapist not found")
	ErrInvitationAlreadyPending = core.NewRejectionError("an invitation to this patient is already pending")
	ErrPatientAlreadyAssigned   = core.NewRejectionError("patient already has a therapist")
	ErrNoPendingInvitation      = core.NewRejectionError("no pending invitation from this therapist")
	ErrAlreadyAssigned          = core.NewRejectionError("you already have a therapist")
	ErrNotAssigned              = core.NewRejectionError("you do not have a therapist")
	ErrNotYourPatient           = core.NewRejectionError("this patient is not assigned to you")

	nowFunc = time.Now // mockable
)

type (
	// Repository persists invitations and the patient -> therapist link.
	// Writes on the link are conditional: they only apply when the patient is in the expected state.
	Repository interface {
		// CreateInvitation fails with ErrInvitationExists when the pair already has one.
		CreateInvitation(ctx context.Context, inv Invitation) error
		InvitationExists(ctx context.Context, patientEmail, therapistEmail string) (bool, error)
		// DeleteInvitation fails with ErrNoInvitation when nothing was deleted.
		DeleteInvitation(ctx context.Context, patientEmail, therapistEmail string) error
		PatientInvitations(ctx context.Context, patientEmail string) ([]Invitation, error)
		TherapistInvitations(ctx context.Context, therapistEmail string) ([]Invitation, error)
		// AssignTherapist links an unassigned patient; ErrAlreadyPaired otherwise.
		AssignTherapist(ctx context.Context, patientEmail, therapistEmail string) error
		// AcceptInvitation deletes the invitation and links the patient atomically.
		// Fails with ErrNoInvitation or ErrAlreadyPaired, leaving both untouched.
		AcceptInvitation(ctx context.Context, patientEmail, therapistEmail string) error
		// UnassignTherapist clears the link. An empty therapistEmail matches any therapist.
		// Fails with ErrNotPaired when nothing matched.
		UnassignTherapist(ctx context.Context, patientEmail, therapistEmail string) error
		TherapistPatients(ctx context.Context, therapistEmail string) ([]account.Patient, error)
	}

	Service struct {
		accounts account.Repository
		repo     Repository
		mailSvc  core.EmailService
	}
)

func NewService(accounts account.Repository, repo Repository, mailSvc core.EmailService) *Service {
	return &Service{
		accounts: accounts,
		repo:     repo,
		mailSvc:  mailSvc,
	}
}

func (svc *Service) getPatient(ctx context.Context, email string, notFound error) (account.Patient, error) {
	p, err := svc.accounts.GetPatient(ctx, email)
	if err != nil {
		if pkgerrors.Cause(err) == account.ErrNotFound {
			return account.Patient{}, notFound
		}
		return account.Patient{}, pkgerrors.Wrap(err, "finding patient")
	}
	return p, nil
}

func (svc *Service) getTherapist(ctx context.Context, email string) (account.Therapist, error) {
	t, err := svc.accounts.GetTherapist(ctx, email)
	if err != nil {
		if pkgerrors.Cause(err) == account.ErrNotFound {
			return account.Therapist{}, ErrTherapistNotFound
		}
		return account.Therapist{}, pkgerrors.Wrap(err, "finding therapist")
	}
	return t, nil
}

// SendInvitation invites a patient to join the therapist's patients.
func (svc *Service) SendInvitation(ctx context.Context, therapist account.Identity, patientEmail string) error {
	patientEmail = core.CleanString(patientEmail)
	p, err := svc.getPatient(ctx, patientEmail, ErrPatientNotFound)
	if err != nil {
		return err
	}

	exists, err := svc.repo.InvitationExists(ctx, p.Email, therapist.Email)
	if err != nil {
		return pkgerrors.Wrap(err, "checking invitation")
	}
	if exists {
		return ErrInvitationAlreadyPending
	}
	if p.HasTherapist() {
		return ErrPatientAlreadyAssigned
	}

	inv := Invitation{
		PatientEmail:   p.Email,
		TherapistEmail: therapist.Email,
		CreatedAt:      nowFunc().UTC(),
	}
	if err := svc.repo.CreateInvitation(ctx, inv); err != nil {
		if pkgerrors.Cause(err) == ErrInvitationExists {
			return ErrInvitationAlreadyPending
		}
		return pkgerrors.Wrap(err, "creating invitation")
	}

	svc.mailSvc.SendMessages(&core.EmailMessage{
		To:           []mail.Address{{Name: p.Name, Address: p.Email}},
		Subject:      "New therapist invitation",
		TemplateName: "invitation_received",
		TemplateData: invitationMailData{
			PatientName:    p.Name,
			TherapistName:  therapist.Name,
			TherapistEmail: therapist.Email,
		},
	})
	return nil
}

// AcceptInvitation pairs the patient with the inviting therapist and consumes the invitation.
func (svc *Service) AcceptInvitation(ctx context.Context, patientEmail, therapistEmail string) error {
	therapistEmail = core.CleanString(therapistEmail)
	if _, err := svc.getTherapist(ctx, therapistEmail); err != nil {
		return err
	}

	exists, err := svc.repo.InvitationExists(ctx, patientEmail, therapistEmail)
	if err != nil {
		return pkgerrors.Wrap(err, "checking invitation")
	}
	if !exists {
		return ErrNoPendingInvitation
	}

	p, err := svc.getPatient(ctx, patientEmail, ErrPatientNotFound)
	if err != nil {
		return err
	}
	if p.HasTherapist() {
		return ErrAlreadyAssigned
	}

	if err := svc.repo.AcceptInvitation(ctx, patientEmail, therapistEmail); err != nil {
		switch pkgerrors.Cause(err) {
		case ErrNoInvitation:
			return ErrNoPendingInvitation
		case ErrAlreadyPaired:
			return ErrAlreadyAssigned
		}
		return pkgerrors.Wrap(err, "accepting invitation")
	}
	return nil
}

// RejectInvitation discards the invitation without pairing.
func (svc *Service) RejectInvitation(ctx context.Context, patientEmail, therapistEmail string) error {
	therapistEmail = core.CleanString(therapistEmail)
	if _, err := svc.getTherapist(ctx, therapistEmail); err != nil {
		return err
	}

	if err := svc.repo.DeleteInvitation(ctx, patientEmail, therapistEmail); err != nil {
		if pkgerrors.Cause(err) == ErrNoInvitation {
			return ErrNoPendingInvitation
		}
		return pkgerrors.Wrap(err, "deleting invitation")
	}
	return nil
}

// SelfAssignTherapist pairs the patient with a therapist directly, no invitation involved.
func (svc *Service) SelfAssignTherapist(ctx context.Context, patientEmail, therapistEmail string) error {
	therapistEmail = core.CleanString(therapistEmail)
	if _, err := svc.getTherapist(ctx, therapistEmail); err != nil {
		return err
	}

	p, err := svc.getPatient(ctx, patientEmail, ErrPatientNotFound)
	if err != nil {
		return err
	}
	if p.HasTherapist() {
		return ErrAlreadyAssigned
	}

	if err := svc.repo.AssignTherapist(ctx, patientEmail, therapistEmail); err != nil {
		if pkgerrors.Cause(err) == ErrAlreadyPaired {
			return ErrAlreadyAssigned
		}
		return pkgerrors.Wrap(err, "assigning therapist")
	}
	return nil
}

func (svc *Service) UnassignByPatient(ctx context.Context, patientEmail string) error {
	p, err := svc.getPatient(ctx, patientEmail, ErrNotAssigned)
	if err != nil {
		return err
	}
	if !p.HasTherapist() {
		return ErrNotAssigned
	}

	if err := svc.repo.UnassignTherapist(ctx, patientEmail, ""); err != nil {
		if pkgerrors.Cause(err) == ErrNotPaired {
			return ErrNotAssigned
		}
		return pkgerrors.Wrap(err, "unassigning therapist")
	}
	return nil
}

func (svc *Service) UnassignByTherapist(ctx context.Context, therapistEmail, patientEmail string) error {
	patientEmail = core.CleanString(patientEmail)
	if err := svc.EnsureTherapistOf(ctx, therapistEmail, patientEmail); err != nil {
		return err
	}

	if err := svc.repo.UnassignTherapist(ctx, patientEmail, therapistEmail); err != nil {
		if pkgerrors.Cause(err) == ErrNotPaired {
			return ErrNotYourPatient
		}
		return pkgerrors.Wrap(err, "unassigning therapist")
	}
	return nil
}

// EnsureTherapistOf fails with ErrNotYourPatient unless the patient is paired with the therapist.
func (svc *Service) EnsureTherapistOf(ctx context.Context, therapistEmail, patientEmail string) error {
	p, err := svc.getPatient(ctx, patientEmail, ErrNotYourPatient)
	if err != nil {
		return err
	}
	if p.TherapistEmail != therapistEmail {
		return ErrNotYourPatient
	}
	return nil
}

// PendingForPatient lists the invitations addressed to the patient, with the therapists' names.
func (svc *Service) PendingForPatient(ctx context.Context, patientEmail string) ([]Invitation, error) {
	invs, err := svc.repo.PatientInvitations(ctx, patientEmail)
	if err != nil {
		return nil, pkgerrors.Wrap(err, "querying patient invitations")
	}
	for i := range invs {
		t, err := svc.accounts.GetTherapist(ctx, invs[i].TherapistEmail)
		if err != nil {
			return nil, pkgerrors.Wrap(err, "finding therapist")
		}
		invs[i].TherapistName = t.Name
	}
	return invs, nil
}

// PendingFromTherapist lists the invitations the therapist sent, with the patients' names.
func (svc *Service) PendingFromTherapist(ctx context.Context, therapistEmail string) ([]Invitation, error) {
	invs, err := svc.repo.TherapistInvitations(ctx, therapistEmail)
	if err != nil {
		return nil, pkgerrors.Wrap(err, "querying therapist invitations")
	}
	for i := range invs {
		p, err := svc.accounts.GetPatient(ctx, invs[i].PatientEmail)
		if err != nil {
			return nil, pkgerrors.Wrap(err, "finding patient")
		}
		invs[i].PatientName = p.Name
	}
	return invs, nil
}

func (svc *Service) TherapistOf(ctx context.Context, patientEmail string) (Member, error) {
	p, err := svc.getPatient(ctx, patientEmail, ErrNotAssigned)
	if err != nil {
		return Member{}, err
	}
	if !p.HasTherapist() {
		return Member{}, ErrNotAssigned
	}
	t, err := svc.accounts.GetTherapist(ctx, p.TherapistEmail)
	if err != nil {
		return Member{}, pkgerrors.Wrap(err, "finding therapist")
	}
	return Member{Email: t.Email, Name: t.Name}, nil
}

// PatientsOf lists the therapist's patients ordered by name.
func (svc *Service) PatientsOf(ctx context.Context, therapistEmail string) ([]Member, error) {
	patients, err := svc.repo.TherapistPatients(ctx, therapistEmail)
	if err != nil {
		return nil, pkgerrors.Wrap(err, "querying therapist patients")
	}
	members := make([]Member, 0, len(patients))
	for _, p := range patients {
		members = append(members, Member{Email: p.Email, Name: p.Name})
	}
	return members, nil
}
