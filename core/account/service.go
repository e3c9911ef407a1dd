package account

import (
	"context"
	"errors"
	"time"

	pkgerrors "github.com/pkg/errors"

	"github.com/borisstroganov/accessible-health-dashboard/core"
)

var (
	// repository errors
	ErrNotFound    = errors.New("account not found")
	ErrEmailExists = errors.New("an account with this email already exists")

	// rejections
	ErrAuthenticationFailed = core.NewRejectionError("authentication failed")
	ErrWrongPassword        = core.NewRejectionError("current password is incorrect")
	ErrSamePassword         = core.NewRejectionError("new password must be different from the current password")
	ErrPasswordMismatch     = core.NewRejectionError("new password and confirmation do not match")

	nowFunc = time.Now // mockable
)

type (
	Repository interface {
		CreatePatient(ctx context.Context, p Patient) (Patient, error)
		CreateTherapist(ctx context.Context, t Therapist) (Therapist, error)
		GetPatient(ctx context.Context, email string) (Patient, error)
		GetTherapist(ctx context.Context, email string) (Therapist, error)
		SetPassword(ctx context.Context, role Role, email string, hash []byte) error
	}

	Service struct {
		repo Repository
	}
)

func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

func emailTaken(field string) error {
	return core.NewValidationError(ErrEmailExists, core.FieldError{Field: field, Error: ErrEmailExists.Error()})
}

func (svc *Service) SignUpPatient(ctx context.Context, na NewAccount) (Patient, error) {
	p := Patient{
		Email:     na.Email,
		Name:      na.Name,
		CreatedAt: nowFunc().UTC(),
	}
	if err := p.SetPassword(na.Password); err != nil {
		return Patient{}, pkgerrors.Wrap(err, "hashing password")
	}
	p, err := svc.repo.CreatePatient(ctx, p)
	if err != nil {
		if pkgerrors.Cause(err) == ErrEmailExists {
			return Patient{}, emailTaken("email")
		}
		return Patient{}, pkgerrors.Wrap(err, "creating patient")
	}
	return p, nil
}

func (svc *Service) SignUpTherapist(ctx context.Context, na NewAccount) (Therapist, error) {
	t := Therapist{
		Email:     na.Email,
		Name:      na.Name,
		CreatedAt: nowFunc().UTC(),
	}
	if err := t.SetPassword(na.Password); err != nil {
		return Therapist{}, pkgerrors.Wrap(err, "hashing password")
	}
	t, err := svc.repo.CreateTherapist(ctx, t)
	if err != nil {
		if pkgerrors.Cause(err) == ErrEmailExists {
			return Therapist{}, emailTaken("email")
		}
		return Therapist{}, pkgerrors.Wrap(err, "creating therapist")
	}
	return t, nil
}

// Authenticate checks email & password against the account table(s) of the given role.
// RoleAny tries the patient table first, then the therapist table.
func (svc *Service) Authenticate(ctx context.Context, email, pwd string, role Role) (Credentials, error) {
	email = core.CleanString(email)
	if email == "" || pwd == "" {
		return nil, ErrAuthenticationFailed
	}

	if role == RoleAny || role == RolePatient {
		p, err := svc.repo.GetPatient(ctx, email)
		switch {
		case err == nil:
			if p.CheckPassword(pwd) == nil {
				return &p, nil
			}
		case pkgerrors.Cause(err) != ErrNotFound:
			return nil, pkgerrors.Wrap(err, "finding patient")
		}
	}

	if role == RoleAny || role == RoleTherapist {
		t, err := svc.repo.GetTherapist(ctx, email)
		switch {
		case err == nil:
			if t.CheckPassword(pwd) == nil {
				return &t, nil
			}
		case pkgerrors.Cause(err) != ErrNotFound:
			return nil, pkgerrors.Wrap(err, "finding therapist")
		}
	}
	return nil, ErrAuthenticationFailed
}

// Get loads the account identified by role & email.
func (svc *Service) Get(ctx context.Context, role Role, email string) (Credentials, error) {
	switch role {
	case RolePatient:
		p, err := svc.repo.GetPatient(ctx, email)
		if err != nil {
			return nil, err
		}
		return &p, nil
	case RoleTherapist:
		t, err := svc.repo.GetTherapist(ctx, email)
		if err != nil {
			return nil, err
		}
		return &t, nil
	}
	return nil, ErrNotFound
}

func (svc *Service) GetPatient(ctx context.Context, email string) (Patient, error) {
	return svc.repo.GetPatient(ctx, core.CleanString(email))
}

func (svc *Service) GetTherapist(ctx context.Context, email string) (Therapist, error) {
	return svc.repo.GetTherapist(ctx, core.CleanString(email))
}

// Name returns the display name of an account, ErrNotFound when there is none.
func (svc *Service) Name(ctx context.Context, role Role, email string) (string, error) {
	acc, err := svc.Get(ctx, role, core.CleanString(email))
	if err != nil {
		return "", err
	}
	return acc.Identity().Name, nil
}

// ChangePassword replaces the password of acc. Checks run in this order:
// current password, new == old, confirmation, password policy.
func (svc *Service) ChangePassword(ctx context.Context, acc Credentials, data ChangePassword) error {
	if acc.CheckPassword(data.Password) != nil {
		return ErrWrongPassword
	}
	if data.NewPassword == data.Password {
		return ErrSamePassword
	}
	if data.NewPassword != data.ConfirmPassword {
		return ErrPasswordMismatch
	}
	id := acc.Identity()
	if tag := passwordPolicyViolation(data.NewPassword, id.Name, id.Email); tag != "" {
		text := pwdPolicyTexts[tag]
		return core.NewValidationError(errors.New(text), core.FieldError{Field: "new_password", Error: text})
	}
	return svc.SetPassword(ctx, id.Role, id.Email, data.NewPassword)
}

// SetPassword hashes & stores pwd without any policy check (admin use).
// Only the hashable length is enforced.
func (svc *Service) SetPassword(ctx context.Context, role Role, email, pwd string) error {
	if len(pwd) > pwdMaxLen {
		return core.NewValidationError(errors.New(pwdMaxLenText), core.FieldError{Field: "password", Error: pwdMaxLenText})
	}
	hash, err := hashPassword(pwd)
	if err != nil {
		return pkgerrors.Wrap(err, "hashing password")
	}
	return svc.repo.SetPassword(ctx, role, email, hash)
}
