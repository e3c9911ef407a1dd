package account

import (
	"time"

	"github.com/go-playground/validator/v10"
	"golang.org/x/crypto/bcrypt"

	"github.com/borisstroganov/accessible-health-dashboard/core"
)

// Role tells which account table an account lives in.
type Role string

// Roles
const (
	RoleAny       Role = ""
	RolePatient   Role = "patient"
	RoleTherapist Role = "therapist"
)

var hashCost = bcrypt.DefaultCost // lowered in tests

// Identity is the public, role-tagged view of an account.
type Identity struct {
	Email string `json:"email"`
	Name  string `json:"name"`
	Role  Role   `json:"role"`
}

// Credentials is implemented by both account kinds and consumed by authentication.
type Credentials interface {
	Identity() Identity
	CheckPassword(pwd string) error
}

var (
	_ Credentials = (*Patient)(nil)
	_ Credentials = (*Therapist)(nil)
)

type Patient struct {
	Email          string    `json:"email" bson:"_id" yaml:"email"`
	Name           string    `json:"name" bson:"name" yaml:"name"`
	TherapistEmail string    `json:"therapist_email,omitempty" bson:"therapist_email,omitempty" yaml:"therapist_email"`
	PasswordHash   []byte    `json:"-" bson:"password_hash" yaml:"-"`
	CreatedAt      time.Time `json:"created_at" bson:"created_at" yaml:"-"` // UTC
}

func (p *Patient) Identity() Identity {
	return Identity{Email: p.Email, Name: p.Name, Role: RolePatient}
}

func (p *Patient) HasTherapist() bool { return p.TherapistEmail != "" }

func (p *Patient) SetPassword(pwd string) error {
	hash, err := hashPassword(pwd)
	if err != nil {
		return err
	}
	p.PasswordHash = hash
	return nil
}

func (p *Patient) CheckPassword(pwd string) error {
	return bcrypt.CompareHashAndPassword(p.PasswordHash, []byte(pwd))
}

type Therapist struct {
	Email        string    `json:"email" bson:"_id" yaml:"email"`
	Name         string    `json:"name" bson:"name" yaml:"name"`
	PasswordHash []byte    `json:"-" bson:"password_hash" yaml:"-"`
	CreatedAt    time.Time `json:"created_at" bson:"created_at" yaml:"-"` // UTC
}

func (t *Therapist) Identity() Identity {
	return Identity{Email: t.Email, Name: t.Name, Role: RoleTherapist}
}

func (t *Therapist) SetPassword(pwd string) error {
	hash, err := hashPassword(pwd)
	if err != nil {
		return err
	}
	t.PasswordHash = hash
	return nil
}

func (t *Therapist) CheckPassword(pwd string) error {
	return bcrypt.CompareHashAndPassword(t.PasswordHash, []byte(pwd))
}

func hashPassword(pwd string) ([]byte, error) {
	return bcrypt.GenerateFromPassword([]byte(pwd), hashCost)
}

// NewAccount contains information needed to sign up a Patient or a Therapist.
type NewAccount struct {
	Name            string `json:"name" validate:"required,max=100,personname"`
	Email           string `json:"email" validate:"required,email,max=254"`
	Password        string `json:"password" validate:"required"`
	PasswordConfirm string `json:"password_confirm" validate:"required,eqfield=Password"`
}

func (na *NewAccount) Validate(validate *validator.Validate) error {
	na.Name = core.CleanString(na.Name)
	na.Email = core.CleanString(na.Email)
	return validate.Struct(na)
}

// ChangePassword is what an authenticated account provides to replace its password.
type ChangePassword struct {
	Password        string `json:"password" validate:"required"`
	NewPassword     string `json:"new_password" validate:"required"`
	ConfirmPassword string `json:"confirm_password" validate:"required"`
}

func (cp ChangePassword) Validate(validate *validator.Validate) error { return validate.Struct(cp) }
