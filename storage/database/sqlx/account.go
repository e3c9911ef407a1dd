package sqlxrepos

import (
	"context"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/borisstroganov/accessible-health-dashboard/core/account"
)

type (
	patientRow struct {
		Email          string      `db:"email"`
		Name           string      `db:"name"`
		TherapistEmail null.String `db:"therapist_email"`
		PasswordHash   string      `db:"password_hash"`
		CreatedAt      time.Time   `db:"created_at"`
	}

	therapistRow struct {
		Email        string    `db:"email"`
		Name         string    `db:"name"`
		PasswordHash string    `db:"password_hash"`
		CreatedAt    time.Time `db:"created_at"`
	}
)

func toPatientRow(p account.Patient) patientRow {
	return patientRow{
		Email:          p.Email,
		Name:           p.Name,
		TherapistEmail: null.NewString(p.TherapistEmail, p.TherapistEmail != ""),
		PasswordHash:   string(p.PasswordHash),
		CreatedAt:      p.CreatedAt.UTC(),
	}
}

func (row patientRow) patient() account.Patient {
	return account.Patient{
		Email:          row.Email,
		Name:           row.Name,
		TherapistEmail: row.TherapistEmail.String,
		PasswordHash:   []byte(row.PasswordHash),
		CreatedAt:      utc(row.CreatedAt),
	}
}

func (row therapistRow) therapist() account.Therapist {
	return account.Therapist{
		Email:        row.Email,
		Name:         row.Name,
		PasswordHash: []byte(row.PasswordHash),
		CreatedAt:    utc(row.CreatedAt),
	}
}

const (
	patientColumns   = "email, name, therapist_email, password_hash, created_at"
	therapistColumns = "email, name, password_hash, created_at"
)

type accountRepository struct {
	db *sqlx.DB
}

var _ account.Repository = (*accountRepository)(nil) // interface compliance check

func NewAccountRepository(db *sqlx.DB) account.Repository {
	return &accountRepository{db: db}
}

func (repo *accountRepository) CreatePatient(ctx context.Context, p account.Patient) (account.Patient, error) {
	_, err := repo.db.NamedExecContext(ctx,
		"INSERT INTO patients ("+patientColumns+") "+
			"VALUES (:email, :name, :therapist_email, :password_hash, :created_at)",
		toPatientRow(p))
	if err != nil {
		if isUniqueViolation(err) {
			return account.Patient{}, account.ErrEmailExists
		}
		return account.Patient{}, errors.Wrap(err, "inserting patient")
	}
	return p, nil
}

func (repo *accountRepository) CreateTherapist(ctx context.Context, t account.Therapist) (account.Therapist, error) {
	row := therapistRow{
		Email:        t.Email,
		Name:         t.Name,
		PasswordHash: string(t.PasswordHash),
		CreatedAt:    t.CreatedAt.UTC(),
	}
	_, err := repo.db.NamedExecContext(ctx,
		"INSERT INTO therapists ("+therapistColumns+") VALUES (:email, :name, :password_hash, :created_at)",
		row)
	if err != nil {
		if isUniqueViolation(err) {
			return account.Therapist{}, account.ErrEmailExists
		}
		return account.Therapist{}, errors.Wrap(err, "inserting therapist")
	}
	return t, nil
}

func (repo *accountRepository) GetPatient(ctx context.Context, email string) (account.Patient, error) {
	var row patientRow
	q := repo.db.Rebind("SELECT " + patientColumns + " FROM patients WHERE email = ?")
	if err := repo.db.GetContext(ctx, &row, q, email); err != nil {
		return account.Patient{}, trapNoRowsErr(err, account.ErrNotFound, "selecting patient")
	}
	return row.patient(), nil
}

func (repo *accountRepository) GetTherapist(ctx context.Context, email string) (account.Therapist, error) {
	var row therapistRow
	q := repo.db.Rebind("SELECT " + therapistColumns + " FROM therapists WHERE email = ?")
	if err := repo.db.GetContext(ctx, &row, q, email); err != nil {
		return account.Therapist{}, trapNoRowsErr(err, account.ErrNotFound, "selecting therapist")
	}
	return row.therapist(), nil
}

func (repo *accountRepository) SetPassword(ctx context.Context, role account.Role, email string, hash []byte) error {
	var table string
	switch role {
	case account.RolePatient:
		table = "patients"
	case account.RoleTherapist:
		table = "therapists"
	default:
		return account.ErrNotFound
	}

	q := repo.db.Rebind("UPDATE " + table + " SET password_hash = ? WHERE email = ?")
	res, err := repo.db.ExecContext(ctx, q, string(hash), email)
	if err != nil {
		return errors.Wrap(err, "updating password")
	}
	return checkAffected(res, account.ErrNotFound)
}
