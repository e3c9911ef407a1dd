package sqlxrepos

import (
	"context"

	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"

	"github.com/borisstroganov/accessible-health-dashboard/core/account"
	"github.com/borisstroganov/accessible-health-dashboard/core/pairing"
)

const invitationColumns = "patient_email, therapist_email, created_at"

type pairingRepository struct {
	db *sqlx.DB
}

var _ pairing.Repository = (*pairingRepository)(nil) // interface compliance check

func NewPairingRepository(db *sqlx.DB) pairing.Repository {
	return &pairingRepository{db: db}
}

func (repo *pairingRepository) CreateInvitation(ctx context.Context, inv pairing.Invitation) error {
	inv.CreatedAt = inv.CreatedAt.UTC()
	_, err := repo.db.NamedExecContext(ctx,
		"INSERT INTO invitations ("+invitationColumns+") VALUES (:patient_email, :therapist_email, :created_at)",
		inv)
	if err != nil {
		if isUniqueViolation(err) {
			return pairing.ErrInvitationExists
		}
		return errors.Wrap(err, "inserting invitation")
	}
	return nil
}

func (repo *pairingRepository) InvitationExists(ctx context.Context, patientEmail, therapistEmail string) (bool, error) {
	var count int
	q := repo.db.Rebind("SELECT COUNT(*) FROM invitations WHERE patient_email = ? AND therapist_email = ?")
	if err := repo.db.GetContext(ctx, &count, q, patientEmail, therapistEmail); err != nil {
		return false, errors.Wrap(err, "counting invitations")
	}
	return count > 0, nil
}

func (repo *pairingRepository) DeleteInvitation(ctx context.Context, patientEmail, therapistEmail string) error {
	q := repo.db.Rebind("DELETE FROM invitations WHERE patient_email = ? AND therapist_email = ?")
	res, err := repo.db.ExecContext(ctx, q, patientEmail, therapistEmail)
	if err != nil {
		return errors.Wrap(err, "deleting invitation")
	}
	return checkAffected(res, pairing.ErrNoInvitation)
}

func (repo *pairingRepository) selectInvitations(ctx context.Context, column, email string) ([]pairing.Invitation, error) {
	invs := make([]pairing.Invitation, 0)
	q := repo.db.Rebind("SELECT " + invitationColumns + " FROM invitations WHERE " + column + " = ? ORDER BY created_at DESC")
	if err := repo.db.SelectContext(ctx, &invs, q, email); err != nil {
		return nil, errors.Wrap(err, "selecting invitations")
	}
	for i := range invs {
		invs[i].CreatedAt = utc(invs[i].CreatedAt)
	}
	return invs, nil
}

func (repo *pairingRepository) PatientInvitations(ctx context.Context, patientEmail string) ([]pairing.Invitation, error) {
	return repo.selectInvitations(ctx, "patient_email", patientEmail)
}

func (repo *pairingRepository) TherapistInvitations(ctx context.Context, therapistEmail string) ([]pairing.Invitation, error) {
	return repo.selectInvitations(ctx, "therapist_email", therapistEmail)
}

// assign links an unassigned patient using exec (the DB or a running transaction).
func assign(ctx context.Context, exec sqlx.ExtContext, patientEmail, therapistEmail string) error {
	q := exec.Rebind("UPDATE patients SET therapist_email = ? WHERE email = ? AND therapist_email IS NULL")
	res, err := exec.ExecContext(ctx, q, therapistEmail, patientEmail)
	if err != nil {
		return errors.Wrap(err, "assigning therapist")
	}
	if err = checkAffected(res, pairing.ErrAlreadyPaired); err != pairing.ErrAlreadyPaired {
		return err
	}

	var count int
	q = exec.Rebind("SELECT COUNT(*) FROM patients WHERE email = ?")
	if err := sqlx.GetContext(ctx, exec, &count, q, patientEmail); err != nil {
		return errors.Wrap(err, "counting patients")
	}
	if count == 0 {
		return account.ErrNotFound
	}
	return pairing.ErrAlreadyPaired
}

func (repo *pairingRepository) AssignTherapist(ctx context.Context, patientEmail, therapistEmail string) error {
	return assign(ctx, repo.db, patientEmail, therapistEmail)
}

func (repo *pairingRepository) AcceptInvitation(ctx context.Context, patientEmail, therapistEmail string) (err error) {
	tx, err := repo.db.BeginTxx(ctx, nil)
	if err != nil {
		return errors.Wrap(err, "beginning transaction")
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	q := tx.Rebind("DELETE FROM invitations WHERE patient_email = ? AND therapist_email = ?")
	res, err := tx.ExecContext(ctx, q, patientEmail, therapistEmail)
	if err != nil {
		return errors.Wrap(err, "deleting invitation")
	}
	if err = checkAffected(res, pairing.ErrNoInvitation); err != nil {
		return err
	}
	if err = assign(ctx, tx, patientEmail, therapistEmail); err != nil {
		return err
	}
	if err = tx.Commit(); err != nil {
		return errors.Wrap(err, "committing transaction")
	}
	return nil
}

func (repo *pairingRepository) UnassignTherapist(ctx context.Context, patientEmail, therapistEmail string) error {
	q := "UPDATE patients SET therapist_email = NULL WHERE email = ? AND therapist_email IS NOT NULL"
	args := []interface{}{patientEmail}
	if therapistEmail != "" {
		q += " AND therapist_email = ?"
		args = append(args, therapistEmail)
	}

	res, err := repo.db.ExecContext(ctx, repo.db.Rebind(q), args...)
	if err != nil {
		return errors.Wrap(err, "unassigning therapist")
	}
	return checkAffected(res, pairing.ErrNotPaired)
}

func (repo *pairingRepository) TherapistPatients(ctx context.Context, therapistEmail string) ([]account.Patient, error) {
	var rows []patientRow
	q := repo.db.Rebind("SELECT " + patientColumns + " FROM patients WHERE therapist_email = ? ORDER BY name, email")
	if err := repo.db.SelectContext(ctx, &rows, q, therapistEmail); err != nil {
		return nil, errors.Wrap(err, "selecting patients")
	}
	patients := make([]account.Patient, 0, len(rows))
	for _, row := range rows {
		patients = append(patients, row.patient())
	}
	return patients, nil
}
