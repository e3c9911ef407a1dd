package sqlxrepos

import (
	"context"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/borisstroganov/accessible-health-dashboard/core"
	"github.com/borisstroganov/accessible-health-dashboard/core/assignment"
	"github.com/borisstroganov/accessible-health-dashboard/core/capture"
)

const assignmentColumns = "id, patient_email, therapist_email, title, text, status, speech_rate_id, feedback, created_at, updated_at"

var assignmentOrderColumns = map[string]string{
	"created_at": "created_at",
	"updated_at": "updated_at",
	"title":      "title",
	"status":     "status",
}

type assignmentRow struct {
	ID             string      `db:"id"`
	PatientEmail   string      `db:"patient_email"`
	TherapistEmail string      `db:"therapist_email"`
	Title          string      `db:"title"`
	Text           string      `db:"text"`
	Status         string      `db:"status"`
	SpeechRateID   null.String `db:"speech_rate_id"`
	Feedback       null.String `db:"feedback"`
	CreatedAt      time.Time   `db:"created_at"`
	UpdatedAt      time.Time   `db:"updated_at"`
}

func toAssignmentRow(a assignment.Assignment) assignmentRow {
	return assignmentRow{
		ID:             a.ID,
		PatientEmail:   a.PatientEmail,
		TherapistEmail: a.TherapistEmail,
		Title:          a.Title,
		Text:           a.Text,
		Status:         string(a.Status),
		SpeechRateID:   null.NewString(a.SpeechRateID, a.SpeechRateID != ""),
		Feedback:       null.NewString(a.Feedback, a.Feedback != ""),
		CreatedAt:      a.CreatedAt.UTC(),
		UpdatedAt:      a.UpdatedAt.UTC(),
	}
}

func (row assignmentRow) assignment() assignment.Assignment {
	return assignment.Assignment{
		ID:             row.ID,
		PatientEmail:   row.PatientEmail,
		TherapistEmail: row.TherapistEmail,
		Title:          row.Title,
		Text:           row.Text,
		Status:         assignment.Status(row.Status),
		SpeechRateID:   row.SpeechRateID.String,
		Feedback:       row.Feedback.String,
		CreatedAt:      utc(row.CreatedAt),
		UpdatedAt:      utc(row.UpdatedAt),
	}
}

type assignmentRepository struct {
	db *sqlx.DB
}

var _ assignment.Repository = (*assignmentRepository)(nil) // interface compliance check

func NewAssignmentRepository(db *sqlx.DB) assignment.Repository {
	return &assignmentRepository{db: db}
}

func (repo *assignmentRepository) CreateAssignment(ctx context.Context, a assignment.Assignment) error {
	_, err := repo.db.NamedExecContext(ctx,
		"INSERT INTO assignments ("+assignmentColumns+") VALUES "+
			"(:id, :patient_email, :therapist_email, :title, :text, :status, :speech_rate_id, :feedback, :created_at, :updated_at)",
		toAssignmentRow(a))
	return errors.Wrap(err, "inserting assignment")
}

func (repo *assignmentRepository) GetAssignment(ctx context.Context, id string) (assignment.Assignment, error) {
	var row assignmentRow
	q := repo.db.Rebind("SELECT " + assignmentColumns + " FROM assignments WHERE id = ?")
	if err := repo.db.GetContext(ctx, &row, q, id); err != nil {
		return assignment.Assignment{}, trapNoRowsErr(err, assignment.ErrNotFound, "selecting assignment")
	}
	return row.assignment(), nil
}

func (repo *assignmentRepository) QueryAssignments(
	ctx context.Context,
	filter assignment.QueryFilter,
	ordering []core.DBOrdering,
) ([]assignment.Assignment, error) {
	var (
		where []string
		args  []interface{}
	)
	if filter.PatientEmail != "" {
		where = append(where, "patient_email = ?")
		args = append(args, filter.PatientEmail)
	}
	if filter.TherapistEmail != "" {
		where = append(where, "therapist_email = ?")
		args = append(args, filter.TherapistEmail)
	}
	if filter.Status != "" {
		where = append(where, "status = ?")
		args = append(args, string(filter.Status))
	}

	q := "SELECT " + assignmentColumns + " FROM assignments"
	if len(where) > 0 {
		q += " WHERE " + strings.Join(where, " AND ")
	}

	orderBy := make([]string, 0, len(ordering)+1)
	for _, ord := range ordering {
		if col, ok := assignmentOrderColumns[ord.Field]; ok {
			orderBy = append(orderBy, core.DBOrdering{Field: col, Ascending: ord.Ascending}.String())
		}
	}
	if len(orderBy) == 0 {
		orderBy = append(orderBy, "created_at DESC")
	}
	q += " ORDER BY " + strings.Join(append(orderBy, "id ASC"), ", ")

	var rows []assignmentRow
	if err := repo.db.SelectContext(ctx, &rows, repo.db.Rebind(q), args...); err != nil {
		return nil, errors.Wrap(err, "selecting assignments")
	}
	as := make([]assignment.Assignment, 0, len(rows))
	for _, row := range rows {
		as = append(as, row.assignment())
	}
	return as, nil
}

func (repo *assignmentRepository) CompleteAssignment(ctx context.Context, id string, sr capture.SpeechRate) (err error) {
	tx, err := repo.db.BeginTxx(ctx, nil)
	if err != nil {
		return errors.Wrap(err, "beginning transaction")
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	sr.RecordedAt = sr.RecordedAt.UTC()
	if _, err = tx.NamedExecContext(ctx, insertSpeechRate, sr); err != nil {
		return errors.Wrap(err, "inserting speech rate")
	}
	q := tx.Rebind("UPDATE assignments SET status = ?, speech_rate_id = ?, updated_at = ? WHERE id = ? AND status = ?")
	res, err := tx.ExecContext(ctx, q,
		string(assignment.StatusCompleted), sr.ID, sr.RecordedAt, id, string(assignment.StatusTodo))
	if err != nil {
		return errors.Wrap(err, "completing assignment")
	}
	if err = checkAffected(res, assignment.ErrStatusConflict); err != nil {
		return err
	}
	if err = tx.Commit(); err != nil {
		return errors.Wrap(err, "committing transaction")
	}
	return nil
}

func (repo *assignmentRepository) ReviewAssignment(ctx context.Context, id, feedback string, at time.Time) error {
	q := repo.db.Rebind("UPDATE assignments SET status = ?, feedback = ?, updated_at = ? WHERE id = ? AND status = ?")
	res, err := repo.db.ExecContext(ctx, q,
		string(assignment.StatusReviewed), feedback, at.UTC(), id, string(assignment.StatusCompleted))
	if err != nil {
		return errors.Wrap(err, "reviewing assignment")
	}
	return checkAffected(res, assignment.ErrStatusConflict)
}

func (repo *assignmentRepository) DeleteAssignment(ctx context.Context, id, therapistEmail string) error {
	q := repo.db.Rebind("DELETE FROM assignments WHERE id = ? AND therapist_email = ?")
	res, err := repo.db.ExecContext(ctx, q, id, therapistEmail)
	if err != nil {
		return errors.Wrap(err, "deleting assignment")
	}
	return checkAffected(res, assignment.ErrNotFound)
}
