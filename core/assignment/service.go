package assignment

import (
	"context"
	"errors"
	"fmt"
	"html"
	"net/mail"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"github.com/microcosm-cc/bluemonday"
	pkgerrors "github.com/pkg/errors"

	"github.com/borisstroganov/accessible-health-dashboard/core"
	"github.com/borisstroganov/accessible-health-dashboard/core/account"
	"github.com/borisstroganov/accessible-health-dashboard/core/capture"
)

var (
	// repository errors
	ErrNotFound       = errors.New("assignment not found")
	ErrStatusConflict = errors.New("assignment status changed")

	// rejections
	ErrPatientNotFound    = core.NewRejectionError("patient not found")
	ErrNotYourPatient     = core.NewRejectionError("this patient is not assigned to you")
	ErrAssignmentNotFound = core.NewRejectionError("assignment not found")
	ErrNotYourAssignment  = core.NewRejectionError("this assignment is not yours")
	ErrAlreadySubmitted   = core.NewRejectionError("assignment already submitted")
	ErrAlreadyReviewed    = core.NewRejectionError("assignment already reviewed")
	ErrNotYetCompleted    = core.NewRejectionError("assignment not completed yet")
	ErrInvalidStatus      = core.NewRejectionError("invalid status")

	// OrderingFields are the fields assignments can be ordered by.
	OrderingFields = map[string]bool{"created_at": true, "updated_at": true, "title": true, "status": true}

	nowFunc = time.Now // mockable
)

type (
	// Repository persists assignments. Status transitions are conditional writes:
	// they only apply while the assignment is still in the expected status.
	Repository interface {
		CreateAssignment(ctx context.Context, a Assignment) error
		// GetAssignment fails with ErrNotFound.
		GetAssignment(ctx context.Context, id string) (Assignment, error)
		// QueryAssignments applies AND on the set filter fields; newest first unless ordered otherwise.
		QueryAssignments(ctx context.Context, filter QueryFilter, ordering []core.DBOrdering) ([]Assignment, error)
		// CompleteAssignment stores sr and moves todo -> completed in one write.
		// Fails with ErrStatusConflict, storing nothing, when the assignment is not todo.
		CompleteAssignment(ctx context.Context, id string, sr capture.SpeechRate) error
		// ReviewAssignment moves completed -> reviewed, else ErrStatusConflict.
		ReviewAssignment(ctx context.Context, id, feedback string, at time.Time) error
		// DeleteAssignment removes the therapist's assignment, else ErrNotFound.
		DeleteAssignment(ctx context.Context, id, therapistEmail string) error
	}

	Service struct {
		accounts account.Repository
		repo     Repository
		captures *capture.Service
		mailSvc  core.EmailService
		policy   *bluemonday.Policy
	}
)

func NewService(
	accounts account.Repository,
	repo Repository,
	captures *capture.Service,
	mailSvc core.EmailService,
) *Service {
	return &Service{
		accounts: accounts,
		repo:     repo,
		captures: captures,
		mailSvc:  mailSvc,
		policy:   bluemonday.StrictPolicy(),
	}
}

// sanitize strips any markup from user provided text and decodes the entities the policy
// escapes, leaving plain text.
func (svc *Service) sanitize(s string) string {
	return core.CleanString(html.UnescapeString(svc.policy.Sanitize(s)))
}

// sanitized reports the fields left empty or too long once markup is stripped.
func sanitized(fields ...core.FieldError) error {
	var errs []core.FieldError
	for _, f := range fields {
		if f.Error != "" {
			errs = append(errs, f)
		}
	}
	if len(errs) == 0 {
		return nil
	}
	return core.NewValidationError(nil, errs...)
}

func checkText(field, s string, max int) core.FieldError {
	switch {
	case s == "":
		return core.FieldError{Field: field, Error: field + " must not be empty once markup is removed"}
	case utf8.RuneCountInString(s) > max:
		return core.FieldError{Field: field, Error: fmt.Sprintf("%s must be a maximum of %d characters in length", field, max)}
	}
	return core.FieldError{}
}

// get loads an assignment, mapping a missing one to ErrAssignmentNotFound.
func (svc *Service) get(ctx context.Context, id string) (Assignment, error) {
	a, err := svc.repo.GetAssignment(ctx, id)
	if err != nil {
		if pkgerrors.Cause(err) == ErrNotFound {
			return Assignment{}, ErrAssignmentNotFound
		}
		return Assignment{}, pkgerrors.Wrap(err, "finding assignment")
	}
	return a, nil
}

func (svc *Service) names(ctx context.Context, a Assignment) (patientName, therapistName string) {
	if p, err := svc.accounts.GetPatient(ctx, a.PatientEmail); err == nil {
		patientName = p.Name
	}
	if t, err := svc.accounts.GetTherapist(ctx, a.TherapistEmail); err == nil {
		therapistName = t.Name
	}
	return patientName, therapistName
}

// Create issues a new todo assignment to one of the therapist's patients.
func (svc *Service) Create(ctx context.Context, therapist account.Identity, na NewAssignment) (Assignment, error) {
	p, err := svc.accounts.GetPatient(ctx, na.PatientEmail)
	if err != nil {
		if pkgerrors.Cause(err) == account.ErrNotFound {
			return Assignment{}, ErrPatientNotFound
		}
		return Assignment{}, pkgerrors.Wrap(err, "finding patient")
	}
	if p.TherapistEmail != therapist.Email {
		return Assignment{}, ErrNotYourPatient
	}

	title, text := svc.sanitize(na.Title), svc.sanitize(na.Text)
	if err := sanitized(checkText("title", title, MaxTitleLen), checkText("text", text, MaxTextLen)); err != nil {
		return Assignment{}, err
	}

	now := nowFunc().UTC()
	a := Assignment{
		ID:             uuid.New().String(),
		PatientEmail:   p.Email,
		TherapistEmail: therapist.Email,
		Title:          title,
		Text:           text,
		Status:         StatusTodo,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	if err := svc.repo.CreateAssignment(ctx, a); err != nil {
		return Assignment{}, pkgerrors.Wrap(err, "creating assignment")
	}

	svc.mailSvc.SendMessages(&core.EmailMessage{
		To:           []mail.Address{{Name: p.Name, Address: p.Email}},
		Subject:      "New exercise: " + a.Title,
		TemplateName: "assignment_created",
		TemplateData: createdMailData{
			ID:            a.ID,
			Title:         a.Title,
			PatientName:   p.Name,
			TherapistName: therapist.Name,
		},
	})
	return a, nil
}

// Submit records the patient's speech capture against a todo assignment and completes it.
func (svc *Service) Submit(ctx context.Context, id, patientEmail string, data Submission) (SubmitResult, error) {
	a, err := svc.get(ctx, id)
	if err != nil {
		return SubmitResult{}, err
	}
	if a.PatientEmail != patientEmail {
		return SubmitResult{}, ErrNotYourAssignment
	}
	if a.Status != StatusTodo {
		return SubmitResult{}, ErrAlreadySubmitted
	}

	sr := svc.captures.NewSpeechRateRecord(patientEmail, data)
	if err := svc.repo.CompleteAssignment(ctx, a.ID, sr); err != nil {
		if pkgerrors.Cause(err) == ErrStatusConflict {
			return SubmitResult{}, ErrAlreadySubmitted
		}
		return SubmitResult{}, pkgerrors.Wrap(err, "completing assignment")
	}
	svc.captures.PublishSpeechRate(sr)

	patientName, therapistName := svc.names(ctx, a)
	svc.mailSvc.SendMessages(&core.EmailMessage{
		To:           []mail.Address{{Name: therapistName, Address: a.TherapistEmail}},
		Subject:      "Exercise completed: " + a.Title,
		TemplateName: "assignment_submitted",
		TemplateData: submittedMailData{
			ID:            a.ID,
			Title:         a.Title,
			PatientName:   patientName,
			TherapistName: therapistName,
			WPM:           sr.WPM,
			Accuracy:      sr.Accuracy,
		},
	})
	return SubmitResult{Status: StatusCompleted, CapturedAt: sr.RecordedAt}, nil
}

// Review stores the therapist's feedback on a completed assignment.
func (svc *Service) Review(ctx context.Context, id, therapistEmail string, data Review) (ReviewResult, error) {
	a, err := svc.get(ctx, id)
	if err != nil {
		return ReviewResult{}, err
	}
	if a.TherapistEmail != therapistEmail {
		return ReviewResult{}, ErrNotYourAssignment
	}
	switch a.Status {
	case StatusReviewed:
		return ReviewResult{}, ErrAlreadyReviewed
	case StatusTodo:
		return ReviewResult{}, ErrNotYetCompleted
	}

	feedback := svc.sanitize(data.Feedback)
	if err := sanitized(checkText("feedback", feedback, MaxTextLen)); err != nil {
		return ReviewResult{}, err
	}
	if err := svc.repo.ReviewAssignment(ctx, a.ID, feedback, nowFunc().UTC()); err != nil {
		if pkgerrors.Cause(err) == ErrStatusConflict {
			return ReviewResult{}, ErrAlreadyReviewed
		}
		return ReviewResult{}, pkgerrors.Wrap(err, "reviewing assignment")
	}

	patientName, therapistName := svc.names(ctx, a)
	svc.mailSvc.SendMessages(&core.EmailMessage{
		To:           []mail.Address{{Name: patientName, Address: a.PatientEmail}},
		Subject:      "Feedback on " + a.Title,
		TemplateName: "assignment_reviewed",
		TemplateData: reviewedMailData{
			Title:         a.Title,
			Feedback:      feedback,
			PatientName:   patientName,
			TherapistName: therapistName,
		},
	})
	return ReviewResult{Status: StatusReviewed}, nil
}

// Delete removes one of the therapist's assignments, whatever its status.
// The speech capture of a submitted assignment is kept.
func (svc *Service) Delete(ctx context.Context, id, therapistEmail string) error {
	a, err := svc.get(ctx, id)
	if err != nil {
		return err
	}
	if a.TherapistEmail != therapistEmail {
		return ErrNotYourAssignment
	}

	if err := svc.repo.DeleteAssignment(ctx, a.ID, therapistEmail); err != nil {
		if pkgerrors.Cause(err) == ErrNotFound {
			return ErrAssignmentNotFound
		}
		return pkgerrors.Wrap(err, "deleting assignment")
	}
	return nil
}

// Get loads an assignment visible to caller, with its speech capture when submitted.
func (svc *Service) Get(ctx context.Context, id string, caller account.Identity) (Assignment, error) {
	a, err := svc.get(ctx, id)
	if err != nil {
		return Assignment{}, err
	}
	owner := a.PatientEmail
	if caller.Role == account.RoleTherapist {
		owner = a.TherapistEmail
	}
	if owner != caller.Email {
		return Assignment{}, ErrNotYourAssignment
	}

	if a.SpeechRateID != "" {
		sr, err := svc.captures.SpeechRate(ctx, a.SpeechRateID)
		switch {
		case err == nil:
			a.SpeechRate = &sr
		case pkgerrors.Cause(err) != capture.ErrNotFound:
			return Assignment{}, pkgerrors.Wrap(err, "finding speech rate")
		}
	}
	return a, nil
}

// ForPatient lists the patient's assignments.
func (svc *Service) ForPatient(ctx context.Context, patientEmail string, filter QueryFilter, ordering []core.DBOrdering) ([]Assignment, error) {
	filter.PatientEmail = patientEmail
	filter.TherapistEmail = ""
	return svc.query(ctx, filter, ordering)
}

// ForTherapist lists the assignments the therapist issued, optionally for one patient.
func (svc *Service) ForTherapist(ctx context.Context, therapistEmail string, filter QueryFilter, ordering []core.DBOrdering) ([]Assignment, error) {
	filter.TherapistEmail = therapistEmail
	return svc.query(ctx, filter, ordering)
}

func (svc *Service) query(ctx context.Context, filter QueryFilter, ordering []core.DBOrdering) ([]Assignment, error) {
	filter.Clean()
	if filter.Status != "" && !filter.Status.IsValid() {
		return nil, ErrInvalidStatus
	}
	valid := make([]core.DBOrdering, 0, len(ordering))
	for _, ord := range ordering {
		if OrderingFields[ord.Field] {
			valid = append(valid, ord)
		}
	}

	as, err := svc.repo.QueryAssignments(ctx, filter, valid)
	if err != nil {
		return nil, pkgerrors.Wrap(err, "querying assignments")
	}
	return as, nil
}
