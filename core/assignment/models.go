package assignment

import (
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/borisstroganov/accessible-health-dashboard/core"
	"github.com/borisstroganov/accessible-health-dashboard/core/capture"
)

// Status is the lifecycle stage of an Assignment: todo -> completed -> reviewed.
type Status string

// Statuses
const (
	StatusTodo      Status = "todo"
	StatusCompleted Status = "completed"
	StatusReviewed  Status = "reviewed"
)

var Statuses = []Status{StatusTodo, StatusCompleted, StatusReviewed}

func (s Status) IsValid() bool {
	for _, st := range Statuses {
		if s == st {
			return true
		}
	}
	return false
}

type Assignment struct {
	ID             string    `json:"id" bson:"_id"`
	PatientEmail   string    `json:"patient_email" bson:"patient_email"`
	TherapistEmail string    `json:"therapist_email" bson:"therapist_email"`
	Title          string    `json:"title" bson:"title"`
	Text           string    `json:"text" bson:"text"`
	Status         Status    `json:"status" bson:"status"`
	SpeechRateID   string    `json:"speech_rate_id,omitempty" bson:"speech_rate_id,omitempty"`
	Feedback       string    `json:"feedback,omitempty" bson:"feedback,omitempty"`
	CreatedAt      time.Time `json:"created_at" bson:"created_at"` // UTC
	UpdatedAt      time.Time `json:"updated_at" bson:"updated_at"` // UTC

	// loaded on detail only
	SpeechRate *capture.SpeechRate `json:"speech_rate,omitempty" bson:"-"`
}

// Text limits, in characters.
const (
	MaxTitleLen = 200
	MaxTextLen  = 10000
)

// NewAssignment contains information needed to issue an Assignment to a patient.
type NewAssignment struct {
	PatientEmail string `json:"patient_email" validate:"required,email"`
	Title        string `json:"title" validate:"required,max=200"`
	Text         string `json:"text" validate:"required,max=10000"`
}

func (na *NewAssignment) Validate(validate *validator.Validate) error {
	na.PatientEmail = core.CleanString(na.PatientEmail)
	na.Title = core.CleanString(na.Title)
	na.Text = core.CleanString(na.Text)
	return validate.Struct(na)
}

// Submission is the speech capture a patient records to complete an Assignment.
type Submission = capture.NewSpeechRate

type Review struct {
	Feedback string `json:"feedback" validate:"required,max=10000"`
}

func (r *Review) Validate(validate *validator.Validate) error {
	r.Feedback = core.CleanString(r.Feedback)
	return validate.Struct(r)
}

type QueryFilter struct {
	PatientEmail   string `query:"patient"`
	TherapistEmail string `query:"-"`
	Status         Status `query:"status"`
}

func (qf *QueryFilter) Clean() {
	qf.PatientEmail = core.CleanString(qf.PatientEmail)
	qf.Status = Status(core.CleanString(string(qf.Status), true /* lower */))
}

// SubmitResult is returned by a successful submission.
type SubmitResult struct {
	Status     Status    `json:"status"`
	CapturedAt time.Time `json:"captured_at"`
}

type ReviewResult struct {
	Status Status `json:"status"`
}

type (
	createdMailData struct {
		ID            string
		Title         string
		PatientName   string
		TherapistName string
	}

	submittedMailData struct {
		ID            string
		Title         string
		PatientName   string
		TherapistName string
		WPM           int
		Accuracy      float64
	}

	reviewedMailData struct {
		Title         string
		Feedback      string
		PatientName   string
		TherapistName string
	}
)
