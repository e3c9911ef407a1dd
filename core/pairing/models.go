package pairing

import "time"

// Invitation is a pending pairing offer from a therapist to a patient.
// At most one invitation exists per (patient, therapist) pair.
type Invitation struct {
	PatientEmail   string    `json:"patient_email" db:"patient_email" bson:"patient_email"`
	PatientName    string    `json:"patient_name,omitempty" db:"-" bson:"-"`
	TherapistEmail string    `json:"therapist_email" db:"therapist_email" bson:"therapist_email"`
	TherapistName  string    `json:"therapist_name,omitempty" db:"-" bson:"-"`
	CreatedAt      time.Time `json:"created_at" db:"created_at" bson:"created_at"` // UTC
}

// Member is the public profile of the other side of a pairing.
type Member struct {
	Email string `json:"email"`
	Name  string `json:"name"`
}

type invitationMailData struct {
	PatientName    string
	TherapistName  string
	TherapistEmail string
}
